package service

import (
	"fmt"
	"testing"
	"time"

	"EventSync/internal/config"
	"EventSync/internal/model"
	"EventSync/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a per-test in-memory sqlite database with the full schema
// and the system user seeded.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.TopicUser{},
		&model.Topic{},
		&model.EventMapping{},
		&model.Invitee{},
		&model.WebhookDelivery{},
	))
	require.NoError(t, repository.EnsureSystemUser(db))
	return db
}

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := model.ParseUpstreamTime(s)
	require.NoError(t, err)
	return ts
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{BaseURL: "http://forum.example.com"},
		Webhook: config.WebhookConfig{
			Category:        "events",
			DefaultCategory: "uncategorized",
			CreateRetries:   3,
		},
	}
}
