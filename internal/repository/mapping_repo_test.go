package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"EventSync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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
	return db
}

func TestMappingRepo_GetOrCreate(t *testing.T) {
	repo := NewMappingRepository(newTestDB(t), 3)
	ctx := context.Background()
	ts := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	mapping, created, err := repo.GetOrCreate(ctx, 100, ts)
	require.NoError(t, err)
	assert.True(t, created)
	assert.EqualValues(t, 100, mapping.ExternalEventID)
	assert.Equal(t, ts, mapping.LastUpdatedTS.UTC())

	// Second call returns the same row without touching the watermark.
	again, created, err := repo.GetOrCreate(ctx, 100, ts.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, mapping.ID, again.ID)
	assert.Equal(t, ts, again.LastUpdatedTS.UTC())
}

func TestMappingRepo_LinkAndWatermark(t *testing.T) {
	repo := NewMappingRepository(newTestDB(t), 3)
	ctx := context.Background()
	ts := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	_, _, err := repo.GetOrCreate(ctx, 100, ts)
	require.NoError(t, err)

	require.NoError(t, repo.Link(ctx, 100, 7))
	require.NoError(t, repo.AdvanceWatermark(ctx, 100, ts.Add(time.Hour)))

	mapping, err := repo.Get(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, mapping.TopicID)
	assert.EqualValues(t, 7, *mapping.TopicID)
	assert.Equal(t, ts.Add(time.Hour), mapping.LastUpdatedTS.UTC())
}

func TestMappingRepo_WatermarkNeverRegresses(t *testing.T) {
	repo := NewMappingRepository(newTestDB(t), 3)
	ctx := context.Background()
	ts := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	_, _, err := repo.GetOrCreate(ctx, 100, ts)
	require.NoError(t, err)

	// Older and equal timestamps leave the watermark untouched.
	require.NoError(t, repo.AdvanceWatermark(ctx, 100, ts.Add(-time.Hour)))
	require.NoError(t, repo.AdvanceWatermark(ctx, 100, ts))

	mapping, err := repo.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, ts, mapping.LastUpdatedTS.UTC())

	require.NoError(t, repo.AdvanceWatermark(ctx, 100, ts.Add(time.Hour)))
	mapping, err = repo.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, ts.Add(time.Hour), mapping.LastUpdatedTS.UTC())
}

func TestMappingRepo_TimestampsStampedOnCreate(t *testing.T) {
	repo := NewMappingRepository(newTestDB(t), 3)

	mapping, _, err := repo.GetOrCreate(context.Background(), 100, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, mapping.CreatedAt.IsZero())
	assert.False(t, mapping.UpdatedAt.IsZero())
}

func TestMappingRepo_GetMissingReturnsNil(t *testing.T) {
	repo := NewMappingRepository(newTestDB(t), 3)

	mapping, err := repo.Get(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, mapping)
}

func TestMappingRepo_Delete(t *testing.T) {
	repo := NewMappingRepository(newTestDB(t), 3)
	ctx := context.Background()

	_, _, err := repo.GetOrCreate(ctx, 100, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, 100))

	mapping, err := repo.Get(ctx, 100)
	require.NoError(t, err)
	assert.Nil(t, mapping)
}

func TestMappingRepo_UniqueConstraintHolds(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.EventMapping{
		ExternalEventID: 100,
		LastUpdatedTS:   time.Now().UTC(),
	}).Error)
	err := db.WithContext(ctx).Create(&model.EventMapping{
		ExternalEventID: 100,
		LastUpdatedTS:   time.Now().UTC(),
	}).Error
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err), "driver error should be recognized as a unique violation")
}

func TestIsUniqueViolation(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"postgres duplicate", fmt.Errorf(`duplicate key value violates unique constraint "idx_event_mappings_external_event_id" (SQLSTATE 23505)`), true},
		{"sqlite unique", fmt.Errorf("UNIQUE constraint failed: event_mappings.external_event_id"), true},
		{"other", fmt.Errorf("connection refused"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, isUniqueViolation(tc.err))
		})
	}
}
