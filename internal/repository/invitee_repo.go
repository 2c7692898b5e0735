package repository

import (
	"context"
	"fmt"
	"time"

	"EventSync/internal/interfaces"
	"EventSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InviteeRepository struct {
	db *gorm.DB
}

func NewInviteeRepository(db *gorm.DB) interfaces.InviteeStore {
	return &InviteeRepository{db: db}
}

// BulkUpsert writes all roster rows in one statement. Conflicts on
// (topic_id, user_id) update status and updated_at, so the last write in
// input order wins. Every row carries the same timestamp.
func (r *InviteeRepository) BulkUpsert(ctx context.Context, rows []model.Invitee, ts time.Time) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].CreatedAt = ts
		rows[i].UpdatedAt = ts
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "topic_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert %d invitees: %w", len(rows), err)
	}
	return nil
}
