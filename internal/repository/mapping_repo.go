package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"EventSync/internal/interfaces"
	"EventSync/internal/model"

	"gorm.io/gorm"
)

type MappingRepository struct {
	db      *gorm.DB
	retries int
}

// NewMappingRepository wraps db. retries bounds the create-or-get loop on
// unique-constraint conflicts; values below 1 are clamped to 1.
func NewMappingRepository(db *gorm.DB, retries int) interfaces.MappingStore {
	if retries < 1 {
		retries = 1
	}
	return &MappingRepository{db: db, retries: retries}
}

// GetOrCreate returns the mapping row for externalID, inserting it with ts
// as the initial watermark on first sighting. Two deliveries racing on the
// same first sighting resolve through the unique index: the loser retries
// the lookup a bounded number of times instead of looping forever.
func (r *MappingRepository) GetOrCreate(ctx context.Context, externalID int64, ts time.Time) (*model.EventMapping, bool, error) {
	var lastErr error
	for attempt := 0; attempt < r.retries; attempt++ {
		var mapping model.EventMapping
		err := r.db.WithContext(ctx).
			Where("external_event_id = ?", externalID).
			First(&mapping).Error
		if err == nil {
			return &mapping, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("lookup mapping %d: %w", externalID, err)
		}

		mapping = model.EventMapping{
			ExternalEventID: externalID,
			LastUpdatedTS:   ts,
		}
		err = r.db.WithContext(ctx).Create(&mapping).Error
		if err == nil {
			return &mapping, true, nil
		}
		if !isUniqueViolation(err) {
			return nil, false, fmt.Errorf("create mapping %d: %w", externalID, err)
		}
		// Another worker inserted the row between lookup and create.
		lastErr = err
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return nil, false, fmt.Errorf("create mapping %d: retries exhausted: %w", externalID, lastErr)
}

func (r *MappingRepository) Get(ctx context.Context, externalID int64) (*model.EventMapping, error) {
	var mapping model.EventMapping
	err := r.db.WithContext(ctx).
		Where("external_event_id = ?", externalID).
		First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup mapping %d: %w", externalID, err)
	}
	return &mapping, nil
}

// AdvanceWatermark moves the watermark forward only. The guard keeps the
// watermark monotonic when two deliveries race past the stale check.
func (r *MappingRepository) AdvanceWatermark(ctx context.Context, externalID int64, ts time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&model.EventMapping{}).
		Where("external_event_id = ? AND last_updated_ts < ?", externalID, ts).
		Updates(map[string]interface{}{
			"last_updated_ts": ts,
			"updated_at":      time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("advance watermark for %d: %w", externalID, err)
	}
	return nil
}

func (r *MappingRepository) Link(ctx context.Context, externalID int64, topicID uint64) error {
	err := r.db.WithContext(ctx).
		Model(&model.EventMapping{}).
		Where("external_event_id = ?", externalID).
		Updates(map[string]interface{}{
			"topic_id":   topicID,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("link mapping %d to topic %d: %w", externalID, topicID, err)
	}
	return nil
}

func (r *MappingRepository) Delete(ctx context.Context, externalID int64) error {
	err := r.db.WithContext(ctx).
		Where("external_event_id = ?", externalID).
		Delete(&model.EventMapping{}).Error
	if err != nil {
		return fmt.Errorf("delete mapping %d: %w", externalID, err)
	}
	return nil
}

// isUniqueViolation matches unique-constraint errors across Postgres and
// sqlite (used in tests).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
