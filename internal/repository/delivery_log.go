package repository

import (
	"context"
	"fmt"

	"EventSync/internal/interfaces"
	"EventSync/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Delivery outcomes recorded in the audit log.
const (
	DeliveryProcessed = "processed"
	DeliveryPartial   = "partial"
	DeliveryFailed    = "failed"
	DeliveryStale     = "stale"
)

type DeliveryLogRepository struct {
	db *gorm.DB
}

func NewDeliveryLogRepository(db *gorm.DB) interfaces.DeliveryLog {
	return &DeliveryLogRepository{db: db}
}

func (r *DeliveryLogRepository) Record(ctx context.Context, payload []byte, outcome string, processed, errored int) error {
	row := model.WebhookDelivery{
		Payload:   datatypes.JSON(payload),
		Outcome:   outcome,
		Processed: processed,
		Errored:   errored,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}
