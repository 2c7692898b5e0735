package service

import (
	"context"
	"errors"

	"EventSync/internal/interfaces"
	"EventSync/internal/model"

	"github.com/sirupsen/logrus"
)

// ErrStaleDelivery marks a delivery carrying at least one event item whose
// update timestamp is not newer than the stored watermark. The whole
// delivery is rejected; watermarks already advanced for earlier items in
// the same pass stay advanced.
var ErrStaleDelivery = errors.New("stale or duplicate event delivery")

// FreshnessGate fences out replayed and reordered event deliveries before
// any topic mutation happens.
type FreshnessGate struct {
	mappings interfaces.MappingStore
	logger   *logrus.Logger
}

func NewFreshnessGate(mappings interfaces.MappingStore, logger *logrus.Logger) *FreshnessGate {
	return &FreshnessGate{mappings: mappings, logger: logger}
}

// Check walks every item of the delivery's event batches. The first stale
// item fails the whole delivery with ErrStaleDelivery. Fresh items on
// pre-existing rows advance the watermark immediately, so the ordering
// fence holds even if the synchronizer later fails. Items without a usable
// id or timestamp are skipped from gating. Store errors are logged and do
// not block the delivery.
func (g *FreshnessGate) Check(ctx context.Context, delivery model.Envelope) error {
	for _, batch := range delivery {
		if batch.Type != model.BatchEvent {
			continue
		}
		for i := range batch.Events {
			event := &batch.Events[i]
			if event.ID == 0 || event.UpdatedTS == "" {
				continue
			}

			ts, err := model.ParseUpstreamTime(event.UpdatedTS)
			if err != nil {
				g.logger.Warnf("invalid updated_ts for event %d: %v", event.ID, err)
				continue
			}

			mapping, created, err := g.mappings.GetOrCreate(ctx, event.ID, ts)
			if err != nil {
				g.logger.WithError(err).Errorf("freshness check for event %d failed", event.ID)
				continue
			}
			if created {
				continue
			}

			if mapping.TopicID != nil && !mapping.LastUpdatedTS.Before(ts) {
				g.logger.Infof("skipping outdated event %d (timestamp: %s)", event.ID, ts)
				return ErrStaleDelivery
			}
			if err := g.mappings.AdvanceWatermark(ctx, event.ID, ts); err != nil {
				g.logger.WithError(err).Errorf("advance watermark for event %d failed", event.ID)
			}
		}
	}
	return nil
}
