package service

import (
	"context"

	"EventSync/internal/model"

	"github.com/sirupsen/logrus"
)

// BatchDispatcher routes each batch of a delivery to the synchronizer for
// its declared type and aggregates the per-item outcomes.
type BatchDispatcher struct {
	events    *EventSynchronizer
	attendees *AttendeeSynchronizer
	logger    *logrus.Logger
}

func NewBatchDispatcher(events *EventSynchronizer, attendees *AttendeeSynchronizer, logger *logrus.Logger) *BatchDispatcher {
	return &BatchDispatcher{events: events, attendees: attendees, logger: logger}
}

// Process walks the delivery's batches in order. Event batches report
// per-item errors; an attendee batch failure surfaces as a single error
// entry after whatever groups it synced. Results hold TopicResult and
// AttendeeResult values in processing order.
func (d *BatchDispatcher) Process(ctx context.Context, delivery model.Envelope) ([]interface{}, []ItemError) {
	var results []interface{}
	var errs []ItemError

	for _, batch := range delivery {
		switch batch.Type {
		case model.BatchEvent:
			topicResults, topicErrs := d.events.Process(ctx, batch.Events)
			for _, r := range topicResults {
				results = append(results, r)
			}
			errs = append(errs, topicErrs...)
		case model.BatchAttendee:
			attendeeResults, err := d.attendees.Process(ctx, batch.Attendees)
			for _, r := range attendeeResults {
				results = append(results, r)
			}
			if err != nil {
				errs = append(errs, ItemError{Error: err.Error()})
			}
		default:
			d.logger.Infof("skipping unhandled batch type %q", batch.Type)
		}
	}
	return results, errs
}
