package service

import (
	"context"
	"fmt"
	"time"

	"EventSync/internal/config"
	"EventSync/internal/interfaces"
	"EventSync/internal/model"

	"github.com/sirupsen/logrus"
)

// TopicResult is the per-item outcome reported for a synchronized event.
type TopicResult struct {
	TopicID         uint64 `json:"topic_id"`
	TopicURL        string `json:"topic_url"`
	ExternalEventID int64  `json:"external_event_id"`
	Status          string `json:"status,omitempty"`
}

// AttendeeResult is the per-group outcome reported for a roster sync.
type AttendeeResult struct {
	ExternalEventID int64 `json:"external_event_id"`
	AttendeesSynced int   `json:"attendees_synced"`
}

// ItemError is one failed item, reported alongside the successes.
type ItemError struct {
	Error           string `json:"error"`
	ExternalEventID int64  `json:"external_event_id,omitempty"`
}

// Edit reasons stamped on topic revisions.
const (
	editReasonUpdated  = "Updated from webhook"
	editReasonCanceled = "Canceled from webhook"
)

// EventSynchronizer maps upstream event statuses onto topic lifecycle
// operations: create, revise, cancel, delete.
type EventSynchronizer struct {
	mappings   interfaces.MappingStore
	topics     interfaces.TopicStore
	identities interfaces.IdentityResolver
	composer   *ContentComposer
	tagEngine  *TagRuleEngine
	cfg        *config.Config
	logger     *logrus.Logger
}

func NewEventSynchronizer(
	mappings interfaces.MappingStore,
	topics interfaces.TopicStore,
	identities interfaces.IdentityResolver,
	composer *ContentComposer,
	tagEngine *TagRuleEngine,
	cfg *config.Config,
	logger *logrus.Logger,
) *EventSynchronizer {
	return &EventSynchronizer{
		mappings:   mappings,
		topics:     topics,
		identities: identities,
		composer:   composer,
		tagEngine:  tagEngine,
		cfg:        cfg,
		logger:     logger,
	}
}

// Process runs the whole batch, isolating failures per item: one failing
// event becomes an error entry and never aborts its siblings. Errors are
// appended after the successes, each list in input order.
func (s *EventSynchronizer) Process(ctx context.Context, events []model.EventPayload) ([]TopicResult, []ItemError) {
	var results []TopicResult
	var errs []ItemError

	for i := range events {
		event := &events[i]
		switch event.Status {
		case model.EventCanceled:
			result, err := s.cancelEvent(ctx, event)
			if err != nil {
				s.logger.WithError(err).Errorf("failed to cancel event %d", event.ID)
				errs = append(errs, ItemError{Error: err.Error(), ExternalEventID: event.ID})
				continue
			}
			if result != nil {
				results = append(results, *result)
			}
		case model.EventPublished:
			if event.IsHidden || event.IsTest {
				if err := s.deleteEvent(ctx, event.ID); err != nil {
					s.logger.WithError(err).Errorf("failed to remove hidden/test event %d", event.ID)
					errs = append(errs, ItemError{Error: err.Error(), ExternalEventID: event.ID})
					continue
				}
				s.logger.Infof("skipping hidden/test event %d, removed topic if it existed", event.ID)
				continue
			}
			result, err := s.createOrUpdateEvent(ctx, event)
			if err != nil {
				s.logger.WithError(err).Errorf("failed to sync event %d", event.ID)
				errs = append(errs, ItemError{Error: err.Error(), ExternalEventID: event.ID})
				continue
			}
			results = append(results, *result)
		default:
			s.logger.Infof("skipping event %d with status %q", event.ID, event.Status)
		}
	}

	return results, errs
}

// createOrUpdateEvent revises the linked topic in place, or creates a new
// one under the publisher's identity and links it.
func (s *EventSynchronizer) createOrUpdateEvent(ctx context.Context, event *model.EventPayload) (*TopicResult, error) {
	ts, err := s.updatedTS(event)
	if err != nil {
		return nil, err
	}
	mapping, _, err := s.mappings.GetOrCreate(ctx, event.ID, ts)
	if err != nil {
		return nil, err
	}

	raw, err := s.composer.Compose(event)
	if err != nil {
		return nil, err
	}
	tags, err := s.tagEngine.ExtractTags(s.cfg.Webhook.TagRules, event.Raw)
	if err != nil {
		return nil, err
	}

	params := interfaces.TopicParams{
		Title:    event.Title,
		Raw:      raw,
		Category: s.category(),
		Tags:     tags,
	}

	var topic *model.Topic
	if mapping.TopicID != nil {
		params.EditReason = editReasonUpdated
		topic, err = s.topics.Revise(ctx, *mapping.TopicID, params)
		if err != nil {
			return nil, err
		}
	} else {
		creator, err := s.resolvePublisher(ctx, event)
		if err != nil {
			return nil, err
		}
		params.CreatorID = creator.ID
		topic, err = s.topics.Create(ctx, params)
		if err != nil {
			return nil, err
		}
		if err := s.mappings.Link(ctx, event.ID, topic.ID); err != nil {
			return nil, err
		}
	}

	return s.buildResult(topic, event), nil
}

// cancelEvent revises the linked topic with cancellation content. A cancel
// for an event that never produced a topic only removes the fencing
// placeholder row; that is not an error.
func (s *EventSynchronizer) cancelEvent(ctx context.Context, event *model.EventPayload) (*TopicResult, error) {
	mapping, err := s.mappings.Get(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	if mapping == nil || mapping.TopicID == nil {
		if mapping != nil {
			if err := s.mappings.Delete(ctx, event.ID); err != nil {
				return nil, err
			}
		}
		s.logger.Warnf("cannot cancel non-existent event %d", event.ID)
		return nil, nil
	}

	raw, err := s.composer.Compose(event)
	if err != nil {
		return nil, err
	}
	tags, err := s.tagEngine.ExtractTags(s.cfg.Webhook.TagRules, event.Raw)
	if err != nil {
		return nil, err
	}

	topic, err := s.topics.Revise(ctx, *mapping.TopicID, interfaces.TopicParams{
		Title:      event.Title,
		Raw:        raw,
		Tags:       tags,
		EditReason: editReasonCanceled,
	})
	if err != nil {
		return nil, err
	}
	return s.buildResult(topic, event), nil
}

// deleteEvent removes the topic and mapping row for a hidden or test event.
func (s *EventSynchronizer) deleteEvent(ctx context.Context, externalID int64) error {
	mapping, err := s.mappings.Get(ctx, externalID)
	if err != nil {
		return err
	}
	if mapping == nil {
		return nil
	}
	if mapping.TopicID != nil {
		// Destroy cascades invitees and the mapping row.
		if err := s.topics.Destroy(ctx, *mapping.TopicID); err != nil {
			return err
		}
		s.logger.Infof("deleted topic %d for hidden event %d", *mapping.TopicID, externalID)
		return nil
	}
	return s.mappings.Delete(ctx, externalID)
}

// resolvePublisher finds the identity for the event's publisher email,
// falling back to the system identity when the email is empty or unknown.
func (s *EventSynchronizer) resolvePublisher(ctx context.Context, event *model.EventPayload) (*model.TopicUser, error) {
	if email := event.PublisherEmail(); email != "" {
		user, err := s.identities.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
		s.logger.Infof("user not found for email %s, using system", email)
	}
	return s.identities.System(ctx)
}

func (s *EventSynchronizer) category() string {
	if s.cfg.Webhook.Category != "" {
		return s.cfg.Webhook.Category
	}
	s.logger.Warn("no category configured, using default")
	return s.cfg.Webhook.DefaultCategory
}

// updatedTS parses the item's upstream timestamp for the watermark seed. An
// unusable value fails the item; seeding a synthetic timestamp would fence
// out the event's genuine timestamp on a later delivery.
func (s *EventSynchronizer) updatedTS(event *model.EventPayload) (time.Time, error) {
	ts, err := model.ParseUpstreamTime(event.UpdatedTS)
	if err != nil {
		return time.Time{}, fmt.Errorf("event %d has unusable updated_ts %q: %v", event.ID, event.UpdatedTS, err)
	}
	return ts, nil
}

func (s *EventSynchronizer) buildResult(topic *model.Topic, event *model.EventPayload) *TopicResult {
	return &TopicResult{
		TopicID:         topic.ID,
		TopicURL:        fmt.Sprintf("%s/t/%s/%d", s.cfg.Server.BaseURL, topic.Slug, topic.ID),
		ExternalEventID: event.ID,
		Status:          event.Status,
	}
}
