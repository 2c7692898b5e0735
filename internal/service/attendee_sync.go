package service

import (
	"context"
	"fmt"
	"time"

	"EventSync/internal/interfaces"
	"EventSync/internal/model"

	"github.com/sirupsen/logrus"
)

// attendeeStatusMap translates upstream attendee statuses to invitee
// statuses. Anything outside this table is a fatal error for the whole call.
var attendeeStatusMap = map[string]string{
	model.AttendeeRegistered: model.InviteeGoing,
	model.AttendeeDeleted:    model.InviteeNotGoing,
}

// AttendeeSynchronizer reconciles attendee rosters onto topic invitees.
type AttendeeSynchronizer struct {
	mappings   interfaces.MappingStore
	topics     interfaces.TopicStore
	identities interfaces.IdentityResolver
	invitees   interfaces.InviteeStore
	logger     *logrus.Logger
	now        func() time.Time
}

func NewAttendeeSynchronizer(
	mappings interfaces.MappingStore,
	topics interfaces.TopicStore,
	identities interfaces.IdentityResolver,
	invitees interfaces.InviteeStore,
	logger *logrus.Logger,
) *AttendeeSynchronizer {
	return &AttendeeSynchronizer{
		mappings:   mappings,
		topics:     topics,
		identities: identities,
		invitees:   invitees,
		logger:     logger,
		now:        time.Now,
	}
}

// eventRoster folds a batch's attendee items for one event. Emails keeps
// first-seen order; a repeated email overwrites its status, so the last
// occurrence in the batch wins.
type eventRoster struct {
	emails   []string
	statuses map[string]string
}

func (r *eventRoster) set(email, status string) {
	if _, ok := r.statuses[email]; !ok {
		r.emails = append(r.emails, email)
	}
	r.statuses[email] = status
}

// Process groups the batch by event id and applies each group as one bulk
// upsert stamped with a single shared timestamp. Groups whose event has no
// linked topic are skipped with a log line. An unknown status aborts the
// whole call: the groups synced before the failure are still returned,
// alongside the error.
func (s *AttendeeSynchronizer) Process(ctx context.Context, attendees []model.AttendeePayload) ([]AttendeeResult, error) {
	var order []int64
	rosters := make(map[int64]*eventRoster)
	for _, attendee := range attendees {
		roster, ok := rosters[attendee.EventID]
		if !ok {
			roster = &eventRoster{statuses: make(map[string]string)}
			rosters[attendee.EventID] = roster
			order = append(order, attendee.EventID)
		}
		roster.set(attendee.Email, attendee.Status)
	}

	var results []AttendeeResult
	stamp := s.now().UTC()

	for _, eventID := range order {
		result, err := s.syncRoster(ctx, eventID, rosters[eventID], stamp)
		if err != nil {
			s.logger.WithError(err).Error("failed to process attendees")
			return results, err
		}
		if result != nil {
			results = append(results, *result)
		}
	}
	return results, nil
}

func (s *AttendeeSynchronizer) syncRoster(ctx context.Context, eventID int64, roster *eventRoster, stamp time.Time) (*AttendeeResult, error) {
	mapping, err := s.mappings.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if mapping == nil || mapping.TopicID == nil {
		s.logger.Warnf("no topic found for event %d", eventID)
		return nil, nil
	}

	topic, err := s.topics.Get(ctx, *mapping.TopicID)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		s.logger.Warnf("no topic record for topic %d", *mapping.TopicID)
		return nil, nil
	}

	users, err := s.identities.FindByEmails(ctx, roster.emails)
	if err != nil {
		return nil, err
	}

	rows := make([]model.Invitee, 0, len(users))
	for _, email := range roster.emails {
		user, ok := users[email]
		if !ok {
			// Emails with no matching identity are simply absent from the
			// synced set.
			continue
		}
		status, ok := attendeeStatusMap[roster.statuses[email]]
		if !ok {
			return nil, fmt.Errorf(
				"unknown attendee status %q, expected one of: %s, %s",
				roster.statuses[email], model.AttendeeRegistered, model.AttendeeDeleted)
		}
		rows = append(rows, model.Invitee{
			TopicID: topic.ID,
			UserID:  user.ID,
			Status:  status,
		})
	}

	if len(rows) > 0 {
		if err := s.invitees.BulkUpsert(ctx, rows, stamp); err != nil {
			return nil, err
		}
	}
	return &AttendeeResult{ExternalEventID: eventID, AttendeesSynced: len(rows)}, nil
}
