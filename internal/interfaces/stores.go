package interfaces

import (
	"context"
	"time"

	"EventSync/internal/model"
)

// TopicParams carries the fields a create or revise writes to a topic.
type TopicParams struct {
	Title      string
	Raw        string
	Category   string
	Tags       []string
	CreatorID  uint64
	EditReason string
}

// TopicStore owns discussion topics.
type TopicStore interface {
	Create(ctx context.Context, params TopicParams) (*model.Topic, error)
	Revise(ctx context.Context, topicID uint64, params TopicParams) (*model.Topic, error)
	Destroy(ctx context.Context, topicID uint64) error
	Get(ctx context.Context, topicID uint64) (*model.Topic, error)
}

// IdentityResolver looks up internal identities by email.
type IdentityResolver interface {
	// FindByEmail returns (nil, nil) when no identity matches.
	FindByEmail(ctx context.Context, email string) (*model.TopicUser, error)
	// FindByEmails returns a map keyed by email; unmatched emails are absent.
	FindByEmails(ctx context.Context, emails []string) (map[string]*model.TopicUser, error)
	// System returns the designated system identity.
	System(ctx context.Context) (*model.TopicUser, error)
}

// InviteeStore applies attendee roster changes.
type InviteeStore interface {
	// BulkUpsert writes all rows in one statement, last write wins per
	// (topic_id, user_id), every row stamped with ts.
	BulkUpsert(ctx context.Context, rows []model.Invitee, ts time.Time) error
}

// MappingStore owns event mapping rows and their freshness watermarks.
type MappingStore interface {
	// GetOrCreate returns the row for externalID, creating it with ts as the
	// initial watermark on first sighting. created reports whether this call
	// inserted the row.
	GetOrCreate(ctx context.Context, externalID int64, ts time.Time) (mapping *model.EventMapping, created bool, err error)
	// Get returns (nil, nil) when no row exists.
	Get(ctx context.Context, externalID int64) (*model.EventMapping, error)
	AdvanceWatermark(ctx context.Context, externalID int64, ts time.Time) error
	// Link sets the topic id on the row. Set once, never reversed.
	Link(ctx context.Context, externalID int64, topicID uint64) error
	Delete(ctx context.Context, externalID int64) error
}

// DeliveryLog records webhook deliveries for audit.
type DeliveryLog interface {
	Record(ctx context.Context, payload []byte, outcome string, processed, errored int) error
}
