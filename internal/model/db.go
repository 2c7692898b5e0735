package model

import (
	"time"

	"gorm.io/datatypes"
)

// EventMapping links an upstream event id to the topic created for it and
// carries the freshness watermark used to fence out stale deliveries.
type EventMapping struct {
	ID              uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	ExternalEventID int64     `gorm:"column:external_event_id;type:bigint;uniqueIndex;not null"`
	LastUpdatedTS   time.Time `gorm:"column:last_updated_ts;type:timestamp;not null"`
	TopicID         *uint64   `gorm:"column:topic_id;type:bigint;index"`
	CreatedAt       time.Time `gorm:"column:created_at;type:timestamp;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;type:timestamp;autoUpdateTime"`
}

// Topic is the discussion resource created for a published event.
type Topic struct {
	ID            uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	TopicUUID     string         `gorm:"column:topic_uuid;type:varchar(64);uniqueIndex;not null"`
	Slug          string         `gorm:"column:slug;type:varchar(256);not null"`
	Title         string         `gorm:"column:title;type:varchar(256);not null"`
	Raw           string         `gorm:"column:raw;type:text;not null"`
	Category      string         `gorm:"column:category;type:varchar(64);not null"`
	Tags          datatypes.JSON `gorm:"column:tags;type:jsonb"`
	CreatorID     uint64         `gorm:"column:creator_id;type:bigint;not null"`
	EditReason    string         `gorm:"column:edit_reason;type:varchar(128)"`
	RevisionCount int            `gorm:"column:revision_count;type:int;default:0"`
	CreatedAt     time.Time      `gorm:"column:created_at;type:timestamp;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;type:timestamp;autoUpdateTime"`
}

// TopicUser is an internal identity resolvable by email. The seeded system
// user owns topics whose publisher has no matching identity.
type TopicUser struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Username  string    `gorm:"column:username;type:varchar(64);not null"`
	Email     string    `gorm:"column:email;type:varchar(256);uniqueIndex;not null"`
	IsSystem  bool      `gorm:"column:is_system;type:boolean;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;autoUpdateTime"`
}

// Invitee is an attendee roster entry, unique per (topic, user). Upserts are
// last write wins.
type Invitee struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	TopicID   uint64    `gorm:"column:topic_id;type:bigint;not null;uniqueIndex:uk_invitee_topic_user"`
	UserID    uint64    `gorm:"column:user_id;type:bigint;not null;uniqueIndex:uk_invitee_topic_user"`
	Status    string    `gorm:"column:status;type:varchar(16);not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;not null"`
}

// WebhookDelivery is an audit row recorded per authenticated delivery.
type WebhookDelivery struct {
	ID        uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb;not null"`
	Outcome   string         `gorm:"column:outcome;type:varchar(16);not null"`
	Processed int            `gorm:"column:processed;type:int;default:0"`
	Errored   int            `gorm:"column:errored;type:int;default:0"`
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;autoCreateTime"`
}

// Invitee statuses.
const (
	InviteeGoing    = "going"
	InviteeNotGoing = "not_going"
)

func (EventMapping) TableName() string    { return "event_mappings" }
func (Topic) TableName() string           { return "topics" }
func (TopicUser) TableName() string       { return "topic_users" }
func (Invitee) TableName() string         { return "invitees" }
func (WebhookDelivery) TableName() string { return "webhook_deliveries" }
