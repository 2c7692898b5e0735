package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// BatchType is the closed set of batch kinds this service handles.
type BatchType string

const (
	BatchEvent    BatchType = "event"
	BatchAttendee BatchType = "attendee"
)

// Handled reports whether the batch type is one this service processes.
func (t BatchType) Handled() bool {
	return t == BatchEvent || t == BatchAttendee
}

// Envelope is one webhook delivery: an ordered list of typed batches.
type Envelope []Batch

// Batch is a single typed batch inside a delivery. Exactly one of Events or
// Attendees is populated, matching Type.
type Batch struct {
	Type      BatchType
	Events    []EventPayload
	Attendees []AttendeePayload
}

// UnmarshalJSON decodes {"type": ..., "data": [...]} and materializes the
// data slice for the declared type. Unhandled types keep an empty body.
func (b *Batch) UnmarshalJSON(data []byte) error {
	var head struct {
		Type BatchType         `json:"type"`
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	b.Type = head.Type
	switch head.Type {
	case BatchEvent:
		b.Events = make([]EventPayload, 0, len(head.Data))
		for _, raw := range head.Data {
			var ev EventPayload
			if err := json.Unmarshal(raw, &ev); err != nil {
				return fmt.Errorf("decode event payload: %w", err)
			}
			// Keep the untyped tree alongside the struct; tag rules query
			// arbitrary nested fields the struct does not model.
			if err := json.Unmarshal(raw, &ev.Raw); err != nil {
				return fmt.Errorf("decode event payload tree: %w", err)
			}
			b.Events = append(b.Events, ev)
		}
	case BatchAttendee:
		b.Attendees = make([]AttendeePayload, 0, len(head.Data))
		for _, raw := range head.Data {
			var at AttendeePayload
			if err := json.Unmarshal(raw, &at); err != nil {
				return fmt.Errorf("decode attendee payload: %w", err)
			}
			b.Attendees = append(b.Attendees, at)
		}
	}
	return nil
}

// EventPayload is one upstream event record. Raw holds the full decoded
// payload tree for tag-rule evaluation.
type EventPayload struct {
	ID               int64      `json:"id"`
	Status           string     `json:"status"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	DescriptionShort string     `json:"description_short"`
	StartDate        string     `json:"start_date"`
	EndDate          string     `json:"end_date"`
	UpdatedTS        string     `json:"updated_ts"`
	VenueName        string     `json:"venue_name"`
	VenueAddress     string     `json:"venue_address"`
	EventTypeTitle   string     `json:"event_type_title"`
	URL              string     `json:"url"`
	IsHidden         bool       `json:"is_hidden"`
	IsTest           bool       `json:"is_test"`
	Picture          *Picture   `json:"picture"`
	Chapter          *Chapter   `json:"chapter"`
	PublishedBy      *Publisher `json:"published_by"`

	Raw map[string]interface{} `json:"-"`
}

// Picture is the event image block.
type Picture struct {
	URL string `json:"url"`
}

// Chapter is the upstream community chapter the event belongs to.
type Chapter struct {
	ChapterLocation string `json:"chapter_location"`
}

// Publisher identifies who published the event upstream.
type Publisher struct {
	Email string `json:"email"`
}

// PictureURL returns the image URL, empty when no picture is attached.
func (e *EventPayload) PictureURL() string {
	if e.Picture == nil {
		return ""
	}
	return e.Picture.URL
}

// ChapterLocation returns the chapter location, empty when absent.
func (e *EventPayload) ChapterLocation() string {
	if e.Chapter == nil {
		return ""
	}
	return e.Chapter.ChapterLocation
}

// PublisherEmail returns the publisher email, empty when absent.
func (e *EventPayload) PublisherEmail() string {
	if e.PublishedBy == nil {
		return ""
	}
	return e.PublishedBy.Email
}

// Event statuses the synchronizer acts on. Anything else is skipped.
const (
	EventPublished = "Published"
	EventCanceled  = "Canceled"
)

// AttendeePayload is one upstream attendee record.
type AttendeePayload struct {
	EventID int64  `json:"event_id"`
	Email   string `json:"email"`
	Status  string `json:"status"`
}

// Attendee statuses accepted from upstream.
const (
	AttendeeRegistered = "registered"
	AttendeeDeleted    = "deleted"
)

// timeLayouts are the timestamp shapes the upstream platform is known to
// send. Tried in order.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseUpstreamTime parses an upstream timestamp string into UTC.
func ParseUpstreamTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
