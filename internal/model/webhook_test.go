package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchUnmarshal_EventBatch(t *testing.T) {
	raw := `[{
		"type": "event",
		"data": [{
			"id": 42,
			"status": "Published",
			"title": "Meetup",
			"updated_ts": "2026-01-10T12:00:00Z",
			"published_by": {"email": "alice@example.com"},
			"chapter": {"chapter_location": "Berlin"},
			"custom_field": {"nested": true}
		}]
	}]`

	var delivery Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &delivery))
	require.Len(t, delivery, 1)

	batch := delivery[0]
	assert.Equal(t, BatchEvent, batch.Type)
	require.Len(t, batch.Events, 1)

	event := batch.Events[0]
	assert.EqualValues(t, 42, event.ID)
	assert.Equal(t, "Meetup", event.Title)
	assert.Equal(t, "alice@example.com", event.PublisherEmail())
	assert.Equal(t, "Berlin", event.ChapterLocation())

	// The untyped tree keeps fields the struct does not model.
	custom, ok := event.Raw["custom_field"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, custom["nested"])
}

func TestBatchUnmarshal_AttendeeBatch(t *testing.T) {
	raw := `[{
		"type": "attendee",
		"data": [
			{"event_id": 42, "email": "a@example.com", "status": "registered"},
			{"event_id": 42, "email": "b@example.com", "status": "deleted"}
		]
	}]`

	var delivery Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &delivery))
	require.Len(t, delivery, 1)
	assert.Equal(t, BatchAttendee, delivery[0].Type)
	require.Len(t, delivery[0].Attendees, 2)
	assert.Equal(t, AttendeeDeleted, delivery[0].Attendees[1].Status)
}

func TestBatchUnmarshal_UnhandledTypeKeepsEmptyBody(t *testing.T) {
	raw := `[{"type": "sponsor", "data": [{"anything": 1}]}]`

	var delivery Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &delivery))
	require.Len(t, delivery, 1)
	assert.False(t, delivery[0].Type.Handled())
	assert.Empty(t, delivery[0].Events)
	assert.Empty(t, delivery[0].Attendees)
}

func TestParseUpstreamTime(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{"rfc3339", "2026-01-10T12:00:00Z", time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)},
		{"offset normalized", "2026-01-10T04:00:00-08:00", time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)},
		{"space separated", "2026-01-10 12:00:00", time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)},
		{"date only", "2026-01-10", time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ts, err := ParseUpstreamTime(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ts)
		})
	}

	_, err := ParseUpstreamTime("not a time")
	assert.Error(t, err)
}
