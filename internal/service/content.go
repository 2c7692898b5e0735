package service

import (
	"fmt"
	"strings"
	"time"

	"EventSync/internal/model"

	"github.com/sirupsen/logrus"
)

// ContentComposer renders a topic body from an event payload. Composition is
// deterministic: the same payload always yields the same body.
type ContentComposer struct {
	logger *logrus.Logger
}

func NewContentComposer(logger *logrus.Logger) *ContentComposer {
	return &ContentComposer{logger: logger}
}

// Compose builds the full topic body. When the payload carries nothing
// renderable it falls back to a minimal body (short description plus event
// link); when even that is empty the original composition error is returned.
func (c *ContentComposer) Compose(event *model.EventPayload) (string, error) {
	body, err := c.composeFull(event)
	if err == nil {
		return body, nil
	}

	fallback := c.composeFallback(event)
	if fallback != "" {
		c.logger.Warnf("using fallback content for event %d", event.ID)
		return fallback, nil
	}
	c.logger.Errorf("fallback content also empty for event %d", event.ID)
	return "", err
}

func (c *ContentComposer) composeFull(event *model.EventPayload) (string, error) {
	var parts []string
	sections := 0

	startDate := c.parseDate(event, event.StartDate)
	endDate := c.parseDate(event, event.EndDate)

	if url := event.PictureURL(); url != "" {
		parts = append(parts,
			"<div data-event-image>",
			"",
			fmt.Sprintf("![%s](%s)", event.Title, url),
			"",
			"</div>",
			"")
		sections++
	}

	if event.Description != "" {
		parts = append(parts, event.Description, "")
		sections++
	} else if event.DescriptionShort != "" {
		parts = append(parts, event.DescriptionShort, "")
		sections++
	}

	parts = append(parts, "## Details", "")

	if event.VenueName != "" || event.VenueAddress != "" {
		var location []string
		if event.VenueName != "" {
			location = append(location, event.VenueName)
		}
		if event.VenueAddress != "" {
			location = append(location, event.VenueAddress)
		}
		parts = append(parts, "**Where:** "+strings.Join(location, " - "))
		sections++
	}

	if event.EventTypeTitle != "" {
		parts = append(parts, "**Type:** "+event.EventTypeTitle)
		sections++
	}

	if loc := event.ChapterLocation(); loc != "" {
		parts = append(parts, "**Chapter:** "+loc)
		sections++
	}

	if event.Status != model.EventCanceled {
		if event.URL != "" {
			parts = append(parts, "", fmt.Sprintf("[View event and RSVP](%s)", event.URL))
			sections++
		}

		if startDate != nil || endDate != nil {
			var startStr, endStr string
			if startDate != nil {
				startStr = startDate.Format("2006-01-02 15:04")
			}
			if endDate != nil {
				endStr = endDate.Format("2006-01-02 15:04")
			}
			parts = append(parts, fmt.Sprintf(
				`<div class="topic-event" data-start=%q data-end=%q data-timezone="UTC" data-status="public"></div>`,
				startStr, endStr), "")
			sections++
		}
	}

	if sections == 0 {
		return "", fmt.Errorf("event %d has no renderable content", event.ID)
	}
	return strings.Join(parts, "\n"), nil
}

// composeFallback builds the minimal body: short description plus a link to
// the event on the upstream platform. Empty when neither is present.
func (c *ContentComposer) composeFallback(event *model.EventPayload) string {
	var parts []string
	if event.DescriptionShort != "" {
		parts = append(parts, event.DescriptionShort)
	}
	if event.URL != "" {
		parts = append(parts, fmt.Sprintf("[View event](%s)", event.URL))
	}
	return strings.Join(parts, "\n\n")
}

// parseDate treats malformed dates as absent; composition never aborts on
// them.
func (c *ContentComposer) parseDate(event *model.EventPayload, raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := model.ParseUpstreamTime(raw)
	if err != nil {
		c.logger.Warnf("invalid date %q for event %d: %v", raw, event.ID, err)
		return nil
	}
	return &t
}
