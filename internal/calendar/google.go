package calendar

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Query describes which events to read from a calendar.
type Query struct {
	TimeMin    time.Time
	TimeMax    time.Time
	MaxResults int64
	// SingleEvents expands recurring events into instances.
	SingleEvents bool
	// OrderBy is "startTime" or "updated". startTime requires SingleEvents.
	OrderBy string
}

// GoogleClient reads events from one Google Calendar.
type GoogleClient struct {
	service    *calendar.Service
	calendarID string
}

// NewGoogleClient creates a read-only client for calendarID. Authentication
// comes from opts (API key, service account or an OAuth HTTP client).
func NewGoogleClient(ctx context.Context, calendarID string, opts ...option.ClientOption) (*GoogleClient, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &GoogleClient{service: service, calendarID: calendarID}, nil
}

// ListEvents returns the first page of events matching q.
func (c *GoogleClient) ListEvents(ctx context.Context, q Query) ([]*calendar.Event, error) {
	call := c.service.Events.List(c.calendarID).
		TimeMin(q.TimeMin.Format(time.RFC3339)).
		TimeMax(q.TimeMax.Format(time.RFC3339)).
		SingleEvents(q.SingleEvents).
		Context(ctx)
	if q.MaxResults > 0 {
		call = call.MaxResults(q.MaxResults)
	}
	if q.OrderBy != "" {
		call = call.OrderBy(q.OrderBy)
	}

	eventsList, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events of calendar %s: %w", c.calendarID, err)
	}

	return eventsList.Items, nil
}
