package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"google.golang.org/api/calendar/v3"
)

const (
	dateLayout       = "2006-01-02"
	occurrenceLayout = "20060102T150405Z"
)

// ICSClient reads events from a published iCalendar feed and converts them
// to *calendar.Event so they flow through the same mapping as Google events.
type ICSClient struct {
	httpClient *http.Client
	feedURL    string
}

// NewICSClient creates a client for feedURL. A nil httpClient uses a client
// with a 30 second timeout.
func NewICSClient(feedURL string, httpClient *http.Client) *ICSClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ICSClient{httpClient: httpClient, feedURL: feedURL}
}

// ListEvents fetches the feed and returns the events overlapping the query
// window, ordered by start time. Recurring events are expanded into
// occurrences when q.SingleEvents is set; otherwise only their first
// occurrence is considered.
func (c *ICSClient) ListEvents(ctx context.Context, q Query) ([]*calendar.Event, error) {
	cal, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return convertEvents(cal.Events(), q, c.feedURL)
}

// convertEvents turns VEVENTs into the events overlapping the query window,
// ordered by start time. base is used to build links for events without a
// URL property.
func convertEvents(vevents []ical.Event, q Query, base string) ([]*calendar.Event, error) {
	// Overrides replace single occurrences of a recurring event.
	overridden := make(map[string]bool)
	for _, ev := range vevents {
		if rid := ev.Props.Get("RECURRENCE-ID"); rid != nil {
			if t, err := rid.DateTime(time.UTC); err == nil {
				overridden[occurrenceID(propText(ev.Props, ical.PropUID), t)] = true
			}
		}
	}

	var events []*calendar.Event
	for _, ev := range vevents {
		if strings.EqualFold(propText(ev.Props, "STATUS"), "CANCELLED") {
			continue
		}
		converted, err := expand(ev, q, overridden, base)
		if err != nil {
			return nil, err
		}
		events = append(events, converted...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return eventStart(events[i]).Before(eventStart(events[j]))
	})
	if q.MaxResults > 0 && int64(len(events)) > q.MaxResults {
		events = events[:q.MaxResults]
	}
	return events, nil
}

func (c *ICSClient) fetch(ctx context.Context) (*ical.Calendar, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build ICS request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ICS feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("failed to fetch ICS feed: HTTP %d", resp.StatusCode)
	}

	cal, err := ical.NewDecoder(resp.Body).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to parse ICS feed: %w", err)
	}
	return cal, nil
}

// expand turns one VEVENT into the events it contributes to the window.
func expand(ev ical.Event, q Query, overridden map[string]bool, base string) ([]*calendar.Event, error) {
	start, err := ev.DateTimeStart(time.UTC)
	if err != nil || start.IsZero() {
		// Unusable entries are dropped here; the mapper would skip them anyway.
		return nil, nil
	}
	end, err := ev.DateTimeEnd(time.UTC)
	if err != nil || end.IsZero() {
		end = start
	}
	allDay := isDate(ev.Props.Get(ical.PropDateTimeStart))
	uid := propText(ev.Props, ical.PropUID)

	var set interface {
		Between(after, before time.Time, inc bool) []time.Time
	}
	if q.SingleEvents && ev.Props.Get("RECURRENCE-ID") == nil {
		rs, err := ev.RecurrenceSet(time.UTC)
		if err != nil {
			return nil, fmt.Errorf("failed to parse recurrence of %s: %w", uid, err)
		}
		if rs != nil {
			set = rs
		}
	}

	if set == nil {
		if !overlaps(start, end, q) {
			return nil, nil
		}
		id, link := uid, permalink(base, ev, uid, "")
		if rid := ev.Props.Get("RECURRENCE-ID"); rid != nil {
			if t, err := rid.DateTime(time.UTC); err == nil {
				id = occurrenceID(uid, t)
				link = permalink(base, ev, uid, t.UTC().Format(occurrenceLayout))
			}
		}
		return []*calendar.Event{toCalendarEvent(ev, id, link, start, end, allDay)}, nil
	}

	duration := end.Sub(start)
	var events []*calendar.Event
	// Occurrences that started before the window may still overlap it.
	for _, occ := range set.Between(q.TimeMin.Add(-duration), q.TimeMax, true) {
		occEnd := occ.Add(duration)
		if !overlaps(occ, occEnd, q) {
			continue
		}
		id := occurrenceID(uid, occ)
		if overridden[id] {
			continue
		}
		link := permalink(base, ev, uid, occ.UTC().Format(occurrenceLayout))
		events = append(events, toCalendarEvent(ev, id, link, occ, occEnd, allDay))
	}
	return events, nil
}

// permalink returns a stable link for an event: its URL property when set,
// otherwise base with the UID as fragment.
func permalink(base string, ev ical.Event, uid, occurrence string) string {
	if u := propText(ev.Props, "URL"); u != "" {
		if occurrence != "" {
			return u + "#" + occurrence
		}
		return u
	}
	if uid == "" {
		return ""
	}
	link := base + "#" + uid
	if occurrence != "" {
		link += "/" + occurrence
	}
	return link
}

func toCalendarEvent(ev ical.Event, id, link string, start, end time.Time, allDay bool) *calendar.Event {
	event := &calendar.Event{
		Id:          id,
		Summary:     propText(ev.Props, ical.PropSummary),
		Description: propText(ev.Props, ical.PropDescription),
		Location:    propText(ev.Props, ical.PropLocation),
		HtmlLink:    link,
	}
	if allDay {
		event.Start = &calendar.EventDateTime{Date: start.Format(dateLayout)}
		event.End = &calendar.EventDateTime{Date: end.Format(dateLayout)}
	} else {
		event.Start = &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)}
		event.End = &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)}
	}
	return event
}

func occurrenceID(uid string, t time.Time) string {
	return uid + "_" + t.UTC().Format(occurrenceLayout)
}

// overlaps mirrors the Google API semantics: timeMin bounds the end, timeMax
// bounds the start.
func overlaps(start, end time.Time, q Query) bool {
	if !q.TimeMax.IsZero() && !start.Before(q.TimeMax) {
		return false
	}
	if !q.TimeMin.IsZero() && !end.After(q.TimeMin) {
		return false
	}
	return true
}

func isDate(prop *ical.Prop) bool {
	return prop != nil && prop.Params.Get("VALUE") == "DATE"
}

func propText(props ical.Props, name string) string {
	prop := props.Get(name)
	if prop == nil {
		return ""
	}
	text, err := prop.Text()
	if err != nil {
		return prop.Value
	}
	return text
}

func eventStart(ev *calendar.Event) time.Time {
	if ev.Start == nil {
		return time.Time{}
	}
	if ev.Start.DateTime != "" {
		t, _ := time.Parse(time.RFC3339, ev.Start.DateTime)
		return t
	}
	t, _ := time.Parse(dateLayout, ev.Start.Date)
	return t
}
