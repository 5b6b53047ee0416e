package calendar

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"google.golang.org/api/calendar/v3"
)

const calendarQuery = `<?xml version="1.0" encoding="utf-8" ?>
<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop>
    <D:getetag/>
    <C:calendar-data/>
  </D:prop>
  <C:filter>
    <C:comp-filter name="VCALENDAR">
      <C:comp-filter name="VEVENT">%s</C:comp-filter>
    </C:comp-filter>
  </C:filter>
</C:calendar-query>`

// CalDAVClient reads events from a CalDAV calendar collection such as an
// iCloud calendar. It is read-only.
type CalDAVClient struct {
	httpClient  *http.Client
	calendarURL string
	username    string
	password    string
}

// NewCalDAVClient creates a client for the collection at calendarURL.
// For iCloud, password should be an app-specific password. A nil
// httpClient uses a client with a 30 second timeout.
func NewCalDAVClient(calendarURL, username, password string, httpClient *http.Client) *CalDAVClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &CalDAVClient{
		httpClient:  httpClient,
		calendarURL: calendarURL,
		username:    username,
		password:    password,
	}
}

// ListEvents runs a calendar-query REPORT for the query window and converts
// the returned objects like an ICS feed.
func (c *CalDAVClient) ListEvents(ctx context.Context, q Query) ([]*calendar.Event, error) {
	body, err := c.report(ctx, q)
	if err != nil {
		return nil, err
	}

	objects, err := parseMultistatus(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CalDAV response: %w", err)
	}

	var vevents []ical.Event
	for _, data := range objects {
		cal, err := ical.NewDecoder(strings.NewReader(data)).Decode()
		if err != nil {
			return nil, fmt.Errorf("failed to parse calendar object: %w", err)
		}
		vevents = append(vevents, cal.Events()...)
	}
	return convertEvents(vevents, q, c.calendarURL)
}

func (c *CalDAVClient) report(ctx context.Context, q Query) ([]byte, error) {
	timeRange := ""
	if !q.TimeMin.IsZero() && !q.TimeMax.IsZero() {
		timeRange = fmt.Sprintf(`<C:time-range start="%s" end="%s"/>`,
			q.TimeMin.UTC().Format(occurrenceLayout), q.TimeMax.UTC().Format(occurrenceLayout))
	}

	req, err := http.NewRequestWithContext(ctx, "REPORT", c.calendarURL,
		strings.NewReader(fmt.Sprintf(calendarQuery, timeRange)))
	if err != nil {
		return nil, fmt.Errorf("failed to build CalDAV request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	req.Header.Set("Depth", "1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMultiStatus && resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("failed to query calendar: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// parseMultistatus extracts the calendar-data of every response.
func parseMultistatus(body []byte) ([]string, error) {
	var ms struct {
		Responses []struct {
			Propstats []struct {
				CalendarData string `xml:"prop>calendar-data"`
			} `xml:"propstat"`
		} `xml:"response"`
	}
	if err := xml.Unmarshal(body, &ms); err != nil {
		return nil, err
	}

	var objects []string
	for _, r := range ms.Responses {
		for _, ps := range r.Propstats {
			if data := strings.TrimSpace(ps.CalendarData); data != "" {
				objects = append(objects, data)
			}
		}
	}
	return objects, nil
}
