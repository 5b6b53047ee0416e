package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//Test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"LOCATION:Discord Voice: lobby\r\n" +
	"DTSTART:20240102T090000Z\r\n" +
	"DTEND:20240102T091500Z\r\n" +
	"RRULE:FREQ=DAILY;COUNT=3\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"RECURRENCE-ID:20240103T090000Z\r\n" +
	"SUMMARY:Standup (moved)\r\n" +
	"DTSTART:20240103T100000Z\r\n" +
	"DTEND:20240103T101500Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:townhall\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"SUMMARY:Town Hall\r\n" +
	"DESCRIPTION:Quarterly update\r\n" +
	"URL:https://example.com/townhall\r\n" +
	"DTSTART:20240101T100000Z\r\n" +
	"DTEND:20240101T110000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:holiday\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"SUMMARY:Holiday\r\n" +
	"DTSTART;VALUE=DATE:20240104\r\n" +
	"DTEND;VALUE=DATE:20240105\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:cancelled\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"SUMMARY:Cancelled\r\n" +
	"STATUS:CANCELLED\r\n" +
	"DTSTART:20240102T120000Z\r\n" +
	"DTEND:20240102T130000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:later\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"SUMMARY:Next month\r\n" +
	"DTSTART:20240201T100000Z\r\n" +
	"DTEND:20240201T110000Z\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func newFeedServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestICSClient_ListEvents(t *testing.T) {
	srv := newFeedServer(t, testFeed, http.StatusOK)
	client := NewICSClient(srv.URL+"/feed.ics", srv.Client())

	events, err := client.ListEvents(context.Background(), Query{
		TimeMin:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		TimeMax:      time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		SingleEvents: true,
		OrderBy:      "startTime",
	})
	if err != nil {
		t.Fatalf("ListEvents() returned an error: %v", err)
	}

	var ids []string
	for _, ev := range events {
		ids = append(ids, ev.Id)
	}
	want := []string{
		"townhall",
		"standup_20240102T090000Z",
		"standup_20240103T090000Z",
		"holiday",
		"standup_20240104T090000Z",
	}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Fatalf("Expected events %v, got %v", want, ids)
	}

	townhall := events[0]
	if townhall.HtmlLink != "https://example.com/townhall" {
		t.Errorf("Expected URL property as link, got '%s'", townhall.HtmlLink)
	}
	if townhall.Description != "Quarterly update" {
		t.Errorf("Expected description 'Quarterly update', got '%s'", townhall.Description)
	}
	if townhall.Start.DateTime != "2024-01-01T10:00:00Z" {
		t.Errorf("Unexpected start %s", townhall.Start.DateTime)
	}

	standup := events[1]
	if standup.Location != "Discord Voice: lobby" {
		t.Errorf("Expected location to be carried, got '%s'", standup.Location)
	}
	if standup.HtmlLink != srv.URL+"/feed.ics#standup/20240102T090000Z" {
		t.Errorf("Unexpected occurrence link '%s'", standup.HtmlLink)
	}

	moved := events[2]
	if moved.Summary != "Standup (moved)" || moved.Start.DateTime != "2024-01-03T10:00:00Z" {
		t.Errorf("Expected the override to replace the occurrence, got %+v", moved)
	}

	holiday := events[3]
	if holiday.Start.Date != "2024-01-04" || holiday.End.Date != "2024-01-05" || holiday.Start.DateTime != "" {
		t.Errorf("Expected date-only event, got start=%+v end=%+v", holiday.Start, holiday.End)
	}
}

func TestICSClient_MaxResults(t *testing.T) {
	srv := newFeedServer(t, testFeed, http.StatusOK)
	client := NewICSClient(srv.URL, srv.Client())

	events, err := client.ListEvents(context.Background(), Query{
		TimeMin:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		TimeMax:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		MaxResults:   2,
		SingleEvents: true,
	})
	if err != nil {
		t.Fatalf("ListEvents() returned an error: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("Expected 2 events, got %d", len(events))
	}
}

func TestICSClient_HTTPError(t *testing.T) {
	srv := newFeedServer(t, "nope", http.StatusNotFound)
	client := NewICSClient(srv.URL, srv.Client())

	_, err := client.ListEvents(context.Background(), Query{})
	if err == nil {
		t.Fatal("Expected an error for a 404 feed")
	}
	if !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("Expected error to mention HTTP 404, got %v", err)
	}
}

func TestOverlaps(t *testing.T) {
	q := Query{
		TimeMin: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		TimeMax: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"inside", q.TimeMin.Add(time.Hour), q.TimeMin.Add(2 * time.Hour), true},
		{"ends at window start", q.TimeMin.Add(-time.Hour), q.TimeMin, false},
		{"straddles start", q.TimeMin.Add(-time.Hour), q.TimeMin.Add(time.Hour), true},
		{"starts at window end", q.TimeMax, q.TimeMax.Add(time.Hour), false},
	}
	for _, tc := range cases {
		if got := overlaps(tc.start, tc.end, q); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
