package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/option"
)

func TestGoogleClient_ListEvents(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/calendars/team@example.com/events") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"id":"c1","summary":"Town Hall","htmlLink":"https://cal/c1",
			"start":{"dateTime":"2024-01-01T10:00:00Z"},"end":{"dateTime":"2024-01-01T11:00:00Z"}}]}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := NewGoogleClient(ctx, "team@example.com",
		option.WithEndpoint(srv.URL+"/calendar/v3/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewGoogleClient() returned an error: %v", err)
	}

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	events, err := client.ListEvents(ctx, Query{
		TimeMin:      from,
		TimeMax:      from.AddDate(0, 0, 7),
		MaxResults:   100,
		SingleEvents: true,
		OrderBy:      "startTime",
	})
	if err != nil {
		t.Fatalf("ListEvents() returned an error: %v", err)
	}
	if len(events) != 1 || events[0].Id != "c1" || events[0].HtmlLink != "https://cal/c1" {
		t.Fatalf("Unexpected events: %+v", events)
	}

	want := map[string]string{
		"singleEvents": "true",
		"maxResults":   "100",
		"orderBy":      "startTime",
		"timeMin":      "2024-01-01T00:00:00Z",
		"timeMax":      "2024-01-08T00:00:00Z",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("Expected query %s=%s, got '%s'", k, v, gotQuery[k])
		}
	}
}

func TestGoogleClient_ListEventsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := NewGoogleClient(ctx, "primary",
		option.WithEndpoint(srv.URL+"/calendar/v3/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewGoogleClient() returned an error: %v", err)
	}

	if _, err := client.ListEvents(ctx, Query{SingleEvents: true}); err == nil {
		t.Fatal("Expected an error for a 403 response")
	}
}
