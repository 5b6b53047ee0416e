package journal

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	evsync "github.com/beekhof/discord-event-sync/internal/sync"
)

func report(i int) *evsync.Report {
	start := time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC)
	return &evsync.Report{
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		State:      evsync.StateDone,
		Actions: []evsync.Action{
			{Kind: evsync.ActionCreated, DiscordID: fmt.Sprintf("%d", i), CalendarID: "c1", Name: "Town Hall"},
		},
	}
}

func TestJournal_AppendRecent(t *testing.T) {
	j := New(Config{Path: filepath.Join(t.TempDir(), "journal.db")})

	for i := 0; i < 3; i++ {
		if err := j.Append(report(i)); err != nil {
			t.Fatalf("Append() returned an error: %v", err)
		}
	}

	got, err := j.Recent(2)
	if err != nil {
		t.Fatalf("Recent() returned an error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 reports, got %d", len(got))
	}
	if got[0].Actions[0].DiscordID != "2" || got[1].Actions[0].DiscordID != "1" {
		t.Errorf("Expected newest first, got %s then %s", got[0].Actions[0].DiscordID, got[1].Actions[0].DiscordID)
	}
	if !got[0].StartedAt.Equal(report(2).StartedAt) {
		t.Errorf("Expected StartedAt %v, got %v", report(2).StartedAt, got[0].StartedAt)
	}
	if got[0].State != evsync.StateDone {
		t.Errorf("Expected state %s, got %s", evsync.StateDone, got[0].State)
	}
}

func TestJournal_Prunes(t *testing.T) {
	j := New(Config{Path: filepath.Join(t.TempDir(), "journal.db"), Keep: 2})

	for i := 0; i < 5; i++ {
		if err := j.Append(report(i)); err != nil {
			t.Fatalf("Append() returned an error: %v", err)
		}
	}

	got, err := j.Recent(10)
	if err != nil {
		t.Fatalf("Recent() returned an error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 reports after pruning, got %d", len(got))
	}
	if got[1].Actions[0].DiscordID != "3" {
		t.Errorf("Expected the oldest kept report to be 3, got %s", got[1].Actions[0].DiscordID)
	}
}

func TestJournal_RecentEmpty(t *testing.T) {
	j := New(Config{Path: filepath.Join(t.TempDir(), "journal.db")})

	got, err := j.Recent(5)
	if err != nil {
		t.Fatalf("Recent() returned an error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected no reports, got %d", len(got))
	}
}

func TestJournal_RecentNonPositive(t *testing.T) {
	j := New(Config{Path: filepath.Join(t.TempDir(), "journal.db")})
	if err := j.Append(report(0)); err != nil {
		t.Fatalf("Append() returned an error: %v", err)
	}

	for _, n := range []int{0, -1} {
		got, err := j.Recent(n)
		if err != nil {
			t.Fatalf("Recent(%d) returned an error: %v", n, err)
		}
		if len(got) != 0 {
			t.Errorf("Expected no reports for n=%d, got %d", n, len(got))
		}
	}
}
