package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli"

	"github.com/beekhof/discord-event-sync/internal/discord"
	"github.com/beekhof/discord-event-sync/internal/sync"
)

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Debugf(f string, a ...any) { l.add("DEBUG", f, a...) }
func (l *recordingLogger) Infof(f string, a ...any)  { l.add("INFO", f, a...) }
func (l *recordingLogger) Warnf(f string, a ...any)  { l.add("WARN", f, a...) }
func (l *recordingLogger) Errorf(f string, a ...any) { l.add("ERROR", f, a...) }

func (l *recordingLogger) add(level, f string, a ...any) {
	l.lines = append(l.lines, level+" "+fmt.Sprintf(f, a...))
}

func TestScheduler_SkipsOverlappingPass(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	runs := 0
	run := func(context.Context) error {
		runs++
		close(started)
		<-release
		return nil
	}
	logger := &recordingLogger{}
	s := newScheduler(run, logger)

	done := make(chan bool)
	go func() { done <- s.trigger(context.Background()) }()
	<-started

	if s.trigger(context.Background()) {
		t.Error("Expected overlapping trigger to be skipped")
	}
	close(release)
	if !<-done {
		t.Error("Expected first trigger to run a pass")
	}
	if runs != 1 {
		t.Errorf("Expected 1 run, got %d", runs)
	}
	if len(logger.lines) != 1 || !strings.HasPrefix(logger.lines[0], "WARN") {
		t.Errorf("Expected a single warning, got %v", logger.lines)
	}
}

func TestScheduler_LogsPassError(t *testing.T) {
	logger := &recordingLogger{}
	s := newScheduler(func(context.Context) error { return fmt.Errorf("boom") }, logger)

	if !s.trigger(context.Background()) {
		t.Fatal("Expected trigger to run a pass")
	}
	if len(logger.lines) != 1 || logger.lines[0] != "ERROR boom" {
		t.Errorf("Expected error to be logged, got %v", logger.lines)
	}
}

func TestScheduler_WaitReturnsWhenIdle(t *testing.T) {
	s := newScheduler(func(context.Context) error { return nil }, &recordingLogger{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.wait(ctx); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestFlagOverrides(t *testing.T) {
	var got struct {
		guild      string
		source     string
		window     int
		maxResults int64
		interval   string
		journal    string
	}
	app := cli.App{
		Name:  appName,
		Flags: globalFlags,
		Action: func(c *cli.Context) error {
			o := flagOverrides(c)
			got.guild = o.DiscordGuildID
			got.source = o.CalendarSource
			got.window = o.SyncWindowDays
			got.maxResults = o.MaxResults
			got.interval = o.WriteInterval
			got.journal = o.JournalPath
			return nil
		},
	}
	args := []string{appName,
		"--guild-id", "123",
		"--calendar-source", "ics",
		"--window-days", "3",
		"--max-results", "25",
		"--write-interval", "250ms",
		"--journal", "/tmp/passes.db",
	}
	if err := app.Run(args); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got.guild != "123" {
		t.Errorf("Expected guild 123, got %q", got.guild)
	}
	if got.source != "ics" {
		t.Errorf("Expected source ics, got %q", got.source)
	}
	if got.window != 3 {
		t.Errorf("Expected window 3, got %d", got.window)
	}
	if got.maxResults != 25 {
		t.Errorf("Expected max results 25, got %d", got.maxResults)
	}
	if got.interval != "250ms" {
		t.Errorf("Expected interval 250ms, got %q", got.interval)
	}
	if got.journal != "/tmp/passes.db" {
		t.Errorf("Expected journal path, got %q", got.journal)
	}
}

func TestPrintChannels(t *testing.T) {
	channels := []discord.Channel{
		{ID: "1", Type: discord.ChannelTypeGuildVoice, Name: "lounge"},
		{ID: "2", Type: 0, Name: "general"},
		{ID: "3", Type: discord.ChannelTypeGuildStageVoice, Name: "town-hall"},
	}
	var buf bytes.Buffer
	printChannels(&buf, channels)
	out := buf.String()

	if !strings.Contains(out, `"Discord Voice: lounge"`) {
		t.Errorf("Expected voice location hint, got:\n%s", out)
	}
	if !strings.Contains(out, `"Discord Stage: town-hall"`) {
		t.Errorf("Expected stage location hint, got:\n%s", out)
	}
	if strings.Contains(out, "general") {
		t.Errorf("Expected text channel to be omitted, got:\n%s", out)
	}
}

func TestPrintChannels_None(t *testing.T) {
	var buf bytes.Buffer
	printChannels(&buf, nil)
	if !strings.Contains(buf.String(), "No voice or stage channels") {
		t.Errorf("Expected empty notice, got %q", buf.String())
	}
}

func TestPrintReports(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	reports := []sync.Report{
		{
			StartedAt:  start,
			FinishedAt: start.Add(2 * time.Second),
			State:      sync.StateDone,
			Actions: []sync.Action{
				{Kind: sync.ActionCreated, DiscordID: "d1", Name: "Town Hall"},
				{Kind: sync.ActionUnchanged, DiscordID: "d2", Name: "Standup"},
				{Kind: sync.ActionSkipped, Name: "Lunch", Reason: "no matching channel"},
			},
		},
		{
			StartedAt:  start,
			FinishedAt: start,
			State:      sync.StateFailed,
			Error:      "discord unavailable",
		},
	}
	var buf bytes.Buffer
	printReports(&buf, reports, true)
	out := buf.String()

	for _, want := range []string{"created=1", "unchanged=1", "skipped=1", "took=2s", "Town Hall", "(no matching channel)", "error: discord unavailable"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Standup") {
		t.Errorf("Expected unchanged actions to be omitted, got:\n%s", out)
	}
}
