package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	calclient "github.com/beekhof/discord-event-sync/internal/calendar"
	"github.com/beekhof/discord-event-sync/internal/discord"

	"google.golang.org/api/calendar/v3"
)

// ChannelLister lists the guild's channels.
type ChannelLister interface {
	ListChannels(ctx context.Context) ([]discord.Channel, error)
}

// CalendarLister lists calendar events in a time window.
type CalendarLister interface {
	ListEvents(ctx context.Context, q calclient.Query) ([]*calendar.Event, error)
}

// EventClient reads and writes the guild's scheduled events.
type EventClient interface {
	ListScheduledEvents(ctx context.Context) ([]discord.ScheduledEvent, error)
	CreateScheduledEvent(ctx context.Context, payload discord.EventPayload) (discord.ScheduledEvent, error)
	UpdateScheduledEvent(ctx context.Context, id string, payload discord.EventPayload) (discord.ScheduledEvent, error)
	DeleteScheduledEvent(ctx context.Context, id string) error
}

// Pacer is waited on after every write.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Logger is the subset of a leveled logger the Syncer writes to.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

// Options configures a sync pass.
type Options struct {
	// ApplicationID identifies the bot. Only events it created are
	// updated or deleted.
	ApplicationID string
	// Window is how far ahead of now calendar events are read.
	Window time.Duration
	// MaxResults caps the number of calendar events read per pass.
	MaxResults int64
	// DryRun computes the actions of a pass without writing to Discord.
	DryRun bool
}

// State is the phase a pass is in.
type State string

const (
	StateFetchChannels           State = "fetch-channels"
	StateFetchCalendarEvents     State = "fetch-calendar-events"
	StateFetchOwnedDiscordEvents State = "fetch-owned-discord-events"
	StateMapAndMatch             State = "map-and-match"
	StateApply                   State = "apply"
	StateDone                    State = "done"
	StateFailed                  State = "failed"
)

// ActionKind is what a pass did with one event.
type ActionKind string

const (
	ActionCreated   ActionKind = "created"
	ActionUpdated   ActionKind = "updated"
	ActionDeleted   ActionKind = "deleted"
	ActionUnchanged ActionKind = "unchanged"
	ActionSkipped   ActionKind = "skipped"
)

// Action records the outcome for a single calendar or Discord event.
type Action struct {
	Kind       ActionKind `json:"kind"`
	DiscordID  string     `json:"discord_id,omitempty"`
	CalendarID string     `json:"calendar_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// Report summarizes a pass.
type Report struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	State      State     `json:"state"`
	DryRun     bool      `json:"dry_run,omitempty"`
	Actions    []Action  `json:"actions"`
	Error      string    `json:"error,omitempty"`
}

// Count returns the number of actions of the given kind.
func (r *Report) Count(kind ActionKind) int {
	n := 0
	for _, a := range r.Actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// Writes returns the number of create, update and delete actions.
func (r *Report) Writes() int {
	return r.Count(ActionCreated) + r.Count(ActionUpdated) + r.Count(ActionDeleted)
}

// Syncer publishes calendar events as Discord scheduled events.
type Syncer struct {
	channels ChannelLister
	events   EventClient
	calendar CalendarLister
	pacer    Pacer
	keys     KeyStrategy
	opts     Options
	logger   Logger
	now      func() time.Time
}

// NewSyncer creates a new Syncer instance. A nil pacer never waits and a
// nil logger discards everything.
func NewSyncer(channels ChannelLister, events EventClient, cal CalendarLister, pacer Pacer, opts Options, logger Logger) *Syncer {
	if pacer == nil {
		pacer = noPacer{}
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Syncer{
		channels: channels,
		events:   events,
		calendar: cal,
		pacer:    pacer,
		keys:     DescriptionSuffix{},
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Sync runs one pass. It fetches channels, calendar events and owned Discord
// events, then creates, updates and deletes Discord events until they mirror
// the calendar. The first failed call ends the pass in StateFailed; writes
// already made are kept. The report is returned in both cases.
func (s *Syncer) Sync(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: s.now(), DryRun: s.opts.DryRun}
	if s.opts.DryRun {
		s.logger.Infof("Starting sync (dry run)...")
	} else {
		s.logger.Infof("Starting sync...")
	}

	if err := s.run(ctx, report); err != nil {
		report.State = StateFailed
		report.Error = err.Error()
		report.FinishedAt = s.now()
		s.logger.Errorf("Sync failed: %v", err)
		return report, err
	}

	report.State = StateDone
	report.FinishedAt = s.now()
	s.logger.Infof("Sync complete: %d created, %d updated, %d deleted, %d unchanged, %d skipped.",
		report.Count(ActionCreated), report.Count(ActionUpdated), report.Count(ActionDeleted),
		report.Count(ActionUnchanged), report.Count(ActionSkipped))
	return report, nil
}

func (s *Syncer) run(ctx context.Context, report *Report) error {
	s.enter(report, StateFetchChannels)
	allChannels, err := s.channels.ListChannels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list channels: %w", err)
	}
	var channels []discord.Channel
	for _, c := range allChannels {
		if c.IsVoice() {
			channels = append(channels, c)
		}
	}
	s.logger.Debugf("Found %d voice and stage channels out of %d", len(channels), len(allChannels))

	s.enter(report, StateFetchCalendarEvents)
	timeMin := s.now()
	timeMax := timeMin.Add(s.opts.Window)
	sourceEvents, err := s.calendar.ListEvents(ctx, calclient.Query{
		TimeMin:      timeMin,
		TimeMax:      timeMax,
		MaxResults:   s.opts.MaxResults,
		SingleEvents: true,
		OrderBy:      "startTime",
	})
	if err != nil {
		return fmt.Errorf("failed to list calendar events: %w", err)
	}
	s.logger.Infof("Retrieved %d calendar events (%s to %s)",
		len(sourceEvents), timeMin.Format(time.RFC3339), timeMax.Format(time.RFC3339))

	s.enter(report, StateFetchOwnedDiscordEvents)
	allEvents, err := s.events.ListScheduledEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scheduled events: %w", err)
	}
	var owned []discord.ScheduledEvent
	for _, ev := range allEvents {
		if ev.CreatorID == s.opts.ApplicationID {
			owned = append(owned, ev)
		}
	}
	s.logger.Infof("Retrieved %d scheduled events, %d owned by this application", len(allEvents), len(owned))
	if len(sourceEvents) == 0 && len(owned) > 0 {
		s.logger.Warnf("Calendar returned no events; all %d owned scheduled events will be deleted", len(owned))
	}

	s.enter(report, StateMapAndMatch)
	mapper := Mapper{Channels: channels, Keys: s.keys}
	candidates := make([]Candidate, 0, len(sourceEvents))
	for _, ev := range sourceEvents {
		payload, err := mapper.Map(ev)
		if err != nil {
			if !errors.Is(err, ErrSkipped) {
				return err
			}
			id, summary := "", ""
			if ev != nil {
				id, summary = ev.Id, ev.Summary
			}
			s.logger.Warnf("Skipping calendar event %s (summary: %v): %v", id, summary, err)
			report.Actions = append(report.Actions, Action{Kind: ActionSkipped, CalendarID: id, Name: summary, Reason: err.Error()})
			continue
		}
		candidates = append(candidates, Candidate{Source: ev, Payload: payload})
	}
	matches := MatchCandidates(candidates, owned, s.keys)

	s.enter(report, StateApply)
	processed := make(map[string]bool)
	for _, m := range matches {
		if m.Existing != nil {
			existing := m.Existing
			s.logger.Debugf("Found matched event %s (summary: %v)", existing.ID, existing.Name)
			equal, diff := eventsEqual(m.Payload, *existing)
			if equal {
				processed[existing.ID] = true
				report.Actions = append(report.Actions, Action{Kind: ActionUnchanged, DiscordID: existing.ID, CalendarID: m.Source.Id, Name: m.Payload.Name})
				continue
			}
			s.logger.Debugf("Event %s changed: %s", existing.ID, diff)

			id := existing.ID
			if !s.opts.DryRun {
				updated, err := s.events.UpdateScheduledEvent(ctx, existing.ID, m.Payload)
				if err != nil {
					return fmt.Errorf("failed to update event %s (calendar event %s): %w", existing.ID, m.Source.Id, err)
				}
				if updated.ID != "" {
					id = updated.ID
				}
			}
			processed[existing.ID] = true
			processed[id] = true
			s.logger.Infof("Updated event %s (calendar event: %s, summary: %v)", id, m.Source.Id, m.Payload.Name)
			report.Actions = append(report.Actions, Action{Kind: ActionUpdated, DiscordID: id, CalendarID: m.Source.Id, Name: m.Payload.Name})
			if err := s.pace(ctx); err != nil {
				return err
			}
			continue
		}

		id := ""
		if !s.opts.DryRun {
			created, err := s.events.CreateScheduledEvent(ctx, m.Payload)
			if err != nil {
				return fmt.Errorf("failed to create event for calendar event %s: %w", m.Source.Id, err)
			}
			id = created.ID
			processed[id] = true
		}
		s.logger.Infof("Created event %s (calendar event: %s, summary: %v)", id, m.Source.Id, m.Payload.Name)
		report.Actions = append(report.Actions, Action{Kind: ActionCreated, DiscordID: id, CalendarID: m.Source.Id, Name: m.Payload.Name})
		if err := s.pace(ctx); err != nil {
			return err
		}
	}

	for _, ev := range owned {
		if processed[ev.ID] {
			continue
		}
		if !s.opts.DryRun {
			if err := s.events.DeleteScheduledEvent(ctx, ev.ID); err != nil {
				return fmt.Errorf("failed to delete stale event %s: %w", ev.ID, err)
			}
		}
		link, _ := s.keys.Key(ev.Description)
		s.logger.Infof("Deleted stale event %s (summary: %v, calendar link: %s)", ev.ID, ev.Name, link)
		report.Actions = append(report.Actions, Action{Kind: ActionDeleted, DiscordID: ev.ID, Name: ev.Name})
		if err := s.pace(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) enter(report *Report, state State) {
	report.State = state
	s.logger.Debugf("Sync state: %s", state)
}

func (s *Syncer) pace(ctx context.Context) error {
	if s.opts.DryRun {
		return nil
	}
	if err := s.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("waiting between writes: %w", err)
	}
	return nil
}

type noPacer struct{}

func (noPacer) Wait(context.Context) error { return nil }

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
