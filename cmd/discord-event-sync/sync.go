package main

import (
	"context"

	"git.sr.ht/~mariusor/lw"
	"github.com/go-ap/errors"
	"github.com/urfave/cli"

	"github.com/beekhof/discord-event-sync/internal/auth"
	calclient "github.com/beekhof/discord-event-sync/internal/calendar"
	"github.com/beekhof/discord-event-sync/internal/config"
	"github.com/beekhof/discord-event-sync/internal/discord"
	"github.com/beekhof/discord-event-sync/internal/journal"
	"github.com/beekhof/discord-event-sync/internal/pace"
	"github.com/beekhof/discord-event-sync/internal/sync"
)

var SyncCmd = cli.Command{
	Name:   "sync",
	Usage:  "Runs a single sync pass (default)",
	Action: runSync,
}

func runSync(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(c, lw.Ctx{"guild": cfg.DiscordGuildID})

	ctx := context.Background()
	p, err := newPass(ctx, cfg, c.GlobalBool("dry-run"), logger)
	if err != nil {
		return err
	}
	return p.run(ctx)
}

// pass runs a sync and records its report.
type pass struct {
	syncer  *sync.Syncer
	journal *journal.Journal
	logger  logger
}

func newPass(ctx context.Context, cfg *config.Config, dryRun bool, logger logger) (*pass, error) {
	cal, err := newCalendar(ctx, cfg)
	if err != nil {
		return nil, err
	}
	dc := discord.NewClient(cfg.DiscordBotToken, cfg.DiscordGuildID)

	s := sync.NewSyncer(dc, dc, cal, pace.Every(cfg.WriteEvery), sync.Options{
		ApplicationID: cfg.DiscordApplicationID,
		Window:        cfg.SyncWindow(),
		MaxResults:    cfg.MaxResults,
		DryRun:        dryRun,
	}, logger)

	p := &pass{syncer: s, logger: logger}
	if cfg.JournalPath != "" {
		p.journal = journal.New(journal.Config{Path: cfg.JournalPath, LogFn: logger.Debugf})
	}
	return p, nil
}

func (p *pass) run(ctx context.Context) error {
	report, err := p.syncer.Sync(ctx)
	if p.journal != nil && report != nil {
		if jerr := p.journal.Append(report); jerr != nil {
			p.logger.Warnf("Failed to record pass in journal: %s", jerr)
		}
	}
	if err != nil {
		return errors.Annotatef(err, "sync pass failed")
	}
	return nil
}

func newCalendar(ctx context.Context, cfg *config.Config) (sync.CalendarLister, error) {
	switch cfg.CalendarSource {
	case config.SourceICS:
		return calclient.NewICSClient(cfg.ICSURL, nil), nil
	case config.SourceCalDAV:
		return calclient.NewCalDAVClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, nil), nil
	case config.SourceGoogle:
		opts, err := auth.GoogleClientOptions(ctx, cfg)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to set up Google credentials")
		}
		gc, err := calclient.NewGoogleClient(ctx, cfg.GoogleCalendarID, opts...)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to create Google Calendar client")
		}
		return gc, nil
	}
	return nil, errors.Newf("unknown calendar source %q", cfg.CalendarSource)
}
