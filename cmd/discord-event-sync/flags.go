package main

import (
	"git.sr.ht/~mariusor/lw"
	"github.com/go-ap/errors"
	"github.com/urfave/cli"

	"github.com/beekhof/discord-event-sync/internal/config"
)

var globalFlags = []cli.Flag{
	&cli.StringFlag{Name: "config", Usage: "Path to a JSON, YAML or TOML config file"},
	&cli.BoolFlag{Name: "verbose, v", Usage: "Enable verbose output (show DEBUG logs)"},
	&cli.BoolFlag{Name: "dry-run", Usage: "Log the changes a pass would make without writing to Discord"},
	&cli.StringFlag{Name: "guild-id", Usage: "Discord guild (server) id"},
	&cli.StringFlag{Name: "bot-token", Usage: "Discord bot token"},
	&cli.StringFlag{Name: "application-id", Usage: "Discord application id of the bot"},
	&cli.StringFlag{Name: "calendar-source", Usage: "Calendar source: google, ics or caldav"},
	&cli.StringFlag{Name: "calendar-id", Usage: "Google Calendar id (default: primary)"},
	&cli.StringFlag{Name: "google-api-key", Usage: "Google API key for a public calendar"},
	&cli.StringFlag{Name: "google-service-account", Usage: "Path to a Google service account key JSON file"},
	&cli.StringFlag{Name: "google-credentials-path", Usage: "Path to Google OAuth credentials JSON file"},
	&cli.StringFlag{Name: "google-token-path", Usage: "Path to store the Google OAuth token"},
	&cli.StringFlag{Name: "ics-url", Usage: "URL of an iCalendar feed"},
	&cli.StringFlag{Name: "caldav-url", Usage: "URL of a CalDAV calendar collection"},
	&cli.StringFlag{Name: "caldav-username", Usage: "CalDAV username"},
	&cli.StringFlag{Name: "caldav-password", Usage: "CalDAV password (an app-specific password for iCloud)"},
	&cli.IntFlag{Name: "window-days", Usage: "Number of days ahead to publish (default: 7)"},
	&cli.Int64Flag{Name: "max-results", Usage: "Maximum number of calendar events per pass (default: 100)"},
	&cli.StringFlag{Name: "write-interval", Usage: "Pause after each Discord write, as a Go duration (default: 1s)"},
	&cli.StringFlag{Name: "journal", Usage: "Path to a file recording pass reports"},
}

// flagOverrides collects the configuration flags set on the command line.
func flagOverrides(c *cli.Context) *config.Config {
	return &config.Config{
		DiscordGuildID:           c.GlobalString("guild-id"),
		DiscordBotToken:          c.GlobalString("bot-token"),
		DiscordApplicationID:     c.GlobalString("application-id"),
		CalendarSource:           c.GlobalString("calendar-source"),
		GoogleCalendarID:         c.GlobalString("calendar-id"),
		GoogleAPIKey:             c.GlobalString("google-api-key"),
		GoogleServiceAccountPath: c.GlobalString("google-service-account"),
		GoogleCredentialsPath:    c.GlobalString("google-credentials-path"),
		GoogleTokenPath:          c.GlobalString("google-token-path"),
		ICSURL:                   c.GlobalString("ics-url"),
		CalDAVURL:                c.GlobalString("caldav-url"),
		CalDAVUsername:           c.GlobalString("caldav-username"),
		CalDAVPassword:           c.GlobalString("caldav-password"),
		SyncWindowDays:           c.GlobalInt("window-days"),
		MaxResults:               c.GlobalInt64("max-results"),
		WriteInterval:            c.GlobalString("write-interval"),
		JournalPath:              c.GlobalString("journal"),
	}
}

// loadConfig loads and fully validates the configuration.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.GlobalString("config"), flagOverrides(c))
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load config")
	}
	return cfg, nil
}

// loadPartialConfig loads the configuration without validating it.
func loadPartialConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.GlobalString("config"), flagOverrides(c))
	if err != nil {
		return nil, errors.Annotatef(err, "failed to load config")
	}
	return cfg, nil
}

// quietLogger drops debug lines.
type quietLogger struct {
	lw.Logger
}

func (quietLogger) Debugf(string, ...any) {}

type logger interface {
	Debugf(string, ...any)
	Infof(string, ...any)
	Warnf(string, ...any)
	Errorf(string, ...any)
}

func newLogger(c *cli.Context, ctx lw.Ctx) logger {
	l := lw.Dev()
	if len(ctx) > 0 {
		l = l.WithContext(ctx)
	}
	if c.GlobalBool("verbose") {
		return l
	}
	return quietLogger{Logger: l}
}
