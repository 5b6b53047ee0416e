package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

const appName = "discord-event-sync"

var version = "dev"

func main() {
	app := cli.App{
		Name:    appName,
		Usage:   "Publishes Google Calendar, ICS or CalDAV events as Discord guild scheduled events",
		Version: version,
		Description: `Each pass reads the upcoming calendar events and creates, updates or deletes
   the scheduled events this bot owns so that they mirror the calendar.

   Event locations select where the Discord event takes place:
     "Discord Stage: <name>"  the first stage or voice channel whose name contains <name>
     "Discord Voice: <name>"  likewise, as a voice event
     anything else            an external event at that location

   Configuration precedence (highest to lowest): flags, environment variables
   (` + "DISCORD_EVENTS_SYNC_*" + `), the --config file (JSON, YAML or TOML), defaults.

   WARNING: the calendar is the source of truth. Scheduled events created by this
   bot are overwritten or deleted when they no longer match the calendar.`,
		Flags:  globalFlags,
		Action: runSync,
		Commands: []cli.Command{
			SyncCmd,
			ScheduleCmd,
			ChannelsCmd,
			AuthorizeCmd,
			HistoryCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
