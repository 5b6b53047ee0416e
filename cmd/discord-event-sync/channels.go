package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-ap/errors"
	"github.com/urfave/cli"

	"github.com/beekhof/discord-event-sync/internal/discord"
)

var ChannelsCmd = cli.Command{
	Name:   "channels",
	Usage:  "Lists the voice and stage channels events can target, with the location that selects each",
	Action: runChannels,
}

func runChannels(c *cli.Context) error {
	cfg, err := loadPartialConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.ValidateDiscord(); err != nil {
		return errors.Annotatef(err, "invalid config")
	}

	dc := discord.NewClient(cfg.DiscordBotToken, cfg.DiscordGuildID)
	channels, err := dc.ListChannels(context.Background())
	if err != nil {
		return errors.Annotatef(err, "failed to list channels")
	}
	printChannels(os.Stdout, channels)
	return nil
}

func printChannels(w io.Writer, channels []discord.Channel) {
	n := 0
	for _, ch := range channels {
		if !ch.IsVoice() {
			continue
		}
		n++
		fmt.Fprintf(w, "%-20s %-6s %q\n", ch.ID, channelKind(ch), locationFor(ch))
	}
	if n == 0 {
		fmt.Fprintln(w, "No voice or stage channels found.")
	}
}

func channelKind(ch discord.Channel) string {
	if ch.Type == discord.ChannelTypeGuildStageVoice {
		return "stage"
	}
	return "voice"
}

// locationFor returns the calendar location that targets ch.
func locationFor(ch discord.Channel) string {
	if ch.Type == discord.ChannelTypeGuildStageVoice {
		return "Discord Stage: " + ch.Name
	}
	return "Discord Voice: " + ch.Name
}
