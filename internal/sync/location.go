package sync

import (
	"fmt"
	"strings"

	"github.com/beekhof/discord-event-sync/internal/discord"
)

// PlaceholderLocation is used for calendar events without a location, since
// Discord requires one for external events.
const PlaceholderLocation = "🤷"

// discordPrefix marks a location meant for a Discord channel. A location
// starting with it but matching no entry of locationPrefixes is rejected
// rather than published as an external address.
const discordPrefix = "Discord"

type locationPrefix struct {
	prefix string
	kind   discord.EntityType
}

// locationPrefixes is matched in order, case-insensitively.
var locationPrefixes = []locationPrefix{
	{prefix: "Discord Stage:", kind: discord.EntityTypeStageInstance},
	{prefix: "Discord Voice:", kind: discord.EntityTypeVoice},
}

// Location is where a Discord event takes place. Exactly one of ChannelID
// and Text is set, depending on Kind.
type Location struct {
	Kind      discord.EntityType
	ChannelID string
	Text      string
}

// ResolveLocation parses a calendar location string. Channel queries are
// resolved against channels, which must already be limited to voice and
// stage channels; the first channel whose name contains the query wins.
func ResolveLocation(raw string, channels []discord.Channel) (Location, error) {
	if raw == "" {
		return Location{Kind: discord.EntityTypeExternal, Text: PlaceholderLocation}, nil
	}

	for _, p := range locationPrefixes {
		if !hasPrefixFold(raw, p.prefix) {
			continue
		}
		query := strings.TrimSpace(raw[len(p.prefix):])
		if query == "" {
			return Location{}, fmt.Errorf("%w: location %q names no channel", ErrSkipped, raw)
		}
		channel, ok := findChannel(query, channels)
		if !ok {
			return Location{}, fmt.Errorf("%w: no voice or stage channel matches %q", ErrSkipped, query)
		}
		return Location{Kind: p.kind, ChannelID: channel.ID}, nil
	}

	if hasPrefixFold(raw, discordPrefix) {
		return Location{}, fmt.Errorf("%w: unknown Discord location %q", ErrSkipped, raw)
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		return Location{}, fmt.Errorf("%w: blank location", ErrSkipped)
	}
	return Location{Kind: discord.EntityTypeExternal, Text: text}, nil
}

func findChannel(query string, channels []discord.Channel) (discord.Channel, bool) {
	query = strings.ToLower(query)
	for _, c := range channels {
		if strings.Contains(strings.ToLower(c.Name), query) {
			return c, true
		}
	}
	return discord.Channel{}, false
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
