package sync

import (
	"errors"
	"fmt"
	"time"

	"github.com/beekhof/discord-event-sync/internal/discord"

	"google.golang.org/api/calendar/v3"
)

// ErrSkipped is wrapped by every reason a calendar event is not published.
// Skipped events are logged and left out of the pass; they never abort it.
var ErrSkipped = errors.New("skipped")

const (
	dateLayout = "2006-01-02"
	// discordTimeLayout is ISO-8601 in UTC with millisecond precision.
	discordTimeLayout = "2006-01-02T15:04:05.000Z"
)

// Mapper turns calendar events into Discord event payloads.
type Mapper struct {
	Channels []discord.Channel
	Keys     KeyStrategy
}

// Map builds the payload for ev. The returned error wraps ErrSkipped when
// ev cannot be published.
func (m Mapper) Map(ev *calendar.Event) (discord.EventPayload, error) {
	if ev == nil {
		return discord.EventPayload{}, fmt.Errorf("%w: nil event", ErrSkipped)
	}
	switch {
	case ev.Id == "":
		return discord.EventPayload{}, fmt.Errorf("%w: missing id", ErrSkipped)
	case ev.Summary == "":
		return discord.EventPayload{}, fmt.Errorf("%w: missing summary", ErrSkipped)
	case ev.Start == nil:
		return discord.EventPayload{}, fmt.Errorf("%w: missing start", ErrSkipped)
	case ev.End == nil:
		return discord.EventPayload{}, fmt.Errorf("%w: missing end", ErrSkipped)
	case ev.HtmlLink == "":
		return discord.EventPayload{}, fmt.Errorf("%w: missing permalink", ErrSkipped)
	}

	start, end, err := eventInstants(ev.Start, ev.End)
	if err != nil {
		return discord.EventPayload{}, err
	}

	loc, err := ResolveLocation(ev.Location, m.Channels)
	if err != nil {
		return discord.EventPayload{}, err
	}

	keys := m.Keys
	if keys == nil {
		keys = DescriptionSuffix{}
	}

	payload := discord.EventPayload{
		Name:               ev.Summary,
		Description:        keys.Embed(ev.Description, ev.HtmlLink),
		PrivacyLevel:       discord.PrivacyLevelGuildOnly,
		ScheduledStartTime: start.UTC().Format(discordTimeLayout),
		ScheduledEndTime:   end.UTC().Format(discordTimeLayout),
		EntityType:         loc.Kind,
	}
	if loc.Kind == discord.EntityTypeExternal {
		payload.EntityMetadata = &discord.EntityMetadata{Location: loc.Text}
	} else {
		id := loc.ChannelID
		payload.ChannelID = &id
	}
	return payload, nil
}

// eventInstants returns the start and end of an event. Both ends must share
// a granularity: timed events use DateTime, all-day events use Date, which
// is read as midnight UTC.
func eventInstants(start, end *calendar.EventDateTime) (time.Time, time.Time, error) {
	switch {
	case start.DateTime != "" && end.DateTime != "":
		s, err := time.Parse(time.RFC3339, start.DateTime)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid start %q: %v", ErrSkipped, start.DateTime, err)
		}
		e, err := time.Parse(time.RFC3339, end.DateTime)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid end %q: %v", ErrSkipped, end.DateTime, err)
		}
		return s, e, nil
	case start.Date != "" && end.Date != "":
		s, err := time.Parse(dateLayout, start.Date)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid start date %q: %v", ErrSkipped, start.Date, err)
		}
		e, err := time.Parse(dateLayout, end.Date)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid end date %q: %v", ErrSkipped, end.Date, err)
		}
		return s, e, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start and end mix all-day and timed values", ErrSkipped)
	}
}
