package sync

import (
	"github.com/beekhof/discord-event-sync/internal/discord"

	"google.golang.org/api/calendar/v3"
)

// Candidate is a mapped payload paired with the calendar event it came from.
type Candidate struct {
	Source  *calendar.Event
	Payload discord.EventPayload
}

// Match pairs a candidate with the owned Discord event carrying its key.
// Existing is nil when no owned event matches.
type Match struct {
	Candidate
	Existing *discord.ScheduledEvent
}

// MatchCandidates pairs each candidate, in order, with the first owned event
// whose description carries the candidate's permalink. An owned event
// matching several candidates is paired with each of them; owned events
// matching none are left for deletion by the caller.
func MatchCandidates(candidates []Candidate, owned []discord.ScheduledEvent, keys KeyStrategy) []Match {
	if keys == nil {
		keys = DescriptionSuffix{}
	}
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		m := Match{Candidate: c}
		for i := range owned {
			if keys.Matches(owned[i].Description, c.Source.HtmlLink) {
				m.Existing = &owned[i]
				break
			}
		}
		matches = append(matches, m)
	}
	return matches
}
