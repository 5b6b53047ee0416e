package sync

import (
	"fmt"
	"time"

	"github.com/beekhof/discord-event-sync/internal/discord"
)

// eventsEqual reports whether existing already reflects candidate. When it
// does not, the second result describes the first mismatching field.
func eventsEqual(candidate discord.EventPayload, existing discord.ScheduledEvent) (bool, string) {
	if candidate.Name != existing.Name {
		return false, fmt.Sprintf("name mismatch: %q != %q", candidate.Name, existing.Name)
	}
	if candidate.Description != existing.Description {
		return false, fmt.Sprintf("description mismatch: %q != %q", candidate.Description, existing.Description)
	}
	if candidate.Channel() != existing.ChannelID {
		return false, fmt.Sprintf("channel mismatch: %q != %q", candidate.Channel(), existing.ChannelID)
	}
	if candidate.PrivacyLevel != existing.PrivacyLevel {
		return false, fmt.Sprintf("privacy level mismatch: %d != %d", candidate.PrivacyLevel, existing.PrivacyLevel)
	}
	if candidate.EntityType != existing.EntityType {
		return false, fmt.Sprintf("entity type mismatch: %s != %s", candidate.EntityType, existing.EntityType)
	}

	// Location is only compared when both sides carry one.
	if a, b := candidate.Location(), existing.Location(); a != "" && b != "" && a != b {
		return false, fmt.Sprintf("location mismatch: %q != %q", a, b)
	}

	if !sameInstant(candidate.ScheduledStartTime, existing.ScheduledStartTime) {
		return false, fmt.Sprintf("start time mismatch: %s != %s", candidate.ScheduledStartTime, existing.ScheduledStartTime)
	}
	if !sameInstant(candidate.ScheduledEndTime, existing.ScheduledEndTime) {
		return false, fmt.Sprintf("end time mismatch: %s != %s", candidate.ScheduledEndTime, existing.ScheduledEndTime)
	}
	return true, ""
}

// sameInstant compares two ISO-8601 timestamps at millisecond precision.
// Values that do not parse are compared as strings.
func sameInstant(a, b string) bool {
	if a == b {
		return true
	}
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA != nil || errB != nil {
		return false
	}
	return ta.UnixMilli() == tb.UnixMilli()
}
