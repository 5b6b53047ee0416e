package discord

// ChannelType is the Discord channel type. Only the voice kinds matter here.
type ChannelType int

const (
	ChannelTypeGuildVoice      ChannelType = 2
	ChannelTypeGuildStageVoice ChannelType = 13
)

// Channel is the subset of a guild channel the sync needs.
type Channel struct {
	ID   string      `json:"id"`
	Type ChannelType `json:"type"`
	Name string      `json:"name"`
}

// IsVoice reports whether the channel can host a voice or stage event.
func (c Channel) IsVoice() bool {
	return c.Type == ChannelTypeGuildVoice || c.Type == ChannelTypeGuildStageVoice
}

// EntityType describes where a scheduled event takes place.
//
// https://discord.com/developers/docs/resources/guild-scheduled-event#guild-scheduled-event-object-guild-scheduled-event-entity-types
type EntityType int

const (
	EntityTypeStageInstance EntityType = iota + 1
	EntityTypeVoice
	EntityTypeExternal
)

func (t EntityType) String() string {
	switch t {
	case EntityTypeStageInstance:
		return "stage"
	case EntityTypeVoice:
		return "voice"
	case EntityTypeExternal:
		return "external"
	default:
		return "unknown"
	}
}

// PrivacyLevel of a scheduled event. Discord only accepts GuildOnly.
type PrivacyLevel int

const PrivacyLevelGuildOnly PrivacyLevel = 2

// EventStatus is the lifecycle status of a scheduled event.
type EventStatus int

const (
	EventStatusScheduled EventStatus = iota + 1
	EventStatusActive
	EventStatusCompleted
	EventStatusCanceled
)

// EntityMetadata carries the location of an external event.
type EntityMetadata struct {
	Location string `json:"location,omitempty"`
}

// EventPayload is the body sent when creating or modifying a scheduled event.
// ChannelID and EntityMetadata are sent as null when unset so that a PATCH
// switching between channel and external events clears the other side.
type EventPayload struct {
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	PrivacyLevel       PrivacyLevel    `json:"privacy_level"`
	ScheduledStartTime string          `json:"scheduled_start_time"`
	ScheduledEndTime   string          `json:"scheduled_end_time"`
	EntityType         EntityType      `json:"entity_type"`
	ChannelID          *string         `json:"channel_id"`
	EntityMetadata     *EntityMetadata `json:"entity_metadata"`
}

// Location returns the external location, or "" when there is none.
func (p EventPayload) Location() string {
	if p.EntityMetadata == nil {
		return ""
	}
	return p.EntityMetadata.Location
}

// Channel returns the channel id, or "" for external events.
func (p EventPayload) Channel() string {
	if p.ChannelID == nil {
		return ""
	}
	return *p.ChannelID
}

// ScheduledEvent is a guild scheduled event as returned by Discord.
//
// https://discord.com/developers/docs/resources/guild-scheduled-event#guild-scheduled-event-object-guild-scheduled-event-structure
type ScheduledEvent struct {
	ID                 string          `json:"id"`
	GuildID            string          `json:"guild_id"`
	ChannelID          string          `json:"channel_id"`
	CreatorID          string          `json:"creator_id"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	ScheduledStartTime string          `json:"scheduled_start_time"`
	ScheduledEndTime   string          `json:"scheduled_end_time"`
	PrivacyLevel       PrivacyLevel    `json:"privacy_level"`
	Status             EventStatus     `json:"status"`
	EntityType         EntityType      `json:"entity_type"`
	EntityMetadata     *EntityMetadata `json:"entity_metadata"`
}

// Location returns the external location, or "" when there is none.
func (e ScheduledEvent) Location() string {
	if e.EntityMetadata == nil {
		return ""
	}
	return e.EntityMetadata.Location
}
