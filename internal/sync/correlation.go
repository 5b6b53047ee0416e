package sync

import "strings"

// KeyStrategy ties a Discord event back to the calendar event it was created
// from. It is the only state the sync keeps between passes.
type KeyStrategy interface {
	// Embed returns description carrying key.
	Embed(description, key string) string
	// Matches reports whether description carries key.
	Matches(description, key string) bool
	// Key extracts the key from description, if any.
	Key(description string) (string, bool)
}

// linkLabel introduces the calendar link on the last line of a description.
const linkLabel = "Calendar event link: "

// DescriptionSuffix appends the calendar permalink as the last line of the
// Discord description and matches on that suffix. Editing the description
// on Discord breaks the link and the event is recreated on the next pass.
type DescriptionSuffix struct{}

func (DescriptionSuffix) Embed(description, key string) string {
	return strings.TrimSpace(description + "\n" + linkLabel + key)
}

func (DescriptionSuffix) Matches(description, key string) bool {
	return key != "" && strings.HasSuffix(description, key)
}

func (DescriptionSuffix) Key(description string) (string, bool) {
	i := strings.LastIndex(description, linkLabel)
	if i < 0 {
		return "", false
	}
	key := description[i+len(linkLabel):]
	if key == "" || strings.ContainsAny(key, "\r\n") {
		return "", false
	}
	return key, true
}
