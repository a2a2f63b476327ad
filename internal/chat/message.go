package chat

import (
	"strings"
	"time"
)

// Message is the domain model for a chat message. Immutable once created.
type Message struct {
	ID        int64
	Room      string
	Author    string
	Text      string
	CreatedAt time.Time
}

// Room identifiers form a closed set; anything else is rejected.
const (
	RoomPublic   = "public"
	RoomFounders = "founders"
)

// NormalizeRoom trims and lowercases a raw room name. An empty name defaults
// to the public room. Returns false if the result is not a known room.
func NormalizeRoom(raw string) (string, bool) {
	room := strings.ToLower(strings.TrimSpace(raw))
	if room == "" {
		room = RoomPublic
	}
	switch room {
	case RoomPublic, RoomFounders:
		return room, true
	default:
		return room, false
	}
}
