package journal

import (
	"time"

	"github.com/google/uuid"
)

// Event names recorded in the journal.
const (
	EventRoomCreated   = "room_created"
	EventPlayerJoined  = "player_joined"
	EventPlayerRejoin  = "player_rejoined"
	EventPlayerLeft    = "player_left"
	EventMoveApplied   = "move_applied"
	EventRoomReclaimed = "room_reclaimed"
)

// Entry is one room event.
type Entry struct {
	ID     string
	Event  string
	Code   string
	UID    string
	Detail map[string]any
	At     time.Time
}

// NewEntry stamps an entry with a fresh ID.
func NewEntry(event, code, uid string, at time.Time, detail map[string]any) Entry {
	return Entry{ID: uuid.NewString(), Event: event, Code: code, UID: uid, Detail: detail, At: at}
}

// Recorder accepts room events. Record must not block the caller.
type Recorder interface {
	Record(e Entry)
}

// Nop drops every entry.
type Nop struct{}

func (Nop) Record(Entry) {}
