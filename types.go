package nouki

import (
	"time"

	"github.com/google/uuid"
)

// Role is who authored a chat turn: "user" or "assistant".
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation handed to a CompletionProvider.
type Turn struct {
	Role    Role
	Content string
}

// EventKind names a session change.
type EventKind string

const (
	EventMessage  EventKind = "message"
	EventState    EventKind = "state"
	EventSchedule EventKind = "schedule"
	EventClosed   EventKind = "closed"
)

// Message is the public view of a chat message.
// It is a curated copy of the internal message type; attachments are
// reduced to the fields a hook typically needs.
type Message struct {
	ID        uuid.UUID
	Role      Role
	Content   string
	CreatedAt time.Time

	// Set only on simulation replies.
	MatchedKey string
	ShipDate   string
}

// SessionEvent is delivered to every EventHook. Only the fields relevant to
// Kind are set.
type SessionEvent struct {
	SessionID uuid.UUID
	Kind      EventKind

	State   string   // EventState: "idle", "awaiting" or "scanning"
	Message *Message // EventMessage

	// EventSchedule: the message whose schedule changed and its new version.
	MessageID       *uuid.UUID
	ScheduleVersion int
	ConfirmedBlocks []string
}
