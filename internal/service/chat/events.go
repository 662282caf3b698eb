package chat

import (
	"github.com/google/uuid"

	"github.com/ashita-ai/nouki/internal/model"
)

// EventKind names a session event as it appears on the SSE stream.
type EventKind string

const (
	EventMessage  EventKind = "message"
	EventState    EventKind = "state"
	EventSchedule EventKind = "schedule"
	EventClosed   EventKind = "closed"
)

// Event is a change to one session. Only the field matching Kind is set;
// MessageID accompanies schedule events.
type Event struct {
	SessionID uuid.UUID           `json:"session_id"`
	Kind      EventKind           `json:"kind"`
	State     model.ChatState     `json:"state,omitempty"`
	Message   *model.Message      `json:"message,omitempty"`
	MessageID *uuid.UUID          `json:"message_id,omitempty"`
	Schedule  *model.ScheduleList `json:"schedule,omitempty"`
}

// Notifier receives session events. Publish is called with the session lock
// held, so implementations must not block or call back into the session.
type Notifier interface {
	Publish(Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Event)

// Publish calls f(e).
func (f NotifierFunc) Publish(e Event) { f(e) }

type nopNotifier struct{}

func (nopNotifier) Publish(Event) {}
