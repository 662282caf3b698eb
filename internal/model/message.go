package model

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a chat turn.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAssistant || r == RoleUser
}

// Persona selects which assistant answers a session.
type Persona string

const (
	PersonaSimulation Persona = "simulation"
	PersonaManager    Persona = "manager"
)

// Valid reports whether p is a known persona.
func (p Persona) Valid() bool {
	return p == PersonaSimulation || p == PersonaManager
}

// ChatState is the per-session turn state.
type ChatState string

const (
	StateIdle     ChatState = "idle"
	StateAwaiting ChatState = "awaiting"
	StateScanning ChatState = "scanning" // simulation persona only, cosmetic
)

// Message is one turn in a session. Simulation replies carry an attachment;
// every other turn leaves it nil.
type Message struct {
	ID         uuid.UUID             `json:"id"`
	Role       Role                  `json:"role"`
	Content    string                `json:"content"`
	CreatedAt  time.Time             `json:"created_at"`
	Simulation *SimulationAttachment `json:"simulation,omitempty"`
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	c := m
	if m.Simulation != nil {
		a := m.Simulation.Clone()
		c.Simulation = &a
	}
	return c
}

// SimulationAttachment is the structured data that accompanies a simulation
// reply. Its schedule is an owned copy, versioned so concurrent confirm
// commands cannot silently overwrite each other.
type SimulationAttachment struct {
	ProjectName string        `json:"project_name"`
	MatchedKey  string        `json:"matched_key"`
	ShipDate    string        `json:"ship_date"`
	History     []SimilarCase `json:"history"`
	Schedule    ScheduleList  `json:"schedule"`
}

// Clone returns a deep copy of the attachment.
func (a SimulationAttachment) Clone() SimulationAttachment {
	c := a
	c.History = append([]SimilarCase(nil), a.History...)
	c.Schedule = a.Schedule.Clone()
	return c
}

// ScheduleList is a versioned list of schedule blocks.
type ScheduleList struct {
	Version int             `json:"version"`
	Blocks  []ScheduleBlock `json:"blocks"`
}

// Clone returns a deep copy of the list.
func (l ScheduleList) Clone() ScheduleList {
	return ScheduleList{
		Version: l.Version,
		Blocks:  append([]ScheduleBlock(nil), l.Blocks...),
	}
}

// ChatTurn is the wire shape of a message sent to the manager proxy.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SessionSnapshot is a point-in-time copy of a session.
type SessionSnapshot struct {
	ID        uuid.UUID `json:"id"`
	Persona   Persona   `json:"persona"`
	State     ChatState `json:"state"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
