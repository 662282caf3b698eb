// Package chat runs conversations for both personas.
//
// A Session owns its message list and turn state. Only one request may be
// outstanding per session; a second submit while a reply is pending fails
// with ErrBusy rather than queueing. Simulation replies are delivered after
// an artificial delay, manager replies after the completion call returns.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ashita-ai/nouki/internal/model"
	"github.com/ashita-ai/nouki/internal/service/simulation"
)

var (
	ErrBusy            = errors.New("chat: a reply is already pending")
	ErrEmptyMessage    = errors.New("chat: message is empty")
	ErrMessageTooLong  = errors.New("chat: message too long")
	ErrClosed          = errors.New("chat: session closed")
	ErrNotFound        = errors.New("chat: not found")
	ErrVersionConflict = errors.New("chat: schedule version conflict")
	ErrNoSchedule      = errors.New("chat: message has no schedule")
)

// SimulationGreeting opens every simulation-persona session.
const SimulationGreeting = "出荷シミュレーションアシスタントです。\n" +
	"案件名(製品コード)と数量を入力すると、参照データをもとに出荷日を試算します。\n" +
	"例: 案件名: 4CBTY2 8台で出荷シミュレーション"

// Simulator runs the shipment simulation pipeline.
type Simulator interface {
	Simulate(ctx context.Context, text string) (model.SimulationResult, error)
}

// Replier answers a manager-persona conversation. Answer never fails: errors
// are collapsed into a user-facing apology by the implementation.
type Replier interface {
	Answer(ctx context.Context, turns []model.ChatTurn) string
}

// Session is one conversation.
type Session struct {
	id        uuid.UUID
	persona   model.Persona
	createdAt time.Time

	sim      Simulator
	mgr      Replier
	notifier Notifier
	logger   *slog.Logger
	delayMin time.Duration
	delayMax time.Duration

	mu        sync.Mutex
	state     model.ChatState
	messages  []model.Message
	updatedAt time.Time
	timer     *time.Timer
	closed    bool

	inflight sync.WaitGroup
}

func newSession(persona model.Persona, sim Simulator, mgr Replier, notifier Notifier, cfg Config, logger *slog.Logger) *Session {
	now := time.Now().UTC()
	s := &Session{
		id:        uuid.New(),
		persona:   persona,
		createdAt: now,
		sim:       sim,
		mgr:       mgr,
		notifier:  notifier,
		delayMin:  cfg.ReplyDelayMin,
		delayMax:  cfg.ReplyDelayMax,
		state:     model.StateIdle,
		updatedAt: now,
	}
	s.logger = logger.With("session_id", s.id, "persona", persona)
	if persona == model.PersonaSimulation {
		s.messages = append(s.messages, newMessage(model.RoleAssistant, SimulationGreeting, nil))
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Persona returns which assistant answers this session.
func (s *Session) Persona() model.Persona { return s.persona }

// State returns the current turn state.
func (s *Session) State() model.ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submit appends a user message and starts the reply. It fails with ErrBusy
// while a previous reply is still pending.
func (s *Session) Submit(ctx context.Context, text string) (model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return model.Message{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > model.MaxMessageLen {
		return model.Message{}, fmt.Errorf("%w: limit is %d characters", ErrMessageTooLong, model.MaxMessageLen)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return model.Message{}, ErrClosed
	}
	if s.state != model.StateIdle {
		return model.Message{}, ErrBusy
	}

	msg := newMessage(model.RoleUser, text, nil)
	s.appendLocked(msg)
	s.setStateLocked(model.StateAwaiting)

	// The reply outlives the request that triggered it.
	replyCtx := context.WithoutCancel(ctx)
	switch s.persona {
	case model.PersonaManager:
		turns := s.turnsLocked()
		s.inflight.Add(1)
		go s.answerManager(replyCtx, turns)
	default:
		s.scheduleSimulation(replyCtx, text)
	}
	return msg.Clone(), nil
}

// scheduleSimulation arms the reply timer. Half of the delay is spent in
// awaiting, the rest in scanning. Called with s.mu held.
func (s *Session) scheduleSimulation(ctx context.Context, text string) {
	d := s.replyDelay()
	first := d / 2
	s.timer = time.AfterFunc(first, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.state != model.StateAwaiting {
			return
		}
		s.setStateLocked(model.StateScanning)
		s.timer = time.AfterFunc(d-first, func() { s.finishSimulation(ctx, text) })
	})
}

func (s *Session) finishSimulation(ctx context.Context, text string) {
	content, attachment := s.runSimulation(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.timer = nil
	s.appendLocked(newMessage(model.RoleAssistant, content, attachment))
	s.setStateLocked(model.StateIdle)
}

func (s *Session) runSimulation(ctx context.Context, text string) (string, *model.SimulationAttachment) {
	res, err := s.sim.Simulate(ctx, text)
	if err != nil {
		if !errors.Is(err, simulation.ErrNoProjectName) {
			s.logger.Error("chat: simulation failed", "error", err)
		}
		return simulation.GuidanceMessage, nil
	}
	return res.Narrative, &model.SimulationAttachment{
		ProjectName: res.ProjectName,
		MatchedKey:  res.MatchedKey,
		ShipDate:    res.ShipDate,
		History:     res.History,
		Schedule:    model.ScheduleList{Version: 1, Blocks: res.Schedule},
	}
}

func (s *Session) answerManager(ctx context.Context, turns []model.ChatTurn) {
	defer s.inflight.Done()
	reply := s.mgr.Answer(ctx, turns)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Debug("chat: discarding reply for closed session")
		return
	}
	s.appendLocked(newMessage(model.RoleAssistant, reply, nil))
	s.setStateLocked(model.StateIdle)
}

func (s *Session) replyDelay() time.Duration {
	if s.delayMax <= s.delayMin {
		return s.delayMin
	}
	return s.delayMin + rand.N(s.delayMax-s.delayMin)
}

// ConfirmBlock marks one schedule block of a message as confirmed.
// expectedVersion must match the list's current version. Confirming an
// already confirmed block leaves the version unchanged.
func (s *Session) ConfirmBlock(messageID uuid.UUID, blockID string, expectedVersion int) (model.ScheduleList, error) {
	return s.confirm(messageID, expectedVersion, func(b model.ScheduleBlock) bool { return b.ID == blockID }, blockID)
}

// ConfirmAll marks every schedule block of a message as confirmed.
func (s *Session) ConfirmAll(messageID uuid.UUID, expectedVersion int) (model.ScheduleList, error) {
	return s.confirm(messageID, expectedVersion, func(model.ScheduleBlock) bool { return true }, "")
}

func (s *Session) confirm(messageID uuid.UUID, expectedVersion int, match func(model.ScheduleBlock) bool, blockID string) (model.ScheduleList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return model.ScheduleList{}, ErrClosed
	}
	idx := s.indexLocked(messageID)
	if idx < 0 {
		return model.ScheduleList{}, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
	}
	att := s.messages[idx].Simulation
	if att == nil || len(att.Schedule.Blocks) == 0 {
		return model.ScheduleList{}, ErrNoSchedule
	}
	if att.Schedule.Version != expectedVersion {
		return att.Schedule.Clone(), fmt.Errorf("%w: expected %d, current %d",
			ErrVersionConflict, expectedVersion, att.Schedule.Version)
	}

	// Work on a copy and swap it in whole.
	next := att.Schedule.Clone()
	found, changed := false, false
	for i, b := range next.Blocks {
		if !match(b) {
			continue
		}
		found = true
		if b.Status != model.BlockConfirmed {
			next.Blocks[i].Status = model.BlockConfirmed
			changed = true
		}
	}
	if blockID != "" && !found {
		return model.ScheduleList{}, fmt.Errorf("%w: schedule block %q", ErrNotFound, blockID)
	}
	if !changed {
		return next, nil
	}

	next.Version++
	updated := att.Clone()
	updated.Schedule = next
	s.messages[idx].Simulation = &updated
	s.updatedAt = time.Now().UTC()

	out := next.Clone()
	mid := messageID
	s.notifier.Publish(Event{SessionID: s.id, Kind: EventSchedule, MessageID: &mid, Schedule: &out})
	return next.Clone(), nil
}

// Message returns a copy of one message.
func (s *Session) Message(id uuid.UUID) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return model.Message{}, fmt.Errorf("%w: message %s", ErrNotFound, id)
	}
	return s.messages[idx].Clone(), nil
}

// Snapshot returns a deep copy of the session.
func (s *Session) Snapshot() model.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]model.Message, len(s.messages))
	for i, m := range s.messages {
		msgs[i] = m.Clone()
	}
	return model.SessionSnapshot{
		ID:        s.id,
		Persona:   s.persona,
		State:     s.state,
		Messages:  msgs,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}

// Close cancels the pending reply timer. A manager reply already in flight
// runs to completion and is dropped. Safe to call multiple times.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.notifier.Publish(Event{SessionID: s.id, Kind: EventClosed})
}

// Wait blocks until any in-flight manager reply has returned.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// idleSince reports whether the session has been idle since before cutoff.
func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == model.StateIdle && s.updatedAt.Before(cutoff)
}

func (s *Session) appendLocked(m model.Message) {
	// Whole-list replacement keeps previously returned snapshots stable.
	next := make([]model.Message, len(s.messages), len(s.messages)+1)
	copy(next, s.messages)
	s.messages = append(next, m)
	s.updatedAt = m.CreatedAt

	out := m.Clone()
	s.notifier.Publish(Event{SessionID: s.id, Kind: EventMessage, Message: &out})
}

func (s *Session) setStateLocked(st model.ChatState) {
	s.state = st
	s.notifier.Publish(Event{SessionID: s.id, Kind: EventState, State: st})
}

func (s *Session) indexLocked(id uuid.UUID) int {
	for i, m := range s.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) turnsLocked() []model.ChatTurn {
	turns := make([]model.ChatTurn, len(s.messages))
	for i, m := range s.messages {
		turns[i] = model.ChatTurn{Role: m.Role, Content: m.Content}
	}
	return turns
}

func newMessage(role model.Role, content string, att *model.SimulationAttachment) model.Message {
	return model.Message{
		ID:         uuid.New(),
		Role:       role,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
		Simulation: att,
	}
}
