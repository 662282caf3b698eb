package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ashita-ai/nouki/internal/fixture"
	"github.com/ashita-ai/nouki/internal/model"
	"github.com/ashita-ai/nouki/internal/service/simulation"
	"github.com/ashita-ai/nouki/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gatedReplier blocks each Answer until release is closed.
type gatedReplier struct {
	release chan struct{}
	reply   string

	mu    sync.Mutex
	turns [][]model.ChatTurn
}

func newGatedReplier(reply string) *gatedReplier {
	return &gatedReplier{release: make(chan struct{}), reply: reply}
}

func (g *gatedReplier) Answer(_ context.Context, turns []model.ChatTurn) string {
	g.mu.Lock()
	g.turns = append(g.turns, turns)
	g.mu.Unlock()
	<-g.release
	return g.reply
}

func (g *gatedReplier) calls() [][]model.ChatTurn {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]model.ChatTurn(nil), g.turns...)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) states() []model.ChatState {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ChatState
	for _, e := range r.events {
		if e.Kind == EventState {
			out = append(out, e.State)
		}
	}
	return out
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func newTestStore(t *testing.T, mgr Replier, n Notifier, cfg Config) *Store {
	t.Helper()
	sim := simulation.New(fixture.Default(), testutil.TestLogger())
	st := NewStore(sim, mgr, n, cfg, testutil.TestLogger())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func waitForMessages(t *testing.T, s *Session, n int) model.SessionSnapshot {
	t.Helper()
	var snap model.SessionSnapshot
	require.Eventually(t, func() bool {
		snap = s.Snapshot()
		return snap.State == model.StateIdle && len(snap.Messages) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func TestSimulationSession_Greeting(t *testing.T) {
	st := newTestStore(t, nil, nil, Config{})
	s, err := st.Create(model.PersonaSimulation)
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, model.RoleAssistant, snap.Messages[0].Role)
	assert.Equal(t, SimulationGreeting, snap.Messages[0].Content)
	assert.Equal(t, model.StateIdle, snap.State)
}

func TestSimulationSession_Reply(t *testing.T) {
	st := newTestStore(t, nil, nil, Config{})
	s, err := st.Create(model.PersonaSimulation)
	require.NoError(t, err)

	userMsg, err := s.Submit(context.Background(), "案件名: 4CBTY2 8台で出荷シミュレーション")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, userMsg.Role)

	snap := waitForMessages(t, s, 3)
	reply := snap.Messages[2]
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Contains(t, reply.Content, "【出荷シミュレーション結果】")
	require.NotNil(t, reply.Simulation)
	assert.Equal(t, "4CBTY2", reply.Simulation.MatchedKey)
	assert.Equal(t, "2025-11-15", reply.Simulation.ShipDate)
	assert.Equal(t, 1, reply.Simulation.Schedule.Version)
	assert.Len(t, reply.Simulation.Schedule.Blocks, 4)
}

func TestSimulationSession_Guidance(t *testing.T) {
	st := newTestStore(t, nil, nil, Config{})
	s, err := st.Create(model.PersonaSimulation)
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), "案件名:")
	require.NoError(t, err)

	snap := waitForMessages(t, s, 3)
	assert.Equal(t, simulation.GuidanceMessage, snap.Messages[2].Content)
	assert.Nil(t, snap.Messages[2].Simulation)
}

func TestSimulationSession_StateSequence(t *testing.T) {
	rec := &recorder{}
	st := newTestStore(t, nil, rec, Config{ReplyDelayMin: 20 * time.Millisecond, ReplyDelayMax: 20 * time.Millisecond})
	s, err := st.Create(model.PersonaSimulation)
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), "XYZ999 10台")
	require.NoError(t, err)
	waitForMessages(t, s, 3)

	want := []model.ChatState{model.StateAwaiting, model.StateScanning, model.StateIdle}
	if diff := cmp.Diff(want, rec.states()); diff != "" {
		t.Errorf("state sequence (-want +got):\n%s", diff)
	}
	wantKinds := []EventKind{EventMessage, EventState, EventState, EventMessage, EventState}
	if diff := cmp.Diff(wantKinds, rec.kinds()); diff != "" {
		t.Errorf("event kinds (-want +got):\n%s", diff)
	}
}

func TestSubmit_BusyWhilePending(t *testing.T) {
	st := newTestStore(t, nil, nil, Config{ReplyDelayMin: time.Hour, ReplyDelayMax: time.Hour})
	s, err := st.Create(model.PersonaSimulation)
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), "4CBTY2")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), "4CBTYK4")
	assert.ErrorIs(t, err, ErrBusy)

	assert.Equal(t, model.StateAwaiting, s.State())
	assert.Len(t, s.Snapshot().Messages, 2, "rejected submit must not append")
}

func TestSubmit_Validation(t *testing.T) {
	st := newTestStore(t, nil, nil, Config{})
	s, err := st.Create(model.PersonaSimulation)
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), "  \n\t ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = s.Submit(context.Background(), strings.Repeat("あ", model.MaxMessageLen+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	assert.Equal(t, model.StateIdle, s.State())
}

func TestClose_CancelsPendingTimer(t *testing.T) {
	st := newTestStore(t, nil, nil, Config{ReplyDelayMin: 30 * time.Millisecond, ReplyDelayMax: 30 * time.Millisecond})
	s, err := st.Create(model.PersonaSimulation)
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), "4CBTY2")
	require.NoError(t, err)
	s.Close()

	time.Sleep(80 * time.Millisecond)
	assert.Len(t, s.Snapshot().Messages, 2)

	_, err = s.Submit(context.Background(), "4CBTY2")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManagerSession_Reply(t *testing.T) {
	mgr := newGatedReplier("了解です。進めてください。")
	st := newTestStore(t, mgr, nil, Config{})
	s, err := st.Create(model.PersonaManager)
	require.NoError(t, err)
	assert.Empty(t, s.Snapshot().Messages)

	_, err = s.Submit(context.Background(), "来週の出荷、前倒しできますか")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), "もう一件")
	assert.ErrorIs(t, err, ErrBusy)

	close(mgr.release)
	snap := waitForMessages(t, s, 2)
	assert.Equal(t, "了解です。進めてください。", snap.Messages[1].Content)

	calls := mgr.calls()
	require.Len(t, calls, 1)
	want := []model.ChatTurn{{Role: model.RoleUser, Content: "来週の出荷、前倒しできますか"}}
	if diff := cmp.Diff(want, calls[0]); diff != "" {
		t.Errorf("turns sent (-want +got):\n%s", diff)
	}
}

func TestManagerSession_HistoryIsSent(t *testing.T) {
	mgr := newGatedReplier("はい")
	close(mgr.release)
	st := newTestStore(t, mgr, nil, Config{})
	s, err := st.Create(model.PersonaManager)
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), "一通目")
	require.NoError(t, err)
	waitForMessages(t, s, 2)
	_, err = s.Submit(context.Background(), "二通目")
	require.NoError(t, err)
	waitForMessages(t, s, 4)

	calls := mgr.calls()
	require.Len(t, calls, 2)
	assert.Len(t, calls[1], 3)
	assert.Equal(t, model.RoleAssistant, calls[1][1].Role)
}

func TestClose_DiscardsInflightReply(t *testing.T) {
	mgr := newGatedReplier("late")
	st := newTestStore(t, mgr, nil, Config{})
	s, err := st.Create(model.PersonaManager)
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), "hello")
	require.NoError(t, err)
	s.Close()
	close(mgr.release)
	s.Wait()

	snap := s.Snapshot()
	assert.Len(t, snap.Messages, 1)
}

func TestSubmit_ReplyOutlivesRequestContext(t *testing.T) {
	mgr := newGatedReplier("ok")
	close(mgr.release)
	st := newTestStore(t, mgr, nil, Config{})
	s, err := st.Create(model.PersonaManager)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	_, err = s.Submit(ctx, "hello")
	require.NoError(t, err)
	cancel()

	snap := waitForMessages(t, s, 2)
	assert.Equal(t, "ok", snap.Messages[1].Content)
}

func simulatedReply(t *testing.T, s *Session, text string) model.Message {
	t.Helper()
	want := len(s.Snapshot().Messages) + 2
	_, err := s.Submit(context.Background(), text)
	require.NoError(t, err)
	snap := waitForMessages(t, s, want)
	last := snap.Messages[len(snap.Messages)-1]
	require.NotNil(t, last.Simulation)
	return last
}

func TestConfirmBlock(t *testing.T) {
	rec := &recorder{}
	st := newTestStore(t, nil, rec, Config{})
	s, err := st.Create(model.PersonaSimulation)
	require.NoError(t, err)
	reply := simulatedReply(t, s, "案件名: 4CBTY2 8台")
	before := s.Snapshot()

	list, err := s.ConfirmBlock(reply.ID, "S-2", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Version)
	assert.Equal(t, model.BlockConfirmed, list.Blocks[1].Status)
	assert.Equal(t, model.BlockNeedsReview, list.Blocks[2].Status)

	// Earlier snapshots are unaffected.
	assert.Equal(t, model.BlockAdjusting, before.Messages[2].Simulation.Schedule.Blocks[1].Status)

	// The stored message reflects the change.
	stored, err := s.Message(reply.ID)
	require.NoError(t, err)
	assert.Equal(t, list, stored.Simulation.Schedule)

	// Mutating the returned copy does not reach the session.
	list.Blocks[0].Status = model.BlockNeedsReview
	stored, err = s.Message(reply.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BlockConfirmed, stored.Simulation.Schedule.Blocks[0].Status)

	kinds := rec.kinds()
	assert.Equal(t, EventSchedule, kinds[len(kinds)-1])
}

func TestConfirmBlock_Errors(t *testing.T) {
	st := newTestStore(t, nil, nil, Config{})
	s, err := st.Create(model.PersonaSimulation)
	require.NoError(t, err)
	reply := simulatedReply(t, s, "案件名: 4CBTY2 8台")
	greeting := s.Snapshot().Messages[0]

	_, err = s.ConfirmBlock(reply.ID, "S-9", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ConfirmBlock(uuid.New(), "S-1", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ConfirmBlock(greeting.ID, "S-1", 1)
	assert.ErrorIs(t, err, ErrNoSchedule)

	_, err = s.ConfirmBlock(reply.ID, "S-2", 1)
	require.NoError(t, err)
	current, err := s.ConfirmBlock(reply.ID, "S-3", 1)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, 2, current.Version, "conflict returns the current list")
}

func TestConfirmBlock_AlreadyConfirmedKeepsVersion(t *testing.T) {
	st := newTestStore(t, nil, nil, Config{})
	s, err := st.Create(model.PersonaSimulation)
	require.NoError(t, err)
	reply := simulatedReply(t, s, "案件名: 4CBTY2 8台")

	list, err := s.ConfirmBlock(reply.ID, "S-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Version)
}

func TestConfirmAll(t *testing.T) {
	st := newTestStore(t, nil, nil, Config{})
	s, err := st.Create(model.PersonaSimulation)
	require.NoError(t, err)
	reply := simulatedReply(t, s, "案件名: 4CBTYK4 4台")

	list, err := s.ConfirmAll(reply.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Version)
	for _, b := range list.Blocks {
		assert.Equal(t, model.BlockConfirmed, b.Status, "block %s", b.ID)
	}

	again, err := s.ConfirmAll(reply.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Version)
}
