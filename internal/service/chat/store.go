package chat

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/nouki/internal/model"
)

var (
	ErrInvalidPersona  = errors.New("chat: invalid persona")
	ErrTooManySessions = errors.New("chat: session limit reached")
)

const (
	defaultSweepEvery   = time.Minute
	defaultMaxSessions  = 1000
	defaultIdleLifetime = 30 * time.Minute
)

// Config controls reply pacing and session lifetime.
type Config struct {
	ReplyDelayMin time.Duration
	ReplyDelayMax time.Duration

	MaxSessions   int           // 0 means the default (1000)
	IdleTimeout   time.Duration // 0 means the default (30m); negative disables eviction
	SweepInterval time.Duration // 0 means the default (1m)
}

// Store holds the live sessions of the process.
//
// A background goroutine evicts sessions that have been idle longer than
// Config.IdleTimeout. Call Close to stop it.
type Store struct {
	sim      Simulator
	mgr      Replier
	notifier Notifier
	cfg      Config
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	closed   bool

	stopOnce sync.Once
	done     chan struct{}
	swept    chan struct{}
}

// NewStore creates a session store. notifier may be nil.
func NewStore(sim Simulator, mgr Replier, notifier Notifier, cfg Config, logger *slog.Logger) *Store {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = defaultMaxSessions
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = defaultIdleLifetime
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepEvery
	}
	st := &Store{
		sim:      sim,
		mgr:      mgr,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[uuid.UUID]*Session),
		done:     make(chan struct{}),
		swept:    make(chan struct{}),
	}
	if cfg.IdleTimeout > 0 {
		go st.cleanup()
	} else {
		close(st.swept)
	}
	return st
}

// Create starts a new session for persona.
func (st *Store) Create(persona model.Persona) (*Session, error) {
	if !persona.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPersona, persona)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return nil, ErrClosed
	}
	if len(st.sessions) >= st.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}
	s := newSession(persona, st.sim, st.mgr, st.notifier, st.cfg, st.logger)
	st.sessions[s.id] = s
	st.logger.Debug("chat: session created", "session_id", s.id, "persona", persona)
	return s, nil
}

// Get returns a live session.
func (st *Store) Get(id uuid.UUID) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	return s, nil
}

// Delete closes and forgets a session.
func (st *Store) Delete(id uuid.UUID) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	s.Close()
	return nil
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Close stops eviction and closes every session. Safe to call multiple times.
func (st *Store) Close() error {
	st.stopOnce.Do(func() { close(st.done) })
	<-st.swept

	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[uuid.UUID]*Session)
	st.closed = true
	st.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	return nil
}

// cleanup periodically evicts sessions that have been idle too long.
func (st *Store) cleanup() {
	defer close(st.swept)
	ticker := time.NewTicker(st.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-st.done:
			return
		case <-ticker.C:
			st.evictIdle(time.Now().Add(-st.cfg.IdleTimeout))
		}
	}
}

func (st *Store) evictIdle(cutoff time.Time) int {
	st.mu.Lock()
	var stale []*Session
	for id, s := range st.sessions {
		if s.idleSince(cutoff) {
			stale = append(stale, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		st.logger.Info("chat: evicted idle sessions", "count", len(stale))
	}
	return len(stale)
}
