package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ashita-ai/nouki/internal/service/chat"
)

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 64

// Broker fans out chat session events to SSE subscribers. It implements
// chat.Notifier, so the session store publishes into it directly.
//
// Subscribers are grouped by session. A closed event removes and closes
// every channel subscribed to that session.
type Broker struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[chan []byte]struct{}
}

// NewBroker creates a new SSE broker.
func NewBroker(logger *slog.Logger) *Broker {
	return &Broker{
		logger:      logger,
		subscribers: make(map[uuid.UUID]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives SSE-formatted events for one
// session. The caller must call Unsubscribe when done.
func (b *Broker) Subscribe(sessionID uuid.UUID) chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	b.mu.Lock()
	subs, ok := b.subscribers[sessionID]
	if !ok {
		subs = make(map[chan []byte]struct{})
		b.subscribers[sessionID] = subs
	}
	subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel and closes it. It is a no-op if
// the channel was already closed by a session close event.
func (b *Broker) Unsubscribe(sessionID uuid.UUID, ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.subscribers[sessionID]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	if len(subs) == 0 {
		delete(b.subscribers, sessionID)
	}
	close(ch)
}

// Subscribers returns the number of open subscriptions across all sessions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, subs := range b.subscribers {
		n += len(subs)
	}
	return n
}

// Publish implements chat.Notifier.
func (b *Broker) Publish(ev chat.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("broker: marshal event", "session_id", ev.SessionID, "kind", ev.Kind, "error", err)
		return
	}
	b.broadcast(ev.SessionID, formatSSE(string(ev.Kind), data))

	if ev.Kind == chat.EventClosed {
		b.closeSession(ev.SessionID)
	}
}

// broadcast sends an event to the session's subscribers. Slow subscribers
// that have a full buffer are skipped (their event is dropped) so one slow
// client cannot stall the session that is publishing.
func (b *Broker) broadcast(sessionID uuid.UUID, event []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[sessionID] {
		select {
		case ch <- event:
		default:
			b.logger.Debug("broker: subscriber buffer full, event dropped", "session_id", sessionID)
		}
	}
}

func (b *Broker) closeSession(sessionID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers[sessionID] {
		close(ch)
	}
	delete(b.subscribers, sessionID)
}

// formatSSE formats an event as a Server-Sent Events message.
func formatSSE(eventType string, data []byte) []byte {
	// SSE format: "event: <type>\ndata: <payload>\n\n"
	out := make([]byte, 0, len(eventType)+len(data)+16)
	out = append(out, "event: "...)
	out = append(out, eventType...)
	out = append(out, "\ndata: "...)
	out = append(out, data...)
	out = append(out, "\n\n"...)
	return out
}
