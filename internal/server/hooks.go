package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashita-ai/nouki/internal/service/chat"
)

// SessionHook receives chat session events within the server layer.
// Defined here (not in the root nouki package) to avoid a circular import.
// The root package wraps nouki.EventHook into SessionHook via an adapter.
type SessionHook interface {
	OnSessionEvent(ctx context.Context, ev chat.Event) error
}

const hookTimeout = 10 * time.Second

// HookNotifier publishes to the broker and then hands each event to every
// hook in its own goroutine. Hook failures are logged and never reach the
// session that produced the event.
type HookNotifier struct {
	broker *Broker
	hooks  []SessionHook
	logger *slog.Logger
}

// NewHookNotifier combines a broker with hooks. broker may be nil.
func NewHookNotifier(broker *Broker, hooks []SessionHook, logger *slog.Logger) *HookNotifier {
	return &HookNotifier{broker: broker, hooks: hooks, logger: logger}
}

// Publish implements chat.Notifier.
func (n *HookNotifier) Publish(ev chat.Event) {
	if n.broker != nil {
		n.broker.Publish(ev)
	}
	for _, hook := range n.hooks {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
			defer cancel()
			if err := hook.OnSessionEvent(ctx, ev); err != nil {
				n.logger.Warn("session hook failed",
					"session_id", ev.SessionID,
					"kind", ev.Kind,
					"error", err,
				)
			}
		}()
	}
}
