package nouki

import (
	"context"
	"net/http"
)

// CompletionProvider answers the manager persona.
// When provided via WithCompletionProvider, replaces the auto-detected
// Ollama/OpenAI/Gemini provider. Complete receives the persona system prompt
// and the conversation so far and returns the assistant's reply. Errors are
// logged and shown to users only as a fixed apology.
type CompletionProvider interface {
	Complete(ctx context.Context, system string, turns []Turn) (string, error)
	Name() string
}

// EventHook receives async notifications when a chat session changes.
// Multiple hooks may be registered via multiple WithEventHook calls.
// Hook methods run in goroutines with a timeout and must not block
// indefinitely. Failures are logged and never reach the session.
type EventHook interface {
	OnSessionEvent(ctx context.Context, ev SessionEvent) error
}

// RouteRegistrar registers additional routes on the shared HTTP mux.
// Extra routes share the mux and the middleware chain (request IDs, tracing,
// logging, recovery) with the built-in routes. Called once during New after
// the built-in routes are registered.
type RouteRegistrar func(mux *http.ServeMux)

// Middleware wraps the root HTTP handler.
// Applied outermost (before routing), so it sees all requests including /health.
// Multiple middlewares are applied in registration order (first-registered = outermost).
type Middleware func(http.Handler) http.Handler
