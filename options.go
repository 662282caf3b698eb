package nouki

import (
	"log/slog"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported; callers use the With* functions.
type resolvedOptions struct {
	port               int
	logger             *slog.Logger
	version            string
	completionProvider CompletionProvider
	profiles           []byte
	eventHooks         []EventHook
	routeRegistrars    []RouteRegistrar
	middlewares        []Middleware
}

// WithPort overrides the TCP port from config (NOUKI_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithCompletionProvider replaces the auto-detected manager provider
// (NOUKI_MANAGER_PROVIDER). Only the last call wins.
func WithCompletionProvider(p CompletionProvider) Option {
	return func(o *resolvedOptions) { o.completionProvider = p }
}

// WithProfiles replaces the compiled-in profile table with a YAML document in
// the same format. New fails if the document does not validate.
func WithProfiles(yamlDoc []byte) Option {
	return func(o *resolvedOptions) { o.profiles = yamlDoc }
}

// WithEventHook registers an event hook to receive session notifications.
// Multiple hooks may be registered; all registered hooks receive every event.
func WithEventHook(hook EventHook) Option {
	return func(o *resolvedOptions) { o.eventHooks = append(o.eventHooks, hook) }
}

// WithExtraRoutes registers additional routes on the shared HTTP mux.
// Multiple registrars may be registered; all are called in registration order.
func WithExtraRoutes(fn RouteRegistrar) Option {
	return func(o *resolvedOptions) { o.routeRegistrars = append(o.routeRegistrars, fn) }
}

// WithMiddleware registers an outermost HTTP middleware.
// Multiple middlewares may be registered. Applied in registration order:
// the first-registered middleware is outermost (called first by every request).
func WithMiddleware(mw Middleware) Option {
	return func(o *resolvedOptions) { o.middlewares = append(o.middlewares, mw) }
}
