package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/nouki/internal/ratelimit"
	"github.com/ashita-ai/nouki/internal/service/chat"
	"github.com/ashita-ai/nouki/internal/service/manager"
	"github.com/ashita-ai/nouki/internal/service/simulation"
)

// Server is the nouki HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): Limiter, Broker, MCPServer, UIFS, OpenAPISpec.
type ServerConfig struct {
	// Required dependencies.
	SimulationSvc *simulation.Service
	Store         *chat.Store
	Proxy         *manager.Proxy
	Logger        *slog.Logger

	// Optional dependencies (nil = disabled).
	Limiter   ratelimit.Limiter
	Broker    *Broker
	MCPServer *mcpserver.MCPServer

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64

	// Optional embedded assets.
	UIFS        fs.FS  // Embedded chat UI.
	OpenAPISpec []byte // Embedded OpenAPI YAML.

	// Extension points supplied by embedders of the root package.
	ExtraRoutes []func(*http.ServeMux)
	Middlewares []func(http.Handler) http.Handler // first is outermost
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		SimulationSvc:       cfg.SimulationSvc,
		Store:               cfg.Store,
		Proxy:               cfg.Proxy,
		Broker:              cfg.Broker,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		OpenAPISpec:         cfg.OpenAPISpec,
	})

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}
	// Routes that do real work per call are limited by client IP. Reads,
	// the event stream, and health are not.
	limited := ratelimit.Middleware(limiter, ratelimit.IPKeyFunc, rateLimited, cfg.Logger)

	mux := http.NewServeMux()

	// Manager proxy. Each call is a paid upstream completion.
	mux.Handle("POST /api/chat", limited(http.HandlerFunc(h.HandleManagerChat)))

	// Stateless simulation pipeline.
	mux.Handle("POST /v1/simulate", limited(http.HandlerFunc(h.HandleSimulate)))
	mux.Handle("POST /v1/extract", limited(http.HandlerFunc(h.HandleExtract)))
	mux.HandleFunc("GET /v1/profiles", h.HandleListProfiles)
	mux.HandleFunc("GET /v1/profiles/{key}", h.HandleGetProfile)

	// Chat sessions.
	mux.Handle("POST /v1/sessions", limited(http.HandlerFunc(h.HandleCreateSession)))
	mux.HandleFunc("GET /v1/sessions/{id}", h.HandleGetSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", h.HandleDeleteSession)
	mux.Handle("POST /v1/sessions/{id}/messages", limited(http.HandlerFunc(h.HandleSendMessage)))
	mux.HandleFunc("POST /v1/sessions/{id}/messages/{message_id}/schedule/confirm", h.HandleConfirmSchedule)
	mux.HandleFunc("GET /v1/sessions/{id}/messages/{message_id}/schedule.xlsx", h.HandleExportSchedule)

	// Event stream (no rate limit, long-lived connection).
	mux.HandleFunc("GET /v1/sessions/{id}/events", h.HandleSessionEvents)

	// MCP StreamableHTTP transport.
	if cfg.MCPServer != nil {
		mcpHTTP := mcpserver.NewStreamableHTTPServer(cfg.MCPServer)
		mux.Handle("/mcp", limited(mcpHTTP))
	}

	mux.HandleFunc("GET /openapi.yaml", h.HandleOpenAPISpec)
	mux.HandleFunc("GET /health", h.HandleHealth)

	for _, register := range cfg.ExtraRoutes {
		register(mux)
	}

	// Registered last so all API routes take priority via the mux's longest-match rule.
	if cfg.UIFS != nil {
		mux.Handle("/", newSPAHandler(cfg.UIFS))
		cfg.Logger.Info("ui enabled, serving chat page at /")
	}

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → recovery → handler.
	// Rate limiting is applied per route above.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)
	for i := len(cfg.Middlewares) - 1; i >= 0; i-- {
		handler = cfg.Middlewares[i](handler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
