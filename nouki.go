// Package nouki is the public API for embedding the nouki shipment-simulation
// chat server.
//
// Consumers import this package to construct and extend the server without
// forking it:
//
//	app, err := nouki.New(
//	    nouki.WithVersion(version),
//	    nouki.WithLogger(logger),
//	    nouki.WithEventHook(auditHook{}),
//	    nouki.WithExtraRoutes(internalRoutes),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: nouki (root) imports
// internal/*, but internal/* never imports nouki (root). Public types
// (Turn, SessionEvent, Message) are standalone structs with no internal
// imports; the converters live here because this is the only file that sees
// both sides of the boundary.
package nouki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ashita-ai/nouki/api"
	"github.com/ashita-ai/nouki/internal/config"
	"github.com/ashita-ai/nouki/internal/fixture"
	"github.com/ashita-ai/nouki/internal/mcp"
	"github.com/ashita-ai/nouki/internal/model"
	"github.com/ashita-ai/nouki/internal/ratelimit"
	"github.com/ashita-ai/nouki/internal/server"
	"github.com/ashita-ai/nouki/internal/service/chat"
	"github.com/ashita-ai/nouki/internal/service/manager"
	"github.com/ashita-ai/nouki/internal/service/simulation"
	"github.com/ashita-ai/nouki/internal/telemetry"
	"github.com/ashita-ai/nouki/ui"
)

// App is the nouki server lifecycle. Construct with New(), run with Run().
// App has no public fields; use New() options to configure it.
type App struct {
	cfg          config.Config
	srv          *server.Server
	store        *chat.Store
	limiter      ratelimit.Limiter
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string

	shutdownOnce sync.Once
	shutdownErr  error
}

// New wires all subsystems and returns a ready-to-run App.
// It does NOT accept HTTP connections. Call Run().
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("nouki starting", "version", version, "port", cfg.Port)

	table := fixture.Default()
	if o.profiles != nil {
		table, err = fixture.Load(o.profiles)
		if err != nil {
			return nil, fmt.Errorf("profiles: %w", err)
		}
	}
	logger.Info("profile table loaded", "profiles", table.Len())

	otelShutdown, err := telemetry.Init(context.Background(), telemetry.Options{
		Endpoint:       cfg.OTELEndpoint,
		Insecure:       cfg.OTELInsecure,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	// Manager provider: an external override takes priority over auto-detect.
	var provider manager.Provider
	if o.completionProvider != nil {
		provider = &providerAdapter{p: o.completionProvider}
		logger.Info("manager provider: external", "name", o.completionProvider.Name())
	} else {
		provider = newManagerProvider(context.Background(), cfg, logger)
	}

	simSvc := simulation.New(table, logger)
	proxy := manager.NewProxy(provider, logger)
	broker := server.NewBroker(logger)

	// Adapt event hooks from public nouki.EventHook to internal server.SessionHook.
	var hooks []server.SessionHook
	for _, h := range o.eventHooks {
		hooks = append(hooks, &sessionHookAdapter{hook: h})
	}

	store := chat.NewStore(simSvc, proxy, server.NewHookNotifier(broker, hooks, logger), chat.Config{
		ReplyDelayMin: cfg.ReplyDelayMin,
		ReplyDelayMax: cfg.ReplyDelayMax,
		MaxSessions:   cfg.MaxSessions,
		IdleTimeout:   cfg.SessionIdleTimeout,
	}, logger)

	mcpSrv := mcp.New(simSvc, logger, version)

	uiFS, err := ui.DistFS()
	if err != nil {
		_ = store.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("ui: %w", err)
	}
	if uiFS != nil {
		logger.Info("ui: embedded chat page loaded")
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}

	var extraRoutes []func(*http.ServeMux)
	for _, fn := range o.routeRegistrars {
		extraRoutes = append(extraRoutes, func(mux *http.ServeMux) { fn(mux) })
	}
	var middlewares []func(http.Handler) http.Handler
	for _, mw := range o.middlewares {
		middlewares = append(middlewares, func(h http.Handler) http.Handler { return mw(h) })
	}

	srv := server.New(server.ServerConfig{
		SimulationSvc:       simSvc,
		Store:               store,
		Proxy:               proxy,
		Logger:              logger,
		Limiter:             limiter,
		Broker:              broker,
		MCPServer:           mcpSrv.MCPServer(),
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		UIFS:                uiFS,
		OpenAPISpec:         api.OpenAPISpec,
		ExtraRoutes:         extraRoutes,
		Middlewares:         middlewares,
	})

	return &App{
		cfg:          cfg,
		srv:          srv,
		store:        store,
		limiter:      limiter,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// Handler returns the fully wrapped root handler, for mounting the app in
// tests or behind another server.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}

// Run starts the HTTP server, then blocks until ctx is cancelled or the
// server fails. On return, Shutdown has been called, so callers should not
// call Shutdown separately.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown(context.Background())
	})
	return g.Wait()
}

// Shutdown stops accepting HTTP requests and drains in-flight ones, then
// closes every session, the rate limiter, and the OTEL providers.
// Safe to call more than once; later calls return the first result.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		a.logger.Info("nouki shutting down")

		httpCtx, cancel := contextWithOptionalTimeout(ctx, a.cfg.ShutdownTimeout)
		if err := a.srv.Shutdown(httpCtx); err != nil {
			a.logger.Error("http shutdown error", "error", err)
			a.shutdownErr = fmt.Errorf("http shutdown: %w", err)
		}
		cancel()

		if err := a.store.Close(); err != nil {
			a.logger.Warn("session store close", "error", err)
		}
		if err := a.limiter.Close(); err != nil {
			a.logger.Warn("rate limiter close", "error", err)
		}
		if err := a.otelShutdown(context.Background()); err != nil {
			a.logger.Warn("telemetry shutdown", "error", err)
		}

		a.logger.Info("nouki stopped")
	})
	return a.shutdownErr
}

// ── Adapters ─────────────────────────────────────────────────────────────────

// providerAdapter wraps a public CompletionProvider as a manager.Provider.
type providerAdapter struct {
	p CompletionProvider
}

func (a *providerAdapter) Name() string { return a.p.Name() }

func (a *providerAdapter) Complete(ctx context.Context, system string, turns []model.ChatTurn) (string, error) {
	pub := make([]Turn, len(turns))
	for i, t := range turns {
		pub[i] = Turn{Role: Role(t.Role), Content: t.Content}
	}
	return a.p.Complete(ctx, system, pub)
}

// sessionHookAdapter wraps a public EventHook as a server.SessionHook.
type sessionHookAdapter struct {
	hook EventHook
}

func (a *sessionHookAdapter) OnSessionEvent(ctx context.Context, ev chat.Event) error {
	return a.hook.OnSessionEvent(ctx, toPublicEvent(ev))
}

// ── Type converters ──────────────────────────────────────────────────────────

// toPublicEvent converts an internal chat.Event to the public SessionEvent.
func toPublicEvent(ev chat.Event) SessionEvent {
	out := SessionEvent{
		SessionID: ev.SessionID,
		Kind:      EventKind(ev.Kind),
		State:     string(ev.State),
		MessageID: ev.MessageID,
	}
	if ev.Message != nil {
		m := toPublicMessage(*ev.Message)
		out.Message = &m
	}
	if ev.Schedule != nil {
		out.ScheduleVersion = ev.Schedule.Version
		for _, b := range ev.Schedule.Blocks {
			if b.Status == model.BlockConfirmed {
				out.ConfirmedBlocks = append(out.ConfirmedBlocks, b.ID)
			}
		}
	}
	return out
}

func toPublicMessage(m model.Message) Message {
	out := Message{
		ID:        m.ID,
		Role:      Role(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if m.Simulation != nil {
		out.MatchedKey = m.Simulation.MatchedKey
		out.ShipDate = m.Simulation.ShipDate
	}
	return out
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// newManagerProvider picks the completion backend for the manager persona.
// It returns nil when none is available; the proxy then reports
// manager.ErrNotConfigured.
func newManagerProvider(ctx context.Context, cfg config.Config, logger *slog.Logger) manager.Provider {
	switch cfg.ManagerProvider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			logger.Error("OPENAI_API_KEY required when NOUKI_MANAGER_PROVIDER=openai")
		}
		logger.Info("manager provider: openai", "model", cfg.ManagerModel)
		return manager.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.ManagerModel, cfg.OpenAIBaseURL)
	case config.ProviderOllama:
		logger.Info("manager provider: ollama", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		return manager.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel)
	case config.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			logger.Error("GEMINI_API_KEY required when NOUKI_MANAGER_PROVIDER=gemini")
		}
		return newGeminiProvider(ctx, cfg, logger)
	case config.ProviderNone:
		logger.Info("manager provider: none (manager persona will apologise)")
		return nil
	case config.ProviderAuto:
		fallthrough
	default:
		if manager.Reachable(ctx, cfg.OllamaURL) {
			logger.Info("manager provider: ollama (auto-detected)", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
			return manager.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel)
		}
		if cfg.OpenAIAPIKey != "" {
			logger.Info("manager provider: openai (auto-detected)", "model", cfg.ManagerModel)
			return manager.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.ManagerModel, cfg.OpenAIBaseURL)
		}
		if cfg.GeminiAPIKey != "" {
			return newGeminiProvider(ctx, cfg, logger)
		}
		logger.Warn("no manager provider available (manager persona will apologise)")
		return nil
	}
}

func newGeminiProvider(ctx context.Context, cfg config.Config, logger *slog.Logger) manager.Provider {
	p, err := manager.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Error("gemini provider init failed", "error", err)
		return nil
	}
	logger.Info("manager provider: gemini", "model", cfg.GeminiModel)
	return p
}

func contextWithOptionalTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
