package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/sheets/v4"

	"collectdash/internal/auth"
	"collectdash/internal/cache"
	"collectdash/internal/chat"
	"collectdash/internal/collections"
	"collectdash/internal/config"
	apierrors "collectdash/internal/errors"
	"collectdash/internal/infrastructure"
	customMiddleware "collectdash/internal/middleware"
	"collectdash/internal/scheduler"
	"collectdash/internal/services"
	"collectdash/internal/sources"
	handlers "collectdash/internal/transport/http"
	ws "collectdash/internal/websocket"
	"collectdash/pkg/contracts"
)

const AppName = "Collections Dashboard"

// memoryCacheSize bounds the in-process snapshot cache. Only the current and
// previous epochs are ever useful.
const memoryCacheSize = 4

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics

	Dashboard     *services.DashboardService
	HealthService *services.HealthService
	Auth          *auth.Service
	Chat          *chat.Service
	WebSocketHub  *ws.Hub
	Scheduler     *scheduler.Scheduler

	errorHandler *apierrors.ErrorHandler
	validator    *customMiddleware.Validator
	upgrader     *websocket.Upgrader
	wsOptions    ws.ClientOptions

	sessions    *auth.SessionStore
	memoryCache *cache.MemoryCache
	redisClient *redis.Client
}

// Options overrides collaborators normally built from configuration.
type Options struct {
	// Source replaces the configured batch source.
	Source collections.BatchSource
	// ChatStore replaces the configured chat store.
	ChatStore chat.Store
	// Logger replaces the logger built from cfg.Logging.
	Logger *slog.Logger
}

// NewApplication loads configuration and builds the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewApplicationWithConfig(cfg, Options{})
}

// NewApplicationWithConfig builds the application from cfg.
func NewApplicationWithConfig(cfg *config.Config, opts Options) (*Application, error) {
	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("source", cfg.Source.Kind),
		slog.String("cache", cfg.Cache.Backend))

	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.ServiceName = cfg.Telemetry.ServiceName
	otelCfg.EnableTracing = cfg.Telemetry.TracingEnabled
	otelCfg.EnableMetrics = cfg.Telemetry.MetricsEnabled
	otelProviders, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		errorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
		validator:     customMiddleware.NewValidator(logger),
	}

	if err := app.initializeServices(opts); err != nil {
		app.release()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

// initializeServices wires source, cache, dashboard, auth, chat, hub and
// scheduler.
func (a *Application) initializeServices(opts Options) error {
	ctx := context.Background()
	cfg := a.Config

	var sheetsSvc *sheetsClient
	source := opts.Source
	if source == nil {
		var err error
		source, sheetsSvc, err = a.buildSource(ctx)
		if err != nil {
			return err
		}
	}

	policy, err := collections.ParseExclusionPolicy(cfg.Source.ExclusionPolicy)
	if err != nil {
		return err
	}
	var excluded []string
	if len(cfg.Source.Excluded) > 0 {
		excluded = cfg.Source.Excluded
	}
	normalizer := collections.NewNormalizer(collections.NormalizerOptions{
		Aliases:       mergeAliases(cfg.Source.HeaderAliases),
		CurrencyToken: cfg.Source.CurrencyToken,
	})
	aggregator := collections.NewAggregator(normalizer, collections.NewExclusions(policy, excluded), a.Logger)

	snapshots, pinger, err := a.buildCache()
	if err != nil {
		return err
	}

	a.Dashboard = services.NewDashboardService(source, aggregator, snapshots, services.DashboardOptions{
		TTL:          cfg.Cache.TTL,
		FetchTimeout: cfg.Source.FetchTimeout,
		Metrics:      a.Metrics,
		Tracer:       a.OTelProviders.Tracer,
		Logger:       a.Logger,
	})

	users, err := auth.NewUserStore(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	a.sessions = auth.NewSessionStore(cfg.Auth.SessionTTL, time.Minute)
	a.Auth = auth.NewService(users, a.sessions, a.Dashboard, a.Metrics, a.Logger)

	if cfg.Chat.Enabled {
		store := opts.ChatStore
		if store == nil {
			store = a.buildChatStore(sheetsSvc)
		}
		loc, err := chatLocation(cfg.Chat.Timezone)
		if err != nil {
			return err
		}
		a.Chat = chat.NewService(store, loc, a.Metrics, a.Logger)
	}

	a.WebSocketHub = ws.NewHub(a.Metrics, a.Logger)
	a.upgrader = ws.NewUpgrader(cfg.WebSocket, cfg.Security.AllowedOrigins)
	a.wsOptions = ws.OptionsFromConfig(cfg.WebSocket)

	if cfg.Refresh.Enabled {
		a.Scheduler, err = scheduler.New(a.Dashboard, a.WebSocketHub, scheduler.Options{
			Interval: cfg.Refresh.Interval,
			Timeout:  cfg.Source.FetchTimeout,
			Logger:   a.Logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create refresh scheduler: %w", err)
		}
	}

	stats := map[string]services.StatsReporter{"websocket": a.WebSocketHub}
	if a.memoryCache != nil {
		stats["cache"] = a.memoryCache
	}
	a.HealthService = services.NewHealthService(contracts.Version, contracts.BuildTime, contracts.GitCommit, services.HealthDeps{
		Dashboard: a.Dashboard,
		Cache:     pinger,
		Hub:       a.WebSocketHub,
		Stats:     stats,
	}, a.Logger)
	return nil
}

// sheetsClient is shared between the batch source and the chat store.
type sheetsClient struct {
	svc           *sheets.Service
	spreadsheetID string
}

func (a *Application) buildSource(ctx context.Context) (collections.BatchSource, *sheetsClient, error) {
	cfg := a.Config.Source
	switch cfg.Kind {
	case config.SourceWorkbook:
		return sources.NewWorkbookSource(cfg.WorkbookPath, a.Logger), nil, nil
	case config.SourceSheets:
		svc, err := sources.NewSheetsService(ctx, sources.SheetsConfig{
			SpreadsheetID:   cfg.SpreadsheetID,
			CredentialsFile: cfg.CredentialsFile,
		})
		if err != nil {
			return nil, nil, err
		}
		client := &sheetsClient{svc: svc, spreadsheetID: cfg.SpreadsheetID}
		return sources.NewSheetsSource(svc, cfg.SpreadsheetID, a.Logger), client, nil
	}
	return nil, nil, fmt.Errorf("unknown source kind: %q", cfg.Kind)
}

func (a *Application) buildCache() (cache.SnapshotCache, services.Pinger, error) {
	cfg := a.Config.Cache
	if cfg.Backend == config.CacheRedis {
		a.redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		rc := cache.NewRedisCache(a.redisClient, cfg.KeyPrefix)
		return rc, rc, nil
	}
	a.memoryCache = cache.NewMemoryCache(memoryCacheSize, cfg.TTL)
	return a.memoryCache, nil, nil
}

// buildChatStore keeps messages next to the batches when they live in a
// spreadsheet, and in memory otherwise.
func (a *Application) buildChatStore(client *sheetsClient) chat.Store {
	if client == nil {
		a.Logger.Warn("chat messages are kept in memory and lost on restart")
		return chat.NewMemoryStore()
	}
	return chat.NewSheetsStore(client.svc, client.spreadsheetID, a.Config.Chat.Worksheet, a.Logger)
}

func chatLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load chat timezone %q: %w", name, err)
	}
	return loc, nil
}

// mergeAliases layers configured header aliases over the defaults.
func mergeAliases(extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]string, len(collections.DefaultHeaderAliases)+len(extra))
	for k, v := range collections.DefaultHeaderAliases {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	// These don't wrap the ResponseWriter, so the WebSocket upgrade is safe.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.With(customMiddleware.Session(a.Auth, a.Logger)).Get("/ws", a.handleWebSocket)

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(apierrors.RecoveryMiddleware(a.errorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.Config.Security.AllowedOrigins))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		r.Use(customMiddleware.ContentTypeValidator("application/json"))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		authHandler := handlers.NewAuthHandler(a.Auth, a.Dashboard, a.validator, a.Logger, a.errorHandler)
		r.Mount("/auth", authHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Session(a.Auth, a.Logger))

			dashboardHandler := handlers.NewDashboardHandler(a.Dashboard, a.Logger, a.errorHandler)
			r.Mount("/dashboard", dashboardHandler.Routes())

			if a.Chat != nil {
				chatHandler := handlers.NewChatHandler(a.Chat, a.validator, a.Logger, a.errorHandler)
				r.Mount("/chat", chatHandler.Routes())
			}
		})
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts background services and the HTTP server. A listener failure
// calls cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.WebSocketHub.Start()
	if a.Scheduler != nil {
		a.Scheduler.Start()
	}

	go a.warmUp(ctx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// warmUp computes the first snapshot so readiness does not wait for the
// first scheduled tick.
func (a *Application) warmUp(ctx context.Context) {
	ctx = infrastructure.WithTraceID(ctx, infrastructure.GenerateTraceID())
	if a.Scheduler != nil {
		if err := a.Scheduler.RunOnce(ctx); err != nil {
			a.Logger.WarnContext(ctx, "initial refresh failed", slog.String("error", err.Error()))
		}
		return
	}
	if _, err := a.Dashboard.Snapshot(ctx); err != nil {
		a.Logger.WarnContext(ctx, "initial snapshot failed", slog.String("error", err.Error()))
	}
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error stopping scheduler", slog.String("error", err.Error()))
		}
	}
	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}
	a.release()

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if err := infrastructure.CloseLogFile(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	return nil
}

// release frees resources that outlive the HTTP server.
func (a *Application) release() {
	if a.sessions != nil {
		a.sessions.Stop()
	}
	if a.memoryCache != nil {
		a.memoryCache.Stop()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.Logger.Warn("Error closing redis client", slog.String("error", err.Error()))
		}
	}
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

// handleWebSocket upgrades an authenticated request and attaches the client
// to the hub.
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a.Logger.InfoContext(ctx, "WebSocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")),
		slog.String("user_agent", r.UserAgent()))

	// The upgrader has already written the HTTP error response.
	if err := ws.ServeWS(a.WebSocketHub, a.upgrader, a.wsOptions, w, r, a.Logger); err != nil {
		a.Logger.WarnContext(ctx, "WebSocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("origin", r.Header.Get("Origin")))
	}
}
