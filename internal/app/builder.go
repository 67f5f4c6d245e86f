package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/gitsorted/internal/api"
	"github.com/stacklok/gitsorted/internal/app/storage"
	"github.com/stacklok/gitsorted/internal/config"
	"github.com/stacklok/gitsorted/internal/httpclient"
	"github.com/stacklok/gitsorted/internal/notify"
	"github.com/stacklok/gitsorted/internal/service"
	"github.com/stacklok/gitsorted/internal/sources"
	pkgsync "github.com/stacklok/gitsorted/internal/sync"
	"github.com/stacklok/gitsorted/internal/sync/coordinator"
	"github.com/stacklok/gitsorted/internal/telemetry"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// SyncAppOptions is a function that configures the app builder
type SyncAppOptions func(*syncAppConfig) error

// syncAppConfig collects the builder inputs.
// Component overrides exist for tests; production leaves them nil.
type syncAppConfig struct {
	config *config.Config

	storageFactory storage.Factory
	engine         pkgsync.Engine

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...SyncAppOptions) (*syncAppConfig, error) {
	cfg := &syncAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// NewSyncApp wires the storage factory, the engine, the coordinator and the
// display server.
func NewSyncApp(
	ctx context.Context,
	opts ...SyncAppOptions,
) (*SyncApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.storageFactory == nil {
		var factoryOpts []storage.Option
		if cfg.tracerProvider != nil {
			factoryOpts = append(factoryOpts, storage.WithTracer(cfg.tracerProvider.Tracer(service.ServiceTracerName)))
		}
		cfg.storageFactory, err = storage.NewStorageFactory(ctx, cfg.config, factoryOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}

	// Ensure cleanup happens on error
	var cleanupNeeded = true
	defer func() {
		if cleanupNeeded && cfg.storageFactory != nil {
			cfg.storageFactory.Cleanup()
		}
	}()

	syncCoordinator, err := buildSyncComponents(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	issueService, err := buildServiceComponents(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build service components: %w", err)
	}

	httpServer, err := buildHTTPServer(ctx, cfg, issueService)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	cleanupNeeded = false

	factory := cfg.storageFactory
	cancelFunc := func() {
		factory.Cleanup()
		cancel()
	}

	return &SyncApp{
		config: cfg.config,
		components: &AppComponents{
			SyncCoordinator: syncCoordinator,
			IssueService:    issueService,
		},
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancelFunc,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, ok := strings.Cut(addr, ":")
		if !ok || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		switch host {
		case "localhost":
			host = "127.0.0.1"
		case "":
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithEngine allows injecting a custom sync engine (for testing)
func WithEngine(e pkgsync.Engine) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.engine = e
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for sync and HTTP metrics
func WithMeterProvider(mp metric.MeterProvider) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider
func WithTracerProvider(tp trace.TracerProvider) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler mounts a Prometheus scrape handler at /metrics
func WithMetricsHandler(h http.Handler) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// buildEngine creates the engine from the storage factory and the remote clients
func buildEngine(ctx context.Context, b *syncAppConfig, syncMetrics *telemetry.SyncMetrics) (pkgsync.Engine, error) {
	engineCfg, err := pkgsync.NewConfig(b.config)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve engine settings: %w", err)
	}

	watermark, err := b.storageFactory.CreateWatermarkReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create watermark reader: %w", err)
	}
	issueWriter, err := b.storageFactory.CreateIssueWriter(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create issue writer: %w", err)
	}

	var ghOpts []sources.GitHubOption
	if b.config.Source.BaseURL != "" {
		ghOpts = append(ghOpts, sources.WithBaseURL(b.config.Source.BaseURL))
	}
	if b.config.Source.PageSize > 0 {
		ghOpts = append(ghOpts, sources.WithPageSize(b.config.Source.PageSize))
	}
	gh, err := sources.NewGitHubClient(
		b.config.Source.Token,
		b.config.Repository.Owner,
		b.config.Repository.Name,
		ghOpts...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	notifier := notify.NewWebhookNotifier(
		httpclient.NewDefaultClient(b.config.Notify.Timeout),
		b.config.Notify.WebhookURL,
	)

	engineOpts := []pkgsync.Option{pkgsync.WithSyncMetrics(syncMetrics)}
	if b.tracerProvider != nil {
		engineOpts = append(engineOpts, pkgsync.WithTracer(b.tracerProvider.Tracer(pkgsync.EngineTracerName)))
	}

	return pkgsync.NewEngine(pkgsync.Dependencies{
		Watermark: watermark,
		Source:    gh,
		Commenter: gh,
		Notifier:  notifier,
		Writer:    issueWriter,
	}, engineCfg, engineOpts...)
}

// buildSyncComponents builds the engine and the coordinator driving it
func buildSyncComponents(
	ctx context.Context,
	b *syncAppConfig,
) (coordinator.Coordinator, error) {
	slog.Info("Initializing sync components")

	var syncMetrics *telemetry.SyncMetrics
	if b.meterProvider != nil {
		var err error
		syncMetrics, err = telemetry.NewSyncMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create sync metrics: %w", err)
		}
		slog.Info("Sync metrics enabled")
	}

	if b.engine == nil {
		engine, err := buildEngine(ctx, b, syncMetrics)
		if err != nil {
			return nil, err
		}
		b.engine = engine
	}

	syncCoordinator := coordinator.New(b.engine, b.config, coordinator.WithSyncMetrics(syncMetrics))
	slog.Info("Sync components initialized successfully",
		"repository", b.config.Repository.Owner+"/"+b.config.Repository.Name)

	return syncCoordinator, nil
}

// buildServiceComponents builds the display service
func buildServiceComponents(
	ctx context.Context,
	b *syncAppConfig,
) (service.IssueService, error) {
	slog.Info("Initializing service components")

	svc, err := b.storageFactory.CreateIssueService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create issue service: %w", err)
	}

	slog.Info("Service components initialized successfully")
	return svc, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(
	_ context.Context,
	b *syncAppConfig,
	svc service.IssueService,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Metrics and tracing go first so they observe every request
	if b.tracerProvider != nil {
		b.middlewares = append([]func(http.Handler) http.Handler{telemetry.TracingMiddleware(b.tracerProvider)}, b.middlewares...)
	}
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		if metricsMiddleware != nil {
			b.middlewares = append([]func(http.Handler) http.Handler{metricsMiddleware}, b.middlewares...)
			slog.Info("HTTP metrics middleware enabled")
		}
	}

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(b.middlewares...),
		api.WithTitle(fmt.Sprintf("Issues synchronized from %s/%s", b.config.Repository.Owner, b.config.Repository.Name)),
	}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}
	router := api.NewServer(svc, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}

// NewEngine builds a standalone engine for one-shot ticks outside the scheduler.
func NewEngine(ctx context.Context, c *config.Config, factory storage.Factory) (pkgsync.Engine, error) {
	if c == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if factory == nil {
		return nil, fmt.Errorf("storage factory cannot be nil")
	}
	return buildEngine(ctx, &syncAppConfig{config: c, storageFactory: factory}, nil)
}
