package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"soilhub/internal/config"
	apierrors "soilhub/internal/errors"
	"soilhub/internal/files"
	"soilhub/internal/infrastructure"
	customMiddleware "soilhub/internal/middleware"
	"soilhub/internal/services"
	handlers "soilhub/internal/transport/http"
	"soilhub/internal/websocket"
	"soilhub/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.AnalysisMetrics
	ErrorHandler  *apierrors.ErrorHandler
	Services      *ServiceContainer
	Hub           *websocket.Hub

	stopHub context.CancelFunc
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Registry  *files.Registry
	Datasets  *services.DatasetService
	Standards *services.StandardsStore
	Analysis  *services.AnalysisService
	Health    *services.HealthService
}

// NewApplication loads the configuration and logger and builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires every component from cfg. It does not start listening.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	if err := paths.ValidateRequiredFiles(); err != nil {
		// analyses fail with 503 until the standards table is provided
		logger.Warn("Startup file check", slog.String("warning", err.Error()))
	}

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateAnalysisMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	a.initializeHub()

	a.setupRouter()
	a.createServer()

	return a, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	manager := files.NewManager(a.Paths, a.Logger)
	registry, err := files.NewRegistry(manager, a.Paths.DatasetsFile, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load dataset registry: %w", err)
	}

	if orphans, err := registry.Orphans(); err != nil {
		a.Logger.Warn("Failed to scan uploads directory", slog.String("error", err.Error()))
	} else if len(orphans) > 0 {
		names := make([]string, 0, len(orphans))
		for _, o := range orphans {
			names = append(names, o.Name)
		}
		a.Logger.Warn("Data files without registry entry",
			slog.Int("count", len(orphans)),
			slog.String("files", strings.Join(names, ", ")))
	}

	taxonomyFile := ""
	if a.Paths.HasTaxonomyFile() {
		taxonomyFile = a.Paths.TaxonomyFile
	}
	taxonomy, err := services.LoadTaxonomy(taxonomyFile, a.Config.Analysis.CountermeasureLabels)
	if err != nil {
		return fmt.Errorf("failed to load taxonomy: %w", err)
	}

	datasets := services.NewDatasetService(registry, a.Config.Analysis, a.Metrics, a.Logger)
	standards := services.NewStandardsStore(a.Paths.StandardsFile, taxonomy, a.Metrics, a.Logger)

	analysis, err := services.NewAnalysisService(datasets, standards, taxonomy, a.Config.Analysis,
		a.OTelProviders.Tracer, a.Metrics, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize analysis service: %w", err)
	}

	health := services.NewHealthService(contracts.Version, contracts.BuildTime, a.Paths, datasets, standards, a.Logger)

	a.Services = &ServiceContainer{
		Registry:  registry,
		Datasets:  datasets,
		Standards: standards,
		Analysis:  analysis,
		Health:    health,
	}
	return nil
}

// initializeHub starts the notification hub and subscribes it to the services
func (a *Application) initializeHub() {
	ctx, cancel := context.WithCancel(context.Background())
	a.Hub = websocket.NewHub(a.Metrics, a.Logger)
	a.Hub.Start(ctx)
	a.stopHub = cancel

	a.Services.Datasets.SetEventPublisher(a.Hub)
	a.Services.Standards.SetEventPublisher(a.Hub)
	a.Services.Analysis.SetEventPublisher(a.Hub)
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID → RealIP → OTel → Logger → Recoverer → the rest
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
	if err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.ErrorHandler))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			Logger:         a.Logger,
		}))
	}

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r)
	r.Handle(config.WebSocketPath, websocket.NewHandler(a.Hub, a.Config.Security.AllowedOrigins, a.Logger))

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	validation := customMiddleware.NewValidationMiddleware(a.Logger, a.ErrorHandler)

	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		r.Use(validation.ValidateRequest)

		healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		analysisHandler := handlers.NewAnalysisHandler(a.Services.Analysis, a.Logger, a.ErrorHandler)
		r.Get("/items", analysisHandler.Items)

		datasetHandler := handlers.NewDatasetHandler(a.Services.Datasets, a.Logger, a.ErrorHandler)
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Compress(5, "application/json", "text/csv"))
			r.Mount("/datasets", datasetHandler.Routes(analysisHandler.DatasetRoutes))
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

// Start starts serving on ln in the background. A serve error cancels ctx
// through cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc, ln net.Listener) {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("address", ln.Addr().String()),
		slog.String("level", a.Config.Logging.Level))

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.checkStandards(ctx)
}

// checkStandards loads the standards table once so a broken file is
// reported at startup rather than on the first analysis
func (a *Application) checkStandards(ctx context.Context) {
	table, err := a.Services.Standards.Get(ctx)
	if err != nil {
		a.Logger.WarnContext(ctx, "Standards table not available",
			slog.String("path", a.Services.Standards.Path()),
			slog.String("error", err.Error()))
		return
	}
	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.Int("standards_items", len(table.Items())),
		slog.Int("datasets", a.Services.Registry.Len()))
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	a.stopHub()
	select {
	case <-a.Hub.Done():
	case <-shutdownCtx.Done():
		errs = append(errs, fmt.Errorf("notification hub shutdown: %w", shutdownCtx.Err()))
	}
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown error: %w", err))
	}
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("log file close error: %w", err))
	}

	a.Logger.InfoContext(ctx, "Application stopped")
	return errors.Join(errs...)
}

// Run serves until SIGINT/SIGTERM or a server error, then shuts down
func (a *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}

	a.Start(ctx, cancel, ln)
	<-ctx.Done()
	a.Logger.InfoContext(ctx, "Received shutdown signal")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+time.Second)
	defer stopCancel()
	return a.Stop(stopCtx)
}
