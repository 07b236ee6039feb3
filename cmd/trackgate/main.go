package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	corecfg "github.com/aevon-lab/trackgate/internal/core/config"
	"github.com/aevon-lab/trackgate/internal/core/storage"
	"github.com/aevon-lab/trackgate/internal/core/storage/postgres"
	"github.com/aevon-lab/trackgate/internal/dispatch"
	"github.com/aevon-lab/trackgate/internal/dispatch/providers"
	"github.com/aevon-lab/trackgate/internal/gate"
	"github.com/aevon-lab/trackgate/internal/migrations"
	"github.com/aevon-lab/trackgate/internal/schema"
	schemaapi "github.com/aevon-lab/trackgate/internal/schema/api"
	"github.com/aevon-lab/trackgate/internal/schema/formats/yaml"
	schemaStorage "github.com/aevon-lab/trackgate/internal/schema/storage"
	"github.com/aevon-lab/trackgate/internal/server"
	"github.com/aevon-lab/trackgate/internal/telemetry"
	"github.com/aevon-lab/trackgate/internal/tracking"
)

func main() {
	configPath := flag.String("config", "trackgate.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.Log.SlogLevel())
	slog.Info("Loaded config",
		"address", fmtAddr(cfg.Server.Host, cfg.Server.Port),
		"mode", cfg.Server.Mode,
		"schema_path", cfg.Schema.Path,
		"dispatch_timeout", cfg.Dispatch.Timeout,
		"delivery_log", cfg.DeliveryLog.Enabled)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Telemetry
	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Error("Failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	// 3. Schema Registry
	formatRegistry := schema.NewFormatRegistry()
	formatRegistry.RegisterFormat(schema.FormatYaml, yaml.NewCompiler())
	formatRegistry.RegisterFormat(schema.FormatJSON, yaml.NewCompiler())
	slog.Debug("Schema formats registered", "formats", formatRegistry.SupportedFormats())

	registry := schema.NewRegistry()
	if err := registry.Load(ctx, schemaStorage.NewFileSystemSource(cfg.Schema.Path), formatRegistry); err != nil {
		slog.Error("Failed to load event catalog", "path", cfg.Schema.Path, "error", err)
		os.Exit(1)
	}

	validator := schema.NewValidator(registry, schema.NewGuardRegistry())
	if err := validator.CheckGuards(); err != nil {
		slog.Error("Event catalog references unusable guards", "error", err)
		os.Exit(1)
	}
	events, _ := registry.EventNames()
	slog.Info("Event catalog loaded", "events", len(events), "names", events)

	// 4. Delivery Log (optional)
	var reportStore storage.ReportStore
	var deliveryHealth server.HealthChecker
	if cfg.DeliveryLog.Enabled {
		db, err := postgres.Open(cfg.DeliveryLog.DSN, cfg.DeliveryLog.MaxOpenConns, cfg.DeliveryLog.MaxIdleConns)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		if err := migrations.RunMigrations(db, cfg.DeliveryLog.AutoMigrate); err != nil {
			db.Close()
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}
		adapter, err := postgres.NewAdapterWithDB(db)
		if err != nil {
			slog.Error("Failed to initialize delivery log", "error", err)
			os.Exit(1)
		}
		defer adapter.Close()
		reportStore = adapter
		deliveryHealth = adapter
	} else {
		slog.Info("Delivery log disabled by config")
	}

	// 5. Providers and Dispatcher
	providerList := providers.FromConfig(cfg.Providers)
	providerStatus := providers.Status(providerList)
	slog.Info("Providers configured", "enabled", providerStatus)

	dispatcher, err := dispatch.New(cfg.Dispatch.Timeout, dispatch.WithMetrics(dispatch.NewMetricsRecorder()))
	if err != nil {
		slog.Error("Failed to initialize dispatcher", "error", err)
		os.Exit(1)
	}

	// 6. Edge Gate
	if cfg.Gate.MarkerSecret == "" {
		slog.Warn("No gate.marker_secret configured, using a per-process random key")
	}
	signer, err := gate.NewMarkerSigner(cfg.Gate.MarkerSecret, cfg.Gate.MarkerIssuer, cfg.Gate.MarkerTTL)
	if err != nil {
		slog.Error("Failed to initialize marker signer", "error", err)
		os.Exit(1)
	}
	edge := gate.New(validator, signer, int64(cfg.Server.MaxBodySizeKB)*1024)

	trackingOpts := []tracking.Option{}
	if reportStore != nil {
		trackingOpts = append(trackingOpts, tracking.WithReportStore(reportStore))
	}
	if cfg.Gate.RateLimit {
		limiter := gate.NewRateLimiter(cfg.Gate.RateLimitRPS, cfg.Gate.RateLimitBurst)
		go limiter.Run(ctx)
		trackingOpts = append(trackingOpts, tracking.WithRateLimiter(limiter))
	}

	// 7. Services
	trackingSvc := tracking.NewService(edge, validator, signer, dispatcher, providerList, trackingOpts...)
	schemaSvc := schemaapi.NewService(registry, validator)

	// 8. Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), cfg.Server.Mode, cfg.Server.TrustedProxies, server.Health{
		Providers:   providerStatus,
		Schema:      registry,
		DeliveryLog: deliveryHealth,
	})
	trackingSvc.RegisterRoutes(srv.Engine)
	schemaSvc.RegisterRoutes(srv.Engine)

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
