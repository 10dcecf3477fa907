package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/terramind/internal/adapters/executor"
	"github.com/samirrijal/terramind/internal/adapters/geojsonfile"
	"github.com/samirrijal/terramind/internal/adapters/http"
	"github.com/samirrijal/terramind/internal/adapters/llm"
	natsadapter "github.com/samirrijal/terramind/internal/adapters/nats"
	"github.com/samirrijal/terramind/internal/adapters/postgres"
	temporaladapter "github.com/samirrijal/terramind/internal/adapters/temporal"
	"github.com/samirrijal/terramind/internal/adapters/valkey"
	"github.com/samirrijal/terramind/internal/core/mapsync"
	"github.com/samirrijal/terramind/internal/core/ports"
	"github.com/samirrijal/terramind/internal/core/usecases"
	"github.com/samirrijal/terramind/internal/pkg/config"
	"github.com/samirrijal/terramind/internal/pkg/logging"
	"github.com/samirrijal/terramind/internal/pkg/metrics"
	"github.com/samirrijal/terramind/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("terramind-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{
		LLMConfigured: cfg.LLM.APIKey != "",
		ScriptTimeout: time.Duration(cfg.Execution.Timeout+15) * time.Second,
		OpenAPIPath:   cfg.Server.OpenAPIPath,
	}

	// Cache
	var cache ports.CacheService
	if cfg.Valkey.Addr != "" {
		vc, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer vc.Close()
			cache = vc
			deps.Cache = vc
		}
	}

	// NATS
	var events ports.EventPublisher
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			events = pub
			deps.NATS = pub.Conn()
			deps.RunEvents = natsadapter.NewSubscriber(pub.Conn())
		}
	}

	// Boundary dataset
	var regions ports.BoundaryRepository
	switch cfg.Boundaries.Source {
	case "postgres":
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		deps.DB = db
		regions = postgres.NewBoundaryRepo(db)
		go reportPoolStats(ctx, db)
	default:
		regions = geojsonfile.New(cfg.Boundaries.Path)
	}
	boundaries := usecases.NewBoundaryService(regions, cache, cfg.Boundaries.CacheTTL)

	// Language models
	model, err := llm.New(llm.Settings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		log.Fatalf("llm: %v", err)
	}
	extractModel := model
	if cfg.LLM.ExtractModel != "" && cfg.LLM.ExtractModel != cfg.LLM.Model {
		extractModel, err = llm.New(llm.Settings{
			Provider: cfg.LLM.Provider,
			Model:    cfg.LLM.ExtractModel,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
		})
		if err != nil {
			log.Fatalf("llm: %v", err)
		}
	}

	// Script execution
	exec, err := newExecutor(cfg)
	if err != nil {
		log.Fatalf("executor: %v", err)
	}

	synchronizer := mapsync.NewSynchronizer(mapsync.Options{
		TileSize:        cfg.Map.TileSize,
		RasterPadding:   cfg.Map.RasterPadding,
		VectorPadding:   cfg.Map.VectorPadding,
		MinExtentMeters: cfg.Map.MinExtentMeters,
	})

	// Use cases
	deps.Scripts = usecases.NewScriptService(model, usecases.GenerationOptions{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	deps.Borders = usecases.NewBorderService(boundaries, extractModel, cache, usecases.BorderOptions{
		ExtractMaxTokens: cfg.LLM.ExtractMaxTokens,
		CacheTTL:         cfg.Map.BorderCacheTTL,
	})
	deps.Runs = usecases.NewRunService(exec, mapsync.NewSessionStore(synchronizer, mapsync.SessionLimits{
		MaxSessions: cfg.Map.MaxSessions,
		IdleTTL:     time.Duration(cfg.Map.SessionIdleTTL) * time.Second,
	}), events)
	deps.Boundaries = boundaries

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    2 * 1024 * 1024, // scripts and chat history
		AppName:      "TerraMind API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "execution_mode", cfg.Execution.Mode)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Running scripts get their full timeout to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), deps.ScriptTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// newExecutor returns the script gateway for the configured execution mode.
func newExecutor(cfg *config.Config) (ports.ScriptExecutor, error) {
	timeout := time.Duration(cfg.Execution.Timeout) * time.Second
	if cfg.Execution.Mode == "temporal" {
		c, err := temporaladapter.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
		if err != nil {
			return nil, err
		}
		return temporaladapter.NewExecutor(c, cfg.Temporal.TaskQueue, timeout), nil
	}
	return executor.NewLocal(executor.Config{
		Interpreter:    cfg.Execution.Interpreter,
		Timeout:        timeout,
		PreludePath:    cfg.Execution.PreludePath,
		TileURLPattern: cfg.Execution.TileURLPattern,
		WorkDir:        cfg.Execution.WorkDir,
		MaxOutputBytes: cfg.Execution.MaxOutputBytes,
	})
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		case <-ctx.Done():
			return
		}
	}
}
