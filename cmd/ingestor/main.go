package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/samirrijal/terramind/internal/adapters/geojsonfile"
	"github.com/samirrijal/terramind/internal/adapters/postgres"
	"github.com/samirrijal/terramind/internal/adapters/valkey"
	"github.com/samirrijal/terramind/internal/core/ports"
	"github.com/samirrijal/terramind/internal/core/usecases"
	"github.com/samirrijal/terramind/internal/pkg/config"
	"github.com/samirrijal/terramind/internal/pkg/logging"
)

// ingestor replaces the boundaries table with the contents of a GeoJSON
// FeatureCollection read from a file path or http(s) URL.
//
//	ingestor [source]
func main() {
	cfg, err := config.Load("terramind-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.ValidateDatabase(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	source := cfg.Boundaries.Path
	if len(os.Args) > 1 {
		source = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	fc, err := geojsonfile.New(source).All(ctx)
	if err != nil {
		log.Fatalf("load %s: %v", source, err)
	}
	slog.Info("boundary dataset loaded", "source", source, "features", len(fc.Features))

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	var store ports.BoundaryWriter = postgres.NewBoundaryRepo(db)
	n, err := store.ReplaceAll(ctx, fc)
	if err != nil {
		log.Fatalf("store boundaries: %v", err)
	}

	// Drop the API's cached copy so the new rows are served immediately.
	if cfg.Valkey.Addr != "" {
		cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.KeyPrefix)
		if err != nil {
			slog.Warn("valkey unavailable, cached boundaries expire on their own", "error", err)
		} else {
			defer cache.Close()
			svc := usecases.NewBoundaryService(nil, cache, cfg.Boundaries.CacheTTL)
			if err := svc.Invalidate(ctx); err != nil {
				slog.Warn("cache invalidation failed", "error", err)
			}
		}
	}

	slog.Info("boundaries ingested", "rows", n, "skipped", len(fc.Features)-n, "elapsed", time.Since(start))
}
