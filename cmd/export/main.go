package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"pricetrack/internal/config"
	"pricetrack/internal/export"
	"pricetrack/internal/ledger"
	"pricetrack/internal/storage"
	chstore "pricetrack/internal/storage/clickhouse"
	"pricetrack/internal/storage/memory"
	"pricetrack/internal/storage/migrations"
	pgstore "pricetrack/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	query := flag.String("query", "", "Search query whose products to export")
	outPath := flag.String("out", "", "Output CSV file (default: stdout)")
	storeFlag := flag.String("store", "", "Storage backend override: memory, postgres, clickhouse")

	flag.Parse()

	logger := log.New(os.Stderr, "[export] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *storeFlag != "" {
		cfg.Store = *storeFlag
		if err := cfg.Validate(); err != nil {
			logger.Fatalf("Invalid config: %v", err)
		}
	}
	if *query == "" {
		logger.Fatal("No query specified. Use --query")
	}

	ctx := context.Background()

	stores, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Setup storage: %v", err)
	}
	defer cleanup()

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			logger.Fatalf("Create output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	exporter := export.NewExporter(stores.identities, ledger.New(stores.observations, logger))
	rows, err := exporter.ExportQuery(ctx, *query, out)
	if err != nil {
		logger.Fatalf("Export failed: %v", err)
	}

	logger.Printf("Exported %d rows for query %q", rows, *query)
}

type storeSet struct {
	identities   storage.IdentityStore
	observations storage.ObservationStore
}

// buildStores wires the configured backend. ClickHouse serves observations
// only; identities always live in postgres or memory.
func buildStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*storeSet, func(), error) {
	switch cfg.Store {
	case "memory":
		return &storeSet{
			identities:   memory.NewIdentityStore(),
			observations: memory.NewObservationStore(),
		}, func() {}, nil

	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		return &storeSet{
			identities:   pgstore.NewIdentityStore(pool),
			observations: pgstore.NewObservationStore(pool),
		}, pool.Close, nil

	case "clickhouse":
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		cleanup := func() {
			conn.Close()
			pool.Close()
		}
		return &storeSet{
			identities:   pgstore.NewIdentityStore(pool),
			observations: chstore.NewObservationStore(conn),
		}, cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
