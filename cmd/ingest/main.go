package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pricetrack/internal/config"
	"pricetrack/internal/identity"
	"pricetrack/internal/ingestion"
	"pricetrack/internal/ingestion/filesource"
	"pricetrack/internal/ledger"
	"pricetrack/internal/normalize"
	"pricetrack/internal/observability"
	"pricetrack/internal/storage"
	chstore "pricetrack/internal/storage/clickhouse"
	"pricetrack/internal/storage/memory"
	"pricetrack/internal/storage/migrations"
	pgstore "pricetrack/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	recordsPath := flag.String("records", "", "Path to NDJSON dump of raw records")
	sites := flag.String("sites", "", "Comma-separated site labels to ingest from the dump")
	queries := flag.String("queries", "", "Comma-separated queries (default: every query in the dump)")
	storeFlag := flag.String("store", "", "Storage backend override: memory, postgres, clickhouse")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address override (empty to use config)")

	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

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
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	if *recordsPath == "" {
		logger.Fatal("No records file specified. Use --records")
	}
	siteList := splitList(*sites)
	if len(siteList) == 0 {
		logger.Fatal("No sites specified. Use --sites")
	}

	metrics := observability.NewMetrics()
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, canceling run...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		}
	}()

	stores, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Setup storage: %v", err)
	}
	defer cleanup()

	var sources []ingestion.RecordSource
	for _, site := range siteList {
		sources = append(sources, filesource.New(site, *recordsPath))
	}

	queryList := splitList(*queries)
	if len(queryList) == 0 {
		queryList, err = dumpQueries(*recordsPath, siteList)
		if err != nil {
			logger.Fatalf("Scan dump for queries: %v", err)
		}
		if len(queryList) == 0 {
			logger.Fatal("Dump contains no records for the given sites")
		}
	}
	logger.Printf("Ingesting %d queries from %d sites", len(queryList), len(sources))

	runner := ingestion.NewRunner(
		normalize.New(cfg.DefaultCurrency),
		identity.NewResolver(stores.identities, identity.Options{
			Threshold: cfg.SimilarityThreshold,
			Logger:    logger,
		}),
		ledger.New(stores.observations, logger),
		ingestion.Options{Logger: logger, Metrics: metrics},
	)

	stats, err := runner.Run(ctx, sources, queryList)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Run failed: %v", err)
	}

	fmt.Printf("Ingestion complete: %s\n", stats)
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
		logger.Printf("Using PostgreSQL storage")
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
		logger.Printf("Using ClickHouse observation storage")
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

// dumpQueries collects the distinct queries present in the dump across the
// requested sites, preserving first-seen order.
func dumpQueries(path string, sites []string) ([]string, error) {
	seen := make(map[string]struct{})
	var queries []string
	for _, site := range sites {
		qs, err := filesource.New(site, path).Queries()
		if err != nil {
			return nil, err
		}
		for _, q := range qs {
			if _, ok := seen[q]; !ok {
				seen[q] = struct{}{}
				queries = append(queries, q)
			}
		}
	}
	return queries, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
