package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"pricetrack/internal/config"
	"pricetrack/internal/dashboard"
	"pricetrack/internal/ledger"
	"pricetrack/internal/observability"
	"pricetrack/internal/storage"
	chstore "pricetrack/internal/storage/clickhouse"
	"pricetrack/internal/storage/memory"
	"pricetrack/internal/storage/migrations"
	pgstore "pricetrack/internal/storage/postgres"
	"pricetrack/internal/trend"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	addr := flag.String("addr", "", "HTTP listen address override (empty to use config)")
	storeFlag := flag.String("store", "", "Storage backend override: memory, postgres, clickhouse")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

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
	if *addr != "" {
		cfg.ServerAddr = *addr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Setup storage: %v", err)
	}
	defer cleanup()

	metrics := observability.NewMetrics()
	l := ledger.New(stores.observations, logger)
	analyzer := trend.NewAnalyzer(stores.observations, trend.Options{
		FlatThresholdPct: cfg.TrendFlatThresholdPct,
		Logger:           logger,
	})
	svc := dashboard.NewService(stores.identities, l, analyzer)

	srv := &apiServer{
		service:           svc,
		defaultWindowDays: cfg.TrendWindowDays,
		logger:            logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/series", srv.handleSeries)
	mux.HandleFunc("/trend", srv.handleTrend)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
		cancel()
	}()

	logger.Printf("Query API listening on %s", cfg.ServerAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Server stopped")
}

type apiServer struct {
	service           *dashboard.Service
	defaultWindowDays int
	logger            *log.Logger
}

type observationJSON struct {
	Site         string   `json:"site"`
	Price        string   `json:"price"`
	Currency     string   `json:"currency"`
	URL          string   `json:"url"`
	Title        string   `json:"title"`
	ObservedAt   int64    `json:"observed_at"`
	Day          string   `json:"day"`
	Availability string   `json:"availability,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	ReviewsCount *int     `json:"reviews_count,omitempty"`
}

type seriesResponse struct {
	ProductID     string                       `json:"product_id"`
	Query         string                       `json:"query"`
	CanonicalName string                       `json:"canonical_name"`
	Series        map[string][]observationJSON `json:"series"`
}

type trendResponse struct {
	ProductID     string `json:"product_id"`
	Site          string `json:"site"`
	Direction     string `json:"direction"`
	PctChange     string `json:"pct_change"`
	WindowDays    int    `json:"window_days"`
	Points        int    `json:"points"`
	MovingAverage string `json:"moving_average"`
}

// GET /series?product_id=...
func (s *apiServer) handleSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	productID := r.URL.Query().Get("product_id")
	if productID == "" {
		http.Error(w, "product_id is required", http.StatusBadRequest)
		return
	}

	result, err := s.service.GetSeries(r.Context(), productID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := seriesResponse{
		ProductID:     result.Identity.ID,
		Query:         result.Identity.Query,
		CanonicalName: result.Identity.CanonicalName,
		Series:        make(map[string][]observationJSON, len(result.Series)),
	}
	for site, series := range result.Series {
		points := make([]observationJSON, 0, len(series))
		for _, o := range series {
			points = append(points, observationJSON{
				Site:         o.Site,
				Price:        o.Price.String(),
				Currency:     o.Currency,
				URL:          o.URL,
				Title:        o.Title,
				ObservedAt:   o.ObservedAt,
				Day:          o.Day,
				Availability: o.Availability,
				Rating:       o.Rating,
				ReviewsCount: o.ReviewsCount,
			})
		}
		resp.Series[site] = points
	}

	s.writeJSON(w, resp)
}

// GET /trend?product_id=...&site=...&window_days=7
func (s *apiServer) handleTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	params := r.URL.Query()
	productID := params.Get("product_id")
	site := params.Get("site")
	if productID == "" || site == "" {
		http.Error(w, "product_id and site are required", http.StatusBadRequest)
		return
	}

	windowDays := s.defaultWindowDays
	if raw := params.Get("window_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "window_days must be a positive integer", http.StatusBadRequest)
			return
		}
		windowDays = parsed
	}

	result, err := s.service.GetTrend(r.Context(), productID, site, windowDays)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, trendResponse{
		ProductID:     result.ProductID,
		Site:          result.Site,
		Direction:     result.Direction.String(),
		PctChange:     result.PctChange.StringFixed(2),
		WindowDays:    result.WindowDays,
		Points:        result.Points,
		MovingAverage: result.MovingAverage.StringFixed(2),
	})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("Encode response: %v", err)
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "product not found", http.StatusNotFound)
	case errors.Is(err, trend.ErrInsufficientData):
		http.Error(w, "not enough observations for a trend", http.StatusUnprocessableEntity)
	case errors.Is(err, storage.ErrInvalidInput):
		http.Error(w, "invalid request", http.StatusBadRequest)
	default:
		s.logger.Printf("Query failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
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
