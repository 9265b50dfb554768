package ingestion

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"pricetrack/internal/domain"
	"pricetrack/internal/identity"
	"pricetrack/internal/ledger"
	"pricetrack/internal/normalize"
	"pricetrack/internal/observability"
)

// Stats summarizes one ingestion run. Counters are record-scoped except
// SourceErrors, which counts failed (source, query) fetches.
type Stats struct {
	Processed    int
	Skipped      int
	Inserted     int
	Overwritten  int
	Failed       int
	SourceErrors int
}

func (s *Stats) String() string {
	return fmt.Sprintf("processed=%d skipped=%d inserted=%d overwritten=%d failed=%d source_errors=%d",
		s.Processed, s.Skipped, s.Inserted, s.Overwritten, s.Failed, s.SourceErrors)
}

// Options configures a Runner.
type Options struct {
	Logger  *log.Logger
	Metrics *observability.Metrics
}

// Runner drives raw records through normalize, resolve, and append. One
// goroutine runs per (source, query) pair; a bad record skips or fails
// alone and never aborts the run.
type Runner struct {
	normalizer *normalize.Normalizer
	resolver   *identity.Resolver
	ledger     *ledger.Ledger
	logger     *log.Logger
	metrics    *observability.Metrics
}

// NewRunner wires the pipeline stages together.
func NewRunner(n *normalize.Normalizer, r *identity.Resolver, l *ledger.Ledger, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		normalizer: n,
		resolver:   r,
		ledger:     l,
		logger:     logger,
		metrics:    opts.Metrics,
	}
}

// Run fetches every query from every source and ingests the results.
// It returns aggregate stats; the only error path is a canceled context.
func (r *Runner) Run(ctx context.Context, sources []RecordSource, queries []string) (*Stats, error) {
	start := time.Now()

	stats := &Stats{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, source := range sources {
		for _, query := range queries {
			wg.Add(1)
			go func(source RecordSource, query string) {
				defer wg.Done()

				partial := r.runOne(ctx, source, query)

				mu.Lock()
				stats.Processed += partial.Processed
				stats.Skipped += partial.Skipped
				stats.Inserted += partial.Inserted
				stats.Overwritten += partial.Overwritten
				stats.Failed += partial.Failed
				stats.SourceErrors += partial.SourceErrors
				mu.Unlock()
			}(source, query)
		}
	}
	wg.Wait()

	r.metrics.ObserveIngestDuration(time.Since(start))
	r.logger.Printf("[ingestion] run complete: %s", stats)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// runOne ingests a single (source, query) pair.
func (r *Runner) runOne(ctx context.Context, source RecordSource, query string) *Stats {
	stats := &Stats{}

	records, err := source.Fetch(ctx, query)
	if err != nil {
		r.logger.Printf("[ingestion] fetch %s %q failed: %v", source.Site(), query, err)
		stats.SourceErrors++
		return stats
	}

	for _, raw := range records {
		if ctx.Err() != nil {
			return stats
		}
		r.ingestRecord(ctx, raw, stats)
	}
	return stats
}

// ingestRecord runs one raw record through the pipeline, updating stats.
func (r *Runner) ingestRecord(ctx context.Context, raw *domain.RawRecord, stats *Stats) {
	candidate, err := r.normalizer.Normalize(raw)
	if err != nil {
		if normalize.IsValidation(err) {
			stats.Skipped++
			r.metrics.RecordSkipped(string(normalize.KindOf(err)))
			r.logger.Printf("[ingestion] skip record from %s: %v", raw.Site, err)
			return
		}
		stats.Failed++
		r.metrics.RecordFailed()
		r.logger.Printf("[ingestion] normalize record from %s: %v", raw.Site, err)
		return
	}

	resolution, err := r.resolver.Resolve(ctx, candidate.Query, candidate.NormalizedTitle, candidate.ObservedAt)
	if err != nil {
		stats.Failed++
		r.metrics.RecordFailed()
		r.metrics.StorageError()
		r.logger.Printf("[ingestion] resolve identity for %q: %v", candidate.NormalizedTitle, err)
		return
	}
	if resolution.Created {
		r.metrics.IdentityCreated()
	}
	if resolution.AliasAdded {
		r.metrics.AliasAdded()
	}

	outcome, err := r.ledger.Append(ctx, &domain.PriceObservation{
		ProductID:    resolution.Identity.ID,
		Site:         candidate.Site,
		Price:        candidate.Price,
		Currency:     candidate.Currency,
		URL:          candidate.URL,
		Title:        candidate.DisplayTitle,
		ObservedAt:   candidate.ObservedAt,
		Availability: candidate.Availability,
		Rating:       candidate.Rating,
		ReviewsCount: candidate.ReviewsCount,
	})
	if err != nil {
		stats.Failed++
		r.metrics.RecordFailed()
		r.metrics.StorageError()
		r.logger.Printf("[ingestion] append observation for %s: %v", resolution.Identity.ID, err)
		return
	}

	stats.Processed++
	r.metrics.RecordProcessed()
	r.metrics.ObservationAppended(string(outcome))
	switch outcome {
	case domain.AppendInserted:
		stats.Inserted++
	case domain.AppendOverwritten:
		stats.Overwritten++
	}
}
