package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"pricetrack/internal/domain"
)

func makeObs(productID, site string, observedAt int64, price string) *domain.PriceObservation {
	return &domain.PriceObservation{
		ProductID:  productID,
		Site:       site,
		Price:      decimal.RequireFromString(price),
		Currency:   "USD",
		URL:        "https://example.com/p",
		Title:      "USB-C Cable 2m",
		ObservedAt: observedAt,
		Day:        domain.DayOf(observedAt),
	}
}

func TestObservationStore_UpsertInsertsThenOverwrites(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	day1 := int64(1704067200000) // 2024-01-01T00:00:00Z

	inserted, err := store.Upsert(ctx, makeObs("p1", "amazon", day1, "9.99"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if !inserted {
		t.Error("First upsert should report inserted")
	}

	// Later fetch on the same day replaces the row
	inserted, err = store.Upsert(ctx, makeObs("p1", "amazon", day1+3600_000, "7.99"))
	if err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}
	if inserted {
		t.Error("Same-day upsert should report overwritten, not inserted")
	}

	series, err := store.GetSeries(ctx, "p1", "amazon")
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("Expected 1 observation after same-day overwrite, got %d", len(series))
	}
	if !series[0].Price.Equal(decimal.RequireFromString("7.99")) {
		t.Errorf("Expected later price 7.99 to win, got %s", series[0].Price)
	}
}

func TestObservationStore_UpsertIdempotent(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	obs := makeObs("p1", "amazon", 1704067200000, "9.99")
	if _, err := store.Upsert(ctx, obs); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := store.Upsert(ctx, obs); err != nil {
		t.Fatalf("Repeated upsert failed: %v", err)
	}

	series, _ := store.GetSeries(ctx, "p1", "amazon")
	if len(series) != 1 {
		t.Fatalf("Expected 1 observation after repeated upsert, got %d", len(series))
	}
	if !series[0].Price.Equal(obs.Price) {
		t.Errorf("Price changed under idempotent upsert: %s", series[0].Price)
	}
}

func TestObservationStore_GetSeries_SortedAscending(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	const dayMs = int64(86_400_000)
	base := int64(1704067200000)

	// Insert out of order across three days
	for _, offset := range []int64{2 * dayMs, 0, dayMs} {
		if _, err := store.Upsert(ctx, makeObs("p1", "amazon", base+offset, "9.99")); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	series, err := store.GetSeries(ctx, "p1", "amazon")
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("Expected 3 observations, got %d", len(series))
	}
	for i := 1; i < len(series); i++ {
		if series[i-1].ObservedAt >= series[i].ObservedAt {
			t.Errorf("Series not strictly ascending at %d: %d >= %d", i, series[i-1].ObservedAt, series[i].ObservedAt)
		}
	}
}

func TestObservationStore_GetByTimeRange_Inclusive(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	const dayMs = int64(86_400_000)
	base := int64(1704067200000)

	for i := int64(0); i < 5; i++ {
		if _, err := store.Upsert(ctx, makeObs("p1", "amazon", base+i*dayMs, "9.99")); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	got, err := store.GetByTimeRange(ctx, "p1", "amazon", base+dayMs, base+3*dayMs)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Expected 3 observations in inclusive range, got %d", len(got))
	}
}

func TestObservationStore_EmptyReads(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	series, err := store.GetSeries(ctx, "missing", "amazon")
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}
	if len(series) != 0 {
		t.Errorf("Expected empty series, got %d entries", len(series))
	}

	sites, err := store.Sites(ctx, "missing")
	if err != nil {
		t.Fatalf("Sites failed: %v", err)
	}
	if len(sites) != 0 {
		t.Errorf("Expected no sites, got %v", sites)
	}
}

func TestObservationStore_SitesDistinctSorted(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	const dayMs = int64(86_400_000)
	base := int64(1704067200000)

	for _, site := range []string{"walmart", "amazon", "ebay", "amazon"} {
		if _, err := store.Upsert(ctx, makeObs("p1", site, base, "9.99")); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		base += dayMs
	}

	sites, err := store.Sites(ctx, "p1")
	if err != nil {
		t.Fatalf("Sites failed: %v", err)
	}
	want := []string{"amazon", "ebay", "walmart"}
	if len(sites) != len(want) {
		t.Fatalf("Expected %v, got %v", want, sites)
	}
	for i := range want {
		if sites[i] != want[i] {
			t.Errorf("Position %d: got %s, want %s", i, sites[i], want[i])
		}
	}
}

func TestObservationStore_KeysIsolateSitesAndProducts(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	ts := int64(1704067200000)
	if _, err := store.Upsert(ctx, makeObs("p1", "amazon", ts, "9.99")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Upsert(ctx, makeObs("p1", "ebay", ts, "8.99")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Upsert(ctx, makeObs("p2", "amazon", ts, "7.99")); err != nil {
		t.Fatal(err)
	}

	series, _ := store.GetSeries(ctx, "p1", "amazon")
	if len(series) != 1 {
		t.Errorf("Expected 1 observation for (p1, amazon), got %d", len(series))
	}
}
