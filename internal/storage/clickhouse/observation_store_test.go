package clickhouse_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pricetrack/internal/domain"
	"pricetrack/internal/storage/clickhouse"
)

const dayMs = int64(24 * 60 * 60 * 1000)

func testObservation(productID, site string, observedAt int64, price string) *domain.PriceObservation {
	return &domain.PriceObservation{
		ProductID:  productID,
		Site:       site,
		Price:      decimal.RequireFromString(price),
		Currency:   "USD",
		URL:        "https://shop.example.com/item",
		Title:      "USB-C Cable 2m",
		ObservedAt: observedAt,
		Day:        domain.DayOf(observedAt),
	}
}

func TestObservationStoreUpsertReplacesSameDay(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := clickhouse.NewObservationStore(conn)

	base := int64(1700000000000)

	inserted, err := store.Upsert(ctx, testObservation("p1", "ebay", base, "9.99"))
	require.NoError(t, err)
	require.True(t, inserted)

	// Same day with a newer observed_at wins under FINAL reads.
	inserted, err = store.Upsert(ctx, testObservation("p1", "ebay", base+3600_000, "7.99"))
	require.NoError(t, err)
	require.False(t, inserted)

	series, err := store.GetSeries(ctx, "p1", "ebay")
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Equal(t, "7.99", series[0].Price.StringFixed(2))
	require.Equal(t, base+3600_000, series[0].ObservedAt)
}

func TestObservationStoreSeriesOrderAndRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := clickhouse.NewObservationStore(conn)

	base := int64(1700000000000)
	for _, offset := range []int64{3, 0, 2, 1} {
		_, err := store.Upsert(ctx, testObservation("p1", "ebay", base+offset*dayMs, "9.99"))
		require.NoError(t, err)
	}

	series, err := store.GetSeries(ctx, "p1", "ebay")
	require.NoError(t, err)
	require.Len(t, series, 4)
	for i := 1; i < len(series); i++ {
		require.Less(t, series[i-1].ObservedAt, series[i].ObservedAt)
	}

	ranged, err := store.GetByTimeRange(ctx, "p1", "ebay", base+dayMs, base+2*dayMs)
	require.NoError(t, err)
	require.Len(t, ranged, 2, "range bounds are inclusive")
}

func TestObservationStoreCarriesExtras(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := clickhouse.NewObservationStore(conn)

	o := testObservation("p1", "ebay", 1700000000000, "9.99")
	o.Availability = "In Stock"
	o.Rating = ptr(4.5)
	o.ReviewsCount = ptr(12)

	_, err := store.Upsert(ctx, o)
	require.NoError(t, err)

	series, err := store.GetSeries(ctx, "p1", "ebay")
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Equal(t, "In Stock", series[0].Availability)
	require.NotNil(t, series[0].Rating)
	require.InDelta(t, 4.5, *series[0].Rating, 0.001)
	require.NotNil(t, series[0].ReviewsCount)
	require.Equal(t, 12, *series[0].ReviewsCount)
}

func TestObservationStoreSites(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := clickhouse.NewObservationStore(conn)

	base := int64(1700000000000)
	_, err := store.Upsert(ctx, testObservation("p1", "walmart", base, "9.99"))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, testObservation("p1", "ebay", base, "8.99"))
	require.NoError(t, err)

	sites, err := store.Sites(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, []string{"ebay", "walmart"}, sites)
}
