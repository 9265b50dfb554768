// Package export renders stored price history as CSV for downstream
// spreadsheets and ad-hoc analysis.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"pricetrack/internal/ledger"
	"pricetrack/internal/storage"
)

// Header is the column layout of exported dumps.
var Header = []string{"product", "site", "price", "currency", "url", "observed_at", "availability"}

// Exporter writes observation history for all products of a query.
type Exporter struct {
	identities storage.IdentityStore
	ledger     *ledger.Ledger
}

// NewExporter creates an Exporter.
func NewExporter(identities storage.IdentityStore, l *ledger.Ledger) *Exporter {
	return &Exporter{identities: identities, ledger: l}
}

// ExportQuery writes one CSV row per stored observation for every product
// identity under the query, header first. Returns the number of data rows
// written. A query with no identities produces a header-only dump.
func (e *Exporter) ExportQuery(ctx context.Context, query string, w io.Writer) (int, error) {
	if query == "" {
		return 0, storage.ErrInvalidInput
	}

	identities, err := e.identities.GetByQuery(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("load identities: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	rows := 0
	for _, identity := range identities {
		sites, err := e.ledger.Sites(ctx, identity.ID)
		if err != nil {
			return rows, fmt.Errorf("list sites for %s: %w", identity.ID, err)
		}

		for _, site := range sites {
			series, err := e.ledger.Read(ctx, identity.ID, site)
			if err != nil {
				return rows, fmt.Errorf("read series for %s/%s: %w", identity.ID, site, err)
			}

			for _, o := range series {
				record := []string{
					identity.CanonicalName,
					o.Site,
					o.Price.String(),
					o.Currency,
					o.URL,
					time.UnixMilli(o.ObservedAt).UTC().Format(time.RFC3339),
					o.Availability,
				}
				if err := cw.Write(record); err != nil {
					return rows, fmt.Errorf("write row: %w", err)
				}
				rows++
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("flush csv: %w", err)
	}
	return rows, nil
}
