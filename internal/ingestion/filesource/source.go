// Package filesource reads adaptor output from NDJSON dumps: one JSON
// raw record per line, as written by the extraction adaptors.
package filesource

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"pricetrack/internal/domain"
	"pricetrack/internal/ingestion"
)

// Source serves raw records parsed from an NDJSON file. The file may mix
// sites and queries; Fetch filters to this source's site and the requested
// query.
type Source struct {
	site string
	path string
}

// New creates a file source for one site's records in an NDJSON dump.
func New(site, path string) *Source {
	return &Source{site: site, path: path}
}

// Compile-time interface check.
var _ ingestion.RecordSource = (*Source)(nil)

func (s *Source) Site() string {
	return s.site
}

// Fetch parses the dump and returns this site's records for the query.
// A malformed line fails the whole fetch; partial dumps should not be
// silently half-ingested.
func (s *Source) Fetch(ctx context.Context, query string) ([]*domain.RawRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open records file: %w", err)
	}
	defer f.Close()

	var records []*domain.RawRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record domain.RawRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("parse line %d: %w", lineNo, err)
		}
		if record.Site != s.site || record.Query != query {
			continue
		}
		records = append(records, &record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read records file: %w", err)
	}

	return records, nil
}

// Queries lists the distinct queries present in the dump for this site,
// so callers can ingest a dump without knowing its contents up front.
func (s *Source) Queries() ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open records file: %w", err)
	}
	defer f.Close()

	seen := make(map[string]struct{})
	var queries []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record domain.RawRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			continue
		}
		if record.Site != s.site {
			continue
		}
		if _, ok := seen[record.Query]; !ok {
			seen[record.Query] = struct{}{}
			queries = append(queries, record.Query)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read records file: %w", err)
	}

	return queries, nil
}
