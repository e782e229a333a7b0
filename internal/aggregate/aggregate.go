// Package aggregate merges parsed candidates from every record, enriches and
// deduplicates them, and derives the Recent and Monthly views.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"

	"AIToolNews/internal/dates"
	"AIToolNews/internal/dedup"
	"AIToolNews/internal/domain"
	"AIToolNews/internal/parser"
	"AIToolNews/internal/ports"
	"AIToolNews/internal/textnorm"
)

// Enricher attaches the normalized summary and resolved dates to a candidate.
type Enricher struct {
	resolver *dates.Resolver
}

// NewEnricher builds an enricher around the target-timezone resolver.
func NewEnricher(resolver *dates.Resolver) *Enricher {
	return &Enricher{resolver: resolver}
}

// Enrich never fails; unparseable dates land in the UnknownDate bucket.
func (e *Enricher) Enrich(c domain.CandidateItem) domain.EnrichedItem {
	norm := textnorm.Normalize(c.RawSummary, c.PrimaryURL, c.RawDate)
	if c.ReferenceURL == "" {
		c.ReferenceURL = norm.ReferenceURL
	}
	if c.ReferenceURL == c.PrimaryURL {
		c.ReferenceURL = ""
	}

	d := e.resolver.Resolve(c.RawDate)
	return domain.EnrichedItem{
		CandidateItem: c,
		CleanSummary:  norm.CleanSummary,
		DateBucket:    d.Bucket,
		SortKey:       d.SortKey,
		DisplayDate:   d.Display,
	}
}

// Deps wires the aggregator collaborators.
type Deps struct {
	Records    ports.RecordReader
	Dispatcher *parser.Dispatcher
	Enricher   *Enricher
	NoNews     dedup.Matcher
	Logger     *slog.Logger
}

// Aggregator turns the whole record history into the canonical item set.
type Aggregator struct {
	records    ports.RecordReader
	dispatcher *parser.Dispatcher
	enricher   *Enricher
	noNews     dedup.Matcher
	logger     *slog.Logger
}

// New constructs the aggregator.
func New(deps Deps) *Aggregator {
	return &Aggregator{
		records:    deps.Records,
		dispatcher: deps.Dispatcher,
		enricher:   deps.Enricher,
		noNews:     deps.NoNews,
		logger:     deps.Logger,
	}
}

// Canonical loads every record and returns the deduplicated items, newest first.
func (a *Aggregator) Canonical(ctx context.Context) ([]domain.CanonicalItem, error) {
	if a.records == nil {
		return nil, nil
	}

	records, err := a.records.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	items := a.FromRecords(records)
	if a.logger != nil {
		a.logger.Info("aggregated records", "records", len(records), "items", len(items))
	}
	return items, nil
}

// FromRecords runs parse, enrich and dedup over an in-memory record set.
// The whole set must be visible at once for dedup to be global.
func (a *Aggregator) FromRecords(records []domain.RawRecord) []domain.CanonicalItem {
	var enriched []domain.EnrichedItem
	for _, rec := range records {
		for _, candidate := range a.dispatcher.Parse(rec) {
			enriched = append(enriched, a.enricher.Enrich(candidate))
		}
	}
	return dedup.Deduplicate(enriched, a.noNews)
}
