package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"AIToolNews/internal/aggregate"
	"AIToolNews/internal/dedup"
	"AIToolNews/internal/domain"
	"AIToolNews/internal/logging"
	"AIToolNews/internal/parser"
	"AIToolNews/internal/ports"
	"AIToolNews/internal/retry"
)

// BackfillDeps wires the repair workflow.
type BackfillDeps struct {
	Records      ports.RecordReader
	Rewriter     ports.RecordRewriter
	Summarizer   ports.Summarizer
	Enricher     *aggregate.Enricher
	Placeholders []string
	Retry        retry.Policy
	Logger       *slog.Logger
}

// Backfiller re-summarizes JSON records that still carry a placeholder why
// or no score.
type Backfiller struct {
	records      ports.RecordReader
	rewriter     ports.RecordRewriter
	summarizer   ports.Summarizer
	enricher     *aggregate.Enricher
	placeholders []string
	retry        retry.Policy
	logger       *slog.Logger
}

// BackfillReport counts what a repair pass did.
type BackfillReport struct {
	Checked int
	Stale   int
	Updated int
	Pinned  int
	Failed  int
}

// NewBackfiller constructs the repair use case.
func NewBackfiller(deps BackfillDeps) *Backfiller {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Backfiller{
		records:      deps.Records,
		rewriter:     deps.Rewriter,
		summarizer:   deps.Summarizer,
		enricher:     deps.Enricher,
		placeholders: deps.Placeholders,
		retry:        deps.Retry,
		logger:       logger.With("component", "backfill"),
	}
}

// Backfill repairs stale records. With dryRun nothing is written or sent
// upstream. Running it twice changes nothing the second time.
func (b *Backfiller) Backfill(ctx context.Context, dryRun bool) (BackfillReport, error) {
	var report BackfillReport
	if b.records == nil || b.rewriter == nil || b.enricher == nil {
		return report, fmt.Errorf("backfill misconfigured")
	}
	if b.summarizer == nil && !dryRun {
		return report, fmt.Errorf("backfill needs a summarizer")
	}

	records, err := b.records.Records(ctx)
	if err != nil {
		return report, fmt.Errorf("load records: %w", err)
	}

	for _, raw := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if parser.DetectShape(raw) != domain.ShapeJSON {
			continue
		}

		var rec domain.ReportRecord
		if err := json.Unmarshal(raw.Payload, &rec); err != nil {
			// Arrays and malformed files are left alone.
			continue
		}
		report.Checked++
		if !b.stale(rec) {
			continue
		}
		report.Stale++

		pinned := false
		if rec.IdentityKey == "" {
			if key := b.compositeKey(rec); key != "" {
				rec.IdentityKey = key
				pinned = true
			}
		}

		if dryRun {
			b.logger.Info("would repair record", "path", raw.Path, "tool", rec.Tool, "pin_identity", pinned)
			continue
		}

		updated, err := b.repair(ctx, &rec)
		if err != nil {
			report.Failed++
			b.logger.Warn("repair failed", "path", raw.Path, "tool", rec.Tool, "error", err)
			continue
		}
		if !updated && !pinned {
			continue
		}

		if err := b.rewriter.Rewrite(ctx, raw.Path, rec); err != nil {
			report.Failed++
			b.logger.Warn("rewrite failed", "path", raw.Path, "error", err)
			continue
		}
		if updated {
			report.Updated++
		}
		if pinned {
			report.Pinned++
		}
		b.logger.Info("record repaired", "path", raw.Path, "tool", rec.Tool, "summarized", updated, "pinned", pinned)
	}

	b.logger.Info("backfill finished",
		"dry_run", dryRun,
		"checked", report.Checked,
		"stale", report.Stale,
		"updated", report.Updated,
		"pinned", report.Pinned,
		"failed", report.Failed,
	)
	return report, nil
}

func (b *Backfiller) stale(rec domain.ReportRecord) bool {
	if rec.Score == nil {
		return true
	}
	for _, p := range b.placeholders {
		if p != "" && strings.Contains(rec.Why, p) {
			return true
		}
	}
	return false
}

// compositeKey returns the current identity when it depends on the summary,
// which the repair is about to change. URL identities need no pin.
func (b *Backfiller) compositeKey(rec domain.ReportRecord) string {
	item := b.enricher.Enrich(domain.CandidateItem{
		RawDate:    rec.PostDate,
		Category:   rec.Category,
		Tool:       rec.Tool,
		RawSummary: rec.Summary,
		PrimaryURL: rec.URL,
	})
	if dedup.URLKey(item.PrimaryURL) != "" {
		return ""
	}
	return dedup.IdentityKey(item)
}

// repair reports whether the summarizer produced a verdict. A "not news"
// answer leaves the record untouched.
func (b *Backfiller) repair(ctx context.Context, rec *domain.ReportRecord) (bool, error) {
	var verdict *domain.Verdict
	err := retry.Do(ctx, b.retry, func(ctx context.Context) error {
		var err error
		verdict, err = b.summarizer.Summarize(ctx, rec.Tool, rec.Summary)
		return err
	})
	if err != nil {
		return false, err
	}
	if verdict == nil {
		return false, nil
	}

	if s := strings.TrimSpace(verdict.Summary); s != "" {
		rec.Summary = s
	}
	if w := strings.TrimSpace(verdict.Why); w != "" {
		rec.Why = w
	}
	if verdict.Score > 0 {
		score := verdict.Score
		rec.Score = &score
	}
	return true, nil
}
