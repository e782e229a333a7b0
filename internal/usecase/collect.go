package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"AIToolNews/internal/domain"
	"AIToolNews/internal/logging"
	"AIToolNews/internal/ports"
	"AIToolNews/internal/retry"
)

// CollectOptions tunes one collection run.
type CollectOptions struct {
	Concurrency      int
	Timeout          time.Duration
	Window           time.Duration
	PauseBetween     time.Duration
	MinBodyLength    int
	DefaultWhy       string
	DefaultScore     int
	BreakerThreshold int
	Retry            retry.Policy
	Location         *time.Location
}

// CollectorDeps wires the collector's collaborators.
type CollectorDeps struct {
	Targets    []domain.TargetCategory
	Searcher   ports.Searcher
	Summarizer ports.Summarizer
	Store      ports.RecordWriter
	Options    CollectOptions
	Now        func() time.Time
	Logger     *slog.Logger
}

// Collector queries the search provider per category and archives every
// newsworthy post as a JSON record.
type Collector struct {
	targets    []domain.TargetCategory
	searcher   ports.Searcher
	summarizer ports.Summarizer
	store      ports.RecordWriter
	opts       CollectOptions
	now        func() time.Time
	logger     *slog.Logger
}

// CollectReport counts what a run did.
type CollectReport struct {
	Categories int
	Saved      int
	Skipped    int
	Failed     int
}

// NewCollector constructs the collection use case.
func NewCollector(deps CollectorDeps) *Collector {
	opts := deps.Options
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Collector{
		targets:    deps.Targets,
		searcher:   deps.Searcher,
		summarizer: deps.Summarizer,
		store:      deps.Store,
		opts:       opts,
		now:        now,
		logger:     logger.With("component", "collector"),
	}
}

// Collect runs every category through a bounded worker pool. Unit failures
// are logged and skipped; once the breaker trips, categories not yet started
// are abandoned and ErrCircuitOpen is returned. Records already written stay.
func (c *Collector) Collect(ctx context.Context) (CollectReport, error) {
	if c.searcher == nil || c.store == nil {
		return CollectReport{}, fmt.Errorf("collector misconfigured")
	}

	run := NewRunContext(c.opts.BreakerThreshold, c.logger)
	now := c.now().In(c.opts.Location)
	day := now.Format("2006-01-02")

	var saved, skipped, failed, started atomic.Int32

	var g errgroup.Group
	g.SetLimit(c.opts.Concurrency)

	for _, category := range c.targets {
		category := category
		if run.Open() || ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if run.Open() {
				return nil
			}
			started.Add(1)

			stats, err := c.collectCategory(ctx, run, day, now, category)
			saved.Add(int32(stats.Saved))
			skipped.Add(int32(stats.Skipped))
			failed.Add(int32(stats.Failed))
			if err != nil {
				failed.Add(1)
				c.logger.Warn("category failed", "category", category.Category, "error", err)
				run.Failure(category.Category, err)
			}

			c.pause(ctx)
			return nil
		})
	}
	_ = g.Wait()

	report := CollectReport{
		Categories: int(started.Load()),
		Saved:      int(saved.Load()),
		Skipped:    int(skipped.Load()),
		Failed:     int(failed.Load()),
	}
	c.logger.Info("collection finished",
		"day", day,
		"categories", report.Categories,
		"saved", report.Saved,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)

	if err := run.Err(); err != nil {
		return report, err
	}
	return report, ctx.Err()
}

func (c *Collector) collectCategory(ctx context.Context, run *RunContext, day string, now time.Time, category domain.TargetCategory) (CollectReport, error) {
	var report CollectReport

	query := domain.SearchQuery{
		Category: category.Category,
		Tools:    category.Tools,
		From:     now.Add(-c.opts.Window),
		To:       now,
	}

	var results []domain.SearchResult
	err := retry.Do(ctx, c.opts.Retry, func(ctx context.Context) error {
		callCtx, cancel := c.callContext(ctx)
		defer cancel()

		var err error
		results, err = c.searcher.Search(callCtx, query)
		return err
	})
	if err != nil {
		return report, fmt.Errorf("search %s: %w", category.Category, err)
	}
	run.Success()

	c.logger.Info("category searched", "category", category.Category, "results", len(results))

	for _, result := range results {
		if run.Open() {
			break
		}
		outcome, err := c.archive(ctx, run, day, now, category.Category, result)
		switch {
		case err != nil:
			report.Failed++
			c.logger.Warn("archive failed", "category", category.Category, "tool", result.ToolName, "error", err)
		case outcome:
			report.Saved++
		default:
			report.Skipped++
		}
	}
	return report, nil
}

// archive reports whether a new record was written for the result.
func (c *Collector) archive(ctx context.Context, run *RunContext, day string, now time.Time, category string, result domain.SearchResult) (bool, error) {
	tool := strings.TrimSpace(result.ToolName)
	if tool == "" {
		tool = "Unknown"
	}
	if !result.HasNews {
		c.logger.Debug("no news", "tool", tool)
		return false, nil
	}

	postURL := strings.TrimSpace(result.PostURL)
	if postURL == "" {
		postURL = domain.NoURL
	}
	postDate := strings.TrimSpace(result.PostDate)
	if postDate == "" {
		postDate = domain.UnknownDate
	}

	name := c.store.Name(tool, postURL)
	if c.store.Exists(day, name) {
		c.logger.Debug("already archived", "tool", tool, "file", name)
		return false, nil
	}

	text := strings.TrimSpace(result.PostText)
	if len([]rune(text)) <= c.opts.MinBodyLength {
		c.logger.Debug("post too short", "tool", tool, "length", len([]rune(text)))
		return false, nil
	}

	rec := domain.ReportRecord{
		Category:    category,
		Tool:        tool,
		Summary:     text,
		Why:         c.opts.DefaultWhy,
		PostDate:    postDate,
		URL:         postURL,
		CollectedAt: now.Format(time.RFC3339),
	}
	score := c.opts.DefaultScore

	if c.summarizer != nil {
		var verdict *domain.Verdict
		err := retry.Do(ctx, c.opts.Retry, func(ctx context.Context) error {
			callCtx, cancel := c.callContext(ctx)
			defer cancel()

			var err error
			verdict, err = c.summarizer.Summarize(callCtx, tool, text)
			return err
		})
		switch {
		case err != nil:
			c.logger.Warn("summarizer failed, keeping raw text", "tool", tool, "error", err)
			run.Failure(tool, err)
		case verdict == nil:
			run.Success()
			c.logger.Info("not newsworthy", "tool", tool)
			return false, nil
		default:
			run.Success()
			if s := strings.TrimSpace(verdict.Summary); s != "" {
				rec.Summary = s
			}
			if w := strings.TrimSpace(verdict.Why); w != "" {
				rec.Why = w
			}
			if verdict.Score > 0 {
				score = verdict.Score
			}
		}
	}
	rec.Score = &score

	if err := c.store.Save(ctx, day, name, rec); err != nil {
		return false, fmt.Errorf("save %s: %w", name, err)
	}
	c.logger.Info("news archived", "tool", tool, "file", name, "score", score)
	return true, nil
}

func (c *Collector) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, c.opts.Timeout)
}

func (c *Collector) pause(ctx context.Context) {
	if c.opts.PauseBetween > 0 {
		_ = pauseFor(ctx, c.opts.Retry, c.opts.PauseBetween)
	}
}
