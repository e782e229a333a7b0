package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"AIToolNews/internal/domain"
	"AIToolNews/internal/logging"
	"AIToolNews/internal/ports"
	"AIToolNews/internal/retry"
)

// FeedOptions tunes one general news collection run.
type FeedOptions struct {
	Concurrency int
	Timeout     time.Duration
	Window      time.Duration
	MaxArticles int
	Keywords    []string
	Retry       retry.Policy
	Location    *time.Location
}

// FeedCollectorDeps wires the general news collector.
type FeedCollectorDeps struct {
	Sources    []domain.FeedSource
	Fetcher    ports.FeedFetcher
	Summarizer ports.Summarizer
	Store      ports.ArticleWriter
	Options    FeedOptions
	Now        func() time.Time
	Logger     *slog.Logger
}

// FeedCollector polls news feeds and archives recent AI articles in the
// general-news markdown shape.
type FeedCollector struct {
	sources    []domain.FeedSource
	fetcher    ports.FeedFetcher
	summarizer ports.Summarizer
	store      ports.ArticleWriter
	opts       FeedOptions
	matcher    *keywordMatcher
	now        func() time.Time
	logger     *slog.Logger
}

// FeedReport counts what a feed run did.
type FeedReport struct {
	Sources    int
	Failed     int
	Candidates int
	Saved      int
	Skipped    int
}

type feedCandidate struct {
	source domain.FeedSource
	entry  domain.FeedEntry
}

// NewFeedCollector constructs the general news use case.
func NewFeedCollector(deps FeedCollectorDeps) *FeedCollector {
	opts := deps.Options
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Window <= 0 {
		opts.Window = 24 * time.Hour
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &FeedCollector{
		sources:    deps.Sources,
		fetcher:    deps.Fetcher,
		summarizer: deps.Summarizer,
		store:      deps.Store,
		opts:       opts,
		matcher:    newKeywordMatcher(opts.Keywords),
		now:        now,
		logger:     logger.With("component", "feeds"),
	}
}

// Collect fetches every source, keeps entries inside the window that mention
// an AI keyword and archives the newest ones. A failing source is logged and
// skipped.
func (c *FeedCollector) Collect(ctx context.Context) (FeedReport, error) {
	if c.fetcher == nil || c.store == nil {
		return FeedReport{}, fmt.Errorf("feed collector misconfigured")
	}

	now := c.now().In(c.opts.Location)
	day := now.Format("2006-01-02")
	report := FeedReport{Sources: len(c.sources)}

	perSource := make([][]domain.FeedEntry, len(c.sources))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(c.opts.Concurrency)
	for i, source := range c.sources {
		i, source := i, source
		g.Go(func() error {
			entries, err := c.fetch(ctx, source)
			if err != nil {
				c.logger.Warn("feed failed", "source", source.Name, "error", err)
				mu.Lock()
				report.Failed++
				mu.Unlock()
				return nil
			}
			perSource[i] = entries
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return report, err
	}

	candidates := c.pick(perSource, now)
	report.Candidates = len(candidates)

	for _, cand := range candidates {
		saved, err := c.archive(ctx, day, cand)
		switch {
		case err != nil:
			report.Failed++
			c.logger.Warn("archive article failed", "source", cand.source.Name, "link", cand.entry.Link, "error", err)
		case saved:
			report.Saved++
		default:
			report.Skipped++
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}

	c.logger.Info("feed collection finished",
		"day", day,
		"sources", report.Sources,
		"failed", report.Failed,
		"candidates", report.Candidates,
		"saved", report.Saved,
	)
	return report, nil
}

func (c *FeedCollector) fetch(ctx context.Context, source domain.FeedSource) ([]domain.FeedEntry, error) {
	var entries []domain.FeedEntry
	err := retry.Do(ctx, c.opts.Retry, func(ctx context.Context) error {
		callCtx, cancel := withTimeout(ctx, c.opts.Timeout)
		defer cancel()

		var err error
		entries, err = c.fetcher.Fetch(callCtx, source.URL)
		return err
	})
	return entries, err
}

// pick keeps dated, recent, on-topic entries once per link, newest
// first, capped at MaxArticles. Sources keep their configured order on ties.
func (c *FeedCollector) pick(perSource [][]domain.FeedEntry, now time.Time) []feedCandidate {
	cutoff := now.Add(-c.opts.Window)
	seen := map[string]bool{}

	var out []feedCandidate
	for i, entries := range perSource {
		for _, entry := range entries {
			if entry.Published.IsZero() || entry.Published.Before(cutoff) {
				continue
			}
			if entry.Link == "" || seen[entry.Link] {
				continue
			}
			seen[entry.Link] = true
			if !c.matcher.Match(entry.Title + " " + entry.Summary) {
				continue
			}
			out = append(out, feedCandidate{source: c.sources[i], entry: entry})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].entry.Published.After(out[j].entry.Published)
	})
	if c.opts.MaxArticles > 0 && len(out) > c.opts.MaxArticles {
		out = out[:c.opts.MaxArticles]
	}
	return out
}

// archive reports whether a new article file was written.
func (c *FeedCollector) archive(ctx context.Context, day string, cand feedCandidate) (bool, error) {
	name := c.store.ArticleName(cand.source.Name, cand.entry.Link)
	if c.store.ArticleExists(day, name) {
		return false, nil
	}

	article := domain.GeneralArticle{
		Title:   cand.entry.Title,
		Source:  cand.source.Name,
		Region:  cand.source.Region,
		Date:    cand.entry.Published.In(c.opts.Location).Format(time.RFC3339),
		URL:     cand.entry.Link,
		Summary: orText(cand.entry.Summary, cand.entry.Title),
	}

	if c.summarizer != nil {
		var verdict *domain.Verdict
		err := retry.Do(ctx, c.opts.Retry, func(ctx context.Context) error {
			callCtx, cancel := withTimeout(ctx, c.opts.Timeout)
			defer cancel()

			var err error
			verdict, err = c.summarizer.Summarize(callCtx, cand.source.Name, cand.entry.Title+"\n\n"+cand.entry.Summary)
			return err
		})
		switch {
		case err != nil:
			c.logger.Warn("summarizer failed, keeping feed text", "source", cand.source.Name, "error", err)
		case verdict == nil:
			c.logger.Info("not newsworthy", "source", cand.source.Name, "title", cand.entry.Title)
			return false, nil
		default:
			article.Summary = orText(verdict.Summary, article.Summary)
			article.Why = verdict.Why
		}
	}

	if err := c.store.SaveArticle(ctx, day, name, article); err != nil {
		return false, err
	}
	c.logger.Info("article archived", "source", cand.source.Name, "file", name)
	return true, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func orText(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// keywordMatcher matches ASCII keywords on word boundaries and all others as
// plain substrings, both case-insensitively.
type keywordMatcher struct {
	words     *regexp.Regexp
	fragments []string
}

func newKeywordMatcher(keywords []string) *keywordMatcher {
	m := &keywordMatcher{}
	var words []string
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		switch {
		case k == "":
		case isASCII(k):
			words = append(words, regexp.QuoteMeta(k))
		default:
			m.fragments = append(m.fragments, strings.ToLower(k))
		}
	}
	if len(words) > 0 {
		m.words = regexp.MustCompile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`)
	}
	return m
}

// Match reports whether text mentions a keyword. No keywords matches everything.
func (m *keywordMatcher) Match(text string) bool {
	if m.words == nil && len(m.fragments) == 0 {
		return true
	}
	if m.words != nil && m.words.MatchString(text) {
		return true
	}
	lower := strings.ToLower(text)
	for _, f := range m.fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
