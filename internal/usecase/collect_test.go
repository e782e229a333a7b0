package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"AIToolNews/internal/domain"
	"AIToolNews/internal/retry"
)

var jst = time.FixedZone("JST", 9*3600)

func collectOptions() CollectOptions {
	return CollectOptions{
		Concurrency:      2,
		Timeout:          time.Second,
		Window:           4 * time.Hour,
		MinBodyLength:    15,
		DefaultWhy:       "詳細をご確認ください。",
		DefaultScore:     3,
		BreakerThreshold: 3,
		Retry:            testRetry(),
		Location:         jst,
	}
}

func fixedNow() time.Time {
	return time.Date(2026, 1, 29, 10, 0, 0, 0, jst)
}

func TestCollectorArchivesNewsworthyPosts(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: map[string][]domain.SearchResult{
		"Coding": {
			{ToolName: "Cursor", HasNews: true, PostText: "Cursor ships background agents to everyone.", PostDate: "2026-01-29 09:00", PostURL: "https://x.com/cursor/status/1"},
			{ToolName: "Windsurf", HasNews: false, PostText: "No recent updates"},
			{ToolName: "Zed", HasNews: true, PostText: "gm", PostURL: "https://x.com/zed/status/2"},
			{ToolName: "Cline", HasNews: true, PostText: "Cline hiring a community manager in Tokyo.", PostURL: "https://x.com/cline/status/3"},
			{ToolName: "Aider", HasNews: true, PostText: "Aider adds architect mode for all models.", PostURL: "https://x.com/aider/status/4"},
		},
	}}
	summarizer := &fakeSummarizer{
		verdicts: map[string]*domain.Verdict{
			"Cursor": {Summary: "Cursor のバックグラウンドエージェントが全員に公開", Why: "開発フローが変わる", Score: 5},
		},
		errs: map[string]error{"Aider": &retry.StatusError{Code: 400}},
	}
	store := newMemoryStore()

	c := NewCollector(CollectorDeps{
		Targets:    []domain.TargetCategory{{Category: "Coding", Tools: []domain.Target{{Name: "Cursor", Accounts: []string{"@cursor_ai"}}}}},
		Searcher:   searcher,
		Summarizer: summarizer,
		Store:      store,
		Options:    collectOptions(),
		Now:        fixedNow,
	})

	report, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if report.Saved != 2 {
		t.Fatalf("expected 2 saved records, got %+v", report)
	}

	cursor, ok := store.saved["2026-01-29/Cursor|https://x.com/cursor/status/1"]
	if !ok {
		t.Fatalf("expected Cursor record, got %v", store.saved)
	}
	if cursor.Why != "開発フローが変わる" || cursor.Score == nil || *cursor.Score != 5 || cursor.Category != "Coding" {
		t.Fatalf("unexpected Cursor record %+v", cursor)
	}
	if cursor.CollectedAt != "2026-01-29T10:00:00+09:00" {
		t.Fatalf("unexpected collected_at %q", cursor.CollectedAt)
	}

	aider := store.saved["2026-01-29/Aider|https://x.com/aider/status/4"]
	if aider.Summary != "Aider adds architect mode for all models." || aider.Why != "詳細をご確認ください。" || *aider.Score != 3 {
		t.Fatalf("expected raw text with defaults after summarizer failure, got %+v", aider)
	}

	if _, ok := store.saved["2026-01-29/Cline|https://x.com/cline/status/3"]; ok {
		t.Fatalf("expected not-newsworthy post to be skipped")
	}
}

func TestCollectorSkipsArchivedBeforeSummarizing(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{results: map[string][]domain.SearchResult{
		"Coding": {{ToolName: "Cursor", HasNews: true, PostText: "Cursor ships background agents to everyone.", PostURL: "https://x.com/cursor/status/1"}},
	}}
	summarizer := &fakeSummarizer{verdicts: map[string]*domain.Verdict{"Cursor": {Summary: "s", Why: "w", Score: 4}}}
	store := newMemoryStore()

	c := NewCollector(CollectorDeps{
		Targets:    []domain.TargetCategory{{Category: "Coding"}},
		Searcher:   searcher,
		Summarizer: summarizer,
		Store:      store,
		Options:    collectOptions(),
		Now:        fixedNow,
	})

	for i := 0; i < 2; i++ {
		if _, err := c.Collect(context.Background()); err != nil {
			t.Fatalf("Collect returned error: %v", err)
		}
	}
	if summarizer.calls != 1 {
		t.Fatalf("expected one summarizer call across overlapping runs, got %d", summarizer.calls)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected a single record, got %d", len(store.saved))
	}
}

func TestCollectorCircuitBreaker(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{err: &retry.StatusError{Code: 401}}
	var targets []domain.TargetCategory
	for i := 0; i < 6; i++ {
		targets = append(targets, domain.TargetCategory{Category: fmt.Sprintf("cat-%d", i)})
	}

	opts := collectOptions()
	opts.Concurrency = 1
	opts.BreakerThreshold = 2

	c := NewCollector(CollectorDeps{
		Targets:  targets,
		Searcher: searcher,
		Store:    newMemoryStore(),
		Options:  opts,
		Now:      fixedNow,
	})

	report, err := c.Collect(context.Background())
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if searcher.calls >= len(targets) {
		t.Fatalf("expected remaining categories to be abandoned, got %d calls", searcher.calls)
	}
	if report.Failed < 2 {
		t.Fatalf("expected failures to be counted, got %+v", report)
	}
}

func TestCollectorRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	searcher := &flakySearcher{failures: 2}
	c := NewCollector(CollectorDeps{
		Targets:  []domain.TargetCategory{{Category: "Coding"}},
		Searcher: searcher,
		Store:    newMemoryStore(),
		Options:  collectOptions(),
		Now:      fixedNow,
	})

	if _, err := c.Collect(context.Background()); err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if searcher.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", searcher.calls)
	}
}

type flakySearcher struct {
	failures int
	calls    int
}

func (f *flakySearcher) Search(context.Context, domain.SearchQuery) ([]domain.SearchResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, &retry.StatusError{Code: 503}
	}
	return nil, nil
}

func TestRunContextResetsOnSuccess(t *testing.T) {
	t.Parallel()

	run := NewRunContext(2, nil)
	run.Failure("a", errors.New("boom"))
	run.Success()
	if run.Failure("b", errors.New("boom")) {
		t.Fatalf("expected breaker closed after reset")
	}
	if !run.Failure("c", errors.New("boom")) {
		t.Fatalf("expected breaker open after two consecutive failures")
	}
	if !errors.Is(run.Err(), ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen")
	}
}
