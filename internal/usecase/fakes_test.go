package usecase

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"AIToolNews/internal/domain"
	"AIToolNews/internal/ledger"
	"AIToolNews/internal/retry"
)

func noSleep(context.Context, time.Duration) error { return nil }

func testRetry() retry.Policy {
	return retry.Policy{Attempts: 3, Sleep: noSleep}
}

func newGuard(t *testing.T) *ledger.Guard {
	t.Helper()
	l, err := ledger.OpenFile(filepath.Join(t.TempDir(), "ledger.json"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	return ledger.NewGuard(l, nil)
}

func canonicalItem(tool, bucket, sortKey, key string) domain.CanonicalItem {
	return domain.CanonicalItem{
		EnrichedItem: domain.EnrichedItem{
			CandidateItem: domain.CandidateItem{Tool: tool, PrimaryURL: key},
			CleanSummary:  tool + " shipped something new",
			DateBucket:    bucket,
			SortKey:       sortKey,
		},
		IdentityKey: key,
	}
}

type fakeSearcher struct {
	mu      sync.Mutex
	calls   int
	results map[string][]domain.SearchResult
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results[q.Category], nil
}

type fakeSummarizer struct {
	mu       sync.Mutex
	calls    int
	verdicts map[string]*domain.Verdict
	errs     map[string]error
}

func (f *fakeSummarizer) Summarize(_ context.Context, tool, _ string) (*domain.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[tool]; err != nil {
		return nil, err
	}
	return f.verdicts[tool], nil
}

type memoryStore struct {
	mu      sync.Mutex
	saved   map[string]domain.ReportRecord
	written map[string]domain.ReportRecord
	records []domain.RawRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{saved: map[string]domain.ReportRecord{}, written: map[string]domain.ReportRecord{}}
}

func (m *memoryStore) Name(tool, postURL string) string {
	return tool + "|" + postURL
}

func (m *memoryStore) Exists(day, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.saved[day+"/"+name]
	return ok
}

func (m *memoryStore) Save(_ context.Context, day, name string, rec domain.ReportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[day+"/"+name] = rec
	return nil
}

func (m *memoryStore) Records(context.Context) ([]domain.RawRecord, error) {
	return m.records, nil
}

func (m *memoryStore) Rewrite(_ context.Context, path string, rec domain.ReportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written[path] = rec
	return nil
}

type fakeRenderer struct {
	builds []domain.SiteBuild
	built  map[string]bool
}

func (f *fakeRenderer) Render(_ context.Context, b domain.SiteBuild) error {
	f.builds = append(f.builds, b)
	if f.built == nil {
		f.built = map[string]bool{}
	}
	for _, m := range b.Months {
		f.built[m.Month] = true
	}
	return nil
}

func (f *fakeRenderer) Built(month string) bool {
	return f.built[month]
}

type fakeSocial struct {
	posted []string
	fail   map[string]bool
}

func (f *fakeSocial) Publish(_ context.Context, item domain.CanonicalItem) error {
	if f.fail[item.IdentityKey] {
		return &retry.StatusError{Code: 403}
	}
	f.posted = append(f.posted, item.IdentityKey)
	return nil
}

type fakeNotifier struct {
	digests []string
	err     error
}

func (f *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	if f.err != nil {
		return f.err
	}
	f.digests = append(f.digests, digest)
	return nil
}

type fixedGate bool

func (g fixedGate) Due(time.Time) bool { return bool(g) }

type staticItems []domain.CanonicalItem

func (s staticItems) Canonical(context.Context) ([]domain.CanonicalItem, error) {
	out := make([]domain.CanonicalItem, len(s))
	copy(out, s)
	return out, nil
}
