package site

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"AIToolNews/internal/domain"
)

func canonical(key, tool, bucket, summary, url string) domain.CanonicalItem {
	return domain.CanonicalItem{
		EnrichedItem: domain.EnrichedItem{
			CandidateItem: domain.CandidateItem{Tool: tool, Category: "Coding", PrimaryURL: url, Why: "why", Score: 4},
			CleanSummary:  summary,
			DateBucket:    bucket,
			SortKey:       bucket,
			DisplayDate:   bucket,
		},
		IdentityKey: key,
	}
}

func openDoc(t *testing.T, path string) *goquery.Document {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return doc
}

func TestRenderWritesAllPages(t *testing.T) {
	t.Parallel()

	docs := t.TempDir()
	r := NewRenderer(docs, nil)

	a := canonical("k1", "Cursor", "2026-01-29", "Cursor ships agents <fast>", "https://x.com/c/status/1")
	b := canonical("k2", "Claude", "2026-01-28", "Claude adds PDF", domain.NoURL)

	build := domain.SiteBuild{
		Title:       "AI TOOL NEWS",
		SiteURL:     "https://example.github.io/news/",
		GeneratedAt: time.Date(2026, 1, 29, 8, 0, 0, 0, time.UTC),
		Recent: []domain.DateGroup{
			{Bucket: "2026-01-29", Items: []domain.CanonicalItem{a}},
			{Bucket: "2026-01-28", Items: []domain.CanonicalItem{b}},
		},
		Months:   []domain.MonthGroup{{Month: "2026-01", Items: []domain.CanonicalItem{a, b}}},
		Archive:  []domain.MonthSummary{{Month: "2026-01", Count: 2}},
		Feed:     []domain.CanonicalItem{a, b},
		NewItems: map[string]bool{"k1": true},
	}

	if err := r.Render(context.Background(), build); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	index := openDoc(t, filepath.Join(docs, "index.html"))
	if n := index.Find("section.date-section").Length(); n != 2 {
		t.Fatalf("expected 2 date sections, got %d", n)
	}
	if n := index.Find(".badge-new").Length(); n != 1 {
		t.Fatalf("expected exactly one NEW badge, got %d", n)
	}
	first := index.Find("article.news-card").First()
	if got := first.Find(".summary").Text(); got != "Cursor ships agents <fast>" {
		t.Fatalf("unexpected summary text %q", got)
	}
	if href, _ := first.Find("a.source-link").Attr("href"); href != "https://x.com/c/status/1" {
		t.Fatalf("unexpected link %q", href)
	}
	if n := index.Find("article.news-card").Last().Find("a.source-link").Length(); n != 0 {
		t.Fatalf("sentinel URL must not render a link")
	}

	if !r.Built("2026-01") {
		t.Fatalf("expected month page to be reported as built")
	}
	month := openDoc(t, filepath.Join(docs, "archive", "2026-01.html"))
	if n := month.Find("article.news-card").Length(); n != 2 {
		t.Fatalf("expected 2 cards on month page, got %d", n)
	}

	archive := openDoc(t, filepath.Join(docs, "archive", "index.html"))
	if href, _ := archive.Find(".month-list a").Attr("href"); href != "2026-01.html" {
		t.Fatalf("unexpected archive link %q", href)
	}

	raw, err := os.ReadFile(filepath.Join(docs, "feed.json"))
	if err != nil {
		t.Fatalf("read feed: %v", err)
	}
	var parsed struct {
		Items []struct {
			IdentityKey string `json:"identity_key"`
			URL         string `json:"url"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	if len(parsed.Items) != 2 || parsed.Items[0].IdentityKey != "k1" || parsed.Items[1].URL != domain.NoURL {
		t.Fatalf("unexpected feed: %+v", parsed.Items)
	}
}

func TestRenderLeavesUnlistedMonths(t *testing.T) {
	t.Parallel()

	docs := t.TempDir()
	r := NewRenderer(docs, nil)

	old := filepath.Join(docs, MonthPath("2025-06"))
	if err := os.MkdirAll(filepath.Dir(old), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(old, []byte("frozen"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := r.Render(context.Background(), domain.SiteBuild{Title: "T"}); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	raw, _ := os.ReadFile(old)
	if string(raw) != "frozen" {
		t.Fatalf("old month page must not be touched")
	}
	if r.Built("2025-07") {
		t.Fatalf("unbuilt month reported as built")
	}
}
