package parser

import (
	"errors"
	"testing"
	"time"

	"AIToolNews/internal/dates"
	"AIToolNews/internal/domain"
	"AIToolNews/internal/logging"
)

func testOptions() Options {
	return Options{
		DefaultWhy:    "See details.",
		DefaultScore:  3,
		MinBodyLength: 15,
		NoNews:        Sentinels{"No significant news", "Updates not found"},
	}
}

func testDispatcher() *Dispatcher {
	opts := testOptions()
	resolver := dates.NewResolver(time.FixedZone("JST", 9*3600), "")
	return NewDispatcher(NewDefaultRegistry(opts), opts, resolver, logging.Discard())
}

func TestDetectShape(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
		want    domain.Shape
	}{
		{"object", `{"tool":"Cursor"}`, domain.ShapeJSON},
		{"list with bom", "\xef\xbb\xbf[{}]", domain.ShapeJSON},
		{"category report", "# Coding - Daily Report\n\n## Cursor\ntext", domain.ShapeCategoryMD},
		{"post list", "# Cursor\n- Post: hello\n- Time: 2026-01-01", domain.ShapePostList},
		{"general news", "# Title\n- **Source**: Verge\n\n## Summary\nBody", domain.ShapeGeneralNews},
		{"plain text", "nothing structured here", domain.ShapeUnknown},
		{"empty", "   ", domain.ShapeUnknown},
	}

	for _, tc := range cases {
		got := DetectShape(domain.RawRecord{Payload: []byte(tc.payload)})
		if got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if _, err := reg.Resolve(domain.ShapeJSON); !errors.Is(err, ErrUnknownShape) {
		t.Fatalf("expected ErrUnknownShape, got %v", err)
	}
}

func TestCategoryReportSkipsNoNewsSections(t *testing.T) {
	t.Parallel()

	payload := `# Coding - Daily Report

## Cursor
No significant news found.

## Claude Code
- **Summary**: Claude Code adds lifecycle hooks for automation.
- **URL**: https://x.com/anthropic/status/1
- **Date**: 2026-01-29T10:00:00Z
- **Why**: Enables scripted workflows
- **Importance**: ★★★★
`
	items := testDispatcher().Parse(domain.RawRecord{Path: "reports/2026-01-29/coding.md", Payload: []byte(payload)})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d: %+v", len(items), items)
	}

	got := items[0]
	if got.Category != "Coding" || got.Tool != "Claude Code" {
		t.Fatalf("unexpected category/tool: %q %q", got.Category, got.Tool)
	}
	if got.RawSummary != "Claude Code adds lifecycle hooks for automation." {
		t.Fatalf("unexpected summary: %q", got.RawSummary)
	}
	if got.PrimaryURL != "https://x.com/anthropic/status/1" {
		t.Fatalf("unexpected url: %q", got.PrimaryURL)
	}
	if got.RawDate != "2026-01-29T10:00:00Z" {
		t.Fatalf("unexpected date: %q", got.RawDate)
	}
	if got.Why != "Enables scripted workflows" || got.Score != 4 {
		t.Fatalf("unexpected why/score: %q %d", got.Why, got.Score)
	}
	if got.Source != "reports/2026-01-29/coding.md" {
		t.Fatalf("expected source path to be set, got %q", got.Source)
	}
}

func TestNoNewsJSONYieldsNothing(t *testing.T) {
	t.Parallel()

	payload := `{"tool":"Cursor","summary":"No significant news found","url":"#"}`
	items := testDispatcher().Parse(domain.RawRecord{Path: "reports/2026-01-29/cursor.json", Payload: []byte(payload)})
	if len(items) != 0 {
		t.Fatalf("expected no items, got %+v", items)
	}
}

func TestJSONRecordFields(t *testing.T) {
	t.Parallel()

	payload := `[
	  {"category":"Coding","tool":"Cursor","summary":"Cursor ships background agents for all plans.","post_date":"2026-01-29","url":"https://x.com/cursor/status/9","score":5,"identity_key":"pinned-key"},
	  {"tool_name":"Devin","has_news":false,"post_text":"ignored"},
	  {"tool_name":"Windsurf","post_text":"Windsurf adds a new planning mode today.","importance":"★★"}
	]`
	items := testDispatcher().Parse(domain.RawRecord{Payload: []byte(payload)})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	if items[0].Score != 5 || items[0].PinnedIdentity != "pinned-key" || items[0].RawDate != "2026-01-29" {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].Tool != "Windsurf" || items[1].Score != 2 {
		t.Fatalf("unexpected second item: %+v", items[1])
	}
	if items[1].PrimaryURL != domain.NoURL || items[1].Why != "See details." {
		t.Fatalf("expected defaults on second item, got %+v", items[1])
	}
}

func TestMalformedJSONIsSkipped(t *testing.T) {
	t.Parallel()

	items := testDispatcher().Parse(domain.RawRecord{Path: "broken.json", Payload: []byte(`{"tool": `)})
	if len(items) != 0 {
		t.Fatalf("expected no items, got %+v", items)
	}
}

func TestPostListSplitsPosts(t *testing.T) {
	t.Parallel()

	payload := `# OpenAI
- Post: GPT update rolls out to every workspace.
- Time: 2026-01-29 10:00
- URL: https://x.com/openai/status/1

- Post: Second post about the API.
- Time: 2026-01-28
- URL: https://x.com/openai/status/2
`
	items := testDispatcher().Parse(domain.RawRecord{Path: "reports/2026-01-29/OpenAI.md", Payload: []byte(payload)})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Tool != "OpenAI" || items[1].Tool != "OpenAI" {
		t.Fatalf("unexpected tools: %q %q", items[0].Tool, items[1].Tool)
	}
	if items[1].RawSummary != "Second post about the API." {
		t.Fatalf("unexpected summary: %q", items[1].RawSummary)
	}
	if items[1].PrimaryURL != "https://x.com/openai/status/2" || items[1].RawDate != "2026-01-28" {
		t.Fatalf("unexpected second item: %+v", items[1])
	}
}

func TestUndatedLegacySectionUsesFolderDay(t *testing.T) {
	t.Parallel()

	payload := `# Top - Daily Report

## Claude
- **URL**: https://x.com/claudeai/status/5
- **Summary**: Claude adds PDF uploads for all plans.
- **Why**: Documents become first class
`
	rec := domain.RawRecord{Path: "reports/2026-01-29/1_Top.md", Day: "2026-01-29", Payload: []byte(payload)}
	items := testDispatcher().Parse(rec)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %+v", items)
	}
	if items[0].RawDate != "2026-01-29" {
		t.Fatalf("expected folder day as date, got %q", items[0].RawDate)
	}

	short := domain.RawRecord{Path: "reports/2026-01-29/OpenAI.md", Day: "2026-01-29", Payload: []byte("# OpenAI\n- Post: GPT-5 out\n")}
	if items := testDispatcher().Parse(short); len(items) != 1 || items[0].RawDate != "2026-01-29" {
		t.Fatalf("expected short post dated by folder to survive, got %+v", items)
	}
}

func TestShortUndatedItemsAreDropped(t *testing.T) {
	t.Parallel()

	payload := `[
	  {"tool":"A","summary":"tiny"},
	  {"tool":"B","summary":"tiny","post_date":"2026-01-29"}
	]`
	items := testDispatcher().Parse(domain.RawRecord{Payload: []byte(payload)})
	if len(items) != 1 || items[0].Tool != "B" {
		t.Fatalf("expected only the dated item, got %+v", items)
	}
}

func TestGeneralNewsArticle(t *testing.T) {
	t.Parallel()

	payload := `# OpenAI releases o5

- **Source**: TechCrunch
- **Date**: 2026-01-29
- **URL**: https://techcrunch.com/o5

## Summary
OpenAI released o5 with better reasoning.

- **Why**: Big model jump
`
	items := testDispatcher().Parse(domain.RawRecord{Payload: []byte(payload)})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	got := items[0]
	if got.Tool != "TechCrunch" || got.Category != "General News" {
		t.Fatalf("unexpected tool/category: %q %q", got.Tool, got.Category)
	}
	if got.RawSummary != "OpenAI released o5 with better reasoning." {
		t.Fatalf("unexpected summary: %q", got.RawSummary)
	}
	if got.Why != "Big model jump" || got.PrimaryURL != "https://techcrunch.com/o5" {
		t.Fatalf("unexpected why/url: %q %q", got.Why, got.PrimaryURL)
	}
}

func TestLabelPriority(t *testing.T) {
	t.Parallel()

	block := "- Time: 2026-01-28\n- Date: 2026-01-29\n- Link: https://b.example\n- URL: https://a.example\n- Post: body text here"
	item := postItem(block, "Tool", "Cat", testOptions())
	if item.RawDate != "2026-01-29" {
		t.Fatalf("expected Date to win over Time, got %q", item.RawDate)
	}
	if item.PrimaryURL != "https://a.example" {
		t.Fatalf("expected URL to win over Link, got %q", item.PrimaryURL)
	}
	if item.RawSummary != "body text here" {
		t.Fatalf("unexpected summary: %q", item.RawSummary)
	}
}
