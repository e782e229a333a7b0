package dedup

import (
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"

	"AIToolNews/internal/domain"
)

type phrases []string

func (p phrases) Match(text string) bool {
	lower := strings.ToLower(text)
	for _, s := range p {
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func enriched(tool, url, summary, bucket, sortKey, source string) domain.EnrichedItem {
	return domain.EnrichedItem{
		CandidateItem: domain.CandidateItem{Tool: tool, PrimaryURL: url, Source: source},
		CleanSummary:  summary,
		DateBucket:    bucket,
		SortKey:       sortKey,
	}
}

func TestIdentityKeyPrefersURL(t *testing.T) {
	t.Parallel()

	a := enriched("Cursor", "https://x.com/cursor/status/1/", "one", "2026-01-29", "2026-01-29 10:00", "")
	b := enriched("Cursor", "https://X.com/cursor/status/1", "two", "2026-01-28", "2026-01-28", "")

	assert.Equal(t, IdentityKey(a), IdentityKey(b))
	assert.Equal(t, IdentityKey(a), "https://x.com/cursor/status/1")
}

func TestIdentityKeyCompositeForSentinel(t *testing.T) {
	t.Parallel()

	item := enriched("Claude", domain.NoURL, "Claude now supports PDF uploads, for everyone!", "2026-01-29", "2026-01-29", "")
	assert.Equal(t, IdentityKey(item), "Claude|2026-01-29|claudenowsupportspdfuploadsfor")

	respaced := enriched("Claude", domain.NoURL, "Claude now  supports PDF-uploads for everyone", "2026-01-29", "2026-01-29", "")
	assert.Equal(t, IdentityKey(respaced), IdentityKey(item))
}

func TestIdentityKeyPinnedWins(t *testing.T) {
	t.Parallel()

	item := enriched("Claude", domain.NoURL, "rewritten summary", "2026-01-29", "2026-01-29", "")
	item.PinnedIdentity = "Claude|2026-01-29|original"
	assert.Equal(t, IdentityKey(item), "Claude|2026-01-29|original")
}

func TestDeduplicateKeepsMostRecent(t *testing.T) {
	t.Parallel()

	items := []domain.EnrichedItem{
		enriched("Cursor", "https://x.com/cursor/status/1", "older copy", "2026-01-28", "2026-01-28 23:00", "reports/2026-01-28/Cursor.md"),
		enriched("Cursor", "https://x.com/cursor/status/1", "newer copy", "2026-01-29", "2026-01-29 08:00", "reports/2026-01-29/cursor_ab12cd34.json"),
		enriched("Devin", "https://x.com/devin/status/2", "unique", "2026-01-27", "2026-01-27", "reports/2026-01-27/devin.json"),
	}

	got := Deduplicate(items, nil)
	assert.Equal(t, len(got), 2)
	assert.Equal(t, got[0].CleanSummary, "newer copy")
	assert.Equal(t, got[1].Tool, "Devin")
}

func TestDeduplicateDropsNoNews(t *testing.T) {
	t.Parallel()

	items := []domain.EnrichedItem{
		enriched("Cursor", domain.NoURL, "No significant news found", "2026-01-29", "2026-01-29", ""),
		enriched("Cursor", domain.NoURL, "", "2026-01-29", "2026-01-29", ""),
		enriched("Cursor", domain.NoURL, "Real update", "2026-01-29", "2026-01-29", ""),
	}

	got := Deduplicate(items, phrases{"no significant news"})
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].CleanSummary, "Real update")
}

func TestDeduplicateIsOrderIndependent(t *testing.T) {
	t.Parallel()

	items := []domain.EnrichedItem{
		enriched("A", "https://x.com/a/status/1", "a", "2026-01-29", "2026-01-29 10:00", "p1"),
		enriched("B", "https://x.com/b/status/2", "b", "2026-01-29", "2026-01-29 10:00", "p2"),
		enriched("C", domain.NoURL, "c", domain.UnknownDate, "", "p3"),
		enriched("D", "https://x.com/d/status/4", "d", "2026-01-30", "2026-01-30", "p4"),
	}
	reversed := make([]domain.EnrichedItem, len(items))
	for i := range items {
		reversed[len(items)-1-i] = items[i]
	}

	first := Deduplicate(items, nil)
	second := Deduplicate(reversed, nil)
	assert.Equal(t, first, second)
	assert.Equal(t, first[0].Tool, "D")
	assert.Equal(t, first[len(first)-1].Tool, "C")
}
