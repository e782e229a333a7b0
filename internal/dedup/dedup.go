// Package dedup assigns stable identities to enriched items and collapses
// duplicates collected by overlapping runs.
package dedup

import (
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/purell"

	"AIToolNews/internal/domain"
)

const compositePrefixLen = 30

// Matcher reports whether a summary is a "no news" placeholder.
type Matcher interface {
	Match(text string) bool
}

// URLKey is the identity form of a real post URL, or "" for the sentinel
// and anything that is not an absolute http(s) URL.
func URLKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == domain.NoURL {
		return ""
	}
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return ""
	}
	norm, err := purell.NormalizeURLString(raw, purell.FlagsSafe|purell.FlagRemoveFragment|purell.FlagRemoveTrailingSlash)
	if err != nil {
		return raw
	}
	return norm
}

// IdentityKey derives the dedup and ledger key of an item. A pinned identity
// wins; then the post URL; then tool, bucket and summary prefix.
func IdentityKey(item domain.EnrichedItem) string {
	if pinned := strings.TrimSpace(item.PinnedIdentity); pinned != "" {
		return pinned
	}
	if key := URLKey(item.PrimaryURL); key != "" {
		return key
	}
	return CompositeKey(item.Tool, item.DateBucket, item.CleanSummary)
}

// CompositeKey builds the fallback identity for items without a post URL.
func CompositeKey(tool, bucket, summary string) string {
	return strings.TrimSpace(tool) + "|" + bucket + "|" + summaryPrefix(summary)
}

// summaryPrefix keeps the first letters and digits of the lowercased summary,
// so spacing and punctuation drift between formats does not change identity.
func summaryPrefix(summary string) string {
	var b strings.Builder
	n := 0
	for _, r := range strings.ToLower(summary) {
		if n == compositePrefixLen {
			break
		}
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// Deduplicate sorts items newest first and keeps the first item of every
// identity. Items whose summary is a "no news" placeholder are dropped.
func Deduplicate(items []domain.EnrichedItem, noNews Matcher) []domain.CanonicalItem {
	keyed := make([]domain.CanonicalItem, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.CleanSummary) == "" {
			continue
		}
		if noNews != nil && noNews.Match(item.CleanSummary) {
			continue
		}
		keyed = append(keyed, domain.CanonicalItem{
			EnrichedItem: item,
			IdentityKey:  IdentityKey(item),
		})
	}

	SortNewestFirst(keyed)

	seen := make(map[string]bool, len(keyed))
	out := keyed[:0]
	for _, item := range keyed {
		if seen[item.IdentityKey] {
			continue
		}
		seen[item.IdentityKey] = true
		out = append(out, item)
	}
	return out
}

// SortNewestFirst orders by sort key descending; unknown dates sort last.
// Ties break on identity and then source path so the order never depends on
// the order records were read.
func SortNewestFirst(items []domain.CanonicalItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.SortKey != b.SortKey {
			return a.SortKey > b.SortKey
		}
		if a.IdentityKey != b.IdentityKey {
			return a.IdentityKey < b.IdentityKey
		}
		return a.Source < b.Source
	})
}
