package usecase

import (
	"fmt"
	"strings"

	"AIToolNews/internal/domain"
)

const digestPreviewRunes = 50

// BuildDigest renders the chat message: a header, up to maxItems previews,
// a count of the rest and a link to the site.
func BuildDigest(date string, items []domain.CanonicalItem, maxItems int, siteURL string) string {
	if maxItems <= 0 {
		maxItems = len(items)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 %s AI News Digest\n\n", date)

	shown := items
	if len(shown) > maxItems {
		shown = shown[:maxItems]
	}
	previews := make([]string, 0, len(shown))
	for _, item := range shown {
		previews = append(previews, fmt.Sprintf("🔹 %s\n%s...", item.Tool, digestPreview(item.CleanSummary)))
	}
	b.WriteString(strings.Join(previews, "\n\n"))

	if rest := len(items) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "\n\n...and %d more.", rest)
	}
	if siteURL != "" {
		fmt.Fprintf(&b, "\n\n🔗 Full Report:\n%s", siteURL)
	}
	return b.String()
}

func digestPreview(s string) string {
	r := []rune(s)
	if len(r) > digestPreviewRunes {
		r = r[:digestPreviewRunes]
	}
	return strings.TrimSpace(string(r))
}
