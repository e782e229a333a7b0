// Package textnorm turns raw model output into a single clean display line.
package textnorm

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/PuerkitoBio/purell"

	"AIToolNews/internal/domain"
)

const maxPasses = 8

var (
	urlExpr = regexp.MustCompile(`https?://[^\s<>()\[\]{}"'「」（）、。]+`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}(?:[T ]\d{1,2}:\d{2}(?::\d{2}(?:\.\d{1,9})?)?)?(?:Z|\s?[+-]\d{2}:?\d{2})?(?:\s?\(?(?:JST|UTC|GMT|PST|PDT|EST|EDT)\)?)?`),
		regexp.MustCompile(`\d{4}/\d{1,2}/\d{1,2}(?: \d{1,2}:\d{2}(?::\d{2})?)?`),
		regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日(?:\s?\d{1,2}:\d{2}|\s?\d{1,2}時\d{1,2}分)?`),
		regexp.MustCompile(`(?i)\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*\.? \d{1,2}, \d{4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2} (?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]* \d{4}\b`),
	}

	// labelExpr matches one structural label prefix such as "- **Summary**:" or "Post:".
	labelExpr = regexp.MustCompile(`(?i)^(?:[-*•>]\s*)?(?:\*\*|__)?(summary|post|date|time|url|link|source|why|importance|score|要約|概要|日付|日時)(?:\*\*|__)?\s*[:：]\s*(?:\*\*|__)?`)

	bulletExpr    = regexp.MustCompile(`^(?:[-*•>]+|#{1,6}|\d+[.)])\s+`)
	emphasisExpr  = regexp.MustCompile("\\*\\*|__|~~|`+")
	looseStarExpr = regexp.MustCompile(`(^|\s)\*(\S)|(\S)\*(\s|$)`)
	headingExpr   = regexp.MustCompile(`(^|\s)#{1,6}\s`)
	emptyBrackets = regexp.MustCompile(`\(\s*\)|\[\s*\]|（\s*）`)
	spaceExpr     = regexp.MustCompile(`\s+`)
	htmlTagExpr   = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// metadataLabels name lines whose content belongs to another field.
var metadataLabels = map[string]bool{
	"why":        true,
	"importance": true,
	"score":      true,
	"source":     true,
}

// Result is the normalizer output for one item.
type Result struct {
	CleanSummary string
	ReferenceURL string
}

// Normalize produces the clean display summary and the secondary reference URL.
// Running it again on CleanSummary with the same primaryURL and rawDate is a no-op.
func Normalize(rawSummary, primaryURL, rawDate string) Result {
	ref := ReferenceURL(rawSummary, primaryURL)

	out := rawSummary
	for i := 0; i < maxPasses; i++ {
		next := pass(out, primaryURL, rawDate)
		if next == out {
			break
		}
		out = next
	}

	return Result{CleanSummary: out, ReferenceURL: ref}
}

// ReferenceURL returns the first URL in body that is not the primary URL.
func ReferenceURL(body, primaryURL string) string {
	primary := canonical(primaryURL)
	for _, u := range ExtractURLs(body) {
		if primary != "" && canonical(u) == primary {
			continue
		}
		return u
	}
	return ""
}

// ExtractURLs lists absolute URLs in order of appearance.
func ExtractURLs(body string) []string {
	matches := urlExpr.FindAllString(body, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = trimURL(m)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// StripDates removes absolute-date substrings.
func StripDates(s string) string {
	for _, re := range datePatterns {
		s = re.ReplaceAllString(s, " ")
	}
	return s
}

func pass(text, primaryURL, rawDate string) string {
	text = stripHTML(text)

	date := strings.TrimSpace(rawDate)
	primary := strings.TrimSpace(primaryURL)

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line, drop := stripLabels(strings.TrimSpace(line))
		if drop {
			continue
		}
		if line == "" {
			continue
		}
		if (date != "" && line == date) || (primary != "" && primary != domain.NoURL && line == primary) {
			continue
		}

		line = urlExpr.ReplaceAllString(line, " ")
		line = StripDates(line)
		line = stripMarkdown(line)
		line = emptyBrackets.ReplaceAllString(line, " ")
		line = strings.TrimSpace(spaceExpr.ReplaceAllString(line, " "))
		if line != "" {
			kept = append(kept, line)
		}
	}

	out := strings.Join(kept, " ")
	out = removeLiteral(out, primary)
	out = removeLiteral(out, date)
	return strings.TrimSpace(spaceExpr.ReplaceAllString(out, " "))
}

// stripLabels peels every leading label; metadata labels drop the line.
func stripLabels(line string) (string, bool) {
	for {
		m := labelExpr.FindStringSubmatch(line)
		if m == nil {
			return line, false
		}
		if metadataLabels[strings.ToLower(m[1])] {
			return "", true
		}
		line = strings.TrimSpace(line[len(m[0]):])
	}
}

func stripMarkdown(line string) string {
	for {
		next := bulletExpr.ReplaceAllString(line, "")
		if next == line {
			break
		}
		line = next
	}
	line = emphasisExpr.ReplaceAllString(line, "")
	line = looseStarExpr.ReplaceAllString(line, "$1$2$3$4")
	line = headingExpr.ReplaceAllString(line, "$1")
	return line
}

func stripHTML(s string) string {
	if !htmlTagExpr.MatchString(s) {
		return s
	}
	withBreaks := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n").Replace(s)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(withBreaks))
	if err != nil {
		return htmlTagExpr.ReplaceAllString(s, " ")
	}
	return doc.Text()
}

func removeLiteral(s, literal string) string {
	if literal == "" {
		return s
	}
	for strings.Contains(s, literal) {
		s = strings.ReplaceAll(s, literal, " ")
	}
	return s
}

func trimURL(u string) string {
	return strings.TrimRight(u, ".,;:!?*_)」』】")
}

// canonical is the comparison form of a URL; non-URLs compare as themselves.
func canonical(u string) string {
	u = strings.TrimSpace(u)
	if u == "" || u == domain.NoURL {
		return ""
	}
	norm, err := purell.NormalizeURLString(u, purell.FlagsSafe|purell.FlagRemoveFragment|purell.FlagRemoveTrailingSlash)
	if err != nil {
		return u
	}
	return norm
}
