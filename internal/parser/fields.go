package parser

import (
	"regexp"
	"strconv"
	"strings"

	"AIToolNews/internal/domain"
	"AIToolNews/internal/textnorm"
)

// Label variants in priority order; the first one present wins.
var (
	dateLabels    = []string{"Date", "Time", "Posted", "Published", "日付", "日時"}
	urlLabels     = []string{"URL", "Link", "Source URL", "Post URL"}
	summaryLabels = []string{"Summary", "要約", "概要"}
	postLabels    = []string{"Post"}
	whyLabels     = []string{"Why", "Reason", "理由"}
	scoreLabels   = []string{"Importance", "Score", "重要度"}
	sourceLabels  = []string{"Source"}
)

var knownLabels = func() map[string]bool {
	set := map[string]bool{}
	for _, group := range [][]string{dateLabels, urlLabels, summaryLabels, postLabels, whyLabels, scoreLabels, sourceLabels} {
		for _, l := range group {
			set[strings.ToLower(l)] = true
		}
	}
	return set
}()

var (
	labelLineExpr = regexp.MustCompile(`^\s*(?:[-*•]\s*)?(?:\*\*)?([^*:：\n]{1,24}?)(?:\*\*)?\s*[:：]\s*(.*)$`)
	headingExpr   = regexp.MustCompile(`^\s*#{1,6}\s`)
	digitExpr     = regexp.MustCompile(`[1-5]`)
)

// labeled splits a line into (label, value) when it starts with a known label.
func labeled(line string) (string, string, bool) {
	m := labelLineExpr.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	name := strings.ToLower(strings.TrimSpace(m[1]))
	if !knownLabels[name] {
		return "", "", false
	}
	return name, strings.TrimSpace(m[2]), true
}

// field returns the first value found for labels, in label priority order.
// With multiline set, unlabeled continuation lines are appended.
func field(block string, labels []string, multiline bool) (string, bool) {
	lines := strings.Split(block, "\n")
	for _, want := range labels {
		want = strings.ToLower(want)
		for i, line := range lines {
			name, value, ok := labeled(line)
			if !ok || name != want {
				continue
			}
			if !multiline {
				return cleanValue(value), true
			}
			parts := []string{value}
			for _, next := range lines[i+1:] {
				if _, _, isLabel := labeled(next); isLabel || headingExpr.MatchString(next) {
					break
				}
				if s := strings.TrimSpace(next); s != "" {
					parts = append(parts, s)
				}
			}
			return cleanValue(strings.Join(parts, "\n")), true
		}
	}
	return "", false
}

func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "**")
	v = strings.TrimSuffix(v, "**")
	return strings.TrimSpace(v)
}

// urlValue extracts a URL from a field value, or the NoURL sentinel.
func urlValue(v string) string {
	if urls := textnorm.ExtractURLs(v); len(urls) > 0 {
		return urls[0]
	}
	return domain.NoURL
}

// scoreValue reads a 1..5 score from digits or a star rating.
func scoreValue(v string, def int) int {
	if stars := strings.Count(v, "★"); stars > 0 {
		return clampScore(stars, def)
	}
	if d := digitExpr.FindString(v); d != "" {
		n, _ := strconv.Atoi(d)
		return clampScore(n, def)
	}
	return def
}

func clampScore(n, def int) int {
	if n < 1 || n > 5 {
		return def
	}
	return n
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// splitPosts cuts a body at every per-post delimiter. Bodies without
// delimiters come back as a single block.
func splitPosts(body string) []string {
	locs := postMarkerExpr.FindAllStringIndex(body, -1)
	if len(locs) == 0 {
		return []string{body}
	}
	blocks := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		blocks = append(blocks, strings.TrimSpace(body[loc[0]:end]))
	}
	return blocks
}

// postItem builds a candidate from a labeled block. The summary falls back
// to the whole block, which the normalizer later cleans of labels.
func postItem(block, tool, category string, opts Options) domain.CandidateItem {
	summary, ok := field(block, summaryLabels, true)
	if !ok {
		summary, ok = field(block, postLabels, true)
	}
	if !ok {
		summary = block
	}

	date, _ := field(block, dateLabels, false)

	url := domain.NoURL
	if v, ok := field(block, urlLabels, false); ok {
		url = urlValue(v)
	}

	why, _ := field(block, whyLabels, true)

	score := opts.DefaultScore
	if v, ok := field(block, scoreLabels, false); ok {
		score = scoreValue(v, opts.DefaultScore)
	}

	return domain.CandidateItem{
		RawDate:    date,
		Category:   category,
		Tool:       tool,
		RawSummary: summary,
		PrimaryURL: url,
		Why:        orDefault(why, opts.DefaultWhy),
		Score:      score,
	}
}
