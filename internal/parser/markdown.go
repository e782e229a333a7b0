package parser

import (
	"path/filepath"
	"regexp"
	"strings"

	"AIToolNews/internal/domain"
)

var (
	reportTitleExpr = regexp.MustCompile(`(?m)^# (.*?) - Daily Report`)
	titleExpr       = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	summaryBodyExpr = regexp.MustCompile(`(?ms)^##\s*Summary\s*$(.*?)(?:^#{1,2}\s|\z)`)
)

// CategoryParser reads the legacy per-category report: a "# <Category> -
// Daily Report" title followed by one "## <Tool>" section per tool.
type CategoryParser struct {
	opts Options
}

var _ Parser = (*CategoryParser)(nil)

// NewCategoryParser builds the legacy category report parser.
func NewCategoryParser(opts Options) *CategoryParser {
	return &CategoryParser{opts: opts}
}

// Shape identifies the parser inside the registry.
func (p *CategoryParser) Shape() domain.Shape {
	return domain.ShapeCategoryMD
}

// Parse emits one candidate per tool section, or per post when a section
// repeats the "- Post:" delimiter.
func (p *CategoryParser) Parse(rec domain.RawRecord) ([]domain.CandidateItem, error) {
	content := normalizeNewlines(string(rec.Payload))

	category := "AI News"
	if m := reportTitleExpr.FindStringSubmatch(content); m != nil {
		category = strings.TrimSpace(m[1])
	}

	var items []domain.CandidateItem
	for _, section := range sectionExpr.Split(content, -1)[1:] {
		section = strings.TrimSpace(section)
		tool, body, _ := strings.Cut(section, "\n")
		tool = strings.TrimSpace(tool)
		body = strings.TrimSpace(body)

		if body == "" || p.opts.NoNews.Match(body) {
			continue
		}

		for _, block := range splitPosts(body) {
			if strings.TrimSpace(block) == "" || p.opts.NoNews.Match(block) {
				continue
			}
			items = append(items, datedByFolder(postItem(block, tool, category, p.opts), rec))
		}
	}
	return items, nil
}

// PostListParser reads per-tool files made of repeated "- Post:", "- Time:",
// "- URL:" blocks. The tool comes from the title or the file name.
type PostListParser struct {
	opts Options
}

var _ Parser = (*PostListParser)(nil)

// NewPostListParser builds the per-tool post list parser.
func NewPostListParser(opts Options) *PostListParser {
	return &PostListParser{opts: opts}
}

// Shape identifies the parser inside the registry.
func (p *PostListParser) Shape() domain.Shape {
	return domain.ShapePostList
}

// Parse emits one candidate per post block.
func (p *PostListParser) Parse(rec domain.RawRecord) ([]domain.CandidateItem, error) {
	content := normalizeNewlines(string(rec.Payload))

	tool := toolFromPath(rec.Path)
	category := ""
	if m := reportTitleExpr.FindStringSubmatch(content); m != nil {
		category = strings.TrimSpace(m[1])
	} else if m := titleExpr.FindStringSubmatch(content); m != nil {
		tool = strings.TrimSpace(m[1])
	}

	var items []domain.CandidateItem
	for _, block := range splitPosts(content) {
		if !postMarkerExpr.MatchString(block) || p.opts.NoNews.Match(block) {
			continue
		}
		items = append(items, datedByFolder(postItem(block, tool, category, p.opts), rec))
	}
	return items, nil
}

// GeneralNewsParser reads single-article reports from the RSS collector:
// "# Title", "- **Source**:", "- **Date**:", "- **URL**:", "## Summary".
type GeneralNewsParser struct {
	opts Options
}

var _ Parser = (*GeneralNewsParser)(nil)

// NewGeneralNewsParser builds the general news article parser.
func NewGeneralNewsParser(opts Options) *GeneralNewsParser {
	return &GeneralNewsParser{opts: opts}
}

// Shape identifies the parser inside the registry.
func (p *GeneralNewsParser) Shape() domain.Shape {
	return domain.ShapeGeneralNews
}

// Parse emits a single candidate per article.
func (p *GeneralNewsParser) Parse(rec domain.RawRecord) ([]domain.CandidateItem, error) {
	content := normalizeNewlines(string(rec.Payload))

	title := ""
	if m := titleExpr.FindStringSubmatch(content); m != nil {
		title = strings.TrimSpace(m[1])
	}

	summary := ""
	if m := summaryBodyExpr.FindStringSubmatch(content); m != nil {
		summary = strings.TrimSpace(m[1])
		if why, _, found := strings.Cut(summary, "\n- **Why**"); found {
			summary = strings.TrimSpace(why)
		}
	}
	if summary == "" {
		summary = title
	}
	if summary == "" || p.opts.NoNews.Match(summary) {
		return nil, nil
	}

	source, _ := field(content, sourceLabels, false)
	date, _ := field(content, dateLabels, false)
	why, _ := field(content, whyLabels, true)

	url := domain.NoURL
	if v, ok := field(content, urlLabels, false); ok {
		url = urlValue(v)
	}

	return []domain.CandidateItem{datedByFolder(domain.CandidateItem{
		RawDate:    date,
		Category:   "General News",
		Tool:       orDefault(source, "General News"),
		RawSummary: summary,
		PrimaryURL: url,
		Why:        orDefault(why, p.opts.DefaultWhy),
		Score:      p.opts.DefaultScore,
	}, rec)}, nil
}

// datedByFolder dates an item without a date label by the day directory
// its record was filed under.
func datedByFolder(item domain.CandidateItem, rec domain.RawRecord) domain.CandidateItem {
	if strings.TrimSpace(item.RawDate) == "" {
		item.RawDate = rec.Day
	}
	return item
}

func normalizeNewlines(s string) string {
	s = strings.TrimPrefix(s, "\xef\xbb\xbf")
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func toolFromPath(path string) string {
	if path == "" {
		return "Unknown"
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.TrimSpace(strings.ReplaceAll(base, "_", " "))
}
