// Package site renders the static site: the Recent view as index.html, one
// page per month under archive/, an archive index and a JSON feed.
package site

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"AIToolNews/internal/atomicfile"
	"AIToolNews/internal/domain"
	"AIToolNews/internal/ports"
)

//go:embed templates/*.html
var templateFS embed.FS

const generatedLayout = "2006-01-02 15:04"

// Renderer writes site files below the docs directory.
type Renderer struct {
	docs    string
	index   *template.Template
	archive *template.Template
	logger  *slog.Logger
}

var _ ports.SiteRenderer = (*Renderer)(nil)

// NewRenderer parses the embedded templates.
func NewRenderer(docs string, logger *slog.Logger) *Renderer {
	return &Renderer{
		docs:    docs,
		index:   template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/index.html")),
		archive: template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/archive.html")),
		logger:  logger,
	}
}

// MonthPath is where a monthly page lives relative to the docs directory.
func MonthPath(month string) string {
	return filepath.Join("archive", month+".html")
}

// Built reports whether the page for month was produced by an earlier run.
func (r *Renderer) Built(month string) bool {
	_, err := os.Stat(filepath.Join(r.docs, MonthPath(month)))
	return err == nil
}

type card struct {
	Identity  string
	Tool      string
	Category  string
	Date      string
	Summary   string
	Why       string
	Score     int
	Stars     string
	Link      string
	HasLink   bool
	Reference string
	New       bool
}

type group struct {
	Heading string
	Cards   []card
}

type page struct {
	Title     string
	Subtitle  string
	Root      string
	Generated string
	Groups    []group
	Months    []domain.MonthSummary
}

// Render writes every file of the build. Monthly pages not listed in
// b.Months are left as they are.
func (r *Renderer) Render(ctx context.Context, b domain.SiteBuild) error {
	generated := b.GeneratedAt.Format(generatedLayout)

	index := page{Title: b.Title, Root: "", Generated: generated}
	for _, g := range b.Recent {
		index.Groups = append(index.Groups, group{Heading: g.Bucket, Cards: cards(g.Items, b.NewItems)})
	}
	if err := r.write("index.html", r.index, "index.html", index); err != nil {
		return err
	}

	for _, m := range b.Months {
		if err := ctx.Err(); err != nil {
			return err
		}
		monthPage := page{Title: b.Title, Subtitle: m.Month, Root: "../", Generated: generated, Groups: byBucket(m.Items, b.NewItems)}
		if err := r.write(MonthPath(m.Month), r.index, "index.html", monthPage); err != nil {
			return err
		}
		if r.logger != nil {
			r.logger.Debug("month page written", "month", m.Month, "items", len(m.Items))
		}
	}

	archive := page{Title: b.Title, Subtitle: "Archive", Root: "../", Generated: generated, Months: b.Archive}
	if err := r.write(filepath.Join("archive", "index.html"), r.archive, "archive.html", archive); err != nil {
		return err
	}

	return r.writeFeed(b)
}

type feedItem struct {
	IdentityKey  string `json:"identity_key"`
	Tool         string `json:"tool"`
	Category     string `json:"category,omitempty"`
	Summary      string `json:"summary"`
	Why          string `json:"why,omitempty"`
	Score        int    `json:"score"`
	URL          string `json:"url"`
	ReferenceURL string `json:"reference_url,omitempty"`
	Date         string `json:"date"`
	DisplayDate  string `json:"display_date"`
}

type feed struct {
	Title     string     `json:"title"`
	HomePage  string     `json:"home_page_url,omitempty"`
	Generated string     `json:"generated_at"`
	Items     []feedItem `json:"items"`
}

func (r *Renderer) writeFeed(b domain.SiteBuild) error {
	out := feed{Title: b.Title, HomePage: b.SiteURL, Generated: b.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"), Items: []feedItem{}}
	for _, item := range b.Feed {
		out.Items = append(out.Items, feedItem{
			IdentityKey:  item.IdentityKey,
			Tool:         item.Tool,
			Category:     item.Category,
			Summary:      item.CleanSummary,
			Why:          item.Why,
			Score:        item.Score,
			URL:          item.Link(),
			ReferenceURL: item.ReferenceURL,
			Date:         item.DateBucket,
			DisplayDate:  item.DisplayDate,
		})
	}

	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode feed: %w", err)
	}
	return writeFile(filepath.Join(r.docs, "feed.json"), payload)
}

func (r *Renderer) write(rel string, tmpl *template.Template, name string, data page) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", rel, err)
	}
	return writeFile(filepath.Join(r.docs, rel), buf.Bytes())
}

func byBucket(items []domain.CanonicalItem, fresh map[string]bool) []group {
	var groups []group
	for _, item := range items {
		if len(groups) == 0 || groups[len(groups)-1].Heading != item.DateBucket {
			groups = append(groups, group{Heading: item.DateBucket})
		}
		last := &groups[len(groups)-1]
		last.Cards = append(last.Cards, toCard(item, fresh))
	}
	return groups
}

func cards(items []domain.CanonicalItem, fresh map[string]bool) []card {
	out := make([]card, 0, len(items))
	for _, item := range items {
		out = append(out, toCard(item, fresh))
	}
	return out
}

func toCard(item domain.CanonicalItem, fresh map[string]bool) card {
	link := item.Link()
	score := item.Score
	if score < 1 || score > 5 {
		score = 3
	}
	return card{
		Identity:  item.IdentityKey,
		Tool:      item.Tool,
		Category:  item.Category,
		Date:      item.DisplayDate,
		Summary:   item.CleanSummary,
		Why:       item.Why,
		Score:     score,
		Stars:     strings.Repeat("★", score) + strings.Repeat("☆", 5-score),
		Link:      link,
		HasLink:   link != "" && link != domain.NoURL,
		Reference: item.ReferenceURL,
		New:       fresh[item.IdentityKey],
	}
}

func writeFile(path string, payload []byte) error {
	return atomicfile.Write(path, payload)
}
