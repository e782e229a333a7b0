// Package store keeps raw records on disk under one directory per collection
// day: <root>/YYYY-MM-DD/... in any historical format.
package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/flytam/filenamify"

	"AIToolNews/internal/atomicfile"
	"AIToolNews/internal/domain"
	"AIToolNews/internal/ports"
)

var dayDirExpr = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// FileStore reads and writes raw records below a root directory.
type FileStore struct {
	root   string
	logger *slog.Logger
}

var (
	_ ports.RecordReader   = (*FileStore)(nil)
	_ ports.RecordWriter   = (*FileStore)(nil)
	_ ports.RecordRewriter = (*FileStore)(nil)
	_ ports.ArticleWriter  = (*FileStore)(nil)
)

// generalNewsDir is the per-day subdirectory holding feed articles.
const generalNewsDir = "general_news"

// NewFileStore builds a store rooted at root.
func NewFileStore(root string, logger *slog.Logger) *FileStore {
	return &FileStore{root: root, logger: logger}
}

// RecordName derives the stable file name of a collected post so that a
// re-run over an overlapping window targets the same file.
func RecordName(tool, postURL string) string {
	sum := md5.Sum([]byte(postURL))
	hash := hex.EncodeToString(sum[:])[:8]

	name := strings.ReplaceAll(strings.TrimSpace(tool), "/", "-")
	safe, err := filenamify.Filenamify(name, filenamify.Options{Replacement: "_"})
	if err != nil || safe == "" {
		safe = "unknown"
	}
	safe = strings.ReplaceAll(safe, " ", "_")
	return safe + "_" + hash + ".json"
}

// Records walks every day directory in lexical order. Hidden and temporary
// files are skipped; unreadable files are logged and skipped.
func (s *FileStore) Records(ctx context.Context) ([]domain.RawRecord, error) {
	var records []domain.RawRecord

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == s.root {
				return fs.SkipAll
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if strings.HasPrefix(d.Name(), ".") && path != s.root {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".json" && ext != ".md" && ext != ".txt" {
			return nil
		}

		payload, readErr := os.ReadFile(path)
		if readErr != nil {
			s.warn("skip unreadable record", "path", path, "error", readErr)
			return nil
		}
		records = append(records, domain.RawRecord{
			Path:    path,
			Day:     s.dayOf(path),
			Payload: payload,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}
	return records, nil
}

// Name implements ports.RecordWriter via RecordName.
func (s *FileStore) Name(tool, postURL string) string {
	return RecordName(tool, postURL)
}

// Exists reports whether a record was already archived for the day.
func (s *FileStore) Exists(day, name string) bool {
	_, err := os.Stat(filepath.Join(s.root, day, name))
	return err == nil
}

// Save writes a new JSON record for the day.
func (s *FileStore) Save(ctx context.Context, day, name string, rec domain.ReportRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.root, day, name), rec)
}

// ArticleName derives the stable markdown file name of a feed article.
func (s *FileStore) ArticleName(source, link string) string {
	return "GEN_" + strings.TrimSuffix(RecordName(source, link), ".json") + ".md"
}

// ArticleExists reports whether a feed article was already archived for the day.
func (s *FileStore) ArticleExists(day, name string) bool {
	_, err := os.Stat(filepath.Join(s.root, day, generalNewsDir, name))
	return err == nil
}

// SaveArticle writes a feed article in the general-news markdown shape.
func (s *FileStore) SaveArticle(ctx context.Context, day, name string, article domain.GeneralArticle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return atomicfile.Write(filepath.Join(s.root, day, generalNewsDir, name), GeneralNewsMarkdown(article))
}

// GeneralNewsMarkdown renders an article as "# Title", labeled source, date
// and URL lines, then a "## Summary" section.
func GeneralNewsMarkdown(a domain.GeneralArticle) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", oneLine(a.Title))
	fmt.Fprintf(&b, "- **Source**: %s\n", oneLine(a.Source))
	if a.Region != "" {
		fmt.Fprintf(&b, "- **Region**: %s\n", oneLine(a.Region))
	}
	fmt.Fprintf(&b, "- **Date**: %s\n", a.Date)
	fmt.Fprintf(&b, "- **URL**: %s\n\n", a.URL)
	fmt.Fprintf(&b, "## Summary\n%s\n", strings.TrimSpace(a.Summary))
	if why := strings.TrimSpace(a.Why); why != "" {
		fmt.Fprintf(&b, "\n- **Why**: %s\n", oneLine(why))
	}
	return []byte(b.String())
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Rewrite replaces an existing JSON record in place.
func (s *FileStore) Rewrite(ctx context.Context, path string, rec domain.ReportRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("rewrite %s: %w", path, err)
	}
	return writeJSON(path, rec)
}

func (s *FileStore) dayOf(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return ""
	}
	first, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	if dayDirExpr.MatchString(first) {
		return first
	}
	return ""
}

func (s *FileStore) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func writeJSON(path string, rec domain.ReportRecord) error {
	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return atomicfile.Write(path, payload)
}
