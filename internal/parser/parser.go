// Package parser converts persisted report records of every historical
// layout into candidate news items.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"AIToolNews/internal/domain"
)

// ErrUnknownShape is returned when no registered parser recognizes a record.
var ErrUnknownShape = errors.New("unknown record shape")

// Parser handles exactly one record shape.
type Parser interface {
	Shape() domain.Shape
	Parse(rec domain.RawRecord) ([]domain.CandidateItem, error)
}

// DateChecker tells whether a raw date string resolves to a calendar day.
type DateChecker interface {
	Known(raw string) bool
}

// Options carries the field defaults shared by every shape.
type Options struct {
	DefaultWhy    string
	DefaultScore  int
	MinBodyLength int
	NoNews        Sentinels
}

// Registry keeps a mapping from shape tags to their parsers.
type Registry struct {
	parsers map[domain.Shape]Parser
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: map[domain.Shape]Parser{}}
}

// NewDefaultRegistry registers every known shape.
func NewDefaultRegistry(opts Options) *Registry {
	reg := NewRegistry()
	reg.Register(NewJSONParser(opts))
	reg.Register(NewCategoryParser(opts))
	reg.Register(NewPostListParser(opts))
	reg.Register(NewGeneralNewsParser(opts))
	return reg
}

// Register adds or replaces a parser implementation.
func (r *Registry) Register(p Parser) {
	if r.parsers == nil {
		r.parsers = map[domain.Shape]Parser{}
	}
	r.parsers[p.Shape()] = p
}

// Resolve returns a parser by shape or an error if it is absent.
func (r *Registry) Resolve(shape domain.Shape) (Parser, error) {
	if p, ok := r.parsers[shape]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("shape %s: %w", shape, ErrUnknownShape)
}

// Dispatcher detects the shape of a record and runs the matching parser.
type Dispatcher struct {
	registry *Registry
	opts     Options
	dates    DateChecker
	logger   *slog.Logger
}

// NewDispatcher wires a registry with the noise filter applied to every shape.
func NewDispatcher(reg *Registry, opts Options, dates DateChecker, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{registry: reg, opts: opts, dates: dates, logger: logger}
}

// Parse never fails: a record no parser understands yields zero items and a log line.
func (d *Dispatcher) Parse(rec domain.RawRecord) []domain.CandidateItem {
	shape := DetectShape(rec)

	p, err := d.registry.Resolve(shape)
	if err != nil {
		d.warn("skip record", "path", rec.Path, "shape", shape, "error", err)
		return nil
	}

	items, err := p.Parse(rec)
	if err != nil {
		d.warn("parse record failed", "path", rec.Path, "shape", shape, "error", err,
			"sample", truncate(string(rec.Payload), 200))
		return nil
	}

	kept := items[:0]
	for _, item := range items {
		if d.isNoise(item) {
			d.debug("drop short undated item", "path", rec.Path, "tool", item.Tool)
			continue
		}
		if item.Source == "" {
			item.Source = rec.Path
		}
		kept = append(kept, item)
	}
	return kept
}

func (d *Dispatcher) isNoise(item domain.CandidateItem) bool {
	if d.opts.MinBodyLength <= 0 {
		return false
	}
	if utf8.RuneCountInString(strings.TrimSpace(item.RawSummary)) >= d.opts.MinBodyLength {
		return false
	}
	return d.dates == nil || !d.dates.Known(item.RawDate)
}

func (d *Dispatcher) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}

func (d *Dispatcher) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}

// Sentinels is a case-insensitive list of "no news" phrases.
type Sentinels []string

// Match reports whether text contains any sentinel phrase.
func (s Sentinels) Match(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range s {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase != "" && strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
