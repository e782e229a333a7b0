// Package dates maps free-text post dates onto the target timezone.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"AIToolNews/internal/domain"
)

const (
	bucketLayout  = "2006-01-02"
	sortLayout    = "2006-01-02 15:04"
	defaultLayout = "2006年01月02日 15:04"
)

var (
	isoDayExpr    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	timeOfDayExpr = regexp.MustCompile(`\d{1,2}:\d{2}`)
	bracketExpr   = regexp.MustCompile(`[\(\[（][^\)\]）]*[\)\]）]`)
	spacesExpr    = regexp.MustCompile(`\s+`)
	kanjiDateExpr = regexp.MustCompile(`(?:(\d{4})\s*年\s*)?(\d{1,2})\s*月\s*(\d{1,2})\s*日`)
)

// zoneOffsets rewrites abbreviations dateparse cannot resolve on its own.
var zoneOffsets = map[string]string{
	"JST":  "+09:00",
	"KST":  "+09:00",
	"UTC":  "+00:00",
	"GMT":  "+00:00",
	"Z":    "+00:00",
	"PST":  "-08:00",
	"PDT":  "-07:00",
	"EST":  "-05:00",
	"EDT":  "-04:00",
	"CET":  "+01:00",
	"CEST": "+02:00",
}

// noiseTokens are dropped before parsing.
var noiseTokens = []string{"approx.", "approx", "about", "posted", "posted:", "date:", "time:", "頃"}

// Resolved is the outcome of resolving one raw date.
type Resolved struct {
	Bucket  string
	SortKey string
	Display string
}

// Known reports whether the date resolved to a calendar day.
func (r Resolved) Known() bool {
	return r.Bucket != domain.UnknownDate
}

// Resolver converts raw date strings in a fixed target timezone.
type Resolver struct {
	loc           *time.Location
	displayLayout string
	dateLayout    string
	now           func() time.Time
}

// NewResolver builds a resolver; an empty layout selects the default long form.
func NewResolver(loc *time.Location, displayLayout string) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	if displayLayout == "" {
		displayLayout = defaultLayout
	}
	return &Resolver{
		loc:           loc,
		displayLayout: displayLayout,
		dateLayout:    dateOnlyLayout(displayLayout),
		now:           time.Now,
	}
}

// WithClock replaces the clock used to complete dates that omit the year.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	if now != nil {
		r.now = now
	}
	return r
}

// Location returns the target timezone.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Known reports whether raw resolves to a calendar day.
func (r *Resolver) Known(raw string) bool {
	return r.Resolve(raw).Known()
}

// Resolve never fails: unparseable input yields the UnknownDate bucket.
func (r *Resolver) Resolve(raw string) Resolved {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return unknown()
	}

	if res, ok := r.parse(trimmed); ok {
		return res
	}

	if day := isoDayExpr.FindString(trimmed); day != "" {
		if _, err := time.Parse(bucketLayout, day); err == nil {
			return Resolved{Bucket: day, SortKey: day, Display: trimmed}
		}
	}

	return unknown()
}

func (r *Resolver) parse(raw string) (Resolved, bool) {
	cleaned := clean(raw)
	if cleaned == "" {
		return Resolved{}, false
	}

	parsed, err := dateparse.ParseIn(cleaned, time.UTC)
	if err != nil {
		return Resolved{}, false
	}
	if parsed.Year() == 0 {
		if parsed, err = r.completeYear(parsed); err != nil {
			return Resolved{}, false
		}
	}

	if !timeOfDayExpr.MatchString(cleaned) {
		// A bare calendar date names a day in the target zone; shifting
		// midnight UTC would move it.
		day := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, r.loc)
		bucket := day.Format(bucketLayout)
		return Resolved{Bucket: bucket, SortKey: bucket, Display: day.Format(r.dateLayout)}, true
	}

	local := parsed.In(r.loc)
	return Resolved{
		Bucket:  local.Format(bucketLayout),
		SortKey: local.Format(sortLayout),
		Display: local.Format(r.displayLayout),
	}, true
}

// completeYear places a month and day without a year in the most recent
// year that does not put it after today.
func (r *Resolver) completeYear(parsed time.Time) (time.Time, error) {
	now := r.now().In(r.loc)
	today := now.Format(bucketLayout)

	for _, year := range []int{now.Year(), now.Year() - 1} {
		candidate := time.Date(year, parsed.Month(), parsed.Day(),
			parsed.Hour(), parsed.Minute(), parsed.Second(), parsed.Nanosecond(), parsed.Location())
		if candidate.Month() != parsed.Month() {
			continue
		}
		day := time.Date(year, parsed.Month(), parsed.Day(), 0, 0, 0, 0, r.loc)
		if day.Format(bucketLayout) <= today {
			return candidate, nil
		}
	}
	return time.Time{}, fmt.Errorf("no past year for %s %d", parsed.Month(), parsed.Day())
}

func clean(raw string) string {
	s := kanjiDateExpr.ReplaceAllStringFunc(raw, isoFromKanji)
	s = bracketExpr.ReplaceAllStringFunc(s, func(m string) string {
		inner := strings.Trim(m, "()[]（）")
		if _, ok := zoneOffsets[strings.ToUpper(strings.TrimSpace(inner))]; ok {
			return " " + inner
		}
		return " "
	})

	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		lower := strings.ToLower(f)
		if isNoise(lower) {
			continue
		}
		if offset, ok := zoneOffsets[strings.ToUpper(f)]; ok {
			out = append(out, offset)
			continue
		}
		out = append(out, f)
	}

	joined := strings.Join(out, " ")
	return spacesExpr.ReplaceAllString(strings.TrimSpace(joined), " ")
}

// isoFromKanji rewrites "2026年1月29日" as "2026-01-29" and "1月29日" as "01/29".
func isoFromKanji(m string) string {
	parts := kanjiDateExpr.FindStringSubmatch(m)
	month, _ := strconv.Atoi(parts[2])
	day, _ := strconv.Atoi(parts[3])
	if parts[1] == "" {
		return fmt.Sprintf(" %02d/%02d ", month, day)
	}
	return fmt.Sprintf(" %s-%02d-%02d ", parts[1], month, day)
}

func isNoise(token string) bool {
	for _, n := range noiseTokens {
		if token == n {
			return true
		}
	}
	return false
}

func unknown() Resolved {
	return Resolved{Bucket: domain.UnknownDate, SortKey: "", Display: domain.UnknownDate}
}

// dateOnlyLayout trims the clock part from a display layout.
func dateOnlyLayout(layout string) string {
	idx := strings.Index(layout, "15")
	if idx < 0 {
		idx = strings.Index(layout, "3:04")
	}
	if idx <= 0 {
		return layout
	}
	return strings.TrimSpace(layout[:idx])
}
