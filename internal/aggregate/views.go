package aggregate

import (
	"sort"
	"time"

	"AIToolNews/internal/dedup"
	"AIToolNews/internal/domain"
)

const monthLayout = "2006-01"

// RecentView keeps the items of the n most recent distinct date buckets,
// grouped by bucket and sorted newest first. Unknown dates are excluded.
func RecentView(items []domain.CanonicalItem, n int) []domain.DateGroup {
	if n <= 0 {
		return nil
	}

	seen := map[string]bool{}
	var buckets []string
	for _, item := range items {
		if item.DateBucket == domain.UnknownDate || seen[item.DateBucket] {
			continue
		}
		seen[item.DateBucket] = true
		buckets = append(buckets, item.DateBucket)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(buckets)))
	if len(buckets) > n {
		buckets = buckets[:n]
	}

	groups := make([]domain.DateGroup, 0, len(buckets))
	index := make(map[string]int, len(buckets))
	for i, b := range buckets {
		index[b] = i
		groups = append(groups, domain.DateGroup{Bucket: b})
	}

	for _, item := range sorted(items) {
		if i, ok := index[item.DateBucket]; ok {
			groups[i].Items = append(groups[i].Items, item)
		}
	}
	return groups
}

// Flatten returns the items of the groups in display order.
func Flatten(groups []domain.DateGroup) []domain.CanonicalItem {
	var out []domain.CanonicalItem
	for _, g := range groups {
		out = append(out, g.Items...)
	}
	return out
}

// MonthlyView groups dated items by YYYY-MM, newest month first.
func MonthlyView(items []domain.CanonicalItem) []domain.MonthGroup {
	index := map[string]int{}
	var groups []domain.MonthGroup
	for _, item := range sorted(items) {
		month := item.Month()
		if month == "" {
			continue
		}
		i, ok := index[month]
		if !ok {
			i = len(groups)
			index[month] = i
			groups = append(groups, domain.MonthGroup{Month: month})
		}
		groups[i].Items = append(groups[i].Items, item)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Month > groups[j].Month
	})
	return groups
}

// Archive summarizes month groups for the archive index.
func Archive(months []domain.MonthGroup) []domain.MonthSummary {
	out := make([]domain.MonthSummary, 0, len(months))
	for _, m := range months {
		out = append(out, domain.MonthSummary{Month: m.Month, Count: len(m.Items)})
	}
	return out
}

// ShouldBuild reports whether a monthly page needs rendering: always when
// forced or never built, otherwise only for the current and previous month.
// now must already be in the target timezone.
func ShouldBuild(month string, now time.Time, built, force bool) bool {
	if force || !built {
		return true
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return month == first.Format(monthLayout) || month == first.AddDate(0, -1, 0).Format(monthLayout)
}

func sorted(items []domain.CanonicalItem) []domain.CanonicalItem {
	out := make([]domain.CanonicalItem, len(items))
	copy(out, items)
	dedup.SortNewestFirst(out)
	return out
}
