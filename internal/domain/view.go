package domain

import "time"

// DateGroup is one bucket header of the Recent view and its items.
type DateGroup struct {
	Bucket string
	Items  []CanonicalItem
}

// MonthGroup holds every dated item of one calendar month, newest first.
type MonthGroup struct {
	Month string
	Items []CanonicalItem
}

// MonthSummary is one line of the archive index.
type MonthSummary struct {
	Month string
	Count int
}

// SiteBuild is everything the site renderer needs for one run.
type SiteBuild struct {
	Title       string
	SiteURL     string
	GeneratedAt time.Time
	Recent      []DateGroup
	// Months lists only the monthly pages that must be (re)written.
	Months   []MonthGroup
	Archive  []MonthSummary
	Feed     []CanonicalItem
	NewItems map[string]bool
}
