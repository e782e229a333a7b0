// Package scheduler gates time-boxed channels. Runs themselves are triggered
// by an external scheduler.
package scheduler

import (
	"time"

	"AIToolNews/internal/ports"
)

// HourGate opens during one hour of the day in a fixed location.
type HourGate struct {
	loc  *time.Location
	hour int
}

var _ ports.Gate = (*HourGate)(nil)

// NewHourGate builds a gate for hour (0-23) in loc; nil loc means UTC.
func NewHourGate(loc *time.Location, hour int) *HourGate {
	if loc == nil {
		loc = time.UTC
	}
	return &HourGate{loc: loc, hour: hour}
}

// Due reports whether now falls inside the configured hour.
func (g *HourGate) Due(now time.Time) bool {
	return now.In(g.loc).Hour() == g.hour
}

// Always is a gate that never closes; used for forced runs.
type Always struct{}

// Due always returns true.
func (Always) Due(time.Time) bool { return true }
