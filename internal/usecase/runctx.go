package usecase

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrCircuitOpen aborts a run after too many consecutive upstream failures.
var ErrCircuitOpen = errors.New("circuit breaker open")

// RunContext carries per-run shared state between workers: the consecutive
// failure counter behind the circuit breaker.
type RunContext struct {
	threshold int
	logger    *slog.Logger

	mu       sync.Mutex
	failures int
	open     bool
}

// NewRunContext builds a run context; threshold <= 0 disables the breaker.
func NewRunContext(threshold int, logger *slog.Logger) *RunContext {
	return &RunContext{threshold: threshold, logger: logger}
}

// Success resets the consecutive failure count.
func (r *RunContext) Success() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = 0
}

// Failure counts one failed unit and reports whether the breaker is open.
func (r *RunContext) Failure(unit string, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failures++
	if r.threshold > 0 && r.failures >= r.threshold && !r.open {
		r.open = true
		if r.logger != nil {
			r.logger.Error("circuit breaker tripped", "unit", unit, "consecutive_failures", r.failures, "error", err)
		}
	}
	return r.open
}

// Open reports whether remaining work must be abandoned.
func (r *RunContext) Open() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

// Err returns ErrCircuitOpen once the breaker has tripped.
func (r *RunContext) Err() error {
	if r.Open() {
		return ErrCircuitOpen
	}
	return nil
}
