// Package retry runs upstream calls with a small fixed attempt budget and
// status-aware delays.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Outcome classifies the result of one attempt.
type Outcome int

const (
	Success Outcome = iota
	Retryable
	RateLimited
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	case RateLimited:
		return "rate_limited"
	default:
		return "fatal"
	}
}

// StatusError carries a non-2xx HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.Code)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}

// Classify maps an error to an outcome: 429 is rate limited, 5xx and network
// timeouts are retryable, everything else is fatal.
func Classify(err error) Outcome {
	if err == nil {
		return Success
	}

	var status *StatusError
	if errors.As(err, &status) {
		switch {
		case status.Code == http.StatusTooManyRequests:
			return RateLimited
		case status.Code >= 500:
			return Retryable
		default:
			return Fatal
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Retryable
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Retryable
	}
	return Fatal
}

// Policy bounds the attempts and the waits between them.
type Policy struct {
	Attempts         int
	RateLimitDelay   time.Duration
	ServerErrorDelay time.Duration
	Logger           *slog.Logger
	// Sleep replaces the context-aware wait in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do calls op until it succeeds, fails fatally, or the budget is spent.
// The last error is returned wrapped.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = wait
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(ctx)
		outcome := Classify(lastErr)
		if outcome == Success {
			return nil
		}
		if outcome == Fatal || attempt == attempts {
			break
		}

		delay := p.ServerErrorDelay
		if outcome == RateLimited {
			delay = p.RateLimitDelay
		}
		if p.Logger != nil {
			p.Logger.Warn("retrying upstream call", "attempt", attempt, "outcome", outcome.String(), "delay", delay, "error", lastErr)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("retries exhausted: %w", lastErr)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
