package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"AIToolNews/internal/domain"
	"AIToolNews/internal/ports"
)

type lister interface {
	Delivered(ctx context.Context, channel domain.Channel) (map[string]bool, error)
}

// Guard serializes check, publish and record per channel so two workers can
// never both decide an identity is still undelivered.
type Guard struct {
	ledger ports.Ledger
	now    func() time.Time

	mu    sync.Mutex
	locks map[domain.Channel]*sync.Mutex
}

// NewGuard wraps a ledger backend.
func NewGuard(l ports.Ledger, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{ledger: l, now: now, locks: map[domain.Channel]*sync.Mutex{}}
}

func (g *Guard) lock(channel domain.Channel) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.locks[channel]
	if !ok {
		m = &sync.Mutex{}
		g.locks[channel] = m
	}
	return m
}

// Deliver runs publish only when the key is undelivered and records it right
// after publish succeeds. It reports whether publish ran successfully.
// A failed publish leaves the ledger untouched.
func (g *Guard) Deliver(ctx context.Context, channel domain.Channel, key string, publish func(context.Context) error) (bool, error) {
	m := g.lock(channel)
	m.Lock()
	defer m.Unlock()

	done, err := g.ledger.HasDelivered(ctx, channel, key)
	if err != nil {
		return false, fmt.Errorf("check ledger: %w", err)
	}
	if done {
		return false, nil
	}

	if err := publish(ctx); err != nil {
		return false, err
	}

	if err := g.ledger.RecordDelivered(ctx, channel, key, g.now()); err != nil {
		return true, fmt.Errorf("record delivery %s/%s: %w", channel, key, err)
	}
	return true, nil
}

// DeliverAll publishes the undelivered subset of keys in one call and records
// every one of them on success, none on failure. publish is not called when
// nothing is pending.
func (g *Guard) DeliverAll(ctx context.Context, channel domain.Channel, keys []string, publish func(context.Context, []string) error) ([]string, error) {
	m := g.lock(channel)
	m.Lock()
	defer m.Unlock()

	delivered, err := g.delivered(ctx, channel, keys)
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, key := range keys {
		if !delivered[key] {
			pending = append(pending, key)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	if err := publish(ctx, pending); err != nil {
		return nil, err
	}

	at := g.now()
	for _, key := range pending {
		if err := g.ledger.RecordDelivered(ctx, channel, key, at); err != nil {
			return pending, fmt.Errorf("record delivery %s/%s: %w", channel, key, err)
		}
	}
	return pending, nil
}

// Delivered reports which of keys the channel already has.
func (g *Guard) Delivered(ctx context.Context, channel domain.Channel, keys []string) (map[string]bool, error) {
	m := g.lock(channel)
	m.Lock()
	defer m.Unlock()

	return g.delivered(ctx, channel, keys)
}

func (g *Guard) delivered(ctx context.Context, channel domain.Channel, keys []string) (map[string]bool, error) {
	if l, ok := g.ledger.(lister); ok {
		all, err := l.Delivered(ctx, channel)
		if err != nil {
			return nil, fmt.Errorf("list ledger: %w", err)
		}
		return all, nil
	}

	result := make(map[string]bool, len(keys))
	for _, key := range keys {
		done, err := g.ledger.HasDelivered(ctx, channel, key)
		if err != nil {
			return nil, fmt.Errorf("check ledger: %w", err)
		}
		if done {
			result[key] = true
		}
	}
	return result, nil
}
