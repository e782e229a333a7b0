package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"AIToolNews/internal/aggregate"
	"AIToolNews/internal/domain"
	"AIToolNews/internal/ledger"
	"AIToolNews/internal/logging"
	"AIToolNews/internal/ports"
	"AIToolNews/internal/retry"
)

// PublishOptions tunes the social and chat channels.
type PublishOptions struct {
	RecentDays  int
	DigestItems int
	SiteURL     string
	Location    *time.Location
	Retry       retry.Policy
	SocialPause time.Duration
}

// PublisherDeps wires the outbound channels. A nil Social or Notifier
// disables that channel.
type PublisherDeps struct {
	Guard    *ledger.Guard
	Social   ports.SocialPublisher
	Notifier ports.Notifier
	Gate     ports.Gate
	Options  PublishOptions
	Now      func() time.Time
	Logger   *slog.Logger
}

// Publisher pushes undelivered items of the Recent view to social and chat.
type Publisher struct {
	guard    *ledger.Guard
	social   ports.SocialPublisher
	notifier ports.Notifier
	gate     ports.Gate
	opts     PublishOptions
	now      func() time.Time
	logger   *slog.Logger
}

// NewPublisher constructs the publishing use case.
func NewPublisher(deps PublisherDeps) *Publisher {
	opts := deps.Options
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Publisher{
		guard:    deps.Guard,
		social:   deps.Social,
		notifier: deps.Notifier,
		gate:     deps.Gate,
		opts:     opts,
		now:      now,
		logger:   logger.With("component", "publisher"),
	}
}

// PublishSocial posts every undelivered recent item, oldest first. Each post
// is recorded right after it succeeds; a failed post is logged and retried
// on the next run.
func (p *Publisher) PublishSocial(ctx context.Context, items []domain.CanonicalItem) (int, error) {
	if p.social == nil || p.guard == nil {
		return 0, nil
	}

	recent := aggregate.Flatten(aggregate.RecentView(items, p.opts.RecentDays))
	posted := 0
	for i := len(recent) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return posted, err
		}
		item := recent[i]

		ok, err := p.guard.Deliver(ctx, domain.ChannelSocial, item.IdentityKey, func(ctx context.Context) error {
			return retry.Do(ctx, p.opts.Retry, func(ctx context.Context) error {
				return p.social.Publish(ctx, item)
			})
		})
		if ok && err != nil {
			// Posted but not recorded: stop before a later run posts it again.
			return posted, err
		}
		if err != nil {
			p.logger.Warn("social post failed", "tool", item.Tool, "identity_key", item.IdentityKey, "error", err)
			continue
		}
		if !ok {
			continue
		}

		posted++
		p.logger.Info("posted to social", "tool", item.Tool, "identity_key", item.IdentityKey)
		if p.opts.SocialPause > 0 && i > 0 {
			if err := pauseFor(ctx, p.opts.Retry, p.opts.SocialPause); err != nil {
				return posted, err
			}
		}
	}
	return posted, nil
}

// PublishDigest sends one chat digest of the undelivered recent items when
// the gate is open (or the digest is forced). Every item counted in the
// digest is recorded on success; none is on failure.
func (p *Publisher) PublishDigest(ctx context.Context, items []domain.CanonicalItem) (int, error) {
	if p.notifier == nil || p.guard == nil {
		return 0, nil
	}

	now := p.now().In(p.opts.Location)
	if p.gate != nil && !p.gate.Due(now) {
		p.logger.Debug("digest not due", "now", now.Format(time.RFC3339))
		return 0, nil
	}

	recent := aggregate.Flatten(aggregate.RecentView(items, p.opts.RecentDays))
	byKey := make(map[string]domain.CanonicalItem, len(recent))
	for _, item := range recent {
		byKey[item.IdentityKey] = item
	}

	sent, err := p.guard.DeliverAll(ctx, domain.ChannelChat, identityKeys(recent), func(ctx context.Context, pending []string) error {
		selected := make([]domain.CanonicalItem, 0, len(pending))
		for _, key := range pending {
			selected = append(selected, byKey[key])
		}
		digest := BuildDigest(now.Format("2006-01-02"), selected, p.opts.DigestItems, p.opts.SiteURL)
		return retry.Do(ctx, p.opts.Retry, func(ctx context.Context) error {
			return p.notifier.PublishDigest(ctx, digest)
		})
	})
	if err != nil {
		return 0, fmt.Errorf("publish digest: %w", err)
	}
	if len(sent) == 0 {
		p.logger.Info("no new items for digest")
		return 0, nil
	}

	p.logger.Info("digest sent", "items", len(sent))
	return len(sent), nil
}

func pauseFor(ctx context.Context, policy retry.Policy, d time.Duration) error {
	if policy.Sleep != nil {
		return policy.Sleep(ctx, d)
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
