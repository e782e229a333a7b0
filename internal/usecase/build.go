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
)

// SiteOptions tunes the static site build.
type SiteOptions struct {
	Title        string
	SiteURL      string
	RecentDays   int
	ForceRebuild bool
	Location     *time.Location
}

// SiteBuilderDeps wires the site builder.
type SiteBuilderDeps struct {
	Renderer ports.SiteRenderer
	Guard    *ledger.Guard
	Options  SiteOptions
	Now      func() time.Time
	Logger   *slog.Logger
}

// SiteBuilder renders the Recent view, the monthly archive and the feed.
// Items missing from the site ledger are flagged as new, then recorded.
type SiteBuilder struct {
	renderer ports.SiteRenderer
	guard    *ledger.Guard
	opts     SiteOptions
	now      func() time.Time
	logger   *slog.Logger
}

// NewSiteBuilder constructs the site use case.
func NewSiteBuilder(deps SiteBuilderDeps) *SiteBuilder {
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
	return &SiteBuilder{
		renderer: deps.Renderer,
		guard:    deps.Guard,
		opts:     opts,
		now:      now,
		logger:   logger.With("component", "site"),
	}
}

// Build renders the site from the canonical item set.
func (b *SiteBuilder) Build(ctx context.Context, items []domain.CanonicalItem) error {
	if b.renderer == nil || b.guard == nil {
		return fmt.Errorf("site builder misconfigured")
	}

	now := b.now().In(b.opts.Location)
	keys := identityKeys(items)

	delivered, err := b.guard.Delivered(ctx, domain.ChannelSite, keys)
	if err != nil {
		return fmt.Errorf("load site ledger: %w", err)
	}
	fresh := make(map[string]bool)
	for _, key := range keys {
		if !delivered[key] {
			fresh[key] = true
		}
	}

	recent := aggregate.RecentView(items, b.opts.RecentDays)
	months := aggregate.MonthlyView(items)

	var pages []domain.MonthGroup
	for _, m := range months {
		if aggregate.ShouldBuild(m.Month, now, b.renderer.Built(m.Month), b.opts.ForceRebuild) {
			pages = append(pages, m)
		}
	}

	site := domain.SiteBuild{
		Title:       b.opts.Title,
		SiteURL:     b.opts.SiteURL,
		GeneratedAt: now,
		Recent:      recent,
		Months:      pages,
		Archive:     aggregate.Archive(months),
		Feed:        aggregate.Flatten(recent),
		NewItems:    fresh,
	}
	if err := b.renderer.Render(ctx, site); err != nil {
		return fmt.Errorf("render site: %w", err)
	}

	recorded, err := b.guard.DeliverAll(ctx, domain.ChannelSite, keys, func(context.Context, []string) error {
		return nil
	})
	if err != nil {
		return fmt.Errorf("record site deliveries: %w", err)
	}

	b.logger.Info("site built",
		"recent_groups", len(recent),
		"month_pages", len(pages),
		"months", len(months),
		"new_items", len(recorded),
	)
	return nil
}

func identityKeys(items []domain.CanonicalItem) []string {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.IdentityKey)
	}
	return keys
}
