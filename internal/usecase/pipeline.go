package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"AIToolNews/internal/domain"
	"AIToolNews/internal/logging"
	"AIToolNews/internal/ports"
)

// ItemSource yields the canonical, deduplicated item set.
type ItemSource interface {
	Canonical(ctx context.Context) ([]domain.CanonicalItem, error)
}

// PipelineDeps wires all use cases into one run. Nil members are skipped.
type PipelineDeps struct {
	Collector *Collector
	Feeds     *FeedCollector
	Items     ItemSource
	Links     ports.LinkResolver
	Site      *SiteBuilder
	Publisher *Publisher
	Logger    *slog.Logger
}

// Pipeline implements the scheduled run: collect, aggregate, then fan out
// to the enabled channels.
type Pipeline struct {
	collector *Collector
	feeds     *FeedCollector
	items     ItemSource
	links     ports.LinkResolver
	site      *SiteBuilder
	publisher *Publisher
	logger    *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{
		collector: deps.Collector,
		feeds:     deps.Feeds,
		items:     deps.Items,
		links:     deps.Links,
		site:      deps.Site,
		publisher: deps.Publisher,
		logger:    logger.With("component", "pipeline"),
	}
}

// Run performs one full pass. Channels still run after a breaker trip so
// records written before the trip are published, but ErrCircuitOpen is
// returned at the end.
func (p *Pipeline) Run(ctx context.Context) error {
	collectErr := p.collect(ctx)
	if collectErr != nil && !errors.Is(collectErr, ErrCircuitOpen) {
		return collectErr
	}

	if err := p.Deliver(ctx); err != nil {
		return errors.Join(collectErr, err)
	}
	return collectErr
}

// Collect runs only the collection step: posts first, then feeds.
func (p *Pipeline) Collect(ctx context.Context) error {
	if p.collector == nil && p.feeds == nil {
		return fmt.Errorf("collector not configured")
	}
	return p.collect(ctx)
}

// collect runs both collectors. A breaker trip in the post collector does
// not stop the feed collector.
func (p *Pipeline) collect(ctx context.Context) error {
	var errs []error
	if p.collector != nil {
		if _, err := p.collector.Collect(ctx); err != nil {
			if !errors.Is(err, ErrCircuitOpen) {
				return fmt.Errorf("collect: %w", err)
			}
			errs = append(errs, err)
		}
	}
	if p.feeds != nil {
		if _, err := p.feeds.Collect(ctx); err != nil {
			return errors.Join(append(errs, fmt.Errorf("collect feeds: %w", err))...)
		}
	}
	return errors.Join(errs...)
}

// Build aggregates and renders the site only.
func (p *Pipeline) Build(ctx context.Context) error {
	items, err := p.Items(ctx)
	if err != nil {
		return err
	}
	if p.site == nil {
		p.logger.Info("site channel disabled")
		return nil
	}
	return p.site.Build(ctx, items)
}

// Publish aggregates and pushes to social and chat only.
func (p *Pipeline) Publish(ctx context.Context) error {
	items, err := p.Items(ctx)
	if err != nil {
		return err
	}
	return p.publish(ctx, items)
}

// Deliver aggregates once and feeds every enabled channel. One channel
// failing does not stop the others.
func (p *Pipeline) Deliver(ctx context.Context) error {
	items, err := p.Items(ctx)
	if err != nil {
		return err
	}

	var errs []error
	if p.site != nil {
		if err := p.site.Build(ctx, items); err != nil {
			p.logger.Error("site build failed", "error", err)
			errs = append(errs, err)
		}
	}
	if err := p.publish(ctx, items); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Items loads the canonical set and resolves display links.
func (p *Pipeline) Items(ctx context.Context) ([]domain.CanonicalItem, error) {
	if p.items == nil {
		return nil, fmt.Errorf("item source not configured")
	}
	items, err := p.items.Canonical(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	if p.links != nil {
		for i := range items {
			items[i].DisplayURL = p.links.DisplayURL(ctx, items[i])
		}
	}
	return items, nil
}

func (p *Pipeline) publish(ctx context.Context, items []domain.CanonicalItem) error {
	if p.publisher == nil {
		return nil
	}

	var errs []error
	if _, err := p.publisher.PublishSocial(ctx, items); err != nil {
		p.logger.Error("social publish failed", "error", err)
		errs = append(errs, err)
	}
	if _, err := p.publisher.PublishDigest(ctx, items); err != nil {
		p.logger.Error("digest publish failed", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
