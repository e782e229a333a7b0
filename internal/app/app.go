package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"AIToolNews/internal/aggregate"
	"AIToolNews/internal/config"
	"AIToolNews/internal/dates"
	"AIToolNews/internal/domain"
	"AIToolNews/internal/infrastructure/chat"
	"AIToolNews/internal/infrastructure/feed"
	"AIToolNews/internal/infrastructure/linkcheck"
	"AIToolNews/internal/infrastructure/llm"
	"AIToolNews/internal/infrastructure/scheduler"
	"AIToolNews/internal/infrastructure/site"
	"AIToolNews/internal/infrastructure/social"
	"AIToolNews/internal/infrastructure/store"
	"AIToolNews/internal/ledger"
	"AIToolNews/internal/logging"
	"AIToolNews/internal/parser"
	"AIToolNews/internal/ports"
	"AIToolNews/internal/retry"
	"AIToolNews/internal/usecase"
)

// Options are per-invocation switches that are not part of the config file.
type Options struct {
	ForceDigest bool
}

// Application wires configs to use cases for one process run.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	ledger     ledger.Store
	pipeline   *usecase.Pipeline
	backfiller *usecase.Backfiller
}

// New builds every adapter the configuration enables.
func New(ctx context.Context, cfg config.Config, opts Options, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	loc := cfg.Location()

	deliveries, err := ledger.Open(ctx, cfg.Ledger.Driver, cfg.Ledger.Path, cfg.Ledger.DSN)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	guard := ledger.NewGuard(deliveries, nil)

	files := store.NewFileStore(cfg.Paths.Reports, baseLogger.With("component", "store"))
	resolver := dates.NewResolver(loc, cfg.Report.DisplayLayout)
	enricher := aggregate.NewEnricher(resolver)

	parseOpts := parser.Options{
		DefaultWhy:    cfg.Report.DefaultWhy,
		DefaultScore:  cfg.Report.DefaultScore,
		MinBodyLength: cfg.Report.MinBodyLength,
		NoNews:        parser.Sentinels(cfg.Report.NoNewsPhrases),
	}
	aggregator := aggregate.New(aggregate.Deps{
		Records:    files,
		Dispatcher: parser.NewDispatcher(parser.NewDefaultRegistry(parseOpts), parseOpts, resolver, baseLogger.With("component", "parser")),
		Enricher:   enricher,
		NoNews:     parseOpts.NoNews,
		Logger:     baseLogger.With("component", "aggregate"),
	})

	policy := retry.Policy{
		Attempts:         cfg.Collect.Attempts,
		RateLimitDelay:   cfg.Collect.RateLimitDelay,
		ServerErrorDelay: cfg.Collect.ServerErrorDelay,
		Logger:           baseLogger.With("component", "retry"),
	}

	var summarizer ports.Summarizer
	if cfg.Summarizer.APIKey != "" {
		summarizer = llm.NewSummarizer(cfg.Summarizer)
	} else {
		baseLogger.Warn("summarizer disabled: no API key")
	}

	collector, err := newCollector(cfg, files, summarizer, policy, baseLogger)
	if err != nil {
		_ = deliveries.Close()
		return nil, err
	}

	linkPolicy, err := linkcheck.ParsePolicy(cfg.Links.Policy)
	if err != nil {
		_ = deliveries.Close()
		return nil, err
	}
	links := linkcheck.NewResolver(linkPolicy, cfg.Links.Verify, nil, baseLogger)

	var siteBuilder *usecase.SiteBuilder
	if cfg.Channels.Site.Enabled {
		siteBuilder = usecase.NewSiteBuilder(usecase.SiteBuilderDeps{
			Renderer: site.NewRenderer(cfg.Paths.Docs, baseLogger),
			Guard:    guard,
			Options: usecase.SiteOptions{
				Title:        cfg.Channels.Site.Title,
				SiteURL:      cfg.Channels.Site.SiteURL,
				RecentDays:   cfg.Report.RecentDays,
				ForceRebuild: cfg.Channels.Site.ForceRebuild,
				Location:     loc,
			},
			Logger: baseLogger,
		})
	}

	publisher := usecase.NewPublisher(usecase.PublisherDeps{
		Guard:    guard,
		Social:   newSocial(ctx, cfg, baseLogger),
		Notifier: newNotifier(cfg, baseLogger),
		Gate:     digestGate(cfg, opts, loc),
		Options: usecase.PublishOptions{
			RecentDays:  cfg.Report.RecentDays,
			DigestItems: cfg.Channels.Chat.MaxItems,
			SiteURL:     cfg.Channels.Site.SiteURL,
			Location:    loc,
			Retry:       policy,
			SocialPause: 5 * time.Second,
		},
		Logger: baseLogger,
	})

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Collector: collector,
		Feeds:     newFeedCollector(cfg, files, summarizer, policy, baseLogger),
		Items:     aggregator,
		Links:     links,
		Site:      siteBuilder,
		Publisher: publisher,
		Logger:    baseLogger,
	})

	backfiller := usecase.NewBackfiller(usecase.BackfillDeps{
		Records:      files,
		Rewriter:     files,
		Summarizer:   summarizer,
		Enricher:     enricher,
		Placeholders: cfg.Report.PlaceholderWhy,
		Retry:        policy,
		Logger:       baseLogger,
	})

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		ledger:     deliveries,
		pipeline:   pipeline,
		backfiller: backfiller,
	}, nil
}

func digestGate(cfg config.Config, opts Options, loc *time.Location) ports.Gate {
	if opts.ForceDigest {
		return scheduler.Always{}
	}
	return scheduler.NewHourGate(loc, cfg.Channels.Chat.Hour)
}

func newCollector(cfg config.Config, files *store.FileStore, summarizer ports.Summarizer, policy retry.Policy, logger *slog.Logger) (*usecase.Collector, error) {
	if cfg.Search.APIKey == "" {
		logger.Warn("collector disabled: no search API key")
		return nil, nil
	}

	targets, err := store.LoadTargets(cfg.Paths.Targets)
	if err != nil {
		return nil, fmt.Errorf("load targets: %w", err)
	}

	return usecase.NewCollector(usecase.CollectorDeps{
		Targets:    targets,
		Searcher:   llm.NewSearchClient(cfg.Search, cfg.Collect.Timeout),
		Summarizer: summarizer,
		Store:      files,
		Options: usecase.CollectOptions{
			Concurrency:      cfg.Collect.Concurrency,
			Timeout:          cfg.Collect.Timeout,
			Window:           time.Duration(cfg.Collect.WindowHours * float64(time.Hour)),
			PauseBetween:     cfg.Collect.PauseBetween,
			MinBodyLength:    cfg.Report.MinBodyLength,
			DefaultWhy:       cfg.Report.DefaultWhy,
			DefaultScore:     cfg.Report.DefaultScore,
			BreakerThreshold: cfg.Collect.BreakerThreshold,
			Retry:            policy,
			Location:         cfg.Location(),
		},
		Logger: logger,
	}), nil
}

func newFeedCollector(cfg config.Config, files *store.FileStore, summarizer ports.Summarizer, policy retry.Policy, logger *slog.Logger) *usecase.FeedCollector {
	if !cfg.Feeds.Enabled || len(cfg.Feeds.Sources) == 0 {
		return nil
	}

	sources := make([]domain.FeedSource, 0, len(cfg.Feeds.Sources))
	for _, s := range cfg.Feeds.Sources {
		if s.URL == "" {
			continue
		}
		sources = append(sources, domain.FeedSource{Name: s.Name, URL: s.URL, Region: s.Region})
	}

	return usecase.NewFeedCollector(usecase.FeedCollectorDeps{
		Sources:    sources,
		Fetcher:    feed.NewClient(nil, cfg.Feeds.Timeout),
		Summarizer: summarizer,
		Store:      files,
		Options: usecase.FeedOptions{
			Concurrency: cfg.Collect.Concurrency,
			Timeout:     cfg.Feeds.Timeout,
			Window:      time.Duration(cfg.Feeds.WindowHours * float64(time.Hour)),
			MaxArticles: cfg.Feeds.MaxArticles,
			Keywords:    cfg.Feeds.Keywords,
			Retry:       policy,
			Location:    cfg.Location(),
		},
		Logger: logger,
	})
}

func newSocial(ctx context.Context, cfg config.Config, logger *slog.Logger) ports.SocialPublisher {
	if !cfg.Channels.Social.Enabled {
		return nil
	}
	if !social.Configured(cfg.Channels.Social) {
		logger.Warn("social channel disabled: missing credentials")
		return nil
	}
	return social.NewXPublisher(ctx, cfg.Channels.Social)
}

func newNotifier(cfg config.Config, logger *slog.Logger) ports.Notifier {
	if !cfg.Channels.Chat.Enabled {
		return nil
	}
	n, err := chat.New(cfg.Channels.Chat)
	if err != nil {
		logger.Warn("chat channel disabled", "error", err)
		return nil
	}
	return n
}

// Run performs one scheduled pass: collect, then deliver to every channel.
func (a *Application) Run(ctx context.Context) error {
	return a.pipeline.Run(ctx)
}

// Collect only archives new posts and feed articles.
func (a *Application) Collect(ctx context.Context) error {
	return a.pipeline.Collect(ctx)
}

// Build only renders the site.
func (a *Application) Build(ctx context.Context) error {
	return a.pipeline.Build(ctx)
}

// Publish only pushes to social and chat.
func (a *Application) Publish(ctx context.Context) error {
	return a.pipeline.Publish(ctx)
}

// Backfill repairs stale records.
func (a *Application) Backfill(ctx context.Context, dryRun bool) error {
	_, err := a.backfiller.Backfill(ctx, dryRun)
	return err
}

// ImportHistory loads a legacy posted-history file into the social ledger.
func (a *Application) ImportHistory(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	n, err := ledger.ImportHistory(ctx, a.ledger, domain.ChannelSocial, f, time.Now())
	if err != nil {
		return err
	}
	a.logger.Info("history imported", "path", path, "added", n)
	return nil
}

// Close releases the ledger backend.
func (a *Application) Close() error {
	if a.ledger == nil {
		return nil
	}
	return a.ledger.Close()
}
