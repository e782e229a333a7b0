package ports

import (
	"context"
	"time"

	"AIToolNews/internal/domain"
)

// RecordReader lists every persisted raw record in a deterministic order.
type RecordReader interface {
	Records(ctx context.Context) ([]domain.RawRecord, error)
}

// RecordWriter archives collector output under a collection day.
type RecordWriter interface {
	Name(tool, postURL string) string
	Exists(day, name string) bool
	Save(ctx context.Context, day, name string, rec domain.ReportRecord) error
}

// RecordRewriter replaces the derived fields of an existing JSON record.
type RecordRewriter interface {
	Rewrite(ctx context.Context, path string, rec domain.ReportRecord) error
}

// Searcher queries the upstream search provider for recent posts.
type Searcher interface {
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error)
}

// Summarizer turns raw post text into a verdict; nil means not newsworthy.
type Summarizer interface {
	Summarize(ctx context.Context, tool, text string) (*domain.Verdict, error)
}

// Ledger records which identities were delivered to which channel.
type Ledger interface {
	HasDelivered(ctx context.Context, channel domain.Channel, identityKey string) (bool, error)
	RecordDelivered(ctx context.Context, channel domain.Channel, identityKey string, at time.Time) error
}

// SiteRenderer writes the static site from aggregated views.
type SiteRenderer interface {
	Render(ctx context.Context, site domain.SiteBuild) error
	Built(month string) bool
}

// SocialPublisher posts a single item to a social platform.
type SocialPublisher interface {
	Publish(ctx context.Context, item domain.CanonicalItem) error
}

// Notifier streams a digest message to a chat channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// LinkResolver decides which URL channels should display for an item.
type LinkResolver interface {
	DisplayURL(ctx context.Context, item domain.CanonicalItem) string
}

// Gate tells whether a time-boxed channel may run at the given instant.
type Gate interface {
	Due(now time.Time) bool
}

// FeedFetcher downloads and parses one RSS or Atom feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]domain.FeedEntry, error)
}

// ArticleWriter archives general news articles under a collection day.
type ArticleWriter interface {
	ArticleName(source, link string) string
	ArticleExists(day, name string) bool
	SaveArticle(ctx context.Context, day, name string, article domain.GeneralArticle) error
}
