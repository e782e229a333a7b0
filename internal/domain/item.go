package domain

// NoURL marks an item whose source post URL is unknown.
const NoURL = "#"

// UnknownDate is the date bucket of items whose date could not be resolved.
const UnknownDate = "Unknown Date"

// Shape tags one of the historical on-disk record layouts.
type Shape string

const (
	ShapeUnknown     Shape = "unknown"
	ShapeJSON        Shape = "json"
	ShapeCategoryMD  Shape = "category-markdown"
	ShapePostList    Shape = "post-list"
	ShapeGeneralNews Shape = "general-news"
)

// RawRecord is one persisted unit of collected data, in any historical format.
type RawRecord struct {
	Path    string
	Day     string
	Payload []byte
}

// CandidateItem is a single post extracted from a RawRecord.
type CandidateItem struct {
	RawDate      string
	Category     string
	Tool         string
	RawSummary   string
	PrimaryURL   string
	ReferenceURL string
	Why          string
	Score        int
	// PinnedIdentity overrides identity derivation for repaired records.
	PinnedIdentity string
	Source         string
}

// EnrichedItem is a CandidateItem plus normalized text and resolved dates.
type EnrichedItem struct {
	CandidateItem
	CleanSummary string
	DateBucket   string
	SortKey      string
	DisplayDate  string
}

// Month returns the YYYY-MM part of the date bucket, or "" when unknown.
func (e EnrichedItem) Month() string {
	if e.DateBucket == UnknownDate || len(e.DateBucket) < 7 {
		return ""
	}
	return e.DateBucket[:7]
}

// CanonicalItem is the deduplicated, published representation of a post.
type CanonicalItem struct {
	EnrichedItem
	IdentityKey string
	// DisplayURL is what channels link to; it differs from PrimaryURL only
	// when the link policy rewrote a suspicious link.
	DisplayURL string
}

// Link returns the URL channels should show for the item.
func (c CanonicalItem) Link() string {
	if c.DisplayURL != "" {
		return c.DisplayURL
	}
	return c.PrimaryURL
}

// Channel names an outbound publishing target.
type Channel string

const (
	ChannelSite   Channel = "site"
	ChannelSocial Channel = "social"
	ChannelChat   Channel = "chat"
)
