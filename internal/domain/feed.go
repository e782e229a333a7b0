package domain

import "time"

// FeedSource is one RSS or Atom feed polled for general AI news.
type FeedSource struct {
	Name   string
	URL    string
	Region string
}

// FeedEntry is one entry read from a feed. Published is zero when the feed
// carried no parseable date.
type FeedEntry struct {
	GUID      string
	Title     string
	Link      string
	Summary   string
	Published time.Time
}

// GeneralArticle is a general news article archived in the general-news
// markdown shape.
type GeneralArticle struct {
	Title   string
	Source  string
	Region  string
	Date    string
	URL     string
	Summary string
	Why     string
}
