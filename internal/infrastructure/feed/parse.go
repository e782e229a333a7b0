package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"AIToolNews/internal/domain"
)

// ErrUnknownFormat is returned for documents that are neither RSS nor Atom.
var ErrUnknownFormat = errors.New("feed: unknown format")

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	// RSS 1.0 (RDF) keeps items next to the channel.
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	GUID        string `xml:"guid"`
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Encoded     string `xml:"encoded"`
	PubDate     string `xml:"pubDate"`
	DCDate      string `xml:"date"`
}

type atomDocument struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Content   string `xml:"content"`
	Published string `xml:"published"`
	Updated   string `xml:"updated"`
	Links     []struct {
		Href string `xml:"href,attr"`
		Rel  string `xml:"rel,attr"`
	} `xml:"link"`
}

// Parse reads RSS 2.0, RSS 1.0 or Atom 1.0, picked by the root element.
func Parse(data []byte) ([]domain.FeedEntry, error) {
	switch rootElement(data) {
	case "rss", "rdf":
		return parseRSS(data)
	case "feed":
		return parseAtom(data)
	default:
		return nil, ErrUnknownFormat
	}
}

func rootElement(data []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if start, ok := tok.(xml.StartElement); ok {
			return strings.ToLower(start.Name.Local)
		}
	}
}

func parseRSS(data []byte) ([]domain.FeedEntry, error) {
	var doc rssDocument
	if err := decode(data, &doc); err != nil {
		return nil, fmt.Errorf("feed: parse rss: %w", err)
	}

	items := append(doc.Channel.Items, doc.Items...)
	entries := make([]domain.FeedEntry, 0, len(items))
	for _, item := range items {
		summary := item.Description
		if strings.TrimSpace(summary) == "" {
			summary = item.Encoded
		}
		published := item.PubDate
		if strings.TrimSpace(published) == "" {
			published = item.DCDate
		}
		entries = append(entries, entry(item.GUID, item.Title, item.Link, summary, published))
	}
	return entries, nil
}

func parseAtom(data []byte) ([]domain.FeedEntry, error) {
	var doc atomDocument
	if err := decode(data, &doc); err != nil {
		return nil, fmt.Errorf("feed: parse atom: %w", err)
	}

	entries := make([]domain.FeedEntry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		link := ""
		for _, l := range e.Links {
			if l.Rel == "" || l.Rel == "alternate" {
				link = l.Href
				break
			}
		}
		summary := e.Summary
		if strings.TrimSpace(summary) == "" {
			summary = e.Content
		}
		published := e.Published
		if strings.TrimSpace(published) == "" {
			published = e.Updated
		}
		entries = append(entries, entry(e.ID, e.Title, link, summary, published))
	}
	return entries, nil
}

func decode(data []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	return dec.Decode(v)
}

func entry(guid, title, link, summary, published string) domain.FeedEntry {
	link = strings.TrimSpace(link)
	guid = strings.TrimSpace(guid)
	if guid == "" {
		guid = link
	}
	return domain.FeedEntry{
		GUID:      guid,
		Title:     plainText(title),
		Link:      link,
		Summary:   plainText(summary),
		Published: publishedAt(published),
	}
}

// plainText drops markup that feeds embed in titles and descriptions.
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func publishedAt(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil || t.Year() == 0 {
		return time.Time{}
	}
	return t.UTC()
}
