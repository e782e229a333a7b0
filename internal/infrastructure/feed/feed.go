// Package feed downloads RSS and Atom feeds for the general news collector.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"AIToolNews/internal/domain"
	"AIToolNews/internal/ports"
	"AIToolNews/internal/retry"
)

const maxFeedBytes = 4 << 20

// Client fetches feeds over HTTP.
type Client struct {
	client    *http.Client
	userAgent string
}

var _ ports.FeedFetcher = (*Client)(nil)

// NewClient builds a fetcher; a nil client gets one with the given timeout.
func NewClient(client *http.Client, timeout time.Duration) *Client {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Client{client: client, userAgent: "AIToolNews/1.0 (+feed collector)"}
}

// Fetch downloads url and parses it as RSS or Atom.
func (c *Client) Fetch(ctx context.Context, url string) ([]domain.FeedEntry, error) {
	if c.client == nil {
		return nil, fmt.Errorf("feed client misconfigured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &retry.StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	return Parse(data)
}
