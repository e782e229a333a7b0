// Package linkcheck decides which URL channels display for an item.
package linkcheck

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"AIToolNews/internal/domain"
	"AIToolNews/internal/logging"
	"AIToolNews/internal/ports"
)

// Policy selects what happens to suspicious links.
type Policy string

const (
	PolicyKeep   Policy = "keep"
	PolicyDrop   Policy = "drop"
	PolicySearch Policy = "search"
)

const searchURL = "https://x.com/search?q="

var statusExpr = regexp.MustCompile(`^https?://(www\.|mobile\.)?(x|twitter)\.com/[A-Za-z0-9_]+/status/\d+`)

// ParsePolicy accepts keep, drop or search; empty means keep.
func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "", PolicyKeep:
		return PolicyKeep, nil
	case PolicyDrop, PolicySearch:
		return p, nil
	default:
		return "", fmt.Errorf("unknown link policy %q", raw)
	}
}

// Resolver implements ports.LinkResolver.
type Resolver struct {
	policy Policy
	verify bool
	client *http.Client
	logger *slog.Logger
}

var _ ports.LinkResolver = (*Resolver)(nil)

// NewResolver builds a resolver; client may be nil when verify is false.
func NewResolver(policy Policy, verify bool, client *http.Client, logger *slog.Logger) *Resolver {
	if client == nil && verify {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{policy: policy, verify: verify, client: client, logger: logger.With("component", "linkcheck")}
}

// DisplayURL returns the link to show. The item's primary URL is never
// modified, so identity keys stay stable whatever the policy.
func (r *Resolver) DisplayURL(ctx context.Context, item domain.CanonicalItem) string {
	link := item.PrimaryURL
	if r.policy == PolicyKeep || link == "" || link == domain.NoURL {
		return link
	}
	if !r.Suspicious(ctx, link) {
		return link
	}

	r.logger.Info("rewriting suspicious link", "tool", item.Tool, "url", link, "policy", string(r.policy))
	if r.policy == PolicyDrop {
		return domain.NoURL
	}
	return SearchURL(item.Tool)
}

// Suspicious reports whether link is not a status URL or, when verifying,
// does not answer a HEAD request with 2xx/3xx.
func (r *Resolver) Suspicious(ctx context.Context, link string) bool {
	if !statusExpr.MatchString(link) {
		return true
	}
	if !r.verify {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return true
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("link verification failed", "url", link, "error", err)
		return true
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 400
}

// SearchURL is the X search page for a tool name.
func SearchURL(tool string) string {
	return searchURL + url.QueryEscape(tool)
}
