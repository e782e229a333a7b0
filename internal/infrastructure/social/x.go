// Package social posts canonical items to X (Twitter) with OAuth1 user auth.
package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/dghubble/oauth1"

	"AIToolNews/internal/config"
	"AIToolNews/internal/domain"
	"AIToolNews/internal/ports"
	"AIToolNews/internal/retry"
)

const (
	maxWeight = 280
	urlWeight = 23
	ellipsis  = "..."
)

var urlExpr = regexp.MustCompile(`https?://\S+`)

// XPublisher implements ports.SocialPublisher over the X v2 tweets endpoint.
type XPublisher struct {
	endpoint string
	client   *http.Client
}

var _ ports.SocialPublisher = (*XPublisher)(nil)

// NewXPublisher signs requests with the user's access token.
func NewXPublisher(ctx context.Context, cfg config.SocialConfig) *XPublisher {
	oauth := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret)
	return &XPublisher{
		endpoint: cfg.Endpoint,
		client:   oauth.Client(ctx, oauth1.NewToken(cfg.AccessToken, cfg.AccessSecret)),
	}
}

// Configured reports whether every credential is present.
func Configured(cfg config.SocialConfig) bool {
	return cfg.ConsumerKey != "" && cfg.ConsumerSecret != "" && cfg.AccessToken != "" && cfg.AccessSecret != ""
}

// Publish posts one item. Non-2xx replies come back as *retry.StatusError.
func (p *XPublisher) Publish(ctx context.Context, item domain.CanonicalItem) error {
	if p.endpoint == "" || p.client == nil {
		return fmt.Errorf("x publisher misconfigured")
	}

	body, err := json.Marshal(map[string]string{"text": Compose(item)})
	if err != nil {
		return fmt.Errorf("marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post tweet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &retry.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	return nil
}

// Compose renders the post text, shortening the summary until the weighted
// length fits the platform limit.
func Compose(item domain.CanonicalItem) string {
	summary := item.CleanSummary
	text := format(item, summary)
	if Weight(text) <= maxWeight {
		return text
	}

	runes := []rune(summary)
	for n := len(runes) - 1; n > 0; n-- {
		text = format(item, strings.TrimSpace(string(runes[:n]))+ellipsis)
		if Weight(text) <= maxWeight {
			return text
		}
	}
	return format(item, ellipsis)
}

func format(item domain.CanonicalItem, summary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📢 %s Update!\n\n%s\n\n", item.Tool, summary)
	if link := item.Link(); link != "" && link != domain.NoURL {
		b.WriteString(link)
		b.WriteString("\n")
	}
	b.WriteString("#AI")
	if tag := strings.ReplaceAll(strings.TrimSpace(item.Category), " ", ""); tag != "" {
		b.WriteString(" #")
		b.WriteString(tag)
	}
	return b.String()
}

// Weight counts text the way the platform does: every URL is 23, Latin and
// common punctuation count 1, everything else (CJK, emoji) counts 2.
func Weight(text string) int {
	total := 0
	rest := urlExpr.ReplaceAllStringFunc(text, func(string) string {
		total += urlWeight
		return ""
	})
	for _, r := range rest {
		total += runeWeight(r)
	}
	return total
}

func runeWeight(r rune) int {
	switch {
	case r <= 0x10FF,
		r >= 0x2000 && r <= 0x200D,
		r >= 0x2010 && r <= 0x201F,
		r >= 0x2032 && r <= 0x2037:
		return 1
	default:
		return 2
	}
}
