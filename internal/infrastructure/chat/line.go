package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"AIToolNews/internal/ports"
	"AIToolNews/internal/retry"
)

// LineNotifier broadcasts a text message to every follower of the account.
type LineNotifier struct {
	endpoint string
	token    string
	client   *http.Client
}

var _ ports.Notifier = (*LineNotifier)(nil)

// NewLineNotifier registers the broadcast endpoint and channel access token.
func NewLineNotifier(endpoint, token string) *LineNotifier {
	return &LineNotifier{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// PublishDigest sends the digest as a single text message.
func (n *LineNotifier) PublishDigest(ctx context.Context, digest string) error {
	if n.token == "" || n.endpoint == "" || n.client == nil {
		return fmt.Errorf("line notifier misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"messages": []map[string]string{{"type": "text", "text": digest}},
	})
	if err != nil {
		return fmt.Errorf("marshal broadcast: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &retry.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	return nil
}
