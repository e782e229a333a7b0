// Package llm talks to the upstream language-model providers: the xAI
// responses API for X search and an OpenAI-compatible summarizer.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"AIToolNews/internal/config"
	"AIToolNews/internal/domain"
	"AIToolNews/internal/logging"
	"AIToolNews/internal/ports"
	"AIToolNews/internal/retry"
)

// ErrMalformedOutput marks a provider reply that is not the expected JSON.
var ErrMalformedOutput = errors.New("malformed upstream output")

const searchPrompt = `Role: AI News Aggregator for Japanese audience.
Current Date: %s

Task: Search X for the LATEST updates from these AI tools/companies:
%s
INSTRUCTIONS:
1. Search X for posts from the official accounts listed above.
2. Look for: Product launches, model updates, new features, or official announcements.
3. Ignore: random chatter, retweets of unrelated content, promotional fluff.
4. Output MUST be a valid JSON list. Each object represents ONE tool:
   [
     {
       "tool_name": "Name from the list",
       "has_news": true/false,
       "post_text": "Raw text of the post (or 'No recent updates')",
       "post_date": "YYYY-MM-DD HH:MM",
       "post_url": "https://x.com/..."
     }
   ]
5. If no news is found for a tool, set has_news: false.
6. Return ONLY the JSON. No markdown fencing.`

// SearchClient implements ports.Searcher over the xAI responses API with
// the server-side x_search tool.
type SearchClient struct {
	endpoint   string
	model      string
	apiKey     string
	maxHandles int
	httpClient *http.Client
}

var _ ports.Searcher = (*SearchClient)(nil)

// NewSearchClient builds a client from configuration.
func NewSearchClient(cfg config.SearchConfig, timeout time.Duration) *SearchClient {
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	maxHandles := cfg.MaxHandles
	if maxHandles <= 0 {
		maxHandles = 10
	}
	return &SearchClient{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		maxHandles: maxHandles,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type responsesReply struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// Search asks the provider for the latest posts of every tool in the query.
// Non-2xx replies come back as *retry.StatusError.
func (c *SearchClient) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	if c == nil {
		return nil, fmt.Errorf("search client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("search client misconfigured")
	}

	var desc strings.Builder
	for _, tool := range q.Tools {
		fmt.Fprintf(&desc, "- %s: %s\n", tool.Name, strings.Join(tool.Accounts, ", "))
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"input": []map[string]string{
			{"role": "user", "content": fmt.Sprintf(searchPrompt, q.To.Format("2006-01-02"), desc.String())},
		},
		"tools": []map[string]any{{
			"type":              "x_search",
			"allowed_x_handles": Handles(q.Tools, c.maxHandles),
			"from_date":         q.From.Format("2006-01-02T15:04:05"),
			"to_date":           q.To.Format("2006-01-02"),
		}},
		"temperature": 0.0,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &retry.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var reply responsesReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("%w: decode reply: %v", ErrMalformedOutput, err)
	}

	text := outputText(reply)
	if text == "" {
		return nil, fmt.Errorf("%w: no text content in reply", ErrMalformedOutput)
	}

	var results []domain.SearchResult
	if err := json.Unmarshal([]byte(cleanJSONList(text)), &results); err != nil {
		return nil, fmt.Errorf("%w: %v, sample: %s", ErrMalformedOutput, err, logging.Truncate(text, 200))
	}
	return results, nil
}

// Handles flattens tool accounts into unique handles without the "@",
// capped at limit.
func Handles(tools []domain.Target, limit int) []string {
	seen := map[string]bool{}
	handles := []string{}
	for _, tool := range tools {
		for _, acc := range tool.Accounts {
			h := strings.TrimSpace(strings.TrimLeft(acc, "@"))
			if h == "" || seen[h] {
				continue
			}
			seen[h] = true
			handles = append(handles, h)
		}
	}
	if limit > 0 && len(handles) > limit {
		handles = handles[:limit]
	}
	return handles
}

func outputText(reply responsesReply) string {
	for _, item := range reply.Output {
		if item.Type != "message" {
			continue
		}
		for _, content := range item.Content {
			if content.Type == "output_text" && strings.TrimSpace(content.Text) != "" {
				return content.Text
			}
		}
	}
	return ""
}

func stripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

func cleanJSONList(content string) string {
	content = stripFences(content)
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

func cleanJSONObject(content string) string {
	content = stripFences(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}
