package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"AIToolNews/internal/config"
	"AIToolNews/internal/domain"
	"AIToolNews/internal/ports"
	"AIToolNews/internal/retry"
)

// NotNewsworthy is the reply the summarizer gives for noise posts.
const NotNewsworthy = "No significant news found"

const summarizerPrompt = `Role: Expert AI Tool Analyst & Translator.
Task: Analyze the following raw post from X about the AI tool "%s".
Determine if it describes a FUNCTIONAL UPDATE (new feature, bug fix, version release, performance improvement, service status).

Raw post:
"""
%s
"""

EXCLUDE funding news, partnerships without a shipped feature, hiring posts, marketing hype and user opinions.

If it is a functional update, output JSON only:
{
  "summary": "polite, easy Japanese (desu/masu), about 200 characters, no dates, no URLs, no labels",
  "why": "one sentence in Japanese on why users should care",
  "score": 1-5 importance
}

If it is not, output exactly: '` + NotNewsworthy + `'.`

// Summarizer implements ports.Summarizer over an OpenAI-compatible chat API.
type Summarizer struct {
	client openai.Client
	model  string
}

var _ ports.Summarizer = (*Summarizer)(nil)

// NewSummarizer builds the client; retries are left to the caller.
func NewSummarizer(cfg config.SummarizerConfig, opts ...option.RequestOption) *Summarizer {
	base := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	return &Summarizer{
		client: openai.NewClient(append(base, opts...)...),
		model:  cfg.Model,
	}
}

// Summarize returns nil when the post is not newsworthy. A reply that is
// plain text rather than JSON becomes the summary with no why or score.
func (s *Summarizer) Summarize(ctx context.Context, tool, text string) (*domain.Verdict, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fmt.Sprintf(summarizerPrompt, tool, text)),
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &retry.StatusError{Code: apiErr.StatusCode, Body: apiErr.Message}
		}
		return nil, fmt.Errorf("summarizer api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in reply", ErrMalformedOutput)
	}
	return parseVerdict(resp.Choices[0].Message.Content), nil
}

func parseVerdict(content string) *domain.Verdict {
	content = strings.TrimSpace(content)
	if content == "" || strings.Contains(strings.ToLower(content), strings.ToLower(NotNewsworthy)) {
		return nil
	}

	var parsed struct {
		Summary string          `json:"summary"`
		Why     string          `json:"why"`
		Score   json.RawMessage `json:"score"`
	}
	if err := json.Unmarshal([]byte(cleanJSONObject(content)), &parsed); err != nil || strings.TrimSpace(parsed.Summary) == "" {
		return &domain.Verdict{Summary: stripFences(content)}
	}

	return &domain.Verdict{
		Summary: strings.TrimSpace(parsed.Summary),
		Why:     strings.TrimSpace(parsed.Why),
		Score:   scoreOf(parsed.Score),
	}
}

// scoreOf accepts 4, 4.0 or "4"; anything outside 1..5 is 0 (absent).
func scoreOf(raw json.RawMessage) int {
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &n); err != nil {
			return 0
		}
	}
	score := int(n)
	if score < 1 || score > 5 {
		return 0
	}
	return score
}
