package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"AIToolNews/internal/domain"
)

// JSON key variants in priority order. Records written by the collector use
// the first key; search payloads archived verbatim use the second.
var (
	jsonToolKeys     = []string{"tool", "tool_name", "name"}
	jsonSummaryKeys  = []string{"summary", "post_text", "text"}
	jsonDateKeys     = []string{"post_date", "date", "published", "time"}
	jsonURLKeys      = []string{"url", "post_url", "link"}
	jsonWhyKeys      = []string{"why", "reason"}
	jsonScoreKeys    = []string{"score", "importance"}
	jsonCategoryKeys = []string{"category"}
)

// JSONParser reads structured records, one object or a list of objects.
type JSONParser struct {
	opts Options
}

var _ Parser = (*JSONParser)(nil)

// NewJSONParser builds the parser for collector-written JSON records.
func NewJSONParser(opts Options) *JSONParser {
	return &JSONParser{opts: opts}
}

// Shape identifies the parser inside the registry.
func (p *JSONParser) Shape() domain.Shape {
	return domain.ShapeJSON
}

// Parse decodes the payload and maps every object to a candidate.
func (p *JSONParser) Parse(rec domain.RawRecord) ([]domain.CandidateItem, error) {
	payload := bytes.TrimSpace(bytes.TrimPrefix(rec.Payload, []byte("\xef\xbb\xbf")))

	var objects []map[string]any
	if len(payload) > 0 && payload[0] == '[' {
		if err := json.Unmarshal(payload, &objects); err != nil {
			return nil, fmt.Errorf("decode json list: %w", err)
		}
	} else {
		var obj map[string]any
		if err := json.Unmarshal(payload, &obj); err != nil {
			return nil, fmt.Errorf("decode json object: %w", err)
		}
		objects = append(objects, obj)
	}

	items := make([]domain.CandidateItem, 0, len(objects))
	for _, obj := range objects {
		if item, ok := p.item(obj); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (p *JSONParser) item(obj map[string]any) (domain.CandidateItem, bool) {
	if hasNews, ok := obj["has_news"].(bool); ok && !hasNews {
		return domain.CandidateItem{}, false
	}

	summary := stringKey(obj, jsonSummaryKeys)
	if strings.TrimSpace(summary) == "" || p.opts.NoNews.Match(summary) {
		return domain.CandidateItem{}, false
	}

	url := strings.TrimSpace(stringKey(obj, jsonURLKeys))
	if url == "" {
		url = domain.NoURL
	}

	score := p.opts.DefaultScore
	if v, ok := firstKey(obj, jsonScoreKeys); ok {
		score = scoreFromAny(v, p.opts.DefaultScore)
	}

	return domain.CandidateItem{
		RawDate:        stringKey(obj, jsonDateKeys),
		Category:       stringKey(obj, jsonCategoryKeys),
		Tool:           orDefault(stringKey(obj, jsonToolKeys), "Unknown"),
		RawSummary:     summary,
		PrimaryURL:     url,
		Why:            orDefault(stringKey(obj, jsonWhyKeys), p.opts.DefaultWhy),
		Score:          score,
		PinnedIdentity: stringKey(obj, []string{"identity_key"}),
	}, true
}

func firstKey(obj map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringKey(obj map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func scoreFromAny(v any, def int) int {
	switch s := v.(type) {
	case float64:
		return clampScore(int(s), def)
	case string:
		return scoreValue(s, def)
	default:
		return def
	}
}
