package domain

import "time"

// Target is a tool whose official accounts are searched.
type Target struct {
	Name     string   `json:"name" yaml:"name"`
	Accounts []string `json:"accounts" yaml:"accounts"`
}

// TargetCategory groups tools searched in one upstream call.
type TargetCategory struct {
	Category string   `json:"category" yaml:"category"`
	Tools    []Target `json:"tools" yaml:"tools"`
}

// SearchQuery is the input of the upstream search collaborator.
type SearchQuery struct {
	Category string
	Tools    []Target
	From     time.Time
	To       time.Time
}

// SearchResult is one tool entry returned by the search collaborator.
type SearchResult struct {
	ToolName string `json:"tool_name"`
	HasNews  bool   `json:"has_news"`
	PostText string `json:"post_text"`
	PostDate string `json:"post_date"`
	PostURL  string `json:"post_url"`
}

// Verdict is the summarizer output for a newsworthy post.
type Verdict struct {
	Summary string
	Why     string
	Score   int
}

// ReportRecord is the JSON RawRecord written by the collector.
type ReportRecord struct {
	Category    string `json:"category"`
	Tool        string `json:"tool"`
	Summary     string `json:"summary"`
	Why         string `json:"why"`
	Score       *int   `json:"score,omitempty"`
	PostDate    string `json:"post_date"`
	URL         string `json:"url"`
	CollectedAt string `json:"collected_at,omitempty"`
	IdentityKey string `json:"identity_key,omitempty"`
}
