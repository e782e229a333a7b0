package config

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "+09:00"
	defaultConfig   = "config.yaml"

	configPathEnv      = "AITOOLNEWS_CONFIG"
	xaiAPIKeyEnv       = "XAI_API_KEY"
	summarizerKeyEnv   = "SUMMARIZER_API_KEY"
	googleAPIKeyEnv    = "GOOGLE_API_KEY"
	xConsumerKeyEnv    = "X_CONSUMER_KEY"
	xConsumerSecretEnv = "X_CONSUMER_SECRET"
	xAccessTokenEnv    = "X_ACCESS_TOKEN"
	xAccessSecretEnv   = "X_ACCESS_TOKEN_SECRET"
	lineTokenEnv       = "LINE_CHANNEL_ACCESS_TOKEN"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	ledgerDSNEnv       = "LEDGER_DSN"
)

var offsetExpr = regexp.MustCompile(`^([+-])(\d{2}):?(\d{2})$`)

// Config holds high-level settings required across the application.
type Config struct {
	Timezone   string           `yaml:"timezone"`
	Paths      PathsConfig      `yaml:"paths"`
	Report     ReportConfig     `yaml:"report"`
	Collect    CollectConfig    `yaml:"collect"`
	Search     SearchConfig     `yaml:"search"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Feeds      FeedsConfig      `yaml:"feeds"`
	Channels   ChannelsConfig   `yaml:"channels"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Links      LinksConfig      `yaml:"links"`
	Logging    LoggingConfig    `yaml:"logging"`

	location *time.Location `yaml:"-"`
}

// PathsConfig points at the record store, the site output and the targets file.
type PathsConfig struct {
	Reports string `yaml:"reports"`
	Docs    string `yaml:"docs"`
	Targets string `yaml:"targets"`
}

// ReportConfig tunes parsing, enrichment and the recent view.
type ReportConfig struct {
	RecentDays    int      `yaml:"recentDays"`
	MinBodyLength int      `yaml:"minBodyLength"`
	DefaultWhy    string   `yaml:"defaultWhy"`
	DefaultScore  int      `yaml:"defaultScore"`
	NoNewsPhrases []string `yaml:"noNewsPhrases"`
	// PlaceholderWhy lists why texts written by older collectors; the
	// backfill command treats records carrying them as needing repair.
	PlaceholderWhy []string `yaml:"placeholderWhy"`
	DisplayLayout  string   `yaml:"displayLayout"`
}

// CollectConfig bounds the upstream collection run.
type CollectConfig struct {
	Concurrency      int           `yaml:"concurrency"`
	Timeout          time.Duration `yaml:"timeout"`
	Attempts         int           `yaml:"attempts"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	WindowHours      float64       `yaml:"windowHours"`
	PauseBetween     time.Duration `yaml:"pauseBetween"`
	RateLimitDelay   time.Duration `yaml:"rateLimitDelay"`
	ServerErrorDelay time.Duration `yaml:"serverErrorDelay"`
}

// SearchConfig defines how to contact the upstream search API.
type SearchConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"apiKey"`
	MaxHandles int    `yaml:"maxHandles"`
}

// SummarizerConfig defines the OpenAI-compatible summarization endpoint.
type SummarizerConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`
}

// FeedsConfig drives the general news collector over RSS and Atom feeds.
type FeedsConfig struct {
	Enabled     bool          `yaml:"enabled"`
	WindowHours float64       `yaml:"windowHours"`
	MaxArticles int           `yaml:"maxArticles"`
	Keywords    []string      `yaml:"keywords"`
	Sources     []FeedSource  `yaml:"sources"`
	Timeout     time.Duration `yaml:"timeout"`
}

// FeedSource names one polled feed.
type FeedSource struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Region string `yaml:"region"`
}

// ChannelsConfig encapsulates outbound channels.
type ChannelsConfig struct {
	Site   SiteConfig   `yaml:"site"`
	Social SocialConfig `yaml:"social"`
	Chat   ChatConfig   `yaml:"chat"`
}

// SiteConfig configures the static site output.
type SiteConfig struct {
	Enabled      bool   `yaml:"enabled"`
	SiteURL      string `yaml:"siteUrl"`
	Title        string `yaml:"title"`
	ForceRebuild bool   `yaml:"forceRebuild"`
}

// SocialConfig wires X (Twitter) credentials.
type SocialConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	ConsumerKey    string `yaml:"consumerKey"`
	ConsumerSecret string `yaml:"consumerSecret"`
	AccessToken    string `yaml:"accessToken"`
	AccessSecret   string `yaml:"accessSecret"`
}

// ChatConfig wires the chat-broadcast digest.
type ChatConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Provider string         `yaml:"provider"`
	Hour     int            `yaml:"hour"`
	MaxItems int            `yaml:"maxItems"`
	Line     LineConfig     `yaml:"line"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// LineConfig holds the LINE messaging API token.
type LineConfig struct {
	Endpoint    string `yaml:"endpoint"`
	AccessToken string `yaml:"accessToken"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	Endpoint string `yaml:"endpoint"`
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// LedgerConfig selects the delivery ledger backend.
type LedgerConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// LinksConfig selects the link-validation-and-fallback policy.
type LinksConfig struct {
	Policy string `yaml:"policy"`
	Verify bool   `yaml:"verify"`
}

// LoggingConfig selects log level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Location resolves the configured timezone to a time.Location.
func (c Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	loc, _ := ParseLocation(defaultTimezone)
	return loc
}

// ParseLocation accepts an IANA zone name or a fixed "+09:00" style offset.
func ParseLocation(tz string) (*time.Location, error) {
	if m := offsetExpr.FindStringSubmatch(tz); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes, _ := strconv.Atoi(m[3])
		offset := hours*3600 + minutes*60
		if m[1] == "-" {
			offset = -offset
		}
		return time.FixedZone("UTC"+m[1]+m[2]+":"+m[3], offset), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load location %s: %w", tz, err)
	}
	return loc, nil
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := Defaults()

	path := os.Getenv(configPathEnv)
	if path == "" {
		if _, err := os.Stat(defaultConfig); err == nil {
			path = defaultConfig
		}
	}

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if fileCfg, err := overlay(cfg, raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = fileCfg
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	return cfg
}

// Parse decodes raw YAML without applying defaults.
func Parse(raw []byte) (Config, error) {
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, err
	}
	return fileCfg, nil
}

// FromYAML decodes raw YAML over the defaults; used by tests and tools.
func FromYAML(raw []byte) (Config, error) {
	cfg, err := overlay(Defaults(), raw)
	if err != nil {
		return Config{}, err
	}
	cfg.bindTimezone()
	return cfg, nil
}

// switches holds the settings whose zero value is a valid choice, so their
// presence in the file has to be told apart from their absence.
type switches struct {
	Feeds struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"feeds"`
	Channels struct {
		Site struct {
			Enabled      *bool `yaml:"enabled"`
			ForceRebuild *bool `yaml:"forceRebuild"`
		} `yaml:"site"`
		Social struct {
			Enabled *bool `yaml:"enabled"`
		} `yaml:"social"`
		Chat struct {
			Enabled *bool `yaml:"enabled"`
			Hour    *int  `yaml:"hour"`
		} `yaml:"chat"`
	} `yaml:"channels"`
	Links struct {
		Verify *bool `yaml:"verify"`
	} `yaml:"links"`
}

// overlay merges raw YAML over base, honoring explicit false and zero switches.
func overlay(base Config, raw []byte) (Config, error) {
	fileCfg, err := Parse(raw)
	if err != nil {
		return Config{}, err
	}
	var sw switches
	if err := yaml.Unmarshal(raw, &sw); err != nil {
		return Config{}, err
	}

	cfg := mergeConfig(base, fileCfg)
	setBool(&cfg.Feeds.Enabled, sw.Feeds.Enabled)
	setBool(&cfg.Channels.Site.Enabled, sw.Channels.Site.Enabled)
	setBool(&cfg.Channels.Site.ForceRebuild, sw.Channels.Site.ForceRebuild)
	setBool(&cfg.Channels.Social.Enabled, sw.Channels.Social.Enabled)
	setBool(&cfg.Channels.Chat.Enabled, sw.Channels.Chat.Enabled)
	setBool(&cfg.Links.Verify, sw.Links.Verify)
	if h := sw.Channels.Chat.Hour; h != nil && *h >= 0 && *h < 24 {
		cfg.Channels.Chat.Hour = *h
	}
	return cfg, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(xaiAPIKeyEnv); v != "" {
		c.Search.APIKey = v
	}

	if v := os.Getenv(summarizerKeyEnv); v != "" {
		c.Summarizer.APIKey = v
	} else if v := os.Getenv(googleAPIKeyEnv); v != "" && c.Summarizer.APIKey == "" {
		c.Summarizer.APIKey = v
	}

	if v := os.Getenv(xConsumerKeyEnv); v != "" {
		c.Channels.Social.ConsumerKey = v
	}
	if v := os.Getenv(xConsumerSecretEnv); v != "" {
		c.Channels.Social.ConsumerSecret = v
	}
	if v := os.Getenv(xAccessTokenEnv); v != "" {
		c.Channels.Social.AccessToken = v
	}
	if v := os.Getenv(xAccessSecretEnv); v != "" {
		c.Channels.Social.AccessSecret = v
	}

	if v := os.Getenv(lineTokenEnv); v != "" {
		c.Channels.Chat.Line.AccessToken = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Channels.Chat.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Channels.Chat.Telegram.ChatID = v
	}

	if v := os.Getenv(ledgerDSNEnv); v != "" {
		c.Ledger.DSN = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := ParseLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = ParseLocation(defaultTimezone)
	}
	c.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Timezone != "" {
		base.Timezone = override.Timezone
	}

	if override.Paths.Reports != "" {
		base.Paths.Reports = override.Paths.Reports
	}
	if override.Paths.Docs != "" {
		base.Paths.Docs = override.Paths.Docs
	}
	if override.Paths.Targets != "" {
		base.Paths.Targets = override.Paths.Targets
	}

	if override.Report.RecentDays > 0 {
		base.Report.RecentDays = override.Report.RecentDays
	}
	if override.Report.MinBodyLength > 0 {
		base.Report.MinBodyLength = override.Report.MinBodyLength
	}
	if override.Report.DefaultWhy != "" {
		base.Report.DefaultWhy = override.Report.DefaultWhy
	}
	if override.Report.DefaultScore > 0 {
		base.Report.DefaultScore = override.Report.DefaultScore
	}
	if len(override.Report.NoNewsPhrases) > 0 {
		base.Report.NoNewsPhrases = override.Report.NoNewsPhrases
	}
	if len(override.Report.PlaceholderWhy) > 0 {
		base.Report.PlaceholderWhy = override.Report.PlaceholderWhy
	}
	if override.Report.DisplayLayout != "" {
		base.Report.DisplayLayout = override.Report.DisplayLayout
	}

	if override.Collect.Concurrency > 0 {
		base.Collect.Concurrency = override.Collect.Concurrency
	}
	if override.Collect.Timeout > 0 {
		base.Collect.Timeout = override.Collect.Timeout
	}
	if override.Collect.Attempts > 0 {
		base.Collect.Attempts = override.Collect.Attempts
	}
	if override.Collect.BreakerThreshold > 0 {
		base.Collect.BreakerThreshold = override.Collect.BreakerThreshold
	}
	if override.Collect.WindowHours > 0 {
		base.Collect.WindowHours = override.Collect.WindowHours
	}
	if override.Collect.PauseBetween > 0 {
		base.Collect.PauseBetween = override.Collect.PauseBetween
	}
	if override.Collect.RateLimitDelay > 0 {
		base.Collect.RateLimitDelay = override.Collect.RateLimitDelay
	}
	if override.Collect.ServerErrorDelay > 0 {
		base.Collect.ServerErrorDelay = override.Collect.ServerErrorDelay
	}

	if override.Search.Endpoint != "" {
		base.Search.Endpoint = override.Search.Endpoint
	}
	if override.Search.Model != "" {
		base.Search.Model = override.Search.Model
	}
	if override.Search.APIKey != "" {
		base.Search.APIKey = override.Search.APIKey
	}
	if override.Search.MaxHandles > 0 {
		base.Search.MaxHandles = override.Search.MaxHandles
	}

	if override.Summarizer.BaseURL != "" {
		base.Summarizer.BaseURL = override.Summarizer.BaseURL
	}
	if override.Summarizer.Model != "" {
		base.Summarizer.Model = override.Summarizer.Model
	}
	if override.Summarizer.APIKey != "" {
		base.Summarizer.APIKey = override.Summarizer.APIKey
	}

	if override.Feeds.WindowHours > 0 {
		base.Feeds.WindowHours = override.Feeds.WindowHours
	}
	if override.Feeds.MaxArticles > 0 {
		base.Feeds.MaxArticles = override.Feeds.MaxArticles
	}
	if len(override.Feeds.Keywords) > 0 {
		base.Feeds.Keywords = override.Feeds.Keywords
	}
	if len(override.Feeds.Sources) > 0 {
		base.Feeds.Sources = override.Feeds.Sources
	}
	if override.Feeds.Timeout > 0 {
		base.Feeds.Timeout = override.Feeds.Timeout
	}

	base.Channels = mergeChannels(base.Channels, override.Channels)

	if override.Ledger.Driver != "" {
		base.Ledger.Driver = override.Ledger.Driver
	}
	if override.Ledger.Path != "" {
		base.Ledger.Path = override.Ledger.Path
	}
	if override.Ledger.DSN != "" {
		base.Ledger.DSN = override.Ledger.DSN
	}

	if override.Links.Policy != "" {
		base.Links.Policy = override.Links.Policy
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	return base
}

func mergeChannels(base, override ChannelsConfig) ChannelsConfig {
	if override.Site.SiteURL != "" {
		base.Site.SiteURL = override.Site.SiteURL
	}
	if override.Site.Title != "" {
		base.Site.Title = override.Site.Title
	}

	if override.Social.Endpoint != "" {
		base.Social.Endpoint = override.Social.Endpoint
	}
	if override.Social.ConsumerKey != "" {
		base.Social.ConsumerKey = override.Social.ConsumerKey
	}
	if override.Social.ConsumerSecret != "" {
		base.Social.ConsumerSecret = override.Social.ConsumerSecret
	}
	if override.Social.AccessToken != "" {
		base.Social.AccessToken = override.Social.AccessToken
	}
	if override.Social.AccessSecret != "" {
		base.Social.AccessSecret = override.Social.AccessSecret
	}

	if override.Chat.Provider != "" {
		base.Chat.Provider = override.Chat.Provider
	}
	if override.Chat.MaxItems > 0 {
		base.Chat.MaxItems = override.Chat.MaxItems
	}
	if override.Chat.Line.Endpoint != "" {
		base.Chat.Line.Endpoint = override.Chat.Line.Endpoint
	}
	if override.Chat.Line.AccessToken != "" {
		base.Chat.Line.AccessToken = override.Chat.Line.AccessToken
	}
	if override.Chat.Telegram.Endpoint != "" {
		base.Chat.Telegram.Endpoint = override.Chat.Telegram.Endpoint
	}
	if override.Chat.Telegram.BotToken != "" {
		base.Chat.Telegram.BotToken = override.Chat.Telegram.BotToken
	}
	if override.Chat.Telegram.ChatID != "" {
		base.Chat.Telegram.ChatID = override.Chat.Telegram.ChatID
	}

	return base
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	loc, _ := ParseLocation(defaultTimezone)
	return Config{
		Timezone: defaultTimezone,
		Paths: PathsConfig{
			Reports: "reports",
			Docs:    "docs",
			Targets: "targets.json",
		},
		Report: ReportConfig{
			RecentDays:    3,
			MinBodyLength: 15,
			DefaultWhy:    "詳細をご確認ください。",
			DefaultScore:  3,
			NoNewsPhrases: []string{
				"no significant news",
				"updates not found",
				"no recent updates",
				"no news found",
				"no new updates",
				"no updates found",
				"特になし",
				"更新はありません",
				"ニュースはありません",
				"該当なし",
			},
			PlaceholderWhy: []string{
				"詳細をご確認ください",
				"Check details",
			},
			DisplayLayout: "2006年01月02日 15:04",
		},
		Collect: CollectConfig{
			Concurrency:      2,
			Timeout:          180 * time.Second,
			Attempts:         3,
			BreakerThreshold: 3,
			WindowHours:      4.2,
			PauseBetween:     15 * time.Second,
			RateLimitDelay:   60 * time.Second,
			ServerErrorDelay: 10 * time.Second,
		},
		Search: SearchConfig{
			Endpoint:   "https://api.x.ai/v1/responses",
			Model:      "grok-4-1-fast-non-reasoning",
			MaxHandles: 10,
		},
		Summarizer: SummarizerConfig{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai/",
			Model:   "gemini-2.5-flash",
		},
		Feeds: FeedsConfig{
			Enabled:     true,
			WindowHours: 24,
			MaxArticles: 15,
			Timeout:     30 * time.Second,
			Keywords: []string{
				"AI", "artificial intelligence", "machine learning", "deep learning", "neural network",
				"transformer", "generative AI", "LLM", "GPT", "Gemini", "Claude", "Copilot",
				"Midjourney", "Stable Diffusion", "OpenAI", "Anthropic", "DeepMind", "xAI",
				"NVIDIA", "Hugging Face", "GPU", "robotics", "autonomous", "agent",
				"生成AI", "人工知能", "機械学習", "大規模言語モデル",
			},
			Sources: []FeedSource{
				{Name: "TechCrunch AI", URL: "https://techcrunch.com/category/artificial-intelligence/feed/", Region: "US"},
				{Name: "The Verge AI", URL: "https://www.theverge.com/rss/ai-artificial-intelligence/index.xml", Region: "US"},
				{Name: "Wired AI", URL: "https://www.wired.com/feed/tag/ai/latest/rss", Region: "US"},
				{Name: "VentureBeat AI", URL: "https://venturebeat.com/category/ai/feed/", Region: "US"},
				{Name: "MIT Technology Review", URL: "https://www.technologyreview.com/feed/", Region: "US"},
				{Name: "Ars Technica AI", URL: "https://feeds.arstechnica.com/arstechnica/technology-lab", Region: "US"},
				{Name: "ZDNet AI", URL: "https://www.zdnet.com/topic/artificial-intelligence/rss.xml", Region: "US"},
				{Name: "The Information", URL: "https://www.theinformation.com/feed", Region: "US"},
				{Name: "OpenAI Blog", URL: "https://openai.com/blog/rss.xml", Region: "US"},
				{Name: "Anthropic News", URL: "https://www.anthropic.com/news/rss.xml", Region: "US"},
				{Name: "Google AI Blog", URL: "https://blog.google/technology/ai/rss/", Region: "US"},
				{Name: "DeepMind Blog", URL: "https://deepmind.google/blog/rss.xml", Region: "UK"},
				{Name: "Microsoft AI Blog", URL: "https://blogs.microsoft.com/ai/feed/", Region: "US"},
				{Name: "NHK Science", URL: "https://www.nhk.or.jp/rss/news/cat6.xml", Region: "JP"},
				{Name: "ITmedia AI+", URL: "https://rss.itmedia.co.jp/rss/2.0/aiplus.xml", Region: "JP"},
				{Name: "BBC Technology", URL: "https://feeds.bbci.co.uk/news/technology/rss.xml", Region: "UK"},
				{Name: "Reuters Technology", URL: "https://www.reutersagency.com/feed/?taxonomy=best-topics&post_type=best&best-topics=tech", Region: "UK"},
			},
		},
		Channels: ChannelsConfig{
			Site: SiteConfig{
				Enabled: true,
				SiteURL: "https://tadfuji.github.io/AI_TOOL_NEWS/",
				Title:   "AI TOOL NEWS",
			},
			Social: SocialConfig{
				Endpoint: "https://api.twitter.com/2/tweets",
			},
			Chat: ChatConfig{
				Provider: "line",
				Hour:     7,
				MaxItems: 10,
				Line:     LineConfig{Endpoint: "https://api.line.me/v2/bot/message/broadcast"},
				Telegram: TelegramConfig{Endpoint: "https://api.telegram.org"},
			},
		},
		Ledger: LedgerConfig{
			Driver: "file",
			Path:   "posted_ledger.json",
		},
		Links:    LinksConfig{Policy: "keep"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		location: loc,
	}
}
