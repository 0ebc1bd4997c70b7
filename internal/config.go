package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Telegram   TelegramConfig    `yaml:"telegram"`
	Source     SourceConfig      `yaml:"source"`
	Knowledge  KnowledgeConfig   `yaml:"knowledge"`
	Unanswered UnansweredConfig  `yaml:"unanswered"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Telegram.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	return c.Knowledge.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds the keep-alive/diagnostics HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// TelegramConfig holds the bot credentials and polling settings. The
// token normally comes from the environment via ${TELEGRAM_BOT_TOKEN}
// expansion in the config file.
type TelegramConfig struct {
	Token              string `yaml:"token"`
	PollTimeoutSeconds int    `yaml:"poll_timeout_seconds"`
}

// Validate validates the Telegram configuration. The token is not
// required here because MCP mode runs without the bot; Run checks it
// when the bot actually starts.
func (c *TelegramConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PollTimeoutSeconds, validation.Min(1), validation.Max(300)),
	)
}

// SourceConfig selects the knowledge table backend: a local CSV file or
// a published CSV URL. Exactly one must be set.
type SourceConfig struct {
	File string `yaml:"file"`
	URL  string `yaml:"url"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	if c.File == "" && c.URL == "" {
		return fmt.Errorf("source: either file or url must be set")
	}
	if c.File != "" && c.URL != "" {
		return fmt.Errorf("source: file and url are mutually exclusive")
	}
	return nil
}

// KnowledgeConfig tunes caching and matching.
type KnowledgeConfig struct {
	CacheDurationMinutes int     `yaml:"cache_duration_minutes"`
	FetchTimeoutSeconds  int     `yaml:"fetch_timeout_seconds"`
	SimilarityThreshold  float64 `yaml:"similarity_threshold"`
	MaxResults           int     `yaml:"max_results"`
}

// Validate validates the knowledge configuration.
func (c *KnowledgeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CacheDurationMinutes, validation.Required, validation.Min(1)),
		validation.Field(&c.FetchTimeoutSeconds, validation.Required, validation.Min(1)),
		validation.Field(&c.SimilarityThreshold, validation.Min(0.0), validation.Max(100.0)),
		validation.Field(&c.MaxResults, validation.Required, validation.Min(1)),
	)
}

// CacheDuration returns the snapshot TTL.
func (c *KnowledgeConfig) CacheDuration() time.Duration {
	return time.Duration(c.CacheDurationMinutes) * time.Minute
}

// FetchTimeout returns the per-fetch deadline.
func (c *KnowledgeConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// UnansweredConfig configures the unanswered-question log. An empty path
// disables it.
type UnansweredConfig struct {
	Path string `yaml:"path"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 3000,
			},
		},
		Telegram: TelegramConfig{
			PollTimeoutSeconds: 30,
		},
		Source: SourceConfig{
			File: "./knowledge_base.csv",
		},
		Knowledge: KnowledgeConfig{
			CacheDurationMinutes: 5,
			FetchTimeoutSeconds:  15,
			SimilarityThreshold:  60,
			MaxResults:           5,
		},
		Unanswered: UnansweredConfig{
			Path: "./data/unanswered_questions.csv",
		},
	}
}
