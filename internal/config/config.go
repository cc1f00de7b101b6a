// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"`
	DB       DBConfig       `mapstructure:"db"`
	Storage  StorageConfig  `mapstructure:"storage"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// CrawlerConfig governs per-crawl pipeline behavior.
type CrawlerConfig struct {
	UserAgent            string `mapstructure:"user_agent"`
	FetchTimeoutSeconds  int    `mapstructure:"fetch_timeout_seconds"`
	PostLoadWaitSeconds  int    `mapstructure:"post_load_wait_seconds"`
	MaxCrawlDelaySeconds int    `mapstructure:"max_crawl_delay_seconds"`
	RobotsTimeoutSeconds int    `mapstructure:"robots_timeout_seconds"`
	ChildRowPolicy       string `mapstructure:"child_row_policy"`
}

// FetcherConfig selects and tunes the page fetcher implementation.
type FetcherConfig struct {
	// Mode is "headless" (chromedp) or "static" (plain HTTP, no JS).
	Mode string `mapstructure:"mode"`
}

// DBConfig controls access to Postgres.
type DBConfig struct {
	DSN                string `mapstructure:"dsn"`
	MaxConns           int    `mapstructure:"max_conns"`
	MinConns           int    `mapstructure:"min_conns"`
	ConnLifetimeMinute int    `mapstructure:"conn_lifetime_minutes"`
}

// StorageConfig configures the optional HTML archive bucket.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PubSubConfig holds metadata for crawl outcome events.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ScheduleConfig controls the stale re-crawl batch.
type ScheduleConfig struct {
	Cron                string `mapstructure:"cron"`
	StaleAfterDays      int    `mapstructure:"stale_after_days"`
	BatchLimit          int    `mapstructure:"batch_limit"`
	InterCrawlDelaySecs int    `mapstructure:"inter_crawl_delay_seconds"`
	SaveHTMLToStorage   bool   `mapstructure:"save_html_to_storage"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONFCRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 120)
	v.SetDefault("crawler.user_agent", "confcrawler-bot/0.1")
	v.SetDefault("crawler.fetch_timeout_seconds", 60)
	v.SetDefault("crawler.post_load_wait_seconds", 3)
	v.SetDefault("crawler.max_crawl_delay_seconds", 30)
	v.SetDefault("crawler.robots_timeout_seconds", 10)
	v.SetDefault("crawler.child_row_policy", "replace")
	v.SetDefault("fetcher.mode", "headless")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.conn_lifetime_minutes", 30)
	v.SetDefault("schedule.cron", "0 3 * * *")
	v.SetDefault("schedule.stale_after_days", 30)
	v.SetDefault("schedule.batch_limit", 10)
	v.SetDefault("schedule.inter_crawl_delay_seconds", 2)
	v.SetDefault("schedule.save_html_to_storage", false)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.UserAgent == "" {
		return fmt.Errorf("crawler.user_agent must be set")
	}
	if c.Crawler.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.fetch_timeout_seconds must be > 0")
	}
	switch c.Crawler.ChildRowPolicy {
	case "replace", "append":
	default:
		return fmt.Errorf("crawler.child_row_policy must be replace or append")
	}
	switch c.Fetcher.Mode {
	case "headless", "static":
	default:
		return fmt.Errorf("fetcher.mode must be headless or static")
	}
	if c.Schedule.BatchLimit <= 0 {
		return fmt.Errorf("schedule.batch_limit must be > 0")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when a topic is configured")
	}
	return nil
}

// FetchTimeout returns the per-fetch timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Crawler.FetchTimeoutSeconds) * time.Second
}

// PostLoadWait returns the post-navigation settle wait as a duration.
func (c Config) PostLoadWait() time.Duration {
	return time.Duration(c.Crawler.PostLoadWaitSeconds) * time.Second
}

// MaxCrawlDelay returns the robots.txt crawl-delay cap as a duration.
func (c Config) MaxCrawlDelay() time.Duration {
	return time.Duration(c.Crawler.MaxCrawlDelaySeconds) * time.Second
}

// StaleAfter returns the re-crawl staleness window as a duration.
func (c Config) StaleAfter() time.Duration {
	return time.Duration(c.Schedule.StaleAfterDays) * 24 * time.Hour
}

// InterCrawlDelay returns the delay between batch crawls as a duration.
func (c Config) InterCrawlDelay() time.Duration {
	return time.Duration(c.Schedule.InterCrawlDelaySecs) * time.Second
}

// ServerTimeout returns the HTTP request timeout as a duration.
func (c Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}
