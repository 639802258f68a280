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
	Server    ServerConfig    `mapstructure:"server"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Filter    FilterConfig    `mapstructure:"filter"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig governs per-crawl limits and pacing. Mode selects the
// fetch strategy the worker pool runs with: "http" for the lightweight
// pass, "browser" for the headless fallback pass. Routing jobs between
// the two passes is owned by the job-queue collaborator.
type CrawlerConfig struct {
	Mode                 string `mapstructure:"mode"`
	MaxDepth             int    `mapstructure:"max_depth"`
	MaxSubpages          int    `mapstructure:"max_subpages"`
	MaxLinksPerPage      int    `mapstructure:"max_links_per_page"`
	MaxStoredVisitedURLs int    `mapstructure:"max_stored_visited_urls"`
	EarlyExitEmailCount  int    `mapstructure:"early_exit_email_count"`
	SubpageConcurrency   int    `mapstructure:"subpage_concurrency"`
	DelayMinMs           int    `mapstructure:"delay_min_ms"`
	DelayMaxMs           int    `mapstructure:"delay_max_ms"`
}

// IdentityConfig overrides the built-in rotation profiles.
type IdentityConfig struct {
	Profiles []IdentityProfile `mapstructure:"profiles"`
	Proxies  []string          `mapstructure:"proxies"`
}

// IdentityProfile is one user-agent rotation tuple.
type IdentityProfile struct {
	UserAgent      string `mapstructure:"user_agent"`
	AcceptLanguage string `mapstructure:"accept_language"`
	Referer        string `mapstructure:"referer"`
}

// FilterConfig extends the built-in junk filter lists.
type FilterConfig struct {
	BlockedDomains    []string `mapstructure:"blocked_domains"`
	BlockedLocalParts []string `mapstructure:"blocked_local_parts"`
	AssetPrefixes     []string `mapstructure:"asset_prefixes"`
	BlockedSubstrings []string `mapstructure:"blocked_substrings"`
}

// HTTPConfig configures the lightweight fetch strategy.
type HTTPConfig struct {
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	MaxRetries        int     `mapstructure:"max_retries"`
	BackoffBaseMs     int     `mapstructure:"backoff_base_ms"`
	MaxBodyBytes      int     `mapstructure:"max_body_bytes"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// BrowserConfig configures the headless rendering subsystem.
type BrowserConfig struct {
	Enabled              bool     `mapstructure:"enabled"`
	MaxContexts          int      `mapstructure:"max_contexts"`
	NavTimeoutSeconds    int      `mapstructure:"nav_timeout_seconds"`
	BlockedResourceTypes []string `mapstructure:"blocked_resource_types"`
}

// WorkerConfig controls job consumption fan-out.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	QueueDepth  int `mapstructure:"queue_depth"`
}

// QueueConfig selects and configures the job queue provider.
type QueueConfig struct {
	Provider       string `mapstructure:"provider"`
	DSN            string `mapstructure:"dsn"`
	Table          string `mapstructure:"table"`
	PollIntervalMs int    `mapstructure:"poll_interval_ms"`
}

// PublisherConfig selects and configures the result publisher.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ArchiveConfig selects and configures the snapshot archive.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONTACTCRAWLER")
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
	v.SetDefault("crawler.mode", "http")
	v.SetDefault("crawler.max_depth", 2)
	v.SetDefault("crawler.max_subpages", 20)
	v.SetDefault("crawler.max_links_per_page", 50)
	v.SetDefault("crawler.max_stored_visited_urls", 200)
	v.SetDefault("crawler.early_exit_email_count", 3)
	v.SetDefault("crawler.subpage_concurrency", 8)
	v.SetDefault("crawler.delay_min_ms", 150)
	v.SetDefault("crawler.delay_max_ms", 600)
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.backoff_base_ms", 500)
	v.SetDefault("http.max_body_bytes", 2<<20)
	v.SetDefault("http.requests_per_second", 8.0)
	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.max_contexts", 8)
	v.SetDefault("browser.nav_timeout_seconds", 10)
	v.SetDefault("browser.blocked_resource_types", []string{"image", "media", "font", "stylesheet"})
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.queue_depth", 64)
	v.SetDefault("queue.provider", "memory")
	v.SetDefault("queue.table", "crawl_jobs")
	v.SetDefault("queue.poll_interval_ms", 1000)
	v.SetDefault("publisher.provider", "noop")
	v.SetDefault("archive.provider", "noop")
	v.SetDefault("archive.prefix", "evidence")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.Mode != "http" && c.Crawler.Mode != "browser" {
		return fmt.Errorf("crawler.mode must be http or browser")
	}
	if c.Crawler.Mode == "browser" && !c.Browser.Enabled {
		return fmt.Errorf("browser.enabled must be true for browser mode")
	}
	if c.Crawler.MaxDepth < 1 {
		return fmt.Errorf("crawler.max_depth must be >= 1")
	}
	if c.Crawler.SubpageConcurrency <= 0 {
		return fmt.Errorf("crawler.subpage_concurrency must be > 0")
	}
	if c.Crawler.DelayMaxMs < c.Crawler.DelayMinMs {
		return fmt.Errorf("crawler.delay_max_ms must be >= crawler.delay_min_ms")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.Browser.Enabled && c.Browser.MaxContexts <= 0 {
		return fmt.Errorf("browser.max_contexts must be > 0 when browser is enabled")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be > 0")
	}
	switch c.Queue.Provider {
	case "memory":
	case "postgres":
		if c.Queue.DSN == "" {
			return fmt.Errorf("queue.dsn is required for the postgres provider")
		}
	default:
		return fmt.Errorf("unknown queue.provider %q", c.Queue.Provider)
	}
	switch c.Publisher.Provider {
	case "noop", "memory":
	case "pubsub":
		if c.Publisher.ProjectID == "" || c.Publisher.Topic == "" {
			return fmt.Errorf("publisher.project_id and publisher.topic are required for the pubsub provider")
		}
	default:
		return fmt.Errorf("unknown publisher.provider %q", c.Publisher.Provider)
	}
	switch c.Archive.Provider {
	case "noop", "memory":
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket is required for the gcs provider")
		}
	default:
		return fmt.Errorf("unknown archive.provider %q", c.Archive.Provider)
	}
	return nil
}

// HTTPTimeout returns the fetch timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// NavTimeout returns the browser navigation timeout as a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSeconds) * time.Second
}

// DelayBounds returns the subpage pacing window.
func (c Config) DelayBounds() (time.Duration, time.Duration) {
	return time.Duration(c.Crawler.DelayMinMs) * time.Millisecond,
		time.Duration(c.Crawler.DelayMaxMs) * time.Millisecond
}
