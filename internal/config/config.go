// Package config loads and validates harvester configuration via Viper.
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
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Site     SiteConfig     `mapstructure:"site"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Miner    MinerConfig    `mapstructure:"miner"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Drive    DriveConfig    `mapstructure:"drive"`
	GCS      GCSConfig      `mapstructure:"gcs"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	DB       DBConfig       `mapstructure:"db"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// SiteConfig points at the exchange pages being scraped.
type SiteConfig struct {
	IndustryListURL  string `mapstructure:"industry_list_url"`
	IndustryViewURL  string `mapstructure:"industry_view_url"`
	ReportPathSuffix string `mapstructure:"report_path_suffix"`
}

// BrowserConfig configures the headless Chrome sessions.
type BrowserConfig struct {
	NavTimeoutSeconds int     `mapstructure:"nav_timeout_seconds"`
	UserAgent         string  `mapstructure:"user_agent"`
	MaxParallel       int     `mapstructure:"max_parallel"`
	RatePerSecond     float64 `mapstructure:"rate_per_second"`
	ExecPath          string  `mapstructure:"exec_path"`
	NoSandbox         bool    `mapstructure:"no_sandbox"`
}

// MinerConfig configures report downloads.
type MinerConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxBytes       int    `mapstructure:"max_bytes"`
	UserAgent      string `mapstructure:"user_agent"`
}

// ArchiveConfig selects the storage backend and folder layout.
type ArchiveConfig struct {
	Backend          string `mapstructure:"backend"`
	RootFolder       string `mapstructure:"root_folder"`
	Recipient        string `mapstructure:"recipient"`
	Role             string `mapstructure:"role"`
	ContentType      string `mapstructure:"content_type"`
	SerializeFolders bool   `mapstructure:"serialize_folders"`
}

// DriveConfig holds Google Drive credentials.
type DriveConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

// GCSConfig names the bucket used by the gcs archive backend.
type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
}

// NotifyConfig configures the downstream webhook.
type NotifyConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LedgerConfig selects where archive entries are recorded.
type LedgerConfig struct {
	Backend string `mapstructure:"backend"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PipelineConfig tunes run behavior.
type PipelineConfig struct {
	HaltAfterFirstIndustry bool   `mapstructure:"halt_after_first_industry"`
	ReportIndex            int    `mapstructure:"report_index"`
	ReportPattern          string `mapstructure:"report_pattern"`
	MinDocuments           int    `mapstructure:"min_documents"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
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
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.request_timeout_seconds", 1800)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("site.industry_list_url", "https://www.bseindia.com/markets/Equity/EQReports/industrywatchList.html")
	v.SetDefault("site.industry_view_url", "https://www.bseindia.com/markets/Equity/EQReports/IndustryView.html")
	v.SetDefault("site.report_path_suffix", "financials-annual-reports/")
	v.SetDefault("browser.nav_timeout_seconds", 60)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.max_parallel", 2)
	v.SetDefault("browser.rate_per_second", 1.0)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("miner.timeout_seconds", 60)
	v.SetDefault("miner.max_bytes", 64<<20)
	v.SetDefault("miner.user_agent", "annual-report-harvester/0.1")
	v.SetDefault("archive.backend", "drive")
	v.SetDefault("archive.root_folder", "archive")
	v.SetDefault("archive.recipient", "")
	v.SetDefault("archive.role", "writer")
	v.SetDefault("archive.content_type", "application/pdf")
	v.SetDefault("archive.serialize_folders", true)
	v.SetDefault("drive.credentials_file", "credentials.json")
	v.SetDefault("gcs.bucket", "")
	v.SetDefault("notify.endpoint", "")
	v.SetDefault("notify.timeout_seconds", 120)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("ledger.backend", "memory")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "archive_entries")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("pipeline.halt_after_first_industry", true)
	v.SetDefault("pipeline.report_index", 1)
	v.SetDefault("pipeline.report_pattern", "")
	v.SetDefault("pipeline.min_documents", 2)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Site.IndustryListURL == "" || c.Site.IndustryViewURL == "" {
		return fmt.Errorf("site.industry_list_url and site.industry_view_url are required")
	}
	if c.Browser.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0")
	}
	if c.Browser.MaxParallel <= 0 {
		return fmt.Errorf("browser.max_parallel must be > 0")
	}
	if c.Miner.TimeoutSeconds <= 0 {
		return fmt.Errorf("miner.timeout_seconds must be > 0")
	}
	switch c.Archive.Backend {
	case "drive", "memory":
	case "gcs":
		if c.GCS.Bucket == "" {
			return fmt.Errorf("gcs.bucket is required when archive.backend is gcs")
		}
	default:
		return fmt.Errorf("archive.backend must be one of drive, gcs, memory; got %q", c.Archive.Backend)
	}
	if c.Archive.Recipient == "" {
		return fmt.Errorf("archive.recipient is required")
	}
	if c.Notify.Endpoint == "" {
		return fmt.Errorf("notify.endpoint is required")
	}
	if c.Notify.TimeoutSeconds <= 0 {
		return fmt.Errorf("notify.timeout_seconds must be > 0")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set together")
	}
	switch c.Ledger.Backend {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required when ledger.backend is postgres")
		}
	default:
		return fmt.Errorf("ledger.backend must be memory or postgres; got %q", c.Ledger.Backend)
	}
	if c.Pipeline.ReportIndex < 0 {
		return fmt.Errorf("pipeline.report_index must be >= 0")
	}
	if c.Pipeline.MinDocuments <= 0 {
		return fmt.Errorf("pipeline.min_documents must be > 0")
	}
	return nil
}

// RequestTimeout bounds one HTTP request, including the run it triggers.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// NavTimeout bounds one browser navigation.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSeconds) * time.Second
}

// DownloadTimeout bounds one report download.
func (c Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Miner.TimeoutSeconds) * time.Second
}

// NotifyTimeout bounds one downstream notification.
func (c Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notify.TimeoutSeconds) * time.Second
}

// PubSubEnabled reports whether notifications are mirrored to Pub/Sub.
func (c Config) PubSubEnabled() bool {
	return c.PubSub.ProjectID != "" && c.PubSub.TopicName != ""
}
