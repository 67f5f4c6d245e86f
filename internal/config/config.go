// Package config provides configuration loading and management for the issue synchronization service.
//
// Configuration is resolved once at process startup from the environment
// (GITSORTED_ prefix) and an optional YAML file, validated, and then treated as
// immutable for the lifetime of the process.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stacklok/gitsorted/internal/issues"
	"github.com/stacklok/gitsorted/internal/telemetry"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const (
	// EnvPrefix is the prefix of every environment variable read by the service
	EnvPrefix = "GITSORTED"

	// StoreTypePostgres stores issue records in PostgreSQL through pgx
	StoreTypePostgres = "postgres"

	// StoreTypePostgREST stores issue records through a PostgREST (Supabase-style) endpoint
	StoreTypePostgREST = "postgrest"

	// WatermarkSourceLastProcessed derives the watermark from the newest last_processed stamp.
	// This is the default.
	WatermarkSourceLastProcessed = "last_processed"

	// WatermarkSourceCreatedAt derives the watermark from the newest synchronized created_at
	WatermarkSourceCreatedAt = "created_at"
)

const (
	defaultTickInterval        = 10 * time.Second
	defaultCallTimeout         = 10 * time.Second
	defaultPageSize            = 50
	maxPageSize                = 100
	defaultAddress             = ":8080"
	defaultBootstrapWatermark  = "1970-01-01T00:00:00Z"
	defaultDispatchConcurrency = 1
)

// DefaultTable is the issues table, and the only one the bundled migrations create
const DefaultTable = "issues"

const redacted = "REDACTED"

// Config represents the root configuration structure
type Config struct {
	Repository RepositoryConfig  `mapstructure:"repository" yaml:"repository"`
	Source     SourceConfig      `mapstructure:"source" yaml:"source"`
	Sync       SyncConfig        `mapstructure:"sync" yaml:"sync"`
	Notify     NotifyConfig      `mapstructure:"notify" yaml:"notify"`
	Comment    CommentConfig     `mapstructure:"comment" yaml:"comment"`
	Store      StoreConfig       `mapstructure:"store" yaml:"store"`
	Server     ServerConfig      `mapstructure:"server" yaml:"server"`
	Telemetry  *telemetry.Config `mapstructure:"telemetry" yaml:"telemetry,omitempty"`
}

// RepositoryConfig identifies the tracked repository
type RepositoryConfig struct {
	Owner string `mapstructure:"owner" yaml:"owner"`
	Name  string `mapstructure:"name" yaml:"name"`
}

// SourceConfig defines access to the issue tracker
type SourceConfig struct {
	// Token is the personal access token used for listing issues and posting comments
	Token string `mapstructure:"token" yaml:"token"`

	// BaseURL overrides the API endpoint, e.g. for GitHub Enterprise ("https://ghe.example.com/api/v3/")
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`

	// PageSize is the number of issues requested per page
	PageSize int `mapstructure:"page_size" yaml:"page_size"`

	// SkipPullRequests excludes pull requests from the candidate set
	SkipPullRequests bool `mapstructure:"skip_pull_requests" yaml:"skip_pull_requests"`

	// Timeout bounds every page request
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SyncConfig defines the behaviour of the synchronization job
type SyncConfig struct {
	// TickInterval is the fixed scheduling period
	TickInterval time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`

	// InternalAuthors are handles whose issues are persisted without notification or comment
	InternalAuthors []string `mapstructure:"internal_authors" yaml:"internal_authors"`

	// BootstrapWatermark is the watermark used when the store holds no records (RFC3339)
	BootstrapWatermark string `mapstructure:"bootstrap_watermark" yaml:"bootstrap_watermark"`

	// WatermarkSource selects the column the watermark is read from (last_processed or created_at)
	WatermarkSource string `mapstructure:"watermark_source" yaml:"watermark_source"`

	// DispatchConcurrency is the number of candidates dispatched in parallel
	DispatchConcurrency int `mapstructure:"dispatch_concurrency" yaml:"dispatch_concurrency"`
}

// NotifyConfig defines the chat notification endpoint
type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url" yaml:"webhook_url"`
	Template   string        `mapstructure:"template" yaml:"template"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CommentConfig defines the acknowledgment comment
type CommentConfig struct {
	Template string        `mapstructure:"template" yaml:"template"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// StoreConfig defines the durable store
type StoreConfig struct {
	// Type is postgres or postgrest. Inferred from the URL scheme when empty.
	Type string `mapstructure:"type" yaml:"type,omitempty"`

	// URL is a postgres connection URL or a PostgREST base URL
	URL string `mapstructure:"url" yaml:"url"`

	// APIKey is the PostgREST API key, or the database password for postgres
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`

	// Table is the table holding issue records
	Table string `mapstructure:"table" yaml:"table"`

	// MigrateOnStart applies pending schema migrations before serving (postgres only)
	MigrateOnStart bool `mapstructure:"migrate_on_start" yaml:"migrate_on_start"`

	// AWSRDSIAMRegion enables AWS RDS IAM authentication for postgres.
	// "detect" resolves the region from instance metadata.
	AWSRDSIAMRegion string `mapstructure:"aws_rds_iam_region" yaml:"aws_rds_iam_region,omitempty"`

	// MaxConns caps the postgres connection pool (0 keeps the pgx default)
	MaxConns int32 `mapstructure:"max_conns" yaml:"max_conns,omitempty"`

	// Timeout bounds every store read and write
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ServerConfig defines the display HTTP server
type ServerConfig struct {
	Address string `mapstructure:"address" yaml:"address"`

	// LockFile, when set, is held for the process lifetime so only one scheduler runs per host
	LockFile string `mapstructure:"lock_file" yaml:"lock_file,omitempty"`
}

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath additionally loads configuration from a YAML file.
// Environment variables take precedence over file values.
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return nil
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// LoadConfig resolves the configuration from the environment and the optional file, then validates it
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	v := newViper()
	if loaderCfg.path != "" {
		v.SetConfigFile(loaderCfg.path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// newViper builds a viper instance with every known key registered so that
// environment variables are picked up by Unmarshal
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("source.page_size", defaultPageSize)
	v.SetDefault("source.skip_pull_requests", true)
	v.SetDefault("source.timeout", defaultCallTimeout)
	v.SetDefault("sync.tick_interval", defaultTickInterval)
	v.SetDefault("sync.internal_authors", []string{})
	v.SetDefault("sync.bootstrap_watermark", defaultBootstrapWatermark)
	v.SetDefault("sync.watermark_source", WatermarkSourceLastProcessed)
	v.SetDefault("sync.dispatch_concurrency", defaultDispatchConcurrency)
	v.SetDefault("notify.template", issues.DefaultNotifyTemplate)
	v.SetDefault("notify.timeout", defaultCallTimeout)
	v.SetDefault("comment.template", issues.DefaultCommentTemplate)
	v.SetDefault("comment.timeout", defaultCallTimeout)
	v.SetDefault("store.table", DefaultTable)
	v.SetDefault("store.migrate_on_start", true)
	v.SetDefault("store.timeout", defaultCallTimeout)
	v.SetDefault("server.address", defaultAddress)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", telemetry.DefaultEndpoint)
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.tracing.enabled", false)
	v.SetDefault("telemetry.tracing.sampling", telemetry.DefaultSampling)
	v.SetDefault("telemetry.metrics.enabled", false)
	v.SetDefault("telemetry.metrics.prometheus", false)

	// Keys without defaults still need to be known to viper for env lookup
	for _, key := range []string{
		"repository.owner",
		"repository.name",
		"source.token",
		"source.base_url",
		"notify.webhook_url",
		"store.type",
		"store.url",
		"store.api_key",
		"store.max_conns",
		"store.aws_rds_iam_region",
		"server.lock_file",
		"telemetry.service_name",
	} {
		_ = v.BindEnv(key)
	}

	return v
}

// normalize cleans up values that come in loosely formatted from the environment
func (c *Config) normalize() {
	authors := make([]string, 0, len(c.Sync.InternalAuthors))
	for _, a := range c.Sync.InternalAuthors {
		// Comma-separated env values may carry whitespace
		for _, part := range strings.Split(a, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				authors = append(authors, trimmed)
			}
		}
	}
	c.Sync.InternalAuthors = authors
	c.Store.Type = strings.ToLower(strings.TrimSpace(c.Store.Type))
}

// Validate performs validation on the configuration.
// Every failure here is fatal at startup.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error

	if c.Repository.Owner == "" {
		errs = append(errs, fmt.Errorf("repository.owner is required"))
	}
	if c.Repository.Name == "" {
		errs = append(errs, fmt.Errorf("repository.name is required"))
	}
	if c.Source.Token == "" {
		errs = append(errs, fmt.Errorf("source.token is required"))
	}
	if c.Source.PageSize < 1 || c.Source.PageSize > maxPageSize {
		errs = append(errs, fmt.Errorf("source.page_size must be between 1 and %d, got %d", maxPageSize, c.Source.PageSize))
	}
	if c.Source.BaseURL != "" {
		if err := validateHTTPURL(c.Source.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("source.base_url: %w", err))
		}
	}

	if c.Sync.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("sync.tick_interval must be positive"))
	}
	if _, err := c.GetBootstrapWatermark(); err != nil {
		errs = append(errs, err)
	}
	switch c.Sync.WatermarkSource {
	case WatermarkSourceLastProcessed, WatermarkSourceCreatedAt:
	default:
		errs = append(errs, fmt.Errorf("sync.watermark_source must be %q or %q, got %q",
			WatermarkSourceLastProcessed, WatermarkSourceCreatedAt, c.Sync.WatermarkSource))
	}
	if c.Sync.DispatchConcurrency < 1 {
		errs = append(errs, fmt.Errorf("sync.dispatch_concurrency must be at least 1"))
	}

	if c.Notify.WebhookURL == "" {
		errs = append(errs, fmt.Errorf("notify.webhook_url is required"))
	} else if err := validateHTTPURL(c.Notify.WebhookURL); err != nil {
		errs = append(errs, fmt.Errorf("notify.webhook_url: %w", err))
	}
	if _, err := issues.ParseMessageTemplate("notify", c.Notify.Template); err != nil {
		errs = append(errs, fmt.Errorf("notify.template: %w", err))
	}
	if _, err := issues.ParseMessageTemplate("comment", c.Comment.Template); err != nil {
		errs = append(errs, fmt.Errorf("comment.template: %w", err))
	}

	errs = append(errs, c.validateStore()...)

	for name, d := range map[string]time.Duration{
		"source.timeout":  c.Source.Timeout,
		"notify.timeout":  c.Notify.Timeout,
		"comment.timeout": c.Comment.Timeout,
		"store.timeout":   c.Store.Timeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if c.Telemetry != nil {
		if err := c.Telemetry.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) validateStore() []error {
	var errs []error
	if c.Store.URL == "" {
		errs = append(errs, fmt.Errorf("store.url is required"))
		return errs
	}

	switch c.GetStoreType() {
	case StoreTypePostgres:
		if c.Store.MigrateOnStart && c.Store.Table != DefaultTable {
			errs = append(errs, fmt.Errorf(
				"store.table must be %q when store.migrate_on_start is enabled, got %q: "+
					"create the table yourself and disable store.migrate_on_start",
				DefaultTable, c.Store.Table))
		}
	case StoreTypePostgREST:
		if err := validateHTTPURL(c.Store.URL); err != nil {
			errs = append(errs, fmt.Errorf("store.url: %w", err))
		}
		if c.Store.APIKey == "" {
			errs = append(errs, fmt.Errorf("store.api_key is required for the %s store", StoreTypePostgREST))
		}
		if c.Store.AWSRDSIAMRegion != "" {
			errs = append(errs, fmt.Errorf("store.aws_rds_iam_region only applies to the %s store", StoreTypePostgres))
		}
	default:
		errs = append(errs, fmt.Errorf("store.type must be %q or %q, got %q",
			StoreTypePostgres, StoreTypePostgREST, c.GetStoreType()))
	}

	if !tableNamePattern.MatchString(c.Store.Table) {
		errs = append(errs, fmt.Errorf("store.table must be a plain identifier, got %q", c.Store.Table))
	}
	return errs
}

// GetStoreType returns the configured store type, inferring it from the URL scheme when unset
func (c *Config) GetStoreType() string {
	if c.Store.Type != "" {
		return c.Store.Type
	}

	u, err := url.Parse(c.Store.URL)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return StoreTypePostgres
	case "http", "https":
		return StoreTypePostgREST
	default:
		return u.Scheme
	}
}

// GetBootstrapWatermark returns the watermark applied when the store is empty
func (c *Config) GetBootstrapWatermark() (time.Time, error) {
	raw := c.Sync.BootstrapWatermark
	if raw == "" {
		raw = defaultBootstrapWatermark
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("sync.bootstrap_watermark must be an RFC3339 timestamp: %w", err)
	}
	return t.UTC(), nil
}

// Redacted returns a copy of the configuration safe for display
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Sync.InternalAuthors = append([]string(nil), c.Sync.InternalAuthors...)
	if cp.Source.Token != "" {
		cp.Source.Token = redacted
	}
	if cp.Store.APIKey != "" {
		cp.Store.APIKey = redacted
	}
	if cp.Notify.WebhookURL != "" {
		cp.Notify.WebhookURL = redactURL(cp.Notify.WebhookURL)
	}
	cp.Store.URL = redactURL(cp.Store.URL)
	return &cp
}

// redactURL keeps the scheme and host and hides credentials and path secrets
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return redacted
	}
	redactedURL := url.URL{Scheme: u.Scheme, Host: u.Host}
	if u.User != nil {
		redactedURL.User = url.UserPassword(u.User.Username(), redacted)
	}
	if u.Path != "" && u.Path != "/" {
		redactedURL.Path = "/" + redacted
	}
	return redactedURL.String()
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}
