package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the process-wide environment configuration. It is loaded once at
// startup and passed explicitly to every component that needs it; nothing in
// this repository reaches for a package-level global.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"CATALOG_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"CATALOG_DB_MAX_CONNS" default:"8"`

	SearchHost              string        `envconfig:"SEARCH_HOST" default:"localhost"`
	SearchPort              int           `envconfig:"SEARCH_PORT" default:"8108"`
	SearchProtocol          string        `envconfig:"SEARCH_PROTOCOL" default:"http"`
	SearchAPIKey            string        `envconfig:"SEARCH_API_KEY" default:""`
	SearchConnectionTimeout time.Duration `envconfig:"SEARCH_CONNECTION_TIMEOUT" default:"10s"`
	SearchCollectionName    string        `envconfig:"SEARCH_COLLECTION_NAME" default:"events"`

	AdapterAPIBaseURL       string        `envconfig:"ADAPTER_API_BASE_URL" default:""`
	AdapterAPIToken         string        `envconfig:"ADAPTER_API_TOKEN" default:""`
	AdapterScrapedUserAgent string        `envconfig:"ADAPTER_SCRAPED_USER_AGENT" default:"catalog-bot/1.0"`
	AdapterScrapedURLs      string        `envconfig:"ADAPTER_SCRAPED_URLS" default:""`
	AdapterSpreadsheetPath  string        `envconfig:"ADAPTER_SPREADSHEET_PATH" default:""`
	AdapterFetchTimeout     time.Duration `envconfig:"ADAPTER_FETCH_TIMEOUT" default:"30s"`
	MaxFetchConcurrency     int           `envconfig:"CATALOG_MAX_FETCH_CONCURRENCY" default:"4"`

	AdminAllowlist    string `envconfig:"ADMIN_ALLOWLIST" default:""`
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" default:""`

	APIPollInterval           time.Duration `envconfig:"CATALOG_API_POLL_INTERVAL" default:"6h"`
	ManualImportPollInterval  time.Duration `envconfig:"CATALOG_MANUAL_IMPORT_POLL_INTERVAL" default:"1h"`
	DailyMaintenanceHourUTC   int           `envconfig:"CATALOG_DAILY_MAINTENANCE_HOUR_UTC" default:"2"`
	CandidateRetentionDays    int           `envconfig:"CATALOG_CANDIDATE_RETENTION_DAYS" default:"30"`
	ConfidenceStaleAfterDays  int           `envconfig:"CATALOG_CONFIDENCE_STALE_AFTER_DAYS" default:"30"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("CATALOG_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("CATALOG_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("CATALOG_DB_MIN_CONNS (%d) cannot exceed CATALOG_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.SearchHost) == "" {
		return fmt.Errorf("SEARCH_HOST is required")
	}
	if c.SearchPort <= 0 || c.SearchPort > 65535 {
		return fmt.Errorf("SEARCH_PORT must be between 1 and 65535")
	}
	if strings.TrimSpace(c.SearchCollectionName) == "" {
		return fmt.Errorf("SEARCH_COLLECTION_NAME is required")
	}
	if c.MaxFetchConcurrency < 1 {
		return fmt.Errorf("CATALOG_MAX_FETCH_CONCURRENCY must be >= 1")
	}
	if c.DailyMaintenanceHourUTC < 0 || c.DailyMaintenanceHourUTC > 23 {
		return fmt.Errorf("CATALOG_DAILY_MAINTENANCE_HOUR_UTC must be between 0 and 23")
	}
	if c.CandidateRetentionDays < 1 {
		return fmt.Errorf("CATALOG_CANDIDATE_RETENTION_DAYS must be >= 1")
	}
	return nil
}

// AdminAllowlistSet returns the configured admin usernames, lowercased and deduped.
func (c *Config) AdminAllowlistSet() map[string]struct{} {
	set := make(map[string]struct{})
	if c == nil {
		return set
	}
	for _, part := range strings.Split(c.AdminAllowlist, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}
	return splitCommaList(c.CORSAllowedOrigins)
}

// AdapterScrapedURLsList returns the configured scraped_page watch list.
func (c *Config) AdapterScrapedURLsList() []string {
	if c == nil {
		return nil
	}
	return splitCommaList(c.AdapterScrapedURLs)
}

func splitCommaList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
