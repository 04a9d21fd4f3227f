package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/lukman83/carizon/internal/pricing"
)

// Config holds all application configuration.
type Config struct {
	// Data sources. Several kinds are merged into one snapshot.
	Sources       []string `env:"CARIZON_SOURCE" envSeparator:"," envDefault:"file" validate:"min=1,dive,oneof=file http postgres pages"`
	DataFile      string   `env:"CARIZON_DATA_FILE" envDefault:"./data/vehicles.json"`
	APIBaseURL    string   `env:"CARIZON_API_URL" validate:"omitempty,url"`
	APIToken      string   `env:"CARIZON_API_TOKEN"`
	PagesFile     string   `env:"CARIZON_PAGES_FILE"`
	PostgresDSN   string   `env:"CARIZON_POSTGRES_DSN"`
	PartialSource bool     `env:"CARIZON_PARTIAL" envDefault:"false"`

	// Spread bands, in KRW. The defaults are illustrative, not business rules.
	SpreadGood int64 `env:"CARIZON_SPREAD_GOOD" envDefault:"1000000" validate:"gte=0"`
	SpreadWarn int64 `env:"CARIZON_SPREAD_WARN" envDefault:"3000000" validate:"gtefield=SpreadGood"`

	// Listing pages
	DefaultPageSize int    `env:"CARIZON_PAGE_SIZE" envDefault:"20" validate:"gt=0,ltefield=MaxPageSize"`
	MaxPageSize     int    `env:"CARIZON_MAX_PAGE_SIZE" envDefault:"100" validate:"gt=0"`
	DefaultSort     string `env:"CARIZON_SORT" envDefault:"price_asc" validate:"omitempty,oneof=price_asc price_desc mileage_asc year_desc"`

	// Fetching
	RespectRobots  bool          `env:"CARIZON_RESPECT_ROBOTS" envDefault:"true"`
	DelayProfile   string        `env:"CARIZON_DELAY_PROFILE" envDefault:"normal" validate:"oneof=cautious normal none"`
	RatePerSecond  float64       `env:"CARIZON_RATE_PER_SECOND" envDefault:"2" validate:"gt=0"`
	RateBurst      int           `env:"CARIZON_RATE_BURST" envDefault:"3" validate:"gt=0"`
	MaxConcurrent  int           `env:"CARIZON_MAX_CONCURRENT" envDefault:"5" validate:"gt=0"`
	RequestTimeout time.Duration `env:"CARIZON_HTTP_TIMEOUT" envDefault:"30s"`
	MaxRetries     int           `env:"CARIZON_MAX_RETRIES" envDefault:"2" validate:"gte=0"`

	// HTTP server
	HTTPPort string `env:"PORT" envDefault:"8080"`
	APIKey   string `env:"CARIZON_API_KEY"`

	// Logging
	LogLevel       string `env:"CARIZON_LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool   `env:"CARIZON_LOG_DEV" envDefault:"false"`
}

// Load reads a .env file (if present), then the environment, and validates
// the result.
func Load() (*Config, error) {
	// Missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints. Call it again after applying flag
// overrides.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	required := map[string]string{
		"http":     c.APIBaseURL,
		"pages":    c.PagesFile,
		"postgres": c.PostgresDSN,
	}
	envKey := map[string]string{
		"http":     "CARIZON_API_URL",
		"pages":    "CARIZON_PAGES_FILE",
		"postgres": "CARIZON_POSTGRES_DSN",
	}
	for _, src := range c.Sources {
		if v, ok := required[src]; ok && v == "" {
			return fmt.Errorf("invalid config: source %s requires %s", src, envKey[src])
		}
	}
	return nil
}

// HasSource reports whether kind is among the configured sources.
func (c *Config) HasSource(kind string) bool {
	return slices.Contains(c.Sources, kind)
}

// Thresholds returns the spread bands for the pricing package.
func (c *Config) Thresholds() pricing.Thresholds {
	return pricing.Thresholds{Good: c.SpreadGood, Warn: c.SpreadWarn}
}
