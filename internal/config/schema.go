package config

import (
	"fmt"
	"time"

	"github.com/metcalfc/pagepal/internal/document"
)

// Config is the reader configuration.
type Config struct {
	// APIURL is the base URL of the book and explanation backend.
	APIURL string `mapstructure:"api_url" yaml:"api_url"`
	// APIKey is sent as x-api-key. ${ENV_VAR} references are resolved.
	APIKey        string        `mapstructure:"api_key" yaml:"api_key"`
	LanguageLevel string        `mapstructure:"language_level" yaml:"language_level"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// PageCache is how many recently read pages are kept in memory. Zero
	// disables the cache.
	PageCache int `mapstructure:"page_cache" yaml:"page_cache"`

	// ExplainRate is explanation requests per minute. The backend allows 3.
	ExplainRate     float64       `mapstructure:"explain_rate" yaml:"explain_rate"`
	ExplainBurst    int           `mapstructure:"explain_burst" yaml:"explain_burst"`
	BreakerFailures uint32        `mapstructure:"breaker_failures" yaml:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown" yaml:"breaker_cooldown"`

	// WordsPerPage sizes the pages of local documents.
	WordsPerPage int `mapstructure:"words_per_page" yaml:"words_per_page"`

	// LogFile receives the log. Empty discards it while the reader is on
	// screen.
	LogFile string `mapstructure:"log_file" yaml:"log_file"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		APIURL:          "http://localhost:8000",
		APIKey:          "${PAGEPAL_API_KEY}",
		LanguageLevel:   "B1",
		Timeout:         30 * time.Second,
		PageCache:       32,
		ExplainRate:     3,
		ExplainBurst:    3,
		BreakerFailures: 0,
		BreakerCooldown: 30 * time.Second,
		WordsPerPage:    document.DefaultWordsPerPage,
	}
}

// Validate checks the values that would otherwise fail later and less
// clearly.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.PageCache < 0 {
		return fmt.Errorf("page_cache must not be negative, got %d", c.PageCache)
	}
	if c.ExplainRate < 0 || c.ExplainBurst < 0 {
		return fmt.Errorf("explain_rate and explain_burst must not be negative")
	}
	if c.ExplainRate > 0 && c.ExplainBurst == 0 {
		return fmt.Errorf("explain_burst must be at least 1 when explain_rate is set")
	}
	if c.WordsPerPage <= 0 {
		return fmt.Errorf("words_per_page must be positive, got %d", c.WordsPerPage)
	}
	return nil
}

// ResolvedAPIKey returns APIKey with ${ENV_VAR} references expanded.
func (c *Config) ResolvedAPIKey() string {
	return ResolveEnvVars(c.APIKey)
}
