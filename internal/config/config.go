// Package config loads reader settings from defaults, an optional YAML file
// and PAGEPAL_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. PAGEPAL_API_URL.
const EnvPrefix = "PAGEPAL"

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// Manager loads configuration.
type Manager struct {
	v      *viper.Viper
	config *Config
}

// NewManager creates a config manager and loads the configuration. An empty
// cfgFile searches ./config.yaml and $HOME/.pagepal/config.yaml; neither has
// to exist.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{v: viper.New()}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	defaults := DefaultConfig()
	v.SetDefault("api_url", defaults.APIURL)
	v.SetDefault("api_key", defaults.APIKey)
	v.SetDefault("language_level", defaults.LanguageLevel)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("page_cache", defaults.PageCache)
	v.SetDefault("explain_rate", defaults.ExplainRate)
	v.SetDefault("explain_burst", defaults.ExplainBurst)
	v.SetDefault("breaker_failures", defaults.BreakerFailures)
	v.SetDefault("breaker_cooldown", defaults.BreakerCooldown)
	v.SetDefault("words_per_page", defaults.WordsPerPage)
	v.SetDefault("log_file", defaults.LogFile)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.pagepal")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Get returns the loaded configuration.
func (cm *Manager) Get() *Config {
	return cm.config
}

// File returns the config file in use, or "" when only defaults and the
// environment apply.
func (cm *Manager) File() string {
	return cm.v.ConfigFileUsed()
}

// Set overrides key for the rest of the process, e.g. from a command line
// flag, and reloads.
func (cm *Manager) Set(key string, value any) error {
	cm.v.Set(key, value)
	cfg, err := cm.load()
	if err != nil {
		return err
	}
	cm.config = cfg
	return nil
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// WriteDefault writes the default configuration to path. An existing file
// is left alone.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# PagePal configuration
# api_key may reference an environment variable with ${ENV_VAR} syntax.
# Any key can be overridden with PAGEPAL_<KEY>, e.g. PAGEPAL_LANGUAGE_LEVEL=A2

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}

// DefaultPath is where `config init` writes when no path is given.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pagepal", "config.yaml"), nil
}
