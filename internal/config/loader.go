package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var defaults = map[string]any{
	"app.name":                 "madipath",
	"app.environment":          "development",
	"server.addr":              ":8080",
	"server.shutdown_timeout":  10000,
	"triage.provider":          ProviderGemini,
	"triage.timeout":           0,
	"gemini.api_key":           "",
	"gemini.model":             "gemini-3-pro-preview",
	"gemini.thinking_budget":   4000,
	"gemini.base_url":          "",
	"openai.api_key":           "",
	"openai.model":             "gpt-4o-mini",
	"openai.base_url":          "",
	"credentials.key_file":     "",
	"credentials.env_file":     ".env",
	"credentials.env_var":      "",
	"links.maps_search_url":    "https://www.google.com/maps/search/",
	"links.doctor_booking_url": "https://www.zocdoc.com/",
	"telegram.enabled":         false,
	"telegram.token":           "",
	"telegram.debug":           false,
	"telegram.poll_timeout":    60,
	"logging.level":            "info",
	"logging.format":           "json",
}

// Option overrides a setting after the file and environment are read and
// before dependent defaults are derived.
type Option func(v *viper.Viper)

// WithProvider selects the model provider, taking precedence over the file
// and environment.  An empty value keeps the configured provider.
func WithProvider(provider string) Option {
	return func(v *viper.Viper) {
		if p := strings.TrimSpace(provider); p != "" {
			v.Set("triage.provider", p)
		}
	}
}

// Load reads configuration from an optional YAML file, a .env file and the
// environment, in increasing order of precedence.  An empty path searches
// ./configs and the working directory for config.yaml.
func Load(path string, opts ...Option) (*Config, error) {
	loadEnvFile(".env")

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading base config: %w", err)
			}
		}
	}

	for _, opt := range opts {
		opt(v)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile copies variables from path into the process environment
// without overriding ones already set.
func loadEnvFile(path string) {
	if _, err := os.Stat(path); err == nil {
		_ = godotenv.Load(path)
	}
}

// applyDefaults fills values that depend on other settings.
func applyDefaults(cfg *Config) {
	cfg.Triage.Provider = strings.ToLower(strings.TrimSpace(cfg.Triage.Provider))
	if cfg.Credentials.EnvVar == "" {
		switch cfg.Triage.Provider {
		case ProviderOpenAI:
			cfg.Credentials.EnvVar = "OPENAI_API_KEY"
		default:
			cfg.Credentials.EnvVar = "GEMINI_API_KEY"
		}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Triage.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("triage.provider must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, cfg.Triage.Provider)
	}
	if cfg.Triage.Timeout < 0 {
		return fmt.Errorf("triage.timeout must not be negative")
	}
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if cfg.Gemini.ThinkingBudget < 0 {
		return fmt.Errorf("gemini.thinking_budget must not be negative")
	}
	if cfg.Telegram.Enabled && cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required when telegram.enabled is set")
	}
	return nil
}
