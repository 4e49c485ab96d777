package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Triage      TriageConfig      `mapstructure:"triage"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Links       LinksConfig       `mapstructure:"links"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Addr            string `mapstructure:"addr"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// TriageConfig selects the model provider.  Timeout 0 leaves the model call
// bounded only by the caller.
type TriageConfig struct {
	Provider string `mapstructure:"provider"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	ThinkingBudget int    `mapstructure:"thinking_budget"`
	BaseURL        string `mapstructure:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// CredentialsConfig lists where the selected API key is read from.  EnvVar
// defaults to the provider's conventional variable.
type CredentialsConfig struct {
	KeyFile string `mapstructure:"key_file"`
	EnvFile string `mapstructure:"env_file"`
	EnvVar  string `mapstructure:"env_var"`
}

type LinksConfig struct {
	MapsSearchURL    string `mapstructure:"maps_search_url"`
	DoctorBookingURL string `mapstructure:"doctor_booking_url"`
}

type TelegramConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Token       string `mapstructure:"token"`
	Debug       bool   `mapstructure:"debug"`
	PollTimeout int    `mapstructure:"poll_timeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// APIKey returns the key configured for the selected provider.
func (c *Config) APIKey() string {
	if c.Triage.Provider == ProviderOpenAI {
		return c.OpenAI.APIKey
	}
	return c.Gemini.APIKey
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
