package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/farmer-fred/")
	v.AddConfigPath("$HOME/.farmer-fred")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("FARMER_FRED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromFile reads the configuration from an explicit yaml file
func NewFromFile(path string) (*Config, error) {
	v := NewEmptyViper()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvPrefix("FARMER_FRED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Agent identity
	v.SetDefault("agent.name", "Farmer Fred")
	v.SetDefault("agent.version", "1.0.0")
	v.SetDefault("agent.email", "fred@proofofcorn.com")

	// LLM provider defaults
	v.SetDefault("llm.provider", "bedrock")
	v.SetDefault("llm.timeout", "60s")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-5-sonnet-20240620-v1:0")
	v.SetDefault("bedrock.max_tokens", 1024)
	v.SetDefault("bedrock.temperature", 0.3)
	v.SetDefault("bedrock.top_p", 0.9)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-pro")
	v.SetDefault("gemini.max_tokens", 1024)
	v.SetDefault("gemini.temperature", 0.3)
	v.SetDefault("gemini.top_p", 0.9)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4o")
	v.SetDefault("openai.max_tokens", 1024)
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("openai.top_p", 0.9)

	// Key-value store defaults
	v.SetDefault("kv.type", "memory")
	v.SetDefault("kv.cleanup_frequency", "10m")
	v.SetDefault("kv.sqlite_path", "/data/farmer-fred.db")
	v.SetDefault("kv.mysql_dsn", "user:password@tcp(localhost:3306)/farmer_fred")

	// HTTP API defaults
	v.SetDefault("server.listen_address", "0.0.0.0:8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", "10s")

	// Inbound SMTP defaults
	v.SetDefault("inbound.enabled", true)
	v.SetDefault("inbound.mode", "smtp")
	v.SetDefault("inbound.listen_address", "0.0.0.0:2525")
	v.SetDefault("inbound.domain", "proofofcorn.com")
	v.SetDefault("inbound.max_message_bytes", 1024*1024)
	v.SetDefault("inbound.max_recipients", 50)
	v.SetDefault("inbound.max_body_size", 10000)
	v.SetDefault("inbound.read_timeout", "30s")
	v.SetDefault("inbound.write_timeout", "30s")

	// CLI triage
	v.SetDefault("cli.verbose", false)

	// Operator alerts
	v.SetDefault("alerts.to", "")
	v.SetDefault("alerts.cooldown", "6h")

	// Outbound SMTP
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "fred@proofofcorn.com")
	v.SetDefault("smtp.from_name", "Farmer Fred")
	v.SetDefault("smtp.starttls", true)

	// Weather defaults
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("weather.timeout", "10s")
	v.SetDefault("weather.regions", []map[string]interface{}{
		{"name": "Iowa", "lat": 41.878, "lon": -93.098, "status": "active", "planting_window": "April 15 - May 15"},
		{"name": "South Texas", "lat": 26.2, "lon": -98.2, "status": "evaluating", "planting_window": "February - March"},
		{"name": "Argentina", "lat": -34.6, "lon": -60.9, "status": "evaluating", "planting_window": "September - December"},
	})

	// Follow-ups
	v.SetDefault("followup.blocked_patterns", []string{})

	// Scheduler
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.daily_check_interval", "24h")
	v.SetDefault("scheduler.follow_up_interval", "6h")
	v.SetDefault("scheduler.run_on_start", false)

	// Admin
	v.SetDefault("admin.password", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// durationOr parses key, falling back when it is missing or malformed
func (c *Config) durationOr(key string, fallback time.Duration) time.Duration {
	d, err := c.GetDuration(key)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
