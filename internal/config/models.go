package config

import (
	"fmt"
	"time"

	"github.com/proofofcorn/farmer-fred/internal/core"
)

// AgentConfig identifies the agent
type AgentConfig struct {
	Name    string
	Version string
	Email   string
}

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
	Timeout  time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// KVConfig selects and configures the key-value backend
type KVConfig struct {
	Type             string
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	ListenAddress   string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// InboundConfig configures the inbound SMTP listener
type InboundConfig struct {
	Enabled         bool
	Mode            string
	ListenAddress   string
	Domain          string
	MaxMessageBytes int64
	MaxRecipients   int
	MaxBodySize     int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// AlertsConfig configures operator alerts
type AlertsConfig struct {
	To       string
	Cooldown time.Duration
}

// SMTPConfig configures the outbound relay
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	StartTLS bool
}

// Address returns host:port
func (s SMTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WeatherConfig configures the weather client and the watched regions
type WeatherConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Regions []core.Region
}

// FollowUpConfig configures follow-up scheduling
type FollowUpConfig struct {
	BlockedPatterns []string
}

// SchedulerConfig configures the periodic jobs
type SchedulerConfig struct {
	Enabled            bool
	DailyCheckInterval time.Duration
	FollowUpInterval   time.Duration
	RunOnStart         bool
}

// AdminConfig holds the admin credentials
type AdminConfig struct {
	Password string
}

// GetAgent returns the agent identity
func (c *Config) GetAgent() AgentConfig {
	return AgentConfig{
		Name:    c.GetString("agent.name"),
		Version: c.GetString("agent.version"),
		Email:   c.GetString("agent.email"),
	}
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
		Timeout:  c.durationOr("llm.timeout", 60*time.Second),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetKV returns the key-value store configuration
func (c *Config) GetKV() KVConfig {
	return KVConfig{
		Type:             c.GetString("kv.type"),
		CleanupFrequency: c.durationOr("kv.cleanup_frequency", 10*time.Minute),
		SQLitePath:       c.GetString("kv.sqlite_path"),
		MySQLDSN:         c.GetString("kv.mysql_dsn"),
	}
}

// GetServer returns the HTTP API configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		CORSOrigins:     c.GetStringSlice("server.cors_origins"),
		ShutdownTimeout: c.durationOr("server.shutdown_timeout", 10*time.Second),
	}
}

// GetInbound returns the inbound listener configuration
func (c *Config) GetInbound() InboundConfig {
	return InboundConfig{
		Enabled:         c.GetBool("inbound.enabled"),
		Mode:            c.GetString("inbound.mode"),
		ListenAddress:   c.GetString("inbound.listen_address"),
		Domain:          c.GetString("inbound.domain"),
		MaxMessageBytes: c.v.GetInt64("inbound.max_message_bytes"),
		MaxRecipients:   c.GetInt("inbound.max_recipients"),
		MaxBodySize:     c.GetInt("inbound.max_body_size"),
		ReadTimeout:     c.durationOr("inbound.read_timeout", 30*time.Second),
		WriteTimeout:    c.durationOr("inbound.write_timeout", 30*time.Second),
	}
}

// GetAlerts returns the alert configuration
func (c *Config) GetAlerts() AlertsConfig {
	return AlertsConfig{
		To:       c.GetString("alerts.to"),
		Cooldown: c.durationOr("alerts.cooldown", core.DefaultAlertCooldown),
	}
}

// GetSMTP returns the outbound relay configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Host:     c.GetString("smtp.host"),
		Port:     c.GetInt("smtp.port"),
		Username: c.GetString("smtp.username"),
		Password: c.GetString("smtp.password"),
		From:     c.GetString("smtp.from"),
		FromName: c.GetString("smtp.from_name"),
		StartTLS: c.GetBool("smtp.starttls"),
	}
}

// GetWeather returns the weather configuration
func (c *Config) GetWeather() (WeatherConfig, error) {
	var regions []core.Region
	if err := c.v.UnmarshalKey("weather.regions", &regions); err != nil {
		return WeatherConfig{}, fmt.Errorf("failed to decode weather regions: %w", err)
	}
	return WeatherConfig{
		APIKey:  c.GetString("weather.api_key"),
		BaseURL: c.GetString("weather.base_url"),
		Timeout: c.durationOr("weather.timeout", 10*time.Second),
		Regions: regions,
	}, nil
}

// GetFollowUp returns the follow-up configuration
func (c *Config) GetFollowUp() FollowUpConfig {
	return FollowUpConfig{
		BlockedPatterns: c.GetStringSlice("followup.blocked_patterns"),
	}
}

// GetScheduler returns the scheduler configuration
func (c *Config) GetScheduler() SchedulerConfig {
	return SchedulerConfig{
		Enabled:            c.GetBool("scheduler.enabled"),
		DailyCheckInterval: c.durationOr("scheduler.daily_check_interval", 24*time.Hour),
		FollowUpInterval:   c.durationOr("scheduler.follow_up_interval", 6*time.Hour),
		RunOnStart:         c.GetBool("scheduler.run_on_start"),
	}
}

// GetAdmin returns the admin configuration
func (c *Config) GetAdmin() AdminConfig {
	return AdminConfig{
		Password: c.GetString("admin.password"),
	}
}

// LoggingConfig configures the logger
type LoggingConfig struct {
	Level  string
	Format string
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
	}
}
