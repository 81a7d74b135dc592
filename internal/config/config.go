// ABOUTME: Centralized configuration for the finrouter CLI and MCP server
// ABOUTME: Loads from environment variables, optionally layered over a YAML file, with validation
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/harper/finrouter/internal/models"
)

// Decision providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOffline   = "offline"
)

// State backends
const (
	BackendSQLite = "sqlite"
	BackendCharm  = "charm"
	BackendMemory = "memory"
)

// Config holds all configuration for the router
type Config struct {
	// LLM settings
	Provider       string        `mapstructure:"provider"`
	OpenAIKey      string        `mapstructure:"openai_api_key"`
	OpenAIModel    string        `mapstructure:"openai_model"`
	AnthropicKey   string        `mapstructure:"anthropic_api_key"`
	AnthropicModel string        `mapstructure:"anthropic_model"`
	LLMTimeout     time.Duration `mapstructure:"llm_timeout"`
	MaxRetries     int           `mapstructure:"llm_max_retries"`
	RetryDelay     time.Duration `mapstructure:"llm_retry_delay"`

	// Routing settings
	DirectThreshold        float64       `mapstructure:"direct_route_threshold"`
	DefaultHandler         string        `mapstructure:"default_handler"`
	PlannerContextMessages int           `mapstructure:"planner_context_messages"`
	HandlerTimeout         time.Duration `mapstructure:"handler_timeout"`
	PlannerTimeout         time.Duration `mapstructure:"planner_timeout"`
	RulesFile              string        `mapstructure:"rules_file"`

	// State settings
	StateBackend string `mapstructure:"state_backend"`
	DBPath       string `mapstructure:"db_path"`
	CharmHost    string `mapstructure:"charm_host"`
	CharmDBName  string `mapstructure:"charm_db"`
	AutoSync     bool   `mapstructure:"charm_auto_sync"`

	LogLevel string `mapstructure:"log_level"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Provider:               ProviderOpenAI,
		OpenAIModel:            "gpt-4o-mini",
		AnthropicModel:         "claude-sonnet-4-20250514",
		LLMTimeout:             30 * time.Second,
		MaxRetries:             3,
		RetryDelay:             2 * time.Second,
		DirectThreshold:        0.85,
		DefaultHandler:         string(models.HandlerEducation),
		PlannerContextMessages: 10,
		HandlerTimeout:         60 * time.Second,
		PlannerTimeout:         30 * time.Second,
		StateBackend:           BackendSQLite,
		CharmHost:              "cloud.charm.sh",
		CharmDBName:            "finrouter",
		AutoSync:               true,
		LogLevel:               "info",
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	return fromEnv(Defaults())
}

// LoadFile reads a YAML config file and then applies environment overrides.
// An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	base := Defaults()
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", path, err)
		}
		if err := v.Unmarshal(base); err != nil {
			return nil, fmt.Errorf("unmarshaling config: %w", err)
		}
	}
	return fromEnv(base)
}

func fromEnv(base *Config) (*Config, error) {
	cfg := &Config{
		Provider:               getEnv("FINROUTER_PROVIDER", base.Provider),
		OpenAIKey:              getEnv("OPENAI_API_KEY", base.OpenAIKey),
		OpenAIModel:            getEnv("FINROUTER_OPENAI_MODEL", base.OpenAIModel),
		AnthropicKey:           getEnv("ANTHROPIC_API_KEY", base.AnthropicKey),
		AnthropicModel:         getEnv("FINROUTER_ANTHROPIC_MODEL", base.AnthropicModel),
		LLMTimeout:             getEnvDuration("LLM_TIMEOUT", base.LLMTimeout),
		MaxRetries:             getEnvInt("LLM_MAX_RETRIES", base.MaxRetries),
		RetryDelay:             getEnvDuration("LLM_RETRY_DELAY", base.RetryDelay),
		DirectThreshold:        getEnvFloat("DIRECT_ROUTE_THRESHOLD", base.DirectThreshold),
		DefaultHandler:         getEnv("DEFAULT_HANDLER", base.DefaultHandler),
		PlannerContextMessages: getEnvInt("PLANNER_CONTEXT_MESSAGES", base.PlannerContextMessages),
		HandlerTimeout:         getEnvDuration("HANDLER_TIMEOUT", base.HandlerTimeout),
		PlannerTimeout:         getEnvDuration("PLANNER_TIMEOUT", base.PlannerTimeout),
		RulesFile:              getEnv("RULES_FILE", base.RulesFile),
		StateBackend:           getEnv("STATE_BACKEND", base.StateBackend),
		DBPath:                 getEnv("FINROUTER_DB", base.DBPath),
		CharmHost:              getEnv("CHARM_HOST", base.CharmHost),
		CharmDBName:            getEnv("CHARM_DB", base.CharmDBName),
		AutoSync:               getEnvBool("CHARM_AUTO_SYNC", base.AutoSync),
		LogLevel:               getEnv("LOG_LEVEL", base.LogLevel),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderOffline:
	default:
		return fmt.Errorf("FINROUTER_PROVIDER must be openai, anthropic or offline, got %q", c.Provider)
	}
	switch c.StateBackend {
	case BackendSQLite, BackendCharm, BackendMemory:
	default:
		return fmt.Errorf("STATE_BACKEND must be sqlite, charm or memory, got %q", c.StateBackend)
	}
	if c.DirectThreshold <= 0 || c.DirectThreshold > models.PatternConfidence {
		return fmt.Errorf("DIRECT_ROUTE_THRESHOLD must be in (0,%.2f], got %f", models.PatternConfidence, c.DirectThreshold)
	}
	if _, err := models.ParseHandlerID(c.DefaultHandler); err != nil {
		return fmt.Errorf("DEFAULT_HANDLER: %w", err)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("LLM_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.PlannerContextMessages <= 0 {
		return fmt.Errorf("PLANNER_CONTEXT_MESSAGES must be positive, got %d", c.PlannerContextMessages)
	}
	if c.HandlerTimeout <= 0 || c.PlannerTimeout <= 0 || c.LLMTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// DefaultHandlerID returns the validated fallback handler
func (c *Config) DefaultHandlerID() models.HandlerID {
	id, err := models.ParseHandlerID(c.DefaultHandler)
	if err != nil {
		return models.HandlerEducation
	}
	return id
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
