package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Supported LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderVenice    = "venice"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

type providerDefaults struct {
	model    string
	auxModel string
}

var defaultModels = map[string]providerDefaults{
	ProviderOpenAI:    {model: "gpt-4", auxModel: "gpt-3.5-turbo"},
	ProviderVenice:    {model: "llama-3.3-70b", auxModel: "llama-3.2-3b"},
	ProviderGemini:    {model: "gemini-1.5-flash", auxModel: "gemini-1.5-flash"},
	ProviderAnthropic: {model: "claude-3-5-sonnet-latest", auxModel: "claude-3-5-haiku-latest"},
}

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string     `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level `env:"-"`

	RedisURL string `env:"REDIS_URL" envDefault:"localhost:6379"`

	LLMProvider       string        `env:"LLM_PROVIDER" envDefault:"openai"`
	ModelName         string        `env:"MODEL_NAME"`
	AuxModelName      string        `env:"AUX_MODEL_NAME"`
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	VeniceAPIKey      string        `env:"VENICE_API_KEY"`
	GeminiAPIKey      string        `env:"GEMINI_API_KEY"`
	AnthropicAPIKey   string        `env:"ANTHROPIC_API_KEY"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"30s"`

	FrontendURL      string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	ContentRating    string `env:"CONTENT_RATING"`
	EnforceTurnOrder bool   `env:"ENFORCE_TURN_ORDER" envDefault:"false"`

	RateLimitDM      int           `env:"RATE_LIMIT_DM" envDefault:"10"`
	RateLimitGeneral int           `env:"RATE_LIMIT_GENERAL" envDefault:"100"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`

	// TrustProxy keys rate limits on X-Forwarded-For. Only safe behind a
	// proxy that rewrites the header.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`
}

// Load reads the configuration from the environment, fills provider
// defaults and validates the result.
func Load() (*Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.ContentRating = strings.ToUpper(strings.TrimSpace(cfg.ContentRating))

	defaults, ok := defaultModels[cfg.LLMProvider]
	if !ok {
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
	if cfg.ModelName == "" {
		cfg.ModelName = defaults.model
	}
	if cfg.AuxModelName == "" {
		cfg.AuxModelName = defaults.auxModel
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderVenice:
		return c.VeniceAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	}
	return ""
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) validate() error {
	var errs []error
	if c.APIKey() == "" {
		errs = append(errs, fmt.Errorf("%s_API_KEY is required for provider %s", strings.ToUpper(c.LLMProvider), c.LLMProvider))
	}
	if c.GenerationTimeout <= 0 {
		errs = append(errs, errors.New("GENERATION_TIMEOUT must be positive"))
	}
	if c.RateLimitDM <= 0 || c.RateLimitGeneral <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	switch c.ContentRating {
	case "", "G", "PG", "PG13", "R":
	default:
		errs = append(errs, fmt.Errorf("unknown CONTENT_RATING %q", c.ContentRating))
	}
	return errors.Join(errs...)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
