package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// config holds every setting the server reads from the environment.
type config struct {
	Port           int    `envconfig:"PORT" default:"5000"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`

	// Language model. LLMProvider may be empty; see resolveCompleter.
	LLMProvider     string        `envconfig:"LLM_PROVIDER"`
	LLMModel        string        `envconfig:"LLM_MODEL"`
	OpenAIAPIKey    string        `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string        `envconfig:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string        `envconfig:"GEMINI_API_KEY"`
	LLMTimeout      time.Duration `envconfig:"LLM_TIMEOUT" default:"30s"`

	// Activity providers.
	JiraBaseURL     string        `envconfig:"JIRA_BASE_URL"`
	JiraEmail       string        `envconfig:"JIRA_EMAIL"`
	JiraAPIToken    string        `envconfig:"JIRA_API_TOKEN"`
	GitHubToken     string        `envconfig:"GITHUB_TOKEN"`
	GitHubBaseURL   string        `envconfig:"GITHUB_BASE_URL" default:"https://api.github.com"`
	ProviderTimeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"10s"`

	// Identifier resolution.
	UserMappingEnabled bool   `envconfig:"USER_MAPPING_ENABLED" default:"true"`
	UserMappingFile    string `envconfig:"USER_MAPPING_FILE" default:"config/users.json"`
}

// loadConfig reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env entries.
func loadConfig(envFiles ...string) (config, error) {
	_ = godotenv.Load(envFiles...)

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		return config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return config{}, fmt.Errorf("PORT must be in 1..65535, got %d", cfg.Port)
	}
	return cfg, nil
}

// newLogger builds the process logger. Unknown levels fall back to info.
func newLogger(w io.Writer, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
