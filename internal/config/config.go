package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v6"
)

// API holds configuration for the API Lambda (intake + query surface).
type API struct {
	Environment         string `env:"ENVIRONMENT" envDefault:"dev"`
	RecommendationTable string `env:"RECOMMENDATIONS_TABLE,required"`
	FeedbackTopicARN    string `env:"FEEDBACK_TOPIC_ARN,required"`
	MaxFeedbackLength   int    `env:"MAX_FEEDBACK_LENGTH" envDefault:"10000"`
	LogLevel            string `env:"LOG_LEVEL"`
}

// Worker holds configuration for the enrichment worker Lambda.
type Worker struct {
	Environment         string `env:"ENVIRONMENT" envDefault:"dev"`
	RecommendationTable string `env:"RECOMMENDATIONS_TABLE,required"`
	ParamPrefix         string `env:"PARAM_PREFIX,required"`
	Model               string `env:"INFERENCE_MODEL" envDefault:"gpt-4o-mini"`
	MaxOutputTokens     int    `env:"INFERENCE_MAX_TOKENS" envDefault:"1024"`
	LogLevel            string `env:"LOG_LEVEL"`
}

// LoadAPI reads API configuration from the environment.
func LoadAPI() (API, error) {
	var cfg API
	if err := env.Parse(&cfg); err != nil {
		return API{}, fmt.Errorf("config: parse api config: %w", err)
	}
	if _, err := ForEnvironment(cfg.Environment); err != nil {
		return API{}, err
	}
	return cfg, nil
}

// LoadWorker reads worker configuration from the environment.
func LoadWorker() (Worker, error) {
	var cfg Worker
	if err := env.Parse(&cfg); err != nil {
		return Worker{}, fmt.Errorf("config: parse worker config: %w", err)
	}
	if _, err := ForEnvironment(cfg.Environment); err != nil {
		return Worker{}, err
	}
	return cfg, nil
}

// ParseLogLevel maps a level name to a slog.Level, defaulting to Info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
