package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAPI(t *testing.T) {
	t.Setenv("RECOMMENDATIONS_TABLE", "recommendations")
	t.Setenv("FEEDBACK_TOPIC_ARN", "arn:aws:sns:eu-west-1:1:feedback")

	cfg, err := LoadAPI()
	require.NoError(t, err)
	require.Equal(t, "dev", cfg.Environment)
	require.Equal(t, "recommendations", cfg.RecommendationTable)
	require.Equal(t, 10000, cfg.MaxFeedbackLength)
}

func TestLoadAPI_MissingRequired(t *testing.T) {
	t.Setenv("RECOMMENDATIONS_TABLE", "")
	t.Setenv("FEEDBACK_TOPIC_ARN", "")

	_, err := LoadAPI()
	require.Error(t, err)
}

func TestLoadAPI_RejectsUnknownEnvironment(t *testing.T) {
	t.Setenv("RECOMMENDATIONS_TABLE", "recommendations")
	t.Setenv("FEEDBACK_TOPIC_ARN", "arn")
	t.Setenv("ENVIRONMENT", "qa")

	_, err := LoadAPI()
	require.ErrorContains(t, err, "unrecognized environment")
}

func TestLoadWorker(t *testing.T) {
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("RECOMMENDATIONS_TABLE", "recommendations")
	t.Setenv("PARAM_PREFIX", "/feedback/prod")
	t.Setenv("INFERENCE_MODEL", "gpt-4o")

	cfg, err := LoadWorker()
	require.NoError(t, err)
	require.Equal(t, "gpt-4o", cfg.Model)
	require.Equal(t, 1024, cfg.MaxOutputTokens)
}

func TestForEnvironment(t *testing.T) {
	for _, tag := range []string{"dev", "staging", "prod"} {
		s, err := ForEnvironment(tag)
		require.NoError(t, err)
		require.NotEmpty(t, s.AllowedOrigin)
		require.Positive(t, s.ThrottleRate)
	}

	_, err := ForEnvironment("qa")
	require.Error(t, err)

	prod, err := ForEnvironment("prod")
	require.NoError(t, err)
	require.False(t, prod.DebugErrors)
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLogLevel("debug"))
	require.Equal(t, slog.LevelWarn, ParseLogLevel("WARNING"))
	require.Equal(t, slog.LevelError, ParseLogLevel(" error "))
	require.Equal(t, slog.LevelInfo, ParseLogLevel("bogus"))
	require.Equal(t, slog.LevelInfo, ParseLogLevel(""))
}
