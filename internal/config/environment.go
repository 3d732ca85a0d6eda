package config

import (
	"fmt"
	"log/slog"
)

// Settings is the per-environment record: CORS origin, log verbosity and
// throttle limits applied at the API front door.
type Settings struct {
	AllowedOrigin string
	LogLevel      slog.Level
	DebugErrors   bool
	ThrottleRate  int
	ThrottleBurst int
}

// environments is the closed set of recognized deployment tags. Anything
// outside this map is a startup error, not a fallback.
var environments = map[string]Settings{
	"dev": {
		AllowedOrigin: "*",
		LogLevel:      slog.LevelDebug,
		DebugErrors:   true,
		ThrottleRate:  50,
		ThrottleBurst: 100,
	},
	"staging": {
		AllowedOrigin: "https://staging.feedback.example.com",
		LogLevel:      slog.LevelInfo,
		DebugErrors:   true,
		ThrottleRate:  100,
		ThrottleBurst: 200,
	},
	"prod": {
		AllowedOrigin: "https://feedback.example.com",
		LogLevel:      slog.LevelInfo,
		DebugErrors:   false,
		ThrottleRate:  500,
		ThrottleBurst: 1000,
	},
}

// ForEnvironment returns the settings for a deployment tag.
func ForEnvironment(tag string) (Settings, error) {
	s, ok := environments[tag]
	if !ok {
		return Settings{}, fmt.Errorf("config: unrecognized environment %q", tag)
	}
	return s, nil
}
