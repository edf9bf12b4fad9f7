// Package config centralises configuration parsing for the Life-Planner client.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config captures runtime configuration values for the client.
type Config struct {
	APIBaseURL      string
	HTTPTimeout     time.Duration
	TokenPath       string        // Durable store for the credential pair.
	RefreshInterval time.Duration // Background renewal tick.
	ActivityWindow  time.Duration // Trailing window in which user input counts as activity.
	SearchDebounce  time.Duration // Trailing-edge debounce for filter input.
	Locale          string        // BCP 47 tag used for name collation.
	ExerciseLimit   int           // Default page size for exercise listings.
}

// Load reads environment variables into Config, applying sensible defaults.
func Load() Config {
	return Config{
		APIBaseURL:      getEnv("LIFEPLANNER_API_URL", "http://localhost:8000"),
		HTTPTimeout:     getDurationEnv("LIFEPLANNER_HTTP_TIMEOUT", 10*time.Second),
		TokenPath:       getEnv("LIFEPLANNER_TOKEN_PATH", defaultTokenPath()),
		RefreshInterval: getDurationEnv("LIFEPLANNER_REFRESH_INTERVAL", 4*time.Minute),
		ActivityWindow:  getDurationEnv("LIFEPLANNER_ACTIVITY_WINDOW", 5*time.Minute),
		SearchDebounce:  getDurationEnv("LIFEPLANNER_SEARCH_DEBOUNCE", 300*time.Millisecond),
		Locale:          getEnv("LIFEPLANNER_LOCALE", "fr"),
		ExerciseLimit:   getIntEnv("LIFEPLANNER_EXERCISE_LIMIT", 100),
	}
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "lifeplanner", "tokens.json")
	}
	return filepath.Join(home, ".lifeplanner", "tokens.json")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
