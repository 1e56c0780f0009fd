/*
Package configs is responsible for loading and parsing the application's
configuration settings.

It reads server parameters from operating system environment variables:
the running environment, listen port, CORS allowed origins, the Gemini API
credentials, and optional game timing overrides.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AppConfig contains all configuration parameters required to run.
// Every value is loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// Text-Generation Provider Settings
	GeminiAPIKey string
	GeminiModel  string

	// Game Timing Overrides (seconds; 0 means use the built-in default)
	GameDurationSeconds    int
	GenerateTimeoutSeconds int
}

// LoadConfig reads and parses the application configuration from environment
// variables, applying defaults and validating where needed.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		for _, origin := range strings.Split(originsStr, ",") {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	// --- Text-Generation Provider Settings ---
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" && cfg.Environment != "development" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required in %s environment", cfg.Environment)
	}

	cfg.GeminiModel = os.Getenv("GEMINI_MODEL")

	// --- Game Timing Overrides ---
	cfg.GameDurationSeconds, err = optionalSeconds("GAME_DURATION_SECONDS")
	if err != nil {
		return nil, err
	}

	cfg.GenerateTimeoutSeconds, err = optionalSeconds("GENERATE_TIMEOUT_SECONDS")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// optionalSeconds parses an optional positive integer environment variable.
// Unset returns 0, meaning "use the default".
func optionalSeconds(name string) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s environment variable: %q", name, raw)
	}

	return v, nil
}
