// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr         string
	DBPath             string
	RedisAddr          string
	GitHubClientID     string
	GitHubClientSecret string
	OAuthRedirectURL   string
	SessionSecret      string
	SessionTTL         time.Duration
}

// HasRedis returns true when a Redis address is configured. Without one the
// change feed runs in-process, which is fine for a single instance.
func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// Required: LINKDECK_GITHUB_CLIENT_ID, LINKDECK_GITHUB_CLIENT_SECRET,
// LINKDECK_SESSION_SECRET (at least 32 bytes). Optional variables with defaults:
// LINKDECK_LISTEN_ADDR (127.0.0.1:8080), LINKDECK_DB_PATH (linkdeck.db),
// LINKDECK_OAUTH_REDIRECT_URL (http://<listen_addr>/auth/callback),
// LINKDECK_SESSION_TTL (168h), LINKDECK_REDIS_ADDR (empty: in-process feed).
func Load() (*Config, error) {
	clientID := os.Getenv("LINKDECK_GITHUB_CLIENT_ID")
	if clientID == "" {
		return nil, fmt.Errorf("LINKDECK_GITHUB_CLIENT_ID is required")
	}

	clientSecret := os.Getenv("LINKDECK_GITHUB_CLIENT_SECRET")
	if clientSecret == "" {
		return nil, fmt.Errorf("LINKDECK_GITHUB_CLIENT_SECRET is required")
	}

	sessionSecret := os.Getenv("LINKDECK_SESSION_SECRET")
	if len(sessionSecret) < 32 {
		return nil, fmt.Errorf("LINKDECK_SESSION_SECRET is required and must be at least 32 bytes")
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("LINKDECK_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "linkdeck.db"
	if v, ok := os.LookupEnv("LINKDECK_DB_PATH"); ok {
		dbPath = v
	}

	redirectURL := "http://" + listenAddr + "/auth/callback"
	if v, ok := os.LookupEnv("LINKDECK_OAUTH_REDIRECT_URL"); ok {
		redirectURL = v
	}

	sessionTTL := 168 * time.Hour
	if v, ok := os.LookupEnv("LINKDECK_SESSION_TTL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("LINKDECK_SESSION_TTL has invalid duration %q: %w", v, err)
		}
		sessionTTL = parsed
	}

	return &Config{
		ListenAddr:         listenAddr,
		DBPath:             dbPath,
		RedisAddr:          os.Getenv("LINKDECK_REDIS_ADDR"),
		GitHubClientID:     clientID,
		GitHubClientSecret: clientSecret,
		OAuthRedirectURL:   redirectURL,
		SessionSecret:      sessionSecret,
		SessionTTL:         sessionTTL,
	}, nil
}
