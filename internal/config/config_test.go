package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"

// allConfigKeys lists every LINKDECK_ env var that Load() reads.
var allConfigKeys = []string{
	"LINKDECK_LISTEN_ADDR",
	"LINKDECK_DB_PATH",
	"LINKDECK_REDIS_ADDR",
	"LINKDECK_GITHUB_CLIENT_ID",
	"LINKDECK_GITHUB_CLIENT_SECRET",
	"LINKDECK_OAUTH_REDIRECT_URL",
	"LINKDECK_SESSION_SECRET",
	"LINKDECK_SESSION_TTL",
}

// isolateConfigEnv saves and unsets all LINKDECK_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func setRequired(t *testing.T) {
	t.Setenv("LINKDECK_GITHUB_CLIENT_ID", "client-id")
	t.Setenv("LINKDECK_GITHUB_CLIENT_SECRET", "client-secret")
	t.Setenv("LINKDECK_SESSION_SECRET", testSecret)
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("LINKDECK_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("LINKDECK_DB_PATH", "/tmp/test.db")
	t.Setenv("LINKDECK_REDIS_ADDR", "localhost:6379")
	t.Setenv("LINKDECK_OAUTH_REDIRECT_URL", "https://links.example.com/auth/callback")
	t.Setenv("LINKDECK_SESSION_TTL", "24h")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.True(t, cfg.HasRedis())
	assert.Equal(t, "client-id", cfg.GitHubClientID)
	assert.Equal(t, "client-secret", cfg.GitHubClientSecret)
	assert.Equal(t, "https://links.example.com/auth/callback", cfg.OAuthRedirectURL)
	assert.Equal(t, testSecret, cfg.SessionSecret)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "linkdeck.db", cfg.DBPath)
	assert.Equal(t, "", cfg.RedisAddr)
	assert.False(t, cfg.HasRedis())
	assert.Equal(t, "http://127.0.0.1:8080/auth/callback", cfg.OAuthRedirectURL)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
}

func TestLoad_RedirectURLTracksListenAddr(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("LINKDECK_LISTEN_ADDR", "0.0.0.0:3000")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "http://0.0.0.0:3000/auth/callback", cfg.OAuthRedirectURL)
}

func TestLoad_MissingClientID(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("LINKDECK_GITHUB_CLIENT_SECRET", "client-secret")
	t.Setenv("LINKDECK_SESSION_SECRET", testSecret)

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LINKDECK_GITHUB_CLIENT_ID")
}

func TestLoad_MissingClientSecret(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("LINKDECK_GITHUB_CLIENT_ID", "client-id")
	t.Setenv("LINKDECK_SESSION_SECRET", testSecret)

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LINKDECK_GITHUB_CLIENT_SECRET")
}

func TestLoad_MissingSessionSecret(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("LINKDECK_GITHUB_CLIENT_ID", "client-id")
	t.Setenv("LINKDECK_GITHUB_CLIENT_SECRET", "client-secret")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LINKDECK_SESSION_SECRET")
}

func TestLoad_SessionSecretTooShort(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("LINKDECK_GITHUB_CLIENT_ID", "client-id")
	t.Setenv("LINKDECK_GITHUB_CLIENT_SECRET", "client-secret")
	t.Setenv("LINKDECK_SESSION_SECRET", "deadbeef")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LINKDECK_SESSION_SECRET")
}

func TestLoad_InvalidSessionTTL(t *testing.T) {
	isolateConfigEnv(t)
	setRequired(t)
	t.Setenv("LINKDECK_SESSION_TTL", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LINKDECK_SESSION_TTL")
}
