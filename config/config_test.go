package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var identityEnvKeys = []string{
	"PORT", "SESSION_TTL", "COOKIE_NAME", "COOKIE_SECURE", "COOKIE_SAMESITE",
	"CREDENTIALS_FILE", "STORE_BACKEND", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"ALLOWED_ORIGINS", "LOGIN_RATE_PER_MINUTE", "INTERNAL_AUTH_SECRET",
	"BACKEND_TOKEN_SECRET", "BACKEND_TOKEN_ISSUER", "BACKEND_TOKEN_AUDIENCE", "BACKEND_TOKEN_TTL",
	"IDENTITY_SERVICE_URL", "UPSTREAM_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range identityEnvKeys {
		t.Setenv(key, "")
		t.Setenv(key+"_FILE", "")
	}
}

func TestLoadIdentity(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		check       func(t *testing.T, cfg *IdentityConfig)
		errContains string
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg *IdentityConfig) {
				assert.Equal(t, "4000", cfg.Port)
				assert.Equal(t, time.Hour, cfg.SessionTTL)
				assert.Equal(t, "jsession", cfg.CookieName)
				assert.Equal(t, "Lax", cfg.CookieSameSite)
				assert.False(t, cfg.CookieSecure)
				assert.Equal(t, StoreMemory, cfg.StoreBackend)
				assert.Equal(t, []string{"http://localhost:3001"}, cfg.AllowedOrigins)
				assert.Equal(t, 10, cfg.LoginRatePerMinute)
				assert.Equal(t, "identity-service", cfg.BackendTokenIssuer)
				assert.Equal(t, "library-service", cfg.BackendTokenAudience)
				assert.Equal(t, 5*time.Minute, cfg.BackendTokenTTL)
			},
		},
		{
			name: "custom values",
			env: map[string]string{
				"PORT":            "9000",
				"SESSION_TTL":     "30m",
				"COOKIE_SECURE":   "true",
				"COOKIE_SAMESITE": "None",
				"STORE_BACKEND":   "Redis",
				"REDIS_ADDR":      "redis:6379",
				"REDIS_DB":        "2",
				"ALLOWED_ORIGINS": "http://localhost:3000, https://library.example.com",
			},
			check: func(t *testing.T, cfg *IdentityConfig) {
				assert.Equal(t, "9000", cfg.Port)
				assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
				assert.True(t, cfg.CookieSecure)
				assert.Equal(t, StoreRedis, cfg.StoreBackend)
				assert.Equal(t, 2, cfg.RedisDB)
				assert.Equal(t, []string{"http://localhost:3000", "https://library.example.com"}, cfg.AllowedOrigins)
			},
		},
		{
			name:        "invalid session ttl",
			env:         map[string]string{"SESSION_TTL": "forever"},
			errContains: "invalid SESSION_TTL",
		},
		{
			name:        "negative session ttl",
			env:         map[string]string{"SESSION_TTL": "-5m"},
			errContains: "SESSION_TTL must be positive",
		},
		{
			name:        "invalid backend token ttl",
			env:         map[string]string{"BACKEND_TOKEN_TTL": "5 minutes"},
			errContains: "invalid BACKEND_TOKEN_TTL",
		},
		{
			name:        "wildcard origin rejected",
			env:         map[string]string{"ALLOWED_ORIGINS": "*"},
			errContains: "explicit origins",
		},
		{
			name:        "wildcard subdomain rejected",
			env:         map[string]string{"ALLOWED_ORIGINS": "https://*.example.com"},
			errContains: "explicit origins",
		},
		{
			name:        "origin without scheme rejected",
			env:         map[string]string{"ALLOWED_ORIGINS": "localhost:3000"},
			errContains: "is not an origin",
		},
		{
			name:        "samesite none requires secure",
			env:         map[string]string{"COOKIE_SAMESITE": "None"},
			errContains: "requires COOKIE_SECURE",
		},
		{
			name:        "unknown samesite",
			env:         map[string]string{"COOKIE_SAMESITE": "Loose"},
			errContains: "invalid COOKIE_SAMESITE",
		},
		{
			name:        "unknown store backend",
			env:         map[string]string{"STORE_BACKEND": "postgres"},
			errContains: "unknown STORE_BACKEND",
		},
		{
			name:        "invalid cookie secure",
			env:         map[string]string{"COOKIE_SECURE": "maybe"},
			errContains: "invalid COOKIE_SECURE",
		},
		{
			name:        "invalid redis db",
			env:         map[string]string{"REDIS_DB": "zero"},
			errContains: "invalid REDIS_DB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadIdentity()
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadIdentity_FileSecrets(t *testing.T) {
	clearEnv(t)

	secretFile := filepath.Join(t.TempDir(), "backend_token_secret")
	require.NoError(t, os.WriteFile(secretFile, []byte("file-secret-0123456789abcdefghijklmnop\n"), 0o600))
	t.Setenv("BACKEND_TOKEN_SECRET", "env-secret-should-be-ignored")
	t.Setenv("BACKEND_TOKEN_SECRET_FILE", secretFile)

	cfg, err := LoadIdentity()
	require.NoError(t, err)
	assert.Equal(t, "file-secret-0123456789abcdefghijklmnop", cfg.BackendTokenSecret)
}

func TestLoadIdentity_MissingFileFallsBackToEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_PASSWORD", "from-env")
	t.Setenv("REDIS_PASSWORD_FILE", filepath.Join(t.TempDir(), "missing"))

	cfg, err := LoadIdentity()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.RedisPassword)
}

func TestLoadRelay(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		check       func(t *testing.T, cfg *RelayConfig)
		errContains string
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg *RelayConfig) {
				assert.Equal(t, "3001", cfg.Port)
				assert.Equal(t, "http://localhost:4000", cfg.IdentityServiceURL)
				assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
				assert.Empty(t, cfg.AllowedOrigins)
			},
		},
		{
			name: "trailing slash trimmed",
			env:  map[string]string{"IDENTITY_SERVICE_URL": "http://identity:4000/"},
			check: func(t *testing.T, cfg *RelayConfig) {
				assert.Equal(t, "http://identity:4000", cfg.IdentityServiceURL)
			},
		},
		{
			name:        "relative upstream rejected",
			env:         map[string]string{"IDENTITY_SERVICE_URL": "identity:4000"},
			errContains: "IDENTITY_SERVICE_URL",
		},
		{
			name:        "invalid timeout",
			env:         map[string]string{"UPSTREAM_TIMEOUT": "soon"},
			errContains: "invalid UPSTREAM_TIMEOUT",
		},
		{
			name:        "zero timeout",
			env:         map[string]string{"UPSTREAM_TIMEOUT": "0s"},
			errContains: "UPSTREAM_TIMEOUT must be positive",
		},
		{
			name:        "wildcard origin rejected",
			env:         map[string]string{"ALLOWED_ORIGINS": "http://localhost:3000,*"},
			errContains: "explicit origins",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadRelay()
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("COOKIE_NAME=dotenv_session\n"), 0o600))
	t.Chdir(dir)
	// godotenv never overrides a variable that exists, even when empty.
	require.NoError(t, os.Unsetenv("COOKIE_NAME"))

	require.NoError(t, LoadDotEnv())

	cfg, err := LoadIdentity()
	require.NoError(t, err)
	assert.Equal(t, "dotenv_session", cfg.CookieName)
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.NoError(t, LoadDotEnv())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList(""))
}
