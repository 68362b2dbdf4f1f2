package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// IdentityConfig configures the identity service.
type IdentityConfig struct {
	Port           string
	SessionTTL     time.Duration
	CookieName     string
	CookieSecure   bool
	CookieSameSite string
	// CredentialsFile is a YAML identity list; empty seeds the demo accounts.
	CredentialsFile string
	StoreBackend    string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	AllowedOrigins  []string
	// LoginRatePerMinute bounds login attempts per client IP.
	LoginRatePerMinute int
	// InternalAuthSecret, when set, guards /validate.
	InternalAuthSecret   string
	BackendTokenSecret   string
	BackendTokenIssuer   string
	BackendTokenAudience string
	BackendTokenTTL      time.Duration
}

// LoadIdentity reads the identity service configuration from the environment.
func LoadIdentity() (*IdentityConfig, error) {
	cfg := &IdentityConfig{
		Port:                 getEnv("PORT", "4000"),
		CookieName:           getEnv("COOKIE_NAME", "jsession"),
		CookieSameSite:       getEnv("COOKIE_SAMESITE", "Lax"),
		CredentialsFile:      getEnv("CREDENTIALS_FILE", ""),
		StoreBackend:         strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		AllowedOrigins:       splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3001")),
		InternalAuthSecret:   getEnv("INTERNAL_AUTH_SECRET", ""),
		BackendTokenSecret:   getEnv("BACKEND_TOKEN_SECRET", ""),
		BackendTokenIssuer:   getEnv("BACKEND_TOKEN_ISSUER", "identity-service"),
		BackendTokenAudience: getEnv("BACKEND_TOKEN_AUDIENCE", "library-service"),
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.BackendTokenTTL, err = getDuration("BACKEND_TOKEN_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CookieSecure, err = getBool("COOKIE_SECURE", false); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.LoginRatePerMinute, err = getInt("LOGIN_RATE_PER_MINUTE", 10); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *IdentityConfig) Validate() error {
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.CookieName == "" {
		return errors.New("COOKIE_NAME cannot be empty")
	}

	switch strings.ToLower(c.CookieSameSite) {
	case "lax", "strict":
	case "none":
		if !c.CookieSecure {
			return errors.New("COOKIE_SAMESITE=None requires COOKIE_SECURE=true")
		}
	default:
		return fmt.Errorf("invalid COOKIE_SAMESITE %q", c.CookieSameSite)
	}

	switch c.StoreBackend {
	case StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.LoginRatePerMinute <= 0 {
		return errors.New("LOGIN_RATE_PER_MINUTE must be positive")
	}
	if c.BackendTokenSecret != "" && c.BackendTokenTTL <= 0 {
		return errors.New("BACKEND_TOKEN_TTL must be positive")
	}
	return validateOrigins(c.AllowedOrigins)
}
