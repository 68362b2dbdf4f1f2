package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// RelayConfig configures the edge relay.
type RelayConfig struct {
	Port               string
	IdentityServiceURL string
	UpstreamTimeout    time.Duration
	AllowedOrigins     []string
}

// LoadRelay reads the edge relay configuration from the environment.
func LoadRelay() (*RelayConfig, error) {
	cfg := &RelayConfig{
		Port:               getEnv("PORT", "3001"),
		IdentityServiceURL: strings.TrimRight(getEnv("IDENTITY_SERVICE_URL", "http://localhost:4000"), "/"),
		AllowedOrigins:     splitList(getEnv("ALLOWED_ORIGINS", "")),
	}

	var err error
	if cfg.UpstreamTimeout, err = getDuration("UPSTREAM_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the relay cannot run with.
func (c *RelayConfig) Validate() error {
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	u, err := url.Parse(c.IdentityServiceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("IDENTITY_SERVICE_URL %q must be an absolute http(s) URL", c.IdentityServiceURL)
	}
	if c.UpstreamTimeout <= 0 {
		return errors.New("UPSTREAM_TIMEOUT must be positive")
	}
	return validateOrigins(c.AllowedOrigins)
}
