package config

import (
	"time"

	"golang.org/x/time/rate"

	"arenacli/internal/retry"
	"arenacli/internal/session"
)

// Config is the top-level configuration of the arena client.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Retry     RetryConfig     `yaml:"retry"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Session   SessionConfig   `yaml:"session"`
	OAuth     OAuthConfig     `yaml:"oauth"`
	Storage   StorageConfig   `yaml:"storage"`
	LogLevel  string          `yaml:"log_level"`
}

// APIConfig locates the backend.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent,omitempty"`
}

// RetryConfig is the retry policy applied to idempotent calls.
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	Delay         time.Duration `yaml:"delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

// Policy converts the config into a retry.Policy.
func (c RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:   c.MaxAttempts,
		Delay:         c.Delay,
		BackoffFactor: c.BackoffFactor,
	}.WithDefaults()
}

// RateLimitConfig paces outgoing requests. A zero rate disables pacing.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Limiter returns nil when pacing is disabled.
func (c RateLimitConfig) Limiter() *rate.Limiter {
	if c.RequestsPerSecond <= 0 {
		return nil
	}
	burst := c.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.RequestsPerSecond), burst)
}

// SessionConfig holds the session timers.
type SessionConfig struct {
	InactivityTimeout     time.Duration `yaml:"inactivity_timeout"`
	RevalidateInterval    time.Duration `yaml:"revalidate_interval"`
	ActivityCheckInterval time.Duration `yaml:"activity_check_interval"`
}

// Options converts the config into session.Options.
func (c SessionConfig) Options() session.Options {
	return session.Options{
		InactivityTimeout:     c.InactivityTimeout,
		RevalidateInterval:    c.RevalidateInterval,
		ActivityCheckInterval: c.ActivityCheckInterval,
	}
}

// OAuthConfig configures the Discord sign-in flow.
type OAuthConfig struct {
	CallbackPort int           `yaml:"callback_port"`
	Cooldown     time.Duration `yaml:"cooldown"`
	ClientID     string        `yaml:"client_id,omitempty"`
}

// StorageConfig locates the persisted session state.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}
