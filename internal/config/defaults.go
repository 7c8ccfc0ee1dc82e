package config

import (
	"arenacli/internal/httpclient"
	"arenacli/internal/oauth"
	"arenacli/internal/retry"
	"arenacli/internal/session"
)

const (
	// DefaultBaseURL is used when neither config nor environment set one.
	DefaultBaseURL = "https://api.arenahub.gg/api"

	// EnvBaseURL overrides api.base_url.
	EnvBaseURL = "ARENA_API_URL"

	DefaultRequestsPerSecond = 10
	DefaultBurst             = 20
	DefaultLogLevel          = "info"

	stateDirName = "state"
)

// GetDefaultConfig returns the built-in configuration. storageDir is the
// directory the session state goes to.
func GetDefaultConfig(storageDir string) Config {
	return Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: httpclient.DefaultTimeout,
		},
		Retry: RetryConfig{
			MaxAttempts:   retry.DefaultMaxAttempts,
			Delay:         retry.DefaultDelay,
			BackoffFactor: retry.DefaultBackoffFactor,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultBurst,
		},
		Session: SessionConfig{
			InactivityTimeout:     session.DefaultInactivityTimeout,
			RevalidateInterval:    session.DefaultRevalidateInterval,
			ActivityCheckInterval: session.DefaultActivityCheckInterval,
		},
		OAuth: OAuthConfig{
			CallbackPort: oauth.DefaultCallbackPort,
			Cooldown:     oauth.DefaultCooldown,
			ClientID:     oauth.DefaultClientID,
		},
		Storage: StorageConfig{
			Dir: storageDir,
		},
		LogLevel: DefaultLogLevel,
	}
}
