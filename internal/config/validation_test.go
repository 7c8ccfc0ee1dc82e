package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }, "api.base_url"},
		{"ftp base url", func(c *Config) { c.API.BaseURL = "ftp://example.com" }, "api.base_url"},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, "api.timeout"},
		{"too many attempts", func(c *Config) { c.Retry.MaxAttempts = 11 }, "retry.max_attempts"},
		{"shrinking backoff", func(c *Config) { c.Retry.BackoffFactor = 0.5 }, "retry.backoff_factor"},
		{"negative rate", func(c *Config) { c.RateLimit.RequestsPerSecond = -1 }, "rate_limit.requests_per_second"},
		{"check slower than timeout", func(c *Config) {
			c.Session.InactivityTimeout = time.Minute
			c.Session.ActivityCheckInterval = time.Hour
		}, "session.activity_check_interval"},
		{"port out of range", func(c *Config) { c.OAuth.CallbackPort = 70000 }, "oauth.callback_port"},
		{"empty storage dir", func(c *Config) { c.Storage.Dir = " " }, "storage.dir"},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"log level is case insensitive", func(c *Config) { c.LogLevel = "DEBUG" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig("/tmp/state")
			tt.mutate(&cfg)

			err := Validate(cfg)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var errs ValidationErrors
			require.ErrorAs(t, err, &errs)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.False(t, errs.HasErrors())
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("a", "is bad")
	assert.Equal(t, "field 'a': is bad", errs.Error())

	errs.Add("b", "is worse", 3)
	assert.Equal(t, "validation failed: field 'a': is bad; field 'b': is worse", errs.Error())
	assert.Equal(t, 3, errs[1].Value)
}
