package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError is a single invalid field.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors collects every invalid field.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}
	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{Field: field, Value: val, Message: message})
}

// ValidateOneOf checks that value is one of allowed.
func ValidateOneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks a fully merged Config.
func Validate(c Config) error {
	var errs ValidationErrors

	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs.Add("api.base_url", "must be an absolute http or https URL", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		errs.Add("api.timeout", "must be positive", c.API.Timeout)
	}

	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
		errs.Add("retry.max_attempts", "must be between 1 and 10", c.Retry.MaxAttempts)
	}
	if c.Retry.Delay < 0 {
		errs.Add("retry.delay", "must not be negative", c.Retry.Delay)
	}
	if c.Retry.BackoffFactor < 1 {
		errs.Add("retry.backoff_factor", "must be at least 1", c.Retry.BackoffFactor)
	}

	if c.RateLimit.RequestsPerSecond < 0 {
		errs.Add("rate_limit.requests_per_second", "must not be negative", c.RateLimit.RequestsPerSecond)
	}
	if c.RateLimit.Burst < 0 {
		errs.Add("rate_limit.burst", "must not be negative", c.RateLimit.Burst)
	}

	if c.Session.InactivityTimeout <= 0 {
		errs.Add("session.inactivity_timeout", "must be positive", c.Session.InactivityTimeout)
	}
	if c.Session.RevalidateInterval <= 0 {
		errs.Add("session.revalidate_interval", "must be positive", c.Session.RevalidateInterval)
	}
	if c.Session.ActivityCheckInterval <= 0 {
		errs.Add("session.activity_check_interval", "must be positive", c.Session.ActivityCheckInterval)
	} else if c.Session.ActivityCheckInterval > c.Session.InactivityTimeout {
		errs.Add("session.activity_check_interval", "must not exceed session.inactivity_timeout", c.Session.ActivityCheckInterval)
	}

	if c.OAuth.CallbackPort < 0 || c.OAuth.CallbackPort > 65535 {
		errs.Add("oauth.callback_port", "must be between 0 and 65535", c.OAuth.CallbackPort)
	}
	if c.OAuth.Cooldown < 0 {
		errs.Add("oauth.cooldown", "must not be negative", c.OAuth.Cooldown)
	}

	if strings.TrimSpace(c.Storage.Dir) == "" {
		errs.Add("storage.dir", "is required")
	}

	if err := ValidateOneOf("log_level", strings.ToLower(c.LogLevel), logLevels); err != nil {
		errs = append(errs, err.(ValidationError))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
