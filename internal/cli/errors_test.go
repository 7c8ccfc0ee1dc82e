package cli

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arenacli/internal/apierror"
	"arenacli/internal/config"
	"arenacli/internal/oauth"
	"arenacli/internal/session"
)

const testEndpoint = "https://api.example.test/api/"

func TestAuthErrors_Guidance(t *testing.T) {
	required := (&AuthRequiredError{Endpoint: testEndpoint}).Error()
	assert.Contains(t, required, testEndpoint)
	assert.Contains(t, required, "arena auth login")
	assert.Contains(t, required, "arena auth status")

	expired := (&AuthExpiredError{Endpoint: testEndpoint, Reason: session.ReasonInactivity}).Error()
	assert.Contains(t, expired, "has expired (inactivity)")
	assert.Contains(t, expired, "arena auth login")

	noReason := (&AuthExpiredError{Endpoint: testEndpoint}).Error()
	assert.NotContains(t, noReason, "()")

	failed := &AuthFailedError{Endpoint: testEndpoint, Reason: errors.New("boom")}
	assert.Contains(t, failed.Error(), "boom")
	assert.Contains(t, failed.Error(), "arena auth login")
}

func TestAuthErrors_Is(t *testing.T) {
	wrapped := fmt.Errorf("wrapped: %w", &AuthRequiredError{Endpoint: "a"})
	assert.True(t, errors.Is(wrapped, &AuthRequiredError{}))
	assert.False(t, errors.Is(wrapped, &AuthExpiredError{}))

	expired := fmt.Errorf("wrapped: %w", &AuthExpiredError{Endpoint: "a"})
	assert.True(t, errors.Is(expired, &AuthExpiredError{}))

	cause := errors.New("cause")
	failed := fmt.Errorf("wrapped: %w", &AuthFailedError{Endpoint: "a", Reason: cause})
	assert.True(t, errors.Is(failed, &AuthFailedError{}))
	assert.True(t, errors.Is(failed, cause))
}

func TestClassifyConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ConnectionErrorType
	}{
		{"tls unknown authority", &x509.UnknownAuthorityError{}, ConnectionErrorTLS},
		{"tls by message", errors.New("remote error: tls: handshake failure"), ConnectionErrorTLS},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.example.test"}, ConnectionErrorDNS},
		{"deadline", context.DeadlineExceeded, ConnectionErrorTimeout},
		{"timeout by message", errors.New("i/o timeout"), ConnectionErrorTimeout},
		{"refused", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), ConnectionErrorNetwork},
		{"unknown", errors.New("something odd"), ConnectionErrorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyConnectionError(tt.err, testEndpoint)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, testEndpoint, got.Endpoint)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.Nil(t, ClassifyConnectionError(nil, testEndpoint))
}

func TestConnectionErrorType_String(t *testing.T) {
	assert.Equal(t, "TLS certificate error", ConnectionErrorTLS.String())
	assert.Equal(t, "Network error", ConnectionErrorNetwork.String())
	assert.Equal(t, "Connection timeout", ConnectionErrorTimeout.String())
	assert.Equal(t, "DNS resolution error", ConnectionErrorDNS.String())
	assert.Equal(t, "Connection error", ConnectionErrorUnknown.String())
}

func TestTranslate(t *testing.T) {
	assert.Nil(t, Translate(nil, testEndpoint))

	t.Run("auth required", func(t *testing.T) {
		err := Translate(apierror.New(apierror.AuthRequired, http.StatusUnauthorized, "no", nil), testEndpoint)
		var target *AuthRequiredError
		assert.ErrorAs(t, err, &target)
	})

	t.Run("no session", func(t *testing.T) {
		err := Translate(fmt.Errorf("token: %w", session.ErrNoSession), testEndpoint)
		var target *AuthRequiredError
		assert.ErrorAs(t, err, &target)
	})

	t.Run("session expired keeps the reason", func(t *testing.T) {
		err := Translate(apierror.Expired(string(session.ReasonInactivity)), testEndpoint)
		var target *AuthExpiredError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, session.ReasonInactivity, target.Reason)
	})

	t.Run("flow error", func(t *testing.T) {
		flowErr := &oauth.FlowError{Reason: oauth.ReasonStateMismatch}
		err := Translate(flowErr, testEndpoint)
		var target *AuthFailedError
		require.ErrorAs(t, err, &target)
		assert.ErrorIs(t, err, oauth.ErrStateMismatch)
	})

	t.Run("discord oauth error", func(t *testing.T) {
		err := Translate(apierror.New(apierror.DiscordOAuthError, http.StatusBadGateway, "bad", nil), testEndpoint)
		var target *AuthFailedError
		assert.ErrorAs(t, err, &target)
	})

	t.Run("network error", func(t *testing.T) {
		cause := errors.New("dial tcp 10.0.0.1:443: connect: connection refused")
		err := Translate(apierror.Network(cause), testEndpoint)
		var target *ConnectionError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, ConnectionErrorNetwork, target.Type)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("other api errors pass through", func(t *testing.T) {
		orig := apierror.New(apierror.NotFound, http.StatusNotFound, "gone", nil)
		assert.Same(t, orig, Translate(orig, testEndpoint))
	})

	t.Run("plain errors pass through", func(t *testing.T) {
		orig := errors.New("plain")
		assert.Equal(t, orig, Translate(orig, testEndpoint))
	})
}

func TestDescribe(t *testing.T) {
	assert.Empty(t, Describe(nil))

	single := apierror.New(apierror.ValidationError, http.StatusBadRequest, "Invalid post",
		map[string]string{"title": "Title required"})
	assert.Equal(t, "Title required", Describe(single))

	multi := apierror.New(apierror.ValidationError, http.StatusBadRequest, "Invalid post",
		map[string]string{"title": "Title required", "content": "Content or media required"})
	desc := Describe(multi)
	assert.Contains(t, desc, "\n  content: Content or media required")
	assert.Contains(t, desc, "\n  title: Title required")

	assert.Equal(t, "This chat room is full.",
		Describe(apierror.New(apierror.ChatRoomFull, http.StatusConflict, "full", nil)))

	required := &AuthRequiredError{Endpoint: testEndpoint}
	assert.Equal(t, required.Error(), Describe(fmt.Errorf("x: %w", required)))

	assert.Equal(t, "plain", Describe(errors.New("plain")))

	cfgErr := config.NewConfigurationError("/home/ace/.config/arena/config.yaml", "parse", "malformed YAML", "line 3: mapping values are not allowed")
	desc = Describe(fmt.Errorf("load: %w", cfgErr))
	assert.Contains(t, desc, "Configuration error in config.yaml")
	assert.Contains(t, desc, "  Type: parse")
	assert.Contains(t, desc, "  Details: line 3")
}
