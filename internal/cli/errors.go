package cli

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"

	"arenacli/internal/apierror"
	"arenacli/internal/config"
	"arenacli/internal/oauth"
	"arenacli/internal/session"
)

// ConnectionErrorType categorizes why the API could not be reached.
type ConnectionErrorType int

const (
	ConnectionErrorUnknown ConnectionErrorType = iota
	ConnectionErrorTLS
	ConnectionErrorNetwork
	ConnectionErrorTimeout
	ConnectionErrorDNS
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "Network error"
	case ConnectionErrorTimeout:
		return "Connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// ConnectionError indicates the API at Endpoint could not be reached.
type ConnectionError struct {
	Endpoint string
	Type     ConnectionErrorType
	Reason   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf(`%s while contacting %s: %v

Check your network connection, or point the CLI at another API with:
  arena --api-url <url> ...`, e.Type, e.Endpoint, e.Reason)
}

func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// ClassifyConnectionError returns a ConnectionError typed after err, or nil
// for a nil err. The first matching check wins.
func ClassifyConnectionError(err error, endpoint string) *ConnectionError {
	if err == nil {
		return nil
	}
	checks := []struct {
		kind  ConnectionErrorType
		match func(error) bool
	}{
		{ConnectionErrorTLS, isTLSError},
		{ConnectionErrorDNS, isDNSError},
		{ConnectionErrorTimeout, isTimeoutError},
		{ConnectionErrorNetwork, isNetworkError},
	}
	for _, c := range checks {
		if c.match(err) {
			return &ConnectionError{Endpoint: endpoint, Type: c.kind, Reason: err}
		}
	}
	return &ConnectionError{Endpoint: endpoint, Type: ConnectionErrorUnknown, Reason: err}
}

func isTLSError(err error) bool {
	var (
		certErr        *x509.CertificateInvalidError
		hostErr        *x509.HostnameError
		unknownAuthErr *x509.UnknownAuthorityError
		systemRootsErr *x509.SystemRootsError
	)
	if errors.As(err, &certErr) || errors.As(err, &hostErr) ||
		errors.As(err, &unknownAuthErr) || errors.As(err, &systemRootsErr) {
		return true
	}
	return containsAny(err.Error(), "x509:", "certificate", "tls:", "TLS handshake")
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isTimeoutError(err error) bool {
	// net.Error is an interface, so errors.As needs a target of that type.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return containsAny(err.Error(), "timeout", "deadline exceeded")
}

func isNetworkError(err error) bool {
	return containsAny(err.Error(),
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
		"connect:",
	)
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// AuthRequiredError indicates there is no session for Endpoint.
type AuthRequiredError struct {
	Endpoint string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf(`Not logged in to %s

To log in with Discord, run:
  arena auth login

To check the current session:
  arena auth status`, e.Endpoint)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthRequiredError) Is(target error) bool {
	_, ok := target.(*AuthRequiredError)
	return ok
}

// AuthExpiredError indicates the stored session ended.
type AuthExpiredError struct {
	Endpoint string
	// Reason is the session expiry reason, if known.
	Reason session.Reason
}

func (e *AuthExpiredError) Error() string {
	reason := ""
	if e.Reason != "" {
		reason = fmt.Sprintf(" (%s)", e.Reason)
	}
	return fmt.Sprintf(`Your session on %s has expired%s

To log in again, run:
  arena auth login`, e.Endpoint, reason)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthExpiredError) Is(target error) bool {
	_, ok := target.(*AuthExpiredError)
	return ok
}

// AuthFailedError indicates a Discord login or link attempt failed.
type AuthFailedError struct {
	Endpoint string
	Reason   error
}

func (e *AuthFailedError) Error() string {
	return fmt.Sprintf(`Discord authentication against %s failed: %v

To try again, run:
  arena auth login`, e.Endpoint, e.Reason)
}

func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthFailedError) Is(target error) bool {
	_, ok := target.(*AuthFailedError)
	return ok
}

// Translate maps errors from the client packages onto the typed CLI errors
// above. Anything it does not recognise is returned unchanged.
func Translate(err error, endpoint string) error {
	if err == nil {
		return nil
	}

	var flowErr *oauth.FlowError
	if errors.As(err, &flowErr) {
		return &AuthFailedError{Endpoint: endpoint, Reason: err}
	}
	if errors.Is(err, session.ErrNoSession) {
		return &AuthRequiredError{Endpoint: endpoint}
	}

	apiErr, ok := apierror.As(err)
	if !ok {
		return err
	}
	switch apiErr.Code() {
	case apierror.AuthRequired:
		return &AuthRequiredError{Endpoint: endpoint}
	case apierror.SessionExpired:
		reason := strings.TrimPrefix(apiErr.Message(), "session expired: ")
		return &AuthExpiredError{Endpoint: endpoint, Reason: session.Reason(reason)}
	case apierror.DiscordOAuthError:
		return &AuthFailedError{Endpoint: endpoint, Reason: err}
	case apierror.NetworkError:
		cause := errors.Unwrap(apiErr)
		if cause == nil {
			cause = apiErr
		}
		return ClassifyConnectionError(cause, endpoint)
	}
	return err
}

// Describe returns the text printed for a failed command. The typed CLI
// errors carry their own guidance; API errors show their user message
// followed by any further field errors.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var (
		required *AuthRequiredError
		expired  *AuthExpiredError
		failed   *AuthFailedError
		conn     *ConnectionError
	)
	if errors.As(err, &required) || errors.As(err, &expired) || errors.As(err, &failed) || errors.As(err, &conn) {
		return err.Error()
	}
	var cfgErr config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr.DetailedError()
	}

	apiErr, ok := apierror.As(err)
	if !ok {
		return err.Error()
	}
	msg := apiErr.UserMessage()
	fields := apiErr.FieldErrors()
	if len(fields) < 2 {
		return msg
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString(msg)
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %s: %s", name, fields[name])
	}
	return b.String()
}
