package apierror

import (
	"fmt"
	"net/http"
	"sort"
)

// Code is the machine readable error category shared with the backend.
type Code string

const (
	AuthRequired    Code = "AUTH_REQUIRED"
	AccessDenied    Code = "ACCESS_DENIED"
	ValidationError Code = "VALIDATION_ERROR"
	NotFound        Code = "NOT_FOUND"
	Conflict        Code = "CONFLICT"
	RateLimited     Code = "RATE_LIMITED"
	InternalError   Code = "INTERNAL_ERROR"
	NetworkError    Code = "NETWORK_ERROR"
	UnknownError    Code = "UNKNOWN_ERROR"

	// SessionExpired is raised locally when the session manager has torn the
	// session down; the backend never sends it.
	SessionExpired Code = "SESSION_EXPIRED"

	// Domain codes sent by the backend.
	DiscordOAuthError Code = "DISCORD_OAUTH_ERROR"
	ChatRoomFull      Code = "CHAT_ROOM_FULL"
	MessageTooLong    Code = "MESSAGE_TOO_LONG"
	FileTooLarge      Code = "FILE_TOO_LARGE"
	InvalidFileType   Code = "INVALID_FILE_TYPE"
)

// Sentinels usable with errors.Is. Two APIErrors match when their codes match.
var (
	ErrAuthRequired   = &APIError{code: AuthRequired}
	ErrAccessDenied   = &APIError{code: AccessDenied}
	ErrValidation     = &APIError{code: ValidationError}
	ErrNotFound       = &APIError{code: NotFound}
	ErrConflict       = &APIError{code: Conflict}
	ErrRateLimited    = &APIError{code: RateLimited}
	ErrInternal       = &APIError{code: InternalError}
	ErrNetwork        = &APIError{code: NetworkError}
	ErrSessionExpired = &APIError{code: SessionExpired}
)

// CodeForStatus classifies an HTTP status when the server did not send an
// explicit error code.
func CodeForStatus(status int) Code {
	switch {
	case status == http.StatusUnauthorized:
		return AuthRequired
	case status == http.StatusForbidden:
		return AccessDenied
	case status == http.StatusBadRequest:
		return ValidationError
	case status == http.StatusNotFound:
		return NotFound
	case status == http.StatusConflict:
		return Conflict
	case status == http.StatusTooManyRequests:
		return RateLimited
	case status >= 500:
		return InternalError
	default:
		return UnknownError
	}
}

// APIError is the single error type returned by the HTTP client layer.
// It is immutable once constructed.
type APIError struct {
	message     string
	code        Code
	statusCode  int
	fieldErrors map[string]string
	cause       error
}

// New builds an APIError. An empty code is derived from the status.
func New(code Code, statusCode int, message string, fieldErrors map[string]string) *APIError {
	if code == "" {
		code = CodeForStatus(statusCode)
	}
	if message == "" {
		message = defaultMessage(code, statusCode)
	}
	var fields map[string]string
	if len(fieldErrors) > 0 {
		fields = make(map[string]string, len(fieldErrors))
		for k, v := range fieldErrors {
			fields[k] = v
		}
	}
	return &APIError{
		message:     message,
		code:        code,
		statusCode:  statusCode,
		fieldErrors: fields,
	}
}

// FromStatus synthesizes an error from a response status line when the body
// carried no usable error envelope.
func FromStatus(statusCode int, statusText string) *APIError {
	msg := statusText
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return New("", statusCode, fmt.Sprintf("HTTP %d: %s", statusCode, msg), nil)
}

// Network wraps a transport failure (DNS, refused connection, TLS, timeout).
func Network(cause error) *APIError {
	msg := "network request failed"
	if cause != nil {
		msg = "network request failed: " + cause.Error()
	}
	return &APIError{
		message: msg,
		code:    NetworkError,
		cause:   cause,
	}
}

// Expired reports a locally expired session.
func Expired(reason string) *APIError {
	return New(SessionExpired, http.StatusUnauthorized, "session expired: "+reason, nil)
}

func (e *APIError) Error() string {
	if e.statusCode > 0 {
		return fmt.Sprintf("%s (%s, status %d)", e.message, e.code, e.statusCode)
	}
	return fmt.Sprintf("%s (%s)", e.message, e.code)
}

// Unwrap exposes the transport error for network failures.
func (e *APIError) Unwrap() error { return e.cause }

// Is matches any APIError with the same code.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.code == e.code
}

func (e *APIError) Message() string { return e.message }
func (e *APIError) Code() Code       { return e.code }
func (e *APIError) StatusCode() int  { return e.statusCode }

// FieldErrors returns a copy of the per-field validation messages.
func (e *APIError) FieldErrors() map[string]string {
	if len(e.fieldErrors) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.fieldErrors))
	for k, v := range e.fieldErrors {
		out[k] = v
	}
	return out
}

// FirstFieldError returns the message of the alphabetically first field, so
// repeated calls on the same error always agree.
func (e *APIError) FirstFieldError() (field, message string, ok bool) {
	if len(e.fieldErrors) == 0 {
		return "", "", false
	}
	keys := make([]string, 0, len(e.fieldErrors))
	for k := range e.fieldErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0], e.fieldErrors[keys[0]], true
}

func (e *APIError) IsAuthError() bool {
	return e.code == AuthRequired || e.code == SessionExpired || e.statusCode == http.StatusUnauthorized
}

func (e *APIError) IsAccessDenied() bool {
	return e.code == AccessDenied || e.statusCode == http.StatusForbidden
}

func (e *APIError) IsValidationError() bool {
	return e.code == ValidationError
}

func (e *APIError) IsNotFound() bool {
	return e.code == NotFound || e.statusCode == http.StatusNotFound
}

func (e *APIError) IsConflict() bool {
	return e.code == Conflict || e.statusCode == http.StatusConflict
}

func (e *APIError) IsRateLimited() bool {
	return e.code == RateLimited || e.statusCode == http.StatusTooManyRequests
}

func (e *APIError) IsServerError() bool {
	return e.code == InternalError || e.statusCode >= 500
}

func (e *APIError) IsNetworkError() bool {
	return e.code == NetworkError
}

func defaultMessage(code Code, status int) string {
	if status > 0 {
		if text := http.StatusText(status); text != "" {
			return text
		}
	}
	return string(code)
}
