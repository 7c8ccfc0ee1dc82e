package oauth

// RedactedToken wraps a session token so it cannot leak through fmt, logs or
// JSON. Call Value only to hand the token to the session manager.
type RedactedToken struct {
	value string
}

func NewRedactedToken(value string) RedactedToken {
	return RedactedToken{value: value}
}

func (t RedactedToken) Value() string { return t.value }

func (t RedactedToken) IsEmpty() bool { return t.value == "" }

func (t RedactedToken) String() string { return "[REDACTED]" }

func (t RedactedToken) GoString() string { return "oauth.RedactedToken{[REDACTED]}" }

func (t RedactedToken) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }
