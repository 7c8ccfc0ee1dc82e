package storage

import "errors"

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Keys used by the client. The token is mirrored under two keys so that
// installs written by older releases keep working.
const (
	KeyToken        = "auth_token"
	KeyLegacyToken  = "token"
	KeyUser         = "user"
	KeyLastActivity = "last_activity"
	KeyOAuthState   = "discord_oauth_state"
)

// Store is a small persistent string key/value store. Implementations must
// be safe for concurrent use.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}
