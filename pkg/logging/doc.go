// Package logging provides subsystem-tagged structured logging for arena.
//
// It is a thin layer over log/slog. Every record carries a "subsystem"
// attribute so output from the HTTP client, the session manager and the
// OAuth flow can be told apart.
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Session", "Session active for user %s", username)
//	logging.Debug("HTTP", "GET %s -> %d", path, status)
//	logging.Error("OAuth", err, "Code exchange failed")
//
// Until InitForCLI is called all calls are no-ops, which keeps library use
// and tests quiet.
package logging
