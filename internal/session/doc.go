// Package session owns the lifecycle of the authenticated session: startup
// validation, periodic revalidation, inactivity expiry and logout.
//
// A Manager moves through four states:
//
//	NoSession -> Validating -> Active -> Expired
//	                     \______________/
//
// Validating is entered on startup when a stored token exists, and again on
// every login. Active starts two timers, a revalidation ticker and an
// activity monitor. Any path into Expired cancels both timers, clears the
// stored token, user and last activity, and notifies every OnExpired
// subscriber exactly once for that session.
//
// The Manager implements oauth2.TokenSource, so it can be handed directly to
// the HTTP client. The client calls back into the Manager on a 401; for that
// reason the Manager never holds its lock while a request is in flight.
package session
