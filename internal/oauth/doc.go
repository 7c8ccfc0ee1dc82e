// Package oauth drives the Discord sign-in and account linking flow against
// the backend, which proxies the provider.
//
// The flow has two phases. Initiate mints a one-time state, persists it
// together with the return URL, and builds the backend initiation URL.
// Complete (or Link, for attaching Discord to an existing account) checks the
// callback parameters against the persisted state before any code exchange
// happens. The persisted state is removed on every outcome, so a callback can
// be accepted at most once.
//
// For command line use, CallbackServer receives the redirect on a loopback
// port and OpenBrowser launches the system browser.
package oauth
