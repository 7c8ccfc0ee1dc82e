// Package cli holds the pieces shared by the arena commands.
//
// App builds the client stack for one invocation: configuration, the
// persistent (or, with --ephemeral, in-memory) session store, the HTTP
// client, the domain services and the session manager, with the manager
// installed as the client's token source and 401 hook.
//
// Errors from the client packages are translated into AuthRequiredError,
// AuthExpiredError, AuthFailedError and ConnectionError, which carry the
// guidance printed to the user and decide the process exit code.
//
// Printer renders results as plain tables (go-pretty), JSON or YAML, and
// RunWithSpinner shows progress for long calls such as uploads or waiting
// for the browser.
package cli
