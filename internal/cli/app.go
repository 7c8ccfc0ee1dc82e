package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"arenacli/internal/apicontext"
	"arenacli/internal/config"
	"arenacli/internal/httpclient"
	"arenacli/internal/oauth"
	"arenacli/internal/services"
	"arenacli/internal/session"
	"arenacli/internal/storage"
	"arenacli/pkg/logging"
)

// App wires configuration, storage, the HTTP client, the domain services and
// the session manager for one CLI invocation.
type App struct {
	Config   config.Config
	Flags    CommandFlags
	Store    storage.Store
	Client   *httpclient.Client
	Services *services.Services
	Session  *session.Manager

	// Files is the persistent store, nil in ephemeral mode.
	Files *storage.FileStore

	// Context names the selected backend from contexts.yaml, if any.
	Context string

	Out    io.Writer
	ErrOut io.Writer
}

// NewApp loads the configuration under flags.ConfigPath, initializes logging
// and builds the client stack. Callers must Close the App.
func NewApp(flags CommandFlags, out, errOut io.Writer) (*App, error) {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	if err := flags.Validate(); err != nil {
		return nil, err
	}
	if flags.Debug {
		logging.InitForCLI(logging.LevelDebug, errOut)
	}

	cfg, err := config.LoadConfig(flags.ConfigPath)
	if err != nil {
		return nil, err
	}
	contextName, err := applyBackend(&cfg, &flags)
	if err != nil {
		return nil, err
	}
	if flags.OutputFormat == "" {
		flags.OutputFormat = string(OutputFormatTable)
	}
	if err := flags.Validate(); err != nil {
		return nil, err
	}

	level := logging.ParseLevel(cfg.LogLevel)
	if flags.Debug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, errOut)

	app := &App{Config: cfg, Flags: flags, Context: contextName, Out: out, ErrOut: errOut}

	if flags.Ephemeral {
		logging.Debug("CLI", "Ephemeral mode, session is kept in memory")
		app.Store = storage.NewMemoryStore()
	} else {
		fs, err := storage.NewFileStore(cfg.Storage.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open state directory: %w", err)
		}
		app.Files = fs
		app.Store = fs
	}

	client, err := httpclient.New(httpclient.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
		Limiter:   cfg.RateLimit.Limiter(),
	})
	if err != nil {
		return nil, err
	}
	app.Client = client

	readRetry := cfg.Retry.Policy()
	app.Services = services.New(client, &readRetry)
	app.Session = session.NewManager(app.Store, app.Services.Auth, cfg.Session.Options())

	client.SetTokenSource(app.Session)
	client.SetUnauthorizedHandler(app.Session.HandleUnauthorized)

	logging.Debug("CLI", "Using API %s (context %q)", client.BaseURL(), contextName)
	return app, nil
}

// applyBackend points cfg at the backend chosen by --api-url, ARENA_API_URL
// or a context, in that order. A context also gets its own state directory
// and may supply the output format. It returns the context name.
func applyBackend(cfg *config.Config, flags *CommandFlags) (string, error) {
	if flags.APIURL != "" {
		cfg.API.BaseURL = flags.APIURL
		if err := config.Validate(*cfg); err != nil {
			return "", fmt.Errorf("invalid --api-url: %w", err)
		}
		return "", nil
	}
	if _, ok := config.BaseURLFromEnv(); ok {
		return "", nil
	}

	selected, err := apicontext.NewStore(flags.ConfigPath).Resolve(flags.Context)
	if err != nil || selected == nil {
		return "", err
	}
	cfg.API.BaseURL = selected.BaseURL
	cfg.Storage.Dir = apicontext.StateDir(cfg.Storage.Dir, selected.Name)
	if flags.OutputFormat == "" && selected.Settings != nil {
		flags.OutputFormat = selected.Settings.Output
	}
	if err := config.Validate(*cfg); err != nil {
		return "", fmt.Errorf("invalid context %q: %w", selected.Name, err)
	}
	return selected.Name, nil
}

// Endpoint is the API base URL used in messages.
func (a *App) Endpoint() string {
	return a.Client.BaseURL()
}

// Printer returns a Printer configured from the output flags.
func (a *App) Printer() *Printer {
	return NewPrinter(a.Out, OutputFormat(a.Flags.OutputFormat), a.Flags.NoHeaders)
}

// Spin runs fn behind a spinner unless --quiet is set.
func (a *App) Spin(msg string, fn func() error) error {
	return RunWithSpinner(a.ErrOut, a.Flags.Quiet, msg, fn)
}

// Println prints a progress line unless --quiet is set.
func (a *App) Println(format string, args ...any) {
	if !a.Flags.Quiet {
		fmt.Fprintf(a.Out, format+"\n", args...)
	}
}

// RequireSession restores the stored session. Anything short of an active
// session becomes an AuthRequiredError or AuthExpiredError.
func (a *App) RequireSession(ctx context.Context) error {
	var (
		mu     sync.Mutex
		reason session.Reason
	)
	unsubscribe := a.Session.OnExpired(func(e session.Expiration) {
		mu.Lock()
		reason = e.Reason
		mu.Unlock()
	})
	defer unsubscribe()

	state, err := a.Session.Start(ctx)
	if err != nil {
		return a.Translate(err)
	}

	switch state {
	case session.StateActive:
		return nil
	case session.StateExpired:
		mu.Lock()
		defer mu.Unlock()
		return &AuthExpiredError{Endpoint: a.Endpoint(), Reason: reason}
	default:
		return &AuthRequiredError{Endpoint: a.Endpoint()}
	}
}

// Translate maps err to a typed CLI error for this App's endpoint.
func (a *App) Translate(err error) error {
	return Translate(err, a.Endpoint())
}

// NewFlow creates a Discord flow whose provider redirect lands on
// redirectURL, normally a CallbackServer's.
func (a *App) NewFlow(redirectURL string) (*oauth.Flow, error) {
	return oauth.NewFlow(oauth.FlowConfig{
		BaseURL:     a.Config.API.BaseURL,
		RedirectURL: redirectURL,
		ClientID:    a.Config.OAuth.ClientID,
		Cooldown:    a.Config.OAuth.Cooldown,
	}, a.Store, a.Services.Auth, a.Session)
}

// Close stops session timers and waits for pending background work such as
// a server logout.
func (a *App) Close() {
	if a.Session != nil {
		a.Session.Stop()
	}
}
