package oauth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"arenacli/internal/services"
	"arenacli/internal/session"
	"arenacli/internal/storage"
	"arenacli/pkg/logging"
)

// DefaultCooldown suppresses a second initiation while the first redirect
// is still in progress.
const DefaultCooldown = 2 * time.Second

// DefaultClientID identifies this client to the backend initiation route.
const DefaultClientID = "arena-cli"

// initiationPath is the backend route that redirects to Discord.
const initiationPath = "auth/discord"

// Exchanger is the backend half of the flow.
type Exchanger interface {
	ExchangeDiscordCode(ctx context.Context, code, state string) (*services.LoginResult, error)
	LinkDiscord(ctx context.Context, code, state string) (*services.User, error)
}

// SessionStarter receives the token minted by a successful login.
type SessionStarter interface {
	Login(ctx context.Context, token string, user *services.User) (session.State, error)
}

// FlowConfig configures a Flow.
type FlowConfig struct {
	// BaseURL is the backend API base URL.
	BaseURL string

	// RedirectURL is where the backend sends the browser after Discord.
	RedirectURL string

	ClientID    string
	Cooldown    time.Duration
	StateExpiry time.Duration

	// Now is the time source. Defaults to time.Now.
	Now func() time.Time
}

// Authorization is the outcome of Initiate.
type Authorization struct {
	URL       string
	State     string
	ReturnURL string
}

// CallbackParams are the query parameters of the provider redirect.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// ParamsFromQuery extracts CallbackParams from a callback URL query.
func ParamsFromQuery(q url.Values) CallbackParams {
	return CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

// Session is a completed login.
type Session struct {
	Token     RedactedToken
	User      *services.User
	ReturnURL string
}

// Linked is a completed account link.
type Linked struct {
	User      *services.User
	ReturnURL string
}

// Flow is the OAuth Linking Flow. One Flow can run any number of sequential
// attempts; each attempt fails or succeeds as a whole.
type Flow struct {
	oauth     oauth2.Config
	states    *StateStore
	exchanger Exchanger
	sessions  SessionStarter
	cooldown  time.Duration
	now       func() time.Time

	mu            sync.Mutex
	lastInitiated time.Time
}

// NewFlow creates a Flow. sessions may be nil, in which case Complete only
// returns the token.
func NewFlow(cfg FlowConfig, store storage.Store, exchanger Exchanger, sessions SessionStarter) (*Flow, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, err
	}
	authURL := base.ResolveReference(&url.URL{Path: initiationPath})

	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Flow{
		oauth: oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURL,
			Endpoint:    oauth2.Endpoint{AuthURL: authURL.String()},
		},
		states:    NewStateStore(store, cfg.StateExpiry, cfg.Now),
		exchanger: exchanger,
		sessions:  sessions,
		cooldown:  cfg.Cooldown,
		now:       cfg.Now,
	}, nil
}

// Initiate starts an attempt and returns the URL the browser must open.
// Within the cooldown it returns ErrCooldown and leaves the pending state
// alone.
func (f *Flow) Initiate(ctx context.Context, returnURL string) (*Authorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if !f.lastInitiated.IsZero() && now.Sub(f.lastInitiated) < f.cooldown {
		logging.Debug("OAuth", "Ignoring repeated initiation within cooldown")
		return nil, ErrCooldown
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pending, err := f.states.Generate(returnURL)
	if err != nil {
		return nil, err
	}
	f.lastInitiated = now

	opts := []oauth2.AuthCodeOption{}
	if returnURL != "" {
		opts = append(opts, oauth2.SetAuthURLParam("return_url", returnURL))
	}
	authURL := f.oauth.AuthCodeURL(pending.State, opts...)

	logging.Info("OAuth", "Discord authorization started")
	return &Authorization{URL: authURL, State: pending.State, ReturnURL: returnURL}, nil
}

// Complete finishes a login attempt and, when a SessionStarter is set, hands
// it the new token.
func (f *Flow) Complete(ctx context.Context, params CallbackParams) (*Session, error) {
	pending, err := f.verify(params)
	if err != nil {
		return nil, err
	}

	res, err := f.exchanger.ExchangeDiscordCode(ctx, params.Code, params.State)
	if err != nil {
		return nil, f.fail(&FlowError{Reason: ReasonExchangeFailed, Err: err})
	}

	if f.sessions != nil {
		state, err := f.sessions.Login(ctx, res.Token, res.User)
		if err != nil || state != session.StateActive {
			if err == nil {
				err = errors.New("backend rejected the new session token")
			}
			return nil, f.fail(&FlowError{Reason: ReasonExchangeFailed, Err: err})
		}
	}

	f.reset()
	username := ""
	if res.User != nil {
		username = res.User.Username
	}
	logging.Audit("OAuth", "discord_login_completed", "user", username)
	return &Session{
		Token:     NewRedactedToken(res.Token),
		User:      res.User,
		ReturnURL: pending.ReturnURL,
	}, nil
}

// Link finishes an account linking attempt. The current session is kept;
// no token is minted.
func (f *Flow) Link(ctx context.Context, params CallbackParams) (*Linked, error) {
	pending, err := f.verify(params)
	if err != nil {
		return nil, err
	}

	user, err := f.exchanger.LinkDiscord(ctx, params.Code, params.State)
	if err != nil {
		return nil, f.fail(&FlowError{Reason: ReasonExchangeFailed, Err: err})
	}

	f.reset()
	logging.Audit("OAuth", "discord_account_linked", "user", user.Username)
	return &Linked{User: user, ReturnURL: pending.ReturnURL}, nil
}

// verify rejects a callback before any exchange. The pending state is gone
// afterwards, whichever way it went.
func (f *Flow) verify(params CallbackParams) (*PendingState, error) {
	if params.Error != "" {
		f.states.Clear()
		return nil, f.fail(&FlowError{Reason: ReasonProviderError, Description: describeProviderError(params)})
	}
	if params.Code == "" || params.State == "" {
		f.states.Clear()
		return nil, f.fail(&FlowError{Reason: ReasonMissingParams})
	}
	pending, err := f.states.Consume(params.State)
	if err != nil {
		return nil, f.fail(err)
	}
	return pending, nil
}

func (f *Flow) fail(err error) error {
	logging.Warn("OAuth", "%v", err)
	f.reset()
	return err
}

// reset lifts the cooldown once an attempt has ended.
func (f *Flow) reset() {
	f.mu.Lock()
	f.lastInitiated = time.Time{}
	f.mu.Unlock()
}

func describeProviderError(p CallbackParams) string {
	if p.ErrorDescription != "" {
		return p.Error + " (" + p.ErrorDescription + ")"
	}
	return p.Error
}
