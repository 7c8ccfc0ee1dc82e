package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"arenacli/internal/apierror"
	"arenacli/internal/services"
	"arenacli/internal/storage"
	"arenacli/pkg/logging"
)

// State is the lifecycle state of the session.
type State int

const (
	StateNoSession State = iota
	StateValidating
	StateActive
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateNoSession:
		return "no_session"
	case StateValidating:
		return "validating"
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Reason says why a session expired.
type Reason string

const (
	ReasonValidationFailed   Reason = "validation_failed"
	ReasonRevalidationFailed Reason = "revalidation_failed"
	ReasonInactivity         Reason = "inactivity"
	ReasonLogout             Reason = "logout"
	ReasonUnauthorized       Reason = "unauthorized"
	ReasonExternalLogout     Reason = "external_logout"
)

// ActivityKind is the kind of user interaction that resets the inactivity
// window.
type ActivityKind string

const (
	ActivityPointer ActivityKind = "pointer"
	ActivityKey     ActivityKind = "key"
	ActivityScroll  ActivityKind = "scroll"
	ActivityTouch   ActivityKind = "touch"
)

// Expiration is delivered to OnExpired subscribers.
type Expiration struct {
	Reason Reason
	At     time.Time
}

// ErrNoSession is returned by Token when there is no usable session.
var ErrNoSession = errors.New("no active session")

const (
	DefaultInactivityTimeout     = 24 * time.Hour
	DefaultRevalidateInterval    = 5 * time.Minute
	DefaultActivityCheckInterval = time.Minute

	// last activity is written to storage at most this often
	activityPersistInterval = 30 * time.Second
	logoutTimeout           = 10 * time.Second
)

// Validator is the server side of the session.
type Validator interface {
	ValidateToken(ctx context.Context) (*services.TokenValidation, error)
	Logout(ctx context.Context, token string) error
}

// Options tunes the Manager. Zero values take the defaults.
type Options struct {
	InactivityTimeout     time.Duration
	RevalidateInterval    time.Duration
	ActivityCheckInterval time.Duration
	Clock                 Clock
}

func (o Options) withDefaults() Options {
	if o.InactivityTimeout <= 0 {
		o.InactivityTimeout = DefaultInactivityTimeout
	}
	if o.RevalidateInterval <= 0 {
		o.RevalidateInterval = DefaultRevalidateInterval
	}
	if o.ActivityCheckInterval <= 0 {
		o.ActivityCheckInterval = DefaultActivityCheckInterval
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	return o
}

// Status is a snapshot of the session.
type Status struct {
	State        State
	UserID       string
	Username     string
	LastActivity time.Time
}

// Manager is the Session Lifecycle Manager.
type Manager struct {
	store     *storage.Safe
	validator Validator
	opts      Options

	mu            sync.Mutex
	state         State
	generation    uint64
	token         string
	userID        string
	username      string
	lastActivity  time.Time
	lastPersisted time.Time
	listening     bool
	stopTimers    context.CancelFunc
	subscribers   map[uint64]func(Expiration)
	nextSub       uint64

	validation singleflight.Group
	background sync.WaitGroup
}

var _ oauth2.TokenSource = (*Manager)(nil)

// NewManager creates a Manager in the NoSession state. Nothing is read from
// store until Start.
func NewManager(store storage.Store, validator Validator, opts Options) *Manager {
	return &Manager{
		store:       storage.NewSafe(store),
		validator:   validator,
		opts:        opts.withDefaults(),
		state:       StateNoSession,
		subscribers: make(map[uint64]func(Expiration)),
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:        m.state,
		UserID:       m.userID,
		Username:     m.username,
		LastActivity: m.lastActivity,
	}
}

// Token implements oauth2.TokenSource. A token is only handed out while the
// session is validating or active.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if (m.state != StateValidating && m.state != StateActive) || m.token == "" {
		return nil, ErrNoSession
	}
	return &oauth2.Token{AccessToken: m.token, TokenType: "Bearer"}, nil
}

// StoredUser returns the user cached at login, if any.
func (m *Manager) StoredUser() (*services.User, bool) {
	raw := m.store.Get(storage.KeyUser)
	if raw == "" {
		return nil, false
	}
	var u services.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		logging.Warn("Session", "Ignoring unreadable stored user: %v", err)
		return nil, false
	}
	return &u, true
}

// Start restores a stored session. Without a stored token the manager stays
// in NoSession. A session idle past the inactivity timeout expires without a
// server round trip; otherwise the token is validated. The returned error is
// the transport failure when validation could not be performed.
func (m *Manager) Start(ctx context.Context) (State, error) {
	m.mu.Lock()
	if m.state != StateNoSession {
		s := m.state
		m.mu.Unlock()
		return s, nil
	}
	token := m.storedToken()
	if token == "" {
		m.mu.Unlock()
		logging.Debug("Session", "No stored token, staying logged out")
		return StateNoSession, nil
	}

	now := m.opts.Clock.Now()
	last, ok := m.storedLastActivity()
	if !ok {
		last = now
	}
	m.token = token
	m.lastActivity = last
	m.lastPersisted = last
	m.state = StateValidating
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	if idle := now.Sub(last); idle >= m.opts.InactivityTimeout {
		logging.Info("Session", "Stored session idle for %s, expiring", idle.Round(time.Second))
		m.expire(gen, ReasonInactivity)
		return StateExpired, nil
	}
	return m.validateAndActivate(ctx, gen)
}

// Login starts a new session for token, replacing any current one without
// notifying subscribers, and validates it.
func (m *Manager) Login(ctx context.Context, token string, user *services.User) (State, error) {
	if token == "" {
		return m.State(), errors.New("session token must not be empty")
	}

	m.mu.Lock()
	m.stopTimersLocked()
	m.token = token
	m.store.Set(storage.KeyToken, token)
	m.store.Set(storage.KeyLegacyToken, token)
	if user != nil {
		if data, err := json.Marshal(user); err == nil {
			m.store.Set(storage.KeyUser, string(data))
		}
		m.userID, m.username = user.ID, user.Username
	}
	now := m.opts.Clock.Now()
	m.lastActivity = now
	m.persistActivityLocked(now)
	m.state = StateValidating
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	username := ""
	if user != nil {
		username = user.Username
	}
	logging.Audit("Session", "login", "user", username)
	return m.validateAndActivate(ctx, gen)
}

// RecordActivity resets the inactivity window. It is ignored unless the
// session is active.
func (m *Manager) RecordActivity(kind ActivityKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.listening || m.state != StateActive {
		return
	}
	now := m.opts.Clock.Now()
	m.lastActivity = now
	if now.Sub(m.lastPersisted) >= activityPersistInterval {
		m.persistActivityLocked(now)
	}
}

// Logout tears the local session down immediately and notifies the server
// in the background. A failing server call never keeps the token around.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	token := m.token
	if token == "" {
		token = m.storedToken()
	}
	m.mu.Unlock()

	if !m.expire(0, ReasonLogout) {
		m.mu.Lock()
		m.clearStorageLocked()
		m.mu.Unlock()
	}
	if token == "" {
		return
	}

	m.background.Add(1)
	go func() {
		defer m.background.Done()
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
		defer cancel()
		if err := m.validator.Logout(callCtx, token); err != nil {
			logging.Warn("Session", "Server logout failed, local session already cleared: %v", err)
			return
		}
		logging.Debug("Session", "Server logout acknowledged")
	}()
}

// Expire ends the current session for reason. It reports whether this call
// performed the transition.
func (m *Manager) Expire(reason Reason) bool {
	return m.expire(0, reason)
}

// HandleUnauthorized is the HTTP client's 401 hook.
func (m *Manager) HandleUnauthorized(err *apierror.APIError) {
	if m.Expire(ReasonUnauthorized) {
		logging.Warn("Session", "Server rejected the session token: %v", err)
	}
}

// OnExpired registers fn to run once per session expiry. The returned func
// unsubscribes. Callbacks run on the goroutine that caused the expiry and
// must not call Stop.
func (m *Manager) OnExpired(fn func(Expiration)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, id)
			m.mu.Unlock()
		})
	}
}

// WatchExternal expires the session when another process removes the token
// from fs, and adopts a token another process wrote.
func (m *Manager) WatchExternal(ctx context.Context, fs *storage.FileStore) error {
	return fs.Watch(ctx, m.onStorageChanged)
}

// Stop cancels the timers and waits for background work, including pending
// server logouts. The session state is left as is.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopTimersLocked()
	m.listening = false
	m.mu.Unlock()
	m.background.Wait()
}

func (m *Manager) validateAndActivate(ctx context.Context, gen uint64) (State, error) {
	v, err := m.validate(ctx)
	if err != nil || !v.Valid {
		reason := "token rejected"
		if err != nil {
			reason = err.Error()
		}
		logging.Info("Session", "Session validation failed: %s", reason)
		m.expire(gen, ReasonValidationFailed)
		if apiErr, ok := apierror.As(err); ok && apiErr.IsAuthError() {
			err = nil
		}
		return StateExpired, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen || m.state != StateValidating {
		return m.state, nil
	}
	m.state = StateActive
	m.userID, m.username = v.UserID, v.Username
	m.listening = true

	timerCtx, cancel := context.WithCancel(context.Background())
	m.stopTimers = cancel
	m.background.Add(2)
	go m.runTicker(timerCtx, m.opts.Clock.NewTicker(m.opts.RevalidateInterval), func() { m.revalidate(timerCtx, gen) })
	go m.runTicker(timerCtx, m.opts.Clock.NewTicker(m.opts.ActivityCheckInterval), func() { m.checkInactivity(gen) })

	logging.Info("Session", "Session active for %s", v.Username)
	return StateActive, nil
}

// validate collapses concurrent validations into one request.
func (m *Manager) validate(ctx context.Context) (*services.TokenValidation, error) {
	v, err, shared := m.validation.Do("validate", func() (any, error) {
		return m.validator.ValidateToken(ctx)
	})
	if shared {
		logging.Debug("Session", "Joined in-flight token validation")
	}
	if err != nil {
		return nil, err
	}
	return v.(*services.TokenValidation), nil
}

func (m *Manager) runTicker(ctx context.Context, t Ticker, fn func()) {
	defer m.background.Done()
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			fn()
		}
	}
}

// revalidate never revives a session: a valid answer only leaves it alone.
// Transport and server failures keep the session; only an explicit rejection
// ends it.
func (m *Manager) revalidate(ctx context.Context, gen uint64) {
	if m.checkInactivity(gen) {
		return
	}
	v, err := m.validate(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if apiErr, ok := apierror.As(err); ok && apiErr.IsAuthError() {
			m.expire(gen, ReasonRevalidationFailed)
			return
		}
		logging.Warn("Session", "Revalidation failed, keeping session: %v", err)
		return
	}
	if !v.Valid {
		m.expire(gen, ReasonRevalidationFailed)
	}
}

// checkInactivity reports whether the session for gen is gone, expiring it
// if it has been idle too long.
func (m *Manager) checkInactivity(gen uint64) bool {
	m.mu.Lock()
	if m.generation != gen || m.state != StateActive {
		m.mu.Unlock()
		return true
	}
	idle := m.opts.Clock.Now().Sub(m.lastActivity)
	m.mu.Unlock()

	if idle >= m.opts.InactivityTimeout {
		logging.Info("Session", "No activity for %s, expiring session", idle.Round(time.Second))
		m.expire(gen, ReasonInactivity)
		return true
	}
	return false
}

// expire moves the session for gen (0 means the current one) to Expired.
// Only the first caller for a session wins; it clears storage and notifies
// subscribers outside the lock.
func (m *Manager) expire(gen uint64, reason Reason) bool {
	m.mu.Lock()
	if m.state == StateExpired || m.state == StateNoSession || (gen != 0 && gen != m.generation) {
		m.mu.Unlock()
		return false
	}
	m.state = StateExpired
	m.stopTimersLocked()
	m.listening = false
	m.token = ""
	m.userID, m.username = "", ""
	m.clearStorageLocked()

	subs := make([]func(Expiration), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	ev := Expiration{Reason: reason, At: m.opts.Clock.Now()}
	m.mu.Unlock()

	logging.Audit("Session", "session_expired", "reason", string(reason))
	for _, fn := range subs {
		fn(ev)
	}
	return true
}

func (m *Manager) onStorageChanged() {
	stored := m.storedToken()

	m.mu.Lock()
	if m.state != StateActive && m.state != StateValidating {
		m.mu.Unlock()
		return
	}
	gen := m.generation
	if stored == "" {
		m.mu.Unlock()
		logging.Info("Session", "Token removed by another process")
		m.expire(gen, ReasonExternalLogout)
		return
	}
	if stored != m.token {
		m.token = stored
		logging.Info("Session", "Token replaced by another process, adopting it")
	}
	m.mu.Unlock()
}

func (m *Manager) stopTimersLocked() {
	if m.stopTimers != nil {
		m.stopTimers()
		m.stopTimers = nil
	}
}

func (m *Manager) storedToken() string {
	if tok := m.store.Get(storage.KeyToken); tok != "" {
		return tok
	}
	return m.store.Get(storage.KeyLegacyToken)
}

func (m *Manager) storedLastActivity() (time.Time, bool) {
	raw := m.store.Get(storage.KeyLastActivity)
	if raw == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (m *Manager) persistActivityLocked(now time.Time) {
	if m.store.Set(storage.KeyLastActivity, strconv.FormatInt(now.UnixMilli(), 10)) {
		m.lastPersisted = now
	}
}

func (m *Manager) clearStorageLocked() {
	for _, key := range []string{storage.KeyToken, storage.KeyLegacyToken, storage.KeyUser, storage.KeyLastActivity} {
		m.store.Delete(key)
	}
}
