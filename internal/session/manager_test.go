package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arenacli/internal/apierror"
	"arenacli/internal/services"
	"arenacli/internal/storage"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

type fakeTicker struct {
	clock   *fakeClock
	c       chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{clock: c, c: make(chan time.Time, 1), period: d, next: c.now.Add(d)}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves time forward and fires every ticker that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for _, t := range c.tickers {
		if t.stopped || t.next.After(c.now) {
			continue
		}
		select {
		case t.c <- c.now:
		default:
		}
		for !t.next.After(c.now) {
			t.next = t.next.Add(t.period)
		}
	}
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}

type fakeBackend struct {
	mu            sync.Mutex
	valid         bool
	validateErr   error
	logoutErr     error
	validateCalls int32
	logoutTokens  chan string
}

func newFakeBackend(valid bool) *fakeBackend {
	return &fakeBackend{valid: valid, logoutTokens: make(chan string, 4)}
}

func (b *fakeBackend) set(valid bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.valid, b.validateErr = valid, err
}

func (b *fakeBackend) ValidateToken(ctx context.Context) (*services.TokenValidation, error) {
	atomic.AddInt32(&b.validateCalls, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.validateErr != nil {
		return nil, b.validateErr
	}
	return &services.TokenValidation{Valid: b.valid, UserID: "u1", Username: "ace"}, nil
}

func (b *fakeBackend) Logout(ctx context.Context, token string) error {
	b.logoutTokens <- token
	return b.logoutErr
}

func (b *fakeBackend) calls() int32 { return atomic.LoadInt32(&b.validateCalls) }

type failingStore struct{}

func (failingStore) Get(string) (string, error) { return "", errors.New("storage disabled") }
func (failingStore) Set(string, string) error   { return errors.New("storage disabled") }
func (failingStore) Delete(string) error        { return errors.New("storage disabled") }

func testOptions(clock Clock) Options {
	return Options{
		InactivityTimeout:     10 * time.Minute,
		RevalidateInterval:    5 * time.Minute,
		ActivityCheckInterval: time.Minute,
		Clock:                 clock,
	}
}

func seedSession(t *testing.T, store storage.Store, token string, lastActivity time.Time) {
	t.Helper()
	require.NoError(t, store.Set(storage.KeyToken, token))
	require.NoError(t, store.Set(storage.KeyLastActivity, strconv.FormatInt(lastActivity.UnixMilli(), 10)))
}

func stored(store storage.Store, key string) string {
	v, _ := store.Get(key)
	return v
}

func TestStart_NoStoredToken(t *testing.T) {
	backend := newFakeBackend(true)
	m := NewManager(storage.NewMemoryStore(), backend, testOptions(newFakeClock()))

	state, err := m.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateNoSession, state)
	assert.Zero(t, backend.calls())

	_, err = m.Token()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStart_ValidTokenBecomesActive(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	seedSession(t, store, "tok", clock.Now())
	m := NewManager(store, newFakeBackend(true), testOptions(clock))
	defer m.Stop()

	state, err := m.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateActive, state)

	tok, err := m.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok", tok.AccessToken)

	status := m.Status()
	assert.Equal(t, "ace", status.Username)
	assert.Equal(t, "u1", status.UserID)
}

func TestStart_LegacyTokenKey(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(storage.KeyLegacyToken, "old"))
	m := NewManager(store, newFakeBackend(true), testOptions(clock))
	defer m.Stop()

	state, err := m.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateActive, state)
	tok, err := m.Token()
	require.NoError(t, err)
	assert.Equal(t, "old", tok.AccessToken)
}

func TestStart_InvalidTokenExpires(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	seedSession(t, store, "tok", clock.Now())
	require.NoError(t, store.Set(storage.KeyUser, `{"id":"u1"}`))
	m := NewManager(store, newFakeBackend(false), testOptions(clock))

	state, err := m.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateExpired, state)
	assert.Empty(t, stored(store, storage.KeyToken))
	assert.Empty(t, stored(store, storage.KeyUser))
	assert.Empty(t, stored(store, storage.KeyLastActivity))
}

func TestStart_ValidationTransportErrorIsReturned(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	seedSession(t, store, "tok", clock.Now())
	backend := newFakeBackend(true)
	backend.set(false, apierror.Network(errors.New("connection refused")))
	m := NewManager(store, backend, testOptions(clock))

	state, err := m.Start(context.Background())
	assert.Equal(t, StateExpired, state)
	assert.ErrorIs(t, err, apierror.ErrNetwork)
}

func TestStart_IdleStoredSessionExpiresWithoutServerCall(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	seedSession(t, store, "tok", clock.Now().Add(-11*time.Minute))
	backend := newFakeBackend(true)
	m := NewManager(store, backend, testOptions(clock))

	var got []Expiration
	m.OnExpired(func(e Expiration) { got = append(got, e) })

	state, err := m.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateExpired, state)
	assert.Zero(t, backend.calls())
	require.Len(t, got, 1)
	assert.Equal(t, ReasonInactivity, got[0].Reason)
}

func TestInactivityWinsOverValidRevalidation(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	seedSession(t, store, "tok", clock.Now())
	backend := newFakeBackend(true)
	m := NewManager(store, backend, testOptions(clock))
	defer m.Stop()

	reasons := make(chan Reason, 4)
	m.OnExpired(func(e Expiration) { reasons <- e.Reason })

	state, err := m.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateActive, state)

	clock.Advance(11 * time.Minute)

	require.Eventually(t, func() bool { return m.State() == StateExpired }, time.Second, 5*time.Millisecond)
	assert.Equal(t, ReasonInactivity, <-reasons)
	assert.Empty(t, stored(store, storage.KeyToken))
	assert.Empty(t, stored(store, storage.KeyLegacyToken))

	// a late valid answer must not bring the session back
	clock.Advance(5 * time.Minute)
	assert.Never(t, func() bool { return m.State() != StateExpired }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Len(t, reasons, 0)
}

func TestActivityKeepsSessionAlive(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	seedSession(t, store, "tok", clock.Now())
	backend := newFakeBackend(true)
	m := NewManager(store, backend, testOptions(clock))
	defer m.Stop()

	_, err := m.Start(context.Background())
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	require.Eventually(t, func() bool { return backend.calls() == 2 }, time.Second, 5*time.Millisecond)
	m.RecordActivity(ActivityKey)

	clock.Advance(6 * time.Minute)
	require.Eventually(t, func() bool { return backend.calls() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateActive, m.State())
	assert.Equal(t, clock.Now().Add(-6*time.Minute), m.Status().LastActivity)
}

func TestRevalidationRejectionExpires(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	seedSession(t, store, "tok", clock.Now())
	backend := newFakeBackend(true)
	m := NewManager(store, backend, testOptions(clock))
	defer m.Stop()

	reasons := make(chan Reason, 1)
	m.OnExpired(func(e Expiration) { reasons <- e.Reason })

	_, err := m.Start(context.Background())
	require.NoError(t, err)

	backend.set(false, nil)
	m.RecordActivity(ActivityPointer)
	clock.Advance(5 * time.Minute)

	require.Eventually(t, func() bool { return m.State() == StateExpired }, time.Second, 5*time.Millisecond)
	assert.Equal(t, ReasonRevalidationFailed, <-reasons)
}

func TestRevalidationTransportErrorKeepsSession(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	seedSession(t, store, "tok", clock.Now())
	backend := newFakeBackend(true)
	m := NewManager(store, backend, testOptions(clock))
	defer m.Stop()

	_, err := m.Start(context.Background())
	require.NoError(t, err)

	backend.set(false, apierror.Network(errors.New("timeout")))
	clock.Advance(5 * time.Minute)

	require.Eventually(t, func() bool { return backend.calls() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateActive, m.State())
	assert.Equal(t, "tok", stored(store, storage.KeyToken))
}

func TestLogout_ClearsLocallyWhenServerFails(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	seedSession(t, store, "tok", clock.Now())
	backend := newFakeBackend(true)
	backend.logoutErr = apierror.New("", 500, "boom", nil)
	m := NewManager(store, backend, testOptions(clock))

	_, err := m.Start(context.Background())
	require.NoError(t, err)

	m.Logout(context.Background())

	assert.Equal(t, StateExpired, m.State())
	assert.Empty(t, stored(store, storage.KeyToken))
	_, err = m.Token()
	assert.ErrorIs(t, err, ErrNoSession)

	m.Stop()
	assert.Equal(t, "tok", <-backend.logoutTokens)
}

func TestLogout_WithoutStartClearsStoredToken(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(storage.KeyToken, "tok"))
	backend := newFakeBackend(true)
	m := NewManager(store, backend, testOptions(newFakeClock()))

	m.Logout(context.Background())
	m.Stop()

	assert.Empty(t, stored(store, storage.KeyToken))
	assert.Equal(t, "tok", <-backend.logoutTokens)
}

func TestOnExpired_ExactlyOnce(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	seedSession(t, store, "tok", clock.Now())
	m := NewManager(store, newFakeBackend(true), testOptions(clock))
	defer m.Stop()

	var first, second, removed int32
	m.OnExpired(func(Expiration) { atomic.AddInt32(&first, 1) })
	m.OnExpired(func(Expiration) { atomic.AddInt32(&second, 1) })
	unsubscribe := m.OnExpired(func(Expiration) { atomic.AddInt32(&removed, 1) })
	unsubscribe()
	unsubscribe()

	_, err := m.Start(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				m.HandleUnauthorized(apierror.New("", 401, "", nil))
			} else {
				m.Expire(ReasonLogout)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&first))
	assert.Equal(t, int32(1), atomic.LoadInt32(&second))
	assert.Zero(t, atomic.LoadInt32(&removed))
}

func TestLogin_StartsNewSessionAfterExpiry(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	m := NewManager(store, newFakeBackend(true), testOptions(clock))
	defer m.Stop()

	var expiries int32
	m.OnExpired(func(Expiration) { atomic.AddInt32(&expiries, 1) })

	state, err := m.Login(context.Background(), "one", &services.User{ID: "u1", Username: "ace"})
	require.NoError(t, err)
	assert.Equal(t, StateActive, state)
	assert.Equal(t, "one", stored(store, storage.KeyToken))
	assert.Equal(t, "one", stored(store, storage.KeyLegacyToken))

	u, ok := m.StoredUser()
	require.True(t, ok)
	assert.Equal(t, "ace", u.Username)

	m.Expire(ReasonUnauthorized)
	state, err = m.Login(context.Background(), "two", nil)
	require.NoError(t, err)
	assert.Equal(t, StateActive, state)
	m.Expire(ReasonUnauthorized)

	assert.Equal(t, int32(2), atomic.LoadInt32(&expiries))
}

func TestLogin_EmptyToken(t *testing.T) {
	m := NewManager(storage.NewMemoryStore(), newFakeBackend(true), testOptions(newFakeClock()))
	_, err := m.Login(context.Background(), "", nil)
	assert.Error(t, err)
}

func TestStorageFailuresDegradeGracefully(t *testing.T) {
	m := NewManager(failingStore{}, newFakeBackend(true), testOptions(newFakeClock()))
	defer m.Stop()

	state, err := m.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateNoSession, state)

	state, err = m.Login(context.Background(), "tok", &services.User{ID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, StateActive, state)

	tok, err := m.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok", tok.AccessToken)

	_, ok := m.StoredUser()
	assert.False(t, ok)

	assert.NotPanics(t, func() { m.Logout(context.Background()) })
	assert.Equal(t, StateExpired, m.State())
}

func TestRecordActivityIgnoredWhenNotActive(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	m := NewManager(store, newFakeBackend(true), testOptions(clock))

	m.RecordActivity(ActivityTouch)
	assert.True(t, m.Status().LastActivity.IsZero())
	assert.Empty(t, stored(store, storage.KeyLastActivity))
}

func TestWatchExternal_RemovedTokenExpires(t *testing.T) {
	dir := t.TempDir()
	fs, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	m := NewManager(fs, newFakeBackend(true), testOptions(newFakeClock()))
	defer m.Stop()
	_, err = m.Login(context.Background(), "tok", nil)
	require.NoError(t, err)

	reasons := make(chan Reason, 1)
	m.OnExpired(func(e Expiration) { reasons <- e.Reason })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.WatchExternal(ctx, fs))

	other, err := storage.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, other.Delete(storage.KeyToken))
	require.NoError(t, other.Delete(storage.KeyLegacyToken))

	select {
	case r := <-reasons:
		assert.Equal(t, ReasonExternalLogout, r)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not expire after external logout")
	}
}
