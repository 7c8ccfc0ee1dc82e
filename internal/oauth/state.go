package oauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"arenacli/internal/storage"
	"arenacli/pkg/logging"
)

// DefaultStateExpiry bounds how long a pending state is honoured.
const DefaultStateExpiry = 10 * time.Minute

// stateBytes gives a 128-bit state.
const stateBytes = 16

// PendingState is the one-time state persisted between the two phases.
type PendingState struct {
	State     string `json:"state"`
	ReturnURL string `json:"returnUrl"`
	CreatedAt int64  `json:"createdAt"`
}

// StateStore keeps at most one pending state in storage.
type StateStore struct {
	store  *storage.Safe
	expiry time.Duration
	now    func() time.Time
}

func NewStateStore(store storage.Store, expiry time.Duration, now func() time.Time) *StateStore {
	if expiry <= 0 {
		expiry = DefaultStateExpiry
	}
	if now == nil {
		now = time.Now
	}
	return &StateStore{store: storage.NewSafe(store), expiry: expiry, now: now}
}

// Generate mints and persists a new state, replacing any pending one.
func (s *StateStore) Generate(returnURL string) (*PendingState, error) {
	nonce := make([]byte, stateBytes)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate oauth state: %w", err)
	}
	pending := &PendingState{
		State:     hex.EncodeToString(nonce),
		ReturnURL: returnURL,
		CreatedAt: s.now().UnixMilli(),
	}
	data, err := json.Marshal(pending)
	if err != nil {
		return nil, fmt.Errorf("failed to encode oauth state: %w", err)
	}
	if !s.store.Set(storage.KeyOAuthState, string(data)) {
		return nil, errors.New("failed to persist oauth state")
	}
	logging.Debug("OAuth", "Generated pending state")
	return pending, nil
}

// Pending returns the live pending state without consuming it.
func (s *StateStore) Pending() (*PendingState, bool) {
	raw := s.store.Get(storage.KeyOAuthState)
	if raw == "" {
		return nil, false
	}
	var pending PendingState
	if err := json.Unmarshal([]byte(raw), &pending); err != nil || pending.State == "" {
		logging.Warn("OAuth", "Discarding unreadable pending state")
		return nil, false
	}
	if age := s.now().Sub(time.UnixMilli(pending.CreatedAt)); age > s.expiry {
		logging.Warn("OAuth", "Pending state expired after %s", age.Round(time.Second))
		return nil, false
	}
	return &pending, true
}

// Consume checks received against the pending state and deletes the pending
// state whatever the outcome.
func (s *StateStore) Consume(received string) (*PendingState, error) {
	pending, ok := s.Pending()
	s.Clear()
	if !ok {
		return nil, &FlowError{Reason: ReasonNoPendingState}
	}
	if subtle.ConstantTimeCompare([]byte(pending.State), []byte(received)) != 1 {
		logging.Audit("OAuth", "state_mismatch")
		return nil, &FlowError{Reason: ReasonStateMismatch}
	}
	return pending, nil
}

// Clear drops any pending state.
func (s *StateStore) Clear() {
	s.store.Delete(storage.KeyOAuthState)
}
