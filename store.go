package authclient

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/goliatone/go-authclient/storage"
)

// persistedRecord is the durable layout: a top-level state object mirroring
// the persisted fields of AuthState. Absence or a parse failure is treated
// as "no prior session".
type persistedRecord struct {
	State *AuthState `json:"state"`
}

// Store is the persisted auth state container. It is constructed explicitly
// and passed by reference to whatever reads or writes it; there is no
// package-level instance.
//
// Every operation is a total, synchronous state transition: derived fields
// are recomputed before it returns and the resulting snapshot is written
// through to durable storage as a full replacement blob. Persistence
// failures are logged, never raised to callers.
type Store struct {
	mu      sync.Mutex
	state   AuthState
	backend storage.Store
	logger  Logger
}

// StoreOption customizes Store construction.
type StoreOption func(*Store)

// WithStoreLogger overrides the default logger.
func WithStoreLogger(logger Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore returns a Store in its initial state: loading, not hydrated,
// unauthenticated.
func NewStore(backend storage.Store, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		logger:  defLogger{},
		state: AuthState{
			IsLoading: true,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Snapshot returns a copy of the current state. Until hydration completes
// IsAuthenticated reads false regardless of the underlying value, so callers
// never trust unverified persisted credentials.
func (s *Store) Snapshot() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state.clone()
	if !out.HasHydrated {
		out.IsAuthenticated = false
	}
	return out
}

// SetAuth replaces user and session wholesale. Admin fields are overwritten
// only when present in the payload; absent fields preserve prior values.
// Explicit false/null values count as present.
func (s *Store) SetAuth(payload AuthPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setAuthLocked(payload)
}

// SetAuthIfToken applies SetAuth only while the held access token still
// equals sent, re-checked under the lock. It reports whether the write
// happened. A sign-out that lands between issuing a revalidation request
// and receiving its response leaves no token to match, so the late
// response cannot resurrect cleared credentials.
func (s *Store) SetAuthIfToken(sent string, payload AuthPayload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Session == nil || s.state.Session.AccessToken != sent {
		return false
	}
	s.setAuthLocked(payload)
	return true
}

// SetUser merges a fresh profile without disturbing the session. Admin
// fields are always replaced from adminData: profile responses are the
// source of truth for admin status, so omitting adminData resets to
// {false, nil} rather than preserving prior state.
func (s *Store) SetUser(user *UserProfile, adminData *AdminData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setUserLocked(user, adminData)
}

// SetUserIfSession applies SetUser only while a session is still held,
// re-checked under the lock, and reports whether the write happened. It
// keeps a late profile response from reattaching a user to a store that
// was cleared while the request was in flight.
func (s *Store) SetUserIfSession(user *UserProfile, adminData *AdminData) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Session == nil {
		return false
	}
	s.setUserLocked(user, adminData)
	return true
}

// SetSession replaces the session without touching the profile.
func (s *Store) SetSession(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Session = session
	s.recomputeLocked()
	s.persistLocked(context.Background())
}

// Logout clears user, session and admin state. Clearing an already cleared
// store is a no-op beyond rewriting the empty snapshot.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.User = nil
	s.state.Session = nil
	s.state.IsAdmin = false
	s.state.Admin = nil
	s.recomputeLocked()
	s.persistLocked(context.Background())
}

// SetLoading toggles the loading flag.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = loading
}

// SetHasHydrated marks hydration complete. The transition is monotonic:
// once hydrated the flag never reverts, and repeat calls are no-ops. When
// hydration finishes with no session there is nothing to verify, so loading
// stops immediately; with a session, loading continues until revalidation
// resolves.
func (s *Store) SetHasHydrated(hydrated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.HasHydrated || !hydrated {
		return
	}
	s.state.HasHydrated = true
	if s.state.Session == nil {
		s.state.IsLoading = false
	}
}

// Restore applies a previously persisted record without writing it back.
// Only the bootstrap uses it, before hydration is signaled.
func (s *Store) Restore(state AuthState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.HasHydrated {
		return
	}
	s.state.User = state.User
	s.state.Session = state.Session
	s.state.IsAdmin = state.IsAdmin
	s.state.Admin = state.Admin
	s.recomputeLocked()
}

// ConfirmPersisted re-reads durable storage and reports whether the current
// user and session actually landed. It backs the bounded verify-then-retry
// step after a revalidation write.
func (s *Store) ConfirmPersisted(ctx context.Context) bool {
	s.mu.Lock()
	wantToken := ""
	if s.state.Session != nil {
		wantToken = s.state.Session.AccessToken
	}
	wantUser := ""
	if s.state.User != nil {
		wantUser = s.state.User.ID
	}
	s.mu.Unlock()

	if wantToken == "" && wantUser == "" {
		return true
	}

	data, ok, err := s.backend.Load(ctx)
	if err != nil || !ok {
		return false
	}

	rec := persistedRecord{}
	if err := json.Unmarshal(data, &rec); err != nil || rec.State == nil {
		return false
	}

	gotToken := ""
	if rec.State.Session != nil {
		gotToken = rec.State.Session.AccessToken
	}
	gotUser := ""
	if rec.State.User != nil {
		gotUser = rec.State.User.ID
	}
	return gotToken == wantToken && gotUser == wantUser
}

// Persist rewrites the current snapshot to durable storage. Used as the
// single bounded retry when ConfirmPersisted fails.
func (s *Store) Persist(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked(ctx)
}

func (s *Store) setAuthLocked(payload AuthPayload) {
	s.state.User = payload.User
	s.state.Session = payload.Session

	if payload.Admin.IsAdmin != nil {
		s.state.IsAdmin = *payload.Admin.IsAdmin
	}
	if payload.Admin.AdminPresent {
		s.state.Admin = payload.Admin.Admin
	}

	s.recomputeLocked()
	s.persistLocked(context.Background())
}

func (s *Store) setUserLocked(user *UserProfile, adminData *AdminData) {
	s.state.User = user
	if adminData != nil && adminData.IsAdmin != nil {
		s.state.IsAdmin = *adminData.IsAdmin
	} else {
		s.state.IsAdmin = false
	}
	if adminData != nil {
		s.state.Admin = adminData.Admin
	} else {
		s.state.Admin = nil
	}

	s.recomputeLocked()
	s.persistLocked(context.Background())
}

func (s *Store) recomputeLocked() {
	s.state.IsAuthenticated = s.state.User != nil && s.state.Session != nil
}

func (s *Store) persistLocked(ctx context.Context) {
	rec := persistedRecord{}
	state := s.state.clone()
	rec.State = &state

	data, err := json.Marshal(rec)
	if err != nil {
		s.logger.Error("marshal auth state: %v", err)
		return
	}

	if err := s.backend.Save(ctx, data); err != nil {
		s.logger.Error("persist auth state: %v", err)
	}
}
