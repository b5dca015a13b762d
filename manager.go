package authclient

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/goliatone/go-print"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-authclient/storage"
)

// DefaultHydrationTimeout bounds how long the bootstrap waits for the
// storage layer's readiness signal before force-reading storage itself.
const DefaultHydrationTimeout = 100 * time.Millisecond

// Manager drives the session lifecycle: one-time hydration, concurrent
// session revalidation and profile fetching, the unauthorized handler, and
// the explicit login/callback/sign-out flows.
type Manager struct {
	store     *Store
	backend   storage.Store
	api       API
	nav       Navigator
	lifecycle *Lifecycle
	logger    Logger
	sink      ActivitySink
	now       func() time.Time

	hydrationTimeout time.Duration
	origin           string
	callbackPath     string
	landingPath      string
	rootPath         string

	hydrateOnce sync.Once

	// unauthMu serializes the clear-and-redirect so near-simultaneous 401s
	// from the two fan-out calls produce exactly one logical logout.
	unauthMu sync.Mutex
}

// ManagerOption customizes Manager construction.
type ManagerOption func(*Manager)

// WithNavigator sets the navigation collaborator.
func WithNavigator(nav Navigator) ManagerOption {
	return func(m *Manager) {
		if nav != nil {
			m.nav = nav
		}
	}
}

// WithManagerLogger overrides the default logger.
func WithManagerLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithActivitySink configures an ActivitySink for lifecycle events.
func WithActivitySink(sink ActivitySink) ManagerOption {
	return func(m *Manager) {
		m.sink = normalizeActivitySink(sink)
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithHydrationTimeout overrides the bound on the readiness race.
func WithHydrationTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.hydrationTimeout = d
		}
	}
}

// NewManager wires a Manager around an existing store and backend API
// client.
func NewManager(store *Store, backend storage.Store, api API, cfg Config, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:            store,
		backend:          backend,
		api:              api,
		nav:              noopNavigator{},
		logger:           defLogger{},
		sink:             noopActivitySink{},
		now:              time.Now,
		hydrationTimeout: DefaultHydrationTimeout,
		origin:           cfg.GetOrigin(),
		callbackPath:     cfg.GetCallbackPath(),
		landingPath:      cfg.GetLandingPath(),
		rootPath:         cfg.GetRootPath(),
	}

	if cfg.GetHydrationTimeout() > 0 {
		m.hydrationTimeout = time.Duration(cfg.GetHydrationTimeout()) * time.Millisecond
	}
	if m.callbackPath == "" {
		m.callbackPath = "/callback"
	}
	if m.landingPath == "" {
		m.landingPath = "/dashboard"
	}
	if m.rootPath == "" {
		m.rootPath = "/"
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	m.lifecycle = NewLifecycle(
		WithLifecycleClock(m.now),
		WithLifecycleActivitySink(m.sink),
		WithLifecycleLogger(m.logger),
	)

	return m
}

// Store exposes the underlying state container to readers.
func (m *Manager) Store() *Store {
	return m.store
}

// Phase returns the current lifecycle phase.
func (m *Manager) Phase() Phase {
	return m.lifecycle.Phase()
}

// Start runs the bootstrap once: hydrate persisted state, then, when a
// session was restored, fan out revalidation and profile fetching as
// independent tasks. Their completion order is irrelevant; each reconciles
// into the store on its own and reports authorization failures to the
// unauthorized handler.
func (m *Manager) Start(ctx context.Context) error {
	m.transitionQuiet(ctx, PhaseHydrating)
	m.hydrate(ctx)

	snap := m.store.Snapshot()
	if snap.Session == nil || snap.Session.AccessToken == "" {
		m.transitionQuiet(ctx, PhaseNoSession)
		m.transitionQuiet(ctx, PhaseUnauthenticated)
		return nil
	}

	m.transitionQuiet(ctx, PhasePendingVerification)

	g := new(errgroup.Group)
	g.Go(func() error {
		if err := m.Revalidate(ctx); err != nil && !IsUnauthorizedError(err) {
			m.logger.Warn("session revalidation failed: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := m.RefreshProfile(ctx); err != nil && !IsUnauthorizedError(err) {
			m.logger.Warn("profile refresh failed: %v", err)
		}
		return nil
	})
	_ = g.Wait()

	if m.store.Snapshot().IsAuthenticated {
		m.transitionQuiet(ctx, PhaseAuthenticated)
	} else {
		m.transitionQuiet(ctx, PhaseUnauthenticated)
	}
	return nil
}

// hydrate performs the one-time bootstrap: wait for the storage readiness
// signal up to the configured bound, then force-read storage. Corrupt or
// absent records hydrate to "no prior session"; they never raise.
func (m *Manager) hydrate(ctx context.Context) {
	m.hydrateOnce.Do(func() { m.runHydration(ctx) })
}

func (m *Manager) runHydration(ctx context.Context) {
	select {
	case <-m.backend.Ready():
	case <-time.After(m.hydrationTimeout):
		m.logger.Debug("storage readiness signal timed out after %s, force-reading", m.hydrationTimeout)
	case <-ctx.Done():
	}

	// The storage callback may have won the race already; first writer wins.
	if m.store.Snapshot().HasHydrated {
		return
	}

	restored := false
	data, ok, err := m.backend.Load(ctx)
	if err != nil {
		m.logger.Warn("hydration read failed, starting unauthenticated: %v", err)
	} else if ok {
		rec := persistedRecord{}
		if perr := json.Unmarshal(data, &rec); perr != nil || rec.State == nil {
			m.logger.Warn("persisted auth record unparseable, starting unauthenticated")
		} else {
			m.store.Restore(*rec.State)
			restored = true
		}
	}

	m.store.SetHasHydrated(true)
	if !restored {
		m.store.SetLoading(false)
	}

	m.record(ctx, ActivityEvent{
		EventType: ActivityEventHydrated,
		Metadata:  map[string]any{"restored_session": restored && m.store.Snapshot().Session != nil},
	})
}

// Revalidate confirms the held session against the backend. Malformed
// success payloads are inconclusive and preserve local state; an unchanged
// token skips the store write entirely; a changed token is written and then
// verified against durable storage with a single bounded retry.
func (m *Manager) Revalidate(ctx context.Context) error {
	snap := m.store.Snapshot()
	if !snap.HasHydrated {
		return nil
	}
	if snap.Session == nil || snap.Session.AccessToken == "" {
		m.store.SetLoading(false)
		return nil
	}
	sent := snap.Session.AccessToken

	resp, err := m.api.Session(ctx, sent)
	if err != nil {
		m.store.SetLoading(false)
		m.handleAuthError(ctx, err)
		return err
	}

	if verr := resp.Validate(); verr != nil {
		m.logger.Error("session response missing required fields: %s", print.MaybePrettyJSON(map[string]any{
			"error": verr.Error(),
		}))
		m.store.SetLoading(false)
		return nil
	}

	// A sign-out may have raced this response; never resurrect credentials.
	current := m.store.Snapshot()
	if current.Session == nil || current.Session.AccessToken != sent {
		m.logger.Debug("discarding stale session response")
		return nil
	}

	if resp.Session.AccessToken == sent {
		m.store.SetLoading(false)
		m.record(ctx, ActivityEvent{
			EventType: ActivityEventSessionUnchanged,
			UserID:    userID(resp.User),
		})
		return nil
	}

	resp.Session.Normalize()
	// The token compare repeats inside the store lock so a sign-out racing
	// the write window cannot be overwritten.
	if !m.store.SetAuthIfToken(sent, resp.Payload()) {
		m.logger.Debug("discarding stale session response")
		return nil
	}
	m.store.SetLoading(false)
	m.verifyPersisted(ctx)

	m.record(ctx, ActivityEvent{
		EventType: ActivityEventSessionRefreshed,
		UserID:    userID(resp.User),
	})
	return nil
}

// RefreshProfile fetches the current profile and merges it into the store.
// The response is authoritative for admin status on every call.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	snap := m.store.Snapshot()
	if !snap.HasHydrated || snap.Session == nil || snap.Session.AccessToken == "" {
		return nil
	}

	resp, err := m.api.Me(ctx, snap.Session.AccessToken)
	if err != nil {
		m.handleAuthError(ctx, err)
		return err
	}

	if verr := resp.Validate(); verr != nil {
		m.logger.Error("profile response missing user: %v", verr)
		return nil
	}

	admin := resp.AdminData()
	if !m.store.SetUserIfSession(resp.User, &admin) {
		m.logger.Debug("discarding stale profile response")
	}
	return nil
}

// Login initiates the external login flow. It is fire-and-forget: on
// success the host navigates away and the process reloads when the provider
// redirects back, so loading intentionally stays on.
func (m *Manager) Login(ctx context.Context) error {
	m.store.SetLoading(true)
	m.record(ctx, ActivityEvent{EventType: ActivityEventLoginInitiated})

	loginURL, err := m.api.LoginURL(ctx, m.origin+m.callbackPath)
	if err != nil {
		m.store.SetLoading(false)
		m.record(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata:  map[string]any{"error": err.Error()},
		})
		return err
	}

	m.nav.Push(loginURL)
	return nil
}

// HandleCallback exchanges an authorization code for a login payload and
// lands the user on the authenticated page. Any failure stops loading and
// sends the user back to the root with an error indicator instead of
// leaving the UI stuck.
func (m *Manager) HandleCallback(ctx context.Context, code string) error {
	m.store.SetLoading(true)

	resp, err := m.api.ExchangeCode(ctx, code)
	if err == nil {
		if verr := resp.Validate(); verr != nil {
			err = ErrCallbackExchange.WithMetadata(map[string]any{"error": verr.Error()})
		}
	}
	if err != nil {
		cbErr := ErrCallbackExchange.WithMetadata(map[string]any{"error": err.Error()})
		m.store.SetLoading(false)
		m.record(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata:  map[string]any{"error": err.Error()},
		})
		m.nav.Push(m.rootPath + "?error=callback_failed")
		return cbErr
	}

	resp.Session.Normalize()
	m.store.SetAuth(resp.Payload())
	m.store.SetLoading(false)
	m.transitionQuiet(ctx, PhaseAuthenticated)

	m.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    userID(resp.User),
	})
	m.nav.Push(m.landingPath)
	return nil
}

// LoginWithPassword exchanges email/password for a login payload and lands
// the user on the authenticated page. Failures surface to the caller for
// inline display.
func (m *Manager) LoginWithPassword(ctx context.Context, email, password string) error {
	m.store.SetLoading(true)

	resp, err := m.api.PasswordLogin(ctx, email, password)
	if err != nil {
		m.store.SetLoading(false)
		m.record(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata:  map[string]any{"error": err.Error()},
		})
		return err
	}

	if verr := resp.Validate(); verr != nil {
		m.store.SetLoading(false)
		return ErrCallbackExchange.WithMetadata(map[string]any{"error": verr.Error()})
	}

	resp.Session.Normalize()
	m.store.SetAuth(resp.Payload())
	m.store.SetLoading(false)
	m.transitionQuiet(ctx, PhaseAuthenticated)

	m.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    userID(resp.User),
	})
	m.nav.Push(m.landingPath)
	return nil
}

// SignOut invalidates the session remotely on a best-effort basis. Local
// state clearing and the redirect home are unconditional: sign-out always
// succeeds from the client's perspective.
func (m *Manager) SignOut(ctx context.Context) {
	snap := m.store.Snapshot()
	if snap.Session != nil && snap.Session.AccessToken != "" {
		if err := m.api.SignOut(ctx, snap.Session.AccessToken); err != nil {
			m.logger.Warn("remote sign-out failed, clearing locally anyway: %v", err)
		}
	}

	m.store.Logout()
	m.store.SetLoading(false)
	m.transitionQuiet(ctx, PhaseUnauthenticated)

	m.record(ctx, ActivityEvent{
		EventType: ActivityEventSignOut,
		UserID:    userID(snap.User),
	})
	m.nav.Push(m.rootPath)
}

// handleAuthError reacts to a failed revalidation or profile call. Only a
// definitive 401 clears state; anything else is left to the caller's
// logging. The clear-and-redirect fires at most once: a second 401 finds no
// session and does nothing, so there is no redirect loop on pages that
// never held credentials.
func (m *Manager) handleAuthError(ctx context.Context, err error) {
	if !IsUnauthorizedError(err) {
		return
	}

	m.unauthMu.Lock()
	defer m.unauthMu.Unlock()

	snap := m.store.Snapshot()
	if snap.Session == nil {
		return
	}

	m.store.Logout()
	m.store.SetLoading(false)
	m.transitionQuiet(ctx, PhaseUnauthenticated)

	m.record(ctx, ActivityEvent{
		EventType: ActivityEventUnauthorized,
		UserID:    userID(snap.User),
	})
	m.nav.Push(m.rootPath)
}

// verifyPersisted guards against a persistence backend that silently drops
// writes: re-read once, retry the write once, then give up with a log. A
// correctness safety net, not a normal path.
func (m *Manager) verifyPersisted(ctx context.Context) {
	if m.store.ConfirmPersisted(ctx) {
		return
	}

	m.logger.Warn("auth state not observed in storage after write, retrying once")
	m.store.Persist(ctx)

	if !m.store.ConfirmPersisted(ctx) {
		m.logger.Error("%v", ErrPersistenceVerify)
	}
}

func (m *Manager) transitionQuiet(ctx context.Context, target Phase) {
	if err := m.lifecycle.Transition(ctx, target); err != nil {
		m.logger.Debug("lifecycle transition to %s skipped: %v", target, err)
	}
}

func (m *Manager) record(ctx context.Context, event ActivityEvent) {
	event = stampEvent(event, m.now)
	if err := m.sink.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error: %v", err)
	}
}

func userID(user *UserProfile) string {
	if user == nil {
		return ""
	}
	return user.ID
}
