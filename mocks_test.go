package authclient_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	authclient "github.com/goliatone/go-authclient"
	"github.com/goliatone/go-authclient/storage"
)

// MockAPI implements authclient.API
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) LoginURL(ctx context.Context, redirectTo string) (string, error) {
	args := m.Called(ctx, redirectTo)
	return args.String(0), args.Error(1)
}

func (m *MockAPI) Session(ctx context.Context, accessToken string) (*authclient.SessionResponse, error) {
	args := m.Called(ctx, accessToken)
	var resp *authclient.SessionResponse
	if v := args.Get(0); v != nil {
		resp = v.(*authclient.SessionResponse)
	}
	return resp, args.Error(1)
}

func (m *MockAPI) Me(ctx context.Context, accessToken string) (*authclient.MeResponse, error) {
	args := m.Called(ctx, accessToken)
	var resp *authclient.MeResponse
	if v := args.Get(0); v != nil {
		resp = v.(*authclient.MeResponse)
	}
	return resp, args.Error(1)
}

func (m *MockAPI) SignOut(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

func (m *MockAPI) ExchangeCode(ctx context.Context, code string) (*authclient.LoginResponse, error) {
	args := m.Called(ctx, code)
	var resp *authclient.LoginResponse
	if v := args.Get(0); v != nil {
		resp = v.(*authclient.LoginResponse)
	}
	return resp, args.Error(1)
}

func (m *MockAPI) PasswordLogin(ctx context.Context, email, password string) (*authclient.LoginResponse, error) {
	args := m.Called(ctx, email, password)
	var resp *authclient.LoginResponse
	if v := args.Get(0); v != nil {
		resp = v.(*authclient.LoginResponse)
	}
	return resp, args.Error(1)
}

// recordingNavigator captures every Push for assertions.
type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Push(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.paths))
	copy(out, n.paths)
	return out
}

// captureSink collects activity events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []authclient.ActivityEvent
}

func (s *captureSink) Record(ctx context.Context, event authclient.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) Types() []authclient.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]authclient.ActivityEventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.EventType
	}
	return out
}

func (s *captureSink) Has(t authclient.ActivityEventType) bool {
	for _, got := range s.Types() {
		if got == t {
			return true
		}
	}
	return false
}

// testConfig implements authclient.Config
type testConfig struct {
	baseURL      string
	origin       string
	storageKey   string
	hydrationMS  int
	requestMS    int
	callbackPath string
	landingPath  string
	rootPath     string
}

func (c testConfig) GetBaseURL() string       { return c.baseURL }
func (c testConfig) GetOrigin() string        { return c.origin }
func (c testConfig) GetStorageKey() string    { return c.storageKey }
func (c testConfig) GetHydrationTimeout() int { return c.hydrationMS }
func (c testConfig) GetRequestTimeout() int   { return c.requestMS }
func (c testConfig) GetCallbackPath() string  { return c.callbackPath }
func (c testConfig) GetLandingPath() string   { return c.landingPath }
func (c testConfig) GetRootPath() string      { return c.rootPath }

// countingBackend wraps a storage.Store and counts saves. When dropWrites
// is positive the next saves report success without storing anything.
type countingBackend struct {
	inner      storage.Store
	mu         sync.Mutex
	saves      int
	dropWrites int
}

func (b *countingBackend) Ready() <-chan struct{} {
	return b.inner.Ready()
}

func (b *countingBackend) Load(ctx context.Context) ([]byte, bool, error) {
	return b.inner.Load(ctx)
}

func (b *countingBackend) Save(ctx context.Context, data []byte) error {
	b.mu.Lock()
	b.saves++
	if b.dropWrites > 0 {
		b.dropWrites--
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()
	return b.inner.Save(ctx, data)
}

func (b *countingBackend) Clear(ctx context.Context) error {
	return b.inner.Clear(ctx)
}

func (b *countingBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

func boolPtr(v bool) *bool { return &v }
