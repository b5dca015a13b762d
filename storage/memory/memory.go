// Package memory provides an in-process storage.Store, used as the default
// backend and as a controllable double in tests.
package memory

import (
	"context"
	"sync"

	"github.com/goliatone/go-authclient/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	data  []byte
	has   bool
	ready chan struct{}
	once  sync.Once
}

// New returns a store that is ready immediately.
func New() *Store {
	s := NewPending()
	s.MarkReady()
	return s
}

// NewPending returns a store whose readiness must be signaled explicitly
// with MarkReady. Tests use it to exercise the hydration timeout race.
func NewPending() *Store {
	return &Store{ready: make(chan struct{})}
}

// MarkReady signals readiness. Safe to call more than once.
func (s *Store) MarkReady() {
	s.once.Do(func() { close(s.ready) })
}

func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

func (s *Store) Load(ctx context.Context) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has {
		return nil, false, nil
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, true, nil
}

func (s *Store) Save(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make([]byte, len(data))
	copy(s.data, data)
	s.has = true
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	s.has = false
	return nil
}
