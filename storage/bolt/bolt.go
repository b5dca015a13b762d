// Package bolt provides a bbolt-backed storage.Store. The persisted auth
// record lives under a single key in a single bucket; every save replaces
// the whole value inside one write transaction.
package bolt

import (
	"context"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/goliatone/go-authclient/storage"
)

var bucketName = []byte("authclient")

var _ storage.Store = (*Store)(nil)

type Store struct {
	db    *bbolt.DB
	key   []byte
	ready chan struct{}
	once  sync.Once
}

// New returns a store backed by an already opened bbolt database.
func New(db *bbolt.DB, key string) *Store {
	s := &Store{db: db, key: []byte(key), ready: make(chan struct{})}
	s.once.Do(func() { close(s.ready) })
	return s
}

// NewFromFile opens (or creates) a bbolt database at path.
func NewFromFile(path, key string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return New(db, key), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

func (s *Store) Load(ctx context.Context) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		if data := b.Get(s.key); data != nil {
			out = make([]byte, len(data))
			copy(out, data)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

func (s *Store) Save(ctx context.Context, data []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		return b.Put(s.key, data)
	})
}

func (s *Store) Clear(ctx context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		return b.Delete(s.key)
	})
}
