// Package bunstore provides a bun/SQLite-backed storage.Store for hosts
// that already carry a SQLite database. The record is one row, replaced by
// upsert on every save.
package bunstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-authclient/storage"
)

type authRecord struct {
	bun.BaseModel `bun:"table:auth_state"`

	ID        string    `bun:"id,pk"`
	Payload   []byte    `bun:"payload"`
	UpdatedAt time.Time `bun:"updated_at"`
}

var _ storage.Store = (*Store)(nil)

type Store struct {
	db    *bun.DB
	key   string
	ready chan struct{}
	once  sync.Once
}

// New returns a store backed by an existing bun DB. It creates the backing
// table when missing, then signals readiness.
func New(ctx context.Context, db *bun.DB, key string) (*Store, error) {
	s := &Store{db: db, key: key, ready: make(chan struct{})}

	if _, err := db.NewCreateTable().
		Model((*authRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("creating auth_state table: %w", err)
	}

	s.once.Do(func() { close(s.ready) })
	return s, nil
}

// NewFromFile opens a SQLite database at path and returns a store on top of
// it.
func NewFromFile(ctx context.Context, path, key string) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	return New(ctx, db, key)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

func (s *Store) Load(ctx context.Context) ([]byte, bool, error) {
	rec := &authRecord{}
	err := s.db.NewSelect().
		Model(rec).
		Where("id = ?", s.key).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return rec.Payload, true, nil
}

func (s *Store) Save(ctx context.Context, data []byte) error {
	rec := &authRecord{
		ID:        s.key,
		Payload:   data,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(rec).
		On("CONFLICT (id) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*authRecord)(nil)).
		Where("id = ?", s.key).
		Exec(ctx)
	return err
}
