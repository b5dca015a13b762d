// Package storage defines the durable blob store behind the persisted auth
// state, plus the readiness signal the bootstrap races against.
package storage

import "context"

// Store persists a single opaque record. Writes are full replacements so a
// crash mid-write never leaves a partially written record behind.
type Store interface {
	// Load returns the stored record. The second value is false when no
	// record exists.
	Load(ctx context.Context) ([]byte, bool, error)

	// Save replaces the stored record wholesale.
	Save(ctx context.Context, data []byte) error

	// Clear removes the stored record.
	Clear(ctx context.Context) error

	// Ready is closed once the backend has finished opening and any prior
	// record is observable. Hydration races this signal against a bounded
	// timeout instead of guessing with a fixed delay.
	Ready() <-chan struct{}
}
