package session

import (
	"context"
	"time"
)

// Store is the persistence contract for per-visitor session state.
// Implementations must be safe for concurrent use. The engine treats a Store
// as a durable key-value mapping with read-your-writes consistency within one
// session; no cross-session transactionality is required.
type Store interface {
	// Save persists serialized session state, overwriting any prior state for
	// sessionID. expiresAt is the eviction deadline; every save renews it.
	Save(ctx context.Context, sessionID string, data []byte, expiresAt time.Time) error

	// Load retrieves session state by ID.
	// Returns (nil, nil) when the session does not exist or has expired.
	Load(ctx context.Context, sessionID string) ([]byte, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// Touch renews the eviction deadline without rewriting state.
	// Touching a missing session is not an error.
	Touch(ctx context.Context, sessionID string, expiresAt time.Time) error

	// SaveAll persists multiple sessions, atomically where the backend allows.
	// Used on graceful shutdown.
	SaveAll(ctx context.Context, sessions map[string]StoredState) error

	// Close releases resources held by the store.
	Close() error
}

// StoredState is serialized session state together with its eviction deadline.
type StoredState struct {
	Data      []byte
	ExpiresAt time.Time
}

// ErrStoreClosed is returned when operations are attempted on a closed store.
type ErrStoreClosed struct{}

func (ErrStoreClosed) Error() string {
	return "session store is closed"
}
