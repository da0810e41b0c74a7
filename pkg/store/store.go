// Package store persists graph documents for the serving API.
//
// This package defines the storage interface for uploaded graphs, with
// implementations for different backends:
//   - memory: in-memory storage for development, tests, and single-instance serving
//   - mongo: MongoDB-backed storage for multi-instance deployments
//
// Records carry the raw document bytes rather than a built graph: the
// pipeline re-decodes on demand, so stored data stays valid across
// schema-compatible code changes and the store never holds pointers into
// live graphs.
//
// # Usage
//
// Create a store:
//
//	// Development
//	st := store.NewMemoryStore()
//
//	// Production
//	st, err := store.NewMongoStore(ctx, store.MongoConfig{
//	    URI:      "mongodb://localhost:27017",
//	    Database: "opsched",
//	})
//
// Manage records:
//
//	rec := &store.Record{ID: id, Name: g.Name(), Data: docBytes}
//	if err := st.Put(ctx, rec); err != nil {
//	    return err
//	}
//
//	rec, err := st.Get(ctx, id)
//	if errors.Is(err, store.ErrNotFound) {
//	    // unknown ID
//	}
package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for store operations.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when a record exists but has passed its
	// expiry time.
	ErrExpired = errors.New("expired")
)

// Record is a stored graph document.
type Record struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Data      []byte    `json:"data" bson:"data"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}

// IsExpired reports whether the record has passed its expiry time. A zero
// ExpiresAt never expires.
func (r *Record) IsExpired() bool {
	return !r.ExpiresAt.IsZero() && time.Now().After(r.ExpiresAt)
}

// Store is the interface for graph document storage backends.
type Store interface {
	// Get retrieves a record by ID. Returns [ErrNotFound] for an unknown
	// ID and [ErrExpired] for a record past its expiry time.
	Get(ctx context.Context, id string) (*Record, error)

	// Put stores a record, replacing any existing record with the same
	// ID. A zero CreatedAt is stamped with the current time.
	Put(ctx context.Context, rec *Record) error

	// Delete removes a record. Returns [ErrNotFound] when nothing was
	// removed.
	Delete(ctx context.Context, id string) error

	// List returns all live records ordered by creation time.
	List(ctx context.Context) ([]*Record, error)

	// Cleanup removes expired records (may be a no-op for backends with
	// native expiry).
	Cleanup(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
