// Package cache provides byte-oriented caching for scheduling pipeline
// stages, with file, Redis, and null backends plus key construction
// helpers.
//
// Pipeline results are keyed by content: a graph document hashes to a
// graph key, an execution order is keyed by the graph hash plus the order
// options, and a rendered artifact is keyed by the order it visualizes.
// Identical inputs therefore share cache entries across commands, server
// instances, and machines.
package cache

import (
	"context"
	"time"
)

// Default TTLs per stage. Graph documents are kept longest since orders
// and artifacts can always be recomputed from them.
const (
	TTLGraph  = 24 * time.Hour
	TTLOrder  = 12 * time.Hour
	TTLRender = 6 * time.Hour
)

// Cache is the storage interface shared by the pipeline and the server.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present; an expired or missing entry is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero stores without expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Pruner is implemented by backends that can drop expired entries eagerly
// instead of waiting for reads to heal them. Backends with native expiry,
// like Redis, do not need it.
type Pruner interface {
	// Prune removes expired and unreadable entries, returning how many
	// were removed.
	Prune(ctx context.Context) (int, error)
}

// OrderKeyOpts are the inputs that change a computed execution order for
// one and the same graph.
type OrderKeyOpts struct {
	Kind     string `json:"kind"`
	Training bool   `json:"training"`
	Minimal  bool   `json:"minimal"`
	// Filter is a canonical fingerprint of the node filter, empty for a
	// whole-graph order.
	Filter string `json:"filter,omitempty"`
}

// RenderKeyOpts are the inputs that change a rendered artifact for one and
// the same execution order.
type RenderKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed,omitempty"`
}

// Keyer builds namespaced cache keys for pipeline stages.
type Keyer interface {
	// GraphKey keys a graph document by its content hash.
	GraphKey(graphHash string) string

	// OrderKey keys an execution order computed from the graph with the
	// given hash under the given options.
	OrderKey(graphHash string, opts OrderKeyOpts) string

	// RenderKey keys an artifact rendered from the order with the given
	// hash.
	RenderKey(orderHash string, opts RenderKeyOpts) string
}

// DefaultKeyer builds keys of the form "namespace:sha256(...)".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// GraphKey generates a key for graph document caching. graphHash is
// already a content hash, so it is namespaced without re-hashing.
func (k *DefaultKeyer) GraphKey(graphHash string) string {
	return "graph:" + graphHash
}

// OrderKey generates a key for execution order caching.
func (k *DefaultKeyer) OrderKey(graphHash string, opts OrderKeyOpts) string {
	return hashKey("order", graphHash, opts)
}

// RenderKey generates a key for rendered artifact caching.
func (k *DefaultKeyer) RenderKey(orderHash string, opts RenderKeyOpts) string {
	return hashKey("render", orderHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
