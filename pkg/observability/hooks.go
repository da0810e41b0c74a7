// Package observability lets embedders instrument the module without the
// module depending on any metrics or tracing framework.
//
// The pipeline, cache, and HTTP layers emit events through three small hook
// interfaces. Each has a no-op default, so instrumentation costs nothing
// until a main package registers an implementation at startup:
//
//	observability.SetPipelineHooks(&promPipelineHooks{})
//	observability.SetCacheHooks(&promCacheHooks{})
//
// Emitting code fetches the current hooks through the accessors:
//
//	observability.Pipeline().OnOrderStart(ctx, kind, nodeCount)
//
// Registration is expected before the first pipeline run; the accessors are
// safe for concurrent use afterwards.
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives events from the scheduling pipeline.
type PipelineHooks interface {
	// Load events. Source is the document path, or "inline" for raw bytes.
	OnLoadStart(ctx context.Context, source string)
	OnLoadComplete(ctx context.Context, source string, nodeCount int, duration time.Duration, err error)

	// Order events. Kind is "default" or "priority".
	OnOrderStart(ctx context.Context, kind string, nodeCount int)
	OnOrderComplete(ctx context.Context, kind string, duration time.Duration, err error)

	// Render events
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// CacheHooks receives cache traffic events. KeyType is the cache namespace:
// "graph", "order", or "render".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// ServerHooks receives events from the HTTP serving surface.
type ServerHooks interface {
	OnRequest(ctx context.Context, method, path string)
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// NoopPipelineHooks discards all pipeline events.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLoadStart(context.Context, string) {}
func (NoopPipelineHooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnOrderStart(context.Context, string, int)                        {}
func (NoopPipelineHooks) OnOrderComplete(context.Context, string, time.Duration, error)    {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                          {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {}

// NoopCacheHooks discards all cache events.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopServerHooks discards all server events.
type NoopServerHooks struct{}

func (NoopServerHooks) OnRequest(context.Context, string, string)                      {}
func (NoopServerHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// registry holds the active hooks behind one lock. Reads vastly outnumber
// writes, so an RWMutex keeps the accessors cheap.
var registry = struct {
	sync.RWMutex
	pipeline PipelineHooks
	cache    CacheHooks
	server   ServerHooks
}{
	pipeline: NoopPipelineHooks{},
	cache:    NoopCacheHooks{},
	server:   NoopServerHooks{},
}

// SetPipelineHooks registers pipeline hooks. A nil value is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h == nil {
		return
	}
	registry.Lock()
	registry.pipeline = h
	registry.Unlock()
}

// SetCacheHooks registers cache hooks. A nil value is ignored.
func SetCacheHooks(h CacheHooks) {
	if h == nil {
		return
	}
	registry.Lock()
	registry.cache = h
	registry.Unlock()
}

// SetServerHooks registers server hooks. A nil value is ignored.
func SetServerHooks(h ServerHooks) {
	if h == nil {
		return
	}
	registry.Lock()
	registry.server = h
	registry.Unlock()
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	registry.RLock()
	defer registry.RUnlock()
	return registry.pipeline
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	registry.RLock()
	defer registry.RUnlock()
	return registry.cache
}

// Server returns the registered server hooks.
func Server() ServerHooks {
	registry.RLock()
	defer registry.RUnlock()
	return registry.server
}

// Reset restores the no-op defaults. Tests use it to isolate registrations.
func Reset() {
	registry.Lock()
	defer registry.Unlock()
	registry.pipeline = NoopPipelineHooks{}
	registry.cache = NoopCacheHooks{}
	registry.server = NoopServerHooks{}
}
