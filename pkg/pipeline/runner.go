package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tensorlab/opsched/pkg/cache"
	"github.com/tensorlab/opsched/pkg/graph"
	"github.com/tensorlab/opsched/pkg/graph/view"
	"github.com/tensorlab/opsched/pkg/graphio"
	"github.com/tensorlab/opsched/pkg/observability"
	"github.com/tensorlab/opsched/pkg/render/nodelink"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, caching is disabled.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → build → order → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{
		Orders:    make(map[string][]graph.NodeIndex),
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Load
	loadStart := time.Now()
	g, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Stats.LoadTime = time.Since(loadStart)

	r.Logger.Info("loaded graph document",
		"source", opts.sourceLabel(),
		"nodes", g.NumNodes(),
		"duration", result.Stats.LoadTime)

	// Stage 2: Build
	buildStart := time.Now()
	v, err := r.Build(ctx, g, opts)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	result.View = v
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.NodeCount = v.NumNodes()
	result.Stats.EdgeCount = g.NumEdges()

	// Compute the graph hash for cache keys and API responses, and write
	// the canonical document through so CachedDocument can recover the
	// exact graph behind any downstream cache entry.
	var canonical bytes.Buffer
	if err := graphio.WriteJSON(g, &canonical); err == nil {
		result.GraphHash = cache.Hash(canonical.Bytes())
		key := r.Keyer.GraphKey(result.GraphHash)
		if err := r.Cache.Set(ctx, key, canonical.Bytes(), cache.TTLGraph); err == nil {
			observability.Cache().OnCacheSet(ctx, "graph", canonical.Len())
		}
	}

	r.Logger.Info("built graph view",
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"duration", result.Stats.BuildTime)

	// Stage 3: Order
	orderStart := time.Now()
	allHit := true
	for _, kind := range opts.Kinds {
		nodes, hit, err := r.OrderWithCacheInfo(ctx, v, kind, opts)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", kind, err)
		}
		result.Orders[kind] = nodes
		if !hit {
			allHit = false
		}
	}
	result.Stats.OrderTime = time.Since(orderStart)
	result.CacheInfo.OrderHit = allHit

	r.Logger.Info("computed execution orders",
		"kinds", opts.Kinds,
		"duration", result.Stats.OrderTime)

	// Stage 4: Render (optional)
	if opts.WantsRender() {
		renderStart := time.Now()
		order := result.Orders[opts.Kinds[0]]
		artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, v, order, opts)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		result.Artifacts = artifacts
		result.Stats.RenderTime = time.Since(renderStart)
		result.CacheInfo.RenderHit = renderHit

		r.Logger.Info("rendered artifacts",
			"formats", opts.Formats,
			"duration", result.Stats.RenderTime)
	}

	return result, nil
}

// Load decodes the graph document named by the options. The returned graph
// is unresolved; Build (or graph.Resolve) connects its edges.
func (r *Runner) Load(ctx context.Context, opts Options) (*graph.Graph, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	source := opts.sourceLabel()
	start := time.Now()
	observability.Pipeline().OnLoadStart(ctx, source)

	g, err := loadDocument(opts)
	observability.Pipeline().OnLoadComplete(ctx, source, nodeCount(g), time.Since(start), err)
	return g, err
}

// loadDocument picks the decoder: by file extension for paths, by the
// declared source format for inline bytes.
func loadDocument(opts Options) (*graph.Graph, error) {
	if opts.Path != "" {
		return graphio.Import(opts.Path)
	}
	switch opts.SourceFormat {
	case SourceJSON:
		return graphio.ReadJSON(bytes.NewReader(opts.Source))
	case SourceTOML:
		return graphio.ReadTOML(bytes.NewReader(opts.Source))
	default:
		return nil, fmt.Errorf("%w: %q", graphio.ErrUnknownFormat, opts.SourceFormat)
	}
}

// nodeCount tolerates nil graphs for hook reporting.
func nodeCount(g *graph.Graph) int {
	if g == nil {
		return 0
	}
	return g.NumNodes()
}

// Build resolves the graph and constructs its read-only view. A graph that
// is already resolved is viewed as-is.
func (r *Runner) Build(ctx context.Context, g *graph.Graph, opts Options) (*view.View, error) {
	if !g.IsResolved() {
		if err := g.Resolve(); err != nil {
			return nil, err
		}
	}
	return view.New(g, opts.ViewOptions()...)
}

// GraphHash computes the content hash of a resolved graph from its
// canonical JSON export. Two documents describing the same graph hash
// identically regardless of input format or formatting.
func GraphHash(g *graph.Graph) (string, error) {
	var buf bytes.Buffer
	if err := graphio.WriteJSON(g, &buf); err != nil {
		return "", err
	}
	return cache.Hash(buf.Bytes()), nil
}

// CachedDocument returns the canonical JSON document Execute cached for a
// graph hash, if any. Operators can use this to recover the exact graph
// behind a cached order or artifact.
func (r *Runner) CachedDocument(ctx context.Context, graphHash string) ([]byte, bool, error) {
	return r.Cache.Get(ctx, r.Keyer.GraphKey(graphHash))
}

// OrderWithCacheInfo computes one execution order with caching and returns cache hit info.
func (r *Runner) OrderWithCacheInfo(ctx context.Context, v *view.View, kind string, opts Options) ([]graph.NodeIndex, bool, error) {
	execOrder, err := ExecutionOrder(kind)
	if err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	// Compute cache key
	graphHash, err := GraphHash(v.Graph())
	if err != nil {
		return nil, false, fmt.Errorf("hash graph for cache key: %w", err)
	}
	cacheKey := r.Keyer.OrderKey(graphHash, opts.OrderKeyOpts(kind))

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if nodes, err := unmarshalOrder(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "order")
				return nodes, true, nil // Cache hit
			}
		}
		observability.Cache().OnCacheMiss(ctx, "order")
	}

	// Compute
	start := time.Now()
	observability.Pipeline().OnOrderStart(ctx, kind, v.NumNodes())
	nodes, err := v.NodesInTopologicalOrder(execOrder)
	observability.Pipeline().OnOrderComplete(ctx, kind, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache the result
	if data, err := marshalOrder(nodes); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLOrder)
		observability.Cache().OnCacheSet(ctx, "order", len(data))
	}

	return nodes, false, nil // Cache miss
}

// Order is a convenience wrapper that calls OrderWithCacheInfo and discards the cache hit info.
func (r *Runner) Order(ctx context.Context, v *view.View, kind string, opts Options) ([]graph.NodeIndex, error) {
	nodes, _, err := r.OrderWithCacheInfo(ctx, v, kind, opts)
	return nodes, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
// The order gives each node its emission position in the diagram; it may be
// nil to draw the graph without positions.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, v *view.View, order []graph.NodeIndex, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	// Key artifacts by everything that changes the drawing apart from the
	// format options: graph content, node filter, and the order itself.
	renderHash, err := renderHash(v, order, opts)
	if err != nil {
		return nil, false, fmt.Errorf("hash inputs for cache key: %w", err)
	}

	// Try to get all formats from cache
	artifacts := make(map[string][]byte)
	if !opts.Refresh {
		allCached := true
		for _, format := range opts.Formats {
			cacheKey := r.Keyer.RenderKey(renderHash, opts.RenderKeyOpts(format))
			if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
				artifacts[format] = data
			} else {
				allCached = false
				break
			}
		}
		if allCached && len(artifacts) == len(opts.Formats) {
			observability.Cache().OnCacheHit(ctx, "render")
			return artifacts, true, nil // All artifacts from cache
		}
		observability.Cache().OnCacheMiss(ctx, "render")
	}

	// Render all formats
	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	rendered, err := renderArtifacts(v, order, opts)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.RenderKey(renderHash, opts.RenderKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLRender)
		observability.Cache().OnCacheSet(ctx, "render", len(data))
	}

	return rendered, false, nil // Cache miss
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, v *view.View, order []graph.NodeIndex, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, v, order, opts)
	return artifacts, err
}

// renderArtifacts generates output artifacts in the requested formats.
func renderArtifacts(v *view.View, order []graph.NodeIndex, opts Options) (map[string][]byte, error) {
	dot := nodelink.ToDOT(v, order, nodelink.Options{Detailed: opts.Detailed})

	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		switch format {
		case FormatDOT:
			artifacts[format] = []byte(dot)
		case FormatSVG:
			data, err := nodelink.RenderSVG(dot)
			if err != nil {
				return nil, fmt.Errorf("render %s: %w", format, err)
			}
			artifacts[format] = data
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}
	}
	return artifacts, nil
}

// renderHash hashes the drawing inputs for artifact cache keys.
func renderHash(v *view.View, order []graph.NodeIndex, opts Options) (string, error) {
	graphHash, err := GraphHash(v.Graph())
	if err != nil {
		return "", err
	}
	payload := struct {
		Graph  string            `json:"graph"`
		Filter string            `json:"filter,omitempty"`
		Order  []graph.NodeIndex `json:"order,omitempty"`
	}{
		Graph:  graphHash,
		Filter: opts.FilterFingerprint(),
		Order:  order,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return cache.Hash(data), nil
}

// marshalOrder serializes an execution order for caching.
func marshalOrder(nodes []graph.NodeIndex) ([]byte, error) {
	return json.Marshal(nodes)
}

// unmarshalOrder deserializes a cached execution order.
func unmarshalOrder(data []byte) ([]graph.NodeIndex, error) {
	var nodes []graph.NodeIndex
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
