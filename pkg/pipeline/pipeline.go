// Package pipeline provides the core scheduling pipeline for opsched.
//
// This package implements the complete load → build → order → render
// pipeline that can be used by CLI and API components. By centralizing this
// logic, we ensure consistent behavior across all entry points and avoid
// code duplication.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: Decode a graph document from JSON or TOML
//  2. Build: Resolve the graph and construct a read-only view
//  3. Order: Compute the requested execution orders
//  4. Render: Generate diagram artifacts (DOT, SVG) when requested
//
// Each stage can be run independently or as part of the complete pipeline.
// Orders and artifacts are cached by the graph's content hash, so repeated
// runs over the same document skip recomputation regardless of which entry
// point submitted it.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Path:  "model.json",
//	    Kinds: []string{pipeline.KindPriority},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	order := result.Orders[pipeline.KindPriority]
//
// Run individual stages:
//
//	// Load only
//	g, err := runner.Load(ctx, opts)
//
//	// Build a view from an existing graph
//	v, err := runner.Build(ctx, g, opts)
//
//	// Order an existing view
//	nodes, err := runner.Order(ctx, v, pipeline.KindDefault, opts)
package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tensorlab/opsched/pkg/cache"
	"github.com/tensorlab/opsched/pkg/graph"
	"github.com/tensorlab/opsched/pkg/graph/view"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// Kind constants for execution order kinds.
const (
	KindDefault  = "default"
	KindPriority = "priority"
)

// Format constants for artifact formats.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// Source format constants for inline documents.
const (
	SourceJSON = "json"
	SourceTOML = "toml"
)

// ValidKinds is the set of supported execution order kinds.
var ValidKinds = map[string]bool{
	KindDefault:  true,
	KindPriority: true,
}

// ValidFormats is the set of supported artifact formats.
var ValidFormats = map[string]bool{
	FormatDOT: true,
	FormatSVG: true,
}

// ValidSourceFormats is the set of supported inline document formats.
var ValidSourceFormats = map[string]bool{
	SourceJSON: true,
	SourceTOML: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the scheduling pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options. Exactly one of Path or Source must be set. Path
	// selects the document format by extension; Source requires
	// SourceFormat.
	Path         string `json:"path,omitempty"`
	Source       []byte `json:"source,omitempty"`
	SourceFormat string `json:"source_format,omitempty"`

	// Build options
	Training bool                  `json:"training,omitempty"`
	Minimal  bool                  `json:"minimal,omitempty"`
	Filter   *view.IndexedSubGraph `json:"filter,omitempty"`

	// Order options
	Kinds   []string `json:"kinds,omitempty"`
	Refresh bool     `json:"refresh,omitempty"` // bypass caches and recompute

	// Render options. An empty format list disables the render stage.
	// Artifacts visualize the first requested order kind.
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// View is the read-only projection of the resolved graph.
	View *view.View

	// GraphHash is the content hash of the canonical graph document.
	GraphHash string

	// Orders contains the computed execution orders keyed by kind.
	Orders map[string][]graph.NodeIndex

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	LoadTime   time.Duration
	BuildTime  time.Duration
	OrderTime  time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	OrderHit  bool // Whether every requested order came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ExecutionOrder maps an order kind to the view's order selector.
func ExecutionOrder(kind string) (view.ExecutionOrder, error) {
	switch kind {
	case KindDefault:
		return view.OrderDefault, nil
	case KindPriority:
		return view.OrderPriority, nil
	default:
		return 0, fmt.Errorf("invalid kind: %q (must be one of: default, priority)", kind)
	}
}

// ValidateKind checks that an execution order kind is valid.
func ValidateKind(kind string) error {
	_, err := ExecutionOrder(kind)
	return err
}

// ValidateKinds checks that all kinds are valid.
func ValidateKinds(kinds []string) error {
	for _, k := range kinds {
		if err := ValidateKind(k); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFormat checks that an artifact format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSourceFormat checks that an inline document format is valid.
func ValidateSourceFormat(format string) error {
	if !ValidSourceFormats[format] {
		return fmt.Errorf("invalid source format: %q (must be one of: json, toml)", format)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForOrder(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks required fields for loading.
func (o *Options) ValidateForLoad() error {
	if o.Path == "" && len(o.Source) == 0 {
		return fmt.Errorf("path or source is required")
	}
	if o.Path != "" && len(o.Source) > 0 {
		return fmt.Errorf("path and source are mutually exclusive")
	}
	if len(o.Source) > 0 {
		if o.SourceFormat == "" {
			return fmt.Errorf("source_format is required with source")
		}
		if err := ValidateSourceFormat(o.SourceFormat); err != nil {
			return err
		}
	}
	o.setLoggerDefault()
	return nil
}

// SetOrderDefaults sets default values for order computation.
func (o *Options) SetOrderDefaults() {
	if len(o.Kinds) == 0 {
		o.Kinds = []string{KindDefault}
	}
	o.setLoggerDefault()
}

// ValidateForOrder validates and sets defaults for order computation.
func (o *Options) ValidateForOrder() error {
	o.SetOrderDefaults()
	if err := ValidateKinds(o.Kinds); err != nil {
		return err
	}
	if o.Minimal {
		for _, k := range o.Kinds {
			if k == KindPriority {
				return fmt.Errorf("priority order is unavailable on a minimal view")
			}
		}
	}
	return nil
}

// ValidateForRender validates the render configuration. An empty format
// list is valid and disables the render stage.
func (o *Options) ValidateForRender() error {
	o.setLoggerDefault()
	return ValidateFormats(o.Formats)
}

// setLoggerDefault ensures stage methods always have a logger to write to.
func (o *Options) setLoggerDefault() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// WantsRender reports whether any artifact formats were requested.
func (o *Options) WantsRender() bool {
	return len(o.Formats) > 0
}

// sourceLabel names the document source for logs and hooks.
func (o *Options) sourceLabel() string {
	if o.Path != "" {
		return o.Path
	}
	return "inline"
}

// ViewOptions maps the build options to view construction options.
func (o *Options) ViewOptions() []view.Option {
	var vopts []view.Option
	if o.Training {
		vopts = append(vopts, view.WithTraining(true))
	}
	if o.Minimal {
		vopts = append(vopts, view.WithMinimalBuild(true))
	}
	if o.Filter != nil {
		vopts = append(vopts, view.WithFilter(o.Filter))
	}
	return vopts
}

// OrderKeyOpts returns cache key options for the given order kind.
func (o *Options) OrderKeyOpts(kind string) cache.OrderKeyOpts {
	return cache.OrderKeyOpts{
		Kind:     kind,
		Training: o.Training,
		Minimal:  o.Minimal,
		Filter:   o.FilterFingerprint(),
	}
}

// RenderKeyOpts returns cache key options for the given artifact format.
func (o *Options) RenderKeyOpts(format string) cache.RenderKeyOpts {
	return cache.RenderKeyOpts{
		Format:   format,
		Detailed: o.Detailed,
	}
}

// FilterFingerprint returns a canonical fingerprint of the node filter, or
// the empty string when no filter is set. The order of indices within the
// filter does not change which nodes are viewed, so they are sorted.
func (o *Options) FilterFingerprint() string {
	if o.Filter == nil {
		return ""
	}
	indices := make([]int, len(o.Filter.Nodes))
	for i, n := range o.Filter.Nodes {
		indices[i] = int(n)
	}
	sort.Ints(indices)
	parts := make([]string, len(indices))
	for i, n := range indices {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
