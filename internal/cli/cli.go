// Package cli implements the opsched command-line interface.
//
// The CLI fronts the scheduling pipeline: commands load a graph document,
// build a read-only view, compute execution orders, and render diagrams.
// Results are cached between invocations using the configured backend.
//
// # Commands
//
// The main commands are:
//   - order: compute default or priority execution orders
//   - inspect: summarize a graph and browse its orders interactively
//   - render: write DOT or SVG diagrams ranked by execution order
//   - serve: run the scheduling API server
//   - cache: manage the pipeline result cache
//
// # Configuration
//
// All commands support --verbose (-v) for debug-level logging. A TOML
// config file (default ~/.config/opsched/config.toml, override with
// --config) supplies defaults that flags override.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/tensorlab/opsched/pkg/buildinfo"
	"github.com/tensorlab/opsched/pkg/cache"
	"github.com/tensorlab/opsched/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "opsched"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *Config
}

// New creates a CLI with a logger writing to w at the given level and the
// built-in configuration defaults.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: DefaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands
// registered. The config file is resolved in PersistentPreRunE so every
// command sees the merged configuration.
func (c *CLI) RootCommand() *cobra.Command {
	var (
		verbose bool
		cfgPath string
	)

	root := &cobra.Command{
		Use:          appName,
		Short:        "Opsched computes execution orders for ML dataflow graphs",
		Long:         `Opsched loads ONNX-style graph documents, computes deterministic default and priority-aware execution orders, and renders or serves the results.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.SetLogLevel(log.DebugLevel)
			}
			cfg, err := LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a TOML config file")

	root.AddCommand(c.orderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	backend, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(backend, nil, c.Logger), nil
}

// newCache builds the configured cache backend. noCache forces the null
// cache regardless of configuration.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	return c.newCacheBackend(ctx, c.Config.Cache.Backend)
}

// newCacheBackend builds the cache backend with the given name. A file
// cache whose directory cannot be resolved degrades to the null cache
// rather than failing the command.
func (c *CLI) newCacheBackend(ctx context.Context, backend string) (cache.Cache, error) {
	switch backend {
	case cacheBackendNone:
		return cache.NewNullCache(), nil
	case cacheBackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Config.Cache.Redis.Addr,
			Password: c.Config.Cache.Redis.Password,
			DB:       c.Config.Cache.Redis.DB,
		})
	case cacheBackendFile:
		dir, err := c.resolveCacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// resolveCacheDir returns the configured cache directory, falling back to
// the XDG default.
func (c *CLI) resolveCacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG conventions
// (~/.cache/opsched/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// parseKinds expands and validates --kind values. "both" selects every
// order kind; duplicates collapse.
func parseKinds(values []string) ([]string, error) {
	var kinds []string
	seen := make(map[string]bool)
	add := func(k string) {
		if !seen[k] {
			kinds = append(kinds, k)
			seen[k] = true
		}
	}
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "both" {
			add(pipeline.KindDefault)
			add(pipeline.KindPriority)
			continue
		}
		if err := pipeline.ValidateKind(v); err != nil {
			return nil, err
		}
		add(v)
	}
	return kinds, nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(parts[i]))
	}
	return parts
}
