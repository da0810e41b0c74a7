package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tensorlab/opsched/pkg/pipeline"
)

// renderOpts collects the render command's flags.
type renderOpts struct {
	format   string
	kind     string
	training bool
	detailed bool
	output   string
	noCache  bool
	refresh  bool
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := &renderOpts{}

	cmd := &cobra.Command{
		Use:   "render <graph.{json,toml}>",
		Short: "Render a graph with nodes grouped by execution rank",
		Long: `Render draws the graph as a DOT or SVG diagram. Nodes on the same rank
were emitted at adjacent positions of the chosen execution order, so the
diagram reads top to bottom in scheduling order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.format, "format", "f", "", `output formats, comma-separated ("dot", "svg")`)
	flags.StringVarP(&opts.kind, "kind", "k", "", `execution order to rank by ("default" or "priority")`)
	flags.BoolVar(&opts.training, "training", false, "treat the graph as a training graph")
	flags.BoolVar(&opts.detailed, "detailed", false, "include node inputs and outputs in labels")
	flags.StringVarP(&opts.output, "output", "o", "", "output path (extension added per format)")
	flags.BoolVar(&opts.noCache, "no-cache", false, "bypass the result cache")
	flags.BoolVar(&opts.refresh, "refresh", false, "recompute even when a cached result exists")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts *renderOpts) error {
	formatValue := opts.format
	if formatValue == "" {
		formatValue = c.Config.Render.Format
	}
	formats := parseFormats(formatValue)
	if err := pipeline.ValidateFormats(formats); err != nil {
		return err
	}

	kindValue := opts.kind
	if kindValue == "" {
		kindValue = c.Config.Order.Kind
	}
	kinds, err := parseKinds([]string{kindValue})
	if err != nil {
		return err
	}
	kind := kinds[0]

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := pipeline.Options{
		Path:     input,
		Training: opts.training,
		Kinds:    []string{kind},
		Formats:  formats,
		Detailed: opts.detailed || c.Config.Render.Detailed,
		Refresh:  opts.refresh,
		Logger:   c.Logger,
	}

	sp := c.spin(ctx, "Rendering graph")
	result, err := runner.Execute(ctx, popts)
	if err != nil {
		sp.Stop()
		return err
	}

	base := basePath(opts.output, input)
	written := make([]string, 0, len(formats))
	for _, format := range formats {
		path := base + "." + format
		if err := os.WriteFile(path, result.Artifacts[format], 0o644); err != nil {
			sp.Stop()
			return fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}

	sp.StopWithSuccess(fmt.Sprintf("Rendered %s order", kind))
	for _, path := range written {
		printFile(path)
	}
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.RenderHit)
	return nil
}

// basePath derives the base output path. An empty output strips the
// extension from input; an output ending in a known format extension has
// that extension stripped so each format appends its own.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
