package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/brim/internal/config"
	"git.home.luguber.info/inful/brim/internal/errors"
	"git.home.luguber.info/inful/brim/internal/metrics"
	"git.home.luguber.info/inful/brim/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Source      string `arg:"" optional:"" help:"Source directory (overrides config)"`
	Template    string `short:"t" help:"Template file (overrides config)"`
	Output      string `short:"o" help:"Output directory (overrides config)"`
	Workers     int    `short:"w" help:"Number of render workers (overrides config)"`
	Escape      string `help:"Escape mode for substituted values: none, html or sanitize"`
	Incremental bool   `short:"i" help:"Skip records whose output is up to date"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics to this file after the build"`
	Strict      bool   `help:"Fail when the build produced diagnostics"`
}

// overrides are the flags shared by build and watch.
type overrides struct {
	Source      string
	Template    string
	Output      string
	Workers     int
	Escape      string
	Incremental bool
}

func (o overrides) apply(cfg *config.Config) error {
	if o.Source != "" {
		cfg.Source = o.Source
	}
	if o.Template != "" {
		cfg.Template = o.Template
	}
	if o.Output != "" {
		cfg.Output = o.Output
	}
	if o.Workers > 0 {
		cfg.Workers = o.Workers
	}
	if o.Escape != "" {
		cfg.Escape = o.Escape
	}
	if o.Incremental {
		cfg.Incremental = true
	}
	return cfg.Validate()
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	o := overrides{b.Source, b.Template, b.Output, b.Workers, b.Escape, b.Incremental}
	if err := o.apply(cfg); err != nil {
		return err
	}
	if b.MetricsFile != "" {
		cfg.Metrics.Textfile = b.MetricsFile
	}

	reg := prom.NewRegistry()
	opts := []pipeline.Option{
		pipeline.WithLogger(g.logger()),
		pipeline.WithRecorder(metrics.NewPrometheusRecorder(reg)),
		pipeline.WithConfigPath(root.Config),
	}
	if cfg.Metrics.Textfile != "" {
		opts = append(opts, pipeline.WithTextfile(cfg.Metrics.Textfile, reg))
	}

	res, err := pipeline.New(cfg, opts...).Run(g.context())
	if err != nil {
		return err
	}
	printSummary(g, res)
	if b.Strict && len(res.Diagnostics) > 0 {
		return errors.New(errors.CategoryRender, errors.SeverityError, "build finished with diagnostics").
			WithContext("count", len(res.Diagnostics))
	}
	return nil
}

func printSummary(g *Global, res *pipeline.Result) {
	out := g.out()
	_, _ = fmt.Fprintf(out, "Rendered %d, skipped %d, failed %d; mirrored %d files (%d optimized) in %s\n",
		res.Rendered, res.Skipped, res.Failed, res.Copied, res.Transcoded, res.Duration.Round(1e6))
	for _, d := range res.Diagnostics {
		_, _ = fmt.Fprintf(out, "  %s\n", d)
	}
	if n := len(res.Diagnostics); n > 0 {
		_, _ = fmt.Fprintf(out, "%s %s\n", humanize.Comma(int64(n)), plural(n, "diagnostic", "diagnostics"))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
