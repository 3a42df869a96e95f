package commands

import (
	"context"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/brim/internal/metrics"
	"git.home.luguber.info/inful/brim/internal/pipeline"
	"git.home.luguber.info/inful/brim/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Source      string        `arg:"" optional:"" help:"Source directory (overrides config)"`
	Template    string        `short:"t" help:"Template file (overrides config)"`
	Output      string        `short:"o" help:"Output directory (overrides config)"`
	Workers     int           `short:"w" help:"Number of render workers (overrides config)"`
	Escape      string        `help:"Escape mode for substituted values: none, html or sanitize"`
	Incremental bool          `short:"i" help:"Skip records whose output is up to date"`
	Interval    time.Duration `help:"Also rebuild on this interval (0 disables)"`
	Debounce    time.Duration `help:"Quiet period before a rebuild" default:"300ms"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address, e.g. :9464"`
}

func (c *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	o := overrides{c.Source, c.Template, c.Output, c.Workers, c.Escape, c.Incremental}
	if err := o.apply(cfg); err != nil {
		return err
	}

	ctx := g.context()
	log := g.logger()
	reg := prom.NewRegistry()
	reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	coord := pipeline.New(cfg,
		pipeline.WithLogger(log),
		pipeline.WithRecorder(metrics.NewPrometheusRecorder(reg)),
		pipeline.WithConfigPath(root.Config))

	dirs := []string{cfg.Source}
	if tdir := filepath.Dir(cfg.Template); !within(tdir, cfg.Source) {
		dirs = append(dirs, tdir)
	}
	w := watch.New(watch.BuilderFunc(func(ctx context.Context) (*pipeline.Result, error) {
		res, err := coord.Run(ctx)
		if err == nil {
			printSummary(g, res)
		}
		return res, err
	}), watch.Options{
		Dirs:     dirs,
		Ignore:   []string{cfg.Output, filepath.Dir(cfg.Manifest)},
		Debounce: c.Debounce,
		Interval: c.Interval,
		Log:      log,
	})
	if c.MetricsAddr != "" {
		if _, err := watch.Serve(ctx, c.MetricsAddr, watch.Router(reg, w.Status), log); err != nil {
			return err
		}
	}
	return w.Run(ctx)
}

func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && filepath.IsLocal(rel)
}
