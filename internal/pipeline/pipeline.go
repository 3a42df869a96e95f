// Package pipeline coordinates a brim run: it checks preconditions, runs
// hooks, mirrors the asset tree and renders every data record.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/brim/internal/config"
	"git.home.luguber.info/inful/brim/internal/errors"
	"git.home.luguber.info/inful/brim/internal/logfields"
	"git.home.luguber.info/inful/brim/internal/manifest"
	"git.home.luguber.info/inful/brim/internal/metrics"
	"git.home.luguber.info/inful/brim/internal/report"
)

// Stage names used for logging and metrics.
const (
	StageTemplate = "template"
	StageSource   = "source"
	StagePreHook  = "pre_hooks"
	StageAssets   = "assets"
	StageRender   = "render"
	StagePostHook = "post_hooks"
)

// Result summarizes a run.
type Result struct {
	RunID       string
	Rendered    int
	Skipped     int
	Failed      int
	Copied      int
	Transcoded  int
	Diagnostics []report.Diagnostic
	Duration    time.Duration
	Outcome     metrics.BuildOutcomeLabel
}

// Coordinator runs builds for one configuration. It may be reused for
// successive runs but not for concurrent ones.
type Coordinator struct {
	cfg        *config.Config
	configPath string
	reporter   report.Reporter
	recorder   metrics.Recorder
	log        *slog.Logger
	store      manifest.Store
	textfile   string
	gatherer   prom.Gatherer
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithReporter adds a reporter next to the logging one.
func WithReporter(r report.Reporter) Option {
	return func(c *Coordinator) { c.reporter = r }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithManifest supplies the incremental manifest instead of opening cfg.Manifest.
func WithManifest(s manifest.Store) Option {
	return func(c *Coordinator) { c.store = s }
}

// WithConfigPath names the configuration file so it is not mirrored.
func WithConfigPath(path string) Option {
	return func(c *Coordinator) { c.configPath = path }
}

// WithTextfile writes the gathered metrics to path after every run.
func WithTextfile(path string, g prom.Gatherer) Option {
	return func(c *Coordinator) {
		c.textfile = path
		c.gatherer = g
	}
}

// New returns a Coordinator for cfg.
func New(cfg *config.Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run performs one build. Per-item problems end up in Result.Diagnostics;
// the returned error is set only for failures that abort the run.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := c.log.With(logfields.RunID(runID))

	collector := &report.Collector{}
	rep := report.WithRecorder(report.Tee(report.NewLogger(log), c.reporter, collector), c.recorder)

	b := &build{
		cfg:      *c.cfg,
		co:       c,
		log:      log,
		reporter: rep,
		result:   &Result{RunID: runID},
	}
	log.Info("Build started", logfields.Source(c.cfg.Source), logfields.Template(c.cfg.Template))

	err := b.run(ctx)

	res := b.result
	res.Diagnostics = collector.Diagnostics()
	res.Duration = time.Since(start)
	res.Outcome = outcome(res, err)
	c.recorder.ObserveBuildDuration(res.Duration)
	c.recorder.IncBuildOutcome(res.Outcome)
	c.exportMetrics(log)

	if err != nil {
		log.Error("Build failed", logfields.Error(err), logfields.DurationMS(float64(res.Duration.Milliseconds())))
		return res, err
	}
	log.Info("Build finished",
		slog.Int("rendered", res.Rendered),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed),
		slog.Int("copied", res.Copied),
		slog.Int("transcoded", res.Transcoded),
		logfields.Count(len(res.Diagnostics)),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return res, nil
}

func outcome(res *Result, err error) metrics.BuildOutcomeLabel {
	switch {
	case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return metrics.BuildOutcomeCanceled
	case err != nil:
		return metrics.BuildOutcomeFailed
	case res.Failed > 0 || len(res.Diagnostics) > 0:
		return metrics.BuildOutcomeWarning
	default:
		return metrics.BuildOutcomeSuccess
	}
}

func (c *Coordinator) exportMetrics(log *slog.Logger) {
	if c.textfile == "" || c.gatherer == nil {
		return
	}
	if err := metrics.WriteTextfile(c.textfile, c.gatherer); err != nil {
		log.Warn("Failed to write metrics textfile", logfields.Path(c.textfile), logfields.Error(err))
	}
}
