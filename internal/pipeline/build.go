package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/brim/internal/assets"
	"git.home.luguber.info/inful/brim/internal/config"
	"git.home.luguber.info/inful/brim/internal/directive"
	"git.home.luguber.info/inful/brim/internal/engine"
	"git.home.luguber.info/inful/brim/internal/errors"
	"git.home.luguber.info/inful/brim/internal/hooks"
	"git.home.luguber.info/inful/brim/internal/logfields"
	"git.home.luguber.info/inful/brim/internal/manifest"
	"git.home.luguber.info/inful/brim/internal/metrics"
	"git.home.luguber.info/inful/brim/internal/record"
	"git.home.luguber.info/inful/brim/internal/report"
	"git.home.luguber.info/inful/brim/internal/version"
)

// build is the state of one run.
type build struct {
	cfg      config.Config
	co       *Coordinator
	log      *slog.Logger
	reporter report.Reporter
	result   *Result
	mu       sync.Mutex

	templatePath string
	templateText []byte
	sourceDir    string
	destDir      string
	directives   *directive.Map
	engine       *engine.Engine
	template     *engine.Template
	pre, post    []hooks.Action
	store        manifest.Store
	tree         *tree
}

func (b *build) run(ctx context.Context) error {
	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StageTemplate, b.stageTemplate},
		{StageSource, b.stageSource},
		{StagePreHook, b.stagePreHooks},
		{StageAssets, b.stageAssets},
		{StageRender, b.stageRender},
		{StagePostHook, b.stagePostHooks},
	}
	defer b.closeStore()
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		err := st.fn(ctx)
		d := time.Since(start)
		b.co.recorder.ObserveStageDuration(st.name, d)
		b.log.Debug("Stage finished", logfields.Stage(st.name), logfields.DurationMS(float64(d.Microseconds())/1000))
		if err != nil {
			return err
		}
	}
	return nil
}

// stageTemplate loads the template, applies its directives and compiles it.
func (b *build) stageTemplate(_ context.Context) error {
	path, err := filepath.Abs(b.cfg.Template)
	if err != nil {
		return errors.TemplateNotFound(b.cfg.Template)
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return errors.TemplateNotFound(path)
		}
		return errors.Wrap(err, errors.CategoryTemplate, errors.SeverityFatal, "failed to read template").
			WithContext("path", path)
	}
	b.templatePath = path
	b.templateText = data

	b.directives = directive.New(b.cfg.Namespace).Extract(string(data))
	if err := b.cfg.ApplyDirectives(b.directives); err != nil {
		return err
	}
	b.directives.Each(func(key, value string) {
		b.log.Debug("Directive", logfields.Directive(key), slog.String("value", value))
	})

	mode, err := engine.ParseEscapeMode(b.cfg.Escape)
	if err != nil {
		return errors.ValidationFailed("escape", err.Error())
	}
	b.engine = engine.New(
		engine.WithNamespace(b.cfg.Namespace),
		engine.WithEscape(mode),
		engine.WithReporter(report.WithSource(b.reporter, filepath.Base(path))),
	)
	b.template = b.engine.Compile(string(data))

	b.pre, b.post, err = hooks.FromDirectives(b.directives)
	return err
}

// stageSource checks the source tree and collects its files.
func (b *build) stageSource(ctx context.Context) error {
	src, err := filepath.Abs(b.cfg.Source)
	if err != nil {
		return errors.SourceTreeNotFound(b.cfg.Source)
	}
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return errors.SourceTreeNotFound(src)
	}
	dest, err := filepath.Abs(b.cfg.Output)
	if err != nil {
		return errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityFatal, "invalid output directory")
	}
	if dest == src || strings.HasPrefix(src, dest+string(filepath.Separator)) {
		return errors.ValidationFailed("output", "output directory must not contain the source directory")
	}
	b.sourceDir, b.destDir = src, dest

	excl := []string{dest, b.templatePath}
	if b.cfg.Manifest != "" {
		if m, err := filepath.Abs(b.cfg.Manifest); err == nil {
			excl = append(excl, m, m+"-journal", m+"-wal", m+"-shm")
		}
	}
	if b.co.configPath != "" {
		if p, err := filepath.Abs(b.co.configPath); err == nil {
			excl = append(excl, p)
		}
	}
	b.tree, err = walkSource(ctx, src, excl, b.cfg.IsDataFile)
	if err != nil {
		return errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityFatal, "failed to walk source directory").
			WithContext("path", src)
	}
	b.log.Info("Source scanned",
		logfields.Path(src),
		slog.Int("data_files", len(b.tree.data)),
		slog.Int("assets", len(b.tree.assets)))
	return nil
}

func (b *build) hookEnv() hooks.Env {
	return hooks.Env{Dest: b.destDir, Log: b.log}
}

func (b *build) stagePreHooks(ctx context.Context) error {
	return hooks.Run(ctx, b.hookEnv(), b.pre)
}

func (b *build) stagePostHooks(ctx context.Context) error {
	return hooks.Run(ctx, b.hookEnv(), b.post)
}

// stageAssets mirrors every non-data file. Failures are reported per file.
func (b *build) stageAssets(ctx context.Context) error {
	if err := os.MkdirAll(b.destDir, 0o750); err != nil {
		return errors.WriteFailed(b.destDir, err)
	}
	proc := assets.NewProcessor(assets.Options{
		OptimizeImages: b.cfg.Assets.OptimizeImages,
		OptimizeFonts:  b.cfg.Assets.OptimizeFonts,
		JPEGQuality:    b.cfg.Assets.JPEGQuality,
	}, b.co.recorder).WithLogger(b.log)

	total := len(b.tree.assets)
	done := 0
	return runPool(ctx, b.cfg.Workers, total, func(ctx context.Context, i int) error {
		rel := b.tree.assets[i]
		res, err := proc.Process(ctx, filepath.Join(b.sourceDir, rel), filepath.Join(b.destDir, rel))

		b.mu.Lock()
		defer b.mu.Unlock()
		done++
		b.reporter.Progress(StageAssets, done, total)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			b.reporter.Report(report.Diagnostic{Kind: report.KindAsset, Source: rel, Err: err})
			return nil
		}
		b.result.Copied++
		if res.Kind != assets.KindCopy {
			b.result.Transcoded++
		}
		return nil
	})
}

// stageRender renders every data record. Malformed records are reported and
// skipped; a panic while rendering aborts the run.
func (b *build) stageRender(ctx context.Context) error {
	if err := b.openStore(); err != nil {
		return err
	}
	total := len(b.tree.data)
	done := 0
	return runPool(ctx, b.cfg.Workers, total, func(ctx context.Context, i int) error {
		rel := b.tree.data[i]
		res, err := b.renderOne(ctx, rel)

		b.mu.Lock()
		defer b.mu.Unlock()
		done++
		b.reporter.Progress(StageRender, done, total)
		b.co.recorder.IncRenderResult(res)
		switch res {
		case metrics.ResultRendered:
			b.result.Rendered++
		case metrics.ResultSkipped:
			b.result.Skipped++
		case metrics.ResultFailed:
			b.result.Failed++
		}
		return err
	})
}

func (b *build) outputPath(rel string) string {
	base := strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.Join(b.destDir, base+b.cfg.OutputExt())
}

// renderOne renders one record. A non-nil error aborts the run.
func (b *build) renderOne(ctx context.Context, rel string) (metrics.ResultLabel, error) {
	if err := ctx.Err(); err != nil {
		return metrics.ResultSkipped, err
	}
	rec, err := record.Load(filepath.Join(b.sourceDir, rel), rel)
	if err != nil {
		b.reporter.Report(report.Diagnostic{Kind: report.KindData, Source: rel, Err: err})
		return metrics.ResultFailed, nil
	}

	out := b.outputPath(rel)
	outRel, _ := filepath.Rel(b.destDir, out)
	digest := manifest.Digest(b.templateText, rec.Raw, version.Engine, b.cfg.Escape, b.cfg.Namespace)
	if b.unchanged(ctx, outRel, out, digest) {
		return metrics.ResultSkipped, nil
	}

	start := time.Now()
	doc, err := b.renderSafely(rec)
	if err != nil {
		return metrics.ResultFailed, err
	}
	b.co.recorder.ObserveRenderDuration(time.Since(start))

	if err := assets.WriteFile(out, []byte(doc), 0o644, time.Time{}); err != nil {
		return metrics.ResultFailed, errors.WriteFailed(out, err)
	}
	if b.store != nil {
		if err := b.store.Put(ctx, manifest.Entry{Output: outRel, Source: rel, Digest: digest}); err != nil {
			b.log.Warn("Failed to update manifest", logfields.Output(outRel), logfields.Error(err))
		}
	}
	b.log.Debug("Rendered", logfields.Source(rel), logfields.Output(outRel))
	return metrics.ResultRendered, nil
}

func (b *build) renderSafely(rec *record.Record) (doc string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.UnhandledRenderFailure(rec.Source, fmt.Errorf("panic: %v", r))
		}
	}()
	eng := b.engine.Reporting(report.WithSource(b.reporter, rec.Source))
	return eng.RenderDocument(b.template, rec.Fields), nil
}

func (b *build) unchanged(ctx context.Context, outRel, out, digest string) bool {
	if b.store == nil {
		return false
	}
	e, ok, err := b.store.Lookup(ctx, outRel)
	if err != nil {
		b.log.Warn("Manifest lookup failed", logfields.Output(outRel), logfields.Error(err))
		return false
	}
	if !ok || e.Digest != digest {
		return false
	}
	_, err = os.Stat(out)
	return err == nil
}

func (b *build) openStore() error {
	if !b.cfg.Incremental {
		return nil
	}
	if b.co.store != nil {
		b.store = b.co.store
		return nil
	}
	s, err := manifest.Open(b.cfg.Manifest)
	if err != nil {
		return errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityFatal, "failed to open manifest").
			WithContext("path", b.cfg.Manifest)
	}
	b.store = s
	return nil
}

// closeStore closes a manifest opened by this run.
func (b *build) closeStore() {
	if b.store == nil || b.store == b.co.store {
		return
	}
	if err := b.store.Close(); err != nil {
		b.log.Warn("Failed to close manifest", logfields.Error(err))
	}
}
