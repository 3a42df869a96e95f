// Package report carries diagnostics and progress from the engine and the
// pipeline to whoever is watching a run. Reporters are injected; nothing in
// brim writes to a process-wide console.
package report

import (
	"fmt"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/brim/internal/logfields"
	"git.home.luguber.info/inful/brim/internal/metrics"
)

// Kind classifies a diagnostic.
type Kind string

const (
	KindEvaluation Kind = "evaluation"
	KindLoop       Kind = "loop"
	KindData       Kind = "data"
	KindAsset      Kind = "asset"
	KindHook       Kind = "hook"
	KindRender     Kind = "render"
)

// Diagnostic is a recoverable problem with one item of a run.
type Diagnostic struct {
	Kind Kind
	// Source is the file the problem belongs to, empty for template-wide issues.
	Source string
	// Subject is the failing expression, loop header or hook payload.
	Subject string
	Err     error
}

func (d Diagnostic) String() string {
	msg := string(d.Kind)
	if d.Source != "" {
		msg += " " + d.Source
	}
	if d.Subject != "" {
		msg += fmt.Sprintf(" {%s}", d.Subject)
	}
	if d.Err != nil {
		msg += ": " + d.Err.Error()
	}
	return msg
}

// Reporter receives diagnostics and progress. Implementations must be safe
// for concurrent use.
type Reporter interface {
	Report(d Diagnostic)
	Progress(stage string, done, total int)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Report(Diagnostic)         {}
func (Nop) Progress(string, int, int) {}

// Logger reports through a slog.Logger.
type Logger struct {
	log *slog.Logger
}

// NewLogger returns a Reporter writing to log, or slog.Default() when log is nil.
func NewLogger(log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{log: log}
}

func (l *Logger) Report(d Diagnostic) {
	attrs := []any{logfields.Kind(string(d.Kind))}
	if d.Source != "" {
		attrs = append(attrs, logfields.Source(d.Source))
	}
	if d.Subject != "" {
		attrs = append(attrs, logfields.Expression(d.Subject))
	}
	if d.Err != nil {
		attrs = append(attrs, logfields.Error(d.Err))
	}
	l.log.Warn("Diagnostic", attrs...)
}

func (l *Logger) Progress(stage string, done, total int) {
	if done != total {
		return
	}
	l.log.Info("Stage complete", logfields.Stage(stage), logfields.Count(total))
}

// Collector keeps every diagnostic in memory, in arrival order.
type Collector struct {
	mu          sync.Mutex
	diagnostics []Diagnostic
	progress    map[string]int
}

func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diagnostics = append(c.diagnostics, d)
}

func (c *Collector) Progress(stage string, done, _ int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.progress == nil {
		c.progress = make(map[string]int)
	}
	if done > c.progress[stage] {
		c.progress[stage] = done
	}
}

// Diagnostics returns a copy of the collected diagnostics.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diagnostics))
	copy(out, c.diagnostics)
	return out
}

// Count returns the number of diagnostics of kind, or all of them when kind is empty.
func (c *Collector) Count(kind Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if kind == "" {
		return len(c.diagnostics)
	}
	n := 0
	for _, d := range c.diagnostics {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Done returns the highest progress value seen for stage.
func (c *Collector) Done(stage string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress[stage]
}

type tee []Reporter

// Tee fans every call out to all non-nil reporters, in order.
func Tee(reporters ...Reporter) Reporter {
	var t tee
	for _, r := range reporters {
		if r != nil {
			t = append(t, r)
		}
	}
	return t
}

func (t tee) Report(d Diagnostic) {
	for _, r := range t {
		r.Report(d)
	}
}

func (t tee) Progress(stage string, done, total int) {
	for _, r := range t {
		r.Progress(stage, done, total)
	}
}

type sourced struct {
	Reporter
	source string
}

// WithSource fills in Source on diagnostics that do not carry one.
func WithSource(r Reporter, source string) Reporter {
	return sourced{Reporter: r, source: source}
}

func (s sourced) Report(d Diagnostic) {
	if d.Source == "" {
		d.Source = s.source
	}
	s.Reporter.Report(d)
}

type recorded struct {
	Reporter
	rec metrics.Recorder
}

// WithRecorder counts diagnostics by kind on rec before forwarding them.
func WithRecorder(r Reporter, rec metrics.Recorder) Reporter {
	if rec == nil {
		return r
	}
	return recorded{Reporter: r, rec: rec}
}

func (r recorded) Report(d Diagnostic) {
	r.rec.IncDiagnostic(string(d.Kind))
	r.Reporter.Report(d)
}
