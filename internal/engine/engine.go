package engine

import (
	"errors"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/brim/internal/directive"
	"git.home.luguber.info/inful/brim/internal/expr"
	"git.home.luguber.info/inful/brim/internal/report"
)

// Engine renders parsed templates. It holds no per-render state.
type Engine struct {
	syntax   directive.Syntax
	escaper  escaper
	reporter report.Reporter
}

// Option configures an Engine.
type Option func(*Engine)

// WithNamespace sets the directive namespace.
func WithNamespace(ns string) Option {
	return func(e *Engine) { e.syntax = directive.New(ns) }
}

// WithEscape sets how substituted values are escaped.
func WithEscape(mode EscapeMode) Option {
	return func(e *Engine) { e.escaper = newEscaper(mode) }
}

// WithReporter sets the diagnostic sink.
func WithReporter(r report.Reporter) Option {
	return func(e *Engine) {
		if r != nil {
			e.reporter = r
		}
	}
}

// New returns an Engine using the default namespace, no escaping and a
// discarding reporter unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{
		syntax:   directive.New(directive.DefaultNamespace),
		escaper:  newEscaper(EscapeNone),
		reporter: report.Nop{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reporting returns a copy of e that sends diagnostics to r.
func (e *Engine) Reporting(r report.Reporter) *Engine {
	c := *e
	if r != nil {
		c.reporter = r
	}
	return &c
}

// Compile parses src and reports its parse problems.
func (e *Engine) Compile(src string) *Template {
	t := Parse(src)
	for _, d := range t.problems {
		e.reporter.Report(d)
	}
	return t
}

// Directives extracts the directive map of t.
func (e *Engine) Directives(t *Template) *directive.Map {
	return e.syntax.Extract(t.source)
}

// RenderDocument renders t against data and strips directive blocks,
// producing the final document.
func (e *Engine) RenderDocument(t *Template, data map[string]any) string {
	return e.syntax.Strip(e.Render(t, data))
}

// Render produces the draft document for one record: placeholders
// substituted, loops expanded and whitespace normalized. Directive blocks
// are kept.
func (e *Engine) Render(t *Template, data map[string]any) string {
	r := &render{
		engine:   e,
		t:        t,
		scope:    expr.Context(data),
		reported: make(map[int]bool),
	}
	return Normalize(r.run())
}

type render struct {
	engine   *Engine
	t        *Template
	scope    expr.Scope
	vals     []string
	reported map[int]bool
}

func (r *render) run() string {
	r.scalars()
	var b strings.Builder
	b.Grow(len(r.t.source))
	segs := r.t.segments
	for i := 0; i < len(segs); i++ {
		seg := segs[i]
		if seg.kind == segOpen && seg.loop >= 0 {
			loop := r.t.loops[seg.loop]
			r.expand(&b, loop)
			i = loop.close
			continue
		}
		b.WriteString(r.vals[i])
	}
	return b.String()
}

// scalars evaluates every segment that does not wait for a loop variable.
func (r *render) scalars() {
	r.vals = make([]string, len(r.t.segments))
	for i, seg := range r.t.segments {
		switch seg.kind {
		case segText, segOpen, segClose:
			r.vals[i] = seg.raw
		case segComment:
			r.vals[i] = ""
		case segBroken:
			r.vals[i] = seg.fallback()
		case segExpr:
			if seg.deferred {
				r.vals[i] = seg.fallback()
				continue
			}
			r.vals[i] = r.eval(i, r.scope)
		}
	}
}

func (r *render) eval(i int, scope expr.Scope) string {
	seg := r.t.segments[i]
	v, err := seg.expr.Eval(scope)
	if err != nil {
		if !errors.Is(err, expr.ErrUndefined) && !r.reported[i] {
			r.reported[i] = true
			r.engine.reporter.Report(report.Diagnostic{
				Kind:    report.KindEvaluation,
				Subject: seg.src,
				Err:     err,
			})
		}
		return seg.fallback()
	}
	return r.engine.escaper.escape(expr.Format(v))
}

// part is a piece of a loop body: literal text, or a deferred expression
// when seg >= 0.
type part struct {
	text string
	seg  int
}

// body assembles the loop body from scalar-pass output, trimmed at both
// ends like the loop body text it stands for.
func (r *render) body(loop loopRegion) []part {
	var parts []part
	for i := loop.open + 1; i < loop.close; i++ {
		seg := r.t.segments[i]
		if seg.kind == segExpr && seg.deferred {
			parts = append(parts, part{seg: i})
			continue
		}
		if n := len(parts); n > 0 && parts[n-1].seg < 0 {
			parts[n-1].text += r.vals[i]
			continue
		}
		parts = append(parts, part{text: r.vals[i], seg: -1})
	}
	if len(parts) > 0 && parts[0].seg < 0 {
		parts[0].text = strings.TrimLeft(parts[0].text, " \t\r\n\f\v")
	}
	if n := len(parts); n > 0 && parts[n-1].seg < 0 {
		parts[n-1].text = strings.TrimRight(parts[n-1].text, " \t\r\n\f\v")
	}
	return parts
}

func (r *render) expand(b *strings.Builder, loop loopRegion) {
	value, ok := r.scope.Lookup(loop.list)
	if !ok {
		r.verbatim(b, loop)
		return
	}
	items, ok := expr.Sequence(value)
	if !ok {
		if !r.reported[loop.open] {
			r.reported[loop.open] = true
			r.engine.reporter.Report(report.Diagnostic{
				Kind:    report.KindLoop,
				Subject: loop.header,
				Err:     fmt.Errorf("%s is %s, not a list", loop.list, expr.TypeName(value)),
			})
		}
		r.verbatim(b, loop)
		return
	}
	parts := r.body(loop)
	for _, item := range items {
		scope := expr.With(r.scope, loop.varName, item)
		for _, p := range parts {
			if p.seg < 0 {
				b.WriteString(p.text)
				continue
			}
			b.WriteString(r.eval(p.seg, scope))
		}
	}
}

// verbatim writes the loop construct unexpanded so a later pass can still
// expand it.
func (r *render) verbatim(b *strings.Builder, loop loopRegion) {
	for i := loop.open; i <= loop.close; i++ {
		b.WriteString(r.vals[i])
	}
}
