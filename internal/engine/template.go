package engine

import (
	"fmt"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/brim/internal/expr"
	"git.home.luguber.info/inful/brim/internal/report"
)

type segmentKind int

const (
	segText segmentKind = iota
	segExpr
	segComment
	segOpen
	segClose
	// segBroken is an expression that failed to compile; it renders as its fallback.
	segBroken
)

type segment struct {
	kind segmentKind
	raw  string
	// src is the trimmed text between the braces.
	src  string
	expr *expr.Expr
	// deferred expressions read the variable of an enclosing loop and are
	// evaluated only while that loop is expanded.
	deferred bool
	// loop indexes Template.loops for open and close markers of valid loops, -1 otherwise.
	loop int
}

func (s segment) fallback() string {
	return "{" + s.src + "}"
}

type loopRegion struct {
	open, close int
	varName     string
	list        string
	header      string
}

var (
	loopOpenRe  = regexp.MustCompile(`^#\s*for\s+(.+?)\s+in\s+(.+?)\s*#$`)
	loopCloseRe = regexp.MustCompile(`^#\s*endfor\s*#$`)
	identRe     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Template is a parsed template.
type Template struct {
	source   string
	segments []segment
	loops    []loopRegion
	problems []report.Diagnostic
}

// Source returns the template text as loaded.
func (t *Template) Source() string { return t.source }

// Problems returns diagnostics found while parsing: placeholders that are
// not valid expressions and malformed loop constructs. They do not depend
// on any record, so callers report them once per run.
func (t *Template) Problems() []report.Diagnostic {
	out := make([]report.Diagnostic, len(t.problems))
	copy(out, t.problems)
	return out
}

// Parse splits src into segments and resolves its loop regions.
func Parse(src string) *Template {
	t := &Template{source: src}
	t.scan()
	t.resolveLoops()
	return t
}

// scan cuts the source at every {...} placeholder. A placeholder ends at the
// first '}' and never spans a line break.
func (t *Template) scan() {
	doc := t.source
	last := 0
	pos := 0
	for pos < len(doc) {
		open := strings.IndexByte(doc[pos:], '{')
		if open < 0 {
			break
		}
		open += pos
		end := strings.IndexAny(doc[open+1:], "}\n")
		if end < 0 {
			break
		}
		end += open + 1
		if doc[end] == '\n' {
			pos = open + 1
			continue
		}
		if open > last {
			t.segments = append(t.segments, segment{kind: segText, raw: doc[last:open], loop: -1})
		}
		t.segments = append(t.segments, t.classify(doc[open:end+1]))
		last = end + 1
		pos = end + 1
	}
	if last < len(doc) {
		t.segments = append(t.segments, segment{kind: segText, raw: doc[last:], loop: -1})
	}
}

func (t *Template) classify(raw string) segment {
	src := strings.TrimSpace(raw[1 : len(raw)-1])
	seg := segment{raw: raw, src: src, loop: -1}
	switch {
	case isLoopHeader(src):
		seg.kind = segOpen
	case loopCloseRe.MatchString(src):
		seg.kind = segClose
	case strings.HasPrefix(src, "# "):
		seg.kind = segComment
	default:
		e, err := expr.Compile(src)
		if err != nil {
			seg.kind = segBroken
			t.problems = append(t.problems, report.Diagnostic{
				Kind:    report.KindEvaluation,
				Subject: src,
				Err:     err,
			})
			return seg
		}
		seg.kind = segExpr
		seg.expr = e
	}
	return seg
}

// isLoopHeader reports whether src has the shape of a loop header: one
// word before and one after "in". Longer phrases such as
// "# for details look in the wiki #" are comments.
func isLoopHeader(src string) bool {
	m := loopOpenRe.FindStringSubmatch(src)
	return m != nil && !strings.ContainsAny(m[1], " \t") && !strings.ContainsAny(m[2], " \t")
}

type openLoop struct {
	seg     int
	varName string
	list    string
	valid   bool
}

// resolveLoops pairs loop markers. Nested loops, unterminated loops, stray
// endfor markers and malformed headers are reported and left as text.
func (t *Template) resolveLoops() {
	var stack []*openLoop
	for i := range t.segments {
		seg := &t.segments[i]
		switch seg.kind {
		case segOpen:
			m := loopOpenRe.FindStringSubmatch(seg.src)
			ol := &openLoop{seg: i, varName: m[1], list: m[2], valid: true}
			if !identRe.MatchString(m[1]) || !identRe.MatchString(m[2]) {
				ol.valid = false
				t.loopProblem(seg.src, fmt.Errorf("loop header must be 'for <name> in <name>'"))
			}
			if len(stack) > 0 {
				for _, outer := range stack {
					if outer.valid {
						outer.valid = false
						t.loopProblem(t.segments[outer.seg].src, fmt.Errorf("nested loop blocks are not supported"))
					}
				}
				ol.valid = false
			}
			stack = append(stack, ol)
		case segClose:
			if len(stack) == 0 {
				t.loopProblem(seg.src, fmt.Errorf("endfor without a matching for"))
				continue
			}
			ol := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !ol.valid {
				continue
			}
			idx := len(t.loops)
			t.loops = append(t.loops, loopRegion{
				open:    ol.seg,
				close:   i,
				varName: ol.varName,
				list:    ol.list,
				header:  t.segments[ol.seg].src,
			})
			t.segments[ol.seg].loop = idx
			seg.loop = idx
		case segExpr:
			for _, ol := range stack {
				if seg.expr.Uses(ol.varName) {
					seg.deferred = true
					break
				}
			}
		}
	}
	for _, ol := range stack {
		if ol.valid {
			t.loopProblem(t.segments[ol.seg].src, fmt.Errorf("loop is missing its endfor"))
		}
	}
}

func (t *Template) loopProblem(header string, err error) {
	t.problems = append(t.problems, report.Diagnostic{
		Kind:    report.KindLoop,
		Subject: header,
		Err:     err,
	})
}
