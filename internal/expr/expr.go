package expr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUndefined is matched (via errors.Is) by errors caused by a name that the
// Scope does not define.
var ErrUndefined = errors.New("name is not defined")

// UndefinedError names the missing identifier.
type UndefinedError struct {
	Name string
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("name %q is not defined", e.Name)
}

// Is reports ErrUndefined equivalence.
func (e *UndefinedError) Is(target error) bool {
	return target == ErrUndefined
}

// Expr is a compiled expression. It is immutable and safe for concurrent use.
type Expr struct {
	src  string
	root node
}

// Compile parses src into an Expr.
func Compile(src string) (*Expr, error) {
	src = strings.TrimSpace(src)
	root, err := parse(src)
	if err != nil {
		return nil, err
	}
	return &Expr{src: src, root: root}, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package-level literals.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

// Source returns the trimmed source text.
func (e *Expr) Source() string { return e.src }

// String returns a canonical, fully parenthesized form of the expression.
func (e *Expr) String() string { return e.root.String() }

// Eval evaluates the expression against s.
func (e *Expr) Eval(s Scope) (any, error) {
	if s == nil {
		s = Context(nil)
	}
	return e.root.eval(s)
}

// Render evaluates the expression and returns the textual form of its value.
func (e *Expr) Render(s Scope) (string, error) {
	v, err := e.Eval(s)
	if err != nil {
		return "", err
	}
	return Format(v), nil
}

// Names returns the distinct free identifiers the expression reads, in order
// of first appearance. Built-in function names are not included.
func (e *Expr) Names() []string {
	var names []string
	seen := map[string]bool{}
	walk(e.root, func(n node) {
		if id, ok := n.(*identNode); ok && !seen[id.name] {
			seen[id.name] = true
			names = append(names, id.name)
		}
	})
	return names
}

// Uses reports whether the expression reads name.
func (e *Expr) Uses(name string) bool {
	for _, n := range e.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Evaluate compiles and evaluates src in one step.
func Evaluate(src string, s Scope) (any, error) {
	e, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return e.Eval(s)
}
