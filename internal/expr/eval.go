package expr

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

func (n *literalNode) eval(Scope) (any, error) {
	return n.value, nil
}

func (n *identNode) eval(s Scope) (any, error) {
	v, ok := s.Lookup(n.name)
	if !ok {
		return nil, &UndefinedError{Name: n.name}
	}
	return normalize(v), nil
}

func (n *fieldNode) eval(s Scope) (any, error) {
	obj, err := n.object.eval(s)
	if err != nil {
		return nil, err
	}
	m, ok := obj.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cannot access field %q on %s", n.field, typeName(obj))
	}
	v, ok := m[n.field]
	if !ok {
		return nil, fmt.Errorf("%s has no field %q", n.object.String(), n.field)
	}
	return normalize(v), nil
}

func (n *indexNode) eval(s Scope) (any, error) {
	obj, err := n.object.eval(s)
	if err != nil {
		return nil, err
	}
	idx, err := n.index.eval(s)
	if err != nil {
		return nil, err
	}
	switch container := obj.(type) {
	case []any:
		i, err := toIndex(idx, len(container))
		if err != nil {
			return nil, err
		}
		return normalize(container[i]), nil
	case string:
		runes := []rune(container)
		i, err := toIndex(idx, len(runes))
		if err != nil {
			return nil, err
		}
		return string(runes[i]), nil
	case map[string]any:
		key, ok := idx.(string)
		if !ok {
			return nil, fmt.Errorf("object keys must be strings, got %s", typeName(idx))
		}
		v, ok := container[key]
		if !ok {
			return nil, fmt.Errorf("%s has no key %q", n.object.String(), key)
		}
		return normalize(v), nil
	default:
		return nil, fmt.Errorf("%s is not indexable", typeName(obj))
	}
}

// toIndex converts a numeric index, allowing negative offsets from the end.
func toIndex(idx any, length int) (int, error) {
	var i int64
	switch v := idx.(type) {
	case int64:
		i = v
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("index must be an integer, got %s", Format(v))
		}
		i = int64(v)
	default:
		return 0, fmt.Errorf("index must be an integer, got %s", typeName(idx))
	}
	if i < 0 {
		i += int64(length)
	}
	if i < 0 || i >= int64(length) {
		return 0, fmt.Errorf("index %s out of range (length %d)", Format(idx), length)
	}
	return int(i), nil
}

func (n *unaryNode) eval(s Scope) (any, error) {
	v, err := n.operand.eval(s)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "not":
		return !Truthy(v), nil
	case "-":
		switch x := v.(type) {
		case int64:
			return -x, nil
		case float64:
			return -x, nil
		}
		return nil, fmt.Errorf("bad operand type for unary -: %s", typeName(v))
	case "+":
		switch v.(type) {
		case int64, float64:
			return v, nil
		}
		return nil, fmt.Errorf("bad operand type for unary +: %s", typeName(v))
	}
	return nil, fmt.Errorf("unknown unary operator %q", n.op)
}

func (n *binaryNode) eval(s Scope) (any, error) {
	left, err := n.left.eval(s)
	if err != nil {
		return nil, err
	}
	// and/or short-circuit and yield an operand, not a bool.
	switch n.op {
	case "and":
		if !Truthy(left) {
			return left, nil
		}
		return n.right.eval(s)
	case "or":
		if Truthy(left) {
			return left, nil
		}
		return n.right.eval(s)
	}
	right, err := n.right.eval(s)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "==":
		return equal(left, right), nil
	case "!=":
		return !equal(left, right), nil
	case "<", "<=", ">", ">=":
		return compare(n.op, left, right)
	case "in":
		return contains(right, left)
	case "not in":
		ok, err := contains(right, left)
		if err != nil {
			return nil, err
		}
		return !ok, nil
	case "+":
		return add(left, right)
	case "-", "*", "/", "%":
		return arith(n.op, left, right)
	}
	return nil, fmt.Errorf("unknown operator %q", n.op)
}

func (n *callNode) eval(s Scope) (any, error) {
	if n.name == "default" {
		return evalDefault(n, s)
	}
	fn, ok := builtins[n.name]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", n.name)
	}
	if err := fn.checkArity(n.name, len(n.args)); err != nil {
		return nil, err
	}
	args := make([]any, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(s)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return fn.call(args)
}

// evalDefault yields its second argument when the first is undefined or null.
func evalDefault(n *callNode, s Scope) (any, error) {
	if len(n.args) != 2 {
		return nil, fmt.Errorf("default() takes 2 arguments, got %d", len(n.args))
	}
	v, err := n.args[0].eval(s)
	if err != nil && !errors.Is(err, ErrUndefined) {
		return nil, err
	}
	if err == nil && v != nil {
		return v, nil
	}
	return n.args[1].eval(s)
}

// Truthy reports the boolean interpretation of v: null, false, zero, and
// empty strings, lists and objects are false.
func Truthy(v any) bool {
	switch x := normalize(v).(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

func equal(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if fa, fb, ok := bothNumbers(a, b); ok {
		return fa == fb
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !equal(xv, yv) {
				return false
			}
		}
		return true
	}
	return false
}

func bothNumbers(a, b any) (float64, float64, bool) {
	fa, ok := toFloat(a)
	if !ok {
		return 0, 0, false
	}
	fb, ok := toFloat(b)
	if !ok {
		return 0, 0, false
	}
	return fa, fb, true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func compare(op string, a, b any) (bool, error) {
	var c int
	if fa, fb, ok := bothNumbers(a, b); ok {
		switch {
		case fa < fb:
			c = -1
		case fa > fb:
			c = 1
		}
	} else {
		sa, okA := a.(string)
		sb, okB := b.(string)
		if !okA || !okB {
			return false, fmt.Errorf("'%s' not supported between %s and %s", op, typeName(a), typeName(b))
		}
		c = strings.Compare(sa, sb)
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

func contains(container, item any) (bool, error) {
	switch c := container.(type) {
	case []any:
		for _, el := range c {
			if equal(el, item) {
				return true, nil
			}
		}
		return false, nil
	case string:
		s, ok := item.(string)
		if !ok {
			return false, fmt.Errorf("'in <string>' requires string as left operand, not %s", typeName(item))
		}
		return strings.Contains(c, s), nil
	case map[string]any:
		s, ok := item.(string)
		if !ok {
			return false, nil
		}
		_, found := c[s]
		return found, nil
	}
	return false, fmt.Errorf("argument of type %s is not a container", typeName(container))
}

func add(a, b any) (any, error) {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return x + y, nil
		}
	case []any:
		if y, ok := b.([]any); ok {
			out := make([]any, 0, len(x)+len(y))
			out = append(out, x...)
			return append(out, y...), nil
		}
	}
	return arith("+", a, b)
}

func arith(op string, a, b any) (any, error) {
	if op == "*" {
		if s, ok := a.(string); ok {
			return repeat(s, b)
		}
		if s, ok := b.(string); ok {
			return repeat(s, a)
		}
	}
	ia, aInt := a.(int64)
	ib, bInt := b.(int64)
	if aInt && bInt && op != "/" {
		switch op {
		case "+":
			return ia + ib, nil
		case "-":
			return ia - ib, nil
		case "*":
			return ia * ib, nil
		case "%":
			if ib == 0 {
				return nil, errors.New("integer modulo by zero")
			}
			m := ia % ib
			if m != 0 && (m < 0) != (ib < 0) {
				m += ib
			}
			return m, nil
		}
	}
	fa, fb, ok := bothNumbers(a, b)
	if !ok {
		return nil, fmt.Errorf("unsupported operand types for %s: %s and %s", op, typeName(a), typeName(b))
	}
	switch op {
	case "+":
		return fa + fb, nil
	case "-":
		return fa - fb, nil
	case "*":
		return fa * fb, nil
	case "/":
		if fb == 0 {
			return nil, errors.New("division by zero")
		}
		return fa / fb, nil
	case "%":
		if fb == 0 {
			return nil, errors.New("float modulo by zero")
		}
		m := math.Mod(fa, fb)
		if m != 0 && (m < 0) != (fb < 0) {
			m += fb
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

const maxRepeat = 1 << 20

func repeat(s string, n any) (any, error) {
	count, ok := n.(int64)
	if !ok {
		return nil, fmt.Errorf("can't multiply string by %s", typeName(n))
	}
	if count <= 0 {
		return "", nil
	}
	if int64(len(s))*count > maxRepeat {
		return nil, fmt.Errorf("repeated string exceeds %d bytes", maxRepeat)
	}
	return strings.Repeat(s, int(count)), nil
}
