package expr

// Scope resolves top-level names during evaluation.
type Scope interface {
	Lookup(name string) (any, bool)
}

// Context is a Scope backed by a plain map, typically a decoded data record.
type Context map[string]any

// Lookup implements Scope.
func (c Context) Lookup(name string) (any, bool) {
	v, ok := c[name]
	return v, ok
}

type bound struct {
	parent Scope
	name   string
	value  any
}

func (b bound) Lookup(name string) (any, bool) {
	if name == b.name {
		return b.value, true
	}
	if b.parent == nil {
		return nil, false
	}
	return b.parent.Lookup(name)
}

// With returns a Scope where name resolves to value and every other name
// resolves through parent. parent is not modified.
func With(parent Scope, name string, value any) Scope {
	return bound{parent: parent, name: name, value: value}
}
