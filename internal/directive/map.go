package directive

import "strings"

// Map is an insertion-ordered mapping from directive key to its values.
// It is built once per template and is read-only afterwards, so it may be
// shared between goroutines.
type Map struct {
	keys   []string
	values map[string][]string
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string][]string)}
}

func (m *Map) add(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = append(m.values[key], value)
}

// Len returns the number of distinct keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in order of first appearance.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Has reports whether key occurred at least once.
func (m *Map) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.values[key]
	return ok
}

// Values returns all values of key in order of appearance.
func (m *Map) Values(key string) []string {
	if m == nil {
		return nil
	}
	vals := m.values[key]
	if len(vals) == 0 {
		return nil
	}
	out := make([]string, len(vals))
	copy(out, vals)
	return out
}

// First returns the first value of key.
func (m *Map) First(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	vals := m.values[key]
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// Bool interprets the first value of key as a flag. Only "true" (any case)
// enables it. ok is false when the key is absent.
func (m *Map) Bool(key string) (value bool, ok bool) {
	v, ok := m.First(key)
	if !ok {
		return false, false
	}
	return strings.EqualFold(strings.TrimSpace(v), "true"), true
}

// Each calls fn for every (key, value) pair in order.
func (m *Map) Each(fn func(key, value string)) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		for _, v := range m.values[k] {
			fn(k, v)
		}
	}
}
