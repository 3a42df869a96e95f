package expr

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type builtin struct {
	minArgs, maxArgs int
	call             func(args []any) (any, error)
}

func (b builtin) checkArity(name string, n int) error {
	if n < b.minArgs || n > b.maxArgs {
		if b.minArgs == b.maxArgs {
			return fmt.Errorf("%s() takes %d argument(s), got %d", name, b.minArgs, n)
		}
		return fmt.Errorf("%s() takes %d to %d arguments, got %d", name, b.minArgs, b.maxArgs, n)
	}
	return nil
}

// builtins is the complete set of callable functions. default() is handled
// by the evaluator because it must observe undefined names. Casers carry
// state, so each call builds its own.
var builtins = map[string]builtin{
	"len": {1, 1, func(args []any) (any, error) {
		switch x := args[0].(type) {
		case string:
			return int64(utf8.RuneCountInString(x)), nil
		case []any:
			return int64(len(x)), nil
		case map[string]any:
			return int64(len(x)), nil
		}
		return nil, fmt.Errorf("object of type %s has no len()", typeName(args[0]))
	}},
	"str": {1, 1, func(args []any) (any, error) {
		return Format(args[0]), nil
	}},
	"upper": {1, 1, func(args []any) (any, error) {
		return cases.Upper(language.Und).String(Format(args[0])), nil
	}},
	"lower": {1, 1, func(args []any) (any, error) {
		return cases.Lower(language.Und).String(Format(args[0])), nil
	}},
	"title": {1, 1, func(args []any) (any, error) {
		return cases.Title(language.Und).String(Format(args[0])), nil
	}},
	"join": {1, 2, func(args []any) (any, error) {
		list, ok := args[0].([]any)
		if !ok {
			return nil, fmt.Errorf("join() expects a list, got %s", typeName(args[0]))
		}
		sep := ""
		if len(args) == 2 {
			s, ok := args[1].(string)
			if !ok {
				return nil, fmt.Errorf("join() separator must be a string, got %s", typeName(args[1]))
			}
			sep = s
		}
		parts := make([]string, len(list))
		for i, el := range list {
			parts[i] = Format(el)
		}
		return strings.Join(parts, sep), nil
	}},
}

// Builtins returns the names of all callable functions, sorted.
func Builtins() []string {
	names := make([]string, 0, len(builtins)+1)
	for name := range builtins {
		names = append(names, name)
	}
	names = append(names, "default")
	sort.Strings(names)
	return names
}
