package engine

import (
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// EscapeMode selects how substituted values are written into the document.
type EscapeMode string

const (
	// EscapeNone writes values as they are.
	EscapeNone EscapeMode = "none"
	// EscapeHTML escapes <, >, &, ' and ".
	EscapeHTML EscapeMode = "html"
	// EscapeSanitize keeps safe user-generated markup and drops the rest.
	EscapeSanitize EscapeMode = "sanitize"
)

// ParseEscapeMode accepts none, html or sanitize in any case. The empty
// string means EscapeNone.
func ParseEscapeMode(s string) (EscapeMode, error) {
	switch m := EscapeMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", EscapeNone:
		return EscapeNone, nil
	case EscapeHTML, EscapeSanitize:
		return m, nil
	default:
		return "", fmt.Errorf("unknown escape mode %q (want none, html or sanitize)", s)
	}
}

var (
	ugcPolicyOnce sync.Once
	ugcPolicy     *bluemonday.Policy
)

func sanitizer() *bluemonday.Policy {
	ugcPolicyOnce.Do(func() {
		ugcPolicy = bluemonday.UGCPolicy()
	})
	return ugcPolicy
}

type escaper struct {
	mode EscapeMode
}

func newEscaper(mode EscapeMode) escaper {
	if mode == "" {
		mode = EscapeNone
	}
	return escaper{mode: mode}
}

func (e escaper) escape(s string) string {
	switch e.mode {
	case EscapeHTML:
		return html.EscapeString(s)
	case EscapeSanitize:
		return sanitizer().Sanitize(s)
	default:
		return s
	}
}
