package config

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/brim/internal/directive"
	brimerrors "git.home.luguber.info/inful/brim/internal/errors"
)

// Directive keys read as configuration.
const (
	DirectiveOptimizeImage = "optimize:image"
	DirectiveOptimizeFont  = "optimize:font"
	DirectiveEscape        = "escape"
)

// ApplyDirectives overrides settings carried by template directives. The
// first value of a key wins.
func (c *Config) ApplyDirectives(m *directive.Map) error {
	if v, ok := m.Bool(DirectiveOptimizeImage); ok {
		c.Assets.OptimizeImages = v
	}
	if v, ok := m.Bool(DirectiveOptimizeFont); ok {
		c.Assets.OptimizeFonts = v
	}
	if v, ok := m.First(DirectiveEscape); ok {
		mode := strings.ToLower(strings.TrimSpace(v))
		switch mode {
		case "none", "html", "sanitize":
			c.Escape = mode
		default:
			return brimerrors.ValidationFailed("escape", fmt.Sprintf("template directive has unknown mode %q", v))
		}
	}
	return nil
}
