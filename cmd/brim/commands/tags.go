package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/brim/internal/config"
	"git.home.luguber.info/inful/brim/internal/directive"
	"git.home.luguber.info/inful/brim/internal/errors"
	"git.home.luguber.info/inful/brim/internal/hooks"
)

// TagsCmd implements the 'tags' command.
type TagsCmd struct {
	Template string `arg:"" optional:"" help:"Template file (defaults to the configured one)"`
}

func (c *TagsCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	path := cfg.Template
	if c.Template != "" {
		path = c.Template
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return errors.TemplateNotFound(path)
		}
		return errors.Wrap(err, errors.CategoryTemplate, errors.SeverityFatal, "failed to read template").
			WithContext("path", path)
	}

	m := directive.New(cfg.Namespace).Extract(string(data))
	if m.Len() == 0 {
		_, _ = fmt.Fprintf(g.out(), "No <%s:...> directives in %s\n", cfg.Namespace, path)
		return nil
	}

	tw := tabwriter.NewWriter(g.out(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KEY\tROLE\tVALUE")
	m.Each(func(key, value string) {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", key, role(key), flatten(value))
	})
	if err := tw.Flush(); err != nil {
		return err
	}

	if _, _, err := hooks.FromDirectives(m); err != nil {
		return err
	}
	return nil
}

func role(key string) string {
	switch key {
	case string(hooks.PhasePre), string(hooks.PhasePost):
		return "hook"
	case config.DirectiveOptimizeImage, config.DirectiveOptimizeFont, config.DirectiveEscape:
		return "config"
	}
	return "-"
}

func flatten(v string) string {
	v = strings.Join(strings.Fields(v), " ")
	if v == "" {
		return `""`
	}
	return v
}
