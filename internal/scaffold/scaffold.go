// Package scaffold creates a starter brim project.
package scaffold

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/brim/internal/assets"
	"git.home.luguber.info/inful/brim/internal/config"
	"git.home.luguber.info/inful/brim/internal/errors"
	"git.home.luguber.info/inful/brim/internal/logfields"
)

// Options configures Init.
type Options struct {
	Dir      string
	Force    bool
	Prompter Prompter
	Log      *slog.Logger
}

// Answers are the choices that shape the generated project.
type Answers struct {
	Title       string
	Source      string
	Output      string
	Escape      string
	Precompress bool
}

// Result lists the files Init wrote, relative to the project directory.
type Result struct {
	Answers Answers
	Files   []string
}

var escapeModes = []string{"sanitize", "html", "none"}

// Init asks for the project settings and writes brim.yaml, the template and
// sample content into opts.Dir. Existing files are only replaced with Force.
func Init(ctx context.Context, opts Options) (*Result, error) {
	if opts.Prompter == nil {
		opts.Prompter = Defaults{}
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityFatal, "invalid project directory")
	}

	ans, err := ask(ctx, opts.Prompter, filepath.Base(dir))
	if err != nil {
		return nil, err
	}
	files := project(ans)

	if !opts.Force {
		for _, f := range files {
			if _, err := os.Stat(filepath.Join(dir, f.path)); err == nil {
				return nil, errors.New(errors.CategoryValidation, errors.SeverityFatal, "refusing to overwrite existing file").
					WithContext("path", f.path).
					WithContext("hint", "use --force to replace it")
			}
		}
	}

	res := &Result{Answers: ans}
	for _, f := range files {
		target := filepath.Join(dir, f.path)
		if err := f.write(target); err != nil {
			return nil, errors.WriteFailed(target, err)
		}
		opts.Log.Info("Created", logfields.Path(f.path))
		res.Files = append(res.Files, f.path)
	}
	return res, nil
}

func ask(ctx context.Context, p Prompter, name string) (Answers, error) {
	var a Answers
	var err error
	if a.Title, err = p.Input(ctx, "Site title", name); err != nil {
		return a, err
	}
	if a.Source, err = p.Input(ctx, "Source directory", "site"); err != nil {
		return a, err
	}
	if a.Output, err = p.Input(ctx, "Output directory", "public"); err != nil {
		return a, err
	}
	if a.Escape, err = p.Select(ctx, "Escape substituted values", escapeModes, "sanitize"); err != nil {
		return a, err
	}
	if a.Precompress, err = p.Confirm(ctx, "Write .gz copies after each build?", false); err != nil {
		return a, err
	}
	if filepath.Clean(a.Source) == filepath.Clean(a.Output) {
		return a, errors.ValidationFailed("output", "output directory must differ from the source directory")
	}
	return a, nil
}

type file struct {
	path  string
	write func(target string) error
}

func project(a Answers) []file {
	cfg := &config.Config{
		Template:       "brim.html",
		Source:         a.Source,
		Output:         a.Output,
		Namespace:      "brim",
		DataExtensions: []string{".json", ".yaml", ".md"},
		Escape:         "none",
		Manifest:       filepath.Join(".brim", "manifest.db"),
		Logging:        config.LoggingConfig{Level: config.LogLevelInfo, Format: config.LogFormatText},
	}
	static := func(content string) func(string) error {
		return func(target string) error {
			return assets.WriteFile(target, []byte(content), 0o644, time.Time{})
		}
	}
	return []file{
		{config.DefaultPath, func(target string) error {
			if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
				return err
			}
			return config.Save(target, cfg)
		}},
		{cfg.Template, static(templateText(a))},
		{filepath.Join(a.Source, "index.json"), static(fmt.Sprintf(sampleIndex, jsonString(a.Title)))},
		{filepath.Join(a.Source, "about.md"), static(sampleAbout)},
		{filepath.Join(a.Source, "css", "site.css"), static(sampleCSS)},
	}
}

func templateText(a Answers) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<brim:escape>%s</brim:escape>\n", a.Escape)
	if a.Precompress {
		b.WriteString("<brim:post>precompress</brim:post>\n")
	}
	b.WriteString(templateBody)
	return b.String()
}

func jsonString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

const templateBody = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>{title}</title>
    <link rel="stylesheet" href="/css/site.css">
  </head>
  <body>
    <h1>{title}</h1>
    <p>{default(summary, "")}</p>
    <ul>
      {# for link in links #}
      <li>{link}</li>
      {# endfor #}
    </ul>
    {default(content, "")}
  </body>
</html>
`

const sampleIndex = `{
  "title": %s,
  "summary": "Rendered by brim.",
  "links": ["about.html"]
}
`

const sampleAbout = `---
title: About
summary: Markdown records become the content field.
links: []
---
This page was written in *Markdown*.
`

const sampleCSS = `body { font-family: sans-serif; margin: 2rem auto; max-width: 40rem; }
`
