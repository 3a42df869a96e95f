package scaffold

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/brim/internal/config"
	"git.home.luguber.info/inful/brim/internal/errors"
	"git.home.luguber.info/inful/brim/internal/pipeline"
)

type scripted struct {
	inputs  map[string]string
	confirm bool
	escape  string
}

func (s scripted) Input(_ context.Context, message, def string) (string, error) {
	if v, ok := s.inputs[message]; ok {
		return v, nil
	}
	return def, nil
}

func (s scripted) Confirm(context.Context, string, bool) (bool, error) { return s.confirm, nil }

func (s scripted) Select(_ context.Context, _ string, _ []string, def string) (string, error) {
	if s.escape != "" {
		return s.escape, nil
	}
	return def, nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func build(t *testing.T, dir string) {
	t.Helper()
	cfg, err := config.Load(filepath.Join(dir, config.DefaultPath), true)
	require.NoError(t, err)
	cfg.Template = filepath.Join(dir, cfg.Template)
	cfg.Source = filepath.Join(dir, cfg.Source)
	cfg.Output = filepath.Join(dir, cfg.Output)
	cfg.Manifest = filepath.Join(dir, cfg.Manifest)
	res, err := pipeline.New(cfg, pipeline.WithLogger(quiet())).Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, res.Diagnostics)
}

func TestInitDefaultsProducesABuildableProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mysite")

	res, err := Init(context.Background(), Options{Dir: dir, Log: quiet()})
	require.NoError(t, err)
	assert.Equal(t, "mysite", res.Answers.Title)
	assert.Equal(t, "sanitize", res.Answers.Escape)
	assert.Contains(t, res.Files, config.DefaultPath)
	assert.Contains(t, res.Files, "brim.html")

	build(t, dir)

	index, err := os.ReadFile(filepath.Join(dir, "public", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "<h1>mysite</h1>")
	assert.Contains(t, string(index), "<li>about.html</li>")
	assert.NotContains(t, string(index), "brim:")

	about, err := os.ReadFile(filepath.Join(dir, "public", "about.html"))
	require.NoError(t, err)
	assert.Contains(t, string(about), "<em>Markdown</em>")
	assert.FileExists(t, filepath.Join(dir, "public", "css", "site.css"))
}

func TestInitRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	_, err := Init(context.Background(), Options{Dir: dir, Log: quiet()})
	require.NoError(t, err)

	_, err = Init(context.Background(), Options{Dir: dir, Log: quiet()})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	_, err = Init(context.Background(), Options{Dir: dir, Force: true, Log: quiet()})
	assert.NoError(t, err)
}

func TestInitUsesAnswers(t *testing.T) {
	dir := t.TempDir()
	p := scripted{
		inputs:  map[string]string{"Site title": `Ben's "Blog"`, "Output directory": "dist"},
		confirm: true,
		escape:  "html",
	}
	_, err := Init(context.Background(), Options{Dir: dir, Prompter: p, Log: quiet()})
	require.NoError(t, err)

	tmpl, err := os.ReadFile(filepath.Join(dir, "brim.html"))
	require.NoError(t, err)
	assert.Contains(t, string(tmpl), "<brim:escape>html</brim:escape>")
	assert.Contains(t, string(tmpl), "<brim:post>precompress</brim:post>")

	cfg, err := config.Load(filepath.Join(dir, config.DefaultPath), true)
	require.NoError(t, err)
	assert.Equal(t, "dist", cfg.Output)

	build(t, dir)
	index, err := os.ReadFile(filepath.Join(dir, "dist", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "<h1>Ben&#39;s &#34;Blog&#34;</h1>")
	assert.FileExists(t, filepath.Join(dir, "dist", "index.html.gz"))
}

func TestInitRejectsSameSourceAndOutput(t *testing.T) {
	p := scripted{inputs: map[string]string{"Output directory": "site"}}
	_, err := Init(context.Background(), Options{Dir: t.TempDir(), Prompter: p, Log: quiet()})
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}
