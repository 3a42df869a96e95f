package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/brim/internal/config"
	"git.home.luguber.info/inful/brim/internal/errors"
	"git.home.luguber.info/inful/brim/internal/metrics"
	"git.home.luguber.info/inful/brim/internal/report"
	"git.home.luguber.info/inful/brim/internal/testutil"
)

const siteTemplate = `<brim:title>Site</brim:title>
<html>
  <body>
    <h1>{title}</h1>
    <ul>
      {# for tag in tags #}
      <li>{tag}</li>
      {# endfor #}
    </ul>
  </body>
</html>
`

type fixture struct {
	root   string
	src    string
	out    string
	tmpl   string
	config *config.Config
}

func newFixture(t *testing.T, template string, files map[string]string) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		root: root,
		src:  filepath.Join(root, "site"),
		out:  filepath.Join(root, "public"),
		tmpl: filepath.Join(root, "brim.html"),
	}
	require.NoError(t, os.MkdirAll(f.src, 0o750))
	require.NoError(t, os.WriteFile(f.tmpl, []byte(template), 0o600))
	testutil.WriteTree(t, f.src, files)
	cfg := config.Default()
	cfg.Template = f.tmpl
	cfg.Source = f.src
	cfg.Output = f.out
	cfg.Manifest = filepath.Join(root, ".brim", "manifest.db")
	cfg.Workers = 4
	f.config = cfg
	return f
}

func (f *fixture) run(t *testing.T, opts ...Option) (*Result, error) {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(f.config, opts...).Run(context.Background())
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.out, rel))
	require.NoError(t, err)
	return string(data)
}

func TestRunRendersAndMirrors(t *testing.T) {
	f := newFixture(t, siteTemplate, map[string]string{
		"index.json":      `{"title":"Home","tags":["a","b"]}`,
		"blog/post.json":  `{"title":"Post","tags":[]}`,
		"broken.json":     `{"title":`,
		"css/site.css":    "body{}",
		"notes/readme.md": "# not data by default",
	})

	res, err := f.run(t)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.Rendered)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Copied)
	assert.Equal(t, metrics.BuildOutcomeWarning, res.Outcome)

	out := testutil.NewFileAssertions(t, f.out)
	out.Equals("index.html", "<html><body><h1>Home</h1><ul><li>a</li><li>b</li></ul></body></html>").
		Equals("blog/post.html", "<html><body><h1>Post</h1><ul></ul></body></html>").
		Equals("css/site.css", "body{}")
	assert.Equal(t, []string{"blog/post.html", "css/site.css", "index.html", "notes/readme.md"}, out.Files())

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, report.KindData, res.Diagnostics[0].Kind)
	assert.Equal(t, "broken.json", res.Diagnostics[0].Source)
}

func TestRunTemplateNotFound(t *testing.T) {
	f := newFixture(t, siteTemplate, map[string]string{"a.json": `{}`})
	f.config.Template = filepath.Join(f.root, "missing.html")

	res, err := f.run(t)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryTemplate))
	assert.Equal(t, metrics.BuildOutcomeFailed, res.Outcome)
	assert.NoDirExists(t, f.out)
}

func TestRunSourceTreeNotFound(t *testing.T) {
	f := newFixture(t, siteTemplate, nil)
	f.config.Source = filepath.Join(f.root, "nope")

	_, err := f.run(t)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategorySource))
	assert.NoDirExists(t, f.out)
}

func TestRunRejectsUnknownHooksBeforeDoingAnything(t *testing.T) {
	tmpl := "<brim:pre>mkdir made</brim:pre><brim:post>__import__('os').system('true')</brim:post><p>{a}</p>"
	f := newFixture(t, tmpl, map[string]string{"a.json": `{"a":1}`})

	_, err := f.run(t)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.NoDirExists(t, f.out)
}

func TestRunHooks(t *testing.T) {
	tmpl := "<brim:pre>clean</brim:pre><brim:pre>mkdir empty</brim:pre><brim:post>precompress</brim:post><p>{a}</p>"
	f := newFixture(t, tmpl, map[string]string{"a.json": `{"a":1}`})
	require.NoError(t, os.MkdirAll(f.out, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(f.out, "stale.html"), []byte("old"), 0o600))

	_, err := f.run(t)
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(f.out, "stale.html"))
	assert.DirExists(t, filepath.Join(f.out, "empty"))
	assert.Equal(t, "<p>1</p>", f.read(t, "a.html"))
	assert.FileExists(t, filepath.Join(f.out, "a.html.gz"))
}

func TestRunIncremental(t *testing.T) {
	f := newFixture(t, "<p>{n}</p>", map[string]string{"a.json": `{"n":1}`, "b.json": `{"n":2}`})
	f.config.Incremental = true

	res, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rendered)

	res, err = f.run(t)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rendered)
	assert.Equal(t, 2, res.Skipped)

	require.NoError(t, os.WriteFile(filepath.Join(f.src, "a.json"), []byte(`{"n":3}`), 0o600))
	require.NoError(t, os.Remove(filepath.Join(f.out, "b.html")))
	res, err = f.run(t)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rendered)
	assert.Equal(t, "<p>3</p>", f.read(t, "a.html"))
	assert.Equal(t, "<p>2</p>", f.read(t, "b.html"))
}

func TestRunIncrementalRerendersAfterNamespaceChange(t *testing.T) {
	f := newFixture(t, "<x:note>hidden</x:note><p>{title}</p>", map[string]string{"a.json": `{"title":"A"}`})
	f.config.Incremental = true

	res, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rendered)
	assert.Equal(t, "<x:note>hidden</x:note><p>A</p>", f.read(t, "a.html"))

	f.config.Namespace = "x"
	res, err = f.run(t)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rendered)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, "<p>A</p>", f.read(t, "a.html"))
}

func TestRunExcludesOutputTemplateAndManifestInsideSource(t *testing.T) {
	f := newFixture(t, "<p>{a}</p>", map[string]string{"a.json": `{"a":1}`, "logo.txt": "x"})
	f.config.Output = filepath.Join(f.src, "brim")
	f.config.Template = filepath.Join(f.src, "brim.html")
	f.config.Manifest = filepath.Join(f.src, ".brim", "manifest.db")
	f.config.Incremental = true
	f.out = f.config.Output
	require.NoError(t, os.WriteFile(f.config.Template, []byte("<p>{a}</p>"), 0o600))

	for i := 0; i < 2; i++ {
		res, err := f.run(t)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Copied, "only logo.txt is an asset")
	}
	assert.NoDirExists(t, filepath.Join(f.out, "brim"))
	assert.NoFileExists(t, filepath.Join(f.out, "brim.html"))
	assert.NoDirExists(t, filepath.Join(f.out, ".brim"))
}

func TestRunRejectsOutputContainingSource(t *testing.T) {
	f := newFixture(t, "x", nil)
	f.config.Output = f.root

	_, err := f.run(t)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestRunOptimizesImagesWhenDirected(t *testing.T) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	require.NoError(t, enc.Encode(&buf, image.NewGray(image.Rect(0, 0, 32, 32))))

	f := newFixture(t, "<brim:optimize:image>true</brim:optimize:image>", map[string]string{"img/a.png": buf.String()})
	res, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Transcoded)

	info, err := os.Stat(filepath.Join(f.out, "img", "a.png"))
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(buf.Len()))
}

func TestRunMarkdownRecordsAndOutputExtension(t *testing.T) {
	f := newFixture(t, "<article><h1>{title}</h1>{content}</article>", map[string]string{
		"post.md": "---\ntitle: Hello\n---\nBody text\n",
	})
	f.config.DataExtensions = []string{".md"}
	f.config.OutputExtension = ".htm"

	_, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, "<article><h1>Hello</h1><p>Body text</p></article>", f.read(t, "post.htm"))
}

func TestRunReportsEvaluationFailuresPerRecord(t *testing.T) {
	f := newFixture(t, "<p>{a / b}</p><p>{broken +}</p>", map[string]string{
		"one.json": `{"a":1,"b":0}`,
		"two.json": `{"a":1,"b":2}`,
	})
	collector := &report.Collector{}
	res, err := f.run(t, WithReporter(collector))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rendered)

	// One syntax problem for the template, one division by zero for one.json.
	assert.Equal(t, 2, collector.Count(report.KindEvaluation))
	var sources []string
	for _, d := range collector.Diagnostics() {
		sources = append(sources, d.Source)
	}
	assert.ElementsMatch(t, []string{"brim.html", "one.json"}, sources)
	assert.Equal(t, "<p>{a / b}</p><p>{broken +}</p>", f.read(t, "one.html"))
	assert.Equal(t, "<p>0.5</p><p>{broken +}</p>", f.read(t, "two.html"))
}

func TestRunWritesMetricsTextfile(t *testing.T) {
	f := newFixture(t, "<p>{a}</p>", map[string]string{"a.json": `{"a":1}`})
	reg := prom.NewRegistry()
	path := filepath.Join(f.root, "brim.prom")

	_, err := f.run(t, WithRecorder(metrics.NewPrometheusRecorder(reg)), WithTextfile(path, reg))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `brim_render_results_total{result="rendered"} 1`)
	assert.Contains(t, string(data), `brim_build_outcomes_total{outcome="success"} 1`)
}

func TestRunCanceled(t *testing.T) {
	f := newFixture(t, "<p>{a}</p>", map[string]string{"a.json": `{"a":1}`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(f.config, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, metrics.BuildOutcomeCanceled, res.Outcome)
}
