package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/brim/internal/directive"
	brimerrors "git.home.luguber.info/inful/brim/internal/errors"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "brim.html", cfg.Template)
	assert.Equal(t, ".", cfg.Source)
	assert.Equal(t, "brim", cfg.Output)
	assert.Equal(t, "brim", cfg.Namespace)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, []string{".json"}, cfg.DataExtensions)
	assert.Equal(t, "none", cfg.Escape)
	assert.Equal(t, filepath.Join(".brim", "manifest.db"), cfg.Manifest)
	assert.Equal(t, 85, cfg.Assets.JPEGQuality)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, ".html", cfg.OutputExt())
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brim.yaml")

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, "brim.html", cfg.Template)

	_, err = Load(path, true)
	require.Error(t, err)
	assert.True(t, brimerrors.IsCategory(err, brimerrors.CategoryConfig))
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("BRIM_TEST_OUT", "public")
	path := filepath.Join(t.TempDir(), "brim.yaml")
	content := `
template: page.tmpl
output: ${BRIM_TEST_OUT}
workers: 2
data_extensions: [".json", ".md"]
escape: html
assets:
  optimize_images: true
  jpeg_quality: 70
logging:
  level: DEBUG
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "public", cfg.Output)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []string{".json", ".md"}, cfg.DataExtensions)
	assert.Equal(t, "html", cfg.Escape)
	assert.True(t, cfg.Assets.OptimizeImages)
	assert.Equal(t, 70, cfg.Assets.JPEGQuality)
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, ".tmpl", cfg.OutputExt())
	assert.True(t, cfg.IsDataFile("post.MD"))
	assert.False(t, cfg.IsDataFile("style.css"))
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("tempalte: x.html\n"))
	assert.Error(t, err)

	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "brim", cfg.Output)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Config)
		field string
	}{
		{"workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"escape", func(c *Config) { c.Escape = "xml" }, "escape"},
		{"jpeg quality", func(c *Config) { c.Assets.JPEGQuality = 101 }, "assets.jpeg_quality"},
		{"data extension", func(c *Config) { c.DataExtensions = []string{"json"} }, "data_extensions"},
		{"output extension", func(c *Config) { c.OutputExtension = "html" }, "output_extension"},
		{"namespace", func(c *Config) { c.Namespace = "a:b" }, "namespace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mod(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			be, ok := brimerrors.As(err)
			require.True(t, ok)
			assert.Equal(t, brimerrors.CategoryValidation, be.Category)
			assert.Equal(t, tt.field, be.Context["field"])
		})
	}
}

func TestApplyDirectives(t *testing.T) {
	cfg := Default()
	cfg.Assets.OptimizeFonts = true
	m := directive.Extract("<brim:optimize:image>True</brim:optimize:image><brim:optimize:font>false</brim:optimize:font><brim:escape>HTML</brim:escape>")
	require.NoError(t, cfg.ApplyDirectives(m))
	assert.True(t, cfg.Assets.OptimizeImages)
	assert.False(t, cfg.Assets.OptimizeFonts)
	assert.Equal(t, "html", cfg.Escape)

	err := Default().ApplyDirectives(directive.Extract("<brim:escape>rot13</brim:escape>"))
	assert.True(t, brimerrors.IsCategory(err, brimerrors.CategoryValidation))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brim.yaml")
	cfg := Default()
	cfg.Incremental = true
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestNormalizeLogging(t *testing.T) {
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel("warning"))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("verbose"))
	assert.Equal(t, LogFormatText, NormalizeLogFormat("xml"))
	assert.Equal(t, "DEBUG", LogLevelDebug.Slog().String())
}

func TestResolve(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(base, "elsewhere", "out")
	cfg := Default()
	cfg.Output = abs
	cfg.Metrics.Textfile = "brim.prom"
	cfg.Resolve(base)

	assert.Equal(t, filepath.Join(base, "brim.html"), cfg.Template)
	assert.Equal(t, base, cfg.Source)
	assert.Equal(t, abs, cfg.Output)
	assert.Equal(t, filepath.Join(base, ".brim", "manifest.db"), cfg.Manifest)
	assert.Equal(t, filepath.Join(base, "brim.prom"), cfg.Metrics.Textfile)
}
