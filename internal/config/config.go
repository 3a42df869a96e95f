// Package config loads brim.yaml, applies defaults and validates the result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	brimerrors "git.home.luguber.info/inful/brim/internal/errors"
)

// DefaultPath is the configuration file looked up when none is named.
const DefaultPath = "brim.yaml"

// Config represents the application configuration
type Config struct {
	Template        string        `yaml:"template"`
	Source          string        `yaml:"source"`
	Output          string        `yaml:"output"`
	Namespace       string        `yaml:"namespace"`
	Workers         int           `yaml:"workers"`
	DataExtensions  []string      `yaml:"data_extensions"`
	OutputExtension string        `yaml:"output_extension,omitempty"`
	Escape          string        `yaml:"escape"`
	Incremental     bool          `yaml:"incremental"`
	Manifest        string        `yaml:"manifest"`
	Assets          AssetsConfig  `yaml:"assets"`
	Logging         LoggingConfig `yaml:"logging"`
	Metrics         MetricsConfig `yaml:"metrics"`
}

// AssetsConfig controls optional transcoding of mirrored files.
type AssetsConfig struct {
	OptimizeImages bool `yaml:"optimize_images"`
	OptimizeFonts  bool `yaml:"optimize_fonts"`
	JPEGQuality    int  `yaml:"jpeg_quality"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig configures metrics export for one-shot builds.
type MetricsConfig struct {
	// Textfile, when set, receives the Prometheus text exposition after each build.
	Textfile string `yaml:"textfile,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Template == "" {
		cfg.Template = "brim.html"
	}
	if cfg.Source == "" {
		cfg.Source = "."
	}
	if cfg.Output == "" {
		cfg.Output = "brim"
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "brim"
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if len(cfg.DataExtensions) == 0 {
		cfg.DataExtensions = []string{".json"}
	}
	if cfg.Escape == "" {
		cfg.Escape = "none"
	}
	if cfg.Manifest == "" {
		cfg.Manifest = filepath.Join(".brim", "manifest.db")
	}
	if cfg.Assets.JPEGQuality == 0 {
		cfg.Assets.JPEGQuality = 85
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
}

// Load reads configuration from path. .env and .env.local are loaded first
// without overriding the process environment, then ${VAR} references in the
// file are expanded. A missing file yields defaults unless explicit is set.
func Load(path string, explicit bool) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		if explicit {
			return nil, brimerrors.ConfigNotFound(path)
		}
		return Default(), nil
	}
	if err != nil {
		return nil, brimerrors.Wrap(err, brimerrors.CategoryConfig, brimerrors.SeverityFatal, "failed to read config file").
			WithContext("path", path)
	}

	cfg, err := Parse([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, brimerrors.Wrap(err, brimerrors.CategoryConfig, brimerrors.SeverityFatal, "failed to parse config file").
			WithContext("path", path)
	}
	return cfg, nil
}

// Parse decodes YAML configuration and applies defaults. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func loadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			fmt.Fprintf(os.Stderr, "Note: %s could not be loaded: %v\n", name, err)
		}
	}
}

// Validate checks value ranges and formats.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return brimerrors.ValidationFailed("workers", "must be at least 1")
	}
	switch strings.ToLower(c.Escape) {
	case "none", "html", "sanitize":
	default:
		return brimerrors.ValidationFailed("escape", fmt.Sprintf("unknown mode %q (want none, html or sanitize)", c.Escape))
	}
	if q := c.Assets.JPEGQuality; q < 1 || q > 100 {
		return brimerrors.ValidationFailed("assets.jpeg_quality", "must be between 1 and 100")
	}
	for _, ext := range c.DataExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return brimerrors.ValidationFailed("data_extensions", fmt.Sprintf("%q must start with a dot", ext))
		}
	}
	if c.OutputExtension != "" && !strings.HasPrefix(c.OutputExtension, ".") {
		return brimerrors.ValidationFailed("output_extension", fmt.Sprintf("%q must start with a dot", c.OutputExtension))
	}
	if strings.TrimSpace(c.Namespace) == "" || strings.ContainsAny(c.Namespace, "<>/: \t\n") {
		return brimerrors.ValidationFailed("namespace", fmt.Sprintf("%q is not a valid tag prefix", c.Namespace))
	}
	if c.Template == "" {
		return brimerrors.ValidationFailed("template", "must not be empty")
	}
	return nil
}

// Resolve makes relative paths absolute against base, normally the
// directory holding the configuration file.
func (c *Config) Resolve(base string) {
	for _, p := range []*string{&c.Template, &c.Source, &c.Output, &c.Manifest, &c.Metrics.Textfile} {
		if *p == "" || filepath.IsAbs(*p) {
			continue
		}
		*p = filepath.Join(base, *p)
	}
}

// OutputExt returns the extension of rendered documents: the configured one,
// else the template's, else ".html".
func (c *Config) OutputExt() string {
	if c.OutputExtension != "" {
		return c.OutputExtension
	}
	if ext := filepath.Ext(c.Template); ext != "" {
		return ext
	}
	return ".html"
}

// IsDataFile reports whether name has one of the data extensions.
func (c *Config) IsDataFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range c.DataExtensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
