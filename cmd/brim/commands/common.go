// Package commands holds the brim subcommands.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/brim/internal/config"
)

// Global is shared state handed to every subcommand.
type Global struct {
	Ctx    context.Context
	Logger *slog.Logger
	Out    io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"brim.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Render every data file and mirror the asset tree"`
	Tags  TagsCmd  `cmd:"" help:"List the directive tags of the template"`
	Watch WatchCmd `cmd:"" help:"Build, then rebuild whenever the inputs change"`
	Init  InitCmd  `cmd:"" help:"Create a starter project"`

	cfg    *config.Config
	cfgErr error
}

// AfterApply runs after flag parsing: it loads the configuration once and
// sets up logging from it.
func (c *CLI) AfterApply() error {
	c.cfg, c.cfgErr = config.Load(c.Config, c.Config != config.DefaultPath)
	level := config.LogLevelInfo
	format := config.LogFormatText
	if c.cfgErr == nil {
		level = config.NormalizeLogLevel(string(c.cfg.Logging.Level))
		format = config.NormalizeLogFormat(string(c.cfg.Logging.Format))
	}
	slvl := level.Slog()
	if c.Verbose {
		slvl = slog.LevelDebug
	}
	slog.SetDefault(newLogger(os.Stderr, slvl, format))
	return nil
}

// LoadConfig returns the configuration with relative paths resolved
// against the directory of the configuration file.
func (c *CLI) LoadConfig() (*config.Config, error) {
	if c.cfg == nil && c.cfgErr == nil {
		c.cfg, c.cfgErr = config.Load(c.Config, c.Config != config.DefaultPath)
	}
	if c.cfgErr != nil {
		return nil, c.cfgErr
	}
	cfg := *c.cfg
	cfg.Resolve(filepath.Dir(c.Config))
	return &cfg, nil
}

func newLogger(w io.Writer, level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (g *Global) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

func (g *Global) out() io.Writer {
	if g.Out != nil {
		return g.Out
	}
	return os.Stdout
}

func (g *Global) context() context.Context {
	if g.Ctx != nil {
		return g.Ctx
	}
	return context.Background()
}
