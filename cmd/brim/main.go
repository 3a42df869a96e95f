package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/brim/cmd/brim/commands"
	"git.home.luguber.info/inful/brim/internal/errors"
	"git.home.luguber.info/inful/brim/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Must(cli,
		kong.Name("brim"),
		kong.Description("Render data files through an annotated HTML template and mirror the asset tree."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	g := &commands.Global{Ctx: ctx, Logger: slog.Default(), Out: os.Stdout}
	err = kctx.Run(g, cli)
	stop()

	errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
