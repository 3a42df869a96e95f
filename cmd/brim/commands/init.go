package commands

import (
	"fmt"

	"git.home.luguber.info/inful/brim/internal/scaffold"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Dir   string `arg:"" optional:"" help:"Project directory" default:"."`
	Yes   bool   `short:"y" help:"Accept the defaults without prompting"`
	Force bool   `help:"Overwrite existing files"`
}

func (c *InitCmd) Run(g *Global, _ *CLI) error {
	var p scaffold.Prompter = scaffold.Defaults{}
	if !c.Yes && scaffold.Interactive() {
		p = scaffold.SurveyPrompter{}
	}
	res, err := scaffold.Init(g.context(), scaffold.Options{
		Dir:      c.Dir,
		Force:    c.Force,
		Prompter: p,
		Log:      g.logger(),
	})
	if err != nil {
		return err
	}
	for _, f := range res.Files {
		_, _ = fmt.Fprintf(g.out(), "created %s\n", f)
	}
	_, _ = fmt.Fprintf(g.out(), "Run 'brim build' in %s to render the site.\n", c.Dir)
	return nil
}
