package scaffold

import (
	"context"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
)

// Prompter asks the questions of brim init. Implementations other than the
// terminal one let callers run init unattended.
type Prompter interface {
	Input(ctx context.Context, message, def string) (string, error)
	Confirm(ctx context.Context, message string, def bool) (bool, error)
	Select(ctx context.Context, message string, options []string, def string) (string, error)
}

// Interactive reports whether stdin is a terminal.
func Interactive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SurveyPrompter prompts on the terminal.
type SurveyPrompter struct{}

func (SurveyPrompter) Input(ctx context.Context, message, def string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out := def
	prompt := &survey.Input{Message: message, Default: def}
	if err := survey.AskOne(prompt, &out, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return out, nil
}

func (SurveyPrompter) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	out := def
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &out); err != nil {
		return false, err
	}
	return out, nil
}

func (SurveyPrompter) Select(ctx context.Context, message string, options []string, def string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out := def
	if err := survey.AskOne(&survey.Select{Message: message, Options: options, Default: def}, &out); err != nil {
		return "", err
	}
	return out, nil
}

// Defaults answers every question with its default.
type Defaults struct{}

func (Defaults) Input(_ context.Context, _ string, def string) (string, error) { return def, nil }
func (Defaults) Confirm(_ context.Context, _ string, def bool) (bool, error)  { return def, nil }
func (Defaults) Select(_ context.Context, _ string, _ []string, def string) (string, error) {
	return def, nil
}
