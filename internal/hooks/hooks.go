// Package hooks runs the pre and post actions named by template directives.
//
// Only the actions registered here exist; a payload is a name followed by
// whitespace separated arguments, and every path an action touches is
// confined to the destination tree.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/brim/internal/directive"
	"git.home.luguber.info/inful/brim/internal/errors"
	"git.home.luguber.info/inful/brim/internal/logfields"
)

// Phase is when an action runs relative to the build.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// Action is one validated hook invocation.
type Action struct {
	Phase   Phase
	Name    string
	Args    []string
	Payload string
}

func (a Action) String() string { return a.Payload }

// Env is what an action may act upon.
type Env struct {
	// Dest is the absolute destination directory.
	Dest string
	Log  *slog.Logger
}

type handler struct {
	phases  []Phase
	minArgs int
	maxArgs int // -1 for unbounded
	run     func(ctx context.Context, env Env, a Action) error
}

var registry = map[string]handler{
	"clean":       {phases: []Phase{PhasePre}, minArgs: 0, maxArgs: 0, run: runClean},
	"echo":        {phases: []Phase{PhasePre, PhasePost}, minArgs: 0, maxArgs: -1, run: runEcho},
	"precompress": {phases: []Phase{PhasePost}, minArgs: 0, maxArgs: -1, run: runPrecompress},
	"mkdir":       {phases: []Phase{PhasePre, PhasePost}, minArgs: 1, maxArgs: 1, run: runMkdir},
}

// Names returns the registered action names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Parse validates one payload for phase.
func Parse(phase Phase, payload string) (Action, error) {
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		return Action{}, errors.ValidationFailed(string(phase), "empty hook payload")
	}
	name := strings.ToLower(fields[0])
	h, ok := registry[name]
	if !ok {
		return Action{}, errors.UnknownHookAction(fields[0]).WithContext("phase", string(phase))
	}
	allowed := false
	for _, p := range h.phases {
		if p == phase {
			allowed = true
			break
		}
	}
	if !allowed {
		return Action{}, errors.ValidationFailed(string(phase), fmt.Sprintf("%s cannot run as a %s hook", name, phase))
	}
	args := fields[1:]
	if len(args) < h.minArgs || (h.maxArgs >= 0 && len(args) > h.maxArgs) {
		return Action{}, errors.ValidationFailed(string(phase), fmt.Sprintf("%s: wrong number of arguments (%d)", name, len(args)))
	}
	if name == "mkdir" {
		if _, err := confine(".", args[0]); err != nil {
			return Action{}, errors.ValidationFailed(string(phase), err.Error())
		}
	}
	return Action{Phase: phase, Name: name, Args: args, Payload: strings.TrimSpace(payload)}, nil
}

// FromDirectives validates every pre and post payload in m.
func FromDirectives(m *directive.Map) (pre, post []Action, err error) {
	for _, payload := range m.Values(string(PhasePre)) {
		a, err := Parse(PhasePre, payload)
		if err != nil {
			return nil, nil, err
		}
		pre = append(pre, a)
	}
	for _, payload := range m.Values(string(PhasePost)) {
		a, err := Parse(PhasePost, payload)
		if err != nil {
			return nil, nil, err
		}
		post = append(post, a)
	}
	return pre, post, nil
}

// Run executes actions in order and stops at the first failure.
func Run(ctx context.Context, env Env, actions []Action) error {
	if env.Log == nil {
		env.Log = slog.Default()
	}
	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		env.Log.Debug("Running hook", logfields.Action(a.Name), logfields.Stage(string(a.Phase)))
		if err := registry[a.Name].run(ctx, env, a); err != nil {
			return errors.HookFailed(a.Payload, err)
		}
	}
	return nil
}

// confine joins rel onto root. rel must be a local path: relative and
// without ".." elements that climb out of root.
func confine(root, rel string) (string, error) {
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("path %q must stay inside the destination", rel)
	}
	return filepath.Join(root, rel), nil
}

func runEcho(_ context.Context, env Env, a Action) error {
	env.Log.Info(strings.Join(a.Args, " "), logfields.Action(a.Name), logfields.Stage(string(a.Phase)))
	return nil
}

func runMkdir(_ context.Context, env Env, a Action) error {
	p, err := confine(env.Dest, a.Args[0])
	if err != nil {
		return err
	}
	return os.MkdirAll(p, 0o750)
}

func runClean(ctx context.Context, env Env, _ Action) error {
	if err := guardDest(env.Dest); err != nil {
		return err
	}
	entries, err := os.ReadDir(env.Dest)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.RemoveAll(filepath.Join(env.Dest, e.Name())); err != nil {
			return err
		}
	}
	env.Log.Info("Cleaned destination", logfields.Path(env.Dest), logfields.Count(len(entries)))
	return nil
}

func guardDest(dest string) error {
	if dest == "" || !filepath.IsAbs(dest) {
		return fmt.Errorf("destination %q must be an absolute path", dest)
	}
	clean := filepath.Clean(dest)
	if clean == filepath.Dir(clean) {
		return fmt.Errorf("refusing to clean filesystem root")
	}
	if home, err := os.UserHomeDir(); err == nil && clean == filepath.Clean(home) {
		return fmt.Errorf("refusing to clean home directory")
	}
	return nil
}
