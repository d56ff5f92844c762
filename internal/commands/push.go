package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"tasklist/internal/config"
	"tasklist/internal/exitcode"
	"tasklist/internal/mirror"
	"tasklist/internal/service"
)

func init() {
	Register(&PushCmd{})
}

// PushCmd implements the push command.
type PushCmd struct {
	listName string
}

// SetListName sets the list name (for testing).
func (c *PushCmd) SetListName(name string) {
	c.listName = name
}

func (c *PushCmd) Name() string      { return "push" }
func (c *PushCmd) Aliases() []string { return nil }
func (c *PushCmd) Synopsis() string  { return "Copy tasks to Google Tasks" }
func (c *PushCmd) Usage() string     { return "tasklist push [--list <list-name>]" }
func (c *PushCmd) NeedsStore() bool  { return true }
func (c *PushCmd) NeedsRemote() bool { return true }

func (c *PushCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *PushCmd) Run(ctx context.Context, cfg *config.Config, deps Deps, args []string, out, errOut io.Writer) int {
	if deps.Remote == nil {
		fmt.Fprintln(errOut, "error: backend error: remote service unavailable")
		return exitcode.BackendError
	}
	m := mirror.New(deps.Remote, deps.Log)

	list, err := m.ResolveList(ctx, c.listName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrListNotFound):
			fmt.Fprintf(errOut, "error: list not found: %s\n", c.listName)
			return exitcode.UserError
		case errors.Is(err, service.ErrAmbiguousList):
			fmt.Fprintf(errOut, "error: ambiguous list name: %s\n", c.listName)
			return exitcode.UserError
		}
		return remoteError(errOut, err)
	}

	res, err := m.Push(ctx, list.ID, deps.Store.Snapshot().Tasks)
	if err != nil {
		return remoteError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, res)
	}
	return exitcode.Success
}

func remoteError(errOut io.Writer, err error) int {
	if errors.Is(err, service.ErrAuth) {
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.ConfigError
	}
	fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	return exitcode.BackendError
}
