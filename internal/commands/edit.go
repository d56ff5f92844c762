package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasklist/internal/config"
	"tasklist/internal/exitcode"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command: a full edit session in one step.
type EditCmd struct{}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return []string{"mv"} }
func (c *EditCmd) Synopsis() string  { return "Replace a task's text" }
func (c *EditCmd) Usage() string     { return "tasklist edit [--] <n> <text...>" }
func (c *EditCmd) NeedsStore() bool  { return true }
func (c *EditCmd) NeedsRemote() bool { return false }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, deps Deps, args []string, out, errOut io.Writer) int {
	t, rest, ok := resolveRef(deps.Store, args, errOut)
	if !ok {
		return exitcode.UserError
	}
	if len(rest) == 0 {
		fmt.Fprintln(errOut, "error: text required")
		return exitcode.UserError
	}

	if err := deps.Store.StartEditing(t.ID); err != nil {
		return storeError(errOut, err)
	}
	committed, err := deps.Store.CommitEditing(ctx, t.ID, strings.Join(rest, " "))
	if err != nil {
		return storeError(errOut, err)
	}
	if !committed {
		// Blank text leaves the task as it was.
		deps.Store.CancelEditing()
		return exitcode.Success
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
