package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasklist/internal/config"
	"tasklist/internal/exitcode"
	"tasklist/internal/tui"
)

func init() {
	Register(&TUICmd{})
}

// TUICmd implements the interactive terminal UI.
type TUICmd struct{}

func (c *TUICmd) Name() string      { return "tui" }
func (c *TUICmd) Aliases() []string { return []string{"ui"} }
func (c *TUICmd) Synopsis() string  { return "Open the interactive list" }
func (c *TUICmd) Usage() string     { return "tasklist tui" }
func (c *TUICmd) NeedsStore() bool  { return true }
func (c *TUICmd) NeedsRemote() bool { return false }

func (c *TUICmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *TUICmd) Run(ctx context.Context, cfg *config.Config, deps Deps, args []string, out, errOut io.Writer) int {
	if err := tui.Run(ctx, deps.Store); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
