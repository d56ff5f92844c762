package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasklist/internal/config"
	"tasklist/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasklist help" }
func (c *HelpCmd) NeedsStore() bool  { return false }
func (c *HelpCmd) NeedsRemote() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, deps Deps, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  tasklist                                   List tasks
  tasklist list [common flags]               List tasks
  tasklist add [common flags] <text...>      Add a task
  tasklist edit [common flags] <n> <text...> Replace a task's text
  tasklist done [common flags] <n>           Toggle a task's completion
  tasklist rm [common flags] <n>             Delete a task
  tasklist export [common flags] [--format json|csv|pdf] [--output <file>]
  tasklist push [common flags] [--list <list-name>]
  tasklist tui [common flags]                Open the interactive list
  tasklist serve [common flags] [--listen <addr>]
  tasklist login [common flags]
  tasklist logout [common flags]
  tasklist help
  tasklist version

Common flags:
  --config <dir>     Override config directory
  --backend <name>   Storage backend: file, memory, redis, postgres, mysql
  --lang <locale>    Interface language: en, bn
  --quiet            Suppress informational output
  --debug            Print debug logs to stderr
`
