// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"github.com/charmbracelet/log"

	"tasklist/internal/config"
	"tasklist/internal/metrics"
	"tasklist/internal/service"
	"tasklist/internal/store"
)

// Deps carries what the dispatcher built for a command.
type Deps struct {
	// Store is the hydrated task store. Nil unless NeedsStore.
	Store *store.Store

	// Remote is the remote task service. Nil unless NeedsRemote.
	Remote service.Service

	// Log is never nil.
	Log *log.Logger

	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsStore returns true if the command reads or mutates the task list.
	NeedsStore() bool

	// NeedsRemote returns true if the command talks to Google Tasks.
	// Commands like help, version, login, logout return false.
	NeedsRemote() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths).
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, deps Deps, args []string, out, errOut io.Writer) int
}
