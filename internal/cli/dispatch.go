// Package cli parses the command line and wires dependencies for commands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasklist/internal/commands"
	"tasklist/internal/config"
	"tasklist/internal/exitcode"
	"tasklist/internal/logging"
	"tasklist/internal/metrics"
	"tasklist/internal/service"
	"tasklist/internal/slot"
	"tasklist/internal/store"
)

// ServiceFactory creates a Service from config.
// Used to inject the remote backend during dispatch.
type ServiceFactory func(ctx context.Context, cfg *config.Config) (service.Service, error)

// SlotOpener opens the storage slot from config.
type SlotOpener func(ctx context.Context, cfg *config.Config) (slot.Slot, error)

// OpenSlot opens the slot configured in cfg.
func OpenSlot(ctx context.Context, cfg *config.Config) (slot.Slot, error) {
	return slot.Open(ctx, cfg.SlotOptions())
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
	opener   SlotOpener
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSlotOpener replaces how the storage slot is opened.
func WithSlotOpener(fn SlotOpener) Option {
	return func(d *Dispatcher) { d.opener = fn }
}

// NewDispatcher creates a new dispatcher with the given registry and service factory.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		factory:  factory,
		opener:   OpenSlot,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatchCommand(ctx, cmd, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configDir string
	backend   string
	lang      string
	quiet     bool
	debug     bool
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configDir, "config", "", "")
	fs.StringVar(&f.backend, "backend", "", "")
	fs.StringVar(&f.lang, "lang", "", "")
	fs.BoolVar(&f.quiet, "quiet", false, "")
	fs.BoolVar(&f.debug, "debug", false, "")
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	var common commonFlags
	common.register(fs)
	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		reportFlagError(errOut, err)
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag).
	// Anything after an explicit "--" is taken as is.
	positionalArgs := fs.Args()
	consumed := len(args) - len(positionalArgs)
	terminated := consumed > 0 && args[consumed-1] == "--"
	if !terminated && len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.Load(common.configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.ConfigError
	}
	cfg.Quiet = common.quiet
	cfg.Debug = common.debug
	if common.backend != "" {
		cfg.Storage.Backend = common.backend
	}
	if common.lang != "" {
		cfg.UI.Locale = common.lang
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.ConfigError
	}

	logger, err := logging.New(errOut, logging.Options{
		Level:  cfg.LogLevel(),
		Format: cfg.Log.Format,
	})
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.ConfigError
	}

	deps := commands.Deps{
		Log:     logger,
		Metrics: metrics.New(),
	}

	if cmd.NeedsStore() {
		st, closeStore, code := d.openStore(ctx, cfg, deps, errOut)
		if code != exitcode.Success {
			return code
		}
		defer closeStore()
		deps.Store = st
	}

	if cmd.NeedsRemote() {
		svc, code := d.openRemote(ctx, cfg, errOut)
		if code != exitcode.Success {
			return code
		}
		deps.Remote = svc
	}

	logger.Debug("running command", "command", cmd.Name(), "backend", cfg.Storage.Backend)
	return cmd.Run(ctx, cfg, deps, positionalArgs, out, errOut)
}

// openStore opens the slot and hydrates a store over it.
func (d *Dispatcher) openStore(ctx context.Context, cfg *config.Config, deps commands.Deps, errOut io.Writer) (*store.Store, func(), int) {
	sl, err := d.opener(ctx, cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: storage error: %v\n", err)
		return nil, nil, exitcode.BackendError
	}

	st := store.New(sl,
		store.WithKey(cfg.Storage.Key),
		store.WithLogger(deps.Log),
		store.WithObserver(deps.Metrics),
		store.WithLocale(cfg.Locale()),
		store.WithNoticeDuration(cfg.NoticeDuration()),
	)
	closeAll := func() {
		st.Close()
		if err := sl.Close(); err != nil {
			deps.Log.Warn("closing storage", "err", err)
		}
	}

	if err := st.Hydrate(ctx); err != nil {
		closeAll()
		fmt.Fprintf(errOut, "error: storage error: %v\n", err)
		return nil, nil, exitcode.BackendError
	}
	return st, closeAll, exitcode.Success
}

// openRemote builds the remote service. Without a factory it only runs the
// credential pre-flight checks and returns a nil service.
func (d *Dispatcher) openRemote(ctx context.Context, cfg *config.Config, errOut io.Writer) (service.Service, int) {
	if d.factory == nil {
		if !cfg.HasOAuthClient() {
			fmt.Fprintf(errOut, "error: %s not found in %s\n", config.OAuthClientFile, cfg.Dir)
			return nil, exitcode.ConfigError
		}
		if !cfg.HasToken() {
			fmt.Fprintln(errOut, "error: not logged in (run: tasklist login)")
			return nil, exitcode.ConfigError
		}
		return nil, exitcode.Success
	}

	svc, err := d.factory(ctx, cfg)
	if err != nil {
		if errors.Is(err, service.ErrAuth) {
			fmt.Fprintf(errOut, "error: auth error: %s\n", err)
			return nil, exitcode.ConfigError
		}
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return nil, exitcode.BackendError
	}
	return svc, exitcode.Success
}

func reportFlagError(errOut io.Writer, err error) {
	errStr := err.Error()

	// Missing flag value
	if strings.Contains(errStr, "needs a value") || strings.Contains(errStr, "flag needs an argument") {
		flagPart := errStr
		if i := strings.LastIndex(errStr, ":"); i >= 0 {
			flagPart = strings.TrimSpace(errStr[i+1:])
		}
		fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagPart)
		return
	}

	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		flagName := strings.TrimPrefix(errStr, "flag provided but not defined: ")
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
		return
	}

	fmt.Fprintf(errOut, "error: %s\n", errStr)
}
