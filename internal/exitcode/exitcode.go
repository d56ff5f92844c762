// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, position out of range).
	UserError = 1

	// ConfigError indicates a config or remote auth error.
	ConfigError = 2

	// BackendError indicates a storage slot or remote API error.
	BackendError = 3
)
