package commands

import (
	"errors"
	"fmt"
	"io"

	"tasklist/internal/exitcode"
	"tasklist/internal/store"
	"tasklist/internal/task"
)

// findTaskByNumber returns the task at the 1-based position in the snapshot.
func findTaskByNumber(snap task.Snapshot, num int) (task.Task, error) {
	if num < 1 || num > len(snap.Tasks) {
		return task.Task{}, fmt.Errorf("task number out of range: %d", num)
	}
	return snap.Tasks[num-1], nil
}

// resolveRef parses the task reference in args and looks it up, reporting
// user errors to errOut. ok is false when the command should exit with
// exitcode.UserError.
func resolveRef(st *store.Store, args []string, errOut io.Writer) (t task.Task, rest []string, ok bool) {
	num, rest, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return task.Task{}, nil, false
	}
	t, err = findTaskByNumber(st.Snapshot(), num)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return task.Task{}, nil, false
	}
	return t, rest, true
}

// storeError reports a store failure and returns its exit code.
func storeError(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, store.ErrTaskNotFound), errors.Is(err, store.ErrNoEditSession):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	default:
		fmt.Fprintf(errOut, "error: storage error: %v\n", err)
		return exitcode.BackendError
	}
}
