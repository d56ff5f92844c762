// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"tasklist/internal/locale"
	"tasklist/internal/task"
)

const (
	// ListSeparator is the separator line around the list title.
	ListSeparator = "------------"
)

// FormatTask formats a task line for the list.
// Format: "{N:>4}  [x] {TEXT}\n" (4-wide right-aligned number, two spaces, mark, text)
func FormatTask(w io.Writer, num int, t task.Task) {
	fmt.Fprintf(w, "%4d  %s %s\n", num, Mark(t.Completed), normalizeText(t.Text))
}

// FormatHeader formats the localized list title between separators.
func FormatHeader(w io.Writer, l locale.Locale) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintln(w, l.T(locale.Title))
	fmt.Fprintln(w, ListSeparator)
}

// FormatTasks writes every task, or the localized empty line.
// The empty line is skipped when quiet.
func FormatTasks(w io.Writer, snap task.Snapshot, quiet bool) {
	if len(snap.Tasks) == 0 {
		if !quiet {
			fmt.Fprintln(w, snap.Locale.T(locale.NoTasks))
		}
		return
	}
	for i, t := range snap.Tasks {
		FormatTask(w, i+1, t)
	}
}

// Mark returns the completion checkbox.
func Mark(completed bool) string {
	if completed {
		return "[x]"
	}
	return "[ ]"
}

// normalizeText keeps each task on one line.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.ReplaceAll(text, "\n", " ")
}
