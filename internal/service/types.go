package service

import (
	"strings"
)

// Remote task statuses.
const (
	StatusOpen      = "needsAction"
	StatusCompleted = "completed"
)

// Task represents a single remote task item.
type Task struct {
	ID     string
	Title  string
	Status string
}

// Completed reports whether the remote task is done.
func (t Task) Completed() bool {
	return t.Status == StatusCompleted
}

// TaskList represents a remote task list.
type TaskList struct {
	ID        string
	Title     string
	IsDefault bool
}

// MatchList picks the single list whose title equals name, ignoring case and
// surrounding whitespace.
func MatchList(lists []TaskList, name string) (TaskList, error) {
	want := strings.ToLower(strings.TrimSpace(name))

	var matches []TaskList
	for _, l := range lists {
		if strings.ToLower(strings.TrimSpace(l.Title)) == want {
			matches = append(matches, l)
		}
	}

	switch len(matches) {
	case 0:
		return TaskList{}, ErrListNotFound
	case 1:
		return matches[0], nil
	default:
		return TaskList{}, ErrAmbiguousList
	}
}
