// Package task defines the task record and the read-only views handed to
// presentation layers.
package task

import (
	"strings"

	"github.com/google/uuid"

	"tasklist/internal/locale"
)

// Task represents a single todo entry.
type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// EditSession is the single in-progress inline edit.
// Draft is independent of the task's stored text until committed.
type EditSession struct {
	ID    string `json:"id"`
	Draft string `json:"draft"`
}

// Snapshot is a copy of the store state for rendering.
type Snapshot struct {
	Tasks         []Task        `json:"tasks"`
	Editing       *EditSession  `json:"editing,omitempty"`
	Input         string        `json:"input"`
	NoticeVisible bool          `json:"notice_visible"`
	Locale        locale.Locale `json:"locale"`
}

// IsEditing reports whether the task with the given ID is in inline-edit mode.
func (s Snapshot) IsEditing(id string) bool {
	return s.Editing != nil && s.Editing.ID == id
}

// Find returns the task with the given ID and its 0-based position.
func (s Snapshot) Find(id string) (Task, int, bool) {
	for i, t := range s.Tasks {
		if t.ID == id {
			return t, i, true
		}
	}
	return Task{}, -1, false
}

// NewID returns a fresh opaque task identifier.
func NewID() string {
	return uuid.NewString()
}

// NormalizeText trims surrounding whitespace.
// Returns false if nothing is left.
func NormalizeText(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	return text, text != ""
}
