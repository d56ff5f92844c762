// Package service defines the backend-agnostic interface for the remote task
// service that local tasks are mirrored into.
package service

import (
	"context"
	"errors"
)

var (
	// ErrListNotFound is returned when no remote list has the requested name.
	ErrListNotFound = errors.New("list not found")

	// ErrAmbiguousList is returned when several remote lists share the name.
	ErrAmbiguousList = errors.New("ambiguous list name")

	// ErrAuth is returned when credentials are missing, expired or revoked.
	ErrAuth = errors.New("auth error")
)

// Service defines the interface for remote task operations.
// All Google Tasks API calls go through this interface.
// Commands never import Google SDK directly.
type Service interface {
	// DefaultList returns the user's default task list.
	DefaultList(ctx context.Context) (TaskList, error)

	// ListLists returns all task lists in API order.
	ListLists(ctx context.Context) ([]TaskList, error)

	// ResolveList finds a list by name (case-insensitive, trimmed).
	// Returns ErrListNotFound or ErrAmbiguousList.
	ResolveList(ctx context.Context, name string) (TaskList, error)

	// ListTasks returns every task in the list, completed ones included,
	// in API order.
	ListTasks(ctx context.Context, listID string) ([]Task, error)

	// CreateTask creates a new open task in the specified list.
	CreateTask(ctx context.Context, listID, title string) (Task, error)

	// CompleteTask marks a task as completed.
	CompleteTask(ctx context.Context, listID, taskID string) error
}
