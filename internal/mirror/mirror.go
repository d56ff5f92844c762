// Package mirror pushes the local task list into a remote task service.
// The push is one-way and additive: remote tasks are created or completed,
// never reopened or deleted.
package mirror

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"tasklist/internal/service"
	"tasklist/internal/task"
)

// Result counts what a push did.
type Result struct {
	Created   int
	Completed int
	Unchanged int
}

func (r Result) String() string {
	return fmt.Sprintf("created %d, completed %d, unchanged %d", r.Created, r.Completed, r.Unchanged)
}

// Mirror pushes to one remote service.
type Mirror struct {
	svc service.Service
	log *log.Logger
}

// New creates a Mirror. A nil logger discards.
func New(svc service.Service, logger *log.Logger) *Mirror {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Mirror{svc: svc, log: logger}
}

// ResolveList returns the named remote list, or the default list when name
// is empty.
func (m *Mirror) ResolveList(ctx context.Context, name string) (service.TaskList, error) {
	if name == "" {
		return m.svc.DefaultList(ctx)
	}
	return m.svc.ResolveList(ctx, name)
}

// Push mirrors tasks into the remote list in order. A local task matches a
// remote task with the same title; each remote task matches at most one
// local task, so duplicate local titles create duplicates remotely.
func (m *Mirror) Push(ctx context.Context, listID string, tasks []task.Task) (Result, error) {
	var res Result

	remote, err := m.svc.ListTasks(ctx, listID)
	if err != nil {
		return res, err
	}
	byTitle := make(map[string][]service.Task)
	for _, rt := range remote {
		byTitle[rt.Title] = append(byTitle[rt.Title], rt)
	}

	for _, lt := range tasks {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		matches := byTitle[lt.Text]
		if len(matches) == 0 {
			created, err := m.svc.CreateTask(ctx, listID, lt.Text)
			if err != nil {
				return res, fmt.Errorf("create %q: %w", lt.Text, err)
			}
			if lt.Completed {
				if err := m.svc.CompleteTask(ctx, listID, created.ID); err != nil {
					return res, fmt.Errorf("complete %q: %w", lt.Text, err)
				}
			}
			m.log.Debug("created remote task", "id", created.ID, "local", lt.ID)
			res.Created++
			continue
		}

		rt := matches[0]
		byTitle[lt.Text] = matches[1:]
		if lt.Completed && !rt.Completed() {
			if err := m.svc.CompleteTask(ctx, listID, rt.ID); err != nil {
				return res, fmt.Errorf("complete %q: %w", lt.Text, err)
			}
			m.log.Debug("completed remote task", "id", rt.ID, "local", lt.ID)
			res.Completed++
			continue
		}
		res.Unchanged++
	}

	m.log.Info("push finished", "list", listID, "created", res.Created, "completed", res.Completed, "unchanged", res.Unchanged)
	return res, nil
}
