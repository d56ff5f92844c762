// Package store owns the task list, the single edit session, the "added"
// notice and the label locale. Every data mutation writes a full snapshot to
// the persistent slot before returning.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"tasklist/internal/locale"
	"tasklist/internal/persist"
	"tasklist/internal/slot"
	"tasklist/internal/task"
)

// DefaultKey is the slot key the list is stored under.
const DefaultKey = "tasks"

var (
	// ErrTaskNotFound is returned for an ID that is not in the list.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNoEditSession is returned when an edit operation has no matching session.
	ErrNoEditSession = errors.New("no edit session")

	// ErrNotHydrated is returned by mutations issued before Hydrate succeeded.
	ErrNotHydrated = errors.New("store not hydrated")
)

// Operation names reported to the Observer.
const (
	OpAdd        = "add"
	OpDelete     = "delete"
	OpEditStart  = "edit_start"
	OpEditCommit = "edit_commit"
	OpEditCancel = "edit_cancel"
	OpToggle     = "toggle"
	OpLanguage   = "language"
)

// Hydration results reported to the Observer.
const (
	HydrateLoaded    = "loaded"
	HydrateEmpty     = "empty"
	HydrateMalformed = "malformed"
	HydrateError     = "error"
)

// Observer receives store events, e.g. for metrics.
type Observer interface {
	Operation(op string)
	Hydrated(result string)
	PersistFailed(err error)
	TaskCount(n int)
}

// Store is the task list state model.
type Store struct {
	slot      slot.Slot
	key       string
	log       *log.Logger
	observer  Observer
	newID     func() string
	schedule  Scheduler
	noticeFor time.Duration

	mu            sync.Mutex
	hydrated      bool
	tasks         []task.Task
	editing       *task.EditSession
	input         string
	locale        locale.Locale
	noticeVisible bool
	noticeTimer   Timer
	noticeGen     uint64

	subsMu  sync.Mutex
	subs    map[int]func()
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithKey sets the slot key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithIDGenerator replaces the task ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithScheduler replaces the timer used to hide the notice.
func WithScheduler(fn Scheduler) Option {
	return func(s *Store) { s.schedule = fn }
}

// WithNoticeDuration sets how long the "added" notice stays visible.
func WithNoticeDuration(d time.Duration) Option {
	return func(s *Store) { s.noticeFor = d }
}

// WithLocale sets the initial label locale.
func WithLocale(l locale.Locale) Option {
	return func(s *Store) { s.locale = l }
}

// New creates an empty store backed by sl. Call Hydrate before mutating.
func New(sl slot.Slot, opts ...Option) *Store {
	s := &Store{
		slot:      sl,
		key:       DefaultKey,
		log:       log.New(io.Discard),
		newID:     task.NewID,
		schedule:  afterFunc,
		noticeFor: DefaultNoticeDuration,
		locale:    locale.English,
		subs:      make(map[int]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate loads the persisted list. It only does work the first time it
// succeeds. An absent or malformed value leaves the list empty without error;
// a backend read failure is returned.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	if s.hydrated {
		s.mu.Unlock()
		return nil
	}

	result := HydrateLoaded
	data, err := s.slot.Get(ctx, s.key)
	switch {
	case errors.Is(err, slot.ErrNotFound):
		result = HydrateEmpty
	case err != nil:
		s.mu.Unlock()
		s.log.Error("hydrate failed", "key", s.key, "err", err)
		s.observeHydrate(HydrateError)
		return fmt.Errorf("store: hydrate: %w", err)
	default:
		tasks, err := persist.Decode(data, s.newID)
		if err != nil {
			s.log.Debug("discarding malformed task list", "key", s.key, "err", err)
			result = HydrateMalformed
		} else {
			s.tasks = tasks
		}
	}
	s.hydrated = true
	n := len(s.tasks)
	s.mu.Unlock()

	s.log.Debug("hydrated", "key", s.key, "result", result, "tasks", n)
	s.observeHydrate(result)
	if s.observer != nil {
		s.observer.TaskCount(n)
	}
	s.notify()
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() task.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := task.Snapshot{
		Tasks:         slices.Clone(s.tasks),
		Input:         s.input,
		NoticeVisible: s.noticeVisible,
		Locale:        s.locale,
	}
	if snap.Tasks == nil {
		snap.Tasks = []task.Task{}
	}
	if s.editing != nil {
		e := *s.editing
		snap.Editing = &e
	}
	return snap
}

// SetInput replaces the new-task input buffer.
func (s *Store) SetInput(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
	s.notify()
}

// AddTask appends a task with the trimmed text. Blank text is ignored and
// reported as false with a nil error. On success the input buffer is cleared
// and the notice shown.
func (s *Store) AddTask(ctx context.Context, raw string) (task.Task, bool, error) {
	text, ok := task.NormalizeText(raw)
	if !ok {
		return task.Task{}, false, nil
	}

	s.mu.Lock()
	if !s.hydrated {
		s.mu.Unlock()
		return task.Task{}, false, ErrNotHydrated
	}
	t := task.Task{ID: s.newID(), Text: text}
	s.tasks = append(s.tasks, t)
	s.input = ""
	err := s.persistLocked(ctx)
	s.showNoticeLocked()
	s.mu.Unlock()

	s.log.Debug("task added", "id", t.ID)
	s.observe(OpAdd)
	s.notify()
	return t, true, err
}

// DeleteTask removes the task. Later tasks move up one position. Deleting the
// task under edit ends the session.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	if !s.hydrated {
		s.mu.Unlock()
		return ErrNotHydrated
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	s.tasks = slices.Delete(s.tasks, i, i+1)
	if s.editing != nil && s.editing.ID == id {
		s.editing = nil
	}
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.log.Debug("task deleted", "id", id)
	s.observe(OpDelete)
	s.notify()
	return err
}

// StartEditing opens an edit session on the task with its current text as the
// draft. A previous unsaved session is dropped.
func (s *Store) StartEditing(id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if s.editing != nil && s.editing.ID != id {
		s.log.Debug("abandoning edit session", "id", s.editing.ID)
	}
	s.editing = &task.EditSession{ID: id, Draft: s.tasks[i].Text}
	s.mu.Unlock()

	s.observe(OpEditStart)
	s.notify()
	return nil
}

// SetDraft replaces the draft text of the open session.
func (s *Store) SetDraft(text string) error {
	s.mu.Lock()
	if s.editing == nil {
		s.mu.Unlock()
		return ErrNoEditSession
	}
	s.editing.Draft = text
	s.mu.Unlock()
	s.notify()
	return nil
}

// CancelEditing ends the session without touching any task.
func (s *Store) CancelEditing() {
	s.mu.Lock()
	had := s.editing != nil
	s.editing = nil
	s.mu.Unlock()

	if had {
		s.observe(OpEditCancel)
		s.notify()
	}
}

// CommitEditing writes the trimmed draft to the task under edit. A blank
// draft is ignored: the session stays open and false is returned.
func (s *Store) CommitEditing(ctx context.Context, id, draft string) (bool, error) {
	s.mu.Lock()
	if !s.hydrated {
		s.mu.Unlock()
		return false, ErrNotHydrated
	}
	if s.editing == nil || s.editing.ID != id {
		s.mu.Unlock()
		return false, ErrNoEditSession
	}

	text, ok := task.NormalizeText(draft)
	if !ok {
		s.editing.Draft = draft
		s.mu.Unlock()
		s.notify()
		return false, nil
	}

	i := s.indexLocked(id)
	if i < 0 {
		s.editing = nil
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	s.tasks[i].Text = text
	s.editing = nil
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.log.Debug("task updated", "id", id)
	s.observe(OpEditCommit)
	s.notify()
	return true, err
}

// ToggleCompletion flips the task's completed flag.
func (s *Store) ToggleCompletion(ctx context.Context, id string) error {
	s.mu.Lock()
	if !s.hydrated {
		s.mu.Unlock()
		return ErrNotHydrated
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	s.tasks[i].Completed = !s.tasks[i].Completed
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.observe(OpToggle)
	s.notify()
	return err
}

// ToggleLanguage switches the label locale. Task data is not touched.
func (s *Store) ToggleLanguage() locale.Locale {
	s.mu.Lock()
	s.locale = s.locale.Toggle()
	l := s.locale
	s.mu.Unlock()

	s.observe(OpLanguage)
	s.notify()
	return l
}

// Subscribe registers fn to run after every state change, outside the store
// lock. fn may run on the notice timer goroutine. The returned func
// unregisters it.
func (s *Store) Subscribe(fn func()) (cancel func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

// Close stops the pending notice timer. The slot is owned by the caller.
func (s *Store) Close() {
	s.mu.Lock()
	s.stopNoticeLocked()
	s.mu.Unlock()
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.tasks, func(t task.Task) bool { return t.ID == id })
}

// persistLocked writes the whole list to the slot. The in-memory state stands
// even when the write fails.
func (s *Store) persistLocked(ctx context.Context) error {
	data, err := persist.Encode(s.tasks)
	if err == nil {
		err = s.slot.Put(ctx, s.key, data)
	}
	if err != nil {
		s.log.Error("persist failed", "key", s.key, "err", err)
		if s.observer != nil {
			s.observer.PersistFailed(err)
		}
		return fmt.Errorf("store: persist: %w", err)
	}
	if s.observer != nil {
		s.observer.TaskCount(len(s.tasks))
	}
	return nil
}

func (s *Store) notify() {
	s.subsMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Store) observe(op string) {
	if s.observer != nil {
		s.observer.Operation(op)
	}
}

func (s *Store) observeHydrate(result string) {
	if s.observer != nil {
		s.observer.Hydrated(result)
	}
}
