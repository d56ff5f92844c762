package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasklist/internal/locale"
	"tasklist/internal/persist"
	"tasklist/internal/slot"
	"tasklist/internal/task"
)

// fakeClock collects scheduled callbacks so tests decide when they fire.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) schedule(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// fire runs the i-th scheduled callback even if it was stopped, as a real
// timer might when Stop loses the race.
func (c *fakeClock) fire(i int) {
	c.mu.Lock()
	t := c.timers[i]
	t.fired = true
	c.mu.Unlock()
	t.f()
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type recorder struct {
	mu        sync.Mutex
	ops       []string
	hydrated  []string
	failures  int
	lastCount int
}

func (r *recorder) Operation(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *recorder) Hydrated(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hydrated = append(r.hydrated, result)
}

func (r *recorder) PersistFailed(error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

func (r *recorder) TaskCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastCount = n
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
}

func newTestStore(t *testing.T, sl slot.Slot, opts ...Option) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	opts = append([]Option{WithScheduler(clock.schedule), WithIDGenerator(sequentialIDs())}, opts...)
	s := New(sl, opts...)
	require.NoError(t, s.Hydrate(context.Background()))
	t.Cleanup(s.Close)
	return s, clock
}

func texts(snap task.Snapshot) []string {
	out := make([]string, len(snap.Tasks))
	for i, tk := range snap.Tasks {
		out[i] = tk.Text
	}
	return out
}

// persisted decodes what the slot currently holds.
func persisted(t *testing.T, sl slot.Slot) []task.Task {
	t.Helper()
	data, err := sl.Get(context.Background(), DefaultKey)
	require.NoError(t, err)
	tasks, err := persist.Decode(data, task.NewID)
	require.NoError(t, err)
	return tasks
}

func TestAddTask(t *testing.T) {
	mem := slot.NewMemory()
	s, _ := newTestStore(t, mem)
	ctx := context.Background()

	s.SetInput("  Buy milk ")
	added, ok, err := s.AddTask(ctx, "  Buy milk ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, task.Task{ID: "t1", Text: "Buy milk"}, added)

	snap := s.Snapshot()
	assert.Equal(t, []task.Task{{ID: "t1", Text: "Buy milk"}}, snap.Tasks)
	assert.Empty(t, snap.Input)
	assert.True(t, snap.NoticeVisible)
	assert.Equal(t, snap.Tasks, persisted(t, mem))
}

func TestAddTaskAppends(t *testing.T) {
	s, _ := newTestStore(t, slot.NewMemory())
	ctx := context.Background()

	for _, text := range []string{"A", "B", "C"} {
		_, _, err := s.AddTask(ctx, text)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"A", "B", "C"}, texts(s.Snapshot()))
}

func TestAddTaskBlankIgnored(t *testing.T) {
	mem := slot.NewMemory()
	s, clock := newTestStore(t, mem)

	for _, raw := range []string{"", "   ", "\t\n"} {
		s.SetInput(raw)
		_, ok, err := s.AddTask(context.Background(), raw)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	snap := s.Snapshot()
	assert.Empty(t, snap.Tasks)
	assert.False(t, snap.NoticeVisible)
	assert.Equal(t, "\t\n", snap.Input, "input is only cleared by an accepted add")
	assert.Zero(t, clock.pending())

	_, err := mem.Get(context.Background(), DefaultKey)
	assert.True(t, errors.Is(err, slot.ErrNotFound), "nothing persisted")
}

func TestAddTaskDuplicateTextGetsDistinctIDs(t *testing.T) {
	s, _ := newTestStore(t, slot.NewMemory(), WithIDGenerator(task.NewID))
	ctx := context.Background()

	a, _, err := s.AddTask(ctx, "same")
	require.NoError(t, err)
	b, _, err := s.AddTask(ctx, "same")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestDeleteTask(t *testing.T) {
	mem := slot.NewMemory()
	s, _ := newTestStore(t, mem)
	ctx := context.Background()
	for _, text := range []string{"A", "B", "C"} {
		_, _, err := s.AddTask(ctx, text)
		require.NoError(t, err)
	}

	require.NoError(t, s.DeleteTask(ctx, "t2"))
	snap := s.Snapshot()
	assert.Equal(t, []string{"A", "C"}, texts(snap))
	assert.Equal(t, snap.Tasks, persisted(t, mem))

	err := s.DeleteTask(ctx, "t2")
	assert.True(t, errors.Is(err, ErrTaskNotFound))
	assert.Len(t, s.Snapshot().Tasks, 2)
}

func TestDeleteTaskEndsEditSessionOnThatTask(t *testing.T) {
	s, _ := newTestStore(t, slot.NewMemory())
	ctx := context.Background()
	_, _, _ = s.AddTask(ctx, "A")
	_, _, _ = s.AddTask(ctx, "B")

	require.NoError(t, s.StartEditing("t1"))
	require.NoError(t, s.DeleteTask(ctx, "t2"))
	assert.True(t, s.Snapshot().IsEditing("t1"), "other session untouched")

	require.NoError(t, s.DeleteTask(ctx, "t1"))
	assert.Nil(t, s.Snapshot().Editing)
}

func TestEditingScenario(t *testing.T) {
	mem := slot.NewMemory()
	s, _ := newTestStore(t, mem)
	ctx := context.Background()
	_, _, _ = s.AddTask(ctx, "A")

	require.NoError(t, s.StartEditing("t1"))
	snap := s.Snapshot()
	require.NotNil(t, snap.Editing)
	assert.Equal(t, task.EditSession{ID: "t1", Draft: "A"}, *snap.Editing)

	require.NoError(t, s.SetDraft("A2"))
	assert.Equal(t, []string{"A"}, texts(s.Snapshot()), "draft does not touch the task")

	ok, err := s.CommitEditing(ctx, "t1", "  A2 ")
	require.NoError(t, err)
	assert.True(t, ok)

	snap = s.Snapshot()
	assert.Equal(t, []string{"A2"}, texts(snap))
	assert.Nil(t, snap.Editing)
	assert.Equal(t, snap.Tasks, persisted(t, mem))
}

func TestCommitBlankDraftKeepsSession(t *testing.T) {
	mem := slot.NewMemory()
	s, _ := newTestStore(t, mem)
	ctx := context.Background()
	_, _, _ = s.AddTask(ctx, "A")
	before := persisted(t, mem)

	require.NoError(t, s.StartEditing("t1"))
	ok, err := s.CommitEditing(ctx, "t1", "  ")
	require.NoError(t, err)
	assert.False(t, ok)

	snap := s.Snapshot()
	assert.Equal(t, []string{"A"}, texts(snap))
	require.NotNil(t, snap.Editing)
	assert.Equal(t, "t1", snap.Editing.ID)
	assert.Equal(t, "  ", snap.Editing.Draft)
	assert.Equal(t, before, persisted(t, mem))
}

func TestCommitWithoutSession(t *testing.T) {
	s, _ := newTestStore(t, slot.NewMemory())
	ctx := context.Background()
	_, _, _ = s.AddTask(ctx, "A")
	_, _, _ = s.AddTask(ctx, "B")

	_, err := s.CommitEditing(ctx, "t1", "x")
	assert.True(t, errors.Is(err, ErrNoEditSession))

	require.NoError(t, s.StartEditing("t1"))
	_, err = s.CommitEditing(ctx, "t2", "x")
	assert.True(t, errors.Is(err, ErrNoEditSession), "session is on another task")
	assert.Equal(t, []string{"A", "B"}, texts(s.Snapshot()))
}

func TestStartEditingReplacesSession(t *testing.T) {
	s, _ := newTestStore(t, slot.NewMemory())
	ctx := context.Background()
	_, _, _ = s.AddTask(ctx, "A")
	_, _, _ = s.AddTask(ctx, "B")

	require.NoError(t, s.StartEditing("t1"))
	require.NoError(t, s.SetDraft("unsaved"))
	require.NoError(t, s.StartEditing("t2"))

	snap := s.Snapshot()
	assert.Equal(t, task.EditSession{ID: "t2", Draft: "B"}, *snap.Editing)
	assert.False(t, snap.IsEditing("t1"))
	assert.Equal(t, []string{"A", "B"}, texts(snap))

	assert.True(t, errors.Is(s.StartEditing("nope"), ErrTaskNotFound))
}

func TestCancelEditing(t *testing.T) {
	mem := slot.NewMemory()
	s, _ := newTestStore(t, mem)
	ctx := context.Background()
	_, _, _ = s.AddTask(ctx, "A")

	require.NoError(t, s.StartEditing("t1"))
	require.NoError(t, s.SetDraft("changed"))
	s.CancelEditing()

	snap := s.Snapshot()
	assert.Nil(t, snap.Editing)
	assert.Equal(t, []string{"A"}, texts(snap))
	assert.True(t, errors.Is(s.SetDraft("x"), ErrNoEditSession))

	// no-op without a session
	s.CancelEditing()
}

func TestToggleCompletion(t *testing.T) {
	mem := slot.NewMemory()
	s, _ := newTestStore(t, mem)
	ctx := context.Background()
	_, _, _ = s.AddTask(ctx, "A")
	_, _, _ = s.AddTask(ctx, "B")

	require.NoError(t, s.ToggleCompletion(ctx, "t2"))
	snap := s.Snapshot()
	assert.False(t, snap.Tasks[0].Completed)
	assert.True(t, snap.Tasks[1].Completed)
	assert.Equal(t, snap.Tasks, persisted(t, mem))

	require.NoError(t, s.ToggleCompletion(ctx, "t2"))
	assert.False(t, s.Snapshot().Tasks[1].Completed)

	assert.True(t, errors.Is(s.ToggleCompletion(ctx, "t9"), ErrTaskNotFound))
}

func TestToggleLanguage(t *testing.T) {
	mem := slot.NewMemory()
	s, _ := newTestStore(t, mem)
	ctx := context.Background()
	_, _, _ = s.AddTask(ctx, "A")
	before := persisted(t, mem)

	assert.Equal(t, locale.English, s.Snapshot().Locale)
	assert.Equal(t, locale.Bengali, s.ToggleLanguage())
	assert.Equal(t, locale.Bengali, s.Snapshot().Locale)
	assert.Equal(t, locale.English, s.ToggleLanguage())

	assert.Equal(t, before, persisted(t, mem), "locale is not persisted")
	assert.Equal(t, []string{"A"}, texts(s.Snapshot()))
}

func TestWithLocale(t *testing.T) {
	s, _ := newTestStore(t, slot.NewMemory(), WithLocale(locale.Bengali))
	assert.Equal(t, locale.Bengali, s.Snapshot().Locale)
}

func TestHydrate(t *testing.T) {
	ctx := context.Background()

	t.Run("absent", func(t *testing.T) {
		rec := &recorder{}
		s, _ := newTestStore(t, slot.NewMemory(), WithObserver(rec))
		assert.Empty(t, s.Snapshot().Tasks)
		assert.Equal(t, []string{HydrateEmpty}, rec.hydrated)
	})

	t.Run("versioned", func(t *testing.T) {
		mem := slot.NewMemory()
		data, err := persist.Encode([]task.Task{{ID: "x", Text: "A", Completed: true}})
		require.NoError(t, err)
		require.NoError(t, mem.Put(ctx, DefaultKey, data))

		s, _ := newTestStore(t, mem)
		assert.Equal(t, []task.Task{{ID: "x", Text: "A", Completed: true}}, s.Snapshot().Tasks)
	})

	t.Run("legacy", func(t *testing.T) {
		mem := slot.NewMemory()
		require.NoError(t, mem.Put(ctx, DefaultKey, []byte(`[{"text":"A","editing":true,"completed":false}]`)))

		s, _ := newTestStore(t, mem)
		snap := s.Snapshot()
		assert.Equal(t, []string{"A"}, texts(snap))
		assert.Nil(t, snap.Editing, "legacy editing flag is dropped")
	})

	t.Run("malformed", func(t *testing.T) {
		mem := slot.NewMemory()
		require.NoError(t, mem.Put(ctx, DefaultKey, []byte(`{not json`)))

		rec := &recorder{}
		s, _ := newTestStore(t, mem, WithObserver(rec))
		assert.Empty(t, s.Snapshot().Tasks)
		assert.Equal(t, []string{HydrateMalformed}, rec.hydrated)

		// store is usable and overwrites the bad value
		_, _, err := s.AddTask(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, texts(task.Snapshot{Tasks: persisted(t, mem)}))
	})

	t.Run("backend error", func(t *testing.T) {
		mem := slot.NewMemory()
		mem.GetErr = errors.New("connection refused")
		s := New(mem)
		err := s.Hydrate(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")

		_, _, err = s.AddTask(ctx, "A")
		assert.True(t, errors.Is(err, ErrNotHydrated))

		mem.GetErr = nil
		require.NoError(t, s.Hydrate(ctx), "retry after failure")
	})

	t.Run("runs once", func(t *testing.T) {
		mem := slot.NewMemory()
		s, _ := newTestStore(t, mem)
		_, _, err := s.AddTask(ctx, "A")
		require.NoError(t, err)

		require.NoError(t, mem.Put(ctx, DefaultKey, []byte(`[]`)))
		require.NoError(t, s.Hydrate(ctx))
		assert.Equal(t, []string{"A"}, texts(s.Snapshot()))
	})
}

func TestMutationsBeforeHydrate(t *testing.T) {
	s := New(slot.NewMemory())
	ctx := context.Background()

	_, _, err := s.AddTask(ctx, "A")
	assert.True(t, errors.Is(err, ErrNotHydrated))
	assert.True(t, errors.Is(s.DeleteTask(ctx, "x"), ErrNotHydrated))
	assert.True(t, errors.Is(s.ToggleCompletion(ctx, "x"), ErrNotHydrated))
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	mem := slot.NewMemory()
	rec := &recorder{}
	s, _ := newTestStore(t, mem, WithObserver(rec))
	mem.PutErr = errors.New("disk full")

	added, ok, err := s.AddTask(context.Background(), "A")
	require.Error(t, err)
	assert.True(t, ok)
	assert.Contains(t, err.Error(), "store: persist")
	assert.Contains(t, err.Error(), "disk full")

	snap := s.Snapshot()
	assert.Equal(t, []task.Task{added}, snap.Tasks)
	assert.True(t, snap.NoticeVisible)
	assert.Equal(t, 1, rec.failures)
}

func TestPersistedEqualsMemoryAfterEveryMutation(t *testing.T) {
	mem := slot.NewMemory()
	s, _ := newTestStore(t, mem)
	ctx := context.Background()

	steps := []func(){
		func() { _, _, _ = s.AddTask(ctx, "A") },
		func() { _, _, _ = s.AddTask(ctx, "B") },
		func() { _ = s.ToggleCompletion(ctx, "t1") },
		func() { _ = s.StartEditing("t2"); _, _ = s.CommitEditing(ctx, "t2", "B2") },
		func() { _ = s.DeleteTask(ctx, "t1") },
		func() { _, _, _ = s.AddTask(ctx, "C") },
	}
	for i, step := range steps {
		step()
		assert.Equal(t, s.Snapshot().Tasks, persisted(t, mem), "step %d", i)
	}
}

func TestNoticeHidesAfterDuration(t *testing.T) {
	s, clock := newTestStore(t, slot.NewMemory())

	_, _, err := s.AddTask(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, clock.timers, 1)
	assert.Equal(t, DefaultNoticeDuration, clock.timers[0].d)
	assert.Equal(t, 2000*time.Millisecond, clock.timers[0].d)

	clock.fire(0)
	assert.False(t, s.Snapshot().NoticeVisible)
}

func TestNoticeRearmedByLaterAdd(t *testing.T) {
	s, clock := newTestStore(t, slot.NewMemory())
	ctx := context.Background()

	_, _, _ = s.AddTask(ctx, "A")
	_, _, _ = s.AddTask(ctx, "B")
	require.Len(t, clock.timers, 2)
	assert.True(t, clock.timers[0].stopped, "first timer cancelled")
	assert.Equal(t, 1, clock.pending())

	// A stale callback that raced Stop must not hide the newer notice.
	clock.fire(0)
	assert.True(t, s.Snapshot().NoticeVisible)

	clock.fire(1)
	assert.False(t, s.Snapshot().NoticeVisible)
}

func TestNoticeUnaffectedByOtherOperations(t *testing.T) {
	s, clock := newTestStore(t, slot.NewMemory())
	ctx := context.Background()

	_, _, _ = s.AddTask(ctx, "A")
	_ = s.ToggleCompletion(ctx, "t1")
	s.ToggleLanguage()
	_, _, _ = s.AddTask(ctx, "   ")
	assert.True(t, s.Snapshot().NoticeVisible)
	assert.Len(t, clock.timers, 1)
}

func TestCloseCancelsNotice(t *testing.T) {
	clock := &fakeClock{}
	s := New(slot.NewMemory(), WithScheduler(clock.schedule))
	require.NoError(t, s.Hydrate(context.Background()))
	_, _, _ = s.AddTask(context.Background(), "A")

	s.Close()
	assert.Zero(t, clock.pending())

	clock.fire(0)
	assert.True(t, s.Snapshot().NoticeVisible, "stale callback after Close is ignored")
}

func TestNoticeRealTimer(t *testing.T) {
	s := New(slot.NewMemory(), WithNoticeDuration(20*time.Millisecond))
	require.NoError(t, s.Hydrate(context.Background()))
	defer s.Close()

	_, _, err := s.AddTask(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, s.Snapshot().NoticeVisible)
	assert.Eventually(t, func() bool { return !s.Snapshot().NoticeVisible }, time.Second, 5*time.Millisecond)
}

func TestSubscribe(t *testing.T) {
	s, clock := newTestStore(t, slot.NewMemory())
	ctx := context.Background()

	var mu sync.Mutex
	calls := 0
	cancel := s.Subscribe(func() {
		// Reading state from a subscriber must not deadlock.
		_ = s.Snapshot()
		mu.Lock()
		calls++
		mu.Unlock()
	})

	_, _, _ = s.AddTask(ctx, "A")
	clock.fire(0)
	s.ToggleLanguage()

	mu.Lock()
	assert.Equal(t, 3, calls)
	mu.Unlock()

	cancel()
	s.ToggleLanguage()
	mu.Lock()
	assert.Equal(t, 3, calls)
	mu.Unlock()
}

func TestObserver(t *testing.T) {
	rec := &recorder{}
	s, _ := newTestStore(t, slot.NewMemory(), WithObserver(rec))
	ctx := context.Background()

	_, _, _ = s.AddTask(ctx, "A")
	_, _, _ = s.AddTask(ctx, "")
	_ = s.StartEditing("t1")
	s.CancelEditing()
	_ = s.ToggleCompletion(ctx, "t1")
	s.ToggleLanguage()
	_ = s.DeleteTask(ctx, "t1")

	assert.Equal(t, []string{OpAdd, OpEditStart, OpEditCancel, OpToggle, OpLanguage, OpDelete}, rec.ops)
	assert.Equal(t, 0, rec.lastCount)
}

func TestWithKey(t *testing.T) {
	mem := slot.NewMemory()
	s, _ := newTestStore(t, mem, WithKey("work"))
	_, _, err := s.AddTask(context.Background(), "A")
	require.NoError(t, err)

	_, err = mem.Get(context.Background(), "work")
	assert.NoError(t, err)
	_, err = mem.Get(context.Background(), DefaultKey)
	assert.True(t, errors.Is(err, slot.ErrNotFound))
}
