package commands_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"tasklist/internal/commands"
	"tasklist/internal/config"
	"tasklist/internal/exitcode"
	"tasklist/internal/locale"
	"tasklist/internal/persist"
	"tasklist/internal/service"
	"tasklist/internal/slot"
	"tasklist/internal/store"
	"tasklist/internal/task"
	"tasklist/internal/testutil"
)

type env struct {
	mem   *slot.Memory
	store *store.Store
	svc   *testutil.FakeService
}

// newEnv creates a hydrated store over a memory slot holding texts.
func newEnv(t *testing.T, texts ...string) *env {
	t.Helper()

	mem := slot.NewMemory()
	st := store.New(mem)
	if err := st.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	t.Cleanup(st.Close)
	for _, text := range texts {
		if _, _, err := st.AddTask(context.Background(), text); err != nil {
			t.Fatalf("add %q: %v", text, err)
		}
	}
	return &env{mem: mem, store: st, svc: testutil.NewFakeService()}
}

// runCommand is a helper to run a command against the env.
func runCommand(t *testing.T, cmd commands.Command, e *env, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer

	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Quiet = quiet

	deps := commands.Deps{Log: log.New(&errBuf)}
	deps.Log.SetLevel(log.FatalLevel)
	if e != nil {
		deps.Store = e.store
		deps.Remote = e.svc
	}

	code = cmd.Run(context.Background(), cfg, deps, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func texts(st *store.Store) []string {
	var out []string
	for _, tk := range st.Snapshot().Tasks {
		out = append(out, tk.Text)
	}
	return out
}

// persisted decodes what the store last wrote to its slot.
func persisted(t *testing.T, e *env) []task.Task {
	t.Helper()
	data, err := e.mem.Get(context.Background(), store.DefaultKey)
	if err != nil {
		t.Fatalf("slot get: %v", err)
	}
	tasks, err := persist.Decode(data, task.NewID)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return tasks
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	cmd := &commands.VersionCmd{}

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "tasklist 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	cmd := &commands.HelpCmd{}

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("help output should contain 'Usage:'")
	}
	for _, cmd := range commands.DefaultRegistry.All() {
		if !strings.Contains(stdout, "tasklist "+cmd.Name()) {
			t.Errorf("help output should mention %q", cmd.Name())
		}
	}
}

// Tests for list command
func TestListCommand_WithTasks(t *testing.T) {
	e := newEnv(t, "Buy milk", "Buy eggs")
	if err := e.store.ToggleCompletion(context.Background(), e.store.Snapshot().Tasks[1].ID); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, e, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	testutil.GoldenString(t, "list_with_tasks", stdout)
}

func TestListCommand_Empty(t *testing.T) {
	e := newEnv(t)

	stdout, _, code := runCommand(t, &commands.ListCmd{}, e, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	testutil.GoldenString(t, "list_empty", stdout)
}

func TestListCommand_EmptyQuiet(t *testing.T) {
	e := newEnv(t)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, e, nil, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" || stderr != "" {
		t.Errorf("expected no output, got %q / %q", stdout, stderr)
	}
}

func TestListCommand_QuietWithTasks(t *testing.T) {
	e := newEnv(t, "Buy milk")

	stdout, _, _ := runCommand(t, &commands.ListCmd{}, e, nil, true)

	expected := "   1  [ ] Buy milk\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestListCommand_Bengali(t *testing.T) {
	e := newEnv(t)
	e.store.ToggleLanguage()

	stdout, _, _ := runCommand(t, &commands.ListCmd{}, e, nil, false)

	if !strings.Contains(stdout, locale.Bengali.T(locale.Title)) {
		t.Errorf("expected Bengali title, got %q", stdout)
	}
	if !strings.Contains(stdout, locale.Bengali.T(locale.NoTasks)) {
		t.Errorf("expected Bengali empty line, got %q", stdout)
	}
}

// Tests for add command
func TestAddCommand_Success(t *testing.T) {
	e := newEnv(t)

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, e, []string{"  Buy", "milk  "}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "Task Added!\n" {
		t.Errorf("expected notice, got %q", stdout)
	}

	got := persisted(t, e)
	if len(got) != 1 || got[0].Text != "Buy milk" || got[0].Completed {
		t.Errorf("unexpected persisted tasks: %+v", got)
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	e := newEnv(t)

	stdout, _, code := runCommand(t, &commands.AddCmd{}, e, []string{"Buy milk"}, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout in quiet mode, got %q", stdout)
	}
}

func TestAddCommand_NoText(t *testing.T) {
	e := newEnv(t)

	_, stderr, code := runCommand(t, &commands.AddCmd{}, e, nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: text required\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestAddCommand_BlankIgnored(t *testing.T) {
	e := newEnv(t, "A")

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, e, []string{"   "}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" || stderr != "" {
		t.Errorf("expected no output, got %q / %q", stdout, stderr)
	}
	if got := texts(e.store); len(got) != 1 {
		t.Errorf("expected list unchanged, got %v", got)
	}
}

func TestAddCommand_StorageError(t *testing.T) {
	e := newEnv(t)
	e.mem.PutErr = errors.New("disk full")

	_, stderr, code := runCommand(t, &commands.AddCmd{}, e, []string{"A"}, false)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if !strings.HasPrefix(stderr, "error: storage error: ") || !strings.Contains(stderr, "disk full") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for edit command
func TestEditCommand_Success(t *testing.T) {
	e := newEnv(t, "A", "B")
	id := e.store.Snapshot().Tasks[1].ID

	stdout, stderr, code := runCommand(t, &commands.EditCmd{}, e, []string{"2", "B2", "more"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}
	got := persisted(t, e)
	if got[1].ID != id || got[1].Text != "B2 more" {
		t.Errorf("unexpected task after edit: %+v", got[1])
	}
	if e.store.Snapshot().Editing != nil {
		t.Error("expected edit session closed")
	}
}

func TestEditCommand_BlankKeepsText(t *testing.T) {
	e := newEnv(t, "A")

	stdout, _, code := runCommand(t, &commands.EditCmd{}, e, []string{"1", "  "}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if got := texts(e.store); got[0] != "A" {
		t.Errorf("expected text unchanged, got %v", got)
	}
	if e.store.Snapshot().Editing != nil {
		t.Error("expected edit session closed")
	}
}

func TestEditCommand_Errors(t *testing.T) {
	tests := []struct {
		args   []string
		stderr string
	}{
		{nil, "error: task reference required\n"},
		{[]string{"x", "text"}, "error: invalid task reference: x\n"},
		{[]string{"-1", "text"}, "error: invalid task reference: -1\n"},
		{[]string{"3", "text"}, "error: task number out of range: 3\n"},
		{[]string{"0", "text"}, "error: task number out of range: 0\n"},
		{[]string{"1"}, "error: text required\n"},
	}

	for _, tt := range tests {
		e := newEnv(t, "A")
		_, stderr, code := runCommand(t, &commands.EditCmd{}, e, tt.args, false)
		if code != exitcode.UserError {
			t.Errorf("%v: expected exit code %d, got %d", tt.args, exitcode.UserError, code)
		}
		if stderr != tt.stderr {
			t.Errorf("%v: expected %q, got %q", tt.args, tt.stderr, stderr)
		}
	}
}

// Tests for done command
func TestDoneCommand_Toggles(t *testing.T) {
	e := newEnv(t, "A", "B")

	stdout, _, code := runCommand(t, &commands.DoneCmd{}, e, []string{"2"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}
	if got := persisted(t, e); !got[1].Completed || got[0].Completed {
		t.Errorf("expected only task 2 completed, got %+v", got)
	}

	runCommand(t, &commands.DoneCmd{}, e, []string{"2"}, true)
	if got := persisted(t, e); got[1].Completed {
		t.Error("expected second toggle to reopen the task")
	}
}

func TestDoneCommand_NoRef(t *testing.T) {
	e := newEnv(t, "A")

	_, stderr, code := runCommand(t, &commands.DoneCmd{}, e, nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task reference required\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDoneCommand_OutOfRange(t *testing.T) {
	e := newEnv(t)

	_, stderr, code := runCommand(t, &commands.DoneCmd{}, e, []string{"1"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task number out of range: 1\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for rm command
func TestRmCommand_Success(t *testing.T) {
	e := newEnv(t, "A", "B", "C")

	stdout, _, code := runCommand(t, &commands.RmCmd{}, e, []string{"2"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}
	got := persisted(t, e)
	if len(got) != 2 || got[0].Text != "A" || got[1].Text != "C" {
		t.Errorf("unexpected tasks after rm: %+v", got)
	}
}

func TestRmCommand_NoRef(t *testing.T) {
	e := newEnv(t, "A")

	_, stderr, code := runCommand(t, &commands.RmCmd{}, e, nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task reference required\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for export command
func TestExportCommand_JSONToStdout(t *testing.T) {
	e := newEnv(t, "A")

	cmd := &commands.ExportCmd{}
	cmd.SetFormat("json")
	stdout, _, code := runCommand(t, cmd, e, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	tasks, err := persist.Decode([]byte(stdout), task.NewID)
	if err != nil {
		t.Fatalf("export is not a valid list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Text != "A" {
		t.Errorf("unexpected exported tasks: %+v", tasks)
	}
}

func TestExportCommand_PDFNeedsOutput(t *testing.T) {
	e := newEnv(t, "A")

	cmd := &commands.ExportCmd{}
	cmd.SetFormat("pdf")
	_, stderr, code := runCommand(t, cmd, e, nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: --output required for pdf\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestExportCommand_PDFToFile(t *testing.T) {
	e := newEnv(t, "A")
	path := filepath.Join(t.TempDir(), "tasks.pdf")

	cmd := &commands.ExportCmd{}
	cmd.SetFormat("pdf")
	cmd.SetOutput(path)
	stdout, _, code := runCommand(t, cmd, e, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("expected a PDF file")
	}
}

func TestExportCommand_UnknownFormat(t *testing.T) {
	e := newEnv(t, "A")

	cmd := &commands.ExportCmd{}
	cmd.SetFormat("xml")
	_, stderr, code := runCommand(t, cmd, e, nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: unknown export format: xml\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for push command
func TestPushCommand_DefaultList(t *testing.T) {
	e := newEnv(t, "Buy milk", "Walk dog")
	if err := e.store.ToggleCompletion(context.Background(), e.store.Snapshot().Tasks[1].ID); err != nil {
		t.Fatal(err)
	}
	e.svc.AddTask(testutil.DefaultListID, "r1", "Buy milk")

	stdout, stderr, code := runCommand(t, &commands.PushCmd{}, e, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "created 1, completed 0, unchanged 1\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
	remote := e.svc.Tasks(testutil.DefaultListID)
	if len(remote) != 2 || remote[1].Title != "Walk dog" || !remote[1].Completed() {
		t.Errorf("unexpected remote tasks: %+v", remote)
	}
}

func TestPushCommand_ListErrors(t *testing.T) {
	e := newEnv(t, "A")
	e.svc.AddList("w1", "Work")
	e.svc.AddList("w2", "work")

	cmd := &commands.PushCmd{}
	cmd.SetListName("Missing")
	_, stderr, code := runCommand(t, cmd, e, nil, false)
	if code != exitcode.UserError || stderr != "error: list not found: Missing\n" {
		t.Errorf("unexpected result %d %q", code, stderr)
	}

	cmd.SetListName("WORK")
	_, stderr, code = runCommand(t, cmd, e, nil, false)
	if code != exitcode.UserError || stderr != "error: ambiguous list name: WORK\n" {
		t.Errorf("unexpected result %d %q", code, stderr)
	}
}

func TestPushCommand_RemoteErrors(t *testing.T) {
	e := newEnv(t, "A")
	e.svc.DefaultListErr = fmt.Errorf("%w: token expired or revoked", service.ErrAuth)

	_, stderr, code := runCommand(t, &commands.PushCmd{}, e, nil, false)
	if code != exitcode.ConfigError {
		t.Errorf("expected exit code %d, got %d", exitcode.ConfigError, code)
	}
	if !strings.HasPrefix(stderr, "error: auth error: ") {
		t.Errorf("unexpected stderr %q", stderr)
	}

	e.svc.DefaultListErr = nil
	e.svc.CreateTaskErr = errors.New("quota")
	_, stderr, code = runCommand(t, &commands.PushCmd{}, e, nil, false)
	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: backend error: create \"A\": quota\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestRegistry_DuplicateAlias(t *testing.T) {
	r := commands.NewRegistry()
	if err := r.Register(&commands.AddCmd{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(&commands.AddCmd{}); err == nil || err.Error() != "command already registered: add" {
		t.Errorf("unexpected error %v", err)
	}

	cmd, ok := r.Find("create")
	if !ok || cmd.Name() != "add" {
		t.Errorf("expected alias to resolve to add, got %v", cmd)
	}
	if got := len(r.All()); got != 1 {
		t.Errorf("expected 1 unique command, got %d", got)
	}
}
