// Package tui provides the interactive terminal front end over the store.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tasklist/internal/locale"
	"tasklist/internal/output"
	"tasklist/internal/store"
	"tasklist/internal/task"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	hintStyle     = lipgloss.NewStyle().Faint(true)
	doneStyle     = lipgloss.NewStyle().Strikethrough(true).Faint(true)
	selectedStyle = lipgloss.NewStyle().Bold(true)
)

type focus int

const (
	focusInput focus = iota
	focusList
)

// changedMsg tells the model the store state moved underneath it, e.g. when
// the notice timer fires.
type changedMsg struct{}

// Model is the bubbletea model.
type Model struct {
	ctx    context.Context
	store  *store.Store
	snap   task.Snapshot
	input  textinput.Model
	editor textinput.Model
	focus  focus
	cursor int
	err    error
}

// New creates a model over a hydrated store.
func New(ctx context.Context, st *store.Store) *Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Focus()

	editor := textinput.New()
	editor.Prompt = ""

	m := &Model{
		ctx:    ctx,
		store:  st,
		input:  input,
		editor: editor,
	}
	m.refresh()
	m.input.SetValue(m.snap.Input)
	return m
}

// Run starts the program and blocks until the user quits or ctx is done.
func Run(ctx context.Context, st *store.Store, opts ...tea.ProgramOption) error {
	m := New(ctx, st)
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(m, opts...)

	// Send blocks until the event loop reads, and the loop itself triggers
	// store changes, so deliver asynchronously.
	unsubscribe := st.Subscribe(func() { go p.Send(changedMsg{}) })
	defer unsubscribe()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		switch {
		case m.snap.Editing != nil:
			cmd = m.updateEditing(msg)
		case m.focus == focusInput:
			cmd = m.updateInput(msg)
		default:
			cmd = m.updateList(msg)
		}
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	if m.snap.Editing != nil {
		m.editor, cmd = m.editor.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) updateInput(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		if _, ok, err := m.store.AddTask(m.ctx, m.input.Value()); ok || err != nil {
			m.setErr(err)
			m.input.Reset()
		}
		return nil
	case "tab":
		m.focus = focusList
		m.input.Blur()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.store.SetInput(m.input.Value())
	return cmd
}

func (m *Model) updateList(msg tea.KeyMsg) tea.Cmd {
	cur, ok := m.current()

	switch msg.String() {
	case "q":
		return tea.Quit
	case "tab":
		m.focus = focusInput
		return m.input.Focus()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.snap.Tasks)-1 {
			m.cursor++
		}
	case " ", "space", "x":
		if ok {
			m.setErr(m.store.ToggleCompletion(m.ctx, cur.ID))
		}
	case "d":
		if ok {
			m.setErr(m.store.DeleteTask(m.ctx, cur.ID))
		}
	case "e":
		if ok {
			if err := m.store.StartEditing(cur.ID); err != nil {
				m.setErr(err)
				return nil
			}
			m.editor.SetValue(cur.Text)
			m.editor.CursorEnd()
			return m.editor.Focus()
		}
	case "L":
		m.store.ToggleLanguage()
	}
	return nil
}

func (m *Model) updateEditing(msg tea.KeyMsg) tea.Cmd {
	id := m.snap.Editing.ID

	switch msg.String() {
	case "enter":
		committed, err := m.store.CommitEditing(m.ctx, id, m.editor.Value())
		m.setErr(err)
		if committed {
			m.editor.Blur()
		}
		return nil
	case "esc":
		m.store.CancelEditing()
		m.editor.Blur()
		return nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	m.setErr(m.store.SetDraft(m.editor.Value()))
	return cmd
}

func (m *Model) refresh() {
	m.snap = m.store.Snapshot()
	if m.cursor >= len(m.snap.Tasks) {
		m.cursor = len(m.snap.Tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.input.Placeholder = m.snap.Locale.T(locale.Placeholder)
}

func (m *Model) current() (task.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Tasks) {
		return task.Task{}, false
	}
	return m.snap.Tasks[m.cursor], true
}

func (m *Model) setErr(err error) {
	m.err = err
}

// View implements tea.Model.
func (m *Model) View() string {
	l := m.snap.Locale
	var b strings.Builder

	b.WriteString(titleStyle.Render(l.T(locale.Title)))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.snap.NoticeVisible {
		b.WriteString(noticeStyle.Render(l.T(locale.Added)))
	}
	b.WriteString("\n")

	if len(m.snap.Tasks) == 0 {
		b.WriteString(hintStyle.Render(l.T(locale.NoTasks)))
		b.WriteString("\n")
	}
	for i, t := range m.snap.Tasks {
		pointer := "  "
		if m.focus == focusList && i == m.cursor {
			pointer = "> "
		}

		var text string
		switch {
		case m.snap.IsEditing(t.ID):
			text = m.editor.View()
		case t.Completed:
			text = doneStyle.Render(t.Text)
		default:
			text = t.Text
		}

		line := fmt.Sprintf("%s%2d. %s %s", pointer, i+1, output.Mark(t.Completed), text)
		if m.focus == focusList && i == m.cursor && !m.snap.IsEditing(t.ID) {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.snap.Editing != nil:
		b.WriteString(hintStyle.Render(l.T(locale.EditHint)))
	case m.focus == focusList:
		b.WriteString(hintStyle.Render(l.T(locale.ListHint)))
	default:
		b.WriteString(hintStyle.Render("enter " + strings.ToLower(l.T(locale.AddButton)) + " • tab list • ctrl+c quit"))
	}
	b.WriteString("\n")
	return b.String()
}
