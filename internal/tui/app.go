package tui

import (
	"fmt"
	"strings"
	"time"

	"todo-cli/internal/model"
	"todo-cli/internal/store"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type inputMode int

const (
	inputNone inputMode = iota
	inputAdd
	inputEdit
)

type reloadTickMsg struct{}

type appModel struct {
	dir   string
	store store.Store
	tasks []model.Task

	width  int
	height int

	list  list.Model
	input textinput.Model

	inputMode inputMode
	editID    int

	showHelp bool

	// fingerprint of the persisted kv values at the last reload; the tick
	// compares against it so CLI mutations in another terminal show up.
	fingerprint string
}

func newAppModel(st store.Store, dir string) appModel {
	applyGlyphPreference()

	m := appModel{
		dir:   dir,
		store: st,
	}

	m.list = newList([]list.Item{})
	m.list.SetDelegate(newTaskDelegate())

	m.input = textinput.New()
	m.input.Placeholder = "What needs doing?"
	m.input.CharLimit = 200
	m.input.Width = 40

	m.reload()
	return m
}

func newList(items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	// We render our own header + footer, so keep list chrome minimal.
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	// Enable "/" filtering to quickly scope down long lists.
	l.SetFilteringEnabled(true)
	l.SetShowFilter(true)
	l.SetStatusBarItemName("task", "tasks")
	// Bubble list defaults to quitting on ESC; here ESC is "cancel".
	l.KeyMap.Quit.SetKeys("q")
	// Emacs-style navigation aliases (common muscle memory).
	cursorUpKeys := append([]string{}, l.KeyMap.CursorUp.Keys()...)
	cursorUpKeys = append(cursorUpKeys, "ctrl+p")
	l.KeyMap.CursorUp.SetKeys(cursorUpKeys...)

	cursorDownKeys := append([]string{}, l.KeyMap.CursorDown.Keys()...)
	cursorDownKeys = append(cursorDownKeys, "ctrl+n")
	l.KeyMap.CursorDown.SetKeys(cursorDownKeys...)
	return l
}

func (m appModel) Init() tea.Cmd { return tickReload() }

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeList()
		return m, nil

	case reloadTickMsg:
		if m.storeChanged() {
			m.reload()
		}
		return m, tickReload()

	case tea.KeyMsg:
		if m.showHelp {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			default:
				m.showHelp = false
				return m, nil
			}
		}

		if m.inputMode != inputNone {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc":
				m.closeInput()
				return m, nil
			case "enter":
				m.submitInput()
				return m, nil
			default:
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				return m, cmd
			}
		}

		// While the list filter is being typed, every key belongs to it.
		if m.list.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "a":
			m.inputMode = inputAdd
			m.input.Reset()
			m.input.Focus()
			return m, textinput.Blink
		case "e":
			if t, ok := m.selectedTask(); ok {
				m.inputMode = inputEdit
				m.editID = t.ID
				m.input.SetValue(t.Task)
				m.input.CursorEnd()
				m.input.Focus()
				return m, textinput.Blink
			}
			return m, nil
		case "enter", " ", "x":
			if t, ok := m.selectedTask(); ok {
				_, _, _ = m.store.Toggle(t.ID)
				m.reloadKeeping(t.ID)
			}
			return m, nil
		case "d":
			if t, ok := m.selectedTask(); ok {
				_, _ = m.store.Remove(t.ID)
				m.reload()
			}
			return m, nil
		case "c":
			_, _ = m.store.ClearCompleted()
			m.reload()
			return m, nil
		case "r":
			// Reload from disk (so running CLI commands in another terminal is reflected).
			m.reload()
			return m, nil
		case "?":
			m.showHelp = true
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m appModel) View() string {
	open, done := 0, 0
	for _, t := range m.tasks {
		if t.Completed {
			done++
		} else {
			open++
		}
	}
	header := lipgloss.NewStyle().Bold(true).Render("Todo") +
		styleMuted().Render(fmt.Sprintf("  %d open · %d done  %s", open, done, m.dir))

	if m.showHelp {
		w := m.width - 4
		if w > 72 {
			w = 72
		}
		return strings.Join([]string{header, renderMarkdown(helpMD, w)}, "\n\n")
	}

	var body string
	if m.inputMode != inputNone {
		prompt := "Add: "
		if m.inputMode == inputEdit {
			prompt = fmt.Sprintf("Edit #%d: ", m.editID)
		}
		body = prompt + m.input.View() + "\n" + m.list.View()
	} else {
		body = m.list.View()
	}

	var footer string
	switch {
	case m.inputMode != inputNone:
		footer = styleMuted().Render("enter: save  esc: cancel")
	default:
		footer = styleMuted().Render("a: add  space: toggle  e: edit  d: delete  c: clear done  /: filter  ?: help  q: quit")
	}

	return strings.Join([]string{header, body, footer}, "\n\n")
}

const helpMD = `# Keys

| Key | Action |
| --- | --- |
| a | add a task |
| enter, space, x | toggle completed |
| e | edit the selected task |
| d | delete the selected task |
| c | clear all completed tasks |
| / | filter the list |
| r | reload from disk |
| q, ctrl+c | quit |

Tasks keep their id for life; deleted ids are never reissued. The list
follows changes made by ` + "`todo`" + ` commands in other terminals.

Press any key to close this help.`

func (m *appModel) resizeList() {
	// Leave room for header/footer (and the input line when open).
	h := m.height - 6
	if h < 8 {
		h = 8
	}
	w := m.width
	if w < 40 {
		w = 40
	}
	m.list.SetSize(w, h)
}

func (m *appModel) selectedTask() (model.Task, bool) {
	if it, ok := m.list.SelectedItem().(taskRowItem); ok {
		return it.task, true
	}
	return model.Task{}, false
}

func (m *appModel) closeInput() {
	m.inputMode = inputNone
	m.input.Blur()
	m.input.Reset()
}

// submitInput applies the pending add/edit. Empty input cancels instead
// of persisting an empty task.
func (m *appModel) submitInput() {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		m.closeInput()
		return
	}
	switch m.inputMode {
	case inputAdd:
		if t, err := m.store.Append(text); err == nil {
			m.reloadKeeping(t.ID)
		} else {
			m.reload()
		}
	case inputEdit:
		_, _, _ = m.store.Rename(m.editID, text)
		m.reloadKeeping(m.editID)
	}
	m.closeInput()
}

func tickReload() tea.Cmd {
	return tea.Tick(750*time.Millisecond, func(time.Time) tea.Msg { return reloadTickMsg{} })
}

func (m *appModel) storeChanged() bool {
	fp, err := m.store.Fingerprint()
	return err == nil && fp != m.fingerprint
}

func (m *appModel) reload() {
	id, hasSel := -1, false
	if t, ok := m.selectedTask(); ok {
		id, hasSel = t.ID, true
	}
	m.reloadInner()
	if hasSel {
		m.selectTaskByID(id)
	}
}

func (m *appModel) reloadKeeping(id int) {
	m.reloadInner()
	m.selectTaskByID(id)
}

func (m *appModel) reloadInner() {
	tasks, err := m.store.LoadAll()
	if err != nil {
		return
	}
	m.tasks = tasks
	if fp, err := m.store.Fingerprint(); err == nil {
		m.fingerprint = fp
	}

	items := make([]list.Item, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, taskRowItem{task: t})
	}
	m.list.SetItems(items)
	if m.list.Index() >= len(items) && len(items) > 0 {
		m.list.Select(len(items) - 1)
	}
}

func (m *appModel) selectTaskByID(id int) {
	for i, it := range m.list.Items() {
		if row, ok := it.(taskRowItem); ok && row.task.ID == id {
			m.list.Select(i)
			return
		}
	}
}
