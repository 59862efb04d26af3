package tui

import (
	"fmt"
	"io"
	"strings"

	"todo-cli/internal/model"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

type taskRowItem struct {
	task model.Task
}

func (i taskRowItem) FilterValue() string { return strings.TrimSpace(i.task.Task) }

// taskRowText is the unstyled row content. Kept separate from styling so
// completed-state rendering is testable without a color profile.
func taskRowText(t model.Task) string {
	glyph := glyphPending()
	if t.Completed {
		glyph = glyphDone()
	}
	return glyph + " " + t.Task
}

type taskDelegate struct {
	normal   lipgloss.Style
	done     lipgloss.Style
	selected lipgloss.Style
}

func newTaskDelegate() taskDelegate {
	return taskDelegate{
		normal: lipgloss.NewStyle(),
		done: faintIfDark(lipgloss.NewStyle().
			Foreground(colorDoneFg).
			Strikethrough(true)),
		selected: lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true),
	}
}

func (d taskDelegate) Height() int  { return 1 }
func (d taskDelegate) Spacing() int { return 0 }
func (d taskDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d taskDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 4 {
		fmt.Fprint(w, "")
		return
	}

	it, ok := item.(taskRowItem)
	if !ok {
		fmt.Fprint(w, fmt.Sprint(item))
		return
	}

	style := d.normal
	if it.task.Completed {
		style = d.done
	}
	if index == m.Index() {
		style = d.selected
		if it.task.Completed {
			style = style.Strikethrough(true)
		}
	}

	line := taskRowText(it.task)
	lineW := xansi.StringWidth(line)
	if lineW < contentW {
		line += strings.Repeat(" ", contentW-lineW)
	} else if lineW > contentW {
		line = xansi.Cut(line, 0, contentW)
	}

	fmt.Fprint(w, style.Render(line))
}
