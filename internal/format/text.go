package format

import (
	"fmt"
	"io"

	"todo-cli/internal/model"
	"todo-cli/internal/store"
)

// WriteText renders command output for humans. Values the renderer
// doesn't know fall back to compact JSON, so every command stays
// usable under --format text.
func WriteText(w io.Writer, v any) error {
	// CLI commands wrap their payload in a {"data": ...} envelope,
	// sometimes with meta/_hints beside it. Text mode renders the data
	// and drops the machine-oriented extras.
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m["data"]; ok {
			return WriteText(w, inner)
		}
		if inner, ok := m["error"]; ok {
			_, err := fmt.Fprintf(w, "error: %v\n", inner)
			return err
		}
	}

	switch t := v.(type) {
	case model.Task:
		return writeTaskLines(w, []model.Task{t})
	case *model.Task:
		return writeTaskLines(w, []model.Task{*t})
	case []model.Task:
		return writeTaskLines(w, t)
	case model.Snapshot:
		return writeSnapshot(w, &t)
	case *model.Snapshot:
		return writeSnapshot(w, t)
	case store.Event:
		return writeEventLines(w, []store.Event{t})
	case []store.Event:
		return writeEventLines(w, t)
	case store.DoctorReport:
		return writeDoctorReport(w, t)
	default:
		return WriteJSON(w, v, false)
	}
}

func checkbox(completed bool) string {
	if completed {
		return "[x]"
	}
	return "[ ]"
}

func writeTaskLines(w io.Writer, tasks []model.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "no tasks")
		return err
	}
	width := 1
	for _, t := range tasks {
		if n := len(fmt.Sprintf("%d", t.ID)); n > width {
			width = n
		}
	}
	for _, t := range tasks {
		if _, err := fmt.Fprintf(w, "%s %*d  %s\n", checkbox(t.Completed), width, t.ID, t.Task); err != nil {
			return err
		}
	}
	return nil
}

func writeSnapshot(w io.Writer, snap *model.Snapshot) error {
	if _, err := fmt.Fprintf(w, "nextId: %d\n", snap.NextID); err != nil {
		return err
	}
	return writeTaskLines(w, snap.Tasks)
}

func writeEventLines(w io.Writer, evs []store.Event) error {
	if len(evs) == 0 {
		_, err := fmt.Fprintln(w, "no events")
		return err
	}
	for _, ev := range evs {
		task := "-"
		if ev.TaskID != nil {
			task = fmt.Sprintf("#%d", *ev.TaskID)
		}
		if _, err := fmt.Fprintf(w, "%s  %-16s %-4s %s\n",
			ev.TS.Format("2006-01-02 15:04:05"), ev.Type, task, string(ev.Payload)); err != nil {
			return err
		}
	}
	return nil
}

func writeDoctorReport(w io.Writer, r store.DoctorReport) error {
	for _, it := range r.Issues {
		if _, err := fmt.Fprintf(w, "%-5s %s: %s\n", it.Level, it.Code, it.Message); err != nil {
			return err
		}
	}
	status := "ok"
	if r.HasErrors() {
		status = "broken"
	} else if len(r.Issues) > 0 {
		status = "warnings"
	}
	_, err := fmt.Fprintf(w, "%s: %d tasks, nextId %d\n", status, r.Tasks, r.NextID)
	return err
}
