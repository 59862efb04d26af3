package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"todo-cli/internal/model"
	"todo-cli/internal/store"

	"github.com/spf13/cobra"
)

func parseTaskID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid task id: %q", s)
	}
	return id, nil
}

func newAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <text>...",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return writeErr(cmd, errors.New("empty task text"))
			}
			st, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := st.Append(text)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}
	return cmd
}

func newListCmd(app *App) *cobra.Command {
	var completed bool
	var pending bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if completed && pending {
				return writeErr(cmd, errors.New("pass at most one of --completed / --pending"))
			}
			st, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			tasks, err := st.LoadAll()
			if err != nil {
				return writeErr(cmd, err)
			}
			out := tasks
			if completed || pending {
				out = []model.Task{}
				for _, t := range tasks {
					if t.Completed == completed {
						out = append(out, t)
					}
				}
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}

	cmd.Flags().BoolVar(&completed, "completed", false, "Only completed tasks")
	cmd.Flags().BoolVar(&pending, "pending", false, "Only pending tasks")
	return cmd
}

func newShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			tasks, err := st.LoadAll()
			if err != nil {
				return writeErr(cmd, err)
			}
			for _, t := range tasks {
				if t.ID == id {
					return writeOut(cmd, app, map[string]any{"data": t})
				}
			}
			return writeErr(cmd, store.NotFoundError{ID: id})
		},
	}
	return cmd
}

func newToggleCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Toggle a task's completed state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, found, err := st.Toggle(id)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !found {
				return writeErr(cmd, store.NotFoundError{ID: id})
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}
	return cmd
}

func newRenameCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <id> <text>...",
		Short: "Rename a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			text := strings.TrimSpace(strings.Join(args[1:], " "))
			if text == "" {
				return writeErr(cmd, errors.New("empty task text"))
			}
			st, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, found, err := st.Rename(id, text)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !found {
				return writeErr(cmd, store.NotFoundError{ID: id})
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}
	return cmd
}

func newRmCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>...",
		Short: "Remove tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int, 0, len(args))
			for _, a := range args {
				id, err := parseTaskID(a)
				if err != nil {
					return writeErr(cmd, err)
				}
				ids = append(ids, id)
			}
			st, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			results := make([]map[string]any, 0, len(ids))
			removed := 0
			for _, id := range ids {
				ok, err := st.Remove(id)
				if err != nil {
					return writeErr(cmd, err)
				}
				if ok {
					removed++
				}
				results = append(results, map[string]any{"id": id, "removed": ok})
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"removed": removed, "results": results},
			})
		},
	}
	return cmd
}

func newClearCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all completed tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			n, err := st.ClearCompleted()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"removed": n},
			})
		},
	}
	return cmd
}
