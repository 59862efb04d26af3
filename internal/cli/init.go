package cli

import (
	"os"
	"path/filepath"

	"todo-cli/internal/model"
	"todo-cli/internal/store"

	"github.com/spf13/cobra"
)

func newInitCmd(app *App) *cobra.Command {
	var global bool
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize local storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			// init creates a store instead of discovering one: project-local
			// .todo in the cwd, or ~/.todo with --global. --dir still wins.
			if app.Dir == "" {
				if global {
					home, err := os.UserHomeDir()
					if err != nil {
						return writeErr(cmd, err)
					}
					app.Dir = filepath.Join(home, ".todo")
				} else {
					cwd, err := os.Getwd()
					if err != nil {
						return writeErr(cmd, err)
					}
					app.Dir = filepath.Join(cwd, ".todo")
				}
			}

			st, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}

			if force {
				if err := st.Restore(&model.Snapshot{NextID: 0, Tasks: []model.Task{}}); err != nil {
					return writeErr(cmd, err)
				}
			}

			tasks, err := st.LoadAll()
			if err != nil {
				return writeErr(cmd, err)
			}
			nextID, err := st.NextID()
			if err != nil {
				return writeErr(cmd, err)
			}

			// Remember a --global store as the default for later invocations.
			if global {
				cfg, err := store.LoadConfig()
				if err == nil && cfg.DefaultDir == "" {
					cfg.DefaultDir = app.Dir
					_ = store.SaveConfig(cfg)
				}
			}

			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"dir":     app.Dir,
					"backend": app.Backend,
					"nextId":  nextID,
					"tasks":   len(tasks),
				},
			})
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Initialize ~/.todo instead of ./.todo")
	cmd.Flags().BoolVar(&force, "force", false, "Reset an existing store to the empty snapshot")
	return cmd
}
