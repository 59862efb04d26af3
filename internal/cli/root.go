package cli

import (
	"fmt"
	"os"
	"strings"

	"todo-cli/internal/format"
	"todo-cli/internal/store"
	"todo-cli/internal/tui"

	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	Backend    string
	PrettyJSON bool
	Format     string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "todo",
		Short:        "Todo (local-first) CLI + TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  todo

  # Scriptable commands
  todo add Buy milk
  todo list

  # Direct task lookup (shortcut for: todo show <id>)
  todo 3
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("TODO_DIR", ""), "Path to data dir (default: nearest .todo, else ~/.todo)")
	cmd.PersistentFlags().StringVar(&app.Backend, "backend", envOr("TODO_BACKEND", ""), "Storage backend (file|sqlite; default: autodetect)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TODO_FORMAT", "json"), "Output format (json|text)")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newDoctorCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newToggleCmd(app))
	cmd.AddCommand(newRenameCmd(app))
	cmd.AddCommand(newRmCmd(app))
	cmd.AddCommand(newClearCmd(app))
	cmd.AddCommand(newEventsCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newWebCmd(app))
	cmd.AddCommand(newWebTUICmd(app))

	return cmd
}

func runTUI(app *App) error {
	st, err := openStore(app)
	if err != nil {
		return err
	}
	return tui.Run(st, app.Dir)
}

// openStore resolves the data dir and backend, then wires a store.
//
// Dir resolution:
// 1) --dir / TODO_DIR
// 2) ~/.todo/config.json defaultDir
// 3) nearest .todo walking up from the cwd, else ~/.todo
//
// Backend resolution: --backend / TODO_BACKEND, then config, then
// autodetect from the dir contents. The resolved values are written
// back to app so later output can report them.
func openStore(app *App) (store.Store, error) {
	dir := app.Dir
	backend := app.Backend

	if dir == "" || backend == "" {
		if cfg, err := store.LoadConfig(); err == nil {
			if dir == "" {
				dir = cfg.DefaultDir
			}
			if backend == "" {
				backend = cfg.Backend
			}
		}
	}
	if dir == "" {
		d, err := store.DefaultDir()
		if err != nil {
			return store.Store{}, err
		}
		dir = d
	}

	b, err := store.ParseBackend(backend)
	if err != nil {
		return store.Store{}, err
	}
	if b == "" {
		b = store.DetectBackend(dir)
	}

	st, err := store.Open(dir, b)
	if err != nil {
		return store.Store{}, err
	}
	app.Dir = dir
	app.Backend = string(b)
	return st, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
