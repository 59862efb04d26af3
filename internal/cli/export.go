package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"todo-cli/internal/model"

	"github.com/spf13/cobra"
)

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the full snapshot as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			snap, err := st.Snapshot()
			if err != nil {
				return writeErr(cmd, err)
			}

			// Without a file argument the snapshot itself goes to stdout
			// (no envelope), so `todo export > f` round-trips with import.
			if len(args) == 0 {
				b, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return writeErr(cmd, err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return err
			}

			dest := args[0]
			b, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := os.WriteFile(dest, append(b, '\n'), 0o644); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"exportedTo": dest, "tasks": len(snap.Tasks), "nextId": snap.NextID},
			})
		},
	}
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the snapshot from exported JSON (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var b []byte
			var err error
			if args[0] == "-" {
				b, err = io.ReadAll(cmd.InOrStdin())
			} else {
				b, err = os.ReadFile(args[0])
			}
			if err != nil {
				return writeErr(cmd, err)
			}

			var snap model.Snapshot
			if err := json.Unmarshal(b, &snap); err != nil {
				return writeErr(cmd, fmt.Errorf("parse snapshot: %w", err))
			}

			st, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := st.Restore(&snap); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"imported": len(snap.Tasks), "nextId": snap.NextID},
			})
		},
	}
	return cmd
}
