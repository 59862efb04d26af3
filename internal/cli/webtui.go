package cli

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"todo-cli/internal/webtui"

	"github.com/spf13/cobra"
)

func newWebTUICmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "webtui",
		Short: "Run the terminal UI in your browser (PTY + WebSocket)",
		Long: strings.TrimSpace(`
Run the Bubble Tea TUI over the web via a server-side PTY and a browser
terminal emulator.

Notes:
- No auth; bind to localhost.
- Each browser tab starts a TUI subprocess on the server.
`),
		Example: strings.TrimSpace(`
# Serve the default store on localhost
todo webtui --addr 127.0.0.1:3334

# Serve a specific store
todo --dir ./.todo webtui --addr :3334
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Resolve dir/backend now so the TUI subprocesses inherit them.
			if _, err := openStore(app); err != nil {
				return writeErr(cmd, err)
			}

			srv, err := webtui.NewServer(webtui.ServerConfig{
				Addr:    strings.TrimSpace(addr),
				Dir:     app.Dir,
				Backend: app.Backend,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			listenAddr := srv.Addr()
			if listenAddr == "" {
				return writeErr(cmd, errors.New("webtui: missing --addr"))
			}

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      listenAddr,
					"dir":       app.Dir,
					"backend":   app.Backend,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				"_hints": []string{
					"open http://" + listenAddr,
				},
			})

			fmt.Fprintf(cmd.ErrOrStderr(), "todo webtui running at http://%s (dir=%s)\n", listenAddr, app.Dir)
			return http.ListenAndServe(listenAddr, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3334", "Bind address (host:port or :port)")
	return cmd
}
