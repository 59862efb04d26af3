package cli

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"todo-cli/internal/store"
	"todo-cli/internal/web"

	"github.com/spf13/cobra"
)

func newWebCmd(app *App) *cobra.Command {
	var addr string
	var open bool
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Run the HTML UI on a local HTTP server",
		Long: strings.TrimSpace(`
Run the todo list as a server-rendered HTML page.

Mutations are plain form posts; open tabs follow store changes over a
server-sent event stream, including changes made from the CLI while
the server runs.
`),
		Example: strings.TrimSpace(`
# Serve the default store on localhost
todo web --addr 127.0.0.1:3335

# Serve a specific store read-only
todo --dir ./.todo web --addr :3335 --read-only
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}

			listenAddr := strings.TrimSpace(addr)
			if !cmd.Flags().Changed("addr") {
				if cfg, err := store.LoadConfig(); err == nil && strings.TrimSpace(cfg.WebAddr) != "" {
					listenAddr = strings.TrimSpace(cfg.WebAddr)
				}
			}
			if listenAddr == "" {
				return writeErr(cmd, errors.New("web: missing --addr"))
			}

			srv, err := web.NewServer(web.ServerConfig{
				Store:    st,
				Dir:      app.Dir,
				ReadOnly: readOnly,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}

			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + "/"

			opened := false
			openErr := ""
			if open {
				if err := openPath(url); err != nil {
					openErr = err.Error()
				} else {
					opened = true
				}
			}

			hints := []string{}
			if !opened {
				hints = append(hints, "open "+url)
			}

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actualAddr,
					"url":       url,
					"dir":       app.Dir,
					"backend":   app.Backend,
					"readOnly":  readOnly,
					"opened":    opened,
					"openError": openErr,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				"_hints": hints,
			})

			fmt.Fprintf(cmd.ErrOrStderr(), "todo web running at %s (dir=%s)\n", url, app.Dir)
			if openErr != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to open browser: %s\n", openErr)
			}

			return http.Serve(ln, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3335", "Bind address (host:port or :port)")
	cmd.Flags().BoolVar(&open, "open", true, "Open the UI in your default browser")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Serve views but reject mutations")
	return cmd
}

func openPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("empty path")
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path).Run()
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path).Run()
	default:
		return exec.Command("xdg-open", path).Run()
	}
}
