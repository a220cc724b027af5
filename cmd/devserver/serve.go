package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vango-dev/devserver/internal/vfs"
	"github.com/vango-dev/devserver/pkg/httpserver"
)

func serveCmd() *cobra.Command {
	var (
		port        int
		host        string
		dir         string
		openBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dev server against a project directory",
		Long: `Start the dev server, serving a file-based-routed project from disk.

Examples:
  devserver serve
  devserver serve --dir ./myapp --port 3000
  devserver serve --open`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			v.SetEnvPrefix("DEVSERVER")
			v.AutomaticEnv()
			v.BindPFlag("port", cmd.Flags().Lookup("port"))
			v.BindPFlag("host", cmd.Flags().Lookup("host"))
			v.BindPFlag("dir", cmd.Flags().Lookup("dir"))
			v.BindPFlag("open", cmd.Flags().Lookup("open"))

			return runServe(v.GetInt("port"), v.GetString("host"), v.GetString("dir"), v.GetBool("open"))
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 3000, "Port to listen on (env DEVSERVER_PORT)")
	cmd.Flags().StringVarP(&host, "host", "H", "localhost", "Host to bind to (env DEVSERVER_HOST)")
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Project directory to serve (env DEVSERVER_DIR)")
	cmd.Flags().BoolVarP(&openBrowser, "open", "o", false, "Open the browser on start (env DEVSERVER_OPEN)")

	return cmd
}

func runServe(port int, host, dir string, openBrowser bool) error {
	absDir, err := absPath(dir)
	if err != nil {
		errorMsg("cannot resolve project directory %q: %v", dir, err)
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	srv, err := httpserver.New(httpserver.Options{
		Fsys:   vfs.NewOSBacked(absDir),
		Logger: logger,
	})
	if err != nil {
		errorMsg("failed to start dev server: %v", err)
		return err
	}
	defer srv.Close()

	printBanner()
	mode := "pages"
	if srv.Config().UsesAppRouter() {
		mode = "app"
	}
	fmt.Println()
	info("serving %s", colorize(absDir))
	info("router mode: %s", colorize(mode))

	addr := fmt.Sprintf("%s:%d", host, port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	url := fmt.Sprintf("http://%s", addr)
	fmt.Println()
	success("ready at %s", colorize(url))
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if openBrowser {
		go func() {
			time.Sleep(300 * time.Millisecond)
			if err := browser.OpenURL(url); err != nil {
				warn("could not open browser: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			errorMsg("server error: %v", err)
			return err
		}
	case <-ctx.Done():
		fmt.Println()
		info("shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	return nil
}

// colorize highlights a value in the startup banner when stdout is a TTY;
// plain text otherwise, so redirected/piped output stays grep-friendly.
func colorize(s string) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return s
	}
	return color.CyanString(s)
}

func absPath(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	return filepath.Abs(dir)
}
