package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fosterushka/Chronoflow-sub000/internal/api"
	"github.com/fosterushka/Chronoflow-sub000/internal/daemon"
	webui "github.com/fosterushka/Chronoflow-sub000/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the board HTTP API server",
	Long: `Start an HTTP server exposing the board as a JSON API under /api/v1.
By default it listens on port 8080. Use --port to change it.

The server owns a live session: tracked time accumulates and time warnings
fire while it runs. Use 'cf serve start' to run it in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context(), viper.GetInt("serve.port"))
	},
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStartRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the background server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

func init() {
	serveCmd.PersistentFlags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("serve.port", serveCmd.PersistentFlags().Lookup("port"))

	serveCmd.AddCommand(serveStartCmd, serveStopCmd, serveStatusCmd)
	rootCmd.AddCommand(serveCmd)
}

// serveStopGrace is how long stop waits for a graceful exit before killing.
const serveStopGrace = 10 * time.Second

func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "cf-serve.pid"))
}

func serveLogPath() string {
	return filepath.Join(viper.GetString("state_dir"), "cf-serve.log")
}

func serveRun(ctx context.Context, port int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, daemon.ShutdownSignals()...)
	defer stop()

	sess, err := openSession(ctx, false)
	if err != nil {
		return err
	}
	static, err := webui.Handler()
	if err != nil {
		_ = sess.Close(context.WithoutCancel(ctx))
		return fmt.Errorf("failed to initialize UI handler: %w", err)
	}
	sess.Start(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           api.NewServer(sess, logger, api.WithStatic(static)).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	ui.Info("Serving board at http://localhost:%d (API under /api/v1)", port)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if err := sess.Close(shutdownCtx); err != nil {
		return fmt.Errorf("save board: %w", err)
	}
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	ui.Info("Server stopped")
	return nil
}

func serveStartRun() error {
	pf := pidFile()
	if rec, running := pf.IsRunning(); running {
		return fmt.Errorf("server already running (pid %d)", rec.PID)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find executable: %w", err)
	}
	port := viper.GetInt("serve.port")

	if dryRun {
		ui.DryRunMsg("Would start %s serve --port %d in the background", exe, port)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(pf.Path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	logFile, err := os.OpenFile(serveLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	args := []string{"serve", "--port", strconv.Itoa(port)}
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	daemon.Detach(child)
	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	rec := daemon.Record{PID: child.Process.Pid, Port: port, StartedAt: time.Now().UTC()}
	if err := pf.WriteRecord(rec); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	_ = child.Process.Release()

	ui.Success("Server started (pid %d) on port %d", rec.PID, port)
	ui.Info("Logs: %s", serveLogPath())
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	rec, running := pf.IsRunning()
	if running && dryRun {
		ui.DryRunMsg("Would stop server (pid %d)", rec.PID)
		return nil
	}

	killed, err := pf.Stop(serveStopGrace)
	if err != nil {
		return err
	}
	if killed {
		ui.Warning("Server did not stop in time, killed pid %d", rec.PID)
		return nil
	}
	ui.Success("Server stopped (pid %d)", rec.PID)
	return nil
}

func serveStatusRun() error {
	pf := pidFile()
	rec, running := pf.IsRunning()
	if !running {
		ui.Info("Server is not running")
		return nil
	}
	ui.Success("Server is running (pid %d)", rec.PID)
	if rec.Port > 0 {
		ui.Info("URL: http://localhost:%d", rec.Port)
	}
	if up := rec.Uptime(time.Now()); up > 0 {
		ui.Info("Uptime: %s", up)
	}
	ui.Info("Logs: %s", serveLogPath())
	return nil
}
