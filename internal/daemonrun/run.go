// Package daemonrun wires the daemon process together: logging, store,
// cache, gateways, orchestrator, and the IPC control socket. It is
// shared by cmd/openmicd and the CLI's in-process daemon mode.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"openmic/internal/artifactcache"
	"openmic/internal/config"
	"openmic/internal/daemon"
	"openmic/internal/deps"
	"openmic/internal/ipc"
	"openmic/internal/logging"
	"openmic/internal/notifications"
	"openmic/internal/pipeline"
	"openmic/internal/songs"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the openmic daemon runtime loop and blocks until the
// context is canceled or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("openmic-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update openmic.log link: %v\n", err)
	}
	pidPath := filepath.Join(cfg.Paths.LogDir, "openmicd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logDependencySnapshot(logger, cfg)

	store, err := songs.Open(cfg)
	if err != nil {
		logger.Error("open song store", logging.Error(err))
		return err
	}
	defer store.Close()

	cache, err := artifactcache.Open(cfg, logger)
	if err != nil {
		logger.Error("open artifact cache", logging.Error(err))
		return err
	}

	gateways, err := pipeline.DefaultGateways(cfg)
	if err != nil {
		logger.Error("configure media gateways", logging.Error(err))
		return err
	}

	notifier := notifications.NewService(cfg)
	orch := pipeline.New(cfg, store, cache, gateways, notifier, logger)

	d, err := daemon.New(cfg, store, cache, orch, notifier, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and database access"))
		return err
	}

	<-signalCtx.Done()
	logger.Info("openmic daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "openmic.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []any{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range deps.CheckBinaries(deps.ForConfig(cfg)) {
		attrs = append(attrs,
			logging.Bool(status.Name+"_available", status.Available),
			logging.String(status.Name+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", attrs...)
}
