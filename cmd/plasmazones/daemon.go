package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/plasmazones/plasmazones/internal/daemon"
	"github.com/plasmazones/plasmazones/internal/hotkeys"
	"github.com/plasmazones/plasmazones/internal/logging"
	"github.com/plasmazones/plasmazones/internal/platform"
	"github.com/plasmazones/plasmazones/internal/x11"
)

var (
	daemonLogLevel  string
	daemonLogFormat string
	daemonNoWatch   bool
	daemonNoKeys    bool
	daemonReconcile time.Duration

	daemonCmd = &cobra.Command{
		Use:   "daemon",
		Short: "Run the daemon in the foreground",
		Long: `Run the daemon in the foreground.

The daemon connects to the X server, grabs the configured global shortcuts
and serves the IPC socket until it receives SIGINT or SIGTERM. When DISPLAY
is unset it is recovered from the login session.

Logging defaults come from PLASMAZONES_LOG_LEVEL and PLASMAZONES_LOG_FORMAT.`,
		Args: noArgs,
		RunE: runDaemon,
	}
)

func init() {
	rootCmd.AddCommand(daemonCmd)
	f := daemonCmd.Flags()
	f.StringVar(&daemonLogLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	f.StringVar(&daemonLogFormat, "log-format", "", "log format: console or json")
	f.BoolVar(&daemonNoWatch, "no-watch", false, "do not reload the settings file when it changes")
	f.BoolVar(&daemonNoKeys, "no-shortcuts", false, "do not grab global shortcuts")
	f.DurationVar(&daemonReconcile, "reconcile-interval", 0, "window reconciliation period (0 uses the default)")
}

func daemonLogger() (logging.Config, error) {
	cfg := logging.DefaultConfig()
	if v := os.Getenv("PLASMAZONES_LOG_LEVEL"); v != "" {
		cfg.Level = logging.ParseLevel(v)
	}
	if v := os.Getenv("PLASMAZONES_LOG_FORMAT"); v == "json" || v == "console" {
		cfg.Format = v
	}
	if daemonLogLevel != "" {
		cfg.Level = logging.ParseLevel(daemonLogLevel)
	}
	switch daemonLogFormat {
	case "":
	case "json", "console":
		cfg.Format = daemonLogFormat
	default:
		return cfg, &usageError{fmt.Errorf("invalid --log-format %q (expected console or json)", daemonLogFormat)}
	}
	return cfg, nil
}

func runDaemon(_ *cobra.Command, _ []string) error {
	cfg, err := daemonLogger()
	if err != nil {
		return err
	}
	log := logging.New(cfg)

	paths, err := daemon.DefaultPaths()
	if err != nil {
		return &fatalError{err}
	}
	if socketFlag != "" {
		paths.Socket = socketFlag
	}

	if err := x11.EnsureDisplay(); err != nil {
		return &fatalError{err}
	}
	backend, err := platform.NewLinuxBackendFromDisplay(log)
	if err != nil {
		return &fatalError{fmt.Errorf("failed to connect to X server: %w", err)}
	}

	opts := daemon.Options{
		Paths:             paths,
		Backend:           backend,
		WatchConfig:       !daemonNoWatch,
		ReconcileInterval: daemonReconcile,
		Log:               log,
	}
	var shortcuts *hotkeys.Handler
	if !daemonNoKeys {
		shortcuts, err = hotkeys.NewHandler(backend, log)
		if err != nil {
			backend.Close()
			return &fatalError{err}
		}
		opts.Shortcuts = shortcuts
	}

	app, err := daemon.New(opts)
	if err != nil {
		backend.Close()
		return &fatalError{err}
	}
	if err := app.Start(); err != nil {
		if shortcuts != nil {
			shortcuts.Close()
		}
		app.Close()
		return &fatalError{err}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error().Err(runErr).Msg("daemon stopped")
	} else {
		runErr = nil
		log.Info().Msg("shutting down")
	}
	if err := app.Close(); err != nil {
		log.Warn().Err(err).Msg("shutdown incomplete")
	}
	return runErr
}
