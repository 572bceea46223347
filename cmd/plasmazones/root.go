package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plasmazones/plasmazones/internal/ipc"
)

var (
	socketFlag string
	jsonFlag   bool

	rootCmd = &cobra.Command{
		Use:   "plasmazones",
		Short: "Zone-based window tiling daemon",
		Long: `PlasmaZones snaps windows into user-defined zones.

Layouts are assigned per screen, virtual desktop and activity. The daemon
remembers which zone every window occupied and puts reopened windows back.
Autotile algorithms can take over a screen instead of a zone layout.

Run 'plasmazones daemon' inside the graphical session, then use the other
commands to inspect and control it over the IPC socket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "IPC socket path (default $PLASMAZONES_SOCKET or $XDG_RUNTIME_DIR/plasmazones.sock)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "print JSON instead of tables")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})
}

// usageError maps to exit code 2.
type usageError struct{ error }

func (e *usageError) Unwrap() error { return e.error }

// fatalError is a daemon start-up failure.
type fatalError struct{ error }

func (e *fatalError) Unwrap() error { return e.error }

func execute(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	code := exitCode(err)
	switch {
	case err == nil:
	case code == 2:
		fmt.Fprintf(os.Stderr, "plasmazones: %v\nRun 'plasmazones --help' for usage.\n", err)
	default:
		var fe *fatalError
		if errors.As(err, &fe) {
			fmt.Fprintf(os.Stderr, "plasmazones: fatal: %v\n", fe.error)
		} else {
			fmt.Fprintf(os.Stderr, "plasmazones: %v\n", err)
		}
	}
	return code
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ue *usageError
	if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
		return 2
	}
	return 1
}

func noArgs(cmd *cobra.Command, args []string) error {
	return usage(cobra.NoArgs(cmd, args))
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usage(cobra.ExactArgs(n)(cmd, args))
	}
}

func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usage(cobra.MaximumNArgs(n)(cmd, args))
	}
}

func usage(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err}
}

func client() *ipc.Client {
	if socketFlag != "" {
		return ipc.NewClientWithPath(socketFlag)
	}
	return ipc.NewClient()
}
