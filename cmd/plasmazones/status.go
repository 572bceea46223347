package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/plasmazones/plasmazones/internal/events"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  noArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		c := client()
		st, err := c.GetStatus()
		if err != nil {
			return err
		}
		p := stdout()
		if jsonFlag {
			return p.json(st)
		}
		running := p.warn("stopped")
		if st.DaemonRunning {
			running = p.ok("running")
		}
		active := st.ActiveLayout
		if active == "" {
			active = p.muted("(none)")
		}
		p.fields(
			"Daemon", running,
			"Mode", st.Mode,
			"Active layout", active,
			"Desktop", fmt.Sprintf("%d of %d", st.Desktop, st.DesktopCount),
			"Activity", orNone(st.Activity),
			"Screens", strconv.Itoa(st.Screens),
			"Layouts", strconv.Itoa(st.Layouts),
			"Windows", strconv.Itoa(st.Windows),
			"Pending restores", strconv.Itoa(st.Pending),
			"Uptime", (time.Duration(st.UptimeSeconds) * time.Second).String(),
		)
		return nil
	},
}

var screensPrimary bool

var screensCmd = &cobra.Command{
	Use:   "screens [name]",
	Short: "List connected screens or describe one",
	Args:  maxArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		c := client()
		p := stdout()
		if screensPrimary {
			if len(args) == 1 {
				return &usageError{fmt.Errorf("--primary takes no screen name")}
			}
			name, err := c.PrimaryScreen()
			if err != nil {
				return err
			}
			args = []string{name}
		}
		if len(args) == 1 {
			d, err := c.ScreenInfo(args[0])
			if err != nil {
				return err
			}
			if jsonFlag {
				return p.json(d)
			}
			p.fields(
				"Connector", d.ConnectorName,
				"Screen ID", d.StableID,
				"Manufacturer", orNone(d.Manufacturer),
				"Model", orNone(d.Model),
				"Serial", orNone(d.Serial),
				"Geometry", d.Geometry.String(),
				"Available", d.AvailableGeometry.String(),
				"Primary", strconv.FormatBool(d.IsPrimary),
			)
			return nil
		}
		list, err := c.Screens()
		if err != nil {
			return err
		}
		if jsonFlag {
			return p.json(list)
		}
		rows := make([][]string, 0, len(list))
		for _, d := range list {
			primary := ""
			if d.IsPrimary {
				primary = "*"
			}
			rows = append(rows, []string{
				d.ConnectorName + primary,
				d.StableID,
				d.Geometry.String(),
				d.AvailableGeometry.String(),
			})
		}
		return p.table([]string{"NAME", "SCREEN ID", "GEOMETRY", "AVAILABLE"}, rows)
	},
}

var modeCmd = &cobra.Command{
	Use:   "mode [manual|autotile|toggle]",
	Short: "Show or change the tiling mode",
	Args:  maxArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		c := client()
		if len(args) == 1 {
			if err := c.SetMode(args[0]); err != nil {
				return err
			}
		}
		mode, err := c.Mode()
		if err != nil {
			return err
		}
		if jsonFlag {
			return stdout().json(map[string]string{"mode": mode})
		}
		fmt.Println(mode)
		return nil
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload settings and layouts from disk",
	Args:  noArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return client().Reload()
	},
}

var actionCmd = &cobra.Command{
	Use:   "action <name>",
	Short: "Trigger a shortcut action",
	Long: `Trigger a shortcut action as if its key sequence had been pressed.

Action names are the keys of the global_shortcuts, navigation_shortcuts and
autotile_shortcuts settings sections, for example move_window_left,
cycle_layout_forward, quick_layout_3 or toggle_autotile.`,
	Args: exactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return client().Action(args[0])
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream daemon events until interrupted",
	Args:  noArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		p := stdout()
		return client().Subscribe(ctx, func(ev events.Event) {
			if jsonFlag {
				p.json(ev)
				return
			}
			fmt.Fprintln(p.w, formatEvent(ev))
		})
	},
}

func init() {
	screensCmd.Flags().BoolVar(&screensPrimary, "primary", false, "describe the primary screen")
	rootCmd.AddCommand(statusCmd, screensCmd, modeCmd, actionCmd, eventsCmd, reloadCmd)
}

func formatEvent(ev events.Event) string {
	s := string(ev.Kind)
	add := func(k, v string) {
		if v != "" {
			s += " " + k + "=" + v
		}
	}
	add("layout", ev.LayoutID)
	add("screen", ev.ScreenID)
	add("name", ev.ScreenName)
	add("activity", ev.ActivityID)
	add("zone", ev.ZoneID)
	add("mode", ev.Mode)
	if ev.Count != 0 {
		add("count", strconv.Itoa(ev.Count))
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
