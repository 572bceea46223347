package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/plasmazones/plasmazones/internal/ipc"
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Manage per-screen, per-desktop and per-activity layout assignments",
}

var assignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every assignment and quick-layout slot",
	Args:  noArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		c := client()
		screensMap, err := c.ScreenAssignments()
		if err != nil {
			return err
		}
		desktops, err := c.DesktopAssignments()
		if err != nil {
			return err
		}
		activities, err := c.ActivityAssignments()
		if err != nil {
			return err
		}
		slots, err := c.QuickLayoutSlots()
		if err != nil {
			return err
		}

		p := stdout()
		if jsonFlag {
			return p.json(assignmentDump{
				Screens:    screensMap,
				Desktops:   desktops,
				Activities: activities,
				QuickSlots: slots,
			})
		}
		var rows [][]string
		for _, group := range []struct {
			scope string
			m     map[string]string
		}{{"screen", screensMap}, {"desktop", desktops}, {"activity", activities}} {
			for _, k := range slices.Sorted(maps.Keys(group.m)) {
				rows = append(rows, []string{group.scope, k, group.m[k]})
			}
		}
		for _, n := range slices.Sorted(maps.Keys(slots)) {
			rows = append(rows, []string{"quick", strconv.Itoa(n), slots[n]})
		}
		return p.table([]string{"SCOPE", "KEY", "LAYOUT"}, rows)
	},
}

var assignSetCmd = &cobra.Command{
	Use:   "set <layout-id>",
	Short: "Assign a layout or autotile:<algorithm> to a context",
	Long: `Assign a layout to a screen, optionally narrowed to one virtual desktop
and one activity. Without --desktop the assignment covers every desktop of
the screen. Without --screen the focused screen is used.`,
	Args: exactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return client().SetAssignment(ipc.AssignPayload{ContextPayload: contextPayload(), LayoutID: args[0]})
	},
}

var assignClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the assignment of exactly one context",
	Args:  noArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return client().ClearAssignment(contextPayload())
	},
}

var assignGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show which layout a context resolves to and why",
	Args:  noArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		c := client()
		res, err := c.LayoutFor(contextPayload())
		if err != nil {
			return err
		}
		explicit, err := c.HasExplicitAssignment(contextPayload())
		if err != nil {
			return err
		}
		p := stdout()
		if jsonFlag {
			return p.json(map[string]any{"resolved": res, "explicit": explicit})
		}
		name, id := "(none)", ""
		if res.Layout != nil {
			name, id = res.Layout.Name, res.Layout.ID.String()
		}
		p.fields(
			"Layout", name,
			"ID", orNone(id),
			"Source", res.Source,
			"Algorithm", orNone(res.Algorithm),
			"Explicit", strconv.FormatBool(explicit),
		)
		return nil
	},
}

var assignQuickCmd = &cobra.Command{
	Use:   "quick <1-9> [layout-id]",
	Short: "Set or clear a quick-layout slot",
	Long: `Bind quick-layout slot N to a layout. Without a layout id the slot is
cleared. The slot is applied by the quick_layout_N shortcut.`,
	Args: func(cmd *cobra.Command, args []string) error {
		return usage(cobra.RangeArgs(1, 2)(cmd, args))
	},
	RunE: func(_ *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > 9 {
			return &usageError{fmt.Errorf("slot must be 1-9, got %q", args[0])}
		}
		c := client()
		slots, err := c.QuickLayoutSlots()
		if err != nil {
			return err
		}
		if slots == nil {
			slots = make(map[int]string)
		}
		if len(args) == 2 {
			slots[n] = args[1]
		} else {
			delete(slots, n)
		}
		return c.SetQuickLayoutSlots(slots)
	},
}

// assignmentDump is the shape printed by 'assign list --json'.
type assignmentDump struct {
	Screens    map[string]string `json:"screens"`
	Desktops   map[string]string `json:"desktops"`
	Activities map[string]string `json:"activities"`
	QuickSlots map[int]string    `json:"quickSlots"`
}

var assignLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Replace all assignments from 'assign list --json' output",
	Long: `Replace the screen, desktop and activity assignment tables and the
quick-layout slots with the contents of a file written by
'plasmazones --json assign list'. Sections missing from the file are left
unchanged.`,
	Args: exactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		dump, err := readAssignmentDump(args[0])
		if err != nil {
			return err
		}
		c := client()
		if dump.Screens != nil {
			if err := c.SetScreenAssignments(dump.Screens); err != nil {
				return fmt.Errorf("screens: %w", err)
			}
		}
		if dump.Desktops != nil {
			if err := c.SetDesktopAssignments(dump.Desktops); err != nil {
				return fmt.Errorf("desktops: %w", err)
			}
		}
		if dump.Activities != nil {
			if err := c.SetActivityAssignments(dump.Activities); err != nil {
				return fmt.Errorf("activities: %w", err)
			}
		}
		if dump.QuickSlots != nil {
			if err := c.SetQuickLayoutSlots(dump.QuickSlots); err != nil {
				return fmt.Errorf("quick slots: %w", err)
			}
		}
		return nil
	},
}

func readAssignmentDump(path string) (*assignmentDump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var dump assignmentDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &dump, nil
}

func init() {
	rootCmd.AddCommand(assignCmd)
	assignCmd.AddCommand(assignListCmd, assignSetCmd, assignClearCmd, assignGetCmd, assignQuickCmd, assignLoadCmd)
	for _, c := range []*cobra.Command{assignSetCmd, assignClearCmd, assignGetCmd} {
		addContextFlags(c)
	}
}
