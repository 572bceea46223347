package main

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or clear the remembered window placements",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List pending restores",
	Long: `List pending restores: the zones closed windows occupied, keyed by
their stable id (app id or window class). A window that opens again on the
same screen, desktop and layout is put back into its zone.`,
	Args: noArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		s, err := client().Session()
		if err != nil {
			return err
		}
		p := stdout()
		if jsonFlag {
			return p.json(s)
		}
		rows := make([][]string, 0, len(s.Pending))
		for _, key := range slices.Sorted(maps.Keys(s.Pending)) {
			e := s.Pending[key]
			zones := e.ZoneID
			if len(e.ZoneIDs) > 1 {
				short := make([]string, len(e.ZoneIDs))
				for i, z := range e.ZoneIDs {
					short[i] = shortID(z)
				}
				zones = strings.Join(short, "+")
			} else {
				zones = shortID(zones)
			}
			rows = append(rows, []string{key, zones, e.Screen, desktopLabel(e.Desktop), shortID(e.LayoutID)})
		}
		if err := p.table([]string{"WINDOW", "ZONES", "SCREEN", "DESKTOP", "LAYOUT"}, rows); err != nil {
			return err
		}
		if lz := s.LastZone; lz != nil && len(lz.Zones) > 0 {
			p.fields("Last used zone", joinZones(lz.Zones)+" on "+lz.Screen+" desktop "+strconv.Itoa(lz.Desktop))
		}
		return nil
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every pending restore",
	Args:  noArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return client().ClearSession()
	},
}

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List tracked windows and their zones",
	Args:  noArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		list, err := client().Windows()
		if err != nil {
			return err
		}
		p := stdout()
		if jsonFlag {
			return p.json(list)
		}
		rows := make([][]string, 0, len(list))
		for _, r := range list {
			zones := p.muted("floating")
			if len(r.Zones) > 0 {
				zones = joinZones(r.Zones)
			}
			desktop := desktopLabel(r.Desktop)
			if r.Sticky {
				desktop = "sticky"
			}
			rows = append(rows, []string{r.RuntimeID, r.StableID, zones, r.Screen, desktop, r.Geometry.String()})
		}
		return p.table([]string{"WINDOW", "STABLE ID", "ZONES", "SCREEN", "DESKTOP", "GEOMETRY"}, rows)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd, windowsCmd)
	sessionCmd.AddCommand(sessionShowCmd, sessionClearCmd)
}

func joinZones(ids []uuid.UUID) string {
	short := make([]string, len(ids))
	for i, id := range ids {
		short[i] = shortID(id.String())
	}
	return strings.Join(short, "+")
}

func desktopLabel(d int) string {
	if d <= 0 {
		return "all"
	}
	return strconv.Itoa(d)
}
