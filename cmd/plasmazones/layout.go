package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/plasmazones/plasmazones/internal/config"
	"github.com/plasmazones/plasmazones/internal/events"
	"github.com/plasmazones/plasmazones/internal/ipc"
	"github.com/plasmazones/plasmazones/internal/layout"
	"github.com/plasmazones/plasmazones/internal/unified"
)

var (
	ctxScreen   string
	ctxDesktop  int
	ctxActivity string

	createType    string
	createCount   int
	createColumns int
	createRows    int

	applyNumber int
	applyIndex  int
	cycleBack   bool
	showAll     bool
	unhide      bool
	autoOff     bool
)

var layoutCmd = &cobra.Command{
	Use:     "layout",
	Aliases: []string{"layouts"},
	Short:   "Manage zone layouts and switch the active one",
}

var layoutListCmd = &cobra.Command{
	Use:   "list",
	Short: "List layouts",
	Long: `List layouts.

By default the unified list is shown: the visible zone layouts followed by
the autotile algorithms, in the order cycling and quick numbers use. With
--all every registered zone layout is listed, hidden ones included.`,
	Args: noArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		c := client()
		p := stdout()
		if showAll {
			list, err := c.Layouts()
			if err != nil {
				return err
			}
			if jsonFlag {
				return p.json(list)
			}
			rows := make([][]string, 0, len(list))
			for _, l := range list {
				flags := ""
				if l.Hidden {
					flags += "hidden "
				}
				if l.AutoAssign {
					flags += "auto-assign "
				}
				if l.SourcePath != "" && !isUserLayout(l.SourcePath) {
					flags += "system"
				}
				rows = append(rows, []string{l.ID.String(), l.Name, l.Type.String(), strconv.Itoa(len(l.Zones)), flags})
			}
			return p.table([]string{"ID", "NAME", "TYPE", "ZONES", "FLAGS"}, rows)
		}

		entries, err := c.UnifiedList()
		if err != nil {
			return err
		}
		if jsonFlag {
			return p.json(entries)
		}
		rows := make([][]string, 0, len(entries))
		for i, e := range entries {
			kind := strconv.Itoa(e.ZoneCount) + " zones"
			if e.IsAutotile {
				kind = "autotile"
			}
			rows = append(rows, []string{strconv.Itoa(i + 1), e.ID, e.Name, kind})
		}
		return p.table([]string{"#", "ID", "NAME", "KIND"}, rows)
	},
}

var layoutShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a layout and draw its zones",
	Args:  exactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		l, err := client().Layout(args[0])
		if err != nil {
			return err
		}
		p := stdout()
		if jsonFlag {
			return p.json(l)
		}
		printLayout(p, l)
		return nil
	},
}

var layoutCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a generated layout",
	Long: `Create a layout from one of the generators.

  columns        --count N side-by-side zones
  rows           --count N stacked zones
  grid           --columns C --rows R
  priority-grid  a large main zone with a stack beside it
  focus          a centred zone with two narrow side zones
  custom         no zones; edit the exported file and import it back`,
	Args: exactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		id, err := client().CreateLayout(ipc.CreateLayoutPayload{
			Name:    args[0],
			Type:    createType,
			Count:   createCount,
			Columns: createColumns,
			Rows:    createRows,
		})
		if err != nil {
			return err
		}
		return printID(id)
	},
}

var layoutDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a user layout",
	Args:  exactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return client().DeleteLayout(args[0])
	},
}

var layoutDuplicateCmd = &cobra.Command{
	Use:   "duplicate <id>",
	Short: "Copy a layout under a new id",
	Args:  exactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		id, err := client().DuplicateLayout(args[0])
		if err != nil {
			return err
		}
		return printID(id)
	},
}

var layoutImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a layout file",
	Args:  exactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		id, err := client().ImportLayout(path)
		if err != nil {
			return err
		}
		return printID(id)
	},
}

var layoutExportCmd = &cobra.Command{
	Use:   "export <id> <file>",
	Short: "Write a layout to a file",
	Args:  exactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}
		return client().ExportLayout(args[0], path)
	},
}

var layoutUpdateCmd = &cobra.Command{
	Use:   "update <file>",
	Short: "Replace a layout with the JSON in a file",
	Long: `Replace a layout with the JSON in a file. The layout is matched by the
"id" field; export a layout, edit it and update it back.`,
	Args: exactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return client().UpdateLayout(data)
	},
}

var layoutApplyCmd = &cobra.Command{
	Use:   "apply [id]",
	Short: "Apply a layout or algorithm to a screen",
	Long: `Apply a layout or autotile algorithm to a screen.

The target is a layout id, an "autotile:<algorithm>" id, --number N for
the Nth zone layout (1-based, as the quick-layout shortcuts use) or --index
N for the Nth entry of the unified list (0-based). Without --screen the
focused screen is used.`,
	Args: maxArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ipc.ApplyPayload{ContextPayload: contextPayload()}
		switch {
		case len(args) == 1:
			p.ID = args[0]
		case cmd.Flags().Changed("number"):
			p.Number = applyNumber
		case cmd.Flags().Changed("index"):
			p.Index = &applyIndex
		default:
			return &usageError{fmt.Errorf("apply needs a layout id, --number or --index")}
		}
		res, err := client().ApplyLayout(p)
		if err != nil {
			return err
		}
		return printApplied(res)
	},
}

var layoutCycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Switch to the next entry of the unified list",
	Args:  noArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		res, err := client().CycleLayout(ipc.CyclePayload{ContextPayload: contextPayload(), Forward: !cycleBack})
		if err != nil {
			return err
		}
		return printApplied(res)
	},
}

var layoutHideCmd = &cobra.Command{
	Use:   "hide <id>",
	Short: "Hide a layout from the unified list",
	Args:  exactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return client().SetLayoutHidden(args[0], !unhide)
	},
}

var layoutAutoAssignCmd = &cobra.Command{
	Use:   "auto-assign <id>",
	Short: "Let a layout claim screens that have no assignment",
	Args:  exactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return client().SetLayoutAutoAssign(args[0], !autoOff)
	},
}

var layoutDefaultCmd = &cobra.Command{
	Use:   "default [id]",
	Short: "Show or set the default layout",
	Long: `Show or set general.default_layout_id in the settings file.

The id is a layout UUID or "autotile:<algorithm>". A running daemon picks
the change up through its settings watcher.`,
	Args: maxArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return err
		}
		store := config.NewStore(path, events.NewBus(), zerolog.Nop())
		store.Load()
		if len(args) == 0 {
			fmt.Println(orNone(store.DefaultLayoutID()))
			return nil
		}
		id, ok := config.CanonicalLayoutRef(args[0])
		if !ok {
			return &usageError{fmt.Errorf("invalid layout id %q", args[0])}
		}
		if !store.SetDefaultLayoutID(id) {
			return nil
		}
		return store.Save()
	},
}

func init() {
	rootCmd.AddCommand(layoutCmd)
	layoutCmd.AddCommand(layoutListCmd, layoutShowCmd, layoutCreateCmd, layoutDeleteCmd,
		layoutDuplicateCmd, layoutImportCmd, layoutExportCmd, layoutUpdateCmd, layoutApplyCmd, layoutCycleCmd,
		layoutHideCmd, layoutAutoAssignCmd, layoutDefaultCmd)

	layoutListCmd.Flags().BoolVar(&showAll, "all", false, "list every zone layout, hidden ones included")

	f := layoutCreateCmd.Flags()
	f.StringVar(&createType, "type", "columns", "generator: columns, rows, grid, priority-grid, focus, custom")
	f.IntVar(&createCount, "count", 2, "zone count for columns and rows")
	f.IntVar(&createColumns, "columns", 2, "grid columns")
	f.IntVar(&createRows, "rows", 2, "grid rows")

	for _, c := range []*cobra.Command{layoutApplyCmd, layoutCycleCmd} {
		addContextFlags(c)
	}
	layoutApplyCmd.Flags().IntVar(&applyNumber, "number", 0, "apply the Nth zone layout (1-based)")
	layoutApplyCmd.Flags().IntVar(&applyIndex, "index", 0, "apply the Nth unified list entry (0-based)")
	layoutCycleCmd.Flags().BoolVar(&cycleBack, "backward", false, "cycle to the previous entry")
	layoutHideCmd.Flags().BoolVar(&unhide, "undo", false, "show the layout again")
	layoutAutoAssignCmd.Flags().BoolVar(&autoOff, "off", false, "clear the flag instead")
}

func addContextFlags(c *cobra.Command) {
	c.Flags().StringVar(&ctxScreen, "screen", "", "screen connector name or screen id (default: focused screen)")
	c.Flags().IntVar(&ctxDesktop, "desktop", 0, "virtual desktop, 1-based (0 means all desktops)")
	c.Flags().StringVar(&ctxActivity, "activity", "", "activity id")
}

func contextPayload() ipc.ContextPayload {
	return ipc.ContextPayload{Screen: ctxScreen, Desktop: ctxDesktop, Activity: ctxActivity}
}

func printID(id string) error {
	if jsonFlag {
		return stdout().json(map[string]string{"id": id})
	}
	fmt.Println(id)
	return nil
}

func printApplied(res *ipc.ApplyResult) error {
	p := stdout()
	if jsonFlag {
		return p.json(res)
	}
	fmt.Fprintf(p.w, "%s on %s\n", p.ok(res.Entry.Name), describeContext(res.Context))
	return nil
}

func describeContext(c unified.Context) string {
	s := c.Screen
	if c.Desktop > 0 {
		s += fmt.Sprintf(" desktop %d", c.Desktop)
	}
	if c.Activity != "" {
		s += " activity " + c.Activity
	}
	return s
}

func printLayout(p *printer, l *layout.Layout) {
	p.title(l.Name)
	p.fields(
		"ID", l.ID.String(),
		"Type", l.Type.String(),
		"Zones", strconv.Itoa(len(l.Zones)),
		"Padding", strconv.Itoa(l.ZonePadding),
		"Source", orNone(l.SourcePath),
	)
	if l.Description != "" {
		fmt.Fprintln(p.w, p.muted(l.Description))
	}

	zones := make([]previewZone, 0, len(l.Zones))
	for _, z := range l.Zones {
		zones = append(zones, previewZone{Number: z.Number, Rect: z.Geometry})
	}
	width := min(p.width, 64)
	for _, line := range renderZones(zones, width, width*9/32) {
		fmt.Fprintln(p.w, line)
	}

	rows := make([][]string, 0, len(l.Zones))
	for _, z := range l.Zones {
		g := z.Geometry
		rows = append(rows, []string{
			strconv.Itoa(z.Number),
			orNone(z.Name),
			fmt.Sprintf("%.3f,%.3f %.3fx%.3f", g.X, g.Y, g.Width, g.Height),
			shortID(z.ID.String()),
		})
	}
	p.table([]string{"#", "NAME", "GEOMETRY", "ID"}, rows)
}

func isUserLayout(path string) bool {
	rel, err := filepath.Rel(config.UserLayoutDir(), path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
