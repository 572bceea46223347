package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plasmazones/plasmazones/internal/config"
	"github.com/plasmazones/plasmazones/internal/ipc"
	"github.com/plasmazones/plasmazones/internal/palette"
)

var pickLauncher string

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Choose a layout from a launcher menu and apply it",
	Long: `Show the unified layout list in rofi, fuzzel, wofi or dmenu and apply
the chosen entry to the focused screen (or --screen). Bind it to a key in
your window manager for a keyboard layout picker.`,
	Args: noArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		backend, err := palette.NewBackend(pickLauncher)
		if err != nil {
			return err
		}
		c := client()
		entries, err := c.UnifiedList()
		if err != nil {
			return err
		}

		ctx := contextPayload()
		current := ""
		message := ""
		if st, err := c.GetStatus(); err == nil && ctx.Screen == "" {
			current = st.ActiveLayout
		}
		if ctx.Screen != "" {
			message = "screen " + ctx.Screen
			if res, err := c.LayoutFor(ctx); err == nil {
				current = resolvedID(res)
			}
		}

		item, err := backend.Show("layout", palette.LayoutItems(entries, current), message)
		if errors.Is(err, palette.ErrCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
		res, err := c.ApplyLayout(ipc.ApplyPayload{ContextPayload: ctx, ID: item.ID})
		if err != nil {
			return fmt.Errorf("apply %s: %w", item.ID, err)
		}
		return printApplied(res)
	},
}

func init() {
	rootCmd.AddCommand(pickCmd)
	pickCmd.Flags().StringVar(&pickLauncher, "launcher", "auto", "launcher: auto, rofi, fuzzel, wofi, dmenu")
	addContextFlags(pickCmd)
}

func resolvedID(res *ipc.ResolvedLayout) string {
	if res.Algorithm != "" {
		return config.AutotilePrefix + res.Algorithm
	}
	if res.Layout != nil {
		return res.Layout.ID.String()
	}
	return ""
}
