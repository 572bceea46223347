package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/plasmazones/plasmazones/internal/config"
)

var printDefaults bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the settings file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  noArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a settings file and report every value that would be replaced",
	Args:  maxArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		res, path, err := loadSettingsFile(args)
		if err != nil {
			return err
		}
		p := stdout()
		if jsonFlag {
			msgs := make([]string, len(res.Warnings))
			for i, w := range res.Warnings {
				msgs[i] = w.Error()
			}
			if err := p.json(map[string]any{"path": path, "valid": len(msgs) == 0, "warnings": msgs}); err != nil {
				return err
			}
		} else {
			for _, w := range res.Warnings {
				fmt.Fprintf(p.w, "%s: %s\n", path, p.warn(w.Error()))
			}
			if len(res.Warnings) == 0 {
				fmt.Fprintf(p.w, "%s: %s\n", path, p.ok("ok"))
			}
		}
		if n := len(res.Warnings); n > 0 {
			return fmt.Errorf("%d invalid setting(s); defaults will be used for them", n)
		}
		return nil
	},
}

var configPrintCmd = &cobra.Command{
	Use:   "print [file]",
	Short: "Print the effective settings after defaults and validation",
	Args:  maxArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if printDefaults {
			_, err := os.Stdout.Write(config.DefaultsYAML())
			return err
		}
		res, _, err := loadSettingsFile(args)
		if err != nil {
			return err
		}
		if jsonFlag {
			return stdout().json(res.Settings)
		}
		out, err := yaml.Marshal(res.Settings)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd, configValidateCmd, configPrintCmd)
	configPrintCmd.Flags().BoolVar(&printDefaults, "defaults", false, "print the shipped defaults instead")
}

// loadSettingsFile parses the named file, or the default location. A
// missing default file yields the defaults.
func loadSettingsFile(args []string) (*config.LoadResult, string, error) {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return nil, "", err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && len(args) == 0 {
			res, perr := config.Parse(nil)
			return res, path, perr
		}
		return nil, path, fmt.Errorf("failed to read settings: %w", err)
	}
	res, err := config.Parse(data)
	return res, path, err
}
