package config

import (
	"fmt"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appDir = "plasmazones"

// DefaultConfigPath returns $XDG_CONFIG_HOME/plasmazones/config.yaml,
// creating the parent directory.
func DefaultConfigPath() (string, error) {
	path, err := xdg.ConfigFile(filepath.Join(appDir, "config.yaml"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	return path, nil
}

// DataPath returns a file under $XDG_DATA_HOME/plasmazones, creating the
// parent directory.
func DataPath(name string) (string, error) {
	path, err := xdg.DataFile(filepath.Join(appDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve data path %s: %w", name, err)
	}
	return path, nil
}

// UserLayoutDir is where editable layouts are stored.
func UserLayoutDir() string {
	return filepath.Join(xdg.DataHome, appDir, "layouts")
}

// SystemLayoutDirs lists the read-only layout directories shipped with the
// system, in XDG search order.
func SystemLayoutDirs() []string {
	dirs := make([]string, 0, len(xdg.DataDirs))
	for _, d := range xdg.DataDirs {
		dirs = append(dirs, filepath.Join(d, appDir, "layouts"))
	}
	return dirs
}
