// Package config loads engine profiles and backend settings from Viper.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a leading ~ and $VAR references in a configured path.
func ExpandPath(p string) string {
	if p == "" {
		return ""
	}

	p = os.ExpandEnv(p)
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
}

// DataDir is where ecolens keeps its database: $XDG_DATA_HOME/ecolens, or
// ~/.local/share/ecolens when that is unset.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "ecolens")
	}
	return ExpandPath("~/.local/share/ecolens")
}

// DefaultDatabasePath is the database location used when none is configured.
func DefaultDatabasePath() string {
	return filepath.Join(DataDir(), "ecolens.db")
}
