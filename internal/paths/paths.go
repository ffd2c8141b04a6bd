// Package paths resolves where dbbridge keeps its config.yaml and its data
// (the SQLite file and backups).
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user platform directories.
const AppName = "dbbridge"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "DBBRIDGE_CONFIG_DIR"
	EnvDataDir   = "DBBRIDGE_DATA_DIR"
)

// Overridable in tests.
var (
	goos          = runtime.GOOS
	homeDir       = os.UserHomeDir
	userConfigDir = os.UserConfigDir
)

// xdgDir resolves a per-user directory. On Linux it honors the XDG variable
// and falls back to $HOME/<home...>; elsewhere both kinds of directory live
// under os.UserConfigDir (Application Support, %APPDATA%).
func xdgDir(xdgVar string, home ...string) (string, error) {
	if goos != "linux" {
		base, err := userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(base, AppName), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	h, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{h}, home...), AppName)...), nil
}

// DefaultConfigDir is $XDG_CONFIG_HOME/dbbridge or ~/.config/dbbridge on
// Linux.
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir is $XDG_DATA_HOME/dbbridge or ~/.local/share/dbbridge on
// Linux.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// resolve picks flag, then the environment variable, then the default.
// Explicit choices are made absolute.
func resolve(flag, envVar string, def func() (string, error)) (string, error) {
	for _, v := range []string{flag, os.Getenv(envVar)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	return def()
}

// ResolveConfigDir returns --config-dir, DBBRIDGE_CONFIG_DIR or
// DefaultConfigDir, in that order.
func ResolveConfigDir(flag string) (string, error) {
	return resolve(flag, EnvConfigDir, DefaultConfigDir)
}

// ResolveDataDir returns --data-dir, DBBRIDGE_DATA_DIR or DefaultDataDir, in
// that order. The data directory only seeds the defaults for sqlite.path and
// backup.dir; config.yaml can set either explicitly.
func ResolveDataDir(flag string) (string, error) {
	return resolve(flag, EnvDataDir, DefaultDataDir)
}
