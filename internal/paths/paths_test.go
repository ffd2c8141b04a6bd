package paths

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform pins the platform lookups for one test.
func fakePlatform(t *testing.T, os string) {
	t.Helper()
	prevOS, prevHome, prevConfig := goos, homeDir, userConfigDir
	t.Cleanup(func() { goos, homeDir, userConfigDir = prevOS, prevHome, prevConfig })

	goos = os
	homeDir = func() (string, error) { return "/home/u", nil }
	userConfigDir = func() (string, error) { return "/Users/u/Library/Application Support", nil }
}

func TestDefaultDirs(t *testing.T) {
	tests := []struct {
		name       string
		goos       string
		xdgConfig  string
		xdgData    string
		wantConfig string
		wantData   string
	}{
		{
			name:       "linux home fallback",
			goos:       "linux",
			wantConfig: "/home/u/.config/dbbridge",
			wantData:   "/home/u/.local/share/dbbridge",
		},
		{
			name:       "linux xdg",
			goos:       "linux",
			xdgConfig:  "/xdg/config",
			xdgData:    "/xdg/data",
			wantConfig: "/xdg/config/dbbridge",
			wantData:   "/xdg/data/dbbridge",
		},
		{
			name:       "darwin ignores xdg",
			goos:       "darwin",
			xdgConfig:  "/xdg/config",
			wantConfig: "/Users/u/Library/Application Support/dbbridge",
			wantData:   "/Users/u/Library/Application Support/dbbridge",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakePlatform(t, tt.goos)
			t.Setenv("XDG_CONFIG_HOME", tt.xdgConfig)
			t.Setenv("XDG_DATA_HOME", tt.xdgData)

			got, err := DefaultConfigDir()
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.wantConfig), got)

			got, err = DefaultDataDir()
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.wantData), got)
		})
	}
}

func TestDefaultDirs_HomeError(t *testing.T) {
	fakePlatform(t, "linux")
	homeDir = func() (string, error) { return "", errors.New("no home") }
	t.Setenv("XDG_DATA_HOME", "")

	_, err := DefaultDataDir()
	assert.EqualError(t, err, "no home")
}

func TestResolve(t *testing.T) {
	fakePlatform(t, "linux")
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")

	tests := []struct {
		name   string
		flag   string
		env    string
		want   string
		relAbs bool
	}{
		{name: "flag wins over env", flag: "/flag", env: "/env", want: "/flag"},
		{name: "env when flag empty", env: "/env", want: "/env"},
		{name: "relative flag made absolute", flag: "rel/dir", relAbs: true},
		{name: "relative env made absolute", env: "rel/env", relAbs: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.env)
			t.Setenv(EnvDataDir, tt.env)

			cfg, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			data, err := ResolveDataDir(tt.flag)
			require.NoError(t, err)

			if tt.relAbs {
				assert.True(t, filepath.IsAbs(cfg), cfg)
				assert.True(t, filepath.IsAbs(data), data)
				return
			}
			assert.Equal(t, tt.want, cfg)
			assert.Equal(t, tt.want, data)
		})
	}

	t.Run("platform defaults when both empty", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "")
		t.Setenv(EnvDataDir, "")

		cfg, err := ResolveConfigDir("")
		require.NoError(t, err)
		assert.Equal(t, "/home/u/.config/dbbridge", cfg)

		data, err := ResolveDataDir("")
		require.NoError(t, err)
		assert.Equal(t, "/home/u/.local/share/dbbridge", data)
	})
}
