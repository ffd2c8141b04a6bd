package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/dbbridge/internal/sqlite"
	"github.com/mesh-intelligence/dbbridge/pkg/types"
)

// run executes the root command with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dbbridge v"+Version)
	assert.Contains(t, out, modulePath)
}

func TestInit_WritesConfigOnce(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "conf")
	dataDir := t.TempDir()

	out, err := run(t, "init", "--config-dir", configDir, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	data, err := os.ReadFile(filepath.Join(configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), filepath.Join(dataDir, "dbbridge.db"))

	out, err = run(t, "init", "--config-dir", configDir, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestStatsAndBackup_SQLite(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	flags := []string{"--config-dir", configDir, "--data-dir", dataDir}

	ctx := context.Background()
	c, err := sqlite.Open(ctx, types.SQLiteConfig{Path: filepath.Join(dataDir, "dbbridge.db")}, nil)
	require.NoError(t, err)
	_, err = c.Execute(ctx, "CREATE TABLE tasks (title TEXT, mt TEXT)")
	require.NoError(t, err)
	_, err = c.Execute(ctx, "INSERT INTO tasks VALUES ('a', '2024-05-01T12:00:00Z'), ('b', NULL)")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	out, err := run(t, append([]string{"stats", "--engine", "sqlite"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "COLLECTION")
	assert.Contains(t, out, "tasks")

	out, err = run(t, append([]string{"stats", "--engine", "sqlite", "--json"}, flags...)...)
	require.NoError(t, err)
	var stats []types.CollectionStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, uint64(2), stats[0].Count)
	require.NotNil(t, stats[0].LatestMt)

	_, err = run(t, "backup-meta", "--config-dir", configDir, "--data-dir", dataDir)
	assert.ErrorIs(t, err, types.ErrManifestNotFound)

	_, err = run(t, append([]string{"backup", "--engine", "sqlite"}, flags...)...)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dataDir, "backups", "tasks.json"))
	require.NoError(t, err)

	out, err = run(t, append([]string{"backup-meta", "--json"}, flags...)...)
	require.NoError(t, err)
	var manifest types.BackupManifest
	require.NoError(t, json.Unmarshal([]byte(out), &manifest))
	assert.Equal(t, "tasks", manifest.Stats[0].Name)
}

func TestStats_UnknownEngine(t *testing.T) {
	_, err := run(t, "stats", "--engine", "redis", "--config-dir", t.TempDir(), "--data-dir", t.TempDir())
	assert.ErrorIs(t, err, types.ErrUnknownEngine)
}
