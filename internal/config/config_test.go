package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rustql/internal/config"
)

func TestDefault_HasUsableDefaults(t *testing.T) {
	cfg := config.Default()
	require.Equal(t, "db.json", cfg.Database.Path)
	require.Equal(t, "rustql> ", cfg.Shell.Prompt)
}

func TestLoad_OverridesOnlyFieldsPresentInFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rustql.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: custom.json\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "custom.json", cfg.Database.Path)
	require.Equal(t, "rustql> ", cfg.Shell.Prompt, "fields absent from the file keep the default")
}

func TestLoad_MissingFileIsAnError(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
