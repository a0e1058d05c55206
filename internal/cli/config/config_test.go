package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data/raw"), cfg.RawDir)
	assert.Equal(t, filepath.Join(dir, ".polarbr/state.db"), cfg.StatePath)
	assert.Equal(t, []int{2010, 2014, 2018, 2022}, cfg.Years)
	assert.Equal(t, 1.6, cfg.Alpha)
	assert.Equal(t, 1000, cfg.Bootstrap)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfig_FromFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	content := "raw_dir: inputs\nalpha: 1.2\nbootstrap: 200\nyears: [2014, 2018]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "polarbr.yaml"), []byte(content), 0o644))
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "inputs"), cfg.RawDir)
	assert.Equal(t, 1.2, cfg.Alpha)
	assert.Equal(t, 200, cfg.Bootstrap)
	assert.Equal(t, []int{2014, 2018}, cfg.Years)
	assert.Equal(t, filepath.Join(dir, "polarbr.yaml"), GetConfigFileUsed())
}

func TestLoadConfig_UpwardSearch(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "polarbr.yaml"), []byte("alpha: 1.4\n"), 0o644))
	sub := filepath.Join(root, "data", "raw")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, 1.4, cfg.Alpha)
	assert.Equal(t, root, cfg.ProjectRoot)
	// Relative paths resolve against the project root, not the CWD.
	assert.Equal(t, filepath.Join(root, "data/processed"), cfg.ProcessedDir)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "polarbr.yaml"), []byte("alpha: 1.2\n"), 0o644))
	t.Chdir(dir)
	t.Setenv("POLARBR_ALPHA", "1.9")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.9, cfg.Alpha)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("POLARBR_BOOTSTRAP", "10")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("bootstrap", 0, "")
	flags.String("state", "", "")
	require.NoError(t, flags.Parse([]string{"--bootstrap", "77", "--state", "custom/state.db"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, 77, cfg.Bootstrap)
	// --state maps to state_path.
	assert.Equal(t, filepath.Join(dir, "custom/state.db"), cfg.StatePath)
}

func TestLoadConfig_UnsetFlagsIgnored(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("bootstrap", 123, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	// Default flag values must not shadow config defaults.
	assert.Equal(t, DefaultBootstrap, cfg.Bootstrap)
}

func TestLoadConfig_MemoryDatabaseKept(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "polarbr.yaml"), []byte("database: ':memory:'\n"), 0o644))
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Database)
}

func TestLoadConfig_Validation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"single year", "years: [2018]\n"},
		{"unsorted years", "years: [2018, 2014]\n"},
		{"zero alpha", "alpha: 0\n"},
		{"negative bootstrap", "bootstrap: -1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ResetConfig()
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "polarbr.yaml"), []byte(tc.content), 0o644))
			t.Chdir(dir)

			_, err := LoadConfig("", nil)
			assert.Error(t, err)
		})
	}
}
