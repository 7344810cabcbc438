package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "data/raw", cfg.Data.RawDir)
	assert.Equal(t, "data/processed", cfg.Data.ProcessedDir)
	assert.Equal(t, "merged_fitbit_data.csv", cfg.Data.OutputFile)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Tracing.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestDataConfig_Paths(t *testing.T) {
	d := DataConfig{
		ProcessedDir: "data/processed",
		OutputFile:   "merged_fitbit_data.csv",
		AuditFile:    "clean_audit.json",
	}

	assert.Equal(t, filepath.Join("data", "processed", "merged_fitbit_data.csv"), d.OutputPath())
	assert.Equal(t, filepath.Join("data", "processed", "clean_audit.json"), d.AuditPath())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty raw dir",
			mutate:  func(c *Config) { c.Data.RawDir = "" },
			wantErr: true,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "file output without path",
			mutate:  func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" },
			wantErr: true,
		},
		{
			name:    "bad trace exporter",
			mutate:  func(c *Config) { c.Tracing.Exporter = "jaeger" },
			wantErr: true,
		},
		{
			name:    "console output without path is fine",
			mutate:  func(c *Config) { c.Logging.Output = "console"; c.Logging.FilePath = "" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_FileOverlay(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(cwd) })

	yaml := []byte("data:\n  raw_dir: exports/raw\nlogging:\n  level: debug\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "exports/raw", cfg.Data.RawDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched fields keep their defaults.
	assert.Equal(t, "data/processed", cfg.Data.ProcessedDir)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(cwd) })

	yaml := []byte("data:\n  raw_dir: exports/raw\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0644))
	t.Setenv("FIT_DATA_RAW_DIR", "env/raw")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env/raw", cfg.Data.RawDir)
}
