package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps config files in the working directory or home out of the test.
func isolate(t *testing.T) *pflag.FlagSet {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerFlags(flags)
	return flags
}

func TestLoadConfigDefaults(t *testing.T) {
	flags := isolate(t)

	cfg, err := LoadConfig(flags)
	require.NoError(t, err)

	assert.Equal(t, BackendGL, cfg.Backend)
	assert.False(t, cfg.Headless)
	assert.Equal(t, DefaultResolution, cfg.Resolution)
	assert.Equal(t, DefaultGrid, cfg.Grid)
	assert.Equal(t, DefaultDecoders, cfg.Decoders)
	assert.Equal(t, 0, cfg.MaxUnits)
	assert.Empty(t, cfg.Textures)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoadConfigFlags(t *testing.T) {
	flags := isolate(t)
	require.NoError(t, flags.Parse([]string{
		"--backend", "wgpu",
		"--headless",
		"--frames", "10",
		"--max-units", "4",
		"--textures", "a.png,b.png",
		"--metrics-addr", ":9100",
	}))

	cfg, err := LoadConfig(flags)
	require.NoError(t, err)

	assert.Equal(t, BackendWGPU, cfg.Backend)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 10, cfg.Frames)
	assert.Equal(t, 4, cfg.MaxUnits)
	assert.Equal(t, []string{"a.png", "b.png"}, cfg.Textures)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
}

func TestLoadConfigEnvironment(t *testing.T) {
	flags := isolate(t)
	t.Setenv("OXY_SHADOW_RESOLUTION", "2048")
	t.Setenv("OXY_SHADOW_MAX_UNITS", "6")
	t.Setenv("OXY_SHADOW_GRID", "3")

	require.NoError(t, flags.Parse([]string{"--grid", "5"}))
	cfg, err := LoadConfig(flags)
	require.NoError(t, err)

	assert.Equal(t, 2048, cfg.Resolution)
	assert.Equal(t, 6, cfg.MaxUnits)
	assert.Equal(t, 5, cfg.Grid, "flags take precedence over the environment")
}

func TestLoadConfigFile(t *testing.T) {
	flags := isolate(t)
	path := filepath.Join(t.TempDir(), "demo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grid: 2\nlog_level: debug\ntextures:\n  - wood.png\n"), 0o600))

	require.NoError(t, flags.Parse([]string{"--config", path}))
	cfg, err := LoadConfig(flags)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Grid)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"wood.png"}, cfg.Textures)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	flags := isolate(t)
	require.NoError(t, flags.Parse([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}))

	_, err := LoadConfig(flags)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Backend:  BackendGL,
			Grid:     DefaultGrid,
			Decoders: DefaultDecoders,
			LogLevel: DefaultLogLevel,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		err    error
	}{
		{"unknown backend", func(c *Config) { c.Backend = "vulkan" }, ErrUnknownBackend},
		{"headless gl", func(c *Config) { c.Headless = true; c.Frames = 1 }, ErrHeadlessBackend},
		{"headless without frames", func(c *Config) { c.Backend = BackendWGPU; c.Headless = true }, ErrHeadlessFrames},
		{"negative resolution", func(c *Config) { c.Resolution = -1 }, ErrInvalidSetting},
		{"empty grid", func(c *Config) { c.Grid = 0 }, ErrInvalidSetting},
		{"grid beyond wgpu pass", func(c *Config) { c.Backend = BackendWGPU; c.Grid = 32 }, ErrInvalidSetting},
		{"negative frames", func(c *Config) { c.Frames = -1 }, ErrInvalidSetting},
		{"no decoders", func(c *Config) { c.Decoders = 0 }, ErrInvalidSetting},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, ErrInvalidSetting},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), tt.err)
		})
	}
}
