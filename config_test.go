package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	colors, err := cfg.StatusColors()
	require.NoError(t, err)
	assert.Equal(t, DefaultStatusColors, colors)

	table, err := cfg.ClipTable()
	require.NoError(t, err)
	assert.Equal(t, []string{"none", "first", "second"}, table.Names())
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigYAML(t *testing.T) {
	cfg, err := LoadConfig("testdata/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "testdata/steps.csv", cfg.Schedule)
	assert.Equal(t, "testdata/scene.yaml", cfg.Scene)
	assert.False(t, cfg.Strict)
	assert.Equal(t, 5*time.Second, cfg.ReadyTimeout)
	assert.Equal(t, 30*time.Minute, cfg.TimeStep)
	assert.Equal(t, 50*time.Millisecond, cfg.PlayInterval)
	assert.Equal(t, 24*time.Hour, cfg.PageStep, "unset keys keep their defaults")

	colors, err := cfg.StatusColors()
	require.NoError(t, err)
	assert.Equal(t, RGB{Red: 0xff, Green: 0x88}, colors.Delayed)
	assert.Equal(t, RGB{Green: 0xcc, Blue: 0x44}, colors.OnTime)

	table, err := cfg.ClipTable()
	require.NoError(t, err)
	assert.Equal(t, []string{"none", "ground"}, table.Names())
	assert.Equal(t, "Ground Only", table.Label("ground"))

	opts, err := cfg.ParseOptions()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, opts.Location)
}

func TestLoadConfigJSONC(t *testing.T) {
	fromJSONC, err := LoadConfig("testdata/config.jsonc")
	require.NoError(t, err)

	assert.Equal(t, "testdata/steps.csv", fromJSONC.Schedule)
	assert.False(t, fromJSONC.Strict)
	assert.Equal(t, 30*time.Minute, fromJSONC.TimeStep)
	assert.Equal(t, "#ff8800", fromJSONC.Colors.Delayed)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"comma separator", `separator: ","`},
		{"negative step", `time_step: -1s`},
		{"zero timeout", `ready_timeout: 0s`},
		{"bad color", "colors:\n  delayed: reddish"},
		{"bad location", `location: Mars/Olympus_Mons`},
		{"zero normal", "clip_regions:\n  - name: x\n    planes:\n      - normal: [0, 0, 0]\n"},
		{"not yaml", "schedule: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv(configEnvVar, "/etc/schedscrub.yaml")

	assert.Equal(t, "flag.yaml", resolveConfigPath("flag.yaml"))
	assert.Equal(t, "/etc/schedscrub.yaml", resolveConfigPath(""))

	t.Setenv(configEnvVar, "")
	assert.Equal(t, "", resolveConfigPath(""))
}
