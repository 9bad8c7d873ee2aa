package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fsrtos/internal/kernel"
)

const sampleYAML = `
kernel:
  tick_ms: 5
  system_slots: 2
  periodic_slots: 3
  round_robin_slots: 4
log:
  level: debug
  format: json
trace:
  csv: trace.csv
  ring: 32
supervisor:
  max_restarts: 1
  blink_ms: 0
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	ass := assert.New(t)
	t.Setenv("FSRTOS_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	ass.Equal(kernel.DefaultConfig(), cfg.Kernel)
	ass.Equal("info", cfg.Log.Level)
	ass.Equal([]string{"stdout"}, cfg.Log.Outputs)
	ass.Equal("cbor", cfg.Trace.Format)
	ass.Equal(256, cfg.Trace.Ring)
	ass.Equal(3, cfg.Supervisor.MaxRestarts)
}

func TestLoad_File(t *testing.T) {
	ass := assert.New(t)

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	ass.Equal(kernel.Config{TickMS: 5, SystemSlots: 2, PeriodicSlots: 3, RoundRobinSlots: 4, MaxTasks: 9}, cfg.Kernel)
	ass.Equal("debug", cfg.Log.Level)
	ass.Equal("json", cfg.Log.Format)
	ass.Equal("trace.csv", cfg.Trace.CSV)
	ass.Equal("cbor", cfg.Trace.Format)
	ass.Equal(32, cfg.Trace.Ring)
	ass.Equal(1, cfg.Supervisor.MaxRestarts)
	ass.Zero(cfg.Supervisor.BlinkMS)
}

func TestLoad_EnvOverlay(t *testing.T) {
	ass := assert.New(t)
	t.Setenv("FSRTOS_CONFIG", writeConfig(t, sampleYAML))
	t.Setenv("FSRTOS_KERNEL_TICK_MS", "1")
	t.Setenv("FSRTOS_KERNEL_MAX_TASKS", "4")
	t.Setenv("FSRTOS_TRACE_FORMAT", "proto")
	t.Setenv("FSRTOS_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	ass.Equal(1, cfg.Kernel.TickMS)
	ass.Equal(4, cfg.Kernel.MaxTasks)
	ass.Equal(2, cfg.Kernel.SystemSlots, "file values survive where no variable is set")
	ass.Equal("proto", cfg.Trace.Format)
	ass.Equal("warn", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad level", body: "log:\n  level: loud\n"},
		{name: "bad trace format", body: "trace:\n  format: xml\n"},
		{name: "negative restarts", body: "supervisor:\n  max_restarts: -1\n"},
		{name: "not yaml", body: "kernel: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoad_KernelSectionOnly(t *testing.T) {
	ass := assert.New(t)

	cfg, err := Load(writeConfig(t, "kernel:\n  tick_ms: 77\n  system_slots: 2\n"))
	require.NoError(t, err)
	ass.Equal(77, cfg.Kernel.TickMS)
	ass.Equal(2, cfg.Kernel.SystemSlots)
	ass.Equal(10, cfg.Kernel.PeriodicSlots)
	ass.Equal(16, cfg.Kernel.MaxTasks)
}
