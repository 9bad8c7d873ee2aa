package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fsrtos/internal/config"
)

func TestSetupLogger_FileOutput(t *testing.T) {
	ass := assert.New(t)
	defer zap.ReplaceGlobals(zap.NewNop())

	path := filepath.Join(t.TempDir(), "logs", "kernel.log")
	log, err := SetupLogger(config.LogConfig{
		Level:   "warn",
		Format:  "json",
		Outputs: []string{path},
	})
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("kernel abort", zap.String("fault", "WCET_EXCEEDED"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	ass.NotContains(string(data), "hidden")
	ass.Contains(string(data), `"fault":"WCET_EXCEEDED"`)
}

func TestSetupLogger_Rotation(t *testing.T) {
	ass := assert.New(t)
	defer zap.ReplaceGlobals(zap.NewNop())

	name := filepath.Join(t.TempDir(), "rotated.log")
	log, err := SetupLogger(config.LogConfig{
		Level:   "debug",
		Format:  "console",
		Outputs: []string{"ignored.log"},
		Rotation: config.RotationConfig{
			Enable:   true,
			Filename: name,
		},
	})
	require.NoError(t, err)

	log.Debug("dispatch")
	_ = log.Sync()

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	ass.Contains(string(data), "dispatch")
	_, err = os.Stat("ignored.log")
	ass.True(os.IsNotExist(err))
}
