package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artifact-detector/internal/errs"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "DEBUG", "WORKERS", "CLASSIFIER_URL", "CLASSIFIER_TIMEOUT", "INPUT_WIDTH", "INPUT_HEIGHT"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, 256, cfg.InputWidth)
	assert.Equal(t, 256, cfg.InputHeight)
	assert.Equal(t, 30*time.Second, cfg.ClassifierTimeout)
	assert.Equal(t, 1500, cfg.PreviewMaxWidth)
	assert.Equal(t, 800, cfg.PreviewMaxHeight)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DEBUG", "1")
	t.Setenv("WORKERS", "3")
	t.Setenv("CLASSIFIER_TIMEOUT", "2s")
	t.Setenv("INPUT_WIDTH", "not-a-number")

	cfg := Load()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 2*time.Second, cfg.ClassifierTimeout)
	assert.Equal(t, 256, cfg.InputWidth)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Load()
	cfg.Workers = 0
	assert.ErrorIs(t, cfg.Validate(), errs.ErrInvalidArgument)

	cfg = Load()
	cfg.InputHeight = -1
	assert.ErrorIs(t, cfg.Validate(), errs.ErrInvalidArgument)
}
