package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/INLOpen/nexusstate/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewLogger(t *testing.T) {
	t.Run("LevelsAndOutputs", func(t *testing.T) {
		logger, closer, err := NewLogger(config.LoggingConfig{Level: "warn", Output: "none"})
		require.NoError(t, err)
		assert.Nil(t, closer)
		assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
		assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
	})

	t.Run("FileOutput", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.log")
		logger, closer, err := NewLogger(config.LoggingConfig{Level: "debug", Output: "file", File: path})
		require.NoError(t, err)
		require.NotNil(t, closer)
		logger.Info("provisioned", "operator", "op-1")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"operator":"op-1"`)
	})

	t.Run("Invalid", func(t *testing.T) {
		_, _, err := NewLogger(config.LoggingConfig{Level: "verbose"})
		require.Error(t, err)
		_, _, err = NewLogger(config.LoggingConfig{Level: "info", Output: "syslog"})
		require.Error(t, err)
		_, _, err = NewLogger(config.LoggingConfig{Level: "info", Output: "file"})
		require.Error(t, err)
	})
}

func TestInitTracerProvider(t *testing.T) {
	tp, cleanup, err := InitTracerProvider(config.TracingConfig{Enabled: false}, nil)
	require.NoError(t, err)
	require.NotNil(t, tp)
	cleanup()

	_, _, err = InitTracerProvider(config.TracingConfig{Enabled: true, Protocol: "udp"}, DiscardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported tracing protocol")
}

type recordingExporter struct {
	shutdowns int
}

func (e *recordingExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }

func (e *recordingExporter) Shutdown(context.Context) error {
	e.shutdowns++
	return nil
}

func TestNewProvider_ResourceFailureShutsDownExporter(t *testing.T) {
	orig := newResource
	t.Cleanup(func() { newResource = orig })
	newResource = func(context.Context) (*resource.Resource, error) {
		return nil, errors.New("detector failed")
	}

	exp := &recordingExporter{}
	tp, cleanup, err := newProvider(context.Background(), exp, DiscardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create trace resource")
	assert.Nil(t, tp)
	assert.Nil(t, cleanup)
	assert.Equal(t, 1, exp.shutdowns)
}

func TestNewProvider(t *testing.T) {
	exp := &recordingExporter{}
	tp, cleanup, err := newProvider(context.Background(), exp, DiscardLogger())
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.Zero(t, exp.shutdowns)

	cleanup()
	assert.Equal(t, 1, exp.shutdowns)
}
