package logger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(t *testing.T) (Interface, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{zapLogger: zap.New(core)}, logs
}

func TestWithErrorAttachesField(t *testing.T) {
	t.Parallel()

	log, logs := newObserved(t)
	log.WithError(errors.New("boom")).Error("crawl run failed", "stage", "fetching")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "crawl run failed", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "boom", fields["error"])
	assert.Equal(t, "fetching", fields["stage"])
}

func TestWithDurationAttachesField(t *testing.T) {
	t.Parallel()

	log, logs := newObserved(t)
	log.WithDuration(1500 * time.Millisecond).Info("crawl run completed")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, 1500*time.Millisecond, logs.All()[0].ContextMap()["duration"])
}

func TestWithComponentPropagates(t *testing.T) {
	t.Parallel()

	log, logs := newObserved(t)
	log.WithComponent("store").Info("loaded")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "store", logs.All()[0].ContextMap()["component"])
}

func TestToZapFields(t *testing.T) {
	t.Parallel()

	t.Run("pairs and passthrough", func(t *testing.T) {
		t.Parallel()

		fields := toZapFields([]any{"count", 3, zap.String("url", "http://a")})
		require.Len(t, fields, 2)
		assert.Equal(t, zap.Any("count", 3), fields[0])
		assert.Equal(t, zap.String("url", "http://a"), fields[1])
	})

	t.Run("dangling key dropped", func(t *testing.T) {
		t.Parallel()

		fields := toZapFields([]any{"count", 3, "orphan"})
		require.Len(t, fields, 1)
		assert.Equal(t, zap.Any("count", 3), fields[0])
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, toZapFields(nil))
	})
}
