package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subskit/pkg/environment"
	"github.com/dmitrymomot/subskit/pkg/logger"
)

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	t.Run("json by default", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))
		require.NotNil(t, log)

		log.Info("hello")

		entry := decodeRecord(t, buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
	})

	t.Run("text formatter", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithTextFormatter())

		log.Info("hello")

		out := buf.String()
		assert.Contains(t, out, "INFO")
		assert.Contains(t, out, "hello")
	})

	t.Run("last formatter option wins", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithTextFormatter(),
			logger.WithJSONFormatter(),
		)

		log.Info("hello")

		entry := decodeRecord(t, buf)
		assert.Equal(t, "hello", entry["msg"])
	})

	t.Run("level filters records", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithLevel(slog.LevelWarn))

		log.Info("dropped")
		assert.Zero(t, buf.Len())

		log.Warn("kept")
		entry := decodeRecord(t, buf)
		assert.Equal(t, "kept", entry["msg"])
	})

	t.Run("static attributes", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithAttr(logger.Component("sweeper")),
		)

		log.Info("msg")

		entry := decodeRecord(t, buf)
		assert.Equal(t, "sweeper", entry["component"])
	})

	t.Run("context value extraction", func(t *testing.T) {
		buf := &bytes.Buffer{}
		type ctxKey struct{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithContextValue("trace_id", ctxKey{}),
		)

		ctx := context.WithValue(context.Background(), ctxKey{}, "abc-123")
		log.InfoContext(ctx, "msg")

		entry := decodeRecord(t, buf)
		assert.Equal(t, "abc-123", entry["trace_id"])
	})

	t.Run("environment extractor", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithContextExtractors(environment.LoggerExtractor()),
		)

		ctx := environment.WithContext(context.Background(), environment.Staging)
		log.InfoContext(ctx, "msg")

		entry := decodeRecord(t, buf)
		assert.Equal(t, "staging", entry["env"])
	})

	t.Run("extractors survive With and WithGroup", func(t *testing.T) {
		buf := &bytes.Buffer{}
		type ctxKey struct{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithContextValue("trace_id", ctxKey{}),
		)

		derived := log.With(slog.String("component", "service")).WithGroup("detail")
		ctx := context.WithValue(context.Background(), ctxKey{}, "xyz")
		derived.InfoContext(ctx, "msg", slog.String("key", "value"))

		entry := decodeRecord(t, buf)
		assert.Equal(t, "service", entry["component"])
		detail, ok := entry["detail"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "value", detail["key"])
		// Extracted attrs are record attrs, so they land in the open group.
		assert.Equal(t, "xyz", detail["trace_id"])
	})
}

func TestEnvironmentPresets(t *testing.T) {
	t.Run("development is text at debug level", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithDevelopment("subskit"), logger.WithOutput(buf))

		log.Debug("msg")

		out := buf.String()
		assert.Contains(t, out, "DEBUG")
		assert.Contains(t, out, "service=subskit")
		assert.Contains(t, out, "env=development")
	})

	t.Run("production is json at info level", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithProduction("subskit"), logger.WithOutput(buf))

		log.Debug("dropped")
		assert.Zero(t, buf.Len())

		log.Info("msg")
		entry := decodeRecord(t, buf)
		assert.Equal(t, "subskit", entry["service"])
		assert.Equal(t, "production", entry["env"])
	})

	t.Run("staging is json at info level", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithStaging("subskit"), logger.WithOutput(buf))

		log.Info("msg")

		entry := decodeRecord(t, buf)
		assert.Equal(t, "staging", entry["env"])
	})

	t.Run("maps short environment forms", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithEnvironment("prod", "subskit"), logger.WithOutput(buf))

		log.Info("msg")

		entry := decodeRecord(t, buf)
		assert.Equal(t, "production", entry["env"])
	})

	t.Run("empty service name leaves defaults alone", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithDevelopment(""), logger.WithOutput(buf))

		log.Info("msg")

		entry := decodeRecord(t, buf)
		assert.NotContains(t, entry, "service")
	})
}

func TestWithFormatPanics(t *testing.T) {
	assert.Panics(t, func() {
		logger.New(logger.WithFormat(logger.Format("xml")))
	})
}

func TestSetAsDefault(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf))
	logger.SetAsDefault(log)

	slog.Info("default")

	entry := decodeRecord(t, buf)
	assert.Equal(t, "default", entry["msg"])
}
