package environment_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/subskit/pkg/environment"
)

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	t.Run("emits env attribute", func(t *testing.T) {
		t.Parallel()

		ctx := environment.WithContext(context.Background(), environment.Production)
		attr, ok := environment.LoggerExtractor()(ctx)

		assert.True(t, ok)
		assert.Equal(t, "env", attr.Key)
		assert.Equal(t, "production", attr.Value.String())
	})

	t.Run("nothing without environment", func(t *testing.T) {
		t.Parallel()

		attr, ok := environment.LoggerExtractor()(context.Background())

		assert.False(t, ok)
		assert.Equal(t, slog.Attr{}, attr)
	})

	t.Run("nothing for empty environment", func(t *testing.T) {
		t.Parallel()

		ctx := environment.WithContext(context.Background(), environment.Environment(""))
		attr, ok := environment.LoggerExtractor()(ctx)

		assert.False(t, ok)
		assert.Equal(t, slog.Attr{}, attr)
	})
}
