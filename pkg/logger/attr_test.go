package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("sweep", slog.String("name", "expire"), slog.Int("n", 2))
	require.Equal(t, "sweep", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "name", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	empty := logger.Errors(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	empty := logger.Error(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestIdentifierAttrs(t *testing.T) {
	id := uuid.New()

	attr := logger.SubscriptionID(id)
	require.Equal(t, "subscription_id", attr.Key)
	assert.Equal(t, id, attr.Value.Any())

	attr = logger.PlanID(id)
	require.Equal(t, "plan_id", attr.Key)
	assert.Equal(t, id, attr.Value.Any())

	attr = logger.PricingID(id)
	require.Equal(t, "pricing_id", attr.Key)
	assert.Equal(t, id, attr.Value.Any())

	assert.True(t, logger.SubscriptionID(nil).Equal(slog.Attr{}))
	assert.True(t, logger.SubscriberRef(nil).Equal(slog.Attr{}))
}

func TestDomainAttrs(t *testing.T) {
	attr := logger.PlanSlug("pro")
	require.Equal(t, "plan", attr.Key)
	assert.Equal(t, "pro", attr.Value.String())

	attr = logger.FeatureKey("api_calls")
	require.Equal(t, "feature", attr.Key)
	assert.Equal(t, "api_calls", attr.Value.String())

	attr = logger.Event("subscription.renewed")
	require.Equal(t, "event", attr.Key)
	assert.Equal(t, "subscription.renewed", attr.Value.String())

	attr = logger.Sweep("auto_renew")
	require.Equal(t, "sweep", attr.Key)
	assert.Equal(t, "auto_renew", attr.Value.String())

	attr = logger.Component("scheduler")
	require.Equal(t, "component", attr.Key)
	assert.Equal(t, "scheduler", attr.Value.String())
}

func TestScalarAttrs(t *testing.T) {
	attr := logger.Count(7)
	require.Equal(t, "count", attr.Key)
	assert.Equal(t, int64(7), attr.Value.Int64())

	attr = logger.Duration(3 * time.Second)
	require.Equal(t, "duration", attr.Key)
	assert.Equal(t, 3*time.Second, attr.Value.Duration())

	attr = logger.DryRun(true)
	require.Equal(t, "dry_run", attr.Key)
	assert.True(t, attr.Value.Bool())
}
