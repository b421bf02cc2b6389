package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subskit/pkg/config"
)

type sweepEnvConfig struct {
	Interval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	Limit    int           `env:"SWEEP_LIMIT" envDefault:"500"`
	DryRun   bool          `env:"SWEEP_DRY_RUN" envDefault:"false"`
}

type billingEnvConfig struct {
	GracePeriodDays int  `env:"GRACE_PERIOD_DAYS" envDefault:"3"`
	TrialMaxDays    int  `env:"TRIAL_MAX_DAYS" envDefault:"30"`
	AllowDowngrades bool `env:"ALLOW_DOWNGRADES" envDefault:"true"`
}

type cachedEnvConfig struct {
	Locale string `env:"DEFAULT_LOCALE" envDefault:"en"`
}

type requiredEnvConfig struct {
	DatabaseURL string `env:"TEST_DATABASE_URL,required"`
}

func TestLoad_Success(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("SWEEP_LIMIT", "100")
	t.Setenv("SWEEP_DRY_RUN", "true")
	config.ResetCache()

	var cfg sweepEnvConfig
	err := config.Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.Equal(t, 100, cfg.Limit)
	assert.True(t, cfg.DryRun)
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("GRACE_PERIOD_DAYS")
	os.Unsetenv("TRIAL_MAX_DAYS")
	os.Unsetenv("ALLOW_DOWNGRADES")
	config.ResetCache()

	var cfg billingEnvConfig
	err := config.Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 3, cfg.GracePeriodDays)
	assert.Equal(t, 30, cfg.TrialMaxDays)
	assert.True(t, cfg.AllowDowngrades)
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("TEST_DATABASE_URL")
	config.ResetCache()

	var cfg requiredEnvConfig
	err := config.Load(&cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *sweepEnvConfig
	err := config.Load(cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrNilPointer)
}

func TestLoad_CachesPerType(t *testing.T) {
	t.Setenv("DEFAULT_LOCALE", "en")
	config.ResetCache()

	var first cachedEnvConfig
	require.NoError(t, config.Load(&first))

	// Environment changes after the first load must not leak into later loads
	// of the same type.
	t.Setenv("DEFAULT_LOCALE", "de")

	var second cachedEnvConfig
	require.NoError(t, config.Load(&second))

	assert.Equal(t, "en", first.Locale)
	assert.Equal(t, "en", second.Locale)
}

func TestLoad_DistinctTypesAreIndependent(t *testing.T) {
	t.Setenv("SWEEP_LIMIT", "25")
	t.Setenv("TRIAL_MAX_DAYS", "14")
	config.ResetCache()

	var sweepCfg sweepEnvConfig
	require.NoError(t, config.Load(&sweepCfg))

	var billingCfg billingEnvConfig
	require.NoError(t, config.Load(&billingCfg))

	assert.Equal(t, 25, sweepCfg.Limit)
	assert.Equal(t, 14, billingCfg.TrialMaxDays)
}

func TestResetCache(t *testing.T) {
	t.Setenv("DEFAULT_LOCALE", "en")
	config.ResetCache()

	var first cachedEnvConfig
	require.NoError(t, config.Load(&first))
	require.Equal(t, "en", first.Locale)

	t.Setenv("DEFAULT_LOCALE", "fr")
	config.ResetCache()

	var second cachedEnvConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "fr", second.Locale)
}

func TestMustLoad(t *testing.T) {
	t.Setenv("TEST_DATABASE_URL", "postgres://localhost:5432/subskit")
	config.ResetCache()

	var cfg requiredEnvConfig
	assert.NotPanics(t, func() {
		config.MustLoad(&cfg)
	})
	assert.Equal(t, "postgres://localhost:5432/subskit", cfg.DatabaseURL)

	os.Unsetenv("TEST_DATABASE_URL")
	config.ResetCache()

	var missing requiredEnvConfig
	assert.Panics(t, func() {
		config.MustLoad(&missing)
	})
}
