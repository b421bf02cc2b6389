package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	dotenvOnce sync.Once

	cacheMu sync.Mutex
	cache   = make(map[string]any)
)

// Load populates v from environment variables and caches the result per
// concrete type. Later calls for the same type return the cached value, so
// every component that loads the same struct sees identical settings even if
// the environment changes mid-process.
//
// A .env file in the working directory is read once per process before the
// first parse; a missing file is not an error. Variables already present in
// the environment win over .env entries.
//
// Example:
//
//	type BillingConfig struct {
//		DatabaseURL     string `env:"DATABASE_URL,required"`
//		GracePeriodDays int    `env:"GRACE_PERIOD_DAYS" envDefault:"3"`
//		TrialMaxDays    int    `env:"TRIAL_MAX_DAYS" envDefault:"30"`
//	}
//
//	var cfg BillingConfig
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})

	key := typeKey(v)

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cache[key] = *v
	return nil
}

// MustLoad is Load that panics on failure. Use it at program startup where a
// missing required variable should stop the process.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// LoadEnv reads the named .env files into the process environment. Without
// arguments it reads ".env". Variables that are already set keep their
// current values. Call it before Load when the files live outside the
// working directory.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		return errors.Join(ErrEnvFileLoad, err)
	}
	return nil
}

// ResetCache drops every cached config so the next Load re-reads the
// environment. Intended for tests that mutate variables between loads.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	clear(cache)
}

// typeKey identifies a config struct by its fully qualified type name, which
// keeps identically named structs from different packages apart in the cache.
func typeKey[T any](v *T) string {
	t := reflect.TypeOf(v).Elem()
	if t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
