// Package config loads typed configuration structs from environment
// variables, with optional .env file support for local development.
//
// Configuration is declared as plain structs with `env` tags and parsed by
// caarlos0/env. Each struct type is parsed once per process and cached, so
// independent components can load the same config without re-reading the
// environment or seeing divergent values.
//
// # Usage
//
// Declare a struct with `env` tags:
//
//	type WorkerConfig struct {
//	    DatabaseURL   string        `env:"DATABASE_URL,required"`
//	    SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
//	    SweepLimit    int           `env:"SWEEP_LIMIT" envDefault:"500"`
//	    DryRun        bool          `env:"SWEEP_DRY_RUN" envDefault:"false"`
//	}
//
// Then load it at startup:
//
//	import "github.com/dmitrymomot/subskit/pkg/config"
//
//	var cfg WorkerConfig
//	config.MustLoad(&cfg)
//
// A .env file in the working directory is read automatically before the first
// parse. Use LoadEnv to read files from other locations first:
//
//	if err := config.LoadEnv("deploy/local.env"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Errors
//
// Load returns sentinel errors comparable with errors.Is: ErrParsingConfig
// when the environment does not satisfy the struct tags, ErrNilPointer for a
// nil destination, and ErrEnvFileLoad when LoadEnv cannot read a file.
//
// # Testing
//
// The cache is process-global. Tests that mutate the environment between
// loads should call ResetCache, or use distinct struct types per case.
package config
