// Package pg bootstraps the PostgreSQL layer: pooled connectivity through
// pgx/v5, goose schema migrations and a health probe, configured from the
// environment.
//
// Three pieces cooperate:
//
//   - Config, populated from DATABASE_URL and PG_* variables with pkg/config.
//   - Connect, which opens a *pgxpool.Pool and retries until the database
//     accepts connections.
//   - Migrate, which runs the goose migrations from Config.MigrationsPath so
//     the schema is current before the service takes traffic.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//	    return err
//	}
//
//	store := subscription.NewPostgresStore(pool)
//
// Healthcheck wraps the pool in a func(context.Context) error for readiness
// probes.
//
// # Error Handling
//
// IsNotFoundError, IsDuplicateKeyError and IsForeignKeyViolationError
// classify pgx errors without forcing callers to inspect SQLSTATE codes.
package pg
