package pg

import "time"

// Config carries PostgreSQL pool, retry and migration settings, loadable from
// the environment with pkg/config.
type Config struct {
	ConnectionString  string        `env:"DATABASE_URL,required"`                  // Postgres connection URL.
	MaxOpenConns      int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`      // Upper bound on pooled connections.
	MaxIdleConns      int32         `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`       // Connections kept open while idle.
	HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"`  // Interval between pool health checks.
	MaxConnIdleTime   time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"` // Idle time before a connection is closed.
	MaxConnLifetime   time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`  // Total lifetime before a connection is recycled.

	RetryAttempts int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`  // Connection attempts before giving up.
	RetryInterval time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"5s"` // Base wait between attempts, grows linearly.

	MigrationsPath  string `env:"PG_MIGRATIONS_PATH" envDefault:"migrations"`         // Directory holding goose SQL migrations.
	MigrationsTable string `env:"PG_MIGRATIONS_TABLE" envDefault:"schema_migrations"` // Table goose records applied versions in.
}
