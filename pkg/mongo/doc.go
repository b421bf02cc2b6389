// Package mongo opens MongoDB clients with retry, pooling defaults and a
// health probe, configured from the environment. It backs the MongoStore in
// pkg/subscription for deployments that keep plans and subscriptions in
// MongoDB instead of PostgreSQL.
//
// # Usage
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "subskit")
//	if err != nil {
//	    return err
//	}
//	defer db.Client().Disconnect(ctx)
//
//	store := subscription.NewMongoStore(db)
//
// Healthcheck wraps the client in a func(context.Context) error for
// readiness probes. Sentinel errors work with errors.Is.
package mongo
