// Package redis connects to a Redis server with retry and exposes a health
// probe. In this codebase the client's main consumer is the distributed
// locker in pkg/lock, which multi-instance deployments use to serialize work
// on a subscriber.
//
// # Usage
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	locker := lock.NewRedisLocker(client)
//	svc := subscription.NewService(store, subscription.WithLocker(locker))
//
// Healthcheck wraps the client in a func(context.Context) error for
// readiness probes.
//
// Sentinel errors such as ErrRedisNotReady wrap the underlying go-redis
// errors with errors.Join, so both layers stay visible to errors.Is.
package redis
