package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/subskit/pkg/config"
	"github.com/dmitrymomot/subskit/pkg/logger"
	"github.com/dmitrymomot/subskit/pkg/plan"
	"github.com/dmitrymomot/subskit/pkg/sweep"
)

type workerConfig struct {
	// SweepInterval is the cadence of the expire and renew passes.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	// SweepLimit caps rows per pass so one sweep cannot hog the store.
	SweepLimit int `env:"SWEEP_LIMIT" envDefault:"500"`
	// CheckInterval is how often the scheduler polls for due jobs.
	CheckInterval time.Duration `env:"SCHEDULER_CHECK_INTERVAL" envDefault:"30s"`
	// UsageResetHour is the UTC hour when usage reset passes run.
	UsageResetHour int  `env:"USAGE_RESET_HOUR_UTC" envDefault:"0"`
	DryRun         bool `env:"SWEEP_DRY_RUN" envDefault:"false"`
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run maintenance sweeps on a schedule until interrupted",
	Long: `Run the sweep scheduler in the foreground. Expire and renew passes run
on a fixed interval; usage resets run once a day at the configured UTC
hour. Stop with SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg workerConfig
		if err := config.Load(&cfg); err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		opts := sweep.Options{DryRun: cfg.DryRun, Limit: cfg.SweepLimit}
		sched := sweep.NewScheduler(
			sweep.WithCheckInterval(cfg.CheckInterval),
			sweep.WithSchedulerLogger(a.log),
		)

		// The monthly and yearly passes also run daily; the runner only
		// resets rows whose period has actually elapsed.
		jobs := []struct {
			name     string
			schedule sweep.Schedule
			run      sweep.Job
		}{
			{"expire", sweep.Every(cfg.SweepInterval), func(ctx context.Context) (sweep.Result, error) {
				return a.runner.ExpireOverdue(ctx, opts)
			}},
			{"renew", sweep.Every(cfg.SweepInterval), func(ctx context.Context) (sweep.Result, error) {
				return a.runner.AutoRenew(ctx, opts)
			}},
			{"reset-usage-daily", sweep.DailyAt(cfg.UsageResetHour, 10), func(ctx context.Context) (sweep.Result, error) {
				return a.runner.ResetDueUsage(ctx, plan.ResetDaily, opts)
			}},
			{"reset-usage-monthly", sweep.DailyAt(cfg.UsageResetHour, 20), func(ctx context.Context) (sweep.Result, error) {
				return a.runner.ResetDueUsage(ctx, plan.ResetMonthly, opts)
			}},
			{"reset-usage-yearly", sweep.DailyAt(cfg.UsageResetHour, 30), func(ctx context.Context) (sweep.Result, error) {
				return a.runner.ResetDueUsage(ctx, plan.ResetYearly, opts)
			}},
		}
		for _, j := range jobs {
			if err := sched.Add(j.name, j.schedule, j.run); err != nil {
				return err
			}
		}

		a.log.InfoContext(cmd.Context(), "worker started",
			logger.Component("worker"),
			logger.Duration(cfg.SweepInterval),
			logger.Count(cfg.SweepLimit),
			logger.DryRun(cfg.DryRun),
		)

		if err := sched.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
