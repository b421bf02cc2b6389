package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/subskit/pkg/plan"
	"github.com/dmitrymomot/subskit/pkg/sweep"
)

var (
	sweepDryRun  bool
	sweepLimit   int
	resetPeriod  string
	expiringDays int
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a batch maintenance pass once",
	Long: `Run a single maintenance pass and exit. The worker command runs the
same passes on a schedule.

Examples:
  subskit sweep expire --limit 1000
  subskit sweep renew --dry-run
  subskit sweep reset-usage --period daily
  subskit sweep expiring --days 7`,
}

var sweepExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Expire subscriptions past their grace window",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.runner.ExpireOverdue(cmd.Context(), sweepOptions())
		if err != nil {
			return err
		}
		return printResult(cmd, res)
	},
}

var sweepRenewCmd = &cobra.Command{
	Use:   "renew",
	Short: "Renew auto-renewing subscriptions whose period ended",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.runner.AutoRenew(cmd.Context(), sweepOptions())
		if err != nil {
			return err
		}
		return printResult(cmd, res)
	},
}

var sweepResetUsageCmd = &cobra.Command{
	Use:   "reset-usage",
	Short: "Reset usage counters whose period elapsed",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.runner.ResetDueUsage(cmd.Context(), plan.ResetPeriod(resetPeriod), sweepOptions())
		if err != nil {
			return err
		}
		return printResult(cmd, res)
	},
}

var sweepExpiringCmd = &cobra.Command{
	Use:   "expiring",
	Short: "List subscriptions whose period ends within the window",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		subs, err := a.runner.ExpiringSoon(cmd.Context(), expiringDays)
		if err != nil {
			return err
		}

		if len(subs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no subscriptions expiring within %d days\n", expiringDays)
			return nil
		}
		for _, sub := range subs {
			renewal := "manual"
			if sub.AutoRenewal {
				renewal = "auto"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  ends %s  renewal=%s\n",
				sub.ID, sub.Subscriber, sub.Status, sub.EndsAt.UTC().Format(time.RFC3339), renewal)
		}
		return nil
	},
}

func sweepOptions() sweep.Options {
	return sweep.Options{DryRun: sweepDryRun, Limit: sweepLimit}
}

func printResult(cmd *cobra.Command, res sweep.Result) error {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: scanned=%d processed=%d skipped=%d failed=%d\n",
		res.Sweep, res.Scanned, res.Processed, res.Skipped, res.Failed)
	if res.Failed > 0 {
		return errors.Join(res.Errors...)
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{sweepExpireCmd, sweepRenewCmd, sweepResetUsageCmd} {
		c.Flags().BoolVar(&sweepDryRun, "dry-run", false, "log what would change without writing")
		c.Flags().IntVar(&sweepLimit, "limit", 0, "maximum rows to process, 0 means no cap")
	}
	sweepResetUsageCmd.Flags().StringVar(&resetPeriod, "period", "", "reset period to sweep: daily, monthly or yearly")
	_ = sweepResetUsageCmd.MarkFlagRequired("period")
	sweepExpiringCmd.Flags().IntVar(&expiringDays, "days", 7, "report window in days")

	sweepCmd.AddCommand(sweepExpireCmd, sweepRenewCmd, sweepResetUsageCmd, sweepExpiringCmd)
}
