package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/subskit/pkg/config"
)

var envFiles []string

var rootCmd = &cobra.Command{
	Use:   "subskit",
	Short: "Subscription plan, entitlement and usage toolkit",
	Long: `Subskit manages plan catalogs, subscription lifecycles and feature
usage against a PostgreSQL store.

The worker keeps subscriptions current in the background; the sweep
subcommands run the same maintenance passes once, which suits cron jobs
and manual operations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if len(envFiles) == 0 {
			return nil
		}
		return config.LoadEnv(envFiles...)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "extra .env files to load before reading configuration")
	rootCmd.AddCommand(sweepCmd, workerCmd, migrateCmd, seedCmd)
}
