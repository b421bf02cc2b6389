package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/subskit/pkg/config"
	"github.com/dmitrymomot/subskit/pkg/pg"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply goose SQL migrations from the configured migrations directory.
Safe to run repeatedly; already applied migrations are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Migrations run before the schema exists, so this wires only the
		// database instead of the full application.
		var appCfg appConfig
		if err := config.Load(&appCfg); err != nil {
			return err
		}
		log := newLogger(appCfg)

		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return err
		}
		pool, err := pg.Connect(cmd.Context(), pgCfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pg.Migrate(cmd.Context(), pool, pgCfg, log); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}
