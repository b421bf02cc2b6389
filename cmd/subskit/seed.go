package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/subskit/pkg/plan"
)

var seedFiles []string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Sync the plan catalog from YAML into the store",
	Long: `Load plan definitions from YAML files and upsert them into the stored
catalog. Plans absent from the files are left untouched; retire a plan by
setting active: false in the file so existing subscriptions keep resolving.

Examples:
  subskit seed --file deploy/plans.yaml
  subskit seed --file base-plans.yaml --file addon-plans.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.svc.SyncCatalog(cmd.Context(), plan.NewYAMLSource(seedFiles...)); err != nil {
			return err
		}

		plans, err := a.svc.Plans(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "catalog synced, %d active plans\n", len(plans))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringSliceVar(&seedFiles, "file", []string{"deploy/plans.yaml"}, "plan catalog YAML file, repeatable")
}
