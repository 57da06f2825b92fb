package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/kitinfra/cmd/kitinfra/handlers"
)

// Plan returns the command printing the add-on installation order.
//
// Optional flags:
//
//	--config, -c: Path to cluster configuration YAML file (default: kitinfra.yaml)
//	--output, -o: text or json
func Plan() *cobra.Command {
	var configPath, output string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the add-on installation order",
		Long: `Show the order in which add-on resources will be installed.

The plan is computed from the configuration alone; no AWS or cluster
API is called. Role ARNs in chart values use a placeholder account.

Examples:
  # Show the plan for kitinfra.yaml
  kitinfra plan

  # Machine readable plan
  kitinfra plan -c staging.yaml -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(cmd.Context(), handlers.PlanOptions{
				ConfigPath: configPath,
				Output:     output,
				Out:        cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: kitinfra.yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", handlers.OutputText, "Output format: text or json")

	return cmd
}
