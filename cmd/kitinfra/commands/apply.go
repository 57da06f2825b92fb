package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/kitinfra/cmd/kitinfra/handlers"
)

// Apply returns the command bootstrapping the cluster and installing its
// add-ons.
//
// Optional flags:
//
//	--config, -c: Path to cluster configuration YAML file (default: kitinfra.yaml)
//	--yes, -y: Skip the confirmation prompt
//	--dry-run: Show the plan and mark every step ready without changes
//	--concurrency: Override orchestrator.concurrency
//	--metrics-file: Write run metrics in Prometheus text format
//
// Environment variables:
//
//	AWS_PROFILE, AWS_REGION and the other AWS SDK variables
//	KITINFRA_TIMEOUT_*: see config.LoadTimeouts
func Apply() *cobra.Command {
	var opts handlers.ApplyOptions

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update the cluster and its add-ons",
		Long: `Create or update the cluster and install its add-ons.

Apply bootstraps the cluster, then installs every enabled add-on in
dependency order. A failing step only blocks the steps that depend on it;
the command exits non-zero if any step failed.

Examples:
  # Apply kitinfra.yaml after confirming the plan
  kitinfra apply

  # Non-interactive apply with four parallel steps
  kitinfra apply -c production.yaml --yes --concurrency 4

  # Record metrics for a node exporter textfile collector
  kitinfra apply --yes --metrics-file /var/lib/node_exporter/kitinfra.prom`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Out = cmd.OutOrStdout()
			return handlers.Apply(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: kitinfra.yaml)")
	cmd.Flags().StringVar(&opts.Profile, "profile", "", "AWS shared config profile")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Apply without asking for confirmation")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would be done without making changes")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Steps applied at once (default: orchestrator.concurrency)")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write run metrics to this file")

	return cmd
}
