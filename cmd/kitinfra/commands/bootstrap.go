package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/kitinfra/cmd/kitinfra/handlers"
)

// Bootstrap returns the command creating the cluster without add-ons.
//
// The bootstrap process:
//  1. Creates the VPC with public and private subnets
//  2. Creates the EKS control plane and its OIDC provider
//  3. Creates the system node group
//  4. Maps the node role into the cluster
//  5. Writes the kubeconfig
func Bootstrap() *cobra.Command {
	var configPath, profile string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the cluster without installing add-ons",
		Long: `Create the network, control plane and node pool of the cluster.

Every step is idempotent. If bootstrap fails, the error names the failed
step; run the command again to continue.

Examples:
  kitinfra bootstrap -c production.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Bootstrap(cmd.Context(), handlers.BootstrapOptions{
				ConfigPath: configPath,
				Profile:    profile,
				Out:        cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: kitinfra.yaml)")
	cmd.Flags().StringVar(&profile, "profile", "", "AWS shared config profile")

	return cmd
}
