package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/kitinfra/cmd/kitinfra/handlers"
)

// Token returns the kubectl credential plugin command.
func Token() *cobra.Command {
	var opts handlers.TokenOptions

	cmd := &cobra.Command{
		Use:    "token",
		Short:  "Print an EKS authentication token as an ExecCredential",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Out = cmd.OutOrStdout()
			return handlers.Token(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Cluster, "cluster", "", "EKS cluster name")
	cmd.Flags().StringVar(&opts.Region, "region", "", "AWS region")
	cmd.Flags().StringVar(&opts.Profile, "profile", "", "AWS shared config profile")
	_ = cmd.MarkFlagRequired("cluster")
	_ = cmd.MarkFlagRequired("region")

	return cmd
}
