// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// Root returns the root command for the kitinfra CLI.
func Root() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:           "kitinfra",
		Short:         "Bootstrap EKS and install platform add-ons",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogger(debug)
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(Plan())
	cmd.AddCommand(Bootstrap())
	cmd.AddCommand(Apply())
	cmd.AddCommand(Token())
	cmd.AddCommand(Version())

	return cmd
}

// setupLogger installs the zap backed logger every package reaches through
// log.FromContext.
func setupLogger(debug bool) {
	opts := zap.Options{
		Development: debug,
		Level:       zapcore.InfoLevel,
	}
	if debug {
		opts.Level = zapcore.DebugLevel
	}
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))
}
