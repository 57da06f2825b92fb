// Package main is the entry point for the kitinfra CLI.
//
// kitinfra bootstraps an EKS cluster and installs its platform add-ons in
// dependency order. Every step is idempotent, so a failed run is recovered
// by running apply again.
//
// Commands: plan, bootstrap, apply, token, version.
//
// For detailed usage information, run:
//
//	kitinfra --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/kitinfra/cmd/kitinfra/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
