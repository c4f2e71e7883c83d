// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers
// package.
package commands

import (
	"flag"

	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// zapOpts holds the logger flags shared by all subcommands.
var zapOpts = zap.Options{}

func init() {
	// Exposes the zap flags and controller-runtime's --kubeconfig.
	zapOpts.BindFlags(flag.CommandLine)
}

// Root returns the root command for the proxysync CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "proxysync",
		Short:        "Sync httpd balancer members with backend pods",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	cmd.AddCommand(Run())
	cmd.AddCommand(Validate())
	cmd.AddCommand(Version())

	return cmd
}
