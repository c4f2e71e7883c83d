package commands

import (
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/imamik/proxysync/cmd/proxysync/handlers"
	"github.com/imamik/proxysync/internal/config"
)

// Run returns the command that starts the controller.
//
// Optional flags:
//
//	--config, -c: Path to the configuration file (default: proxysync.yaml)
//	--metrics-bind-address: Address of the metrics endpoint (default: :8080)
//	--health-probe-bind-address: Address of the health endpoints (default: :8081)
func Run() *cobra.Command {
	opts := handlers.RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch pods and keep the balancer members in sync",
		Long: `Watch pods and keep the httpd balancer member list in sync.

Backend pods are registered once they are running and answer an HTTP
probe, and deregistered as soon as they stop. Reloads of the proxy are
graceful. When the proxy pod restarts, every known backend is
re-registered.

Examples:
  # Run with proxysync.yaml from the current directory
  proxysync run

  # Run with an explicit configuration and debug logging
  DEBUG=true proxysync run -c /etc/proxysync/config.yaml`,
		RunE: func(_ *cobra.Command, _ []string) error {
			handlers.SetupLogger(zapOpts)
			ctx := ctrl.SetupSignalHandler()
			return handlers.Run(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", config.DefaultPath, "Path to configuration file")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-bind-address", handlers.DefaultMetricsAddr, "The address the metrics endpoint binds to")
	cmd.Flags().StringVar(&opts.ProbeAddr, "health-probe-bind-address", handlers.DefaultProbeAddr, "The address the probe endpoint binds to")

	return cmd
}
