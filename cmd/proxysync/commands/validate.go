package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/proxysync/cmd/proxysync/handlers"
	"github.com/imamik/proxysync/internal/config"
)

// Validate returns the command that checks a configuration file.
func Validate() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Long: `Load the configuration file, apply environment overrides and report
the effective settings without connecting to the cluster.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Validate(cmd.OutOrStdout(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to configuration file")

	return cmd
}
