package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Load the configuration file with environment overrides and defaults
applied, and report the first problem found.

Examples:
  rfsd config validate
  rfsd config validate --config /etc/rfsd/config.yaml`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %s\n", configPath)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  provider: %s, listening on %s %s\n",
		cfg.Provider.Type, cfg.Server.Network, cfg.Server.Address)
	return nil
}
