// Package commands implements the rfsd command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/cmd/rfsd/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "rfsd",
	Short: "rfsd - remote filesystem provider daemon",
	Long: `rfsd hosts a filesystem provider and serves it to other processes
over a stream connection (TCP or a Unix socket). Clients such as rfsctl call
the provider's namespace operations remotely: directory listing, link and
directory creation, deletion, attribute reads and file store queries.

Use "rfsd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/rfsd/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(config.Cmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
