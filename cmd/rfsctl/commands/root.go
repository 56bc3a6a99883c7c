// Package commands implements the rfsctl command line.
package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/cmd/rfsctl/cmdutil"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "rfsctl",
	Short: "rfsctl - drive a remote filesystem provider",
	Long: `rfsctl connects to a running rfsd and calls its provider operations:
list directories, read attributes, create directories and links, delete
entries and query the file store.

Use "rfsctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.Server, _ = cmd.Flags().GetString("server")
		cmdutil.Flags.Network, _ = cmd.Flags().GetString("network")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.Timeout, _ = cmd.Flags().GetDuration("timeout")
	},
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
	rootCmd.PersistentFlags().String("server", cmdutil.DefaultServer, "Server address (host:port, or a socket path with --network unix)")
	rootCmd.PersistentFlags().String("network", "tcp", "Network (tcp|unix)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "Time limit for the whole command (0 = none)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(lnCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(readlinkCmd)
	rootCmd.AddCommand(sameCmd)
	rootCmd.AddCommand(hiddenCmd)
	rootCmd.AddCommand(accessCmd)
	rootCmd.AddCommand(dfCmd)
}
