package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/internal/protocol/rfs"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "rfsctl %s (commit: %s, built: %s, protocol: v%d)\n",
			Version, Commit, Date, rfs.Version)
	},
}
