package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/internal/protocol/rfs"
	"github.com/marmos91/remotefs/pkg/remote"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "rfsd %s (commit: %s, built: %s, protocol: %s v%d)\n",
			Version, Commit, Date, remote.Software, rfs.Version)
	},
}
