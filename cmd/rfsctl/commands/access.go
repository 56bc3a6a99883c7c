package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/cmd/rfsctl/cmdutil"
	"github.com/marmos91/remotefs/pkg/vfs"
)

var (
	accessRead    bool
	accessWrite   bool
	accessExecute bool
)

var accessCmd = &cobra.Command{
	Use:   "access <path>",
	Short: "Check that a path exists and grants access",
	Long: `Check access to a remote path. Without flags only existence is checked.
The command fails with the server's error when access is denied.

Examples:
  rfsctl access /data
  rfsctl access -r -w /data/report.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runAccess,
}

func init() {
	accessCmd.Flags().BoolVarP(&accessRead, "read", "r", false, "Check read access")
	accessCmd.Flags().BoolVarP(&accessWrite, "write", "w", false, "Check write access")
	accessCmd.Flags().BoolVarP(&accessExecute, "execute", "x", false, "Check execute access")
}

func runAccess(cmd *cobra.Command, args []string) error {
	p := cmdutil.Path(args[0])

	var modes []vfs.AccessMode
	if accessRead {
		modes = append(modes, vfs.AccessRead)
	}
	if accessWrite {
		modes = append(modes, vfs.AccessWrite)
	}
	if accessExecute {
		modes = append(modes, vfs.AccessExecute)
	}

	s, err := cmdutil.Connect()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Client.CheckAccess(s.Ctx, p, modes...); err != nil {
		return fmt.Errorf("access check on %s failed: %w", p, err)
	}

	printer, err := cmdutil.PrinterTo(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if len(modes) == 0 {
		printer.Message("%s exists", p)
		return nil
	}
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = m.String()
	}
	printer.Message("%s: %s granted", p, strings.Join(names, ", "))
	return nil
}
