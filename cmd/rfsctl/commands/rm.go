package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/cmd/rfsctl/cmdutil"
)

var (
	rmForce    bool
	rmIfExists bool
)

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Delete a file, empty directory or link",
	Long: `Delete a remote path. A symbolic link is removed, not its target.
Directories must be empty.

This action is irreversible. You will be prompted for confirmation
unless --force is specified.

Examples:
  rfsctl rm /tmp/old.txt
  rfsctl rm --force --if-exists /tmp/maybe`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

func init() {
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "Skip confirmation prompt")
	rmCmd.Flags().BoolVar(&rmIfExists, "if-exists", false, "Do not fail when the path does not exist")
}

func runRm(cmd *cobra.Command, args []string) error {
	p := cmdutil.Path(args[0])

	printer, err := cmdutil.PrinterTo(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	return cmdutil.RunDeleteWithConfirmation(p.String(), rmForce, func() error {
		s, err := cmdutil.Connect()
		if err != nil {
			return err
		}
		defer s.Close()

		if rmIfExists {
			deleted, err := s.Client.DeleteIfExists(s.Ctx, p)
			if err != nil {
				return fmt.Errorf("failed to delete %s: %w", p, err)
			}
			if !deleted {
				printer.Message("%s does not exist", p)
				return nil
			}
		} else if err := s.Client.Delete(s.Ctx, p); err != nil {
			return fmt.Errorf("failed to delete %s: %w", p, err)
		}

		printer.Message("Deleted %s", p)
		return nil
	})
}
