package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/cmd/rfsctl/cmdutil"
	"github.com/marmos91/remotefs/pkg/vfs"
)

var (
	lnSymbolic bool
	lnMode     string
)

var lnCmd = &cobra.Command{
	Use:   "ln <target> <link>",
	Short: "Create a hard or symbolic link",
	Long: `Create a link named <link>. Without -s, <target> must be an existing
file and a hard link is created. With -s, a symbolic link is created and
<target> is stored as given, so relative targets stay relative.

Examples:
  rfsctl ln /data/a /data/b
  rfsctl ln -s ../shared /home/alice/shared`,
	Args: cobra.ExactArgs(2),
	RunE: runLn,
}

func init() {
	lnCmd.Flags().BoolVarP(&lnSymbolic, "symbolic", "s", false, "Create a symbolic link")
	lnCmd.Flags().StringVarP(&lnMode, "mode", "m", "", "Permission bits for a symbolic link, in octal")
}

func runLn(cmd *cobra.Command, args []string) error {
	link := cmdutil.Path(args[1])

	s, err := cmdutil.Connect()
	if err != nil {
		return err
	}
	defer s.Close()

	printer, err := cmdutil.PrinterTo(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if lnSymbolic {
		attrs, err := creationAttributes(lnMode)
		if err != nil {
			return err
		}
		target := vfs.Path(args[0])
		if err := s.Client.CreateSymbolicLink(s.Ctx, link, target, attrs...); err != nil {
			return fmt.Errorf("failed to create symbolic link %s: %w", link, err)
		}
		printer.Message("Created symbolic link %s -> %s", link, target)
		return nil
	}

	if lnMode != "" {
		return fmt.Errorf("--mode only applies to symbolic links")
	}
	existing := cmdutil.Path(args[0])
	if err := s.Client.CreateLink(s.Ctx, link, existing); err != nil {
		return fmt.Errorf("failed to link %s to %s: %w", link, existing, err)
	}
	printer.Message("Created link %s => %s", link, existing)
	return nil
}
