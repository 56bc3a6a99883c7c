package commands

import (
	"fmt"
	"io/fs"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/cmd/rfsctl/cmdutil"
	"github.com/marmos91/remotefs/pkg/vfs"
)

var mkdirMode string

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <dir>",
	Short: "Create a directory",
	Long: `Create a directory. The parent must exist.

Examples:
  rfsctl mkdir /projects
  rfsctl mkdir --mode 0700 /private`,
	Args: cobra.ExactArgs(1),
	RunE: runMkdir,
}

func init() {
	mkdirCmd.Flags().StringVarP(&mkdirMode, "mode", "m", "", "Permission bits in octal (default: provider default)")
}

// creationAttributes turns --mode into creation attributes.
func creationAttributes(mode string) ([]vfs.FileAttribute, error) {
	if mode == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(mode, 8, 32)
	if err != nil || v > 0o7777 {
		return nil, fmt.Errorf("invalid mode %q: expected octal permission bits", mode)
	}
	return []vfs.FileAttribute{vfs.WithPermissions(fs.FileMode(v))}, nil
}

func runMkdir(cmd *cobra.Command, args []string) error {
	dir := cmdutil.Path(args[0])

	attrs, err := creationAttributes(mkdirMode)
	if err != nil {
		return err
	}

	s, err := cmdutil.Connect()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Client.CreateDirectory(s.Ctx, dir, attrs...); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	printer, err := cmdutil.PrinterTo(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	printer.Message("Created directory %s", dir)
	return nil
}
