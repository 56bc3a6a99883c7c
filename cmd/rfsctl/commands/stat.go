package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/cmd/rfsctl/cmdutil"
	"github.com/marmos91/remotefs/internal/cli/output"
	"github.com/marmos91/remotefs/pkg/vfs"
)

var (
	statPosix    bool
	statNoFollow bool
)

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Show file attributes",
	Long: `Read the attributes of a remote path. Symbolic links are followed
unless --no-follow is given.

Examples:
  rfsctl stat /docs/report.txt
  rfsctl stat --posix --no-follow /link -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runStat,
}

func init() {
	statCmd.Flags().BoolVar(&statPosix, "posix", false, "Include owner, group and permissions")
	statCmd.Flags().BoolVar(&statNoFollow, "no-follow", false, "Describe a symbolic link itself")
}

func attributePairs(p vfs.Path, attrs vfs.Attributes) [][2]string {
	b := attrs.Basic()
	pairs := [][2]string{
		{"Path", p.String()},
		{"Type", b.Type.String()},
		{"Size", strconv.FormatInt(b.Size, 10)},
		{"Modified", cmdutil.FormatTime(b.LastModifiedTime)},
		{"Accessed", cmdutil.FormatTime(b.LastAccessTime)},
		{"Created", cmdutil.FormatTime(b.CreationTime)},
		{"File key", cmdutil.EmptyOr(b.FileKey, "-")},
	}
	if px, ok := attrs.(*vfs.PosixAttributes); ok {
		pairs = append(pairs,
			[2]string{"Owner", fmt.Sprintf("%s (%d)", cmdutil.EmptyOr(px.Owner, "-"), px.UID)},
			[2]string{"Group", fmt.Sprintf("%s (%d)", cmdutil.EmptyOr(px.Group, "-"), px.GID)},
			[2]string{"Permissions", fmt.Sprintf("%s (%04o)", px.Permissions.Perm(), uint32(px.Permissions.Perm()))},
		)
	}
	return pairs
}

func runStat(cmd *cobra.Command, args []string) error {
	p := cmdutil.Path(args[0])

	kind := vfs.AttributeKindBasic
	if statPosix {
		kind = vfs.AttributeKindPosix
	}
	var opts []vfs.LinkOption
	if statNoFollow {
		opts = append(opts, vfs.NoFollowLinks)
	}

	s, err := cmdutil.Connect()
	if err != nil {
		return err
	}
	defer s.Close()

	attrs, err := s.Client.ReadAttributes(s.Ctx, p, kind, opts...)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", p, err)
	}

	printer, err := cmdutil.PrinterTo(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if printer.Format() == output.FormatTable {
		return output.PrintKeyValues(cmd.OutOrStdout(), attributePairs(p, attrs))
	}
	return printer.Print(attrs)
}
