package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/cmd/rfsctl/cmdutil"
	"github.com/marmos91/remotefs/internal/cli/output"
	"github.com/marmos91/remotefs/pkg/vfs"
)

var readlinkCmd = &cobra.Command{
	Use:   "readlink <link>",
	Short: "Print the target of a symbolic link",
	Args:  cobra.ExactArgs(1),
	RunE:  runReadlink,
}

var sameCmd = &cobra.Command{
	Use:   "same <path> <path>",
	Short: "Report whether two paths are the same file",
	Long: `Report whether two paths locate the same file, for example a file and
a hard link to it.

Examples:
  rfsctl same /data/a /data/b`,
	Args: cobra.ExactArgs(2),
	RunE: runSame,
}

var hiddenCmd = &cobra.Command{
	Use:   "hidden <path>",
	Short: "Report whether a path is hidden",
	Args:  cobra.ExactArgs(1),
	RunE:  runHidden,
}

// QueryResult is the answer of a single-valued query.
type QueryResult struct {
	Path      vfs.Path `json:"path" yaml:"path"`
	OtherPath vfs.Path `json:"other_path,omitempty" yaml:"other_path,omitempty"`
	Target    vfs.Path `json:"target,omitempty" yaml:"target,omitempty"`
	Result    *bool    `json:"result,omitempty" yaml:"result,omitempty"`
}

func printQuery(cmd *cobra.Command, res QueryResult, line string) error {
	printer, err := cmdutil.PrinterTo(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if printer.Format() == output.FormatTable {
		printer.Message("%s", line)
		return nil
	}
	return printer.Print(res)
}

func runReadlink(cmd *cobra.Command, args []string) error {
	link := cmdutil.Path(args[0])

	s, err := cmdutil.Connect()
	if err != nil {
		return err
	}
	defer s.Close()

	target, err := s.Client.ReadSymbolicLink(s.Ctx, link)
	if err != nil {
		return fmt.Errorf("failed to read link %s: %w", link, err)
	}
	return printQuery(cmd, QueryResult{Path: link, Target: target}, target.String())
}

func runSame(cmd *cobra.Command, args []string) error {
	p, p2 := cmdutil.Path(args[0]), cmdutil.Path(args[1])

	s, err := cmdutil.Connect()
	if err != nil {
		return err
	}
	defer s.Close()

	same, err := s.Client.IsSameFile(s.Ctx, p, p2)
	if err != nil {
		return fmt.Errorf("failed to compare %s and %s: %w", p, p2, err)
	}
	return printQuery(cmd, QueryResult{Path: p, OtherPath: p2, Result: &same}, fmt.Sprintf("%t", same))
}

func runHidden(cmd *cobra.Command, args []string) error {
	p := cmdutil.Path(args[0])

	s, err := cmdutil.Connect()
	if err != nil {
		return err
	}
	defer s.Close()

	hidden, err := s.Client.IsHidden(s.Ctx, p)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", p, err)
	}
	return printQuery(cmd, QueryResult{Path: p, Result: &hidden}, fmt.Sprintf("%t", hidden))
}
