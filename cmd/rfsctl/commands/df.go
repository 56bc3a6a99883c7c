package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/cmd/rfsctl/cmdutil"
	"github.com/marmos91/remotefs/internal/bytesize"
	"github.com/marmos91/remotefs/internal/cli/output"
	"github.com/marmos91/remotefs/pkg/vfs"
)

var dfCmd = &cobra.Command{
	Use:   "df [path]",
	Short: "Show the file store holding a path",
	Long: `Show the file store a remote path lives on, with its current space
figures.

Examples:
  rfsctl df
  rfsctl df /data -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDf,
}

// StoreInfo describes a file store and its space.
type StoreInfo struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	ReadOnly    bool   `json:"read_only" yaml:"read_only"`
	Total       int64  `json:"total" yaml:"total"`
	Usable      int64  `json:"usable" yaml:"usable"`
	Unallocated int64  `json:"unallocated" yaml:"unallocated"`
}

func (i StoreInfo) pairs() [][2]string {
	size := func(n int64) string {
		return fmt.Sprintf("%s (%d)", bytesize.ByteSize(n), n)
	}
	return [][2]string{
		{"Name", i.Name},
		{"Type", i.Type},
		{"Read only", strconv.FormatBool(i.ReadOnly)},
		{"Total", size(i.Total)},
		{"Usable", size(i.Usable)},
		{"Unallocated", size(i.Unallocated)},
	}
}

func runDf(cmd *cobra.Command, args []string) error {
	p := vfs.Root
	if len(args) == 1 {
		p = cmdutil.Path(args[0])
	}

	s, err := cmdutil.Connect()
	if err != nil {
		return err
	}
	defer s.Close()

	store, err := s.Client.GetFileStore(s.Ctx, p)
	if err != nil {
		return fmt.Errorf("failed to get file store of %s: %w", p, err)
	}
	if c, ok := store.(interface{ Close() error }); ok {
		defer func() { _ = c.Close() }()
	}

	info := StoreInfo{Name: store.Name(), Type: store.Type(), ReadOnly: store.IsReadOnly()}
	if info.Total, err = store.TotalSpace(s.Ctx); err != nil {
		return fmt.Errorf("failed to read total space: %w", err)
	}
	if info.Usable, err = store.UsableSpace(s.Ctx); err != nil {
		return fmt.Errorf("failed to read usable space: %w", err)
	}
	if info.Unallocated, err = store.UnallocatedSpace(s.Ctx); err != nil {
		return fmt.Errorf("failed to read unallocated space: %w", err)
	}

	printer, err := cmdutil.PrinterTo(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if printer.Format() == output.FormatTable {
		return output.PrintKeyValues(cmd.OutOrStdout(), info.pairs())
	}
	return printer.Print(info)
}
