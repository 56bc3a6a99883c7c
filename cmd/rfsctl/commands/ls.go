package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/remotefs/cmd/rfsctl/cmdutil"
	"github.com/marmos91/remotefs/internal/bytesize"
	"github.com/marmos91/remotefs/pkg/vfs"
)

// statConcurrency bounds the READ_ATTRIBUTES calls ls -l has in flight.
const statConcurrency = 16

var (
	lsAll  bool
	lsLong bool
	lsGlob string
)

var lsCmd = &cobra.Command{
	Use:   "ls [dir]",
	Short: "List a directory",
	Long: `List the entries of a remote directory. Entries whose name starts with
a dot are hidden unless --all is given.

The filter runs on the server. --glob matches entry names against a shell
pattern.

Examples:
  rfsctl ls /
  rfsctl ls -a /home
  rfsctl ls -l --glob '*.txt' /docs -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func init() {
	lsCmd.Flags().BoolVarP(&lsAll, "all", "a", false, "Include dot files")
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "Read attributes of every entry")
	lsCmd.Flags().StringVar(&lsGlob, "glob", "", "Only list names matching this pattern")
}

// Entry is one listed directory entry. Attributes are only set with -l.
type Entry struct {
	Path       vfs.Path             `json:"path" yaml:"path"`
	Attributes *vfs.BasicAttributes `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// EntryList renders a listing as a table.
type EntryList []Entry

// Headers implements TableRenderer.
func (l EntryList) Headers() []string {
	if len(l) > 0 && l[0].Attributes != nil {
		return []string{"TYPE", "SIZE", "MODIFIED", "NAME"}
	}
	return []string{"NAME"}
}

// Rows implements TableRenderer.
func (l EntryList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		name := cmdutil.EmptyOr(e.Path.Name(), "/")
		if e.Attributes == nil {
			rows = append(rows, []string{name})
			continue
		}
		size := bytesize.ByteSize(e.Attributes.Size).String()
		if e.Attributes.IsDirectory() {
			size = "-"
		}
		rows = append(rows, []string{
			e.Attributes.Type.String(),
			size,
			cmdutil.FormatTime(e.Attributes.LastModifiedTime),
			name,
		})
	}
	return rows
}

func lsFilter() (vfs.Filter, error) {
	if lsGlob != "" {
		glob, err := vfs.Glob(lsGlob)
		if err != nil {
			return nil, err
		}
		if lsAll {
			return glob, nil
		}
		return vfs.FilterFunc(func(ctx context.Context, entry vfs.Path) (bool, error) {
			if ok, err := vfs.NoDotFiles().Accept(ctx, entry); !ok || err != nil {
				return ok, err
			}
			return glob.Accept(ctx, entry)
		}), nil
	}
	if lsAll {
		return vfs.AcceptAll(), nil
	}
	return vfs.NoDotFiles(), nil
}

func runLs(cmd *cobra.Command, args []string) error {
	dir := vfs.Root
	if len(args) == 1 {
		dir = cmdutil.Path(args[0])
	}

	filter, err := lsFilter()
	if err != nil {
		return err
	}

	s, err := cmdutil.Connect()
	if err != nil {
		return err
	}
	defer s.Close()

	paths, err := s.Client.ListDirectory(s.Ctx, dir, filter)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}

	entries := make(EntryList, len(paths))
	for i, p := range paths {
		entries[i].Path = p
	}

	if lsLong {
		g, ctx := errgroup.WithContext(s.Ctx)
		g.SetLimit(statConcurrency)
		for i := range entries {
			g.Go(func() error {
				attrs, err := s.Client.ReadAttributes(ctx, entries[i].Path, vfs.AttributeKindBasic, vfs.NoFollowLinks)
				if err != nil {
					return fmt.Errorf("failed to stat %s: %w", entries[i].Path, err)
				}
				entries[i].Attributes = attrs.Basic()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	return cmdutil.PrintOutput(cmd.OutOrStdout(), entries, len(entries) == 0,
		"Directory "+strconv.Quote(dir.String())+" is empty.", entries)
}
