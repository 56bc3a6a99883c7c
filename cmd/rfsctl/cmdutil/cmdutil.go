// Package cmdutil holds the flags and helpers shared by rfsctl commands.
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/marmos91/remotefs/internal/cli/output"
	"github.com/marmos91/remotefs/internal/cli/prompt"
	"github.com/marmos91/remotefs/pkg/remote"
	"github.com/marmos91/remotefs/pkg/vfs"
)

// DefaultServer is the address rfsd listens on out of the box.
const DefaultServer = "127.0.0.1:7049"

// GlobalFlags are the persistent flags of the root command.
type GlobalFlags struct {
	Server  string
	Network string
	Output  string
	Timeout time.Duration
}

// Flags is filled by the root command before any subcommand runs.
var Flags GlobalFlags

// Session is one connected command invocation.
type Session struct {
	Client *remote.Client
	Ctx    context.Context

	cancel context.CancelFunc
}

// Close drops the connection.
func (s *Session) Close() {
	s.cancel()
	_ = s.Client.Close()
}

// Connect dials the server named by the global flags. The returned
// session's context expires after --timeout.
func Connect() (*Session, error) {
	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if Flags.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, Flags.Timeout)
	}

	client, err := remote.Dial(ctx, Flags.Network, Flags.Server, remote.Options{})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to %s %s: %w", Flags.Network, Flags.Server, err)
	}
	return &Session{Client: client, Ctx: ctx, cancel: cancel}, nil
}

// PrinterTo returns a printer for the -o format writing to w.
func PrinterTo(w io.Writer) (*output.Printer, error) {
	format, err := output.ParseFormat(Flags.Output)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(w, format), nil
}

// PrintOutput prints data, or emptyMsg in table format when isEmpty.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, table output.TableRenderer) error {
	p, err := PrinterTo(w)
	if err != nil {
		return err
	}
	if p.Format() == output.FormatTable {
		if isEmpty {
			p.Message("%s", emptyMsg)
			return nil
		}
		return p.Print(table)
	}
	return p.Print(data)
}

// RunDeleteWithConfirmation asks before calling del unless force is set.
func RunDeleteWithConfirmation(path string, force bool, del func() error) error {
	ok, err := prompt.ConfirmDelete(path, force)
	if err != nil {
		if errors.Is(err, prompt.ErrAborted) {
			return nil
		}
		return err
	}
	if !ok {
		_, _ = fmt.Fprintln(os.Stderr, "Aborted.")
		return nil
	}
	return del()
}

// Path turns a command argument into a provider path.
func Path(arg string) vfs.Path {
	return vfs.NewPath(arg)
}

// EmptyOr returns value, or fallback when value is empty.
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// FormatTime prints t in local time, or "-" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
