package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/remotefs/cmd/rfsctl/cmdutil"
	"github.com/marmos91/remotefs/internal/cli/output"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the server answers",
	Long: `Connect to the server, perform the handshake and time one NULL call.

Examples:
  rfsctl ping
  rfsctl ping --network unix --server /run/rfsd.sock`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

// PingResult is the outcome of a ping.
type PingResult struct {
	Server   string `json:"server" yaml:"server"`
	Software string `json:"software" yaml:"software"`
	RTT      string `json:"rtt" yaml:"rtt"`
}

func runPing(cmd *cobra.Command, args []string) error {
	s, err := cmdutil.Connect()
	if err != nil {
		return err
	}
	defer s.Close()

	start := time.Now()
	if err := s.Client.Ping(s.Ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	rtt := time.Since(start)

	p, err := cmdutil.PrinterTo(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	res := PingResult{Server: cmdutil.Flags.Server, Software: s.Client.ServerSoftware, RTT: rtt.String()}
	if p.Format() == output.FormatTable {
		p.Message("%s (%s): rtt=%s", res.Server, res.Software, res.RTT)
		return nil
	}
	return p.Print(res)
}
