package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/pkg/drive"
)

var pingAll bool

var pingCmd = &cobra.Command{
	Use:   "ping [drive...]",
	Short: "Check that drives are reachable",
	Long: `Check that drives are reachable and accept their credentials.

Exits with an error when at least one drive is unreachable.

Examples:
  # Check one drive
  dittodrive ping nas

  # Check every configured drive
  dittodrive ping --all -o json`,
	ValidArgsFunction: completeDriveNames,
	RunE:              runPing,
}

func init() {
	pingCmd.Flags().BoolVarP(&pingAll, "all", "a", false, "Check every configured drive")
}

type pingRow struct {
	Name      string         `json:"name" yaml:"name"`
	Protocol  drive.Protocol `json:"protocol" yaml:"protocol"`
	Detail    string         `json:"detail" yaml:"detail"`
	Reachable bool           `json:"reachable" yaml:"reachable"`
}

// PingList is a list of ping results for table rendering.
type PingList []pingRow

// Headers implements TableRenderer.
func (pl PingList) Headers() []string {
	return []string{"DRIVE", "PROTOCOL", "DETAIL", "REACHABLE"}
}

// Rows implements TableRenderer.
func (pl PingList) Rows() [][]string {
	rows := make([][]string, 0, len(pl))
	for _, p := range pl {
		rows = append(rows, []string{p.Name, p.Protocol.String(), p.Detail, cmdutil.BoolToYesNo(p.Reachable)})
	}
	return rows
}

func runPing(cmd *cobra.Command, args []string) error {
	names := args
	if pingAll {
		cfg, err := cmdutil.LoadConfig()
		if err != nil {
			return err
		}
		names = names[:0]
		for _, d := range cfg.Drives {
			names = append(names, d.Name)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("specify a drive name or --all")
	}

	results := make(PingList, 0, len(names))
	unreachable := 0
	for _, name := range names {
		d, dc, err := cmdutil.OpenDrive(name)
		if err != nil {
			return err
		}
		ok := d.Ping(cmd.Context())
		_ = drive.Close(d)

		if !ok {
			unreachable++
		}
		results = append(results, pingRow{Name: dc.Name, Protocol: d.Protocol(), Detail: dc.Detail(), Reachable: ok})
	}

	if err := cmdutil.PrintOutput(cmd.OutOrStdout(), results, len(results) == 0, "No drives configured.", results); err != nil {
		return err
	}
	if unreachable > 0 {
		return fmt.Errorf("%d of %d drive(s) unreachable", unreachable, len(results))
	}
	return nil
}
