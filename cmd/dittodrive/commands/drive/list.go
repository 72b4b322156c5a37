package drive

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/pkg/config"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List configured drives",
	Long: `List the drives stored in the configuration file.

Passwords are never printed.

Examples:
  dittodrive drive list
  dittodrive drive list -o yaml`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// driveRow is the printable form of a DriveConfig, without secrets.
type driveRow struct {
	Name     string `json:"name" yaml:"name"`
	Protocol string `json:"protocol" yaml:"protocol"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	SubPath  string `json:"sub_path,omitempty" yaml:"sub_path,omitempty"`
	Detail   string `json:"detail" yaml:"detail"`
}

func newDriveRow(d config.DriveConfig) driveRow {
	return driveRow{
		Name:     d.Name,
		Protocol: d.Protocol,
		Host:     d.Host,
		Port:     d.Port,
		Username: d.Username,
		SubPath:  d.SubPath,
		Detail:   d.Detail(),
	}
}

// DriveList is a list of drives for table rendering.
type DriveList []driveRow

// Headers implements TableRenderer.
func (dl DriveList) Headers() []string {
	return []string{"NAME", "PROTOCOL", "DETAIL"}
}

// Rows implements TableRenderer.
func (dl DriveList) Rows() [][]string {
	rows := make([][]string, 0, len(dl))
	for _, d := range dl {
		rows = append(rows, []string{d.Name, d.Protocol, d.Detail})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	rows := make(DriveList, 0, len(cfg.Drives))
	for _, d := range cfg.Drives {
		rows = append(rows, newDriveRow(d))
	}

	return cmdutil.PrintOutput(cmd.OutOrStdout(), rows, len(rows) == 0,
		"No drives configured. Add one with 'dittodrive drive add'.", rows)
}
