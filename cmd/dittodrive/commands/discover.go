package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/internal/cli/prompt"
	"github.com/marmos91/dittodrive/pkg/config"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/drive/smb"
)

var (
	sharesUsername string
	sharesPassword string
	sharesDomain   string
	sharesAll      bool

	exportsMountPort int
	exportsUID       uint32
	exportsGID       uint32
)

var sharesCmd = &cobra.Command{
	Use:   "shares <host[:port]>",
	Short: "List the shares of an SMB server",
	Long: `List the shares an SMB server offers, to pick one for "drive add".

Administrative shares (C$, ADMIN$, IPC$) are hidden unless --all is set.
The password is prompted for when a username is given without one.

Examples:
  dittodrive shares fileserver --username alice
  dittodrive shares 10.0.0.5:4455 -u alice -p secret --all -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runShares,
}

var exportsCmd = &cobra.Command{
	Use:   "exports <host[:port]>",
	Short: "List the exports of an NFS server",
	Long: `List the exports an NFS server offers, to pick one for "drive add".

Examples:
  dittodrive exports 10.0.0.5
  dittodrive exports nas.local --mount-port 20048`,
	Args: cobra.ExactArgs(1),
	RunE: runExports,
}

func init() {
	sharesCmd.Flags().StringVarP(&sharesUsername, "username", "u", "", "Username")
	sharesCmd.Flags().StringVarP(&sharesPassword, "password", "p", "", "Password (prompted when omitted)")
	sharesCmd.Flags().StringVar(&sharesDomain, "domain", "", "NTLM domain")
	sharesCmd.Flags().BoolVarP(&sharesAll, "all", "a", false, "Include administrative shares")

	exportsCmd.Flags().IntVar(&exportsMountPort, "mount-port", 0, "MOUNT service port (default: ask portmapper)")
	exportsCmd.Flags().Uint32Var(&exportsUID, "uid", 0, "AUTH_UNIX uid")
	exportsCmd.Flags().Uint32Var(&exportsGID, "gid", 0, "AUTH_UNIX gid")
}

type nameRow struct {
	Name string `json:"name" yaml:"name"`
}

// NameList renders a one-column list of share or export names.
type NameList struct {
	header string
	names  []string
}

// Headers implements TableRenderer.
func (nl NameList) Headers() []string {
	return []string{nl.header}
}

// Rows implements TableRenderer.
func (nl NameList) Rows() [][]string {
	rows := make([][]string, 0, len(nl.names))
	for _, n := range nl.names {
		rows = append(rows, []string{n})
	}
	return rows
}

func nameRows(names []string) []nameRow {
	rows := make([]nameRow, 0, len(names))
	for _, n := range names {
		rows = append(rows, nameRow{Name: n})
	}
	return rows
}

func runShares(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	host, port, err := config.SplitHostPort(args[0])
	if err != nil {
		return err
	}

	password := sharesPassword
	if sharesUsername != "" && !cmd.Flags().Changed("password") {
		if password, err = prompt.Password("Password"); err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	d, err := config.NewSMBDrive(cfg, config.DriveConfig{
		Protocol: drive.ProtocolSMB.String(),
		Host:     host,
		Port:     port,
		Username: sharesUsername,
		Password: password,
		Domain:   sharesDomain,
	})
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	names, err := d.ListShares(cmd.Context())
	if err != nil {
		return err
	}
	if !sharesAll {
		names = smb.VisibleShares(names)
	}

	table := NameList{header: "SHARE", names: names}
	return cmdutil.PrintOutput(cmd.OutOrStdout(), nameRows(names), len(names) == 0, "No shares found.", table)
}

func runExports(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	host, port, err := config.SplitHostPort(args[0])
	if err != nil {
		return err
	}

	d, err := config.NewNFSDrive(cfg, config.DriveConfig{
		Protocol:  drive.ProtocolNFS.String(),
		Host:      host,
		Port:      port,
		MountPort: exportsMountPort,
		UID:       exportsUID,
		GID:       exportsGID,
	})
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	names, err := d.ListExports(cmd.Context())
	if err != nil {
		return err
	}

	table := NameList{header: "EXPORT", names: names}
	return cmdutil.PrintOutput(cmd.OutOrStdout(), nameRows(names), len(names) == 0, "No exports found.", table)
}
