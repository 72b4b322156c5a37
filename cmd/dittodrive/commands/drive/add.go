package drive

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/internal/cli/prompt"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/config"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/drive/smb"
)

var (
	addName       string
	addProtocol   string
	addHost       string
	addPort       int
	addUsername   string
	addPassword   string
	addDomain     string
	addSubPath    string
	addMountPort  int
	addUID        uint32
	addGID        uint32
	addPrivileged bool
	addNoCheck    bool
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a drive",
	Long: `Add a drive to the configuration file.

Without --name the command runs interactively: it asks for every setting
and offers the shares (SMB) or exports (NFS) of the server to pick from.

The drive is pinged before it is saved unless --no-check is set.

Examples:
  # Interactive
  dittodrive drive add

  # WebDAV
  dittodrive drive add --name nas --protocol webdav --host https://nas.local --port 5006 -u alice -p secret --sub-path /media

  # SMB share
  dittodrive drive add --name office --protocol smb --host fileserver -u alice -p secret --sub-path public

  # NFS export
  dittodrive drive add --name lab --protocol nfs --host 10.0.0.5 --sub-path /srv/export --uid 1000 --gid 1000`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "Drive name")
	addCmd.Flags().StringVar(&addProtocol, "protocol", "", "Protocol (webdav|smb|nfs)")
	addCmd.Flags().StringVar(&addHost, "host", "", "Server host; WebDAV accepts a URL")
	addCmd.Flags().IntVar(&addPort, "port", 0, "Server port (default: protocol default)")
	addCmd.Flags().StringVarP(&addUsername, "username", "u", "", "Username")
	addCmd.Flags().StringVarP(&addPassword, "password", "p", "", "Password")
	addCmd.Flags().StringVar(&addDomain, "domain", "", "NTLM domain (SMB)")
	addCmd.Flags().StringVar(&addSubPath, "sub-path", "", "WebDAV base path, SMB share or NFS export")
	addCmd.Flags().IntVar(&addMountPort, "mount-port", 0, "MOUNT service port (NFS)")
	addCmd.Flags().Uint32Var(&addUID, "uid", 0, "AUTH_UNIX uid (NFS)")
	addCmd.Flags().Uint32Var(&addGID, "gid", 0, "AUTH_UNIX gid (NFS)")
	addCmd.Flags().BoolVar(&addPrivileged, "privileged", false, "Use a reserved source port (NFS)")
	addCmd.Flags().BoolVar(&addNoCheck, "no-check", false, "Save without pinging the drive")
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	dc := config.DriveConfig{
		Name:       addName,
		Protocol:   addProtocol,
		Host:       addHost,
		Port:       addPort,
		Username:   addUsername,
		Password:   addPassword,
		Domain:     addDomain,
		SubPath:    addSubPath,
		MountPort:  addMountPort,
		UID:        addUID,
		GID:        addGID,
		Privileged: addPrivileged,
	}

	if !cmd.Flags().Changed("name") {
		if err := promptDrive(cmd.Context(), cfg, &dc); err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	if err := cfg.AddDrive(dc); err != nil {
		return err
	}
	added, _ := cfg.FindDrive(dc.Name)

	if !addNoCheck {
		d, err := config.NewDrive(cfg, *added)
		if err != nil {
			return err
		}
		ok := d.Ping(cmd.Context())
		_ = drive.Close(d)
		if !ok {
			return fmt.Errorf("drive %q is unreachable or rejected the credentials (use --no-check to save anyway)", added.Name)
		}
	}

	path := cmdutil.ConfigPath()
	if err := config.SaveConfig(cfg, path); err != nil {
		return err
	}
	logger.Debug("Drive saved", logger.Drive(added.Name), "config", path)

	return cmdutil.PrintResourceWithSuccess(cmd.OutOrStdout(), newDriveRow(*added),
		fmt.Sprintf("Drive '%s' added (%s %s)", added.Name, added.Protocol, added.Detail()))
}

// promptDrive asks for the settings of dc that were not given as flags.
func promptDrive(ctx context.Context, cfg *config.Config, dc *config.DriveConfig) error {
	var err error
	if dc.Name, err = prompt.InputRequired("Name"); err != nil {
		return err
	}
	if dc.Protocol == "" {
		dc.Protocol, err = prompt.Select("Protocol", []prompt.SelectOption{
			{Label: "WebDAV", Value: "webdav", Description: "HTTP(S) file server, NAS web shares, Nextcloud"},
			{Label: "SMB", Value: "smb", Description: "Windows and Samba shares"},
			{Label: "NFS", Value: "nfs", Description: "NFSv3 exports"},
		})
		if err != nil {
			return err
		}
	}
	p, err := drive.ParseProtocol(dc.Protocol)
	if err != nil {
		return err
	}
	if dc.Host == "" {
		if dc.Host, err = prompt.InputRequired("Host"); err != nil {
			return err
		}
	}
	if dc.Port == 0 {
		if dc.Port, err = prompt.InputPort(fmt.Sprintf("Port (0 for %d)", p.DefaultPort()), 0); err != nil {
			return err
		}
	}

	if p != drive.ProtocolNFS {
		if dc.Username == "" {
			if dc.Username, err = prompt.Input("Username", ""); err != nil {
				return err
			}
		}
		if dc.Password == "" && dc.Username != "" {
			if dc.Password, err = prompt.Password("Password"); err != nil {
				return err
			}
		}
	}

	if dc.SubPath != "" {
		return nil
	}
	switch p {
	case drive.ProtocolSMB:
		dc.SubPath, err = pickShare(ctx, cfg, *dc)
	case drive.ProtocolNFS:
		dc.SubPath, err = pickExport(ctx, cfg, *dc)
	default:
		dc.SubPath, err = prompt.Input("Base path", "")
	}
	return err
}

func pickShare(ctx context.Context, cfg *config.Config, dc config.DriveConfig) (string, error) {
	d, err := config.NewSMBDrive(cfg, dc)
	if err != nil {
		return "", err
	}
	defer func() { _ = d.Close() }()

	shares, err := d.ListShares(ctx)
	if err != nil || len(smb.VisibleShares(shares)) == 0 {
		logger.Debug("Share discovery failed, asking for a name", logger.Err(err))
		return prompt.InputRequired("Share")
	}
	return prompt.SelectString("Share", smb.VisibleShares(shares))
}

func pickExport(ctx context.Context, cfg *config.Config, dc config.DriveConfig) (string, error) {
	d, err := config.NewNFSDrive(cfg, dc)
	if err != nil {
		return "", err
	}
	defer func() { _ = d.Close() }()

	exports, err := d.ListExports(ctx)
	if err != nil || len(exports) == 0 {
		logger.Debug("Export discovery failed, asking for a path", logger.Err(err))
		return prompt.InputRequired("Export")
	}
	return prompt.SelectString("Export", exports)
}
