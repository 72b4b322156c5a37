package drive

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/internal/cli/output"
	"github.com/marmos91/dittodrive/pkg/config"
)

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a drive's settings",
	Long: `Show the settings of one drive. The password is masked.

Examples:
  dittodrive drive show nas
  dittodrive drive show nas -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func settingsTable(d config.DriveConfig) [][2]string {
	port := "default"
	if d.Port != 0 {
		port = strconv.Itoa(d.Port)
	}
	pairs := [][2]string{
		{"Name", d.Name},
		{"Protocol", d.Protocol},
		{"Host", d.Host},
		{"Port", port},
		{"Username", cmdutil.EmptyOr(d.Username, "-")},
		{"Password", cmdutil.MaskSecret(d.Password)},
		{"Sub path", cmdutil.EmptyOr(d.SubPath, "-")},
	}
	switch d.Protocol {
	case "smb":
		pairs = append(pairs, [2]string{"Domain", cmdutil.EmptyOr(d.Domain, "-")})
	case "nfs":
		pairs = append(pairs,
			[2]string{"UID/GID", fmt.Sprintf("%d/%d", d.UID, d.GID)},
			[2]string{"Privileged", cmdutil.BoolToYesNo(d.Privileged)},
		)
	}
	return pairs
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	d, ok := cfg.FindDrive(args[0])
	if !ok {
		return fmt.Errorf("drive %q not found", args[0])
	}

	p, err := cmdutil.NewPrinter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if p.Format() != output.FormatTable {
		return p.Print(newDriveRow(*d))
	}
	return output.SimpleTable(cmd.OutOrStdout(), settingsTable(*d))
}
