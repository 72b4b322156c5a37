package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/pkg/drive"
)

var rmForce bool

var rmCmd = &cobra.Command{
	Use:   "rm <drive> <path>",
	Short: "Delete a file or directory",
	Long: `Delete a file or a directory with everything below it.

Examples:
  # Delete a file (asks for confirmation)
  dittodrive rm nas media/old.mkv

  # Delete a directory without asking
  dittodrive rm office archive/2019 --force`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeDriveNames,
	RunE:              runRm,
}

func init() {
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "Skip confirmation prompt")
}

func runRm(cmd *cobra.Command, args []string) error {
	target := drive.CleanPath(args[1])
	if target == "" {
		return fmt.Errorf("refusing to delete the drive root")
	}

	d, _, err := cmdutil.OpenDrive(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = drive.Close(d) }()

	entry, err := cmdutil.ResolveEntry(cmd.Context(), d, target)
	if err != nil {
		return err
	}

	kind := "file"
	if entry.IsDirectory {
		kind = "directory"
	}
	return cmdutil.RunDeleteWithConfirmation(cmd.OutOrStdout(), kind, entry.Path, rmForce, func() error {
		ok, err := d.DeleteFile(cmd.Context(), entry)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("the server refused to delete %s", entry.Path)
		}
		return nil
	})
}
