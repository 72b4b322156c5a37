package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/internal/bytesize"
	"github.com/marmos91/dittodrive/pkg/drive"
)

var getForce bool

var getCmd = &cobra.Command{
	Use:   "get <drive> <path> [destination]",
	Short: "Download a file",
	Long: `Download a file from a drive.

The destination defaults to the file name in the current directory. Use "-"
to write the content to stdout. Files larger than fetch.max_size are
refused.

Examples:
  # Download into the current directory
  dittodrive get nas media/poster.jpg

  # Download to a specific path, replacing it if present
  dittodrive get office reports/q3.pdf /tmp/q3.pdf --force

  # Pipe a file
  dittodrive get lab logs/run.txt - | less`,
	Args:              cobra.RangeArgs(2, 3),
	ValidArgsFunction: completeDriveNames,
	RunE:              runGet,
}

func init() {
	getCmd.Flags().BoolVarP(&getForce, "force", "f", false, "Overwrite an existing destination file")
}

func runGet(cmd *cobra.Command, args []string) error {
	d, _, err := cmdutil.OpenDrive(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = drive.Close(d) }()

	entry, err := cmdutil.ResolveEntry(cmd.Context(), d, args[1])
	if err != nil {
		return err
	}
	if entry.IsDirectory {
		return fmt.Errorf("%s is a directory", entry.Path)
	}

	dest := entry.Name()
	if len(args) > 2 {
		dest = args[2]
	}

	if dest != "-" && !getForce {
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", dest)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	data, err := d.FetchBytes(cmd.Context(), entry)
	if err != nil {
		return err
	}

	if dest == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	cmdutil.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Downloaded %s (%s) to %s", entry.Path, bytesize.Format(int64(len(data))), dest))
	return nil
}
