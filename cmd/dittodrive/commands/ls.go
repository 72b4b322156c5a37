package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/internal/cli/timeutil"
	"github.com/marmos91/dittodrive/pkg/drive"
)

var (
	lsShowHidden  bool
	lsNoDirsFirst bool
)

var lsCmd = &cobra.Command{
	Use:   "ls <drive> [path]",
	Short: "List a directory",
	Long: `List the entries of a directory on a drive.

Directories are listed first and dot files are hidden unless the listing
section of the configuration says otherwise.

Examples:
  # List the root of a drive
  dittodrive ls nas

  # List a subdirectory including hidden entries
  dittodrive ls nas media/photos --all

  # Machine-readable listing
  dittodrive ls office reports -o json`,
	Args:              cobra.RangeArgs(1, 2),
	ValidArgsFunction: completeDriveNames,
	RunE:              runLs,
}

func init() {
	lsCmd.Flags().BoolVarP(&lsShowHidden, "all", "a", false, "Show hidden entries")
	lsCmd.Flags().BoolVar(&lsNoDirsFirst, "no-dirs-first", false, "Keep the server order instead of listing directories first")
}

// EntryList is a directory listing for table rendering.
type EntryList struct {
	entries []drive.FileEntry
	now     time.Time
}

// Headers implements TableRenderer.
func (el EntryList) Headers() []string {
	return []string{"TYPE", "NAME", "SIZE", "MODIFIED"}
}

// Rows implements TableRenderer.
func (el EntryList) Rows() [][]string {
	rows := make([][]string, 0, len(el.entries))
	for _, e := range el.entries {
		kind, name := "file", e.Name()
		if e.IsDirectory {
			kind, name = "dir", name+"/"
		}
		rows = append(rows, []string{kind, name, cmdutil.FormatSize(e), timeutil.FormatModTime(e.LastModified, el.now)})
	}
	return rows
}

func runLs(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	d, _, err := cmdutil.OpenDrive(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = drive.Close(d) }()

	dir := ""
	if len(args) > 1 {
		dir = args[1]
	}

	policy := cfg.Listing.Policy()
	if lsShowHidden {
		policy.HideHidden = false
	}
	if lsNoDirsFirst {
		policy.DirectoriesFirst = false
	}

	entries, err := drive.List(cmd.Context(), d, dir, policy)
	if err != nil {
		return err
	}

	table := EntryList{entries: entries, now: time.Now()}
	return cmdutil.PrintOutput(cmd.OutOrStdout(), entries, len(entries) == 0, "Directory is empty.", table)
}
