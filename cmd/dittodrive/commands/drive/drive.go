// Package drive implements drive configuration commands.
package drive

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for drive management.
var Cmd = &cobra.Command{
	Use:   "drive",
	Short: "Drive management",
	Long: `Manage the drives stored in the configuration file.

A drive is a named connection to a WebDAV server, an SMB share or an NFS
export. Browsing commands (ls, get, rm, url) take a drive name.

Examples:
  # Add a drive interactively
  dittodrive drive add

  # Add a WebDAV drive with flags
  dittodrive drive add --name nas --protocol webdav --host https://nas.local:5006 -u alice -p secret

  # List drives
  dittodrive drive list

  # Remove a drive
  dittodrive drive remove nas`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(removeCmd)
}
