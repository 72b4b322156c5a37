package drive

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/pkg/config"
)

var removeForce bool

var removeCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a drive",
	Long: `Remove a drive from the configuration file. Nothing is deleted on the
server.

Examples:
  dittodrive drive remove nas
  dittodrive drive remove nas --force`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "Skip confirmation prompt")
}

func runRemove(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	name := args[0]
	if _, ok := cfg.FindDrive(name); !ok {
		return fmt.Errorf("drive %q not found", name)
	}

	return cmdutil.RunDeleteWithConfirmation(cmd.OutOrStdout(), "Drive", name, removeForce, func() error {
		if err := cfg.RemoveDrive(name); err != nil {
			return err
		}
		return config.SaveConfig(cfg, cmdutil.ConfigPath())
	})
}
