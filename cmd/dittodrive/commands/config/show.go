package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittodrive/internal/cli/output"
	"github.com/marmos91/dittodrive/pkg/config"
)

var showRedact = true

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the configuration after defaults and environment overrides.

Drive passwords are redacted unless --redact=false is given.

Examples:
  dittodrive config show
  DITTODRIVE_LOGGING_LEVEL=DEBUG dittodrive config show`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showRedact, "redact", true, "Redact drive passwords")
}

// redacted returns a copy of cfg with drive passwords replaced.
func redacted(cfg *config.Config) *config.Config {
	out := *cfg
	out.Drives = make([]config.DriveConfig, len(cfg.Drives))
	copy(out.Drives, cfg.Drives)
	for i := range out.Drives {
		if out.Drives[i].Password != "" {
			out.Drives[i].Password = "REDACTED"
		}
	}
	return &out
}

func runShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if showRedact {
		cfg = redacted(cfg)
	}
	return output.PrintYAML(cmd.OutOrStdout(), cfg)
}
