package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittodrive/pkg/config"
	"github.com/marmos91/dittodrive/pkg/drive"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the dittodrive configuration file.

Checks for syntax errors, missing required fields, invalid values and
drives whose settings cannot build a connection.

Examples:
  dittodrive config validate
  dittodrive config validate --config /etc/dittodrive/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

// driveWarnings returns a message for each drive that cannot be built.
func driveWarnings(cfg *config.Config) []string {
	var warnings []string
	for _, dc := range cfg.Drives {
		d, err := config.NewDrive(cfg, dc)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("drive %q: %v", dc.Name, err))
			continue
		}
		_ = drive.Close(d)
		if dc.Username != "" && dc.Password == "" && dc.Protocol != "nfs" {
			warnings = append(warnings, fmt.Sprintf("drive %q has a username but no password", dc.Name))
		}
	}
	if len(cfg.Drives) == 0 {
		warnings = append(warnings, "no drives configured")
	}
	return warnings
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if warnings := driveWarnings(cfg); len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Drives:          %d\n", len(cfg.Drives))
	_, _ = fmt.Fprintf(out, "  Server listen:   %s\n", cfg.Server.Listen)
	_, _ = fmt.Fprintf(out, "  Fetch max size:  %s\n", cfg.Fetch.MaxSize)
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)

	return nil
}
