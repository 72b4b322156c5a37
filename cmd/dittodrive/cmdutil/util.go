// Package cmdutil provides shared utilities for dittodrive commands.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/marmos91/dittodrive/internal/bytesize"
	"github.com/marmos91/dittodrive/internal/cli/output"
	"github.com/marmos91/dittodrive/internal/cli/prompt"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/config"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/metrics"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ConfigFile string
	Output     string
	NoColor    bool
	Verbose    bool
}

var (
	loadOnce  sync.Once
	loadedCfg *config.Config
	loadErr   error
)

// LoadConfig loads the configuration once per process and initializes the
// logger from it. A missing configuration file yields the defaults.
func LoadConfig() (*config.Config, error) {
	loadOnce.Do(func() {
		loadedCfg, loadErr = config.Load(Flags.ConfigFile)
		if loadErr != nil {
			return
		}
		loadErr = InitLogger(loadedCfg)
	})
	return loadedCfg, loadErr
}

// LoadedConfig returns the configuration if LoadConfig succeeded, nil otherwise.
func LoadedConfig() *config.Config {
	if loadErr != nil {
		return nil
	}
	return loadedCfg
}

// ConfigPath returns the file drive edits are saved to.
func ConfigPath() string {
	if Flags.ConfigFile != "" {
		return Flags.ConfigFile
	}
	return config.GetDefaultConfigPath()
}

// InitLogger initializes the structured logger from configuration. --verbose
// forces DEBUG.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if Flags.Verbose {
		loggerCfg.Level = "DEBUG"
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// DriveMetrics enables the metrics registry when configured and returns
// the drive collectors, or nil when metrics are disabled.
func DriveMetrics(cfg *config.Config) metrics.DriveMetrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	if !metrics.IsEnabled() {
		metrics.InitRegistry()
	}
	return metrics.NewDriveMetrics()
}

// OpenDrive builds the configured drive called name, instrumented with
// logging, tracing and metrics.
func OpenDrive(name string) (drive.Drive, *config.DriveConfig, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	dc, ok := cfg.FindDrive(name)
	if !ok {
		return nil, nil, fmt.Errorf("drive %q not found (see 'dittodrive drive list')", name)
	}
	d, err := config.NewDrive(cfg, *dc)
	if err != nil {
		return nil, nil, err
	}
	return drive.Instrument(d, dc.Name, DriveMetrics(cfg)), dc, nil
}

// FlushMetrics writes the metrics textfile when one is configured.
func FlushMetrics() error {
	cfg := LoadedConfig()
	if cfg == nil || cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// ResolveEntry finds the entry at p by listing its parent directory, so
// that callers get the server's view of the entry (type, size, URL).
func ResolveEntry(ctx context.Context, d drive.Drive, p string) (drive.FileEntry, error) {
	p = drive.CleanPath(p)
	if p == "" {
		return drive.FileEntry{Path: "", IsDirectory: true}, nil
	}
	entries, err := d.ListFiles(ctx, drive.ParentPath(p))
	if err != nil {
		return drive.FileEntry{}, err
	}
	for _, e := range entries {
		if drive.CleanPath(e.Path) == p {
			return e, nil
		}
	}
	return drive.FileEntry{}, fmt.Errorf("%s: no such file or directory", p)
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled returns whether color output is disabled.
func IsColorDisabled() bool {
	return Flags.NoColor
}

// NewPrinter returns a printer for w honoring --output and --no-color.
func NewPrinter(w io.Writer) (*output.Printer, error) {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(w, format, !IsColorDisabled()), nil
}

// PrintOutput prints data in the selected format. In table format it
// displays emptyMsg if data is empty, otherwise uses tableRenderer.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	p, err := NewPrinter(w)
	if err != nil {
		return err
	}
	return p.PrintList(data, isEmpty, emptyMsg, tableRenderer)
}

// PrintResource prints a resource with tableRenderer in table format and
// as data otherwise.
func PrintResource(w io.Writer, data any, tableRenderer output.TableRenderer) error {
	p, err := NewPrinter(w)
	if err != nil {
		return err
	}
	if p.Format() == output.FormatTable {
		return output.PrintTable(w, tableRenderer)
	}
	return p.Print(data)
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(w io.Writer, msg string) {
	p, err := NewPrinter(w)
	if err != nil || p.Format() != output.FormatTable {
		return
	}
	p.Success(msg)
}

// PrintResourceWithSuccess prints successMsg in table format and data otherwise.
func PrintResourceWithSuccess(w io.Writer, data any, successMsg string) error {
	p, err := NewPrinter(w)
	if err != nil {
		return err
	}
	if p.Format() == output.FormatTable {
		p.Success(successMsg)
		return nil
	}
	return p.Print(data)
}

// RunDeleteWithConfirmation prompts for confirmation (unless force is true) and runs deleteFn.
func RunDeleteWithConfirmation(w io.Writer, resourceType, name string, force bool, deleteFn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete %s '%s'?", resourceType, name), force)
	if err != nil {
		return HandleAbort(err)
	}
	if !confirmed {
		_, _ = fmt.Fprintln(w, "Aborted.")
		return nil
	}

	if err := deleteFn(); err != nil {
		return err
	}

	PrintSuccess(w, fmt.Sprintf("%s '%s' deleted successfully", resourceType, name))
	return nil
}

// HandleAbort returns nil for an aborted prompt (Ctrl+C), otherwise err.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		_, _ = fmt.Fprintln(os.Stdout, "\nAborted.")
		return nil
	}
	return err
}

// BoolToYesNo converts a boolean to "yes" or "no" string.
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// EmptyOr returns the value if not empty, otherwise returns the fallback.
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// FormatSize renders a file size for tables; directories show "-".
func FormatSize(e drive.FileEntry) string {
	if e.IsDirectory {
		return "-"
	}
	return bytesize.Format(e.SizeBytes)
}

// MaskSecret replaces a configured secret with a fixed-width mask.
func MaskSecret(s string) string {
	if s == "" {
		return "-"
	}
	return strings.Repeat("*", 8)
}
