package config

import (
	"strings"
	"time"

	"github.com/marmos91/dittodrive/internal/bytesize"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/drive/webdav"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Drive protocol aliases ("dav", "cifs", "nfs3") are normalized
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyListingDefaults(&cfg.Listing)
	applyWebDAVDefaults(&cfg.WebDAV)
	applyFetchDefaults(&cfg.Fetch)
	applyServerDefaults(&cfg.Server)
	for i := range cfg.Drives {
		applyDriveDefaults(&cfg.Drives[i])
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "WARN"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	// stdout carries command output
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Listen == "" {
		cfg.Listen = ":9090"
	}
}

func applyListingDefaults(cfg *ListingConfig) {
	if cfg.DirectoriesFirst == nil {
		on := true
		cfg.DirectoriesFirst = &on
	}
}

func applyWebDAVDefaults(cfg *WebDAVConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = webdav.DefaultTimeout
	}
}

func applyFetchDefaults(cfg *FetchConfig) {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 256 * bytesize.MiB
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Listen == "" {
		cfg.Listen = ":8089"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyDriveDefaults(cfg *DriveConfig) {
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Host = strings.TrimSpace(cfg.Host)
	// Unknown names are left untouched for Validate to report.
	if p, err := drive.ParseProtocol(cfg.Protocol); err == nil {
		cfg.Protocol = p.String()
	}
}

// GetDefaultConfig returns a Config struct with all default values applied
// and no drives.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
