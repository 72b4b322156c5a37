package config

import (
	"fmt"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/metrics"
	"github.com/marmos91/dittodrive/pkg/registry"
)

// InitializeRegistry builds a Registry holding every configured drive.
//
// Each backend is created with CreateDrive and wrapped with
// drive.Instrument so its operations are logged, traced and counted
// through m (which may be nil). No connection is opened here: backends
// connect on first use.
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	reg, err := config.InitializeRegistry(cfg, metrics.NewDriveMetrics())
//	if err != nil {
//	    log.Fatalf("Failed to initialize registry: %v", err)
//	}
//	defer reg.Close()
func InitializeRegistry(cfg *Config, m metrics.DriveMetrics) (*registry.Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}

	logger.Debug("Initializing registry from configuration", logger.Entries(len(cfg.Drives)))

	reg := registry.NewRegistry()
	for _, dc := range cfg.Drives {
		d, err := NewDrive(cfg, dc)
		if err != nil {
			_ = reg.Close()
			return nil, fmt.Errorf("failed to create drive %q: %w", dc.Name, err)
		}

		if err := reg.Register(dc.Name, dc.Detail(), drive.Instrument(d, dc.Name, m)); err != nil {
			_ = drive.Close(d)
			_ = reg.Close()
			return nil, fmt.Errorf("failed to register drive %q: %w", dc.Name, err)
		}
	}

	logger.Info("Registered drives", logger.Entries(reg.Count()))
	return reg, nil
}
