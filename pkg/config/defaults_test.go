package config

import (
	"testing"
	"time"

	"github.com/marmos91/dittodrive/internal/bytesize"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected default log level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default log output 'stderr', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.Listen != ":8089" {
		t.Errorf("Expected default listen ':8089', got %q", cfg.Server.Listen)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Expected default read timeout 10s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
}

func TestApplyDefaults_Listing(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Listing.DirectoriesFirst == nil || !*cfg.Listing.DirectoriesFirst {
		t.Error("Expected directories_first to default to true")
	}
	p := cfg.Listing.Policy()
	if !p.DirectoriesFirst || !p.HideHidden {
		t.Errorf("Expected the default policy, got %+v", p)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	off := false
	cfg := &Config{
		Logging: LoggingConfig{Level: "debug", Format: "json", Output: "/tmp/x.log"},
		Listing: ListingConfig{DirectoriesFirst: &off},
		Fetch:   FetchConfig{MaxSize: bytesize.KiB},
		WebDAV:  WebDAVConfig{Timeout: time.Second},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" || cfg.Logging.Format != "json" || cfg.Logging.Output != "/tmp/x.log" {
		t.Errorf("Explicit logging values changed: %+v", cfg.Logging)
	}
	if *cfg.Listing.DirectoriesFirst {
		t.Error("Explicit directories_first=false was overwritten")
	}
	if cfg.Fetch.MaxSize != bytesize.KiB {
		t.Errorf("Expected max size 1Ki, got %v", cfg.Fetch.MaxSize)
	}
	if cfg.WebDAV.Timeout != time.Second {
		t.Errorf("Expected timeout 1s, got %v", cfg.WebDAV.Timeout)
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	if cfg.Metrics.Listen != ":9090" {
		t.Errorf("Expected default metrics listen ':9090', got %q", cfg.Metrics.Listen)
	}

	cfg = &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.Listen != "" {
		t.Errorf("Expected no metrics listen when disabled, got %q", cfg.Metrics.Listen)
	}
}

func TestApplyDefaults_DriveProtocolAliases(t *testing.T) {
	cfg := &Config{Drives: []DriveConfig{
		{Name: " a ", Protocol: "DAV"},
		{Name: "b", Protocol: "smb2"},
		{Name: "c", Protocol: "ftp"},
	}}
	ApplyDefaults(cfg)

	if cfg.Drives[0].Name != "a" || cfg.Drives[0].Protocol != "webdav" {
		t.Errorf("Unexpected first drive: %+v", cfg.Drives[0])
	}
	if cfg.Drives[1].Protocol != "smb" {
		t.Errorf("Expected 'smb', got %q", cfg.Drives[1].Protocol)
	}
	if cfg.Drives[2].Protocol != "ftp" {
		t.Errorf("Unknown protocol should be left for Validate, got %q", cfg.Drives[2].Protocol)
	}
}
