package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidListen(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Listen = "localhost"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for listen address without port")
	}
	if !strings.Contains(err.Error(), "hostname_port") {
		t.Errorf("Expected 'hostname_port' validation error, got: %v", err)
	}
}

func TestValidate_TelemetrySampleRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.SampleRate = 1.5

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for sample rate out of range")
	}
}

func TestValidate_Drives(t *testing.T) {
	valid := DriveConfig{Name: "nas", Protocol: "webdav", Host: "nas.local"}

	tests := []struct {
		name    string
		mutate  func(d *DriveConfig)
		wantTag string
	}{
		{"PortOutOfRange", func(d *DriveConfig) { d.Port = 70000 }, "max"},
		{"NegativePort", func(d *DriveConfig) { d.Port = -1 }, "min"},
		{"UnknownProtocol", func(d *DriveConfig) { d.Protocol = "ftp" }, "oneof"},
		{"MissingHost", func(d *DriveConfig) { d.Host = "" }, "required"},
		{"MissingName", func(d *DriveConfig) { d.Name = "" }, "required"},
		{"NameWithSlash", func(d *DriveConfig) { d.Name = "a/b" }, "drivename"},
		{"NameWithSpace", func(d *DriveConfig) { d.Name = "my nas" }, "drivename"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			d := valid
			tt.mutate(&d)
			cfg.Drives = []DriveConfig{d}

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantTag) {
				t.Errorf("Expected %q validation error, got: %v", tt.wantTag, err)
			}
		})
	}
}

func TestValidate_DuplicateDriveNames(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Drives = []DriveConfig{
		{Name: "nas", Protocol: "webdav", Host: "a"},
		{Name: "nas", Protocol: "smb", Host: "b"},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for duplicate drive names")
	}
	if !strings.Contains(err.Error(), "unique") {
		t.Errorf("Expected 'unique' validation error, got: %v", err)
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	for _, level := range []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"} {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level

		if err := Validate(cfg); err != nil {
			t.Errorf("Validation failed for level %q: %v", level, err)
		}
		if cfg.Logging.Level != level {
			t.Errorf("Expected level to remain %q after validation, got %q", level, cfg.Logging.Level)
		}
	}
}

func TestValidate_Nil(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatal("Expected error for nil config")
	}
}
