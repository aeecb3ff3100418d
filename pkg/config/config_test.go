package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	c := New()
	if c.SysfsRoot != "/sys/class/typec" {
		t.Errorf("SysfsRoot = %q", c.SysfsRoot)
	}
	if c.Format != FormatText {
		t.Errorf("Format = %q, want %q", c.Format, FormatText)
	}
	if err := c.Finalize(); err != nil {
		t.Errorf("Finalize() on defaults error = %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "lstypec.yaml")
	tomlPath := filepath.Join(dir, "lstypec.toml")

	yamlData := `backend: ucsi_debugfs
debugfs_root: /tmp/ucsi
format: json
metrics:
  file: /tmp/typec.prom
`
	tomlData := `backend = "snapshot"
snapshot = "/tmp/snap.yaml"
log_level = "debug"

[profile]
cpu = "/tmp/cpu.prof"
`
	if err := os.WriteFile(yamlPath, []byte(yamlData), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tomlPath, []byte(tomlData), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New()
	if err := c.LoadFile(yamlPath); err != nil {
		t.Fatalf("LoadFile(yaml) error = %v", err)
	}
	if c.Backend != "ucsi_debugfs" || c.DebugfsRoot != "/tmp/ucsi" || c.Format != FormatJSON {
		t.Errorf("LoadFile(yaml) = %+v", c)
	}
	if c.Metrics.File != "/tmp/typec.prom" {
		t.Errorf("Metrics.File = %q", c.Metrics.File)
	}
	if c.SysfsRoot != "/sys/class/typec" {
		t.Errorf("LoadFile(yaml) cleared default SysfsRoot: %q", c.SysfsRoot)
	}

	c = New()
	if err := c.LoadFile(tomlPath); err != nil {
		t.Fatalf("LoadFile(toml) error = %v", err)
	}
	if c.Backend != "snapshot" || c.Snapshot != "/tmp/snap.yaml" || c.LogLevel != "debug" {
		t.Errorf("LoadFile(toml) = %+v", c)
	}
	if c.Profile.CPU != "/tmp/cpu.prof" {
		t.Errorf("Profile.CPU = %q", c.Profile.CPU)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	c := New()
	if err := c.LoadFile(filepath.Join(t.TempDir(), "none.yaml")); err != nil {
		t.Errorf("LoadFile(missing) error = %v", err)
	}
	if err := c.LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") error = %v", err)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("backend = [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := New().LoadFile(path); err == nil {
		t.Error("LoadFile(malformed) error = nil")
	}
}

func TestParseFlags_OnlySetOverride(t *testing.T) {
	c := New()
	c.Backend = "ucsi_debugfs"
	c.Format = FormatYAML

	path, err := c.ParseFlags([]string{"-config", "x.toml", "-format", "json", "-v"}, io.Discard)
	if err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if path != "x.toml" {
		t.Errorf("ParseFlags() path = %q, want x.toml", path)
	}
	if c.Backend != "ucsi_debugfs" {
		t.Errorf("Backend = %q, unset flag overrode file value", c.Backend)
	}
	if c.Format != FormatJSON {
		t.Errorf("Format = %q, want json", c.Format)
	}
	if lvl, _ := c.Level(); lvl != zapcore.DebugLevel {
		t.Errorf("Level() = %v, want debug", lvl)
	}
}

func TestParseFlags_Watch(t *testing.T) {
	c := New()
	if _, err := c.ParseFlags([]string{"-watch", "-snapshot", "ports.yaml"}, io.Discard); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if !c.Watch || c.Snapshot != "ports.yaml" {
		t.Errorf("Watch, Snapshot = %v, %q; want true, ports.yaml", c.Watch, c.Snapshot)
	}
}

func TestParseFlags_Unknown(t *testing.T) {
	if _, err := New().ParseFlags([]string{"-nope"}, io.Discard); err == nil {
		t.Error("ParseFlags(-nope) error = nil")
	}
}

func TestFinalize(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		check   func(t *testing.T, c *Config)
	}{
		{"defaults", func(*Config) {}, false, nil},
		{"snapshot implies backend", func(c *Config) { c.Snapshot = "s.yaml" }, false,
			func(t *testing.T, c *Config) {
				if c.Backend != "snapshot" {
					t.Errorf("Backend = %q, want snapshot", c.Backend)
				}
			}},
		{"unknown backend", func(c *Config) { c.Backend = "usbfs" }, true, nil},
		{"snapshot without file", func(c *Config) { c.Backend = "snapshot" }, true, nil},
		{"bad format", func(c *Config) { c.Format = "xml" }, true, nil},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, true, nil},
		{"bad log format", func(c *Config) { c.LogFormat = "logfmt" }, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			tt.mutate(c)
			err := c.Finalize()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Finalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("Finalize() error = %v, want %v", err, ErrInvalid)
			}
			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

func TestFinalize_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	c := New()
	c.Capture = "~/snap.yaml"
	if err := c.Finalize(); err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "snap.yaml"); c.Capture != want {
		t.Errorf("Capture = %q, want %q", c.Capture, want)
	}
}
