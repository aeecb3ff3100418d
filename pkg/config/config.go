// Package config layers lstypec settings: defaults, then a YAML or TOML
// file, then explicitly set command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ardnew/typecinfo/pkg"
)

// ErrInvalid indicates a configuration value outside its allowed set.
var ErrInvalid = errors.New("invalid configuration")

// Output formats.
const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Backend names accepted in the backend setting. Empty selects the first
// available of sysfs and ucsi_debugfs.
var Backends = []string{"sysfs", "ucsi_debugfs", "snapshot"}

// Config holds all lstypec settings.
type Config struct {
	Backend     string `yaml:"backend" toml:"backend"`
	SysfsRoot   string `yaml:"sysfs_root" toml:"sysfs_root"`
	DebugfsRoot string `yaml:"debugfs_root" toml:"debugfs_root"`
	Snapshot    string `yaml:"snapshot" toml:"snapshot"`
	Capture     string `yaml:"capture" toml:"capture"`
	Watch       bool   `yaml:"watch" toml:"watch"`

	Format    string `yaml:"format" toml:"format"`
	LogLevel  string `yaml:"log_level" toml:"log_level"`
	LogFormat string `yaml:"log_format" toml:"log_format"`
	USBIDs    string `yaml:"usbids" toml:"usbids"`

	Metrics struct {
		File string `yaml:"file" toml:"file"`
	} `yaml:"metrics" toml:"metrics"`

	Profile struct {
		CPU  string `yaml:"cpu" toml:"cpu"`
		Heap string `yaml:"heap" toml:"heap"`
	} `yaml:"profile" toml:"profile"`
}

// New returns a configuration with defaults.
func New() *Config {
	return &Config{
		SysfsRoot:   "/sys/class/typec",
		DebugfsRoot: "/sys/kernel/debug/usb/ucsi",
		Format:      FormatText,
		LogLevel:    "warn",
		LogFormat:   "console",
	}
}

// LoadFile parses a configuration file. Files ending in .toml are TOML,
// anything else is YAML. A missing file is not an error.
func (c *Config) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			pkg.LogDebug(pkg.ComponentCLI, "config file not found", "path", path)
			return nil
		}
		return fmt.Errorf("config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

// ParseFlags updates configuration from command-line flags and returns
// the config file path. Only flags present in args override c.
func (c *Config) ParseFlags(args []string, output io.Writer) (string, error) {
	fs := flag.NewFlagSet("lstypec", flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}

	var configPath string
	fs.StringVar(&configPath, "config", "lstypec.yaml", "Path to configuration file (.yaml or .toml)")

	backend := fs.String("backend", "", "Data source: sysfs, ucsi_debugfs or snapshot (default: first available)")
	sysfsRoot := fs.String("sysfs-root", "", "Root of the typec class directory")
	debugfsRoot := fs.String("debugfs-root", "", "Root of the UCSI debugfs directory")
	snapshot := fs.String("snapshot", "", "Snapshot file to replay (implies -backend snapshot)")
	capture := fs.String("capture", "", "Write the raw records read from the backend to this snapshot file")
	watch := fs.Bool("watch", false, "Re-enumerate on Type-C uevents, or on snapshot file changes")
	format := fs.String("format", "", "Output format: text, yaml or json")
	verbose := fs.Bool("v", false, "Enable debug logging")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn or error")
	logFormat := fs.String("log-format", "", "Log format: console or json")
	usbids := fs.String("usbids", "", "Path to the usb.ids database")
	metricsFile := fs.String("metrics-file", "", "Write Prometheus metrics to this textfile")
	cpuProfile := fs.String("cpuprofile", "", "Write a CPU profile to this file")
	memProfile := fs.String("memprofile", "", "Write a heap profile to this file")

	if err := fs.Parse(args); err != nil {
		return "", err
	}

	isSet := func(name string) bool {
		found := false
		fs.Visit(func(f *flag.Flag) {
			if f.Name == name {
				found = true
			}
		})
		return found
	}

	if isSet("backend") {
		c.Backend = *backend
	}
	if isSet("sysfs-root") {
		c.SysfsRoot = *sysfsRoot
	}
	if isSet("debugfs-root") {
		c.DebugfsRoot = *debugfsRoot
	}
	if isSet("snapshot") {
		c.Snapshot = *snapshot
	}
	if isSet("capture") {
		c.Capture = *capture
	}
	if isSet("watch") {
		c.Watch = *watch
	}
	if isSet("format") {
		c.Format = *format
	}
	if isSet("log-level") {
		c.LogLevel = *logLevel
	}
	if isSet("v") && *verbose {
		c.LogLevel = "debug"
	}
	if isSet("log-format") {
		c.LogFormat = *logFormat
	}
	if isSet("usbids") {
		c.USBIDs = *usbids
	}
	if isSet("metrics-file") {
		c.Metrics.File = *metricsFile
	}
	if isSet("cpuprofile") {
		c.Profile.CPU = *cpuProfile
	}
	if isSet("memprofile") {
		c.Profile.Heap = *memProfile
	}

	return configPath, nil
}

// Finalize expands paths, fills derived values and validates c.
func (c *Config) Finalize() error {
	if c.Snapshot != "" && c.Backend == "" {
		c.Backend = "snapshot"
	}

	expand := func(p string) string {
		if len(p) > 0 && p[0] == '~' {
			if home, err := os.UserHomeDir(); err == nil {
				return filepath.Join(home, p[1:])
			}
		}
		return p
	}

	c.SysfsRoot = expand(c.SysfsRoot)
	c.DebugfsRoot = expand(c.DebugfsRoot)
	c.Snapshot = expand(c.Snapshot)
	c.Capture = expand(c.Capture)
	c.USBIDs = expand(c.USBIDs)
	c.Metrics.File = expand(c.Metrics.File)
	c.Profile.CPU = expand(c.Profile.CPU)
	c.Profile.Heap = expand(c.Profile.Heap)

	var errs []error
	if c.Backend != "" && !contains(Backends, c.Backend) {
		errs = append(errs, fmt.Errorf("%w: backend %q", ErrInvalid, c.Backend))
	}
	if c.Backend == "snapshot" && c.Snapshot == "" {
		errs = append(errs, fmt.Errorf("%w: snapshot backend needs a snapshot file", ErrInvalid))
	}
	if !contains([]string{FormatText, FormatYAML, FormatJSON}, c.Format) {
		errs = append(errs, fmt.Errorf("%w: format %q", ErrInvalid, c.Format))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel))
	}
	if _, ok := pkg.ParseLogFormat(c.LogFormat); !ok {
		errs = append(errs, fmt.Errorf("%w: log format %q", ErrInvalid, c.LogFormat))
	}
	return errors.Join(errs...)
}

// Level returns the configured log level.
func (c *Config) Level() (zapcore.Level, error) {
	return pkg.ParseLogLevel(c.LogLevel)
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
