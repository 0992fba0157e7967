// Package config loads and validates the optional .xfman YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file.
const FileName = ".xfman"

// Default values for the XFOIL manager.
const (
	DefaultBinary    = "xfoil"
	DefaultTimeout   = 15 * time.Second
	DefaultMaxOutput = 1 << 20 // 1 MB
	DefaultRunsDir   = ".xfman-runs"
)

// Config holds the parsed .xfman configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version       int         `yaml:"version"`
	RawBinary     string      `yaml:"xfoil"`       // executable name or path
	RawResultsDir string      `yaml:"results_dir"` // relative to the config root
	RawTimeout    string      `yaml:"timeout"`     // e.g. "15s", "2m"
	RawMaxOutput  int         `yaml:"max_output"`  // bytes per stream
	Polar         PolarConfig `yaml:"polar"`
}

// PolarConfig holds defaults for polar sweeps.
type PolarConfig struct {
	Iter  int     `yaml:"iter"`  // viscous iteration limit (default: 100)
	Ncrit float64 `yaml:"ncrit"` // transition amplification factor; 0 keeps XFOIL's default
}

// Binary returns the configured XFOIL executable or the default.
func (c *Config) Binary() string {
	if c.RawBinary != "" {
		return c.RawBinary
	}
	return DefaultBinary
}

// Timeout returns the configured timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// ResultsDir resolves the results directory against root. Without a
// configured value XFOIL runs in root itself.
func (c *Config) ResultsDir(root string) string {
	switch {
	case c.RawResultsDir == "":
		return root
	case filepath.IsAbs(c.RawResultsDir):
		return filepath.Clean(c.RawResultsDir)
	default:
		return filepath.Join(root, c.RawResultsDir)
	}
}

// PolarIter returns the configured viscous iteration limit, falling back to 100.
func (c *Config) PolarIter() int {
	if c.Polar.Iter > 0 {
		return c.Polar.Iter
	}
	return 100
}

// Validate reports settings that are present but unusable.
func (c *Config) Validate() error {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", c.RawTimeout)
		}
	}
	if c.RawMaxOutput < 0 {
		return fmt.Errorf("max_output must not be negative, got %d", c.RawMaxOutput)
	}
	if c.Polar.Ncrit < 0 {
		return fmt.Errorf("polar.ncrit must not be negative, got %g", c.Polar.Ncrit)
	}
	return nil
}

// LoadResult holds the parsed config and the directory it was found in.
type LoadResult struct {
	Config *Config
	Root   string // directory containing .xfman; falls back to workspace
}

// Load reads the .xfman file found by walking upward from workspace. If
// there is none, a default Config rooted at workspace is returned.
func Load(workspace string) (*LoadResult, error) {
	workspace, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace: %w", err)
	}

	root, err := findRoot(workspace)
	if err != nil {
		return &LoadResult{Config: &Config{}, Root: workspace}, nil
	}

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Root: root}, nil
}

// findRoot walks upward from dir looking for a directory containing .xfman.
func findRoot(dir string) (string, error) {
	for {
		if info, err := os.Stat(filepath.Join(dir, FileName)); err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
