// Package config holds the run configuration: grid parameter defaults, the
// species alias table, solver locations, and execution knobs. Resolution
// priority is CLI flags > environment variables > YAML file > defaults.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/astropenguin/ndradex/internal/errors"
	"github.com/astropenguin/ndradex/internal/grid"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "NDRADEX_"

// Default grid parameter values, applied wherever the user leaves a
// parameter unset.
const (
	DefaultTKin    = 100.0 // K
	DefaultNMol    = 1e15  // cm^-2
	DefaultNH2     = 1e3   // cm^-3
	DefaultTBg     = 2.73  // K
	DefaultDV      = 1.0   // km/s
	DefaultTimeout = 30 * time.Second
	DefaultWorkers = 2
)

// Config is the full run configuration.
type Config struct {
	// Species is the molecular species identifier (name, alias, path, or URL).
	Species string `yaml:"species"`
	// Transitions names the requested transitions.
	Transitions []string `yaml:"transitions"`

	// Grid parameters. A single value keeps the dimension scalar.
	TKin       []float64            `yaml:"T_kin"`
	NMol       []float64            `yaml:"N_mol"`
	Densities  map[string][]float64 `yaml:"densities"`
	TBg        []float64            `yaml:"T_bg"`
	DV         []float64            `yaml:"dv"`
	Geometries []string             `yaml:"geom"`

	// Execution knobs. Timeout is decoded from strings like "30s".
	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"-"`

	// BinDir holds the solver binaries; empty means lookup via PATH.
	BinDir string `yaml:"bin_dir"`
	// CacheDir stores fetched datafiles; empty selects the user cache dir.
	CacheDir string `yaml:"cache_dir"`
	// Aliases maps species shorthands to datafile names, paths, or URLs.
	Aliases map[string]string `yaml:"aliases"`

	// OutputFile receives the assembled dataset as JSON; empty disables saving.
	OutputFile string `yaml:"output"`
	// MetricsAddr enables the metrics endpoint when non-empty (e.g., ":9090").
	MetricsAddr string `yaml:"metrics_addr"`

	Quiet   bool `yaml:"quiet"`
	TUI     bool `yaml:"tui"`
	Verbose bool `yaml:"verbose"`
}

// Default returns the configuration with every documented default applied.
func Default() Config {
	return Config{
		TKin:       []float64{DefaultTKin},
		NMol:       []float64{DefaultNMol},
		Densities:  map[string][]float64{"H2": {DefaultNH2}},
		TBg:        []float64{DefaultTBg},
		DV:         []float64{DefaultDV},
		Geometries: []string{string(grid.GeometryUniform)},
		Workers:    DefaultWorkers,
		Timeout:    DefaultTimeout,
		CacheDir:   defaultCacheDir(),
	}
}

// LoadFile reads a YAML configuration file over the defaults. Only keys
// present in the file replace their defaults.
//
// Parameters:
//   - path: The YAML file to read.
//
// Returns:
//   - Config: The merged configuration.
//   - error: A ConfigError if the file cannot be read or parsed.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, apperrors.NewConfigError("reading config file %s: %v", path, err)
	}

	// YAML has no native duration scalar; timeout is decoded from a string.
	file := struct {
		Config  `yaml:",inline"`
		Timeout string `yaml:"timeout"`
	}{Config: cfg}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, apperrors.NewConfigError("parsing config file %s: %v", path, err)
	}
	cfg = file.Config
	if file.Timeout != "" {
		timeout, err := time.ParseDuration(file.Timeout)
		if err != nil {
			return cfg, apperrors.NewConfigError("parsing timeout %q in %s: %v", file.Timeout, path, err)
		}
		cfg.Timeout = timeout
	}
	return cfg, nil
}

// GridRequest converts the configured grid parameters into a builder
// request.
//
// Returns:
//   - grid.Request: The parameter request.
//   - error: A ConfigError when a collision partner name is unknown.
func (c Config) GridRequest() (grid.Request, error) {
	req := grid.Request{
		Transitions: c.Transitions,
		TKin:        c.TKin,
		NMol:        c.NMol,
		TBg:         c.TBg,
		DV:          c.DV,
		Geometries:  c.Geometries,
	}
	for code, values := range c.Densities {
		slot, ok := partnerSlot(code)
		if !ok {
			return grid.Request{}, apperrors.NewConfigError(
				"unknown collision partner %q (supported: %v)", code, grid.PartnerCodes)
		}
		req.Densities[slot] = values
	}
	return req, nil
}

// partnerSlot maps a solver partner code to its density slot.
func partnerSlot(code string) (int, bool) {
	for slot, name := range grid.PartnerCodes {
		if name == code {
			return slot, true
		}
	}
	return 0, false
}

// defaultCacheDir selects the per-user datafile cache location, falling back
// to a temporary directory when the user cache dir is unavailable.
func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "ndradex")
	}
	return filepath.Join(base, "ndradex")
}
