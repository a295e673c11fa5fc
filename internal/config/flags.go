package config

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	apperrors "github.com/astropenguin/ndradex/internal/errors"
)

// ParseConfig builds the run configuration from command-line arguments.
// Resolution order: defaults, then the YAML file named by --config, then
// environment variables, then explicit flags.
//
// Parameters:
//   - programName: The executable name used in usage output.
//   - args: The command-line arguments (without the program name).
//   - errWriter: The writer for usage and error output.
//
// Returns:
//   - Config: The resolved configuration.
//   - error: flag.ErrHelp when help was requested, or a ConfigError.
func ParseConfig(programName string, args []string, errWriter io.Writer) (Config, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errWriter)

	var (
		configFile  = fs.String("config", "", "YAML configuration file")
		species     = fs.String("species", "", "molecular species (name, alias, datafile path, or URL)")
		transitions = fs.String("transitions", "", "comma-separated transition labels (e.g., 1-0,2-1)")

		tkin = fs.String("T-kin", "", "kinetic temperatures in K (comma-separated)")
		nmol = fs.String("N-mol", "", "column densities in cm^-2 (comma-separated)")
		tbg  = fs.String("T-bg", "", "background temperatures in K (comma-separated)")
		dv   = fs.String("dv", "", "FWHM line widths in km/s (comma-separated)")
		geom = fs.String("geom", "", "escape-probability geometries (comma-separated: uni,lvg,slab)")

		workers     = fs.Int("workers", 0, "worker pool size (0 selects an adaptive estimate)")
		timeout     = fs.Duration("timeout", 0, "per-job solver timeout (e.g., 30s)")
		binDir      = fs.String("bin-dir", "", "directory holding the solver binaries")
		cacheDir    = fs.String("cache-dir", "", "datafile cache directory")
		output      = fs.String("output", "", "write the assembled dataset to this JSON file")
		metricsAddr = fs.String("metrics-addr", "", "serve Prometheus metrics on this address")

		quiet   = fs.Bool("quiet", false, "suppress progress and summary output")
		tui     = fs.Bool("tui", false, "render an interactive dashboard while the grid runs")
		verbose = fs.Bool("verbose", false, "enable debug logging")
	)

	// One flag per collision partner, in declared dimension order.
	partnerFlags := make(map[string]*string, len(partnerFlagNames))
	for _, pf := range partnerFlagNames {
		partnerFlags[pf.flag] = fs.String(pf.flag, "", "density of "+pf.code+" in cm^-3 (comma-separated)")
	}

	fs.Usage = func() {
		fmt.Fprintf(errWriter, "Usage: %s --species <name> --transitions <labels> [options]\n\n", programName)
		fmt.Fprintf(errWriter, "Runs a grid of non-LTE radiative transfer calculations.\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, apperrors.NewConfigError("unexpected arguments: %v", fs.Args())
	}

	cfg := Default()
	if *configFile != "" {
		loaded, err := LoadFile(*configFile)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}

	ApplyEnvOverrides(&cfg, fs)

	// Explicit flags take the highest priority.
	if isFlagSet(fs, "species") {
		cfg.Species = *species
	}
	if isFlagSet(fs, "transitions") {
		cfg.Transitions = splitList(*transitions)
	}
	if isFlagSet(fs, "geom") {
		cfg.Geometries = splitList(*geom)
	}
	if isFlagSet(fs, "workers") {
		cfg.Workers = *workers
	}
	if isFlagSet(fs, "timeout") {
		cfg.Timeout = *timeout
	}
	if isFlagSet(fs, "bin-dir") {
		cfg.BinDir = *binDir
	}
	if isFlagSet(fs, "cache-dir") {
		cfg.CacheDir = *cacheDir
	}
	if isFlagSet(fs, "output") {
		cfg.OutputFile = *output
	}
	if isFlagSet(fs, "metrics-addr") {
		cfg.MetricsAddr = *metricsAddr
	}
	if isFlagSet(fs, "quiet") {
		cfg.Quiet = *quiet
	}
	if isFlagSet(fs, "tui") {
		cfg.TUI = *tui
	}
	if isFlagSet(fs, "verbose") {
		cfg.Verbose = *verbose
	}

	numeric := []struct {
		name   string
		raw    *string
		target *[]float64
	}{
		{"T-kin", tkin, &cfg.TKin},
		{"N-mol", nmol, &cfg.NMol},
		{"T-bg", tbg, &cfg.TBg},
		{"dv", dv, &cfg.DV},
	}
	for _, p := range numeric {
		if !isFlagSet(fs, p.name) {
			continue
		}
		values, err := parseFloats(p.name, *p.raw)
		if err != nil {
			return Config{}, err
		}
		*p.target = values
	}

	for _, pf := range partnerFlagNames {
		if !isFlagSet(fs, pf.flag) {
			continue
		}
		values, err := parseFloats(pf.flag, *partnerFlags[pf.flag])
		if err != nil {
			return Config{}, err
		}
		if cfg.Densities == nil {
			cfg.Densities = make(map[string][]float64)
		}
		cfg.Densities[pf.code] = values
	}

	cfg = ApplyAdaptiveWorkers(cfg)
	return cfg, nil
}

// partnerFlagNames maps density flag names to solver partner codes, in
// declared dimension order.
var partnerFlagNames = []struct {
	flag string
	code string
}{
	{"n-H2", "H2"},
	{"n-pH2", "p-H2"},
	{"n-oH2", "o-H2"},
	{"n-e", "e"},
	{"n-H", "H"},
	{"n-He", "He"},
	{"n-Hp", "H+"},
}

// splitList splits a comma-separated flag value, trimming whitespace and
// dropping empty items.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseFloats parses a comma-separated list of numbers, accepting
// scientific notation (e.g., "1e15,3e15").
func parseFloats(name, raw string) ([]float64, error) {
	items := splitList(raw)
	values := make([]float64, 0, len(items))
	for _, item := range items {
		v, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return nil, apperrors.NewConfigError("flag --%s: %q is not a number", name, item)
		}
		values = append(values, v)
	}
	return values, nil
}
