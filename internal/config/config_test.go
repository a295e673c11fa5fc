package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/astropenguin/ndradex/internal/errors"
	"github.com/astropenguin/ndradex/internal/grid"
)

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := Default()

	if len(cfg.TKin) != 1 || cfg.TKin[0] != 100 {
		t.Errorf("TKin = %v, want [100]", cfg.TKin)
	}
	if len(cfg.NMol) != 1 || cfg.NMol[0] != 1e15 {
		t.Errorf("NMol = %v, want [1e15]", cfg.NMol)
	}
	if got := cfg.Densities["H2"]; len(got) != 1 || got[0] != 1e3 {
		t.Errorf("Densities[H2] = %v, want [1000]", got)
	}
	if cfg.TBg[0] != 2.73 || cfg.DV[0] != 1.0 {
		t.Errorf("TBg, DV = %v, %v, want [2.73], [1]", cfg.TBg, cfg.DV)
	}
	if cfg.Geometries[0] != "uni" {
		t.Errorf("Geometries = %v, want [uni]", cfg.Geometries)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}
	if cfg.CacheDir == "" {
		t.Error("CacheDir should have a default")
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	const content = `species: co
transitions: ["1-0", "2-1"]
T_kin: [50, 100, 200]
densities:
  H2: [1e3, 1e4]
  e: [0.1]
timeout: 45s
workers: 4
geom: [uni, lvg]
aliases:
  co: co.dat
`
	path := filepath.Join(t.TempDir(), "ndradex.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Species != "co" {
		t.Errorf("Species = %q, want co", cfg.Species)
	}
	if len(cfg.Transitions) != 2 {
		t.Errorf("Transitions = %v, want two entries", cfg.Transitions)
	}
	if len(cfg.TKin) != 3 || cfg.TKin[2] != 200 {
		t.Errorf("TKin = %v, want [50 100 200]", cfg.TKin)
	}
	if got := cfg.Densities["e"]; len(got) != 1 || got[0] != 0.1 {
		t.Errorf("Densities[e] = %v, want [0.1]", got)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", cfg.Timeout)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.Aliases["co"] != "co.dat" {
		t.Errorf("Aliases = %v, want co mapped to co.dat", cfg.Aliases)
	}

	// Keys absent from the file keep their defaults.
	if len(cfg.NMol) != 1 || cfg.NMol[0] != 1e15 {
		t.Errorf("NMol = %v, want the default [1e15]", cfg.NMol)
	}
	if cfg.TBg[0] != 2.73 {
		t.Errorf("TBg = %v, want the default [2.73]", cfg.TBg)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		missing bool
	}{
		{name: "missing file", missing: true},
		{name: "malformed yaml", content: "species: [unterminated"},
		{name: "bad timeout", content: "timeout: not-a-duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "ndradex.yaml")
			if !tt.missing {
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatalf("writing config: %v", err)
				}
			}

			_, err := LoadFile(path)
			if err == nil {
				t.Fatal("LoadFile should fail")
			}
			var cErr apperrors.ConfigError
			if !errors.As(err, &cErr) {
				t.Errorf("error should be ConfigError, got %T: %v", err, err)
			}
		})
	}
}

func TestGridRequest(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Transitions = []string{"1-0"}
	cfg.Densities = map[string][]float64{
		"H2":   {1e3},
		"p-H2": {250},
		"H+":   {0.01},
	}

	req, err := cfg.GridRequest()
	if err != nil {
		t.Fatalf("GridRequest failed: %v", err)
	}
	if got := req.Densities[grid.PartnerH2]; len(got) != 1 || got[0] != 1e3 {
		t.Errorf("H2 densities = %v, want [1000]", got)
	}
	if got := req.Densities[grid.PartnerParaH2]; len(got) != 1 || got[0] != 250 {
		t.Errorf("p-H2 densities = %v, want [250]", got)
	}
	if got := req.Densities[grid.PartnerHPlus]; len(got) != 1 || got[0] != 0.01 {
		t.Errorf("H+ densities = %v, want [0.01]", got)
	}
	if req.TKin[0] != 100 || req.Geometries[0] != "uni" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestGridRequest_UnknownPartner(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Densities = map[string][]float64{"CO2": {1}}

	_, err := cfg.GridRequest()
	if err == nil {
		t.Fatal("GridRequest should fail")
	}
	var cErr apperrors.ConfigError
	if !errors.As(err, &cErr) {
		t.Errorf("error should be ConfigError, got %T: %v", err, err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("NDRADEX_WORKERS", "6")
	t.Setenv("NDRADEX_TIMEOUT", "90s")
	t.Setenv("NDRADEX_SPECIES", "hco+")
	t.Setenv("NDRADEX_QUIET", "yes")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("workers", 2, "")
	fs.String("species", "", "")
	if err := fs.Parse([]string{"-workers", "3"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	cfg := Default()
	cfg.Workers = 3 // set by flag
	ApplyEnvOverrides(&cfg, fs)

	// The flag wins over the environment.
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3 (flag takes priority)", cfg.Workers)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", cfg.Timeout)
	}
	if cfg.Species != "hco+" {
		t.Errorf("Species = %q, want hco+", cfg.Species)
	}
	if !cfg.Quiet {
		t.Error("Quiet should be set from the environment")
	}
}

func TestApplyAdaptiveWorkers(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Workers = 0
	cfg = ApplyAdaptiveWorkers(cfg)
	if cfg.Workers < 1 || cfg.Workers > 8 {
		t.Errorf("Workers = %d, want a value in [1, 8]", cfg.Workers)
	}

	cfg.Workers = 5
	if got := ApplyAdaptiveWorkers(cfg).Workers; got != 5 {
		t.Errorf("Workers = %d, explicit value must be preserved", got)
	}
}

func TestParseBoolEnv(t *testing.T) {
	t.Parallel()
	tests := []struct {
		val        string
		defaultVal bool
		want       bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"false", true, false},
		{"0", true, false},
		{"no", true, false},
		{"garbage", true, true},
		{"garbage", false, false},
	}
	for _, tt := range tests {
		if got := parseBoolEnv(tt.val, tt.defaultVal); got != tt.want {
			t.Errorf("parseBoolEnv(%q, %v) = %v, want %v", tt.val, tt.defaultVal, got, tt.want)
		}
	}
}
