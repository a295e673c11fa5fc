package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/astropenguin/ndradex/internal/errors"
)

func TestParseConfig_FlagsOverrideDefaults(t *testing.T) {
	cfg, err := ParseConfig("ndradex", []string{
		"--species", "co",
		"--transitions", "1-0,2-1",
		"--T-kin", "50,100,200",
		"--n-H2", "1e3,1e4",
		"--n-e", "0.1",
		"--workers", "4",
		"--timeout", "45s",
		"--geom", "uni,lvg",
		"--quiet",
	}, io.Discard)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	if cfg.Species != "co" {
		t.Errorf("Species = %q, want co", cfg.Species)
	}
	if len(cfg.Transitions) != 2 || cfg.Transitions[1] != "2-1" {
		t.Errorf("Transitions = %v, want [1-0 2-1]", cfg.Transitions)
	}
	if len(cfg.TKin) != 3 || cfg.TKin[0] != 50 {
		t.Errorf("TKin = %v, want [50 100 200]", cfg.TKin)
	}
	if got := cfg.Densities["H2"]; len(got) != 2 || got[1] != 1e4 {
		t.Errorf("Densities[H2] = %v, want [1000 10000]", got)
	}
	if got := cfg.Densities["e"]; len(got) != 1 || got[0] != 0.1 {
		t.Errorf("Densities[e] = %v, want [0.1]", got)
	}
	if cfg.Workers != 4 || cfg.Timeout != 45*time.Second {
		t.Errorf("Workers, Timeout = %d, %v, want 4, 45s", cfg.Workers, cfg.Timeout)
	}
	if len(cfg.Geometries) != 2 {
		t.Errorf("Geometries = %v, want [uni lvg]", cfg.Geometries)
	}
	if !cfg.Quiet {
		t.Error("Quiet should be set")
	}

	// Untouched parameters keep their defaults.
	if cfg.NMol[0] != 1e15 || cfg.TBg[0] != 2.73 || cfg.DV[0] != 1.0 {
		t.Errorf("defaults lost: NMol=%v TBg=%v DV=%v", cfg.NMol, cfg.TBg, cfg.DV)
	}
}

func TestParseConfig_FileThenFlags(t *testing.T) {
	const content = `species: hco+
workers: 6
T_kin: [75]
`
	path := filepath.Join(t.TempDir(), "ndradex.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := ParseConfig("ndradex", []string{
		"--config", path,
		"--workers", "3",
	}, io.Discard)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	if cfg.Species != "hco+" {
		t.Errorf("Species = %q, want hco+ (from file)", cfg.Species)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3 (flag beats file)", cfg.Workers)
	}
	if cfg.TKin[0] != 75 {
		t.Errorf("TKin = %v, want [75] (from file)", cfg.TKin)
	}
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad float list", []string{"--T-kin", "100,abc"}},
		{"positional arguments", []string{"positional"}},
		{"bad density", []string{"--n-H2", "1e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig("ndradex", tt.args, io.Discard)
			if err == nil {
				t.Fatal("ParseConfig should fail")
			}
			var cErr apperrors.ConfigError
			if !errors.As(err, &cErr) {
				t.Errorf("error should be ConfigError, got %T: %v", err, err)
			}
		})
	}
}

func TestParseConfig_Help(t *testing.T) {
	_, err := ParseConfig("ndradex", []string{"--help"}, io.Discard)
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("err = %v, want flag.ErrHelp", err)
	}
}
