package radex

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/astropenguin/ndradex/internal/errors"
)

// testOutfile is a realistic solver output file for the CO 1-0 reference
// run (T_kin=100 K, N_mol=1e15 cm^-2, n_H2=1e3 cm^-3).
const testOutfile = `* Radex version        : 30nov2011
* Geometry             : Uniform sphere
* Molecular data file  : co.dat
* T(kin)            [K]:  100.000
* Density of H2  [cm-3]:  0.100E+04
* T(background)     [K]:    2.730
* Column density [cm-2]:  0.100E+16
* Line width     [km/s]:    1.000
Calculation finished in    5 iterations
       LINE         E_UP       FREQ        WAVEL     T_EX      TAU        T_R       POP        POP       FLUX        FLUX
                     (K)       (GHz)       (um)      (K)                  (K)       UP         LOW      (K*km/s) (erg/cm2/s)
1      -- 0          5.5     115.2712   2600.7576   132.463  9.966E-03  1.278E+00  4.934E-01  1.715E-01  1.360E+00   2.684E-08
`

func TestParseOutput(t *testing.T) {
	t.Parallel()
	out, err := ParseOutput(strings.NewReader(testOutfile))
	if err != nil {
		t.Fatalf("ParseOutput failed: %v", err)
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"E_up", out.EUp, 5.5},
		{"freq", out.Freq, 115.2712},
		{"wavel", out.Wavel, 2600.7576},
		{"T_ex", out.TEx, 132.463},
		{"tau", out.Tau, 9.966e-03},
		{"T_R", out.TR, 1.278},
		{"pop_up", out.PopUp, 4.934e-01},
		{"pop_low", out.PopLow, 1.715e-01},
		{"I", out.I, 1.360},
		{"F", out.F, 2.684e-08},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

// TestParseOutput_NegativeTau verifies that maser-regime values pass through
// undisturbed: negative optical depths and excitation temperatures are valid
// physics, not errors.
func TestParseOutput_NegativeTau(t *testing.T) {
	t.Parallel()
	const maser = `       LINE         E_UP       FREQ        WAVEL     T_EX      TAU        T_R       POP        POP       FLUX        FLUX
1      -- 0          5.5     115.2712   2600.7576   -12.852  -1.329E-02  3.421E-01  2.101E-01  9.442E-02  3.641E-01   7.187E-09
`
	out, err := ParseOutput(strings.NewReader(maser))
	if err != nil {
		t.Fatalf("ParseOutput failed: %v", err)
	}
	if out.Tau != -1.329e-02 {
		t.Errorf("tau = %v, want -1.329e-02", out.Tau)
	}
	if out.TEx != -12.852 {
		t.Errorf("T_ex = %v, want -12.852", out.TEx)
	}
}

func TestParseOutput_Malformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"whitespace only", "   \n\n   \n"},
		{"too few fields", "1 -- 0 5.5 115.2712 2600.7576\n"},
		{"non-numeric field", "1 -- 0 5.5 115.2712 2600.7576 132.463 ***** 1.278 0.493 0.171 1.360 2.684E-08\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseOutput(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("ParseOutput should fail")
			}
			var pErr apperrors.ParseError
			if !errors.As(err, &pErr) {
				t.Errorf("error should be ParseError, got %T: %v", err, err)
			}
		})
	}
}
