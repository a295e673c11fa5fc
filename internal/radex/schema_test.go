package radex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/astropenguin/ndradex/internal/grid"
	"github.com/astropenguin/ndradex/internal/lamda"
)

const testDatafile = `!MOLECULE
CO
!MOLECULAR WEIGHT
28.0
!NUMBER OF ENERGY LEVELS
3
!LEVEL + ENERGIES(cm^-1) + WEIGHT + J
   1    0.000000000    1.0    0
   2    3.845033413    3.0    1
   3   11.534919938    5.0    2
!NUMBER OF RADIATIVE TRANSITIONS
2
!TRANS + UP + LOW + EINSTEINA(s^-1) + FREQ(GHz) + E_u(K)
    1     2     1   7.203e-08    115.2712018      5.53
    2     3     2   6.910e-07    230.5380000     16.60
`

// testJob builds a single scalar job against a datafile written to disk, so
// the encoded input carries a real path.
func testJob(t *testing.T, timeout time.Duration, modify func(*grid.Request)) grid.Job {
	t.Helper()

	path := filepath.Join(t.TempDir(), "co.dat")
	if err := os.WriteFile(path, []byte(testDatafile), 0o644); err != nil {
		t.Fatalf("writing datafile: %v", err)
	}
	mol, err := lamda.ParseFile(path)
	if err != nil {
		t.Fatalf("parsing datafile: %v", err)
	}

	req := grid.Request{
		Transitions: []string{"1-0"},
		TKin:        []float64{100},
		NMol:        []float64{1e15},
		TBg:         []float64{2.73},
		DV:          []float64{1.0},
		Geometries:  []string{"uni"},
	}
	req.Densities[grid.PartnerH2] = []float64{1e3}
	if modify != nil {
		modify(&req)
	}

	g, err := grid.New(req, mol, timeout)
	if err != nil {
		t.Fatalf("building grid: %v", err)
	}
	job, ok := g.Stream().Next()
	if !ok {
		t.Fatal("grid produced no job")
	}
	return job
}

func TestNewInput_Encode(t *testing.T) {
	t.Parallel()
	job := testJob(t, time.Second, func(r *grid.Request) {
		r.Densities[grid.PartnerElectron] = []float64{0.1}
	})

	input, err := NewInput(job, "/tmp/out/job-000000.out")
	if err != nil {
		t.Fatalf("NewInput failed: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(input.Encode(), "\n"), "\n")
	want := []string{
		job.Molecule.Path,
		"/tmp/out/job-000000.out",
		"115.27120168472881 115.2712019152712",
		"100",
		"2",
		"H2",
		"1000",
		"e",
		"0.1",
		"2.73",
		"1e+15",
		"1",
		"0",
	}
	if len(lines) != len(want) {
		t.Fatalf("Encode produced %d lines, want %d:\n%s", len(lines), len(want), input.Encode())
	}
	for i, line := range lines {
		if line != want[i] {
			t.Errorf("line %d = %q, want %q", i, line, want[i])
		}
	}
}

func TestNewInput_WindowBracketsRestFrequency(t *testing.T) {
	t.Parallel()
	job := testJob(t, time.Second, nil)

	input, err := NewInput(job, "out")
	if err != nil {
		t.Fatalf("NewInput failed: %v", err)
	}

	const rest = 115.2712018
	if !(input.FreqMin < rest && rest < input.FreqMax) {
		t.Errorf("window [%v, %v] does not bracket %v", input.FreqMin, input.FreqMax, rest)
	}
	if width := input.FreqMax - input.FreqMin; width > rest*3e-9 {
		t.Errorf("window width %v is too wide", width)
	}
}

func TestBinary(t *testing.T) {
	t.Parallel()
	tests := []struct {
		geom grid.Geometry
		want string
	}{
		{grid.GeometryUniform, "radex-uni"},
		{grid.GeometryLVG, "radex-lvg"},
		{grid.GeometrySlab, "radex-slab"},
	}
	for _, tt := range tests {
		if got := Binary(tt.geom); got != tt.want {
			t.Errorf("Binary(%q) = %q, want %q", tt.geom, got, tt.want)
		}
	}
}
