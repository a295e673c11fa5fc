package radex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/astropenguin/ndradex/internal/grid"
)

// Input is the solver's line-oriented input schema. Field order is fixed by
// the solver protocol and must never be reordered:
//
//	datafile path
//	output file path
//	"lo hi" frequency window (GHz)
//	kinetic temperature (K)
//	collision partner count
//	partner name / partner density line pairs
//	background temperature (K)
//	column density (cm^-2)
//	line width (km/s)
//	"0" terminator (no further calculation)
//
// The escape-probability geometry is not an input line: it selects the solver
// binary variant instead (see Binary).
type Input struct {
	// DatafilePath is the local LAMDA datafile handed to the solver.
	DatafilePath string
	// OutfilePath is where the solver writes its result table.
	OutfilePath string
	// FreqMin and FreqMax bracket the requested transition's rest frequency
	// in GHz so the output contains exactly one transition row.
	FreqMin, FreqMax float64
	// TKin is the kinetic temperature in K.
	TKin float64
	// Partners lists the enabled collision partners in declared order.
	Partners []PartnerDensity
	// TBg is the background temperature in K.
	TBg float64
	// NMol is the molecular column density in cm^-2.
	NMol float64
	// DV is the FWHM line width in km/s.
	DV float64
}

// PartnerDensity is one collision partner line pair: the solver-protocol
// partner name and its volume density in cm^-3.
type PartnerDensity struct {
	Name    string
	Density float64
}

// NewInput encodes a resolved grid point into the solver input schema.
// The job's molecule supplies the datafile path and the frequency window of
// the requested transition; the caller supplies the per-run output path.
func NewInput(job grid.Job, outfile string) (Input, error) {
	tr, ok := job.Molecule.Transition(job.Point.Transition)
	if !ok {
		return Input{}, fmt.Errorf("transition %q not found in %s", job.Point.Transition, job.Molecule.Description())
	}
	lo, hi := tr.FrequencyWindow()

	in := Input{
		DatafilePath: job.Molecule.Path,
		OutfilePath:  outfile,
		FreqMin:      lo,
		FreqMax:      hi,
		TKin:         job.Point.TKin,
		TBg:          job.Point.TBg,
		NMol:         job.Point.NMol,
		DV:           job.Point.DV,
	}
	for _, p := range job.Point.EnabledPartners() {
		in.Partners = append(in.Partners, PartnerDensity{
			Name:    grid.PartnerCodes[p],
			Density: job.Point.Densities[p],
		})
	}
	return in, nil
}

// Encode renders the input as the newline-terminated text the solver reads
// on stdin.
func (in Input) Encode() string {
	var b strings.Builder
	writeln := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	writeln(in.DatafilePath)
	writeln(in.OutfilePath)
	writeln(formatFloat(in.FreqMin) + " " + formatFloat(in.FreqMax))
	writeln(formatFloat(in.TKin))
	writeln(strconv.Itoa(len(in.Partners)))
	for _, p := range in.Partners {
		writeln(p.Name)
		writeln(formatFloat(p.Density))
	}
	writeln(formatFloat(in.TBg))
	writeln(formatFloat(in.NMol))
	writeln(formatFloat(in.DV))
	writeln("0")
	return b.String()
}

// Binary returns the solver executable name for a geometry. Each geometry is
// a separate build of the solver rather than an input parameter.
func Binary(geom grid.Geometry) string {
	return "radex-" + string(geom)
}

// formatFloat renders a parameter value in the shortest exact decimal or
// scientific form, both of which the solver's list-directed reads accept.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
