package nd

import (
	"math"

	"github.com/astropenguin/ndradex/internal/grid"
	"github.com/astropenguin/ndradex/internal/radex"
)

// Output variable names, in the solver's column order. Each names one dense
// array of the assembled dataset.
const (
	VarEUp    = "E_up"
	VarFreq   = "freq"
	VarWavel  = "wavel"
	VarTEx    = "T_ex"
	VarTau    = "tau"
	VarTR     = "T_R"
	VarPopUp  = "pop_up"
	VarPopLow = "pop_low"
	VarI      = "I"
	VarF      = "F"
)

// VarNames lists the ten output variables in declared order.
var VarNames = []string{
	VarEUp, VarFreq, VarWavel, VarTEx, VarTau, VarTR, VarPopUp, VarPopLow, VarI, VarF,
}

// Diagnostic records the terminal outcome of one grid cell. Reason is empty
// for a completed cell.
type Diagnostic struct {
	Status radex.Status
	Reason string
}

// Dataset is the assembled result of one grid run: dense row-major float64
// arrays for every output variable, labeled by the active grid dimensions,
// plus per-cell diagnostics and the fixed scalar metadata of the inactive
// parameters. It is immutable after assembly and safe for concurrent reads.
type Dataset struct {
	dims     []grid.Axis
	shape    []int
	size     int
	vars     map[string][]float64
	diags    []Diagnostic
	fixed    map[string]any
	molecule string
}

// Dims returns the active dimensions in declared order.
func (d *Dataset) Dims() []grid.Axis { return d.dims }

// Shape returns the lengths of the active dimensions.
func (d *Dataset) Shape() []int { return d.shape }

// Size returns the total cell count.
func (d *Dataset) Size() int { return d.size }

// Molecule returns the reproducibility description of the molecular data the
// run used.
func (d *Dataset) Molecule() string { return d.molecule }

// Fixed returns the scalar values of the inactive parameters.
func (d *Dataset) Fixed() map[string]any { return d.fixed }

// Var returns a copy of the dense row-major array of one output variable.
//
// Parameters:
//   - name: One of VarNames.
//
// Returns:
//   - []float64: The variable's values; NaN marks cells without a result.
//   - bool: Whether the variable exists.
func (d *Dataset) Var(name string) ([]float64, bool) {
	values, ok := d.vars[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out, true
}

// At returns the value of one variable at a multi-index over the active
// dimensions. An empty index addresses the single cell of a scalar grid.
func (d *Dataset) At(name string, index ...int) (float64, bool) {
	values, ok := d.vars[name]
	if !ok {
		return math.NaN(), false
	}
	flat, err := d.flatten(index)
	if err != nil {
		return math.NaN(), false
	}
	return values[flat], true
}

// Diagnostics returns a copy of the per-cell diagnostics in row-major order.
func (d *Dataset) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(d.diags))
	copy(out, d.diags)
	return out
}

// DiagnosticAt returns the diagnostic of one cell.
func (d *Dataset) DiagnosticAt(index ...int) (Diagnostic, bool) {
	flat, err := d.flatten(index)
	if err != nil {
		return Diagnostic{}, false
	}
	return d.diags[flat], true
}

// CountByStatus tallies the terminal statuses across all cells.
func (d *Dataset) CountByStatus() map[radex.Status]int {
	counts := make(map[radex.Status]int)
	for _, diag := range d.diags {
		counts[diag.Status]++
	}
	return counts
}

// flatten converts a multi-index into the row-major flat offset (last
// dimension varies fastest).
func (d *Dataset) flatten(index []int) (int, error) {
	return flatten(index, d.shape)
}
