package nd

import (
	"fmt"
	"math"

	apperrors "github.com/astropenguin/ndradex/internal/errors"
	"github.com/astropenguin/ndradex/internal/grid"
	"github.com/astropenguin/ndradex/internal/radex"
)

// Assembler folds terminal job results into a Dataset. Attribution goes
// through each result's multi-index, so the fold is invariant under
// completion order: any permutation of the same result set yields the same
// dataset. The assembler is not safe for concurrent use; the dispatcher
// feeds it from a single goroutine.
type Assembler struct {
	shape     []int
	dataset   *Dataset
	seen      []bool
	completed int
}

// NewAssembler prepares an assembler for one grid: every variable array is
// allocated up front and filled with NaN, every diagnostic starts pending.
func NewAssembler(g *grid.Grid) *Assembler {
	size := g.Size()

	vars := make(map[string][]float64, len(VarNames))
	for _, name := range VarNames {
		values := make([]float64, size)
		for i := range values {
			values[i] = math.NaN()
		}
		vars[name] = values
	}

	shape := g.Shape()
	return &Assembler{
		shape: shape,
		dataset: &Dataset{
			dims:     g.Dims(),
			shape:    shape,
			size:     size,
			vars:     vars,
			diags:    make([]Diagnostic, size),
			fixed:    g.Fixed(),
			molecule: g.Molecule().Description(),
		},
		seen: make([]bool, size),
	}
}

// Add folds one terminal result into the dataset.
//
// Parameters:
//   - result: A terminal job result. Only a completed result writes values;
//     every result writes its cell's diagnostic.
//
// Returns:
//   - error: An error if the result's index is out of bounds, its status is
//     not terminal, or its cell already holds a result.
func (a *Assembler) Add(result radex.JobResult) error {
	if !result.Status.Terminal() {
		return fmt.Errorf("job %d result has non-terminal status %v", result.Job.Seq, result.Status)
	}
	flat, err := flatten(result.Job.Index, a.shape)
	if err != nil {
		return apperrors.WrapError(err, "attributing job %d", result.Job.Seq)
	}
	if a.seen[flat] {
		return fmt.Errorf("cell %v already holds a result", result.Job.Index)
	}
	a.seen[flat] = true

	diag := Diagnostic{Status: result.Status}
	if result.Reason != nil {
		diag.Reason = result.Reason.Error()
	}
	a.dataset.diags[flat] = diag

	if result.Status == radex.StatusCompleted {
		a.completed++
		out := result.Output
		a.dataset.vars[VarEUp][flat] = out.EUp
		a.dataset.vars[VarFreq][flat] = out.Freq
		a.dataset.vars[VarWavel][flat] = out.Wavel
		a.dataset.vars[VarTEx][flat] = out.TEx
		a.dataset.vars[VarTau][flat] = out.Tau
		a.dataset.vars[VarTR][flat] = out.TR
		a.dataset.vars[VarPopUp][flat] = out.PopUp
		a.dataset.vars[VarPopLow][flat] = out.PopLow
		a.dataset.vars[VarI][flat] = out.I
		a.dataset.vars[VarF][flat] = out.F
	}
	return nil
}

// Finalize seals the dataset. Cells without a result are marked canceled so
// the diagnostics stay total. When no cell completed, the all-NaN dataset is
// still returned together with an AllJobsFailedError, so callers can inspect
// the per-cell reasons.
//
// Returns:
//   - *Dataset: The assembled dataset, never nil.
//   - error: AllJobsFailedError when not a single job completed.
func (a *Assembler) Finalize() (*Dataset, error) {
	for flat, ok := range a.seen {
		if !ok {
			a.dataset.diags[flat] = Diagnostic{
				Status: radex.StatusCanceled,
				Reason: "no result recorded",
			}
		}
	}
	if a.completed == 0 {
		return a.dataset, apperrors.AllJobsFailedError{Total: a.dataset.size}
	}
	return a.dataset, nil
}

// flatten converts a multi-index into a row-major flat offset against a
// shape. The empty index addresses offset 0 of a scalar (empty-shape) grid.
func flatten(index []int, shape []int) (int, error) {
	if len(index) != len(shape) {
		return 0, fmt.Errorf("index rank %d does not match shape rank %d", len(index), len(shape))
	}
	flat := 0
	for d, idx := range index {
		if idx < 0 || idx >= shape[d] {
			return 0, fmt.Errorf("index %v out of bounds for shape %v", index, shape)
		}
		flat = flat*shape[d] + idx
	}
	return flat, nil
}
