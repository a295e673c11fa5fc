package grid

import (
	"time"

	apperrors "github.com/astropenguin/ndradex/internal/errors"
	"github.com/astropenguin/ndradex/internal/lamda"
)

// Geometry selects the escape-probability geometry of the solver.
type Geometry string

// Supported escape-probability geometries. Each maps to a solver binary
// variant (radex-uni, radex-lvg, radex-slab).
const (
	GeometryUniform Geometry = "uni"
	GeometryLVG     Geometry = "lvg"
	GeometrySlab    Geometry = "slab"
)

// Geometries lists the supported geometry codes.
var Geometries = []Geometry{GeometryUniform, GeometryLVG, GeometrySlab}

// Collision partner slots, in the declared dimension order. The solver code
// is the partner name written on the solver's input line.
const (
	PartnerH2 = iota
	PartnerParaH2
	PartnerOrthoH2
	PartnerElectron
	PartnerH
	PartnerHe
	PartnerHPlus
	NumPartners
)

// PartnerCodes are the solver-protocol names of the collision partners,
// indexed by partner slot.
var PartnerCodes = [NumPartners]string{"H2", "p-H2", "o-H2", "e", "H", "He", "H+"}

// Dimension names in fixed declared order across the 13 griddable slots.
const (
	DimTransition = "transition"
	DimTKin       = "T_kin"
	DimNMol       = "N_mol"
	DimNH2        = "n_H2"
	DimNParaH2    = "n_pH2"
	DimNOrthoH2   = "n_oH2"
	DimNElectron  = "n_e"
	DimNH         = "n_H"
	DimNHe        = "n_He"
	DimNHPlus     = "n_Hp"
	DimTBg        = "T_bg"
	DimDV         = "dv"
	DimGeometry   = "geom"
)

// numDims is the number of griddable dimension slots.
const numDims = 13

// DimNames lists the 13 dimension names in declared order.
var DimNames = []string{
	DimTransition, DimTKin, DimNMol,
	DimNH2, DimNParaH2, DimNOrthoH2, DimNElectron, DimNH, DimNHe, DimNHPlus,
	DimTBg, DimDV, DimGeometry,
}

// partnerDims maps partner slot to dimension name.
var partnerDims = [NumPartners]string{
	DimNH2, DimNParaH2, DimNOrthoH2, DimNElectron, DimNH, DimNHe, DimNHPlus,
}

// Axis is one named dimension of the grid with its ordered coordinates.
// Exactly one of Floats and Labels is populated, depending on the element
// type of the dimension.
type Axis struct {
	// Name is the dimension name (one of DimNames).
	Name string
	// Floats holds the coordinates of a numeric dimension.
	Floats []float64
	// Labels holds the coordinates of a string dimension (transition, geom).
	Labels []string
}

// Len returns the number of coordinates on the axis.
func (a Axis) Len() int {
	if a.Labels != nil {
		return len(a.Labels)
	}
	return len(a.Floats)
}

// Value returns the coordinate at position i as an untyped value.
func (a Axis) Value(i int) any {
	if a.Labels != nil {
		return a.Labels[i]
	}
	return a.Floats[i]
}

// Point is one fully resolved parameter vector: every griddable quantity has
// a concrete scalar value. A disabled collision partner holds zero density.
type Point struct {
	Transition string
	TKin       float64
	NMol       float64
	Densities  [NumPartners]float64
	TBg        float64
	DV         float64
	Geometry   Geometry
}

// EnabledPartners returns the partner slots with a non-zero density, in
// declared order. The solver input line count depends on it.
func (p Point) EnabledPartners() []int {
	enabled := make([]int, 0, NumPartners)
	for i, n := range p.Densities {
		if n > 0 {
			enabled = append(enabled, i)
		}
	}
	return enabled
}

// Job identifies one grid cell and everything needed to run the solver for
// it. Jobs are immutable once constructed and are produced lazily in
// row-major multi-index order.
type Job struct {
	// Seq is the flat row-major ordinal of the cell.
	Seq int
	// Index is the multi-index over the active dimensions (empty for a
	// zero-dimensional grid).
	Index []int
	// Point is the fully resolved parameter vector.
	Point Point
	// Molecule is the shared resolved molecular data.
	Molecule *lamda.Molecule
	// Timeout is the per-job wall-clock budget for the solver run.
	Timeout time.Duration
}

// Grid is the expanded parameter grid: the active dimensions in declared
// order, the fixed scalars of the inactive parameters, and the shared
// resolved molecule. It is immutable after construction.
type Grid struct {
	slots    [numDims]Axis
	active   []int // slot positions of active dimensions, declared order
	molecule *lamda.Molecule
	timeout  time.Duration
}

// Molecule returns the shared resolved molecular data.
func (g *Grid) Molecule() *lamda.Molecule { return g.molecule }

// Dims returns the active dimensions in declared order.
func (g *Grid) Dims() []Axis {
	dims := make([]Axis, len(g.active))
	for i, s := range g.active {
		dims[i] = g.slots[s]
	}
	return dims
}

// Shape returns the lengths of the active dimensions in declared order.
// A fully scalar grid has an empty shape.
func (g *Grid) Shape() []int {
	shape := make([]int, len(g.active))
	for i, s := range g.active {
		shape[i] = g.slots[s].Len()
	}
	return shape
}

// Size returns the total job count: the product of the active dimension
// lengths, which is 1 when no dimension is active.
func (g *Grid) Size() int {
	size := 1
	for _, s := range g.active {
		size *= g.slots[s].Len()
	}
	return size
}

// Fixed returns the scalar values of every inactive parameter, keyed by
// dimension name. These are attached to the assembled dataset as fixed
// metadata for reproducibility.
func (g *Grid) Fixed() map[string]any {
	fixed := make(map[string]any)
	activeSet := make(map[int]bool, len(g.active))
	for _, s := range g.active {
		activeSet[s] = true
	}
	for s, axis := range g.slots {
		if activeSet[s] || axis.Len() == 0 {
			continue
		}
		fixed[axis.Name] = axis.Value(0)
	}
	return fixed
}

// JobAt materializes the job for one flat row-major ordinal.
func (g *Grid) JobAt(seq int) Job {
	index := g.unravel(seq)

	// Coordinate position per slot: active slots follow the multi-index,
	// inactive slots always take their single value.
	pos := make([]int, len(g.slots))
	for i, s := range g.active {
		pos[s] = index[i]
	}

	point := Point{
		Transition: g.slots[0].Labels[pos[0]],
		TKin:       g.slots[1].Floats[pos[1]],
		NMol:       g.slots[2].Floats[pos[2]],
		TBg:        g.slots[10].Floats[pos[10]],
		DV:         g.slots[11].Floats[pos[11]],
		Geometry:   Geometry(g.slots[12].Labels[pos[12]]),
	}
	for p := 0; p < NumPartners; p++ {
		slot := 3 + p
		if g.slots[slot].Len() > 0 {
			point.Densities[p] = g.slots[slot].Floats[pos[slot]]
		}
	}

	return Job{
		Seq:      seq,
		Index:    index,
		Point:    point,
		Molecule: g.molecule,
		Timeout:  g.timeout,
	}
}

// unravel converts a flat row-major ordinal into a multi-index over the
// active dimensions (last dimension varies fastest).
func (g *Grid) unravel(seq int) []int {
	index := make([]int, len(g.active))
	for i := len(g.active) - 1; i >= 0; i-- {
		n := g.slots[g.active[i]].Len()
		index[i] = seq % n
		seq /= n
	}
	return index
}

// Stream returns a lazy iterator over all jobs in row-major order.
func (g *Grid) Stream() *Stream {
	return &Stream{grid: g, total: g.Size()}
}

// Stream enumerates the jobs of a grid lazily. It is not safe for
// concurrent use; the dispatcher pulls from it on a single goroutine.
type Stream struct {
	grid  *Grid
	next  int
	total int
}

// Next returns the next job in row-major order, or false when the stream is
// exhausted.
func (s *Stream) Next() (Job, bool) {
	if s.next >= s.total {
		return Job{}, false
	}
	job := s.grid.JobAt(s.next)
	s.next++
	return job, true
}

// Remaining returns the number of jobs not yet produced.
func (s *Stream) Remaining() int { return s.total - s.next }

// validatePositive checks that every value of a numeric parameter is
// strictly positive.
func validatePositive(name string, values []float64) error {
	for _, v := range values {
		if !(v > 0) {
			return apperrors.NewValidationError(name, "values must be strictly positive, got %v", v)
		}
	}
	return nil
}
