package grid

import (
	"time"

	apperrors "github.com/astropenguin/ndradex/internal/errors"
	"github.com/astropenguin/ndradex/internal/lamda"
)

// Request carries the user-supplied values for the 13 griddable parameters.
// Each field is a sequence; a length-1 sequence is treated as a scalar and
// does not become a grid axis. An empty collision-partner sequence disables
// that partner. The remaining fields must be non-empty (the configuration
// collaborator fills defaults before the request reaches the builder).
type Request struct {
	// Transitions names the requested transitions (e.g., "1-0").
	Transitions []string
	// TKin is the kinetic temperature in K.
	TKin []float64
	// NMol is the molecular column density in cm^-2.
	NMol []float64
	// Densities holds the collision partner densities in cm^-3, indexed by
	// partner slot. A nil entry disables the partner.
	Densities [NumPartners][]float64
	// TBg is the background temperature in K.
	TBg []float64
	// DV is the FWHM line width in km/s.
	DV []float64
	// Geometries selects the escape-probability geometry codes.
	Geometries []string
}

// New validates a request against the resolved molecule and builds the
// parameter grid. Validation is eager and total: every parameter is checked
// before the first job can be produced, and any failure aborts the run with
// a ValidationError.
//
// A request where every parameter is scalar is valid and yields a
// zero-dimensional grid with exactly one job.
//
// Parameters:
//   - req: The parameter request with defaults already applied.
//   - mol: The resolved molecular data shared by all jobs.
//   - timeout: The per-job wall-clock budget.
//
// Returns:
//   - *Grid: The constructed grid.
//   - error: A ValidationError describing the first malformed parameter.
func New(req Request, mol *lamda.Molecule, timeout time.Duration) (*Grid, error) {
	if mol == nil {
		return nil, apperrors.NewValidationError("species", "molecular data is not resolved")
	}

	if len(req.Transitions) == 0 {
		return nil, apperrors.NewValidationError(DimTransition, "at least one transition is required")
	}
	for _, label := range req.Transitions {
		if _, ok := mol.Transition(label); !ok {
			return nil, apperrors.NewValidationError(DimTransition,
				"transition %q not found in %s (known: %v)", label, mol.Description(), mol.Labels())
		}
	}

	numeric := []struct {
		name   string
		values []float64
	}{
		{DimTKin, req.TKin},
		{DimNMol, req.NMol},
		{DimTBg, req.TBg},
		{DimDV, req.DV},
	}
	for _, p := range numeric {
		if len(p.values) == 0 {
			return nil, apperrors.NewValidationError(p.name, "at least one value is required")
		}
		if err := validatePositive(p.name, p.values); err != nil {
			return nil, err
		}
	}

	enabled := 0
	for p := 0; p < NumPartners; p++ {
		values := req.Densities[p]
		if len(values) == 0 {
			continue
		}
		if err := validatePositive(partnerDims[p], values); err != nil {
			return nil, err
		}
		enabled++
	}
	if enabled == 0 {
		return nil, apperrors.NewValidationError(DimNH2, "at least one collision partner density is required")
	}

	if len(req.Geometries) == 0 {
		return nil, apperrors.NewValidationError(DimGeometry, "at least one geometry is required")
	}
	for _, geom := range req.Geometries {
		if !validGeometry(geom) {
			return nil, apperrors.NewValidationError(DimGeometry,
				"unknown geometry %q (supported: %v)", geom, Geometries)
		}
	}

	g := &Grid{molecule: mol, timeout: timeout}
	g.slots[0] = Axis{Name: DimTransition, Labels: req.Transitions}
	g.slots[1] = Axis{Name: DimTKin, Floats: req.TKin}
	g.slots[2] = Axis{Name: DimNMol, Floats: req.NMol}
	for p := 0; p < NumPartners; p++ {
		g.slots[3+p] = Axis{Name: partnerDims[p], Floats: req.Densities[p]}
	}
	g.slots[10] = Axis{Name: DimTBg, Floats: req.TBg}
	g.slots[11] = Axis{Name: DimDV, Floats: req.DV}
	g.slots[12] = Axis{Name: DimGeometry, Labels: req.Geometries}

	// Active dimensions are the slots with more than one coordinate, in
	// declared order.
	for s := range g.slots {
		if g.slots[s].Len() > 1 {
			g.active = append(g.active, s)
		}
	}

	return g, nil
}

func validGeometry(geom string) bool {
	for _, g := range Geometries {
		if Geometry(geom) == g {
			return true
		}
	}
	return false
}
