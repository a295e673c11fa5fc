package nd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	apperrors "github.com/astropenguin/ndradex/internal/errors"
	"github.com/astropenguin/ndradex/internal/grid"
	"github.com/astropenguin/ndradex/internal/radex"
)

// The JSON layout keeps the dataset self-describing: dimensions with their
// coordinates, the fixed metadata, every variable array, and the per-cell
// diagnostics. NaN sentinels are encoded as nulls because JSON has no NaN.
type jsonDataset struct {
	Molecule    string                `json:"molecule"`
	Dims        []jsonAxis            `json:"dims"`
	Shape       []int                 `json:"shape"`
	Fixed       map[string]any        `json:"fixed"`
	Vars        map[string][]*float64 `json:"vars"`
	Diagnostics []jsonDiagnostic      `json:"diagnostics"`
}

type jsonAxis struct {
	Name   string    `json:"name"`
	Floats []float64 `json:"floats,omitempty"`
	Labels []string  `json:"labels,omitempty"`
}

type jsonDiagnostic struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Save writes the dataset as indented JSON.
func (d *Dataset) Save(w io.Writer) error {
	dto := jsonDataset{
		Molecule:    d.molecule,
		Dims:        make([]jsonAxis, len(d.dims)),
		Shape:       d.shape,
		Fixed:       d.fixed,
		Vars:        make(map[string][]*float64, len(d.vars)),
		Diagnostics: make([]jsonDiagnostic, len(d.diags)),
	}
	for i, dim := range d.dims {
		dto.Dims[i] = jsonAxis{Name: dim.Name, Floats: dim.Floats, Labels: dim.Labels}
	}
	for name, values := range d.vars {
		encoded := make([]*float64, len(values))
		for i := range values {
			if !math.IsNaN(values[i]) {
				v := values[i]
				encoded[i] = &v
			}
		}
		dto.Vars[name] = encoded
	}
	for i, diag := range d.diags {
		dto.Diagnostics[i] = jsonDiagnostic{Status: diag.Status.String(), Reason: diag.Reason}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dto); err != nil {
		return apperrors.WrapError(err, "encoding dataset")
	}
	return nil
}

// SaveFile writes the dataset to a JSON file.
func (d *Dataset) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.WrapError(err, "creating %s", path)
	}
	defer f.Close()

	if err := d.Save(f); err != nil {
		return err
	}
	return f.Close()
}

// Load reads a dataset previously written by Save.
func Load(r io.Reader) (*Dataset, error) {
	var dto jsonDataset
	if err := json.NewDecoder(r).Decode(&dto); err != nil {
		return nil, apperrors.WrapError(err, "decoding dataset")
	}

	size := 1
	for _, n := range dto.Shape {
		if n < 1 {
			return nil, fmt.Errorf("invalid shape %v", dto.Shape)
		}
		size *= n
	}
	if len(dto.Dims) != len(dto.Shape) {
		return nil, fmt.Errorf("%d dims do not match shape %v", len(dto.Dims), dto.Shape)
	}
	if len(dto.Diagnostics) != size {
		return nil, fmt.Errorf("%d diagnostics for %d cells", len(dto.Diagnostics), size)
	}

	d := &Dataset{
		dims:     make([]grid.Axis, len(dto.Dims)),
		shape:    dto.Shape,
		size:     size,
		vars:     make(map[string][]float64, len(dto.Vars)),
		diags:    make([]Diagnostic, size),
		fixed:    dto.Fixed,
		molecule: dto.Molecule,
	}
	for i, dim := range dto.Dims {
		d.dims[i] = grid.Axis{Name: dim.Name, Floats: dim.Floats, Labels: dim.Labels}
		if d.dims[i].Len() != dto.Shape[i] {
			return nil, fmt.Errorf("dim %q has %d coordinates, shape says %d", dim.Name, d.dims[i].Len(), dto.Shape[i])
		}
	}
	for name, encoded := range dto.Vars {
		if len(encoded) != size {
			return nil, fmt.Errorf("variable %q has %d values for %d cells", name, len(encoded), size)
		}
		values := make([]float64, size)
		for i, v := range encoded {
			if v == nil {
				values[i] = math.NaN()
			} else {
				values[i] = *v
			}
		}
		d.vars[name] = values
	}
	for i, diag := range dto.Diagnostics {
		status, ok := radex.ParseStatus(diag.Status)
		if !ok {
			return nil, fmt.Errorf("unknown status %q in diagnostics", diag.Status)
		}
		d.diags[i] = Diagnostic{Status: status, Reason: diag.Reason}
	}
	return d, nil
}

// LoadFile reads a dataset from a JSON file.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.WrapError(err, "opening %s", path)
	}
	defer f.Close()
	return Load(f)
}
