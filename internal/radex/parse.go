package radex

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	apperrors "github.com/astropenguin/ndradex/internal/errors"
)

// numOutputFields is the number of positional value columns in a solver
// output row: E_up, freq, wavel, T_ex, tau, T_R, pop_up, pop_low, I, F.
const numOutputFields = 10

// ParseOutput decodes a solver output file. The file is a header block
// followed by one data row per transition in the requested frequency window;
// the encoded window brackets a single rest frequency, so the last row is the
// requested transition. Its trailing ten whitespace-separated fields are the
// values, in fixed column order.
func ParseOutput(r io.Reader) (Output, error) {
	var last string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			last = line
		}
	}
	if err := sc.Err(); err != nil {
		return Output{}, apperrors.WrapError(err, "reading solver output")
	}
	if last == "" {
		return Output{}, apperrors.NewParseError("solver output is empty")
	}

	fields := strings.Fields(last)
	if len(fields) < numOutputFields {
		return Output{}, apperrors.NewParseError(
			"solver output row %q has %d fields, want >= %d", last, len(fields), numOutputFields)
	}

	values := make([]float64, numOutputFields)
	for i, f := range fields[len(fields)-numOutputFields:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Output{}, apperrors.NewParseError("bad value %q in solver output row %q", f, last)
		}
		values[i] = v
	}

	return Output{
		EUp:    values[0],
		Freq:   values[1],
		Wavel:  values[2],
		TEx:    values[3],
		Tau:    values[4],
		TR:     values[5],
		PopUp:  values[6],
		PopLow: values[7],
		I:      values[8],
		F:      values[9],
	}, nil
}
