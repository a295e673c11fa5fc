package lamda

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/astropenguin/ndradex/internal/errors"
)

// FrequencyTolerance is the relative half-width of the frequency window used
// to bracket a transition's rest frequency on the solver's input line.
const FrequencyTolerance = 1e-9

// Level is one energy level from a LAMDA datafile.
type Level struct {
	// Index is the 1-based level number used by the transition table.
	Index int
	// Energy is the level energy in cm^-1.
	Energy float64
	// Weight is the statistical weight.
	Weight float64
	// QN is the normalized quantum number label (e.g., "1" or "(1,0.5)").
	QN string
}

// Transition is one radiative transition from a LAMDA datafile, carrying the
// level indices and rest frequency the solver protocol requires.
type Transition struct {
	// Index is the 1-based transition number.
	Index int
	// Upper and Lower are the 1-based indices of the involved levels.
	Upper, Lower int
	// EinsteinA is the spontaneous emission coefficient in s^-1.
	EinsteinA float64
	// Frequency is the rest frequency in GHz.
	Frequency float64
	// EUp is the upper state energy in K.
	EUp float64
	// Label is the human-readable transition name (e.g., "1-0").
	Label string
}

// FrequencyWindow returns the narrow frequency interval bracketing the
// transition's rest frequency, in GHz.
func (t Transition) FrequencyWindow() (lo, hi float64) {
	return (1 - FrequencyTolerance) * t.Frequency, (1 + FrequencyTolerance) * t.Frequency
}

// Molecule is a resolved, parsed LAMDA datafile. It is immutable after
// construction and safe for concurrent use.
type Molecule struct {
	// Query is the species identifier the molecule was resolved from.
	Query string
	// Path is the local datafile path handed to the solver.
	Path string
	// Name is the molecule name from the datafile header (e.g., "CO").
	Name string
	// Weight is the molecular weight in amu.
	Weight float64

	levels      []Level
	transitions []Transition
	byLabel     map[string]int
}

// Description returns a short reproducibility string for the molecule,
// attached to assembled datasets as fixed metadata.
func (m *Molecule) Description() string {
	return fmt.Sprintf("LAMDA(%s)", m.Name)
}

// Levels returns the parsed energy levels in datafile order.
func (m *Molecule) Levels() []Level { return m.levels }

// Transitions returns the parsed radiative transitions in datafile order.
func (m *Molecule) Transitions() []Transition { return m.transitions }

// Labels returns every transition label in datafile order.
func (m *Molecule) Labels() []string {
	labels := make([]string, len(m.transitions))
	for i, tr := range m.transitions {
		labels[i] = tr.Label
	}
	return labels
}

// Transition looks up a transition by its label.
//
// Parameters:
//   - label: The transition name (e.g., "1-0").
//
// Returns:
//   - Transition: The matching transition.
//   - bool: Whether the label exists in the table.
func (m *Molecule) Transition(label string) (Transition, bool) {
	i, ok := m.byLabel[label]
	if !ok {
		return Transition{}, false
	}
	return m.transitions[i], true
}

// ParseFile parses a LAMDA datafile from disk.
func ParseFile(path string) (*Molecule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mol, err := Parse(f)
	if err != nil {
		return nil, apperrors.WrapError(err, "parsing %s", path)
	}
	mol.Path = path
	return mol, nil
}

// Parse parses a LAMDA datafile. The format interleaves "!" comment lines
// with data sections: molecule name, molecular weight, level count and table,
// transition count and table, then collision partner sections (which the
// solver consumes but this resolver does not need beyond their presence).
func Parse(r io.Reader) (*Molecule, error) {
	sc := newSectionScanner(r)

	name, err := sc.next()
	if err != nil {
		return nil, apperrors.WrapError(err, "reading molecule name")
	}

	weightLine, err := sc.next()
	if err != nil {
		return nil, apperrors.WrapError(err, "reading molecular weight")
	}
	weight, err := strconv.ParseFloat(strings.Fields(weightLine)[0], 64)
	if err != nil {
		return nil, apperrors.NewParseError("bad molecular weight %q", weightLine)
	}

	levels, err := parseLevels(sc)
	if err != nil {
		return nil, err
	}

	transitions, err := parseTransitions(sc, levels)
	if err != nil {
		return nil, err
	}

	byLabel := make(map[string]int, len(transitions))
	for i, tr := range transitions {
		byLabel[tr.Label] = i
	}

	return &Molecule{
		Name:        strings.TrimSpace(name),
		Weight:      weight,
		levels:      levels,
		transitions: transitions,
		byLabel:     byLabel,
	}, nil
}

func parseLevels(sc *sectionScanner) ([]Level, error) {
	countLine, err := sc.next()
	if err != nil {
		return nil, apperrors.WrapError(err, "reading level count")
	}
	count, err := strconv.Atoi(strings.Fields(countLine)[0])
	if err != nil || count < 1 {
		return nil, apperrors.NewParseError("bad level count %q", countLine)
	}

	levels := make([]Level, 0, count)
	for i := 0; i < count; i++ {
		line, err := sc.next()
		if err != nil {
			return nil, apperrors.WrapError(err, "reading level %d", i+1)
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, apperrors.NewParseError("level line %q has %d fields, want >= 4", line, len(fields))
		}

		index, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, apperrors.NewParseError("bad level index in %q", line)
		}
		energy, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, apperrors.NewParseError("bad level energy in %q", line)
		}
		w, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, apperrors.NewParseError("bad level weight in %q", line)
		}

		levels = append(levels, Level{
			Index:  index,
			Energy: energy,
			Weight: w,
			QN:     formatQN(strings.Join(fields[3:], " ")),
		})
	}
	return levels, nil
}

func parseTransitions(sc *sectionScanner, levels []Level) ([]Transition, error) {
	countLine, err := sc.next()
	if err != nil {
		return nil, apperrors.WrapError(err, "reading transition count")
	}
	count, err := strconv.Atoi(strings.Fields(countLine)[0])
	if err != nil || count < 1 {
		return nil, apperrors.NewParseError("bad transition count %q", countLine)
	}

	qnOf := make(map[int]string, len(levels))
	for _, lv := range levels {
		qnOf[lv.Index] = lv.QN
	}

	transitions := make([]Transition, 0, count)
	for i := 0; i < count; i++ {
		line, err := sc.next()
		if err != nil {
			return nil, apperrors.WrapError(err, "reading transition %d", i+1)
		}
		fields := strings.Fields(line)
		if len(fields) < 6 {
			return nil, apperrors.NewParseError("transition line %q has %d fields, want >= 6", line, len(fields))
		}

		index, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, apperrors.NewParseError("bad transition index in %q", line)
		}
		upper, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, apperrors.NewParseError("bad upper level in %q", line)
		}
		lower, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, apperrors.NewParseError("bad lower level in %q", line)
		}
		a, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, apperrors.NewParseError("bad Einstein A in %q", line)
		}
		freq, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, apperrors.NewParseError("bad frequency in %q", line)
		}
		eup, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			return nil, apperrors.NewParseError("bad upper state energy in %q", line)
		}

		qnU, okU := qnOf[upper]
		qnL, okL := qnOf[lower]
		if !okU || !okL {
			return nil, apperrors.NewParseError("transition %d references unknown level (%d or %d)", index, upper, lower)
		}

		transitions = append(transitions, Transition{
			Index:     index,
			Upper:     upper,
			Lower:     lower,
			EinsteinA: a,
			Frequency: freq,
			EUp:       eup,
			Label:     qnU + "-" + qnL,
		})
	}
	return transitions, nil
}

// sectionScanner yields non-comment lines of a LAMDA datafile, skipping the
// "!" section markers that precede every data block.
type sectionScanner struct {
	sc *bufio.Scanner
}

func newSectionScanner(r io.Reader) *sectionScanner {
	return &sectionScanner{sc: bufio.NewScanner(r)}
}

func (s *sectionScanner) next() (string, error) {
	for s.sc.Scan() {
		line := strings.TrimSpace(s.sc.Text())
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}
		return line, nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.ErrUnexpectedEOF
}

var (
	qnQuotes    = regexp.MustCompile(`'|"`)
	qnSeps      = regexp.MustCompile(`\s+|_+`)
	qnIntZero   = regexp.MustCompile(`^0([0-9])$`)
	qnFloatZero = regexp.MustCompile(`([0-9]+\.[0-9]+?)0+$`)
	qnComposite = regexp.MustCompile(`(.*,.*)`)
)

// formatQN normalizes a raw quantum number string into a stable label part:
// quotes are stripped, separators become commas, superfluous zeros are
// trimmed, and composite quantum numbers are parenthesized so labels like
// "(1,0.5)-(0,0.5)" stay unambiguous.
func formatQN(qn string) string {
	qn = qnQuotes.ReplaceAllString(qn, "")
	qn = strings.TrimSpace(qn)
	qn = qnSeps.ReplaceAllString(qn, ",")

	parts := strings.Split(qn, ",")
	for i, p := range parts {
		p = qnIntZero.ReplaceAllString(p, "$1")
		p = qnFloatZero.ReplaceAllString(p, "$1")
		parts[i] = p
	}
	qn = strings.Join(parts, ",")

	return qnComposite.ReplaceAllString(qn, "($1)")
}
