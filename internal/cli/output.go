package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/astropenguin/ndradex/internal/format"
	"github.com/astropenguin/ndradex/internal/grid"
	"github.com/astropenguin/ndradex/internal/nd"
	"github.com/astropenguin/ndradex/internal/radex"
	"github.com/astropenguin/ndradex/internal/ui"
)

// PrintRunConfig displays the resolved run configuration before dispatch:
// the molecule, the active grid dimensions, and the execution knobs.
func PrintRunConfig(g *grid.Grid, workers int, timeout time.Duration, out io.Writer) {
	fmt.Fprintf(out, "%s %s\n", ui.Bold("Molecule:"), g.Molecule().Description())

	dims := g.Dims()
	if len(dims) == 0 {
		fmt.Fprintf(out, "%s single point (no active dimensions)\n", ui.Bold("Grid:"))
	} else {
		names := make([]string, len(dims))
		for i, dim := range dims {
			names[i] = fmt.Sprintf("%s=%d", dim.Name, dim.Len())
		}
		fmt.Fprintf(out, "%s %s (%d jobs)\n", ui.Bold("Grid:"), strings.Join(names, " × "), g.Size())
	}
	fmt.Fprintf(out, "%s %d workers, %s per-job timeout\n\n", ui.Bold("Execution:"), workers, timeout)
}

// PrintSummary displays the post-run summary: the status tally, the elapsed
// time, and the single result row when the grid was scalar.
func PrintSummary(ds *nd.Dataset, elapsed time.Duration, out io.Writer) {
	counts := ds.CountByStatus()
	parts := []string{
		ui.Success(fmt.Sprintf("%d completed", counts[radex.StatusCompleted])),
	}
	if n := counts[radex.StatusTimedOut]; n > 0 {
		parts = append(parts, ui.Warning(fmt.Sprintf("%d timed out", n)))
	}
	if n := counts[radex.StatusSolverFailed]; n > 0 {
		parts = append(parts, ui.Error(fmt.Sprintf("%d solver failures", n)))
	}
	if n := counts[radex.StatusParseFailed]; n > 0 {
		parts = append(parts, ui.Error(fmt.Sprintf("%d unparsable", n)))
	}
	if n := counts[radex.StatusCanceled]; n > 0 {
		parts = append(parts, ui.Warning(fmt.Sprintf("%d canceled", n)))
	}

	fmt.Fprintf(out, "\n%s %s in %s\n", ui.Bold("Result:"),
		strings.Join(parts, ", "), format.FormatExecutionDuration(elapsed))

	if ds.Size() == 1 {
		printScalarResult(ds, out)
	}
}

// printScalarResult renders the ten output values of a single-point run.
func printScalarResult(ds *nd.Dataset, out io.Writer) {
	rows := []struct {
		name string
		unit string
	}{
		{nd.VarEUp, "K"},
		{nd.VarFreq, "GHz"},
		{nd.VarWavel, "um"},
		{nd.VarTEx, "K"},
		{nd.VarTau, ""},
		{nd.VarTR, "K"},
		{nd.VarPopUp, ""},
		{nd.VarPopLow, ""},
		{nd.VarI, "K km/s"},
		{nd.VarF, "erg/s/cm2"},
	}
	for _, row := range rows {
		value, ok := ds.At(row.name)
		if !ok {
			continue
		}
		if row.unit != "" {
			fmt.Fprintf(out, "  %-8s %12.6g %s\n", row.name, value, row.unit)
		} else {
			fmt.Fprintf(out, "  %-8s %12.6g\n", row.name, value)
		}
	}
}

// PrintDiagnostics lists the failed cells with their reasons, capped so a
// large grid cannot flood the terminal.
func PrintDiagnostics(ds *nd.Dataset, limit int, out io.Writer) {
	if limit <= 0 {
		limit = 10
	}
	shown := 0
	for i, diag := range ds.Diagnostics() {
		if diag.Status == radex.StatusCompleted {
			continue
		}
		if shown == limit {
			fmt.Fprintf(out, "  ... further failures omitted\n")
			return
		}
		fmt.Fprintf(out, "  cell %d: %s (%s)\n", i, diag.Status, diag.Reason)
		shown++
	}
}
