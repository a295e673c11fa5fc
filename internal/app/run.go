package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/astropenguin/ndradex/internal/cli"
	"github.com/astropenguin/ndradex/internal/dispatch"
	apperrors "github.com/astropenguin/ndradex/internal/errors"
	"github.com/astropenguin/ndradex/internal/grid"
	"github.com/astropenguin/ndradex/internal/lamda"
	"github.com/astropenguin/ndradex/internal/logging"
	"github.com/astropenguin/ndradex/internal/metrics"
	"github.com/astropenguin/ndradex/internal/nd"
	"github.com/astropenguin/ndradex/internal/radex"
	"github.com/astropenguin/ndradex/internal/server"
	"github.com/astropenguin/ndradex/internal/tui"
)

// runGrid orchestrates a full grid run: resolve the molecular data, build
// the parameter grid, dispatch the solver jobs, and write the dataset.
func (a *Application) runGrid(ctx context.Context, out io.Writer) int {
	logger := logging.NewLogger(a.ErrWriter, "ndradex")

	if a.Config.Species == "" {
		fmt.Fprintln(a.ErrWriter, "Error: no species given (use --species or a config file)")
		return apperrors.ExitErrorConfig
	}
	if len(a.Config.Transitions) == 0 {
		fmt.Fprintln(a.ErrWriter, "Error: no transitions given (use --transitions or a config file)")
		return apperrors.ExitErrorConfig
	}

	observer := dispatch.Observer(dispatch.NullObserver{})
	var metricsServer *server.Server
	if a.Config.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		observer = metrics.NewJobMetrics(registry)
		metricsServer = server.New(a.Config.MetricsAddr, registry, logger)
		metricsServer.Start()
		defer func() {
			if err := metricsServer.Shutdown(context.Background()); err != nil {
				logger.Error("metrics server shutdown failed", err)
			}
		}()
	}

	// Lifecycle: SIGINT/SIGTERM stop admission of new jobs; running solver
	// processes finish within their per-job budget.
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	molecule, err := a.resolveMolecule(ctx)
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Error resolving molecular data: %v\n", err)
		if apperrors.IsContextError(err) {
			return apperrors.ExitErrorCanceled
		}
		return apperrors.ExitErrorData
	}

	req, err := a.Config.GridRequest()
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	g, err := grid.New(req, molecule, a.Config.Timeout)
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		return apperrors.ExitErrorConfig
	}

	workDir, err := os.MkdirTemp("", "ndradex-*")
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Error creating scratch directory: %v\n", err)
		return apperrors.ExitErrorGeneric
	}
	defer os.RemoveAll(workDir)

	runner := radex.NewRunner(a.Config.BinDir, workDir, radex.WithRunnerLogger(logger))
	dispatcher := dispatch.New(runner, a.Config.Workers,
		dispatch.WithLogger(logger), dispatch.WithObserver(observer))

	reporter, progressOut := a.selectReporter(cancel, out)
	if !a.Config.Quiet && !a.Config.TUI {
		cli.PrintRunConfig(g, a.Config.Workers, a.Config.Timeout, out)
	}

	start := time.Now()
	ds, runErr := dispatcher.Run(ctx, g, reporter, progressOut)
	elapsed := time.Since(start)

	return a.report(ds, runErr, elapsed, out)
}

// resolveMolecule fetches and parses the LAMDA datafile for the configured
// species, consulting the alias table and the on-disk cache.
func (a *Application) resolveMolecule(ctx context.Context) (*lamda.Molecule, error) {
	resolver := lamda.NewResolver(a.Config.Aliases, a.Config.CacheDir,
		lamda.WithLogger(logging.NewLogger(a.ErrWriter, "lamda")))
	return resolver.Resolve(ctx, a.Config.Species)
}

// selectReporter picks the progress presentation for the run mode.
func (a *Application) selectReporter(cancel context.CancelFunc, out io.Writer) (dispatch.ProgressReporter, io.Writer) {
	switch {
	case a.Config.Quiet:
		return dispatch.NullProgressReporter{}, io.Discard
	case a.Config.TUI:
		return tui.NewReporter(cancel, Version), out
	default:
		return cli.CLIProgressReporter{}, out
	}
}

// report writes the dataset and summary, then maps the run outcome to an
// exit code.
func (a *Application) report(ds *nd.Dataset, runErr error, elapsed time.Duration, out io.Writer) int {
	if ds != nil && a.Config.OutputFile != "" {
		if err := ds.SaveFile(a.Config.OutputFile); err != nil {
			fmt.Fprintf(a.ErrWriter, "Error saving dataset: %v\n", err)
			return apperrors.ExitErrorGeneric
		}
	}

	if ds != nil && !a.Config.Quiet {
		cli.PrintSummary(ds, elapsed, out)
		cli.PrintDiagnostics(ds, 10, out)
		if a.Config.OutputFile != "" {
			fmt.Fprintf(out, "Dataset saved to %s\n", a.Config.OutputFile)
		}
	}

	var allFailed apperrors.AllJobsFailedError
	switch {
	case runErr == nil:
		return apperrors.ExitSuccess
	case apperrors.IsContextError(runErr):
		fmt.Fprintf(a.ErrWriter, "Run canceled: %v\n", runErr)
		return apperrors.ExitErrorCanceled
	case errors.As(runErr, &allFailed):
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", runErr)
		return apperrors.ExitErrorAllJobs
	default:
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", runErr)
		return apperrors.ExitErrorGeneric
	}
}
