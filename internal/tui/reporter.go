package tui

import (
	"context"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/astropenguin/ndradex/internal/dispatch"
)

// Reporter renders grid progress as a full-screen dashboard. It implements
// the dispatcher's ProgressReporter interface.
type Reporter struct {
	cancel  context.CancelFunc
	version string
}

// Verify interface compliance.
var _ dispatch.ProgressReporter = (*Reporter)(nil)

// NewReporter creates a dashboard reporter. cancel is invoked when the user
// quits, stopping admission of new jobs while running jobs finish.
func NewReporter(cancel context.CancelFunc, version string) *Reporter {
	return &Reporter{cancel: cancel, version: version}
}

// DisplayProgress runs the dashboard until the update channel is closed.
//
// Parameters:
//   - wg: A WaitGroup to signal when display is complete.
//   - updates: Channel receiving per-job progress events.
//   - total: The total number of jobs in the grid.
//   - out: The writer for dashboard output.
func (r *Reporter) DisplayProgress(wg *sync.WaitGroup, updates <-chan dispatch.ProgressUpdate, total int, out io.Writer) {
	defer wg.Done()

	// Rebuild styles from the current ui theme (set by app.Run via InitTheme).
	initTUIStyles()

	p := tea.NewProgram(NewModel(total, r.version, r.cancel),
		tea.WithOutput(out), tea.WithAltScreen())

	// Forward dispatcher updates as messages. Send is a no-op once the
	// program has finished, so this also drains the channel if the
	// dashboard exits early and keeps the dispatcher from blocking.
	go func() {
		for update := range updates {
			p.Send(jobMsg(update))
		}
		p.Send(runDoneMsg{})
	}()

	_, _ = p.Run()
}
