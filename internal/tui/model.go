// Package tui implements an interactive dashboard for a grid run. It shows
// live job progress, per-status tallies, an ETA, and system load sparklines
// while the solver pool works through the grid.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/astropenguin/ndradex/internal/dispatch"
	"github.com/astropenguin/ndradex/internal/format"
	"github.com/astropenguin/ndradex/internal/metrics"
	"github.com/astropenguin/ndradex/internal/radex"
	"github.com/astropenguin/ndradex/internal/sysmon"
)

const (
	// recentJobLines is the number of job events kept in the activity panel.
	recentJobLines = 8
	// sysSampleCap bounds the sparkline history.
	sysSampleCap = 120
	// tickInterval drives the clock and the system-load sampling.
	tickInterval = 500 * time.Millisecond
)

// Messages exchanged with the bubbletea runtime.
type (
	// jobMsg carries one job completion event from the dispatcher.
	jobMsg dispatch.ProgressUpdate
	// runDoneMsg signals that the dispatcher has closed the update channel.
	runDoneMsg struct{}
	// tickMsg drives periodic redraws and sampling.
	tickMsg time.Time
	// sysStatsMsg carries system-load and orchestrator memory samples.
	sysStatsMsg struct {
		sys  sysmon.Stats
		heap metrics.MemorySnapshot
	}
)

// Model is the root bubbletea model for the run dashboard.
type Model struct {
	keymap key.Binding
	bar    progress.Model

	total    int
	done     int
	counts   map[radex.Status]int
	recent   []dispatch.ProgressUpdate
	tracker  *format.ETATracker
	eta      time.Duration
	finished bool
	stopping bool

	cpu  *RingBuffer
	mem  *RingBuffer
	heap metrics.MemorySnapshot

	startTime time.Time
	version   string
	cancel    context.CancelFunc

	width  int
	height int
}

// NewModel creates a dashboard model for a run of total jobs. cancel stops
// admission of new jobs when the user quits; in-flight jobs still finish.
func NewModel(total int, version string, cancel context.CancelFunc) Model {
	return Model{
		keymap:    DefaultKeyMap().Quit,
		bar:       progress.New(progress.WithDefaultGradient()),
		total:     total,
		counts:    make(map[radex.Status]int),
		tracker:   format.NewETATracker(),
		cpu:       NewRingBuffer(sysSampleCap),
		mem:       NewRingBuffer(sysSampleCap),
		startTime: time.Now(),
		version:   version,
		cancel:    cancel,
	}
}

// Init returns the initial commands.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keymap) {
			if m.cancel != nil {
				m.cancel()
			}
			m.stopping = true
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = m.panelInnerWidth()
		m.cpu.Resize(m.sparklineWidth())
		m.mem.Resize(m.sparklineWidth())
		return m, nil

	case jobMsg:
		update := dispatch.ProgressUpdate(msg)
		m.done = update.Done
		m.counts[update.Status]++
		m.recent = append(m.recent, update)
		if len(m.recent) > recentJobLines {
			m.recent = m.recent[1:]
		}
		m.eta = m.tracker.Update(update.Done, update.Total)
		return m, nil

	case runDoneMsg:
		m.finished = true
		return m, tea.Quit

	case tickMsg:
		if m.finished {
			return m, nil
		}
		return m, tea.Batch(sampleSysStatsCmd(), tickCmd())

	case sysStatsMsg:
		m.cpu.Push(msg.sys.CPUPercent)
		m.mem.Push(msg.sys.MemPercent)
		m.heap = msg.heap
		return m, nil
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		m.progressView(),
		m.activityView(),
		m.systemView(),
		m.footerView(),
	)
}

func (m Model) headerView() string {
	title := titleStyle.Render("ndRADEX")
	version := versionStyle.Render(m.version)
	elapsed := elapsedStyle.Render(time.Since(m.startTime).Round(time.Second).String())
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(version) - lipgloss.Width(elapsed) - 3
	if gap < 1 {
		gap = 1
	}
	return fmt.Sprintf(" %s %s%s%s", title, version, strings.Repeat(" ", gap), elapsed)
}

func (m Model) progressView() string {
	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}

	var b strings.Builder
	b.WriteString(m.bar.ViewAs(pct))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s   %s %s",
		labelStyle.Render("jobs"),
		valueStyle.Render(fmt.Sprintf("%d/%d", m.done, m.total)),
		labelStyle.Render("ETA"),
		valueStyle.Render(format.FormatETA(m.eta)))
	if failed := m.failedCount(); failed > 0 {
		fmt.Fprintf(&b, "   %s", statusErrorStyle.Render(fmt.Sprintf("%d failed", failed)))
	}
	if m.stopping {
		fmt.Fprintf(&b, "   %s", statusWarnStyle.Render("stopping: waiting for running jobs"))
	}
	return m.panel("progress", b.String())
}

func (m Model) activityView() string {
	if len(m.recent) == 0 {
		return m.panel("activity", labelStyle.Render("waiting for first result..."))
	}
	lines := make([]string, len(m.recent))
	for i, update := range m.recent {
		lines[i] = fmt.Sprintf("%s %s",
			jobSeqStyle.Render(fmt.Sprintf("job %06d", update.Seq)),
			statusStyle(update.Status).Render(update.Status.String()))
	}
	return m.panel("activity", strings.Join(lines, "\n"))
}

func (m Model) systemView() string {
	cpu := fmt.Sprintf("%s %5.1f%% %s",
		labelStyle.Render("cpu"), m.cpu.Last(),
		cpuSparklineStyle.Render(RenderSparkline(m.cpu.Slice())))
	mem := fmt.Sprintf("%s %5.1f%% %s",
		labelStyle.Render("mem"), m.mem.Last(),
		memSparklineStyle.Render(RenderSparkline(m.mem.Slice())))
	heap := fmt.Sprintf("%s %s (%d GCs)",
		labelStyle.Render("heap"),
		valueStyle.Render(formatBytes(m.heap.HeapAlloc)),
		m.heap.NumGC)
	return m.panel("system", cpu+"\n"+mem+"\n"+heap)
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func (m Model) footerView() string {
	return fmt.Sprintf(" %s %s",
		footerKeyStyle.Render("q"),
		footerDescStyle.Render("stop admitting new jobs and finish"))
}

func (m Model) panel(title, content string) string {
	style := panelStyle.Width(m.panelInnerWidth())
	return style.Render(titleStyle.Render(title) + "\n" + content)
}

func (m Model) panelInnerWidth() int {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) sparklineWidth() int {
	w := m.panelInnerWidth() - 12
	if w < 10 {
		w = 10
	}
	if w > sysSampleCap {
		w = sysSampleCap
	}
	return w
}

func (m Model) failedCount() int {
	failed := 0
	for status, n := range m.counts {
		if status != radex.StatusCompleted {
			failed += n
		}
	}
	return failed
}

// statusStyle maps a job status to its display style.
func statusStyle(status radex.Status) lipgloss.Style {
	switch status {
	case radex.StatusCompleted:
		return statusOKStyle
	case radex.StatusTimedOut, radex.StatusCanceled:
		return statusWarnStyle
	default:
		return statusErrorStyle
	}
}

// tickCmd returns a command that sends a tickMsg after the tick interval.
func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// sampleSysStatsCmd reads system-wide CPU/memory stats and the
// orchestrator's own heap usage.
func sampleSysStatsCmd() tea.Cmd {
	return func() tea.Msg {
		return sysStatsMsg{
			sys:  sysmon.Sample(),
			heap: metrics.NewMemoryCollector().Snapshot(),
		}
	}
}
