// Package tui renders a live view of an evolution run in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/grt43/genetic-ode/internal/evolve"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	exprStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type statsMsg evolve.Stats

type doneMsg struct{}

// Model consumes per-generation stats from a running engine. Quitting the
// view cancels the run through the supplied context cancel function.
type Model struct {
	stats   <-chan evolve.Stats
	cancel  context.CancelFunc
	latest  evolve.Stats
	history []float64
	done    bool
	width   int
}

// NewModel builds a live view fed by stats; cancel stops the underlying
// run when the user quits.
func NewModel(stats <-chan evolve.Stats, cancel context.CancelFunc) Model {
	return Model{stats: stats, cancel: cancel, width: 80}
}

func (m Model) Init() tea.Cmd {
	return waitForStats(m.stats)
}

func waitForStats(ch <-chan evolve.Stats) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return doneMsg{}
		}
		return statsMsg(s)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statsMsg:
		m.latest = evolve.Stats(msg)
		m.history = append(m.history, m.latest.BestFitness)
		return m, waitForStats(m.stats)
	case doneMsg:
		m.done = true
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("genetic-ode — evolving x' = f(x, t)"))
	b.WriteByte('\n')

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteByte('\n')
	}
	row("generation", fmt.Sprintf("%d", m.latest.Generation))
	row("best fitness", fmt.Sprintf("%.6f", m.latest.BestFitness))
	row("mean fitness", fmt.Sprintf("%.6f", m.latest.MeanFitness))
	row("best error", fmt.Sprintf("%.6g", m.latest.BestError))

	b.WriteString(labelStyle.Render("best f(x, t)"))
	b.WriteString(exprStyle.Render(m.latest.BestExpr))
	b.WriteByte('\n')

	if len(m.history) > 1 {
		width := m.width - 10
		if width > 70 {
			width = 70
		}
		if width > 10 {
			graph := asciigraph.Plot(m.history,
				asciigraph.Height(8),
				asciigraph.Width(width),
				asciigraph.Caption("best fitness by generation"),
			)
			b.WriteString(graphStyle.Render(graph))
			b.WriteByte('\n')
		}
	}

	if m.done {
		b.WriteString(doneStyle.Render("run complete"))
		b.WriteByte('\n')
	}
	b.WriteString(helpStyle.Render("q: quit"))
	b.WriteByte('\n')

	return b.String()
}
