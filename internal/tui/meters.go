// SPDX-License-Identifier: MIT
// Package tui renders live band meters in the terminal, the built-in
// consumer of the analysis pipeline.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pulseviz/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	beatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

const meterWidth = 40

// snapshotMsg wraps a pipeline snapshot for the Bubble Tea update loop.
type snapshotMsg pipeline.Snapshot

// closedMsg signals the pipeline shut down underneath us.
type closedMsg struct{}

// MetersModel renders bass/mid/treble/volume meters, the beat indicator,
// and the tempo-sync status line.
type MetersModel struct {
	snapshots  <-chan pipeline.Snapshot
	last       pipeline.Snapshot
	sourceName string
	width      int
}

// NewMetersModel builds a model reading from snapshots. sourceName is
// shown in the header ("live: <device>" or "synthetic").
func NewMetersModel(snapshots <-chan pipeline.Snapshot, sourceName string) MetersModel {
	return MetersModel{
		snapshots:  snapshots,
		sourceName: sourceName,
		width:      meterWidth,
	}
}

// waitForSnapshot blocks on the pipeline channel as a Bubble Tea command.
func (m MetersModel) waitForSnapshot() tea.Msg {
	snap, ok := <-m.snapshots
	if !ok {
		return closedMsg{}
	}
	return snapshotMsg(snap)
}

func (m MetersModel) Init() tea.Cmd {
	return m.waitForSnapshot
}

func (m MetersModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.last = pipeline.Snapshot(msg)
		return m, m.waitForSnapshot

	case closedMsg:
		return m, tea.Quit

	case tea.WindowSizeMsg:
		if w := msg.Width - 20; w > 10 && w < 80 {
			m.width = w
		}

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"))) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m MetersModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("pulseviz"))
	b.WriteString(infoStyle.Render(fmt.Sprintf("  source: %s\n\n", m.sourceName)))

	b.WriteString(m.renderMeter("bass  ", m.last.Levels.Bass))
	b.WriteString(m.renderMeter("mid   ", m.last.Levels.Mid))
	b.WriteString(m.renderMeter("treble", m.last.Levels.Treble))
	b.WriteString(m.renderMeter("volume", m.last.Levels.Volume))

	b.WriteString("\n")
	if m.last.Beat {
		b.WriteString(beatStyle.Render(fmt.Sprintf("  BEAT %.0f%%", m.last.Intensity*100)))
	} else {
		b.WriteString(mutedStyle.Render("  ----"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderLink())
	b.WriteString(mutedStyle.Render("\n  q to quit\n"))
	return b.String()
}

// renderMeter draws one labeled horizontal bar for a level in [0,1].
func (m MetersModel) renderMeter(label string, level float64) string {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}

	filled := int(level * float64(m.width))
	bar := highlightStyle.Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", m.width-filled))
	return fmt.Sprintf("  %s %s %5.1f%%\n", infoStyle.Render(label), bar, level*100)
}

// renderLink draws the tempo-sync status line.
func (m MetersModel) renderLink() string {
	link := m.last.Link
	if link == nil || !link.Enabled {
		return mutedStyle.Render("  link: off\n")
	}

	transport := "stopped"
	if link.Playing {
		transport = "playing"
	}
	return infoStyle.Render(fmt.Sprintf("  link: %.1f BPM  beat %.1f  phase %.2f  peers %d  %s\n",
		link.Tempo, link.Beat, link.Phase, link.Peers, transport))
}

// Run drives the meters until the user quits or the pipeline closes.
func Run(snapshots <-chan pipeline.Snapshot, sourceName string) error {
	program := tea.NewProgram(NewMetersModel(snapshots, sourceName))
	_, err := program.Run()
	return err
}
