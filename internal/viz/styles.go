package viz

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/antioch-orontes/kneecontrol/internal/knee"
)

var (
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444466")).Padding(1, 2)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	pausedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
	runStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))
)

var stateColors = map[knee.GaitState]lipgloss.Color{
	knee.EarlyStance:    lipgloss.Color("#00ffff"),
	knee.PreSwingStance: lipgloss.Color("#0088ff"),
	knee.SwingFlexion:   lipgloss.Color("#ff00ff"),
	knee.SwingExtension: lipgloss.Color("#ffff00"),
	knee.IdleStance:     lipgloss.Color("#888888"),
}

// StateBadge renders a state name in its colour.
func StateBadge(s knee.GaitState) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#000000")).
		Background(stateColors[s]).
		Padding(0, 1).
		Render(s.String())
}

// Header renders a section title.
func Header(s string) string {
	return headerStyle.Render(s)
}
