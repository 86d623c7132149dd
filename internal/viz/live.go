package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/antioch-orontes/kneecontrol/internal/loop"
	"github.com/antioch-orontes/kneecontrol/internal/telemetry"
)

const (
	historyLen = 240
	frameRate  = 60
	barWidth   = 30
)

type TickMsg time.Time

// Live steps a session at wall-clock speed times the playback factor.
type Live struct {
	sess    *loop.Session
	period  float64
	profile string

	last    telemetry.Frame
	angle   []float64
	torque  []float64
	percent []float64

	speed   float64
	paused  bool
	err     error
	budget  float64
	started bool
}

// NewLive wraps a started session. period is the session's control period.
func NewLive(sess *loop.Session, period float64, profile string) *Live {
	return &Live{
		sess:    sess,
		period:  period,
		profile: profile,
		speed:   1,
		angle:   make([]float64, 0, historyLen),
		torque:  make([]float64, 0, historyLen),
		percent: make([]float64, 0, historyLen),
	}
}

func (m *Live) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.sess.Stop()
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "+", "=":
			m.speed = math.Min(m.speed*2, 64)
		case "-", "_":
			m.speed = math.Max(m.speed/2, 1.0/64)
		}

	case TickMsg:
		if !m.paused && m.err == nil {
			m.advance(m.speed / frameRate)
		}
		return m, tickCmd()
	}

	return m, nil
}

// advance runs as many cycles as fit in dt seconds of loop time. Fractional
// cycles carry over to the next tick.
func (m *Live) advance(dt float64) {
	m.budget += dt
	n := int(m.budget / m.period)
	m.budget -= float64(n) * m.period

	for i := 0; i < n && !m.sess.Done(); i++ {
		f, err := m.sess.Next()
		if err != nil {
			m.err = err
			m.sess.Stop()
			return
		}
		m.last = f
		m.started = true
		m.angle = push(m.angle, f.Angle)
		m.torque = push(m.torque, f.DesiredTorque)
		m.percent = push(m.percent, f.Percent)
	}
	if m.sess.Done() {
		m.sess.Stop()
	}
}

func push(buf []float64, v float64) []float64 {
	if len(buf) >= historyLen {
		buf = buf[1:]
	}
	return append(buf, v)
}

// Frame returns the most recent frame.
func (m *Live) Frame() telemetry.Frame { return m.last }

func (m *Live) Paused() bool { return m.paused }

func (m *Live) Speed() float64 { return m.speed }

func (m *Live) Err() error { return m.err }

func (m *Live) View() string {
	var b strings.Builder

	b.WriteString(Header("KNEECONTROL - " + strings.ToUpper(m.profile)))
	b.WriteString("\n")

	status := runStyle.Render("RUNNING")
	switch {
	case m.err != nil:
		status = errorStyle.Render("ERROR: " + m.err.Error())
	case m.sess.Done():
		status = pausedStyle.Render("DONE")
	case m.paused:
		status = pausedStyle.Render("PAUSED")
	}

	f := m.last
	rows := []string{
		labelStyle.Render("Status") + status,
		labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.3f s  (x%g)", m.sess.Time(), m.speed)),
		labelStyle.Render("State") + StateBadge(f.State),
		labelStyle.Render("Angle") + valueStyle.Render(fmt.Sprintf("%7.2f deg  %8.1f deg/s", f.Angle, f.Velocity)),
		labelStyle.Render("Load cells") + valueStyle.Render(fmt.Sprintf("%6.0f %6.0f  diff %+5.0f", f.LoadCell1, f.LoadCell2, f.LoadCell2-f.LoadCell1)),
		labelStyle.Render("Torque") + valueStyle.Render(fmt.Sprintf("%+7.3f Nm  measured %+7.3f", f.DesiredTorque, f.MeasuredTorque)),
		labelStyle.Render("Drive") + valueStyle.Render(PercentBar(f.Percent, barWidth)),
		labelStyle.Render("Transitions") + valueStyle.Render(fmt.Sprintf("%d", len(m.sess.Transitions()))),
	}
	info := panelStyle.Render(strings.Join(rows, "\n"))

	graphs := ""
	if m.started && len(m.angle) > 1 {
		angle := asciigraph.Plot(m.angle, asciigraph.Height(6), asciigraph.Width(40), asciigraph.Caption("angle (deg)"))
		torque := asciigraph.Plot(m.torque, asciigraph.Height(6), asciigraph.Width(40), asciigraph.Caption("desired torque (Nm)"))
		graphs = graphStyle.Render(lipgloss.JoinVertical(lipgloss.Left, angle, "", torque))
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, info, "  ", graphs))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("space: pause  +/-: speed  q: quit"))

	return b.String()
}

// PercentBar draws a signed duty command centred on zero, flexion to the right.
func PercentBar(percent float64, width int) string {
	half := width / 2
	n := int(math.Round(math.Min(math.Abs(percent), 1) * float64(half)))
	left := strings.Repeat(" ", half)
	right := strings.Repeat(" ", half)
	if percent < 0 {
		left = strings.Repeat(" ", half-n) + strings.Repeat("█", n)
	} else {
		right = strings.Repeat("█", n) + strings.Repeat(" ", half-n)
	}
	return fmt.Sprintf("[%s|%s] %+6.1f%%", left, right, 100*percent)
}
