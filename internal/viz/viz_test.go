package viz

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/antioch-orontes/kneecontrol/internal/actuator"
	"github.com/antioch-orontes/kneecontrol/internal/gait"
	"github.com/antioch-orontes/kneecontrol/internal/knee"
	"github.com/antioch-orontes/kneecontrol/internal/loop"
	"github.com/antioch-orontes/kneecontrol/internal/telemetry"
)

func newLive(t *testing.T) *Live {
	t.Helper()
	p, err := gait.Lookup("level")
	if err != nil {
		t.Fatal(err)
	}
	trace, err := gait.NewTrace(p, gait.Noise{}, 1)
	if err != nil {
		t.Fatal(err)
	}
	drv := actuator.NewDriver(knee.DefaultPeakCurrent)
	ctrl, err := knee.NewController(knee.WithActuator(drv))
	if err != nil {
		t.Fatal(err)
	}
	cfg := loop.DefaultConfig()
	cfg.Duration = 0.5
	sess, err := loop.New(trace, ctrl, drv).Start(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return NewLive(sess, cfg.Period, "level")
}

func TestLiveTickAdvances(t *testing.T) {
	m := newLive(t)

	_, cmd := m.Update(TickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("expected another tick to be scheduled")
	}
	if m.sess.Time() <= 0 {
		t.Errorf("expected loop time to advance, got %f", m.sess.Time())
	}
	if m.Frame().State != knee.EarlyStance {
		t.Errorf("expected first stride to leave idle, got %s", m.Frame().State)
	}
}

func TestLivePause(t *testing.T) {
	m := newLive(t)

	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	if !m.Paused() {
		t.Fatal("expected paused after space")
	}
	m.Update(TickMsg(time.Now()))
	if m.sess.Time() != 0 {
		t.Errorf("paused model advanced to %f", m.sess.Time())
	}
}

func TestLiveSpeed(t *testing.T) {
	m := newLive(t)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("+")})
	if m.Speed() != 2 {
		t.Errorf("expected speed 2, got %g", m.Speed())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	if m.Speed() != 0.5 {
		t.Errorf("expected speed 0.5, got %g", m.Speed())
	}
}

func TestLiveQuit(t *testing.T) {
	m := newLive(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestLiveRunsToCompletion(t *testing.T) {
	m := newLive(t)
	m.speed = 64

	for i := 0; i < 10; i++ {
		m.Update(TickMsg(time.Now()))
	}
	if !m.sess.Done() {
		t.Fatalf("expected session done, at %f", m.sess.Time())
	}
	if !strings.Contains(m.View(), "DONE") {
		t.Error("expected DONE in view")
	}
}

func TestPercentBar(t *testing.T) {
	tests := []struct {
		percent float64
		flex    int
		ext     int
	}{
		{0, 0, 0},
		{0.2, 2, 0},
		{-0.2, 0, 2},
		{1.5, 10, 0},
	}

	for _, tt := range tests {
		bar := PercentBar(tt.percent, 20)
		mid := strings.Index(bar, "|")
		left, right := bar[:mid], bar[mid:]
		if got := strings.Count(right, "█"); got != tt.flex {
			t.Errorf("PercentBar(%g): expected %d flexion cells, got %d", tt.percent, tt.flex, got)
		}
		if got := strings.Count(left, "█"); got != tt.ext {
			t.Errorf("PercentBar(%g): expected %d extension cells, got %d", tt.percent, tt.ext, got)
		}
	}
}

func TestSeriesDecimates(t *testing.T) {
	frames := make([]telemetry.Frame, 1000)
	for i := range frames {
		frames[i].Angle = float64(i)
	}

	data, err := Series(frames, "angle", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 100 {
		t.Errorf("expected 100 points, got %d", len(data))
	}
	if data[1] != 10 {
		t.Errorf("expected stride of 10, got %f", data[1])
	}

	if _, err := Series(frames, "bogus", 10); err == nil {
		t.Error("expected error for unknown channel")
	}
}

func TestPlotStates(t *testing.T) {
	frames := []telemetry.Frame{
		{State: knee.IdleStance}, {State: knee.EarlyStance}, {State: knee.PreSwingStance},
		{State: knee.SwingFlexion}, {State: knee.SwingExtension},
	}
	out, err := PlotStates(frames, 20)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "2=swing_flexion") {
		t.Errorf("legend missing from plot:\n%s", out)
	}

	if _, err := Plot(nil, "angle", 20, 5); err == nil {
		t.Error("expected error for empty run")
	}
}
