package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/antioch-orontes/kneecontrol/internal/knee"
	"github.com/antioch-orontes/kneecontrol/internal/telemetry"
)

// Channels names the frame fields that can be plotted.
var Channels = map[string]func(telemetry.Frame) float64{
	"angle":    func(f telemetry.Frame) float64 { return f.Angle },
	"velocity": func(f telemetry.Frame) float64 { return f.Velocity },
	"torque":   func(f telemetry.Frame) float64 { return f.DesiredTorque },
	"measured": func(f telemetry.Frame) float64 { return f.MeasuredTorque },
	"percent":  func(f telemetry.Frame) float64 { return f.Percent },
	"duty":     func(f telemetry.Frame) float64 { return f.DutyCycle },
	"diff":     func(f telemetry.Frame) float64 { return f.LoadCell2 - f.LoadCell1 },
	"sum":      func(f telemetry.Frame) float64 { return f.LoadCell1 + f.LoadCell2 },
	"state":    func(f telemetry.Frame) float64 { return float64(f.State) },
}

// Series extracts a channel, decimated to at most width points.
func Series(frames []telemetry.Frame, channel string, width int) ([]float64, error) {
	get, ok := Channels[channel]
	if !ok {
		return nil, fmt.Errorf("unknown channel: %s", channel)
	}
	step := 1
	if width > 0 && len(frames) > width {
		step = len(frames) / width
	}
	out := make([]float64, 0, len(frames)/step+1)
	for i := 0; i < len(frames); i += step {
		out = append(out, get(frames[i]))
	}
	return out, nil
}

// Plot draws one channel of a run.
func Plot(frames []telemetry.Frame, channel string, width, height int) (string, error) {
	data, err := Series(frames, channel, width)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("no data to plot")
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(channel),
	), nil
}

// PlotStates draws the gait state track with a legend.
func PlotStates(frames []telemetry.Frame, width int) (string, error) {
	graph, err := Plot(frames, "state", width, len(knee.States)-1)
	if err != nil {
		return "", err
	}
	legend := make([]string, 0, len(knee.States))
	for _, s := range knee.States {
		legend = append(legend, fmt.Sprintf("%d=%s", s, s))
	}
	return graph + "\n" + strings.Join(legend, "  "), nil
}
