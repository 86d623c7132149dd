// Package telemetry carries the per-cycle record the control loop publishes
// and a few sinks for it. Bus framing is left to the transport.
package telemetry

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"

	"github.com/antioch-orontes/kneecontrol/internal/knee"
)

// BusLimit is the largest magnitude the telemetry bus can carry in its
// fixed-point float channels.
const BusLimit = 3276.7

// Frame is one control cycle as seen by telemetry.
type Frame struct {
	Cycle          uint64
	Time           float64
	State          knee.GaitState
	Transitioned   bool
	Angle          float64
	Velocity       float64
	LoadCell1      float64
	LoadCell2      float64
	Impedance      float64
	DesiredTorque  float64 // -Impedance
	Percent        float64
	DutyCycle      float64 // 100 * Percent
	MeasuredTorque float64
}

// Clamped limits the float channels to what the bus can represent.
func (f Frame) Clamped() Frame {
	f.Angle = clampBus(f.Angle)
	f.DesiredTorque = clampBus(f.DesiredTorque)
	f.MeasuredTorque = clampBus(f.MeasuredTorque)
	f.LoadCell1 = clampBus(f.LoadCell1)
	f.LoadCell2 = clampBus(f.LoadCell2)
	return f
}

func clampBus(v float64) float64 {
	return math.Max(-BusLimit, math.Min(BusLimit, v))
}

// Sink consumes frames once per cycle.
type Sink interface {
	Publish(f Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(f Frame) error

func (fn SinkFunc) Publish(f Frame) error { return fn(f) }

// BusSink clamps frames to the bus range before passing them on.
type BusSink struct {
	next Sink
}

func NewBusSink(next Sink) *BusSink {
	return &BusSink{next: next}
}

func (b *BusSink) Publish(f Frame) error {
	return b.next.Publish(f.Clamped())
}

// Recorder keeps every frame in memory.
type Recorder struct {
	Frames []Frame
}

func NewRecorder(capacity int) *Recorder {
	return &Recorder{Frames: make([]Frame, 0, capacity)}
}

func (r *Recorder) Publish(f Frame) error {
	r.Frames = append(r.Frames, f)
	return nil
}

// Multi fans a frame out to several sinks and joins their errors.
type Multi []Sink

func (m Multi) Publish(f Frame) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Header is the column layout written by CSVSink.
var Header = []string{
	"cycle", "time", "state", "transitioned", "angle", "velocity",
	"load_cell1", "load_cell2", "impedance", "desired_torque", "percent",
	"duty_cycle", "measured_torque",
}

// CSVSink streams frames as CSV rows.
type CSVSink struct {
	w           *csv.Writer
	wroteHeader bool
}

func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w)}
}

func (s *CSVSink) Publish(f Frame) error {
	if !s.wroteHeader {
		if err := s.w.Write(Header); err != nil {
			return err
		}
		s.wroteHeader = true
	}
	return s.w.Write(Record(f))
}

// Flush writes any buffered rows.
func (s *CSVSink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}

// Record formats a frame in Header order.
func Record(f Frame) []string {
	return []string{
		strconv.FormatUint(f.Cycle, 10),
		strconv.FormatFloat(f.Time, 'f', 6, 64),
		f.State.String(),
		strconv.FormatBool(f.Transitioned),
		formatFloat(f.Angle),
		formatFloat(f.Velocity),
		formatFloat(f.LoadCell1),
		formatFloat(f.LoadCell2),
		formatFloat(f.Impedance),
		formatFloat(f.DesiredTorque),
		formatFloat(f.Percent),
		formatFloat(f.DutyCycle),
		formatFloat(f.MeasuredTorque),
	}
}

// ParseRecord is the inverse of Record.
func ParseRecord(rec []string) (Frame, error) {
	if len(rec) != len(Header) {
		return Frame{}, ErrBadRecord
	}
	var f Frame
	var err error
	if f.Cycle, err = strconv.ParseUint(rec[0], 10, 64); err != nil {
		return Frame{}, errors.Join(ErrBadRecord, err)
	}
	if f.State, err = knee.ParseState(rec[2]); err != nil {
		return Frame{}, errors.Join(ErrBadRecord, err)
	}
	if f.Transitioned, err = strconv.ParseBool(rec[3]); err != nil {
		return Frame{}, errors.Join(ErrBadRecord, err)
	}
	floats := map[int]*float64{
		1: &f.Time, 4: &f.Angle, 5: &f.Velocity, 6: &f.LoadCell1, 7: &f.LoadCell2,
		8: &f.Impedance, 9: &f.DesiredTorque, 10: &f.Percent, 11: &f.DutyCycle, 12: &f.MeasuredTorque,
	}
	for col, dst := range floats {
		if *dst, err = strconv.ParseFloat(rec[col], 64); err != nil {
			return Frame{}, errors.Join(ErrBadRecord, err)
		}
	}
	return f, nil
}

var ErrBadRecord = errors.New("telemetry: malformed frame record")

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}
