package telemetry

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/antioch-orontes/kneecontrol/internal/knee"
)

func sampleFrame() Frame {
	return Frame{
		Cycle:          12,
		Time:           0.012,
		State:          knee.SwingFlexion,
		Angle:          33.5,
		Velocity:       140,
		LoadCell1:      40,
		LoadCell2:      120,
		Impedance:      -1.56,
		DesiredTorque:  1.56,
		Percent:        -0.0156,
		DutyCycle:      -1.56,
		MeasuredTorque: 1.2,
	}
}

func TestCSVSinkRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sink := NewCSVSink(&buf)

	in := sampleFrame()
	if err := sink.Publish(in); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := sink.Publish(in); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := sink.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d records", len(records))
	}
	if records[0][0] != "cycle" {
		t.Errorf("expected header row, got %v", records[0])
	}

	out, err := ParseRecord(records[1])
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestParseRecordRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		rec  []string
	}{
		{"short", []string{"1", "2"}},
		{"bad state", replace(Record(sampleFrame()), 2, "late_stance")},
		{"bad float", replace(Record(sampleFrame()), 4, "x")},
		{"bad cycle", replace(Record(sampleFrame()), 0, "-1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRecord(tt.rec); !errors.Is(err, ErrBadRecord) {
				t.Errorf("expected ErrBadRecord, got %v", err)
			}
		})
	}
}

func replace(rec []string, i int, v string) []string {
	rec[i] = v
	return rec
}

func TestMulti(t *testing.T) {
	a := NewRecorder(4)
	b := NewRecorder(4)
	boom := errors.New("boom")
	failing := SinkFunc(func(Frame) error { return boom })

	err := Multi{a, failing, b}.Publish(sampleFrame())
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error, got %v", err)
	}
	if len(a.Frames) != 1 || len(b.Frames) != 1 {
		t.Error("every sink should receive the frame")
	}
}

func TestClamped(t *testing.T) {
	f := sampleFrame()
	f.LoadCell2 = 5000
	f.DesiredTorque = -4000

	c := f.Clamped()
	if c.LoadCell2 != BusLimit || c.DesiredTorque != -BusLimit {
		t.Errorf("expected bus limits, got %g and %g", c.LoadCell2, c.DesiredTorque)
	}
	if c.Angle != f.Angle {
		t.Error("in-range channel changed")
	}
}

func TestBusSinkClamps(t *testing.T) {
	rec := NewRecorder(1)
	f := sampleFrame()
	f.MeasuredTorque = 9000
	f.LoadCell1 = -3300

	if err := NewBusSink(rec).Publish(f); err != nil {
		t.Fatal(err)
	}
	got := rec.Frames[0]
	if got.MeasuredTorque != BusLimit || got.LoadCell1 != -BusLimit {
		t.Errorf("expected clamped channels, got %g and %g", got.MeasuredTorque, got.LoadCell1)
	}
	if got.Velocity != f.Velocity {
		t.Error("unclamped channel changed")
	}
}
