package actuator

import (
	"math"
	"testing"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	if _, ok := r.Last(); ok {
		t.Error("expected no command on a fresh recorder")
	}

	r.Flex(0.1)
	r.Extend(0.2)

	if len(r.Commands) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(r.Commands))
	}
	last, _ := r.Last()
	if last.Direction != Extension || last.Signed() != -0.2 {
		t.Errorf("unexpected last command %+v", last)
	}
	if r.Commands[0].Signed() != 0.1 {
		t.Errorf("expected flexion +0.1, got %g", r.Commands[0].Signed())
	}

	r.Reset()
	if len(r.Commands) != 0 {
		t.Error("reset did not clear commands")
	}
}

func TestDriverInhibit(t *testing.T) {
	d := NewDriver(20)
	d.Flex(0.2)
	if d.Duty() != 0 {
		t.Errorf("inhibited driver should hold zero duty, got %g", d.Duty())
	}

	d.Enable()
	d.Flex(0.2)
	if math.Abs(d.Duty()-20) > 1e-12 || d.Direction() != Flexion {
		t.Errorf("expected 20%% flexion, got %g%% %s", d.Duty(), d.Direction())
	}
	if math.Abs(d.Current()-4) > 1e-12 {
		t.Errorf("expected 4 A, got %g", d.Current())
	}

	d.Extend(0.1)
	if math.Abs(d.Current()+2) > 1e-12 {
		t.Errorf("expected -2 A, got %g", d.Current())
	}

	d.Inhibit()
	if d.Duty() != 0 || !d.Inhibited() {
		t.Error("inhibit should zero the duty")
	}
	if d.Commands() != 3 {
		t.Errorf("expected 3 commands, got %d", d.Commands())
	}
}

func TestDriverClampsMagnitude(t *testing.T) {
	d := NewDriver(20)
	d.Enable()

	tests := []struct {
		in, duty float64
	}{
		{1.5, 100},
		{-0.3, 0},
		{math.NaN(), 0},
		{0.15, 15},
	}
	for _, tt := range tests {
		d.Extend(tt.in)
		if math.Abs(d.Duty()-tt.duty) > 1e-9 {
			t.Errorf("Extend(%g): expected duty %g, got %g", tt.in, tt.duty, d.Duty())
		}
	}
}
