package knee_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/antioch-orontes/kneecontrol/internal/knee"
)

type call struct {
	flex      bool
	magnitude float64
}

type fakeActuator struct {
	calls []call
}

func (f *fakeActuator) Flex(m float64)   { f.calls = append(f.calls, call{flex: true, magnitude: m}) }
func (f *fakeActuator) Extend(m float64) { f.calls = append(f.calls, call{flex: false, magnitude: m}) }

// staying and leaving hold one sample per state that fails or satisfies its
// exit condition under the default table.
var staying = map[knee.GaitState]knee.SensorSample{
	knee.EarlyStance:    {Angle: 15, Velocity: 20, LoadCell1: 500, LoadCell2: 480},
	knee.PreSwingStance: {Angle: 7, Velocity: -5, LoadCell1: 480, LoadCell2: 520},
	knee.SwingFlexion:   {Angle: 30, Velocity: 150, LoadCell1: 40, LoadCell2: 120},
	knee.SwingExtension: {Angle: 25, Velocity: -200, LoadCell1: 20, LoadCell2: 80},
	knee.IdleStance:     {Angle: 4, Velocity: 0, LoadCell1: 20, LoadCell2: 80},
}

var leaving = map[knee.GaitState]knee.SensorSample{
	knee.EarlyStance:    {Angle: 10, LoadCell1: 500, LoadCell2: 480},
	knee.PreSwingStance: {Angle: 7, LoadCell1: 10, LoadCell2: 100},
	knee.SwingFlexion:   {Angle: 45, LoadCell1: 40, LoadCell2: 120},
	knee.SwingExtension: {Angle: 5, LoadCell1: 20, LoadCell2: 80},
	knee.IdleStance:     {Angle: 4, LoadCell1: 500, LoadCell2: 500},
}

var successor = map[knee.GaitState]knee.GaitState{
	knee.EarlyStance:    knee.PreSwingStance,
	knee.PreSwingStance: knee.SwingFlexion,
	knee.SwingFlexion:   knee.SwingExtension,
	knee.SwingExtension: knee.IdleStance,
	knee.IdleStance:     knee.EarlyStance,
}

func newController(act knee.Actuator, opts ...knee.Option) *knee.Controller {
	ctrl, err := knee.NewController(append([]knee.Option{knee.WithActuator(act)}, opts...)...)
	Expect(err).NotTo(HaveOccurred())
	return ctrl
}

var _ = Describe("Controller", func() {
	var act *fakeActuator

	BeforeEach(func() {
		act = &fakeActuator{}
	})

	It("starts in idle stance", func() {
		ctrl := newController(act)
		Expect(ctrl.State()).To(Equal(knee.IdleStance))
		Expect(ctrl.Previous()).To(BeZero())
	})

	DescribeTable("holds the state while the exit condition is false",
		func(s knee.GaitState) {
			ctrl := newController(act, knee.WithInitialState(s), knee.WithRateLimiter(knee.Unlimited{}))
			bound := ctrl.Params().SaturationBound

			for i := 0; i < 50; i++ {
				out := ctrl.Step(staying[s])
				Expect(out.State).To(Equal(s))
				Expect(out.Transitioned).To(BeFalse())
				Expect(out.Percent).To(BeNumerically(">=", -bound))
				Expect(out.Percent).To(BeNumerically("<=", bound))
			}
			Expect(act.calls).To(HaveLen(50))
			Expect(ctrl.Dwell()).To(BeEquivalentTo(50))
		},
		Entry("early stance", knee.EarlyStance),
		Entry("pre-swing", knee.PreSwingStance),
		Entry("swing flexion", knee.SwingFlexion),
		Entry("swing extension", knee.SwingExtension),
		Entry("idle", knee.IdleStance),
	)

	DescribeTable("moves to the successor without actuating",
		func(s knee.GaitState) {
			ctrl := newController(act, knee.WithInitialState(s))
			out := ctrl.Step(leaving[s])

			Expect(out.State).To(Equal(successor[s]))
			Expect(out.Transitioned).To(BeTrue())
			Expect(ctrl.State()).To(Equal(successor[s]))
			Expect(act.calls).To(BeEmpty())
		},
		Entry("early stance", knee.EarlyStance),
		Entry("pre-swing", knee.PreSwingStance),
		Entry("swing flexion", knee.SwingFlexion),
		Entry("swing extension", knee.SwingExtension),
		Entry("idle", knee.IdleStance),
	)

	It("registers heelstrike on a balanced load", func() {
		ctrl := newController(act)
		out := ctrl.StepRaw(3, 0, 500, 500)

		Expect(out.State).To(Equal(knee.EarlyStance))
		Expect(out.Transitioned).To(BeTrue())
		Expect(act.calls).To(BeEmpty())
	})

	It("applies the early stance impedance above the flexion threshold", func() {
		ctrl := newController(act, knee.WithInitialState(knee.EarlyStance), knee.WithRateLimiter(knee.Unlimited{}))
		out := ctrl.StepRaw(15, 0, 500, 480)

		Expect(out.State).To(Equal(knee.EarlyStance))
		Expect(out.Impedance).To(BeNumerically("~", 1.50*(15-10), 1e-12))

		current := knee.DefaultDrivetrain().Current(out.Impedance, 15)
		Expect(out.Percent).To(BeNumerically("~", current/knee.DefaultPeakCurrent, 1e-12))
		Expect(act.calls).To(ConsistOf(call{flex: true, magnitude: out.Percent}))
	})

	It("includes damping in the impedance", func() {
		ctrl := newController(act, knee.WithInitialState(knee.EarlyStance))
		out := ctrl.StepRaw(15, 200, 500, 480)
		Expect(out.Impedance).To(BeNumerically("~", 1.50*5+0.0005*200, 1e-12))
	})

	It("saturates to the state bound", func() {
		ctrl := newController(act, knee.WithInitialState(knee.SwingFlexion), knee.WithRateLimiter(knee.Unlimited{}))
		out := ctrl.StepRaw(-200, 0, 0, 0)
		Expect(out.Percent).To(Equal(-knee.SwingBound))
		Expect(act.calls).To(ConsistOf(call{flex: false, magnitude: knee.SwingBound}))

		ctrl = newController(act, knee.WithInitialState(knee.PreSwingStance), knee.WithRateLimiter(knee.Unlimited{}))
		out = ctrl.StepRaw(9.9, 1e6, 500, 500)
		Expect(out.Percent).To(Equal(knee.StanceBound))
	})

	It("routes zero current to the extension side with zero magnitude", func() {
		ctrl := newController(act)
		out := ctrl.StepRaw(5, 0, 0, 100)

		Expect(out.State).To(Equal(knee.IdleStance))
		Expect(out.Impedance).To(BeZero())
		Expect(act.calls).To(HaveLen(1))
		Expect(act.calls[0].flex).To(BeFalse())
		Expect(act.calls[0].magnitude).To(BeZero())
	})

	It("repeats the previous command on a transition cycle", func() {
		ctrl := newController(act, knee.WithInitialState(knee.EarlyStance))
		var last knee.Output
		for i := 0; i < 10; i++ {
			last = ctrl.StepRaw(20, 0, 500, 480)
		}
		out := ctrl.StepRaw(9, 0, 500, 480)

		Expect(out.State).To(Equal(knee.PreSwingStance))
		Expect(out.Impedance).To(Equal(last.Impedance))
		Expect(out.Percent).To(Equal(last.Percent))
		Expect(act.calls).To(HaveLen(10))
	})

	It("keeps the rate limiter memory across transitions", func() {
		ctrl := newController(act, knee.WithInitialState(knee.EarlyStance))
		for i := 0; i < 100; i++ {
			ctrl.StepRaw(40, 0, 500, 480)
		}
		held := ctrl.Previous()
		Expect(held).To(Equal(knee.StanceBound))

		ctrl.StepRaw(9, 0, 500, 480)
		Expect(ctrl.Previous()).To(Equal(held))

		out := ctrl.StepRaw(0, 0, 500, 480)
		Expect(out.State).To(Equal(knee.PreSwingStance))
		Expect(held - out.Percent).To(BeNumerically("~", knee.DefaultMaxSlew, 1e-12))
	})

	It("walks the full gait cycle once", func() {
		ctrl := newController(act, knee.WithInitialState(knee.EarlyStance))
		stream := []knee.SensorSample{
			{Angle: 15, LoadCell1: 500, LoadCell2: 480},
			{Angle: 10, LoadCell1: 500, LoadCell2: 480},
			{Angle: 8, LoadCell1: 450, LoadCell2: 500},
			{Angle: 8, LoadCell1: 10, LoadCell2: 100},
			{Angle: 30, LoadCell1: 10, LoadCell2: 100},
			{Angle: 45, LoadCell1: 10, LoadCell2: 100},
			{Angle: 20, LoadCell1: 10, LoadCell2: 100},
			{Angle: 5, LoadCell1: 10, LoadCell2: 100},
			{Angle: 4, LoadCell1: 10, LoadCell2: 100},
			{Angle: 4, LoadCell1: 500, LoadCell2: 500},
		}
		var seen []knee.GaitState
		for _, x := range stream {
			if out := ctrl.Step(x); out.Transitioned {
				seen = append(seen, out.State)
			}
		}
		Expect(seen).To(Equal([]knee.GaitState{
			knee.PreSwingStance, knee.SwingFlexion, knee.SwingExtension, knee.IdleStance, knee.EarlyStance,
		}))
		Expect(act.calls).To(HaveLen(len(stream) - 5))
	})

	It("resets to the initial state", func() {
		ctrl := newController(act, knee.WithInitialState(knee.SwingFlexion))
		ctrl.StepRaw(20, 0, 0, 0)
		ctrl.StepRaw(50, 0, 0, 0)
		Expect(ctrl.State()).To(Equal(knee.SwingExtension))

		ctrl.Reset()
		Expect(ctrl.State()).To(Equal(knee.SwingFlexion))
		Expect(ctrl.Previous()).To(BeZero())
		Expect(ctrl.Dwell()).To(BeZero())
	})

	It("carries a NaN command for one cycle only", func() {
		ctrl := newController(act, knee.WithInitialState(knee.EarlyStance))

		out := ctrl.StepRaw(math.NaN(), 0, 500, 480)
		Expect(out.Transitioned).To(BeFalse())
		Expect(math.IsNaN(out.Percent)).To(BeTrue())
		Expect(math.IsNaN(ctrl.Previous())).To(BeTrue())

		out = ctrl.StepRaw(15, 20, 500, 480)
		want := knee.Impedance(15, 20, 1.5, 0.0005, 10) / knee.DefaultDrivetrain().NmPerAmp() / knee.DefaultPeakCurrent
		Expect(out.Percent).To(BeNumerically("~", want, 1e-12))
		Expect(want).To(BeNumerically(">", knee.DefaultMaxSlew))
	})

	Context("construction", func() {
		It("rejects an unknown initial state", func() {
			_, err := knee.NewController(knee.WithInitialState(knee.GaitState(9)))
			Expect(err).To(MatchError(knee.ErrUnknownState))
		})

		It("rejects a table with a zero bound", func() {
			t := knee.DefaultTable()
			t[knee.SwingFlexion].SaturationBound = 0
			_, err := knee.NewController(knee.WithTable(t))
			Expect(err).To(MatchError(knee.ErrInvalidTable))
		})

		It("rejects a self loop", func() {
			t := knee.DefaultTable()
			t[knee.IdleStance].Next = knee.IdleStance
			_, err := knee.NewController(knee.WithTable(t))
			Expect(err).To(MatchError(knee.ErrInvalidTable))
		})

		It("rejects a non-positive peak current", func() {
			_, err := knee.NewController(knee.WithPeakCurrent(0))
			Expect(err).To(HaveOccurred())
		})

		It("uses a custom current converter", func() {
			ctrl := newController(act,
				knee.WithInitialState(knee.EarlyStance),
				knee.WithRateLimiter(knee.Unlimited{}),
				knee.WithCurrentConverter(knee.CurrentFunc(func(impedance, angle float64) float64 { return -2 })),
			)
			out := ctrl.StepRaw(15, 0, 0, 0)
			Expect(out.Percent).To(BeNumerically("~", -0.1, 1e-12))
			Expect(act.calls).To(ConsistOf(call{flex: false, magnitude: 0.1}))
		})
	})
})
