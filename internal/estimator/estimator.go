// Package estimator computes the smoothed entry effect strength once per
// simulation step.
package estimator

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/entryfx/internal/params"
)

// Ramp constants.
const (
	// LowerBound is the strength factor at the start of the aero transition.
	LowerBound = 0.13
	// PressureGain converts dynamic pressure (kPa) into a strength boost.
	PressureGain = 10.0
	// PressureCap bounds the dynamic pressure boost.
	PressureCap = 0.2
)

// Aero is the host's aerodynamic progress. Scalar drives the effect, State
// tracks how far the flow has moved from heating to full entry.
type Aero struct {
	Scalar float64
	State  float64
}

// Input is one step's worth of estimator input.
type Input struct {
	Aero               Aero
	DynamicPressureKPa float64
	Dt                 float64
	Params             params.ParameterSet
	BaseStrength       float64
}

// Result is the estimator output for one step.
type Result struct {
	// Strength is the smoothed (or overridden) effect strength.
	Strength float64
	// Raw is the unsmoothed strength after step 5 of the ramp.
	Raw float64
	// State is the aero state actually used.
	State float64

	Overridden bool
	// Neutral is set when the base strength is not positive and the step
	// was skipped.
	Neutral bool
}

// EffectState is the per-vehicle mutable estimator memory. The zero value is
// the initial state of the normal path.
type EffectState struct {
	Smoothed     float64
	LastStrength float64

	OverrideActive        bool
	OverrideStrength      float64
	OverrideDirection     mgl64.Vec3
	OverrideState         float64
	OverrideAngleOfAttack float64
	OverrideBody          string
}

// Override is an externally driven estimator bypass.
type Override struct {
	Strength      float64
	State         float64
	Direction     mgl64.Vec3
	AngleOfAttack float64
	// Body optionally selects the body config used while overriding.
	Body string
}

// Estimator owns one vehicle's EffectState.
type Estimator struct {
	state  EffectState
	log    *zap.Logger
	warned bool
}

// New creates an estimator in the initial state.
func New(log *zap.Logger) *Estimator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Estimator{log: log}
}

// State returns a copy of the current EffectState.
func (e *Estimator) State() EffectState {
	return e.state
}

// Reset zeroes the EffectState, including override and smoothing memory.
func (e *Estimator) Reset() {
	e.state = EffectState{}
	e.warned = false
}

// Override activates override mode. The smoothing memory is frozen until
// ClearOverride.
func (e *Estimator) Override(o Override) {
	e.state.OverrideActive = true
	e.state.OverrideStrength = finite(o.Strength)
	e.state.OverrideState = clamp01(o.State)
	e.state.OverrideDirection = finiteVec(o.Direction)
	e.state.OverrideAngleOfAttack = finite(o.AngleOfAttack)
	e.state.OverrideBody = o.Body
}

// ClearOverride leaves override mode. The next Step continues from the last
// smoothed value.
func (e *Estimator) ClearOverride() {
	e.state.OverrideActive = false
	e.state.OverrideStrength = 0
	e.state.OverrideState = 0
	e.state.OverrideDirection = mgl64.Vec3{}
	e.state.OverrideAngleOfAttack = 0
	e.state.OverrideBody = ""
}

// Step advances the estimator by one simulation step.
func (e *Estimator) Step(in Input) Result {
	base := finite(in.BaseStrength)
	if base <= 0 {
		if !e.warned {
			e.log.Warn("base strength is not positive, effect output held at zero",
				zap.Float64("base", in.BaseStrength))
			e.warned = true
		}
		return Result{Neutral: true}
	}

	mult := math.Max(finite(in.Params.Get(params.StrengthMultiplier)), 0)

	if e.state.OverrideActive {
		return Result{
			Strength:   clamp(e.state.OverrideStrength, 0, base) * mult,
			Raw:        e.state.OverrideStrength,
			State:      e.state.OverrideState,
			Overridden: true,
		}
	}

	state := clamp01(in.Aero.State)
	raw := Raw(in.Aero.Scalar, state, in.DynamicPressureKPa, in.Params.TransitionOffset)
	strength := raw * base * mult

	prev := e.state.Smoothed
	smoothed := clamp(Smooth(prev, strength, base, in.Dt), 0, base*mult)

	e.state.Smoothed = smoothed
	e.state.LastStrength = strength

	return Result{
		Strength: smoothed,
		Raw:      strength,
		State:    state,
	}
}

// Raw runs steps 1 to 4 of the ramp and returns a value in [0, 1].
func Raw(scalar, state, dynamicPressureKPa, transitionOffset float64) float64 {
	scalar = clamp01(scalar)
	state = clamp01(state)
	q := math.Max(finite(dynamicPressureKPa), 0)

	raw := scalar + finite(transitionOffset)*state
	raw *= lerp(LowerBound, 1, state)
	raw += math.Min(q*PressureGain, PressureCap) * state

	return clamp01(raw)
}

// Smooth is the adaptive low-pass filter. The rate scales with the error
// normalized by base.
func Smooth(prev, target, base, dt float64) float64 {
	if base <= 0 {
		return 0
	}
	err := math.Abs(target-prev) / base
	t := clamp01(finite(dt) * (1 + 2*err))
	return finite(lerp(prev, target, t))
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clamp01(v float64) float64 {
	return clamp(finite(v), 0, 1)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func finiteVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{finite(v[0]), finite(v[1]), finite(v[2])}
}
