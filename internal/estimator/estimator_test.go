package estimator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/entryfx/internal/params"
)

func paramSet(mult, offset float64) params.ParameterSet {
	var s params.ParameterSet
	s.Numbers[params.StrengthMultiplier] = mult
	s.TransitionOffset = offset
	return s
}

func fullEntry(base, dt float64) Input {
	return Input{
		Aero:         Aero{Scalar: 1, State: 1},
		Dt:           dt,
		Params:       paramSet(1, 0),
		BaseStrength: base,
	}
}

func TestRaw(t *testing.T) {
	tests := []struct {
		name                     string
		scalar, state, q, offset float64
		want                     float64
	}{
		{"idle", 0, 0, 0, 0, 0},
		{"scalar only", 0.5, 0, 0, 0, 0.5 * LowerBound},
		{"full entry", 1, 1, 0, 0, 1},
		{"half state", 0.4, 0.5, 0, 0, 0.4 * (LowerBound + (1-LowerBound)*0.5)},
		{"transition offset", 0.2, 0.5, 0, 0.4, (0.2 + 0.2) * (LowerBound + (1-LowerBound)*0.5)},
		{"pressure boost capped", 0.1, 0.5, 5, 0, 0.1*(LowerBound+(1-LowerBound)*0.5) + PressureCap*0.5},
		{"pressure boost below cap", 0, 1, 0.01, 0, 0.1},
		{"clamped high", 1, 1, 10, 1, 1},
		{"negative offset clamps to zero", 0.1, 1, 0, -1, 0},
		{"out of range inputs", 5, -3, -1, 0, 1 * LowerBound},
		{"nan", math.NaN(), math.NaN(), math.NaN(), math.NaN(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Raw(tt.scalar, tt.state, tt.q, tt.offset), 1e-12)
		})
	}
}

func TestStep_FirstStepDoesNotJump(t *testing.T) {
	e := New(nil)
	res := e.Step(fullEntry(1, 0.1))

	assert.Greater(t, res.Strength, 0.0)
	assert.Less(t, res.Strength, 1.0)
	assert.InDelta(t, 0.3, res.Strength, 1e-12)
	assert.Equal(t, 1.0, res.Raw)
	assert.Equal(t, res.Strength, e.State().Smoothed)
	assert.Equal(t, 1.0, e.State().LastStrength)
}

func TestStep_ScaleInvariant(t *testing.T) {
	small := New(nil)
	large := New(nil)

	for i := 0; i < 10; i++ {
		a := small.Step(fullEntry(1, 0.05))
		b := large.Step(fullEntry(2800, 0.05))
		assert.InDelta(t, a.Strength*2800, b.Strength, 1e-6)
	}
}

func TestStep_ConvergesToTarget(t *testing.T) {
	e := New(nil)
	in := fullEntry(2800, 0.1)
	in.Params = paramSet(1.5, 0)

	var res Result
	for i := 0; i < 200; i++ {
		res = e.Step(in)
	}
	assert.InDelta(t, 2800*1.5, res.Strength, 1e-3)
}

func TestStep_StaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	e := New(nil)

	const base, mult = 2800.0, 1.3
	for i := 0; i < 5000; i++ {
		in := Input{
			Aero:               Aero{Scalar: rng.Float64()*1.4 - 0.2, State: rng.Float64()*1.4 - 0.2},
			DynamicPressureKPa: rng.Float64() * 80,
			Dt:                 rng.Float64() * 0.5,
			Params:             paramSet(mult, rng.Float64()*2-1),
			BaseStrength:       base,
		}
		if i%97 == 0 {
			in.Aero.Scalar = math.NaN()
		}

		res := e.Step(in)
		require.GreaterOrEqual(t, res.Strength, 0.0)
		require.LessOrEqual(t, res.Strength, base*mult)
	}
}

func TestOverride(t *testing.T) {
	e := New(nil)
	for i := 0; i < 3; i++ {
		e.Step(fullEntry(1000, 0.1))
	}
	before := e.State().Smoothed

	e.Override(Override{Strength: 5000, State: 0.5, Direction: mgl64.Vec3{0, 0, -1}, AngleOfAttack: 0.2, Body: "Duna"})

	in := fullEntry(1000, 0.1)
	in.Params = paramSet(2, 0)
	res := e.Step(in)
	assert.True(t, res.Overridden)
	assert.Equal(t, 2000.0, res.Strength, "override strength is clamped to base then scaled")
	assert.Equal(t, 0.5, res.State)
	assert.Equal(t, "Duna", e.State().OverrideBody)
	assert.Equal(t, before, e.State().Smoothed, "smoothing memory frozen during override")

	e.ClearOverride()
	assert.False(t, e.State().OverrideActive)

	res = e.Step(fullEntry(1000, 0.1))
	assert.False(t, res.Overridden)
	assert.Equal(t, Smooth(before, 1000, 1000, 0.1), res.Strength)
}

func TestOverride_NaNInputs(t *testing.T) {
	e := New(nil)
	e.Override(Override{Strength: math.NaN(), State: math.NaN(), Direction: mgl64.Vec3{math.NaN(), 1, 0}, AngleOfAttack: math.Inf(1)})

	st := e.State()
	assert.Equal(t, 0.0, st.OverrideStrength)
	assert.Equal(t, 0.0, st.OverrideState)
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, st.OverrideDirection)
	assert.Equal(t, 0.0, st.OverrideAngleOfAttack)

	res := e.Step(fullEntry(1, 0.1))
	assert.Equal(t, 0.0, res.Strength)
}

func TestStep_NonPositiveBase(t *testing.T) {
	e := New(nil)
	e.Step(fullEntry(1, 0.5))
	st := e.State()

	for _, base := range []float64{0, -5, math.NaN()} {
		res := e.Step(fullEntry(base, 0.1))
		assert.True(t, res.Neutral)
		assert.Equal(t, 0.0, res.Strength)
	}
	assert.Equal(t, st, e.State(), "state untouched while neutral")
}

func TestReset(t *testing.T) {
	e := New(nil)
	for i := 0; i < 5; i++ {
		e.Step(fullEntry(1, 0.2))
	}
	e.Override(Override{Strength: 1})
	require.NotZero(t, e.State().Smoothed)

	e.Reset()
	assert.Equal(t, EffectState{}, e.State())

	fresh := New(nil)
	assert.Equal(t, fresh.Step(fullEntry(1, 0.1)), e.Step(fullEntry(1, 0.1)))
}

func TestSmooth(t *testing.T) {
	assert.Equal(t, 0.0, Smooth(0.5, 1, 0, 0.1))
	assert.Equal(t, 1.0, Smooth(0, 1, 1, 1), "large dt snaps to target")
	assert.Equal(t, 0.5, Smooth(0.5, 1, 1, 0), "zero dt holds")
	assert.Equal(t, 0.5, Smooth(0.5, 1, 1, -1), "negative dt holds")
}
