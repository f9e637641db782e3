package sim

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/entryfx/internal/config"
	"github.com/Faultbox/entryfx/internal/effect"
	"github.com/Faultbox/entryfx/internal/vehicle"
)

const (
	layersPath   = "../../configs/layers.yaml"
	scenarioPath = "../../configs/reentry.yaml"
)

func loadStore(t *testing.T) *config.LayerStore {
	t.Helper()
	store, err := config.LoadLayers(layersPath, nil)
	require.NoError(t, err)
	require.Empty(t, store.Issues)
	return store
}

func TestRunner_Reentry(t *testing.T) {
	sc, err := LoadScenario(scenarioPath)
	require.NoError(t, err)

	reloads := 0
	r, err := New(Options{
		Config:   config.Default(),
		Store:    loadStore(t),
		Scenario: sc,
		ReloadLayers: func() (*config.LayerStore, error) {
			reloads++
			return config.LoadLayers(layersPath, nil)
		},
	})
	require.NoError(t, err)

	frames := map[int]Frame{}
	summary, err := r.Run(context.Background(), func(f Frame) {
		require.Equal(t, "capsule", f.Vehicle)
		frames[f.Step] = f
	})
	require.NoError(t, err)

	assert.Equal(t, 251, summary.Steps)
	assert.Equal(t, 1, reloads)
	assert.Equal(t, 2, summary.Rebuilds["capsule"], "initial load plus the decoupling")
	assert.Greater(t, summary.PeakStrength["capsule"], 0.0)

	// The load delay is 20 steps.
	assert.Equal(t, effect.PhasePending, frames[18].Phase)
	assert.Equal(t, effect.PhaseActive, frames[19].Phase)

	// The parachute never gets an envelope.
	assert.Equal(t, 3, frames[119].Proxies)
	assert.Equal(t, effect.PhaseActive, frames[120].Phase)
	assert.Equal(t, 2, frames[121].Proxies)

	last := frames[250].Output
	assert.Equal(t, effect.PhaseActive, frames[250].Phase)
	assert.InDelta(t, 1, last.Direction.Len(), 1e-9)
	assert.True(t, last.Bowshock)
	assert.Greater(t, last.LengthMultiplier, 0.0)
}

const overrideScenario = `
name: override
body: {name: Kerbin, has_atmosphere: true, atmosphere_depth: 70000}
vehicles:
  - id: probe
    parts:
      - name: probeCore
        renderables:
          - name: core
    samples:
      - step: 0
        altitude: 90000
        velocity: [0, 0, -100]
        forward: [0, 1, 0]
events:
  - step: 0
    kind: override
    vehicle: probe
    override:
      strength: 1000
      state: 0.5
      direction: [0, 0, -1]
      angle_of_attack: 0.2
      body: Duna
  - step: 6
    kind: clear_override
    vehicle: probe
`

func TestRunner_OverrideOutsideAtmosphere(t *testing.T) {
	sc, err := DecodeScenario([]byte(overrideScenario))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Effect.LoadDelaySteps = 2
	cfg.Simulation.Steps = 8

	r, err := New(Options{Config: cfg, Store: loadStore(t), Scenario: sc})
	require.NoError(t, err)

	frames := map[int]Frame{}
	_, err = r.Run(context.Background(), func(f Frame) { frames[f.Step] = f })
	require.NoError(t, err)

	require.Equal(t, effect.PhaseActive, frames[1].Phase)
	out := frames[1].Output
	assert.InDelta(t, 600, out.Strength, 1e-9, "Duna scales the override by 0.6")
	assert.Equal(t, 0.5, out.State)
	assert.Equal(t, 0.2, out.AngleOfAttack)

	// Without the override the probe is above the atmosphere.
	assert.Equal(t, effect.PhaseUnloaded, frames[6].Phase)
}

func TestRunner_Interrupted(t *testing.T) {
	sc, err := DecodeScenario([]byte(overrideScenario))
	require.NoError(t, err)

	r, err := New(Options{Config: config.Default(), Store: loadStore(t), Scenario: sc})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := r.Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Steps)
}

func TestNew_Validation(t *testing.T) {
	sc, err := DecodeScenario([]byte(overrideScenario))
	require.NoError(t, err)

	_, err = New(Options{Config: config.Default(), Scenario: sc})
	assert.ErrorIs(t, err, effect.ErrNoLayers)

	cfg := config.Default()
	cfg.Simulation.StepDt = 0
	_, err = New(Options{Config: cfg, Store: loadStore(t), Scenario: sc})
	assert.Error(t, err)
}

func TestDecodeScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"invalid yaml", "vehicles: ["},
		{"no body", "vehicles: [{id: a, samples: [{step: 0}]}]"},
		{"no vehicles", "body: {name: Kerbin}"},
		{"duplicate id", "body: {name: K}\nvehicles: [{id: a, samples: [{step: 0}]}, {id: a, samples: [{step: 0}]}]"},
		{"no samples", "body: {name: K}\nvehicles: [{id: a}]"},
		{"bad category", "body: {name: K}\nvehicles: [{id: a, samples: [{step: 0}], parts: [{name: p, categories: [rocket]}]}]"},
		{"bad scale mode", "body: {name: K}\nvehicles: [{id: a, samples: [{step: 0}], parts: [{name: p, scale_mode: huge}]}]"},
		{"unknown event", "body: {name: K}\nvehicles: [{id: a, samples: [{step: 0}]}]\nevents: [{step: 1, kind: explode, vehicle: a}]"},
		{"unknown vehicle", "body: {name: K}\nvehicles: [{id: a, samples: [{step: 0}]}]\nevents: [{step: 1, kind: reload, vehicle: b}]"},
		{"body change without body", "body: {name: K}\nvehicles: [{id: a, samples: [{step: 0}]}]\nevents: [{step: 1, kind: body_changed, vehicle: a}]"},
		{"override without payload", "body: {name: K}\nvehicles: [{id: a, samples: [{step: 0}]}]\nevents: [{step: 1, kind: override, vehicle: a}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeScenario([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestVehicleSpec_Build(t *testing.T) {
	vs := VehicleSpec{
		ID: "v",
		Parts: []PartSpec{
			{
				Name:       "mk1pod.v2",
				Categories: []string{"parachute", "asteroid"},
				ScaleMode:  "local",
				Position:   []float64{0, 2, 0},
				Scale:      []float64{2, 2, 2},
				Renderables: []RenderableSpec{
					{Name: "a", Min: []float64{-1, -1, -1}, Max: []float64{1, 1, 1}},
					{Name: "b", Skinned: true, Inactive: true},
					{Name: "c", NoMesh: true, Envelope: true, Layer: vehicle.LayerHidden},
				},
			},
		},
	}

	v := vs.Build()
	assert.Equal(t, "v", v.Name)
	require.Len(t, v.Parts, 1)

	p := v.Parts[0]
	assert.Equal(t, "mk1pod_v2", p.Key)
	assert.True(t, p.Has(vehicle.CategoryParachute))
	assert.True(t, p.Has(vehicle.CategoryAsteroid))
	assert.False(t, p.Has(vehicle.CategoryWheel))
	assert.Equal(t, vehicle.ScaleLocal, p.ScaleMode)
	assert.Equal(t, mgl64.Vec3{2, 2, 2}, p.WorldScale)
	assert.Equal(t, mgl64.Vec3{0, 2, 0}, mgl64.TransformCoordinate(mgl64.Vec3{}, p.WorldFromPart))

	require.Len(t, p.Renderables, 3)
	a, b, c := p.Renderables[0], p.Renderables[1], p.Renderables[2]
	require.NotNil(t, a.MeshBounds)
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, a.MeshBounds.Max)
	assert.True(t, a.Active)
	assert.True(t, b.Skinned)
	assert.False(t, b.Active)
	assert.Equal(t, mgl64.Vec3{0.5, 0.5, 0.5}, b.SkinnedBounds.Max)
	assert.False(t, c.HasMesh())
	assert.True(t, c.EnvelopeTagged)
	assert.Equal(t, vehicle.LayerHidden, c.Layer)
}

func TestVehicleSpec_At(t *testing.T) {
	vs := VehicleSpec{Samples: []Sample{
		{Step: 10, Altitude: 1000, Velocity: []float64{0, 0, -10}, MachScalar: 0},
		{Step: 20, Altitude: 0, Velocity: []float64{0, 0, -30}, MachScalar: 1},
	}}

	assert.Equal(t, 1000.0, vs.At(0).Altitude)
	assert.Equal(t, 0.0, vs.At(50).Altitude)

	mid := vs.At(15)
	assert.Equal(t, 500.0, mid.Altitude)
	assert.Equal(t, 0.5, mid.MachScalar)
	assert.Equal(t, []float64{0, 0, -20}, mid.Velocity)
	assert.Equal(t, []float64{0, 0, 0}, mid.Forward)
}

func TestScenario_Steps(t *testing.T) {
	sc, err := LoadScenario(scenarioPath)
	require.NoError(t, err)
	assert.Equal(t, 251, sc.Steps())
	assert.Equal(t, "booster", sc.Events[0].RemovePart)
}
