// Package sim runs scripted entry scenarios through the effect manager.
package sim

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Faultbox/entryfx/internal/config"
	"github.com/Faultbox/entryfx/internal/effect"
	"github.com/Faultbox/entryfx/internal/estimator"
	"github.com/Faultbox/entryfx/internal/vehicle"
)

// Frame is the published state of one vehicle after a step.
type Frame struct {
	Step    int
	Time    float64
	Vehicle string
	Phase   effect.Phase
	Proxies int
	Output  effect.Output
}

// Summary aggregates a finished run.
type Summary struct {
	Steps        int
	Rebuilds     map[string]int
	PeakStrength map[string]float64
}

// Options configures a Runner.
type Options struct {
	Config   *config.Config
	Store    *config.LayerStore
	Scenario *Scenario
	Logger   *zap.Logger
	Metrics  *effect.Metrics

	// ReloadLayers serves layers_reloaded events. Nil ignores them.
	ReloadLayers func() (*config.LayerStore, error)
}

// Runner steps a scenario at a fixed rate.
type Runner struct {
	cfg      *config.Config
	log      *zap.Logger
	scenario *Scenario
	reload   func() (*config.LayerStore, error)

	mgr      *effect.Manager
	vehicles map[string]*vehicle.Vehicle
	bodies   map[string]effect.Body
	phases   map[string]effect.Phase
	summary  Summary
}

// New creates a runner. The layer store must hold usable layers.
func New(opts Options) (*Runner, error) {
	if opts.Config == nil || opts.Scenario == nil {
		return nil, fmt.Errorf("config and scenario are required")
	}
	if opts.Store == nil || opts.Store.Layers == nil {
		return nil, fmt.Errorf("layer store: %w", effect.ErrNoLayers)
	}
	if opts.Config.Simulation.StepDt <= 0 {
		return nil, fmt.Errorf("step_dt must be positive, got %v", opts.Config.Simulation.StepDt)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	mgr := effect.NewManager(effect.Context{
		Settings:  opts.Config.Effect,
		Layers:    opts.Store.Layers,
		Particles: opts.Store.Particles,
		Logger:    log,
		Metrics:   opts.Metrics,
	}, opts.Config.Simulation.EventBuffer)

	r := &Runner{
		cfg:      opts.Config,
		log:      log,
		scenario: opts.Scenario,
		reload:   opts.ReloadLayers,
		mgr:      mgr,
		vehicles: make(map[string]*vehicle.Vehicle),
		bodies:   make(map[string]effect.Body),
		phases:   make(map[string]effect.Phase),
		summary: Summary{
			Rebuilds:     make(map[string]int),
			PeakStrength: make(map[string]float64),
		},
	}

	for _, vs := range opts.Scenario.Vehicles {
		r.vehicles[vs.ID] = vs.Build()
		r.bodies[vs.ID] = opts.Scenario.Body.body()
	}

	log.Info("scenario ready",
		zap.String("scenario", opts.Scenario.Name),
		zap.String("body", opts.Scenario.Body.Name),
		zap.Int("vehicles", len(r.vehicles)),
		zap.Int("events", len(opts.Scenario.Events)))

	return r, nil
}

// Manager exposes the underlying effect manager.
func (r *Runner) Manager() *effect.Manager {
	return r.mgr
}

// Run steps the scenario until it ends or ctx is cancelled, calling fn with
// every vehicle's frame after each step.
func (r *Runner) Run(ctx context.Context, fn func(Frame)) (Summary, error) {
	steps := r.cfg.Simulation.Steps
	if steps <= 0 {
		steps = r.scenario.Steps()
	}
	dt := r.cfg.Simulation.StepDt

	r.log.Info("starting scenario", zap.Int("steps", steps), zap.Float64("dt", dt))

	next := 0
	events := r.scenario.Events
	for step := 0; step < steps; step++ {
		if err := ctx.Err(); err != nil {
			return r.summary, fmt.Errorf("scenario interrupted at step %d: %w", step, err)
		}

		for _, vs := range r.scenario.Vehicles {
			if vs.LoadedAt == step {
				r.post(effect.Event{Kind: effect.EventLoaded, VehicleID: vs.ID, VehicleName: vs.Name})
			}
		}
		for ; next < len(events) && events[next].Step <= step; next++ {
			r.apply(events[next])
		}

		now := float64(step) * dt
		r.mgr.Step(r.inputs(step, now, dt)...)
		r.publish(step, now, fn)
		r.summary.Steps = step + 1
	}

	r.log.Info("scenario finished",
		zap.Int("steps", r.summary.Steps),
		zap.Any("rebuilds", r.summary.Rebuilds))

	return r.summary, nil
}

func (r *Runner) post(e effect.Event) {
	if !r.mgr.Post(e) {
		r.log.Warn("scenario event dropped", zap.Stringer("event", e.Kind), zap.String("vehicle", e.VehicleID))
	}
}

func (r *Runner) apply(e EventSpec) {
	kind := eventKinds[e.Kind]
	ev := effect.Event{Kind: kind, VehicleID: e.Vehicle}

	switch kind {
	case effect.EventLayersReloaded:
		if r.reload == nil {
			r.log.Debug("no layer source, ignoring reload")
			return
		}
		store, err := r.reload()
		if err != nil {
			r.log.Error("reloading layers failed, keeping current layers", zap.Error(err))
			return
		}
		ev.Layers = store.Layers
		ev.Particles = store.Particles

	case effect.EventPartCountChanged:
		if e.RemovePart != "" {
			r.removePart(e.Vehicle, e.RemovePart)
		}

	case effect.EventBodyChanged:
		ev.Body = e.Body.body()
		r.bodies[e.Vehicle] = ev.Body

	case effect.EventOverride:
		ev.Override = e.Override.override()
	}

	r.log.Debug("scenario event", zap.Int("step", e.Step), zap.String("event", e.Kind), zap.String("vehicle", e.Vehicle))
	r.post(ev)
}

func (r *Runner) removePart(id, name string) {
	v, ok := r.vehicles[id]
	if !ok {
		return
	}
	before := len(v.Parts)
	v.Parts = lo.Reject(v.Parts, func(p *vehicle.Part, _ int) bool { return p.Name == name })
	if len(v.Parts) == before {
		r.log.Warn("part to remove not found", zap.String("vehicle", id), zap.String("part", name))
	}
}

func (r *Runner) inputs(step int, now, dt float64) []effect.TickInput {
	activeVel := lo.Reduce(r.scenario.Vehicles, func(acc []float64, vs VehicleSpec, _ int) []float64 {
		if vs.Active {
			return vs.At(step).Velocity
		}
		return acc
	}, nil)

	out := make([]effect.TickInput, 0, len(r.scenario.Vehicles))
	for _, vs := range r.scenario.Vehicles {
		s := vs.At(step)
		out = append(out, effect.TickInput{
			Time:               now,
			Dt:                 dt,
			Vehicle:            r.vehicles[vs.ID],
			Aero:               estimator.Aero{Scalar: s.MachScalar, State: s.MachState},
			DynamicPressureKPa: s.DynamicPressure,
			Body:               r.bodies[vs.ID],
			Altitude:           s.Altitude,
			SurfaceVelocity:    vec(s.Velocity, mgl64.Vec3{}),
			ActiveVelocity:     vec(activeVel, mgl64.Vec3{}),
			IsActive:           vs.Active,
			Forward:            vec(s.Forward, mgl64.Vec3{}),
		})
	}
	return out
}

func (r *Runner) publish(step int, now float64, fn func(Frame)) {
	for _, id := range r.mgr.Vehicles() {
		c, _ := r.mgr.Controller(id)
		f := Frame{
			Step:    step,
			Time:    now,
			Vehicle: id,
			Phase:   c.Phase(),
			Proxies: len(c.RenderList()),
			Output:  c.Output(),
		}

		if prev, ok := r.phases[id]; !ok || prev != f.Phase {
			r.log.Info("effect phase changed",
				zap.String("vehicle", id),
				zap.Int("step", step),
				zap.Stringer("phase", f.Phase),
				zap.Int("proxies", f.Proxies))
			r.phases[id] = f.Phase
		}
		r.log.Debug("step",
			zap.String("vehicle", id),
			zap.Int("step", step),
			zap.Float64("strength", f.Output.Strength),
			zap.Float64("state", f.Output.State),
			zap.Float64("aoa", f.Output.AngleOfAttack),
			zap.Float64("length", f.Output.LengthMultiplier),
			zap.Int("emitters", len(f.Output.Particles)))

		r.summary.Rebuilds[id] = c.Rebuilds()
		r.summary.PeakStrength[id] = max(r.summary.PeakStrength[id], f.Output.Strength)

		if fn != nil {
			fn(f)
		}
	}
}
