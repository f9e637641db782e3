// Package particles derives per-step emission parameters for the entry
// effect's particle systems.
package particles

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// RateRange is the strength span over which emission ramps from zero to the
// configured rate.
const RateRange = 600.0

// Range is a min/max pair.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Scale multiplies both ends by f.
func (r Range) Scale(f float64) Range {
	return Range{Min: r.Min * f, Max: r.Max * f}
}

// Config describes one particle system.
type Config struct {
	Name          string  `yaml:"name"`
	Active        bool    `yaml:"is_active"`
	Offset        float64 `yaml:"offset"`
	UseHalfOffset bool    `yaml:"use_half_offset"`
	Rate          Range   `yaml:"rate"`
	Lifetime      Range   `yaml:"lifetime"`
	Velocity      Range   `yaml:"velocity"`
}

// Emission is the state a particle system should take this step.
type Emission struct {
	Name string

	// LocalPosition is vehicle-local.
	LocalPosition mgl64.Vec3
	Rate          Range
	Lifetime      Range

	// Per-axis velocity over lifetime, world space.
	VelocityMin mgl64.Vec3
	VelocityMax mgl64.Vec3
}

// Input is the per-step state the emitter needs.
type Input struct {
	Strength  float64
	Threshold float64

	// Center is the bounding volume center.
	Center mgl64.Vec3
	// LocalDir and WorldDir point along the airstream (opposite the entry
	// velocity), in vehicle-local and world space.
	LocalDir mgl64.Vec3
	WorldDir mgl64.Vec3

	RelativeVelocity mgl64.Vec3
	LengthMultiplier float64
}

// Emitter drives the active particle systems of one vehicle.
type Emitter struct {
	systems []Config
	killed  bool
}

// NewEmitter keeps the active systems of cfgs.
func NewEmitter(cfgs []Config) *Emitter {
	return &Emitter{
		systems: lo.Filter(cfgs, func(c Config, _ int) bool { return c.Active }),
	}
}

// Systems returns the names of the driven systems.
func (e *Emitter) Systems() []string {
	return lo.Map(e.systems, func(c Config, _ int) string { return c.Name })
}

// Killed reports whether emission is currently stopped.
func (e *Emitter) Killed() bool {
	return e.killed
}

// DesiredRate is the emission fraction for a strength above threshold.
func DesiredRate(strength, threshold float64) float64 {
	r := (strength - threshold) / RateRange
	if math.IsNaN(r) {
		return 0
	}
	return math.Max(0, math.Min(1, r))
}

// Update computes this step's emissions. Below the threshold every system is
// stopped once; later calls below the threshold return nil until emission
// resumes.
func (e *Emitter) Update(in Input) []Emission {
	if len(e.systems) == 0 {
		return nil
	}

	if !(in.Strength >= in.Threshold) {
		if e.killed {
			return nil
		}
		e.killed = true
		return lo.Map(e.systems, func(c Config, _ int) Emission {
			return Emission{Name: c.Name, Lifetime: c.Lifetime}
		})
	}
	e.killed = false

	desired := DesiredRate(in.Strength, in.Threshold)
	length := in.LengthMultiplier
	half := math.Max(length*0.5, 1)

	return lo.Map(e.systems, func(c Config, _ int) Emission {
		offset := length
		if c.UseHalfOffset {
			offset = half
		}
		return Emission{
			Name:          c.Name,
			LocalPosition: in.Center.Add(in.LocalDir.Mul(c.Offset * offset)),
			Rate:          c.Rate.Scale(desired),
			Lifetime:      c.Lifetime,
			VelocityMin:   in.WorldDir.Mul(c.Velocity.Min).Add(in.RelativeVelocity),
			VelocityMax:   in.WorldDir.Mul(c.Velocity.Max).Add(in.RelativeVelocity),
		}
	})
}

// Reset forgets the stopped state.
func (e *Emitter) Reset() {
	e.killed = false
}
