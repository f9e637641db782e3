package sim

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/entryfx/internal/effect"
	"github.com/Faultbox/entryfx/internal/estimator"
	"github.com/Faultbox/entryfx/internal/vehicle"
)

// Scenario is a scripted flight of one or more vehicles.
type Scenario struct {
	Name     string        `yaml:"name"`
	Body     BodySpec      `yaml:"body"`
	Vehicles []VehicleSpec `yaml:"vehicles"`
	Events   []EventSpec   `yaml:"events"`
}

// BodySpec describes the body the scenario starts in.
type BodySpec struct {
	Name            string  `yaml:"name"`
	HasAtmosphere   bool    `yaml:"has_atmosphere"`
	AtmosphereDepth float64 `yaml:"atmosphere_depth"`
}

// VehicleSpec is a vehicle and its trajectory.
type VehicleSpec struct {
	ID       string     `yaml:"id"`
	Name     string     `yaml:"name"`
	Active   bool       `yaml:"active"`
	Parts    []PartSpec `yaml:"parts"`
	Samples  []Sample   `yaml:"samples"`
	LoadedAt int        `yaml:"loaded_at"`
}

// PartSpec is one part of a scenario vehicle.
type PartSpec struct {
	Name        string           `yaml:"name"`
	Categories  []string         `yaml:"categories"`
	ScaleMode   string           `yaml:"scale_mode"`
	Position    []float64        `yaml:"position"`
	Scale       []float64        `yaml:"scale"`
	Renderables []RenderableSpec `yaml:"renderables"`
}

// RenderableSpec is one sub-mesh of a part.
type RenderableSpec struct {
	Name     string    `yaml:"name"`
	Min      []float64 `yaml:"min"`
	Max      []float64 `yaml:"max"`
	Offset   []float64 `yaml:"offset"`
	Layer    int       `yaml:"layer"`
	Inactive bool      `yaml:"inactive"`
	Skinned  bool      `yaml:"skinned"`
	NoMesh   bool      `yaml:"no_mesh"`
	Envelope bool      `yaml:"envelope"`
}

// Sample is a trajectory keyframe. Values between keyframes are
// interpolated linearly; the last keyframe holds afterwards.
type Sample struct {
	Step            int       `yaml:"step"`
	Altitude        float64   `yaml:"altitude"`
	Velocity        []float64 `yaml:"velocity"`
	Forward         []float64 `yaml:"forward"`
	MachScalar      float64   `yaml:"mach_scalar"`
	MachState       float64   `yaml:"mach_state"`
	DynamicPressure float64   `yaml:"dynamic_pressure_kpa"`
}

// EventSpec schedules a host event at a step.
type EventSpec struct {
	Step       int           `yaml:"step"`
	Kind       string        `yaml:"kind"`
	Vehicle    string        `yaml:"vehicle"`
	RemovePart string        `yaml:"remove_part"`
	Body       *BodySpec     `yaml:"body"`
	Override   *OverrideSpec `yaml:"override"`
}

// OverrideSpec is the payload of an override event.
type OverrideSpec struct {
	Strength      float64   `yaml:"strength"`
	State         float64   `yaml:"state"`
	Direction     []float64 `yaml:"direction"`
	AngleOfAttack float64   `yaml:"angle_of_attack"`
	Body          string    `yaml:"body"`
}

var categoryNames = map[string]vehicle.Category{
	"parachute":       vehicle.CategoryParachute,
	"conformal_decal": vehicle.CategoryConformalDecal,
	"conformal_flag":  vehicle.CategoryConformalFlag,
	"conformal_text":  vehicle.CategoryConformalText,
	"radial_drill":    vehicle.CategoryRadialDrill,
	"wheel":           vehicle.CategoryWheel,
	"asteroid":        vehicle.CategoryAsteroid,
}

var scaleModes = map[string]vehicle.ScaleMode{
	"":      vehicle.ScaleLossy,
	"lossy": vehicle.ScaleLossy,
	"local": vehicle.ScaleLocal,
	"unit":  vehicle.ScaleUnit,
}

// Event kinds accepted in scenario files, besides layers_reloaded which the
// runner handles itself.
var eventKinds = map[string]effect.EventKind{
	"loaded":             effect.EventLoaded,
	"unloaded":           effect.EventUnloaded,
	"part_count_changed": effect.EventPartCountChanged,
	"body_changed":       effect.EventBodyChanged,
	"reload":             effect.EventReload,
	"layers_reloaded":    effect.EventLayersReloaded,
	"override":           effect.EventOverride,
	"clear_override":     effect.EventClearOverride,
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return DecodeScenario(data)
}

// DecodeScenario parses and validates scenario YAML.
func DecodeScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	for i := range sc.Vehicles {
		sort.SliceStable(sc.Vehicles[i].Samples, func(a, b int) bool {
			return sc.Vehicles[i].Samples[a].Step < sc.Vehicles[i].Samples[b].Step
		})
	}
	sort.SliceStable(sc.Events, func(a, b int) bool { return sc.Events[a].Step < sc.Events[b].Step })
	return &sc, nil
}

// Validate checks references and vector sizes.
func (sc *Scenario) Validate() error {
	if sc.Body.Name == "" {
		return fmt.Errorf("scenario body has no name")
	}
	if len(sc.Vehicles) == 0 {
		return fmt.Errorf("scenario has no vehicles")
	}

	ids := make(map[string]bool, len(sc.Vehicles))
	for _, v := range sc.Vehicles {
		if v.ID == "" {
			return fmt.Errorf("vehicle without id")
		}
		if ids[v.ID] {
			return fmt.Errorf("duplicate vehicle id %q", v.ID)
		}
		ids[v.ID] = true
		if len(v.Samples) == 0 {
			return fmt.Errorf("vehicle %q has no samples", v.ID)
		}
		for _, p := range v.Parts {
			for _, c := range p.Categories {
				if _, ok := categoryNames[c]; !ok {
					return fmt.Errorf("vehicle %q part %q: unknown category %q", v.ID, p.Name, c)
				}
			}
			if _, ok := scaleModes[p.ScaleMode]; !ok {
				return fmt.Errorf("vehicle %q part %q: unknown scale mode %q", v.ID, p.Name, p.ScaleMode)
			}
		}
	}

	for _, e := range sc.Events {
		kind, ok := eventKinds[e.Kind]
		if !ok {
			return fmt.Errorf("step %d: unknown event %q", e.Step, e.Kind)
		}
		if kind != effect.EventLayersReloaded && !ids[e.Vehicle] {
			return fmt.Errorf("step %d: %s targets unknown vehicle %q", e.Step, e.Kind, e.Vehicle)
		}
		if kind == effect.EventBodyChanged && e.Body == nil {
			return fmt.Errorf("step %d: body_changed without body", e.Step)
		}
		if kind == effect.EventOverride && e.Override == nil {
			return fmt.Errorf("step %d: override without payload", e.Step)
		}
	}
	return nil
}

// Steps returns the last step any sample or event refers to, plus one.
func (sc *Scenario) Steps() int {
	n := 0
	for _, v := range sc.Vehicles {
		for _, s := range v.Samples {
			n = max(n, s.Step+1)
		}
	}
	for _, e := range sc.Events {
		n = max(n, e.Step+1)
	}
	return n
}

func (b BodySpec) body() effect.Body {
	return effect.Body{Name: b.Name, HasAtmosphere: b.HasAtmosphere, AtmosphereDepth: b.AtmosphereDepth}
}

func (o OverrideSpec) override() estimator.Override {
	return estimator.Override{
		Strength:      o.Strength,
		State:         o.State,
		Direction:     vec(o.Direction, mgl64.Vec3{}),
		AngleOfAttack: o.AngleOfAttack,
		Body:          o.Body,
	}
}

// Build creates the vehicle snapshot for a spec, placed at the origin.
func (v VehicleSpec) Build() *vehicle.Vehicle {
	out := &vehicle.Vehicle{
		ID:               v.ID,
		Name:             v.Name,
		WorldFromVehicle: mgl64.Ident4(),
	}
	if out.Name == "" {
		out.Name = v.ID
	}

	for _, ps := range v.Parts {
		var cats vehicle.Category
		for _, c := range ps.Categories {
			cats |= categoryNames[c]
		}
		pos := vec(ps.Position, mgl64.Vec3{})
		scale := vec(ps.Scale, mgl64.Vec3{1, 1, 1})

		part := &vehicle.Part{
			Key:        vehicle.ConfigKey(ps.Name),
			Name:       ps.Name,
			Categories: cats,
			ScaleMode:  scaleModes[ps.ScaleMode],
			WorldFromPart: mgl64.Translate3D(pos.X(), pos.Y(), pos.Z()).
				Mul4(mgl64.Scale3D(scale.X(), scale.Y(), scale.Z())),
			WorldScale: scale,
		}

		for _, rs := range ps.Renderables {
			off := vec(rs.Offset, mgl64.Vec3{})
			box := vehicle.AABB{
				Min: vec(rs.Min, mgl64.Vec3{-0.5, -0.5, -0.5}),
				Max: vec(rs.Max, mgl64.Vec3{0.5, 0.5, 0.5}),
			}
			r := &vehicle.Renderable{
				Name:           rs.Name,
				Layer:          rs.Layer,
				Active:         !rs.Inactive,
				PartFromMesh:   mgl64.Translate3D(off.X(), off.Y(), off.Z()),
				LocalScale:     mgl64.Vec3{1, 1, 1},
				EnvelopeTagged: rs.Envelope,
				Visible:        true,
			}
			switch {
			case rs.NoMesh:
			case rs.Skinned:
				r.Skinned = true
				r.SkinnedBounds = box
			default:
				r.MeshBounds = &box
			}
			part.Renderables = append(part.Renderables, r)
		}
		out.Parts = append(out.Parts, part)
	}
	return out
}

// At interpolates the trajectory at a step.
func (v VehicleSpec) At(step int) Sample {
	s := v.Samples
	if step <= s[0].Step {
		return s[0]
	}
	for i := 1; i < len(s); i++ {
		if step > s[i].Step {
			continue
		}
		a, b := s[i-1], s[i]
		t := float64(step-a.Step) / float64(b.Step-a.Step)
		return Sample{
			Step:            step,
			Altitude:        lerp(a.Altitude, b.Altitude, t),
			Velocity:        lerpVec(a.Velocity, b.Velocity, t),
			Forward:         lerpVec(a.Forward, b.Forward, t),
			MachScalar:      lerp(a.MachScalar, b.MachScalar, t),
			MachState:       lerp(a.MachState, b.MachState, t),
			DynamicPressure: lerp(a.DynamicPressure, b.DynamicPressure, t),
		}
	}
	return s[len(s)-1]
}

func lerp(a, b, t float64) float64 {
	if math.IsNaN(t) {
		return b
	}
	return a + (b-a)*t
}

func lerpVec(a, b []float64, t float64) []float64 {
	va, vb := vec(a, mgl64.Vec3{}), vec(b, mgl64.Vec3{})
	r := va.Add(vb.Sub(va).Mul(t))
	return r[:]
}

// vec converts a YAML triple, returning def for anything else.
func vec(v []float64, def mgl64.Vec3) mgl64.Vec3 {
	if len(v) != 3 {
		return def
	}
	return mgl64.Vec3{v[0], v[1], v[2]}
}
