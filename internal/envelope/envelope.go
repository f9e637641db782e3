// Package envelope discovers the render proxies that form the effect's
// projection surface around a vehicle.
package envelope

import (
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/entryfx/internal/vehicle"
)

// DefaultScaleBias pushes general proxies slightly outward so they do not
// z-fight with the surface they wrap.
var DefaultScaleBias = mgl64.Vec3{1.05, 1.07, 1.05}

// Proxy wraps one accepted renderable.
type Proxy struct {
	PartKey    string
	Part       *vehicle.Part
	Renderable *vehicle.Renderable

	// ModelScale is the reciprocal of the part scale, so the shader
	// multiplies instead of dividing.
	ModelScale mgl64.Vec3
	ScaleBias  mgl64.Vec3

	// RandomnessFactor switches the shader to colored streaks (asteroids).
	RandomnessFactor float64

	Tagged bool
}

// World returns the current mesh → world transform of the proxy.
func (p Proxy) World() mgl64.Mat4 {
	return vehicle.WorldFromMesh(p.Part, p.Renderable)
}

// PartStats counts how each part contributed.
type PartStats struct {
	Tagged  int
	Scanned int
}

// Result is one full discovery pass.
type Result struct {
	Proxies []Proxy
	Parts   map[string]PartStats
}

// Builder runs discovery passes.
type Builder struct {
	log *zap.Logger
}

// NewBuilder creates a builder. A nil logger disables logging.
func NewBuilder(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{log: log}
}

// Build runs discovery over every envelope-eligible part of v. Tagged
// renderables have their normal rendering disabled.
func (b *Builder) Build(v *vehicle.Vehicle) Result {
	res := Result{Parts: make(map[string]PartStats, len(v.Parts))}

	for _, part := range v.Parts {
		if !vehicle.EnvelopeEligible(part) {
			continue
		}

		stats := res.Parts[part.Key]
		if hasTagged(part) {
			b.log.Debug("part has a defined envelope, skipping mesh search",
				zap.String("part", part.Name))
			for _, r := range part.Renderables {
				if !r.EnvelopeTagged || !r.Active || r.MeshBounds == nil {
					continue
				}
				r.Visible = false
				res.Proxies = append(res.Proxies, Proxy{
					PartKey:          part.Key,
					Part:             part,
					Renderable:       r,
					ModelScale:       mgl64.Vec3{1, 1, 1},
					ScaleBias:        mgl64.Vec3{1, 1, 1},
					RandomnessFactor: randomness(part),
					Tagged:           true,
				})
				stats.Tagged++
			}
			res.Parts[part.Key] = stats
			continue
		}

		for _, r := range part.Renderables {
			if !accept(part, r) {
				continue
			}
			res.Proxies = append(res.Proxies, Proxy{
				PartKey:          part.Key,
				Part:             part,
				Renderable:       r,
				ModelScale:       ModelScale(part, r),
				ScaleBias:        DefaultScaleBias,
				RandomnessFactor: randomness(part),
			})
			stats.Scanned++
		}
		res.Parts[part.Key] = stats
	}

	b.log.Debug("envelope discovery finished",
		zap.String("vehicle", v.Name),
		zap.Int("parts", len(v.Parts)),
		zap.Int("proxies", len(res.Proxies)))

	return res
}

// Restore re-enables normal rendering on tagged renderables, undoing Build.
func Restore(proxies []Proxy) {
	for _, p := range proxies {
		if p.Tagged {
			p.Renderable.Visible = true
		}
	}
}

// Rebind moves proxies built from one snapshot of a vehicle onto a newer
// snapshot with the same structure. Parts and renderables are matched by
// position and must keep their key and name. When anything does not match,
// the proxies are returned unchanged and ok is false.
func Rebind(proxies []Proxy, from, to *vehicle.Vehicle) (out []Proxy, ok bool) {
	if from == nil || to == nil || len(from.Parts) != len(to.Parts) {
		return proxies, false
	}

	type slot struct{ part, renderable int }
	index := make(map[*vehicle.Renderable]slot, from.RenderableCount())
	for pi, p := range from.Parts {
		for ri, r := range p.Renderables {
			index[r] = slot{pi, ri}
		}
	}

	out = make([]Proxy, len(proxies))
	for i, px := range proxies {
		s, found := index[px.Renderable]
		if !found {
			return proxies, false
		}
		part := to.Parts[s.part]
		if part.Key != px.PartKey || s.renderable >= len(part.Renderables) {
			return proxies, false
		}
		r := part.Renderables[s.renderable]
		if r.Name != px.Renderable.Name {
			return proxies, false
		}
		out[i] = px
		out[i].Part = part
		out[i].Renderable = r
	}

	for _, px := range out {
		if px.Tagged {
			px.Renderable.Visible = false
		}
	}
	return out, true
}

func hasTagged(p *vehicle.Part) bool {
	for _, r := range p.Renderables {
		if r.EnvelopeTagged {
			return true
		}
	}
	return false
}

// accept applies the general discovery rules in order.
func accept(p *vehicle.Part, r *vehicle.Renderable) bool {
	if !r.Active {
		return false
	}
	if vehicle.IsWheelFlare(p, r) {
		return false
	}
	if r.Layer == vehicle.LayerHidden {
		return false
	}
	if !r.HasMesh() {
		return false
	}
	return vehicle.BoundsEligible(p)
}

// ModelScale returns the per-axis reciprocal scale used to normalize the
// apparent effect thickness. Zero components are treated as 1.
func ModelScale(p *vehicle.Part, r *vehicle.Renderable) mgl64.Vec3 {
	var s mgl64.Vec3
	switch p.ScaleMode {
	case vehicle.ScaleUnit:
		return mgl64.Vec3{1, 1, 1}
	case vehicle.ScaleLocal:
		s = r.LocalScale
	default:
		s = p.WorldScale
	}

	var out mgl64.Vec3
	for i := range s {
		if s[i] == 0 {
			out[i] = 1
			continue
		}
		out[i] = 1 / s[i]
	}
	return out
}

func randomness(p *vehicle.Part) float64 {
	if p.Has(vehicle.CategoryAsteroid) {
		return 1
	}
	return 0
}
