// Package vehicle models the host's read-only vehicle snapshot: parts, their
// renderable sub-meshes and the transforms that place them.
package vehicle

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Category flags classify parts for eligibility decisions.
type Category uint32

const (
	CategoryParachute Category = 1 << iota
	CategoryConformalDecal
	CategoryConformalFlag
	CategoryConformalText
	CategoryRadialDrill
	CategoryWheel
	CategoryAsteroid
)

// Decorative parts never take part in bounds or envelope discovery.
const Decorative = CategoryConformalDecal | CategoryConformalFlag | CategoryConformalText | CategoryRadialDrill

// BoundsIncompatible parts are skipped by the strict bounds pass only.
const BoundsIncompatible = CategoryParachute

// Render layers.
const (
	LayerDefault = 0
	LayerHidden  = 1 // non-physical helper geometry
)

// ScaleMode selects which scale normalizes a part's envelope thickness.
type ScaleMode uint8

const (
	ScaleLossy ScaleMode = iota // world-space scale
	ScaleLocal                  // renderable-local scale, for parts whose parents are animated
	ScaleUnit                   // no normalization
)

// Renderable is one sub-mesh attached to a part.
type Renderable struct {
	Name  string
	Layer int

	// Active mirrors the host's "active in hierarchy" flag.
	Active bool

	// PartFromMesh places the sub-mesh in part-local space.
	PartFromMesh mgl64.Mat4
	LocalScale   mgl64.Vec3

	// MeshBounds is nil when the host could not provide mesh data.
	MeshBounds *AABB

	// Skinned renderables use their animated-pose bounds.
	Skinned       bool
	SkinnedBounds AABB

	EnvelopeTagged bool

	// Visible is the only field the engine writes.
	Visible bool
}

// HasMesh reports whether the renderable owns concrete mesh data.
func (r *Renderable) HasMesh() bool {
	return r.Skinned || r.MeshBounds != nil
}

// LocalBounds returns the box used for bounds scanning.
func (r *Renderable) LocalBounds() (AABB, bool) {
	if r.Skinned {
		return r.SkinnedBounds, true
	}
	if r.MeshBounds == nil {
		return AABB{}, false
	}
	return *r.MeshBounds, true
}

// Valid applies the hard checks every pass uses, whatever the part filter.
func (r *Renderable) Valid() bool {
	return r.Active && r.Layer != LayerHidden && r.HasMesh()
}

// Part is a node of the vehicle.
type Part struct {
	// Key is the stable identity used for part-level parameter lookup.
	Key  string
	Name string

	Categories Category
	ScaleMode  ScaleMode

	WorldFromPart mgl64.Mat4
	WorldScale    mgl64.Vec3

	Renderables []*Renderable
}

// Has reports whether the part carries any of the given categories.
func (p *Part) Has(c Category) bool {
	return p.Categories&c != 0
}

// Vehicle is a snapshot of one vehicle's structure.
type Vehicle struct {
	ID   string
	Name string

	WorldFromVehicle mgl64.Mat4

	Parts []*Part
}

// VehicleFromWorld returns the inverse of the vehicle placement.
func (v *Vehicle) VehicleFromWorld() mgl64.Mat4 {
	return v.WorldFromVehicle.Inv()
}

// WorldFromMesh composes the sub-mesh → part → world transform.
func WorldFromMesh(p *Part, r *Renderable) mgl64.Mat4 {
	return p.WorldFromPart.Mul4(r.PartFromMesh)
}

// RenderableCount returns the number of renderables across all parts.
func (v *Vehicle) RenderableCount() int {
	n := 0
	for _, p := range v.Parts {
		n += len(p.Renderables)
	}
	return n
}

// ConfigKey converts a part definition name into its config key.
func ConfigKey(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}
