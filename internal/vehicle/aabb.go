package vehicle

import "github.com/go-gl/mathgl/mgl64"

// AABB is an axis-aligned box in some local space.
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// NewAABB builds a box from a center and full size.
func NewAABB(center, size mgl64.Vec3) AABB {
	half := size.Mul(0.5)
	return AABB{Min: center.Sub(half), Max: center.Add(half)}
}

// Center returns the middle of the box.
func (b AABB) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extents returns the half size of the box.
func (b AABB) Extents() mgl64.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// Corners returns the 8 corners, top face (+Y) first.
func (b AABB) Corners() [8]mgl64.Vec3 {
	c := b.Center()
	e := b.Extents()
	x, y, z := e.X(), e.Y(), e.Z()

	return [8]mgl64.Vec3{
		c.Add(mgl64.Vec3{x, y, z}),
		c.Add(mgl64.Vec3{x, y, -z}),
		c.Add(mgl64.Vec3{-x, y, z}),
		c.Add(mgl64.Vec3{-x, y, -z}),

		c.Add(mgl64.Vec3{x, -y, z}),
		c.Add(mgl64.Vec3{x, -y, -z}),
		c.Add(mgl64.Vec3{-x, -y, z}),
		c.Add(mgl64.Vec3{-x, -y, -z}),
	}
}
