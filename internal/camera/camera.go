// Package camera provides the orthographic airstream camera that looks down
// the entry direction onto a vehicle's bounding volume.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/entryfx/internal/bounds"
)

// Limits applied when fitting to a bounding volume.
const (
	MinOrthoSize = 0.3
	MaxOrthoSize = 2000.0
	MinFarClip   = 1.0
	MaxFarClip   = 1000.0

	// DistanceFactor scales the bounding radius into the camera distance.
	DistanceFactor = 1.1
)

// AirstreamCamera is an orthographic camera placed upstream of the vehicle.
type AirstreamCamera struct {
	// Projection
	OrthoSize float64
	NearClip  float64
	FarClip   float64

	// Vehicle-local target and distance
	Center   mgl64.Vec3
	Distance float64

	// Placement, updated by Follow
	LocalPosition mgl64.Vec3
	Position      mgl64.Vec3
	Target        mgl64.Vec3
	Up            mgl64.Vec3
}

// NewAirstreamCamera creates a camera with the minimum projection.
func NewAirstreamCamera() *AirstreamCamera {
	return &AirstreamCamera{
		OrthoSize: MinOrthoSize,
		FarClip:   MinFarClip,
		Up:        mgl64.Vec3{0, 1, 0},
	}
}

// FitToBounds sizes the projection to the bounding volume.
func (c *AirstreamCamera) FitToBounds(vol bounds.Volume) {
	ext := vol.HalfExtents.Len()

	c.OrthoSize = clamp(ext, MinOrthoSize, MaxOrthoSize)
	c.FarClip = clamp(ext*2, MinFarClip, MaxFarClip)
	c.Center = vol.Center
	c.Distance = vol.Radius * DistanceFactor
}

// Follow places the camera upstream along dir, a world-space entry velocity
// direction. A zero or non-finite dir leaves the camera on the center.
func (c *AirstreamCamera) Follow(worldFromVehicle mgl64.Mat4, dir mgl64.Vec3) {
	vehicleFromWorld := worldFromVehicle.Inv()
	local := mgl64.TransformNormal(dir, vehicleFromWorld)
	if l := local.Len(); l > 0 && !math.IsNaN(l) && !math.IsInf(l, 0) {
		local = local.Mul(1 / l)
	} else {
		local = mgl64.Vec3{}
	}

	c.LocalPosition = c.Center.Add(local.Mul(c.Distance))
	c.Position = mgl64.TransformCoordinate(c.LocalPosition, worldFromVehicle)
	c.Target = mgl64.TransformCoordinate(c.Center, worldFromVehicle)
	c.Up = upFor(c.Target.Sub(c.Position))
}

// ViewMatrix returns the view matrix looking from Position at Target.
func (c *AirstreamCamera) ViewMatrix() mgl64.Mat4 {
	if c.Position.ApproxEqual(c.Target) {
		return mgl64.Translate3D(-c.Position.X(), -c.Position.Y(), -c.Position.Z())
	}
	return mgl64.LookAtV(c.Position, c.Target, c.Up)
}

// ProjectionMatrix returns the orthographic projection.
func (c *AirstreamCamera) ProjectionMatrix() mgl64.Mat4 {
	s := c.OrthoSize
	return mgl64.Ortho(-s, s, -s, s, c.NearClip, c.FarClip)
}

// upFor picks an up vector that is not parallel to the view direction.
func upFor(forward mgl64.Vec3) mgl64.Vec3 {
	up := mgl64.Vec3{0, 1, 0}
	if l := forward.Len(); l > 0 && math.Abs(forward.Dot(up)/l) > 0.999 {
		return mgl64.Vec3{0, 0, 1}
	}
	return up
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
