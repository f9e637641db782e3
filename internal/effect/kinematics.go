package effect

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// EntryDirection is the normalized surface velocity. Degenerate velocities
// give the zero vector.
func EntryDirection(surfaceVelocity mgl64.Vec3) mgl64.Vec3 {
	return normalize(surfaceVelocity)
}

// AngleOfAttack is the angle between the vehicle's forward vector and its
// surface velocity, in radians.
func AngleOfAttack(forward, surfaceVelocity mgl64.Vec3) float64 {
	f := normalize(forward)
	v := normalize(surfaceVelocity)
	if f.Len() == 0 || v.Len() == 0 {
		return 0
	}
	a := math.Acos(math.Max(-1, math.Min(1, f.Dot(v))))
	if math.IsNaN(a) {
		return 0
	}
	return a
}

// RelativeVelocity is the vehicle's velocity relative to the active vehicle.
// The active vehicle itself has zero relative velocity.
func RelativeVelocity(isActive bool, velocity, activeVelocity mgl64.Vec3) mgl64.Vec3 {
	if isActive {
		return mgl64.Vec3{}
	}
	return finiteVec(velocity.Sub(activeVelocity))
}

// BaseLengthMultiplier scales the trail length with the vehicle size.
// A radius of 2 gives 1, a radius of 6 gives 1.6.
func BaseLengthMultiplier(radius float64) float64 {
	return 1 + (radius/2-1)*0.3
}

func normalize(v mgl64.Vec3) mgl64.Vec3 {
	v = finiteVec(v)
	l := v.Len()
	if l == 0 || math.IsInf(l, 0) {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

func finiteVec(v mgl64.Vec3) mgl64.Vec3 {
	for i := range v {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return mgl64.Vec3{}
		}
	}
	return v
}
