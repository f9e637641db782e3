// Package bounds computes the vehicle-local bounding volume of a vehicle's
// renderable geometry.
//
// The scan is exposed in two explicit phases. Strict uses the bounds
// eligibility rules; Relaxed drops the part filter and keeps only the
// renderable validity checks. Compute chains them the way load does.
package bounds

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/entryfx/internal/vehicle"
)

// ErrNoEligibleGeometry is returned when neither phase found any geometry.
var ErrNoEligibleGeometry = errors.New("no eligible geometry")

// NoEligibleGeometryError names the vehicle whose scan was degenerate.
type NoEligibleGeometryError struct {
	Vehicle string
}

func (e *NoEligibleGeometryError) Error() string {
	return fmt.Sprintf("vehicle %q: %v", e.Vehicle, ErrNoEligibleGeometry)
}

func (e *NoEligibleGeometryError) Unwrap() error {
	return ErrNoEligibleGeometry
}

// Volume is the vehicle-local box enclosing the scanned geometry.
type Volume struct {
	Min mgl64.Vec3
	Max mgl64.Vec3

	Center       mgl64.Vec3
	HalfExtents  mgl64.Vec3
	Radius       float64
	MaxDimension float64

	// Renderables is the number of renderables folded into the box.
	Renderables int
	Relaxed     bool
}

// Box returns the volume as an AABB.
func (v Volume) Box() vehicle.AABB {
	return vehicle.AABB{Min: v.Min, Max: v.Max}
}

// Corners returns the 8 vehicle-local corners.
func (v Volume) Corners() [8]mgl64.Vec3 {
	return v.Box().Corners()
}

// Scan folds every valid renderable of every part accepted by eligible into
// one box. ok is false when nothing was folded.
func Scan(v *vehicle.Vehicle, eligible vehicle.Predicate) (vol Volume, ok bool) {
	acc := newAccumulator()
	vehicleFromWorld := v.VehicleFromWorld()

	for _, part := range v.Parts {
		if !eligible(part) {
			continue
		}
		for _, r := range part.Renderables {
			if !r.Valid() {
				continue
			}
			local, has := r.LocalBounds()
			if !has {
				continue
			}

			m := vehicleFromWorld.Mul4(vehicle.WorldFromMesh(part, r))
			if !finite(m) {
				continue
			}
			for _, c := range local.Corners() {
				acc.add(mgl64.TransformCoordinate(c, m))
			}
			acc.count++
		}
	}

	if acc.degenerate() {
		return Volume{}, false
	}
	return acc.volume(), true
}

// Strict runs the first phase with the bounds eligibility rules.
func Strict(v *vehicle.Vehicle) (Volume, bool) {
	return Scan(v, vehicle.BoundsEligible)
}

// Relaxed runs the fallback phase without any part filter.
func Relaxed(v *vehicle.Vehicle) (Volume, bool) {
	vol, ok := Scan(v, vehicle.AnyPart)
	vol.Relaxed = ok
	return vol, ok
}

// Compute runs Strict and, when it is degenerate, Relaxed.
func Compute(v *vehicle.Vehicle) (Volume, error) {
	if vol, ok := Strict(v); ok {
		return vol, nil
	}
	if vol, ok := Relaxed(v); ok {
		return vol, nil
	}
	return Volume{}, &NoEligibleGeometryError{Vehicle: v.Name}
}

// accumulator tracks the running min/max from sentinel values.
type accumulator struct {
	min, max mgl64.Vec3
	count    int
}

func newAccumulator() *accumulator {
	return &accumulator{
		min: mgl64.Vec3{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64},
		max: mgl64.Vec3{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64},
	}
}

func (a *accumulator) add(p mgl64.Vec3) {
	for i := 0; i < 3; i++ {
		if p[i] < a.min[i] {
			a.min[i] = p[i]
		}
		if p[i] > a.max[i] {
			a.max[i] = p[i]
		}
	}
}

// degenerate reports whether the max corner never left its sentinel.
func (a *accumulator) degenerate() bool {
	return a.max.X() == -math.MaxFloat64
}

func (a *accumulator) volume() Volume {
	size := a.max.Sub(a.min)
	for i := range size {
		size[i] = math.Abs(size[i])
	}
	half := size.Mul(0.5)

	return Volume{
		Min:          a.min,
		Max:          a.max,
		Center:       a.min.Add(half),
		HalfExtents:  half,
		Radius:       half.Len(),
		MaxDimension: math.Max(size.X(), math.Max(size.Y(), size.Z())),
		Renderables:  a.count,
	}
}

func finite(m mgl64.Mat4) bool {
	for _, f := range m {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
