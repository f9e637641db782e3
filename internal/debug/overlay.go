// Package debug provides debug visualization utilities.
package debug

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/entryfx/internal/bounds"
	"github.com/Faultbox/entryfx/internal/camera"
)

// Color is a linear RGB line color.
type Color struct {
	R, G, B float32
}

// Overlay colors.
var (
	Red     = Color{1, 0, 0}
	Green   = Color{0, 1, 0}
	Blue    = Color{0, 0, 1}
	Magenta = Color{1, 0, 1}
)

// Line is one world-space segment.
type Line struct {
	From  mgl64.Vec3
	To    mgl64.Vec3
	Color Color
}

// BoxLineCount is the number of lines of a box wireframe (12 edges).
const BoxLineCount = 12

// boxEdges indexes into vehicle.AABB.Corners: top face, bottom face, then
// the vertical edges.
var boxEdges = [BoxLineCount][2]int{
	{0, 1}, {1, 3}, {3, 2}, {2, 0},
	{4, 5}, {5, 7}, {7, 6}, {6, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// Box creates the wireframe of a box from its corners, in the order returned
// by vehicle.AABB.Corners.
func Box(corners [8]mgl64.Vec3, c Color) []Line {
	out := make([]Line, 0, BoxLineCount)
	for _, e := range boxEdges {
		out = append(out, Line{From: corners[e[0]], To: corners[e[1]], Color: c})
	}
	return out
}

// Axes draws the right (red), up (green) and forward (blue) axes at origin.
func Axes(origin, forward, up mgl64.Vec3, length float64) []Line {
	right := forward.Cross(up)
	return []Line{
		{From: origin, To: origin.Add(unit(right).Mul(length)), Color: Red},
		{From: origin, To: origin.Add(unit(up).Mul(length)), Color: Green},
		{From: origin, To: origin.Add(unit(forward).Mul(length)), Color: Blue},
	}
}

// Arrow draws a shaft along forward with a two-line head.
func Arrow(origin, forward, right mgl64.Vec3, length float64, c Color) []Line {
	fwd := unit(forward)
	tip := origin.Add(fwd.Mul(length))
	back := fwd.Mul(-length * 0.2)
	side := unit(right).Mul(length * 0.1)
	return []Line{
		{From: origin, To: tip, Color: c},
		{From: tip, To: tip.Add(back).Add(side), Color: c},
		{From: tip, To: tip.Add(back).Sub(side), Color: c},
	}
}

// Overlay draws the vehicle bounds, the vehicle axes and the airstream
// camera, all in world space.
func Overlay(worldFromVehicle mgl64.Mat4, vol bounds.Volume, forward mgl64.Vec3, cam camera.AirstreamCamera) []Line {
	corners := vol.Corners()
	for i := range corners {
		corners[i] = mgl64.TransformCoordinate(corners[i], worldFromVehicle)
	}
	lines := Box(corners, Green)

	origin := mgl64.TransformCoordinate(mgl64.Vec3{}, worldFromVehicle)
	up := mgl64.TransformNormal(mgl64.Vec3{0, 1, 0}, worldFromVehicle)
	length := max(vol.Radius, 1)
	lines = append(lines, Axes(origin, forward, up, length)...)

	view := cam.Target.Sub(cam.Position)
	if view.Len() > 0 {
		right := view.Cross(cam.Up)
		lines = append(lines, Arrow(cam.Position, view, right, length*0.5, Magenta)...)
	}
	return lines
}

// Vertices flattens lines into [x, y, z] per endpoint for a line renderer.
func Vertices(lines []Line) []float32 {
	out := make([]float32, 0, len(lines)*6)
	for _, l := range lines {
		out = append(out,
			float32(l.From.X()), float32(l.From.Y()), float32(l.From.Z()),
			float32(l.To.X()), float32(l.To.Y()), float32(l.To.Z()))
	}
	return out
}

func unit(v mgl64.Vec3) mgl64.Vec3 {
	if l := v.Len(); l > 0 {
		return v.Mul(1 / l)
	}
	return v
}
