package params

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Color is an SDR color plus an intensity exponent. Channels are 0..1.
type Color struct {
	R, G, B   float64
	Intensity float64
}

// HDR returns rgb scaled by 2^Intensity.
func (c Color) HDR() mgl64.Vec3 {
	f := math.Exp2(c.Intensity)
	return mgl64.Vec3{c.R * f, c.G * f, c.B * f}
}

// String formats the color in SDRI notation: "r g b i" with rgb in 0..255.
func (c Color) String() string {
	return fmt.Sprintf("%d %d %d %s",
		int(math.Round(c.R*255)),
		int(math.Round(c.G*255)),
		int(math.Round(c.B*255)),
		strconv.FormatFloat(c.Intensity, 'f', -1, 64))
}

// ParseColor parses SDRI notation.
func ParseColor(s string) (Color, error) {
	parts := strings.Fields(s)
	if len(parts) < 4 {
		return Color{}, fmt.Errorf("color %q: expected 4 values, got %d", s, len(parts))
	}

	var v [4]float64
	for i := 0; i < 4; i++ {
		f, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return Color{}, fmt.Errorf("color %q: %w", s, err)
		}
		v[i] = f
	}

	return Color{R: v[0] / 255, G: v[1] / 255, B: v[2] / 255, Intensity: v[3]}, nil
}

// IsUnset reports whether a config value explicitly leaves a color undefined.
func IsUnset(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "default":
		return true
	}
	return false
}
