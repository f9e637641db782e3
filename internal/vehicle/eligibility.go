package vehicle

import "strings"

// Predicate decides whether a part takes part in a pass.
type Predicate func(*Part) bool

// EnvelopeEligible excludes decorative overlays from every geometry pass.
func EnvelopeEligible(p *Part) bool {
	return !p.Has(Decorative)
}

// BoundsEligible additionally drops parts whose geometry misrepresents the
// flight shape (deployed chutes).
func BoundsEligible(p *Part) bool {
	return EnvelopeEligible(p) && !p.Has(BoundsIncompatible)
}

// AnyPart accepts everything; the relaxed bounds pass uses it.
func AnyPart(*Part) bool {
	return true
}

// IsWheelFlare reports whether r is the flare mesh landing gear carry.
func IsWheelFlare(p *Part, r *Renderable) bool {
	return p.Has(CategoryWheel) && strings.EqualFold(r.Name, "flare")
}
