// Package params defines the effect parameter set and resolves it from the
// layered configuration (default, body, planet pack, part).
package params

import "fmt"

// Field identifies one numeric parameter.
type Field int

const (
	StrengthMultiplier Field = iota
	LengthMultiplier
	OpacityMultiplier
	GlowMultiplier
	WrapOpacityMultiplier
	WrapFresnelModifier
	ParticleThreshold
	StreakProbability
	StreakThreshold

	NumFields
)

var fieldNames = [NumFields]string{
	StrengthMultiplier:    "strength_multiplier",
	LengthMultiplier:      "length_multiplier",
	OpacityMultiplier:     "opacity_multiplier",
	GlowMultiplier:        "glow_multiplier",
	WrapOpacityMultiplier: "wrap_opacity_multiplier",
	WrapFresnelModifier:   "wrap_fresnel_modifier",
	ParticleThreshold:     "particle_threshold",
	StreakProbability:     "streak_probability",
	StreakThreshold:       "streak_threshold",
}

// String returns the config key of the field.
func (f Field) String() string {
	if f < 0 || f >= NumFields {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// Channel identifies one color parameter.
type Channel int

const (
	Glow Channel = iota
	GlowHot
	TrailPrimary
	TrailSecondary
	TrailTertiary
	TrailStreak
	WrapLayer
	WrapStreak
	Shockwave

	NumChannels
)

var channelNames = [NumChannels]string{
	Glow:           "glow",
	GlowHot:        "glow_hot",
	TrailPrimary:   "trail_primary",
	TrailSecondary: "trail_secondary",
	TrailTertiary:  "trail_tertiary",
	TrailStreak:    "trail_streak",
	WrapLayer:      "wrap_layer",
	WrapStreak:     "wrap_streak",
	Shockwave:      "shockwave",
}

// String returns the config key of the channel.
func (c Channel) String() string {
	if c < 0 || c >= NumChannels {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelNames[c]
}

// FieldByName looks a field up by its config key.
func FieldByName(name string) (Field, bool) {
	for f, n := range fieldNames {
		if n == name {
			return Field(f), true
		}
	}
	return 0, false
}

// ChannelByName looks a channel up by its config key.
func ChannelByName(name string) (Channel, bool) {
	for c, n := range channelNames {
		if n == name {
			return Channel(c), true
		}
	}
	return 0, false
}

// Opt is a value that a sparse layer may or may not define.
type Opt[T any] struct {
	value T
	set   bool
}

// Some returns a defined value.
func Some[T any](v T) Opt[T] {
	return Opt[T]{value: v, set: true}
}

// Get returns the value and whether it is defined.
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.set
}

// Or returns the value, or fallback when undefined.
func (o Opt[T]) Or(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}
