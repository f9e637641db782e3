package params

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// DefaultBody is the name of the layer every body falls back to.
const DefaultBody = "Default"

// ErrMissingDefault is returned when the layer store has no default body.
var ErrMissingDefault = errors.New("default body layer not loaded")

// MissingFieldError reports a field that neither the body nor the default
// layer defines. It is a load-time configuration error.
type MissingFieldError struct {
	Body  string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("body %q: required field %q is not defined", e.Body, e.Field)
}

// ParameterSet is a fully resolved parameter set.
type ParameterSet struct {
	Body string

	Numbers [NumFields]float64
	Colors  [NumChannels]Color

	// TransitionOffset comes from the planet pack affecting the body.
	TransitionOffset float64
}

// Get returns a numeric field.
func (s ParameterSet) Get(f Field) float64 {
	return s.Numbers[f]
}

// Color returns a color channel.
func (s ParameterSet) Color(c Channel) Color {
	return s.Colors[c]
}

// BodyLayer is one body's sparse configuration.
type BodyLayer struct {
	Name    string
	Version int
	Numbers [NumFields]Opt[float64]
	Colors  [NumChannels]Opt[Color]
}

// PackLayer is a planet pack adjusting the bodies it lists.
type PackLayer struct {
	Name               string
	StrengthMultiplier float64
	TransitionOffset   float64
	AffectedBodies     []string
}

// Affects reports whether the pack applies to body.
func (p PackLayer) Affects(body string) bool {
	return lo.Contains(p.AffectedBodies, body)
}

// PartLayer overrides colors for one part key.
type PartLayer struct {
	Key    string
	Colors [NumChannels]Opt[Color]
}

// Layers is the immutable layer store the resolver reads.
type Layers struct {
	Default ParameterSet
	Bodies  map[string]ParameterSet
	Packs   []PackLayer
	Parts   map[string]PartLayer
}

// Complete merges a body layer over the default layer. Every field must end
// up defined.
func Complete(def, body BodyLayer) (ParameterSet, error) {
	s := ParameterSet{Body: body.Name}

	for f := Field(0); f < NumFields; f++ {
		v, ok := body.Numbers[f].Get()
		if !ok {
			v, ok = def.Numbers[f].Get()
		}
		if !ok {
			return ParameterSet{}, &MissingFieldError{Body: body.Name, Field: f.String()}
		}
		s.Numbers[f] = v
	}

	for c := Channel(0); c < NumChannels; c++ {
		v, ok := body.Colors[c].Get()
		if !ok {
			v, ok = def.Colors[c].Get()
		}
		if !ok {
			return ParameterSet{}, &MissingFieldError{Body: body.Name, Field: c.String()}
		}
		s.Colors[c] = v
	}

	return s, nil
}

// NewLayers completes every body against the default layer. def must be
// complete on its own.
func NewLayers(def *BodyLayer, bodies []BodyLayer, packs []PackLayer, parts []PartLayer) (*Layers, error) {
	if def == nil {
		return nil, ErrMissingDefault
	}

	defSet, err := Complete(BodyLayer{}, *def)
	if err != nil {
		return nil, err
	}
	defSet.Body = DefaultBody

	l := &Layers{
		Default: defSet,
		Bodies:  make(map[string]ParameterSet, len(bodies)+1),
		Packs:   append([]PackLayer(nil), packs...),
		Parts:   make(map[string]PartLayer, len(parts)),
	}
	l.Bodies[DefaultBody] = defSet

	for _, b := range bodies {
		s, err := Complete(*def, b)
		if err != nil {
			return nil, err
		}
		l.Bodies[b.Name] = s
	}
	for _, p := range parts {
		l.Parts[p.Key] = p
	}

	return l, nil
}

// Body returns the completed body layer, falling back to the default.
func (l *Layers) Body(name string) (ParameterSet, bool) {
	if s, ok := l.Bodies[name]; ok {
		return s, true
	}
	return l.Default, false
}

// BodyNames lists the configured bodies.
func (l *Layers) BodyNames() []string {
	return lo.Keys(l.Bodies)
}
