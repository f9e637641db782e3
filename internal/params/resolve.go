package params

// Resolve returns the effective parameter set for a body and part key.
//
// The body layer (or the default for unknown bodies) is the starting point.
// Every planet pack affecting the body multiplies the strength multiplier;
// the last one also provides the transition offset. The part layer then
// replaces each color channel it defines. Layers are read only.
func Resolve(l *Layers, body, partKey string) ParameterSet {
	s, _ := l.Body(body)
	s.Body = body

	for _, pack := range l.Packs {
		if !pack.Affects(body) {
			continue
		}
		s.Numbers[StrengthMultiplier] *= pack.StrengthMultiplier
		s.TransitionOffset = pack.TransitionOffset
	}

	if partKey == "" {
		return s
	}
	if part, ok := l.Parts[partKey]; ok {
		for c := Channel(0); c < NumChannels; c++ {
			s.Colors[c] = part.Colors[c].Or(s.Colors[c])
		}
	}

	return s
}
