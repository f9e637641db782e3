package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/entryfx/internal/params"
	"github.com/Faultbox/entryfx/internal/particles"
	"github.com/Faultbox/entryfx/internal/vehicle"
)

// LayerVersion is the body config version this build understands.
const LayerVersion = 5

// Cause is the probable cause of a load issue.
type Cause int

const (
	CauseBadConfig Cause = iota
	CauseConfigVersionMismatch
	CauseIncorrectInstall
)

func (c Cause) String() string {
	switch c {
	case CauseBadConfig:
		return "bad config"
	case CauseConfigVersionMismatch:
		return "config version mismatch"
	case CauseIncorrectInstall:
		return "incorrect install"
	default:
		return fmt.Sprintf("cause(%d)", int(c))
	}
}

// Issue is a problem found while loading the layer store. Non-serious issues
// mean the offending entry was skipped.
type Issue struct {
	Cause       Cause
	Serious     bool
	Source      string
	Description string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s (%s)", i.Source, i.Description, i.Cause)
}

// LayerStore is the decoded layer store.
type LayerStore struct {
	Layers    *params.Layers
	Particles []particles.Config
	Issues    []Issue
}

// Serious reports whether any serious issue was registered.
func (s *LayerStore) Serious() bool {
	return lo.SomeBy(s.Issues, func(i Issue) bool { return i.Serious })
}

type bodyDoc struct {
	Name    string               `yaml:"name"`
	Version int                  `yaml:"config_version"`
	Colors  map[string]*string   `yaml:"colors"`
	Values  map[string]yaml.Node `yaml:",inline"`
}

type packDoc struct {
	Name               string   `yaml:"name"`
	StrengthMultiplier *float64 `yaml:"strength_multiplier"`
	TransitionOffset   float64  `yaml:"transition_offset"`
	AffectedBodies     []string `yaml:"affected_bodies"`
}

type partDoc struct {
	Name   string             `yaml:"name"`
	Colors map[string]*string `yaml:"colors"`
}

type storeDoc struct {
	Default   *bodyDoc           `yaml:"default"`
	Bodies    []bodyDoc          `yaml:"bodies"`
	Packs     []packDoc          `yaml:"packs"`
	Parts     []partDoc          `yaml:"parts"`
	Particles []particles.Config `yaml:"particles"`
}

// LoadLayers reads the layer store at path.
func LoadLayers(path string, log *zap.Logger) (*LayerStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layer store: %w", err)
	}

	store, err := DecodeLayers(data, log)
	if err != nil {
		return store, fmt.Errorf("loading layer store from %s: %w", path, err)
	}
	return store, nil
}

// DecodeLayers decodes a layer store document. Entries that fail validation
// are skipped and recorded as issues. A missing or incomplete default layer
// is fatal.
func DecodeLayers(data []byte, log *zap.Logger) (*LayerStore, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var doc storeDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing layer store: %w", err)
	}

	d := &decoder{log: log, store: &LayerStore{}}

	def := d.defaultLayer(doc.Default)
	bodies := d.bodies(doc.Bodies)
	packs := d.packs(doc.Packs)
	parts := d.parts(doc.Parts)
	d.store.Particles = d.particles(doc.Particles)

	layers, err := params.NewLayers(def, bodies, packs, parts)
	if err != nil {
		if errors.Is(err, params.ErrMissingDefault) {
			d.issue(CauseIncorrectInstall, true, "default body config",
				"the default body config was not loaded, the layer store is probably installed incorrectly")
		}
		var mf *params.MissingFieldError
		if errors.As(err, &mf) {
			d.issue(CauseBadConfig, true, "body config "+mf.Body,
				fmt.Sprintf("field %q is not defined by the body or the default config", mf.Field))
		}
		return d.store, err
	}
	d.store.Layers = layers

	log.Info("layer store loaded",
		zap.Int("bodies", len(bodies)),
		zap.Int("packs", len(packs)),
		zap.Int("parts", len(parts)),
		zap.Int("particles", len(d.store.Particles)),
		zap.Int("issues", len(d.store.Issues)))

	return d.store, nil
}

type decoder struct {
	log   *zap.Logger
	store *LayerStore
}

func (d *decoder) issue(cause Cause, serious bool, source, desc string) {
	i := Issue{Cause: cause, Serious: serious, Source: source, Description: desc}
	d.store.Issues = append(d.store.Issues, i)
	if serious {
		d.log.Error("layer store issue", zap.Stringer("issue", i))
	} else {
		d.log.Warn("layer store issue", zap.Stringer("issue", i))
	}
}

func (d *decoder) defaultLayer(doc *bodyDoc) *params.BodyLayer {
	if doc == nil {
		return nil
	}
	doc.Name = params.DefaultBody

	b, ok := d.body(*doc)
	if !ok {
		return nil
	}
	return &b
}

func (d *decoder) bodies(docs []bodyDoc) []params.BodyLayer {
	var out []params.BodyLayer
	for _, doc := range docs {
		if doc.Name == params.DefaultBody {
			d.issue(CauseBadConfig, false, "body config "+doc.Name,
				"the default config belongs in the default section")
			continue
		}
		if b, ok := d.body(doc); ok {
			out = append(out, b)
		}
	}
	return out
}

func (d *decoder) body(doc bodyDoc) (params.BodyLayer, bool) {
	source := "body config " + doc.Name
	if doc.Name == "" {
		d.issue(CauseBadConfig, false, "body config", "body config without a name")
		return params.BodyLayer{}, false
	}

	version := doc.Version
	if version == 0 {
		// Configs without a version predate versioning.
		version = LayerVersion - 1
	}
	if version != LayerVersion {
		advice := "the config is outdated"
		if version > LayerVersion {
			advice = "the config is newer than this build"
		}
		d.issue(CauseConfigVersionMismatch, false, source,
			fmt.Sprintf("config version %d, expected %d: %s", version, LayerVersion, advice))
		return params.BodyLayer{}, false
	}

	b := params.BodyLayer{Name: doc.Name, Version: version}

	keys := lo.Keys(doc.Values)
	slices.Sort(keys)
	for _, key := range keys {
		f, ok := params.FieldByName(key)
		if !ok {
			d.log.Debug("ignoring unknown body field", zap.String("body", doc.Name), zap.String("field", key))
			continue
		}
		node := doc.Values[key]
		if node.ShortTag() == "!!null" {
			continue
		}
		var v float64
		if err := node.Decode(&v); err != nil {
			d.issue(CauseBadConfig, false, source, fmt.Sprintf("field %q: %v", key, err))
			return params.BodyLayer{}, false
		}
		b.Numbers[f] = params.Some(v)
	}

	colors, err := decodeColors(doc.Colors)
	if err != nil {
		d.issue(CauseBadConfig, false, source, err.Error())
		return params.BodyLayer{}, false
	}
	b.Colors = colors

	return b, true
}

func (d *decoder) packs(docs []packDoc) []params.PackLayer {
	var out []params.PackLayer
	for _, doc := range docs {
		source := "planet pack " + doc.Name
		switch {
		case doc.Name == "":
			d.issue(CauseBadConfig, false, "planet pack", "planet pack without a name")
			continue
		case doc.StrengthMultiplier == nil:
			d.issue(CauseBadConfig, false, source, "strength_multiplier is not defined")
			continue
		case len(doc.AffectedBodies) == 0:
			d.issue(CauseBadConfig, false, source, "affected_bodies is empty")
			continue
		}

		out = append(out, params.PackLayer{
			Name:               doc.Name,
			StrengthMultiplier: *doc.StrengthMultiplier,
			TransitionOffset:   doc.TransitionOffset,
			AffectedBodies:     lo.Uniq(doc.AffectedBodies),
		})
	}
	return out
}

func (d *decoder) parts(docs []partDoc) []params.PartLayer {
	var out []params.PartLayer
	for _, doc := range docs {
		if doc.Name == "" {
			d.issue(CauseBadConfig, false, "part override", "part override without a name")
			continue
		}
		colors, err := decodeColors(doc.Colors)
		if err != nil {
			d.issue(CauseBadConfig, false, "part override "+doc.Name, err.Error())
			continue
		}
		out = append(out, params.PartLayer{Key: vehicle.ConfigKey(doc.Name), Colors: colors})
	}
	return out
}

func (d *decoder) particles(cfgs []particles.Config) []particles.Config {
	var out []particles.Config
	for _, c := range cfgs {
		source := "particle system " + c.Name
		switch {
		case c.Name == "":
			d.issue(CauseBadConfig, false, "particle system", "particle system without a name")
			continue
		case lo.ContainsBy(out, func(o particles.Config) bool { return o.Name == c.Name }):
			d.issue(CauseBadConfig, false, source, "duplicate particle system name")
			continue
		case c.Rate.Min > c.Rate.Max, c.Velocity.Min > c.Velocity.Max, c.Lifetime.Min > c.Lifetime.Max:
			d.issue(CauseBadConfig, false, source, "range minimum exceeds maximum")
			continue
		}
		out = append(out, c)
	}
	return out
}

func decodeColors(in map[string]*string) ([params.NumChannels]params.Opt[params.Color], error) {
	var out [params.NumChannels]params.Opt[params.Color]
	for name, raw := range in {
		ch, ok := params.ChannelByName(name)
		if !ok {
			return out, fmt.Errorf("unknown color channel %q", name)
		}
		if raw == nil || params.IsUnset(*raw) {
			continue
		}
		c, err := params.ParseColor(*raw)
		if err != nil {
			return out, err
		}
		out[ch] = params.Some(c)
	}
	return out, nil
}
