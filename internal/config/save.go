package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/entryfx/internal/params"
)

// Save writes the config to the user's config directory.
func (c *Config) Save() error {
	return c.SaveTo(filepath.Join(ConfigDir(), "config.yaml"))
}

// SaveTo writes the config to a specific path.
func (c *Config) SaveTo(path string) error {
	return writeYAML(path, c)
}

// SaveBody writes s as a complete body entry of the layer store, named after
// s.Body. Values are the effective ones, so planet pack multipliers are
// folded into strength_multiplier.
func SaveBody(path string, s params.ParameterSet) error {
	if s.Body == "" {
		return fmt.Errorf("saving body config: no body name")
	}

	doc := mapping(
		scalar("name"), scalar(s.Body),
		scalar("config_version"), scalar(strconv.Itoa(LayerVersion)),
	)
	for f := params.Field(0); f < params.NumFields; f++ {
		doc.Content = append(doc.Content,
			scalar(f.String()),
			scalar(strconv.FormatFloat(s.Get(f), 'g', -1, 64)))
	}

	colors := mapping()
	for ch := params.Channel(0); ch < params.NumChannels; ch++ {
		v := scalar(s.Color(ch).String())
		v.Style = yaml.DoubleQuotedStyle
		colors.Content = append(colors.Content, scalar(ch.String()), v)
	}
	doc.Content = append(doc.Content, scalar("colors"), colors)

	return writeYAML(path, doc)
}

// SaveBodyLayer exports the effective values of a configured body. Bodies
// missing from the layer store are an error rather than a copy of the
// default layer.
func SaveBodyLayer(path string, l *params.Layers, name string) error {
	if l == nil {
		return fmt.Errorf("saving body config: no layers loaded")
	}
	if _, ok := l.Body(name); !ok {
		names := l.BodyNames()
		slices.Sort(names)
		return fmt.Errorf("saving body config: unknown body %q (configured: %s)", name, strings.Join(names, ", "))
	}
	return SaveBody(path, params.Resolve(l, name, ""))
}

func writeYAML(path string, v any) error {
	// Create parent directory if needed
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	return os.WriteFile(path, data, 0644)
}

func mapping(content ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Content: content}
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}
