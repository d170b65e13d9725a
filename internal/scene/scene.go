// Package scene loads YAML descriptions of a property store: declared
// properties, frames of constant values, expression bindings and timed
// value sequences.
package scene

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
)

// Document is the decoded scene file.
type Document struct {
	Object     string         `yaml:"object"`
	Properties []PropertySpec `yaml:"properties"`
	Frames     []FrameSpec    `yaml:"frames"`
	Bindings   []BindingSpec  `yaml:"bindings"`
	Sequences  []SequenceSpec `yaml:"sequences"`
}

// PropertySpec declares one property.
type PropertySpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Default  any    `yaml:"default"`
	Owner    string `yaml:"owner"`
	Validate string `yaml:"validate"`
}

// FrameSpec is one layer of constant values. Frames without a name use the
// store-managed frame for their priority.
type FrameSpec struct {
	Name     string         `yaml:"name"`
	Label    string         `yaml:"label"`
	Priority int            `yaml:"priority"`
	Metadata map[string]any `yaml:"metadata"`
	Values   map[string]any `yaml:"values"`
}

// BindingSpec binds a property to an expression over other properties.
type BindingSpec struct {
	Property string         `yaml:"property"`
	Expr     string         `yaml:"expr"`
	Deps     []string       `yaml:"deps"`
	Priority int            `yaml:"priority"`
	Engine   string         `yaml:"engine"`
	Args     map[string]any `yaml:"args"`
}

// SequenceSpec feeds values into a property one at a time, Interval apart.
type SequenceSpec struct {
	Property string `yaml:"property"`
	Priority int    `yaml:"priority"`
	Interval string `yaml:"interval"`
	Values   []any  `yaml:"values"`
}

// Every parses Interval. An empty interval means no delay.
func (s SequenceSpec) Every() (time.Duration, error) {
	if s.Interval == "" {
		return 0, nil
	}
	return time.ParseDuration(s.Interval)
}

// Load reads and decodes the scene at path.
func Load(path string) (*Document, error) {
	root, err := os.OpenRoot(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("scene: open directory: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	file, err := root.Open(filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("scene: open: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	return Decode(file)
}

// Decode decodes and validates a scene.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("scene: decode: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks that names are unique and that every reference resolves
// to a declared property.
func (d *Document) Validate() error {
	declared := make(map[string]bool, len(d.Properties))
	for i, spec := range d.Properties {
		if spec.Name == "" {
			return fmt.Errorf("scene: properties[%d]: name is required", i)
		}
		if declared[spec.Name] {
			return fmt.Errorf("scene: property %q declared twice", spec.Name)
		}
		if _, ok := kinds[normalizeType(spec.Type)]; !ok {
			return fmt.Errorf("scene: property %q: unsupported type %q", spec.Name, spec.Type)
		}
		declared[spec.Name] = true
	}
	for i, frame := range d.Frames {
		for name := range frame.Values {
			if !declared[name] {
				return fmt.Errorf("scene: frames[%d]: unknown property %q", i, name)
			}
		}
	}
	for i, binding := range d.Bindings {
		if !declared[binding.Property] {
			return fmt.Errorf("scene: bindings[%d]: unknown property %q", i, binding.Property)
		}
		if binding.Expr == "" {
			return fmt.Errorf("scene: bindings[%d]: expr is required", i)
		}
		for _, dep := range binding.Deps {
			if !declared[dep] {
				return fmt.Errorf("scene: bindings[%d]: unknown dependency %q", i, dep)
			}
		}
	}
	for i, seq := range d.Sequences {
		if !declared[seq.Property] {
			return fmt.Errorf("scene: sequences[%d]: unknown property %q", i, seq.Property)
		}
		every, err := seq.Every()
		if err != nil {
			return fmt.Errorf("scene: sequences[%d]: %w", i, err)
		}
		if every < 0 {
			return fmt.Errorf("scene: sequences[%d]: interval must not be negative", i)
		}
	}
	return nil
}
