package props

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// PropertyDescriptor is the serialisable description of a registered
// property.
type PropertyDescriptor struct {
	Name      string   `json:"name" yaml:"name"`
	OwnerKind string   `json:"owner_kind,omitempty" yaml:"owner_kind,omitempty"`
	Type      string   `json:"type" yaml:"type"`
	Default   any      `json:"default" yaml:"default"`
	Rules     []string `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Registry maps property names to descriptors. Lookups are case-insensitive.
// It is safe for concurrent use and is typically shared by every store of an
// application.
type Registry struct {
	mu         sync.RWMutex
	properties map[string]AnyProperty
}

// NewRegistry returns a registry holding properties. It panics on duplicate
// names, mirroring package-level declaration errors.
func NewRegistry(properties ...AnyProperty) *Registry {
	r := &Registry{properties: make(map[string]AnyProperty, len(properties))}
	for _, property := range properties {
		if err := r.Register(property); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds property, rejecting empty and duplicate names.
func (r *Registry) Register(property AnyProperty) error {
	if property == nil {
		return fmt.Errorf("props: property is nil")
	}
	if property.Name() == "" {
		return fmt.Errorf("props: property name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.properties == nil {
		r.properties = make(map[string]AnyProperty)
	}
	key := strings.ToLower(property.Name())
	if _, exists := r.properties[key]; exists {
		return fmt.Errorf("props: property %q already registered", property.Name())
	}
	r.properties[key] = property
	return nil
}

// Lookup returns the property registered under name.
func (r *Registry) Lookup(name string) (AnyProperty, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	property, ok := r.properties[strings.ToLower(name)]
	return property, ok
}

// Names returns the registered names sorted alphabetically.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.properties))
	for _, property := range r.properties {
		names = append(names, property.Name())
	}
	slices.Sort(names)
	return names
}

// Clone returns a shallow copy of the registry.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Registry{properties: maps.Clone(r.properties)}
}

// Describe lists every registered property sorted by name.
func (r *Registry) Describe() []PropertyDescriptor {
	out := []PropertyDescriptor{}
	for _, name := range r.Names() {
		property, _ := r.Lookup(name)
		out = append(out, Describe(property))
	}
	return out
}

// Describe returns the descriptor of property.
func Describe(property AnyProperty) PropertyDescriptor {
	descriptor := PropertyDescriptor{
		Name:      property.Name(),
		OwnerKind: property.OwnerKind(),
		Type:      property.TypeName(),
		Default:   property.DefaultAny(),
	}
	if ruled, ok := property.(interface{ ValidationRules() []string }); ok {
		descriptor.Rules = ruled.ValidationRules()
	}
	return descriptor
}
