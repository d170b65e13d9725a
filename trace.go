package props

import (
	"encoding/json"
)

// Trace captures how each frame of a store contributes to one property.
type Trace struct {
	Property  string       `json:"property"`
	Type      string       `json:"type"`
	Effective any          `json:"effective"`
	IsSet     bool         `json:"is_set"`
	Frames    []Provenance `json:"frames"`
}

// Provenance details one frame's contribution to a traced property.
type Provenance struct {
	Scope     Scope `json:"scope"`
	Found     bool  `json:"found"`
	Started   bool  `json:"started"`
	Value     any   `json:"value,omitempty"`
	Effective bool  `json:"effective"`
}

// Trace reports every frame's contribution to property, strongest first.
// Lazy entries are reported as not started and are never started by
// tracing.
func (s *Store) Trace(property AnyProperty) Trace {
	effective := s.peekEffective(property)
	trace := Trace{
		Property:  property.Name(),
		Type:      property.TypeName(),
		Effective: effective.value,
		IsSet:     effective.isSet,
	}
	for _, frame := range s.Frames() {
		if _, ok := frame.Entry(property); !ok {
			continue
		}
		value, found, started := frame.Peek(property)
		trace.Frames = append(trace.Frames, Provenance{
			Scope:     frame.Scope(),
			Found:     found,
			Started:   started,
			Value:     value,
			Effective: frame == effective.frame,
		})
	}
	return trace
}

// peekEffective returns the published value of property, or for a property
// nobody has read, the value the started entries would produce.
func (s *Store) peekEffective(property AnyProperty) effectiveValue {
	if current, ok := s.published[property]; ok {
		return *current
	}
	for _, frame := range s.Frames() {
		if value, found, _ := frame.Peek(property); found {
			return effectiveValue{value: value, frame: frame, isSet: true}
		}
	}
	return effectiveValue{value: property.DefaultAny()}
}

// TraceAll traces every property with an entry in any frame, ordered by
// first appearance from the strongest frame down.
func (s *Store) TraceAll() []Trace {
	var (
		seen  = map[AnyProperty]bool{}
		order []AnyProperty
	)
	for _, frame := range s.Frames() {
		for _, property := range frame.Properties() {
			if !seen[property] {
				seen[property] = true
				order = append(order, property)
			}
		}
	}
	out := make([]Trace, 0, len(order))
	for _, property := range order {
		out = append(out, s.Trace(property))
	}
	return out
}

// ToJSON serialises the trace for logging or transport.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON decodes a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
