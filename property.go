package props

import (
	"reflect"
	"slices"

	"github.com/go-playground/validator/v10"
)

// validate is shared by every property declaring a validation rule; the
// validator caches struct metadata and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Property is an immutable descriptor for a named, typed slot on an object
// kind. Descriptors are shared across store instances and never mutated after
// construction.
type Property[T any] struct {
	name         string
	ownerKind    string
	typeName     string
	defaultValue T
	convert      Converter[T]
	equal        func(a, b T) bool
	validators   []func(T) error
	rules        []string
}

// PropertyOption configures a Property at construction time.
type PropertyOption[T any] func(*Property[T])

// WithOwnerKind records the object kind that declares the property. It is
// informational and shows up in logs and descriptors.
func WithOwnerKind[T any](kind string) PropertyOption[T] {
	return func(p *Property[T]) {
		p.ownerKind = kind
	}
}

// WithConverter replaces the default conversion used for untyped values.
func WithConverter[T any](convert Converter[T]) PropertyOption[T] {
	return func(p *Property[T]) {
		if convert != nil {
			p.convert = convert
		}
	}
}

// WithEquality replaces the equality used to suppress redundant change
// notifications. The default is reflect.DeepEqual.
func WithEquality[T any](equal func(a, b T) bool) PropertyOption[T] {
	return func(p *Property[T]) {
		if equal != nil {
			p.equal = equal
		}
	}
}

// WithValidation attaches a validator/v10 rule (e.g. "gte=0,lte=1") checked
// after conversion.
func WithValidation[T any](rule string) PropertyOption[T] {
	return func(p *Property[T]) {
		if rule == "" {
			return
		}
		p.rules = append(p.rules, rule)
		p.validators = append(p.validators, func(value T) error {
			return validate.Var(value, rule)
		})
	}
}

// WithValidator attaches a custom validation function checked after
// conversion.
func WithValidator[T any](check func(T) error) PropertyOption[T] {
	return func(p *Property[T]) {
		if check != nil {
			p.validators = append(p.validators, check)
		}
	}
}

// NewProperty declares a property named name with the given default value.
func NewProperty[T any](name string, defaultValue T, opts ...PropertyOption[T]) *Property[T] {
	p := &Property[T]{
		name:         name,
		typeName:     reflect.TypeFor[T]().String(),
		defaultValue: defaultValue,
		convert:      DefaultConverter[T](),
		equal: func(a, b T) bool {
			return reflect.DeepEqual(a, b)
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Name returns the property name.
func (p *Property[T]) Name() string { return p.name }

// OwnerKind returns the declaring object kind, if any.
func (p *Property[T]) OwnerKind() string { return p.ownerKind }

// ValidationRules returns the validator rules attached with WithValidation.
func (p *Property[T]) ValidationRules() []string { return slices.Clone(p.rules) }

// TypeName returns the declared Go type of the property.
func (p *Property[T]) TypeName() string { return p.typeName }

// Default returns the property's default value.
func (p *Property[T]) Default() T { return p.defaultValue }

// DefaultAny returns the default value as an untyped value.
func (p *Property[T]) DefaultAny() any { return p.defaultValue }

// Equal reports whether a and b are equal under the property's equality.
func (p *Property[T]) Equal(a, b T) bool {
	return p.equal(a, b)
}

// EqualAny compares two untyped values. Values that are not of type T only
// compare equal when both are nil.
func (p *Property[T]) EqualAny(a, b any) bool {
	ta, okA := a.(T)
	tb, okB := b.(T)
	if !okA || !okB {
		return a == nil && b == nil
	}
	return p.equal(ta, tb)
}

// Validate runs the configured validation rules against value.
func (p *Property[T]) Validate(value T) error {
	for _, check := range p.validators {
		if err := check(value); err != nil {
			return err
		}
	}
	return nil
}

// ConvertAny runs value through the conversion gate and returns the typed
// value boxed as any.
func (p *Property[T]) ConvertAny(value any) (any, ResultKind, error) {
	result := Convert(p, value)
	if result.Kind == ResultConverted {
		return result.Value, result.Kind, nil
	}
	return nil, result.Kind, result.Err
}

func (p *Property[T]) String() string {
	if p.ownerKind != "" {
		return p.ownerKind + "." + p.name
	}
	return p.name
}

func (p *Property[T]) newConstantEntry(frame *Frame, value any) (ValueEntry, error) {
	result := Convert(p, value)
	switch result.Kind {
	case ResultConverted:
		return NewConstantEntry(frame, p, result.Value), nil
	case ResultInvalid:
		return nil, result.Err
	default:
		return nil, nil
	}
}

func (p *Property[T]) newUntypedEntry(frame *Frame, source Observable[any]) ValueEntry {
	return NewUntypedBindingEntry(frame, p, source)
}

// AnyProperty is the untyped view of a Property used by frames, stores and
// registries.
type AnyProperty interface {
	Name() string
	OwnerKind() string
	TypeName() string
	DefaultAny() any
	EqualAny(a, b any) bool
	ConvertAny(value any) (any, ResultKind, error)

	newConstantEntry(frame *Frame, value any) (ValueEntry, error)
	newUntypedEntry(frame *Frame, source Observable[any]) ValueEntry
}
