package scene

import (
	"reflect"
	"strings"

	"github.com/spf13/cast"

	props "github.com/goliatone/go-props"
)

type propertyFactory func(spec PropertySpec) (props.AnyProperty, error)

var kinds = map[string]propertyFactory{
	"string":   declare(cast.ToStringE),
	"int":      declare(cast.ToIntE),
	"float":    declare(cast.ToFloat64E),
	"bool":     declare(cast.ToBoolE),
	"duration": declare(cast.ToDurationE),
	"time":     declare(cast.ToTimeE),
}

func normalizeType(name string) string {
	switch name = strings.ToLower(strings.TrimSpace(name)); name {
	case "", "str":
		return "string"
	case "integer", "int64":
		return "int"
	case "number", "double", "float64":
		return "float"
	case "boolean":
		return "bool"
	default:
		return name
	}
}

// declare builds a property of type T, coercing the YAML default with cast.
func declare[T any](coerce func(any) (T, error)) propertyFactory {
	return func(spec PropertySpec) (props.AnyProperty, error) {
		var def T
		if spec.Default != nil {
			value, err := coerce(spec.Default)
			if err != nil {
				return nil, &props.InvalidValueError{Property: spec.Name, Expected: reflect.TypeFor[T]().String(), Value: spec.Default, Err: err}
			}
			def = value
		}
		return props.NewProperty(spec.Name, def,
			props.WithOwnerKind[T](spec.Owner),
			props.WithValidation[T](spec.Validate),
		), nil
	}
}
