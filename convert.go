package props

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-props/internal/hydrate"
	"github.com/spf13/cast"
)

var (
	errNilValue        = errors.New("props: nil is not assignable")
	errUnsupportedType = errors.New("props: unsupported conversion")
	errLossyConversion = errors.New("props: lossy conversion")
)

type unsetMarker struct{}

func (unsetMarker) String() string { return "(unset)" }

type doNothingMarker struct{}

func (doNothingMarker) String() string { return "(do nothing)" }

var (
	// UnsetValue asks an entry to clear its value so lower frames or the
	// property default show through.
	UnsetValue = unsetMarker{}
	// DoNothing asks an entry to ignore the delivery entirely.
	DoNothing = doNothingMarker{}
)

// Notification wraps a value produced by a binding pipeline. The payload is
// unwrapped before conversion; an error with no payload is an invalid value.
type Notification struct {
	Value any
	Err   error
}

// ResultKind tags a ConversionResult.
type ResultKind int

const (
	// ResultInvalid means conversion or validation failed.
	ResultInvalid ResultKind = iota
	// ResultUnset means the value should be cleared.
	ResultUnset
	// ResultDoNothing means the delivery should be ignored.
	ResultDoNothing
	// ResultConverted means Value holds a typed value.
	ResultConverted
)

func (k ResultKind) String() string {
	switch k {
	case ResultUnset:
		return "unset"
	case ResultDoNothing:
		return "do-nothing"
	case ResultConverted:
		return "converted"
	default:
		return "invalid"
	}
}

// ConversionResult is the outcome of running an untyped value through the
// conversion gate.
type ConversionResult[T any] struct {
	Kind  ResultKind
	Value T
	Err   error
}

// HasValue reports whether the result carries a typed value.
func (r ConversionResult[T]) HasValue() bool {
	return r.Kind == ResultConverted
}

// Converter turns an untyped value into T.
type Converter[T any] func(value any) (T, error)

// Convert validates candidate against p's declared type. Sentinels are
// recognised first, envelopes are unwrapped, then the property converter and
// validation rules run. Failures come back as ResultInvalid carrying an
// *InvalidValueError.
func Convert[T any](p *Property[T], candidate any) ConversionResult[T] {
	switch candidate.(type) {
	case unsetMarker:
		return ConversionResult[T]{Kind: ResultUnset}
	case doNothingMarker:
		return ConversionResult[T]{Kind: ResultDoNothing}
	}

	payload, err := unwrapNotification(candidate)
	if err != nil {
		return invalidResult(p, candidate, err)
	}
	switch payload.(type) {
	case unsetMarker:
		return ConversionResult[T]{Kind: ResultUnset}
	case doNothingMarker:
		return ConversionResult[T]{Kind: ResultDoNothing}
	}

	value, err := p.convert(payload)
	if err != nil {
		return invalidResult(p, payload, err)
	}
	if err := p.Validate(value); err != nil {
		return invalidResult(p, payload, err)
	}
	return ConversionResult[T]{Kind: ResultConverted, Value: value}
}

func invalidResult[T any](p *Property[T], value any, err error) ConversionResult[T] {
	return ConversionResult[T]{
		Kind: ResultInvalid,
		Err: &InvalidValueError{
			Property: p.Name(),
			Expected: p.TypeName(),
			Value:    value,
			Err:      err,
		},
	}
}

func unwrapNotification(candidate any) (any, error) {
	var n Notification
	switch typed := candidate.(type) {
	case Notification:
		n = typed
	case *Notification:
		if typed == nil {
			return nil, nil
		}
		n = *typed
	default:
		return candidate, nil
	}
	if n.Err != nil && n.Value == nil {
		return nil, n.Err
	}
	return n.Value, nil
}

// DefaultConverter accepts values already of type T, nil for nilable types,
// and coerces scalars (numbers, strings, bools, durations, times) through
// spf13/cast. Values of a named type with the same underlying kind as T are
// converted directly.
func DefaultConverter[T any]() Converter[T] {
	target := reflect.TypeFor[T]()
	return func(value any) (T, error) {
		var zero T
		if typed, ok := value.(T); ok {
			return typed, nil
		}
		if value == nil {
			if nilable(target) {
				return zero, nil
			}
			return zero, errNilValue
		}
		if coerced, ok, err := coerceScalar[T](value); ok {
			return coerced, err
		}
		rv := reflect.ValueOf(value)
		if rv.Kind() == target.Kind() && rv.Type().ConvertibleTo(target) {
			return rv.Convert(target).Interface().(T), nil
		}
		return zero, fmt.Errorf("%w: %T to %s", errUnsupportedType, value, target)
	}
}

func coerceScalar[T any](value any) (T, bool, error) {
	var zero T
	var (
		out any
		err error
	)
	switch any(zero).(type) {
	case bool:
		out, err = cast.ToBoolE(value)
	case int:
		out, err = cast.ToIntE(value)
	case int8:
		out, err = cast.ToInt8E(value)
	case int16:
		out, err = cast.ToInt16E(value)
	case int32:
		out, err = cast.ToInt32E(value)
	case int64:
		out, err = cast.ToInt64E(value)
	case uint:
		out, err = cast.ToUintE(value)
	case uint8:
		out, err = cast.ToUint8E(value)
	case uint16:
		out, err = cast.ToUint16E(value)
	case uint32:
		out, err = cast.ToUint32E(value)
	case uint64:
		out, err = cast.ToUint64E(value)
	case float32:
		out, err = cast.ToFloat32E(value)
	case float64:
		out, err = cast.ToFloat64E(value)
	case string:
		out, err = cast.ToStringE(value)
	case time.Duration:
		out, err = cast.ToDurationE(value)
	case time.Time:
		out, err = cast.ToTimeE(value)
	case []string:
		out, err = cast.ToStringSliceE(value)
	case map[string]any:
		out, err = cast.ToStringMapE(value)
	default:
		return zero, false, nil
	}
	if err != nil {
		return zero, true, err
	}
	if err := lossless(value, out); err != nil {
		return zero, true, err
	}
	return out.(T), true, nil
}

// lossless rejects numeric coercions that change the value: wrapped or
// truncated integers, float32 overflow and numbers other than 0 or 1 as bool.
func lossless(value, out any) error {
	src, ok := numericValue(value)
	if !ok {
		return nil
	}
	exact := true
	rv := reflect.ValueOf(out)
	switch rv.Kind() {
	case reflect.Bool:
		exact = src == 0 || src == 1
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		exact = float64(rv.Int()) == src
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		exact = float64(rv.Uint()) == src
	case reflect.Float32:
		exact = !math.IsInf(rv.Float(), 0) || math.IsInf(src, 0)
	}
	if !exact {
		return fmt.Errorf("%w: %v to %T", errLossyConversion, value, out)
	}
	return nil
}

// numericValue reads value as a number. Strings count when they parse as a
// float; bools do not.
func numericValue(value any) (float64, bool) {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(rv.String()), 64)
		return f, err == nil
	}
	return 0, false
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

// StructConverter decodes map payloads (as produced by JSON or YAML binding
// sources) into a struct-typed property value. Unknown fields are rejected.
func StructConverter[T any]() Converter[T] {
	decoder := hydrate.NewDecoder(hydrate.WithDisallowUnknownFields[T]())
	return func(value any) (T, error) {
		var zero T
		switch typed := value.(type) {
		case T:
			return typed, nil
		case *T:
			if typed == nil {
				return zero, errNilValue
			}
			return *typed, nil
		case map[string]any:
			return decoder.Decode(hydrate.Context{Target: reflect.TypeFor[T]().String()}, typed)
		default:
			return zero, fmt.Errorf("%w: %T to %s", errUnsupportedType, value, reflect.TypeFor[T]())
		}
	}
}
