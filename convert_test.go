package props

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestConvertRecognisesSentinels(t *testing.T) {
	width := NewProperty("width", 0.0)

	if got := Convert(width, UnsetValue); got.Kind != ResultUnset || got.HasValue() {
		t.Fatalf("expected unset result, got %+v", got)
	}
	if got := Convert(width, DoNothing); got.Kind != ResultDoNothing {
		t.Fatalf("expected do-nothing result, got %+v", got)
	}
	if got := Convert(width, Notification{Value: UnsetValue}); got.Kind != ResultUnset {
		t.Fatalf("expected wrapped unset to be recognised, got %+v", got)
	}
}

func TestConvertUnwrapsNotifications(t *testing.T) {
	width := NewProperty("width", 0.0)

	got := Convert(width, &Notification{Value: 12.5})
	if got.Kind != ResultConverted || got.Value != 12.5 {
		t.Fatalf("expected unwrapped value, got %+v", got)
	}

	boom := errors.New("binding failed")
	got = Convert(width, Notification{Err: boom})
	if got.Kind != ResultInvalid || !errors.Is(got.Err, boom) {
		t.Fatalf("expected invalid result carrying the binding error, got %+v", got)
	}
}

func TestConvertCoercesScalars(t *testing.T) {
	count := NewProperty("count", 0)
	if got := Convert(count, "42"); got.Kind != ResultConverted || got.Value != 42 {
		t.Fatalf("expected string coerced to int, got %+v", got)
	}
	if got := Convert(count, 7.0); got.Kind != ResultConverted || got.Value != 7 {
		t.Fatalf("expected float coerced to int, got %+v", got)
	}

	delay := NewProperty("delay", time.Duration(0))
	if got := Convert(delay, "150ms"); got.Value != 150*time.Millisecond {
		t.Fatalf("expected duration parsed, got %+v", got)
	}

	label := NewProperty("label", "")
	if got := Convert(label, 3); got.Value != "3" {
		t.Fatalf("expected int formatted, got %+v", got)
	}
}

func TestConvertRejectsLossyCoercion(t *testing.T) {
	cases := []struct {
		name     string
		property AnyProperty
		value    any
	}{
		{"int8 overflow", NewProperty[int8]("small", 0), 300},
		{"int8 overflow from string", NewProperty[int8]("small", 0), "300"},
		{"int8 underflow", NewProperty[int8]("small", 0), -129},
		{"fraction to int", NewProperty("count", 0), 3.7},
		{"fraction string to int", NewProperty("count", 0), "3.7"},
		{"negative to uint", NewProperty[uint]("size", 0), -1},
		{"uint16 overflow", NewProperty[uint16]("port", 0), 70000},
		{"uint64 to int64 wrap", NewProperty[int64]("offset", 0), uint64(math.MaxUint64)},
		{"number to bool", NewProperty("flag", false), 5},
		{"float32 overflow", NewProperty[float32]("ratio", 0), 1e300},
		{"fraction to duration", NewProperty("delay", time.Duration(0)), 1.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, kind, err := tc.property.ConvertAny(tc.value)
			if kind != ResultInvalid {
				t.Fatalf("expected invalid result, got %v (%v)", got, kind)
			}
			var invalid *InvalidValueError
			if !errors.As(err, &invalid) || invalid.Value != tc.value {
				t.Fatalf("expected *InvalidValueError carrying the raw value, got %v", err)
			}
		})
	}
}

func TestConvertAcceptsLosslessEdges(t *testing.T) {
	small := NewProperty[int8]("small", 0)
	if got := Convert(small, 127); got.Kind != ResultConverted || got.Value != 127 {
		t.Fatalf("expected int8 max accepted, got %+v", got)
	}
	if got := Convert(small, -128.0); got.Kind != ResultConverted || got.Value != -128 {
		t.Fatalf("expected integral float at int8 min accepted, got %+v", got)
	}

	flag := NewProperty("flag", false)
	if got := Convert(flag, 1); got.Kind != ResultConverted || !got.Value {
		t.Fatalf("expected 1 as true, got %+v", got)
	}
	if got := Convert(flag, "false"); got.Kind != ResultConverted || got.Value {
		t.Fatalf("expected string parsed as bool, got %+v", got)
	}

	ratio := NewProperty("ratio", 0.0)
	if got := Convert(ratio, 3); got.Kind != ResultConverted || got.Value != 3.0 {
		t.Fatalf("expected int widened to float64, got %+v", got)
	}
}

func TestConvertRejectsInvalidValues(t *testing.T) {
	count := NewProperty("count", 0, WithOwnerKind[int]("Counter"))
	got := Convert(count, "many")
	if got.Kind != ResultInvalid {
		t.Fatalf("expected invalid result, got %+v", got)
	}
	var invalid *InvalidValueError
	if !errors.As(got.Err, &invalid) {
		t.Fatalf("expected *InvalidValueError, got %T", got.Err)
	}
	if invalid.Property != "count" || invalid.Expected != "int" || invalid.Value != "many" {
		t.Fatalf("unexpected error fields: %+v", invalid)
	}

	if got := Convert(count, nil); got.Kind != ResultInvalid {
		t.Fatalf("nil must be invalid for value types, got %+v", got)
	}
}

func TestConvertAllowsNilForNilableTypes(t *testing.T) {
	tags := NewProperty[[]string]("tags", nil)
	if got := Convert(tags, nil); got.Kind != ResultConverted || got.Value != nil {
		t.Fatalf("expected nil slice accepted, got %+v", got)
	}
}

func TestConvertNamedTypes(t *testing.T) {
	type alignment string
	align := NewProperty("align", alignment("start"))
	if got := Convert(align, "end"); got.Kind != ResultConverted || got.Value != alignment("end") {
		t.Fatalf("expected string converted to named type, got %+v", got)
	}
	if got := Convert(align, 3); got.Kind != ResultInvalid {
		t.Fatalf("expected mismatched kind rejected, got %+v", got)
	}
}

func TestConvertRunsValidation(t *testing.T) {
	opacity := NewProperty("opacity", 1.0, WithValidation[float64]("gte=0,lte=1"))
	if got := Convert(opacity, 0.5); got.Kind != ResultConverted {
		t.Fatalf("expected valid opacity, got %+v", got)
	}
	if got := Convert(opacity, 1.5); got.Kind != ResultInvalid {
		t.Fatalf("expected out-of-range opacity rejected, got %+v", got)
	}

	errOdd := errors.New("odd")
	even := NewProperty("even", 0, WithValidator(func(v int) error {
		if v%2 != 0 {
			return errOdd
		}
		return nil
	}))
	if got := Convert(even, 3); !errors.Is(got.Err, errOdd) {
		t.Fatalf("expected custom validator error, got %+v", got)
	}
}

func TestConvertCustomConverter(t *testing.T) {
	visible := NewProperty("visible", false, WithConverter(func(v any) (bool, error) {
		s, ok := v.(string)
		if !ok {
			return false, errors.New("want visible/hidden")
		}
		return s == "visible", nil
	}))
	if got := Convert(visible, "visible"); !got.Value {
		t.Fatalf("expected custom converter used, got %+v", got)
	}
	if got := Convert(visible, true); got.Kind != ResultInvalid {
		t.Fatalf("custom converter replaces the default, got %+v", got)
	}
}

func TestStructConverterDecodesMaps(t *testing.T) {
	type thickness struct {
		Left  float64 `json:"left"`
		Right float64 `json:"right"`
	}
	margin := NewProperty("margin", thickness{}, WithConverter(StructConverter[thickness]()))

	got := Convert(margin, map[string]any{"left": 2, "right": 4.5})
	if got.Kind != ResultConverted || got.Value != (thickness{Left: 2, Right: 4.5}) {
		t.Fatalf("expected decoded struct, got %+v", got)
	}
	if got := Convert(margin, map[string]any{"top": 1}); got.Kind != ResultInvalid {
		t.Fatalf("expected unknown field rejected, got %+v", got)
	}
	if got := Convert(margin, &thickness{Left: 1}); got.Value.Left != 1 {
		t.Fatalf("expected pointer dereferenced, got %+v", got)
	}
}

func TestResultKindString(t *testing.T) {
	kinds := map[ResultKind]string{
		ResultInvalid:   "invalid",
		ResultUnset:     "unset",
		ResultDoNothing: "do-nothing",
		ResultConverted: "converted",
	}
	for kind, want := range kinds {
		if kind.String() != want {
			t.Fatalf("expected %q got %q", want, kind.String())
		}
	}
}
