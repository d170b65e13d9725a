package props

import (
	"reflect"
	"testing"
)

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	width := NewProperty("Width", 0.0, WithOwnerKind[float64]("Box"))
	title := NewProperty("title", "untitled")
	registry := NewRegistry(width, title)

	got, ok := registry.Lookup("width")
	if !ok || got != AnyProperty(width) {
		t.Fatalf("expected width lookup, got %v %v", got, ok)
	}
	if _, ok := registry.Lookup("missing"); ok {
		t.Fatalf("unexpected lookup hit")
	}
	if names := registry.Names(); len(names) != 2 || names[0] != "Width" || names[1] != "title" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry(NewProperty("width", 0.0))
	if err := registry.Register(NewProperty("WIDTH", 0)); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := registry.Register(nil); err == nil {
		t.Fatalf("expected nil property error")
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for duplicate declaration")
		}
	}()
	NewRegistry(NewProperty("a", 0), NewProperty("A", 0))
}

func TestRegistryDescribe(t *testing.T) {
	registry := NewRegistry(
		NewProperty("width", 1.5, WithOwnerKind[float64]("Box"), WithValidation[float64]("gte=0")),
		NewProperty("count", 3),
	)
	descriptors := registry.Describe()
	if len(descriptors) != 2 {
		t.Fatalf("expected two descriptors, got %d", len(descriptors))
	}
	if !reflect.DeepEqual(descriptors[0], PropertyDescriptor{Name: "count", Type: "int", Default: 3}) {
		t.Fatalf("unexpected descriptor %+v", descriptors[0])
	}
	want := PropertyDescriptor{Name: "width", OwnerKind: "Box", Type: "float64", Default: 1.5, Rules: []string{"gte=0"}}
	if !reflect.DeepEqual(descriptors[1], want) {
		t.Fatalf("unexpected descriptor %+v", descriptors[1])
	}

	clone := registry.Clone()
	_ = clone.Register(NewProperty("extra", ""))
	if len(registry.Names()) != 2 {
		t.Fatalf("clone must not share storage")
	}
}
