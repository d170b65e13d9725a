package props

import "testing"

func TestObserveEmitsCurrentAndChanges(t *testing.T) {
	store := NewStore()
	width := NewProperty("width", 1.0)
	_ = SetValue(store, width, 2.0)

	var got []float64
	completed := false
	sub := Observe(store, width).Subscribe(ObserverFuncs[float64]{
		Next:      func(v float64) { got = append(got, v) },
		Completed: func() { completed = true },
	})
	_ = SetValue(store, width, 3.0)
	store.ClearValue(width)

	if len(got) != 3 || got[0] != 2.0 || got[1] != 3.0 || got[2] != 1.0 {
		t.Fatalf("unexpected observed values %v", got)
	}
	sub.Dispose()
	_ = SetValue(store, width, 4.0)
	if len(got) != 3 {
		t.Fatalf("disposed subscription must not receive values")
	}
	store.Dispose()
	if completed {
		t.Fatalf("disposed subscription must not complete")
	}
}

func TestObserveCompletesOnStoreDispose(t *testing.T) {
	store := NewStore()
	width := NewProperty("width", 1.0)
	completed := 0
	Observe(store, width).Subscribe(ObserverFuncs[float64]{Completed: func() { completed++ }})
	store.Dispose()
	if completed != 1 {
		t.Fatalf("expected one completion, got %d", completed)
	}

	late := 0
	Observe(store, width).Subscribe(ObserverFuncs[float64]{Completed: func() { late++ }})
	if late != 1 {
		t.Fatalf("subscribing to a disposed store completes immediately")
	}
}

func TestObserveLinksPropertiesAcrossStores(t *testing.T) {
	source := NewStore(WithObjectName("Slider"))
	target := NewStore(WithObjectName("Label"))
	value := NewProperty("value", 0.0)
	text := NewProperty("text", "")

	_, err := BindUntyped(target, text, ObserveAny(source, value), PriorityTemplate)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if got := Get(target, text); got != "0" {
		t.Fatalf("expected converted initial value, got %q", got)
	}
	_ = SetValue(source, value, 0.5)
	if got := Get(target, text); got != "0.5" {
		t.Fatalf("expected linked value, got %q", got)
	}

	source.Dispose()
	if got := Get(target, text); got != "" {
		t.Fatalf("expected binding to end with its source, got %q", got)
	}
}
