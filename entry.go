package props

// ValueEntry is one value source for one property within one frame. Bound
// entries start lazily: HasValue, GetValueAny and TryGetValueAny subscribe to
// the source on first use.
type ValueEntry interface {
	Property() AnyProperty
	Frame() *Frame
	HasValue() bool
	GetValueAny() (any, error)
	TryGetValueAny() (any, bool)
	Dispose()
}

// TypedEntry is a ValueEntry for a statically known property type.
type TypedEntry[T any] interface {
	ValueEntry
	GetValue() (T, error)
	TryGetValue() (T, bool)
}

// LazyEntry is implemented by entries that defer subscription until first
// read.
type LazyEntry interface {
	ValueEntry
	Start() error
	Started() bool
	Unsubscribe()
}

type unsubscriber interface {
	Unsubscribe()
}

// retirer is implemented by entries that can be silenced without reporting
// completion, used when a frame replaces an entry.
type retirer interface {
	retire()
}

type peeker interface {
	peek() (value any, found bool, started bool)
}

// ConstantEntry holds a fixed value. It is eager: attaching it to a frame
// makes the value visible immediately.
type ConstantEntry[T any] struct {
	frame    *Frame
	property *Property[T]
	value    T
	done     bool
}

// NewConstantEntry returns an entry for p in frame holding value. The entry
// must still be attached with Frame.Attach.
func NewConstantEntry[T any](frame *Frame, p *Property[T], value T) *ConstantEntry[T] {
	return &ConstantEntry[T]{frame: frame, property: p, value: value}
}

// Property implements ValueEntry.
func (e *ConstantEntry[T]) Property() AnyProperty { return e.property }

// Frame implements ValueEntry.
func (e *ConstantEntry[T]) Frame() *Frame { return e.frame }

// HasValue reports whether the entry is still live.
func (e *ConstantEntry[T]) HasValue() bool { return !e.done }

// GetValue returns the fixed value.
func (e *ConstantEntry[T]) GetValue() (T, error) {
	if e.done {
		var zero T
		return zero, internalError("GetValue", e.property, ErrNoValue)
	}
	return e.value, nil
}

// TryGetValue returns the fixed value unless the entry was disposed.
func (e *ConstantEntry[T]) TryGetValue() (T, bool) {
	if e.done {
		var zero T
		return zero, false
	}
	return e.value, true
}

// GetValueAny implements ValueEntry.
func (e *ConstantEntry[T]) GetValueAny() (any, error) {
	value, err := e.GetValue()
	if err != nil {
		return nil, err
	}
	return value, nil
}

// TryGetValueAny implements ValueEntry.
func (e *ConstantEntry[T]) TryGetValueAny() (any, bool) {
	value, ok := e.TryGetValue()
	if !ok {
		return nil, false
	}
	return value, true
}

// Dispose removes the entry from its frame. It is safe to call more than once.
func (e *ConstantEntry[T]) Dispose() {
	if e.done {
		return
	}
	e.retire()
	e.frame.EntryCompleted(e)
}

func (e *ConstantEntry[T]) retire() {
	var zero T
	e.done = true
	e.value = zero
}
