package props

type entryState uint8

const (
	entryNotStarted entryState = iota
	entryStarted
	entryCompleted
)

// bindingState is the lifecycle shared by the bound entry variants: lazy
// start, cached value, owner notification and completion.
type bindingState[T any] struct {
	frame        *Frame
	property     *Property[T]
	subscribe    func() Subscription
	subscription Subscription
	unsubscribed bool
	state        entryState
	hasValue     bool
	value        T
	self         ValueEntry
}

// Property implements ValueEntry.
func (b *bindingState[T]) Property() AnyProperty { return b.property }

// Frame implements ValueEntry.
func (b *bindingState[T]) Frame() *Frame { return b.frame }

// Started reports whether the entry is subscribed or has completed.
func (b *bindingState[T]) Started() bool { return b.state != entryNotStarted }

// Start subscribes to the source. The entry is marked started before the
// subscription is made so values delivered during Subscribe are cached.
// Calling Start on a started entry is a contract violation.
func (b *bindingState[T]) Start() error {
	if b.state != entryNotStarted {
		return internalError("Start", b.property, ErrAlreadyStarted)
	}
	b.state = entryStarted
	b.unsubscribed = false
	b.subscription = EmptySubscription
	sub := b.subscribe()
	if sub == nil {
		sub = EmptySubscription
	}
	if b.state != entryStarted || b.unsubscribed {
		// completed or released while subscribing
		sub.Dispose()
		return nil
	}
	b.subscription = sub
	return nil
}

// Unsubscribe releases the source subscription. The entry keeps its cached
// value and stays in its frame; the next read subscribes again. A completed
// entry stays completed.
func (b *bindingState[T]) Unsubscribe() {
	b.unsubscribed = true
	if b.state == entryStarted {
		b.state = entryNotStarted
	}
	if sub := b.subscription; sub != nil {
		b.subscription = nil
		sub.Dispose()
	}
}

// HasValue starts the entry if needed and reports whether a value is cached.
func (b *bindingState[T]) HasValue() bool {
	b.ensureStarted()
	return b.hasValue
}

// GetValue starts the entry if needed and returns the cached value. Reading
// an entry without a value returns an *InternalError wrapping ErrNoValue.
func (b *bindingState[T]) GetValue() (T, error) {
	b.ensureStarted()
	if !b.hasValue {
		var zero T
		return zero, internalError("GetValue", b.property, ErrNoValue)
	}
	return b.value, nil
}

// TryGetValue starts the entry if needed and returns the cached value.
func (b *bindingState[T]) TryGetValue() (T, bool) {
	b.ensureStarted()
	return b.value, b.hasValue
}

// GetValueAny implements ValueEntry.
func (b *bindingState[T]) GetValueAny() (any, error) {
	value, err := b.GetValue()
	if err != nil {
		return nil, err
	}
	return value, nil
}

// TryGetValueAny implements ValueEntry.
func (b *bindingState[T]) TryGetValueAny() (any, bool) {
	value, ok := b.TryGetValue()
	if !ok {
		return nil, false
	}
	return value, true
}

// Dispose unsubscribes and reports completion to the frame exactly once.
func (b *bindingState[T]) Dispose() {
	b.Unsubscribe()
	b.complete()
}

func (b *bindingState[T]) ensureStarted() {
	if b.state == entryNotStarted {
		_ = b.Start()
	}
}

func (b *bindingState[T]) peek() (any, bool, bool) {
	if !b.hasValue {
		return nil, false, b.Started()
	}
	return b.value, true, true
}

func (b *bindingState[T]) retire() {
	b.Unsubscribe()
	b.reset()
	b.state = entryCompleted
}

func (b *bindingState[T]) reset() {
	var zero T
	b.value = zero
	b.hasValue = false
}

func (b *bindingState[T]) complete() {
	if b.state == entryCompleted {
		return
	}
	b.subscription = nil
	b.reset()
	b.state = entryCompleted
	b.frame.EntryCompleted(b.self)
}

// deliver applies a conversion result. raw is the value as received, used
// for invalid-value diagnostics.
func (b *bindingState[T]) deliver(result ConversionResult[T], raw any) {
	if b.state != entryStarted {
		return
	}
	owner := b.frame.Owner()
	if owner == nil {
		return
	}
	switch result.Kind {
	case ResultDoNothing:
	case ResultUnset:
		b.clear(owner)
	case ResultInvalid:
		b.clear(owner)
		owner.LogInvalidValue(b.property, raw, result.Err)
	case ResultConverted:
		if b.hasValue && b.property.Equal(b.value, result.Value) {
			return
		}
		b.value = result.Value
		b.hasValue = true
		owner.OnValueChanged(b.property, b.frame.Priority(), result.Value)
	}
}

func (b *bindingState[T]) clear(owner Owner) {
	if !b.hasValue {
		return
	}
	b.reset()
	owner.OnValueCleared(b.property, b.frame.Priority())
}

// terminate handles completion and error alike: the entry ends and leaves
// its frame. Errors are not escalated.
func (b *bindingState[T]) terminate() {
	if b.state != entryStarted {
		return
	}
	b.complete()
}

// BindingValueType tags a BindingValue.
type BindingValueType uint8

const (
	// BindingValueSet carries a value.
	BindingValueSet BindingValueType = iota
	// BindingValueUnset clears the entry.
	BindingValueUnset
	// BindingValueDoNothing leaves the entry untouched.
	BindingValueDoNothing
)

// BindingValue is the notification type of statically typed binding sources.
type BindingValue[T any] struct {
	Value T
	Type  BindingValueType
}

// BindingValueOf wraps value.
func BindingValueOf[T any](value T) BindingValue[T] {
	return BindingValue[T]{Value: value, Type: BindingValueSet}
}

// UnsetBinding returns a notification that clears the entry.
func UnsetBinding[T any]() BindingValue[T] {
	return BindingValue[T]{Type: BindingValueUnset}
}

// DoNothingBinding returns a notification the entry ignores.
func DoNothingBinding[T any]() BindingValue[T] {
	return BindingValue[T]{Type: BindingValueDoNothing}
}

func (v BindingValue[T]) result() ConversionResult[T] {
	switch v.Type {
	case BindingValueUnset:
		return ConversionResult[T]{Kind: ResultUnset}
	case BindingValueDoNothing:
		return ConversionResult[T]{Kind: ResultDoNothing}
	default:
		return ConversionResult[T]{Kind: ResultConverted, Value: v.Value}
	}
}

// BindingEntry is fed by a statically typed source. Values skip the
// conversion gate.
type BindingEntry[T any] struct {
	*bindingState[T]
	source Observable[BindingValue[T]]
}

// NewBindingEntry returns an unstarted entry for p in frame fed by source.
func NewBindingEntry[T any](frame *Frame, p *Property[T], source Observable[BindingValue[T]]) *BindingEntry[T] {
	e := &BindingEntry[T]{
		bindingState: &bindingState[T]{frame: frame, property: p},
		source:       source,
	}
	e.self = e
	observer := typedObserver[T]{state: e.bindingState}
	e.subscribe = func() Subscription {
		if e.source == nil {
			return EmptySubscription
		}
		return e.source.Subscribe(observer)
	}
	return e
}

type typedObserver[T any] struct {
	state *bindingState[T]
}

func (o typedObserver[T]) OnNext(value BindingValue[T]) {
	o.state.deliver(value.result(), value.Value)
}

func (o typedObserver[T]) OnCompleted() { o.state.terminate() }

func (o typedObserver[T]) OnError(error) { o.state.terminate() }

// UntypedBindingEntry is fed by a dynamically typed source. Every value runs
// through the conversion gate; invalid values clear the entry and are
// reported to the owner.
type UntypedBindingEntry[T any] struct {
	*bindingState[T]
	source Observable[any]
}

// NewUntypedBindingEntry returns an unstarted entry for p in frame fed by
// source.
func NewUntypedBindingEntry[T any](frame *Frame, p *Property[T], source Observable[any]) *UntypedBindingEntry[T] {
	e := &UntypedBindingEntry[T]{
		bindingState: &bindingState[T]{frame: frame, property: p},
		source:       source,
	}
	e.self = e
	observer := untypedObserver[T]{state: e.bindingState}
	e.subscribe = func() Subscription {
		if e.source == nil {
			return EmptySubscription
		}
		return e.source.Subscribe(observer)
	}
	return e
}

type untypedObserver[T any] struct {
	state *bindingState[T]
}

func (o untypedObserver[T]) OnNext(value any) {
	if o.state.state != entryStarted {
		return
	}
	o.state.deliver(Convert(o.state.property, value), value)
}

func (o untypedObserver[T]) OnCompleted() { o.state.terminate() }

func (o untypedObserver[T]) OnError(error) { o.state.terminate() }
