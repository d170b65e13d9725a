package props

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Frame is one prioritized layer of value entries for one object. It holds at
// most one active entry per property; priority belongs to the frame as a
// whole. A frame references its owner weakly and never keeps it alive.
type Frame struct {
	scope    Scope
	owner    OwnerHandle
	entries  *orderedmap.OrderedMap[AnyProperty, ValueEntry]
	disposed bool
}

// FrameOption configures a Frame.
type FrameOption func(*Frame)

// WithOwnerHandle attaches the frame to an owner other than a Store.
func WithOwnerHandle(handle OwnerHandle) FrameOption {
	return func(f *Frame) {
		f.owner = handle
	}
}

// NewFrame creates a detached frame for scope. Frames become live once added
// to a Store (or created with WithOwnerHandle).
func NewFrame(scope Scope, opts ...FrameOption) *Frame {
	f := &Frame{
		scope:   scope.clone(),
		entries: orderedmap.New[AnyProperty, ValueEntry](),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Scope returns a copy of the frame's scope.
func (f *Frame) Scope() Scope { return f.scope.clone() }

// Name returns the scope name.
func (f *Frame) Name() string { return f.scope.Name }

// Priority returns the frame priority.
func (f *Frame) Priority() int { return f.scope.Priority }

// Owner returns the live owner, or nil when the frame is detached or its
// owner has been torn down.
func (f *Frame) Owner() Owner {
	if f == nil || f.disposed {
		return nil
	}
	return f.owner.Owner()
}

// Disposed reports whether the frame has been disposed.
func (f *Frame) Disposed() bool { return f.disposed }

// Len returns the number of active entries.
func (f *Frame) Len() int { return f.entries.Len() }

// Properties returns the properties with an active entry, in attach order.
func (f *Frame) Properties() []AnyProperty {
	out := make([]AnyProperty, 0, f.entries.Len())
	for pair := f.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Entry returns the active entry for property.
func (f *Frame) Entry(property AnyProperty) (ValueEntry, bool) {
	return f.entries.Get(property)
}

// Attach installs entry as the active entry for its property, replacing any
// previous entry. A replaced entry is unsubscribed but does not report
// completion.
func (f *Frame) Attach(entry ValueEntry) error {
	if entry == nil {
		return fmt.Errorf("props: frame %s: entry is nil", f.scope.Name)
	}
	if f.disposed {
		return fmt.Errorf("props: frame %s: attach after dispose", f.scope.Name)
	}
	if entry.Frame() != f {
		return fmt.Errorf("%w: entry for %s belongs to another frame", ErrPropertyMismatch, entry.Property().Name())
	}
	property := entry.Property()
	previous, replaced := f.entries.Set(property, entry)
	if replaced && previous != entry {
		if u, ok := previous.(unsubscriber); ok {
			u.Unsubscribe()
		}
		if r, ok := previous.(retirer); ok {
			r.retire()
		}
	}
	if owner := f.Owner(); owner != nil {
		owner.OnEntryAttached(property, f, entry)
	}
	return nil
}

// EntryCompleted removes entry if it is still the active entry for its
// property and informs the owner. Stale completions are ignored.
func (f *Frame) EntryCompleted(entry ValueEntry) {
	if entry == nil {
		return
	}
	property := entry.Property()
	current, ok := f.entries.Get(property)
	if !ok || current != entry {
		return
	}
	f.entries.Delete(property)
	if owner := f.Owner(); owner != nil {
		owner.OnEntryCompleted(property, f)
	}
}

// TryGetValue returns this frame's value for property. Only this frame's
// entry is started if it was lazy.
func (f *Frame) TryGetValue(property AnyProperty) (any, bool) {
	entry, ok := f.entries.Get(property)
	if !ok {
		return nil, false
	}
	return entry.TryGetValueAny()
}

// Peek reports this frame's cached value for property without starting a
// lazy entry.
func (f *Frame) Peek(property AnyProperty) (value any, found bool, started bool) {
	entry, ok := f.entries.Get(property)
	if !ok {
		return nil, false, false
	}
	if p, ok := entry.(peeker); ok {
		return p.peek()
	}
	value, found = entry.TryGetValueAny()
	return value, found, true
}

// SetAny installs a constant entry from an untyped value. The value goes
// through the conversion gate: UnsetValue removes the entry, DoNothing is
// ignored and invalid values are rejected with an *InvalidValueError.
func (f *Frame) SetAny(property AnyProperty, value any) error {
	if _, kind, err := property.ConvertAny(value); kind == ResultUnset {
		f.Remove(property)
		return nil
	} else if kind == ResultDoNothing {
		return nil
	} else if err != nil {
		return err
	}
	entry, err := property.newConstantEntry(f, value)
	if err != nil {
		return err
	}
	return f.Attach(entry)
}

// BindAny installs an untyped binding entry for property fed by source.
func (f *Frame) BindAny(property AnyProperty, source Observable[any]) (ValueEntry, error) {
	entry := property.newUntypedEntry(f, source)
	if err := f.Attach(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Remove disposes the active entry for property. It reports whether an entry
// was present.
func (f *Frame) Remove(property AnyProperty) bool {
	entry, ok := f.entries.Get(property)
	if !ok {
		return false
	}
	entry.Dispose()
	// Entries that do not report completion are removed directly.
	if current, still := f.entries.Get(property); still && current == entry {
		f.EntryCompleted(entry)
	}
	return true
}

// Dispose tears the frame down. Frames attached to an owner are detached
// through it so the owner can re-resolve affected properties.
func (f *Frame) Dispose() {
	if f.disposed {
		return
	}
	if owner := f.Owner(); owner != nil {
		if err := owner.DetachFrame(f); err == nil {
			return
		}
	}
	f.dispose()
}

// dispose detaches the owner first so entry teardown produces no
// notifications, then disposes every entry.
func (f *Frame) dispose() {
	if f.disposed {
		return
	}
	f.owner = OwnerHandle{}
	f.disposed = true
	entries := make([]ValueEntry, 0, f.entries.Len())
	for pair := f.entries.Oldest(); pair != nil; pair = pair.Next() {
		entries = append(entries, pair.Value)
	}
	for _, entry := range entries {
		entry.Dispose()
	}
	f.entries = orderedmap.New[AnyProperty, ValueEntry]()
}

func (f *Frame) setOwner(handle OwnerHandle) {
	f.owner = handle
}

// AttachValue installs a constant value for p in f.
func AttachValue[T any](f *Frame, p *Property[T], value T) (*ConstantEntry[T], error) {
	entry := NewConstantEntry(f, p, value)
	if err := f.Attach(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// AttachBinding installs a typed binding for p in f. The source is not
// subscribed until the entry is first read.
func AttachBinding[T any](f *Frame, p *Property[T], source Observable[BindingValue[T]]) (*BindingEntry[T], error) {
	entry := NewBindingEntry(f, p, source)
	if err := f.Attach(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// AttachUntyped installs an untyped binding for p in f. Values pass through
// the conversion gate.
func AttachUntyped[T any](f *Frame, p *Property[T], source Observable[any]) (*UntypedBindingEntry[T], error) {
	entry := NewUntypedBindingEntry(f, p, source)
	if err := f.Attach(entry); err != nil {
		return nil, err
	}
	return entry, nil
}
