package props

import "weak"

// Owner is the object a frame reports to. Store is the canonical
// implementation; tests and embedding frameworks may supply their own.
type Owner interface {
	// OnValueChanged is called when an entry caches a new value.
	OnValueChanged(property AnyProperty, priority int, value any)
	// OnValueCleared is called when an entry drops its cached value.
	OnValueCleared(property AnyProperty, priority int)
	// OnEntryAttached is called after a frame installs or replaces an entry.
	OnEntryAttached(property AnyProperty, frame *Frame, entry ValueEntry)
	// OnEntryCompleted is called after a frame removes a finished entry.
	OnEntryCompleted(property AnyProperty, frame *Frame)
	// LogInvalidValue reports a value that failed the conversion gate.
	LogInvalidValue(property AnyProperty, value any, err error)
	// DetachFrame removes frame from the owner and disposes it.
	DetachFrame(frame *Frame) error
}

// OwnerHandle is a non-owning reference from a frame to its owner. A handle
// whose owner has been torn down (or collected) resolves to nil.
type OwnerHandle struct {
	resolve func() Owner
}

// NewOwnerHandle wraps resolve, which must return nil once the owner is gone.
func NewOwnerHandle(resolve func() Owner) OwnerHandle {
	return OwnerHandle{resolve: resolve}
}

// Owner returns the live owner or nil.
func (h OwnerHandle) Owner() Owner {
	if h.resolve == nil {
		return nil
	}
	return h.resolve()
}

// Alive reports whether the owner is still reachable.
func (h OwnerHandle) Alive() bool {
	return h.Owner() != nil
}

// weakStoreHandle references s without keeping it reachable.
func weakStoreHandle(s *Store) OwnerHandle {
	ptr := weak.Make(s)
	return OwnerHandle{resolve: func() Owner {
		store := ptr.Value()
		if store == nil || store.disposed {
			return nil
		}
		return store
	}}
}
