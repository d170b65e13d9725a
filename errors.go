package props

import (
	"errors"
	"fmt"
)

var (
	// ErrNoValue indicates a value was read from an entry that has none cached.
	ErrNoValue = errors.New("props: entry has no value")
	// ErrAlreadyStarted indicates Start was called on an entry twice.
	ErrAlreadyStarted = errors.New("props: entry already started")
	// ErrStoreDisposed indicates an operation on a store that was torn down.
	ErrStoreDisposed = errors.New("props: store disposed")
	// ErrFrameOwned indicates a frame is already attached to another store.
	ErrFrameOwned = errors.New("props: frame already attached")
	// ErrFrameNotFound indicates the frame is not attached to this store.
	ErrFrameNotFound = errors.New("props: frame not attached")
	// ErrPropertyMismatch indicates an entry was attached for a property of a
	// different frame or descriptor.
	ErrPropertyMismatch = errors.New("props: property mismatch")
)

// InternalError reports a broken invariant. It is never expected during
// normal operation and signals a programming-contract violation.
type InternalError struct {
	Op       string
	Property string
	Err      error
}

func (e *InternalError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Property != "" {
		return fmt.Sprintf("props: internal invariant broken in %s property=%s: %v", e.Op, e.Property, e.Err)
	}
	return fmt.Sprintf("props: internal invariant broken in %s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsInternal reports whether err carries an *InternalError.
func IsInternal(err error) bool {
	var internal *InternalError
	return errors.As(err, &internal)
}

func internalError(op string, property AnyProperty, err error) error {
	name := ""
	if property != nil {
		name = property.Name()
	}
	return &InternalError{Op: op, Property: name, Err: err}
}

// InvalidValueError describes an incoming value that failed conversion or
// validation against a property's declared type.
type InvalidValueError struct {
	Property string
	Expected string
	Value    any
	Err      error
}

func (e *InvalidValueError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("props: invalid value %s for property %s (expected %s): %v", describeValue(e.Value), e.Property, e.Expected, e.Err)
	}
	return fmt.Sprintf("props: invalid value %s for property %s (expected %s)", describeValue(e.Value), e.Property, e.Expected)
}

func (e *InvalidValueError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeValue(value any) string {
	if value == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v (%T)", value, value)
}
