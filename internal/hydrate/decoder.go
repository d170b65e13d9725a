// Package hydrate turns loosely typed map payloads (decoded JSON or YAML
// binding values, persisted snapshots) into strongly typed property values.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context identifies what a payload is being decoded for. It only feeds
// hooks and error messages.
type Context struct {
	Target   string
	Property string
}

func (c Context) label() string {
	switch {
	case c.Property != "" && c.Target != "":
		return c.Property + ":" + c.Target
	case c.Property != "":
		return c.Property
	case c.Target != "":
		return c.Target
	default:
		return "<anonymous>"
	}
}

// PreHook may rewrite the payload before decoding. Returning a nil map keeps
// the current payload.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook may adjust or reject the decoded value.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts map payloads into T by round-tripping through
// encoding/json, which honours the json struct tags already used for
// persisted snapshots.
type Decoder[T any] struct {
	preHooks     []PreHook
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.preHooks = append(d.preHooks, hook)
		}
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.postHooks = append(d.postHooks, hook)
		}
	}
}

// WithUseNumber keeps numbers inside interface fields as json.Number.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

// WithDisallowUnknownFields rejects payload keys with no matching field.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

// NewDecoder builds a Decoder from opts.
func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into T, running hooks around the JSON round trip.
// The caller's map is never mutated.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T
	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for %s", ctx.label())
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("hydrate: marshal payload for %s: %w", ctx.label(), err)
	}

	if len(d.preHooks) > 0 {
		current := map[string]any{}
		if err := json.Unmarshal(raw, &current); err != nil {
			return zero, fmt.Errorf("hydrate: clone payload for %s: %w", ctx.label(), err)
		}
		for _, hook := range d.preHooks {
			next, err := hook(ctx, current)
			if err != nil {
				return zero, fmt.Errorf("hydrate: pre-hook for %s failed: %w", ctx.label(), err)
			}
			if next != nil {
				current = next
			}
		}
		if raw, err = json.Marshal(current); err != nil {
			return zero, fmt.Errorf("hydrate: marshal payload for %s: %w", ctx.label(), err)
		}
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	for _, configure := range d.configureDec {
		configure(decoder)
	}
	var result T
	if err := decoder.Decode(&result); err != nil {
		return zero, fmt.Errorf("hydrate: decode %s: %w", ctx.label(), err)
	}

	for _, hook := range d.postHooks {
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %s failed: %w", ctx.label(), err)
		}
	}
	return result, nil
}
