package activity

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"time"
)

// Event describes a property store occurrence fanned out to hooks. Object
// IDs are strings so call sites do not depend on a concrete ID type.
type Event struct {
	Verb       string
	ActorID    string
	UserID     string
	TenantID   string
	ObjectType string
	ObjectID   string
	Channel    string
	Recipients []string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Valid reports whether the event carries the fields hooks require.
func (e Event) Valid() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// Hook receives normalized events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify implements Hook.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans events out to zero or more hooks.
type Hooks []Hook

// Notify normalizes event and forwards it to every hook. Events missing a
// verb, object type or object ID are dropped. Hook errors are joined.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	normalized := NormalizeEvent(event)
	if !normalized.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims identifiers, copies metadata and recipients, and
// stamps OccurredAt when missing.
func NormalizeEvent(event Event) Event {
	out := event
	for _, field := range []*string{&out.Verb, &out.ActorID, &out.UserID, &out.TenantID, &out.ObjectType, &out.ObjectID, &out.Channel} {
		*field = strings.TrimSpace(*field)
	}
	out.Metadata = cloneMap(event.Metadata)
	out.Recipients = nil
	if len(event.Recipients) > 0 {
		out.Recipients = slices.Clone(event.Recipients)
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now()
	}
	return out
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}
