package activity

import (
	"strings"
	"time"
)

// Verbs emitted by property stores.
const (
	VerbPropertyChanged = "property.changed"
	VerbPropertyCleared = "property.cleared"
	VerbFrameAttached   = "frame.attached"
	VerbFrameDetached   = "frame.detached"
)

// Object types attached to events.
const (
	ObjectTypeProperty = "property"
	ObjectTypeFrame    = "frame"
)

// FrameContext describes the frame that produced an event.
type FrameContext struct {
	Name     string
	Label    string
	Priority int
	Metadata map[string]any
}

// PropertyEventInput carries the fields shared by property store events.
type PropertyEventInput struct {
	ActorID    string
	TenantID   string
	ObjectID   string
	ObjectName string
	Channel    string
	Property   string
	OldValue   any
	NewValue   any
	Frame      FrameContext
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildPropertyChangedEvent describes a change of an effective value.
func BuildPropertyChangedEvent(input PropertyEventInput) Event {
	return buildPropertyEvent(VerbPropertyChanged, ObjectTypeProperty, input)
}

// BuildPropertyClearedEvent describes a property falling back to its default.
func BuildPropertyClearedEvent(input PropertyEventInput) Event {
	return buildPropertyEvent(VerbPropertyCleared, ObjectTypeProperty, input)
}

// BuildFrameAttachedEvent describes a frame added to a store.
func BuildFrameAttachedEvent(input PropertyEventInput) Event {
	return buildPropertyEvent(VerbFrameAttached, ObjectTypeFrame, input)
}

// BuildFrameDetachedEvent describes a frame removed from a store.
func BuildFrameDetachedEvent(input PropertyEventInput) Event {
	return buildPropertyEvent(VerbFrameDetached, ObjectTypeFrame, input)
}

func buildPropertyEvent(verb, objectType string, input PropertyEventInput) Event {
	metadata := cloneMap(input.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	if input.Property != "" {
		set("property", input.Property)
	}
	if input.ObjectName != "" {
		set("object_name", input.ObjectName)
	}
	if input.Frame.Name != "" {
		set("frame_name", input.Frame.Name)
		set("frame_priority", input.Frame.Priority)
		if input.Frame.Label != "" {
			set("frame_label", input.Frame.Label)
		}
		if len(input.Frame.Metadata) > 0 {
			set("frame_metadata", cloneMap(input.Frame.Metadata))
		}
	}
	if input.OldValue != nil {
		set("old_value", input.OldValue)
	}
	if input.NewValue != nil {
		set("new_value", input.NewValue)
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.ObjectName)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
