package activity

import "testing"

func TestBuildPropertyChangedEventIncludesFrameMetadata(t *testing.T) {
	frameMeta := map[string]any{"source": "theme.yaml"}
	input := PropertyEventInput{
		ActorID:    " actor ",
		ObjectID:   "button-1",
		ObjectName: "Button",
		Property:   "opacity",
		OldValue:   1.0,
		NewValue:   0.5,
		Frame:      FrameContext{Name: "animation", Label: "Fade", Priority: 600, Metadata: frameMeta},
	}

	event := BuildPropertyChangedEvent(input)

	if event.Verb != VerbPropertyChanged || event.ObjectType != ObjectTypeProperty {
		t.Fatalf("unexpected verb/object type: %+v", event)
	}
	if event.ObjectID != "button-1" || event.ActorID != "actor" {
		t.Fatalf("unexpected identity fields: %+v", event)
	}
	if event.Metadata["property"] != "opacity" || event.Metadata["object_name"] != "Button" {
		t.Fatalf("expected property metadata, got %+v", event.Metadata)
	}
	if event.Metadata["frame_name"] != "animation" || event.Metadata["frame_priority"] != 600 || event.Metadata["frame_label"] != "Fade" {
		t.Fatalf("expected frame metadata, got %+v", event.Metadata)
	}
	if event.Metadata["old_value"] != 1.0 || event.Metadata["new_value"] != 0.5 {
		t.Fatalf("expected old/new values, got %+v", event.Metadata)
	}
	cloned, ok := event.Metadata["frame_metadata"].(map[string]any)
	if !ok || cloned["source"] != "theme.yaml" {
		t.Fatalf("expected frame metadata clone, got %v", event.Metadata["frame_metadata"])
	}
	cloned["source"] = "changed"
	if frameMeta["source"] != "theme.yaml" {
		t.Fatalf("input metadata must not be shared")
	}
}

func TestBuildPropertyClearedEventOmitsNilValues(t *testing.T) {
	event := BuildPropertyClearedEvent(PropertyEventInput{ObjectID: "1", Property: "width", OldValue: 10})
	if event.Verb != VerbPropertyCleared {
		t.Fatalf("expected cleared verb, got %s", event.Verb)
	}
	if _, ok := event.Metadata["new_value"]; ok {
		t.Fatalf("nil new value must be omitted: %+v", event.Metadata)
	}
	if event.Metadata["old_value"] != 10 {
		t.Fatalf("expected old value, got %+v", event.Metadata)
	}
}

func TestFrameEventsFallBackToObjectNameThenType(t *testing.T) {
	named := BuildFrameAttachedEvent(PropertyEventInput{ObjectName: "Slider"})
	if named.ObjectID != "Slider" || named.ObjectType != ObjectTypeFrame {
		t.Fatalf("expected object name fallback, got %+v", named)
	}
	bare := BuildFrameDetachedEvent(PropertyEventInput{})
	if bare.ObjectID != ObjectTypeFrame || bare.Verb != VerbFrameDetached {
		t.Fatalf("expected object type fallback, got %+v", bare)
	}
}
