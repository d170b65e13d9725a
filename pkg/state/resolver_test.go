package state_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	props "github.com/goliatone/go-props"
	"github.com/goliatone/go-props/pkg/state"
)

var (
	widthProperty = props.NewProperty("width", 0.0)
	countProperty = props.NewProperty("count", 0)
	titleProperty = props.NewProperty("title", "")
)

func newResolver(store state.Store) state.Resolver {
	return state.Resolver{
		Store:    store,
		Registry: props.NewRegistry(widthProperty, countProperty, titleProperty),
		Now:      func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func localRef() state.Ref {
	return state.Ref{ObjectID: "button", Scope: props.NewScope("", props.PriorityLocal)}
}

func TestCaptureSkipsUnstartedEntries(t *testing.T) {
	source := props.NewStore()
	_ = props.SetValue(source, widthProperty, 12.5)
	entry, _ := props.BindUntyped(source, titleProperty, props.FromValues[any]("bound"), props.PriorityLocal)
	frame, _ := source.LocalFrame()

	snapshot := newResolver(nil).Capture(frame)
	if len(snapshot) != 1 || snapshot["width"] != 12.5 {
		t.Fatalf("unexpected snapshot %v", snapshot)
	}
	if entry.Started() {
		t.Fatalf("capture must not start lazy entries")
	}
}

func TestPersistAndRestore(t *testing.T) {
	memory := state.NewMemoryStore()
	resolver := newResolver(memory)

	source := props.NewStore()
	_ = props.SetValue(source, widthProperty, 12.5)
	_ = props.SetValue(source, countProperty, 3)
	frame, _ := source.LocalFrame()

	meta, err := resolver.Persist(context.Background(), localRef(), frame, state.Meta{})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if meta.SnapshotID == "" || meta.ETag == "" {
		t.Fatalf("expected generated snapshot id and etag, got %+v", meta)
	}
	if !meta.UpdatedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected updated at %v", meta.UpdatedAt)
	}

	target := props.NewStore()
	restored, restoredMeta, err := resolver.Restore(context.Background(), localRef(), target)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restoredMeta.SnapshotID != meta.SnapshotID {
		t.Fatalf("expected restored meta %+v, got %+v", meta, restoredMeta)
	}
	if restored.Priority() != props.PriorityLocal || restored.Len() != 2 {
		t.Fatalf("unexpected restored frame %s with %d entries", restored.Name(), restored.Len())
	}
	if got := props.Get(target, widthProperty); got != 12.5 {
		t.Fatalf("expected width 12.5, got %v", got)
	}
	if got := props.Get(target, countProperty); got != 3 {
		t.Fatalf("expected count 3, got %v", got)
	}
}

func TestPersistDetectsETagMismatch(t *testing.T) {
	memory := state.NewMemoryStore()
	resolver := newResolver(memory)
	source := props.NewStore()
	frame, _ := source.LocalFrame()

	_ = props.SetValue(source, widthProperty, 1.0)
	first, err := resolver.Persist(context.Background(), localRef(), frame, state.Meta{})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	_ = props.SetValue(source, widthProperty, 2.0)
	second, err := resolver.Persist(context.Background(), localRef(), frame, state.Meta{ETag: first.ETag})
	if err != nil {
		t.Fatalf("persist with current etag: %v", err)
	}
	if second.ETag == first.ETag {
		t.Fatalf("expected etag to change with content")
	}

	_, err = resolver.Persist(context.Background(), localRef(), frame, state.Meta{ETag: first.ETag})
	if !errors.Is(err, state.ErrETagMismatch) {
		t.Fatalf("expected etag mismatch, got %v", err)
	}
}

func TestRestoreSkipsUnknownAndInvalidValues(t *testing.T) {
	memory := state.NewMemoryStore()
	ref := localRef()
	_, _ = memory.Save(context.Background(), ref, state.Snapshot{
		"width":  "wide",
		"legacy": true,
		"title":  "hello",
		"count":  4.0,
	}, state.Meta{SnapshotID: "old"})

	var logs bytes.Buffer
	resolver := newResolver(memory)
	resolver.Logger = slog.New(slog.NewJSONHandler(&logs, nil))

	target := props.NewStore()
	frame, _, err := resolver.Restore(context.Background(), ref, target)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if frame.Len() != 2 {
		t.Fatalf("expected two restored entries, got %d", frame.Len())
	}
	if props.Get(target, titleProperty) != "hello" || props.Get(target, countProperty) != 4 {
		t.Fatalf("unexpected restored values")
	}
	if target.IsSet(widthProperty) {
		t.Fatalf("invalid width must be skipped")
	}
	out := logs.String()
	if !strings.Contains(out, `"property":"legacy"`) || !strings.Contains(out, `"property":"width"`) {
		t.Fatalf("expected skipped values to be logged: %s", out)
	}
}

func TestRestoreMissingSnapshot(t *testing.T) {
	resolver := newResolver(state.NewMemoryStore())
	_, _, err := resolver.Restore(context.Background(), localRef(), props.NewStore())
	if !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
