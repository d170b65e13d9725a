package state_test

import (
	"context"
	"testing"

	props "github.com/goliatone/go-props"
	"github.com/goliatone/go-props/pkg/state"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := state.NewMemoryStore()
	ref := state.Ref{ObjectID: "button", Scope: props.NewScope("", props.PriorityLocal)}

	if _, _, ok, err := store.Load(context.Background(), ref); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}

	snapshot := state.Snapshot{"width": 10.0}
	meta := state.Meta{SnapshotID: "snap-1", Extra: map[string]string{"source": "test"}}
	if _, err := store.Save(context.Background(), ref, snapshot, meta); err != nil {
		t.Fatalf("save: %v", err)
	}
	snapshot["width"] = 99.0
	meta.Extra["source"] = "mutated"

	loaded, loadedMeta, ok, err := store.Load(context.Background(), ref)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if loaded["width"] != 10.0 {
		t.Fatalf("store must copy snapshots, got %v", loaded["width"])
	}
	if loadedMeta.SnapshotID != "snap-1" || loadedMeta.Extra["source"] != "test" {
		t.Fatalf("store must copy meta, got %+v", loadedMeta)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one record, got %d", store.Len())
	}
}

func TestMemoryStoreRejectsInvalidRef(t *testing.T) {
	store := state.NewMemoryStore()
	if _, err := store.Save(context.Background(), state.Ref{}, state.Snapshot{}, state.Meta{}); err == nil {
		t.Fatalf("expected identifier error")
	}
	if _, _, _, err := store.Load(context.Background(), state.Ref{}); err == nil {
		t.Fatalf("expected identifier error")
	}
}
