package state

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	props "github.com/goliatone/go-props"
	"github.com/google/uuid"
)

// Resolver moves frame values in and out of a Store.
type Resolver struct {
	Store    Store
	Registry *props.Registry
	// Logger receives skipped-value diagnostics during Restore. Nil
	// discards them.
	Logger *slog.Logger
	// Now stamps Meta.UpdatedAt. Nil uses time.Now.
	Now func() time.Time
}

// Capture returns the values held by frame. Lazy entries that have not
// produced a value are skipped and never started.
func (r Resolver) Capture(frame *props.Frame) Snapshot {
	snapshot := Snapshot{}
	if frame == nil {
		return snapshot
	}
	for _, property := range frame.Properties() {
		if value, found, _ := frame.Peek(property); found {
			snapshot[property.Name()] = value
		}
	}
	return snapshot
}

// Persist captures frame and saves it under ref. When meta.ETag is set it
// must match the stored ETag, otherwise ErrETagMismatch is returned.
func (r Resolver) Persist(ctx context.Context, ref Ref, frame *props.Frame, meta Meta) (Meta, error) {
	if r.Store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	if frame == nil {
		return Meta{}, fmt.Errorf("state: frame is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return Meta{}, fmt.Errorf("state: %w", err)
	}

	_, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("state: load %q: %w", ref.ObjectID, err)
	}
	if !ok {
		loadedMeta = Meta{}
	}
	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	snapshot := r.Capture(frame)
	etag, err := snapshot.ETag()
	if err != nil {
		return loadedMeta, err
	}
	saveMeta := mergeMeta(loadedMeta, Meta{Extra: meta.Extra})
	saveMeta.SnapshotID = uuid.NewString()
	saveMeta.ETag = etag
	saveMeta.UpdatedAt = r.now()

	saved, err := r.Store.Save(ctx, ref, snapshot, saveMeta)
	if err != nil {
		return loadedMeta, fmt.Errorf("state: save %q for scope %q: %w", ref.ObjectID, ref.Scope.Name, err)
	}
	return saved, nil
}

// Restore loads the snapshot for ref and applies it to the store-managed
// frame at ref.Scope.Priority. Unknown names and values rejected by the
// conversion gate are logged and skipped.
func (r Resolver) Restore(ctx context.Context, ref Ref, store *props.Store) (*props.Frame, Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	if store == nil {
		return nil, Meta{}, fmt.Errorf("state: target store is required")
	}
	snapshot, meta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q for scope %q: %w", ref.ObjectID, ref.Scope.Name, err)
	}
	if !ok {
		return nil, Meta{}, fmt.Errorf("%w: %s/%s", ErrNotFound, ref.ObjectID, ref.Scope.Name)
	}

	frame, err := store.FrameAt(ref.Scope.Priority)
	if err != nil {
		return nil, meta, err
	}
	logger := r.logger()
	for _, name := range slices.Sorted(maps.Keys(snapshot)) {
		property, known := r.Registry.Lookup(name)
		if !known {
			logger.Warn("state: unknown property in snapshot",
				"object_id", ref.ObjectID,
				"scope", ref.Scope.Name,
				"property", name,
				"snapshot_id", meta.SnapshotID,
			)
			continue
		}
		if err := frame.SetAny(property, snapshot[name]); err != nil {
			logger.Warn("state: invalid value in snapshot",
				"object_id", ref.ObjectID,
				"scope", ref.Scope.Name,
				"property", name,
				"snapshot_id", meta.SnapshotID,
				"error", err,
			)
		}
	}
	return frame, meta, nil
}

func (r Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (r Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}
