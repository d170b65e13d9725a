package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	props "github.com/goliatone/go-props"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

var ErrNotFound = errors.New("state: snapshot not found")

// Ref identifies the persisted values of one frame of one object.
type Ref struct {
	ObjectID string
	Scope    props.Scope
}

// Identifier returns the canonical storage key for the ref.
func (r Ref) Identifier() (string, error) {
	if r.ObjectID == "" {
		return "", fmt.Errorf("missing object id for scope %q", r.Scope.Name)
	}
	if r.Scope.Name == "" {
		return "", fmt.Errorf("missing scope name for object %q", r.ObjectID)
	}
	return fmt.Sprintf("%s/%s", r.ObjectID, r.Scope.Name), nil
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Snapshot maps property names to values.
type Snapshot map[string]any

// Clone returns a shallow copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	return maps.Clone(s)
}

// ETag returns a content hash of the snapshot's JSON encoding.
func (s Snapshot) ETag() (string, error) {
	payload, err := json.Marshal(map[string]any(s))
	if err != nil {
		return "", fmt.Errorf("state: encode snapshot: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8]), nil
}

// Store loads and saves one snapshot per ref.
type Store interface {
	Load(ctx context.Context, ref Ref) (snapshot Snapshot, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot Snapshot, meta Meta) (Meta, error)
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra != nil {
		out.Extra = maps.Clone(meta.Extra)
	}
	return out
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
