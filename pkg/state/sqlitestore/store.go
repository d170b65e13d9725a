// Package sqlitestore implements state.Store on SQLite. Each row holds the
// JSON-encoded snapshot of one frame of one object.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/goliatone/go-props/pkg/state"
)

var _ state.Store = (*Store)(nil)

// Store persists snapshots in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	store, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an open database and applies the schema.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlitestore: db is nil")
	}
	for _, stmt := range []string{createSnapshots, createSnapshotsObjectIndex} {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("sqlitestore: apply schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load implements state.Store.
func (s *Store) Load(ctx context.Context, ref state.Ref) (state.Snapshot, state.Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, state.Meta{}, false, err
	}

	var (
		snapshotID, etag, payload, updatedAt string
		extra                                sql.NullString
	)
	row := s.db.QueryRowContext(ctx,
		"SELECT snapshot_id, etag, payload, extra, updated_at FROM snapshots WHERE ref_key = ?",
		key,
	)
	if err := row.Scan(&snapshotID, &etag, &payload, &extra, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, state.Meta{}, false, nil
		}
		return nil, state.Meta{}, false, fmt.Errorf("loading snapshot %s: %w", key, err)
	}

	snapshot := state.Snapshot{}
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return nil, state.Meta{}, false, fmt.Errorf("decoding snapshot %s: %w", key, err)
	}
	meta := state.Meta{SnapshotID: snapshotID, ETag: etag}
	if meta.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, state.Meta{}, false, fmt.Errorf("decoding snapshot %s updated_at: %w", key, err)
	}
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &meta.Extra); err != nil {
			return nil, state.Meta{}, false, fmt.Errorf("decoding snapshot %s extra: %w", key, err)
		}
	}
	return snapshot, meta, true, nil
}

// Save implements state.Store. An existing row for ref is replaced.
func (s *Store) Save(ctx context.Context, ref state.Ref, snapshot state.Snapshot, meta state.Meta) (state.Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return state.Meta{}, err
	}
	if snapshot == nil {
		snapshot = state.Snapshot{}
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return state.Meta{}, fmt.Errorf("encoding snapshot %s: %w", key, err)
	}
	var extra sql.NullString
	if len(meta.Extra) > 0 {
		raw, err := json.Marshal(meta.Extra)
		if err != nil {
			return state.Meta{}, fmt.Errorf("encoding snapshot %s extra: %w", key, err)
		}
		extra = sql.NullString{String: string(raw), Valid: true}
	}
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, upsertSnapshot,
		key,
		ref.ObjectID,
		ref.Scope.Name,
		ref.Scope.Priority,
		meta.SnapshotID,
		meta.ETag,
		string(payload),
		extra,
		meta.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return state.Meta{}, fmt.Errorf("saving snapshot %s: %w", key, err)
	}
	return meta, nil
}

// Delete removes the snapshot for ref. It reports whether a row existed.
func (s *Store) Delete(ctx context.Context, ref state.Ref) (bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return false, err
	}
	result, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE ref_key = ?", key)
	if err != nil {
		return false, fmt.Errorf("deleting snapshot %s: %w", key, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Refs lists the persisted frames of objectID ordered by priority, strongest
// first.
func (s *Store) Refs(ctx context.Context, objectID string) ([]state.Ref, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT scope_name, scope_priority FROM snapshots WHERE object_id = ? ORDER BY scope_priority DESC, scope_name",
		objectID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots for %s: %w", objectID, err)
	}
	defer rows.Close()

	var refs []state.Ref
	for rows.Next() {
		ref := state.Ref{ObjectID: objectID}
		if err := rows.Scan(&ref.Scope.Name, &ref.Scope.Priority); err != nil {
			return nil, fmt.Errorf("scanning snapshot ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
