package sqlitestore

const createSnapshots = `CREATE TABLE IF NOT EXISTS snapshots (
    ref_key TEXT PRIMARY KEY,
    object_id TEXT NOT NULL,
    scope_name TEXT NOT NULL,
    scope_priority INTEGER NOT NULL,
    snapshot_id TEXT NOT NULL,
    etag TEXT NOT NULL,
    payload TEXT NOT NULL,
    extra TEXT,
    updated_at TEXT NOT NULL
);`

const createSnapshotsObjectIndex = `CREATE INDEX IF NOT EXISTS idx_snapshots_object ON snapshots(object_id);`

const upsertSnapshot = `INSERT INTO snapshots
    (ref_key, object_id, scope_name, scope_priority, snapshot_id, etag, payload, extra, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(ref_key) DO UPDATE SET
    scope_priority = excluded.scope_priority,
    snapshot_id = excluded.snapshot_id,
    etag = excluded.etag,
    payload = excluded.payload,
    extra = excluded.extra,
    updated_at = excluded.updated_at;`
