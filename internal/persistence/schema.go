package persistence

// schema mirrors the teacher's storage/sqlite schema.go pattern: one
// CREATE TABLE IF NOT EXISTS block applied once per table file, idempotent
// across repeated opens of the same file. Each table id gets its own
// database file (SQLiteAdapter.dbPath), so this table only ever holds one
// row in practice; table_id is kept as the key anyway so Load's query stays
// the same regardless of how many tables happen to share a file.
const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    table_id   TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
