// Package testdb provides an in-memory database for store and service
// tests. It mirrors the goose migrations with portable DDL so the stores
// run against SQLite without a Postgres instance: placeholders, timestamps,
// and the partial unique index behave the same on both engines.
package testdb

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// Schema is the portable mirror of the production migrations.
const Schema = `
CREATE TABLE schemes (
	id BIGINT PRIMARY KEY,
	title TEXT NOT NULL,
	tts_state SMALLINT NOT NULL DEFAULT 0,
	document TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE speech_tasks (
	id TEXT PRIMARY KEY,
	scheme_id BIGINT NOT NULL,
	scheme_index INTEGER NOT NULL,
	segment_key TEXT NOT NULL,
	status SMALLINT NOT NULL DEFAULT 0,
	text_content TEXT NOT NULL DEFAULT '',
	voice_name TEXT NOT NULL DEFAULT '',
	tts_model TEXT NOT NULL DEFAULT '',
	provider TEXT NOT NULL DEFAULT '',
	audio_url TEXT NOT NULL DEFAULT '',
	retry_count INTEGER NOT NULL DEFAULT 0,
	error_log TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX idx_speech_tasks_scheme ON speech_tasks(scheme_id);
CREATE UNIQUE INDEX uq_speech_tasks_pending
	ON speech_tasks(scheme_id, scheme_index, segment_key) WHERE status = 0;
`

var dbSeq atomic.Int64

// New opens an isolated in-memory database with the schema applied.
// The database is closed when the test finishes.
func New(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err, "open sqlite")

	// A shared-cache in-memory database vanishes when its last connection
	// closes, so keep exactly one.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(Schema)
	require.NoError(t, err, "create schema")

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
