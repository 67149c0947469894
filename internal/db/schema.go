package db

import (
	"context"
	"fmt"
)

// schemaSQL creates the tables the application needs. Statements are
// idempotent so startup can run them unconditionally.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id            UUID PRIMARY KEY,
	filename      TEXT NOT NULL,
	content_type  TEXT NOT NULL,
	size_bytes    BIGINT NOT NULL DEFAULT 0,
	s3_key        TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'uploaded',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS document_contents (
	document_id   UUID PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
	extracted_text TEXT NOT NULL,
	word_count    INTEGER NOT NULL DEFAULT 0,
	content_type  TEXT NOT NULL DEFAULT '',
	extracted_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id               UUID PRIMARY KEY,
	document_id      UUID NOT NULL,
	status           TEXT NOT NULL,
	current_stage    TEXT,
	progress         DOUBLE PRECISION NOT NULL DEFAULT 0,
	error            JSONB,
	cancel_requested BOOLEAN NOT NULL DEFAULT FALSE,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pipeline_checkpoints (
	pipeline_id  UUID NOT NULL REFERENCES pipeline_runs(id) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	stage        TEXT NOT NULL,
	output       JSONB,
	attempts     INTEGER NOT NULL DEFAULT 1,
	completed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (pipeline_id, position)
);

CREATE TABLE IF NOT EXISTS test_artifacts (
	id          UUID PRIMARY KEY,
	pipeline_id UUID NOT NULL,
	document_id UUID NOT NULL,
	content     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_document ON pipeline_runs(document_id);
CREATE INDEX IF NOT EXISTS idx_test_artifacts_pipeline ON test_artifacts(pipeline_id);
CREATE INDEX IF NOT EXISTS idx_test_artifacts_document ON test_artifacts(document_id);
`

// EnsureSchema creates all tables and indexes if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
