package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(UpSessionLogsTables, DownSessionLogsTables)
}

func UpSessionLogsTables(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE session_logs
(
    id UUID PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE session_tasks
(
    id UUID PRIMARY KEY,
    session_id UUID NOT NULL REFERENCES session_logs (id),
    parent_id UUID,
    name VARCHAR(255) NOT NULL,
    status VARCHAR(16) NOT NULL,
    started_at TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL DEFAULT 0,
    error_detail TEXT NOT NULL DEFAULT ''
);
CREATE INDEX session_tasks_session ON session_tasks (session_id, started_at);`)
	return err
}

func DownSessionLogsTables(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE session_tasks; DROP TABLE session_logs;")
	return err
}
