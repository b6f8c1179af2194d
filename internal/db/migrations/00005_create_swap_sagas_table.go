package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(UpSwapSagasTable, DownSwapSagasTable)
}

func UpSwapSagasTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE swap_sagas
(
    id UUID PRIMARY KEY,
    order_id UUID NOT NULL REFERENCES orders (id),
    resort_id VARCHAR(64) NOT NULL,
    old_pass_id VARCHAR(64) NOT NULL,
    new_pass_id VARCHAR(64) NOT NULL,
    return_only BOOLEAN NOT NULL DEFAULT FALSE,
    step INT NOT NULL DEFAULT 1,
    step_status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
    error_detail TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (order_id, old_pass_id, new_pass_id)
);`)
	return err
}

func DownSwapSagasTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE swap_sagas;")
	return err
}
