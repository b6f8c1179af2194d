package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(UpPaymentsTable, DownPaymentsTable)
}

func UpPaymentsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE payments
(
    id UUID PRIMARY KEY,
    order_id UUID NOT NULL REFERENCES orders (id),
    amount NUMERIC(12, 2) NOT NULL,
    currency VARCHAR(8) NOT NULL DEFAULT 'EUR',
    invoice_id TEXT NOT NULL DEFAULT '',
    intent_id TEXT NOT NULL DEFAULT '',
    status VARCHAR(16) NOT NULL DEFAULT 'CREATED',
    attempt INT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX payments_order ON payments (order_id);
CREATE INDEX payments_stuck ON payments (updated_at) WHERE status IN ('CREATED', 'PROCESSING');`)
	return err
}

func DownPaymentsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE payments;")
	return err
}
