package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(UpOrdersTable, DownOrdersTable)
}

func UpOrdersTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE orders
(
    id UUID PRIMARY KEY,
    resort_id VARCHAR(64) NOT NULL,
    start_date DATE NOT NULL,
    order_data_hash VARCHAR(64) NOT NULL,
    payment_status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
    order_status VARCHAR(16) NOT NULL DEFAULT 'DRAFT',
    wizard_state VARCHAR(16) NOT NULL DEFAULT 'FORM_ENTRY',
    legacy BOOLEAN NOT NULL DEFAULT FALSE,
    test_order BOOLEAN NOT NULL DEFAULT FALSE,
    discarded BOOLEAN NOT NULL DEFAULT FALSE,
    client_name TEXT NOT NULL DEFAULT '',
    client_email TEXT NOT NULL DEFAULT '',
    client_phone TEXT NOT NULL DEFAULT '',
    sales_channel TEXT NOT NULL DEFAULT '',
    price_snapshot JSONB,
    myth_order JSONB,
    skidata_order JSONB,
    payment_intent_id TEXT NOT NULL DEFAULT '',
    payment_bypassed BOOLEAN NOT NULL DEFAULT FALSE,
    version BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX orders_data_hash_live ON orders (order_data_hash) WHERE NOT discarded;
CREATE INDEX orders_created_at ON orders (created_at DESC, id DESC);`)
	return err
}

func DownOrdersTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE orders;")
	return err
}
