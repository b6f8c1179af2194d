package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(UpOrderDevicesTable, DownOrderDevicesTable)
}

func UpOrderDevicesTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE order_devices
(
    order_id UUID NOT NULL REFERENCES orders (id),
    idx INT NOT NULL,
    product_id VARCHAR(64) NOT NULL,
    consumer_category_id VARCHAR(64) NOT NULL,
    insurance BOOLEAN NOT NULL DEFAULT FALSE,
    lifepass_id VARCHAR(64) NOT NULL DEFAULT '',
    PRIMARY KEY (order_id, idx)
);
CREATE INDEX order_devices_lifepass ON order_devices (lifepass_id) WHERE lifepass_id <> '';`)
	return err
}

func DownOrderDevicesTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE order_devices;")
	return err
}
