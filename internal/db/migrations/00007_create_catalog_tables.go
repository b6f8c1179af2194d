package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(UpCatalogTables, DownCatalogTables)
}

func UpCatalogTables(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE products
(
    id VARCHAR(64) PRIMARY KEY,
    resort_id VARCHAR(64) NOT NULL,
    name VARCHAR(255) NOT NULL,
    kind VARCHAR(32) NOT NULL,
    duration_days INT NOT NULL DEFAULT 1,
    daily_net NUMERIC(12, 2) NOT NULL,
    tax_rate NUMERIC(6, 4) NOT NULL,
    insurance_net NUMERIC(12, 2) NOT NULL DEFAULT 0
);
CREATE TABLE consumer_categories
(
    id VARCHAR(64) PRIMARY KEY,
    resort_id VARCHAR(64) NOT NULL,
    name VARCHAR(255) NOT NULL,
    multiplier NUMERIC(6, 4) NOT NULL DEFAULT 1
);
CREATE INDEX products_resort ON products (resort_id);
CREATE INDEX consumer_categories_resort ON consumer_categories (resort_id);`)
	return err
}

func DownCatalogTables(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE products; DROP TABLE consumer_categories;")
	return err
}
