package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mtech-resorts/cashdesk/config"
	_ "github.com/mtech-resorts/cashdesk/internal/db/migrations"
	"github.com/mtech-resorts/cashdesk/models"
)

type Manager struct {
	DB *sql.DB
}

var _ Database = (*Manager)(nil)

func NewManager(cfg *config.Config) (*Manager, error) {
	database, err := sql.Open("pgx", cfg.DatabaseURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err = database.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err = goose.Up(database, "./internal/db/migrations"); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Manager{DB: database}, nil
}

func (m *Manager) PutOperator(ctx context.Context, operator models.Operator) error {
	_, err := m.DB.ExecContext(ctx, `
        INSERT INTO operators (uuid, login, password)
        VALUES ($1, $2, $3)
    `, operator.UUID, operator.Login, operator.Password)
	if err != nil {
		return fmt.Errorf("failed to insert operator: %w", err)
	}

	return nil
}

func (m *Manager) GetOperator(ctx context.Context, login string) (models.Operator, error) {
	var operator models.Operator

	err := m.DB.QueryRowContext(ctx, `
		SELECT uuid, login, password
		FROM operators
		WHERE login = $1
	`, login).Scan(&operator.UUID, &operator.Login, &operator.Password)

	if err != nil {
		return operator, fmt.Errorf("failed to get operator: %w", err)
	}

	return operator, nil
}

func (m *Manager) Close() error {
	return m.DB.Close()
}
