package db

import (
	"context"

	"github.com/mtech-resorts/cashdesk/models"
)

func (m *Manager) GetProducts(ctx context.Context, resortID string) (map[string]models.Product, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT id, resort_id, name, kind, duration_days, daily_net, tax_rate, insurance_net
		FROM products
		WHERE resort_id = $1
	`, resortID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[string]models.Product)
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.ResortID, &p.Name, &p.Kind,
			&p.DurationDays, &p.DailyNet, &p.TaxRate, &p.InsuranceNet); err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}

func (m *Manager) GetConsumerCategories(ctx context.Context, resortID string) (map[string]models.ConsumerCategory, error) {
	rows, err := m.DB.QueryContext(ctx, `
		SELECT id, resort_id, name, multiplier
		FROM consumer_categories
		WHERE resort_id = $1
	`, resortID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make(map[string]models.ConsumerCategory)
	for rows.Next() {
		var c models.ConsumerCategory
		if err := rows.Scan(&c.ID, &c.ResortID, &c.Name, &c.Multiplier); err != nil {
			return nil, err
		}
		categories[c.ID] = c
	}
	return categories, rows.Err()
}
