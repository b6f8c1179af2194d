// Package pricing computes itemized and cumulative order prices from the
// resort catalog. Amounts are decimal end to end; floats never touch money.
package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtech-resorts/cashdesk/internal/apierr"
	"github.com/mtech-resorts/cashdesk/models"
)

type CatalogSource interface {
	GetProducts(ctx context.Context, resortID string) (map[string]models.Product, error)
	GetConsumerCategories(ctx context.Context, resortID string) (map[string]models.ConsumerCategory, error)
}

type Request struct {
	ResortID  string          `json:"resortId"`
	StartDate string          `json:"startDate"`
	Products  []models.Device `json:"products"`
}

type Calculator struct {
	catalog CatalogSource
}

func NewCalculator(catalog CatalogSource) *Calculator {
	return &Calculator{catalog: catalog}
}

// Calculate prices every selection against the catalog. Unknown products or
// categories come back as a validation issue list, never as a partial price.
func (c *Calculator) Calculate(ctx context.Context, req Request) (*models.CalculatedPrice, error) {
	issues := validateShape(req)
	if len(issues) > 0 {
		return nil, apierr.Validation(issues)
	}

	products, err := c.catalog.GetProducts(ctx, req.ResortID)
	if err != nil {
		return nil, err
	}
	categories, err := c.catalog.GetConsumerCategories(ctx, req.ResortID)
	if err != nil {
		return nil, err
	}

	price := &models.CalculatedPrice{
		CumulativeNet:   decimal.Zero,
		CumulativeTax:   decimal.Zero,
		CumulativeGross: decimal.Zero,
	}
	for i, selection := range req.Products {
		product, ok := products[selection.ProductID]
		if !ok {
			issues = append(issues, apierr.Issue{
				Path:    []any{"products", i, "productId"},
				Message: "Unknown product",
			})
			continue
		}
		category, ok := categories[selection.ConsumerCategoryID]
		if !ok {
			issues = append(issues, apierr.Issue{
				Path:    []any{"products", i, "consumerCategoryId"},
				Message: "Unknown consumer category",
			})
			continue
		}
		price.Items = append(price.Items, priceItem(product, category, selection.Insurance))
	}
	if len(issues) > 0 {
		return nil, apierr.Validation(issues)
	}

	for _, item := range price.Items {
		price.CumulativeNet = price.CumulativeNet.Add(item.Net)
		price.CumulativeTax = price.CumulativeTax.Add(item.Tax)
		price.CumulativeGross = price.CumulativeGross.Add(item.Gross)
	}
	return price, nil
}

func priceItem(product models.Product, category models.ConsumerCategory, insurance bool) models.PriceItem {
	days := decimal.NewFromInt(int64(product.DurationDays))
	net := product.DailyNet.Mul(days).Mul(category.Multiplier).Round(2)
	tax := net.Mul(product.TaxRate).Round(2)

	insuranceGross := decimal.Zero
	if insurance {
		insuranceNet := product.InsuranceNet.Mul(days).Round(2)
		insuranceGross = insuranceNet.Add(insuranceNet.Mul(product.TaxRate)).Round(2)
	}

	return models.PriceItem{
		ProductID:          product.ID,
		ConsumerCategoryID: category.ID,
		Kind:               product.Kind,
		Days:               product.DurationDays,
		Net:                net,
		Tax:                tax,
		Gross:              net.Add(tax).Add(insuranceGross),
		InsuranceGross:     insuranceGross,
	}
}

func validateShape(req Request) []apierr.Issue {
	var issues []apierr.Issue
	if req.ResortID == "" {
		issues = append(issues, apierr.Issue{Path: []any{"resortId"}, Message: "Required"})
	}
	if req.StartDate == "" {
		issues = append(issues, apierr.Issue{Path: []any{"startDate"}, Message: "Required"})
	} else if _, err := time.Parse("2006-01-02", req.StartDate); err != nil {
		issues = append(issues, apierr.Issue{Path: []any{"startDate"}, Message: "Invalid date"})
	}
	if len(req.Products) == 0 {
		issues = append(issues, apierr.Issue{Path: []any{"products"}, Message: "Required"})
	}
	for i, p := range req.Products {
		if p.ProductID == "" {
			issues = append(issues, apierr.Issue{Path: []any{"products", i, "productId"}, Message: "Required"})
		}
		if p.ConsumerCategoryID == "" {
			issues = append(issues, apierr.Issue{Path: []any{"products", i, "consumerCategoryId"}, Message: "Required"})
		}
	}
	return issues
}
