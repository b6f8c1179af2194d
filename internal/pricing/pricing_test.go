package pricing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtech-resorts/cashdesk/internal/apierr"
	"github.com/mtech-resorts/cashdesk/models"
)

type fakeCatalog struct {
	products   map[string]models.Product
	categories map[string]models.ConsumerCategory
}

func (f *fakeCatalog) GetProducts(context.Context, string) (map[string]models.Product, error) {
	return f.products, nil
}

func (f *fakeCatalog) GetConsumerCategories(context.Context, string) (map[string]models.ConsumerCategory, error) {
	return f.categories, nil
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[string]models.Product{
			"rental-3d": {
				ID:           "rental-3d",
				Kind:         models.ProductLifepassRental,
				DurationDays: 3,
				DailyNet:     decimal.RequireFromString("20.00"),
				TaxRate:      decimal.RequireFromString("0.10"),
				InsuranceNet: decimal.RequireFromString("2.00"),
			},
		},
		categories: map[string]models.ConsumerCategory{
			"adult": {ID: "adult", Multiplier: decimal.NewFromInt(1)},
			"child": {ID: "child", Multiplier: decimal.RequireFromString("0.5")},
		},
	}
}

func TestCalculate(t *testing.T) {
	calculator := NewCalculator(testCatalog())

	t.Run("AdultWithInsurance", func(t *testing.T) {
		price, err := calculator.Calculate(context.Background(), Request{
			ResortID:  "resort-1",
			StartDate: "2026-01-10",
			Products: []models.Device{
				{ProductID: "rental-3d", ConsumerCategoryID: "adult", Insurance: true},
			},
		})
		require.NoError(t, err)
		require.Len(t, price.Items, 1)

		item := price.Items[0]
		// 20.00 * 3 days * 1.0
		assert.True(t, item.Net.Equal(decimal.RequireFromString("60.00")), item.Net.String())
		assert.True(t, item.Tax.Equal(decimal.RequireFromString("6.00")), item.Tax.String())
		// insurance: 2.00 * 3 = 6.00 net, +10% tax
		assert.True(t, item.InsuranceGross.Equal(decimal.RequireFromString("6.60")), item.InsuranceGross.String())
		assert.True(t, item.Gross.Equal(decimal.RequireFromString("72.60")), item.Gross.String())
		assert.Equal(t, 3, item.Days)
		assert.Equal(t, models.ProductLifepassRental, item.Kind)

		assert.True(t, price.CumulativeGross.Equal(decimal.RequireFromString("72.60")))
	})

	t.Run("ChildMultiplierHalvesNet", func(t *testing.T) {
		price, err := calculator.Calculate(context.Background(), Request{
			ResortID:  "resort-1",
			StartDate: "2026-01-10",
			Products: []models.Device{
				{ProductID: "rental-3d", ConsumerCategoryID: "child"},
			},
		})
		require.NoError(t, err)
		item := price.Items[0]
		assert.True(t, item.Net.Equal(decimal.RequireFromString("30.00")), item.Net.String())
		assert.True(t, item.InsuranceGross.IsZero())
	})

	t.Run("CumulativeSumsAcrossItems", func(t *testing.T) {
		price, err := calculator.Calculate(context.Background(), Request{
			ResortID:  "resort-1",
			StartDate: "2026-01-10",
			Products: []models.Device{
				{ProductID: "rental-3d", ConsumerCategoryID: "adult"},
				{ProductID: "rental-3d", ConsumerCategoryID: "child"},
			},
		})
		require.NoError(t, err)
		assert.True(t, price.CumulativeNet.Equal(decimal.RequireFromString("90.00")))
		assert.True(t, price.CumulativeTax.Equal(decimal.RequireFromString("9.00")))
		assert.True(t, price.CumulativeGross.Equal(decimal.RequireFromString("99.00")))
	})

	t.Run("UnknownProductAndCategory", func(t *testing.T) {
		_, err := calculator.Calculate(context.Background(), Request{
			ResortID:  "resort-1",
			StartDate: "2026-01-10",
			Products: []models.Device{
				{ProductID: "nope", ConsumerCategoryID: "adult"},
				{ProductID: "rental-3d", ConsumerCategoryID: "senior"},
			},
		})
		var apiErr *apierr.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, apierr.TypeValidation, apiErr.Type)
		assert.Equal(t, []apierr.Issue{
			{Path: []any{"products", 0, "productId"}, Message: "Unknown product"},
			{Path: []any{"products", 1, "consumerCategoryId"}, Message: "Unknown consumer category"},
		}, apiErr.Issues)
	})

	t.Run("ShapeValidation", func(t *testing.T) {
		_, err := calculator.Calculate(context.Background(), Request{
			StartDate: "10.01.2026",
			Products:  []models.Device{{}},
		})
		var apiErr *apierr.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, []apierr.Issue{
			{Path: []any{"resortId"}, Message: "Required"},
			{Path: []any{"startDate"}, Message: "Invalid date"},
			{Path: []any{"products", 0, "productId"}, Message: "Required"},
			{Path: []any{"products", 0, "consumerCategoryId"}, Message: "Required"},
		}, apiErr.Issues)
	})

	t.Run("EmptySelection", func(t *testing.T) {
		_, err := calculator.Calculate(context.Background(), Request{
			ResortID:  "resort-1",
			StartDate: "2026-01-10",
		})
		var apiErr *apierr.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, []any{"products"}, apiErr.Issues[0].Path)
	})
}
