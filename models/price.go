package models

import "github.com/shopspring/decimal"

type ProductKind string

const (
	ProductLifepassRental ProductKind = "LIFEPASS_RENTAL"
	ProductSkiTicket      ProductKind = "SKI_TICKET"
)

// Product is one sellable catalog entry of a resort. DailyNet is the per-day
// net price before the consumer-category multiplier.
type Product struct {
	ID           string
	ResortID     string
	Name         string
	Kind         ProductKind
	DurationDays int
	DailyNet     decimal.Decimal
	TaxRate      decimal.Decimal
	InsuranceNet decimal.Decimal
}

type ConsumerCategory struct {
	ID         string
	ResortID   string
	Name       string
	Multiplier decimal.Decimal
}

// PriceItem is the calculated price of one device selection.
type PriceItem struct {
	ProductID          string          `json:"productId"`
	ConsumerCategoryID string          `json:"consumerCategoryId"`
	Kind               ProductKind     `json:"kind"`
	Days               int             `json:"days"`
	Net                decimal.Decimal `json:"net"`
	Tax                decimal.Decimal `json:"tax"`
	Gross              decimal.Decimal `json:"gross"`
	InsuranceGross     decimal.Decimal `json:"insuranceGross"`
}

// CalculatedPrice is the itemized and cumulative pricing snapshot stored on
// the order when the wizard leaves price review.
type CalculatedPrice struct {
	Items           []PriceItem     `json:"items"`
	CumulativeNet   decimal.Decimal `json:"cumulativeNet"`
	CumulativeTax   decimal.Decimal `json:"cumulativeTax"`
	CumulativeGross decimal.Decimal `json:"cumulativeGross"`
}
