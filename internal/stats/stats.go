// Package stats computes the revenue dashboard over paid, provisioned
// orders. Everything is recomputed in full per request; the query feeding
// it is date-bounded, so the row set stays small.
package stats

import (
	"context"
	"sort"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mtech-resorts/cashdesk/models"
)

type Source interface {
	OrdersForStatistics(ctx context.Context, from, to string, includeTest bool) ([]models.Order, error)
}

type Aggregator struct {
	Source Source
	Logger *zap.SugaredLogger
}

func NewAggregator(source Source, logger *zap.SugaredLogger) *Aggregator {
	return &Aggregator{Source: source, Logger: logger}
}

func (a *Aggregator) Compute(ctx context.Context, from, to string, includeTest bool) (*models.Statistics, error) {
	orders, err := a.Source.OrdersForStatistics(ctx, from, to, includeTest)
	if err != nil {
		return nil, err
	}

	stats := &models.Statistics{
		PhoneCountries:    make(map[string]int),
		RevenueByProduct:  make(map[string]decimal.Decimal),
		RevenueByCategory: make(map[string]decimal.Decimal),
	}
	buckets := make(map[string]*models.ChannelDay)

	for _, order := range orders {
		channel := CleanChannel(order.SalesChannel)
		key := order.StartDate + "|" + channel
		bucket, ok := buckets[key]
		if !ok {
			bucket = &models.ChannelDay{Date: order.StartDate, Channel: channel}
			buckets[key] = bucket
		}
		bucket.Revenue = bucket.Revenue.Add(order.Revenue())
		bucket.OrderCount++
		bucket.LifepassCount += len(order.Devices)

		if order.Price != nil {
			for _, item := range order.Price.Items {
				stats.RevenueByProduct[item.ProductID] = stats.RevenueByProduct[item.ProductID].Add(item.Gross)
				stats.RevenueByCategory[item.ConsumerCategoryID] = stats.RevenueByCategory[item.ConsumerCategoryID].Add(item.Gross)

				stats.Split.Insurance = stats.Split.Insurance.Add(item.InsuranceGross)
				base := item.Net.Add(item.Tax)
				switch item.Kind {
				case models.ProductLifepassRental:
					stats.Split.LifepassRental = stats.Split.LifepassRental.Add(base)
					bucket.RentalDays += item.Days
				case models.ProductSkiTicket:
					stats.Split.SkiTicket = stats.Split.SkiTicket.Add(base)
				}
			}
		}

		if country := phoneCountry(order.ClientPhone); country != "" {
			stats.PhoneCountries[country]++
		}
	}

	for _, bucket := range buckets {
		stats.ChannelDays = append(stats.ChannelDays, *bucket)
	}
	sort.Slice(stats.ChannelDays, func(i, j int) bool {
		if stats.ChannelDays[i].Date != stats.ChannelDays[j].Date {
			return stats.ChannelDays[i].Date < stats.ChannelDays[j].Date
		}
		return stats.ChannelDays[i].Channel < stats.ChannelDays[j].Channel
	})
	return stats, nil
}

// CleanChannel normalizes the free-form sales channel names the desks type
// in: surrounding and doubled whitespace goes, case folds to lower.
func CleanChannel(raw string) string {
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.Join(fields, " ")
}

func phoneCountry(phone string) string {
	if phone == "" {
		return ""
	}
	parsed, err := phonenumbers.Parse(phone, "")
	if err != nil {
		return "unknown"
	}
	region := phonenumbers.GetRegionCodeForNumber(parsed)
	if region == "" || region == "ZZ" {
		return "unknown"
	}
	return region
}
