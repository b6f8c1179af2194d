package models

import "github.com/shopspring/decimal"

// ChannelDay is revenue and volume for one (date, sales channel) bucket.
type ChannelDay struct {
	Date          string          `json:"date"`
	Channel       string          `json:"channel"`
	Revenue       decimal.Decimal `json:"revenue"`
	OrderCount    int             `json:"orderCount"`
	LifepassCount int             `json:"lifepassCount"`
	RentalDays    int             `json:"rentalDays"`
}

// RevenueSplit is the three-way split across the sellable kinds.
type RevenueSplit struct {
	Insurance      decimal.Decimal `json:"insurance"`
	LifepassRental decimal.Decimal `json:"lifepassRental"`
	SkiTicket      decimal.Decimal `json:"skiTicket"`
}

// Statistics is the full dashboard payload, recomputed per request.
type Statistics struct {
	ChannelDays       []ChannelDay               `json:"channelDays"`
	PhoneCountries    map[string]int             `json:"phoneCountries"`
	RevenueByProduct  map[string]decimal.Decimal `json:"revenueByProduct"`
	RevenueByCategory map[string]decimal.Decimal `json:"revenueByCategory"`
	Split             RevenueSplit               `json:"split"`
}
