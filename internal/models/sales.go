package models

import (
	"fmt"
	"time"
)

// SaleTransaction is one historical sale from the price-paid dataset.
// Transactions with unparseable dates or non-positive prices never reach this
// type; the sales adapter drops them during mapping.
type SaleTransaction struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	Price        int64     `json:"price"`
	Address      string    `json:"address"`
	Town         string    `json:"town"`
	Postcode     string    `json:"postcode"`
	PropertyType string    `json:"property_type"`
	NewBuild     bool      `json:"new_build"`
}

// PriceGrowthMetric is derived from a set of two or more valid transactions.
// Insufficient reports the "not enough data" sentinel state; the numeric
// fields are only meaningful when it is false.
type PriceGrowthMetric struct {
	MinPrice         int64   `json:"min_price"`
	MaxPrice         int64   `json:"max_price"`
	PercentChange    float64 `json:"percent_change"`
	Years            float64 `json:"years"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Insufficient     bool    `json:"insufficient"`
}

const notEnoughData = "Not enough data"

// GrowthLabel renders the total growth as display text, e.g.
// "21.0% over 2.0 years", or the sentinel when fewer than two valid
// transactions were available.
func (m PriceGrowthMetric) GrowthLabel() string {
	if m.Insufficient {
		return notEnoughData
	}
	return fmt.Sprintf("%.1f%% over %.1f years", m.PercentChange, m.Years)
}

// AnnualizedLabel renders the compound annual return as display text, e.g.
// "10.0% per year".
func (m PriceGrowthMetric) AnnualizedLabel() string {
	if m.Insufficient {
		return notEnoughData
	}
	return fmt.Sprintf("%.1f%% per year", m.AnnualizedReturn)
}
