package sales

import (
	"math"
	"sort"

	"homescope/server/internal/models"
)

const hoursPerYear = 24 * 365.25

// ComputeGrowth derives the price growth metric from a transaction set. It
// reports the insufficient-data sentinel when fewer than two transactions are
// available or when the oldest price would produce an undefined ratio.
func ComputeGrowth(transactions []models.SaleTransaction) models.PriceGrowthMetric {
	if len(transactions) < 2 {
		return models.PriceGrowthMetric{Insufficient: true}
	}

	ordered := make([]models.SaleTransaction, len(transactions))
	copy(ordered, transactions)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	oldest := ordered[0]
	newest := ordered[len(ordered)-1]
	if oldest.Price <= 0 {
		return models.PriceGrowthMetric{Insufficient: true}
	}

	minPrice, maxPrice := ordered[0].Price, ordered[0].Price
	for _, t := range ordered[1:] {
		if t.Price < minPrice {
			minPrice = t.Price
		}
		if t.Price > maxPrice {
			maxPrice = t.Price
		}
	}

	percentChange := float64(newest.Price-oldest.Price) / float64(oldest.Price) * 100
	years := newest.Date.Sub(oldest.Date).Hours() / hoursPerYear

	annualized := 0.0
	if years > 0 {
		annualized = (math.Pow(float64(newest.Price)/float64(oldest.Price), 1/years) - 1) * 100
	}

	return models.PriceGrowthMetric{
		MinPrice:         minPrice,
		MaxPrice:         maxPrice,
		PercentChange:    percentChange,
		Years:            years,
		AnnualizedReturn: annualized,
	}
}

// AveragePrice returns the mean sale price, or 0 for an empty set.
func AveragePrice(transactions []models.SaleTransaction) float64 {
	if len(transactions) == 0 {
		return 0
	}
	var total int64
	for _, t := range transactions {
		total += t.Price
	}
	return float64(total) / float64(len(transactions))
}
