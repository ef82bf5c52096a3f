package geometry

import (
	"hash/fnv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"homescope/server/internal/models"
)

// jitterRange spreads transaction points around the postcode centre. The
// price-paid dataset has no per-address coordinates, so points are clustered
// near the resolved centre with a deterministic per-transaction offset.
const jitterRange = 0.004

// Heatmap renders a transaction set as a GeoJSON feature collection of
// price-weighted points around the postcode centre. Intensity is scaled
// 0.1-1.0 within this set's price range.
func Heatmap(center models.GeoCodes, transactions []models.SaleTransaction) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if len(transactions) == 0 {
		return fc
	}

	minPrice, maxPrice := transactions[0].Price, transactions[0].Price
	for _, t := range transactions[1:] {
		if t.Price < minPrice {
			minPrice = t.Price
		}
		if t.Price > maxPrice {
			maxPrice = t.Price
		}
	}
	priceRange := maxPrice - minPrice

	for _, t := range transactions {
		intensity := 0.5
		if priceRange > 0 {
			intensity = 0.1 + 0.9*float64(t.Price-minPrice)/float64(priceRange)
		}

		latOffset, lngOffset := jitter(t.ID)
		point := orb.Point{center.Longitude + lngOffset, center.Latitude + latOffset}

		feature := geojson.NewFeature(point)
		feature.Properties["intensity"] = intensity
		feature.Properties["price"] = t.Price
		feature.Properties["transaction_id"] = t.ID
		fc.Append(feature)
	}

	return fc
}

// jitter derives a stable offset pair from the transaction id, so repeated
// renders of the same result place points identically.
func jitter(id string) (lat, lng float64) {
	h := fnv.New64a()
	h.Write([]byte(id))
	sum := h.Sum64()

	// Two 16-bit lanes mapped onto [-jitterRange/2, +jitterRange/2].
	latLane := float64(sum&0xFFFF)/0xFFFF - 0.5
	lngLane := float64((sum>>16)&0xFFFF)/0xFFFF - 0.5
	return latLane * jitterRange, lngLane * jitterRange
}
