package viewmodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homescope/server/internal/models"
	"homescope/server/internal/sales"
)

func mustPostcode(t *testing.T, raw string) models.PostcodeQuery {
	t.Helper()
	postcode, err := models.ParsePostcode(raw)
	require.NoError(t, err)
	return postcode
}

func fullResult(t *testing.T) *models.AggregationResult {
	result := models.NewAggregationResult(mustPostcode(t, "LS1 4AP"))
	result.Geo = &models.GeoCodes{Latitude: 53.796, Longitude: -1.548, LSOA: "E01011364", LAD: "E08000035", Locality: "Leeds"}
	result.Transactions = []models.SaleTransaction{
		{ID: "t2", Date: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), Price: 242000, Town: "Leeds"},
		{ID: "t1", Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Price: 200000, Town: "Leeds"},
	}
	result.Growth = sales.ComputeGrowth(result.Transactions)
	result.Demographics = map[string]models.DemographicTopic{
		"Sex": {Observations: map[string][]models.DemographicObservation{
			"E01011364": {{Label: "Male", Value: 600, Percentage: 40}},
		}},
	}
	result.Listings = []models.ListingRecord{
		{ID: "a", Price: "£350,000", Address: "1 High St", Bedrooms: "3", Bathrooms: models.NotAvailable,
			SquareFootage: "", PropertyType: "Terraced", Latitude: "53.959", Longitude: "-1.081",
			DetailURL: "https://example.com/a", Source: "rightmove"},
	}
	result.RecordSource(models.SourceGeo, "")
	result.RecordSource(models.SourceSales, "")
	result.RecordSource(models.SourceDemographics, "")
	result.RecordSource(models.SourceListings, "")
	return result
}

func TestMerge_FullResult(t *testing.T) {
	vm := Merge(fullResult(t))

	assert.Equal(t, "area-LS14AP", vm.ID)
	assert.Equal(t, "Area Overview: LS1 4AP", vm.Title)
	assert.Equal(t, "Leeds", vm.Location)
	assert.Equal(t, "LS1 4AP", vm.Postcode)
	require.NotNil(t, vm.Coordinates)
	assert.InDelta(t, 53.796, vm.Coordinates[0], 1e-9)

	assert.Equal(t, "£221,000", vm.AveragePrice)
	assert.Equal(t, "21.0% over 2.0 years", vm.Growth)
	assert.Len(t, vm.TransactionHistory, 2)
	assert.NotNil(t, vm.Heatmap)
	assert.Contains(t, vm.Demographics, "Sex")
	assert.Empty(t, vm.SourceWarnings)
	assert.False(t, vm.RunFailed)

	require.Len(t, vm.Listings, 1)
	listing := vm.Listings[0]
	assert.Equal(t, "£350,000", listing.Price)
	assert.Equal(t, NoResult, listing.Bathrooms, "N/A becomes the display placeholder")
	assert.Equal(t, NoResult, listing.SquareFootage, "empty becomes the display placeholder")
	assert.Equal(t, "https://example.com/a", listing.DetailURL)
	require.NotNil(t, listing.Coordinates)
	assert.InDelta(t, 53.959, listing.Coordinates[0], 1e-9)
}

func TestMerge_IsIdempotent(t *testing.T) {
	result := fullResult(t)
	first := Merge(result)
	second := Merge(result)
	assert.Equal(t, first, second, "merging the same result twice must yield identical output")
}

func TestMerge_EmptyResultDegradesToPlaceholders(t *testing.T) {
	result := models.NewAggregationResult(mustPostcode(t, "LS1 4AP"))
	vm := Merge(result)

	assert.Equal(t, NoResult, vm.AveragePrice)
	assert.Equal(t, "Not enough data", vm.Growth)
	assert.Equal(t, "Not enough data", vm.Annualized)
	assert.Equal(t, "LS1 4AP", vm.Location, "postcode is the last-resort location name")
	assert.Nil(t, vm.Coordinates)
	assert.Nil(t, vm.Heatmap)
	assert.Empty(t, vm.Listings)
	assert.False(t, vm.RunFailed)
}

func TestMerge_LocationFallsBackToTransactionTown(t *testing.T) {
	result := models.NewAggregationResult(mustPostcode(t, "LS1 4AP"))
	result.Transactions = []models.SaleTransaction{
		{ID: "t1", Date: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), Price: 150000, Town: "Leeds"},
	}
	vm := Merge(result)
	assert.Equal(t, "Leeds", vm.Location)
}

func TestMerge_InvalidListingCoordinatesAreOmitted(t *testing.T) {
	result := models.NewAggregationResult(mustPostcode(t, "LS1 4AP"))
	result.Listings = []models.ListingRecord{
		{ID: "a", Price: "£1", Address: "x", Latitude: models.NotAvailable, Longitude: models.NotAvailable, Source: "rightmove"},
	}
	vm := Merge(result)
	require.Len(t, vm.Listings, 1)
	assert.Nil(t, vm.Listings[0].Coordinates)
	assert.Equal(t, "£1", vm.Listings[0].Price, "the rest of the card is unaffected")
}

func TestMerge_FailedSourcesBecomeWarnings(t *testing.T) {
	result := models.NewAggregationResult(mustPostcode(t, "LS1 4AP"))
	result.Transactions = []models.SaleTransaction{
		{ID: "t1", Date: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), Price: 150000},
	}
	result.RecordSource(models.SourceSales, "")
	result.RecordSource(models.SourceDemographics, "census source unavailable")
	result.RecordSource(models.SourceListings, "browser crashed")

	vm := Merge(result)
	assert.False(t, vm.RunFailed)
	assert.Equal(t, []string{
		models.SourceDemographics + ": census source unavailable",
		models.SourceListings + ": browser crashed",
	}, vm.SourceWarnings)
	assert.Empty(t, vm.FailureMessage)
}

func TestMerge_WholeRunFailureIsFlagged(t *testing.T) {
	result := models.NewAggregationResult(mustPostcode(t, "LS1 4AP"))
	result.RecordSource(models.SourceGeo, "postcode not found")
	result.RecordSource(models.SourceSales, "lookup timeout")
	result.RecordSource(models.SourceDemographics, "geography unresolved")
	result.RecordSource(models.SourceListings, "browser crashed")

	vm := Merge(result)
	assert.True(t, vm.RunFailed)
	assert.NotEmpty(t, vm.FailureMessage)
	assert.Contains(t, vm.FailureMessage, "browser crashed")
}

func TestFormatThousands(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{221000, "221,000"},
		{1234567, "1,234,567"},
		{-4500, "-4,500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatThousands(tt.in))
	}
}
