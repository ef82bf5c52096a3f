package viewmodel

import (
	"fmt"
	"math"

	"github.com/paulmach/orb/geojson"

	"homescope/server/internal/geometry"
	"homescope/server/internal/models"
	"homescope/server/internal/sales"
)

// NoResult is the display placeholder substituted for any field whose source
// produced nothing.
const NoResult = "No result"

// PropertyViewModel is one listing prepared for marker and card rendering.
type PropertyViewModel struct {
	ID            string      `json:"id"`
	Address       string      `json:"address"`
	Price         string      `json:"price"`
	Bedrooms      string      `json:"bedrooms"`
	Bathrooms     string      `json:"bathrooms"`
	SquareFootage string      `json:"square_footage"`
	PropertyType  string      `json:"property_type"`
	Coordinates   *[2]float64 `json:"coordinates,omitempty"`
	DetailURL     string      `json:"detail_url,omitempty"`
	Source        string      `json:"source"`
}

// AreaViewModel is the area overview assembled from one aggregation run.
type AreaViewModel struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Location     string      `json:"location"`
	Postcode     string      `json:"postcode"`
	Coordinates  *[2]float64 `json:"coordinates,omitempty"`
	AveragePrice string      `json:"average_price"`
	Growth       string      `json:"growth"`
	Annualized   string      `json:"annualized_return"`

	TransactionHistory []models.SaleTransaction `json:"transaction_history"`
	PriceGrowth        models.PriceGrowthMetric `json:"price_growth"`

	// Demographics is attached verbatim; presentation formats it.
	Demographics map[string]models.DemographicTopic `json:"demographics,omitempty"`

	Listings []PropertyViewModel `json:"listings"`

	Heatmap *geojson.FeatureCollection `json:"heatmap,omitempty"`

	// SourceWarnings lists each failed source with its reason, for display
	// as non-blocking annotations next to the partial results.
	SourceWarnings []string `json:"source_warnings,omitempty"`
	RunFailed      bool     `json:"run_failed"`
	FailureMessage string   `json:"failure_message,omitempty"`
}

// Merge combines an aggregation result into the area view model. It is a
// pure transform: no I/O, no retries, and malformed or missing input degrades
// to placeholders rather than errors. Merging the same result twice yields
// identical output.
func Merge(result *models.AggregationResult) AreaViewModel {
	if result == nil {
		return AreaViewModel{
			Title:        "Area Overview",
			Location:     NoResult,
			AveragePrice: NoResult,
			Growth:       NoResult,
			Annualized:   NoResult,
			Listings:     []PropertyViewModel{},
		}
	}

	// A run whose sales source never produced two valid transactions carries
	// a zero-value metric; surface the sentinel rather than zeros.
	growth := result.Growth
	if len(result.Transactions) < 2 {
		growth = models.PriceGrowthMetric{Insufficient: true}
	}

	postcode := result.Postcode.String()
	vm := AreaViewModel{
		ID:                 "area-" + result.Postcode.Compact(),
		Title:              "Area Overview: " + postcode,
		Location:           locationName(result),
		Postcode:           postcode,
		AveragePrice:       NoResult,
		Growth:             growth.GrowthLabel(),
		Annualized:         growth.AnnualizedLabel(),
		TransactionHistory: result.Transactions,
		PriceGrowth:        growth,
		Demographics:       result.Demographics,
		Listings:           listingViews(result.Listings),
		RunFailed:          result.WholeRunFailed(),
	}

	if result.Geo != nil {
		vm.Coordinates = &[2]float64{result.Geo.Latitude, result.Geo.Longitude}
		if len(result.Transactions) > 0 {
			vm.Heatmap = geometry.Heatmap(*result.Geo, result.Transactions)
		}
	}

	if avg := sales.AveragePrice(result.Transactions); avg > 0 {
		vm.AveragePrice = fmt.Sprintf("£%s", formatThousands(int64(math.Round(avg))))
	}

	for _, name := range []string{models.SourceGeo, models.SourceSales, models.SourceDemographics, models.SourceListings} {
		if state, ok := result.Sources[name]; ok && state.Error != "" {
			vm.SourceWarnings = append(vm.SourceWarnings, name+": "+state.Error)
		}
	}
	if vm.RunFailed {
		vm.FailureMessage = result.FailureMessage()
	}

	return vm
}

func locationName(result *models.AggregationResult) string {
	if result.Geo != nil && result.Geo.Locality != "" {
		return result.Geo.Locality
	}
	if len(result.Transactions) > 0 && result.Transactions[0].Town != "" {
		return result.Transactions[0].Town
	}
	return result.Postcode.String()
}

func listingViews(records []models.ListingRecord) []PropertyViewModel {
	views := make([]PropertyViewModel, 0, len(records))
	for _, record := range records {
		view := PropertyViewModel{
			ID:            orPlaceholder(record.ID),
			Address:       orPlaceholder(record.Address),
			Price:         orPlaceholder(record.Price),
			Bedrooms:      orPlaceholder(record.Bedrooms),
			Bathrooms:     orPlaceholder(record.Bathrooms),
			SquareFootage: orPlaceholder(record.SquareFootage),
			PropertyType:  orPlaceholder(record.PropertyType),
			Source:        orPlaceholder(record.Source),
		}
		if record.DetailURL != "" && record.DetailURL != models.NotAvailable {
			view.DetailURL = record.DetailURL
		}
		// Invalid or missing coordinates leave the marker out; they never
		// break the rest of the card.
		if lat, lng, ok := record.Coordinates(); ok {
			view.Coordinates = &[2]float64{lat, lng}
		}
		views = append(views, view)
	}
	return views
}

func orPlaceholder(value string) string {
	if value == "" || value == models.NotAvailable {
		return NoResult
	}
	return value
}

// formatThousands renders 1234567 as "1,234,567".
func formatThousands(n int64) string {
	if n < 0 {
		return "-" + formatThousands(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
