package models

import "strconv"

// NotAvailable is the scraper's placeholder for a field it could not extract.
// It is a valid value, not an error.
const NotAvailable = "N/A"

// ListingRecord is one live for-sale property as produced by the scraper, one
// JSON line at a time. Every field is independently optional; records are
// appended to the run's sequence in arrival order and never mutated.
type ListingRecord struct {
	ID            string `json:"id"`
	Price         string `json:"price"`
	Address       string `json:"address"`
	Description   string `json:"description,omitempty"`
	Bedrooms      string `json:"bedrooms"`
	Bathrooms     string `json:"bathrooms"`
	SquareFootage string `json:"square_footage"`
	PropertyType  string `json:"property_type"`
	Latitude      string `json:"latitude"`
	Longitude     string `json:"longitude"`
	DetailURL     string `json:"detail_url"`
	Source        string `json:"source"`
}

// Coordinates parses the listing's coordinate fields. ok is false when either
// is missing or unparseable; callers render such listings without a marker.
func (l ListingRecord) Coordinates() (lat, lng float64, ok bool) {
	lat, errLat := strconv.ParseFloat(l.Latitude, 64)
	lng, errLng := strconv.ParseFloat(l.Longitude, 64)
	if errLat != nil || errLng != nil {
		return 0, 0, false
	}
	return lat, lng, true
}
