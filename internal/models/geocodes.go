package models

// GeoCodes holds the geographic identifiers resolved for a postcode:
// coordinates for map centering plus the statistical area codes needed by the
// census data source. Area codes may be absent while coordinates are present;
// demographics are only possible when both codes resolved.
type GeoCodes struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	LSOA      string  `json:"lsoa_gss"`
	LAD       string  `json:"lad_gss"`
	Locality  string  `json:"locality,omitempty"`
}

// HasAreaCodes reports whether both statistical geography codes resolved.
func (g GeoCodes) HasAreaCodes() bool {
	return g.LSOA != "" && g.LAD != ""
}
