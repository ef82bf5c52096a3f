package models

// DemographicObservation is one category row within a topic for a single
// geography. Percentage is derived from the topic's total row when one was
// identified in the same geography slice, and 0 otherwise.
type DemographicObservation struct {
	Label      string  `json:"label"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// DemographicTopic holds one statistical category (e.g. "Age", "Tenure") for
// a query. A topic whose fetch failed carries Error and an empty observation
// map; a topic that fetched fine but returned nothing usable carries neither.
// The two states stay distinguishable downstream.
type DemographicTopic struct {
	Error string `json:"error,omitempty"`

	// Observations is keyed by geography code (LSOA and LAD level).
	Observations map[string][]DemographicObservation `json:"observations"`

	// AreaNames maps geography codes to their human-readable descriptions.
	AreaNames map[string]string `json:"area_names,omitempty"`
}

// Failed reports whether the topic's fetch was attempted and failed.
func (t DemographicTopic) Failed() bool {
	return t.Error != ""
}

// HasData reports whether at least one usable observation was returned.
func (t DemographicTopic) HasData() bool {
	for _, obs := range t.Observations {
		if len(obs) > 0 {
			return true
		}
	}
	return false
}
