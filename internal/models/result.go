package models

import "strings"

// Source names used in per-source status records.
const (
	SourceGeo          = "geocoding"
	SourceSales        = "sales"
	SourceDemographics = "demographics"
	SourceListings     = "listings"
)

// SourceState records one source's terminal outcome within a run.
type SourceState struct {
	Completed bool   `json:"completed"`
	Error     string `json:"error,omitempty"`
}

// AggregationResult is the per-query umbrella accumulated over one run. The
// presence of data from one source is never contingent on another source's
// success; each source's outcome is recorded separately rather than blended
// into a single error string.
type AggregationResult struct {
	Postcode     PostcodeQuery
	Geo          *GeoCodes
	Transactions []SaleTransaction
	Growth       PriceGrowthMetric

	// Demographics is nil when the fetch was never attempted (geography
	// unresolved) and non-nil, possibly with per-topic errors, otherwise.
	Demographics map[string]DemographicTopic

	Listings []ListingRecord
	Sources  map[string]SourceState
}

// NewAggregationResult creates the accumulator for one query.
func NewAggregationResult(postcode PostcodeQuery) *AggregationResult {
	return &AggregationResult{
		Postcode: postcode,
		Sources:  make(map[string]SourceState),
	}
}

// RecordSource marks a source terminal with an optional error message.
func (r *AggregationResult) RecordSource(name, errMsg string) {
	r.Sources[name] = SourceState{Completed: true, Error: errMsg}
}

// HasUsableData reports whether any source produced at least one data point.
func (r *AggregationResult) HasUsableData() bool {
	if len(r.Transactions) > 0 || len(r.Listings) > 0 {
		return true
	}
	for _, topic := range r.Demographics {
		if topic.HasData() {
			return true
		}
	}
	return false
}

// WholeRunFailed reports the run-level error state: every source yielded zero
// usable data and at least one of them reported an error. Partial results are
// never classified as a whole-run failure.
func (r *AggregationResult) WholeRunFailed() bool {
	if r.HasUsableData() {
		return false
	}
	for _, state := range r.Sources {
		if state.Error != "" {
			return true
		}
	}
	return false
}

// FailureMessage combines each failed source's reason into one consolidated,
// deduplicated message. Order follows the fixed source order so the output is
// stable across runs.
func (r *AggregationResult) FailureMessage() string {
	seen := make(map[string]bool)
	var parts []string
	for _, name := range []string{SourceGeo, SourceSales, SourceDemographics, SourceListings} {
		state, ok := r.Sources[name]
		if !ok || state.Error == "" || seen[state.Error] {
			continue
		}
		seen[state.Error] = true
		parts = append(parts, name+": "+state.Error)
	}
	return strings.Join(parts, "; ")
}
