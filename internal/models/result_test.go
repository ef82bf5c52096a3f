package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPostcode(t *testing.T, raw string) PostcodeQuery {
	t.Helper()
	postcode, err := ParsePostcode(raw)
	require.NoError(t, err)
	return postcode
}

func TestAggregationResult_PartialFailureIsNotWholeRunFailure(t *testing.T) {
	result := NewAggregationResult(mustPostcode(t, "SW1A 0AA"))
	result.Transactions = []SaleTransaction{
		{ID: "t1", Date: time.Now(), Price: 250000},
	}
	result.RecordSource(SourceSales, "")
	result.RecordSource(SourceDemographics, "all topics failed")
	result.RecordSource(SourceListings, "")

	assert.True(t, result.HasUsableData())
	assert.False(t, result.WholeRunFailed())
}

func TestAggregationResult_AllSourcesFailed(t *testing.T) {
	result := NewAggregationResult(mustPostcode(t, "SW1A 0AA"))
	result.RecordSource(SourceSales, "connection refused")
	result.RecordSource(SourceDemographics, "geography unresolved")
	result.RecordSource(SourceListings, "scraper exited abnormally")

	assert.False(t, result.HasUsableData())
	assert.True(t, result.WholeRunFailed())

	msg := result.FailureMessage()
	assert.Contains(t, msg, "sales: connection refused")
	assert.Contains(t, msg, "demographics: geography unresolved")
	assert.Contains(t, msg, "listings: scraper exited abnormally")
}

func TestAggregationResult_FailureMessageDeduplicates(t *testing.T) {
	result := NewAggregationResult(mustPostcode(t, "SW1A 0AA"))
	result.RecordSource(SourceSales, "timeout")
	result.RecordSource(SourceDemographics, "timeout")
	result.RecordSource(SourceListings, "scraper crashed")

	msg := result.FailureMessage()
	assert.Equal(t, 1, countOccurrences(msg, "timeout"))
	assert.Contains(t, msg, "scraper crashed")
}

func TestAggregationResult_EmptyButNoErrorsIsNotFailure(t *testing.T) {
	result := NewAggregationResult(mustPostcode(t, "SW1A 0AA"))
	result.RecordSource(SourceSales, "")
	result.RecordSource(SourceDemographics, "")
	result.RecordSource(SourceListings, "")

	assert.False(t, result.WholeRunFailed())
	assert.Equal(t, "", result.FailureMessage())
}

func TestDemographicTopic_FailureStatesAreDistinguishable(t *testing.T) {
	failed := DemographicTopic{Error: "upstream returned status 500", Observations: map[string][]DemographicObservation{}}
	empty := DemographicTopic{Observations: map[string][]DemographicObservation{}}

	assert.True(t, failed.Failed())
	assert.False(t, failed.HasData())
	assert.False(t, empty.Failed())
	assert.False(t, empty.HasData())
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}
