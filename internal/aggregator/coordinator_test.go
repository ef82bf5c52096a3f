package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homescope/server/internal/listings"
	"homescope/server/internal/models"
)

type fakeGeo struct {
	geo models.GeoCodes
	err error
}

func (f *fakeGeo) Resolve(ctx context.Context, postcode models.PostcodeQuery) (models.GeoCodes, error) {
	return f.geo, f.err
}

type fakeSales struct {
	transactions []models.SaleTransaction
	err          error
}

func (f *fakeSales) Fetch(ctx context.Context, postcode models.PostcodeQuery) ([]models.SaleTransaction, error) {
	return f.transactions, f.err
}

type fakeDemographics struct {
	topics map[string]models.DemographicTopic
	err    error

	gotGeo *models.GeoCodes
}

func (f *fakeDemographics) FetchAll(ctx context.Context, geo *models.GeoCodes) (map[string]models.DemographicTopic, error) {
	f.gotGeo = geo
	return f.topics, f.err
}

type fakeListings struct {
	events []listings.Event
	block  bool
}

func (f *fakeListings) Stream(ctx context.Context, postcode models.PostcodeQuery) <-chan listings.Event {
	out := make(chan listings.Event)
	go func() {
		defer close(out)
		for _, event := range f.events {
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
		if f.block {
			<-ctx.Done()
		}
	}()
	return out
}

func listingEvent(id string) listings.Event {
	return listings.Event{Kind: listings.EventListing, Listing: &models.ListingRecord{ID: id, Source: "rightmove"}}
}

func completeEvent() listings.Event {
	return listings.Event{Kind: listings.EventComplete, Status: listings.StatusComplete}
}

func startRun(t *testing.T, geo GeoResolver, salesSrc SalesSource, demo DemographicsSource, listingsSrc ListingsSource) *Run {
	t.Helper()
	coordinator := NewCoordinator(nil, geo, salesSrc, demo, listingsSrc)
	postcode, err := models.ParsePostcode("LS1 4AP")
	require.NoError(t, err)
	return coordinator.Start(context.Background(), postcode)
}

func drain(t *testing.T, run *Run) []Event {
	t.Helper()
	var got []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-run.Events:
			if !ok {
				return got
			}
			got = append(got, event)
		case <-timeout:
			t.Fatal("timed out waiting for the run to finish")
		}
	}
}

func statuses(events []Event) []string {
	var out []string
	for _, e := range events {
		if e.Kind == EventStatus {
			out = append(out, e.Status)
		}
	}
	return out
}

func listingIDs(events []Event) []string {
	var out []string
	for _, e := range events {
		if e.Kind == EventListing {
			out = append(out, e.Listing.ID)
		}
	}
	return out
}

func TestRun_PartialFailureKeepsOtherSources(t *testing.T) {
	transactions := []models.SaleTransaction{
		{ID: "t1", Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Price: 200000},
		{ID: "t2", Date: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), Price: 242000},
	}
	listingsSrc := &fakeListings{events: []listings.Event{
		listingEvent("a"), listingEvent("b"), listingEvent("c"),
		listingEvent("d"), listingEvent("e"),
		completeEvent(),
	}}

	run := startRun(t,
		&fakeGeo{geo: models.GeoCodes{Latitude: 53.79, Longitude: -1.54, LSOA: "E01011364", LAD: "E08000035"}},
		&fakeSales{transactions: transactions},
		&fakeDemographics{err: errors.New("census source unavailable")},
		listingsSrc,
	)
	events := drain(t, run)

	// The demographics failure is annotated, never fatal: listings and sales
	// data survive and the run completes normally.
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, listingIDs(events))
	assert.Equal(t, EventComplete, events[len(events)-1].Kind)

	got := statuses(events)
	assert.Equal(t, StatusInitialized, got[0])
	assert.Contains(t, got, StatusGeocoded)
	assert.Contains(t, got, StatusSalesComplete)
	assert.Contains(t, got, StatusDemographicsFailed)
	assert.NotContains(t, got, StatusNoResults)

	result := run.Result()
	assert.False(t, result.WholeRunFailed())
	assert.Len(t, result.Transactions, 2)
	require.NotNil(t, result.Growth)
	assert.False(t, result.Growth.Insufficient)
	assert.Len(t, result.Listings, 5)
	assert.Equal(t, "census source unavailable", result.Sources[models.SourceDemographics].Error)
	assert.Empty(t, result.Sources[models.SourceSales].Error)
	assert.Equal(t, StateComplete, run.State())
}

func TestRun_GeoFailureDisablesDemographicsOnly(t *testing.T) {
	demo := &fakeDemographics{err: errors.New("geography unresolved")}
	run := startRun(t,
		&fakeGeo{err: errors.New("postcode not found")},
		&fakeSales{transactions: []models.SaleTransaction{
			{ID: "t1", Date: time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), Price: 150000},
		}},
		demo,
		&fakeListings{events: []listings.Event{completeEvent()}},
	)
	events := drain(t, run)

	assert.Contains(t, statuses(events), StatusGeocodingFailed)
	assert.Equal(t, EventComplete, events[len(events)-1].Kind)
	assert.Nil(t, demo.gotGeo, "demographics must not receive geography after a geocoding failure")

	result := run.Result()
	assert.False(t, result.WholeRunFailed())
	assert.Equal(t, "postcode not found", result.Sources[models.SourceGeo].Error)
}

func TestRun_AllSourcesFailedIsTerminalError(t *testing.T) {
	run := startRun(t,
		&fakeGeo{err: errors.New("lookup timeout")},
		&fakeSales{err: errors.New("lookup timeout")},
		&fakeDemographics{err: errors.New("geography unresolved")},
		&fakeListings{events: []listings.Event{
			{Kind: listings.EventError, Message: "browser crashed"},
		}},
	)
	events := drain(t, run)

	terminal := events[len(events)-1]
	assert.Equal(t, EventError, terminal.Kind)
	assert.Contains(t, terminal.Message, "browser crashed")
	assert.Contains(t, terminal.Message, "geography unresolved")

	// No complete event follows the terminal error.
	for _, e := range events[:len(events)-1] {
		assert.NotEqual(t, EventComplete, e.Kind)
	}

	assert.True(t, run.Result().WholeRunFailed())
	assert.Equal(t, StateComplete, run.State())
}

func TestRun_EmptySourcesWithoutErrorsIsNoResults(t *testing.T) {
	run := startRun(t,
		&fakeGeo{geo: models.GeoCodes{Latitude: 53.79, Longitude: -1.54}},
		&fakeSales{},
		&fakeDemographics{topics: map[string]models.DemographicTopic{}},
		&fakeListings{events: []listings.Event{completeEvent()}},
	)
	events := drain(t, run)

	got := statuses(events)
	assert.Contains(t, got, StatusNoResults)
	assert.Equal(t, EventComplete, events[len(events)-1].Kind)
	assert.False(t, run.Result().WholeRunFailed())
}

func TestRun_StatusLinesFromScraperAreForwarded(t *testing.T) {
	run := startRun(t,
		&fakeGeo{geo: models.GeoCodes{Latitude: 53.79, Longitude: -1.54}},
		&fakeSales{},
		&fakeDemographics{topics: map[string]models.DemographicTopic{}},
		&fakeListings{events: []listings.Event{
			{Kind: listings.EventStatus, Status: "navigating"},
			listingEvent("a"),
			completeEvent(),
		}},
	)
	events := drain(t, run)

	assert.Contains(t, statuses(events), "navigating")
	assert.Equal(t, []string{"a"}, listingIDs(events))
}

func TestRun_CancelStopsTheRun(t *testing.T) {
	run := startRun(t,
		&fakeGeo{geo: models.GeoCodes{Latitude: 53.79, Longitude: -1.54}},
		&fakeSales{},
		&fakeDemographics{topics: map[string]models.DemographicTopic{}},
		&fakeListings{events: []listings.Event{listingEvent("a")}, block: true},
	)

	// Read until the first listing has arrived, proving the run is live.
	sawListing := false
	timeout := time.After(5 * time.Second)
	for !sawListing {
		select {
		case event, ok := <-run.Events:
			require.True(t, ok, "run ended before the first listing")
			if event.Kind == EventListing {
				sawListing = true
			}
		case <-timeout:
			t.Fatal("timed out waiting for the first listing")
		}
	}

	run.Cancel()
	run.Cancel() // idempotent

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-run.Events:
			if !ok {
				assert.Equal(t, StateCancelled, run.State())
				assert.Len(t, run.Result().Listings, 1)
				return
			}
		case <-deadline:
			t.Fatal("run did not stop after cancellation")
		}
	}
}
