package aggregator

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"homescope/server/internal/listings"
	"homescope/server/internal/models"
	"homescope/server/internal/sales"
)

// State is the coordinator's per-run lifecycle state.
type State string

const (
	StateIdle           State = "idle"
	StateGeoResolving   State = "geo_resolving"
	StateSourcesRunning State = "sources_running"
	StateDraining       State = "draining"
	StateComplete       State = "complete"
	StateCancelled      State = "cancelled"
)

// EventKind discriminates coordinator events on their way to the transport.
type EventKind string

const (
	// EventStatus is a lifecycle milestone ("initialized", "no_results",
	// per-source completion and failure notes).
	EventStatus EventKind = "status"
	// EventListing carries one live listing as it arrives from the scraper.
	EventListing EventKind = "listing"
	// EventError is terminal: the whole run failed.
	EventError EventKind = "error"
	// EventComplete is terminal: all sources drained, result finalized.
	EventComplete EventKind = "complete"
)

// Lifecycle status values emitted as EventStatus.
const (
	StatusInitialized        = "initialized"
	StatusGeocoded           = "geocoded"
	StatusGeocodingFailed    = "geocoding_failed"
	StatusSalesComplete      = "sales_complete"
	StatusSalesFailed        = "sales_failed"
	StatusDemographicsDone   = "demographics_complete"
	StatusDemographicsFailed = "demographics_failed"
	StatusNoResults          = "no_results"
)

// Event is one increment of a run's output stream.
type Event struct {
	Kind    EventKind
	Status  string
	Listing *models.ListingRecord
	Message string
}

// GeoResolver resolves a postcode to geographic identifiers.
type GeoResolver interface {
	Resolve(ctx context.Context, postcode models.PostcodeQuery) (models.GeoCodes, error)
}

// SalesSource fetches historical sale transactions.
type SalesSource interface {
	Fetch(ctx context.Context, postcode models.PostcodeQuery) ([]models.SaleTransaction, error)
}

// DemographicsSource fetches the census topic map for a resolved geography.
type DemographicsSource interface {
	FetchAll(ctx context.Context, geo *models.GeoCodes) (map[string]models.DemographicTopic, error)
}

// ListingsSource streams live listings incrementally.
type ListingsSource interface {
	Stream(ctx context.Context, postcode models.PostcodeQuery) <-chan listings.Event
}

// Coordinator fans out one query to every source concurrently, streams
// partial results as they arrive, and merges them into one AggregationResult.
// A source's failure never blanks out the others' data.
type Coordinator struct {
	logger       *logrus.Logger
	geo          GeoResolver
	sales        SalesSource
	demographics DemographicsSource
	listings     ListingsSource
}

// NewCoordinator wires the coordinator to its source adapters.
func NewCoordinator(logger *logrus.Logger, geo GeoResolver, salesSrc SalesSource, demo DemographicsSource, listingsSrc ListingsSource) *Coordinator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Coordinator{
		logger:       logger,
		geo:          geo,
		sales:        salesSrc,
		demographics: demo,
		listings:     listingsSrc,
	}
}

// Run is one live aggregation. Events is closed after the terminal event;
// Result is valid once Events has closed.
type Run struct {
	Events <-chan Event

	cancel context.CancelFunc

	mu     sync.Mutex
	state  State
	result *models.AggregationResult
}

// State returns the run's current lifecycle state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Result returns the accumulated result. It is only safe to read after the
// Events channel has closed.
func (r *Run) Result() *models.AggregationResult {
	return r.result
}

// Cancel aborts the run: the scraper child is terminated and in-flight HTTP
// requests are abandoned. Safe to call more than once.
func (r *Run) Cancel() {
	r.cancel()
}

func (r *Run) setState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateComplete || r.state == StateCancelled {
		return
	}
	r.state = s
}

// sourceMsg fans source outcomes into the single run loop, which is the only
// goroutine that mutates the accumulator.
type sourceMsg struct {
	source       string
	transactions []models.SaleTransaction
	topics       map[string]models.DemographicTopic
	listingEvent *listings.Event
	err          error
}

// Start begins an aggregation run for a validated postcode. Cancellation of
// ctx (client disconnect) aborts the run.
func (c *Coordinator) Start(ctx context.Context, postcode models.PostcodeQuery) *Run {
	ctx, cancel := context.WithCancel(ctx)
	events := make(chan Event)

	run := &Run{
		Events: events,
		cancel: cancel,
		state:  StateIdle,
		result: models.NewAggregationResult(postcode),
	}

	go c.loop(ctx, run, events)
	return run
}

func (c *Coordinator) loop(ctx context.Context, run *Run, events chan<- Event) {
	defer close(events)
	defer run.cancel()

	result := run.result

	if !emit(ctx, events, Event{Kind: EventStatus, Status: StatusInitialized}) {
		run.setState(StateCancelled)
		return
	}

	// Geocoding failure never blocks the other sources; it only disables
	// demographics and degrades map centering.
	run.setState(StateGeoResolving)
	var geo *models.GeoCodes
	resolved, err := c.geo.Resolve(ctx, result.Postcode)
	if ctx.Err() != nil {
		run.setState(StateCancelled)
		return
	}
	if err != nil {
		c.logger.WithError(err).Warn("Geocoding failed, continuing without geography")
		result.RecordSource(models.SourceGeo, err.Error())
		if !emit(ctx, events, Event{Kind: EventStatus, Status: StatusGeocodingFailed, Message: err.Error()}) {
			run.setState(StateCancelled)
			return
		}
	} else {
		geo = &resolved
		result.Geo = geo
		result.RecordSource(models.SourceGeo, "")
		if !emit(ctx, events, Event{Kind: EventStatus, Status: StatusGeocoded}) {
			run.setState(StateCancelled)
			return
		}
	}

	run.setState(StateSourcesRunning)
	msgs := make(chan sourceMsg, 8)

	go func() {
		transactions, err := c.sales.Fetch(ctx, result.Postcode)
		send(ctx, msgs, sourceMsg{source: models.SourceSales, transactions: transactions, err: err})
	}()

	go func() {
		topics, err := c.demographics.FetchAll(ctx, geo)
		send(ctx, msgs, sourceMsg{source: models.SourceDemographics, topics: topics, err: err})
	}()

	go func() {
		for event := range c.listings.Stream(ctx, result.Postcode) {
			event := event
			if !send(ctx, msgs, sourceMsg{source: models.SourceListings, listingEvent: &event}) {
				return
			}
		}
	}()

	// Sales and demographics produce exactly one terminal message each; the
	// listings stream ends with its own terminal event. The loop must keep
	// forwarding individual listings while the slower sources are still
	// outstanding.
	pending := map[string]bool{
		models.SourceSales:        true,
		models.SourceDemographics: true,
		models.SourceListings:     true,
	}

	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			run.setState(StateCancelled)
			return
		case msg := <-msgs:
			if !c.apply(ctx, run, events, msg, pending) {
				run.setState(StateCancelled)
				return
			}
		}
	}

	run.setState(StateDraining)
	c.finalize(ctx, run, events)
}

// apply folds one source message into the accumulator and forwards the
// matching event. Returns false when the run was cancelled mid-emit.
func (c *Coordinator) apply(ctx context.Context, run *Run, events chan<- Event, msg sourceMsg, pending map[string]bool) bool {
	result := run.result

	switch msg.source {
	case models.SourceSales:
		delete(pending, models.SourceSales)
		if msg.err != nil {
			result.RecordSource(models.SourceSales, msg.err.Error())
			return emit(ctx, events, Event{Kind: EventStatus, Status: StatusSalesFailed, Message: msg.err.Error()})
		}
		result.Transactions = msg.transactions
		result.Growth = sales.ComputeGrowth(msg.transactions)
		result.RecordSource(models.SourceSales, "")
		return emit(ctx, events, Event{Kind: EventStatus, Status: StatusSalesComplete})

	case models.SourceDemographics:
		delete(pending, models.SourceDemographics)
		if msg.err != nil {
			result.RecordSource(models.SourceDemographics, msg.err.Error())
			return emit(ctx, events, Event{Kind: EventStatus, Status: StatusDemographicsFailed, Message: msg.err.Error()})
		}
		result.Demographics = msg.topics
		result.RecordSource(models.SourceDemographics, "")
		return emit(ctx, events, Event{Kind: EventStatus, Status: StatusDemographicsDone})

	case models.SourceListings:
		event := msg.listingEvent
		switch event.Kind {
		case listings.EventListing:
			result.Listings = append(result.Listings, *event.Listing)
			return emit(ctx, events, Event{Kind: EventListing, Listing: event.Listing})
		case listings.EventStatus:
			return emit(ctx, events, Event{Kind: EventStatus, Status: event.Status})
		case listings.EventComplete:
			delete(pending, models.SourceListings)
			result.RecordSource(models.SourceListings, "")
		case listings.EventError:
			delete(pending, models.SourceListings)
			result.RecordSource(models.SourceListings, event.Message)
		}
	}
	return true
}

// finalize classifies the drained run and emits the terminal event. Only a
// run where every source yielded zero usable data and at least one errored is
// presented as a whole-run failure.
func (c *Coordinator) finalize(ctx context.Context, run *Run, events chan<- Event) {
	result := run.result

	if result.WholeRunFailed() {
		c.logger.WithField("postcode", result.Postcode.String()).Warn("Aggregation produced no usable data")
		emit(ctx, events, Event{Kind: EventError, Message: result.FailureMessage()})
		run.setState(StateComplete)
		return
	}

	if !result.HasUsableData() {
		if !emit(ctx, events, Event{Kind: EventStatus, Status: StatusNoResults}) {
			run.setState(StateCancelled)
			return
		}
	}

	emit(ctx, events, Event{Kind: EventComplete})
	run.setState(StateComplete)
}

func emit(ctx context.Context, events chan<- Event, event Event) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func send(ctx context.Context, msgs chan<- sourceMsg, msg sourceMsg) bool {
	select {
	case msgs <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}
