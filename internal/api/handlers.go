package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"homescope/server/internal/aggregator"
	"homescope/server/internal/demographics"
	"homescope/server/internal/geocoding"
	"homescope/server/internal/models"
	"homescope/server/internal/sales"
	"homescope/server/internal/viewmodel"
)

type Handler struct {
	logger       *logrus.Logger
	resolver     *geocoding.Resolver
	sales        *sales.Adapter
	demographics *demographics.Adapter
	coordinator  *aggregator.Coordinator
}

func NewHandler(logger *logrus.Logger, resolver *geocoding.Resolver, salesAdapter *sales.Adapter, demoAdapter *demographics.Adapter, coordinator *aggregator.Coordinator) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		logger:       logger,
		resolver:     resolver,
		sales:        salesAdapter,
		demographics: demoAdapter,
		coordinator:  coordinator,
	}
}

// postcodeParam validates the postcode query parameter before any upstream
// I/O. A malformed postcode is rejected here with 400.
func (h *Handler) postcodeParam(c *gin.Context) (models.PostcodeQuery, bool) {
	raw := c.Query("postcode")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Postcode query parameter is required."})
		return models.PostcodeQuery{}, false
	}
	postcode, err := models.ParsePostcode(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid UK postcode format provided."})
		return models.PostcodeQuery{}, false
	}
	return postcode, true
}

// GetSales proxies the price-paid dataset for one postcode, mirroring the
// upstream's status on failure.
func (h *Handler) GetSales(c *gin.Context) {
	postcode, ok := h.postcodeParam(c)
	if !ok {
		return
	}

	body, err := h.sales.FetchRaw(c.Request.Context(), postcode)
	if err != nil {
		var upstream *sales.UpstreamError
		switch {
		case errors.As(err, &upstream):
			c.JSON(upstream.StatusCode, gin.H{
				"error":   "Sales data source error",
				"details": upstream.Body,
			})
		case sales.IsTimeout(err):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "No response received from sales data source."})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to contact sales data source."})
		}
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}

// GetDemographics resolves the postcode's geography and fetches every census
// topic. Topics fail independently; only a fully failed fetch is an error
// status.
func (h *Handler) GetDemographics(c *gin.Context) {
	postcode, ok := h.postcodeParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	geo, err := h.resolver.Resolve(ctx, postcode)
	if err != nil || !geo.HasAreaCodes() {
		if err != nil {
			h.logger.WithError(err).WithField("postcode", postcode.String()).Warn("Geography resolution failed")
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Could not resolve geography for this postcode."})
		return
	}

	topics, err := h.demographics.FetchAll(ctx, &geo)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Could not resolve geography for this postcode."})
		return
	}

	fetchErrors := demographics.FetchErrors(topics)
	if len(topics) > 0 && len(fetchErrors) == len(topics) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":       "All demographic topic fetches failed.",
			"fetchErrors": fetchErrors,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"postcode":     postcode.String(),
		"geoCodes":     geo,
		"demographics": topics,
		"fetchErrors":  fetchErrors,
	})
}

// GetOverview runs a full blocking aggregation and returns the merged area
// view model.
func (h *Handler) GetOverview(c *gin.Context) {
	postcode, ok := h.postcodeParam(c)
	if !ok {
		return
	}

	run := h.coordinator.Start(c.Request.Context(), postcode)
	for range run.Events {
		// Drain; the overview endpoint only needs the final result.
	}

	if run.State() == aggregator.StateCancelled {
		return
	}

	vm := viewmodel.Merge(run.Result())
	if vm.RunFailed {
		c.JSON(http.StatusBadGateway, gin.H{"error": vm.FailureMessage})
		return
	}
	c.JSON(http.StatusOK, vm)
}

// HealthCheck is a trivial liveness probe.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
