package api

import (
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"homescope/server/internal/aggregator"
)

// StreamListings exposes one aggregation run as a server-sent event stream.
// Wire taxonomy: an unnamed event carries one listing as JSON, "status"
// carries lifecycle milestones, "error" and "complete" are terminal. Headers
// are flushed before the first body byte so the client can start rendering
// immediately; client disconnect cancels the run, which terminates the
// scraper child.
func (h *Handler) StreamListings(c *gin.Context) {
	postcode, ok := h.postcodeParam(c)
	if !ok {
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	run := h.coordinator.Start(c.Request.Context(), postcode)
	defer run.Cancel()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			h.logger.WithField("postcode", postcode.String()).Info("Stream client disconnected")
			return
		case event, open := <-run.Events:
			if !open {
				return
			}
			h.writeEvent(c, event)
			if event.Kind == aggregator.EventError || event.Kind == aggregator.EventComplete {
				// The terminal event is the last byte on the wire; the
				// connection closes when the handler returns.
				return
			}
		}
	}
}

func (h *Handler) writeEvent(c *gin.Context, event aggregator.Event) {
	switch event.Kind {
	case aggregator.EventListing:
		c.Render(-1, sse.Event{Data: event.Listing})
	case aggregator.EventStatus:
		payload := gin.H{"status": event.Status}
		if event.Message != "" {
			payload["message"] = event.Message
		}
		c.Render(-1, sse.Event{Event: "status", Data: payload})
	case aggregator.EventError:
		c.Render(-1, sse.Event{Event: "error", Data: gin.H{"error": event.Message}})
	case aggregator.EventComplete:
		c.Render(-1, sse.Event{Event: "complete", Data: gin.H{"status": "complete"}})
	}
	c.Writer.Flush()
}
