package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/properties/sales", handler.GetSales)
		api.GET("/properties/demographics", handler.GetDemographics)
		api.GET("/properties/listings", handler.StreamListings)
		api.GET("/properties/overview", handler.GetOverview)
	}
}
