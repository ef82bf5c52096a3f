package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	appconfig "homescope/server/config"
	"homescope/server/internal/aggregator"
	"homescope/server/internal/api"
	"homescope/server/internal/demographics"
	"homescope/server/internal/geocache"
	"homescope/server/internal/geocoding"
	"homescope/server/internal/listings"
	"homescope/server/internal/sales"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := appconfig.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	var cache geocoding.Cache
	if cfg.GeocodeCachePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.GeocodeCachePath), 0755); err != nil {
			logger.WithError(err).Warn("Failed to create geocode cache directory")
		} else if store, err := geocache.Open(cfg.GeocodeCachePath, 30*24*time.Hour, logger); err != nil {
			logger.WithError(err).Warn("Failed to open geocode cache, continuing without it")
		} else {
			cache = store
		}
	}

	resolver := geocoding.NewResolver(logger, cfg.Upstream.PostcodeBaseURL,
		time.Duration(cfg.Upstream.GeoTimeout)*time.Second, cache)
	salesAdapter := sales.NewAdapter(logger, cfg.Upstream.SalesBaseURL,
		time.Duration(cfg.Upstream.SalesTimeout)*time.Second)
	demoAdapter := demographics.NewAdapter(logger, cfg.Upstream.NomisBaseURL,
		time.Duration(cfg.Upstream.TopicTimeout)*time.Second)

	scriptPath, err := filepath.Abs(cfg.Scraper.ScriptPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to resolve scraper script path")
	}
	listingsAdapter := listings.NewAdapter(logger, cfg.Scraper.Interpreter, scriptPath,
		time.Duration(cfg.Scraper.KillDelay)*time.Second)

	coordinator := aggregator.NewCoordinator(logger, resolver, salesAdapter, demoAdapter, listingsAdapter)
	handler := api.NewHandler(logger, resolver, salesAdapter, demoAdapter, coordinator)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.ClientOrigin},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Accept", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	api.SetupRoutes(router, handler)

	logger.WithFields(logrus.Fields{
		"port":   cfg.Port,
		"origin": cfg.ClientOrigin,
	}).Info("Starting server")
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
