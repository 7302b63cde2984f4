package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"cphhousing/config"
	"cphhousing/internal/api"
	"cphhousing/internal/database"
	"cphhousing/internal/dataset"
	"cphhousing/internal/geocoding"
	"cphhousing/internal/search"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
	}

	// Optional geocode cache
	opts := geocoding.Options{
		BaseURL:    cfg.Geocoder.BaseURL,
		UserAgent:  cfg.Geocoder.UserAgent,
		Timeout:    time.Duration(cfg.Geocoder.Timeout) * time.Second,
		RetryDelay: time.Duration(cfg.Geocoder.RetryDelay) * time.Second,
	}
	if cfg.Geocoder.CachePath != "" {
		logger.Infof("Using geocode cache at: %s", cfg.Geocoder.CachePath)
		db, err := database.NewDatabase(cfg.Geocoder.CachePath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize database")
		}
		defer db.Close()

		logger.Info("Running database migrations...")
		if err := db.RunMigrations(); err != nil {
			logger.WithError(err).Fatal("Failed to run database migrations")
		}
		if n, err := db.Count(); err == nil {
			logger.WithField("entries", n).Info("Geocode cache ready")
		}
		opts.Cache = db
	}
	geocoder := geocoding.NewGeocoder(logger, opts)

	data := dataset.NewCache(dataset.Paths{
		Apartments:      cfg.Data.ApartmentsPath,
		Postal:          cfg.Data.PostalPath,
		Parish:          cfg.Data.ParishPath,
		PostalCodeField: cfg.Data.PostalCodeField,
		PostalNameField: cfg.Data.PostalNameField,
		ParishCodeField: cfg.Data.ParishCodeField,
		ParishNameField: cfg.Data.ParishNameField,
	}, logger)

	// Warm the cache so the first request does not pay for parsing
	if _, err := data.Apartments(cfg.Data.ApartmentLimit); err != nil {
		logger.WithError(err).Fatal("Failed to load apartments")
	}
	if _, err := data.PostalRegions(); err != nil {
		logger.WithError(err).Warn("Postal code map unavailable")
	}
	if _, err := data.ParishRegions(); err != nil {
		logger.WithError(err).Warn("Parish map unavailable")
	}

	searcher := search.NewSearcher(logger, cfg.Search.TieLimit, search.CondoMode(cfg.Search.CondoMode))
	handler := api.NewHandler(cfg, data, geocoder, searcher, logger)

	gin.SetMode(cfg.Server.GinMode)
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
}
