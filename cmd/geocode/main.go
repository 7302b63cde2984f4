package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"cphhousing/config"
	"cphhousing/internal/database"
	"cphhousing/internal/geocoding"
	"cphhousing/internal/processor"
	"cphhousing/internal/queue"
)

func main() {
	input := flag.String("in", "", "semicolon separated member_code;address file")
	output := flag.String("out", "", "output file, appended to (default: <in>_output.csv)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	if *input == "" {
		logger.Fatal("-in is required")
	}
	if *output == "" {
		*output = strings.TrimSuffix(*input, filepath.Ext(*input)) + "_output.csv"
	}

	if err := run(logger, *input, *output); err != nil {
		logger.WithError(err).Fatal("Batch geocoding failed")
	}
}

func run(logger *logrus.Logger, input, output string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	opts := geocoding.Options{
		BaseURL:    cfg.Geocoder.BaseURL,
		UserAgent:  cfg.Geocoder.UserAgent,
		Timeout:    time.Duration(cfg.Geocoder.Timeout) * time.Second,
		RetryDelay: time.Duration(cfg.Geocoder.RetryDelay) * time.Second,
	}
	if cfg.Geocoder.CachePath != "" {
		db, err := database.NewDatabase(cfg.Geocoder.CachePath)
		if err != nil {
			return fmt.Errorf("failed to open geocode cache: %w", err)
		}
		defer db.Close()
		if err := db.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
		opts.Cache = db
	}
	geocoder := geocoding.NewGeocoder(logger, opts)

	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithFields(logrus.Fields{
		"input":  input,
		"output": output,
	}).Info("Starting batch geocoding")

	q := queue.NewAddressQueue(cfg.BatchProcessing.QueueSize, logger)
	p := processor.NewBatchProcessor(geocoder, q, out, cfg, logger)
	_, err = p.Run(ctx, in)
	return err
}
