package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"cphhousing/internal/models"
)

// GeocodeEntry is a cached geocode keyed by the free text that was sent.
type GeocodeEntry struct {
	Query      string `gorm:"primaryKey"`
	Address    string
	Confidence string
	Latitude   *float64
	Longitude  *float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Database stores geocode results in sqlite.
type Database struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection pool: %w", err)
	}
	// sqlite allows one writer, and an in-memory database lives on one connection
	sqlDB.SetMaxOpenConns(1)

	return &Database{db: db}, nil
}

// Lookup returns the cached result for query, if any.
func (d *Database) Lookup(query string) (models.GeocodeResult, bool, error) {
	var entry GeocodeEntry
	err := d.db.First(&entry, "query = ?", query).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.GeocodeResult{}, false, nil
	}
	if err != nil {
		return models.GeocodeResult{}, false, fmt.Errorf("failed to query geocode cache: %w", err)
	}

	return models.GeocodeResult{
		Address:    entry.Address,
		Confidence: entry.Confidence,
		Latitude:   entry.Latitude,
		Longitude:  entry.Longitude,
	}, true, nil
}

// Store inserts or replaces the cached result for query.
func (d *Database) Store(query string, result models.GeocodeResult) error {
	entry := GeocodeEntry{
		Query:      query,
		Address:    result.Address,
		Confidence: result.Confidence,
		Latitude:   result.Latitude,
		Longitude:  result.Longitude,
	}
	err := d.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to store geocode: %w", err)
	}
	return nil
}

// Count returns the number of cached geocodes.
func (d *Database) Count() (int64, error) {
	var n int64
	err := d.db.Model(&GeocodeEntry{}).Count(&n).Error
	return n, err
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
