package dataset

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"cphhousing/internal/models"
)

// Paths locates the static data files and their columns.
type Paths struct {
	Apartments      string
	Postal          string
	Parish          string
	PostalCodeField string
	PostalNameField string
	ParishCodeField string
	ParishNameField string
}

// Cache memoizes loaded tables for the lifetime of the process. Apartment
// tables are keyed by their row limit. The files are never reread, so a
// restart is needed to pick up new data.
type Cache struct {
	paths  Paths
	logger *logrus.Logger

	mu         sync.Mutex
	apartments map[int]Apartments
	postal     []models.Region
	parish     []models.Region
}

func NewCache(paths Paths, logger *logrus.Logger) *Cache {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Cache{
		paths:      paths,
		logger:     logger,
		apartments: make(map[int]Apartments),
	}
}

// Apartments returns the shared table for limit. Callers must Clone before
// modifying it.
func (c *Cache) Apartments(limit int) (Apartments, error) {
	if limit < 0 {
		limit = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if table, ok := c.apartments[limit]; ok {
		return table, nil
	}

	table, err := LoadApartments(c.paths.Apartments, limit)
	if err != nil {
		c.logger.WithError(err).WithField("path", c.paths.Apartments).Error("Failed to load apartments")
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"path":  c.paths.Apartments,
		"limit": limit,
		"rows":  len(table),
	}).Info("Loaded apartments")

	c.apartments[limit] = table
	return table, nil
}

// PostalRegions returns the postal code polygons.
func (c *Cache) PostalRegions() ([]models.Region, error) {
	return c.regions(&c.postal, c.paths.Postal, c.paths.PostalCodeField, c.paths.PostalNameField)
}

// ParishRegions returns the parish polygons.
func (c *Cache) ParishRegions() ([]models.Region, error) {
	return c.regions(&c.parish, c.paths.Parish, c.paths.ParishCodeField, c.paths.ParishNameField)
}

func (c *Cache) regions(slot *[]models.Region, path, codeField, nameField string) ([]models.Region, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if *slot != nil {
		return *slot, nil
	}

	regions, err := LoadRegions(path, codeField, nameField)
	if err != nil {
		c.logger.WithError(err).WithField("path", path).Error("Failed to load regions")
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"path":    path,
		"regions": len(regions),
	}).Info("Loaded regions")

	*slot = regions
	return regions, nil
}
