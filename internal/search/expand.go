// Package search discovers the cluster of sales around an address by
// repeatedly walking to the nearest unvisited coordinate.
package search

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"cphhousing/internal/dataset"
	"cphhousing/internal/models"
	"cphhousing/internal/pricing"
)

var (
	// ErrInsufficientData is returned when the pool runs out before both
	// thresholds are met. The partial result is returned with it.
	ErrInsufficientData = errors.New("not enough sales to satisfy the search thresholds")

	ErrNoSeed = errors.New("search needs a seed coordinate")
)

// CondoMode selects how the number of units at a new address is counted.
type CondoMode string

const (
	// CondoLegacy counts pool rows whose latitude equals the candidate's
	// latitude or its longitude. Kept for parity with published numbers.
	CondoLegacy CondoMode = "legacy"

	// CondoExact counts pool rows at exactly the candidate's coordinate.
	CondoExact CondoMode = "exact"
)

// Thresholds are the stopping conditions of one search.
type Thresholds struct {
	MinAddresses  int
	MinApartments int
}

// done reports whether a walk with the given counts may stop.
func (t Thresholds) done(visited, points int) bool {
	return visited >= t.MinApartments+1 && points > t.MinAddresses
}

type Searcher struct {
	logger    *logrus.Logger
	tieLimit  int
	condoMode CondoMode
}

func NewSearcher(logger *logrus.Logger, tieLimit int, condoMode CondoMode) *Searcher {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if condoMode != CondoExact {
		condoMode = CondoLegacy
	}
	return &Searcher{
		logger:    logger,
		tieLimit:  tieLimit,
		condoMode: condoMode,
	}
}

// Expand walks outwards from seed over apartments until at least
// MinApartments+1 rows were visited and more than MinAddresses distinct
// coordinates are known. Thresholds are only checked between queries, so
// the last query may overshoot both.
//
// apartments is not modified.
func (s *Searcher) Expand(ctx context.Context, apartments dataset.Apartments, seed models.SearchPoint, t Thresholds) (*models.SearchResult, error) {
	idx := NewIndex(apartments, s.tieLimit)

	points := []models.SearchPoint{seed}
	visited := map[models.SearchPoint]bool{seed: true}
	pending := []models.SearchPoint{seed}

	var (
		collected   []int
		progress    []string
		count       int
		totalCondos int
	)

	result := func() *models.SearchResult {
		return &models.SearchResult{
			Points:       points,
			TotalVisited: count,
			TotalCondos:  totalCondos,
			Progress:     progress,
			Rows:         selectRows(apartments, collected),
		}
	}

	for !t.done(count, len(points)) {
		if err := ctx.Err(); err != nil {
			return result(), err
		}
		if idx.Len() == 0 {
			s.logger.WithFields(logrus.Fields{
				"visited":   count,
				"addresses": len(points),
			}).Warn("Search pool exhausted")
			return result(), ErrInsufficientData
		}

		current := points[len(points)-1]
		candidates := idx.Nearest(orbPoint(current))

		for _, row := range candidates {
			count++
			a := &apartments[row]
			p := models.SearchPoint{Longitude: a.Longitude, Latitude: a.Latitude}

			if !visited[p] {
				condos := s.countCondos(idx, p)
				totalCondos += condos
				progress = append(progress, progressLine(condos, a.Address))

				s.logger.WithFields(logrus.Fields{
					"address": pricing.DisplayAddress(a.Address),
					"condos":  condos,
					"point":   p.String(),
				}).Debug("Discovered address")

				points = append(points, p)
				visited[p] = true
			}
			pending = append(pending, p)

			collected = append(collected, row)
		}

		for _, p := range pending {
			idx.Remove(p)
		}
		pending = pending[:0]
	}

	s.logger.WithFields(logrus.Fields{
		"seed":      seed.String(),
		"visited":   count,
		"addresses": len(points),
		"condos":    totalCondos,
	}).Info("Search completed")

	return result(), nil
}

// ExpandFrom runs Expand seeded at a geocode match. Matches without
// coordinates cannot seed a search.
func (s *Searcher) ExpandFrom(ctx context.Context, apartments dataset.Apartments, match models.GeocodeResult, t Thresholds) (*models.SearchResult, error) {
	if !match.HasCoordinates() {
		return nil, ErrNoSeed
	}
	return s.Expand(ctx, apartments, match.Point(), t)
}

func (s *Searcher) countCondos(idx *Index, p models.SearchPoint) int {
	if s.condoMode == CondoExact {
		return idx.CountAt(p)
	}
	return idx.CountLegacy(p)
}

func progressLine(condos int, address string) string {
	noun := "apartments"
	if condos == 1 {
		noun = "apartment"
	}
	return fmt.Sprintf("%d %s sold at %s", condos, noun, pricing.DisplayAddress(address))
}

// selectRows copies the collected rows in visit order and rescales their
// prices relative to each other.
func selectRows(apartments dataset.Apartments, positions []int) []models.Apartment {
	rows := make([]models.Apartment, len(positions))
	prices := make([]float64, len(positions))
	for i, pos := range positions {
		rows[i] = apartments[pos]
		prices[i] = rows[i].AdjustedPrice
	}

	normalized := pricing.Normalize(prices)
	for i := range rows {
		rows[i].NormalizedPrice = normalized[i]
		rows[i].ColorBucket = pricing.Bucket(normalized[i])
		rows[i].TooltipPrice = pricing.FormatPrice(rows[i].AdjustedPrice, 0)
		rows[i].TooltipAddress = pricing.DisplayAddress(rows[i].Address)
	}
	return rows
}
