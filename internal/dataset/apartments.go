// Package dataset reads the static apartment sales and boundary tables and
// derives the columns every map layer relies on.
package dataset

import (
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"cphhousing/internal/models"
	"cphhousing/internal/pricing"
)

// Apartments is a table of sales. Tables handed out by the Cache are shared
// and must be cloned before they are modified.
type Apartments []models.Apartment

// LoadApartments reads a GeoJSON FeatureCollection of sales, keeps the first
// limit rows (all when limit <= 0) and derives display columns.
func LoadApartments(path string, limit int) (Apartments, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read apartments: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse apartments: %w", err)
	}

	return DecodeApartments(fc, limit)
}

// DecodeApartments converts features into apartments. Coordinates come from
// the lng/lat properties, falling back to the point geometry.
func DecodeApartments(fc *geojson.FeatureCollection, limit int) (Apartments, error) {
	features := fc.Features
	if limit > 0 && len(features) > limit {
		features = features[:limit]
	}

	apartments := make(Apartments, 0, len(features))
	for i, f := range features {
		props := f.Properties

		a := models.Apartment{
			Address:      propString(props, "address"),
			PostalCode:   propString(props, "postal"),
			Municipality: propString(props, "kommune"),
			ParishCode:   propString(props, "sognekode"),
		}

		year, ok := propFloat(props, "year")
		if !ok {
			return nil, fmt.Errorf("feature %d: missing year", i)
		}
		a.Year = int(year)

		if a.SqmPrice, ok = propFloat(props, "square_meters_price"); !ok {
			return nil, fmt.Errorf("feature %d: missing square_meters_price", i)
		}
		if a.AdjustedPrice, ok = propFloat(props, "adjusted_sqm_price"); !ok {
			return nil, fmt.Errorf("feature %d: missing adjusted_sqm_price", i)
		}

		lng, okLng := propFloat(props, "lng")
		lat, okLat := propFloat(props, "lat")
		if !okLng || !okLat {
			p, isPoint := f.Geometry.(orb.Point)
			if !isPoint {
				return nil, fmt.Errorf("feature %d: missing coordinates", i)
			}
			lng, lat = p.Lon(), p.Lat()
		}
		a.Longitude, a.Latitude = lng, lat

		apartments = append(apartments, a)
	}

	apartments.derive()
	return apartments, nil
}

// derive fills the normalized price, bucket and tooltip columns.
func (a Apartments) derive() {
	prices := make([]float64, len(a))
	for i := range a {
		prices[i] = a[i].AdjustedPrice
	}
	normalized := pricing.Normalize(prices)

	for i := range a {
		a[i].NormalizedPrice = normalized[i]
		a[i].ColorBucket = pricing.Bucket(normalized[i])
		a[i].TooltipPrice = pricing.FormatPrice(a[i].AdjustedPrice, 2)
		a[i].TooltipAddress = pricing.DisplayAddress(a[i].Address)
	}
}

// Clone returns a copy that can be modified without touching a.
func (a Apartments) Clone() Apartments {
	return append(Apartments(nil), a...)
}

// Years returns the distinct sale years in ascending order.
func (a Apartments) Years() []int {
	seen := make(map[int]bool)
	years := []int{}
	for i := range a {
		if !seen[a[i].Year] {
			seen[a[i].Year] = true
			years = append(years, a[i].Year)
		}
	}
	sort.Ints(years)
	return years
}

// FilterYears returns the rows sold in [from, to]. The derived columns are
// kept as they are, so colors stay relative to the full table.
func (a Apartments) FilterYears(from, to int) Apartments {
	out := make(Apartments, 0, len(a))
	for i := range a {
		if a[i].Year >= from && a[i].Year <= to {
			out = append(out, a[i])
		}
	}
	return out
}

// Values returns the given attribute for every row.
func (a Apartments) Values(attr models.Attribute) []float64 {
	values := make([]float64, len(a))
	for i := range a {
		values[i] = a[i].Value(attr)
	}
	return values
}
