// Package aggregation turns the sales table into map layers at three
// granularities: single apartments, postal codes and parishes.
package aggregation

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cphhousing/internal/dataset"
	"cphhousing/internal/models"
	"cphhousing/internal/palette"
	"cphhousing/internal/pricing"
)

const (
	KindColumn  = "ColumnLayer"
	KindGeoJSON = "GeoJsonLayer"

	unitElevationScale    = 0.02
	unitRadius            = 50
	groupedElevationScale = 0.15

	tooltipSuffix = "</b> <br> {tooltip_price} price pr sq meter"
)

// Channel names the feature property a visual channel reads and how it is
// scaled.
type Channel struct {
	Field string  `json:"field"`
	Scale float64 `json:"scale"`
}

// Legend describes the color bar drawn next to the map.
type Legend struct {
	Label   string        `json:"label"`
	Min     float64       `json:"min"`
	Max     float64       `json:"max"`
	Palette []palette.RGB `json:"palette"`
}

// Layer is a renderable map layer. Color and elevation are independent
// channels backed by different properties of each feature.
type Layer struct {
	Scale     models.Scale               `json:"scale"`
	Kind      string                     `json:"kind"`
	Attribute models.Attribute           `json:"attribute"`
	Color     Channel                    `json:"color"`
	Elevation Channel                    `json:"elevation"`
	Radius    float64                    `json:"radius,omitempty"`
	Tooltip   string                     `json:"tooltip"`
	Legend    Legend                     `json:"legend"`
	Features  *geojson.FeatureCollection `json:"features"`
}

// Sources are the tables a layer can be built from.
type Sources struct {
	Apartments dataset.Apartments
	Postal     []models.Region
	Parish     []models.Region
}

// Build dispatches to the pipeline for scale.
func Build(scale models.Scale, src Sources, attr models.Attribute, colors []palette.RGB) (*Layer, error) {
	if !attr.Valid() {
		return nil, fmt.Errorf("unknown attribute: %s", attr)
	}
	switch scale {
	case models.ScaleUnits:
		return Units(src.Apartments, attr, colors), nil
	case models.ScalePostal:
		return PostalCodes(src.Apartments, src.Postal, attr, colors), nil
	case models.ScaleParish:
		return Parishes(src.Apartments, src.Parish, attr, colors), nil
	default:
		return nil, fmt.Errorf("unknown scale: %s", scale)
	}
}

func newLegend(apartments dataset.Apartments, attr models.Attribute, colors []palette.RGB) Legend {
	min, max := pricing.Extent(apartments.Values(attr))
	return Legend{
		Label:   LegendLabel(attr),
		Min:     min,
		Max:     max,
		Palette: colors,
	}
}

// LegendLabel title-cases the column name: "Adjusted Sqm Price".
func LegendLabel(attr models.Attribute) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(attr), "_", " "))
}

func colorAt(colors []palette.RGB, bucket int) palette.RGB {
	if len(colors) == 0 {
		return palette.RGB{}
	}
	if bucket < 0 {
		bucket = 0
	}
	if bucket >= len(colors) {
		bucket = len(colors) - 1
	}
	return colors[bucket]
}
