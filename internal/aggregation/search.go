package aggregation

import (
	"fmt"

	"github.com/paulmach/orb/geojson"

	"cphhousing/internal/models"
	"cphhousing/internal/palette"
	"cphhousing/internal/pricing"
)

const (
	searchElevationScale = 250
	searchRadius         = 4
)

// SearchResult draws the sales collected by an address search. Rows are
// expected to be rescaled relative to each other already, so both color
// and height follow the normalized price.
func SearchResult(result *models.SearchResult, colors []palette.RGB) *Layer {
	fc := geojson.NewFeatureCollection()
	prices := make([]float64, 0, len(result.Rows))
	for i := range result.Rows {
		a := &result.Rows[i]
		prices = append(prices, a.AdjustedPrice)

		f := geojson.NewFeature(a.Point())
		f.Properties = geojson.Properties{
			"address":                   a.Address,
			"tooltip_address":           a.TooltipAddress,
			"tooltip_price":             a.TooltipPrice,
			"year":                      a.Year,
			"lng":                       a.Longitude,
			"lat":                       a.Latitude,
			"adjusted_sqm_price":        a.AdjustedPrice,
			"scaled_adjusted_sqm_price": a.NormalizedPrice,
			"color_int":                 a.ColorBucket,
			"color_rgb":                 colorAt(colors, a.ColorBucket),
		}
		fc.Append(f)
	}

	min, max := pricing.Extent(prices)
	return &Layer{
		Scale:     models.ScaleSearch,
		Kind:      KindColumn,
		Attribute: models.AttributeAdjustedPrice,
		Color:     Channel{Field: "color_rgb", Scale: 1},
		Elevation: Channel{Field: "scaled_adjusted_sqm_price", Scale: searchElevationScale},
		Radius:    searchRadius,
		Tooltip:   "<b>{tooltip_address}" + tooltipSuffix,
		Legend: Legend{
			Label:   LegendLabel(models.AttributeAdjustedPrice),
			Min:     min,
			Max:     max,
			Palette: colors,
		},
		Features: fc,
	}
}

// SearchSummary is the headline shown above a search map.
func SearchSummary(result *models.SearchResult) string {
	return fmt.Sprintf("%d apartments on %d different addresses", result.TotalVisited, len(result.Points))
}
