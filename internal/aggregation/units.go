package aggregation

import (
	"github.com/paulmach/orb/geojson"

	"cphhousing/internal/dataset"
	"cphhousing/internal/models"
	"cphhousing/internal/palette"
)

// Units draws one column per sale. Colors come from the buckets derived at
// load time; the column height is the chosen attribute itself.
func Units(apartments dataset.Apartments, attr models.Attribute, colors []palette.RGB) *Layer {
	fc := geojson.NewFeatureCollection()
	for i := range apartments {
		a := &apartments[i]
		f := geojson.NewFeature(a.Point())
		f.Properties = geojson.Properties{
			"address":                   a.Address,
			"tooltip_address":           a.TooltipAddress,
			"tooltip_price":             a.TooltipPrice,
			"postal":                    a.PostalCode,
			"kommune":                   a.Municipality,
			"sognekode":                 a.ParishCode,
			"year":                      a.Year,
			"lng":                       a.Longitude,
			"lat":                       a.Latitude,
			string(attr):                a.Value(attr),
			"scaled_adjusted_sqm_price": a.NormalizedPrice,
			"color_int":                 a.ColorBucket,
			"color_rgb":                 colorAt(colors, a.ColorBucket),
			"elevation":                 a.Value(attr),
		}
		fc.Append(f)
	}

	return &Layer{
		Scale:     models.ScaleUnits,
		Kind:      KindColumn,
		Attribute: attr,
		Color:     Channel{Field: "color_rgb", Scale: 1},
		Elevation: Channel{Field: "elevation", Scale: unitElevationScale},
		Radius:    unitRadius,
		Tooltip:   "<b>{tooltip_address}" + tooltipSuffix,
		Legend:    newLegend(apartments, attr, colors),
		Features:  fc,
	}
}
