package aggregation

import (
	"sort"

	"github.com/paulmach/orb/geojson"

	"cphhousing/internal/dataset"
	"cphhousing/internal/models"
	"cphhousing/internal/palette"
	"cphhousing/internal/pricing"
)

type groupKey struct {
	code         string
	municipality string
}

// PostalCodes groups sales by postal code and municipality and joins the
// groups onto the postal polygons. Only polygons with sales are kept.
func PostalCodes(apartments dataset.Apartments, regions []models.Region, attr models.Attribute, colors []palette.RGB) *Layer {
	stats := joinRegions(apartments, regions, func(a *models.Apartment) groupKey {
		return groupKey{code: a.PostalCode, municipality: a.Municipality}
	})

	fc := geojson.NewFeatureCollection()
	for _, s := range stats {
		f := regionFeature(s, colors)
		f.Properties["city"] = s.Name
		f.Properties["postal"] = s.Code
		f.Properties["kommune"] = s.Municipality
		fc.Append(f)
	}

	return &Layer{
		Scale:     models.ScalePostal,
		Kind:      KindGeoJSON,
		Attribute: attr,
		Color:     Channel{Field: "color_rgb", Scale: 1},
		Elevation: Channel{Field: "elevation", Scale: groupedElevationScale},
		Tooltip:   "<b>{city}" + tooltipSuffix,
		Legend:    newLegend(apartments, attr, colors),
		Features:  fc,
	}
}

// Parishes groups sales by parish code and joins the groups onto the parish
// polygons. Only polygons with sales are kept.
func Parishes(apartments dataset.Apartments, regions []models.Region, attr models.Attribute, colors []palette.RGB) *Layer {
	stats := joinRegions(apartments, regions, func(a *models.Apartment) groupKey {
		return groupKey{code: a.ParishCode}
	})

	fc := geojson.NewFeatureCollection()
	for _, s := range stats {
		f := regionFeature(s, colors)
		f.Properties["sognenavn"] = s.Name
		f.Properties["sognekode"] = s.Code
		fc.Append(f)
	}

	return &Layer{
		Scale:     models.ScaleParish,
		Kind:      KindGeoJSON,
		Attribute: attr,
		Color:     Channel{Field: "color_rgb", Scale: 1},
		Elevation: Channel{Field: "elevation", Scale: groupedElevationScale},
		Tooltip:   "<b>{sognenavn}" + tooltipSuffix,
		Legend:    newLegend(apartments, attr, colors),
		Features:  fc,
	}
}

// joinRegions computes mean and median adjusted price per group and inner
// joins the groups onto regions by code. The output follows region order,
// then group key order. Color scaling is derived over the joined medians.
func joinRegions(apartments dataset.Apartments, regions []models.Region, key func(*models.Apartment) groupKey) []models.RegionStats {
	prices := make(map[groupKey][]float64)
	byCode := make(map[string][]groupKey)
	for i := range apartments {
		k := key(&apartments[i])
		if _, ok := prices[k]; !ok {
			byCode[k.code] = append(byCode[k.code], k)
		}
		prices[k] = append(prices[k], apartments[i].AdjustedPrice)
	}
	for _, keys := range byCode {
		sort.Slice(keys, func(i, j int) bool { return keys[i].municipality < keys[j].municipality })
	}

	var stats []models.RegionStats
	for _, r := range regions {
		for _, k := range byCode[r.Code] {
			p := prices[k]
			stats = append(stats, models.RegionStats{
				Region:       r,
				Municipality: k.municipality,
				Sales:        len(p),
				MeanPrice:    pricing.Mean(p),
				MedianPrice:  pricing.Median(p),
			})
		}
	}

	medians := make([]float64, len(stats))
	for i := range stats {
		medians[i] = stats[i].MedianPrice
	}
	normalized := pricing.Normalize(medians)
	for i := range stats {
		stats[i].NormalizedPrice = normalized[i]
		stats[i].ColorBucket = pricing.Bucket(normalized[i])
		stats[i].TooltipPrice = pricing.FormatPrice(stats[i].MedianPrice, 0)
	}
	return stats
}

func regionFeature(s models.RegionStats, colors []palette.RGB) *geojson.Feature {
	f := geojson.NewFeature(s.Geometry)
	f.Properties = geojson.Properties{
		"sales":                     s.Sales,
		"adjusted_sqm_price_mean":   s.MeanPrice,
		"adjusted_sqm_price_median": s.MedianPrice,
		"scaled_adjusted_sqm_price": s.NormalizedPrice,
		"color_int":                 s.ColorBucket,
		"color_rgb":                 colorAt(colors, s.ColorBucket),
		"tooltip_price":             s.TooltipPrice,
		"elevation":                 s.MedianPrice,
	}
	return f
}
