package aggregation

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cphhousing/internal/dataset"
	"cphhousing/internal/models"
	"cphhousing/internal/palette"
)

func square(x, y float64) orb.Polygon {
	return orb.Polygon{{{x, y}, {x + 0.01, y}, {x + 0.01, y + 0.01}, {x, y + 0.01}, {x, y}}}
}

func testColors(t *testing.T) []palette.RGB {
	colors, err := palette.Get("viridis", 21)
	require.NoError(t, err)
	return colors
}

func testApartments() dataset.Apartments {
	return dataset.Apartments{
		{Address: "A 1", PostalCode: "2200", Municipality: "København", ParishCode: "7001", Year: 2015, Longitude: 12.55, Latitude: 55.69, SqmPrice: 30000, AdjustedPrice: 40000, ColorBucket: 10, TooltipPrice: "40,000.00", TooltipAddress: "A 1"},
		{Address: "A 2", PostalCode: "2200", Municipality: "København", ParishCode: "7001", Year: 2016, Longitude: 12.55, Latitude: 55.69, SqmPrice: 31000, AdjustedPrice: 44000, ColorBucket: 14},
		{Address: "A 3", PostalCode: "2200", Municipality: "København", ParishCode: "7002", Year: 2017, Longitude: 12.56, Latitude: 55.69, SqmPrice: 32000, AdjustedPrice: 60000, ColorBucket: 20},
		{Address: "B 1", PostalCode: "2000", Municipality: "Frederiksberg", ParishCode: "7003", Year: 2018, Longitude: 12.53, Latitude: 55.68, SqmPrice: 20000, AdjustedPrice: 20000, ColorBucket: 0},
		{Address: "C 1", PostalCode: "9999", Municipality: "Nowhere", ParishCode: "7999", Year: 2019, Longitude: 10.00, Latitude: 56.00, SqmPrice: 10000, AdjustedPrice: 25000, ColorBucket: 3},
	}
}

func testPostal() []models.Region {
	return []models.Region{
		{Code: "2000", Name: "Frederiksberg", Geometry: square(12.52, 55.67)},
		{Code: "2200", Name: "København N", Geometry: square(12.55, 55.69)},
		{Code: "2100", Name: "København Ø", Geometry: square(12.57, 55.70)},
	}
}

func TestUnits(t *testing.T) {
	colors := testColors(t)
	apartments := testApartments()

	layer := Units(apartments, models.AttributeRawPrice, colors)

	assert.Equal(t, KindColumn, layer.Kind)
	assert.Equal(t, models.ScaleUnits, layer.Scale)
	assert.Equal(t, 0.02, layer.Elevation.Scale)
	assert.Equal(t, 50.0, layer.Radius)
	require.Len(t, layer.Features.Features, len(apartments))

	props := layer.Features.Features[0].Properties
	assert.Equal(t, 30000.0, props["elevation"])
	assert.Equal(t, colors[10], props["color_rgb"])
	assert.Equal(t, "40,000.00", props["tooltip_price"])
	assert.Equal(t, orb.Point{12.55, 55.69}, layer.Features.Features[0].Geometry)

	assert.Equal(t, "Square Meters Price", layer.Legend.Label)
	assert.Equal(t, 10000.0, layer.Legend.Min)
	assert.Equal(t, 32000.0, layer.Legend.Max)
}

func TestPostalCodesInnerJoin(t *testing.T) {
	colors := testColors(t)

	layer := PostalCodes(testApartments(), testPostal(), models.AttributeAdjustedPrice, colors)

	// 9999 has no polygon and 2100 has no sales
	require.Len(t, layer.Features.Features, 2)
	assert.Equal(t, KindGeoJSON, layer.Kind)
	assert.Equal(t, 0.15, layer.Elevation.Scale)

	frb := layer.Features.Features[0].Properties
	assert.Equal(t, "2000", frb["postal"])
	assert.Equal(t, "Frederiksberg", frb["city"])
	assert.Equal(t, 20000.0, frb["adjusted_sqm_price_median"])
	assert.Equal(t, 0, frb["color_int"])
	assert.Equal(t, colors[0], frb["color_rgb"])

	nord := layer.Features.Features[1].Properties
	assert.Equal(t, "2200", nord["postal"])
	assert.Equal(t, 3, nord["sales"])
	assert.InDelta(t, 48000.0, nord["adjusted_sqm_price_mean"], 1e-9)
	assert.Equal(t, 44000.0, nord["adjusted_sqm_price_median"])
	assert.Equal(t, 44000.0, nord["elevation"])
	assert.Equal(t, 20, nord["color_int"])
	assert.Equal(t, "44,000", nord["tooltip_price"])
}

func TestPostalCodesSplitByMunicipality(t *testing.T) {
	apartments := testApartments()
	apartments = append(apartments, dataset.Apartments{
		{Address: "D 1", PostalCode: "2000", Municipality: "København", AdjustedPrice: 30000},
	}...)

	stats := joinRegions(apartments, testPostal(), func(a *models.Apartment) groupKey {
		return groupKey{code: a.PostalCode, municipality: a.Municipality}
	})

	require.Len(t, stats, 3)
	assert.Equal(t, "Frederiksberg", stats[0].Municipality)
	assert.Equal(t, "København", stats[1].Municipality)
	assert.Equal(t, "2000", stats[1].Code)
	assert.Equal(t, "2200", stats[2].Code)
}

func TestParishes(t *testing.T) {
	colors := testColors(t)
	parishes := []models.Region{
		{Code: "7001", Name: "Sankt Johannes", Geometry: square(12.55, 55.69)},
		{Code: "7002", Name: "Brorsons", Geometry: square(12.56, 55.69)},
		{Code: "7004", Name: "Empty", Geometry: square(12.60, 55.69)},
	}

	layer := Parishes(testApartments(), parishes, models.AttributeAdjustedPrice, colors)

	require.Len(t, layer.Features.Features, 2)
	first := layer.Features.Features[0].Properties
	assert.Equal(t, "Sankt Johannes", first["sognenavn"])
	assert.Equal(t, 42000.0, first["adjusted_sqm_price_median"])
	assert.Equal(t, 0.0, first["scaled_adjusted_sqm_price"])
	second := layer.Features.Features[1].Properties
	assert.Equal(t, 1.0, second["scaled_adjusted_sqm_price"])
	assert.Equal(t, "<b>{sognenavn}</b> <br> {tooltip_price} price pr sq meter", layer.Tooltip)
}

func TestRegionCountBound(t *testing.T) {
	apartments := testApartments()
	postal := testPostal()

	stats := joinRegions(apartments, postal, func(a *models.Apartment) groupKey {
		return groupKey{code: a.PostalCode}
	})

	distinctWithSales := map[string]bool{}
	for _, a := range apartments {
		distinctWithSales[a.PostalCode] = true
	}
	assert.LessOrEqual(t, len(stats), len(distinctWithSales))
	assert.LessOrEqual(t, len(stats), len(postal))
	for _, s := range stats {
		assert.Positive(t, s.Sales)
	}
}

func TestBuild(t *testing.T) {
	colors := testColors(t)
	src := Sources{Apartments: testApartments(), Postal: testPostal()}

	layer, err := Build(models.ScalePostal, src, models.AttributeAdjustedPrice, colors)
	require.NoError(t, err)
	assert.Equal(t, models.ScalePostal, layer.Scale)

	_, err = Build("municipality", src, models.AttributeAdjustedPrice, colors)
	assert.Error(t, err)

	_, err = Build(models.ScaleUnits, src, "price", colors)
	assert.Error(t, err)
}

func TestLegendLabel(t *testing.T) {
	assert.Equal(t, "Adjusted Sqm Price", LegendLabel(models.AttributeAdjustedPrice))
}

func TestSearchResultLayer(t *testing.T) {
	colors := testColors(t)
	result := &models.SearchResult{
		Points: []models.SearchPoint{{Longitude: 12.55, Latitude: 55.69}, {Longitude: 12.551, Latitude: 55.69}},
		Rows: []models.Apartment{
			{Address: "A 1, st.", Longitude: 12.551, Latitude: 55.69, AdjustedPrice: 40000, NormalizedPrice: 0, ColorBucket: 0, TooltipPrice: "40,000", TooltipAddress: "A 1"},
			{Address: "A 1, 2. th", Longitude: 12.551, Latitude: 55.69, AdjustedPrice: 50000, NormalizedPrice: 1, ColorBucket: 20, TooltipPrice: "50,000", TooltipAddress: "A 1"},
		},
		TotalVisited: 2,
	}

	layer := SearchResult(result, colors)

	assert.Equal(t, models.ScaleSearch, layer.Scale)
	assert.Equal(t, KindColumn, layer.Kind)
	assert.Equal(t, "scaled_adjusted_sqm_price", layer.Elevation.Field)
	assert.Equal(t, 250.0, layer.Elevation.Scale)
	assert.Equal(t, 4.0, layer.Radius)
	assert.Equal(t, 40000.0, layer.Legend.Min)
	assert.Equal(t, 50000.0, layer.Legend.Max)
	require.Len(t, layer.Features.Features, 2)
	assert.Equal(t, colors[20], layer.Features.Features[1].Properties["color_rgb"])
	assert.Equal(t, 1.0, layer.Features.Features[1].Properties["scaled_adjusted_sqm_price"])

	assert.Equal(t, "2 apartments on 2 different addresses", SearchSummary(result))
}
