package models

import "github.com/paulmach/orb"

// Scale is the granularity a map is drawn at.
type Scale string

const (
	ScaleUnits  Scale = "units"
	ScalePostal Scale = "postal"
	ScaleParish Scale = "parish"

	// ScaleSearch is the neighbourhood drawn for an address search. It is
	// not selectable on the overview map.
	ScaleSearch Scale = "search"
)

// Scales lists the selectable scales in display order.
var Scales = []Scale{ScaleUnits, ScalePostal, ScaleParish}

// Label returns the human readable name shown in selectors.
func (s Scale) Label() string {
	switch s {
	case ScaleUnits:
		return "Individual Apartments"
	case ScalePostal:
		return "Postal Codes"
	case ScaleParish:
		return "Parish (Sogn)"
	case ScaleSearch:
		return "Search"
	default:
		return string(s)
	}
}

// Valid reports whether s is a known scale.
func (s Scale) Valid() bool {
	return s == ScaleUnits || s == ScalePostal || s == ScaleParish
}

// Region is an administrative boundary, either a postal code or a parish.
type Region struct {
	Code     string       `json:"code"`
	Name     string       `json:"name"`
	Geometry orb.Geometry `json:"-"`
}

// RegionStats is a region joined with the sales aggregated inside it.
type RegionStats struct {
	Region
	Municipality    string  `json:"kommune,omitempty"`
	Sales           int     `json:"sales"`
	MeanPrice       float64 `json:"adjusted_sqm_price_mean"`
	MedianPrice     float64 `json:"adjusted_sqm_price_median"`
	NormalizedPrice float64 `json:"scaled_adjusted_sqm_price"`
	ColorBucket     int     `json:"color_int"`
	TooltipPrice    string  `json:"tooltip_price"`
}
