package models

import "github.com/paulmach/orb"

// Attribute names a price column that can drive the map.
type Attribute string

const (
	AttributeAdjustedPrice Attribute = "adjusted_sqm_price"
	AttributeRawPrice      Attribute = "square_meters_price"
)

// Attributes lists the selectable attributes in display order.
var Attributes = []Attribute{AttributeAdjustedPrice, AttributeRawPrice}

// Label returns the human readable name shown in selectors.
func (a Attribute) Label() string {
	switch a {
	case AttributeAdjustedPrice:
		return "Adj. price m²"
	case AttributeRawPrice:
		return "Price m²"
	default:
		return string(a)
	}
}

// Valid reports whether a is a known attribute.
func (a Attribute) Valid() bool {
	return a == AttributeAdjustedPrice || a == AttributeRawPrice
}

// Apartment is one historical sale.
type Apartment struct {
	Address       string  `json:"address"`
	PostalCode    string  `json:"postal"`
	Municipality  string  `json:"kommune"`
	ParishCode    string  `json:"sognekode"`
	Year          int     `json:"year"`
	Longitude     float64 `json:"lng"`
	Latitude      float64 `json:"lat"`
	SqmPrice      float64 `json:"square_meters_price"`
	AdjustedPrice float64 `json:"adjusted_sqm_price"`

	// Derived at load time.
	NormalizedPrice float64 `json:"scaled_adjusted_sqm_price"`
	ColorBucket     int     `json:"color_int"`
	TooltipPrice    string  `json:"tooltip_price"`
	TooltipAddress  string  `json:"tooltip_address"`
}

// Point returns the sale location.
func (a *Apartment) Point() orb.Point {
	return orb.Point{a.Longitude, a.Latitude}
}

// Value returns the value of the given attribute.
func (a *Apartment) Value(attr Attribute) float64 {
	if attr == AttributeRawPrice {
		return a.SqmPrice
	}
	return a.AdjustedPrice
}
