package models

import "fmt"

// SearchPoint is a coordinate discovered while expanding a search. Two
// points are the same only when both floats are exactly equal.
type SearchPoint struct {
	Longitude float64 `json:"lng"`
	Latitude  float64 `json:"lat"`
}

func (p SearchPoint) String() string {
	return fmt.Sprintf("%v,%v", p.Longitude, p.Latitude)
}

// SearchResult is the outcome of one address expansion.
type SearchResult struct {
	Points       []SearchPoint `json:"points"`
	TotalVisited int           `json:"total_visited"`
	TotalCondos  int           `json:"total_condos"`
	Progress     []string      `json:"progress"`
	Rows         []Apartment   `json:"rows"`
}
