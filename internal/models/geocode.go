package models

// GeocodeResult is a match from the address washing service. The zero
// value is the "no result" sentinel.
type GeocodeResult struct {
	Address    string   `json:"address,omitempty"`
	Confidence string   `json:"confidence,omitempty"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

// Found reports whether the service matched the address at all.
func (r GeocodeResult) Found() bool {
	return r.Address != "" || r.Confidence != ""
}

// HasCoordinates reports whether the match carries a usable point.
func (r GeocodeResult) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Point returns the matched coordinate. Only valid if HasCoordinates.
func (r GeocodeResult) Point() SearchPoint {
	return SearchPoint{Longitude: *r.Longitude, Latitude: *r.Latitude}
}

// AddressRow is one line of a batch geocoding file.
type AddressRow struct {
	Line       int
	MemberCode string
	Address    string
	Result     GeocodeResult
}
