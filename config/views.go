package config

// View is the initial camera of a map.
type View struct {
	Name      string    `json:"name"`
	Center    []float64 `json:"center"`
	ZoomLevel int       `json:"zoom_level"`
	MaxZoom   int       `json:"max_zoom"`
	Pitch     int       `json:"pitch"`
}

// Views used by the dashboard. The search view is recentred on the match.
var Views = []View{
	{
		Name:      "copenhagen",
		Center:    []float64{55.67, 12.56},
		ZoomLevel: 9,
		MaxZoom:   18,
	},
	{
		Name:      "search",
		Center:    []float64{55.67, 12.56},
		ZoomLevel: 15,
		MaxZoom:   18,
		Pitch:     45,
	},
}

// GetViewByName returns a view configuration by name
func GetViewByName(name string) *View {
	for _, view := range Views {
		if view.Name == name {
			v := view
			return &v
		}
	}
	return nil
}

// CenteredOn returns a copy of v centred on the given coordinate.
func (v View) CenteredOn(lat, lng float64) View {
	v.Center = []float64{lat, lng}
	return v
}
