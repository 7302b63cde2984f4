package geometry

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"cphhousing/internal/models"
)

// Footprint returns the convex hull of the visited search points as a
// closed ring. Fewer than three distinct non-collinear points yield nil.
func Footprint(points []models.SearchPoint) orb.Ring {
	pts := make([]orb.Point, 0, len(points))
	seen := make(map[orb.Point]bool, len(points))
	for _, p := range points {
		op := orb.Point{p.Longitude, p.Latitude}
		if seen[op] {
			continue
		}
		seen[op] = true
		pts = append(pts, op)
	}
	if len(pts) < 3 {
		return nil
	}

	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	// Andrew's monotone chain, counter-clockwise
	hull := make([]orb.Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// the last point repeats the first and closes the ring
	if len(hull) < 4 {
		return nil
	}
	return orb.Ring(hull)
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// FootprintFeature wraps the hull of a search result in a GeoJSON feature,
// or returns nil when the walk did not span an area.
func FootprintFeature(result *models.SearchResult) *geojson.Feature {
	if result == nil {
		return nil
	}
	ring := Footprint(result.Points)
	if ring == nil {
		return nil
	}

	poly := orb.Polygon{ring}
	feature := geojson.NewFeature(poly)
	feature.Properties = geojson.Properties{
		"points":        len(result.Points),
		"total_visited": result.TotalVisited,
		"area_deg2":     planar.Area(poly),
	}
	centroid, _ := planar.CentroidArea(poly)
	feature.Properties["centroid"] = []float64{centroid[0], centroid[1]}
	return feature
}
