package search

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"

	"cphhousing/internal/dataset"
	"cphhousing/internal/models"
)

// site is one distinct coordinate in the pool and the rows sold there.
type site struct {
	point orb.Point
	rows  []int
}

func (s *site) Point() orb.Point {
	return s.point
}

// Index is a shrinking pool of sales searchable by proximity.
type Index struct {
	tree     *quadtree.Quadtree
	sites    map[models.SearchPoint]*site
	byLat    map[float64]int
	rows     int
	tieLimit int
}

// NewIndex indexes every row of apartments. tieLimit bounds how many
// equidistant coordinates a single Nearest call can return.
func NewIndex(apartments dataset.Apartments, tieLimit int) *Index {
	if tieLimit < 1 {
		tieLimit = 1
	}

	idx := &Index{
		sites:    make(map[models.SearchPoint]*site),
		byLat:    make(map[float64]int),
		rows:     len(apartments),
		tieLimit: tieLimit,
	}

	var bound orb.Bound
	for i := range apartments {
		a := &apartments[i]
		key := models.SearchPoint{Longitude: a.Longitude, Latitude: a.Latitude}
		s, ok := idx.sites[key]
		if !ok {
			s = &site{point: a.Point()}
			idx.sites[key] = s
			if len(idx.sites) == 1 {
				bound = s.point.Bound()
			} else {
				bound = bound.Extend(s.point)
			}
		}
		s.rows = append(s.rows, i)
		idx.byLat[a.Latitude]++
	}

	idx.tree = quadtree.New(bound.Pad(0.001))
	for _, s := range idx.sites {
		// cannot fail, the bound covers every site
		_ = idx.tree.Add(s)
	}
	return idx
}

// Len returns the number of rows left in the pool.
func (idx *Index) Len() int {
	return idx.rows
}

// Nearest returns the rows at the coordinate closest to p, together with
// any other coordinate at exactly the same distance. Rows are ordered by
// distance, then by their position in the table.
func (idx *Index) Nearest(p orb.Point) []int {
	if len(idx.sites) == 0 {
		return nil
	}

	found := idx.tree.KNearest(nil, p, idx.tieLimit)
	if len(found) == 0 {
		return nil
	}

	sites := make([]*site, len(found))
	for i, f := range found {
		sites[i] = f.(*site)
	}
	sort.Slice(sites, func(i, j int) bool {
		di := planar.DistanceSquared(sites[i].point, p)
		dj := planar.DistanceSquared(sites[j].point, p)
		if di != dj {
			return di < dj
		}
		return sites[i].rows[0] < sites[j].rows[0]
	})

	best := planar.DistanceSquared(sites[0].point, p)
	var rows []int
	for _, s := range sites {
		if planar.DistanceSquared(s.point, p) > best {
			break
		}
		rows = append(rows, s.rows...)
	}
	return rows
}

// Remove drops every row sold at p from the pool.
func (idx *Index) Remove(p models.SearchPoint) bool {
	s, ok := idx.sites[p]
	if !ok {
		return false
	}

	idx.tree.Remove(s, func(other orb.Pointer) bool {
		return other == orb.Pointer(s)
	})
	delete(idx.sites, p)

	idx.rows -= len(s.rows)
	idx.byLat[p.Latitude] -= len(s.rows)
	if idx.byLat[p.Latitude] <= 0 {
		delete(idx.byLat, p.Latitude)
	}
	return true
}

// CountAt returns the number of pool rows sold at exactly p.
func (idx *Index) CountAt(p models.SearchPoint) int {
	if s, ok := idx.sites[p]; ok {
		return len(s.rows)
	}
	return 0
}

// CountLegacy reproduces the historical unit count: pool rows whose
// latitude equals either the latitude or the longitude of p.
func (idx *Index) CountLegacy(p models.SearchPoint) int {
	n := idx.byLat[p.Latitude]
	if p.Longitude != p.Latitude {
		n += idx.byLat[p.Longitude]
	}
	return n
}

func orbPoint(p models.SearchPoint) orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}
