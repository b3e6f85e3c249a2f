package engine

import (
	"math"

	geom "github.com/twpayne/go-geom"
)

// ringArea returns the signed shoelace area of a ring. Positive for
// counterclockwise rings. The ring may be open or closed.
func ringArea(ring []geom.Coord) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	return sum / 2
}

// ringLength returns the closed perimeter of a ring.
func ringLength(ring []geom.Coord) float64 {
	n := len(ring)
	if n < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += math.Hypot(ring[j][0]-ring[i][0], ring[j][1]-ring[i][1])
	}
	return sum
}

// PolygonArea returns the planar area of p, holes subtracted.
func PolygonArea(p *geom.Polygon) float64 {
	coords := p.Coords()
	if len(coords) == 0 {
		return 0
	}
	area := math.Abs(ringArea(coords[0]))
	for _, hole := range coords[1:] {
		area -= math.Abs(ringArea(hole))
	}
	if area < 0 {
		return 0
	}
	return area
}

// PolygonPerimeter returns the length of the outer ring of p.
func PolygonPerimeter(p *geom.Polygon) float64 {
	coords := p.Coords()
	if len(coords) == 0 {
		return 0
	}
	return ringLength(coords[0])
}

// pointInRing reports whether (x, y) falls inside the ring by ray casting.
// Points exactly on the boundary may land on either side; cell centers
// never coincide with traced cell edges, so the ambiguity is harmless here.
func pointInRing(ring []geom.Coord, x, y float64) bool {
	n := len(ring)
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// PointInPolygon reports whether (x, y) falls inside p: within the outer
// ring and outside every hole.
func PointInPolygon(p *geom.Polygon, x, y float64) bool {
	coords := p.Coords()
	if len(coords) == 0 {
		return false
	}
	if !pointInRing(coords[0], x, y) {
		return false
	}
	for _, hole := range coords[1:] {
		if pointInRing(hole, x, y) {
			return false
		}
	}
	return true
}
