package engine

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
)

// MinimumBoundingRectangle implements Engine using rotating calipers over
// the convex hull of the outer ring. The four corners are returned in
// traversal order, so corners 0-1 and 1-2 are adjacent edges whose lengths
// are the rectangle's side lengths.
func (m *Memory) MinimumBoundingRectangle(p *geom.Polygon) ([4]geom.Coord, error) {
	var corners [4]geom.Coord
	if p == nil || p.NumLinearRings() == 0 {
		return corners, eris.New("engine: minimum bounding rectangle: empty polygon")
	}

	hull := convexHull(p.Coords()[0])
	switch len(hull) {
	case 0:
		return corners, eris.New("engine: minimum bounding rectangle: no vertices")
	case 1:
		for i := range corners {
			corners[i] = geom.Coord{hull[0][0], hull[0][1]}
		}
		return corners, nil
	}

	bestArea := math.Inf(1)
	for i := 0; i < len(hull); i++ {
		j := (i + 1) % len(hull)
		ex, ey := hull[j][0]-hull[i][0], hull[j][1]-hull[i][1]
		length := math.Hypot(ex, ey)
		if length == 0 {
			continue
		}
		ux, uy := ex/length, ey/length // along the edge
		nx, ny := -uy, ux              // outward normal

		minU, maxU := math.Inf(1), math.Inf(-1)
		minN, maxN := math.Inf(1), math.Inf(-1)
		for _, c := range hull {
			u := c[0]*ux + c[1]*uy
			n := c[0]*nx + c[1]*ny
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minN, maxN = math.Min(minN, n), math.Max(maxN, n)
		}

		area := (maxU - minU) * (maxN - minN)
		if area < bestArea {
			bestArea = area
			corners = [4]geom.Coord{
				{minU*ux + minN*nx, minU*uy + minN*ny},
				{maxU*ux + minN*nx, maxU*uy + minN*ny},
				{maxU*ux + maxN*nx, maxU*uy + maxN*ny},
				{minU*ux + maxN*nx, minU*uy + maxN*ny},
			}
		}
	}

	return corners, nil
}

// convexHull returns the hull of the ring vertices in counterclockwise
// order without the closing repeat (Andrew's monotone chain).
func convexHull(ring []geom.Coord) []geom.Coord {
	pts := make([]geom.Coord, 0, len(ring))
	seen := make(map[[2]float64]bool, len(ring))
	for _, c := range ring {
		key := [2]float64{c[0], c[1]}
		if !seen[key] {
			seen[key] = true
			pts = append(pts, geom.Coord{c[0], c[1]})
		}
	}
	if len(pts) < 3 {
		return pts
	}

	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	cross := func(o, a, b geom.Coord) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}

	var lower, upper []geom.Coord
	for _, pt := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], pt) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, pt)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		pt := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], pt) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, pt)
	}

	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 2 {
		// Collinear input collapses to its extremes.
		return []geom.Coord{pts[0], pts[len(pts)-1]}
	}
	return hull
}
