package engine

import (
	"math"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// SmoothPolygons implements Engine with PAEK-style corner rounding: each
// ring vertex is replaced by a Gaussian-weighted average of the vertices
// within the tolerance distance along the ring. Raster-to-polygon
// stairsteps distort bounding-rectangle axes, so characterization requires
// this pre-step. Polygons whose smoothed area drops below minArea are
// removed.
func (m *Memory) SmoothPolygons(polys []*geom.Polygon, tolerance, minArea float64) ([]*geom.Polygon, error) {
	if tolerance <= 0 {
		return nil, eris.New("engine: smooth polygons: tolerance must be positive")
	}

	out := make([]*geom.Polygon, 0, len(polys))
	for i, p := range polys {
		if p == nil || p.NumLinearRings() == 0 {
			continue
		}

		rings := p.Coords()
		smoothed := make([][]geom.Coord, 0, len(rings))
		for _, ring := range rings {
			smoothed = append(smoothed, smoothRing(ring, tolerance))
		}

		sp := geom.NewPolygon(geom.XY)
		if _, err := sp.SetCoords(smoothed); err != nil {
			return nil, eris.Wrapf(err, "engine: smooth polygons: polygon %d", i)
		}

		if area := PolygonArea(sp); area < minArea {
			zap.L().Debug("engine: dropping under-sized smoothed polygon",
				zap.Int("index", i),
				zap.Float64("area", area),
				zap.Float64("min_area", minArea),
			)
			continue
		}
		out = append(out, sp)
	}
	return out, nil
}

// smoothRing applies the kernel to a closed ring, preserving closure.
func smoothRing(ring []geom.Coord, tolerance float64) []geom.Coord {
	// Work on the open vertex list; the closing repeat is re-added last.
	open := ring
	if len(open) > 1 && open[0][0] == open[len(open)-1][0] && open[0][1] == open[len(open)-1][1] {
		open = open[:len(open)-1]
	}
	n := len(open)
	if n < 3 {
		return closeRing(open)
	}

	// Cumulative chord distances to find the kernel window per vertex.
	segLen := make([]float64, n)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		segLen[i] = math.Hypot(open[j][0]-open[i][0], open[j][1]-open[i][1])
	}

	smoothed := make([]geom.Coord, n)
	for i := 0; i < n; i++ {
		var wx, wy, wsum float64

		accumulate := func(idx int, dist float64) {
			w := math.Exp(-(dist * dist) / (tolerance * tolerance))
			wx += open[idx][0] * w
			wy += open[idx][1] * w
			wsum += w
		}

		accumulate(i, 0)
		// Walk outward in both directions until past the tolerance.
		fwdDist, bwdDist := 0.0, 0.0
		for step := 1; step <= n/2; step++ {
			fwdDist += segLen[(i+step-1+n)%n]
			bwdDist += segLen[(i-step+n)%n]
			if fwdDist > tolerance && bwdDist > tolerance {
				break
			}
			if fwdDist <= tolerance {
				accumulate((i+step)%n, fwdDist)
			}
			if bwdDist <= tolerance {
				accumulate((i-step+n)%n, bwdDist)
			}
		}

		smoothed[i] = geom.Coord{wx / wsum, wy / wsum}
	}

	return closeRing(smoothed)
}

func closeRing(ring []geom.Coord) []geom.Coord {
	if len(ring) == 0 {
		return ring
	}
	first, last := ring[0], ring[len(ring)-1]
	if first[0] == last[0] && first[1] == last[1] {
		return ring
	}
	return append(ring, geom.Coord{first[0], first[1]})
}
