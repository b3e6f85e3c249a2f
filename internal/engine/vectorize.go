package engine

import (
	"sort"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"

	"github.com/seabed-analytics/pockmark-cli/internal/raster"
)

// vertex is a corner of the cell lattice: vx counts cell columns from the
// west edge, vy counts cell rows from the south edge.
type vertex struct {
	vx, vy int
}

// RasterToPolygons implements Engine. Contiguous (4-connected) cells with
// equal values become one polygon each; cell edges are traced exactly, with
// the outer ring counterclockwise and holes as interior rings. Components
// are emitted in row-major discovery order, which fixes downstream
// identifier assignment.
func (m *Memory) RasterToPolygons(g *raster.Grid) ([]*geom.Polygon, error) {
	if g == nil {
		return nil, eris.New("engine: raster to polygons: nil raster")
	}

	labels := make([]int, len(g.Data)) // 0 = unlabeled
	nextLabel := 0
	var components [][]int

	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			idx := r*g.Cols + c
			if labels[idx] != 0 || g.Data[idx] == g.NoData {
				continue
			}
			nextLabel++
			value := g.Data[idx]
			component := []int{idx}
			labels[idx] = nextLabel
			for i := 0; i < len(component); i++ {
				cr, cc := component[i]/g.Cols, component[i]%g.Cols
				for _, d := range neighbors4 {
					nr, nc := cr+d[0], cc+d[1]
					if !g.InBounds(nr, nc) {
						continue
					}
					nidx := nr*g.Cols + nc
					if labels[nidx] != 0 || g.Data[nidx] != value {
						continue
					}
					labels[nidx] = nextLabel
					component = append(component, nidx)
				}
			}
			components = append(components, component)
		}
	}

	polys := make([]*geom.Polygon, 0, len(components))
	for _, component := range components {
		poly, err := traceComponent(g, labels, component)
		if err != nil {
			return nil, err
		}
		polys = append(polys, poly)
	}
	return polys, nil
}

// traceComponent chains the boundary edges of one labeled component into
// rings. Edges are oriented with the region interior on the left, so the
// outer ring comes out counterclockwise and holes clockwise.
func traceComponent(g *raster.Grid, labels []int, component []int) (*geom.Polygon, error) {
	label := labels[component[0]]
	inComp := func(r, c int) bool {
		return g.InBounds(r, c) && labels[r*g.Cols+c] == label
	}

	// Directed boundary edges keyed by start vertex.
	edges := make(map[vertex][]vertex)
	addEdge := func(from, to vertex) {
		edges[from] = append(edges[from], to)
	}

	for _, idx := range component {
		r, c := idx/g.Cols, idx%g.Cols
		top := g.Rows - r
		bottom := top - 1
		left, right := c, c+1

		if !inComp(r-1, c) { // north side
			addEdge(vertex{right, top}, vertex{left, top})
		}
		if !inComp(r+1, c) { // south side
			addEdge(vertex{left, bottom}, vertex{right, bottom})
		}
		if !inComp(r, c-1) { // west side
			addEdge(vertex{left, top}, vertex{left, bottom})
		}
		if !inComp(r, c+1) { // east side
			addEdge(vertex{right, bottom}, vertex{right, top})
		}
	}

	// Deterministic ring starts: lexicographic vertex order.
	starts := make([]vertex, 0, len(edges))
	for v := range edges {
		starts = append(starts, v)
	}
	sort.Slice(starts, func(i, j int) bool {
		if starts[i].vx != starts[j].vx {
			return starts[i].vx < starts[j].vx
		}
		return starts[i].vy < starts[j].vy
	})

	toCoord := func(v vertex) geom.Coord {
		return geom.Coord{
			g.XMin + float64(v.vx)*g.CellSize,
			g.YMin + float64(v.vy)*g.CellSize,
		}
	}

	var rings [][]geom.Coord
	for _, start := range starts {
		if len(edges[start]) == 0 {
			continue
		}
		ring := []geom.Coord{toCoord(start)}
		cur := start
		for {
			outs := edges[cur]
			if len(outs) == 0 {
				return nil, eris.New("engine: raster to polygons: open boundary chain")
			}
			next := outs[0]
			edges[cur] = outs[1:]
			ring = append(ring, toCoord(next))
			cur = next
			if cur == start {
				break
			}
		}
		rings = append(rings, ring)
	}

	if len(rings) == 0 {
		return nil, eris.New("engine: raster to polygons: component produced no rings")
	}

	// Outer ring first (positive shoelace area), then holes.
	sort.SliceStable(rings, func(i, j int) bool {
		return ringArea(rings[i]) > ringArea(rings[j])
	})

	poly := geom.NewPolygon(geom.XY)
	if _, err := poly.SetCoords(rings); err != nil {
		return nil, eris.Wrap(err, "engine: raster to polygons: build polygon")
	}
	return poly, nil
}
