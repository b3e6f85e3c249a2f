package engine

import (
	"container/heap"

	"github.com/rotisserie/eris"

	"github.com/seabed-analytics/pockmark-cli/internal/raster"
)

// neighbor offsets, 8-connected, for hydrological fill.
var neighbors8 = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// neighbor offsets, 4-connected, for region operations.
var neighbors4 = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

type fillCell struct {
	idx int
	z   float64
}

type fillHeap []fillCell

func (h fillHeap) Len() int { return len(h) }
func (h fillHeap) Less(i, j int) bool {
	if h[i].z != h[j].z {
		return h[i].z < h[j].z
	}
	return h[i].idx < h[j].idx
}
func (h fillHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *fillHeap) Push(x any)        { *h = append(*h, x.(fillCell)) }
func (h *fillHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// Fill implements Engine using a priority-flood sweep from the grid
// boundary inward. Every sink is first leveled to its spill elevation;
// afterwards any depression deeper than zLimit is reverted to the original
// surface, so only depressions no deeper than the limit stay filled.
func (m *Memory) Fill(g *raster.Grid, zLimit float64) (*raster.Grid, error) {
	if g == nil || len(g.Data) == 0 {
		return nil, eris.New("engine: fill: empty raster")
	}

	filled := g.Clone()
	closed := make([]bool, len(g.Data))

	h := &fillHeap{}
	heap.Init(h)

	push := func(r, c int) {
		idx := r*g.Cols + c
		if closed[idx] {
			return
		}
		closed[idx] = true
		heap.Push(h, fillCell{idx: idx, z: filled.Data[idx]})
	}

	// Seed with the data boundary: grid-edge cells and cells adjacent to
	// no-data, since water can drain off both.
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if !g.Valid(r, c) {
				closed[r*g.Cols+c] = true
				continue
			}
			if r == 0 || r == g.Rows-1 || c == 0 || c == g.Cols-1 {
				push(r, c)
				continue
			}
			for _, d := range neighbors8 {
				if !g.Valid(r+d[0], c+d[1]) {
					push(r, c)
					break
				}
			}
		}
	}

	for h.Len() > 0 {
		cell := heap.Pop(h).(fillCell)
		r, c := cell.idx/g.Cols, cell.idx%g.Cols
		for _, d := range neighbors8 {
			nr, nc := r+d[0], c+d[1]
			if !g.InBounds(nr, nc) {
				continue
			}
			nidx := nr*g.Cols + nc
			if closed[nidx] {
				continue
			}
			closed[nidx] = true
			if filled.Data[nidx] < cell.z {
				filled.Data[nidx] = cell.z
			}
			heap.Push(h, fillCell{idx: nidx, z: filled.Data[nidx]})
		}
	}

	if zLimit > 0 {
		revertDeepSinks(g, filled, zLimit)
	}

	return filled, nil
}

// revertDeepSinks restores the original surface inside every filled
// depression whose maximum fill depth exceeds zLimit.
func revertDeepSinks(orig, filled *raster.Grid, zLimit float64) {
	visited := make([]bool, len(orig.Data))

	raised := func(idx int) bool {
		return orig.Data[idx] != orig.NoData && filled.Data[idx] > orig.Data[idx]
	}

	for start := range orig.Data {
		if visited[start] || !raised(start) {
			continue
		}

		// Flood the connected raised component and track its depth.
		component := []int{start}
		visited[start] = true
		maxDepth := filled.Data[start] - orig.Data[start]
		for i := 0; i < len(component); i++ {
			idx := component[i]
			r, c := idx/orig.Cols, idx%orig.Cols
			for _, d := range neighbors8 {
				nr, nc := r+d[0], c+d[1]
				if !orig.InBounds(nr, nc) {
					continue
				}
				nidx := nr*orig.Cols + nc
				if visited[nidx] || !raised(nidx) {
					continue
				}
				visited[nidx] = true
				component = append(component, nidx)
				if depth := filled.Data[nidx] - orig.Data[nidx]; depth > maxDepth {
					maxDepth = depth
				}
			}
		}

		if maxDepth > zLimit {
			for _, idx := range component {
				filled.Data[idx] = orig.Data[idx]
			}
		}
	}
}
