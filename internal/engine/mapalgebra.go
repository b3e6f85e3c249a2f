package engine

import (
	"github.com/rotisserie/eris"

	"github.com/seabed-analytics/pockmark-cli/internal/raster"
)

// Subtract implements Engine.
func (m *Memory) Subtract(a, b *raster.Grid) (*raster.Grid, error) {
	if a == nil || b == nil {
		return nil, eris.New("engine: subtract: nil raster")
	}
	if a.Rows != b.Rows || a.Cols != b.Cols {
		return nil, eris.Errorf("engine: subtract: shape mismatch %dx%d vs %dx%d",
			a.Rows, a.Cols, b.Rows, b.Cols)
	}

	out := a.Like()
	for i := range a.Data {
		if a.Data[i] == a.NoData || b.Data[i] == b.NoData {
			continue
		}
		out.Data[i] = a.Data[i] - b.Data[i]
	}
	return out, nil
}

// Reclassify implements Engine. The first matching remap wins; cells
// matching no range become no-data.
func (m *Memory) Reclassify(g *raster.Grid, remaps []Remap) (*raster.Grid, error) {
	if g == nil {
		return nil, eris.New("engine: reclassify: nil raster")
	}
	if len(remaps) == 0 {
		return nil, eris.New("engine: reclassify: no remap ranges")
	}

	out := g.Like()
	for i, v := range g.Data {
		if v == g.NoData {
			continue
		}
		for _, rm := range remaps {
			if v >= rm.Min && v <= rm.Max {
				out.Data[i] = rm.Class
				break
			}
		}
	}
	return out, nil
}
