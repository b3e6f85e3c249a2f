// Package assemble correlates the polygon, deepest-point, and centroid
// layers into one feature set with a congruent DepID space.
package assemble

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/seabed-analytics/pockmark-cli/internal/engine"
	"github.com/seabed-analytics/pockmark-cli/internal/model"
)

// Features spatially joins each located deepest point onto its containing
// depression polygon, keeps at most one point per DepID (first
// encountered), and derives a centroid per polygon. Points falling outside
// every polygon are discarded; a polygon without any deepest point is
// reported but kept.
func Features(eng engine.Engine, polygons []model.Depression, located []model.DeepestPoint) (*model.FeatureSet, error) {
	log := zap.L().With(zap.String("component", "assemble"))

	fs := &model.FeatureSet{Polygons: polygons}

	// Spatial join with first-wins dedup per depression.
	claimed := make(map[int]bool, len(polygons))
	for _, pt := range located {
		for i := range polygons {
			if !engine.PointInPolygon(polygons[i].Geometry, pt.X, pt.Y) {
				continue
			}
			id := polygons[i].DepID
			if claimed[id] {
				break
			}
			claimed[id] = true
			pt.DepID = id
			fs.DeepestPoints = append(fs.DeepestPoints, pt)
			break
		}
	}
	sort.Slice(fs.DeepestPoints, func(i, j int) bool {
		return fs.DeepestPoints[i].DepID < fs.DeepestPoints[j].DepID
	})

	for i := range polygons {
		if !claimed[polygons[i].DepID] {
			log.Warn("depression has no deepest point after join",
				zap.Int("dep_id", polygons[i].DepID))
		}
	}

	// Centroid layer.
	for i := range polygons {
		c, err := eng.FeatureToPoint(polygons[i].Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "assemble: centroid for depression %d", polygons[i].DepID)
		}
		fs.Centroids = append(fs.Centroids, model.CentroidPoint{
			DepID: polygons[i].DepID,
			X:     c[0],
			Y:     c[1],
		})
	}

	log.Debug("feature set assembled",
		zap.Int("polygons", len(fs.Polygons)),
		zap.Int("deepest_points", len(fs.DeepestPoints)),
		zap.Int("centroids", len(fs.Centroids)),
	)
	return fs, nil
}
