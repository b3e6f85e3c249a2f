package morph

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sync"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seabed-analytics/pockmark-cli/internal/engine"
	"github.com/seabed-analytics/pockmark-cli/internal/extract"
	"github.com/seabed-analytics/pockmark-cli/internal/model"
)

// Input is a depression shell entering characterization: geometry plus the
// depth joined from extraction.
type Input struct {
	Geometry *geom.Polygon
	DepthM   float64
}

// Characterizer computes per-depression morphometric attributes.
type Characterizer struct {
	eng     engine.Engine
	workers int
}

// Option configures a Characterizer.
type Option func(*Characterizer)

// WithWorkers sets the number of polygons characterized concurrently.
func WithWorkers(n int) Option {
	return func(c *Characterizer) {
		if n > 0 {
			c.workers = n
		}
	}
}

// NewCharacterizer creates a Characterizer backed by the given engine.
func NewCharacterizer(eng engine.Engine, opts ...Option) *Characterizer {
	c := &Characterizer{eng: eng, workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Characterize smooths the input polygons, assigns dense DepIDs (1..n, in
// input order) over the survivors, and computes the morphometric attribute
// set per polygon. Degenerate inputs (dropped by smoothing, zero
// perimeter, zero depth, or a collapsed bounding rectangle) are skipped
// and reported rather than failing the run; pre-filter reports carry the
// 1-based input ordinal.
//
// DepID assignment is completed before any parallel work starts. If the
// attribute stage uncovers a degeneracy the survivors are compacted and
// renumbered in input order, so the returned identifier space is dense
// and stable regardless of worker scheduling.
func (c *Characterizer) Characterize(ctx context.Context, inputs []Input, cellSize float64) ([]model.Depression, []model.DegenerateGeometryError, error) {
	if cellSize <= 0 {
		return nil, nil, eris.New("morph: cell size must be positive")
	}

	tolerance := 3 * cellSize
	minArea := extract.MinArea(cellSize)
	log := zap.L().With(zap.String("component", "morph"))

	// Smoothing is a required pre-step: unsmoothed stairstep boundaries
	// bias the bounding-rectangle axes, and with them eccentricity and
	// azimuth.
	var skipped []model.DegenerateGeometryError
	var survivors []model.Depression
	for i, in := range inputs {
		ordinal := i + 1

		smoothed, err := c.eng.SmoothPolygons([]*geom.Polygon{in.Geometry}, tolerance, minArea)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "morph: smooth polygon %d", ordinal)
		}
		if len(smoothed) == 0 {
			skipped = append(skipped, model.DegenerateGeometryError{
				DepID: ordinal, Reason: "below minimum area after smoothing",
			})
			continue
		}
		if engine.PolygonPerimeter(smoothed[0]) == 0 {
			skipped = append(skipped, model.DegenerateGeometryError{
				DepID: ordinal, Reason: "zero-length perimeter",
			})
			continue
		}
		candidate := model.Depression{
			DepID:    len(survivors) + 1,
			Geometry: smoothed[0],
			DepthM:   in.DepthM,
		}
		if !candidate.HasDepth() {
			skipped = append(skipped, model.DegenerateGeometryError{
				DepID: ordinal, Reason: "zero depth",
			})
			continue
		}

		survivors = append(survivors, candidate)
	}

	// Degeneracies discovered during attribute computation are skips too,
	// not run failures. Survivors are renumbered afterwards so the DepID
	// space stays dense.
	var mu sync.Mutex
	degenerate := make(map[int]string)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i := range survivors {
		g.Go(func() error {
			err := c.characterizeOne(&survivors[i])
			var degen *model.DegenerateGeometryError
			if errors.As(err, &degen) {
				mu.Lock()
				degenerate[survivors[i].DepID] = degen.Reason
				mu.Unlock()
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if len(degenerate) > 0 {
		kept := survivors[:0]
		for i := range survivors {
			if reason, ok := degenerate[survivors[i].DepID]; ok {
				skipped = append(skipped, model.DegenerateGeometryError{
					DepID: survivors[i].DepID, Reason: reason,
				})
				continue
			}
			survivors[i].DepID = len(kept) + 1
			kept = append(kept, survivors[i])
		}
		survivors = kept
	}

	for i := range skipped {
		log.Warn("skipping degenerate depression",
			zap.Int("input_ordinal", skipped[i].DepID),
			zap.String("reason", skipped[i].Reason),
		)
	}

	log.Debug("morphometrics computed",
		zap.Int("characterized", len(survivors)),
		zap.Int("skipped", len(skipped)),
	)
	return survivors, skipped, nil
}

// characterizeOne fills in the attribute set of a single depression from
// its smoothed geometry and joined depth.
func (c *Characterizer) characterizeOne(d *model.Depression) error {
	corners, err := c.eng.MinimumBoundingRectangle(d.Geometry)
	if err != nil {
		return eris.Wrapf(err, "morph: bounding rectangle for depression %d", d.DepID)
	}

	distance1 := cornerDistance(corners[0], corners[1])
	distance2 := cornerDistance(corners[1], corners[2])

	var azFrom, azTo geom.Coord
	if distance1 <= distance2 {
		d.MinorAxisM, d.MajorAxisM = distance1, distance2
		azFrom, azTo = corners[1], corners[2]
	} else {
		d.MinorAxisM, d.MajorAxisM = distance2, distance1
		azFrom, azTo = corners[0], corners[1]
	}
	if d.MajorAxisM == 0 {
		return eris.Wrapf(&model.DegenerateGeometryError{DepID: d.DepID, Reason: "zero-length major axis"},
			"morph: depression %d", d.DepID)
	}

	d.AreaM2 = engine.PolygonArea(d.Geometry)
	d.PerimeterM = engine.PolygonPerimeter(d.Geometry)
	d.Eccentricity = Eccentricity(d.MajorAxisM, d.MinorAxisM)
	d.AzimuthDeg = Azimuth(azFrom[0], azFrom[1], azTo[0], azTo[1])
	d.ThinnessRatio = ThinnessRatio(d.AreaM2, d.PerimeterM)

	averageDiameter := (d.MajorAxisM + d.MinorAxisM) / 2
	d.DiameterDepthRatio = DiameterDepthRatio(averageDiameter, d.DepthM)
	d.Morphology = ShapeDescriptor(d.ThinnessRatio, d.DiameterDepthRatio)
	return nil
}

func cornerDistance(a, b geom.Coord) float64 {
	return math.Hypot(b[0]-a[0], b[1]-a[1])
}
