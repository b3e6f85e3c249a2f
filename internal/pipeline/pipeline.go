// Package pipeline orchestrates the identify and analyse stages over a
// shared engine capability and persists run records.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/seabed-analytics/pockmark-cli/internal/assemble"
	"github.com/seabed-analytics/pockmark-cli/internal/config"
	"github.com/seabed-analytics/pockmark-cli/internal/depth"
	"github.com/seabed-analytics/pockmark-cli/internal/engine"
	"github.com/seabed-analytics/pockmark-cli/internal/extract"
	"github.com/seabed-analytics/pockmark-cli/internal/model"
	"github.com/seabed-analytics/pockmark-cli/internal/morph"
	"github.com/seabed-analytics/pockmark-cli/internal/raster"
	"github.com/seabed-analytics/pockmark-cli/internal/store"
)

// Pipeline wires the extraction and characterization stages together.
type Pipeline struct {
	cfg   *config.Config
	store store.Store
	eng   engine.Engine
}

// New creates a Pipeline.
func New(cfg *config.Config, st store.Store, eng engine.Engine) *Pipeline {
	return &Pipeline{cfg: cfg, store: st, eng: eng}
}

// Result carries the outputs of a pipeline invocation.
type Result struct {
	Run        *model.Run
	Candidates []extract.Candidate
	Features   *model.FeatureSet
	Skipped    []model.DegenerateGeometryError
}

// Identify extracts depression shells from a bathymetric grid.
func (p *Pipeline) Identify(ctx context.Context, bathy *raster.Grid, source string) (*Result, error) {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("source", source))

	if err := extract.ValidateNegative(bathy); err != nil {
		return nil, err
	}

	run, err := p.createRun(ctx, "identify", source, bathy.CellSize)
	if err != nil {
		return nil, err
	}
	result := &Result{Run: run}

	release, err := p.checkout(ctx)
	if err != nil {
		p.setStatus(ctx, run.ID, model.RunStatusFailed)
		return result, err
	}
	defer release()

	if err := p.extractStage(ctx, log, run, bathy, result); err != nil {
		p.setStatus(ctx, run.ID, model.RunStatusFailed)
		return result, err
	}

	counts := model.RunCounts{Polygons: len(result.Candidates)}
	p.completeRun(ctx, log, run, counts)

	log.Info("identify complete", zap.String("run_id", run.ID), zap.Int("shells", len(result.Candidates)))
	return result, nil
}

// Analyse characterizes depression shells against their source raster and
// assembles the three correlated layers.
func (p *Pipeline) Analyse(ctx context.Context, inputs []morph.Input, bathy *raster.Grid, source string) (*Result, error) {
	if err := extract.ValidateNegative(bathy); err != nil {
		return nil, err
	}

	run, err := p.createRun(ctx, "analyse", source, bathy.CellSize)
	if err != nil {
		return nil, err
	}

	release, err := p.checkout(ctx)
	if err != nil {
		p.setStatus(ctx, run.ID, model.RunStatusFailed)
		return &Result{Run: run}, err
	}
	defer release()

	result, err := p.analyse(ctx, run, inputs, bathy)
	if err != nil {
		p.setStatus(ctx, run.ID, model.RunStatusFailed)
	}
	return result, err
}

// Run extracts and analyses in one invocation, holding the engine
// capability for the whole run.
func (p *Pipeline) Run(ctx context.Context, bathy *raster.Grid, source string) (*Result, error) {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("source", source))

	if err := extract.ValidateNegative(bathy); err != nil {
		return nil, err
	}

	run, err := p.createRun(ctx, "run", source, bathy.CellSize)
	if err != nil {
		return nil, err
	}
	result := &Result{Run: run}

	release, err := p.checkout(ctx)
	if err != nil {
		p.setStatus(ctx, run.ID, model.RunStatusFailed)
		return result, err
	}
	defer release()

	if err := p.extractStage(ctx, log, run, bathy, result); err != nil {
		p.setStatus(ctx, run.ID, model.RunStatusFailed)
		return result, err
	}

	analysed, err := p.analyse(ctx, run, CandidateInputs(result.Candidates), bathy)
	if err != nil {
		p.setStatus(ctx, run.ID, model.RunStatusFailed)
		return result, err
	}
	result.Features = analysed.Features
	result.Skipped = analysed.Skipped
	return result, nil
}

// CandidateInputs converts extracted depression shells into analysis inputs.
func CandidateInputs(cands []extract.Candidate) []morph.Input {
	inputs := make([]morph.Input, 0, len(cands))
	for _, c := range cands {
		inputs = append(inputs, morph.Input{Geometry: c.Geometry, DepthM: c.DepthM})
	}
	return inputs
}

// extractStage runs depression extraction and stores the shells on result.
func (p *Pipeline) extractStage(ctx context.Context, log *zap.Logger, run *model.Run, bathy *raster.Grid, result *Result) error {
	p.setStatus(ctx, run.ID, model.RunStatusExtracting)
	return p.stage(log, "extract", func() error {
		cands, err := extract.Depressions(p.eng, bathy, extract.Params{
			ZLimit:  p.cfg.Extract.ZLimit,
			MaxArea: p.cfg.Extract.MaxAreaM2,
		})
		result.Candidates = cands
		return err
	})
}

// analyse runs the characterize, locate, and assemble stages. The caller
// owns the engine capability and marks the run failed on error.
func (p *Pipeline) analyse(ctx context.Context, run *model.Run, inputs []morph.Input, bathy *raster.Grid) (*Result, error) {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("run_id", run.ID))
	result := &Result{Run: run}

	var survivors []model.Depression
	p.setStatus(ctx, run.ID, model.RunStatusCharacterizing)
	err := p.stage(log, "characterize", func() error {
		c := morph.NewCharacterizer(p.eng, morph.WithWorkers(p.cfg.Analyse.Workers))
		var chErr error
		survivors, result.Skipped, chErr = c.Characterize(ctx, inputs, bathy.CellSize)
		return chErr
	})
	if err != nil {
		return result, err
	}

	var located []model.DeepestPoint
	p.setStatus(ctx, run.ID, model.RunStatusLocatingDepth)
	err = p.stage(log, "locate_depth", func() error {
		zones := make([]*geom.Polygon, 0, len(survivors))
		for i := range survivors {
			zones = append(zones, survivors[i].Geometry)
		}
		var locErr error
		located, locErr = depth.Locate(p.eng, bathy, zones)
		return locErr
	})
	if err != nil {
		return result, err
	}

	p.setStatus(ctx, run.ID, model.RunStatusAssembling)
	err = p.stage(log, "assemble", func() error {
		fs, asErr := assemble.Features(p.eng, survivors, located)
		result.Features = fs
		return asErr
	})
	if err != nil {
		return result, err
	}

	err = p.stage(log, "persist", func() error {
		return p.store.SaveFeatures(ctx, run.ID, result.Features)
	})
	if err != nil {
		return result, err
	}

	counts := model.RunCounts{
		Polygons:      len(result.Features.Polygons),
		DeepestPoints: len(result.Features.DeepestPoints),
		Centroids:     len(result.Features.Centroids),
		Skipped:       len(result.Skipped),
	}
	p.completeRun(ctx, log, run, counts)

	log.Info("analyse complete",
		zap.Int("depressions", counts.Polygons),
		zap.Int("skipped", counts.Skipped),
	)
	return result, nil
}

// stage runs one pipeline stage with timing logs.
func (p *Pipeline) stage(log *zap.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start).Milliseconds()

	if err != nil {
		log.Error("stage failed",
			zap.String("stage", name),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
		return err
	}
	log.Info("stage complete",
		zap.String("stage", name),
		zap.Int64("duration_ms", duration),
	)
	return nil
}

func (p *Pipeline) createRun(ctx context.Context, kind, source string, cellSize float64) (*model.Run, error) {
	run, err := p.store.CreateRun(ctx, kind, source, model.RunParams{
		ZLimit:    p.cfg.Extract.ZLimit,
		MaxAreaM2: p.cfg.Extract.MaxAreaM2,
		CellSize:  cellSize,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	return run, nil
}

func (p *Pipeline) checkout(ctx context.Context) (func(), error) {
	release, err := p.eng.Checkout(ctx)
	if err != nil {
		return nil, eris.Wrapf(model.ErrLicenseUnavailable, "pipeline: %v", err)
	}
	return release, nil
}

func (p *Pipeline) setStatus(ctx context.Context, runID string, status model.RunStatus) {
	if err := p.store.UpdateRunStatus(ctx, runID, status); err != nil {
		zap.L().Warn("pipeline: run status not updated",
			zap.String("run_id", runID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (p *Pipeline) completeRun(ctx context.Context, log *zap.Logger, run *model.Run, counts model.RunCounts) {
	if err := p.store.CompleteRun(ctx, run.ID, counts); err != nil {
		log.Warn("run record not completed", zap.Error(err))
	}
	run.Status = model.RunStatusComplete
	run.Counts = &counts
}
