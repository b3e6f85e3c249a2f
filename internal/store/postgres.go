package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/seabed-analytics/pockmark-cli/internal/db"
	"github.com/seabed-analytics/pockmark-cli/internal/model"
)

// PostgresStore implements Store using pgxpool against a PostGIS-enabled
// database. Polygon geometries travel as EWKB.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	kind       TEXT NOT NULL,
	source     TEXT NOT NULL,
	params     JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	counts     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS depressions (
	run_id         TEXT NOT NULL REFERENCES runs(id),
	dep_id         INTEGER NOT NULL,
	geom           GEOMETRY(POLYGON) NOT NULL,
	area_m2        DOUBLE PRECISION NOT NULL,
	perimeter_m    DOUBLE PRECISION NOT NULL,
	major_axis_m   DOUBLE PRECISION NOT NULL,
	minor_axis_m   DOUBLE PRECISION NOT NULL,
	eccentricity   DOUBLE PRECISION NOT NULL,
	azimuth_deg    DOUBLE PRECISION NOT NULL,
	thinness_ratio DOUBLE PRECISION NOT NULL,
	depth_m        DOUBLE PRECISION NOT NULL,
	didp_ratio     DOUBLE PRECISION NOT NULL,
	morphology     TEXT NOT NULL,
	PRIMARY KEY (run_id, dep_id)
);

CREATE TABLE IF NOT EXISTS deepest_points (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	dep_id   INTEGER NOT NULL,
	x        DOUBLE PRECISION NOT NULL,
	y        DOUBLE PRECISION NOT NULL,
	depth_m  DOUBLE PRECISION NOT NULL,
	relief_m DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, dep_id)
);

CREATE TABLE IF NOT EXISTS centroids (
	run_id TEXT NOT NULL REFERENCES runs(id),
	dep_id INTEGER NOT NULL,
	x      DOUBLE PRECISION NOT NULL,
	y      DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, dep_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
CREATE INDEX IF NOT EXISTS idx_depressions_geom ON depressions USING GIST(geom);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access (e.g., summary statistics).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

func (s *PostgresStore) CreateRun(ctx context.Context, kind, source string, params model.RunParams) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal params")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, kind, source, params, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, kind, source, paramsJSON, string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Kind:      kind,
		Source:    source,
		Params:    params,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, counts model.RunCounts) error {
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal counts")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET counts = $1, status = $2, updated_at = $3 WHERE id = $4`,
		countsJSON, string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var paramsJSON []byte
	var countsJSON *[]byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, kind, source, params, status, counts, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Kind, &r.Source, &paramsJSON, &r.Status, &countsJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if err := json.Unmarshal(paramsJSON, &r.Params); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal params")
	}
	if countsJSON != nil {
		r.Counts = &model.RunCounts{}
		if err := json.Unmarshal(*countsJSON, r.Counts); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal counts")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, kind, source, params, status, counts, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, argIdx)
		args = append(args, filter.Kind)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var paramsJSON []byte
		var countsJSON *[]byte

		if err := rows.Scan(&r.ID, &r.Kind, &r.Source, &paramsJSON, &r.Status, &countsJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(paramsJSON, &r.Params); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal params")
		}
		if countsJSON != nil {
			r.Counts = &model.RunCounts{}
			if err := json.Unmarshal(*countsJSON, r.Counts); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal counts")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveFeatures(ctx context.Context, runID string, fs *model.FeatureSet) error {
	for _, table := range []string{"depressions", "deepest_points", "centroids"} {
		if _, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE run_id = $1`, runID); err != nil {
			return eris.Wrapf(err, "postgres: clear %s", table)
		}
	}

	for _, d := range fs.Polygons {
		wkb, err := ewkb.Marshal(d.Geometry, ewkb.NDR)
		if err != nil {
			return eris.Wrapf(err, "postgres: encode depression %d", d.DepID)
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO depressions
			 (run_id, dep_id, geom, area_m2, perimeter_m, major_axis_m, minor_axis_m,
			  eccentricity, azimuth_deg, thinness_ratio, depth_m, didp_ratio, morphology)
			 VALUES ($1, $2, ST_GeomFromEWKB($3), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			runID, d.DepID, wkb, d.AreaM2, d.PerimeterM, d.MajorAxisM, d.MinorAxisM,
			d.Eccentricity, d.AzimuthDeg, d.ThinnessRatio, d.DepthM, d.DiameterDepthRatio, string(d.Morphology),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert depression %d", d.DepID)
		}
	}

	if len(fs.DeepestPoints) > 0 {
		rows := make([][]any, 0, len(fs.DeepestPoints))
		for _, p := range fs.DeepestPoints {
			rows = append(rows, []any{runID, p.DepID, p.X, p.Y, p.DepthM, p.ReliefM})
		}
		if _, err := db.CopyFrom(ctx, s.pool, "deepest_points",
			[]string{"run_id", "dep_id", "x", "y", "depth_m", "relief_m"}, rows); err != nil {
			return eris.Wrap(err, "postgres: copy deepest points")
		}
	}

	if len(fs.Centroids) > 0 {
		rows := make([][]any, 0, len(fs.Centroids))
		for _, c := range fs.Centroids {
			rows = append(rows, []any{runID, c.DepID, c.X, c.Y})
		}
		if _, err := db.CopyFrom(ctx, s.pool, "centroids",
			[]string{"run_id", "dep_id", "x", "y"}, rows); err != nil {
			return eris.Wrap(err, "postgres: copy centroids")
		}
	}

	return nil
}

func (s *PostgresStore) LoadFeatures(ctx context.Context, runID string) (*model.FeatureSet, error) {
	fs := &model.FeatureSet{}

	rows, err := s.pool.Query(ctx,
		`SELECT dep_id, ST_AsEWKB(geom), area_m2, perimeter_m, major_axis_m, minor_axis_m,
		        eccentricity, azimuth_deg, thinness_ratio, depth_m, didp_ratio, morphology
		 FROM depressions WHERE run_id = $1 ORDER BY dep_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load depressions")
	}
	defer rows.Close()

	for rows.Next() {
		var d model.Depression
		var wkb []byte
		var morphology string
		if err := rows.Scan(&d.DepID, &wkb, &d.AreaM2, &d.PerimeterM, &d.MajorAxisM, &d.MinorAxisM,
			&d.Eccentricity, &d.AzimuthDeg, &d.ThinnessRatio, &d.DepthM, &d.DiameterDepthRatio, &morphology); err != nil {
			return nil, eris.Wrap(err, "postgres: scan depression")
		}
		g, err := ewkb.Unmarshal(wkb)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: decode depression %d", d.DepID)
		}
		poly, ok := g.(*geom.Polygon)
		if !ok {
			return nil, eris.Errorf("postgres: depression %d is not a polygon", d.DepID)
		}
		d.Geometry = poly
		d.Morphology = model.Morphology(morphology)
		fs.Polygons = append(fs.Polygons, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate depressions")
	}

	ptRows, err := s.pool.Query(ctx,
		`SELECT dep_id, x, y, depth_m, relief_m FROM deepest_points WHERE run_id = $1 ORDER BY dep_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load deepest points")
	}
	defer ptRows.Close()

	for ptRows.Next() {
		var p model.DeepestPoint
		if err := ptRows.Scan(&p.DepID, &p.X, &p.Y, &p.DepthM, &p.ReliefM); err != nil {
			return nil, eris.Wrap(err, "postgres: scan deepest point")
		}
		fs.DeepestPoints = append(fs.DeepestPoints, p)
	}
	if err := ptRows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate deepest points")
	}

	cRows, err := s.pool.Query(ctx,
		`SELECT dep_id, x, y FROM centroids WHERE run_id = $1 ORDER BY dep_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load centroids")
	}
	defer cRows.Close()

	for cRows.Next() {
		var c model.CentroidPoint
		if err := cRows.Scan(&c.DepID, &c.X, &c.Y); err != nil {
			return nil, eris.Wrap(err, "postgres: scan centroid")
		}
		fs.Centroids = append(fs.Centroids, c)
	}
	return fs, eris.Wrap(cRows.Err(), "postgres: iterate centroids")
}

// NotFound reports whether err represents a missing row.
func NotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
