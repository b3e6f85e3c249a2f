package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	_ "modernc.org/sqlite"

	"github.com/seabed-analytics/pockmark-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Geometries are
// stored as GeoJSON text.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	source     TEXT NOT NULL,
	params     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	counts     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS depressions (
	run_id         TEXT NOT NULL REFERENCES runs(id),
	dep_id         INTEGER NOT NULL,
	geometry       TEXT NOT NULL,
	area_m2        REAL NOT NULL,
	perimeter_m    REAL NOT NULL,
	major_axis_m   REAL NOT NULL,
	minor_axis_m   REAL NOT NULL,
	eccentricity   REAL NOT NULL,
	azimuth_deg    REAL NOT NULL,
	thinness_ratio REAL NOT NULL,
	depth_m        REAL NOT NULL,
	didp_ratio     REAL NOT NULL,
	morphology     TEXT NOT NULL,
	PRIMARY KEY (run_id, dep_id)
);

CREATE TABLE IF NOT EXISTS deepest_points (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	dep_id   INTEGER NOT NULL,
	x        REAL NOT NULL,
	y        REAL NOT NULL,
	depth_m  REAL NOT NULL,
	relief_m REAL NOT NULL,
	PRIMARY KEY (run_id, dep_id)
);

CREATE TABLE IF NOT EXISTS centroids (
	run_id TEXT NOT NULL REFERENCES runs(id),
	dep_id INTEGER NOT NULL,
	x      REAL NOT NULL,
	y      REAL NOT NULL,
	PRIMARY KEY (run_id, dep_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, kind, source string, params model.RunParams) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal params")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, source, params, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, kind, source, string(paramsJSON), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, counts model.RunCounts) error {
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal counts")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET counts = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(countsJSON), string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, source, params, status, counts, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, kind, source, params, status, counts, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, filter.Kind)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveFeatures(ctx context.Context, runID string, fs *model.FeatureSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save features")
	}
	defer tx.Rollback()

	// Re-saving a run replaces its layers.
	for _, table := range []string{"depressions", "deepest_points", "centroids"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, runID); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", table)
		}
	}

	for _, d := range fs.Polygons {
		gj, err := geojson.Marshal(d.Geometry)
		if err != nil {
			return eris.Wrapf(err, "sqlite: encode depression %d", d.DepID)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO depressions
			 (run_id, dep_id, geometry, area_m2, perimeter_m, major_axis_m, minor_axis_m,
			  eccentricity, azimuth_deg, thinness_ratio, depth_m, didp_ratio, morphology)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, d.DepID, string(gj), d.AreaM2, d.PerimeterM, d.MajorAxisM, d.MinorAxisM,
			d.Eccentricity, d.AzimuthDeg, d.ThinnessRatio, d.DepthM, d.DiameterDepthRatio, string(d.Morphology),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert depression %d", d.DepID)
		}
	}

	for _, p := range fs.DeepestPoints {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO deepest_points (run_id, dep_id, x, y, depth_m, relief_m) VALUES (?, ?, ?, ?, ?, ?)`,
			runID, p.DepID, p.X, p.Y, p.DepthM, p.ReliefM,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert deepest point %d", p.DepID)
		}
	}

	for _, c := range fs.Centroids {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO centroids (run_id, dep_id, x, y) VALUES (?, ?, ?, ?)`,
			runID, c.DepID, c.X, c.Y,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert centroid %d", c.DepID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save features")
}

func (s *SQLiteStore) LoadFeatures(ctx context.Context, runID string) (*model.FeatureSet, error) {
	fs := &model.FeatureSet{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT dep_id, geometry, area_m2, perimeter_m, major_axis_m, minor_axis_m,
		        eccentricity, azimuth_deg, thinness_ratio, depth_m, didp_ratio, morphology
		 FROM depressions WHERE run_id = ? ORDER BY dep_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load depressions")
	}
	defer rows.Close()

	for rows.Next() {
		var d model.Depression
		var gj, morphology string
		if err := rows.Scan(&d.DepID, &gj, &d.AreaM2, &d.PerimeterM, &d.MajorAxisM, &d.MinorAxisM,
			&d.Eccentricity, &d.AzimuthDeg, &d.ThinnessRatio, &d.DepthM, &d.DiameterDepthRatio, &morphology); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan depression")
		}
		var g geom.T
		if err := geojson.Unmarshal([]byte(gj), &g); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode depression %d", d.DepID)
		}
		poly, ok := g.(*geom.Polygon)
		if !ok {
			return nil, eris.Errorf("sqlite: depression %d is not a polygon", d.DepID)
		}
		d.Geometry = poly
		d.Morphology = model.Morphology(morphology)
		fs.Polygons = append(fs.Polygons, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate depressions")
	}

	ptRows, err := s.db.QueryContext(ctx,
		`SELECT dep_id, x, y, depth_m, relief_m FROM deepest_points WHERE run_id = ? ORDER BY dep_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load deepest points")
	}
	defer ptRows.Close()

	for ptRows.Next() {
		var p model.DeepestPoint
		if err := ptRows.Scan(&p.DepID, &p.X, &p.Y, &p.DepthM, &p.ReliefM); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan deepest point")
		}
		fs.DeepestPoints = append(fs.DeepestPoints, p)
	}
	if err := ptRows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate deepest points")
	}

	cRows, err := s.db.QueryContext(ctx,
		`SELECT dep_id, x, y FROM centroids WHERE run_id = ? ORDER BY dep_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load centroids")
	}
	defer cRows.Close()

	for cRows.Next() {
		var c model.CentroidPoint
		if err := cRows.Scan(&c.DepID, &c.X, &c.Y); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan centroid")
		}
		fs.Centroids = append(fs.Centroids, c)
	}
	return fs, eris.Wrap(cRows.Err(), "sqlite: iterate centroids")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var paramsJSON string
	var countsJSON sql.NullString

	err := row.Scan(&r.ID, &r.Kind, &r.Source, &paramsJSON, &r.Status, &countsJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(paramsJSON), &r.Params); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal params")
	}
	if countsJSON.Valid {
		r.Counts = &model.RunCounts{}
		if err := json.Unmarshal([]byte(countsJSON.String), r.Counts); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal counts")
		}
	}
	return &r, nil
}
