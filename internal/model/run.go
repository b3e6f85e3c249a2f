package model

import "time"

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusExtracting     RunStatus = "extracting"
	RunStatusLocatingDepth  RunStatus = "locating_depth"
	RunStatusCharacterizing RunStatus = "characterizing"
	RunStatusAssembling     RunStatus = "assembling"
	RunStatusExporting      RunStatus = "exporting"
	RunStatusComplete       RunStatus = "complete"
	RunStatusFailed         RunStatus = "failed"
)

// RunParams records the knobs a run was executed with.
type RunParams struct {
	ZLimit    float64 `json:"z_limit" yaml:"z_limit"`
	MaxAreaM2 float64 `json:"max_area_m2" yaml:"max_area_m2"`
	CellSize  float64 `json:"cell_size" yaml:"cell_size"`
}

// RunCounts summarizes a completed run.
type RunCounts struct {
	Polygons      int `json:"polygons" yaml:"polygons"`
	DeepestPoints int `json:"deepest_points" yaml:"deepest_points"`
	Centroids     int `json:"centroids" yaml:"centroids"`
	Skipped       int `json:"skipped" yaml:"skipped"`
}

// Run is a persisted record of one pipeline invocation.
type Run struct {
	ID        string     `json:"id" yaml:"id"`
	Kind      string     `json:"kind" yaml:"kind"` // identify, analyse, run
	Source    string     `json:"source" yaml:"source"`
	Params    RunParams  `json:"params" yaml:"params"`
	Status    RunStatus  `json:"status" yaml:"status"`
	Counts    *RunCounts `json:"counts,omitempty" yaml:"counts,omitempty"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" yaml:"updated_at"`
}
