package store

import (
	"context"

	"github.com/seabed-analytics/pockmark-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Kind   string          `json:"kind,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for pockmark runs and their
// three feature layers.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, kind, source string, params model.RunParams) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, counts model.RunCounts) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Features
	SaveFeatures(ctx context.Context, runID string, fs *model.FeatureSet) error
	LoadFeatures(ctx context.Context, runID string) (*model.FeatureSet, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
