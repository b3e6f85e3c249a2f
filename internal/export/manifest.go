package export

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/seabed-analytics/pockmark-cli/internal/model"
)

// Manifest records what a run produced and where.
type Manifest struct {
	RunID       string          `yaml:"run_id"`
	Kind        string          `yaml:"kind"`
	Source      string          `yaml:"source"`
	Params      model.RunParams `yaml:"params"`
	Counts      model.RunCounts `yaml:"counts"`
	Files       []string        `yaml:"files"`
	GeneratedAt time.Time       `yaml:"generated_at"`
}

// WriteManifest writes the run manifest as YAML.
func WriteManifest(path string, m Manifest) error {
	if m.GeneratedAt.IsZero() {
		m.GeneratedAt = time.Now().UTC()
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "export: marshal manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

// ReadManifest reads a run manifest back.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: read %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "export: parse %s", path)
	}
	return &m, nil
}
