// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/hnscrape/pkg/types"
)

// Manifest describes a finished run for later cataloguing.
type Manifest struct {
	Summary types.RunSummary   `yaml:"summary"`
	Config  types.ScrapeConfig `yaml:"config"`
	Outputs []string           `yaml:"outputs,omitempty"`
}

// WriteManifest writes m to <dir>/<output-id>.yaml and returns the path.
func WriteManifest(dir string, m Manifest) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}
	data, err := yaml.Marshal(&m)
	if err != nil {
		return "", fmt.Errorf("marshaling manifest: %w", err)
	}
	path := filepath.Join(dir, m.Summary.OutputID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	return path, nil
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}
