// Package file serves vehicle snapshots stored on disk as JSON or YAML.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lukman83/carizon/internal/ingest"
	"github.com/lukman83/carizon/internal/models"
)

// Source reads the whole file on every call, so edits are picked up
// without a restart.
type Source struct {
	Path  string
	Label string
}

// New returns a source for path named after the file.
func New(path string) *Source {
	return &Source{Path: path}
}

func (s *Source) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return "file:" + filepath.Base(s.Path)
}

func (s *Source) Vehicles(ctx context.Context) ([]models.VehicleRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".yaml", ".yml":
		raw, err = yamlToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Path, err)
		}
	}

	records, err := ingest.DecodeList(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return records, nil
}

// yamlToJSON re-encodes a YAML document as JSON so that YAML snapshots go
// through the same field aliases as JSON ones.
func yamlToJSON(raw []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	return out, nil
}
