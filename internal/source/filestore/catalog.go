package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
)

// Entry maps a source id to a GeoJSON file. Non-empty metadata members
// override the file's own metadata.
type Entry struct {
	ID             string          `yaml:"id"`
	Path           string          `yaml:"path"`
	Name           string          `yaml:"name,omitempty"`
	Description    string          `yaml:"description,omitempty"`
	MaxRecordCount int             `yaml:"maxRecordCount,omitempty"`
	IDField        string          `yaml:"idField,omitempty"`
	GeometryType   string          `yaml:"geometryType,omitempty"`
	Fields         []geojson.Field `yaml:"fields,omitempty"`
}

type Catalog struct {
	Sources []Entry `yaml:"sources"`
}

// LoadCatalog reads a YAML catalog. Relative paths resolve against the
// catalog's directory.
func LoadCatalog(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	base := filepath.Dir(path)
	seen := make(map[string]struct{}, len(c.Sources))
	for i := range c.Sources {
		e := &c.Sources[i]
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" {
			return Catalog{}, fmt.Errorf("catalog entry %d: id is required", i)
		}
		if _, dup := seen[e.ID]; dup {
			return Catalog{}, fmt.Errorf("catalog entry %d: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = struct{}{}
		if e.Path == "" {
			return Catalog{}, fmt.Errorf("catalog entry %q: path is required", e.ID)
		}
		if e.MaxRecordCount < 0 {
			return Catalog{}, fmt.Errorf("catalog entry %q: maxRecordCount must not be negative", e.ID)
		}
		if !filepath.IsAbs(e.Path) {
			e.Path = filepath.Join(base, e.Path)
		}
		e.Path = filepath.Clean(e.Path)
	}
	return c, nil
}

func (e Entry) apply(fc *geojson.FeatureCollection) {
	if fc.Metadata == nil {
		fc.Metadata = &geojson.Metadata{}
	}
	m := fc.Metadata
	if e.Name != "" {
		m.Name = e.Name
	}
	if e.Description != "" {
		m.Description = e.Description
	}
	if e.MaxRecordCount > 0 {
		m.MaxRecordCount = e.MaxRecordCount
	}
	if e.IDField != "" {
		m.IDField = e.IDField
	}
	if e.GeometryType != "" {
		m.GeometryType = e.GeometryType
	}
	if len(e.Fields) > 0 {
		m.Fields = e.Fields
	}
}
