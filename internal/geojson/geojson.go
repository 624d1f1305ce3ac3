// Package geojson holds the feature-collection model served by the
// FeatureServer along with the geometry helpers shared by the info, query and
// renderer operations.
package geojson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
	Metadata *Metadata `json:"metadata,omitempty"`
	BBox     []float64 `json:"bbox,omitempty"`
}

type Feature struct {
	Type       string          `json:"type"`
	ID         any             `json:"id,omitempty"`
	Geometry   *Geometry       `json:"geometry"`
	Properties map[string]any  `json:"properties"`
	Raw        json.RawMessage `json:"-"`
}

// Geometry keeps coordinates raw; helpers decode them on demand.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates,omitempty"`
	Geometries  []Geometry      `json:"geometries,omitempty"`
}

type Field struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
	Alias  string `json:"alias,omitempty" yaml:"alias"`
	Length int    `json:"length,omitempty" yaml:"length"`
}

// Metadata is the optional provider-supplied description of a collection.
// Zero values mean "not supplied".
type Metadata struct {
	Name           string    `json:"name,omitempty" yaml:"name"`
	Description    string    `json:"description,omitempty" yaml:"description"`
	IDField        string    `json:"idField,omitempty" yaml:"idField"`
	GeometryType   string    `json:"geometryType,omitempty" yaml:"geometryType"`
	MaxRecordCount int       `json:"maxRecordCount,omitempty" yaml:"maxRecordCount"`
	Fields         []Field   `json:"fields,omitempty" yaml:"fields"`
	Extent         []float64 `json:"extent,omitempty" yaml:"extent"`
}

// Decode parses a FeatureCollection, keeping each feature's raw bytes for
// the linter. Numbers in properties decode as float64.
func Decode(b []byte) (*FeatureCollection, error) {
	var root struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
		Metadata *Metadata         `json:"metadata,omitempty"`
		BBox     []float64         `json:"bbox,omitempty"`
	}
	if err := json.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("parse feature collection: %w", err)
	}
	fc := &FeatureCollection{
		Type:     root.Type,
		Metadata: root.Metadata,
		BBox:     root.BBox,
		Features: make([]Feature, 0, len(root.Features)),
	}
	for i, raw := range root.Features {
		var f Feature
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		f.Raw = raw
		fc.Features = append(fc.Features, f)
	}
	return fc, nil
}

// Meta returns the collection metadata, never nil.
func (fc *FeatureCollection) Meta() Metadata {
	if fc == nil || fc.Metadata == nil {
		return Metadata{}
	}
	return *fc.Metadata
}

func (fc *FeatureCollection) Len() int {
	if fc == nil {
		return 0
	}
	return len(fc.Features)
}

// Extent is [xmin, ymin, xmax, ymax].
type Extent [4]float64

func (e Extent) Empty() bool {
	return math.IsInf(e[0], 1)
}

func (e Extent) Intersects(o Extent) bool {
	if e.Empty() || o.Empty() {
		return false
	}
	return e[0] <= o[2] && o[0] <= e[2] && e[1] <= o[3] && o[1] <= e[3]
}

func emptyExtent() Extent {
	return Extent{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
}

func (e *Extent) add(x, y float64) {
	e[0] = math.Min(e[0], x)
	e[1] = math.Min(e[1], y)
	e[2] = math.Max(e[2], x)
	e[3] = math.Max(e[3], y)
}

func (e *Extent) merge(o Extent) {
	if o.Empty() {
		return
	}
	e.add(o[0], o[1])
	e.add(o[2], o[3])
}

// Bounds returns the extent of the collection: metadata extent, then the
// collection bbox, then the union of feature geometries.
func (fc *FeatureCollection) Bounds() Extent {
	if fc == nil {
		return emptyExtent()
	}
	if m := fc.Meta(); len(m.Extent) == 4 {
		return Extent{m.Extent[0], m.Extent[1], m.Extent[2], m.Extent[3]}
	}
	if len(fc.BBox) == 4 {
		return Extent{fc.BBox[0], fc.BBox[1], fc.BBox[2], fc.BBox[3]}
	}
	out := emptyExtent()
	for i := range fc.Features {
		if g := fc.Features[i].Geometry; g != nil {
			out.merge(g.Bounds())
		}
	}
	return out
}

// Bounds of a single geometry; empty when it has no decodable positions.
func (g *Geometry) Bounds() Extent {
	out := emptyExtent()
	if g == nil {
		return out
	}
	if g.Type == "GeometryCollection" {
		for i := range g.Geometries {
			out.merge(g.Geometries[i].Bounds())
		}
		return out
	}
	for _, p := range g.Positions() {
		if len(p) >= 2 {
			out.add(p[0], p[1])
		}
	}
	return out
}

// Positions flattens the coordinates of any non-collection geometry.
func (g *Geometry) Positions() [][]float64 {
	if g == nil || len(bytes.TrimSpace(g.Coordinates)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(g.Coordinates, &v); err != nil {
		return nil
	}
	var out [][]float64
	collectPositions(v, &out)
	return out
}

func collectPositions(v any, out *[][]float64) {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return
	}
	if _, isNum := arr[0].(float64); isNum {
		pos := make([]float64, 0, len(arr))
		for _, n := range arr {
			f, ok := n.(float64)
			if !ok {
				return
			}
			pos = append(pos, f)
		}
		*out = append(*out, pos)
		return
	}
	for _, child := range arr {
		collectPositions(child, out)
	}
}
