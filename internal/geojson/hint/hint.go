// Package hint lints GeoJSON feature collections for structural problems.
// It never rejects input; callers decide what to do with the diagnostics.
package hint

import (
	"encoding/json"
	"fmt"

	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
)

type Diagnostic struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return d.Path + ": " + d.Message
}

type Linter struct{}

func New() *Linter { return &Linter{} }

// Hint returns every diagnostic found in fc; nil means clean.
func (Linter) Hint(fc *geojson.FeatureCollection) []Diagnostic {
	var out []Diagnostic
	add := func(path, format string, args ...any) {
		out = append(out, Diagnostic{Path: path, Message: fmt.Sprintf(format, args...)})
	}
	if fc == nil {
		add("$", "missing feature collection")
		return out
	}
	if fc.Type != "FeatureCollection" {
		add("$.type", "expected \"FeatureCollection\", got %q", fc.Type)
	}
	if fc.Features == nil {
		add("$.features", "\"features\" member required")
	}
	if len(fc.BBox) != 0 && len(fc.BBox) != 4 && len(fc.BBox) != 6 {
		add("$.bbox", "bbox must have 4 or 6 elements")
	}
	for i := range fc.Features {
		f := &fc.Features[i]
		path := fmt.Sprintf("$.features[%d]", i)
		if f.Type != "Feature" {
			add(path+".type", "expected \"Feature\", got %q", f.Type)
		}
		if len(f.Raw) > 0 && !hasMember(f.Raw, "properties") {
			add(path+".properties", "\"properties\" member required")
		}
		if len(f.Raw) > 0 && !hasMember(f.Raw, "geometry") {
			add(path+".geometry", "\"geometry\" member required")
		}
		if f.Geometry != nil {
			lintGeometry(f.Geometry, path+".geometry", add)
		}
	}
	return out
}

func hasMember(raw json.RawMessage, name string) bool {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return false
	}
	_, ok := m[name]
	return ok
}

type addFunc func(path, format string, args ...any)

func lintGeometry(g *geojson.Geometry, path string, add addFunc) {
	switch g.Type {
	case "Point":
		var p []float64
		if err := json.Unmarshal(g.Coordinates, &p); err != nil {
			add(path+".coordinates", "position must be an array of numbers")
			return
		}
		checkPosition(p, path+".coordinates", add)
	case "MultiPoint", "LineString":
		var ps [][]float64
		if err := json.Unmarshal(g.Coordinates, &ps); err != nil {
			add(path+".coordinates", "expected an array of positions")
			return
		}
		if g.Type == "LineString" && len(ps) < 2 {
			add(path+".coordinates", "a LineString needs at least two positions")
		}
		for i, p := range ps {
			checkPosition(p, fmt.Sprintf("%s.coordinates[%d]", path, i), add)
		}
	case "MultiLineString":
		var ls [][][]float64
		if err := json.Unmarshal(g.Coordinates, &ls); err != nil {
			add(path+".coordinates", "expected an array of lines")
			return
		}
		for i, l := range ls {
			if len(l) < 2 {
				add(fmt.Sprintf("%s.coordinates[%d]", path, i), "a line needs at least two positions")
			}
		}
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			add(path+".coordinates", "expected an array of linear rings")
			return
		}
		checkRings(rings, path+".coordinates", add)
	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			add(path+".coordinates", "expected an array of polygons")
			return
		}
		for i, rings := range polys {
			checkRings(rings, fmt.Sprintf("%s.coordinates[%d]", path, i), add)
		}
	case "GeometryCollection":
		for i := range g.Geometries {
			lintGeometry(&g.Geometries[i], fmt.Sprintf("%s.geometries[%d]", path, i), add)
		}
	default:
		add(path+".type", "unknown geometry type %q", g.Type)
	}
}

func checkPosition(p []float64, path string, add addFunc) {
	if len(p) < 2 {
		add(path, "position must have two or more elements")
	}
}

func checkRings(rings [][][]float64, path string, add addFunc) {
	for i, ring := range rings {
		rp := fmt.Sprintf("%s[%d]", path, i)
		if len(ring) < 4 {
			add(rp, "a linear ring needs four or more positions")
			continue
		}
		first, last := ring[0], ring[len(ring)-1]
		if len(first) < 2 || len(last) < 2 || first[0] != last[0] || first[1] != last[1] {
			add(rp, "the first and last positions of a linear ring must be equivalent")
		}
	}
}
