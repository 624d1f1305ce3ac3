package geojson

import "encoding/json"

// ToEsri converts a geometry into Esri JSON. Unsupported or malformed
// geometries yield nil.
func (g *Geometry) ToEsri() map[string]any {
	if g == nil {
		return nil
	}
	switch g.Type {
	case "Point":
		var p []float64
		if json.Unmarshal(g.Coordinates, &p) != nil || len(p) < 2 {
			return nil
		}
		return map[string]any{"x": p[0], "y": p[1]}
	case "MultiPoint":
		var pts [][]float64
		if json.Unmarshal(g.Coordinates, &pts) != nil {
			return nil
		}
		return map[string]any{"points": pts}
	case "LineString":
		var line [][]float64
		if json.Unmarshal(g.Coordinates, &line) != nil {
			return nil
		}
		return map[string]any{"paths": [][][]float64{line}}
	case "MultiLineString":
		var lines [][][]float64
		if json.Unmarshal(g.Coordinates, &lines) != nil {
			return nil
		}
		return map[string]any{"paths": lines}
	case "Polygon":
		var rings [][][]float64
		if json.Unmarshal(g.Coordinates, &rings) != nil {
			return nil
		}
		return map[string]any{"rings": rings}
	case "MultiPolygon":
		var polys [][][][]float64
		if json.Unmarshal(g.Coordinates, &polys) != nil {
			return nil
		}
		rings := make([][][]float64, 0, len(polys))
		for _, p := range polys {
			rings = append(rings, p...)
		}
		return map[string]any{"rings": rings}
	default:
		return nil
	}
}
