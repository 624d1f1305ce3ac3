package geojson

import (
	"math"
	"sort"
)

const (
	FieldOID     = "esriFieldTypeOID"
	FieldInteger = "esriFieldTypeInteger"
	FieldDouble  = "esriFieldTypeDouble"
	FieldString  = "esriFieldTypeString"
	FieldDate    = "esriFieldTypeDate"

	DefaultOIDField = "OBJECTID"
)

// EsriGeometryType maps a GeoJSON geometry type to its Esri name.
func EsriGeometryType(t string) string {
	switch t {
	case "Point", "esriGeometryPoint":
		return "esriGeometryPoint"
	case "MultiPoint", "esriGeometryMultipoint":
		return "esriGeometryMultipoint"
	case "LineString", "MultiLineString", "esriGeometryPolyline":
		return "esriGeometryPolyline"
	case "Polygon", "MultiPolygon", "esriGeometryPolygon":
		return "esriGeometryPolygon"
	default:
		return ""
	}
}

// GeometryType is the layer's Esri geometry type: metadata first, then the
// first feature carrying a geometry.
func (fc *FeatureCollection) GeometryType() string {
	if t := EsriGeometryType(fc.Meta().GeometryType); t != "" {
		return t
	}
	if fc == nil {
		return ""
	}
	for i := range fc.Features {
		if g := fc.Features[i].Geometry; g != nil {
			if t := EsriGeometryType(g.Type); t != "" {
				return t
			}
		}
	}
	return ""
}

// OIDField is the attribute holding object ids.
func (fc *FeatureCollection) OIDField() string {
	if f := fc.Meta().IDField; f != "" {
		return f
	}
	return DefaultOIDField
}

// Fields returns the layer schema. Metadata fields win; otherwise the schema
// is inferred from the properties of every feature, keys sorted.
func (fc *FeatureCollection) Fields() []Field {
	oid := fc.OIDField()
	if m := fc.Meta(); len(m.Fields) > 0 {
		out := make([]Field, 0, len(m.Fields)+1)
		hasOID := false
		for _, f := range m.Fields {
			if f.Name == oid {
				f.Type = FieldOID
				hasOID = true
			}
			out = append(out, withAlias(f))
		}
		if !hasOID {
			out = append([]Field{{Name: oid, Type: FieldOID, Alias: oid}}, out...)
		}
		return out
	}

	type seen struct {
		typ      string
		integral bool
	}
	kinds := map[string]*seen{}
	if fc != nil {
		for i := range fc.Features {
			for k, v := range fc.Features[i].Properties {
				s, ok := kinds[k]
				if !ok {
					s = &seen{integral: true}
					kinds[k] = s
				}
				switch t := v.(type) {
				case nil:
				case float64:
					if s.typ == "" {
						s.typ = FieldDouble
					}
					if t != math.Trunc(t) {
						s.integral = false
					}
				default:
					if s.typ == "" {
						s.typ = FieldString
					}
				}
			}
		}
	}

	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)

	out := []Field{{Name: oid, Type: FieldOID, Alias: oid}}
	for _, n := range names {
		if n == oid {
			continue
		}
		s := kinds[n]
		typ := s.typ
		switch {
		case typ == "":
			typ = FieldString
		case typ == FieldDouble && s.integral:
			typ = FieldInteger
		}
		f := Field{Name: n, Type: typ, Alias: n}
		if typ == FieldString {
			f.Length = 128
		}
		out = append(out, f)
	}
	return out
}

func withAlias(f Field) Field {
	if f.Alias == "" {
		f.Alias = f.Name
	}
	return f
}

// Row is a feature as seen by the query and renderer engines.
type Row struct {
	OID        int64
	Properties map[string]any
	Geometry   *Geometry
}

// Rows assigns object ids: the idField property when it is a whole number,
// otherwise the 1-based feature position.
func (fc *FeatureCollection) Rows() []Row {
	if fc == nil {
		return nil
	}
	idField := fc.Meta().IDField
	out := make([]Row, len(fc.Features))
	for i := range fc.Features {
		f := &fc.Features[i]
		oid := int64(i + 1)
		if idField != "" {
			if n, ok := f.Properties[idField].(float64); ok && n == math.Trunc(n) {
				oid = int64(n)
			}
		}
		props := f.Properties
		if props == nil {
			props = map[string]any{}
		}
		out[i] = Row{OID: oid, Properties: props, Geometry: f.Geometry}
	}
	return out
}
