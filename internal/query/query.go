// Package query answers FeatureServer query requests over a GeoJSON
// collection and renders the result as Esri JSON.
package query

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/geojson-featureserver/internal/errs"
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
	"github.com/mohammed-shakir/geojson-featureserver/internal/params"
)

const (
	ParamWhere           = "where"
	ParamObjectIDs       = "objectIds"
	ParamGeometry        = "geometry"
	ParamSpatialRel      = "spatialRel"
	ParamOutFields       = "outFields"
	ParamReturnGeometry  = "returnGeometry"
	ParamReturnCountOnly = "returnCountOnly"
	ParamReturnIDsOnly   = "returnIdsOnly"
	ParamOrderByFields   = "orderByFields"
	ParamResultOffset    = "resultOffset"
)

type SpatialReference struct {
	WKID       int `json:"wkid"`
	LatestWKID int `json:"latestWkid"`
}

type Feature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   map[string]any `json:"geometry,omitempty"`
}

type FeatureSet struct {
	ObjectIDFieldName     string           `json:"objectIdFieldName"`
	GlobalIDFieldName     string           `json:"globalIdFieldName"`
	GeometryType          string           `json:"geometryType,omitempty"`
	SpatialReference      SpatialReference `json:"spatialReference"`
	Fields                []geojson.Field  `json:"fields"`
	Features              []Feature        `json:"features"`
	ExceededTransferLimit bool             `json:"exceededTransferLimit"`
}

type Count struct {
	Count int `json:"count"`
}

type IDs struct {
	ObjectIDFieldName string  `json:"objectIdFieldName"`
	ObjectIDs         []int64 `json:"objectIds"`
}

type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) Query(src *geojson.FeatureCollection, q params.Query) (any, error) {
	fields := src.Fields()
	oidField := src.OIDField()

	rows, err := Filter(src, q)
	if err != nil {
		return nil, err
	}

	if q.Bool(ParamReturnCountOnly, false) {
		return Count{Count: len(rows)}, nil
	}

	if err := orderRows(rows, q.String(ParamOrderByFields), fields, oidField); err != nil {
		return nil, err
	}

	if q.Bool(ParamReturnIDsOnly, false) {
		ids := make([]int64, len(rows))
		for i, r := range rows {
			ids[i] = r.OID
		}
		return IDs{ObjectIDFieldName: oidField, ObjectIDs: ids}, nil
	}

	offset := max(q.Int(ParamResultOffset, 0), 0)
	limit := q.Limit()
	exceeded := false
	if offset >= len(rows) {
		rows = nil
	} else {
		rows = rows[offset:]
	}
	// a non-positive limit does not cap the page
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
		exceeded = true
	}

	outFields, err := selectFields(fields, q.List(ParamOutFields))
	if err != nil {
		return nil, err
	}
	withGeometry := q.Bool(ParamReturnGeometry, true)

	features := make([]Feature, len(rows))
	for i, r := range rows {
		attrs := make(map[string]any, len(outFields))
		for _, f := range outFields {
			if f.Name == oidField {
				attrs[f.Name] = r.OID
				continue
			}
			attrs[f.Name] = r.Properties[f.Name]
		}
		features[i] = Feature{Attributes: attrs}
		if withGeometry && r.Geometry != nil {
			features[i].Geometry = r.Geometry.ToEsri()
		}
	}

	return FeatureSet{
		ObjectIDFieldName:     oidField,
		GeometryType:          src.GeometryType(),
		SpatialReference:      SpatialReference{WKID: 4326, LatestWKID: 4326},
		Fields:                outFields,
		Features:              features,
		ExceededTransferLimit: exceeded,
	}, nil
}

// Filter applies the where clause, objectIds and geometry envelope of q.
func Filter(src *geojson.FeatureCollection, q params.Query) ([]geojson.Row, error) {
	where, err := compileWhere(q.String(ParamWhere), src.Fields(), src.OIDField())
	if err != nil {
		return nil, errs.BadRequest("Invalid where clause: %v", err)
	}
	ids, err := objectIDs(q.List(ParamObjectIDs))
	if err != nil {
		return nil, err
	}
	env, hasEnv, err := envelope(q)
	if err != nil {
		return nil, err
	}

	all := src.Rows()
	out := make([]geojson.Row, 0, len(all))
	for _, r := range all {
		if ids != nil {
			if _, ok := ids[r.OID]; !ok {
				continue
			}
		}
		if hasEnv && (r.Geometry == nil || !r.Geometry.Bounds().Intersects(env)) {
			continue
		}
		if !where.Match(r) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func objectIDs(list []string) (map[int64]struct{}, error) {
	if len(list) == 0 {
		return nil, nil
	}
	ids := make(map[int64]struct{}, len(list))
	for _, s := range list {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, errs.InvalidParameter(ParamObjectIDs)
		}
		ids[n] = struct{}{}
	}
	return ids, nil
}

// envelope reads the geometry filter: an envelope object, a point object,
// a four number array or an "xmin,ymin,xmax,ymax" string.
func envelope(q params.Query) (geojson.Extent, bool, error) {
	v, ok := q.Get(ParamGeometry)
	if !ok || !v.Present() {
		return geojson.Extent{}, false, nil
	}
	switch rel := q.String(ParamSpatialRel); rel {
	case "", "esriSpatialRelIntersects", "esriSpatialRelEnvelopeIntersects":
	default:
		return geojson.Extent{}, false, errs.BadRequest("Unsupported spatialRel %q", rel)
	}
	bad := errs.InvalidParameter(ParamGeometry)

	if j, ok := v.JSONValue(); ok {
		switch t := j.(type) {
		case map[string]any:
			if x, y, ok := pair(t, "x", "y"); ok {
				return geojson.Extent{x, y, x, y}, true, nil
			}
			xmin, ymin, ok1 := pair(t, "xmin", "ymin")
			xmax, ymax, ok2 := pair(t, "xmax", "ymax")
			if !ok1 || !ok2 {
				return geojson.Extent{}, false, bad
			}
			return normalizeExtent(xmin, ymin, xmax, ymax), true, nil
		case []any:
			nums := make([]string, len(t))
			for i, e := range t {
				nums[i] = fmt.Sprint(e)
			}
			return parseBBox(nums, bad)
		}
		return geojson.Extent{}, false, bad
	}
	return parseBBox(strings.Split(v.Text(), ","), bad)
}

func pair(m map[string]any, a, b string) (float64, float64, bool) {
	x, ok1 := m[a].(float64)
	y, ok2 := m[b].(float64)
	return x, y, ok1 && ok2
}

func parseBBox(parts []string, bad error) (geojson.Extent, bool, error) {
	if len(parts) != 4 {
		return geojson.Extent{}, false, bad
	}
	var n [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geojson.Extent{}, false, bad
		}
		n[i] = f
	}
	return normalizeExtent(n[0], n[1], n[2], n[3]), true, nil
}

func normalizeExtent(x1, y1, x2, y2 float64) geojson.Extent {
	return geojson.Extent{min(x1, x2), min(y1, y2), max(x1, x2), max(y1, y2)}
}

func selectFields(fields []geojson.Field, requested []string) ([]geojson.Field, error) {
	if len(requested) == 0 || slices.Contains(requested, "*") {
		return fields, nil
	}
	byName := make(map[string]geojson.Field, len(fields))
	for _, f := range fields {
		byName[strings.ToLower(f.Name)] = f
	}
	out := make([]geojson.Field, 0, len(requested))
	for _, name := range requested {
		f, ok := byName[strings.ToLower(name)]
		if !ok {
			return nil, errs.BadRequest("Invalid field %q in outFields", name)
		}
		out = append(out, f)
	}
	return out, nil
}

type sortKey struct {
	field string
	desc  bool
}

func orderRows(rows []geojson.Row, orderBy string, fields []geojson.Field, oidField string) error {
	if strings.TrimSpace(orderBy) == "" {
		return nil
	}
	idx := fieldIndex(fields, oidField)
	var keys []sortKey
	for part := range strings.SplitSeq(orderBy, ",") {
		words := strings.Fields(part)
		if len(words) == 0 || len(words) > 2 {
			return errs.InvalidParameter(ParamOrderByFields)
		}
		name, ok := idx[strings.ToLower(words[0])]
		if !ok {
			return errs.BadRequest("Invalid field %q in orderByFields", words[0])
		}
		k := sortKey{field: name}
		if len(words) == 2 {
			switch strings.ToUpper(words[1]) {
			case "ASC":
			case "DESC":
				k.desc = true
			default:
				return errs.InvalidParameter(ParamOrderByFields)
			}
		}
		keys = append(keys, k)
	}

	slices.SortStableFunc(rows, func(a, b geojson.Row) int {
		for _, k := range keys {
			c := compareNullsFirst(attr(a, k.field, oidField), attr(b, k.field, oidField))
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	return nil
}

func attr(r geojson.Row, name, oidField string) any {
	return rowRecord{row: r, oidField: oidField}.field(name)
}

func compareNullsFirst(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	c, _ := compare(a, b)
	return c
}
