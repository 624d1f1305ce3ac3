// Package renderer builds Esri drawing renderers: the default simple
// renderer of a layer and the classified renderers of generateRenderer.
package renderer

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/mohammed-shakir/geojson-featureserver/internal/errs"
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
	"github.com/mohammed-shakir/geojson-featureserver/internal/params"
	"github.com/mohammed-shakir/geojson-featureserver/internal/query"
)

const ParamClassificationDef = "classificationDef"

const (
	DefClassBreaks  = "classBreaksDef"
	DefUniqueValues = "uniqueValueDef"
)

// Color is an Esri RGBA color, each channel 0-255.
type Color [4]int

type Symbol struct {
	Type    string  `json:"type"`
	Style   string  `json:"style"`
	Color   Color   `json:"color"`
	Size    float64 `json:"size,omitempty"`
	Width   float64 `json:"width,omitempty"`
	Outline *Symbol `json:"outline,omitempty"`
}

type ClassBreakInfo struct {
	ClassMinValue float64 `json:"classMinValue"`
	ClassMaxValue float64 `json:"classMaxValue"`
	Label         string  `json:"label"`
	Description   string  `json:"description"`
	Symbol        Symbol  `json:"symbol"`
}

type UniqueValueInfo struct {
	Value       string `json:"value"`
	Count       int    `json:"count"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Symbol      Symbol `json:"symbol"`
}

// Renderer covers the simple, classBreaks and uniqueValue shapes; unused
// members are omitted.
type Renderer struct {
	Type        string  `json:"type"`
	Symbol      *Symbol `json:"symbol,omitempty"`
	Label       string  `json:"label,omitempty"`
	Description string  `json:"description,omitempty"`

	Field                string           `json:"field,omitempty"`
	ClassificationMethod string           `json:"classificationMethod,omitempty"`
	MinValue             *float64         `json:"minValue,omitempty"`
	ClassBreakInfos      []ClassBreakInfo `json:"classBreakInfos,omitempty"`

	Field1           string            `json:"field1,omitempty"`
	Field2           string            `json:"field2,omitempty"`
	Field3           string            `json:"field3,omitempty"`
	FieldDelimiter   string            `json:"fieldDelimiter,omitempty"`
	UniqueValueInfos []UniqueValueInfo `json:"uniqueValueInfos,omitempty"`
}

// DefaultSymbol is the symbol used when a request supplies no baseSymbol.
func DefaultSymbol(geometryType string) Symbol {
	outline := &Symbol{Type: "esriSLS", Style: "esriSLSSolid", Color: Color{190, 190, 190, 105}, Width: 0.5}
	switch geometryType {
	case "esriGeometryPolyline":
		return Symbol{Type: "esriSLS", Style: "esriSLSSolid", Color: Color{247, 150, 70, 204}, Width: 6.999999999999999}
	case "esriGeometryPolygon":
		return Symbol{Type: "esriSFS", Style: "esriSFSSolid", Color: Color{75, 172, 198, 161}, Outline: outline}
	default:
		return Symbol{Type: "esriSMS", Style: "esriSMSCircle", Color: Color{45, 172, 128, 161}, Size: 7.5, Outline: outline}
	}
}

// Default is the simple renderer advertised in layer info.
func Default(geometryType string) Renderer {
	s := DefaultSymbol(geometryType)
	return Renderer{Type: "simple", Symbol: &s}
}

// ClassificationDef is the decoded classificationDef parameter.
type ClassificationDef struct {
	Type                 string     `json:"type"`
	ClassificationField  string     `json:"classificationField"`
	ClassificationMethod string     `json:"classificationMethod"`
	BreakCount           int        `json:"breakCount"`
	UniqueValueFields    []string   `json:"uniqueValueFields"`
	FieldDelimiter       string     `json:"fieldDelimiter"`
	BaseSymbol           *Symbol    `json:"baseSymbol"`
	ColorRamp            *ColorRamp `json:"colorRamp"`
}

type Generator struct{}

func New() *Generator { return &Generator{} }

// GenerateRenderer classifies the rows selected by the request's where,
// objectIds and geometry filters according to classificationDef.
func (g *Generator) GenerateRenderer(src *geojson.FeatureCollection, q params.Query) (any, error) {
	def, err := decodeDef(q)
	if err != nil {
		return nil, err
	}
	rows, err := query.Filter(src, q)
	if err != nil {
		return nil, err
	}

	base := DefaultSymbol(src.GeometryType())
	if def.BaseSymbol != nil {
		base = *def.BaseSymbol
	}
	ramp := DefaultRamp()
	if def.ColorRamp != nil {
		ramp = *def.ColorRamp
	}
	fields := schema(src)

	switch def.Type {
	case DefClassBreaks:
		field, ok := fields[strings.ToLower(def.ClassificationField)]
		if !ok {
			return nil, errs.BadRequest("Invalid classificationField %q", def.ClassificationField)
		}
		return classBreaks(rows, field, src.OIDField(), def, base, ramp)
	case DefUniqueValues:
		if len(def.UniqueValueFields) == 0 || len(def.UniqueValueFields) > 3 {
			return nil, errs.BadRequest("uniqueValueFields must name one to three fields")
		}
		names := make([]string, len(def.UniqueValueFields))
		for i, n := range def.UniqueValueFields {
			f, ok := fields[strings.ToLower(n)]
			if !ok {
				return nil, errs.BadRequest("Invalid uniqueValueField %q", n)
			}
			names[i] = f
		}
		return uniqueValues(rows, names, def, base, ramp)
	default:
		return nil, errs.BadRequest("Unsupported classificationDef type %q", def.Type)
	}
}

func decodeDef(q params.Query) (ClassificationDef, error) {
	var def ClassificationDef
	v, ok := q.Get(ParamClassificationDef)
	if !ok {
		return def, errs.InvalidParameter(ParamClassificationDef)
	}
	j, ok := v.JSONValue()
	if !ok {
		return def, errs.InvalidParameter(ParamClassificationDef)
	}
	if _, ok := j.(map[string]any); !ok {
		return def, errs.InvalidParameter(ParamClassificationDef)
	}
	b, err := json.Marshal(j)
	if err != nil {
		return def, errs.InvalidParameter(ParamClassificationDef)
	}
	if err := json.Unmarshal(b, &def); err != nil {
		return def, errs.InvalidParameter(ParamClassificationDef)
	}
	return def, nil
}

func schema(src *geojson.FeatureCollection) map[string]string {
	out := map[string]string{}
	for _, f := range src.Fields() {
		out[strings.ToLower(f.Name)] = f.Name
	}
	return out
}

func withColor(s Symbol, c Color) Symbol {
	s.Color = c
	return s
}

func uniqueValues(rows []geojson.Row, fields []string, def ClassificationDef, base Symbol, ramp ColorRamp) (Renderer, error) {
	delim := def.FieldDelimiter
	if delim == "" {
		delim = ","
	}
	counts := map[string]int{}
	for _, r := range rows {
		parts := make([]string, len(fields))
		empty := true
		for i, f := range fields {
			v := r.Properties[f]
			if v != nil {
				empty = false
			}
			parts[i] = valueText(v)
		}
		if empty {
			continue
		}
		counts[strings.Join(parts, delim)]++
	}

	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Strings(values)

	colors, err := ramp.Colors(len(values))
	if err != nil {
		return Renderer{}, err
	}
	infos := make([]UniqueValueInfo, len(values))
	for i, v := range values {
		infos[i] = UniqueValueInfo{Value: v, Count: counts[v], Label: v, Symbol: withColor(base, colors[i])}
	}

	out := Renderer{
		Type:             "uniqueValue",
		Field1:           fields[0],
		FieldDelimiter:   delim,
		UniqueValueInfos: infos,
	}
	if len(fields) > 1 {
		out.Field2 = fields[1]
	}
	if len(fields) > 2 {
		out.Field3 = fields[2]
	}
	return out, nil
}
