package renderer

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/geojson-featureserver/internal/errs"
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
	"github.com/mohammed-shakir/geojson-featureserver/internal/params"
)

const parcels = `{
  "type": "FeatureCollection",
  "features": [
    {"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"zone":"A","value":1}},
    {"type":"Feature","geometry":{"type":"Point","coordinates":[1,1]},"properties":{"zone":"B","value":2}},
    {"type":"Feature","geometry":{"type":"Point","coordinates":[2,2]},"properties":{"zone":"A","value":3}},
    {"type":"Feature","geometry":{"type":"Point","coordinates":[3,3]},"properties":{"zone":"C","value":10}},
    {"type":"Feature","geometry":{"type":"Point","coordinates":[4,4]},"properties":{"zone":"B","value":11}},
    {"type":"Feature","geometry":{"type":"Point","coordinates":[5,5]},"properties":{"zone":"A","value":12}},
    {"type":"Feature","geometry":{"type":"Point","coordinates":[6,6]},"properties":{"zone":"C","value":20}},
    {"type":"Feature","geometry":{"type":"Point","coordinates":[7,7]},"properties":{"zone":"A","value":21}},
    {"type":"Feature","geometry":{"type":"Point","coordinates":[8,8]},"properties":{"zone":null,"value":22}}
  ]
}`

func generate(t *testing.T, raw map[string]string) (any, error) {
	t.Helper()
	fc, err := geojson.Decode([]byte(parcels))
	require.NoError(t, err)
	q, err := params.Normalize(raw, geojson.Metadata{})
	require.NoError(t, err)
	return New().GenerateRenderer(fc, q)
}

func maxValues(r Renderer) []float64 {
	var out []float64
	for _, info := range r.ClassBreakInfos {
		out = append(out, info.ClassMaxValue)
	}
	return out
}

func TestGenerateRenderer_ClassBreakMethods(t *testing.T) {
	cases := []struct {
		method string
		want   []float64
	}{
		{MethodEqualInterval, []float64{8, 15, 22}},
		{MethodQuantile, []float64{3, 12, 22}},
		{MethodNaturalBreaks, []float64{3, 12, 22}},
	}
	for _, tc := range cases {
		t.Run(tc.method, func(t *testing.T) {
			out, err := generate(t, map[string]string{
				"classificationDef": `{"type":"classBreaksDef","classificationField":"VALUE","classificationMethod":"` + tc.method + `","breakCount":3}`,
			})
			require.NoError(t, err)

			r := out.(Renderer)
			assert.Equal(t, "classBreaks", r.Type)
			assert.Equal(t, "value", r.Field)
			require.NotNil(t, r.MinValue)
			assert.Equal(t, 1.0, *r.MinValue)
			assert.Equal(t, tc.want, maxValues(r))
			assert.Equal(t, 1.0, r.ClassBreakInfos[0].ClassMinValue)
			assert.Equal(t, "esriSMS", r.ClassBreakInfos[0].Symbol.Type)
		})
	}
}

func TestGenerateRenderer_ColorRampEndpoints(t *testing.T) {
	out, err := generate(t, map[string]string{
		"classificationDef": `{"type":"classBreaksDef","classificationField":"value","breakCount":3,
			"colorRamp":{"type":"algorithmic","fromColor":[255,0,0,255],"toColor":[0,0,255,100],"algorithm":"esriCIELabAlgorithm"}}`,
	})
	require.NoError(t, err)

	infos := out.(Renderer).ClassBreakInfos
	require.Len(t, infos, 3)
	assert.Equal(t, Color{255, 0, 0, 255}, infos[0].Symbol.Color)
	assert.Equal(t, Color{0, 0, 255, 100}, infos[2].Symbol.Color)
}

func TestGenerateRenderer_UniqueValuesWithWhere(t *testing.T) {
	out, err := generate(t, map[string]string{
		"classificationDef": `{"type":"uniqueValueDef","uniqueValueFields":["zone"]}`,
		"where":             "value < 20",
	})
	require.NoError(t, err)

	r := out.(Renderer)
	assert.Equal(t, "uniqueValue", r.Type)
	assert.Equal(t, "zone", r.Field1)
	require.Len(t, r.UniqueValueInfos, 3)
	assert.Equal(t, "A", r.UniqueValueInfos[0].Value)
	assert.Equal(t, 3, r.UniqueValueInfos[0].Count)
	assert.Equal(t, "C", r.UniqueValueInfos[2].Value)
	assert.Equal(t, 1, r.UniqueValueInfos[2].Count)
}

func TestGenerateRenderer_BadDefinitions(t *testing.T) {
	for name, raw := range map[string]map[string]string{
		"missing":      {},
		"not json":     {"classificationDef": "classBreaks"},
		"unknown type": {"classificationDef": `{"type":"heatmapDef"}`},
		"bad field":    {"classificationDef": `{"type":"classBreaksDef","classificationField":"nope"}`},
		"bad method":   {"classificationDef": `{"type":"classBreaksDef","classificationField":"value","classificationMethod":"esriClassifyGeometrical"}`},
		"bad ramp":     {"classificationDef": `{"type":"uniqueValueDef","uniqueValueFields":["zone"],"colorRamp":{"type":"algorithmic","fromColor":[1,2],"toColor":[3,4,5]}}`},
		"bad where":    {"classificationDef": `{"type":"uniqueValueDef","uniqueValueFields":["zone"]}`, "where": "zone ="},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := generate(t, raw)
			var f *errs.Failure
			require.True(t, errors.As(err, &f), "got %v", err)
			assert.Equal(t, http.StatusBadRequest, f.Status())
		})
	}
}

func TestDefault_SymbolFollowsGeometry(t *testing.T) {
	assert.Equal(t, "esriSFS", Default("esriGeometryPolygon").Symbol.Type)
	assert.Equal(t, "esriSLS", Default("esriGeometryPolyline").Symbol.Type)
	assert.Equal(t, "esriSMS", Default("esriGeometryPoint").Symbol.Type)
}

func TestMultipartRamp(t *testing.T) {
	ramp := ColorRamp{Type: RampMultipart, ColorRamps: []ColorRamp{
		{Type: RampAlgorithmic, FromColor: []int{0, 0, 0}, ToColor: []int{255, 255, 255}},
		{Type: RampAlgorithmic, FromColor: []int{255, 0, 0}, ToColor: []int{0, 0, 255}},
	}}
	colors, err := ramp.Colors(3)
	require.NoError(t, err)
	assert.Equal(t, Color{0, 0, 0, 255}, colors[0])
	assert.Equal(t, Color{255, 0, 0, 255}, colors[1])
	assert.Equal(t, Color{0, 0, 255, 255}, colors[2])
}
