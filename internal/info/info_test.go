package info

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/geojson-featureserver/internal/errs"
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
	"github.com/mohammed-shakir/geojson-featureserver/internal/params"
)

const lakes = `{
  "type": "FeatureCollection",
  "metadata": {"name": "Lakes", "description": "Swedish lakes", "maxRecordCount": 250, "idField": "lake_id"},
  "features": [
    {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[14,58],[15,58],[15,59],[14,58]]]},"properties":{"lake_id":7,"name":"Vattern"}},
    {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[12,58],[14,58],[14,59.5],[12,58]]]},"properties":{"lake_id":9,"name":"Vanern"}}
  ]
}`

func decode(t *testing.T, doc string) *geojson.FeatureCollection {
	t.Helper()
	fc, err := geojson.Decode([]byte(doc))
	require.NoError(t, err)
	return fc
}

func TestRestInfo(t *testing.T) {
	out, err := New(Config{}).RestInfo(nil)
	require.NoError(t, err)

	b, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"currentVersion":10.51,"fullVersion":"10.5.1","authInfo":{"isTokenBasedSecurity":false}}`, string(b))
}

func TestServerInfo_DescribesSingleLayer(t *testing.T) {
	out, err := New(DefaultConfig()).ServerInfo(decode(t, lakes), map[string]string{"host": "lakes"})
	require.NoError(t, err)

	s := out.(ServerInfo)
	assert.Equal(t, "Swedish lakes", s.ServiceDescription)
	assert.Equal(t, 250, s.MaxRecordCount)
	require.Len(t, s.Layers, 1)
	assert.Equal(t, "Lakes", s.Layers[0].Name)
	assert.Equal(t, "esriGeometryPolygon", s.Layers[0].GeometryType)
	assert.Empty(t, s.Tables)
	assert.Equal(t, Extent{XMin: 12, YMin: 58, XMax: 15, YMax: 59.5, SpatialReference: wgs84}, s.FullExtent)
}

func TestServerInfo_TableWithoutGeometry(t *testing.T) {
	fc := decode(t, `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":null,"properties":{"a":1}}]}`)
	out, err := New(DefaultConfig()).ServerInfo(fc, map[string]string{"host": "rows"})
	require.NoError(t, err)

	s := out.(ServerInfo)
	assert.Empty(t, s.Layers)
	require.Len(t, s.Tables, 1)
	assert.Equal(t, "rows", s.Tables[0].Name)
	assert.Equal(t, 2000, s.MaxRecordCount)
	assert.Equal(t, -180.0, s.FullExtent.XMin)
}

func TestLayerInfo(t *testing.T) {
	p := New(DefaultConfig())
	out, err := p.LayerInfo(decode(t, lakes), map[string]string{"layer": "0"})
	require.NoError(t, err)

	l := out.(LayerInfo)
	assert.Equal(t, 0, l.ID)
	assert.Equal(t, "Feature Layer", l.Type)
	assert.Equal(t, "lake_id", l.ObjectIDField)
	assert.Equal(t, "name", l.DisplayField)
	assert.Equal(t, 250, l.MaxRecordCount)
	require.NotNil(t, l.DrawingInfo)
	assert.Equal(t, "simple", l.DrawingInfo.Renderer.Type)
	require.NotEmpty(t, l.Fields)
	assert.Equal(t, geojson.Field{Name: "lake_id", Type: geojson.FieldOID, Alias: "lake_id"}, l.Fields[0])
}

func TestLayerInfo_UnknownLayer(t *testing.T) {
	p := New(DefaultConfig())
	for _, layer := range []string{"1", "abc", "-1"} {
		_, err := p.LayerInfo(decode(t, lakes), map[string]string{"layer": layer})
		require.Error(t, err, layer)
		assert.True(t, errors.Is(err, errs.ErrNotFound), layer)

		var f *errs.Failure
		require.True(t, errors.As(err, &f))
		assert.Equal(t, "Layer not found", f.Message)
	}
}

func TestLayersInfo(t *testing.T) {
	out, err := New(DefaultConfig()).LayersInfo(decode(t, lakes), params.Query{})
	require.NoError(t, err)

	b, err := json.Marshal(out)
	require.NoError(t, err)

	var doc struct {
		Layers []map[string]any `json:"layers"`
		Tables []any            `json:"tables"`
	}
	require.NoError(t, json.Unmarshal(b, &doc))
	require.Len(t, doc.Layers, 1)
	assert.Equal(t, "Lakes", doc.Layers[0]["name"])
	assert.NotNil(t, doc.Tables)
	assert.Empty(t, doc.Tables)
}
