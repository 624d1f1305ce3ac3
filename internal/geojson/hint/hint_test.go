package hint

import (
	"strings"
	"testing"

	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
)

func decode(t *testing.T, s string) *geojson.FeatureCollection {
	t.Helper()
	fc, err := geojson.Decode([]byte(s))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return fc
}

func TestHint_CleanCollection(t *testing.T) {
	fc := decode(t, `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{}}]}`)
	if d := New().Hint(fc); len(d) != 0 {
		t.Fatalf("expected no diagnostics, got %v", d)
	}
}

func TestHint_ReportsProblems(t *testing.T) {
	fc := decode(t, `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[2,2]]]},"properties":{}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[1]}},
		{"type":"Thing","geometry":{"type":"Circle"},"properties":{}}]}`)
	diags := New().Hint(fc)

	var joined []string
	for _, d := range diags {
		joined = append(joined, d.String())
	}
	all := strings.Join(joined, "\n")
	for _, want := range []string{
		"$.features[0].geometry.coordinates[0]: the first and last positions",
		"$.features[1].geometry.coordinates: position must have two",
		"$.features[1].properties",
		`$.features[2].type: expected "Feature"`,
		`unknown geometry type "Circle"`,
	} {
		if !strings.Contains(all, want) {
			t.Errorf("missing diagnostic %q in:\n%s", want, all)
		}
	}
}

func TestHint_NilAndWrongRoot(t *testing.T) {
	if d := New().Hint(nil); len(d) != 1 {
		t.Fatalf("nil collection: %v", d)
	}
	fc := &geojson.FeatureCollection{Type: "Feature"}
	d := New().Hint(fc)
	if len(d) != 2 {
		t.Fatalf("want type and features diagnostics, got %v", d)
	}
}
