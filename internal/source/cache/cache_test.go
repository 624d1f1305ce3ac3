package cache

import (
	"testing"

	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
)

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	a := &geojson.FeatureCollection{Type: "FeatureCollection"}
	c.Add("a", Entry{Collection: a})
	c.Add("b", Entry{Collection: &geojson.FeatureCollection{}})
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Add("c", Entry{Collection: &geojson.FeatureCollection{}})

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if e, ok := c.Get("a"); !ok || e.Collection != a {
		t.Fatal("a should survive as most recently used")
	}
	if c.Len() != 2 {
		t.Fatalf("len=%d want 2", c.Len())
	}
}

func TestCache_LookupChecksFingerprint(t *testing.T) {
	c, err := New(0)
	if err != nil {
		t.Fatal(err)
	}
	fc := &geojson.FeatureCollection{}
	c.Add("lakes", Entry{Fingerprint: "f1", Collection: fc})

	if got, ok := c.Lookup("lakes", "f1"); !ok || got != fc {
		t.Fatal("matching fingerprint should hit")
	}
	if _, ok := c.Lookup("lakes", "f2"); ok {
		t.Fatal("stale fingerprint must miss")
	}
	if !c.Remove("lakes") || c.Remove("lakes") {
		t.Fatal("remove should report presence once")
	}
}
