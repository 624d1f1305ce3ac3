package params

import (
	"math"
	"strings"
)

func (q Query) Get(key string) (Value, bool) {
	v, ok := q[key]
	return v, ok
}

// String returns the textual form of key, "" when missing.
func (q Query) String(key string) string {
	v, ok := q[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.Text())
}

func (q Query) Int(key string, def int) int {
	v, ok := q[key]
	if !ok || !v.Present() {
		return def
	}
	if n, ok := v.Int(); ok {
		return n
	}
	return def
}

func (q Query) Bool(key string, def bool) bool {
	v, ok := q[key]
	if !ok {
		return def
	}
	if b, ok := v.Bool(); ok {
		return b
	}
	return def
}

// List splits a comma separated parameter; JSON arrays are flattened to text.
func (q Query) List(key string) []string {
	v, ok := q[key]
	if !ok {
		return nil
	}
	var parts []string
	if j, ok := v.JSONValue(); ok {
		if arr, ok := j.([]any); ok {
			for _, e := range arr {
				parts = append(parts, fromAny(e).Text())
			}
			return parts
		}
	}
	for p := range strings.SplitSeq(v.Text(), ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Limit is the resolved page size; Normalize always sets it. Limits past
// the int range saturate to math.MaxInt.
func (q Query) Limit() int {
	if f, ok := q[Limit].Float(); ok && f >= math.MaxInt64 {
		return math.MaxInt
	}
	return q.Int(Limit, DefaultLimit)
}
