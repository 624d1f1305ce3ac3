// Package params normalizes FeatureServer query parameters into typed values.
package params

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
)

type Kind int

const (
	KindString Kind = iota
	KindBool
	KindNumber
	// KindJSON holds a parsed object, array or null.
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindJSON:
		return "json"
	default:
		return "string"
	}
}

// Value is a normalized query parameter.
type Value struct {
	kind Kind
	s    string
	b    bool
	n    float64
	j    any
}

func String(s string) Value  { return Value{kind: KindString, s: s} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// JSON wraps a decoded JSON object, array or null.
func JSON(v any) Value { return Value{kind: KindJSON, j: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) Str() (string, bool) {
	return v.s, v.kind == KindString
}

func (v Value) Bool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Float reports the numeric value: numbers as-is, strings spelled as a
// JavaScript number. Everything else is not numeric.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.n, !math.IsNaN(v.n)
	case KindString:
		return parseNumber(v.s)
	default:
		return 0, false
	}
}

// parseNumber accepts decimal and exponent forms, 0x hex integers and a
// signed Infinity. Go-only spellings such as inf, nan or 1_000 are rejected.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		return float64(n), err == nil
	}
	if strings.ContainsFunc(s, func(r rune) bool {
		return r == '_' || (r != 'e' && r != 'E' && unicode.IsLetter(r))
	}) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, !math.IsNaN(f)
}

// Int truncates the numeric value. Values outside the int range are not
// integers.
func (v Value) Int() (int, bool) {
	f, ok := v.Float()
	if !ok || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int(f), true
}

func (v Value) Numeric() bool {
	_, ok := v.Float()
	return ok
}

// JSONValue returns the decoded structure of a KindJSON value.
func (v Value) JSONValue() (any, bool) {
	return v.j, v.kind == KindJSON
}

// Present reports whether the value counts as supplied: empty strings,
// false, zero and null do not.
func (v Value) Present() bool {
	switch v.kind {
	case KindString:
		return v.s != ""
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	default:
		return v.j != nil
	}
}

// Interface returns the plain Go value (string, bool, float64 or decoded JSON).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindJSON:
		return v.j
	default:
		return v.s
	}
}

// Text renders the value the way it would appear on a query string.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	default:
		b, err := json.Marshal(v.j)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindJSON:
		a, errA := json.Marshal(v.j)
		b, errB := json.Marshal(o.j)
		return errA == nil && errB == nil && string(a) == string(b)
	default:
		return v.s == o.s && v.b == o.b && v.n == o.n
	}
}
