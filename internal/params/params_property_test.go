package params

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
)

func TestNormalizeProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("boolean strings become booleans", prop.ForAll(
		func(key, raw string) bool {
			q, err := Normalize(map[string]string{key: raw}, geojson.Metadata{})
			if err != nil {
				return false
			}
			b, ok := q[key].Bool()
			return ok && b == (raw == "true")
		},
		gen.Identifier(),
		gen.OneConstOf("true", "false"),
	))

	properties.Property("JSON arrays decode to their structure", prop.ForAll(
		func(xs []int) bool {
			raw, _ := json.Marshal(xs)
			q, err := Normalize(map[string]string{"objectIds": string(raw)}, geojson.Metadata{})
			if err != nil {
				return false
			}
			var want any
			_ = json.Unmarshal(raw, &want)
			return q["objectIds"].Equal(JSON(want))
		},
		gen.SliceOf(gen.IntRange(-1000, 1000)),
	))

	properties.Property("non-JSON strings are unchanged", prop.ForAll(
		func(s string) bool {
			q, err := Normalize(map[string]string{"where": s}, geojson.Metadata{})
			if err != nil {
				return false
			}
			got, ok := q["where"].Str()
			return ok && got == s
		},
		gen.AlphaString().SuchThat(func(s string) bool {
			return s != "true" && s != "false" && s != "null"
		}),
	))

	properties.Property("limit is always resolved", prop.ForAll(
		func(rrc int, maxRecords int, withRRC bool) bool {
			raw := map[string]string{}
			if withRRC {
				raw[ResultRecordCount] = strconv.Itoa(rrc)
			}
			q, err := Normalize(raw, geojson.Metadata{MaxRecordCount: maxRecords})
			if err != nil {
				return false
			}
			got := q.Limit()
			switch {
			case withRRC && rrc != 0:
				return got == rrc
			case maxRecords != 0:
				return got == maxRecords
			default:
				return got == DefaultLimit
			}
		},
		gen.IntRange(0, 5000),
		gen.IntRange(0, 5000),
		gen.Bool(),
	))

	properties.Property("non-numeric limits are rejected", prop.ForAll(
		func(s string) bool {
			_, err := Normalize(map[string]string{Limit: s}, geojson.Metadata{})
			return err != nil && err.Error() == `Invalid "limit" parameter`
		},
		gen.AlphaString().SuchThat(func(s string) bool {
			if s == "" || s == "false" || s == "null" {
				return false
			}
			_, err := strconv.ParseFloat(s, 64)
			return err != nil
		}),
	))

	properties.TestingRun(t)
}
