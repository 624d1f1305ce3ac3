package params

import (
	"encoding/json"

	"github.com/mohammed-shakir/geojson-featureserver/internal/errs"
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
)

const (
	Limit             = "limit"
	ResultRecordCount = "resultRecordCount"

	DefaultLimit = 2000
)

// Query is the normalized parameter set of one request.
type Query map[string]Value

// Normalize coerces raw query-string values and resolves the paging limit.
// The only failure is an InvalidParameter for a non-numeric limit or
// resultRecordCount.
func Normalize(raw map[string]string, meta geojson.Metadata) (Query, error) {
	q := make(Query, len(raw)+1)
	for k, s := range raw {
		switch s {
		case "true":
			q[k] = Bool(true)
		case "false":
			q[k] = Bool(false)
		default:
			q[k] = tryParse(s)
		}
	}

	limit, rrc := q[Limit], q[ResultRecordCount]
	switch {
	case limit.Present() && !limit.Numeric():
		return nil, errs.InvalidParameter(Limit)
	case rrc.Present() && !rrc.Numeric():
		return nil, errs.InvalidParameter(ResultRecordCount)
	}

	if !limit.Present() {
		switch {
		case rrc.Present():
			q[Limit] = rrc
		case meta.MaxRecordCount != 0:
			q[Limit] = Number(float64(meta.MaxRecordCount))
		default:
			q[Limit] = Number(DefaultLimit)
		}
	}
	return q, nil
}

// tryParse decodes s as a single JSON value, keeping s when that fails.
func tryParse(s string) Value {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return String(s)
	}
	return fromAny(v)
}

func fromAny(v any) Value {
	switch t := v.(type) {
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	default:
		return JSON(t)
	}
}
