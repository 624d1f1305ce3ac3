package renderer

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/mohammed-shakir/geojson-featureserver/internal/errs"
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson"
)

const (
	MethodEqualInterval = "esriClassifyEqualInterval"
	MethodQuantile      = "esriClassifyQuantile"
	MethodNaturalBreaks = "esriClassifyNaturalBreaks"

	defaultBreakCount = 5
	maxBreakCount     = 64
	// natural breaks run on an even sample of at most this many values
	jenksSampleSize = 1000
)

func classBreaks(rows []geojson.Row, field, oidField string, def ClassificationDef, base Symbol, ramp ColorRamp) (Renderer, error) {
	method := def.ClassificationMethod
	if method == "" {
		method = MethodEqualInterval
	}
	n := def.BreakCount
	if n == 0 {
		n = defaultBreakCount
	}
	if n < 1 || n > maxBreakCount {
		return Renderer{}, errs.BadRequest("breakCount must be between 1 and %d", maxBreakCount)
	}

	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		var v any = r.Properties[field]
		if field == oidField {
			v = float64(r.OID)
		}
		if f, ok := v.(float64); ok && !math.IsNaN(f) {
			values = append(values, f)
		}
	}
	slices.Sort(values)

	var breaks []float64
	switch method {
	case MethodEqualInterval:
		breaks = equalInterval(values, n)
	case MethodQuantile:
		breaks = quantile(values, n)
	case MethodNaturalBreaks:
		breaks = naturalBreaks(values, n)
	default:
		return Renderer{}, errs.BadRequest("Unsupported classificationMethod %q", method)
	}

	out := Renderer{Type: "classBreaks", Field: field, ClassificationMethod: method}
	if len(values) == 0 {
		return out, nil
	}
	minValue := values[0]
	out.MinValue = &minValue

	colors, err := ramp.Colors(len(breaks))
	if err != nil {
		return Renderer{}, err
	}
	lo := minValue
	for i, hi := range breaks {
		out.ClassBreakInfos = append(out.ClassBreakInfos, ClassBreakInfo{
			ClassMinValue: lo,
			ClassMaxValue: hi,
			Label:         fmt.Sprintf("%s - %s", formatNumber(lo), formatNumber(hi)),
			Symbol:        withColor(base, colors[i]),
		})
		lo = hi
	}
	return out, nil
}

// equalInterval splits [min, max] into n classes of equal width and returns
// each class's upper bound.
func equalInterval(sorted []float64, n int) []float64 {
	if len(sorted) == 0 {
		return nil
	}
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return []float64{hi}
	}
	width := (hi - lo) / float64(n)
	out := make([]float64, n)
	for i := range n - 1 {
		out[i] = lo + width*float64(i+1)
	}
	out[n-1] = hi
	return out
}

// quantile puts roughly the same number of values in each class. Repeated
// bounds are collapsed so classes never overlap.
func quantile(sorted []float64, n int) []float64 {
	if len(sorted) == 0 {
		return nil
	}
	var out []float64
	for i := 1; i <= n; i++ {
		idx := int(math.Ceil(float64(len(sorted)*i)/float64(n))) - 1
		idx = min(max(idx, 0), len(sorted)-1)
		b := sorted[idx]
		if len(out) > 0 && out[len(out)-1] == b {
			continue
		}
		out = append(out, b)
	}
	return out
}

// naturalBreaks is Jenks optimisation over the sorted values. Large inputs
// are evenly sampled first.
func naturalBreaks(sorted []float64, n int) []float64 {
	if len(sorted) == 0 {
		return nil
	}
	data := sorted
	if len(data) > jenksSampleSize {
		data = make([]float64, jenksSampleSize)
		step := float64(len(sorted)-1) / float64(jenksSampleSize-1)
		for i := range data {
			data[i] = sorted[int(math.Round(float64(i)*step))]
		}
	}
	distinct := slices.Compact(slices.Clone(data))
	if n >= len(distinct) {
		return distinct
	}

	m := len(data)
	lower := make([][]int, m+1)
	variance := make([][]float64, m+1)
	for i := range lower {
		lower[i] = make([]int, n+1)
		variance[i] = make([]float64, n+1)
	}
	for j := 1; j <= n; j++ {
		lower[1][j] = 1
		for i := 2; i <= m; i++ {
			variance[i][j] = math.Inf(1)
		}
	}

	for l := 2; l <= m; l++ {
		var sum, sumSq, w, v float64
		for k := 1; k <= l; k++ {
			lowIdx := l - k + 1
			val := data[lowIdx-1]
			w++
			sum += val
			sumSq += val * val
			v = sumSq - (sum*sum)/w
			if lowIdx == 1 {
				continue
			}
			for j := 2; j <= n; j++ {
				if candidate := v + variance[lowIdx-1][j-1]; variance[l][j] >= candidate {
					lower[l][j] = lowIdx
					variance[l][j] = candidate
				}
			}
		}
		lower[l][1] = 1
		variance[l][1] = v
	}

	out := make([]float64, n)
	out[n-1] = data[m-1]
	k := m
	for j := n; j >= 2; j-- {
		if lower[k][j] < 2 {
			out[j-2] = data[0]
			continue
		}
		idx := lower[k][j] - 2
		out[j-2] = data[idx]
		k = lower[k][j] - 1
	}
	return slices.Compact(out)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func valueText(v any) string {
	switch t := v.(type) {
	case nil:
		return "<Null>"
	case string:
		return t
	case float64:
		return formatNumber(t)
	default:
		return fmt.Sprint(t)
	}
}
