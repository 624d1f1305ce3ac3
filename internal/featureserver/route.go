package featureserver

import (
	"regexp"
	"strings"

	"github.com/mohammed-shakir/geojson-featureserver/internal/errs"
)

type Operation int

const (
	OpUnknown Operation = iota
	OpRestInfo
	OpServerInfo
	OpLayerInfo
	OpLayersInfo
	OpQuery
	OpGenerateRenderer
)

func (o Operation) String() string {
	switch o {
	case OpRestInfo:
		return "rest_info"
	case OpServerInfo:
		return "server_info"
	case OpLayerInfo:
		return "layer_info"
	case OpLayersInfo:
		return "layers_info"
	case OpQuery:
		return "query"
	case OpGenerateRenderer:
		return "generate_renderer"
	default:
		return "unknown"
	}
}

// Route is the result of classifying a request.
type Route struct {
	Op Operation
	// Layer holds the layer id digits for OpLayerInfo.
	Layer string
}

const (
	MethodQuery            = "query"
	MethodGenerateRenderer = "generateRenderer"
)

type pathRule struct {
	op Operation
	re *regexp.Regexp
}

// evaluated top to bottom, first match wins; the numeric layer rule must
// precede the FeatureServer catch-all
var pathRules = []pathRule{
	{OpRestInfo, regexp.MustCompile(`(?i)/rest/info$`)},
	{OpServerInfo, regexp.MustCompile(`(?i)/FeatureServer(/info|/)?$`)},
	{OpLayerInfo, regexp.MustCompile(`(?i)/FeatureServer/(\d+)(/info|/)?$`)},
	{OpLayersInfo, regexp.MustCompile(`(?i)/FeatureServer/layers$`)},
}

var featureServerRe = regexp.MustCompile(`(?i)/FeatureServer`)

// Classify selects the operation for a path and optional method hint.
// Failures are errs.ErrMethodNotSupported and errs.ErrNotFound.
func Classify(path, method string) (Route, error) {
	switch method {
	case MethodQuery:
		return Route{Op: OpQuery}, nil
	case MethodGenerateRenderer:
		return Route{Op: OpGenerateRenderer}, nil
	}

	path, _, _ = strings.Cut(path, "?")
	for _, rule := range pathRules {
		m := rule.re.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		r := Route{Op: rule.op}
		if rule.op == OpLayerInfo {
			r.Layer = m[1]
		}
		return r, nil
	}
	if featureServerRe.MatchString(path) {
		return Route{}, errs.ErrMethodNotSupported
	}
	return Route{}, errs.ErrNotFound
}
