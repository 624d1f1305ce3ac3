package renderer

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/mohammed-shakir/geojson-featureserver/internal/errs"
)

const (
	RampAlgorithmic = "algorithmic"
	RampMultipart   = "multipart"

	AlgorithmHSV    = "esriHSVAlgorithm"
	AlgorithmCIELab = "esriCIELabAlgorithm"
	AlgorithmLabLCh = "esriLabLChAlgorithm"
)

// ColorRamp is an Esri color ramp: algorithmic between two colors, or a
// multipart sequence of algorithmic ramps.
type ColorRamp struct {
	Type       string      `json:"type"`
	FromColor  []int       `json:"fromColor,omitempty"`
	ToColor    []int       `json:"toColor,omitempty"`
	Algorithm  string      `json:"algorithm,omitempty"`
	ColorRamps []ColorRamp `json:"colorRamps,omitempty"`
}

func DefaultRamp() ColorRamp {
	return ColorRamp{
		Type:      RampAlgorithmic,
		FromColor: []int{0, 255, 0, 255},
		ToColor:   []int{0, 0, 255, 255},
		Algorithm: AlgorithmHSV,
	}
}

// Colors returns n colors spread evenly along the ramp.
func (r ColorRamp) Colors(n int) ([]Color, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]Color, n)
	for i := range out {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		c, err := r.at(t)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func (r ColorRamp) at(t float64) (Color, error) {
	switch r.Type {
	case RampAlgorithmic, "":
		return r.blend(t)
	case RampMultipart:
		parts := len(r.ColorRamps)
		if parts == 0 {
			return Color{}, errs.BadRequest("multipart colorRamp has no parts")
		}
		seg := min(int(t*float64(parts)), parts-1)
		return r.ColorRamps[seg].at(t*float64(parts) - float64(seg))
	default:
		return Color{}, errs.BadRequest("Unsupported colorRamp type %q", r.Type)
	}
}

func (r ColorRamp) blend(t float64) (Color, error) {
	from, fromAlpha, err := toColorful(r.FromColor)
	if err != nil {
		return Color{}, err
	}
	to, toAlpha, err := toColorful(r.ToColor)
	if err != nil {
		return Color{}, err
	}

	var c colorful.Color
	switch r.Algorithm {
	case AlgorithmHSV, "":
		c = from.BlendHsv(to, t)
	case AlgorithmCIELab:
		c = from.BlendLab(to, t)
	case AlgorithmLabLCh:
		c = from.BlendHcl(to, t)
	default:
		return Color{}, errs.BadRequest("Unsupported colorRamp algorithm %q", r.Algorithm)
	}
	red, green, blue := c.Clamped().RGB255()
	alpha := int(math.Round(float64(fromAlpha) + (float64(toAlpha)-float64(fromAlpha))*t))
	return Color{int(red), int(green), int(blue), alpha}, nil
}

func toColorful(rgba []int) (colorful.Color, int, error) {
	if len(rgba) != 3 && len(rgba) != 4 {
		return colorful.Color{}, 0, errs.BadRequest("colorRamp colors need 3 or 4 channels")
	}
	for _, ch := range rgba {
		if ch < 0 || ch > 255 {
			return colorful.Color{}, 0, errs.BadRequest("colorRamp channel %d out of range", ch)
		}
	}
	alpha := 255
	if len(rgba) == 4 {
		alpha = rgba[3]
	}
	c := colorful.Color{R: float64(rgba[0]) / 255, G: float64(rgba[1]) / 255, B: float64(rgba[2]) / 255}
	return c, alpha, nil
}
