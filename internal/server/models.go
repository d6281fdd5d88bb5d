package server

import (
	"math"
	"sort"

	"github.com/copyleftdev/gominuit/internal/fit"
)

// model is a built-in curve with its parameter names and starting values.
type model struct {
	params []string
	start  []float64
	fn     fit.Model
}

var models = map[string]model{
	"linear": {
		params: []string{"a", "b"},
		start:  []float64{0, 1},
		fn:     func(x float64, p []float64) float64 { return p[0] + p[1]*x },
	},
	"quadratic": {
		params: []string{"a", "b", "c"},
		start:  []float64{0, 1, 0},
		fn:     func(x float64, p []float64) float64 { return p[0] + p[1]*x + p[2]*x*x },
	},
	"exponential": {
		params: []string{"a", "k"},
		start:  []float64{1, 0},
		fn:     func(x float64, p []float64) float64 { return p[0] * math.Exp(p[1]*x) },
	},
	"gaussian": {
		params: []string{"amp", "mu", "sigma"},
		start:  []float64{1, 0, 1},
		fn: func(x float64, p []float64) float64 {
			z := (x - p[1]) / p[2]
			return p[0] * math.Exp(-0.5*z*z)
		},
	},
}

func modelNames() []string {
	names := make([]string, 0, len(models))
	for n := range models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// configs fills in the model's starting value for every parameter the
// request left out.
func (m model) configs(given map[string]fit.ParamConfig) map[string]fit.ParamConfig {
	out := make(map[string]fit.ParamConfig, len(m.params))
	for i, name := range m.params {
		out[name] = fit.ParamConfig{Value: m.start[i]}
	}
	for name, c := range given {
		out[name] = c
	}
	return out
}
