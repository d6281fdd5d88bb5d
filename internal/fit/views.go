package fit

import (
	"math"

	"github.com/copyleftdev/gominuit/internal/optimization/minuit"
)

// FMin summarizes one function minimum. Values are copies; a later run
// produces a new FMin rather than changing this one.
type FMin struct {
	FVal     float64
	EDM      float64
	EDMMax   float64
	Errordef float64
	NFcn     int
	NGrad    int

	IsValid              bool
	HasValidParameters   bool
	HasCovariance        bool
	HasAccurateCovar     bool
	HasPosDefCovar       bool
	HasMadePosDefCovar   bool
	HesseFailed          bool
	IsAboveMaxEdm        bool
	HasReachedCallLimit  bool
	HasParametersAtLimit bool
}

func newFMin(fm *minuit.FunctionMinimum, nfcn, ngrad int) FMin {
	return FMin{
		FVal:                 fm.FVal,
		EDM:                  fm.EDM,
		EDMMax:               fm.EDMMax(),
		Errordef:             fm.Up,
		NFcn:                 nfcn,
		NGrad:                ngrad,
		IsValid:              fm.IsValid,
		HasValidParameters:   fm.HasValidParameters,
		HasCovariance:        fm.HasCovariance,
		HasAccurateCovar:     fm.HasAccurateCovar,
		HasPosDefCovar:       fm.HasPosDefCovar,
		HasMadePosDefCovar:   fm.HasMadePosDefCovar,
		HesseFailed:          fm.HesseFailed,
		IsAboveMaxEdm:        fm.IsAboveMaxEdm,
		HasReachedCallLimit:  fm.HasReachedCallLimit,
		HasParametersAtLimit: fm.HasParametersAtLimit(),
	}
}

// Param is one row of the parameter table.
type Param struct {
	Number int
	Name   string
	Value  float64
	Error  float64

	HasMinos   bool
	MinosLower float64
	MinosUpper float64

	HasLower bool
	HasUpper bool
	Lower    float64
	Upper    float64
	Fixed    bool
}

// MError is the MINOS record of one parameter. Lower is negative.
type MError struct {
	Number int
	Name   string
	Min    float64
	Lower  float64
	Upper  float64

	IsValid       bool
	LowerValid    bool
	UpperValid    bool
	AtLowerLimit  bool
	AtUpperLimit  bool
	AtLowerMaxFcn bool
	AtUpperMaxFcn bool
	LowerNewMin   bool
	UpperNewMin   bool
	NFcn          int
}

func newMError(me *minuit.MinosError) MError {
	return MError{
		Number:        me.Index,
		Name:          me.Name,
		Min:           me.Min,
		Lower:         me.Lower,
		Upper:         me.Upper,
		IsValid:       me.IsValid(),
		LowerValid:    me.LowerValid,
		UpperValid:    me.UpperValid,
		AtLowerLimit:  me.AtLowerLimit,
		AtUpperLimit:  me.AtUpperLimit,
		AtLowerMaxFcn: me.AtLowerMaxFcn,
		AtUpperMaxFcn: me.AtUpperMaxFcn,
		LowerNewMin:   me.LowerNewMin,
		UpperNewMin:   me.UpperNewMin,
		NFcn:          me.NFcn,
	}
}

// LegacyKey addresses one side of a MINOS error in the flat
// (name, ±1) view kept for callers of the older dictionary layout.
type LegacyKey struct {
	Name string
	Sign float64
}

// Matrix is a covariance or correlation matrix with named rows.
type Matrix struct {
	Names       []string
	Data        [][]float64
	Correlation bool
	// Accurate mirrors the covariance-accurate flag of the minimum it came from.
	Accurate bool
}

// At returns the entry for two parameter names.
func (m *Matrix) At(a, b string) (float64, bool) {
	i, ok := m.index(a)
	if !ok {
		return 0, false
	}
	j, ok := m.index(b)
	if !ok {
		return 0, false
	}
	return m.Data[i][j], true
}

func (m *Matrix) index(name string) (int, bool) {
	for i, n := range m.Names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

func paramsFromState(st *minuit.State, merrors map[string]*minuit.MinosError) []Param {
	ps := st.Parameters()
	out := make([]Param, len(ps))
	for i, p := range ps {
		out[i] = Param{
			Number:   i,
			Name:     p.Name,
			Value:    p.Value,
			Error:    p.Error,
			HasLower: p.HasLower,
			HasUpper: p.HasUpper,
			Lower:    p.Lower,
			Upper:    p.Upper,
			Fixed:    p.Fixed,
		}
		if me, ok := merrors[p.Name]; ok {
			out[i].HasMinos = true
			out[i].MinosLower = me.Lower
			out[i].MinosUpper = me.Upper
		}
	}
	return out
}

func paramsFromRegistry(r *Registry) []Param {
	out := make([]Param, r.Len())
	for i := range out {
		p := r.Current(i)
		out[i] = Param{
			Number:   i,
			Name:     p.Name,
			Value:    p.Value,
			Error:    p.Error,
			HasLower: p.HasLower(),
			HasUpper: p.HasUpper(),
			Fixed:    p.Fixed,
		}
		if out[i].HasLower {
			out[i].Lower = p.Limit.Lower
		}
		if out[i].HasUpper {
			out[i].Upper = p.Limit.Upper
		}
	}
	return out
}

// correlate normalizes a covariance in place. The name of the first
// parameter with a non-positive variance is returned on failure.
func correlate(data [][]float64, names []string, fixed []bool) (string, bool) {
	n := len(data)
	sd := make([]float64, n)
	for i := 0; i < n; i++ {
		if fixed[i] {
			continue
		}
		if !(data[i][i] > 0) {
			return names[i], false
		}
		sd[i] = math.Sqrt(data[i][i])
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			switch {
			case i == j:
				data[i][j] = 1
			case fixed[i] || fixed[j]:
				data[i][j] = 0
			default:
				data[i][j] /= sd[i] * sd[j]
			}
		}
	}
	return "", true
}
