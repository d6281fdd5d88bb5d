package server

import (
	"encoding/json"
	"math"
	"time"

	"github.com/copyleftdev/gominuit/internal/fit"
	"github.com/copyleftdev/gominuit/internal/optimization"
)

// Float encodes non-finite values as null, which JSON cannot represent.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func floats(v []float64) []Float {
	out := make([]Float, len(v))
	for i, x := range v {
		out[i] = Float(x)
	}
	return out
}

// CreateRequest is the body of POST /api/v1/fits and the fit.create params.
type CreateRequest struct {
	Model  string                     `yaml:"model"`
	X      []float64                  `yaml:"x"`
	Y      []float64                  `yaml:"y"`
	YErr   []float64                  `yaml:"yerr"`
	Params map[string]fit.ParamConfig `yaml:"params"`
	NCall  int                        `yaml:"ncall"`
	Hesse  bool                       `yaml:"hesse"`
	Minos  bool                       `yaml:"minos"`
}

// MinosRequest is the body of POST /api/v1/fits/{id}/minos.
type MinosRequest struct {
	ID      string   `yaml:"id"`
	Params  []string `yaml:"params"`
	Sigma   float64  `yaml:"sigma"`
	CL      float64  `yaml:"cl"`
	MaxCall int      `yaml:"maxcall"`
}

// HesseRequest is the body of POST /api/v1/fits/{id}/hesse.
type HesseRequest struct {
	ID      string `yaml:"id"`
	MaxCall int    `yaml:"maxcall"`
}

// ProfileRequest is the body of POST /api/v1/fits/{id}/profile.
type ProfileRequest struct {
	ID    string  `yaml:"id"`
	Param string  `yaml:"param"`
	Bins  int     `yaml:"bins"`
	Sigma float64 `yaml:"sigma"`
}

// IDRequest carries only a fit id.
type IDRequest struct {
	ID string `yaml:"id"`
}

// FMinView is the JSON form of fit.FMin.
type FMinView struct {
	FVal                 Float `json:"fval"`
	EDM                  Float `json:"edm"`
	EDMMax               Float `json:"edm_goal"`
	Errordef             Float `json:"errordef"`
	NFcn                 int   `json:"nfcn"`
	NGrad                int   `json:"ngrad"`
	IsValid              bool  `json:"is_valid"`
	HasCovariance        bool  `json:"has_covariance"`
	HasAccurateCovar     bool  `json:"has_accurate_covar"`
	HasMadePosDefCovar   bool  `json:"has_made_posdef_covar"`
	HesseFailed          bool  `json:"hesse_failed"`
	IsAboveMaxEdm        bool  `json:"is_above_max_edm"`
	HasReachedCallLimit  bool  `json:"has_reached_call_limit"`
	HasParametersAtLimit bool  `json:"has_parameters_at_limit"`
}

func newFMinView(fm fit.FMin) *FMinView {
	return &FMinView{
		FVal:                 Float(fm.FVal),
		EDM:                  Float(fm.EDM),
		EDMMax:               Float(fm.EDMMax),
		Errordef:             Float(fm.Errordef),
		NFcn:                 fm.NFcn,
		NGrad:                fm.NGrad,
		IsValid:              fm.IsValid,
		HasCovariance:        fm.HasCovariance,
		HasAccurateCovar:     fm.HasAccurateCovar,
		HasMadePosDefCovar:   fm.HasMadePosDefCovar,
		HesseFailed:          fm.HesseFailed,
		IsAboveMaxEdm:        fm.IsAboveMaxEdm,
		HasReachedCallLimit:  fm.HasReachedCallLimit,
		HasParametersAtLimit: fm.HasParametersAtLimit,
	}
}

// ParamView is one row of the parameter table.
type ParamView struct {
	Name       string `json:"name"`
	Value      Float  `json:"value"`
	Error      Float  `json:"error"`
	MinosLower *Float `json:"minos_lower,omitempty"`
	MinosUpper *Float `json:"minos_upper,omitempty"`
	Lower      *Float `json:"lower,omitempty"`
	Upper      *Float `json:"upper,omitempty"`
	Fixed      bool   `json:"fixed"`
}

func ptr(v float64) *Float {
	f := Float(v)
	return &f
}

func newParamViews(params []fit.Param) []ParamView {
	out := make([]ParamView, len(params))
	for i, p := range params {
		v := ParamView{Name: p.Name, Value: Float(p.Value), Error: Float(p.Error), Fixed: p.Fixed}
		if p.HasMinos {
			v.MinosLower, v.MinosUpper = ptr(p.MinosLower), ptr(p.MinosUpper)
		}
		if p.HasLower {
			v.Lower = ptr(p.Lower)
		}
		if p.HasUpper {
			v.Upper = ptr(p.Upper)
		}
		out[i] = v
	}
	return out
}

// MErrorView is the JSON form of one MINOS record.
type MErrorView struct {
	Name         string `json:"name"`
	Lower        Float  `json:"lower"`
	Upper        Float  `json:"upper"`
	IsValid      bool   `json:"is_valid"`
	AtLowerLimit bool   `json:"at_lower_limit"`
	AtUpperLimit bool   `json:"at_upper_limit"`
	NewMinimum   bool   `json:"new_minimum"`
	NFcn         int    `json:"nfcn"`
}

func newMErrorViews(merrors []fit.MError) []MErrorView {
	out := make([]MErrorView, len(merrors))
	for i, me := range merrors {
		out[i] = MErrorView{
			Name:         me.Name,
			Lower:        Float(me.Lower),
			Upper:        Float(me.Upper),
			IsValid:      me.IsValid,
			AtLowerLimit: me.AtLowerLimit,
			AtUpperLimit: me.AtUpperLimit,
			NewMinimum:   me.LowerNewMin || me.UpperNewMin,
			NFcn:         me.NFcn,
		}
	}
	return out
}

// FitView is the state of one stored fit.
type FitView struct {
	ID          string       `json:"id"`
	Model       string       `json:"model"`
	Created     time.Time    `json:"created"`
	NDof        int          `json:"ndof"`
	FMin        *FMinView    `json:"fmin,omitempty"`
	Params      []ParamView  `json:"params"`
	Covariance  [][]Float    `json:"covariance,omitempty"`
	MErrors     []MErrorView `json:"merrors,omitempty"`
	Diagnostics []string     `json:"diagnostics,omitempty"`
}

// ProfileView is a profile scan result.
type ProfileView struct {
	Param     string  `json:"param"`
	X         []Float `json:"x"`
	Y         []Float `json:"y"`
	Converged []bool  `json:"converged"`
}

func diagnosticStrings(diags []optimization.Diagnostic) []string {
	if len(diags) == 0 {
		return nil
	}
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.String()
	}
	return out
}
