// Package render formats fit results for people. Callers pick a variant
// explicitly; nothing here inspects the terminal or environment.
package render

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/copyleftdev/gominuit/internal/fit"
)

// Renderer writes the tables of a fit session.
type Renderer interface {
	FMin(w io.Writer, fm fit.FMin) error
	Params(w io.Writer, params []fit.Param) error
	Matrix(w io.Writer, m *fit.Matrix) error
	MErrors(w io.Writer, merrors []fit.MError) error
}

// New returns the renderer registered under name.
func New(name string) (Renderer, error) {
	switch name {
	case "", "text":
		return Text{}, nil
	case "styled":
		return NewStyled(), nil
	default:
		return nil, fmt.Errorf("unknown renderer %q", name)
	}
}

func num(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func flag(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func limit(p fit.Param, lower bool) string {
	switch {
	case lower && p.HasLower:
		return num(p.Lower)
	case !lower && p.HasUpper:
		return num(p.Upper)
	}
	return ""
}

func minosCell(p fit.Param, lower bool) string {
	if !p.HasMinos {
		return ""
	}
	if lower {
		return num(p.MinosLower)
	}
	return "+" + num(p.MinosUpper)
}

// fminRows is the shared key/value layout of a minimum summary.
func fminRows(fm fit.FMin) [][2]string {
	return [][2]string{
		{"FCN", num(fm.FVal)},
		{"EDM", num(fm.EDM) + " (goal: " + num(fm.EDMMax) + ")"},
		{"Errordef", num(fm.Errordef)},
		{"Nfcn", strconv.Itoa(fm.NFcn)},
		{"Ngrad", strconv.Itoa(fm.NGrad)},
		{"Valid minimum", flag(fm.IsValid)},
		{"Valid parameters", flag(fm.HasValidParameters)},
		{"Above EDM threshold", flag(fm.IsAboveMaxEdm)},
		{"Call limit reached", flag(fm.HasReachedCallLimit)},
		{"Parameters at limit", flag(fm.HasParametersAtLimit)},
		{"Covariance", covarianceStatus(fm)},
	}
}

func covarianceStatus(fm fit.FMin) string {
	switch {
	case !fm.HasCovariance:
		return "none"
	case fm.HesseFailed:
		return "hesse failed"
	case fm.HasMadePosDefCovar:
		return "forced pos. def."
	case fm.HasAccurateCovar:
		return "accurate"
	case fm.HasPosDefCovar:
		return "approximate"
	}
	return "not pos. def."
}

var paramHeader = []string{"#", "Name", "Value", "Hesse Error", "Minos-", "Minos+", "Limit-", "Limit+", "Fixed"}

func paramRow(p fit.Param) []string {
	fixed := ""
	if p.Fixed {
		fixed = "yes"
	}
	return []string{
		strconv.Itoa(p.Number), p.Name, num(p.Value), num(p.Error),
		minosCell(p, true), minosCell(p, false),
		limit(p, true), limit(p, false), fixed,
	}
}

var merrorHeader = []string{"Name", "Lower", "Upper", "Valid", "At limit", "Max FCN", "New min"}

func merrorRow(me fit.MError) []string {
	pair := func(lo, hi bool) string { return flag(lo) + "/" + flag(hi) }
	return []string{
		me.Name, num(me.Lower), "+" + num(me.Upper),
		pair(me.LowerValid, me.UpperValid),
		pair(me.AtLowerLimit, me.AtUpperLimit),
		pair(me.AtLowerMaxFcn, me.AtUpperMaxFcn),
		pair(me.LowerNewMin, me.UpperNewMin),
	}
}

func matrixCell(m *fit.Matrix, v float64) string {
	if m.Correlation {
		return strconv.FormatFloat(v, 'f', 3, 64)
	}
	return num(v)
}
