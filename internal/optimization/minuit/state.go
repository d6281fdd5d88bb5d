package minuit

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/gominuit/internal/optimization"
)

// Parameter is one entry of the user parameter state, in external coordinates.
type Parameter struct {
	Name     string
	Value    float64
	Error    float64
	Lower    float64
	Upper    float64
	HasLower bool
	HasUpper bool
	Fixed    bool
}

// HasLimits reports whether at least one bound is set.
func (p Parameter) HasLimits() bool { return p.HasLower || p.HasUpper }

// AtLimit reports whether the value sits within half an error of a bound.
func (p Parameter) AtLimit() bool {
	if p.Fixed || !p.HasLimits() {
		return false
	}
	half := 0.5 * math.Abs(p.Error)
	if p.HasLower && p.Value-half <= p.Lower {
		return true
	}
	if p.HasUpper && p.Value+half >= p.Upper {
		return true
	}
	return false
}

// CovarianceStatus describes the quality of a covariance matrix.
type CovarianceStatus int

const (
	CovNone CovarianceStatus = iota
	CovApproximate
	CovMadePosDef
	CovAccurate
	CovFailed
)

func (s CovarianceStatus) String() string {
	switch s {
	case CovNone:
		return "none"
	case CovApproximate:
		return "approximate"
	case CovMadePosDef:
		return "made positive definite"
	case CovAccurate:
		return "accurate"
	case CovFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the ordered user parameter state consumed and produced by the
// engine. The covariance, when present, spans the varying parameters in
// order and is expressed in external coordinates.
type State struct {
	params    []Parameter
	index     map[string]int
	cov       *mat.SymDense
	covStatus CovarianceStatus
}

// NewState returns an empty parameter state.
func NewState() *State {
	return &State{index: make(map[string]int)}
}

// Add appends a new unbounded, varying parameter.
func (s *State) Add(name string, value, err float64) error {
	if _, ok := s.index[name]; ok {
		return optimization.NewError(optimization.KindDuplicateParameter, "parameter already in state").
			WithComponent("minuit").WithParam(name)
	}
	s.index[name] = len(s.params)
	s.params = append(s.params, Parameter{Name: name, Value: value, Error: math.Abs(err)})
	s.dropCovariance()
	return nil
}

// Len returns the number of parameters, fixed included.
func (s *State) Len() int { return len(s.params) }

// Index returns the position of the named parameter.
func (s *State) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Parameter returns a copy of parameter i.
func (s *State) Parameter(i int) Parameter { return s.params[i] }

// Parameters returns a copy of all parameters in order.
func (s *State) Parameters() []Parameter {
	out := make([]Parameter, len(s.params))
	copy(out, s.params)
	return out
}

// Values returns the external values of all parameters.
func (s *State) Values() []float64 {
	out := make([]float64, len(s.params))
	for i, p := range s.params {
		out[i] = p.Value
	}
	return out
}

// Errors returns the external errors of all parameters.
func (s *State) Errors() []float64 {
	out := make([]float64, len(s.params))
	for i, p := range s.params {
		out[i] = p.Error
	}
	return out
}

// SetValue sets the external value of parameter i. A value outside the
// limits is moved onto the nearest limit and clamped is reported true.
func (s *State) SetValue(i int, v float64) (clamped bool) {
	p := &s.params[i]
	if p.HasLower && v < p.Lower {
		v, clamped = p.Lower, true
	}
	if p.HasUpper && v > p.Upper {
		v, clamped = p.Upper, true
	}
	p.Value = v
	s.dropCovariance()
	return clamped
}

// SetError sets the external error (step) of parameter i.
func (s *State) SetError(i int, err float64) {
	s.params[i].Error = math.Abs(err)
	s.dropCovariance()
}

// SetLimits installs a two-sided limit. A value outside the new range is
// moved to its middle; callers re-apply the intended value afterwards.
func (s *State) SetLimits(i int, lower, upper float64) error {
	if !(lower < upper) {
		return optimization.NewErrorf(optimization.KindInvalidLimit,
			"lower limit %g must be below upper limit %g", lower, upper).
			WithComponent("minuit").WithParam(s.params[i].Name)
	}
	p := &s.params[i]
	p.Lower, p.Upper = lower, upper
	p.HasLower, p.HasUpper = true, true
	if p.Value < lower || p.Value > upper {
		p.Value = 0.5 * (lower + upper)
	}
	s.dropCovariance()
	return nil
}

// SetLowerLimit installs a one-sided lower bound.
func (s *State) SetLowerLimit(i int, lower float64) {
	p := &s.params[i]
	p.Lower, p.HasLower = lower, true
	p.Upper, p.HasUpper = 0, false
	if p.Value < lower {
		p.Value = lower + stepOrOne(p.Error)
	}
	s.dropCovariance()
}

// SetUpperLimit installs a one-sided upper bound.
func (s *State) SetUpperLimit(i int, upper float64) {
	p := &s.params[i]
	p.Upper, p.HasUpper = upper, true
	p.Lower, p.HasLower = 0, false
	if p.Value > upper {
		p.Value = upper - stepOrOne(p.Error)
	}
	s.dropCovariance()
}

// RemoveLimits makes parameter i unbounded.
func (s *State) RemoveLimits(i int) {
	p := &s.params[i]
	p.Lower, p.Upper = 0, 0
	p.HasLower, p.HasUpper = false, false
	s.dropCovariance()
}

// Fix holds parameter i constant.
func (s *State) Fix(i int) {
	if !s.params[i].Fixed {
		s.params[i].Fixed = true
		s.dropCovariance()
	}
}

// Release lets parameter i vary again.
func (s *State) Release(i int) {
	if s.params[i].Fixed {
		s.params[i].Fixed = false
		s.dropCovariance()
	}
}

// Varying returns the positions of the non-fixed parameters.
func (s *State) Varying() []int {
	out := make([]int, 0, len(s.params))
	for i, p := range s.params {
		if !p.Fixed {
			out = append(out, i)
		}
	}
	return out
}

// Covariance returns the covariance over the varying parameters, or nil.
// The matrix must be treated as read-only.
func (s *State) Covariance() *mat.SymDense { return s.cov }

// CovarianceStatus returns the quality flag of the covariance.
func (s *State) CovarianceStatus() CovarianceStatus { return s.covStatus }

// HasCovariance reports whether a covariance matrix is attached.
func (s *State) HasCovariance() bool { return s.cov != nil }

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := &State{
		params:    make([]Parameter, len(s.params)),
		index:     make(map[string]int, len(s.index)),
		covStatus: s.covStatus,
	}
	copy(c.params, s.params)
	for k, v := range s.index {
		c.index[k] = v
	}
	if s.cov != nil {
		c.cov = mat.NewSymDense(s.cov.SymmetricDim(), nil)
		c.cov.CopySym(s.cov)
	}
	return c
}

func (s *State) dropCovariance() {
	s.cov = nil
	s.covStatus = CovNone
}

// internalValues returns the internal coordinates of the varying parameters.
func (s *State) internalValues(varying []int) []float64 {
	u := make([]float64, len(varying))
	for k, i := range varying {
		u[k] = s.params[i].ext2int(s.params[i].Value)
	}
	return u
}

// internalErrors returns internal step sizes of the varying parameters.
func (s *State) internalErrors(varying []int) []float64 {
	e := make([]float64, len(varying))
	for k, i := range varying {
		p := &s.params[i]
		e[k] = p.ext2intError(p.Value, p.Error)
		if !(e[k] > 0) || math.IsInf(e[k], 0) {
			e[k] = 0.1
		}
	}
	return e
}

// external fills x with all external values, taking the varying ones from u.
func (s *State) external(x []float64, varying []int, u []float64) {
	for i, p := range s.params {
		x[i] = p.Value
	}
	for k, i := range varying {
		x[i] = s.params[i].int2ext(u[k])
	}
}

// applyInternal writes internal results back as external values, errors and covariance.
func (s *State) applyInternal(varying []int, u []float64, covInt *mat.SymDense, status CovarianceStatus) {
	for k, i := range varying {
		s.params[i].Value = s.params[i].int2ext(u[k])
	}
	if covInt == nil {
		s.dropCovariance()
		return
	}
	n := len(varying)
	jac := make([]float64, n)
	for k, i := range varying {
		p := &s.params[i]
		jac[k] = p.dInt2Ext(u[k])
		if v := covInt.At(k, k); v > 0 {
			p.Error = p.int2extError(u[k], math.Sqrt(v))
		}
	}
	cov := mat.NewSymDense(n, nil)
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			cov.SetSym(a, b, jac[a]*covInt.At(a, b)*jac[b])
		}
	}
	s.cov = cov
	s.covStatus = status
}

func stepOrOne(err float64) float64 {
	if err > 0 {
		return err
	}
	return 1
}
