package minuit

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/gominuit/internal/optimization"
)

// gradientStep is the central-difference step in units of the internal error.
const gradientStep = 1e-3

// mnFCN evaluates the user FCN on internal coordinates of the varying
// parameters of a state. The first error raised by the user function is
// latched: later calls return NaN without calling back into user code.
// With a positive limit, calls past nfcn == limit also return NaN and set
// exhausted instead of reaching the user function.
type mnFCN struct {
	fcn       optimization.FCN
	state     *State
	varying   []int
	scales    []float64
	x         []float64
	nfcn      int
	ngrad     int
	limit     int
	exhausted bool
	err       error
}

func newMnFCN(fcn optimization.FCN, st *State) *mnFCN {
	varying := st.Varying()
	return &mnFCN{
		fcn:     fcn,
		state:   st,
		varying: varying,
		scales:  st.internalErrors(varying),
		x:       make([]float64, st.Len()),
	}
}

func (m *mnFCN) dim() int { return len(m.varying) }

// value is the objective at internal point u.
func (m *mnFCN) value(u []float64) float64 {
	if m.err != nil {
		return math.NaN()
	}
	if m.limit > 0 && m.nfcn >= m.limit {
		m.exhausted = true
		return math.NaN()
	}
	m.state.external(m.x, m.varying, u)
	m.nfcn++
	f, err := m.fcn.Value(m.x)
	if err != nil {
		m.err = err
		return math.NaN()
	}
	return f
}

// gradient fills grad with d(objective)/d(internal) at u.
func (m *mnFCN) gradient(grad, u []float64) {
	if m.err != nil || m.exhausted {
		for k := range grad {
			grad[k] = math.NaN()
		}
		return
	}
	if m.fcn.HasGradient() {
		m.state.external(m.x, m.varying, u)
		m.ngrad++
		g, err := m.fcn.Gradient(m.x)
		if err != nil {
			m.err = err
			for k := range grad {
				grad[k] = math.NaN()
			}
			return
		}
		for k, i := range m.varying {
			grad[k] = g[i] * m.state.params[i].dInt2Ext(u[k])
		}
		return
	}
	m.numericalGradient(grad, u)
}

// numericalGradient differentiates in coordinates scaled by the internal errors.
func (m *mnFCN) numericalGradient(grad, u []float64) {
	n := len(u)
	uu := make([]float64, n)
	scaled := func(w []float64) float64 {
		for k := range w {
			uu[k] = u[k] + m.scales[k]*w[k]
		}
		return m.value(uu)
	}
	origin := make([]float64, n)
	fd.Gradient(grad, scaled, origin, &fd.Settings{
		Formula: fd.Central,
		Step:    gradientStep,
	})
	for k := range grad {
		grad[k] /= m.scales[k]
	}
}

// status reports to gonum whether evaluation must stop.
func (m *mnFCN) status() (optimize.Status, error) {
	switch {
	case m.err != nil:
		return optimize.Failure, nil
	case m.exhausted || m.remaining() == 0:
		return optimize.FunctionEvaluationLimit, nil
	}
	return optimize.NotTerminated, nil
}

// remaining is the number of calls left before the limit; -1 means unlimited.
func (m *mnFCN) remaining() int {
	if m.limit <= 0 {
		return -1
	}
	return max(m.limit-m.nfcn, 0)
}

// canDifferentiate reports whether the call limit still covers a gradient.
func (m *mnFCN) canDifferentiate() bool {
	if m.exhausted {
		return false
	}
	left := m.remaining()
	return left < 0 || m.fcn.HasGradient() || left >= 2*m.dim()
}

// setScales updates the numerical differentiation scales from internal errors.
func (m *mnFCN) setScales(errs []float64) {
	for k, e := range errs {
		if e > 0 && !math.IsInf(e, 0) && !math.IsNaN(e) {
			m.scales[k] = e
		}
	}
}

// abort returns the latched user error wrapped for the caller.
func (m *mnFCN) abort(op string) error {
	if m.err == nil {
		return nil
	}
	if _, ok := optimization.IsOptimizationError(m.err); ok {
		return m.err
	}
	return optimization.WrapError(m.err, optimization.KindObjectiveFailed, "objective returned an error").
		WithComponent("minuit").WithOperation(op)
}
