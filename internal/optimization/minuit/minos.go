package minuit

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/gominuit/internal/optimization"
)

const (
	// crossTolerance is the accepted |F - fmin - up| relative to up.
	crossTolerance = 0.01
	// newMinTolerance is how far below fmin (relative to up) a profile point
	// must fall before it counts as a new minimum.
	newMinTolerance = 0.01
	maxCrossIter    = 20
)

// MinosError is the asymmetric error of one parameter. Lower is negative.
type MinosError struct {
	Index int
	Name  string
	// Min is the best-fit value the offsets are relative to.
	Min   float64
	Lower float64
	Upper float64

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

// IsValid reports whether both sides were found.
func (e *MinosError) IsValid() bool { return e.LowerValid && e.UpperValid }

// crossing is the result of a one-sided search for F = fmin + up.
type crossing struct {
	offset  float64
	valid   bool
	atLimit bool
	maxFcn  bool
	newMin  bool
	nfcn    int
}

// Minos computes the asymmetric error of parameter index around fmin.
// maxcall bounds the calls spent on each side (0 selects the default).
func Minos(fcn optimization.FCN, fmin *FunctionMinimum, strategy optimization.Strategy, index, maxcall int, tol float64, opts ...Option) (*MinosError, error) {
	o := applyOptions(opts)
	st := fmin.State
	if index < 0 || index >= st.Len() {
		return nil, optimization.NewErrorf(optimization.KindUnknownParameter, "no parameter at index %d", index).
			WithComponent("minuit").WithOperation("minos")
	}
	p := st.Parameter(index)
	if p.Fixed {
		return nil, optimization.NewError(optimization.KindInvalidArgument, "cannot run minos on a fixed parameter").
			WithComponent("minuit").WithOperation("minos").WithParam(p.Name)
	}
	nvar := len(st.Varying())
	if maxcall <= 0 {
		maxcall = optimization.DefaultMinosCalls(nvar)
	}
	pr := &profiler{fcn: fcn, fmin: fmin, strategy: toStrategy(strategy), tol: tol, logger: o.logger}

	up, err := pr.cross([]int{index}, []float64{1}, maxcall)
	if err != nil {
		return nil, err
	}
	lo, err := pr.cross([]int{index}, []float64{-1}, maxcall)
	if err != nil {
		return nil, err
	}

	me := &MinosError{
		Index:         index,
		Name:          p.Name,
		Min:           p.Value,
		Lower:         -lo.offset,
		Upper:         up.offset,
		LowerValid:    lo.valid,
		UpperValid:    up.valid,
		AtLowerLimit:  lo.atLimit,
		AtUpperLimit:  up.atLimit,
		AtLowerMaxFcn: lo.maxFcn,
		AtUpperMaxFcn: up.maxFcn,
		LowerNewMin:   lo.newMin,
		UpperNewMin:   up.newMin,
		NFcn:          lo.nfcn + up.nfcn,
	}
	o.logger.Debug("minos finished",
		zap.String("param", p.Name),
		zap.Float64("lower", me.Lower),
		zap.Float64("upper", me.Upper),
		zap.Bool("valid", me.IsValid()),
		zap.Int("nfcn", me.NFcn),
	)
	return me, nil
}

// profiler evaluates the objective minimized over all parameters except a
// pinned subset.
type profiler struct {
	fcn      optimization.FCN
	fmin     *FunctionMinimum
	strategy optimization.Strategy
	tol      float64
	logger   *zap.Logger
}

// cross walks from the minimum along dir (in units of the parabolic
// errors of the pinned parameters) until the profile rises by up.
// The returned offset is measured in those same units times the error,
// i.e. for a single parameter it is the external distance from the minimum.
func (pr *profiler) cross(idx []int, dir []float64, maxcall int) (crossing, error) {
	st := pr.fmin.State
	up := pr.fcn.Up()
	best := make([]float64, len(idx))
	step := make([]float64, len(idx))
	for k, i := range idx {
		p := st.Parameter(i)
		best[k] = p.Value
		step[k] = dir[k] * stepOrOne(p.Error)
	}

	// tmax is the largest multiple of step that keeps every pinned parameter in range.
	tmax := math.Inf(1)
	for k, i := range idx {
		p := st.Parameter(i)
		if step[k] > 0 && p.HasUpper {
			tmax = math.Min(tmax, (p.Upper-best[k])/step[k])
		}
		if step[k] < 0 && p.HasLower {
			tmax = math.Min(tmax, (p.Lower-best[k])/step[k])
		}
	}

	var c crossing
	t := 1.0
	for iter := 0; iter < maxCrossIter; iter++ {
		atLimit := false
		if t >= tmax {
			t, atLimit = tmax, true
		}
		vals := make([]float64, len(idx))
		for k := range idx {
			vals[k] = best[k] + t*step[k]
		}
		f, n, limited, err := pr.at(idx, vals, maxcall-c.nfcn)
		c.nfcn += n
		if err != nil {
			return c, err
		}
		if limited {
			c.maxFcn = true
			return c, nil
		}
		d := f - pr.fmin.FVal
		if d < -newMinTolerance*up {
			c.newMin = true
			return c, nil
		}
		if atLimit && d < up {
			c.atLimit, c.valid = true, true
			c.offset = pr.offset(t, step)
			return c, nil
		}
		if math.Abs(d-up) < crossTolerance*up {
			c.valid = true
			c.offset = pr.offset(t*math.Sqrt(up/d), step)
			return c, nil
		}
		if c.nfcn >= maxcall {
			c.maxFcn = true
			return c, nil
		}
		if d <= 0 || math.IsNaN(d) {
			t *= 2
			continue
		}
		next := t * math.Sqrt(up/d)
		t = math.Max(0.25*t, math.Min(4*t, next))
	}
	return c, nil
}

// offset converts a ray parameter into the external distance along the
// first pinned parameter; for contour rays it returns t itself.
func (pr *profiler) offset(t float64, step []float64) float64 {
	if len(step) == 1 {
		return math.Abs(t * step[0])
	}
	return t
}

// at returns the objective minimized over the free parameters with idx
// pinned at vals and the calls that cost, spending at most budget calls.
// limited reports that the budget ran out before the minimization ended.
func (pr *profiler) at(idx []int, vals []float64, budget int) (f float64, nfcn int, limited bool, err error) {
	st := pr.fmin.State.Clone()
	shifted := conditionalShift(pr.fmin.State, idx, vals)
	for i, v := range shifted {
		if !st.params[i].Fixed {
			st.SetValue(i, v)
		}
	}
	for k, i := range idx {
		st.params[i].Value = vals[k]
		st.Fix(i)
	}

	if budget <= 0 {
		return math.NaN(), 0, true, nil
	}
	if len(st.Varying()) == 0 {
		mf := newMnFCN(pr.fcn, st)
		f = mf.value(nil)
		return f, mf.nfcn, false, mf.abort("minos")
	}
	mg := NewMigrad(pr.fcn, st, pr.strategy, WithLogger(pr.logger))
	fm, err := mg.Run(budget, pr.tol)
	if err != nil {
		return math.NaN(), mg.NFcn(), false, err
	}
	return fm.FVal, fm.NFcn, fm.HasReachedCallLimit, nil
}

// conditionalShift moves the free parameters to their expected values given
// the pinned ones, using the covariance of the minimum. Without a
// covariance the current values are returned unchanged.
func conditionalShift(st *State, idx []int, vals []float64) []float64 {
	out := st.Values()
	cov := st.Covariance()
	if cov == nil {
		return out
	}
	varying := st.Varying()
	rev := make(map[int]int, len(varying))
	for k, i := range varying {
		rev[i] = k
	}

	m := len(idx)
	cff := mat.NewSymDense(m, nil)
	delta := mat.NewVecDense(m, nil)
	for a, ia := range idx {
		ka, ok := rev[ia]
		if !ok {
			return out
		}
		delta.SetVec(a, vals[a]-out[ia])
		for b := a; b < m; b++ {
			kb := rev[idx[b]]
			cff.SetSym(a, b, cov.At(ka, kb))
		}
	}
	var chol mat.Cholesky
	if !chol.Factorize(cff) {
		return out
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, delta); err != nil {
		return out
	}

	for k, i := range varying {
		shift := 0.0
		for a, ia := range idx {
			shift += cov.At(k, rev[ia]) * w.AtVec(a)
		}
		out[i] += shift
	}
	return out
}
