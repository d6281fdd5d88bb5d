package minuit

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/gominuit/internal/optimization"
)

// Migrad is an engine handle bound to one objective and one evolving
// parameter state. Every Run continues from the state the previous Run
// left behind; call counters accumulate for the lifetime of the handle.
type Migrad struct {
	fcn      optimization.FCN
	state    *State
	strategy optimization.Strategy
	logger   *zap.Logger

	nfcn  int
	ngrad int
	runs  int
}

// NewMigrad constructs a handle from an initial state. The state is copied.
func NewMigrad(fcn optimization.FCN, st *State, strategy optimization.Strategy, opts ...Option) *Migrad {
	o := applyOptions(opts)
	return &Migrad{
		fcn:      fcn,
		state:    st.Clone(),
		strategy: toStrategy(strategy),
		logger:   o.logger,
	}
}

// State returns the latest parameter state of the handle.
func (m *Migrad) State() *State { return m.state }

// NFcn returns the number of objective calls made by this handle.
func (m *Migrad) NFcn() int { return m.nfcn }

// NGrad returns the number of analytic gradient calls made by this handle.
func (m *Migrad) NGrad() int { return m.ngrad }

// Run minimizes with at most ncall objective calls (0 selects the default
// budget) and EDM tolerance factor tol. The budget is a hard cap: the
// objective is never called more than ncall times by one Run. Running out
// of calls produces an invalid minimum, not an error; errors only come from
// the objective.
func (m *Migrad) Run(ncall int, tol float64) (*FunctionMinimum, error) {
	st := m.state.Clone()
	mf := newMnFCN(m.fcn, st)
	defer m.account(mf)

	n := mf.dim()
	if ncall <= 0 {
		ncall = optimization.DefaultMigradCalls(n)
	}
	if tol <= 0 {
		tol = optimization.DefaultTolerance
	}
	up := m.fcn.Up()
	target := edmMax(tol, up)
	m.runs++
	mf.limit = ncall

	u := st.internalValues(mf.varying)
	fval := mf.value(u)
	if err := mf.abort("migrad"); err != nil {
		return nil, err
	}

	fmin := &FunctionMinimum{Up: up, Tolerance: tol, HasValidParameters: true}
	if n == 0 {
		fmin.State = st
		fmin.FVal = fval
		fmin.IsValid = !math.IsNaN(fval)
		fmin.HasValidParameters = fmin.IsValid
		m.finish(fmin, mf)
		return fmin, nil
	}
	if math.IsNaN(fval) {
		fmin.State = st
		fmin.FVal = fval
		fmin.EDM = math.NaN()
		fmin.HasValidParameters = false
		m.finish(fmin, mf)
		return fmin, nil
	}

	var (
		v         *mat.SymDense
		covStatus = CovNone
		edm       = math.Inf(1)
		edmAtU    bool
	)
	attempts := 2 + int(m.strategy)
	for attempt := 0; attempt < attempts; attempt++ {
		if !mf.canDifferentiate() {
			mf.exhausted = true
			break
		}
		uNew, fNew := m.minimize(mf, u, fval, target)
		if err := mf.abort("migrad"); err != nil {
			return nil, err
		}
		if !math.IsNaN(fNew) && fNew <= fval {
			u, fval = uNew, fNew
			edmAtU = false
		}
		if mf.exhausted {
			break
		}

		vNew, stNew := mf.inverseHessian(u, fval, up, m.strategy)
		if err := mf.abort("migrad"); err != nil {
			return nil, err
		}
		if vNew == nil {
			if !mf.exhausted {
				v, covStatus = nil, stNew
			}
			break
		}
		v, covStatus = vNew, stNew
		if !mf.canDifferentiate() {
			mf.exhausted = true
			break
		}
		g := make([]float64, n)
		mf.gradient(g, u)
		if err := mf.abort("migrad"); err != nil {
			return nil, err
		}
		edm, edmAtU = edmOf(g, v), true

		m.logger.Debug("migrad iteration",
			zap.Int("attempt", attempt),
			zap.Float64("fval", fval),
			zap.Float64("edm", edm),
			zap.Float64("edm_max", target),
			zap.Int("nfcn", mf.nfcn),
		)
		if edm < target {
			break
		}
		next := make([]float64, n)
		for k := range next {
			next[k] = math.Sqrt(2 * up * v.At(k, k))
		}
		mf.setScales(next)
	}

	callLimit := mf.exhausted
	switch {
	case callLimit:
		if !edmAtU {
			edm = math.NaN()
		}
	case v == nil && covStatus != CovFailed:
		edm = m.roughEDM(mf, u, up)
		if err := mf.abort("migrad"); err != nil {
			return nil, err
		}
	}

	if v != nil {
		st.applyInternal(mf.varying, u, scaleCov(v, 2*up), covStatus)
	} else {
		st.applyInternal(mf.varying, u, nil, CovNone)
	}

	fmin.State = st
	fmin.FVal = fval
	fmin.EDM = edm
	fmin.HasReachedCallLimit = callLimit
	fmin.IsAboveMaxEdm = !(edm < target)
	fmin.setCovarianceFlags(covStatus)
	if v == nil && !callLimit {
		fmin.HesseFailed = true
	}
	fmin.IsValid = fmin.HasValidParameters && !fmin.HesseFailed && !fmin.IsAboveMaxEdm && !fmin.HasReachedCallLimit
	m.finish(fmin, mf)
	return fmin, nil
}

func (m *Migrad) finish(fmin *FunctionMinimum, mf *mnFCN) {
	m.state = fmin.State
	fmin.NFcn = m.nfcn + mf.nfcn
	fmin.NGrad = m.ngrad + mf.ngrad
	m.logger.Debug("migrad finished",
		zap.Int("run", m.runs),
		zap.Bool("valid", fmin.IsValid),
		zap.Float64("fval", fmin.FVal),
		zap.Float64("edm", fmin.EDM),
		zap.Int("nfcn", fmin.NFcn),
		zap.Bool("call_limit", fmin.HasReachedCallLimit),
	)
}

// account folds the per-run counters into the handle totals.
func (m *Migrad) account(mf *mnFCN) {
	m.nfcn += mf.nfcn
	m.ngrad += mf.ngrad
	mf.nfcn, mf.ngrad = 0, 0
}

// minimize runs gonum's BFGS from u0, whose value f0 is already known, and
// returns the best point found.
func (m *Migrad) minimize(mf *mnFCN, u0 []float64, f0, target float64) ([]float64, float64) {
	problem := optimize.Problem{
		Func:   mf.value,
		Grad:   mf.gradient,
		Status: mf.status,
	}
	settings := &optimize.Settings{
		InitValues:        &optimize.Location{F: f0},
		GradientThreshold: 1e-10,
		Converger: &abortConverger{
			mf: mf,
			inner: &optimize.FunctionConverge{
				Absolute:   0.1 * target,
				Iterations: 5,
			},
		},
		Recorder: abortRecorder{mf: mf},
	}
	if left := mf.remaining(); left >= 0 {
		settings.FuncEvaluations = max(left, 1)
	}

	res, err := optimize.Minimize(problem, u0, settings, &optimize.BFGS{})
	if err != nil {
		m.logger.Debug("bfgs stopped", zap.Error(err))
	}
	if res == nil || len(res.X) != len(u0) {
		return u0, math.NaN()
	}
	m.logger.Debug("bfgs finished", zap.Stringer("status", res.Status), zap.Int("nfcn", mf.nfcn))
	return res.X, res.F
}

// roughEDM estimates the EDM from the gradient and the current steps when
// no Hessian is available.
func (m *Migrad) roughEDM(mf *mnFCN, u []float64, up float64) float64 {
	g := make([]float64, len(u))
	mf.gradient(g, u)
	var edm float64
	for k, gk := range g {
		s := mf.scales[k]
		edm += gk * gk * s * s / (2 * up)
	}
	return 0.5 * edm
}

// abortConverger stops gonum once the call budget is spent or the user
// objective failed, and otherwise defers to a function-value converger.
type abortConverger struct {
	mf    *mnFCN
	inner optimize.Converger
}

func (c *abortConverger) Init(dim int) { c.inner.Init(dim) }

func (c *abortConverger) Converged(loc *optimize.Location) optimize.Status {
	if st, _ := c.mf.status(); st != optimize.NotTerminated {
		return st
	}
	return c.inner.Converged(loc)
}

// abortRecorder terminates gonum as soon as the user objective fails.
type abortRecorder struct {
	mf *mnFCN
}

func (r abortRecorder) Init() error { return nil }

func (r abortRecorder) Record(_ *optimize.Location, _ optimize.Operation, _ *optimize.Stats) error {
	return r.mf.err
}
