package minuit

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/gominuit/internal/optimization"
)

const (
	// hessianStep is the second-derivative step in units of the internal error.
	hessianStep = 0.1
	epsPosDef   = 1e-6
)

// HesseResult is the outcome of a HESSE run.
type HesseResult struct {
	// State carries the covariance (unless Status is CovFailed or CovNone).
	State  *State
	FVal   float64
	EDM    float64
	NFcn   int
	NGrad  int
	Status CovarianceStatus
	// HasReachedCallLimit reports that maxcall could not cover a full
	// second-derivative pass.
	HasReachedCallLimit bool
}

// Hesse computes the covariance matrix of st by numerical second
// derivatives, with at most maxcall objective calls. A covariance that
// cannot be certified is reported through Status; only user objective
// failures are returned as errors.
func Hesse(fcn optimization.FCN, st *State, strategy optimization.Strategy, maxcall int, opts ...Option) (*HesseResult, error) {
	o := applyOptions(opts)
	out := st.Clone()
	mf := newMnFCN(fcn, out)
	n := mf.dim()
	if maxcall <= 0 {
		maxcall = optimization.DefaultHesseCalls(n)
	}
	mf.limit = maxcall

	u := out.internalValues(mf.varying)
	f0 := mf.value(u)
	if err := mf.abort("hesse"); err != nil {
		return nil, err
	}
	res := &HesseResult{State: out, FVal: f0, Status: CovNone}
	if n == 0 {
		res.NFcn = mf.nfcn
		return res, nil
	}

	up := fcn.Up()
	v, status := mf.inverseHessian(u, f0, up, toStrategy(strategy))
	if err := mf.abort("hesse"); err != nil {
		return nil, err
	}
	res.EDM = math.NaN()
	if v != nil && mf.canDifferentiate() {
		g := make([]float64, n)
		mf.gradient(g, u)
		if err := mf.abort("hesse"); err != nil {
			return nil, err
		}
		res.EDM = edmOf(g, v)
	}
	if v == nil && mf.exhausted {
		status = CovFailed
		res.HasReachedCallLimit = true
	}
	res.Status = status
	if v != nil {
		out.applyInternal(mf.varying, u, scaleCov(v, 2*up), status)
	} else {
		out.applyInternal(mf.varying, u, nil, CovNone)
	}
	res.NFcn = mf.nfcn
	res.NGrad = mf.ngrad

	o.logger.Debug("hesse finished",
		zap.Int("nvar", n),
		zap.Bool("call_limit", res.HasReachedCallLimit),
		zap.Int("nfcn", mf.nfcn),
		zap.Stringer("status", status),
		zap.Float64("edm", res.EDM),
	)
	return res, nil
}

// inverseHessian returns the inverse of the internal Hessian at u, refining
// the difference steps on up to strategy+1 passes. A pass is only started
// when the call limit of m covers it; otherwise m is marked exhausted and
// the best inverse so far is returned.
func (m *mnFCN) inverseHessian(u []float64, f0, up float64, strategy optimization.Strategy) (*mat.SymDense, CovarianceStatus) {
	passes := int(strategy) + 1
	n := len(u)
	var (
		best   *mat.SymDense
		status = CovFailed
	)
	for pass := 0; pass < passes; pass++ {
		if left := m.remaining(); left >= 0 && left < hessianCalls(n) {
			m.exhausted = true
			break
		}
		h := m.hessian(u, f0)
		if m.err != nil {
			return nil, CovFailed
		}
		v, st := invertHessian(h)
		if v == nil {
			if best == nil {
				return nil, CovFailed
			}
			break
		}
		best, status = v, st

		next := make([]float64, n)
		refine := false
		for k := 0; k < n; k++ {
			sig := math.Sqrt(2 * up * v.At(k, k))
			next[k] = sig
			if r := sig / m.scales[k]; r < 0.5 || r > 2 {
				refine = true
			}
		}
		if !refine {
			break
		}
		m.setScales(next)
	}
	if best == nil && m.exhausted {
		return nil, CovNone
	}
	return best, status
}

// hessianCalls is the cost of one central-difference Hessian with a known
// origin value.
func hessianCalls(n int) int {
	return 2 * n * (n + 1)
}

// hessian computes second derivatives in internal coordinates.
func (m *mnFCN) hessian(u []float64, f0 float64) *mat.SymDense {
	n := len(u)
	uu := make([]float64, n)
	scaled := func(w []float64) float64 {
		for k := range w {
			uu[k] = u[k] + m.scales[k]*w[k]
		}
		return m.value(uu)
	}
	hw := mat.NewSymDense(n, nil)
	fd.Hessian(hw, scaled, make([]float64, n), &fd.Settings{
		Formula:     fd.Central,
		Step:        hessianStep,
		OriginKnown: true,
		OriginValue: f0,
	})
	h := mat.NewSymDense(n, nil)
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			h.SetSym(a, b, hw.At(a, b)/(m.scales[a]*m.scales[b]))
		}
	}
	return h
}

// invertHessian inverts h, first forcing positive definiteness if needed.
func invertHessian(h *mat.SymDense) (*mat.SymDense, CovarianceStatus) {
	n := h.SymmetricDim()
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			if x := h.At(a, b); math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, CovFailed
			}
		}
	}
	hp, made, ok := makePosDef(h)
	if !ok {
		return nil, CovFailed
	}
	var chol mat.Cholesky
	if !chol.Factorize(hp) {
		return nil, CovFailed
	}
	v := mat.NewSymDense(n, nil)
	if err := chol.InverseTo(v); err != nil {
		return nil, CovFailed
	}
	if made {
		return v, CovMadePosDef
	}
	return v, CovAccurate
}

// makePosDef returns h, or h shifted along its scaled diagonal until its
// smallest eigenvalue is safely positive. made reports whether it shifted.
func makePosDef(h *mat.SymDense) (out *mat.SymDense, made, ok bool) {
	n := h.SymmetricDim()
	s := make([]float64, n)
	for i := 0; i < n; i++ {
		d := h.At(i, i)
		if d <= 0 {
			made = true
			s[i] = 1
			continue
		}
		s[i] = 1 / math.Sqrt(d)
	}
	p := mat.NewSymDense(n, nil)
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			p.SetSym(a, b, h.At(a, b)*s[a]*s[b])
		}
		if h.At(a, a) <= 0 {
			p.SetSym(a, a, 1)
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(p, false) {
		return nil, false, false
	}
	ev := eig.Values(nil)
	pmin := floats.Min(ev)
	pmax := math.Max(math.Abs(floats.Max(ev)), 1)
	if pmin > epsPosDef*pmax && !made {
		return h, false, true
	}
	if pmin <= epsPosDef*pmax {
		padd := 0.001*pmax - pmin
		for i := 0; i < n; i++ {
			p.SetSym(i, i, p.At(i, i)+padd)
		}
	}
	out = mat.NewSymDense(n, nil)
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			out.SetSym(a, b, p.At(a, b)/(s[a]*s[b]))
		}
	}
	return out, true, true
}

// edmOf is ½ gᵀ V g.
func edmOf(g []float64, v *mat.SymDense) float64 {
	gv := mat.NewVecDense(len(g), g)
	var vg mat.VecDense
	vg.MulVec(v, gv)
	return 0.5 * mat.Dot(gv, &vg)
}

func scaleCov(v *mat.SymDense, f float64) *mat.SymDense {
	n := v.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	out.ScaleSym(f, v)
	return out
}
