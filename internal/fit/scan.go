package fit

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/gominuit/internal/metrics"
	"github.com/copyleftdev/gominuit/internal/optimization"
	"github.com/copyleftdev/gominuit/internal/optimization/minuit"
)

// defaultContourCL is the confidence level of MnContour when none is given.
const defaultContourCL = 0.68

// Bound is a scan range: either an explicit interval, or Sigma parabolic
// errors on each side of the current value.
type Bound struct {
	Lower float64
	Upper float64
	Sigma float64
}

// Interval is a Bound over [lo, hi].
func Interval(lo, hi float64) Bound { return Bound{Lower: lo, Upper: hi} }

// Sigmas is a Bound of n parabolic errors around the current value.
func Sigmas(n float64) Bound { return Bound{Sigma: n} }

// ProfileResult is a 1D scan.
type ProfileResult struct {
	Param string
	X     []float64
	Y     []float64
	// Converged is set only by MnProfile.
	Converged []bool
}

// GridResult is a 2D scan; Z[i][j] belongs to (X[i], Y[j]).
type GridResult struct {
	XParam string
	YParam string
	X      []float64
	Y      []float64
	Z      [][]float64
	// Converged is set only by MnContourGrid.
	Converged [][]bool
}

// ContourResult is a traced confidence contour.
type ContourResult struct {
	XParam string
	YParam string
	Points [][2]float64
	XMinos MError
	YMinos MError
	// Complete is false when some rays found no crossing.
	Complete bool
}

// ContourConfig controls MnContour.
type ContourConfig struct {
	// Size is the number of contour points; 0 means 100.
	Size int
	// Sigma scales the error definition by Sigma², as MINOS does.
	// It excludes CL.
	Sigma float64
	// CL is the confidence level for two parameters. Below 1 it is a
	// probability, otherwise a number of standard deviations. With neither
	// Sigma nor CL set, CL is 0.68.
	CL float64
	// MaxCall bounds the calls per crossing search; 0 uses the engine default.
	MaxCall int
}

// Profile evaluates the objective along one parameter with the others at
// their current values. It runs exactly bins evaluations.
func (s *Session) Profile(name string, bins int, bound Bound, subtractMin bool) (*ProfileResult, error) {
	i, err := s.reg.PositionOf(name)
	if err != nil {
		return nil, err
	}
	xs, err := s.grid("profile", i, bins, bound)
	if err != nil {
		return nil, err
	}
	x := s.Values()
	ys := make([]float64, bins)
	for k, v := range xs {
		x[i] = v
		if ys[k], err = s.fcn.Value(x); err != nil {
			return nil, wrapScanError(err, "profile", name)
		}
	}
	if subtractMin {
		subtractMinimum(ys)
	}
	return &ProfileResult{Param: name, X: xs, Y: ys}, nil
}

// MnProfile runs a full minimization of the other parameters with name
// fixed at each scan point. Points are independent sessions; they run on
// up to WithScanWorkers goroutines and are returned in scan order.
func (s *Session) MnProfile(name string, bins int, bound Bound, subtractMin bool) (*ProfileResult, error) {
	start := time.Now()
	res, err := s.mnprofile(name, bins, bound, subtractMin)
	s.cfg.metrics.Observe("mnprofile", metrics.Outcome(err == nil, err), time.Since(start))
	return res, err
}

func (s *Session) mnprofile(name string, bins int, bound Bound, subtractMin bool) (*ProfileResult, error) {
	i, err := s.reg.PositionOf(name)
	if err != nil {
		return nil, err
	}
	xs, err := s.grid("mnprofile", i, bins, bound)
	if err != nil {
		return nil, err
	}
	ys := make([]float64, bins)
	ok := make([]bool, bins)
	err = s.forEachPoint(bins, func(k int) error {
		f, valid, err := s.subMinimize(map[int]float64{i: xs[k]})
		ys[k], ok[k] = f, valid
		return err
	})
	if err != nil {
		return nil, wrapScanError(err, "mnprofile", name)
	}
	if subtractMin {
		subtractMinimum(ys)
	}
	return &ProfileResult{Param: name, X: xs, Y: ys, Converged: ok}, nil
}

// Contour evaluates the objective on a grid of two parameters with the
// others at their current values.
func (s *Session) Contour(x, y string, bins int, bx, by Bound, subtractMin bool) (*GridResult, error) {
	ix, iy, err := s.pair("contour", x, y)
	if err != nil {
		return nil, err
	}
	xs, err := s.grid("contour", ix, bins, bx)
	if err != nil {
		return nil, err
	}
	ys, err := s.grid("contour", iy, bins, by)
	if err != nil {
		return nil, err
	}
	v := s.Values()
	z := make([][]float64, bins)
	for a, xv := range xs {
		z[a] = make([]float64, bins)
		for b, yv := range ys {
			v[ix], v[iy] = xv, yv
			if z[a][b], err = s.fcn.Value(v); err != nil {
				return nil, wrapScanError(err, "contour", x)
			}
		}
	}
	if subtractMin {
		subtractGridMinimum(z)
	}
	return &GridResult{XParam: x, YParam: y, X: xs, Y: ys, Z: z}, nil
}

// MnContourGrid minimizes the remaining parameters at every grid point of
// two fixed parameters.
func (s *Session) MnContourGrid(x, y string, bins int, bx, by Bound, subtractMin bool) (*GridResult, error) {
	start := time.Now()
	res, err := s.mncontourGrid(x, y, bins, bx, by, subtractMin)
	s.cfg.metrics.Observe("mncontour_grid", metrics.Outcome(err == nil, err), time.Since(start))
	return res, err
}

func (s *Session) mncontourGrid(x, y string, bins int, bx, by Bound, subtractMin bool) (*GridResult, error) {
	ix, iy, err := s.pair("mncontour_grid", x, y)
	if err != nil {
		return nil, err
	}
	xs, err := s.grid("mncontour_grid", ix, bins, bx)
	if err != nil {
		return nil, err
	}
	ys, err := s.grid("mncontour_grid", iy, bins, by)
	if err != nil {
		return nil, err
	}
	z := make([][]float64, bins)
	ok := make([][]bool, bins)
	for a := range z {
		z[a] = make([]float64, bins)
		ok[a] = make([]bool, bins)
	}
	err = s.forEachPoint(bins*bins, func(k int) error {
		a, b := k/bins, k%bins
		f, valid, err := s.subMinimize(map[int]float64{ix: xs[a], iy: ys[b]})
		z[a][b], ok[a][b] = f, valid
		return err
	})
	if err != nil {
		return nil, wrapScanError(err, "mncontour_grid", x)
	}
	if subtractMin {
		subtractGridMinimum(z)
	}
	return &GridResult{XParam: x, YParam: y, X: xs, Y: ys, Z: z, Converged: ok}, nil
}

// MnContour traces the confidence contour of two parameters. The error
// definition is scaled for the trace and restored on every exit path.
func (s *Session) MnContour(x, y string, cfg ContourConfig) (*ContourResult, error) {
	start := time.Now()
	res, err := s.mncontour(x, y, cfg)
	s.cfg.metrics.Observe("mncontour", metrics.Outcome(res != nil && res.Complete, err), time.Since(start))
	return res, err
}

func (s *Session) mncontour(x, y string, cfg ContourConfig) (*ContourResult, error) {
	if err := s.requireValidMinimum("mncontour"); err != nil {
		return nil, err
	}
	ix, iy, err := s.pair("mncontour", x, y)
	if err != nil {
		return nil, err
	}
	size := cfg.Size
	if size == 0 {
		size = 100
	}
	cl := cfg.CL
	if cl == 0 && cfg.Sigma == 0 {
		cl = defaultContourCL
	}
	factor, ferr := errordefFactor(cfg.Sigma, cl, 2)
	if ferr != nil {
		return nil, ferr.WithComponent("fit").WithOperation("mncontour")
	}

	restore := s.scaleErrordef(factor)
	defer restore()

	res, err := minuit.Contour(s.fcn, s.fmin, s.cfg.strategy, ix, iy, size, cfg.MaxCall, s.cfg.tol,
		minuit.WithLogger(s.logger.Named("minuit")))
	if err != nil {
		return nil, err
	}
	out := &ContourResult{
		XParam:   x,
		YParam:   y,
		Points:   res.Points,
		XMinos:   newMError(res.XMinos),
		YMinos:   newMError(res.YMinos),
		Complete: res.Complete,
	}
	var diags []optimization.Diagnostic
	if !res.Complete {
		diags = append(diags, s.warning(optimization.CodeContourIncomplete, "mncontour", x,
			"some contour points could not be found"))
	}
	return out, s.report(diags)
}

// subMinimize runs an independent session with the given parameters fixed
// at the given values, starting from the current configuration.
func (s *Session) subMinimize(pinned map[int]float64) (float64, bool, error) {
	reg := s.reg.clone()
	for i, v := range pinned {
		reg.setValue(i, v)
		reg.setFixed(i, true)
	}
	fcn, err := NewObjective(s.callable, s.cfg.grad, reg.Names(), s.fcn.Up(), s.cfg.throwNaN)
	if err != nil {
		return math.NaN(), false, err
	}
	fcn.metrics = s.cfg.metrics
	sub := &Session{
		reg:      reg,
		callable: s.callable,
		fcn:      fcn,
		cfg:      s.cfg,
		logger:   s.logger.Named("scan"),
		merrors:  make(map[string]*minuit.MinosError),
	}
	sub.cfg.strict = false
	fm, err := sub.migrad(MigradConfig{})
	if err != nil {
		return math.NaN(), false, err
	}
	return fm.FVal, fm.IsValid, nil
}

// forEachPoint runs fn for every index, on up to scanWorkers goroutines.
// The first error cancels the points not yet started.
func (s *Session) forEachPoint(n int, fn func(k int) error) error {
	if s.cfg.scanWorkers <= 1 {
		for k := 0; k < n; k++ {
			if err := fn(k); err != nil {
				return err
			}
		}
		return nil
	}
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(s.cfg.scanWorkers)
	for k := 0; k < n; k++ {
		if ctx.Err() != nil {
			break
		}
		k := k
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			return fn(k)
		})
	}
	err := g.Wait()
	s.logger.Debug("scan finished", zap.Int("points", n), zap.Int("workers", s.cfg.scanWorkers), zap.Error(err))
	return err
}

func (s *Session) pair(op, x, y string) (int, int, error) {
	idx, err := s.positions(op, []string{x, y})
	if err != nil {
		return 0, 0, err
	}
	if idx[0] == idx[1] {
		return 0, 0, optimization.NewError(optimization.KindInvalidArgument, "two distinct parameters are required").
			WithComponent("fit").WithOperation(op).WithParam(x)
	}
	return idx[0], idx[1], nil
}

// grid resolves a bound for parameter i into bins evenly spaced points.
func (s *Session) grid(op string, i, bins int, b Bound) ([]float64, error) {
	p := s.reg.Current(i)
	if bins < 2 {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument, "bins %d must be at least 2", bins).
			WithComponent("fit").WithOperation(op).WithParam(p.Name)
	}
	lo, hi := b.Lower, b.Upper
	if b.Sigma > 0 {
		lo, hi = p.Value-b.Sigma*p.Error, p.Value+b.Sigma*p.Error
		if p.HasLower() {
			lo = math.Max(lo, p.Limit.Lower)
		}
		if p.HasUpper() {
			hi = math.Min(hi, p.Limit.Upper)
		}
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) || !(lo < hi) {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument, "scan range [%g, %g] is empty or not finite", lo, hi).
			WithComponent("fit").WithOperation(op).WithParam(p.Name)
	}
	return floats.Span(make([]float64, bins), lo, hi), nil
}

// errordefFactor turns a sigma or confidence level into the multiplier of
// the error definition for a region of ndof parameters. An explicit sigma
// always scales by sigma², whatever ndof.
func errordefFactor(sigma, cl float64, ndof int) (float64, *optimization.Error) {
	if sigma != 0 && cl != 0 {
		return 0, optimization.NewError(optimization.KindInvalidArgument, "sigma and cl are mutually exclusive")
	}
	if sigma < 0 || cl < 0 || math.IsNaN(sigma) || math.IsNaN(cl) {
		return 0, optimization.NewErrorf(optimization.KindInvalidArgument, "sigma %g and cl %g must not be negative", sigma, cl)
	}
	if cl == 0 {
		if sigma == 0 {
			sigma = 1
		}
		return sigma * sigma, nil
	}
	if cl >= 1 {
		if ndof == 1 {
			return cl * cl, nil
		}
		cl = distuv.ChiSquared{K: 1}.CDF(cl * cl)
	}
	return distuv.ChiSquared{K: float64(ndof)}.Quantile(cl), nil
}

func subtractMinimum(ys []float64) {
	m := floats.Min(ys)
	floats.AddConst(-m, ys)
}

func subtractGridMinimum(z [][]float64) {
	m := math.Inf(1)
	for _, row := range z {
		m = math.Min(m, floats.Min(row))
	}
	for _, row := range z {
		floats.AddConst(-m, row)
	}
}

func wrapScanError(err error, op, param string) error {
	if _, ok := optimization.IsOptimizationError(err); ok {
		return err
	}
	return optimization.WrapError(err, optimization.KindObjectiveFailed, "objective returned an error").
		WithComponent("fit").WithOperation(op).WithParam(param)
}
