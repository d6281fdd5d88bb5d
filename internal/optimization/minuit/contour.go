package minuit

import (
	"math"

	"go.uber.org/zap"

	"github.com/copyleftdev/gominuit/internal/optimization"
)

// minContourPoints is the smallest number of points a traced contour may have.
const minContourPoints = 4

// ContourResult is a traced confidence contour of two parameters.
type ContourResult struct {
	// Points are ordered by angle around the minimum, starting on the +x axis.
	Points [][2]float64
	XMinos *MinosError
	YMinos *MinosError
	NFcn   int
	// Complete is false when a ray found no crossing; its point is omitted.
	Complete bool
}

// Contour traces the curve F = fmin + up in the plane of parameters ix and
// iy, minimizing over all other varying parameters at every point.
func Contour(fcn optimization.FCN, fmin *FunctionMinimum, strategy optimization.Strategy, ix, iy, npoints, maxcall int, tol float64, opts ...Option) (*ContourResult, error) {
	o := applyOptions(opts)
	st := fmin.State
	for _, i := range []int{ix, iy} {
		if i < 0 || i >= st.Len() {
			return nil, optimization.NewErrorf(optimization.KindUnknownParameter, "no parameter at index %d", i).
				WithComponent("minuit").WithOperation("contour")
		}
		if st.Parameter(i).Fixed {
			return nil, optimization.NewError(optimization.KindInvalidArgument, "cannot trace a contour of a fixed parameter").
				WithComponent("minuit").WithOperation("contour").WithParam(st.Parameter(i).Name)
		}
	}
	if ix == iy {
		return nil, optimization.NewError(optimization.KindInvalidArgument, "contour needs two distinct parameters").
			WithComponent("minuit").WithOperation("contour").WithParam(st.Parameter(ix).Name)
	}
	if npoints < minContourPoints {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
			"contour needs at least %d points, got %d", minContourPoints, npoints).
			WithComponent("minuit").WithOperation("contour")
	}
	if maxcall <= 0 {
		maxcall = optimization.DefaultMinosCalls(len(st.Varying()))
	}

	xm, err := Minos(fcn, fmin, strategy, ix, maxcall, tol, opts...)
	if err != nil {
		return nil, err
	}
	ym, err := Minos(fcn, fmin, strategy, iy, maxcall, tol, opts...)
	if err != nil {
		return nil, err
	}

	res := &ContourResult{XMinos: xm, YMinos: ym, NFcn: xm.NFcn + ym.NFcn, Complete: true}
	px, py := st.Parameter(ix), st.Parameter(iy)
	pr := &profiler{fcn: fcn, fmin: fmin, strategy: toStrategy(strategy), tol: tol, logger: o.logger}
	idx := []int{ix, iy}

	for k := 0; k < npoints; k++ {
		theta := 2 * math.Pi * float64(k) / float64(npoints)
		c, s := math.Cos(theta), math.Sin(theta)
		ex := sideError(xm, px.Error, c)
		ey := sideError(ym, py.Error, s)
		dir := []float64{
			c * ex / stepOrOne(px.Error),
			s * ey / stepOrOne(py.Error),
		}
		cr, err := pr.cross(idx, dir, maxcall)
		res.NFcn += cr.nfcn
		if err != nil {
			return nil, err
		}
		if !cr.valid {
			res.Complete = false
			continue
		}
		res.Points = append(res.Points, [2]float64{
			px.Value + cr.offset*c*ex,
			py.Value + cr.offset*s*ey,
		})
	}

	o.logger.Debug("contour finished",
		zap.String("x", px.Name),
		zap.String("y", py.Name),
		zap.Int("points", len(res.Points)),
		zap.Bool("complete", res.Complete),
		zap.Int("nfcn", res.NFcn),
	)
	return res, nil
}

// sideError picks the MINOS error on the side the ray points to, falling
// back to the parabolic error when that side is unusable.
func sideError(me *MinosError, parabolic, dir float64) float64 {
	if dir >= 0 && me.UpperValid && me.Upper > 0 {
		return me.Upper
	}
	if dir < 0 && me.LowerValid && me.Lower < 0 {
		return -me.Lower
	}
	return stepOrOne(parabolic)
}
