package fit

import (
	"math"

	"github.com/copyleftdev/gominuit/internal/optimization"
)

// Model is a curve y = model(x; params).
type Model func(x float64, params []float64) float64

// LeastSquares is a chi-square cost over data points with known errors.
// Its error definition is 1.
type LeastSquares struct {
	X     []float64
	Y     []float64
	YErr  []float64
	Model Model
}

// LeastSquaresErrordef is the errordef to use with LeastSquares.
const LeastSquaresErrordef = 1.0

// NewLeastSquares validates the data and returns the cost.
func NewLeastSquares(x, y, yerr []float64, model Model) (*LeastSquares, error) {
	if model == nil {
		return nil, optimization.NewError(optimization.KindInvalidArgument, "model is nil").
			WithComponent("cost")
	}
	if len(x) == 0 || len(x) != len(y) || len(x) != len(yerr) {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
			"x, y and yerr must have the same non-zero length, got %d, %d and %d", len(x), len(y), len(yerr)).
			WithComponent("cost")
	}
	for i, e := range yerr {
		if !(e > 0) || math.IsInf(e, 0) {
			return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
				"yerr[%d] = %g must be positive and finite", i, e).WithComponent("cost")
		}
	}
	return &LeastSquares{X: x, Y: y, YErr: yerr, Model: model}, nil
}

// Value returns the chi-square at params.
func (c *LeastSquares) Value(params []float64) float64 {
	var chi2 float64
	for i, x := range c.X {
		r := (c.Y[i] - c.Model(x, params)) / c.YErr[i]
		chi2 += r * r
	}
	return chi2
}

// NDof is the number of degrees of freedom for nfree fitted parameters.
func (c *LeastSquares) NDof(nfree int) int { return len(c.X) - nfree }

// Callable returns the cost as an array objective.
func (c *LeastSquares) Callable() *Callable { return ArrayFunc(c.Value) }
