// Package minuit is the minimizer engine: MIGRAD, HESSE, MINOS and contour
// tracing over a user parameter state with bounded-parameter transforms.
// Numerics are delegated to gonum (BFGS, finite differences, linear algebra).
package minuit

import (
	"math"

	"go.uber.org/zap"

	"github.com/copyleftdev/gominuit/internal/optimization"
)

// FunctionMinimum is the outcome of one MIGRAD run. It is never mutated
// after Run returns; later runs produce new values.
type FunctionMinimum struct {
	// State holds the best-fit values, errors and, if available, covariance.
	State *State

	FVal      float64
	EDM       float64
	Up        float64
	Tolerance float64

	// NFcn and NGrad count calls made by the owning engine handle since construction.
	NFcn  int
	NGrad int

	IsValid             bool
	HasValidParameters  bool
	HasCovariance       bool
	HasAccurateCovar    bool
	HasPosDefCovar      bool
	HasMadePosDefCovar  bool
	HesseFailed         bool
	IsAboveMaxEdm       bool
	HasReachedCallLimit bool
}

// EDMMax is the convergence threshold on the estimated distance to minimum.
func (f *FunctionMinimum) EDMMax() float64 {
	return edmMax(f.Tolerance, f.Up)
}

// HasParametersAtLimit reports whether any varying parameter sits at a bound.
func (f *FunctionMinimum) HasParametersAtLimit() bool {
	if f.State == nil {
		return false
	}
	for _, p := range f.State.params {
		if p.AtLimit() {
			return true
		}
	}
	return false
}

// WithHesse returns a copy of the minimum whose state and covariance flags
// come from a HESSE run at (or near) the same point.
func (f *FunctionMinimum) WithHesse(r *HesseResult) *FunctionMinimum {
	out := *f
	out.State = r.State
	out.FVal = r.FVal
	if r.Status != CovFailed && r.Status != CovNone && !math.IsNaN(r.EDM) {
		out.EDM = r.EDM
		out.IsAboveMaxEdm = r.EDM >= out.EDMMax()
	}
	out.setCovarianceFlags(r.Status)
	out.IsValid = out.HasValidParameters && !out.HesseFailed && !out.IsAboveMaxEdm && !out.HasReachedCallLimit
	return &out
}

func (f *FunctionMinimum) setCovarianceFlags(status CovarianceStatus) {
	f.HasCovariance = status == CovAccurate || status == CovMadePosDef || status == CovApproximate
	f.HasAccurateCovar = status == CovAccurate
	f.HasPosDefCovar = status == CovAccurate || status == CovMadePosDef
	f.HasMadePosDefCovar = status == CovMadePosDef
	f.HesseFailed = status == CovFailed
}

func edmMax(tol, up float64) float64 {
	return 0.002 * tol * up
}

// Option configures engine operations.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used by engine operations.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func toStrategy(s optimization.Strategy) optimization.Strategy {
	return s.Clamp()
}
