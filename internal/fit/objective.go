package fit

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/copyleftdev/gominuit/internal/metrics"
	"github.com/copyleftdev/gominuit/internal/optimization"
)

var (
	float64Type = reflect.TypeOf(float64(0))
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Callable is a user objective together with its calling convention.
type Callable struct {
	// positional callables receive one float64 argument per parameter.
	positional bool
	arity      int
	array      func([]float64) (float64, error)
	fn         reflect.Value
	hasErr     bool
}

// ArrayFunc wraps an objective that takes the full parameter vector.
func ArrayFunc(fn func([]float64) float64) *Callable {
	return &Callable{
		arity: -1,
		array: func(x []float64) (float64, error) { return fn(x), nil },
	}
}

// ArrayFuncE is ArrayFunc for objectives that can fail.
func ArrayFuncE(fn func([]float64) (float64, error)) *Callable {
	return &Callable{arity: -1, array: fn}
}

// PositionalFunc wraps fn, which must have the shape
// func(float64, ..., float64) float64 or func(float64, ..., float64) (float64, error).
// Parameters are passed in registration order.
func PositionalFunc(fn interface{}) (*Callable, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument, "objective must be a function, got %T", fn).
			WithComponent("objective")
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument, "variadic objective %s is not positional", t).
			WithComponent("objective")
	}
	for i := 0; i < t.NumIn(); i++ {
		if t.In(i) != float64Type {
			return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
				"argument %d of objective %s must be float64", i, t).WithComponent("objective")
		}
	}
	c := &Callable{positional: true, arity: t.NumIn(), fn: v}
	switch {
	case t.NumOut() == 1 && t.Out(0) == float64Type:
	case t.NumOut() == 2 && t.Out(0) == float64Type && t.Out(1) == errorType:
		c.hasErr = true
	default:
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
			"objective %s must return float64 or (float64, error)", t).WithComponent("objective")
	}
	return c, nil
}

// Positional reports whether parameters are unpacked into separate arguments.
func (c *Callable) Positional() bool { return c.positional }

// Arity is the number of arguments of a positional callable, or -1.
func (c *Callable) Arity() int { return c.arity }

func (c *Callable) call(x []float64) (float64, error) {
	if !c.positional {
		return c.array(x)
	}
	args := make([]reflect.Value, len(x))
	for i, v := range x {
		args[i] = reflect.ValueOf(v)
	}
	out := c.fn.Call(args)
	if c.hasErr && !out[1].IsNil() {
		return math.NaN(), out[1].Interface().(error)
	}
	return out[0].Float(), nil
}

// Objective adapts a Callable to the engine call protocol. It counts
// calls, applies the NaN policy and carries the error definition.
// Counters are only reset by Reset.
type Objective struct {
	fn       *Callable
	grad     optimization.GradientFunction
	names    []string
	up       float64
	throwNaN bool
	metrics  *metrics.Metrics

	nfcn  int
	ngrad int
}

// NewObjective returns an adapter over fn for the given parameter names.
// grad may be nil.
func NewObjective(fn *Callable, grad optimization.GradientFunction, names []string, up float64, throwNaN bool) (*Objective, error) {
	if fn == nil {
		return nil, optimization.NewError(optimization.KindInvalidArgument, "objective is nil").
			WithComponent("objective")
	}
	if fn.positional && fn.arity != len(names) {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
			"objective takes %d arguments but %d parameters are registered", fn.arity, len(names)).
			WithComponent("objective")
	}
	if !(up > 0) || math.IsInf(up, 0) {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument, "errordef %g must be positive", up).
			WithComponent("objective")
	}
	return &Objective{fn: fn, grad: grad, names: names, up: up, throwNaN: throwNaN}, nil
}

// Value evaluates the objective at x, which holds every parameter in order.
func (o *Objective) Value(x []float64) (float64, error) {
	o.nfcn++
	o.metrics.ObjectiveCall(metrics.KindValue)
	f, err := o.fn.call(x)
	if err != nil {
		return math.NaN(), err
	}
	if math.IsNaN(f) && o.throwNaN {
		return f, optimization.NewErrorf(optimization.KindNonFiniteObjective,
			"objective returned NaN at %s", o.describe(x)).WithComponent("objective")
	}
	return f, nil
}

// Gradient evaluates the analytic gradient at x.
func (o *Objective) Gradient(x []float64) ([]float64, error) {
	if o.grad == nil {
		return nil, optimization.NewError(optimization.KindInvalidArgument, "no gradient configured").
			WithComponent("objective")
	}
	o.ngrad++
	o.metrics.ObjectiveCall(metrics.KindGradient)
	g, err := o.grad(x)
	if err != nil {
		return nil, err
	}
	if len(g) != len(x) {
		return nil, optimization.NewErrorf(optimization.KindInvalidArgument,
			"gradient has %d components, want %d", len(g), len(x)).WithComponent("objective")
	}
	if o.throwNaN {
		for i, gi := range g {
			if math.IsNaN(gi) {
				return nil, optimization.NewErrorf(optimization.KindNonFiniteObjective,
					"gradient returned NaN at %s", o.describe(x)).
					WithComponent("objective").WithParam(o.names[i])
			}
		}
	}
	return g, nil
}

// HasGradient reports whether an analytic gradient is configured.
func (o *Objective) HasGradient() bool { return o.grad != nil }

// Up returns the error definition.
func (o *Objective) Up() float64 { return o.up }

// SetUp changes the error definition for subsequent evaluations.
func (o *Objective) SetUp(up float64) { o.up = up }

// NCalls returns the number of objective evaluations since the last Reset.
func (o *Objective) NCalls() int { return o.nfcn }

// NGrads returns the number of gradient evaluations since the last Reset.
func (o *Objective) NGrads() int { return o.ngrad }

// Reset zeroes the call counters.
func (o *Objective) Reset() { o.nfcn, o.ngrad = 0, 0 }

func (o *Objective) describe(x []float64) string {
	var b strings.Builder
	for i, v := range x {
		if i > 0 {
			b.WriteString(", ")
		}
		if i < len(o.names) {
			fmt.Fprintf(&b, "%s=%g", o.names[i], v)
		} else {
			fmt.Fprintf(&b, "x%d=%g", i, v)
		}
	}
	return b.String()
}
