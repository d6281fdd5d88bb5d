package optimization

// ObjectiveFunction is a scalar function of the full ordered parameter vector.
type ObjectiveFunction func([]float64) (float64, error)

// GradientFunction returns the partial derivatives of the objective with
// respect to every parameter, in registration order.
type GradientFunction func([]float64) ([]float64, error)

// FCN is the call protocol the minimizer engine drives. x always has one
// entry per registered parameter, fixed ones included.
type FCN interface {
	// Value evaluates the objective.
	Value(x []float64) (float64, error)

	// Gradient evaluates the analytic gradient. Only called when HasGradient is true.
	Gradient(x []float64) ([]float64, error)

	// HasGradient reports whether an analytic gradient is available.
	HasGradient() bool

	// Up is the current error definition: the objective change that
	// corresponds to one standard deviation.
	Up() float64
}

// Strategy selects the speed/reliability trade-off of the engine.
type Strategy int

const (
	// StrategyFast uses fewer function calls and skips Hessian refinement.
	StrategyFast Strategy = 0
	// StrategyDefault is the usual balance.
	StrategyDefault Strategy = 1
	// StrategyCareful spends more calls on derivatives and checks.
	StrategyCareful Strategy = 2
)

// Clamp maps an arbitrary integer onto a supported strategy level.
func (s Strategy) Clamp() Strategy {
	if s < StrategyFast {
		return StrategyFast
	}
	if s > StrategyCareful {
		return StrategyCareful
	}
	return s
}

// DefaultTolerance is the default EDM tolerance factor.
const DefaultTolerance = 0.1

// DefaultMigradCalls is the default MIGRAD call budget for n varying parameters.
func DefaultMigradCalls(n int) int {
	return 200 + 100*n + 5*n*n
}

// DefaultMinosCalls is the default per-side MINOS call budget for n varying parameters.
func DefaultMinosCalls(n int) int {
	return 2 * (n + 1) * DefaultMigradCalls(n)
}

// DefaultHesseCalls is the default HESSE call budget for n varying parameters.
func DefaultHesseCalls(n int) int {
	return 200 + 100*n + 5*n*n
}
