package fit

import (
	"go.uber.org/zap"

	"github.com/copyleftdev/gominuit/internal/metrics"
	"github.com/copyleftdev/gominuit/internal/optimization"
)

type settings struct {
	errordef    float64
	strategy    optimization.Strategy
	tol         float64
	throwNaN    bool
	ncall       int
	nsplit      int
	grad        optimization.GradientFunction
	logger      *zap.Logger
	metrics     *metrics.Metrics
	strict      bool
	scanWorkers int
}

func defaultSettings() settings {
	return settings{
		errordef:    1,
		strategy:    optimization.StrategyDefault,
		tol:         optimization.DefaultTolerance,
		nsplit:      1,
		logger:      zap.NewNop(),
		scanWorkers: 1,
	}
}

// Option configures a Session.
type Option func(*settings)

// WithErrordef sets the objective change that defines one standard
// deviation: 1 for least squares, 0.5 for negative log-likelihoods.
func WithErrordef(up float64) Option {
	return func(s *settings) { s.errordef = up }
}

// WithStrategy sets the engine strategy level.
func WithStrategy(st optimization.Strategy) Option {
	return func(s *settings) { s.strategy = st.Clamp() }
}

// WithTolerance sets the EDM tolerance factor.
func WithTolerance(tol float64) Option {
	return func(s *settings) {
		if tol > 0 {
			s.tol = tol
		}
	}
}

// WithThrowNaN makes a NaN objective value a fatal error.
func WithThrowNaN(on bool) Option {
	return func(s *settings) { s.throwNaN = on }
}

// WithNCall sets the default MIGRAD call budget; 0 keeps the engine default.
func WithNCall(n int) Option {
	return func(s *settings) { s.ncall = n }
}

// WithNSplit sets the default number of MIGRAD sub-runs.
func WithNSplit(n int) Option {
	return func(s *settings) { s.nsplit = n }
}

// WithGradient supplies an analytic gradient over the full parameter vector.
func WithGradient(g func([]float64) []float64) Option {
	return func(s *settings) {
		if g == nil {
			s.grad = nil
			return
		}
		s.grad = func(x []float64) ([]float64, error) { return g(x), nil }
	}
}

// WithGradientE is WithGradient for gradients that can fail.
func WithGradientE(g optimization.GradientFunction) Option {
	return func(s *settings) { s.grad = g }
}

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records calls and operations in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithStrictDiagnostics turns warning diagnostics into returned errors.
func WithStrictDiagnostics() Option {
	return func(s *settings) { s.strict = true }
}

// WithScanWorkers sets how many scan points MnProfile and MnContourGrid
// minimize at once. The objective must be safe for concurrent use when n > 1.
func WithScanWorkers(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.scanWorkers = n
		}
	}
}
