// Package fit drives the minuit engine for a user objective over named
// parameters. A Session enforces the order in which MIGRAD, HESSE, MINOS
// and the scans may run, and turns engine results into read-only views.
//
// A Session is not safe for concurrent use.
package fit

import (
	"maps"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/gominuit/internal/metrics"
	"github.com/copyleftdev/gominuit/internal/optimization"
	"github.com/copyleftdev/gominuit/internal/optimization/minuit"
)

// MigradConfig controls one MIGRAD call.
type MigradConfig struct {
	// NCall is the total call budget; 0 uses the session default. The
	// objective is never called more than NCall times.
	NCall int
	// NSplit divides NCall into equal sub-runs; 0 uses the session default.
	NSplit int
	// Restart discards the engine, resets the call counters and clears the
	// diagnostics. The new attempt starts from the current values, not the
	// initial ones.
	Restart bool
}

// MinosConfig controls one MINOS call.
type MinosConfig struct {
	// Params lists the parameters to scan; empty means every varying one.
	Params []string
	// Sigma is the number of standard deviations; 0 means 1.
	Sigma float64
	// CL is a confidence level. Below 1 it is a probability, otherwise a
	// number of standard deviations. Mutually exclusive with Sigma.
	CL float64
	// MaxCall bounds the calls per side; 0 uses the engine default.
	MaxCall int
}

// Session is a minimization session over one objective.
type Session struct {
	reg      *Registry
	callable *Callable
	fcn      *Objective
	cfg      settings
	logger   *zap.Logger

	engine         *minuit.Migrad
	engineGen      int
	engineStrategy optimization.Strategy

	fmin     *minuit.FunctionMinimum
	summary  *FMin
	snapshot *minuit.State
	snapGen  int
	merrors  map[string]*minuit.MinosError

	// generation counts parameter edits; results from an older generation are stale.
	generation  int
	diagnostics []optimization.Diagnostic
}

// New builds a session. configs is keyed by parameter name; names missing
// from it start at zero with the default step.
func New(fn *Callable, names []string, configs map[string]ParamConfig, opts ...Option) (*Session, error) {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(names) == 0 {
		return nil, optimization.NewError(optimization.KindInvalidArgument, "at least one parameter is required").
			WithComponent("fit").WithOperation("new")
	}
	if err := checkConfigKeys(names, configs); err != nil {
		return nil, err
	}

	reg := NewRegistry()
	for _, name := range names {
		if err := reg.Register(name, configs[name]); err != nil {
			return nil, err
		}
	}
	fcn, err := NewObjective(fn, cfg.grad, reg.Names(), cfg.errordef, cfg.throwNaN)
	if err != nil {
		return nil, err
	}
	fcn.metrics = cfg.metrics

	s := &Session{
		reg:      reg,
		callable: fn,
		fcn:      fcn,
		cfg:      cfg,
		logger:   cfg.logger.Named("fit"),
		merrors:  make(map[string]*minuit.MinosError),
	}

	st, err := reg.BuildInitialState()
	if err != nil {
		return nil, err
	}
	var diags []optimization.Diagnostic
	for i := 0; i < reg.Len(); i++ {
		p := reg.Current(i)
		if v := st.Parameter(i).Value; v != p.Value {
			diags = append(diags, optimization.Diagnostic{
				Severity: optimization.SeverityWarning,
				Code:     optimization.CodeValueClamped,
				Op:       "new",
				Param:    p.Name,
				Message:  "initial value outside limits was moved onto the nearest limit",
			})
			reg.setValue(i, v)
		}
	}
	if err := s.report(diags); err != nil {
		return nil, err
	}
	return s, nil
}

func checkConfigKeys(names []string, configs map[string]ParamConfig) error {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	var unknown []string
	for k := range configs {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	e := optimization.NewErrorf(optimization.KindUnknownParameter,
		"configuration for unregistered parameters: %s", strings.Join(unknown, ", ")).
		WithComponent("fit").WithOperation("new")
	if len(unknown) == 1 {
		e = e.WithParam(unknown[0])
	}
	return e
}

// Migrad runs the minimizer. Resuming continues from the engine left by the
// previous call; the engine is rebuilt from the current values on the first
// call, after parameter edits or strategy changes, and on Restart.
func (s *Session) Migrad(cfg MigradConfig) (FMin, error) {
	start := time.Now()
	fm, err := s.migrad(cfg)
	s.cfg.metrics.Observe("migrad", metrics.Outcome(fm.IsValid, err), time.Since(start))
	return fm, err
}

func (s *Session) migrad(cfg MigradConfig) (FMin, error) {
	ncall, nsplit := cfg.NCall, cfg.NSplit
	if ncall == 0 {
		ncall = s.cfg.ncall
	}
	if nsplit == 0 {
		nsplit = s.cfg.nsplit
	}
	if ncall < 0 || nsplit <= 0 {
		return FMin{}, optimization.NewErrorf(optimization.KindInvalidCallBudget,
			"ncall %d and nsplit %d must be non-negative and positive", ncall, nsplit).
			WithComponent("fit").WithOperation("migrad")
	}
	if ncall == 0 {
		ncall = optimization.DefaultMigradCalls(s.nvarying())
	}
	per := ncall / nsplit
	if per <= 0 {
		return FMin{}, optimization.NewErrorf(optimization.KindInvalidCallBudget,
			"ncall %d split into %d runs leaves no calls per run", ncall, nsplit).
			WithComponent("fit").WithOperation("migrad")
	}

	if cfg.Restart || s.engine == nil || s.engineGen != s.generation || s.engineStrategy != s.cfg.strategy {
		st, err := s.reg.BuildInitialState()
		if err != nil {
			return FMin{}, err
		}
		if cfg.Restart {
			s.fcn.Reset()
			s.diagnostics = nil
		}
		s.engine = minuit.NewMigrad(s.fcn, st, s.cfg.strategy, minuit.WithLogger(s.logger.Named("minuit")))
		s.engineGen = s.generation
		s.engineStrategy = s.cfg.strategy
		s.logger.Debug("engine attached", zap.Bool("restart", cfg.Restart), zap.Int("generation", s.generation))
	}

	var fm *minuit.FunctionMinimum
	for split := 0; split < nsplit; split++ {
		var err error
		fm, err = s.engine.Run(per, s.cfg.tol)
		if err != nil {
			s.logger.Debug("migrad aborted", zap.Int("split", split), zap.Error(err))
			return FMin{}, err
		}
		s.adopt(fm, fm.State)
		s.logger.Debug("migrad split finished",
			zap.Int("split", split),
			zap.Int("budget", per),
			zap.Float64("fval", fm.FVal),
			zap.Float64("edm", fm.EDM),
			zap.Bool("valid", fm.IsValid),
			zap.Int("nfcn", s.fcn.NCalls()),
		)
		if fm.IsValid {
			break
		}
	}
	s.merrors = make(map[string]*minuit.MinosError)

	var diags []optimization.Diagnostic
	if fm.HasReachedCallLimit {
		diags = append(diags, s.warning(optimization.CodeCallLimit, "migrad", "",
			"call limit reached before convergence"))
	}
	diags = append(diags, s.covarianceDiagnostics("migrad", fm)...)
	return *s.summary, s.report(diags)
}

// Hesse computes the covariance at the current point. It needs an engine
// attached by an earlier Migrad, even a failed one.
func (s *Session) Hesse(maxcall int) (FMin, error) {
	start := time.Now()
	fm, err := s.hesse(maxcall)
	s.cfg.metrics.Observe("hesse", metrics.Outcome(fm.HasAccurateCovar, err), time.Since(start))
	return fm, err
}

func (s *Session) hesse(maxcall int) (FMin, error) {
	if s.engine == nil {
		return FMin{}, optimization.NewError(optimization.KindPrecursorState, "hesse requires a prior migrad").
			WithComponent("fit").WithOperation("hesse")
	}
	if maxcall < 0 {
		return FMin{}, optimization.NewErrorf(optimization.KindInvalidCallBudget, "maxcall %d must not be negative", maxcall).
			WithComponent("fit").WithOperation("hesse")
	}
	base := s.snapshot
	fresh := base != nil && !s.stale() && s.fmin != nil
	if !fresh {
		st, err := s.reg.BuildInitialState()
		if err != nil {
			return FMin{}, err
		}
		base = st
	}

	res, err := minuit.Hesse(s.fcn, base, s.cfg.strategy, maxcall, minuit.WithLogger(s.logger.Named("minuit")))
	if err != nil {
		return FMin{}, err
	}
	prev := s.fmin
	if !fresh {
		prev = &minuit.FunctionMinimum{Up: s.fcn.Up(), Tolerance: s.cfg.tol, HasValidParameters: true}
	}
	fm := prev.WithHesse(res)
	s.adopt(fm, res.State)

	var diags []optimization.Diagnostic
	if res.HasReachedCallLimit {
		diags = append(diags, s.warning(optimization.CodeCallLimit, "hesse", "",
			"call limit reached before the second derivatives were complete"))
	}
	diags = append(diags, s.covarianceDiagnostics("hesse", fm)...)
	return *s.summary, s.report(diags)
}

// Minos computes asymmetric errors. It needs a valid, current minimum.
// Explicitly requested fixed parameters are skipped with a diagnostic.
func (s *Session) Minos(cfg MinosConfig) (map[string]MError, error) {
	start := time.Now()
	out, err := s.minos(cfg)
	valid := err == nil
	for _, me := range out {
		valid = valid && me.IsValid
	}
	s.cfg.metrics.Observe("minos", metrics.Outcome(valid, err), time.Since(start))
	return out, err
}

func (s *Session) minos(cfg MinosConfig) (map[string]MError, error) {
	if err := s.requireValidMinimum("minos"); err != nil {
		return nil, err
	}
	factor, err := errordefFactor(cfg.Sigma, cfg.CL, 1)
	if err != nil {
		return nil, err.WithComponent("fit").WithOperation("minos")
	}

	var (
		targets []int
		diags   []optimization.Diagnostic
	)
	if len(cfg.Params) == 0 {
		targets = s.snapshot.Varying()
	} else {
		idx, err := s.positions("minos", cfg.Params)
		if err != nil {
			return nil, err
		}
		for _, i := range idx {
			if s.snapshot.Parameter(i).Fixed {
				diags = append(diags, s.warning(optimization.CodeMinosFixedParam, "minos", s.reg.Names()[i],
					"parameter is fixed; no minos error computed"))
				continue
			}
			targets = append(targets, i)
		}
	}

	restore := s.scaleErrordef(factor)
	defer restore()

	// Records are committed only when every requested parameter succeeded.
	records := make(map[string]*minuit.MinosError, len(targets))
	out := make(map[string]MError, len(targets))
	for _, i := range targets {
		me, err := minuit.Minos(s.fcn, s.fmin, s.cfg.strategy, i, cfg.MaxCall, s.cfg.tol,
			minuit.WithLogger(s.logger.Named("minuit")))
		if err != nil {
			return nil, err
		}
		records[me.Name] = me
		out[me.Name] = newMError(me)
		if me.LowerNewMin || me.UpperNewMin {
			diags = append(diags, s.warning(optimization.CodeMinosNewMinimum, "minos", me.Name,
				"a lower minimum was found during the scan; run migrad again"))
		} else if !me.IsValid() {
			diags = append(diags, s.warning(optimization.CodeMinosInvalid, "minos", me.Name,
				"minos error is not valid on at least one side"))
		}
	}
	maps.Copy(s.merrors, records)
	return out, s.report(diags)
}

// scaleErrordef multiplies the error definition by factor and returns the
// function that restores it.
func (s *Session) scaleErrordef(factor float64) func() {
	old := s.fcn.Up()
	s.fcn.SetUp(old * factor)
	return func() { s.fcn.SetUp(old) }
}

func (s *Session) requireValidMinimum(op string) error {
	if s.fmin == nil {
		return optimization.NewErrorf(optimization.KindPrecursorState, "%s requires a prior migrad", op).
			WithComponent("fit").WithOperation(op)
	}
	if s.stale() {
		return optimization.NewError(optimization.KindPrecursorState,
			"parameters changed since the last minimum; run migrad again").
			WithComponent("fit").WithOperation(op)
	}
	if !s.fmin.IsValid {
		return optimization.NewErrorf(optimization.KindInvalidMinimum,
			"function minimum is not valid (fval %g, edm %g)", s.fmin.FVal, s.fmin.EDM).
			WithComponent("fit").WithOperation(op)
	}
	return nil
}

// positions resolves names, failing once with every unknown name listed.
func (s *Session) positions(op string, names []string) ([]int, error) {
	out := make([]int, 0, len(names))
	var unknown []string
	for _, n := range names {
		i, err := s.reg.PositionOf(n)
		if err != nil {
			unknown = append(unknown, n)
			continue
		}
		out = append(out, i)
	}
	if len(unknown) > 0 {
		e := optimization.NewErrorf(optimization.KindUnknownParameter,
			"unknown parameters: %s", strings.Join(unknown, ", ")).
			WithComponent("fit").WithOperation(op)
		if len(unknown) == 1 {
			e = e.WithParam(unknown[0])
		}
		return nil, e
	}
	return out, nil
}

func (s *Session) adopt(fm *minuit.FunctionMinimum, st *minuit.State) {
	s.fmin = fm
	s.snapshot = st
	s.snapGen = s.generation
	s.reg.update(st)
	summary := newFMin(fm, s.fcn.NCalls(), s.fcn.NGrads())
	s.summary = &summary
}

func (s *Session) stale() bool { return s.snapGen != s.generation }

func (s *Session) nvarying() int {
	n := 0
	for i := 0; i < s.reg.Len(); i++ {
		if !s.reg.Current(i).Fixed {
			n++
		}
	}
	return n
}

func (s *Session) covarianceDiagnostics(op string, fm *minuit.FunctionMinimum) []optimization.Diagnostic {
	var diags []optimization.Diagnostic
	if fm.HesseFailed {
		diags = append(diags, s.warning(optimization.CodeHesseFailed, op, "",
			"covariance could not be computed; errors are not reliable"))
	}
	if fm.HasMadePosDefCovar {
		diags = append(diags, s.warning(optimization.CodeMadePosDef, op, "",
			"covariance was forced positive definite and is not accurate"))
	}
	return diags
}

func (s *Session) warning(code, op, param, msg string) optimization.Diagnostic {
	return optimization.Diagnostic{
		Severity: optimization.SeverityWarning,
		Code:     code,
		Op:       op,
		Param:    param,
		Message:  msg,
	}
}

// maxDiagnostics bounds the diagnostics a session keeps; older ones are dropped.
const maxDiagnostics = 100

// report records and logs diagnostics. In strict mode the first warning
// is returned as an error.
func (s *Session) report(diags []optimization.Diagnostic) error {
	var first error
	for _, d := range diags {
		if len(s.diagnostics) == maxDiagnostics {
			copy(s.diagnostics, s.diagnostics[1:])
			s.diagnostics = s.diagnostics[:maxDiagnostics-1]
		}
		s.diagnostics = append(s.diagnostics, d)
		fields := []zap.Field{zap.String("code", d.Code), zap.String("op", d.Op)}
		if d.Param != "" {
			fields = append(fields, zap.String("param", d.Param))
		}
		if d.Severity == optimization.SeverityWarning {
			s.logger.Warn(d.Message, fields...)
			if s.cfg.strict && first == nil {
				first = d.AsError()
			}
		} else {
			s.logger.Info(d.Message, fields...)
		}
	}
	return first
}

// FMin returns the latest function minimum summary, if any.
func (s *Session) FMin() (FMin, bool) {
	if s.summary == nil {
		return FMin{}, false
	}
	return *s.summary, true
}

// Params returns the parameter table: the latest result if it is current,
// otherwise the configured values.
func (s *Session) Params() []Param {
	if s.snapshot != nil && !s.stale() {
		return paramsFromState(s.snapshot, s.merrors)
	}
	return paramsFromRegistry(s.reg)
}

// InitialParams returns the table of the registered configuration.
func (s *Session) InitialParams() []Param {
	out := make([]Param, s.reg.Len())
	for i := range out {
		p := s.reg.Initial(i)
		out[i] = Param{Number: i, Name: p.Name, Value: p.Value, Error: p.Error, Fixed: p.Fixed,
			HasLower: p.HasLower(), HasUpper: p.HasUpper()}
		if out[i].HasLower {
			out[i].Lower = p.Limit.Lower
		}
		if out[i].HasUpper {
			out[i].Upper = p.Limit.Upper
		}
	}
	return out
}

// Matrix returns the covariance, or the correlation, of the latest
// covariance-bearing result. skipFixed drops fixed parameters; otherwise
// they appear with zero covariance (unit diagonal in a correlation).
func (s *Session) Matrix(correlation, skipFixed bool) (*Matrix, error) {
	op := "covariance"
	if correlation {
		op = "correlation"
	}
	if s.snapshot == nil || !s.snapshot.HasCovariance() {
		return nil, optimization.NewError(optimization.KindPrecursorState, "no covariance available; run migrad or hesse").
			WithComponent("fit").WithOperation(op)
	}
	if s.stale() {
		return nil, optimization.NewError(optimization.KindPrecursorState,
			"parameters changed since the covariance was computed; run hesse or migrad again").
			WithComponent("fit").WithOperation(op)
	}

	cov := s.snapshot.Covariance()
	varying := s.snapshot.Varying()
	slot := make(map[int]int, len(varying))
	for k, i := range varying {
		slot[i] = k
	}
	var rows []int
	if skipFixed {
		rows = varying
	} else {
		rows = make([]int, s.snapshot.Len())
		for i := range rows {
			rows[i] = i
		}
	}

	names := make([]string, len(rows))
	fixed := make([]bool, len(rows))
	data := make([][]float64, len(rows))
	for a, i := range rows {
		p := s.snapshot.Parameter(i)
		names[a] = p.Name
		fixed[a] = p.Fixed
		data[a] = make([]float64, len(rows))
		for b, j := range rows {
			ka, oka := slot[i]
			kb, okb := slot[j]
			if oka && okb {
				data[a][b] = cov.At(ka, kb)
			}
		}
	}
	if correlation {
		if name, ok := correlate(data, names, fixed); !ok {
			return nil, optimization.NewError(optimization.KindInvalidArgument,
				"variance is not positive; correlation is undefined").
				WithComponent("fit").WithOperation(op).WithParam(name)
		}
	}
	return &Matrix{Names: names, Data: data, Correlation: correlation, Accurate: s.fmin.HasAccurateCovar}, nil
}

// GlobalCC returns the global correlation coefficient of every varying parameter.
func (s *Session) GlobalCC() (map[string]float64, error) {
	m, err := s.Matrix(false, true)
	if err != nil {
		return nil, err
	}
	n := len(m.Names)
	v := mat.NewSymDense(n, nil)
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			v.SetSym(a, b, m.Data[a][b])
		}
	}
	var chol mat.Cholesky
	if !chol.Factorize(v) {
		return nil, optimization.NewError(optimization.KindInvalidArgument, "covariance is not positive definite").
			WithComponent("fit").WithOperation("global_cc")
	}
	inv := mat.NewSymDense(n, nil)
	if err := chol.InverseTo(inv); err != nil {
		return nil, optimization.WrapError(err, optimization.KindInvalidArgument, "covariance cannot be inverted").
			WithComponent("fit").WithOperation("global_cc")
	}
	out := make(map[string]float64, n)
	for k, name := range m.Names {
		r := 1 - 1/(v.At(k, k)*inv.At(k, k))
		out[name] = math.Sqrt(math.Max(r, 0))
	}
	return out, nil
}

// MErrors returns the MINOS records of the current minimum in parameter order.
func (s *Session) MErrors() []MError {
	out := make([]MError, 0, len(s.merrors))
	for _, me := range s.merrors {
		out = append(out, newMError(me))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Number < out[b].Number })
	return out
}

// MError returns the MINOS record of one parameter.
func (s *Session) MError(name string) (MError, bool) {
	me, ok := s.merrors[name]
	if !ok {
		return MError{}, false
	}
	return newMError(me), true
}

// LegacyMErrors is the flat view keyed by (name, -1) for the lower and
// (name, +1) for the upper error.
func (s *Session) LegacyMErrors() map[LegacyKey]float64 {
	out := make(map[LegacyKey]float64, 2*len(s.merrors))
	for name, me := range s.merrors {
		out[LegacyKey{Name: name, Sign: -1}] = me.Lower
		out[LegacyKey{Name: name, Sign: 1}] = me.Upper
	}
	return out
}

// SetValue changes the value of a parameter. A value outside its limits is
// moved onto the nearest limit with a diagnostic.
func (s *Session) SetValue(name string, v float64) error {
	i, err := s.reg.PositionOf(name)
	if err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return optimization.NewErrorf(optimization.KindInvalidArgument, "value %g is not finite", v).
			WithComponent("fit").WithOperation("set_value").WithParam(name)
	}
	p := s.reg.Current(i)
	var diags []optimization.Diagnostic
	if p.HasLower() && v < p.Limit.Lower {
		v = p.Limit.Lower
		diags = append(diags, s.warning(optimization.CodeValueClamped, "set_value", name, "value moved onto the lower limit"))
	}
	if p.HasUpper() && v > p.Limit.Upper {
		v = p.Limit.Upper
		diags = append(diags, s.warning(optimization.CodeValueClamped, "set_value", name, "value moved onto the upper limit"))
	}
	s.reg.setValue(i, v)
	s.generation++
	return s.report(diags)
}

// SetError changes the step size of a parameter.
func (s *Session) SetError(name string, e float64) error {
	i, err := s.reg.PositionOf(name)
	if err != nil {
		return err
	}
	if !(math.Abs(e) > 0) || math.IsInf(e, 0) {
		return optimization.NewErrorf(optimization.KindInvalidArgument, "error %g must be positive and finite", e).
			WithComponent("fit").WithOperation("set_error").WithParam(name)
	}
	s.reg.setError(i, e)
	s.generation++
	return nil
}

// SetLimits installs a limit, or removes it when l is nil.
func (s *Session) SetLimits(name string, l *Limit) error {
	i, err := s.reg.PositionOf(name)
	if err != nil {
		return err
	}
	if l != nil {
		if err := l.Validate(); err != nil {
			e, _ := optimization.IsOptimizationError(err)
			return e.WithComponent("fit").WithOperation("set_limits").WithParam(name)
		}
	}
	s.reg.setLimit(i, l)
	s.generation++
	if l == nil {
		return nil
	}
	return s.SetValue(name, s.reg.Current(i).Value)
}

// Fix holds a parameter at its current value.
func (s *Session) Fix(name string) error { return s.setFixed(name, true) }

// Release lets a fixed parameter vary again.
func (s *Session) Release(name string) error { return s.setFixed(name, false) }

func (s *Session) setFixed(name string, fixed bool) error {
	i, err := s.reg.PositionOf(name)
	if err != nil {
		return err
	}
	if s.reg.Current(i).Fixed != fixed {
		s.reg.setFixed(i, fixed)
		s.generation++
	}
	return nil
}

// Names returns the parameter names in position order.
func (s *Session) Names() []string { return s.reg.Names() }

// Values returns the current parameter values in position order.
func (s *Session) Values() []float64 {
	out := make([]float64, s.reg.Len())
	for i := range out {
		out[i] = s.reg.Current(i).Value
	}
	return out
}

// Value returns the current value of one parameter.
func (s *Session) Value(name string) (float64, error) {
	i, err := s.reg.PositionOf(name)
	if err != nil {
		return 0, err
	}
	return s.reg.Current(i).Value, nil
}

// Errors returns the current parabolic errors in position order.
func (s *Session) Errors() []float64 {
	out := make([]float64, s.reg.Len())
	for i := range out {
		out[i] = s.reg.Current(i).Error
	}
	return out
}

// Fixed returns the fixed flags in position order.
func (s *Session) Fixed() []bool {
	out := make([]bool, s.reg.Len())
	for i := range out {
		out[i] = s.reg.Current(i).Fixed
	}
	return out
}

// NCalls is the number of objective evaluations since the last restart.
func (s *Session) NCalls() int { return s.fcn.NCalls() }

// NGrads is the number of gradient evaluations since the last restart.
func (s *Session) NGrads() int { return s.fcn.NGrads() }

// FVal is the objective at the latest minimum, or NaN.
func (s *Session) FVal() float64 {
	if s.fmin == nil {
		return math.NaN()
	}
	return s.fmin.FVal
}

// EDM is the estimated distance to the latest minimum, or NaN.
func (s *Session) EDM() float64 {
	if s.fmin == nil {
		return math.NaN()
	}
	return s.fmin.EDM
}

// MigradOK reports whether the latest minimum is valid.
func (s *Session) MigradOK() bool { return s.fmin != nil && s.fmin.IsValid }

// MatrixAccurate reports whether the latest covariance is accurate.
func (s *Session) MatrixAccurate() bool { return s.fmin != nil && s.fmin.HasAccurateCovar }

// IsClean reports whether no engine has been attached yet.
func (s *Session) IsClean() bool { return s.engine == nil }

// HasMinimum reports whether a MIGRAD run has completed.
func (s *Session) HasMinimum() bool { return s.fmin != nil }

// HasCovariance reports whether a current covariance matrix is available.
func (s *Session) HasCovariance() bool {
	return s.snapshot != nil && s.snapshot.HasCovariance() && !s.stale()
}

// HasMinos reports whether any MINOS record is held for the current minimum.
func (s *Session) HasMinos() bool { return len(s.merrors) > 0 }

// Errordef returns the error definition.
func (s *Session) Errordef() float64 { return s.fcn.Up() }

// SetErrordef changes the error definition for later operations.
func (s *Session) SetErrordef(up float64) error {
	if !(up > 0) || math.IsInf(up, 0) {
		return optimization.NewErrorf(optimization.KindInvalidArgument, "errordef %g must be positive", up).
			WithComponent("fit").WithOperation("set_errordef")
	}
	s.fcn.SetUp(up)
	return nil
}

// Strategy returns the engine strategy.
func (s *Session) Strategy() optimization.Strategy { return s.cfg.strategy }

// SetStrategy changes the engine strategy; the next Migrad rebuilds the engine.
func (s *Session) SetStrategy(st optimization.Strategy) { s.cfg.strategy = st.Clamp() }

// Tol returns the EDM tolerance factor.
func (s *Session) Tol() float64 { return s.cfg.tol }

// SetTol changes the EDM tolerance factor; non-positive values restore the default.
func (s *Session) SetTol(tol float64) {
	if tol <= 0 {
		tol = optimization.DefaultTolerance
	}
	s.cfg.tol = tol
}

// Diagnostics returns the most recent diagnostics, oldest first. Restart
// clears them.
func (s *Session) Diagnostics() []optimization.Diagnostic {
	out := make([]optimization.Diagnostic, len(s.diagnostics))
	copy(out, s.diagnostics)
	return out
}
