package fit

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/copyleftdev/gominuit/internal/metrics"
	"github.com/copyleftdev/gominuit/internal/optimization"
)

func quadratic(x []float64) float64 {
	return (x[0]-2)*(x[0]-2) + (x[1]-3)*(x[1]-3)
}

func newQuadratic(t *testing.T, configs map[string]ParamConfig, opts ...Option) *Session {
	t.Helper()
	s, err := New(ArrayFunc(quadratic), []string{"a", "b"}, configs, opts...)
	require.NoError(t, err)
	return s
}

// failingAfter returns an objective that fails from call n on.
func failingAfter(n int, err error) *Callable {
	calls := 0
	return ArrayFuncE(func(x []float64) (float64, error) {
		calls++
		if calls >= n {
			return 0, err
		}
		return quadratic(x), nil
	})
}

func TestNewUnknownConfigKeys(t *testing.T) {
	_, err := New(ArrayFunc(quadratic), []string{"a", "b"}, map[string]ParamConfig{
		"a": {Value: 1},
		"z": {Value: 1},
		"c": {Value: 1},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrUnknownParameter))
	assert.Contains(t, err.Error(), "c, z")
}

func TestNewDuplicateName(t *testing.T) {
	_, err := New(ArrayFunc(quadratic), []string{"a", "a"}, nil)
	assert.True(t, errors.Is(err, optimization.ErrDuplicateParameter))
}

func TestNewClampsInitialValue(t *testing.T) {
	s, err := New(ArrayFunc(quadratic), []string{"a", "b"}, map[string]ParamConfig{
		"a": {Value: 5, Limit: &Limit{Lower: 0, Upper: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Values()[0])
	require.Len(t, s.Diagnostics(), 1)
	assert.Equal(t, optimization.CodeValueClamped, s.Diagnostics()[0].Code)
	assert.Equal(t, optimization.SeverityWarning, s.Diagnostics()[0].Severity)

	_, err = New(ArrayFunc(quadratic), []string{"a", "b"}, map[string]ParamConfig{
		"a": {Value: 5, Limit: &Limit{Lower: 0, Upper: 1}},
	}, WithStrictDiagnostics())
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrDiagnostic))
}

func TestMigradQuadratic(t *testing.T) {
	s := newQuadratic(t, map[string]ParamConfig{"a": {Error: 0.1}, "b": {Error: 0.1}})
	assert.True(t, s.IsClean())
	_, ok := s.FMin()
	assert.False(t, ok)

	fm, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)
	assert.True(t, fm.IsValid)
	assert.False(t, s.IsClean())
	assert.True(t, s.MigradOK())

	vals := s.Values()
	assert.InDelta(t, 2.0, vals[0], 1e-3)
	assert.InDelta(t, 3.0, vals[1], 1e-3)
	assert.InDelta(t, 0.0, s.FVal(), 1e-6)
	assert.Equal(t, s.NCalls(), fm.NFcn)

	got, ok := s.FMin()
	require.True(t, ok)
	assert.Equal(t, fm, got)
}

func TestMigradFixedParameter(t *testing.T) {
	s := newQuadratic(t, map[string]ParamConfig{"a": {Value: 0, Fixed: true}})
	fm, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)
	assert.True(t, fm.IsValid)

	params := s.Params()
	assert.Equal(t, 0.0, params[0].Value)
	assert.True(t, params[0].Fixed)
	assert.InDelta(t, 3.0, params[1].Value, 1e-3)
	assert.InDelta(t, 4.0, s.FVal(), 1e-6)
}

func TestMigradPositional(t *testing.T) {
	fn, err := PositionalFunc(func(a, b float64) float64 { return (a-2)*(a-2) + (b-3)*(b-3) })
	require.NoError(t, err)
	s, err := New(fn, []string{"a", "b"}, nil)
	require.NoError(t, err)
	fm, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)
	assert.True(t, fm.IsValid)
	assert.InDelta(t, 3.0, s.Values()[1], 1e-3)
}

func TestMigradGradient(t *testing.T) {
	grad := func(x []float64) []float64 { return []float64{2 * (x[0] - 2), 2 * (x[1] - 3)} }
	s := newQuadratic(t, nil, WithGradient(grad))
	fm, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)
	assert.True(t, fm.IsValid)
	assert.Greater(t, s.NGrads(), 0)
	assert.Equal(t, s.NGrads(), fm.NGrad)
}

func TestMigradCallCounters(t *testing.T) {
	s := newQuadratic(t, nil)

	first, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)
	second, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)
	third, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, second.NFcn, first.NFcn)
	assert.GreaterOrEqual(t, third.NFcn, second.NFcn)

	before := s.NCalls()
	restarted, err := s.Migrad(MigradConfig{Restart: true})
	require.NoError(t, err)
	assert.Less(t, restarted.NFcn, before)
	assert.Equal(t, s.NCalls(), restarted.NFcn)
	assert.InDelta(t, 2.0, s.Values()[0], 1e-3, "restart seeds from the current values")
}

func TestMigradCallBudget(t *testing.T) {
	tests := []struct {
		name string
		cfg  MigradConfig
	}{
		{"negative ncall", MigradConfig{NCall: -1}},
		{"negative nsplit", MigradConfig{NSplit: -2}},
		{"split leaves nothing", MigradConfig{NCall: 3, NSplit: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newQuadratic(t, nil)
			_, err := s.Migrad(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, optimization.ErrInvalidCallBudget))
			assert.True(t, s.IsClean())
		})
	}
}

func TestMigradSplits(t *testing.T) {
	s := newQuadratic(t, nil)
	fm, err := s.Migrad(MigradConfig{NCall: 2000, NSplit: 4})
	require.NoError(t, err)
	assert.True(t, fm.IsValid)
	assert.LessOrEqual(t, fm.NFcn, 2000)
}

func rosenbrock(x []float64) float64 {
	a, b := 1-x[0], x[1]-x[0]*x[0]
	return a*a + 100*b*b
}

func TestMigradSplitBudget(t *testing.T) {
	// The budget is a hard cap, so no slack is allowed on NFcn.
	tests := []struct {
		ncall, nsplit int
	}{
		{600, 6},
		{300, 3},
		{240, 8},
		{100, 2},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.ncall, tt.nsplit), func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			s, err := New(ArrayFunc(rosenbrock), []string{"x", "y"},
				map[string]ParamConfig{"x": {Value: -1.2}, "y": {Value: 1}},
				WithLogger(zap.New(core)))
			require.NoError(t, err)

			fm, err := s.Migrad(MigradConfig{NCall: tt.ncall, NSplit: tt.nsplit})
			require.NoError(t, err)
			assert.LessOrEqual(t, fm.NFcn, tt.ncall)

			splits := logs.FilterMessage("migrad split finished").All()
			require.GreaterOrEqual(t, len(splits), 2)
			per := tt.ncall / tt.nsplit
			for i, e := range splits {
				assert.LessOrEqual(t, e.ContextMap()["nfcn"], int64((i+1)*per))
			}
			first := splits[0].ContextMap()["fval"].(float64)
			last := splits[len(splits)-1].ContextMap()["fval"].(float64)
			assert.Less(t, first, rosenbrock([]float64{-1.2, 1}))
			assert.Less(t, last, first, "later splits keep improving")
			assert.NotEqual(t, []float64{-1.2, 1}, s.Values())
		})
	}
}

func TestMigradCallLimitIsNotAnError(t *testing.T) {
	s, err := New(ArrayFunc(rosenbrock), []string{"x", "y"}, map[string]ParamConfig{"x": {Value: -1.2}, "y": {Value: 1}})
	require.NoError(t, err)

	fm, err := s.Migrad(MigradConfig{NCall: 10})
	require.NoError(t, err)
	assert.False(t, fm.IsValid)
	assert.True(t, fm.HasReachedCallLimit)

	var codes []string
	for _, d := range s.Diagnostics() {
		codes = append(codes, d.Code)
	}
	assert.Contains(t, codes, optimization.CodeCallLimit)

	_, err = s.Minos(MinosConfig{})
	assert.True(t, errors.Is(err, optimization.ErrInvalidMinimum))
}

func TestMigradNaNRaise(t *testing.T) {
	nan := ArrayFunc(func(x []float64) float64 {
		if x[0] > 1 {
			return math.NaN()
		}
		return (x[0] - 2) * (x[0] - 2)
	})
	s, err := New(nan, []string{"a"}, nil, WithThrowNaN(true))
	require.NoError(t, err)
	_, err = s.Migrad(MigradConfig{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrNonFiniteObjective))
}

func TestMigradObjectiveError(t *testing.T) {
	boom := errors.New("stop requested")
	s, err := New(failingAfter(20, boom), []string{"a", "b"}, nil)
	require.NoError(t, err)
	_, err = s.Migrad(MigradConfig{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.True(t, errors.Is(err, optimization.ErrObjectiveFailed))
	_, ok := s.FMin()
	assert.False(t, ok)
}

func TestHesseBeforeMigrad(t *testing.T) {
	s := newQuadratic(t, nil)
	_, err := s.Hesse(0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrPrecursorState))
	assert.True(t, s.IsClean())
}

func TestHesseSupersedesSummary(t *testing.T) {
	s := newQuadratic(t, nil)
	before, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)

	after, err := s.Hesse(0)
	require.NoError(t, err)
	assert.True(t, after.HasAccurateCovar)
	assert.Greater(t, after.NFcn, before.NFcn)

	got, _ := s.FMin()
	assert.Equal(t, after, got)

	m, err := s.Matrix(false, true)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.Data[0][0], 1e-2)
	assert.InDelta(t, 0.0, m.Data[0][1], 1e-2)
	assert.True(t, m.Accurate)
}

func TestHesseCallLimit(t *testing.T) {
	s := newQuadratic(t, nil)
	_, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)
	before := s.NCalls()

	fm, err := s.Hesse(3)
	require.NoError(t, err)
	assert.LessOrEqual(t, s.NCalls()-before, 3)
	assert.True(t, fm.HesseFailed)
	assert.False(t, fm.HasCovariance)
	assert.False(t, s.HasCovariance())

	var codes []string
	for _, d := range s.Diagnostics() {
		codes = append(codes, d.Code)
	}
	assert.Contains(t, codes, optimization.CodeCallLimit)
}

func TestHesseFailedIsDiagnostic(t *testing.T) {
	saddle := ArrayFunc(func(x []float64) float64 { return x[0]*x[0] - x[1]*x[1] })
	s, err := New(saddle, []string{"a", "b"}, nil)
	require.NoError(t, err)
	_, err = s.Migrad(MigradConfig{NCall: 50})
	require.NoError(t, err)

	fm, err := s.Hesse(0)
	require.NoError(t, err)
	assert.False(t, fm.HasAccurateCovar)
	assert.False(t, s.MatrixAccurate())
}

func TestMatrixPrecursor(t *testing.T) {
	s := newQuadratic(t, nil)
	_, err := s.Matrix(false, true)
	assert.True(t, errors.Is(err, optimization.ErrPrecursorState))

	_, err = s.Migrad(MigradConfig{})
	require.NoError(t, err)
	_, err = s.Matrix(false, true)
	require.NoError(t, err)

	require.NoError(t, s.SetValue("a", 1))
	_, err = s.Matrix(false, true)
	require.Error(t, err, "stale covariance is not served")
	assert.True(t, errors.Is(err, optimization.ErrPrecursorState))
	assert.False(t, s.HasCovariance())

	_, err = s.Migrad(MigradConfig{})
	require.NoError(t, err)
	_, err = s.Matrix(false, true)
	assert.NoError(t, err)
}

func TestCorrelationMatrix(t *testing.T) {
	correlated := ArrayFunc(func(x []float64) float64 {
		a, b := x[0]-1, x[1]+1
		return a*a + b*b + a*b
	})
	s, err := New(correlated, []string{"a", "b", "c"}, map[string]ParamConfig{"c": {Value: 4, Fixed: true}})
	require.NoError(t, err)
	_, err = s.Migrad(MigradConfig{})
	require.NoError(t, err)

	corr, err := s.Matrix(true, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, corr.Names)
	for i := range corr.Names {
		assert.Equal(t, 1.0, corr.Data[i][i])
	}
	assert.InDelta(t, -0.5, corr.Data[0][1], 1e-2)

	full, err := s.Matrix(true, false)
	require.NoError(t, err)
	require.Len(t, full.Data, 3)
	assert.Equal(t, 1.0, full.Data[2][2])
	assert.Equal(t, 0.0, full.Data[0][2])
	assert.Equal(t, 0.0, full.Data[2][1])

	cov, err := s.Matrix(false, false)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cov.Data[2][2])
	v, ok := cov.At("a", "b")
	require.True(t, ok)
	assert.Less(t, v, 0.0)

	gcc, err := s.GlobalCC()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, gcc["a"], 1e-2)
}

func TestMinosPrecursor(t *testing.T) {
	s := newQuadratic(t, nil)
	_, err := s.Minos(MinosConfig{})
	assert.True(t, errors.Is(err, optimization.ErrPrecursorState))
}

func TestMinos(t *testing.T) {
	s := newQuadratic(t, nil)
	_, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)

	out, err := s.Minos(MinosConfig{})
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, name := range []string{"a", "b"} {
		me := out[name]
		assert.True(t, me.IsValid, name)
		assert.InDelta(t, -1.0, me.Lower, 2e-2, name)
		assert.InDelta(t, 1.0, me.Upper, 2e-2, name)
	}
	assert.True(t, s.HasMinos())
	assert.Len(t, s.MErrors(), 2)
	assert.Equal(t, "a", s.MErrors()[0].Name)

	legacy := s.LegacyMErrors()
	assert.Equal(t, out["b"].Lower, legacy[LegacyKey{Name: "b", Sign: -1}])
	assert.Equal(t, out["b"].Upper, legacy[LegacyKey{Name: "b", Sign: 1}])

	params := s.Params()
	assert.True(t, params[0].HasMinos)
	assert.Equal(t, out["a"].Upper, params[0].MinosUpper)
	assert.Equal(t, 1.0, s.Errordef())
}

func TestMinosSigmaAndCL(t *testing.T) {
	s := newQuadratic(t, nil)
	_, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)

	out, err := s.Minos(MinosConfig{Params: []string{"a"}, Sigma: 2})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, out["a"].Upper, 5e-2)

	out, err = s.Minos(MinosConfig{Params: []string{"a"}, CL: 0.9})
	require.NoError(t, err)
	assert.InDelta(t, 1.645, out["a"].Upper, 5e-2)

	_, err = s.Minos(MinosConfig{Params: []string{"a"}, Sigma: 1, CL: 0.9})
	assert.True(t, errors.Is(err, optimization.ErrInvalidArgument))
	assert.Equal(t, 1.0, s.Errordef())
}

func TestMinosFailureCommitsNothing(t *testing.T) {
	ref := newQuadratic(t, nil)
	_, err := ref.Migrad(MigradConfig{})
	require.NoError(t, err)
	before := ref.NCalls()
	_, err = ref.Minos(MinosConfig{Params: []string{"a"}})
	require.NoError(t, err)
	spentOnA := ref.NCalls() - before

	// Same objective, failing on the first call after "a" is done.
	boom := errors.New("interrupted")
	calls, fail := 0, -1
	fn := ArrayFuncE(func(x []float64) (float64, error) {
		calls++
		if fail > 0 && calls >= fail {
			return 0, boom
		}
		return quadratic(x), nil
	})
	s, err := New(fn, []string{"a", "b"}, nil)
	require.NoError(t, err)
	_, err = s.Migrad(MigradConfig{})
	require.NoError(t, err)

	fail = calls + spentOnA + 1
	_, err = s.Minos(MinosConfig{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, s.HasMinos())
	assert.Empty(t, s.MErrors())

	fail = -1
	first, err := s.Minos(MinosConfig{Params: []string{"a"}})
	require.NoError(t, err)
	fail = calls + spentOnA + 1
	_, err = s.Minos(MinosConfig{})
	require.Error(t, err)

	got := s.MErrors()
	require.Len(t, got, 1)
	assert.Equal(t, first["a"], got[0])
}

func TestMinosUnknownAndFixed(t *testing.T) {
	s := newQuadratic(t, map[string]ParamConfig{"a": {Fixed: true}})
	_, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)

	_, err = s.Minos(MinosConfig{Params: []string{"nope"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrUnknownParameter))
	assert.Contains(t, err.Error(), "nope")

	all, err := s.Minos(MinosConfig{})
	require.NoError(t, err)
	assert.NotContains(t, all, "a")
	assert.Contains(t, all, "b")

	one, err := s.Minos(MinosConfig{Params: []string{"a"}})
	require.NoError(t, err)
	assert.Empty(t, one)
	last := s.Diagnostics()[len(s.Diagnostics())-1]
	assert.Equal(t, optimization.CodeMinosFixedParam, last.Code)
	assert.Equal(t, "a", last.Param)
}

func TestMinosFixedStrict(t *testing.T) {
	s := newQuadratic(t, map[string]ParamConfig{"a": {Fixed: true}}, WithStrictDiagnostics())
	_, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)
	_, err = s.Minos(MinosConfig{Params: []string{"a"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrDiagnostic))
}

func TestErrordefRestoredAfterFailure(t *testing.T) {
	boom := errors.New("interrupted")
	for _, op := range []string{"minos", "mncontour"} {
		t.Run(op, func(t *testing.T) {
			calls := 0
			fail := -1
			fn := ArrayFuncE(func(x []float64) (float64, error) {
				calls++
				if fail > 0 && calls >= fail {
					return 0, boom
				}
				return quadratic(x), nil
			})
			s, err := New(fn, []string{"a", "b"}, nil, WithErrordef(0.5))
			require.NoError(t, err)
			_, err = s.Migrad(MigradConfig{})
			require.NoError(t, err)

			fail = calls + 15
			switch op {
			case "minos":
				_, err = s.Minos(MinosConfig{Sigma: 3})
			case "mncontour":
				_, err = s.MnContour("a", "b", ContourConfig{Size: 8})
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, boom))
			assert.Equal(t, 0.5, s.Errordef())
		})
	}
}

func TestMutators(t *testing.T) {
	s := newQuadratic(t, nil)
	_, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)

	require.NoError(t, s.Fix("a"))
	require.NoError(t, s.SetValue("a", 0))
	fm, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)
	assert.True(t, fm.IsValid)
	assert.Equal(t, 0.0, s.Values()[0])
	assert.Equal(t, []bool{true, false}, s.Fixed())

	require.NoError(t, s.Release("a"))
	require.NoError(t, s.SetLimits("a", &Limit{Lower: -1, Upper: 1}))
	_, err = s.Migrad(MigradConfig{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s.Values()[0], 1e-2)

	err = s.SetLimits("a", &Limit{Lower: 1, Upper: 1})
	assert.True(t, errors.Is(err, optimization.ErrInvalidLimit))
	err = s.SetValue("zz", 1)
	assert.True(t, errors.Is(err, optimization.ErrUnknownParameter))
	err = s.SetError("a", 0)
	assert.True(t, errors.Is(err, optimization.ErrInvalidArgument))

	require.NoError(t, s.SetValue("a", 7))
	v, err := s.Value("a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v, "clamped onto the upper limit")

	initial := s.InitialParams()
	assert.Equal(t, 0.0, initial[0].Value)
	assert.False(t, initial[0].HasLower)
}

func TestSettingsAccessors(t *testing.T) {
	s := newQuadratic(t, nil, WithStrategy(optimization.StrategyCareful), WithTolerance(0.01))
	assert.Equal(t, optimization.StrategyCareful, s.Strategy())
	assert.Equal(t, 0.01, s.Tol())

	s.SetStrategy(optimization.Strategy(7))
	assert.Equal(t, optimization.StrategyCareful, s.Strategy())
	s.SetTol(-1)
	assert.Equal(t, optimization.DefaultTolerance, s.Tol())

	assert.Error(t, s.SetErrordef(0))
	require.NoError(t, s.SetErrordef(0.5))
	assert.Equal(t, 0.5, s.Errordef())
	assert.True(t, math.IsNaN(s.FVal()))
	assert.True(t, math.IsNaN(s.EDM()))
}

func TestSessionLogsDiagnostics(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s, err := New(ArrayFunc(quadratic), []string{"a", "b"}, map[string]ParamConfig{"a": {Fixed: true}},
		WithLogger(zap.New(core)))
	require.NoError(t, err)
	_, err = s.Migrad(MigradConfig{})
	require.NoError(t, err)
	_, err = s.Minos(MinosConfig{Params: []string{"a"}})
	require.NoError(t, err)

	entries := logs.FilterField(zap.String("code", optimization.CodeMinosFixedParam)).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "fit", entries[0].LoggerName)
}

func TestDiagnosticsBounded(t *testing.T) {
	s := newQuadratic(t, map[string]ParamConfig{"a": {Fixed: true}})
	_, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)
	for i := 0; i < maxDiagnostics+10; i++ {
		_, err = s.Minos(MinosConfig{Params: []string{"a"}})
		require.NoError(t, err)
	}
	diags := s.Diagnostics()
	assert.Len(t, diags, maxDiagnostics)
	assert.Equal(t, optimization.CodeMinosFixedParam, diags[len(diags)-1].Code)

	_, err = s.Migrad(MigradConfig{Restart: true})
	require.NoError(t, err)
	assert.Empty(t, s.Diagnostics())
}

func TestSessionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newQuadratic(t, nil, WithMetrics(metrics.New(reg)))
	_, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["gominuit_objective_calls_total"])
	assert.True(t, names["gominuit_operations_total"])
}
