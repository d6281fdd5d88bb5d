package fit

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/gominuit/internal/optimization"
)

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", ParamConfig{Value: 1, Error: 0.5}))
	require.NoError(t, r.Register("b", ParamConfig{}))

	err := r.Register("a", ParamConfig{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrDuplicateParameter))
	assert.Contains(t, err.Error(), `"a"`)

	i, err := r.PositionOf("b")
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.Equal(t, defaultError, r.Current(1).Error)

	_, err = r.PositionOf("c")
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrUnknownParameter))
	assert.Contains(t, err.Error(), `"c"`)
}

func TestRegistryInvalidLimit(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi float64
	}{
		{"equal", 1, 1},
		{"reversed", 2, -2},
		{"nan lower", math.NaN(), 1},
		{"nan upper", 0, math.NaN()},
		{"both minus infinity", math.Inf(-1), math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := r.Register("x", ParamConfig{Limit: &Limit{Lower: tt.lo, Upper: tt.hi}})
			require.Error(t, err)
			assert.True(t, errors.Is(err, optimization.ErrInvalidLimit))
			assert.Contains(t, err.Error(), `"x"`)
			assert.Equal(t, 0, r.Len())
		})
	}
}

func TestBuildInitialStateRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		limit *Limit
	}{
		{"two-sided", 0.3, &Limit{Lower: -1, Upper: 2}},
		{"two-sided near edge", 1.999, &Limit{Lower: -1, Upper: 2}},
		{"lower only", 5, &Limit{Lower: 1, Upper: math.Inf(1)}},
		{"upper only", -5, &Limit{Lower: math.Inf(-1), Upper: 0}},
		{"open", 7, &Limit{Lower: math.Inf(-1), Upper: math.Inf(1)}},
		{"none", -3, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			require.NoError(t, r.Register("p", ParamConfig{Value: tt.value, Error: 0.1, Limit: tt.limit}))
			st, err := r.BuildInitialState()
			require.NoError(t, err)
			p := st.Parameter(0)
			assert.Equal(t, tt.value, p.Value)
			assert.Equal(t, 0.1, p.Error)
		})
	}
}

func TestBuildInitialStateLimitKinds(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("lo", ParamConfig{Value: 1, Limit: &Limit{Lower: 0, Upper: math.Inf(1)}}))
	require.NoError(t, r.Register("hi", ParamConfig{Value: 1, Limit: &Limit{Lower: math.Inf(-1), Upper: 2}}))
	require.NoError(t, r.Register("both", ParamConfig{Value: 1, Limit: &Limit{Lower: 0, Upper: 2}}))
	require.NoError(t, r.Register("fixed", ParamConfig{Value: 1, Fixed: true}))

	st, err := r.BuildInitialState()
	require.NoError(t, err)
	assert.True(t, st.Parameter(0).HasLower)
	assert.False(t, st.Parameter(0).HasUpper)
	assert.False(t, st.Parameter(1).HasLower)
	assert.True(t, st.Parameter(1).HasUpper)
	assert.True(t, st.Parameter(2).HasLower && st.Parameter(2).HasUpper)
	assert.True(t, st.Parameter(3).Fixed)
	assert.Equal(t, []int{0, 1, 2}, st.Varying())
}

func TestDecodeParamConfigs(t *testing.T) {
	doc := `
a:
  value: 1.5
  error: 0.1
  limit: [0, 3]
b:
  value: -2
  limit: [~, 0]
c:
  fixed: true
`
	cfgs, err := DecodeParamConfigs(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, cfgs, 3)
	assert.Equal(t, 1.5, cfgs["a"].Value)
	assert.Equal(t, Limit{Lower: 0, Upper: 3}, *cfgs["a"].Limit)
	assert.True(t, math.IsInf(cfgs["b"].Limit.Lower, -1))
	assert.Equal(t, 0.0, cfgs["b"].Limit.Upper)
	assert.True(t, cfgs["c"].Fixed)

	json := `{"a": {"value": 2, "limit": [1, 5]}}`
	cfgs, err = DecodeParamConfigs(strings.NewReader(json))
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfgs["a"].Value)
}

func TestDecodeParamConfigsUnknownKey(t *testing.T) {
	doc := `
a:
  value: 1
  limt: [0, 1]
  eror: 2
`
	_, err := DecodeParamConfigs(strings.NewReader(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrInvalidArgument))
	assert.Contains(t, err.Error(), "limt")
	assert.Contains(t, err.Error(), "eror")
}

func TestDecodeParamConfigsBadLimit(t *testing.T) {
	_, err := DecodeParamConfigs(strings.NewReader("a: {limit: [1, 2, 3]}"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrInvalidLimit))
}
