package fit

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/gominuit/internal/optimization"
)

func TestProfile(t *testing.T) {
	s := newQuadratic(t, nil)
	_, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)
	b := s.Values()[1]

	before := s.NCalls()
	res, err := s.Profile("a", 5, Interval(0, 4), false)
	require.NoError(t, err)
	assert.Equal(t, before+5, s.NCalls())

	assert.Equal(t, []float64{0, 1, 2, 3, 4}, res.X)
	require.Len(t, res.Y, 5)
	for k, x := range res.X {
		want := (x-2)*(x-2) + (b-3)*(b-3)
		assert.InDelta(t, want, res.Y[k], 1e-12)
	}
	assert.Equal(t, b, s.Values()[1], "other parameters untouched")
}

func TestProfileSigmasAndSubtract(t *testing.T) {
	s := newQuadratic(t, nil)
	_, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)

	res, err := s.Profile("b", 3, Sigmas(2), true)
	require.NoError(t, err)
	a, e := s.Values()[1], s.Errors()[1]
	assert.InDelta(t, a-2*e, res.X[0], 1e-12)
	assert.InDelta(t, a+2*e, res.X[2], 1e-12)
	assert.Equal(t, 0.0, res.Y[1])
	assert.InDelta(t, 4.0, res.Y[0], 5e-2)
}

func TestProfileArguments(t *testing.T) {
	s := newQuadratic(t, nil)
	_, err := s.Profile("nope", 5, Interval(0, 1), false)
	assert.True(t, errors.Is(err, optimization.ErrUnknownParameter))
	_, err = s.Profile("a", 1, Interval(0, 1), false)
	assert.True(t, errors.Is(err, optimization.ErrInvalidArgument))
	_, err = s.Profile("a", 5, Interval(1, 1), false)
	assert.True(t, errors.Is(err, optimization.ErrInvalidArgument))
}

func TestMnProfile(t *testing.T) {
	for _, workers := range []int{1, 3} {
		s := newQuadratic(t, nil, WithScanWorkers(workers))
		_, err := s.Migrad(MigradConfig{})
		require.NoError(t, err)
		calls := s.NCalls()

		res, err := s.MnProfile("a", 5, Interval(0, 4), false)
		require.NoError(t, err)
		require.Len(t, res.Y, 5)
		for k, x := range res.X {
			assert.InDelta(t, (x-2)*(x-2), res.Y[k], 1e-4, "workers=%d point %d", workers, k)
			assert.True(t, res.Converged[k])
		}
		assert.Equal(t, calls, s.NCalls(), "sub-minimizations use their own sessions")
		assert.Equal(t, []bool{false, false}, s.Fixed(), "configuration untouched")
	}
}

func TestContourGrid(t *testing.T) {
	s := newQuadratic(t, nil)
	res, err := s.Contour("a", "b", 3, Interval(1, 3), Interval(2, 4), false)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, res.X)
	assert.Equal(t, []float64{2, 3, 4}, res.Y)
	assert.Equal(t, 0.0, res.Z[1][1])
	assert.Equal(t, 2.0, res.Z[0][0])
	assert.Equal(t, 9, s.NCalls())

	_, err = s.Contour("a", "a", 3, Interval(1, 3), Interval(2, 4), false)
	assert.True(t, errors.Is(err, optimization.ErrInvalidArgument))
}

func TestMnContourGrid(t *testing.T) {
	fn := ArrayFunc(func(x []float64) float64 {
		return (x[0]-2)*(x[0]-2) + (x[1]-3)*(x[1]-3) + (x[2]-x[0])*(x[2]-x[0])
	})
	s, err := New(fn, []string{"a", "b", "c"}, nil, WithScanWorkers(2))
	require.NoError(t, err)
	res, err := s.MnContourGrid("a", "b", 3, Interval(1, 3), Interval(2, 4), true)
	require.NoError(t, err)
	require.Len(t, res.Z, 3)
	for a := range res.Z {
		for b := range res.Z[a] {
			want := (res.X[a]-2)*(res.X[a]-2) + (res.Y[b]-3)*(res.Y[b]-3)
			assert.InDelta(t, want, res.Z[a][b], 1e-4)
			assert.True(t, res.Converged[a][b])
		}
	}
}

func TestMnContour(t *testing.T) {
	s := newQuadratic(t, nil)
	_, err := s.MnContour("a", "b", ContourConfig{})
	assert.True(t, errors.Is(err, optimization.ErrPrecursorState))

	_, err = s.Migrad(MigradConfig{})
	require.NoError(t, err)
	res, err := s.MnContour("a", "b", ContourConfig{Size: 12, CL: 0.68})
	require.NoError(t, err)
	assert.True(t, res.Complete)
	require.Len(t, res.Points, 12)

	r := math.Sqrt(2.2788)
	for _, p := range res.Points {
		assert.InDelta(t, r, math.Hypot(p[0]-2, p[1]-3), 5e-2)
	}
	assert.InDelta(t, r, res.XMinos.Upper, 5e-2)
	assert.Equal(t, 1.0, s.Errordef())
}

func TestMnContourSigma(t *testing.T) {
	s := newQuadratic(t, nil)
	_, err := s.Migrad(MigradConfig{})
	require.NoError(t, err)

	res, err := s.MnContour("a", "b", ContourConfig{Size: 8, Sigma: 1})
	require.NoError(t, err)
	require.Len(t, res.Points, 8)
	for _, p := range res.Points {
		assert.InDelta(t, 1.0, math.Hypot(p[0]-2, p[1]-3), 5e-2)
	}
	assert.InDelta(t, 1.0, res.XMinos.Upper, 5e-2)

	res, err = s.MnContour("a", "b", ContourConfig{Size: 8, Sigma: 2})
	require.NoError(t, err)
	for _, p := range res.Points {
		assert.InDelta(t, 2.0, math.Hypot(p[0]-2, p[1]-3), 5e-2)
	}

	_, err = s.MnContour("a", "b", ContourConfig{Sigma: 1, CL: 0.68})
	assert.True(t, errors.Is(err, optimization.ErrInvalidArgument))
	assert.Equal(t, 1.0, s.Errordef())
}

func TestErrordefFactor(t *testing.T) {
	tests := []struct {
		name      string
		sigma, cl float64
		ndof      int
		want      float64
	}{
		{"default", 0, 0, 1, 1},
		{"two sigma", 2, 0, 1, 4},
		{"cl as sigma", 0, 2, 1, 4},
		{"probability", 0, 0.6826894921370859, 1, 1},
		{"two dof probability", 0, 0.6826894921370859, 2, 2.2957489288986},
		{"two dof sigma", 0, 1, 2, 2.2957489288986},
		{"two dof explicit sigma", 1, 0, 2, 1},
		{"two dof explicit two sigma", 2, 0, 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := errordefFactor(tt.sigma, tt.cl, tt.ndof)
			require.Nil(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}

	_, err := errordefFactor(1, 0.5, 1)
	assert.NotNil(t, err)
	_, err = errordefFactor(-1, 0, 1)
	assert.NotNil(t, err)
}
