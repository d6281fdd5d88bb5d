package render

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/gominuit/internal/fit"
)

func sampleParams() []fit.Param {
	return []fit.Param{
		{Number: 0, Name: "a", Value: 2, Error: 1, HasMinos: true, MinosLower: -1, MinosUpper: 1.1},
		{Number: 1, Name: "b", Value: 3, Error: 0.5, HasLower: true, Lower: 0, Upper: math.Inf(1)},
		{Number: 2, Name: "c", Value: 1, Error: 0.1, Fixed: true},
	}
}

func sampleMatrix() *fit.Matrix {
	return &fit.Matrix{
		Names:       []string{"a", "b"},
		Data:        [][]float64{{1, 0.95}, {0.95, 1}},
		Correlation: true,
	}
}

func TestNew(t *testing.T) {
	r, err := New("text")
	require.NoError(t, err)
	assert.IsType(t, Text{}, r)

	r, err = New("styled")
	require.NoError(t, err)
	assert.IsType(t, Styled{}, r)

	_, err = New("html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "html")
}

func TestTextFMin(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text{}.FMin(&buf, fit.FMin{FVal: 1.5, EDM: 1e-8, EDMMax: 2e-4, Errordef: 1, NFcn: 42, IsValid: true, HasCovariance: true, HasAccurateCovar: true, HasPosDefCovar: true}))
	out := buf.String()
	assert.Contains(t, out, "FCN")
	assert.Contains(t, out, "1.5")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "accurate")
	assert.Regexp(t, `Valid minimum\s+yes`, out)
}

func TestTextParams(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text{}.Params(&buf, sampleParams()))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Hesse Error")
	assert.Contains(t, lines[1], "+1.1")
	assert.NotContains(t, lines[2], "+Inf")
	assert.Contains(t, lines[3], "yes")

	// columns are aligned
	col := strings.Index(lines[0], "Value")
	assert.Equal(t, "2", strings.Fields(lines[1][col:])[0])
}

func TestTextMatrixAndMErrors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text{}.Matrix(&buf, sampleMatrix()))
	assert.Contains(t, buf.String(), "0.950")
	assert.Contains(t, buf.String(), "1.000")

	buf.Reset()
	require.NoError(t, Text{}.Matrix(&buf, nil))
	assert.Empty(t, buf.String())

	require.NoError(t, Text{}.MErrors(&buf, []fit.MError{{Name: "a", Lower: -1, Upper: 2, IsValid: true, LowerValid: true, UpperValid: true}}))
	assert.Contains(t, buf.String(), "+2")
	assert.Contains(t, buf.String(), "yes/yes")
}

func TestStyledContainsContent(t *testing.T) {
	s := NewStyled()
	var buf bytes.Buffer
	require.NoError(t, s.FMin(&buf, fit.FMin{FVal: 3}))
	assert.Contains(t, buf.String(), "Migrad")
	assert.Contains(t, buf.String(), "INVALID")

	buf.Reset()
	require.NoError(t, s.Params(&buf, sampleParams()))
	for _, name := range []string{"Parameters", "Name", "a", "b", "c"} {
		assert.Contains(t, buf.String(), name)
	}

	buf.Reset()
	require.NoError(t, s.Matrix(&buf, sampleMatrix()))
	assert.Contains(t, buf.String(), "Correlation")
	assert.Contains(t, buf.String(), "0.950")

	buf.Reset()
	require.NoError(t, s.MErrors(&buf, []fit.MError{{Name: "a", Lower: -1, Upper: 1}}))
	assert.Contains(t, buf.String(), "Minos")
	assert.Contains(t, buf.String(), "no/no")
}
