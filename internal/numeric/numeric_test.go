package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantileLinearInterpolation(t *testing.T) {
	vals := []float64{7, 1, 3, 5}
	assert.InDelta(t, 2.5, Quantile(vals, 0.25), 1e-9)
	assert.InDelta(t, 4.0, Quantile(vals, 0.5), 1e-9)
	assert.InDelta(t, 5.5, Quantile(vals, 0.75), 1e-9)
	assert.Equal(t, 1.0, Quantile(vals, 0))
	assert.Equal(t, 7.0, Quantile(vals, 1))
	// input untouched
	assert.Equal(t, []float64{7, 1, 3, 5}, vals)
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestQuartiles(t *testing.T) {
	q1, q3 := Quartiles([]float64{1, 2, 3, 4, 5})
	assert.Equal(t, 2.0, q1)
	assert.Equal(t, 4.0, q3)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 2.35, Round(2.346, 2))
	assert.Equal(t, 3.0, Round(2.5, 0))
	assert.Equal(t, -3.0, Round(-2.5, 0))
}

func TestModeFirstEncounteredWinsTies(t *testing.T) {
	m, ok := Mode([]string{"A", "B", "B", "A"})
	assert.True(t, ok)
	assert.Equal(t, "A", m)

	m, ok = Mode([]string{"x", "y", "y"})
	assert.True(t, ok)
	assert.Equal(t, "y", m)

	_, ok = Mode([]int{})
	assert.False(t, ok)
}
