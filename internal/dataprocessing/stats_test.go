package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
		ok     bool
	}{
		{"empty", nil, 0, false},
		{"single", []float64{42}, 42, true},
		{"several", []float64{60, 70, 80}, 70, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Mean(tt.values)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestQuantile(t *testing.T) {
	population := []float64{1000, 2000, 3000, 4000, 100000}

	q1, ok := Quantile(population, 0.25)
	require.True(t, ok)
	assert.InDelta(t, 2000, q1, 1e-9)

	q3, ok := Quantile(population, 0.75)
	require.True(t, ok)
	assert.InDelta(t, 4000, q3, 1e-9)

	median, ok := Quantile([]float64{1, 2, 3, 4}, 0.5)
	require.True(t, ok)
	assert.InDelta(t, 2.5, median, 1e-9)

	_, ok = Quantile(nil, 0.5)
	assert.False(t, ok)
}

func TestQuantile_DoesNotMutateInput(t *testing.T) {
	values := []float64{5, 1, 3}
	_, ok := Quantile(values, 0.5)
	require.True(t, ok)
	assert.Equal(t, []float64{5, 1, 3}, values)
}

func TestTukeyBounds(t *testing.T) {
	lo, hi, ok := TukeyBounds([]float64{1000, 2000, 3000, 4000, 100000})
	require.True(t, ok)

	// Q1=2000, Q3=4000, IQR=2000.
	assert.InDelta(t, -1000, lo, 1e-9)
	assert.InDelta(t, 7000, hi, 1e-9)

	_, _, ok = TukeyBounds(nil)
	assert.False(t, ok)
}
