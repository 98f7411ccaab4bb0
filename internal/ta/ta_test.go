package ta

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMA(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		n      int
		want   float64
		nan    bool
	}{
		{name: "short series is undefined", values: []float64{1, 2}, n: 3, nan: true},
		{name: "zero period is undefined", values: []float64{1, 2}, n: 0, nan: true},
		{name: "full window equals mean", values: []float64{2, 4, 6}, n: 3, want: 4},
		{name: "only trailing window is read", values: []float64{1000, 1, 2, 3}, n: 3, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SMA(tt.values, tt.n)
			if tt.nan {
				assert.True(t, math.IsNaN(got))
				return
			}
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestStdDevVariants(t *testing.T) {
	v := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 2.0, StdDev(v), 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7.0), SampleStdDev(v), 1e-12)
	assert.True(t, math.IsNaN(StdDev(nil)))
	assert.True(t, math.IsNaN(SampleStdDev([]float64{1})))
}

func TestRSI(t *testing.T) {
	rising := []float64{1, 2, 3, 4, 5, 6}
	falling := []float64{6, 5, 4, 3, 2, 1}

	assert.True(t, math.IsNaN(RSI(rising, 14)))
	assert.Equal(t, 100.0, RSI(rising, 5))
	assert.Equal(t, 0.0, RSI(falling, 5))

	mixed := []float64{10, 11, 10, 11, 10, 11}
	assert.InDelta(t, 60.0, RSI(mixed, 5), 1e-9)
}

func TestMeanReversionScore(t *testing.T) {
	assert.Equal(t, 50.0, MeanReversionScore([]float64{1, 2, 3}, 14))

	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = float64(i + 1)
	}
	assert.Equal(t, 100.0, MeanReversionScore(rising, 14), "no losses returns max score")

	falling := make([]float64, 20)
	for i := range falling {
		falling[i] = float64(100 - i)
	}
	assert.InDelta(t, 100.0, MeanReversionScore(falling, 14), 1e-9, "all losses means RSI 0")

	mixed := []float64{10, 11, 10, 11, 10, 11}
	assert.InDelta(t, 40.0, MeanReversionScore(mixed, 5), 1e-9)
}

func TestZScore(t *testing.T) {
	_, ok := ZScore([]float64{1, 1, 1, 1}, 4)
	assert.False(t, ok, "flat window has no signal")

	_, ok = ZScore([]float64{1, 2}, 4)
	assert.False(t, ok)

	z, ok := ZScore([]float64{1, -1, 1, -1, 1, -1, 1, 5}, 8)
	assert.True(t, ok)
	assert.Greater(t, z, 2.0)
}

func TestRateOfChange(t *testing.T) {
	assert.True(t, math.IsNaN(RateOfChange([]float64{1, 2}, 3)))
	assert.InDelta(t, 10.0, RateOfChange([]float64{100, 105, 110}, 3), 1e-9)
}
