package technical

import (
	"math"

	"github.com/seenimoa/quantdesk/pkg/models"
)

// SMA calculates the simple moving average. Warm-up entries are NaN.
func SMA(data []float64, period int) []float64 {
	n := len(data)
	if period <= 0 || n < period {
		return nil
	}
	out := nanSlice(n)
	sum := 0.0
	for i, v := range data {
		sum += v
		if i >= period {
			sum -= data[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA calculates the exponential moving average seeded with the SMA of the
// first period values. Warm-up entries are NaN.
func EMA(data []float64, period int) []float64 {
	n := len(data)
	if period <= 0 || n < period {
		return nil
	}
	out := nanSlice(n)
	k := 2.0 / float64(period+1)
	seed := 0.0
	for _, v := range data[:period] {
		seed += v
	}
	out[period-1] = seed / float64(period)
	for i := period; i < n; i++ {
		out[i] = data[i]*k + out[i-1]*(1-k)
	}
	return out
}

// VWAP is the running volume-weighted typical price across the series.
func VWAP(bars []models.PriceBar) []float64 {
	if len(bars) == 0 {
		return nil
	}
	out := nanSlice(len(bars))
	var cumVol, cumTPV float64
	for i, b := range bars {
		tp := (b.High + b.Low + b.Close) / 3
		cumTPV += tp * float64(b.Volume)
		cumVol += float64(b.Volume)
		if cumVol > 0 {
			out[i] = cumTPV / cumVol
		}
	}
	return out
}

// Latest returns the last defined value of xs, or NaN.
func Latest(xs []float64) float64 {
	for i := len(xs) - 1; i >= 0; i-- {
		if !math.IsNaN(xs[i]) {
			return xs[i]
		}
	}
	return math.NaN()
}

// StandardPeriods are the moving-average lengths reported by Compute.
var StandardPeriods = []int{20, 50, 100, 200}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
