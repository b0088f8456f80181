// Package volatility estimates historical volatility from closing prices.
package volatility

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/seenimoa/quantdesk/pkg/models"
)

// TradingDaysPerYear is the default annualization factor.
const TradingDaysPerYear = 252

// PctChange returns simple period-over-period returns. The undefined first
// return is dropped, as are NaN returns caused by missing closes.
func PctChange(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		r := closes[i]/closes[i-1] - 1
		if math.IsNaN(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Historical returns the population standard deviation of the daily
// returns of series. The result is not annualized.
func Historical(series models.PriceSeries) float64 {
	return HistoricalFromCloses(series.Closes())
}

// HistoricalFromCloses is Historical over a bare close column. Fewer than
// two prices yields NaN.
func HistoricalFromCloses(closes []float64) float64 {
	returns := PctChange(closes)
	if len(returns) == 0 {
		return math.NaN()
	}
	sd, err := stats.StandardDeviationPopulation(returns)
	if err != nil {
		return math.NaN()
	}
	return sd
}

// Annualize scales a per-period volatility by sqrt(periods). A
// non-positive periods uses TradingDaysPerYear.
func Annualize(vol float64, periods int) float64 {
	if periods <= 0 {
		periods = TradingDaysPerYear
	}
	return vol * math.Sqrt(float64(periods))
}
