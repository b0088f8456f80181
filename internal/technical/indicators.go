// Package technical implements price indicators over a models.PriceSeries.
// Indicator slices are aligned with the input bars; entries inside the
// warm-up window are NaN.
package technical

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/seenimoa/quantdesk/pkg/models"
)

// RSI calculates the Relative Strength Index with Wilder smoothing.
// Default period is 14.
func RSI(closes []float64, period int) []float64 {
	if period <= 0 {
		period = 14
	}
	n := len(closes)
	if n < period+1 {
		return nil
	}
	out := nanSlice(n)
	var avgGain, avgLoss float64
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		gain, loss := math.Max(change, 0), math.Max(-change, 0)
		switch {
		case i < period:
			avgGain += gain
			avgLoss += loss
			continue
		case i == period:
			avgGain = (avgGain + gain) / float64(period)
			avgLoss = (avgLoss + loss) / float64(period)
		default:
			avgGain = (avgGain*float64(period-1) + gain) / float64(period)
			avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		}
		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		out[i] = 100 - 100/(1+avgGain/avgLoss)
	}
	return out
}

// MACDPoint is one point of the MACD indicator.
type MACDPoint struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD calculates the moving average convergence divergence.
// Defaults: fast=12, slow=26, signal=9.
func MACD(closes []float64, fast, slow, signal int) []MACDPoint {
	if fast <= 0 {
		fast = 12
	}
	if slow <= 0 {
		slow = 26
	}
	if signal <= 0 {
		signal = 9
	}
	n := len(closes)
	if n < slow+signal-1 {
		return nil
	}
	fastEMA, slowEMA := EMA(closes, fast), EMA(closes, slow)
	line := make([]float64, 0, n-slow+1)
	for i := slow - 1; i < n; i++ {
		line = append(line, fastEMA[i]-slowEMA[i])
	}
	sig := EMA(line, signal)

	out := make([]MACDPoint, n)
	nan := math.NaN()
	for i := range out {
		out[i] = MACDPoint{nan, nan, nan}
	}
	for j, v := range line {
		i := j + slow - 1
		out[i].MACD = v
		out[i].Signal = sig[j]
		out[i].Histogram = v - sig[j]
	}
	return out
}

// Band is one point of the Bollinger bands.
type Band struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Bollinger calculates Bollinger bands with a population standard
// deviation. Defaults: period=20, mult=2.
func Bollinger(closes []float64, period int, mult float64) []Band {
	if period <= 0 {
		period = 20
	}
	if mult <= 0 {
		mult = 2
	}
	n := len(closes)
	if n < period {
		return nil
	}
	nan := math.NaN()
	out := make([]Band, n)
	for i := range out {
		if i < period-1 {
			out[i] = Band{nan, nan, nan}
			continue
		}
		window := stats.Float64Data(closes[i-period+1 : i+1])
		mean, _ := window.Mean()
		sd, _ := window.StandardDeviationPopulation()
		out[i] = Band{Upper: mean + mult*sd, Middle: mean, Lower: mean - mult*sd}
	}
	return out
}

// ATR calculates the Average True Range with Wilder smoothing.
func ATR(bars []models.PriceBar, period int) []float64 {
	if period <= 0 {
		period = 14
	}
	n := len(bars)
	if n < period {
		return nil
	}
	tr := make([]float64, n)
	tr[0] = bars[0].High - bars[0].Low
	for i := 1; i < n; i++ {
		prev := bars[i-1].Close
		tr[i] = math.Max(bars[i].High-bars[i].Low,
			math.Max(math.Abs(bars[i].High-prev), math.Abs(bars[i].Low-prev)))
	}
	out := nanSlice(n)
	seed := 0.0
	for _, v := range tr[:period] {
		seed += v
	}
	out[period-1] = seed / float64(period)
	for i := period; i < n; i++ {
		out[i] = (out[i-1]*float64(period-1) + tr[i]) / float64(period)
	}
	return out
}

// Snapshot holds the latest value of each indicator. Undefined values are
// NaN.
type Snapshot struct {
	Symbol    string          `json:"symbol"`
	Close     float64         `json:"close"`
	RSI       float64         `json:"rsi"`
	MACD      MACDPoint       `json:"macd"`
	Bollinger Band            `json:"bollinger"`
	ATR       float64         `json:"atr"`
	VWAP      float64         `json:"vwap"`
	SMA       map[int]float64 `json:"sma"`
	EMA       map[int]float64 `json:"ema"`
}

// Compute calculates every indicator over series with default parameters.
func Compute(series models.PriceSeries) Snapshot {
	closes := series.Closes()
	snap := Snapshot{
		Symbol:    series.Symbol,
		Close:     Latest(closes),
		RSI:       Latest(RSI(closes, 14)),
		ATR:       Latest(ATR(series.Bars, 14)),
		VWAP:      Latest(VWAP(series.Bars)),
		SMA:       make(map[int]float64),
		EMA:       make(map[int]float64),
		MACD:      MACDPoint{math.NaN(), math.NaN(), math.NaN()},
		Bollinger: Band{math.NaN(), math.NaN(), math.NaN()},
	}
	if m := MACD(closes, 12, 26, 9); len(m) > 0 {
		snap.MACD = m[len(m)-1]
	}
	if b := Bollinger(closes, 20, 2); len(b) > 0 {
		snap.Bollinger = b[len(b)-1]
	}
	for _, p := range StandardPeriods {
		if v := Latest(SMA(closes, p)); !math.IsNaN(v) {
			snap.SMA[p] = v
		}
		if v := Latest(EMA(closes, p)); !math.IsNaN(v) {
			snap.EMA[p] = v
		}
	}
	return snap
}
