// Package chain filters, aggregates and reshapes option chains.
//
// Everything here is pure: no I/O, no goroutines. Spot is always supplied by
// the caller.
package chain

import (
	"errors"
	"math"
	"sort"

	"github.com/seenimoa/quantdesk/pkg/models"
)

// ErrMissingPrice is returned when the spot price is unavailable, NaN or
// non-positive.
var ErrMissingPrice = errors.New("spot price unavailable")

// ValidSpot reports whether spot is a finite positive price.
func ValidSpot(spot float64) bool {
	return spot > 0 && !math.IsNaN(spot) && !math.IsInf(spot, 0)
}

// FilterByStrike keeps contracts with spot*(1-factor) <= strike <= spot*(1+factor).
// Both bounds are inclusive.
func FilterByStrike(contracts []models.OptionContract, spot, factor float64) []models.OptionContract {
	lo, hi := spot*(1-factor), spot*(1+factor)
	out := make([]models.OptionContract, 0, len(contracts))
	for _, c := range contracts {
		if c.Strike >= lo && c.Strike <= hi {
			out = append(out, c)
		}
	}
	return out
}

// Moneyness classifies a contract against spot. Exactly-at-the-money
// contracts are neither ITM nor OTM.
func Moneyness(c models.OptionContract, spot float64) (itm, otm bool) {
	switch c.Right {
	case models.Call:
		return c.Strike < spot, c.Strike > spot
	case models.Put:
		return c.Strike > spot, c.Strike < spot
	}
	return false, false
}

// IsOTM reports whether c is strictly out of the money.
func IsOTM(c models.OptionContract, spot float64) bool {
	_, otm := Moneyness(c, spot)
	return otm
}

// Summarize folds contracts of one side into a SideSummary. The average
// implied volatility of an empty set is 0.
func Summarize(contracts []models.OptionContract, spot float64) models.SideSummary {
	var s models.SideSummary
	var ivSum float64
	for _, c := range contracts {
		s.Count++
		s.Volume += c.Volume
		s.OpenInterest += c.OpenInterest
		ivSum += c.ImpliedVolatility
		itm, otm := Moneyness(c, spot)
		if itm {
			s.ITM++
		}
		if otm {
			s.OTM++
		}
	}
	if s.Count > 0 {
		s.AvgImpliedVolatility = ivSum / float64(s.Count)
	}
	return s
}

// Aggregate filters every expiration by strike range and merges the
// survivors into one summary.
func Aggregate(ch *models.OptionChain, spot, factor float64) (models.ChainSummary, error) {
	if !ValidSpot(spot) {
		return models.ChainSummary{}, ErrMissingPrice
	}
	summary := models.ChainSummary{Spot: spot, StrikeRangeFactor: factor}
	if ch == nil {
		return summary, nil
	}
	summary.Underlying = ch.Underlying
	summary.Expirations = len(ch.Expirations)

	var calls, puts []models.OptionContract
	for _, d := range ch.Dates() {
		e := ch.Expirations[d]
		calls = append(calls, FilterByStrike(e.Calls, spot, factor)...)
		puts = append(puts, FilterByStrike(e.Puts, spot, factor)...)
	}
	summary.Calls = Summarize(calls, spot)
	summary.Puts = Summarize(puts, spot)
	return summary, nil
}

// Flatten lists every contract of every expiration, expirations ascending
// and calls before puts within an expiration.
func Flatten(ch *models.OptionChain) []models.FlatContract {
	if ch == nil {
		return nil
	}
	out := make([]models.FlatContract, 0, ch.Len())
	for _, d := range ch.Dates() {
		e := ch.Expirations[d]
		for _, group := range [][]models.OptionContract{e.Calls, e.Puts} {
			for _, c := range group {
				out = append(out, models.FlatContract{
					Strike:            c.Strike,
					ImpliedVolatility: c.ImpliedVolatility,
					Expiration:        c.Expiration,
					Right:             c.Right,
				})
			}
		}
	}
	return out
}

// GroupByExpiration counts flattened contracts per expiration date.
func GroupByExpiration(flat []models.FlatContract) map[string]int {
	counts := make(map[string]int)
	for _, f := range flat {
		counts[f.Expiration.Format(models.DateLayout)]++
	}
	return counts
}

// NearestStrike returns the contract whose strike is closest to spot. On a
// tie the earlier contract wins.
func NearestStrike(contracts []models.OptionContract, spot float64) (models.OptionContract, bool) {
	if len(contracts) == 0 || math.IsNaN(spot) {
		return models.OptionContract{}, false
	}
	best := 0
	minDiff := math.Abs(contracts[0].Strike - spot)
	for i, c := range contracts[1:] {
		if diff := math.Abs(c.Strike - spot); diff < minDiff {
			minDiff = diff
			best = i + 1
		}
	}
	return contracts[best], true
}

// Strikes returns the distinct strikes of contracts in ascending order.
func Strikes(contracts []models.OptionContract) []float64 {
	seen := make(map[float64]struct{}, len(contracts))
	var out []float64
	for _, c := range contracts {
		if _, ok := seen[c.Strike]; ok {
			continue
		}
		seen[c.Strike] = struct{}{}
		out = append(out, c.Strike)
	}
	sort.Float64s(out)
	return out
}
