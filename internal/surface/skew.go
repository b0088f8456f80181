// Package surface assembles implied-volatility skews and moneyness × time
// surfaces from flattened option chains.
package surface

import (
	"time"

	"github.com/seenimoa/quantdesk/internal/chain"
	"github.com/seenimoa/quantdesk/pkg/models"
)

// DefaultWindowDays is the default skew expiration window.
const DefaultWindowDays = 21

// BuildSkew collects the out-of-the-money contracts of one side whose
// expiration lies in (target, target+windowDays]. Relative strike is
// strike/spot. The result is empty, never nil, when nothing qualifies. A spot
// that is not a finite positive price yields chain.ErrMissingPrice.
func BuildSkew(flat []models.FlatContract, spot float64, target time.Time, right models.Right, windowDays int) (models.Skew, error) {
	skew := models.Skew{
		Right:           right,
		RelativeStrikes: []float64{},
		ImpliedVols:     []float64{},
		Points:          []models.SkewPoint{},
	}
	if !chain.ValidSpot(spot) {
		return skew, chain.ErrMissingPrice
	}
	upper := target.AddDate(0, 0, windowDays)
	for _, f := range flat {
		if f.Right != right {
			continue
		}
		if !f.Expiration.After(target) || f.Expiration.After(upper) {
			continue
		}
		if !outOfTheMoney(f, spot) {
			continue
		}
		rel := f.Strike / spot
		skew.RelativeStrikes = append(skew.RelativeStrikes, rel)
		skew.ImpliedVols = append(skew.ImpliedVols, f.ImpliedVolatility)
		skew.Points = append(skew.Points, models.SkewPoint{
			RelativeStrike:    rel,
			ImpliedVolatility: f.ImpliedVolatility,
			Expiration:        f.Expiration,
		})
	}
	return skew, nil
}

func outOfTheMoney(f models.FlatContract, spot float64) bool {
	switch f.Right {
	case models.Call:
		return f.Strike > spot
	case models.Put:
		return f.Strike < spot
	}
	return false
}
