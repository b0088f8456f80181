package chain

import (
	"math"
	"time"

	"github.com/seenimoa/quantdesk/pkg/models"
)

// DaysToExpiry returns whole calendar days from now to expiration, floored.
// Already-expired contracts yield negative values.
func DaysToExpiry(expiration, now time.Time) int {
	return int(math.Floor(expiration.Sub(now).Hours() / 24))
}

// FilterByHorizon keeps contracts expiring within horizonDays of now. There
// is no lower bound, so expired contracts still in the chain pass through.
func FilterByHorizon(ch *models.OptionChain, now time.Time, horizonDays int) *models.OptionChain {
	if ch == nil {
		return nil
	}
	out := models.NewOptionChain(ch.Underlying)
	for key, e := range ch.Expirations {
		if DaysToExpiry(e.Expiration, now) > horizonDays {
			continue
		}
		out.Expirations[key] = &models.ExpirationSlice{
			Expiration: e.Expiration,
			Calls:      append([]models.OptionContract(nil), e.Calls...),
			Puts:       append([]models.OptionContract(nil), e.Puts...),
		}
	}
	return out
}

// Expired reports how many expirations of ch lie before now.
func Expired(ch *models.OptionChain, now time.Time) int {
	if ch == nil {
		return 0
	}
	n := 0
	for _, e := range ch.Expirations {
		if DaysToExpiry(e.Expiration, now) < 0 {
			n++
		}
	}
	return n
}

// AggregateWithinHorizon summarizes every contract expiring within
// horizonDays, without a strike filter.
func AggregateWithinHorizon(ch *models.OptionChain, spot float64, now time.Time, horizonDays int) (models.ChainSummary, error) {
	if !ValidSpot(spot) {
		return models.ChainSummary{}, ErrMissingPrice
	}
	summary := models.ChainSummary{Spot: spot, HorizonDays: horizonDays}
	if ch == nil {
		return summary, nil
	}
	summary.Underlying = ch.Underlying

	within := FilterByHorizon(ch, now, horizonDays)
	summary.Expirations = len(within.Expirations)

	var calls, puts []models.OptionContract
	for _, d := range within.Dates() {
		e := within.Expirations[d]
		calls = append(calls, e.Calls...)
		puts = append(puts, e.Puts...)
	}
	summary.Calls = Summarize(calls, spot)
	summary.Puts = Summarize(puts, spot)
	return summary, nil
}
