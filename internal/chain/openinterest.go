package chain

import (
	"math"

	"github.com/seenimoa/quantdesk/pkg/models"
)

// PutCallRatio returns put/call ratios by open interest and by volume.
// A zero call denominator yields 0.
func PutCallRatio(s models.ChainSummary) (byOI, byVolume float64) {
	if s.Calls.OpenInterest > 0 {
		byOI = s.Puts.OpenInterest / s.Calls.OpenInterest
	}
	if s.Calls.Volume > 0 {
		byVolume = s.Puts.Volume / s.Calls.Volume
	}
	return byOI, byVolume
}

// MaxPain returns the settlement strike at which the aggregate intrinsic
// value owed to option holders of one expiration is smallest.
func MaxPain(e *models.ExpirationSlice) float64 {
	if e == nil || len(e.Calls)+len(e.Puts) == 0 {
		return 0
	}
	callOI := map[float64]float64{}
	putOI := map[float64]float64{}
	for _, c := range e.Calls {
		callOI[c.Strike] += c.OpenInterest
	}
	for _, p := range e.Puts {
		putOI[p.Strike] += p.OpenInterest
	}
	all := append(append([]models.OptionContract(nil), e.Calls...), e.Puts...)
	strikes := Strikes(all)

	minPain := math.MaxFloat64
	painStrike := 0.0
	for _, settle := range strikes {
		pain := 0.0
		for _, k := range strikes {
			if k < settle {
				pain += (settle - k) * callOI[k]
			}
			if k > settle {
				pain += (k - settle) * putOI[k]
			}
		}
		if pain < minPain {
			minPain = pain
			painStrike = settle
		}
	}
	return painStrike
}
