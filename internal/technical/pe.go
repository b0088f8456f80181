package technical

import (
	"errors"
	"time"

	"github.com/seenimoa/quantdesk/pkg/models"
)

// ErrNoEarnings is returned when trailing EPS is missing or non-positive.
var ErrNoEarnings = errors.New("trailing EPS unavailable")

// PEPoint is one price-to-earnings observation.
type PEPoint struct {
	Date  time.Time `json:"date"`
	Ratio float64   `json:"ratio"`
}

// PERatio divides every close by a single trailing EPS figure.
func PERatio(series models.PriceSeries, trailingEPS float64) ([]PEPoint, error) {
	if trailingEPS <= 0 {
		return nil, ErrNoEarnings
	}
	out := make([]PEPoint, len(series.Bars))
	for i, b := range series.Bars {
		out[i] = PEPoint{Date: b.Date, Ratio: b.Close / trailingEPS}
	}
	return out, nil
}
