package models

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DateLayout is the key format for expiration dates.
const DateLayout = "2006-01-02"

// Right is the option right.
type Right string

const (
	Call Right = "call"
	Put  Right = "put"
)

// ParseRight accepts "call"/"put" and the common short forms.
func ParseRight(s string) (Right, error) {
	switch s {
	case "call", "calls", "c", "C", "CE":
		return Call, nil
	case "put", "puts", "p", "P", "PE":
		return Put, nil
	}
	return "", fmt.Errorf("unknown option right %q", s)
}

// ErrMixedUnderlying is returned when a contract is added to a chain of a
// different underlying.
var ErrMixedUnderlying = errors.New("contract underlying does not match chain")

// OptionContract is a single listed option. Immutable once fetched.
type OptionContract struct {
	Underlying        string    `json:"underlying"`
	Expiration        time.Time `json:"expiration"`
	Strike            float64   `json:"strike"`
	Right             Right     `json:"right"`
	ImpliedVolatility float64   `json:"implied_volatility"` // decimal, 0.25 = 25%
	Volume            float64   `json:"volume"`
	OpenInterest      float64   `json:"open_interest"`
	Bid               float64   `json:"bid"`
	Ask               float64   `json:"ask"`
	LastPrice         float64   `json:"last_price"`
}

// ExpirationSlice holds the contracts of one expiration date.
type ExpirationSlice struct {
	Expiration time.Time        `json:"expiration"`
	Calls      []OptionContract `json:"calls"`
	Puts       []OptionContract `json:"puts"`
}

// Contracts returns calls or puts.
func (e *ExpirationSlice) Contracts(right Right) []OptionContract {
	if right == Put {
		return e.Puts
	}
	return e.Calls
}

// OptionChain maps expiration date to the contracts expiring then.
// All contracts share Underlying.
type OptionChain struct {
	Underlying  string                      `json:"underlying"`
	Expirations map[string]*ExpirationSlice `json:"expirations"`
}

// NewOptionChain creates an empty chain.
func NewOptionChain(underlying string) *OptionChain {
	return &OptionChain{
		Underlying:  underlying,
		Expirations: make(map[string]*ExpirationSlice),
	}
}

// Add files a contract under its expiration date.
func (c *OptionChain) Add(oc OptionContract) error {
	if oc.Underlying != c.Underlying {
		return fmt.Errorf("%w: %s in %s chain", ErrMixedUnderlying, oc.Underlying, c.Underlying)
	}
	key := oc.Expiration.Format(DateLayout)
	slice, ok := c.Expirations[key]
	if !ok {
		slice = &ExpirationSlice{Expiration: oc.Expiration}
		c.Expirations[key] = slice
	}
	switch oc.Right {
	case Call:
		slice.Calls = append(slice.Calls, oc)
	case Put:
		slice.Puts = append(slice.Puts, oc)
	default:
		return fmt.Errorf("contract %v has no right", oc.Strike)
	}
	return nil
}

// Dates returns the expiration keys in ascending order.
func (c *OptionChain) Dates() []string {
	if c == nil {
		return nil
	}
	dates := make([]string, 0, len(c.Expirations))
	for d := range c.Expirations {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Len returns the total number of contracts.
func (c *OptionChain) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, e := range c.Expirations {
		n += len(e.Calls) + len(e.Puts)
	}
	return n
}

// GreeksResult holds first-order sensitivities. Any field may be NaN when
// the inputs were degenerate.
type GreeksResult struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// SideSummary aggregates one side (calls or puts) of a filtered chain.
type SideSummary struct {
	Count                int     `json:"count"`
	Volume               float64 `json:"volume"`
	OpenInterest         float64 `json:"open_interest"`
	AvgImpliedVolatility float64 `json:"avg_implied_volatility"`
	ITM                  int     `json:"itm"`
	OTM                  int     `json:"otm"`
}

// Engagement is volume plus open interest. It sums two different
// quantities and is only meant as a rough liquidity proxy.
func (s SideSummary) Engagement() float64 {
	return s.Volume + s.OpenInterest
}

// ATM returns the contracts whose strike equals spot exactly.
func (s SideSummary) ATM() int {
	return s.Count - s.ITM - s.OTM
}

// ChainSummary is the aggregate of a filtered option chain.
type ChainSummary struct {
	Underlying        string      `json:"underlying"`
	Spot              float64     `json:"spot"`
	StrikeRangeFactor float64     `json:"strike_range_factor,omitempty"`
	HorizonDays       int         `json:"horizon_days,omitempty"`
	Expirations       int         `json:"expirations"`
	Calls             SideSummary `json:"calls"`
	Puts              SideSummary `json:"puts"`
}

// FlatContract is one row of a flattened chain.
type FlatContract struct {
	Strike            float64   `json:"strike" csv:"strike"`
	ImpliedVolatility float64   `json:"implied_volatility" csv:"implied_volatility"`
	Expiration        time.Time `json:"expiration" csv:"-"`
	Right             Right     `json:"right" csv:"right"`
}

// SkewPoint is one OTM contract positioned by moneyness.
type SkewPoint struct {
	RelativeStrike    float64   `json:"relative_strike"`
	ImpliedVolatility float64   `json:"implied_volatility"`
	Expiration        time.Time `json:"expiration"`
}

// Skew is the OTM skew of one side, as parallel sequences plus points.
type Skew struct {
	Right           Right       `json:"right"`
	RelativeStrikes []float64   `json:"relative_strikes"`
	ImpliedVols     []float64   `json:"implied_vols"`
	Points          []SkewPoint `json:"points"`
}

// Len returns the number of points.
func (s Skew) Len() int { return len(s.Points) }

// GreeksPoint is the priced nearest-to-spot contract of one expiration.
type GreeksPoint struct {
	Expiration        time.Time `json:"expiration"`
	Strike            float64   `json:"strike"`
	ImpliedVolatility float64   `json:"implied_volatility"`
	YearsToExpiry     float64   `json:"years_to_expiry"`
	Price             float64   `json:"price"`
	GreeksResult
}

// GreeksSeries is the Greeks time series of one side keyed by expiration.
type GreeksSeries struct {
	Underlying string        `json:"underlying"`
	Right      Right         `json:"right"`
	Points     []GreeksPoint `json:"points"`
}

// Column returns the named Greek ("delta", "gamma", "theta", "vega",
// "rho" or "price") across the series.
func (s GreeksSeries) Column(name string) []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		switch name {
		case "delta":
			out[i] = p.Delta
		case "gamma":
			out[i] = p.Gamma
		case "theta":
			out[i] = p.Theta
		case "vega":
			out[i] = p.Vega
		case "rho":
			out[i] = p.Rho
		case "price":
			out[i] = p.Price
		}
	}
	return out
}
