// Package pricing implements closed-form Black-Scholes pricing and Greeks
// for European options on a non-dividend-paying underlying.
//
// Functions never panic and never return errors: degenerate volatility and
// time are clamped, and NaN or infinite inputs propagate to NaN outputs.
package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/seenimoa/quantdesk/pkg/models"
)

const (
	// MinVolatility is the floor applied to annualized volatility.
	MinVolatility = 1e-4
	// MinTimeToExpiry is one minute expressed in years.
	MinTimeToExpiry = 1.0 / (365 * 24 * 60)
)

// Inputs bundles the parameters of a single valuation.
type Inputs struct {
	Spot   float64
	Strike float64
	T      float64 // years
	Rate   float64 // continuously compounded
	Vol    float64 // annualized, decimal
}

func clamp(t, vol float64) (float64, float64) {
	// math.Max keeps NaN, which is what we want here.
	return math.Max(t, MinTimeToExpiry), math.Max(vol, MinVolatility)
}

type terms struct {
	d1, d2   float64
	sqrtT    float64
	discount float64 // exp(-rT)
}

func compute(in Inputs) terms {
	t, vol := clamp(in.T, in.Vol)
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(in.Spot/in.Strike) + (in.Rate+0.5*vol*vol)*t) / (vol * sqrtT)
	return terms{
		d1:       d1,
		d2:       d1 - vol*sqrtT,
		sqrtT:    sqrtT,
		discount: math.Exp(-in.Rate * t),
	}
}

func cdf(x float64) float64 { return distuv.UnitNormal.CDF(x) }
func pdf(x float64) float64 { return distuv.UnitNormal.Prob(x) }

// CallPrice returns the Black-Scholes value of a European call.
func CallPrice(spot, strike, t, r, vol float64) float64 {
	k := compute(Inputs{spot, strike, t, r, vol})
	return spot*cdf(k.d1) - strike*k.discount*cdf(k.d2)
}

// PutPrice returns the Black-Scholes value of a European put.
func PutPrice(spot, strike, t, r, vol float64) float64 {
	k := compute(Inputs{spot, strike, t, r, vol})
	return strike*k.discount*cdf(-k.d2) - spot*cdf(-k.d1)
}

// Price dispatches on right. An unknown right yields NaN.
func Price(spot, strike, t, r, vol float64, right models.Right) float64 {
	switch right {
	case models.Call:
		return CallPrice(spot, strike, t, r, vol)
	case models.Put:
		return PutPrice(spot, strike, t, r, vol)
	}
	return math.NaN()
}

// Greeks returns delta, gamma, theta, vega and rho for one leg.
//
// Theta is per year and vega/rho are per unit (not per percentage point)
// change of volatility and rate.
func Greeks(spot, strike, t, r, vol float64, right models.Right) models.GreeksResult {
	_, clampedVol := clamp(t, vol)
	k := compute(Inputs{spot, strike, t, r, vol})
	nd1 := pdf(k.d1)

	g := models.GreeksResult{
		Gamma: nd1 / (spot * clampedVol * k.sqrtT),
		Vega:  spot * nd1 * k.sqrtT,
	}
	decay := -(spot * nd1 * clampedVol) / (2 * k.sqrtT)
	tk := math.Max(t, MinTimeToExpiry)

	switch right {
	case models.Call:
		g.Delta = cdf(k.d1)
		g.Theta = decay - r*strike*k.discount*cdf(k.d2)
		g.Rho = strike * tk * k.discount * cdf(k.d2)
	case models.Put:
		g.Delta = -cdf(-k.d1)
		g.Theta = decay + r*strike*k.discount*cdf(-k.d2)
		g.Rho = -strike * tk * k.discount * cdf(-k.d2)
	default:
		nan := math.NaN()
		return models.GreeksResult{Delta: nan, Gamma: nan, Theta: nan, Vega: nan, Rho: nan}
	}
	return g
}

// Value prices in and returns its Greeks in one call.
func Value(in Inputs, right models.Right) (float64, models.GreeksResult) {
	return Price(in.Spot, in.Strike, in.T, in.Rate, in.Vol, right),
		Greeks(in.Spot, in.Strike, in.T, in.Rate, in.Vol, right)
}
