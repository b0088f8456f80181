package research

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/seenimoa/quantdesk/internal/chain"
	"github.com/seenimoa/quantdesk/internal/pricing"
	"github.com/seenimoa/quantdesk/internal/surface"
	"github.com/seenimoa/quantdesk/pkg/models"
)

// DaysPerYear converts whole days to expiry into a Black-Scholes T.
const DaysPerYear = 365.0

// OptionsReport is the strike-filtered chain aggregate plus open-interest
// statistics.
type OptionsReport struct {
	Summary     models.ChainSummary `json:"summary"`
	PCRByOI     float64             `json:"pcr_oi"`
	PCRByVolume float64             `json:"pcr_volume"`
	// MaxPain is keyed by expiration date.
	MaxPain map[string]float64 `json:"max_pain"`
	// Contracts is the unfiltered flattened chain.
	Contracts []models.FlatContract `json:"-"`
}

// OptionsSummary aggregates every expiration of symbol, keeping strikes
// within spot*(1±factor).
func (s *Service) OptionsSummary(ctx context.Context, symbol string, factor float64) (*OptionsReport, error) {
	ch, spot, err := s.LoadChain(ctx, symbol)
	if err != nil {
		return nil, err
	}
	summary, err := chain.Aggregate(ch, spot, factor)
	if err != nil {
		return nil, err
	}
	rep := &OptionsReport{
		Summary:   summary,
		MaxPain:   make(map[string]float64, len(ch.Expirations)),
		Contracts: chain.Flatten(ch),
	}
	rep.PCRByOI, rep.PCRByVolume = chain.PutCallRatio(summary)
	for date, e := range ch.Expirations {
		rep.MaxPain[date] = chain.MaxPain(e)
	}
	return rep, nil
}

// Horizon aggregates the expirations at most days away. Already expired
// contracts are kept and logged.
func (s *Service) Horizon(ctx context.Context, symbol string, days int) (models.ChainSummary, error) {
	ch, spot, err := s.LoadChain(ctx, symbol)
	if err != nil {
		return models.ChainSummary{}, err
	}
	now := s.clock()
	if n := chain.Expired(ch, now); n > 0 {
		s.Log.Warn().Str("symbol", ch.Underlying).Int("expired", n).Msg("chain includes expired contracts")
	}
	return chain.AggregateWithinHorizon(ch, spot, now, days)
}

// GreeksSeries prices the contract nearest to spot in every expiration and
// returns one series per side. Points whose price is NaN are dropped.
func (s *Service) GreeksSeries(ctx context.Context, symbol string, rate float64) (calls, puts models.GreeksSeries, err error) {
	ch, spot, err := s.LoadChain(ctx, symbol)
	if err != nil {
		return calls, puts, err
	}
	calls, puts = BuildGreeksSeries(ch, spot, rate, s.clock())
	dropped := 0
	for _, e := range ch.Expirations {
		if len(e.Calls) > 0 {
			dropped++
		}
		if len(e.Puts) > 0 {
			dropped++
		}
	}
	dropped -= len(calls.Points) + len(puts.Points)
	if dropped > 0 {
		s.Log.Debug().Str("symbol", ch.Underlying).Int("dropped", dropped).Msg("greeks points with undefined price dropped")
	}
	return calls, puts, nil
}

// BuildGreeksSeries is the pure part of GreeksSeries.
func BuildGreeksSeries(ch *models.OptionChain, spot, rate float64, now time.Time) (calls, puts models.GreeksSeries) {
	calls = models.GreeksSeries{Underlying: ch.Underlying, Right: models.Call}
	puts = models.GreeksSeries{Underlying: ch.Underlying, Right: models.Put}
	for _, date := range ch.Dates() {
		e := ch.Expirations[date]
		if p, ok := greeksPoint(e.Calls, spot, rate, now); ok {
			calls.Points = append(calls.Points, p)
		}
		if p, ok := greeksPoint(e.Puts, spot, rate, now); ok {
			puts.Points = append(puts.Points, p)
		}
	}
	return calls, puts
}

func greeksPoint(contracts []models.OptionContract, spot, rate float64, now time.Time) (models.GreeksPoint, bool) {
	c, ok := chain.NearestStrike(contracts, spot)
	if !ok {
		return models.GreeksPoint{}, false
	}
	t := float64(chain.DaysToExpiry(c.Expiration, now)) / DaysPerYear
	price, g := pricing.Value(pricing.Inputs{
		Spot:   spot,
		Strike: c.Strike,
		T:      t,
		Rate:   rate,
		Vol:    c.ImpliedVolatility,
	}, c.Right)
	if math.IsNaN(price) {
		return models.GreeksPoint{}, false
	}
	return models.GreeksPoint{
		Expiration:        c.Expiration,
		Strike:            c.Strike,
		ImpliedVolatility: c.ImpliedVolatility,
		YearsToExpiry:     t,
		Price:             price,
		GreeksResult:      g,
	}, true
}

// SkewReport is an OTM skew with the reference lines drawn on its chart.
type SkewReport struct {
	Symbol string      `json:"symbol"`
	Spot   float64     `json:"spot"`
	Target time.Time   `json:"target"`
	Skew   models.Skew `json:"skew"`
	// HistoricalVolatility is the annualized one-year close-to-close
	// volatility, NaN when history is unavailable.
	HistoricalVolatility float64 `json:"historical_volatility"`
}

// Skew builds the OTM skew of one side for expirations in
// (target, target+windowDays].
func (s *Service) Skew(ctx context.Context, symbol string, target time.Time, right models.Right, windowDays int) (*SkewReport, error) {
	ch, spot, err := s.LoadChain(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if windowDays <= 0 {
		windowDays = s.Options.SkewWindowDays
	}
	skew, err := surface.BuildSkew(chain.Flatten(ch), spot, target, right, windowDays)
	if err != nil {
		return nil, fmt.Errorf("skew %s: %w", ch.Underlying, err)
	}
	rep := &SkewReport{
		Symbol: ch.Underlying,
		Spot:   spot,
		Target: target,
		Skew:   skew,
	}
	hv, err := s.HV(ctx, symbol, "1y")
	if err != nil {
		s.Log.Warn().Err(err).Str("symbol", ch.Underlying).Msg("historical volatility unavailable for skew")
		rep.HistoricalVolatility = math.NaN()
	} else {
		rep.HistoricalVolatility = hv.Annualized
	}
	return rep, nil
}

// Surface interpolates the implied volatility surface of every quoted
// contract.
func (s *Service) Surface(ctx context.Context, symbol string) (*surface.Grid, error) {
	ch, spot, err := s.LoadChain(ctx, symbol)
	if err != nil {
		return nil, err
	}
	grid, err := surface.BuildSurfaceGrid(chain.Flatten(ch), spot, surface.Options{Resolution: s.Options.SurfaceResolution})
	if err != nil {
		return nil, fmt.Errorf("surface %s: %w", ch.Underlying, err)
	}
	return grid, nil
}
