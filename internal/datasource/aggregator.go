package datasource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/quantdesk/pkg/models"
)

// Composite routes price history and spot prices to a price provider and
// everything else to a reference provider. Price calls fall back to the
// reference provider on failure.
type Composite struct {
	prices    Provider
	reference Provider
	log       zerolog.Logger
}

// NewComposite creates a composite provider.
func NewComposite(prices, reference Provider, log zerolog.Logger) *Composite {
	return &Composite{prices: prices, reference: reference, log: log}
}

// Name returns both provider names.
func (c *Composite) Name() string {
	return c.prices.Name() + " + " + c.reference.Name()
}

// FetchPriceSeries tries the price provider first.
func (c *Composite) FetchPriceSeries(ctx context.Context, symbol string, r Range) (models.PriceSeries, error) {
	series, err := c.prices.FetchPriceSeries(ctx, symbol, r)
	if err == nil && series.Len() > 0 {
		return series, nil
	}
	c.log.Warn().Err(err).Str("symbol", symbol).Str("provider", c.prices.Name()).Msg("price history unavailable, falling back")
	series, fbErr := c.reference.FetchPriceSeries(ctx, symbol, r)
	if fbErr != nil {
		return models.PriceSeries{}, fmt.Errorf("price history unavailable for %s: %w", symbol, errors.Join(err, fbErr))
	}
	return series, nil
}

// FetchSpotPrice prefers the reference provider's live quote and falls
// back to the price provider's last close.
func (c *Composite) FetchSpotPrice(ctx context.Context, symbol string) (float64, error) {
	spot, err := c.reference.FetchSpotPrice(ctx, symbol)
	if err == nil {
		return spot, nil
	}
	spot, fbErr := c.prices.FetchSpotPrice(ctx, symbol)
	if fbErr != nil {
		return 0, fmt.Errorf("spot unavailable for %s: %w", symbol, errors.Join(err, fbErr))
	}
	return spot, nil
}

func (c *Composite) FetchOptionExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	return c.reference.FetchOptionExpirations(ctx, symbol)
}

func (c *Composite) FetchOptionChain(ctx context.Context, symbol string, expiration time.Time) ([]models.OptionContract, []models.OptionContract, error) {
	return c.reference.FetchOptionChain(ctx, symbol, expiration)
}

func (c *Composite) FetchIndustry(ctx context.Context, symbol string) (string, error) {
	return c.reference.FetchIndustry(ctx, symbol)
}

func (c *Composite) FetchTrailingEPS(ctx context.Context, symbol string) (float64, error) {
	return c.reference.FetchTrailingEPS(ctx, symbol)
}

// FetchQuote delegates to whichever side can return a quote.
func (c *Composite) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	for _, p := range []Provider{c.reference, c.prices} {
		if qf, ok := p.(QuoteFetcher); ok {
			return qf.FetchQuote(ctx, symbol)
		}
	}
	return models.Quote{}, ErrNotSupported
}

// Profile is the reference data shown by `quantdesk info`.
type Profile struct {
	Quote       models.Quote `json:"quote"`
	Spot        float64      `json:"spot"`
	Industry    string       `json:"industry,omitempty"`
	SectorETF   string       `json:"sector_etf,omitempty"`
	TrailingEPS float64      `json:"trailing_eps,omitempty"`
	Warnings    []string     `json:"warnings,omitempty"`
}

// FetchProfile gathers quote, industry and EPS concurrently. Only a missing
// spot price is fatal; other failures become warnings.
func FetchProfile(ctx context.Context, p Provider, symbol string) (*Profile, error) {
	symbol = normalize(symbol)
	profile := &Profile{Quote: models.Quote{Symbol: symbol}}

	var mu sync.Mutex
	warn := func(what string, err error) {
		mu.Lock()
		profile.Warnings = append(profile.Warnings, fmt.Sprintf("%s: %v", what, err))
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		spot, err := p.FetchSpotPrice(gctx, symbol)
		if err != nil {
			return err
		}
		mu.Lock()
		profile.Spot = spot
		mu.Unlock()
		return nil
	})
	if qf, ok := p.(QuoteFetcher); ok {
		g.Go(func() error {
			q, err := qf.FetchQuote(gctx, symbol)
			if err != nil {
				warn("quote", err)
				return nil
			}
			mu.Lock()
			profile.Quote = q
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		industry, err := p.FetchIndustry(gctx, symbol)
		if err != nil {
			warn("industry", err)
			return nil
		}
		etf, _ := IndustryETF(industry)
		mu.Lock()
		profile.Industry, profile.SectorETF = industry, etf
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		eps, err := p.FetchTrailingEPS(gctx, symbol)
		if err != nil {
			warn("trailing eps", err)
			return nil
		}
		mu.Lock()
		profile.TrailingEPS = eps
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", symbol, err)
	}
	return profile, nil
}
