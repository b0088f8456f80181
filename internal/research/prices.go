package research

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/quantdesk/internal/datasource"
	"github.com/seenimoa/quantdesk/internal/technical"
	"github.com/seenimoa/quantdesk/internal/volatility"
	"github.com/seenimoa/quantdesk/pkg/models"
)

var (
	// ErrInsufficientHistory is returned when fewer than two closes exist.
	ErrInsufficientHistory = errors.New("at least two closing prices are required")
	// ErrNoSectorETF is returned when a symbol's industry has no sector fund.
	ErrNoSectorETF = errors.New("no sector ETF for industry")
)

// HVReport is the close-to-close volatility of one period.
type HVReport struct {
	Symbol       string  `json:"symbol"`
	Period       string  `json:"period"`
	Observations int     `json:"observations"`
	Daily        float64 `json:"daily"`
	Annualized   float64 `json:"annualized"`
}

// HV computes historical volatility over a relative period such as "1y".
func (s *Service) HV(ctx context.Context, symbol, period string) (*HVReport, error) {
	symbol = normalize(symbol)
	series, err := s.Provider.FetchPriceSeries(ctx, symbol, datasource.PeriodRange(period, "1d"))
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}
	daily := volatility.Historical(series)
	if math.IsNaN(daily) {
		return nil, fmt.Errorf("%s over %s: %w", symbol, period, ErrInsufficientHistory)
	}
	return &HVReport{
		Symbol:       symbol,
		Period:       period,
		Observations: series.Len(),
		Daily:        daily,
		Annualized:   volatility.Annualize(daily, volatility.TradingDaysPerYear),
	}, nil
}

// History returns the daily price series of symbol over r.
func (s *Service) History(ctx context.Context, symbol string, r datasource.Range) (models.PriceSeries, error) {
	symbol = normalize(symbol)
	series, err := s.Provider.FetchPriceSeries(ctx, symbol, r)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("history %s: %w", symbol, err)
	}
	return series, nil
}

// SectorReport is the price history of a symbol's sector ETF.
type SectorReport struct {
	Symbol   string             `json:"symbol"`
	Industry string             `json:"industry"`
	ETF      string             `json:"etf"`
	Series   models.PriceSeries `json:"series"`
}

// SectorHistory looks up symbol's industry and returns the history of the
// matching sector ETF.
func (s *Service) SectorHistory(ctx context.Context, symbol string, r datasource.Range) (*SectorReport, error) {
	symbol = normalize(symbol)
	industry, err := s.Provider.FetchIndustry(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("industry %s: %w", symbol, err)
	}
	etf, ok := datasource.IndustryETF(industry)
	if !ok {
		return nil, fmt.Errorf("%s (%q): %w", symbol, industry, ErrNoSectorETF)
	}
	series, err := s.History(ctx, etf, r)
	if err != nil {
		return nil, err
	}
	return &SectorReport{Symbol: symbol, Industry: industry, ETF: etf, Series: series}, nil
}

// Intraday returns today's one-minute bars.
func (s *Service) Intraday(ctx context.Context, symbol string) (models.PriceSeries, error) {
	return s.History(ctx, symbol, datasource.PeriodRange("1d", "1m"))
}

// PERatio divides each close over r by the trailing EPS.
func (s *Service) PERatio(ctx context.Context, symbol string, r datasource.Range) ([]technical.PEPoint, error) {
	symbol = normalize(symbol)
	eps, err := s.Provider.FetchTrailingEPS(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("trailing eps %s: %w", symbol, err)
	}
	series, err := s.History(ctx, symbol, r)
	if err != nil {
		return nil, err
	}
	points, err := technical.PERatio(series, eps)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	return points, nil
}

// Technical computes the indicator snapshot over one year of daily bars.
func (s *Service) Technical(ctx context.Context, symbol string) (technical.Snapshot, error) {
	series, err := s.History(ctx, symbol, datasource.PeriodRange("1y", "1d"))
	if err != nil {
		return technical.Snapshot{}, err
	}
	return technical.Compute(series), nil
}

// EarningsTable scrapes the symbols listed on pageURL and prices each one.
// Symbols without a price are dropped; the rest are sorted by price,
// highest first.
func (s *Service) EarningsTable(ctx context.Context, pageURL string) ([]models.ListedPrice, error) {
	scrape := s.Scrape
	if scrape == nil {
		scrape = datasource.ScrapeSymbols
	}
	symbols, err := scrape(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var (
		mu  sync.Mutex
		out = make([]models.ListedPrice, 0, len(symbols))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit())
	for _, sym := range symbols {
		g.Go(func() error {
			price, err := s.Provider.FetchSpotPrice(gctx, sym)
			if err != nil || price <= 0 {
				s.Log.Debug().Err(err).Str("symbol", sym).Msg("no price, dropped from table")
				return nil
			}
			mu.Lock()
			out = append(out, models.ListedPrice{Symbol: sym, Price: price})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			return out[i].Price > out[j].Price
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out, nil
}
