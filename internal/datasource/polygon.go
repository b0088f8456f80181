package datasource

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	polymodels "github.com/polygon-io/client-go/rest/models"
	"github.com/rs/zerolog"

	"github.com/seenimoa/quantdesk/internal/logging"
	"github.com/seenimoa/quantdesk/pkg/models"
)

// Polygon serves price history from Polygon.io aggregates. Option chains
// and fundamentals are not available on the plans this targets.
type Polygon struct {
	client *polygon.Client
	log    zerolog.Logger
	now    func() time.Time
}

// NewPolygon creates a Polygon.io provider.
func NewPolygon(apiKey string, log zerolog.Logger) *Polygon {
	return &Polygon{client: polygon.New(apiKey), log: log, now: time.Now}
}

// Name returns the provider name.
func (p *Polygon) Name() string { return "Polygon.io" }

// FetchPriceSeries lists adjusted aggregates in ascending order.
func (p *Polygon) FetchPriceSeries(ctx context.Context, symbol string, r Range) (models.PriceSeries, error) {
	symbol = normalize(symbol)
	params, err := aggsParams(symbol, r, p.now())
	if err != nil {
		return models.PriceSeries{}, err
	}

	start := time.Now()
	iter := p.client.ListAggs(ctx, params)
	series := models.PriceSeries{Symbol: symbol}
	for iter.Next() {
		a := iter.Item()
		series.Bars = append(series.Bars, models.PriceBar{
			Date:   time.Time(a.Timestamp).UTC(),
			Open:   a.Open,
			High:   a.High,
			Low:    a.Low,
			Close:  a.Close,
			Volume: int64(a.Volume),
		})
	}
	err = iter.Err()
	logging.LogAPICall(p.log, "polygon", "aggs/"+symbol, time.Since(start), err)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("polygon aggs %s: %w", symbol, err)
	}
	if len(series.Bars) == 0 {
		return series, fmt.Errorf("%w: no polygon bars for %s in %s", ErrTickerNotFound, symbol, r)
	}
	return series, nil
}

// FetchSpotPrice returns the latest daily close of the past week.
func (p *Polygon) FetchSpotPrice(ctx context.Context, symbol string) (float64, error) {
	now := p.now()
	series, err := p.FetchPriceSeries(ctx, symbol, Range{Start: now.AddDate(0, 0, -7), End: now, Interval: "1d"})
	if err != nil {
		return 0, err
	}
	last, ok := series.Last()
	if !ok || last.Close <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoPrice, symbol)
	}
	return last.Close, nil
}

// FetchOptionExpirations is not supported.
func (p *Polygon) FetchOptionExpirations(context.Context, string) ([]time.Time, error) {
	return nil, ErrNotSupported
}

// FetchOptionChain is not supported.
func (p *Polygon) FetchOptionChain(context.Context, string, time.Time) ([]models.OptionContract, []models.OptionContract, error) {
	return nil, nil, ErrNotSupported
}

// FetchIndustry is not supported.
func (p *Polygon) FetchIndustry(context.Context, string) (string, error) {
	return "", ErrNotSupported
}

// FetchTrailingEPS is not supported.
func (p *Polygon) FetchTrailingEPS(context.Context, string) (float64, error) {
	return 0, ErrNotSupported
}

func aggsParams(symbol string, r Range, now time.Time) (*polymodels.ListAggsParams, error) {
	from, to, err := r.Bounds(now)
	if err != nil {
		return nil, err
	}
	mult, span, err := polygonTimespan(r.interval())
	if err != nil {
		return nil, err
	}
	return polymodels.ListAggsParams{
		Ticker:     symbol,
		Multiplier: mult,
		Timespan:   span,
		From:       polymodels.Millis(from),
		To:         polymodels.Millis(to),
	}.WithOrder(polymodels.Asc).WithAdjusted(true), nil
}

func polygonTimespan(interval string) (int, polymodels.Timespan, error) {
	switch interval {
	case "1m":
		return 1, polymodels.Minute, nil
	case "5m":
		return 5, polymodels.Minute, nil
	case "15m":
		return 15, polymodels.Minute, nil
	case "1h":
		return 1, polymodels.Hour, nil
	case "1d":
		return 1, polymodels.Day, nil
	case "1wk":
		return 1, polymodels.Week, nil
	case "1mo":
		return 1, polymodels.Month, nil
	}
	return 0, "", fmt.Errorf("interval %q not supported by polygon", interval)
}
