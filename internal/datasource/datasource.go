// Package datasource fetches market data for the research pipelines. It
// defines the Provider interface and implements it for Yahoo Finance and
// Polygon.io, plus a composite that routes price history to Polygon.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/quantdesk/internal/config"
	"github.com/seenimoa/quantdesk/internal/infra"
	"github.com/seenimoa/quantdesk/pkg/models"
)

// Provider is the market data source consumed by the research pipelines.
// Methods a provider can't serve return ErrNotSupported.
type Provider interface {
	// Name returns the human-readable provider name.
	Name() string

	// FetchPriceSeries returns time-ascending bars for symbol over r.
	FetchPriceSeries(ctx context.Context, symbol string, r Range) (models.PriceSeries, error)

	// FetchSpotPrice returns the live price, falling back to the previous
	// close. ErrNoPrice when neither is available.
	FetchSpotPrice(ctx context.Context, symbol string) (float64, error)

	// FetchOptionExpirations returns listed expiration dates, ascending.
	FetchOptionExpirations(ctx context.Context, symbol string) ([]time.Time, error)

	// FetchOptionChain returns the calls and puts of one expiration.
	FetchOptionChain(ctx context.Context, symbol string, expiration time.Time) (calls, puts []models.OptionContract, err error)

	// FetchIndustry returns the industry classification, "" when unknown.
	FetchIndustry(ctx context.Context, symbol string) (string, error)

	// FetchTrailingEPS returns trailing twelve-month earnings per share.
	FetchTrailingEPS(ctx context.Context, symbol string) (float64, error)
}

// QuoteFetcher is implemented by providers that can return a full quote.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, symbol string) (models.Quote, error)
}

// --- Sentinel errors ---

var (
	// ErrNotSupported is returned when a provider does not support a method.
	ErrNotSupported = errors.New("operation not supported by this provider")
	// ErrTickerNotFound is returned when a symbol cannot be resolved.
	ErrTickerNotFound = errors.New("ticker not found")
	// ErrRateLimited is returned when a provider throttles the request.
	ErrRateLimited = errors.New("rate limited by provider")
	// ErrNoPrice is returned when neither a live price nor a previous close
	// is available.
	ErrNoPrice = errors.New("no price available")
)

// ErrHTTP is the transport error for non-2xx responses.
type ErrHTTP = infra.ErrHTTP

// classify maps transport failures onto the sentinel errors.
func classify(err error, symbol string) error {
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) {
		return err
	}
	switch httpErr.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, symbol)
	}
	return err
}

// New builds the provider selected by cfg.Data.Provider.
func New(cfg *config.Config, log zerolog.Logger) (Provider, error) {
	yahoo := NewYahoo(YahooOptions{
		CacheTTL:          cfg.Data.CacheDuration(),
		RequestsPerSecond: cfg.Data.RequestsPerSecond,
		Logger:            log,
	})
	switch cfg.Data.Provider {
	case "", "yahoo":
		return yahoo, nil
	case "polygon", "composite":
		if cfg.Polygon.APIKey == "" {
			return nil, fmt.Errorf("provider %s: polygon.api_key is not set", cfg.Data.Provider)
		}
		poly := NewPolygon(cfg.Polygon.APIKey, log)
		// Polygon has no option chains or fundamentals, so both modes
		// route those calls to Yahoo.
		return NewComposite(poly, yahoo, log), nil
	}
	return nil, fmt.Errorf("unknown data provider %q", cfg.Data.Provider)
}
