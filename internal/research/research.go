// Package research wires market data from a Provider through the pricing,
// chain, surface and volatility packages. Each method is one pull-transform
// pipeline used by the CLI and the HTTP API.
package research

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/quantdesk/internal/chain"
	"github.com/seenimoa/quantdesk/internal/config"
	"github.com/seenimoa/quantdesk/internal/datasource"
	"github.com/seenimoa/quantdesk/internal/logging"
	"github.com/seenimoa/quantdesk/pkg/models"
)

// ErrNoExpirations is returned when a symbol has no listed options.
var ErrNoExpirations = errors.New("no option expirations listed")

// Service runs research pipelines against a Provider.
type Service struct {
	Provider datasource.Provider
	Options  config.OptionsConfig
	// ConcurrentFetches caps parallel provider calls. Values below 1 mean 1.
	ConcurrentFetches int
	Log               zerolog.Logger

	// Scrape lists the symbols of a web page; defaults to datasource.ScrapeSymbols.
	Scrape func(ctx context.Context, url string) ([]string, error)

	now func() time.Time
}

// New creates a Service from the loaded configuration.
func New(p datasource.Provider, cfg *config.Config, log zerolog.Logger) *Service {
	return &Service{
		Provider:          p,
		Options:           cfg.Options,
		ConcurrentFetches: cfg.Data.ConcurrentFetches,
		Log:               log,
		Scrape:            datasource.ScrapeSymbols,
		now:               time.Now,
	}
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *Service) limit() int {
	if s.ConcurrentFetches < 1 {
		return 1
	}
	return s.ConcurrentFetches
}

// Spot returns the current price of symbol. Any provider failure, and any
// price that is not finite and positive, is reported as chain.ErrMissingPrice.
func (s *Service) Spot(ctx context.Context, symbol string) (float64, error) {
	spot, err := s.Provider.FetchSpotPrice(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", symbol, chain.ErrMissingPrice, err)
	}
	if !chain.ValidSpot(spot) {
		return 0, fmt.Errorf("%s: %w", symbol, chain.ErrMissingPrice)
	}
	return spot, nil
}

// LoadChain fetches the spot price and every expiration of symbol's option
// chain. Expirations are fetched concurrently; any failure aborts the load.
func (s *Service) LoadChain(ctx context.Context, symbol string) (*models.OptionChain, float64, error) {
	symbol = normalize(symbol)
	log := logging.WithOperation(logging.WithSymbol(s.Log, symbol), "load_chain")
	start := time.Now()

	spot, err := s.Spot(ctx, symbol)
	if err != nil {
		return nil, 0, err
	}
	exps, err := s.Provider.FetchOptionExpirations(ctx, symbol)
	if err != nil {
		return nil, 0, fmt.Errorf("expirations %s: %w", symbol, err)
	}
	if len(exps) == 0 {
		return nil, 0, fmt.Errorf("%s: %w", symbol, ErrNoExpirations)
	}
	sort.Slice(exps, func(i, j int) bool { return exps[i].Before(exps[j]) })

	type side struct{ calls, puts []models.OptionContract }
	results := make([]side, len(exps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit())
	for i, exp := range exps {
		g.Go(func() error {
			calls, puts, err := s.Provider.FetchOptionChain(gctx, symbol, exp)
			if err != nil {
				return fmt.Errorf("chain %s %s: %w", symbol, exp.Format(models.DateLayout), err)
			}
			results[i] = side{calls, puts}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	ch := models.NewOptionChain(symbol)
	for _, r := range results {
		for _, set := range [][]models.OptionContract{r.calls, r.puts} {
			for _, c := range set {
				if err := ch.Add(c); err != nil {
					return nil, 0, fmt.Errorf("chain %s: %w", symbol, err)
				}
			}
		}
	}
	log.Debug().
		Int("expirations", len(exps)).
		Int("contracts", ch.Len()).
		Float64("spot", spot).
		Dur("elapsed", time.Since(start)).
		Msg("chain loaded")
	return ch, spot, nil
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
