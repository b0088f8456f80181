package research

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/quantdesk/internal/chain"
	"github.com/seenimoa/quantdesk/internal/config"
	"github.com/seenimoa/quantdesk/internal/datasource"
	"github.com/seenimoa/quantdesk/internal/surface"
	"github.com/seenimoa/quantdesk/internal/technical"
	"github.com/seenimoa/quantdesk/pkg/models"
)

var (
	now  = time.Date(2024, 6, 3, 15, 30, 0, 0, time.UTC)
	near = time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	far  = time.Date(2024, 7, 19, 0, 0, 0, 0, time.UTC)
)

type fakeProvider struct {
	mu       sync.Mutex
	spot     map[string]float64
	spotErr  error
	exps     []time.Time
	chains   map[time.Time][2][]models.OptionContract
	chainErr error
	series   map[string]models.PriceSeries
	industry string
	eps      float64
	fetched  []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchPriceSeries(_ context.Context, symbol string, _ datasource.Range) (models.PriceSeries, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, symbol)
	f.mu.Unlock()
	s, ok := f.series[symbol]
	if !ok {
		return models.PriceSeries{}, datasource.ErrTickerNotFound
	}
	return s, nil
}

func (f *fakeProvider) FetchSpotPrice(_ context.Context, symbol string) (float64, error) {
	if f.spotErr != nil {
		return 0, f.spotErr
	}
	p, ok := f.spot[symbol]
	if !ok {
		return 0, datasource.ErrNoPrice
	}
	return p, nil
}

func (f *fakeProvider) FetchOptionExpirations(context.Context, string) ([]time.Time, error) {
	return f.exps, nil
}

func (f *fakeProvider) FetchOptionChain(_ context.Context, _ string, exp time.Time) ([]models.OptionContract, []models.OptionContract, error) {
	if f.chainErr != nil {
		return nil, nil, f.chainErr
	}
	c := f.chains[exp]
	return c[0], c[1], nil
}

func (f *fakeProvider) FetchIndustry(context.Context, string) (string, error) {
	return f.industry, nil
}

func (f *fakeProvider) FetchTrailingEPS(context.Context, string) (float64, error) {
	return f.eps, nil
}

func contract(exp time.Time, strike, iv float64, right models.Right, vol, oi float64) models.OptionContract {
	return models.OptionContract{
		Underlying:        "XYZ",
		Expiration:        exp,
		Strike:            strike,
		Right:             right,
		ImpliedVolatility: iv,
		Volume:            vol,
		OpenInterest:      oi,
	}
}

func closes(symbol string, values ...float64) models.PriceSeries {
	s := models.PriceSeries{Symbol: symbol}
	for i, v := range values {
		s.Bars = append(s.Bars, models.PriceBar{Date: now.AddDate(0, 0, i-len(values)), Close: v})
	}
	return s
}

func fixture() *fakeProvider {
	return &fakeProvider{
		spot: map[string]float64{"XYZ": 100},
		exps: []time.Time{far, near},
		chains: map[time.Time][2][]models.OptionContract{
			near: {
				{
					contract(near, 90, 0.30, models.Call, 5, 50),
					contract(near, 100, 0.25, models.Call, 10, 100),
					contract(near, 110, 0.22, models.Call, 3, 30),
				},
				{
					contract(near, 90, 0.35, models.Put, 4, 40),
					contract(near, 100, 0.27, models.Put, 6, 60),
				},
			},
			far: {
				{
					contract(far, 95, 0.28, models.Call, 2, 20),
					contract(far, 120, 0.24, models.Call, 1, 10),
				},
				{
					contract(far, 105, 0.29, models.Put, 2, 20),
					contract(far, 80, 0.40, models.Put, 1, 10),
				},
			},
		},
		series: map[string]models.PriceSeries{
			"XYZ": closes("XYZ", 100, 102, 101, 105, 103),
			"SMH": closes("SMH", 200, 210),
		},
		industry: "Semiconductors",
		eps:      2,
	}
}

func newService(p datasource.Provider) *Service {
	cfg := config.Default()
	s := New(p, cfg, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s
}

func TestLoadChain(t *testing.T) {
	svc := newService(fixture())
	ch, spot, err := svc.LoadChain(context.Background(), " xyz")
	require.NoError(t, err)
	assert.Equal(t, 100.0, spot)
	assert.Equal(t, 9, ch.Len())
	assert.Equal(t, []string{"2024-06-21", "2024-07-19"}, ch.Dates())
}

func TestLoadChainErrors(t *testing.T) {
	ctx := context.Background()

	p := fixture()
	p.spotErr = datasource.ErrNoPrice
	_, _, err := newService(p).LoadChain(ctx, "XYZ")
	assert.ErrorIs(t, err, chain.ErrMissingPrice)
	assert.ErrorIs(t, err, datasource.ErrNoPrice)

	for _, spot := range []float64{0, math.NaN(), math.Inf(1)} {
		p = fixture()
		p.spot["XYZ"] = spot
		_, _, err = newService(p).LoadChain(ctx, "XYZ")
		assert.ErrorIs(t, err, chain.ErrMissingPrice, "spot %v", spot)
	}

	p = fixture()
	p.spot["XYZ"] = math.NaN()
	_, err = newService(p).Skew(ctx, "XYZ", now, models.Call, 0)
	assert.ErrorIs(t, err, chain.ErrMissingPrice)

	p = fixture()
	p.exps = nil
	_, _, err = newService(p).LoadChain(ctx, "XYZ")
	assert.ErrorIs(t, err, ErrNoExpirations)

	p = fixture()
	p.chainErr = datasource.ErrRateLimited
	_, _, err = newService(p).LoadChain(ctx, "XYZ")
	assert.ErrorIs(t, err, datasource.ErrRateLimited)
}

func TestOptionsSummary(t *testing.T) {
	rep, err := newService(fixture()).OptionsSummary(context.Background(), "XYZ", 0.15)
	require.NoError(t, err)

	// 120 call and 80 put fall outside [85, 115].
	assert.Equal(t, 4, rep.Summary.Calls.Count)
	assert.Equal(t, 3, rep.Summary.Puts.Count)
	assert.Equal(t, 20.0, rep.Summary.Calls.Volume)
	assert.Equal(t, 12.0, rep.Summary.Puts.Volume)
	assert.Equal(t, 2, rep.Summary.Calls.ITM)
	assert.Equal(t, 1, rep.Summary.Calls.OTM)
	assert.InDelta(t, 120.0/200.0, rep.PCRByOI, 1e-12)
	assert.Len(t, rep.MaxPain, 2)
	assert.Len(t, rep.Contracts, 9)
}

func TestHorizon(t *testing.T) {
	summary, err := newService(fixture()).Horizon(context.Background(), "XYZ", 30)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Expirations)
	assert.Equal(t, 3, summary.Calls.Count)
	assert.Equal(t, 2, summary.Puts.Count)
}

func TestGreeksSeries(t *testing.T) {
	calls, puts, err := newService(fixture()).GreeksSeries(context.Background(), "XYZ", 0.01)
	require.NoError(t, err)
	require.Len(t, calls.Points, 2)
	require.Len(t, puts.Points, 2)

	first := calls.Points[0]
	assert.Equal(t, near, first.Expiration)
	assert.Equal(t, 100.0, first.Strike)
	assert.InDelta(t, 17.0/365.0, first.YearsToExpiry, 1e-12)
	assert.Greater(t, first.Price, 0.0)
	assert.Greater(t, first.Delta, 0.0)

	// far: 95 beats 120 for calls, 105 beats 80 for puts.
	assert.Equal(t, 95.0, calls.Points[1].Strike)
	assert.Equal(t, 105.0, puts.Points[1].Strike)
	assert.Less(t, puts.Points[0].Delta, 0.0)
}

func TestBuildGreeksSeriesDropsUndefined(t *testing.T) {
	ch := models.NewOptionChain("XYZ")
	require.NoError(t, ch.Add(contract(near, 100, math.NaN(), models.Call, 0, 0)))
	require.NoError(t, ch.Add(contract(far, 100, 0.2, models.Call, 0, 0)))

	calls, puts := BuildGreeksSeries(ch, 100, 0.01, now)
	require.Len(t, calls.Points, 1)
	assert.Equal(t, far, calls.Points[0].Expiration)
	assert.Empty(t, puts.Points)
}

func TestSkew(t *testing.T) {
	rep, err := newService(fixture()).Skew(context.Background(), "XYZ", near.AddDate(0, 0, -1), models.Call, 7)
	require.NoError(t, err)
	// Only the near expiration is in the window; 110 is the lone OTM call.
	require.Equal(t, 1, rep.Skew.Len())
	assert.InDelta(t, 1.1, rep.Skew.RelativeStrikes[0], 1e-12)
	assert.InDelta(t, 0.0234039*math.Sqrt(252), rep.HistoricalVolatility, 1e-5)
}

func TestSkewWithoutHistory(t *testing.T) {
	p := fixture()
	delete(p.series, "XYZ")
	rep, err := newService(p).Skew(context.Background(), "XYZ", near.AddDate(0, 0, -1), models.Put, 0)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(rep.HistoricalVolatility))
	assert.Equal(t, 1, rep.Skew.Len())
}

func TestSurface(t *testing.T) {
	svc := newService(fixture())
	svc.Options.SurfaceResolution = 4
	grid, err := svc.Surface(context.Background(), "XYZ")
	require.NoError(t, err)
	assert.Len(t, grid.StrikeAxis, 4)
	assert.Len(t, grid.Expirations, 2)

	p := fixture()
	delete(p.chains, far)
	p.exps = []time.Time{near}
	_, err = newService(p).Surface(context.Background(), "XYZ")
	assert.ErrorIs(t, err, surface.ErrInsufficientVariation)
}

func TestHV(t *testing.T) {
	svc := newService(fixture())
	rep, err := svc.HV(context.Background(), "xyz", "1y")
	require.NoError(t, err)
	assert.Equal(t, 5, rep.Observations)
	assert.InDelta(t, 0.0234039, rep.Daily, 1e-6)
	assert.InDelta(t, rep.Daily*math.Sqrt(252), rep.Annualized, 1e-12)

	p := fixture()
	p.series["XYZ"] = closes("XYZ", 100)
	_, err = newService(p).HV(context.Background(), "XYZ", "1y")
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestSectorHistory(t *testing.T) {
	p := fixture()
	rep, err := newService(p).SectorHistory(context.Background(), "XYZ", datasource.PeriodRange("1y", "1d"))
	require.NoError(t, err)
	assert.Equal(t, "SMH", rep.ETF)
	assert.Equal(t, 2, rep.Series.Len())

	p.industry = "Conglomerates"
	_, err = newService(p).SectorHistory(context.Background(), "XYZ", datasource.PeriodRange("1y", "1d"))
	assert.ErrorIs(t, err, ErrNoSectorETF)
}

func TestPERatio(t *testing.T) {
	p := fixture()
	points, err := newService(p).PERatio(context.Background(), "XYZ", datasource.PeriodRange("1mo", "1d"))
	require.NoError(t, err)
	require.Len(t, points, 5)
	assert.InDelta(t, 51.5, points[4].Ratio, 1e-12)

	p.eps = -1
	_, err = newService(p).PERatio(context.Background(), "XYZ", datasource.PeriodRange("1mo", "1d"))
	assert.ErrorIs(t, err, technical.ErrNoEarnings)
}

func TestEarningsTable(t *testing.T) {
	p := fixture()
	p.spot = map[string]float64{"AAA": 10, "CCC": 30, "DDD": 10}
	svc := newService(p)
	svc.Scrape = func(context.Context, string) ([]string, error) {
		return []string{"DDD", "AAA", "BBB", "CCC"}, nil
	}

	rows, err := svc.EarningsTable(context.Background(), "https://example.com/earnings")
	require.NoError(t, err)
	assert.Equal(t, []models.ListedPrice{
		{Symbol: "CCC", Price: 30},
		{Symbol: "AAA", Price: 10},
		{Symbol: "DDD", Price: 10},
	}, rows)

	svc.Scrape = func(context.Context, string) ([]string, error) {
		return nil, datasource.ErrNoSymbolColumn
	}
	_, err = svc.EarningsTable(context.Background(), "https://example.com/empty")
	assert.True(t, errors.Is(err, datasource.ErrNoSymbolColumn))
}
