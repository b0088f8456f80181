package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/quantdesk/internal/infra"
	"github.com/seenimoa/quantdesk/internal/logging"
	"github.com/seenimoa/quantdesk/pkg/models"
)

// DefaultYahooBaseURL is the Yahoo Finance query host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooOptions configures a Yahoo provider.
type YahooOptions struct {
	BaseURL           string
	CacheTTL          time.Duration
	RequestsPerSecond int
	Logger            zerolog.Logger
}

// Yahoo implements Provider with the public Yahoo Finance JSON endpoints.
type Yahoo struct {
	baseURL string
	cache   *infra.Cache[any]
	limiter *infra.RateLimiter
	log     zerolog.Logger
}

// NewYahoo creates a Yahoo Finance provider.
func NewYahoo(opts YahooOptions) *Yahoo {
	base := opts.BaseURL
	if base == "" {
		base = DefaultYahooBaseURL
	}
	return &Yahoo{
		baseURL: strings.TrimRight(base, "/"),
		cache:   infra.NewCache[any](opts.CacheTTL),
		limiter: infra.NewRateLimiter(opts.RequestsPerSecond),
		log:     opts.Logger,
	}
}

// Name returns the provider name.
func (y *Yahoo) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance API types ---

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yfQuoteResponse struct {
	QuoteResponse struct {
		Result []yfQuoteResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"quoteResponse"`
}

type yfQuoteResult struct {
	Symbol                     string  `json:"symbol"`
	ShortName                  string  `json:"shortName"`
	LongName                   string  `json:"longName"`
	Currency                   string  `json:"currency"`
	RegularMarketPrice         float64 `json:"regularMarketPrice"`
	RegularMarketPreviousClose float64 `json:"regularMarketPreviousClose"`
	RegularMarketTime          int64   `json:"regularMarketTime"`
}

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta struct {
		Symbol string `json:"symbol"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []yfOHLCV `json:"quote"`
	} `json:"indicators"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yfOptionsResponse struct {
	OptionChain struct {
		Result []yfOptionsResult `json:"result"`
		Error  *yfError          `json:"error"`
	} `json:"optionChain"`
}

type yfOptionsResult struct {
	UnderlyingSymbol string          `json:"underlyingSymbol"`
	ExpirationDates  []int64         `json:"expirationDates"`
	Options          []yfOptionChain `json:"options"`
}

type yfOptionChain struct {
	ExpirationDate int64        `json:"expirationDate"`
	Calls          []yfContract `json:"calls"`
	Puts           []yfContract `json:"puts"`
}

type yfContract struct {
	ContractSymbol    string   `json:"contractSymbol"`
	Strike            float64  `json:"strike"`
	LastPrice         float64  `json:"lastPrice"`
	Bid               float64  `json:"bid"`
	Ask               float64  `json:"ask"`
	Volume            *float64 `json:"volume"`
	OpenInterest      *float64 `json:"openInterest"`
	ImpliedVolatility float64  `json:"impliedVolatility"`
	Expiration        int64    `json:"expiration"`
}

type yfSummaryResponse struct {
	QuoteSummary struct {
		Result []yfSummaryResult `json:"result"`
		Error  *yfError          `json:"error"`
	} `json:"quoteSummary"`
}

type yfSummaryResult struct {
	AssetProfile *struct {
		Industry string `json:"industry"`
		Sector   string `json:"sector"`
	} `json:"assetProfile"`
	DefaultKeyStatistics *struct {
		TrailingEps *yfRaw `json:"trailingEps"`
	} `json:"defaultKeyStatistics"`
}

type yfRaw struct {
	Raw float64 `json:"raw"`
}

// --- Provider methods ---

// FetchQuote returns the current quote for symbol.
func (y *Yahoo) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = normalize(symbol)
	key := "quote:" + symbol
	if cached, ok := y.cache.Get(key); ok {
		return cached.(models.Quote), nil
	}

	var resp yfQuoteResponse
	u := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", y.baseURL, url.QueryEscape(symbol))
	if err := y.getJSON(ctx, symbol, u, &resp); err != nil {
		return models.Quote{}, fmt.Errorf("yahoo quote %s: %w", symbol, err)
	}
	if e := resp.QuoteResponse.Error; e != nil {
		return models.Quote{}, fmt.Errorf("yahoo quote %s: %s", symbol, e.Description)
	}
	if len(resp.QuoteResponse.Result) == 0 {
		return models.Quote{}, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}

	r := resp.QuoteResponse.Result[0]
	q := models.Quote{
		Symbol:    r.Symbol,
		Name:      coalesce(r.LongName, r.ShortName),
		Price:     r.RegularMarketPrice,
		PrevClose: r.RegularMarketPreviousClose,
		Currency:  r.Currency,
		Timestamp: time.Unix(r.RegularMarketTime, 0).UTC(),
	}
	y.cache.SetWithTTL(key, q, time.Minute)
	return q, nil
}

// FetchSpotPrice returns the live price, or the previous close when the
// market price is missing.
func (y *Yahoo) FetchSpotPrice(ctx context.Context, symbol string) (float64, error) {
	q, err := y.FetchQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	spot, ok := q.SpotPrice()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoPrice, q.Symbol)
	}
	return spot, nil
}

// FetchPriceSeries returns bars from the v8 chart API. Bars with a missing
// close are skipped.
func (y *Yahoo) FetchPriceSeries(ctx context.Context, symbol string, r Range) (models.PriceSeries, error) {
	symbol = normalize(symbol)
	params := url.Values{}
	params.Set("interval", r.interval())
	if r.Period != "" {
		params.Set("range", r.Period)
	} else {
		start, end, err := r.Bounds(time.Now())
		if err != nil {
			return models.PriceSeries{}, err
		}
		params.Set("period1", fmt.Sprint(start.Unix()))
		params.Set("period2", fmt.Sprint(end.Unix()))
	}

	key := "chart:" + symbol + "?" + params.Encode()
	if cached, ok := y.cache.Get(key); ok {
		return cached.(models.PriceSeries), nil
	}

	var resp yfChartResponse
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.baseURL, url.PathEscape(symbol), params.Encode())
	if err := y.getJSON(ctx, symbol, u, &resp); err != nil {
		return models.PriceSeries{}, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if e := resp.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return models.PriceSeries{}, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
		}
		return models.PriceSeries{}, fmt.Errorf("yahoo chart %s: %s", symbol, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return models.PriceSeries{}, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}

	series := models.PriceSeries{Symbol: symbol, Bars: parseYFBars(resp.Chart.Result[0])}
	y.cache.Set(key, series)
	return series, nil
}

// FetchOptionExpirations lists the expiration dates of symbol.
func (y *Yahoo) FetchOptionExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	res, err := y.fetchOptions(ctx, symbol, time.Time{})
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(res.ExpirationDates))
	for i, ts := range res.ExpirationDates {
		out[i] = time.Unix(ts, 0).UTC()
	}
	return out, nil
}

// FetchOptionChain returns the calls and puts of one expiration.
func (y *Yahoo) FetchOptionChain(ctx context.Context, symbol string, expiration time.Time) ([]models.OptionContract, []models.OptionContract, error) {
	res, err := y.fetchOptions(ctx, symbol, expiration)
	if err != nil {
		return nil, nil, err
	}
	underlying := coalesce(res.UnderlyingSymbol, normalize(symbol))
	var calls, puts []models.OptionContract
	for _, oc := range res.Options {
		exp := time.Unix(oc.ExpirationDate, 0).UTC()
		calls = append(calls, toContracts(oc.Calls, underlying, exp, models.Call)...)
		puts = append(puts, toContracts(oc.Puts, underlying, exp, models.Put)...)
	}
	return calls, puts, nil
}

// FetchIndustry returns the assetProfile industry, "" when Yahoo has none.
func (y *Yahoo) FetchIndustry(ctx context.Context, symbol string) (string, error) {
	res, err := y.fetchSummary(ctx, symbol, "assetProfile")
	if err != nil {
		return "", err
	}
	if res.AssetProfile == nil {
		return "", nil
	}
	return res.AssetProfile.Industry, nil
}

// FetchTrailingEPS returns defaultKeyStatistics.trailingEps.
func (y *Yahoo) FetchTrailingEPS(ctx context.Context, symbol string) (float64, error) {
	res, err := y.fetchSummary(ctx, symbol, "defaultKeyStatistics")
	if err != nil {
		return 0, err
	}
	if res.DefaultKeyStatistics == nil || res.DefaultKeyStatistics.TrailingEps == nil {
		return 0, fmt.Errorf("yahoo %s: trailing EPS not reported", normalize(symbol))
	}
	return res.DefaultKeyStatistics.TrailingEps.Raw, nil
}

// --- Helpers ---

func (y *Yahoo) fetchOptions(ctx context.Context, symbol string, expiration time.Time) (yfOptionsResult, error) {
	symbol = normalize(symbol)
	u := fmt.Sprintf("%s/v7/finance/options/%s", y.baseURL, url.PathEscape(symbol))
	if !expiration.IsZero() {
		u += fmt.Sprintf("?date=%d", expiration.Unix())
	}
	if cached, ok := y.cache.Get(u); ok {
		return cached.(yfOptionsResult), nil
	}

	var resp yfOptionsResponse
	if err := y.getJSON(ctx, symbol, u, &resp); err != nil {
		return yfOptionsResult{}, fmt.Errorf("yahoo options %s: %w", symbol, err)
	}
	if e := resp.OptionChain.Error; e != nil {
		return yfOptionsResult{}, fmt.Errorf("yahoo options %s: %s", symbol, e.Description)
	}
	if len(resp.OptionChain.Result) == 0 {
		return yfOptionsResult{}, fmt.Errorf("%w: no options for %s", ErrTickerNotFound, symbol)
	}
	res := resp.OptionChain.Result[0]
	y.cache.Set(u, res)
	return res, nil
}

func (y *Yahoo) fetchSummary(ctx context.Context, symbol, modules string) (yfSummaryResult, error) {
	symbol = normalize(symbol)
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s", y.baseURL, url.PathEscape(symbol), modules)
	if cached, ok := y.cache.Get(u); ok {
		return cached.(yfSummaryResult), nil
	}

	var resp yfSummaryResponse
	if err := y.getJSON(ctx, symbol, u, &resp); err != nil {
		return yfSummaryResult{}, fmt.Errorf("yahoo summary %s: %w", symbol, err)
	}
	if e := resp.QuoteSummary.Error; e != nil {
		return yfSummaryResult{}, fmt.Errorf("yahoo summary %s: %s", symbol, e.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return yfSummaryResult{}, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}
	res := resp.QuoteSummary.Result[0]
	y.cache.SetWithTTL(u, res, time.Hour)
	return res, nil
}

// getJSON waits for the limiter, performs the GET and decodes the body.
func (y *Yahoo) getJSON(ctx context.Context, symbol, u string, dst any) error {
	if err := y.limiter.Wait(ctx); err != nil {
		return err
	}
	start := time.Now()
	body, _, err := infra.DoGet(ctx, u, map[string]string{"Accept": "application/json"})
	if err != nil {
		logging.LogAPICall(y.log, "yahoo", u, time.Since(start), err)
		return classify(err, symbol)
	}
	defer body.Close()

	err = json.NewDecoder(body).Decode(dst)
	logging.LogAPICall(y.log, "yahoo", u, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseYFBars(result yfChartResult) []models.PriceBar {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	q := result.Indicators.Quote[0]
	bars := make([]models.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closeP := at(q.Close, i)
		if closeP == nil {
			continue
		}
		b := models.PriceBar{Date: time.Unix(ts, 0).UTC(), Close: *closeP}
		if v := at(q.Open, i); v != nil {
			b.Open = *v
		}
		if v := at(q.High, i); v != nil {
			b.High = *v
		}
		if v := at(q.Low, i); v != nil {
			b.Low = *v
		}
		if v := at(q.Volume, i); v != nil {
			b.Volume = *v
		}
		bars = append(bars, b)
	}
	return bars
}

func toContracts(raw []yfContract, underlying string, exp time.Time, right models.Right) []models.OptionContract {
	out := make([]models.OptionContract, 0, len(raw))
	for _, c := range raw {
		oc := models.OptionContract{
			Underlying:        underlying,
			Expiration:        exp,
			Strike:            c.Strike,
			Right:             right,
			ImpliedVolatility: c.ImpliedVolatility,
			Bid:               c.Bid,
			Ask:               c.Ask,
			LastPrice:         c.LastPrice,
		}
		// Missing volume/open interest count as zero in the sums.
		if c.Volume != nil {
			oc.Volume = *c.Volume
		}
		if c.OpenInterest != nil {
			oc.OpenInterest = *c.OpenInterest
		}
		out = append(out, oc)
	}
	return out
}

func at[T any](xs []*T, i int) *T {
	if i < len(xs) {
		return xs[i]
	}
	return nil
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
