package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/quantdesk/internal/chain"
	"github.com/seenimoa/quantdesk/internal/config"
	"github.com/seenimoa/quantdesk/internal/datasource"
	"github.com/seenimoa/quantdesk/internal/research"
	"github.com/seenimoa/quantdesk/internal/surface"
	"github.com/seenimoa/quantdesk/internal/technical"
	"github.com/seenimoa/quantdesk/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

var (
	today = time.Now().UTC().Truncate(24 * time.Hour)
	near  = today.AddDate(0, 0, 18)
	far   = today.AddDate(0, 0, 46)
)

type fakeProvider struct {
	spot     map[string]float64
	chains   map[time.Time][2][]models.OptionContract
	series   map[string]models.PriceSeries
	industry string
	eps      float64
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchPriceSeries(_ context.Context, symbol string, _ datasource.Range) (models.PriceSeries, error) {
	s, ok := f.series[symbol]
	if !ok {
		return models.PriceSeries{}, datasource.ErrTickerNotFound
	}
	return s, nil
}

func (f *fakeProvider) FetchSpotPrice(_ context.Context, symbol string) (float64, error) {
	p, ok := f.spot[symbol]
	if !ok {
		return 0, fmt.Errorf("%s: %w", symbol, datasource.ErrTickerNotFound)
	}
	return p, nil
}

func (f *fakeProvider) FetchOptionExpirations(context.Context, string) ([]time.Time, error) {
	out := make([]time.Time, 0, len(f.chains))
	for exp := range f.chains {
		out = append(out, exp)
	}
	return out, nil
}

func (f *fakeProvider) FetchOptionChain(_ context.Context, _ string, exp time.Time) ([]models.OptionContract, []models.OptionContract, error) {
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
		s.Bars = append(s.Bars, models.PriceBar{Date: today.AddDate(0, 0, i-len(values)), Close: v})
	}
	return s
}

func fixture() *fakeProvider {
	return &fakeProvider{
		spot: map[string]float64{"XYZ": 100, "FLAT": 50},
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
			"XYZ":  closes("XYZ", 100, 102, 101, 105, 103),
			"SMH":  closes("SMH", 200, 210),
			"FLAT": closes("FLAT", 50),
		},
		industry: "Semiconductors",
		eps:      2,
	}
}

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Polygon.APIKey = "pk_live_123456"
	svc := research.New(fixture(), cfg, zerolog.Nop())
	svc.Options.SurfaceResolution = 4
	return NewServer(cfg, svc, nil, zerolog.Nop())
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

// decodeData decodes the data field of the envelope into v.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !env.Success {
		t.Fatalf("expected success, got error %q", env.Error)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

// ════════════════════════════════════════════════════════════════════
// Endpoints
// ════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	srv := testServer(t)
	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := get(t, srv, path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if resp := decodeResponse(t, rec); !resp.Success {
			t.Errorf("%s: expected success", path)
		}
	}
}

func TestQuote(t *testing.T) {
	rec := get(t, testServer(t), "/api/v1/quote/xyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var profile datasource.Profile
	decodeData(t, rec, &profile)
	if profile.Spot != 100 {
		t.Errorf("spot: got %v", profile.Spot)
	}
	if profile.SectorETF != "SMH" {
		t.Errorf("sector ETF: got %q", profile.SectorETF)
	}
}

func TestOptionsSummary(t *testing.T) {
	rec := get(t, testServer(t), "/api/v1/options/XYZ/summary?range=0.15")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var rep research.OptionsReport
	decodeData(t, rec, &rep)
	if rep.Summary.Calls.Count != 4 || rep.Summary.Puts.Count != 3 {
		t.Errorf("counts: calls %d puts %d", rep.Summary.Calls.Count, rep.Summary.Puts.Count)
	}
	if len(rep.MaxPain) != 2 {
		t.Errorf("max pain: got %d expirations", len(rep.MaxPain))
	}
}

func TestHorizon(t *testing.T) {
	rec := get(t, testServer(t), "/api/v1/options/XYZ/horizon?days=30")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary models.ChainSummary
	decodeData(t, rec, &summary)
	if summary.Expirations != 1 || summary.Calls.Count != 3 {
		t.Errorf("expected only the near expiration, got %+v", summary)
	}
}

func TestGreeks(t *testing.T) {
	rec := get(t, testServer(t), "/api/v1/options/XYZ/greeks?rate=0.05")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp GreeksResponse
	decodeData(t, rec, &resp)
	if len(resp.Calls.Points) != 2 || len(resp.Puts.Points) != 2 {
		t.Fatalf("points: calls %d puts %d", len(resp.Calls.Points), len(resp.Puts.Points))
	}
	if d := resp.Calls.Points[0].Delta; d <= 0 || d >= 1 {
		t.Errorf("call delta out of range: %v", d)
	}
	if d := resp.Puts.Points[0].Delta; d >= 0 || d <= -1 {
		t.Errorf("put delta out of range: %v", d)
	}
}

func TestSkew(t *testing.T) {
	path := "/api/v1/options/XYZ/skew?right=put&target=" + today.Format(models.DateLayout)
	rec := get(t, testServer(t), path)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SkewResponse
	decodeData(t, rec, &resp)
	// Only the near 90 put is out of the money within the window.
	if len(resp.Points) != 1 || resp.Points[0].RelativeStrike != 0.9 {
		t.Errorf("points: %+v", resp.Points)
	}
	if resp.HistoricalVolatility == nil || *resp.HistoricalVolatility <= 0 {
		t.Error("expected historical volatility")
	}
}

func TestSkewBadParams(t *testing.T) {
	srv := testServer(t)
	tests := []struct {
		name string
		path string
	}{
		{"missing target", "/api/v1/options/XYZ/skew"},
		{"bad right", "/api/v1/options/XYZ/skew?target=2024-06-03&right=straddle"},
		{"bad window", "/api/v1/options/XYZ/skew?target=2024-06-03&window=two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, tt.path)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if resp := decodeResponse(t, rec); resp.Success || resp.Error == "" {
				t.Errorf("expected an error envelope, got %+v", resp)
			}
		})
	}
}

func TestSurface(t *testing.T) {
	rec := get(t, testServer(t), "/api/v1/options/XYZ/surface")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SurfaceResponse
	decodeData(t, rec, &resp)
	if len(resp.StrikeAxis) != 4 || len(resp.DateAxis) != 4 || len(resp.IV) != 4 {
		t.Errorf("unexpected grid shape: %d x %d", len(resp.StrikeAxis), len(resp.DateAxis))
	}
	if len(resp.Expirations) != 2 || resp.Expirations[0] != near.Format(models.DateLayout) {
		t.Errorf("expirations: %v", resp.Expirations)
	}
}

func TestHV(t *testing.T) {
	srv := testServer(t)
	rec := get(t, srv, "/api/v1/hv/XYZ?period=6mo")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var rep research.HVReport
	decodeData(t, rec, &rep)
	if rep.Period != "6mo" || rep.Observations != 5 {
		t.Errorf("report: %+v", rep)
	}

	if rec := get(t, srv, "/api/v1/hv/FLAT"); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("single close: expected 422, got %d", rec.Code)
	}
}

func TestSectorAndPE(t *testing.T) {
	srv := testServer(t)
	rec := get(t, srv, "/api/v1/sector/XYZ")
	if rec.Code != http.StatusOK {
		t.Fatalf("sector: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var rep research.SectorReport
	decodeData(t, rec, &rep)
	if rep.ETF != "SMH" {
		t.Errorf("ETF: got %q", rep.ETF)
	}

	rec = get(t, srv, "/api/v1/pe/XYZ?period=1mo")
	if rec.Code != http.StatusOK {
		t.Fatalf("pe: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var points []technical.PEPoint
	decodeData(t, rec, &points)
	if len(points) != 5 || points[0].Ratio != 50 {
		t.Errorf("points: %+v", points)
	}
}

func TestUnknownSymbol(t *testing.T) {
	srv := testServer(t)
	for _, path := range []string{
		"/api/v1/quote/NOPE",
		"/api/v1/options/NOPE/summary",
		"/api/v1/hv/NOPE",
	} {
		if rec := get(t, srv, path); rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestCharts(t *testing.T) {
	srv := testServer(t)
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/chart/XYZ/greeks.svg", "XYZ calls: delta and gamma"},
		{"/api/v1/chart/XYZ/greeks.svg?right=put", "XYZ puts: delta and gamma"},
		{"/api/v1/chart/XYZ/skew.svg?target=" + today.Format(models.DateLayout), "Current price"},
		{"/api/v1/chart/XYZ/surface.svg", "XYZ implied volatility surface"},
	}
	for _, tt := range tests {
		rec := get(t, srv, tt.path)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", tt.path, rec.Code)
			continue
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
			t.Errorf("%s: content type %q", tt.path, ct)
		}
		if !strings.Contains(rec.Body.String(), tt.want) {
			t.Errorf("%s: expected %q in SVG", tt.path, tt.want)
		}
	}
}

func TestReport(t *testing.T) {
	srv := testServer(t)
	rec := get(t, srv, "/api/v1/report/XYZ?target="+today.Format(models.DateLayout))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"<!DOCTYPE html>", "XYZ options research", "Greeks by expiration"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in report", want)
		}
	}
	if rec := get(t, srv, "/api/v1/report/XYZ?target=soon"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad target: expected 400, got %d", rec.Code)
	}
}

func TestConfigEndpoints(t *testing.T) {
	srv := testServer(t)
	rec := get(t, srv, "/api/v1/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "pk_live_123456") {
		t.Error("config response leaked the API key")
	}
	if !strings.Contains(body, "pk_...456") {
		t.Error("expected the masked key")
	}

	rec = get(t, srv, "/api/v1/config/keys")
	var keys []config.KeyStatus
	decodeData(t, rec, &keys)
	if len(keys) != 1 || !keys[0].IsSet {
		t.Errorf("keys: %+v", keys)
	}
}

func TestNewsNotMountedWithoutSource(t *testing.T) {
	if rec := get(t, testServer(t), "/api/v1/news/XYZ"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

// ════════════════════════════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════════════════════════════

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{datasource.ErrTickerNotFound, http.StatusNotFound},
		{fmt.Errorf("x: %w", research.ErrNoExpirations), http.StatusNotFound},
		{datasource.ErrRateLimited, http.StatusTooManyRequests},
		{surface.ErrInsufficientVariation, http.StatusUnprocessableEntity},
		{technical.ErrNoEarnings, http.StatusUnprocessableEntity},
		{fmt.Errorf("XYZ: %w", chain.ErrMissingPrice), http.StatusBadGateway},
		{&datasource.ErrHTTP{StatusCode: 503}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestFloatQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?rate=0.05&bad=x&nan=NaN", nil)
	if v, err := floatQuery(req, "rate", 0); err != nil || v != 0.05 {
		t.Errorf("rate: %v %v", v, err)
	}
	if v, _ := floatQuery(req, "missing", 0.01); v != 0.01 {
		t.Errorf("default: %v", v)
	}
	for _, name := range []string{"bad", "nan"} {
		if _, err := floatQuery(req, name, 0); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestNullable(t *testing.T) {
	if nullable(0.2) == nil || *nullable(0.2) != 0.2 {
		t.Error("finite values should be kept")
	}
	if nullable(math.NaN()) != nil || nullable(math.Inf(1)) != nil {
		t.Error("non-finite values should be null")
	}
}

func TestWriteJSONUnencodable(t *testing.T) {
	rec := httptest.NewRecorder()
	summary := models.ChainSummary{Underlying: "XYZ", Calls: models.SideSummary{AvgImpliedVolatility: math.NaN()}}
	writeJSON(rec, http.StatusOK, APIResponse{Success: true, Data: summary})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d", rec.Code)
	}
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body must be a complete envelope: %v", err)
	}
	if resp.Success || !strings.Contains(resp.Error, "encode response") {
		t.Errorf("unexpected envelope: %+v", resp)
	}
}
