package technical

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/seenimoa/quantdesk/pkg/models"
)

// makeSeries generates a synthetic trending daily series.
func makeSeries(n int, basePrice, trend float64) models.PriceSeries {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s := models.PriceSeries{Symbol: "TEST", Bars: make([]models.PriceBar, n)}
	price := basePrice
	for i := 0; i < n; i++ {
		open := price
		closeP := open + trend
		s.Bars[i] = models.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   open,
			High:   math.Max(open, closeP) + 2,
			Low:    math.Min(open, closeP) - 2,
			Close:  closeP,
			Volume: 1_000_000 + int64(i*10_000),
		}
		price = closeP
	}
	return s
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if len(got) != 5 {
		t.Fatalf("SMA length: got %d, want 5", len(got))
	}
	if !math.IsNaN(got[1]) {
		t.Errorf("SMA warm-up: got %v, want NaN", got[1])
	}
	for i, want := range map[int]float64{2: 2, 3: 3, 4: 4} {
		if got[i] != want {
			t.Errorf("SMA[%d]: got %v, want %v", i, got[i], want)
		}
	}
	if SMA([]float64{1, 2}, 3) != nil {
		t.Error("SMA should return nil for insufficient data")
	}
}

func TestEMASeededWithSMA(t *testing.T) {
	got := EMA([]float64{2, 4, 6, 8}, 3)
	if got[2] != 4 {
		t.Errorf("EMA seed: got %v, want 4", got[2])
	}
	// k = 0.5: 8*0.5 + 4*0.5
	if got[3] != 6 {
		t.Errorf("EMA[3]: got %v, want 6", got[3])
	}
}

func TestRSIUptrend(t *testing.T) {
	s := makeSeries(50, 100, 1.5)
	vals := RSI(s.Closes(), 14)
	if len(vals) != 50 {
		t.Fatalf("expected 50 RSI values, got %d", len(vals))
	}
	if !math.IsNaN(vals[13]) {
		t.Errorf("RSI[13] should be NaN, got %v", vals[13])
	}
	if latest := Latest(vals); latest != 100 {
		t.Errorf("monotone uptrend RSI: got %.2f, want 100", latest)
	}
	if RSI(makeSeries(5, 100, 1).Closes(), 14) != nil {
		t.Error("RSI should return nil for insufficient data")
	}
}

func TestRSIDowntrend(t *testing.T) {
	vals := RSI(makeSeries(40, 200, -2).Closes(), 14)
	if latest := Latest(vals); latest != 0 {
		t.Errorf("monotone downtrend RSI: got %.2f, want 0", latest)
	}
}

func TestMACDAligned(t *testing.T) {
	s := makeSeries(60, 100, 0.5)
	pts := MACD(s.Closes(), 12, 26, 9)
	if len(pts) != 60 {
		t.Fatalf("expected 60 MACD points, got %d", len(pts))
	}
	if !math.IsNaN(pts[24].MACD) {
		t.Errorf("MACD before slow warm-up should be NaN, got %v", pts[24].MACD)
	}
	last := pts[59]
	if last.MACD <= 0 {
		t.Errorf("uptrend MACD should be positive, got %v", last.MACD)
	}
	if math.Abs(last.Histogram-(last.MACD-last.Signal)) > 1e-12 {
		t.Errorf("histogram mismatch: %+v", last)
	}
}

func TestBollingerFlat(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 50
	}
	b := Bollinger(closes, 20, 2)
	last := b[len(b)-1]
	if last.Upper != 50 || last.Lower != 50 || last.Middle != 50 {
		t.Errorf("flat bands: got %+v", last)
	}
	if !math.IsNaN(b[0].Middle) {
		t.Errorf("warm-up band should be NaN, got %+v", b[0])
	}
}

func TestATRConstantRange(t *testing.T) {
	s := makeSeries(30, 100, 0)
	atr := ATR(s.Bars, 14)
	if got := Latest(atr); math.Abs(got-4) > 1e-9 {
		t.Errorf("ATR: got %v, want 4", got)
	}
}

func TestCompute(t *testing.T) {
	snap := Compute(makeSeries(120, 100, 0.25))
	if snap.Symbol != "TEST" {
		t.Errorf("Symbol: got %q", snap.Symbol)
	}
	if _, ok := snap.SMA[100]; !ok {
		t.Error("SMA(100) should be present for 120 bars")
	}
	if _, ok := snap.SMA[200]; ok {
		t.Error("SMA(200) should be absent for 120 bars")
	}
	if snap.RSI <= 50 {
		t.Errorf("RSI in uptrend: got %v", snap.RSI)
	}
	if math.IsNaN(snap.VWAP) || snap.VWAP <= 0 {
		t.Errorf("VWAP: got %v", snap.VWAP)
	}
}

func TestPERatio(t *testing.T) {
	s := makeSeries(3, 100, 10)
	pts, err := PERatio(s, 5)
	if err != nil {
		t.Fatalf("PERatio: %v", err)
	}
	if pts[0].Ratio != 22 || pts[2].Ratio != 26 {
		t.Errorf("PERatio: got %+v", pts)
	}
	if _, err := PERatio(s, 0); !errors.Is(err, ErrNoEarnings) {
		t.Errorf("PERatio with zero EPS: got %v, want ErrNoEarnings", err)
	}
}
