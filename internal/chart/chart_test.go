package chart

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/seenimoa/quantdesk/internal/surface"
	"github.com/seenimoa/quantdesk/internal/technical"
	"github.com/seenimoa/quantdesk/pkg/models"
)

func TestLineChart_Basic(t *testing.T) {
	series := []Series{
		{Name: "Stock", Values: []float64{100, 105, 102, 110, 108}},
		{Name: "Sector", Values: []float64{100, 103, 101, 106, 104}, Color: "#ff9800"},
	}
	cfg := DefaultConfig()
	cfg.Title = "Performance Comparison"

	svg := LineChart(series, []string{"Mon", "Tue", "Wed", "Thu", "Fri"}, cfg)
	for _, want := range []string{"Performance Comparison", "Stock", "Sector", "Mon", "<path"} {
		if !strings.Contains(svg, want) {
			t.Errorf("expected %q in SVG", want)
		}
	}
}

func TestLineChart_Empty(t *testing.T) {
	if svg := LineChart(nil, nil, DefaultConfig()); !strings.Contains(svg, "No data") {
		t.Error("expected empty message")
	}
	allNaN := []Series{{Name: "x", Values: []float64{math.NaN()}}}
	if svg := LineChart(allNaN, nil, Config{}); !strings.Contains(svg, "No data points") {
		t.Error("expected empty message for all-NaN series")
	}
}

func TestLineChart_SinglePoint(t *testing.T) {
	svg := LineChart([]Series{{Name: "A", Values: []float64{42}}}, nil, DefaultConfig())
	if !strings.Contains(svg, "<circle") {
		t.Error("expected a marker for a single point")
	}
	if strings.Contains(svg, "NaN") || strings.Contains(svg, "Inf") {
		t.Error("single point must not divide by zero")
	}
}

func TestLineChart_NaNGaps(t *testing.T) {
	svg := LineChart([]Series{{Name: "T", Values: []float64{10, 11, math.NaN(), 20, 21}}}, nil, DefaultConfig())
	if got := strings.Count(svg, "<path"); got != 2 {
		t.Errorf("expected 2 path segments around the gap, got %d", got)
	}
}

func TestScatterChart_RefLines(t *testing.T) {
	points := []Point{{0.9, 0.3}, {0.95, 0.27}, {1.05, 0.22}}
	svg := ScatterChart(points, ScatterOptions{
		HLines: []RefLine{{Value: 0.25, Label: "HV"}, {Value: math.NaN(), Label: "skipped"}},
		VLines: []RefLine{{Value: 1, Label: "Spot"}},
	}, Config{})
	if got := strings.Count(svg, "<circle"); got != 3 {
		t.Errorf("markers: got %d, want 3", got)
	}
	if !strings.Contains(svg, "HV") || !strings.Contains(svg, "Spot") {
		t.Error("expected reference line legends")
	}
	if strings.Contains(svg, "skipped") {
		t.Error("NaN reference line should be skipped")
	}
}

func TestHeatmap(t *testing.T) {
	z := [][]float64{
		{0.2, 0.25, math.NaN()},
		{0.22, 0.3, 0.28},
	}
	svg := Heatmap([]float64{0.9, 1, 1.1}, []float64{1, 2}, z, []string{"near", "far"}, Config{Title: "IV"})
	// 5 finite cells plus the 20-step colour bar.
	if got := strings.Count(svg, "<rect"); got != 1+5+20 {
		t.Errorf("rects: got %d, want %d", got, 1+5+20)
	}
	if !strings.Contains(svg, "near") {
		t.Error("expected row labels")
	}
	if svg := Heatmap(nil, nil, nil, nil, Config{}); !strings.Contains(svg, "No data") {
		t.Error("expected empty message")
	}
}

func TestRamp(t *testing.T) {
	if got := ramp(0); got != "#440154" {
		t.Errorf("ramp(0) = %s", got)
	}
	if got := ramp(1); got != "#fde725" {
		t.Errorf("ramp(1) = %s", got)
	}
	if ramp(-3) != ramp(0) || ramp(7) != ramp(1) {
		t.Error("ramp should clamp")
	}
}

func TestVStack(t *testing.T) {
	svg := VStack(100, []string{"<svg/>", "<svg/>"}, []int{50, 70})
	if !strings.Contains(svg, `height="120"`) || !strings.Contains(svg, "translate(0,50)") {
		t.Errorf("unexpected stack: %s", svg)
	}
}

func TestGreeksChart(t *testing.T) {
	exp := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	s := models.GreeksSeries{
		Underlying: "XYZ",
		Right:      models.Put,
		Points: []models.GreeksPoint{
			{Expiration: exp, GreeksResult: models.GreeksResult{Delta: -0.4, Gamma: 0.03, Theta: -5, Vega: 20, Rho: -10}},
			{Expiration: exp.AddDate(0, 1, 0), GreeksResult: models.GreeksResult{Delta: -0.45, Gamma: 0.02, Theta: -4, Vega: 25, Rho: -15}},
		},
	}
	svg := GreeksChart(s, 0)
	for _, want := range []string{"XYZ puts: delta and gamma", "theta, vega and rho", "2024-06-21", "Rho"} {
		if !strings.Contains(svg, want) {
			t.Errorf("expected %q in SVG", want)
		}
	}
}

func TestSkewChart(t *testing.T) {
	skew := models.Skew{Right: models.Call, Points: []models.SkewPoint{{RelativeStrike: 1.1, ImpliedVolatility: 0.22}}}
	svg := SkewChart(skew, "XYZ", 0.3715, Config{})
	if !strings.Contains(svg, "37.15%") {
		t.Error("expected historical volatility label")
	}
	if svg := SkewChart(skew, "XYZ", math.NaN(), Config{}); strings.Contains(svg, "Historical") {
		t.Error("NaN volatility should omit the line")
	}
}

func TestSurfaceChart(t *testing.T) {
	d := surface.DayNumber(time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC))
	g := &surface.Grid{
		StrikeAxis:     []float64{0.9, 1.1},
		ExpirationAxis: []float64{d, d + 28},
		IV:             [][]float64{{0.3, 0.2}, {0.28, 0.22}},
	}
	svg := SurfaceChart(g, "XYZ", Config{})
	if !strings.Contains(svg, "2024-06-21") || !strings.Contains(svg, "XYZ implied volatility surface") {
		t.Error("expected date labels and title")
	}
	if svg := SurfaceChart(nil, "XYZ", Config{}); !strings.Contains(svg, "No surface") {
		t.Error("expected empty surface message")
	}
}

func TestPriceAndPECharts(t *testing.T) {
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	series := models.PriceSeries{Symbol: "XYZ", Bars: []models.PriceBar{
		{Date: day, Close: 100}, {Date: day.AddDate(0, 0, 1), Close: 101},
	}}
	if svg := PriceChart(series, "", Config{}); !strings.Contains(svg, "XYZ close") {
		t.Error("expected default title")
	}

	intraday := models.PriceSeries{Symbol: "XYZ", Bars: []models.PriceBar{
		{Date: day.Add(14 * time.Hour), Close: 100}, {Date: day.Add(14*time.Hour + time.Minute), Close: 101},
	}}
	if svg := PriceChart(intraday, "today", Config{}); !strings.Contains(svg, "14:01") {
		t.Error("expected clock labels for intraday bars")
	}

	pe := []technical.PEPoint{{Date: day, Ratio: 25}, {Date: day.AddDate(0, 0, 1), Ratio: 26}}
	if svg := PEChart("XYZ", pe, Config{}); !strings.Contains(svg, "XYZ P/E ratio") {
		t.Error("expected P/E title")
	}
}

func TestEscapeXML(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"hello", "hello"},
		{"a & b", "a &amp; b"},
		{"<b>test</b>", "&lt;b&gt;test&lt;/b&gt;"},
		{`"quoted"`, "&quot;quoted&quot;"},
	}
	for _, tt := range tests {
		if got := escapeXML(tt.input); got != tt.want {
			t.Errorf("escapeXML(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPlotArea(t *testing.T) {
	cfg := DefaultConfig()
	x, y, w, h := cfg.plotArea()
	if x != cfg.MarginLeft || y != cfg.MarginTop {
		t.Errorf("origin: got %d,%d", x, y)
	}
	if w != cfg.Width-cfg.MarginLeft-cfg.MarginRight || h != cfg.Height-cfg.MarginTop-cfg.MarginBottom {
		t.Errorf("size: got %dx%d", w, h)
	}
}
