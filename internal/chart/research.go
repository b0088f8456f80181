package chart

import (
	"fmt"
	"math"

	"github.com/seenimoa/quantdesk/internal/surface"
	"github.com/seenimoa/quantdesk/internal/technical"
	"github.com/seenimoa/quantdesk/pkg/models"
)

// PanelHeight is the height of each panel in GreeksChart.
const PanelHeight = 360

// GreeksChart draws one side's Greeks by expiration as two panels: delta
// and gamma on top, theta, vega and rho below.
func GreeksChart(s models.GreeksSeries, width int) string {
	if width == 0 {
		width = DefaultConfig().Width
	}
	labels := make([]string, len(s.Points))
	for i, p := range s.Points {
		labels[i] = p.Expiration.Format(models.DateLayout)
	}
	side := "calls"
	if s.Right == models.Put {
		side = "puts"
	}

	top := DefaultConfig()
	top.Width, top.Height = width, PanelHeight
	top.Title = fmt.Sprintf("%s %s: delta and gamma by expiration", s.Underlying, side)
	bottom := top
	bottom.Title = fmt.Sprintf("%s %s: theta, vega and rho by expiration", s.Underlying, side)

	return VStack(width, []string{
		LineChart([]Series{
			{Name: "Delta", Values: s.Column("delta")},
			{Name: "Gamma", Values: s.Column("gamma")},
		}, labels, top),
		LineChart([]Series{
			{Name: "Theta", Values: s.Column("theta")},
			{Name: "Vega", Values: s.Column("vega")},
			{Name: "Rho", Values: s.Column("rho")},
		}, labels, bottom),
	}, []int{PanelHeight, PanelHeight})
}

// SkewChart plots implied volatility against strike/spot, with the
// current price at moneyness 1 and historical volatility as a horizontal
// line. A NaN hv omits the line.
func SkewChart(skew models.Skew, symbol string, hv float64, cfg Config) string {
	if cfg.Title == "" {
		cfg.Title = fmt.Sprintf("%s OTM %s implied volatility skew", symbol, skew.Right)
	}
	cfg.XLabel, cfg.YLabel = "Strike / spot", "Implied volatility"
	points := make([]Point, len(skew.Points))
	for i, p := range skew.Points {
		points[i] = Point{X: p.RelativeStrike, Y: p.ImpliedVolatility}
	}
	opts := ScatterOptions{VLines: []RefLine{{Value: 1, Label: "Current price"}}}
	if !math.IsNaN(hv) {
		opts.HLines = []RefLine{{Value: hv, Label: fmt.Sprintf("Historical volatility (%.2f%%)", hv*100)}}
	}
	return ScatterChart(points, opts, cfg)
}

// SurfaceChart renders an implied-volatility grid as a heatmap with
// moneyness across and expiration date up.
func SurfaceChart(g *surface.Grid, symbol string, cfg Config) string {
	if cfg.Title == "" {
		cfg.Title = symbol + " implied volatility surface"
	}
	cfg.XLabel, cfg.YLabel = "Strike / spot", "Expiration"
	if g == nil {
		return emptySVG(cfg.withDefaults(""), "No surface")
	}
	labels := make([]string, len(g.ExpirationAxis))
	for i, d := range g.ExpirationAxis {
		labels[i] = surface.FromDayNumber(d).Format(models.DateLayout)
	}
	return Heatmap(g.StrikeAxis, g.ExpirationAxis, g.IV, labels, cfg)
}

// PriceChart draws the close of a price series.
func PriceChart(series models.PriceSeries, title string, cfg Config) string {
	if title == "" {
		title = series.Symbol + " close"
	}
	cfg.Title = title
	return LineChart([]Series{{Name: series.Symbol, Values: series.Closes()}}, dateLabels(series), cfg)
}

// PEChart draws a price-to-earnings series.
func PEChart(symbol string, points []technical.PEPoint, cfg Config) string {
	values := make([]float64, len(points))
	labels := make([]string, len(points))
	for i, p := range points {
		values[i] = p.Ratio
		labels[i] = p.Date.Format(models.DateLayout)
	}
	cfg.Title = symbol + " P/E ratio"
	return LineChart([]Series{{Name: "P/E", Values: values}}, labels, cfg)
}

func dateLabels(series models.PriceSeries) []string {
	layout := models.DateLayout
	if n := series.Len(); n > 1 && series.Bars[n-1].Date.Sub(series.Bars[0].Date).Hours() < 24 {
		layout = "15:04"
	}
	out := make([]string, series.Len())
	for i, b := range series.Bars {
		out[i] = b.Date.Format(layout)
	}
	return out
}
