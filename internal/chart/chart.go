// Package chart renders the research outputs as standalone SVG documents:
// line charts for price and Greeks series, scatter plots for skews and a
// heatmap for volatility surfaces.
package chart

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ════════════════════════════════════════════════════════════════════
// Configuration
// ════════════════════════════════════════════════════════════════════

// Config holds rendering parameters.
type Config struct {
	Width        int
	Height       int
	MarginTop    int
	MarginRight  int
	MarginBottom int
	MarginLeft   int
	BgColor      string
	GridColor    string
	TextColor    string
	FontSize     int
	Title        string
	XLabel       string
	YLabel       string
}

// DefaultConfig returns an 800x400 white chart.
func DefaultConfig() Config {
	return Config{
		Width:        800,
		Height:       400,
		MarginTop:    40,
		MarginRight:  60,
		MarginBottom: 50,
		MarginLeft:   70,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		FontSize:     11,
	}
}

// withDefaults fills a zero config, keeping its labels.
func (c Config) withDefaults(title string) Config {
	if c.Width == 0 {
		d := DefaultConfig()
		d.Title, d.XLabel, d.YLabel = c.Title, c.XLabel, c.YLabel
		c = d
	}
	if c.Title == "" {
		c.Title = title
	}
	return c
}

func (c Config) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

var palette = []string{"#2196f3", "#ff9800", "#4caf50", "#e91e63", "#9c27b0", "#00bcd4"}

// ════════════════════════════════════════════════════════════════════
// Line chart
// ════════════════════════════════════════════════════════════════════

// Series is a named line. NaN values leave gaps.
type Series struct {
	Name   string
	Values []float64
	Color  string
}

// LineChart draws one or more series against a shared index axis. labels
// are optional x-axis labels, one per point.
func LineChart(series []Series, labels []string, cfg Config) string {
	cfg = cfg.withDefaults("Line Chart")
	if len(series) == 0 {
		return emptySVG(cfg, "No data")
	}

	maxLen := 0
	var all []float64
	for _, s := range series {
		maxLen = max(maxLen, len(s.Values))
		all = append(all, s.Values...)
	}
	lo, hi, ok := extent(all)
	if maxLen == 0 || !ok {
		return emptySVG(cfg, "No data points")
	}
	y := newScale(lo, hi, true)
	px, py, pw, ph := cfg.plotArea()

	xAt := func(i int) float64 {
		if maxLen == 1 {
			return float64(px) + float64(pw)/2
		}
		return float64(px) + float64(i)*float64(pw)/float64(maxLen-1)
	}

	var sb strings.Builder
	writeFrame(&sb, cfg)
	writeYAxis(&sb, cfg, y)

	for si, s := range series {
		color := s.Color
		if color == "" {
			color = palette[si%len(palette)]
		}
		var path []string
		for i, v := range s.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				path = flushPath(&sb, path, color)
				continue
			}
			cmd := "L"
			if len(path) == 0 {
				cmd = "M"
			}
			path = append(path, fmt.Sprintf("%s%.1f,%.1f", cmd, xAt(i), y.pos(v, py, ph)))
		}
		flushPath(&sb, path, color)
		if maxLen == 1 && len(s.Values) == 1 && !math.IsNaN(s.Values[0]) {
			fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>`, xAt(0), y.pos(s.Values[0], py, ph), color)
		}
		writeLegend(&sb, cfg, si, s.Name, color)
	}

	if len(labels) > 0 {
		step := max(maxLen/6, 1)
		for i := 0; i < len(labels) && i < maxLen; i += step {
			fmt.Fprintf(&sb, `<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
				xAt(i), py+ph+18, cfg.FontSize-1, cfg.TextColor, escapeXML(labels[i]))
		}
	}
	writeAxisLabels(&sb, cfg)
	sb.WriteString("</svg>")
	return sb.String()
}

// flushPath writes the accumulated path segment and returns an empty one.
func flushPath(sb *strings.Builder, path []string, color string) []string {
	if len(path) > 1 {
		fmt.Fprintf(sb, `<path d="%s" fill="none" stroke="%s" stroke-width="2"/>`, strings.Join(path, " "), color)
	}
	return path[:0]
}

// ════════════════════════════════════════════════════════════════════
// Scatter chart
// ════════════════════════════════════════════════════════════════════

// Point is one scatter marker.
type Point struct{ X, Y float64 }

// RefLine is a dashed reference line at Value.
type RefLine struct {
	Value float64
	Label string
	Color string
}

// ScatterOptions adds reference lines to a scatter chart.
type ScatterOptions struct {
	HLines []RefLine
	VLines []RefLine
	Color  string
}

// ScatterChart plots points on numeric axes. Reference lines extend the
// axes so they are always visible; non-finite reference values are skipped.
func ScatterChart(points []Point, opts ScatterOptions, cfg Config) string {
	cfg = cfg.withDefaults("Scatter")
	var xs, ys []float64
	for _, p := range points {
		if finite(p.X) && finite(p.Y) {
			xs = append(xs, p.X)
			ys = append(ys, p.Y)
		}
	}
	if len(xs) == 0 {
		return emptySVG(cfg, "No data")
	}
	for _, l := range opts.VLines {
		if finite(l.Value) {
			xs = append(xs, l.Value)
		}
	}
	for _, l := range opts.HLines {
		if finite(l.Value) {
			ys = append(ys, l.Value)
		}
	}
	xlo, xhi, _ := extent(xs)
	ylo, yhi, _ := extent(ys)
	x := newScale(xlo, xhi, true)
	y := newScale(ylo, yhi, true)
	px, py, pw, ph := cfg.plotArea()

	var sb strings.Builder
	writeFrame(&sb, cfg)
	writeYAxis(&sb, cfg, y)
	writeXAxis(&sb, cfg, x)

	color := opts.Color
	if color == "" {
		color = palette[0]
	}
	for _, p := range points {
		if !finite(p.X) || !finite(p.Y) {
			continue
		}
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="4" fill="%s" fill-opacity="0.75"/>`,
			x.posX(p.X, px, pw), y.pos(p.Y, py, ph), color)
	}

	legend := 0
	for _, l := range opts.HLines {
		if !finite(l.Value) {
			continue
		}
		c := refColor(l.Color, "#9c27b0")
		ly := y.pos(l.Value, py, ph)
		fmt.Fprintf(&sb, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-width="1.5" stroke-dasharray="6,4"/>`,
			px, ly, px+pw, ly, c)
		writeLegend(&sb, cfg, legend, l.Label, c)
		legend++
	}
	for _, l := range opts.VLines {
		if !finite(l.Value) {
			continue
		}
		c := refColor(l.Color, "#9e9e9e")
		lx := x.posX(l.Value, px, pw)
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="%d" x2="%.1f" y2="%d" stroke="%s" stroke-width="1.5" stroke-dasharray="6,4"/>`,
			lx, py, lx, py+ph, c)
		writeLegend(&sb, cfg, legend, l.Label, c)
		legend++
	}
	writeAxisLabels(&sb, cfg)
	sb.WriteString("</svg>")
	return sb.String()
}

func refColor(c, fallback string) string {
	if c == "" {
		return fallback
	}
	return c
}

// ════════════════════════════════════════════════════════════════════
// Heatmap
// ════════════════════════════════════════════════════════════════════

// Heatmap colours z[i][j] at (xs[j], ys[i]). NaN cells are left blank.
// yLabels, when given, replace the numeric y ticks (one per row).
func Heatmap(xs, ys []float64, z [][]float64, yLabels []string, cfg Config) string {
	cfg = cfg.withDefaults("Heatmap")
	if len(xs) == 0 || len(ys) == 0 || len(z) == 0 {
		return emptySVG(cfg, "No data")
	}
	var all []float64
	for _, row := range z {
		all = append(all, row...)
	}
	lo, hi, ok := extent(all)
	if !ok {
		return emptySVG(cfg, "No finite values")
	}
	if hi-lo < 1e-12 {
		hi = lo + 1
	}

	px, py, pw, ph := cfg.plotArea()
	pw -= 40 // colour bar
	cw := float64(pw) / float64(len(xs))
	chh := float64(ph) / float64(len(ys))

	var sb strings.Builder
	writeFrame(&sb, cfg)
	for i := range ys {
		if i >= len(z) {
			break
		}
		// First row at the bottom.
		top := float64(py+ph) - float64(i+1)*chh
		for j := range xs {
			if j >= len(z[i]) || !finite(z[i][j]) {
				continue
			}
			fmt.Fprintf(&sb, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s"/>`,
				float64(px)+float64(j)*cw, top, cw+0.5, chh+0.5, ramp((z[i][j]-lo)/(hi-lo)))
		}
	}

	// Axis ticks at roughly six positions along each side.
	xStep := max(len(xs)/6, 1)
	for j := 0; j < len(xs); j += xStep {
		fmt.Fprintf(&sb, `<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			float64(px)+(float64(j)+0.5)*cw, py+ph+18, cfg.FontSize, cfg.TextColor, formatTick(xs[j]))
	}
	yStep := max(len(ys)/6, 1)
	for i := 0; i < len(ys); i += yStep {
		label := formatTick(ys[i])
		if i < len(yLabels) {
			label = yLabels[i]
		}
		fmt.Fprintf(&sb, `<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-5, float64(py+ph)-(float64(i)+0.5)*chh+4, cfg.FontSize, cfg.TextColor, escapeXML(label))
	}

	// Colour bar.
	bx := px + pw + 15
	const steps = 20
	for k := 0; k < steps; k++ {
		f := float64(k) / float64(steps-1)
		fmt.Fprintf(&sb, `<rect x="%d" y="%.1f" width="12" height="%.1f" fill="%s"/>`,
			bx, float64(py+ph)-float64(k+1)*float64(ph)/steps, float64(ph)/steps+0.5, ramp(f))
	}
	fmt.Fprintf(&sb, `<text x="%d" y="%d" font-size="%d" fill="%s">%s</text>`, bx, py-4, cfg.FontSize-1, cfg.TextColor, formatTick(hi))
	fmt.Fprintf(&sb, `<text x="%d" y="%d" font-size="%d" fill="%s">%s</text>`, bx, py+ph+12, cfg.FontSize-1, cfg.TextColor, formatTick(lo))

	writeAxisLabels(&sb, cfg)
	sb.WriteString("</svg>")
	return sb.String()
}

// ramp maps f in [0,1] from dark blue through green to yellow.
func ramp(f float64) string {
	f = math.Max(0, math.Min(1, f))
	stops := [][3]float64{{68, 1, 84}, {59, 82, 139}, {33, 145, 140}, {94, 201, 98}, {253, 231, 37}}
	pos := f * float64(len(stops)-1)
	i := int(pos)
	if i >= len(stops)-1 {
		i = len(stops) - 2
	}
	t := pos - float64(i)
	var rgb [3]int
	for k := range rgb {
		rgb[k] = int(math.Round(stops[i][k] + t*(stops[i+1][k]-stops[i][k])))
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}

// ════════════════════════════════════════════════════════════════════
// Stacking
// ════════════════════════════════════════════════════════════════════

// VStack places complete SVG documents of equal width one above the
// other. heights gives each panel's height.
func VStack(width int, panels []string, heights []int) string {
	total := 0
	for _, h := range heights {
		total += h
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, total, width, total)
	y := 0
	for i, p := range panels {
		if i >= len(heights) {
			break
		}
		fmt.Fprintf(&sb, `<g transform="translate(0,%d)">%s</g>`, y, p)
		y += heights[i]
	}
	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════════════════════════════

// scale maps a padded value range onto pixels.
type scale struct{ lo, span float64 }

func newScale(lo, hi float64, pad bool) scale {
	span := hi - lo
	if span < 1e-9 {
		span = math.Max(math.Abs(lo)*0.1, 1)
		lo -= span / 2
		return scale{lo, span}
	}
	if pad {
		lo -= span * 0.05
		span *= 1.1
	}
	return scale{lo, span}
}

// pos returns the y pixel for v, with larger values higher up.
func (s scale) pos(v float64, top, height int) float64 {
	return float64(top+height) - (v-s.lo)/s.span*float64(height)
}

func (s scale) posX(v float64, left, width int) float64 {
	return float64(left) + (v-s.lo)/s.span*float64(width)
}

func (s scale) at(frac float64) float64 { return s.lo + s.span*frac }

func extent(xs []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range xs {
		if !finite(v) {
			continue
		}
		lo, hi, ok = math.Min(lo, v), math.Max(hi, v), true
	}
	return lo, hi, ok
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// formatTick prints a tick value with four significant digits.
func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}

func writeFrame(sb *strings.Builder, cfg Config) {
	sb.WriteString(svgHeader(cfg))
	fmt.Fprintf(sb, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`, cfg.Width, cfg.Height, cfg.BgColor)
	fmt.Fprintf(sb, `<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title))
}

func writeYAxis(sb *strings.Builder, cfg Config, y scale) {
	px, py, pw, ph := cfg.plotArea()
	const gridLines = 5
	for i := 0; i <= gridLines; i++ {
		frac := float64(i) / gridLines
		yy := float64(py+ph) - frac*float64(ph)
		fmt.Fprintf(sb, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-dasharray="3,3"/>`,
			px, yy, px+pw, yy, cfg.GridColor)
		fmt.Fprintf(sb, `<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-5, yy+4, cfg.FontSize, cfg.TextColor, formatTick(y.at(frac)))
	}
}

func writeXAxis(sb *strings.Builder, cfg Config, x scale) {
	px, py, pw, ph := cfg.plotArea()
	const ticks = 5
	for i := 0; i <= ticks; i++ {
		frac := float64(i) / ticks
		fmt.Fprintf(sb, `<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			float64(px)+frac*float64(pw), py+ph+18, cfg.FontSize, cfg.TextColor, formatTick(x.at(frac)))
	}
}

func writeLegend(sb *strings.Builder, cfg Config, i int, name, color string) {
	if name == "" {
		return
	}
	px, py, _, _ := cfg.plotArea()
	ly := py + 10 + i*16
	fmt.Fprintf(sb, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="2"/>`, px+10, ly, px+30, ly, color)
	fmt.Fprintf(sb, `<text x="%d" y="%d" font-size="10" fill="%s">%s</text>`, px+35, ly+4, cfg.TextColor, escapeXML(name))
}

func writeAxisLabels(sb *strings.Builder, cfg Config) {
	px, py, pw, ph := cfg.plotArea()
	if cfg.XLabel != "" {
		fmt.Fprintf(sb, `<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			px+pw/2, py+ph+38, cfg.FontSize, cfg.TextColor, escapeXML(cfg.XLabel))
	}
	if cfg.YLabel != "" {
		fmt.Fprintf(sb, `<text x="14" y="%d" font-size="%d" fill="%s" text-anchor="middle" transform="rotate(-90 14 %d)">%s</text>`,
			py+ph/2, cfg.FontSize, cfg.TextColor, py+ph/2, escapeXML(cfg.YLabel))
	}
}

func svgHeader(cfg Config) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg Config, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}
