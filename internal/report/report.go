// Package report renders a single-symbol options research report as HTML or
// plain text, with the SVG charts embedded.
package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/quantdesk/internal/chart"
	"github.com/seenimoa/quantdesk/internal/datasource"
	"github.com/seenimoa/quantdesk/internal/research"
	"github.com/seenimoa/quantdesk/internal/surface"
	"github.com/seenimoa/quantdesk/internal/technical"
	"github.com/seenimoa/quantdesk/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Report Configuration
// ════════════════════════════════════════════════════════════════════

// Format specifies the output format.
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatText Format = "text"
)

// Section identifies a section to include or exclude.
type Section string

const (
	SectionSummary   Section = "summary"
	SectionGreeks    Section = "greeks"
	SectionSkew      Section = "skew"
	SectionSurface   Section = "surface"
	SectionTechnical Section = "technical"
)

// AllSections returns all report sections in display order.
func AllSections() []Section {
	return []Section{SectionSummary, SectionGreeks, SectionSkew, SectionSurface, SectionTechnical}
}

// Config controls report generation.
type Config struct {
	Title    string    // defaults to "<SYMBOL> options research"
	Sections []Section // defaults to AllSections
	// ChartWidth is the width of every embedded chart.
	ChartWidth int
}

// DefaultConfig returns a config with every section.
func DefaultConfig() Config {
	return Config{Sections: AllSections(), ChartWidth: 860}
}

func (c Config) has(s Section) bool {
	if len(c.Sections) == 0 {
		return true
	}
	for _, sec := range c.Sections {
		if sec == s {
			return true
		}
	}
	return false
}

// ════════════════════════════════════════════════════════════════════
// Report Input
// ════════════════════════════════════════════════════════════════════

// Input holds every result a report can show. Nil sections are omitted.
type Input struct {
	Symbol      string
	GeneratedAt time.Time
	Profile     *datasource.Profile
	Options     *research.OptionsReport
	Calls, Puts *models.GreeksSeries
	Skew        *research.SkewReport
	Surface     *surface.Grid
	Technical   *technical.Snapshot
	// Warnings lists the sections that could not be built.
	Warnings []string
}

// Collect runs every pipeline the configured sections need concurrently.
// Only a failing quote is fatal; other failures are recorded as warnings.
// The skew section uses expirations after skewTarget.
func Collect(ctx context.Context, svc *research.Service, symbol string, skewTarget time.Time, cfg Config) (*Input, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	in := &Input{Symbol: symbol, GeneratedAt: time.Now()}

	profile, err := datasource.FetchProfile(ctx, svc.Provider, symbol)
	if err != nil {
		return nil, err
	}
	in.Profile = profile

	var mu sync.Mutex
	warn := func(section Section, err error) {
		mu.Lock()
		in.Warnings = append(in.Warnings, fmt.Sprintf("%s: %v", section, err))
		mu.Unlock()
		svc.Log.Warn().Err(err).Str("symbol", symbol).Str("section", string(section)).Msg("report section skipped")
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.has(SectionSummary) {
		g.Go(func() error {
			rep, err := svc.OptionsSummary(gctx, symbol, svc.Options.StrikeRangeFactor)
			if err != nil {
				warn(SectionSummary, err)
				return nil
			}
			mu.Lock()
			in.Options = rep
			mu.Unlock()
			return nil
		})
	}
	if cfg.has(SectionGreeks) {
		g.Go(func() error {
			calls, puts, err := svc.GreeksSeries(gctx, symbol, svc.Options.RiskFreeRate)
			if err != nil {
				warn(SectionGreeks, err)
				return nil
			}
			mu.Lock()
			in.Calls, in.Puts = &calls, &puts
			mu.Unlock()
			return nil
		})
	}
	if cfg.has(SectionSkew) {
		g.Go(func() error {
			rep, err := svc.Skew(gctx, symbol, skewTarget, models.Call, 0)
			if err != nil {
				warn(SectionSkew, err)
				return nil
			}
			mu.Lock()
			in.Skew = rep
			mu.Unlock()
			return nil
		})
	}
	if cfg.has(SectionSurface) {
		g.Go(func() error {
			grid, err := svc.Surface(gctx, symbol)
			if err != nil {
				warn(SectionSurface, err)
				return nil
			}
			mu.Lock()
			in.Surface = grid
			mu.Unlock()
			return nil
		})
	}
	if cfg.has(SectionTechnical) {
		g.Go(func() error {
			snap, err := svc.Technical(gctx, symbol)
			if err != nil {
				warn(SectionTechnical, err)
				return nil
			}
			mu.Lock()
			in.Technical = &snap
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(in.Warnings)
	return in, nil
}

// ════════════════════════════════════════════════════════════════════
// Report Data (flattened for templates)
// ════════════════════════════════════════════════════════════════════

// Data is the template model.
type Data struct {
	Title       string
	Symbol      string
	Name        string
	Industry    string
	SectorETF   string
	GeneratedAt string

	Quote     []Row
	Summary   []SideRow
	PCR       string
	MaxPain   []Row
	Greeks    []GreeksTable
	Skew      []Row
	HV        string
	Surface   string
	Technical []Row

	GreeksCharts []template.HTML
	SkewChart    template.HTML
	SurfaceChart template.HTML

	Warnings []string
}

// Row is a label/value pair.
type Row struct {
	Label string
	Value string
}

// SideRow is one side of a chain summary.
type SideRow struct {
	Side         string
	Count        int
	Volume       string
	OpenInterest string
	Engagement   string
	AvgIV        string
	ITM, OTM     int
}

// GreeksTable is one side's Greeks by expiration.
type GreeksTable struct {
	Title string
	Rows  [][]string
}

// GreeksHeader is the column header of a GreeksTable.
var GreeksHeader = []string{"Expiration", "Strike", "IV", "Price", "Delta", "Gamma", "Theta", "Vega", "Rho"}

// GreeksHeaderCells exposes GreeksHeader to templates.
func (Data) GreeksHeaderCells() []string { return GreeksHeader }

func build(in *Input, cfg Config) Data {
	d := Data{
		Title:       cfg.Title,
		Symbol:      in.Symbol,
		GeneratedAt: in.GeneratedAt.Format("02 Jan 2006 15:04 MST"),
		Warnings:    in.Warnings,
	}
	if d.Title == "" {
		d.Title = in.Symbol + " options research"
	}
	width := cfg.ChartWidth
	if width == 0 {
		width = DefaultConfig().ChartWidth
	}

	if p := in.Profile; p != nil {
		d.Name, d.Industry, d.SectorETF = p.Quote.Name, p.Industry, p.SectorETF
		d.Quote = append(d.Quote, Row{"Price", num(p.Spot)})
		if p.Quote.PrevClose > 0 {
			d.Quote = append(d.Quote,
				Row{"Previous close", num(p.Quote.PrevClose)},
				Row{"Change", pct(p.Spot/p.Quote.PrevClose - 1)})
		}
		if p.TrailingEPS > 0 {
			d.Quote = append(d.Quote,
				Row{"Trailing EPS", num(p.TrailingEPS)},
				Row{"P/E", num(p.Spot / p.TrailingEPS)})
		}
	}

	if o := in.Options; o != nil {
		s := o.Summary
		for _, side := range []struct {
			name string
			s    models.SideSummary
		}{{"Calls", s.Calls}, {"Puts", s.Puts}} {
			d.Summary = append(d.Summary, SideRow{
				Side:         side.name,
				Count:        side.s.Count,
				Volume:       whole(side.s.Volume),
				OpenInterest: whole(side.s.OpenInterest),
				Engagement:   whole(side.s.Engagement()),
				AvgIV:        pct(side.s.AvgImpliedVolatility),
				ITM:          side.s.ITM,
				OTM:          side.s.OTM,
			})
		}
		d.PCR = fmt.Sprintf("%s by open interest, %s by volume", num(o.PCRByOI), num(o.PCRByVolume))
		dates := make([]string, 0, len(o.MaxPain))
		for date := range o.MaxPain {
			dates = append(dates, date)
		}
		sort.Strings(dates)
		for _, date := range dates {
			d.MaxPain = append(d.MaxPain, Row{date, num(o.MaxPain[date])})
		}
	}

	for _, s := range []*models.GreeksSeries{in.Calls, in.Puts} {
		if s == nil {
			continue
		}
		t := GreeksTable{Title: "Calls"}
		if s.Right == models.Put {
			t.Title = "Puts"
		}
		for _, p := range s.Points {
			t.Rows = append(t.Rows, []string{
				p.Expiration.Format(models.DateLayout), num(p.Strike), pct(p.ImpliedVolatility), num(p.Price),
				dec(p.Delta), dec(p.Gamma), dec(p.Theta), dec(p.Vega), dec(p.Rho),
			})
		}
		d.Greeks = append(d.Greeks, t)
		d.GreeksCharts = append(d.GreeksCharts, template.HTML(chart.GreeksChart(*s, width)))
	}

	if sk := in.Skew; sk != nil {
		for _, p := range sk.Skew.Points {
			d.Skew = append(d.Skew, Row{
				Label: fmt.Sprintf("%s @ %s", p.Expiration.Format(models.DateLayout), dec(p.RelativeStrike)),
				Value: pct(p.ImpliedVolatility),
			})
		}
		if !math.IsNaN(sk.HistoricalVolatility) {
			d.HV = pct(sk.HistoricalVolatility)
		}
		cc := chart.DefaultConfig()
		cc.Width = width
		d.SkewChart = template.HTML(chart.SkewChart(sk.Skew, sk.Symbol, sk.HistoricalVolatility, cc))
	}

	if g := in.Surface; g != nil {
		d.Surface = fmt.Sprintf("%d expirations, strike/spot %s to %s",
			len(g.Expirations), num(g.StrikeAxis[0]), num(g.StrikeAxis[len(g.StrikeAxis)-1]))
		cc := chart.DefaultConfig()
		cc.Width = width
		d.SurfaceChart = template.HTML(chart.SurfaceChart(g, in.Symbol, cc))
	}

	if t := in.Technical; t != nil {
		d.Technical = []Row{
			{"RSI(14)", num(t.RSI)},
			{"MACD", num(t.MACD.MACD)},
			{"MACD signal", num(t.MACD.Signal)},
			{"Bollinger upper", num(t.Bollinger.Upper)},
			{"Bollinger lower", num(t.Bollinger.Lower)},
			{"ATR(14)", num(t.ATR)},
		}
		for _, p := range technical.StandardPeriods {
			if v, ok := t.SMA[p]; ok {
				d.Technical = append(d.Technical, Row{fmt.Sprintf("SMA(%d)", p), num(v)})
			}
		}
	}
	return d
}

// ════════════════════════════════════════════════════════════════════
// Generate Report
// ════════════════════════════════════════════════════════════════════

var reportTmpl = template.Must(template.New("report").Parse(htmlTemplate))

// GenerateHTML renders in as a standalone HTML page.
func GenerateHTML(in *Input, cfg Config) (string, error) {
	if in == nil {
		return "", fmt.Errorf("report input is nil")
	}
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, build(in, cfg)); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

// GenerateText renders in for a terminal, without charts.
func GenerateText(in *Input, cfg Config) (string, error) {
	if in == nil {
		return "", fmt.Errorf("report input is nil")
	}
	return renderText(build(in, cfg)), nil
}

func renderText(d Data) string {
	var b strings.Builder
	rule := strings.Repeat("═", 60)
	fmt.Fprintf(&b, "%s\n  %s\n", rule, d.Title)
	if d.Name != "" {
		fmt.Fprintf(&b, "  %s", d.Name)
		if d.Industry != "" {
			fmt.Fprintf(&b, " · %s", d.Industry)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "  Generated %s\n%s\n", d.GeneratedAt, rule)

	rows := func(title string, rs []Row) {
		if len(rs) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s\n", title)
		for _, r := range rs {
			fmt.Fprintf(&b, "  %-24s %s\n", r.Label, r.Value)
		}
	}
	rows("Quote", d.Quote)

	if len(d.Summary) > 0 {
		b.WriteString("\nChain summary\n")
		fmt.Fprintf(&b, "  %-6s %8s %10s %12s %8s %5s %5s\n", "Side", "Count", "Volume", "Open int.", "Avg IV", "ITM", "OTM")
		for _, s := range d.Summary {
			fmt.Fprintf(&b, "  %-6s %8d %10s %12s %8s %5d %5d\n", s.Side, s.Count, s.Volume, s.OpenInterest, s.AvgIV, s.ITM, s.OTM)
		}
		fmt.Fprintf(&b, "  Put/call ratio: %s\n", d.PCR)
	}
	rows("Max pain", d.MaxPain)

	for _, t := range d.Greeks {
		fmt.Fprintf(&b, "\nGreeks: %s\n  %s\n", t.Title, strings.Join(GreeksHeader, "  "))
		for _, r := range t.Rows {
			fmt.Fprintf(&b, "  %s\n", strings.Join(r, "  "))
		}
	}
	if len(d.Skew) > 0 {
		title := "OTM call skew"
		if d.HV != "" {
			title += " (historical volatility " + d.HV + ")"
		}
		rows(title, d.Skew)
	}
	if d.Surface != "" {
		fmt.Fprintf(&b, "\nVolatility surface\n  %s\n", d.Surface)
	}
	rows("Technical", d.Technical)

	if len(d.Warnings) > 0 {
		b.WriteString("\nSkipped\n")
		for _, w := range d.Warnings {
			fmt.Fprintf(&b, "  %s\n", w)
		}
	}
	return b.String()
}

// ════════════════════════════════════════════════════════════════════
// Formatting Helpers
// ════════════════════════════════════════════════════════════════════

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func num(v float64) string {
	if !finite(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

func dec(v float64) string {
	if !finite(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

func pct(v float64) string {
	if !finite(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func whole(v float64) string {
	if !finite(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.0f", v)
}
