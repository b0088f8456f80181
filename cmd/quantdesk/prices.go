package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/seenimoa/quantdesk/internal/chart"
	"github.com/seenimoa/quantdesk/internal/datasource"
	"github.com/seenimoa/quantdesk/internal/export"
	"github.com/seenimoa/quantdesk/internal/technical"
	"github.com/seenimoa/quantdesk/pkg/models"
)

func init() {
	hvCmd.Flags().String("period", "1y", "lookback period (1mo, 3mo, 6mo, 1y, 2y, 5y)")

	historyCmd.Flags().String("from", "", "start date YYYY-MM-DD")
	historyCmd.Flags().String("to", "", "end date YYYY-MM-DD (default today)")
	historyCmd.Flags().String("period", "1y", "lookback period when --from is not given")
	historyCmd.Flags().Bool("sector", false, "show the sector ETF of the symbol instead")
	historyCmd.Flags().Bool("today", false, "show today's one-minute bars")
	historyCmd.Flags().String("svg", "", "write a close chart to this file")
	historyCmd.Flags().String("csv", "", "write the bars to this CSV file")

	peCmd.Flags().String("period", "1y", "lookback period")
	peCmd.Flags().String("svg", "", "write the P/E chart to this file")

	earningsCmd.Flags().String("csv", "", "write the table to this CSV file")

	newsCmd.Flags().Int("limit", 10, "maximum number of headlines")

	rootCmd.AddCommand(hvCmd, historyCmd, peCmd, technicalCmd, earningsCmd, newsCmd, infoCmd)
}

func writeSVG(path, svg string) error {
	if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Println("Wrote", path)
	return nil
}

// --- HV Command ---

var hvCmd = &cobra.Command{
	Use:   "hv SYMBOL",
	Short: "Close-to-close historical volatility",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		period, _ := cmd.Flags().GetString("period")
		rep, err := svc.HV(cmd.Context(), args[0], period)
		if err != nil {
			return err
		}
		t := newTable("Symbol", "Period", "Closes", "Daily", "Annualized")
		t.Append([]string{rep.Symbol, rep.Period, strconv.Itoa(rep.Observations), pct(rep.Daily), pct(rep.Annualized)})
		t.Render()
		return nil
	},
}

// --- History Command ---

var historyCmd = &cobra.Command{
	Use:   "history SYMBOL",
	Short: "Daily price history of a symbol or its sector ETF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		r, err := rangeFlags(cmd)
		if err != nil {
			return err
		}

		var (
			series models.PriceSeries
			title  string
		)
		sector, _ := cmd.Flags().GetBool("sector")
		today, _ := cmd.Flags().GetBool("today")
		switch {
		case sector:
			rep, err := svc.SectorHistory(cmd.Context(), args[0], r)
			if err != nil {
				return err
			}
			series = rep.Series
			title = fmt.Sprintf("%s sector (%s): %s", rep.Symbol, rep.Industry, rep.ETF)
		case today:
			if series, err = svc.Intraday(cmd.Context(), args[0]); err != nil {
				return err
			}
			title = series.Symbol + " today"
		default:
			if series, err = svc.History(cmd.Context(), args[0], r); err != nil {
				return err
			}
		}
		if series.Len() == 0 {
			return fmt.Errorf("%s: no bars in range", args[0])
		}

		first, last := series.Bars[0], series.Bars[series.Len()-1]
		fmt.Printf("%s  %d bars  %s → %s\n", series.Symbol, series.Len(),
			first.Date.Format(models.DateLayout), last.Date.Format(models.DateLayout))
		t := newTable("First close", "Last close", "Change", "High", "Low")
		hi, lo := math.Inf(-1), math.Inf(1)
		for _, b := range series.Bars {
			hi, lo = math.Max(hi, b.High), math.Min(lo, b.Low)
		}
		t.Append([]string{f2(first.Close), f2(last.Close), pct(last.Close/first.Close - 1), f2(hi), f2(lo)})
		t.Render()

		if path, _ := cmd.Flags().GetString("csv"); path != "" {
			if err := export.ToFile(path, func(w io.Writer) error { return export.Bars(w, series) }); err != nil {
				return err
			}
			fmt.Println("Wrote", path)
		}
		if path, _ := cmd.Flags().GetString("svg"); path != "" {
			return writeSVG(path, chart.PriceChart(series, title, chart.Config{}))
		}
		return nil
	},
}

// rangeFlags reads --from/--to, falling back to --period.
func rangeFlags(cmd *cobra.Command) (datasource.Range, error) {
	from, _ := cmd.Flags().GetString("from")
	if from == "" {
		period, _ := cmd.Flags().GetString("period")
		return datasource.PeriodRange(period, "1d"), nil
	}
	start, err := time.Parse(models.DateLayout, from)
	if err != nil {
		return datasource.Range{}, fmt.Errorf("--from must be YYYY-MM-DD: %w", err)
	}
	end := time.Now()
	if to, _ := cmd.Flags().GetString("to"); to != "" {
		if end, err = time.Parse(models.DateLayout, to); err != nil {
			return datasource.Range{}, fmt.Errorf("--to must be YYYY-MM-DD: %w", err)
		}
	}
	if !end.After(start) {
		return datasource.Range{}, fmt.Errorf("--to %s is not after --from %s", end.Format(models.DateLayout), from)
	}
	return datasource.DateRange(start, end), nil
}

// --- PE Command ---

var peCmd = &cobra.Command{
	Use:   "pe SYMBOL",
	Short: "Price-to-earnings ratio over time from trailing EPS",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		period, _ := cmd.Flags().GetString("period")
		points, err := svc.PERatio(cmd.Context(), args[0], datasource.PeriodRange(period, "1d"))
		if err != nil {
			return err
		}
		if len(points) == 0 {
			return fmt.Errorf("%s: no closes in range", args[0])
		}
		lo, hi := points[0].Ratio, points[0].Ratio
		for _, p := range points {
			lo, hi = math.Min(lo, p.Ratio), math.Max(hi, p.Ratio)
		}
		t := newTable("Symbol", "Current P/E", "Low", "High", "Days")
		t.Append([]string{args[0], f2(points[len(points)-1].Ratio), f2(lo), f2(hi), strconv.Itoa(len(points))})
		t.Render()

		if path, _ := cmd.Flags().GetString("svg"); path != "" {
			return writeSVG(path, chart.PEChart(args[0], points, chart.Config{}))
		}
		return nil
	},
}

// --- Technical Command ---

var technicalCmd = &cobra.Command{
	Use:   "technical SYMBOL",
	Short: "Latest technical indicators over one year of daily bars",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		snap, err := svc.Technical(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printSnapshot(snap)
		return nil
	},
}

func printSnapshot(s technical.Snapshot) {
	na := func(v float64) string {
		if math.IsNaN(v) {
			return "n/a"
		}
		return f2(v)
	}
	fmt.Printf("%s  close %s\n", s.Symbol, f2(s.Close))
	t := newTable("Indicator", "Value")
	t.Append([]string{"RSI(14)", na(s.RSI)})
	t.Append([]string{"MACD", na(s.MACD.MACD)})
	t.Append([]string{"MACD signal", na(s.MACD.Signal)})
	t.Append([]string{"MACD histogram", na(s.MACD.Histogram)})
	t.Append([]string{"Bollinger upper", na(s.Bollinger.Upper)})
	t.Append([]string{"Bollinger middle", na(s.Bollinger.Middle)})
	t.Append([]string{"Bollinger lower", na(s.Bollinger.Lower)})
	t.Append([]string{"ATR(14)", na(s.ATR)})
	t.Append([]string{"VWAP", na(s.VWAP)})
	for _, name := range []string{"SMA", "EMA"} {
		values := s.SMA
		if name == "EMA" {
			values = s.EMA
		}
		periods := make([]int, 0, len(values))
		for p := range values {
			periods = append(periods, p)
		}
		sort.Ints(periods)
		for _, p := range periods {
			t.Append([]string{fmt.Sprintf("%s(%d)", name, p), na(values[p])})
		}
	}
	t.Render()
}

// --- Earnings Command ---

var earningsCmd = &cobra.Command{
	Use:   "earnings URL",
	Short: "Price every symbol listed in the tables of a web page",
	Long: `Fetch a web page such as an earnings calendar or an M&A list, read the
Symbol column of each table, look up the current price of every symbol and
print them highest first. Symbols without a price are dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		prices, err := svc.EarningsTable(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		t := newTable("Symbol", "Price")
		for _, p := range prices {
			t.Append([]string{p.Symbol, f2(p.Price)})
		}
		t.Render()

		if path, _ := cmd.Flags().GetString("csv"); path != "" {
			if err := export.ToFile(path, func(w io.Writer) error { return export.ListedPrices(w, prices) }); err != nil {
				return err
			}
			fmt.Println("Wrote", path)
		}
		return nil
	},
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news SYMBOL",
	Short: "Latest headlines for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		headlines, err := datasource.NewNews("", logger).Headlines(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		if len(headlines) == 0 {
			fmt.Println("No headlines.")
			return nil
		}
		for _, h := range headlines {
			fmt.Printf("%s  %s\n", h.PublishedAt.Local().Format("2006-01-02 15:04"), h.Title)
			if h.Summary != "" {
				fmt.Printf("    %s\n", h.Summary)
			}
			fmt.Printf("    %s\n\n", h.URL)
		}
		return nil
	},
}

// --- Info Command ---

var infoCmd = &cobra.Command{
	Use:   "info SYMBOL",
	Short: "Quote, industry and earnings of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := datasource.New(cfg, logger)
		if err != nil {
			return err
		}
		profile, err := datasource.FetchProfile(cmd.Context(), p, args[0])
		if err != nil {
			return err
		}
		q := profile.Quote
		t := newTable("Field", "Value")
		t.SetAlignment(tablewriter.ALIGN_LEFT)
		rows := [][2]string{
			{"Symbol", q.Symbol},
			{"Name", q.Name},
			{"Price", f2(profile.Spot)},
			{"Previous close", f2(q.PrevClose)},
			{"Currency", q.Currency},
			{"Industry", profile.Industry},
			{"Sector ETF", profile.SectorETF},
			{"Trailing EPS", f2(profile.TrailingEPS)},
		}
		if !q.Timestamp.IsZero() {
			rows = append(rows, [2]string{"Quoted at", q.Timestamp.Local().Format(time.RFC1123)})
		}
		if profile.TrailingEPS > 0 {
			rows = append(rows, [2]string{"P/E", f2(profile.Spot / profile.TrailingEPS)})
		}
		for _, r := range rows {
			if r[1] != "" {
				t.Append(r[:])
			}
		}
		t.Render()
		for _, w := range profile.Warnings {
			logger.Warn().Str("symbol", q.Symbol).Msg(w)
		}
		return nil
	},
}
