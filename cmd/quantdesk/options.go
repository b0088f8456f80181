package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/quantdesk/internal/chart"
	"github.com/seenimoa/quantdesk/internal/export"
	"github.com/seenimoa/quantdesk/internal/research"
	"github.com/seenimoa/quantdesk/pkg/models"
)

func init() {
	optionsCmd.Flags().Float64("range", 0, "strike range factor around spot (default from config)")
	optionsCmd.Flags().String("csv", "", "write the flattened chain to this CSV file")

	horizonCmd.Flags().Int("days", 0, "days ahead to include (default from config)")

	greeksCmd.Flags().Float64("rate", math.NaN(), "annual risk-free rate (default from config)")
	greeksCmd.Flags().String("svg", "", "write call and put charts to <prefix>_calls.svg and <prefix>_puts.svg")
	greeksCmd.Flags().String("csv", "", "write both series to this CSV file")

	skewCmd.Flags().String("target", "", "target date YYYY-MM-DD (required)")
	skewCmd.Flags().Int("window", 0, "days after target to include (default from config)")
	skewCmd.Flags().String("right", "call", "call or put")
	skewCmd.Flags().String("svg", "", "write the skew chart to this file")
	_ = skewCmd.MarkFlagRequired("target")

	surfaceCmd.Flags().String("svg", "", "write the surface heatmap to this file")

	rootCmd.AddCommand(optionsCmd, horizonCmd, greeksCmd, skewCmd, surfaceCmd)
}

// --- Options Command ---

var optionsCmd = &cobra.Command{
	Use:   "options SYMBOL",
	Short: "Summarize calls and puts near the money across all expirations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		factor, _ := cmd.Flags().GetFloat64("range")
		if !cmd.Flags().Changed("range") {
			factor = cfg.Options.StrikeRangeFactor
		}
		rep, err := svc.OptionsSummary(cmd.Context(), args[0], factor)
		if err != nil {
			return err
		}

		printSummary(rep.Summary)
		fmt.Printf("\nPut/call ratio: %s by open interest, %s by volume\n", f2(rep.PCRByOI), f2(rep.PCRByVolume))

		dates := make([]string, 0, len(rep.MaxPain))
		for d := range rep.MaxPain {
			dates = append(dates, d)
		}
		sort.Strings(dates)
		t := newTable("Expiration", "Max pain")
		for _, d := range dates {
			t.Append([]string{d, f2(rep.MaxPain[d])})
		}
		t.Render()

		if path, _ := cmd.Flags().GetString("csv"); path != "" {
			if err := export.ToFile(path, func(w io.Writer) error { return export.Contracts(w, rep.Contracts) }); err != nil {
				return err
			}
			fmt.Printf("Wrote %d contracts to %s\n", len(rep.Contracts), path)
		}
		return nil
	},
}

func printSummary(s models.ChainSummary) {
	title := fmt.Sprintf("%s  spot %s  %d expirations", s.Underlying, f2(s.Spot), s.Expirations)
	if s.StrikeRangeFactor > 0 {
		title += fmt.Sprintf("  strikes within ±%s", pct(s.StrikeRangeFactor))
	}
	if s.HorizonDays > 0 {
		title += fmt.Sprintf("  within %d days", s.HorizonDays)
	}
	fmt.Println(title)

	t := newTable("Side", "Contracts", "Volume", "Open interest", "Engagement", "Avg IV", "ITM", "OTM")
	for _, side := range []struct {
		name string
		s    models.SideSummary
	}{{"Calls", s.Calls}, {"Puts", s.Puts}} {
		t.Append([]string{
			side.name,
			strconv.Itoa(side.s.Count),
			strconv.FormatFloat(side.s.Volume, 'f', 0, 64),
			strconv.FormatFloat(side.s.OpenInterest, 'f', 0, 64),
			strconv.FormatFloat(side.s.Engagement(), 'f', 0, 64),
			pct(side.s.AvgImpliedVolatility),
			strconv.Itoa(side.s.ITM),
			strconv.Itoa(side.s.OTM),
		})
	}
	t.Render()
}

// --- Horizon Command ---

var horizonCmd = &cobra.Command{
	Use:   "horizon SYMBOL",
	Short: "Summarize contracts expiring within a number of days",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		days, _ := cmd.Flags().GetInt("days")
		if !cmd.Flags().Changed("days") {
			days = cfg.Options.HorizonDays
		}
		summary, err := svc.Horizon(cmd.Context(), args[0], days)
		if err != nil {
			return err
		}
		printSummary(summary)
		return nil
	},
}

// --- Greeks Command ---

var greeksCmd = &cobra.Command{
	Use:   "greeks SYMBOL",
	Short: "Black-Scholes Greeks of the at-the-money contract of each expiration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		rate, _ := cmd.Flags().GetFloat64("rate")
		if !cmd.Flags().Changed("rate") {
			rate = cfg.Options.RiskFreeRate
		}
		calls, puts, err := svc.GreeksSeries(cmd.Context(), args[0], rate)
		if err != nil {
			return err
		}
		for _, s := range []models.GreeksSeries{calls, puts} {
			fmt.Printf("%s %ss\n", s.Underlying, s.Right)
			t := newTable("Expiration", "Strike", "IV", "Price", "Delta", "Gamma", "Theta", "Vega", "Rho")
			for _, p := range s.Points {
				t.Append([]string{
					p.Expiration.Format(models.DateLayout),
					f2(p.Strike), pct(p.ImpliedVolatility), f2(p.Price),
					f4(p.Delta), f4(p.Gamma), f4(p.Theta), f4(p.Vega), f4(p.Rho),
				})
			}
			t.Render()
		}

		if path, _ := cmd.Flags().GetString("csv"); path != "" {
			if err := export.ToFile(path, func(w io.Writer) error { return export.Greeks(w, calls, puts) }); err != nil {
				return err
			}
			fmt.Println("Wrote", path)
		}
		if prefix, _ := cmd.Flags().GetString("svg"); prefix != "" {
			for _, s := range []models.GreeksSeries{calls, puts} {
				path := fmt.Sprintf("%s_%ss.svg", prefix, s.Right)
				if err := writeSVG(path, chart.GreeksChart(s, 0)); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

// --- Skew Command ---

var skewCmd = &cobra.Command{
	Use:   "skew SYMBOL",
	Short: "Implied volatility of out-of-the-money contracts after a target date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetStr, _ := cmd.Flags().GetString("target")
		target, err := time.Parse(models.DateLayout, targetStr)
		if err != nil {
			return fmt.Errorf("--target must be YYYY-MM-DD: %w", err)
		}
		rightStr, _ := cmd.Flags().GetString("right")
		right, err := models.ParseRight(rightStr)
		if err != nil {
			return err
		}
		window, _ := cmd.Flags().GetInt("window")

		svc, err := newService()
		if err != nil {
			return err
		}
		rep, err := svc.Skew(cmd.Context(), args[0], target, right, window)
		if err != nil {
			return err
		}
		printSkew(rep)

		if path, _ := cmd.Flags().GetString("svg"); path != "" {
			return writeSVG(path, chart.SkewChart(rep.Skew, rep.Symbol, rep.HistoricalVolatility, chart.Config{}))
		}
		return nil
	},
}

func printSkew(rep *research.SkewReport) {
	fmt.Printf("%s OTM %ss after %s  spot %s", rep.Symbol, rep.Skew.Right, rep.Target.Format(models.DateLayout), f2(rep.Spot))
	if !math.IsNaN(rep.HistoricalVolatility) {
		fmt.Printf("  historical volatility %s", pct(rep.HistoricalVolatility))
	}
	fmt.Println()
	t := newTable("Expiration", "Strike/spot", "IV")
	for _, p := range rep.Skew.Points {
		t.Append([]string{p.Expiration.Format(models.DateLayout), f4(p.RelativeStrike), pct(p.ImpliedVolatility)})
	}
	t.Render()
}

// --- Surface Command ---

var surfaceCmd = &cobra.Command{
	Use:   "surface SYMBOL",
	Short: "Interpolate the implied volatility surface",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		grid, err := svc.Surface(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, row := range grid.IV {
			for _, v := range row {
				if !math.IsNaN(v) {
					lo, hi = math.Min(lo, v), math.Max(hi, v)
				}
			}
		}
		fmt.Printf("%s surface: %d×%d grid over %d expirations, strike/spot %s to %s\n",
			args[0], len(grid.ExpirationAxis), len(grid.StrikeAxis), len(grid.Expirations),
			f2(grid.StrikeAxis[0]), f2(grid.StrikeAxis[len(grid.StrikeAxis)-1]))
		if !math.IsInf(lo, 1) {
			fmt.Printf("IV range %s to %s\n", pct(lo), pct(hi))
		}

		if path, _ := cmd.Flags().GetString("svg"); path != "" {
			return writeSVG(path, chart.SurfaceChart(grid, args[0], chart.Config{}))
		}
		return nil
	},
}
