package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/quantdesk/internal/report"
	"github.com/seenimoa/quantdesk/pkg/models"
)

var reportCmd = &cobra.Command{
	Use:   "report SYMBOL",
	Short: "Write a full options research report",
	Long: `Build a research report with the chain summary, Greeks, skew, volatility
surface and technical indicators of a symbol. Sections that fail are listed
at the end instead of aborting the report.

Examples:
  quantdesk report AAPL --out aapl.html
  quantdesk report AAPL --format pdf --out aapl.pdf
  quantdesk report AAPL --format text --sections summary,greeks`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		targetStr, _ := cmd.Flags().GetString("target")
		sections, _ := cmd.Flags().GetStringSlice("sections")

		target := time.Now()
		if targetStr != "" {
			var err error
			if target, err = time.Parse(models.DateLayout, targetStr); err != nil {
				return fmt.Errorf("--target must be YYYY-MM-DD: %w", err)
			}
		}
		rcfg := report.DefaultConfig()
		if len(sections) > 0 {
			rcfg.Sections = rcfg.Sections[:0]
			for _, s := range sections {
				rcfg.Sections = append(rcfg.Sections, report.Section(strings.TrimSpace(s)))
			}
		}

		svc, err := newService()
		if err != nil {
			return err
		}
		in, err := report.Collect(cmd.Context(), svc, args[0], target, rcfg)
		if err != nil {
			return err
		}

		switch report.Format(format) {
		case report.FormatText:
			text, err := report.GenerateText(in, rcfg)
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Print(text)
				return nil
			}
			return os.WriteFile(out, []byte(text), 0o644)
		case report.FormatHTML, report.FormatPDF:
			html, err := report.GenerateHTML(in, rcfg)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("%s_report.%s", in.Symbol, format)
			}
			if report.Format(format) == report.FormatPDF {
				written, err := report.WritePDF(cmd.Context(), html, out)
				if err != nil {
					return err
				}
				fmt.Println("Wrote", written)
				return nil
			}
			if err := os.WriteFile(out, []byte(html), 0o644); err != nil {
				return err
			}
			fmt.Println("Wrote", out)
			return nil
		}
		return fmt.Errorf("unknown format %q (want html, pdf or text)", format)
	},
}

func init() {
	reportCmd.Flags().String("format", "html", "output format: html, pdf or text")
	reportCmd.Flags().String("out", "", "output file (default <SYMBOL>_report.<format>; text prints to stdout)")
	reportCmd.Flags().String("target", "", "skew target date YYYY-MM-DD (default today)")
	reportCmd.Flags().StringSlice("sections", nil, "sections to include: summary, greeks, skew, surface, technical")
	rootCmd.AddCommand(reportCmd)
}
