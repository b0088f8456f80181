// quantdesk is a command-line toolkit for stock and options research.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/quantdesk/internal/config"
	"github.com/seenimoa/quantdesk/internal/datasource"
	"github.com/seenimoa/quantdesk/internal/logging"
	"github.com/seenimoa/quantdesk/internal/research"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set by the root command.
var (
	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "quantdesk",
	Short: "Stock and options research from public market data",
	Long: `quantdesk pulls quotes, price history and option chains from Yahoo
Finance or Polygon.io and turns them into chain summaries, Black-Scholes
Greeks, volatility skews and surfaces, historical volatility and sector
comparisons.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
			cfg.Data.Provider = provider
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger = logging.New(cfg.Logging)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("provider", "", "market data provider override (yahoo, polygon, composite)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
}

// newService builds the configured provider and research service.
func newService() (*research.Service, error) {
	p, err := datasource.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return research.New(p, cfg, logger), nil
}

// newTable returns a table writing to stdout with the given header.
func newTable(header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(os.Stdout)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	return t
}

func f2(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
func f4(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
func pct(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("quantdesk %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and credential status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  quantdesk status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:         %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Provider:        %s\n", cfg.Data.Provider)
		fmt.Printf("    Cache TTL:       %ds\n", cfg.Data.CacheTTL)
		fmt.Printf("    Fetch workers:   %d\n", cfg.Data.ConcurrentFetches)
		fmt.Printf("    Risk-free rate:  %s\n", pct(cfg.Options.RiskFreeRate))
		fmt.Printf("    Strike range:    ±%s\n", pct(cfg.Options.StrikeRangeFactor))
		fmt.Printf("    API server:      %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "not set"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			} else if k.Required {
				status = "not set (required by provider)"
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
