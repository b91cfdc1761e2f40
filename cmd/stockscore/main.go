// stockscore: technical, risk, fundamental and pattern analysis with a
// weighted buy/sell recommendation for listed stocks.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seenimoa/stockscore/api"
	"github.com/seenimoa/stockscore/internal/alerts"
	"github.com/seenimoa/stockscore/internal/config"
	"github.com/seenimoa/stockscore/internal/infra"
	"github.com/seenimoa/stockscore/internal/service"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stockscore",
	Short: "stockscore: stock indicator, risk and scoring engine",
	Long: `stockscore analyses a listed stock from its daily price history,
its benchmark and its provider fundamentals. It computes technical
indicators, risk metrics, fundamental ratios and chart patterns and fuses
them into a weighted score and a buy/sell recommendation.`,
	SilenceUsage: true,
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
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		infra.SetupLogging(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (trace, debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// newService builds the service from the loaded config.
func newService() (*service.Service, error) {
	return service.New(cfg, service.Options{})
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stockscore %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx, stop := signalContext()
		defer stop()

		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			if err := svc.Watcher().Start(ctx, cfg.Alerts.Schedule); err != nil {
				return err
			}
			defer svc.Watcher().Stop()
		}

		api.Version = version
		fmt.Printf("🌐 Starting stockscore API server on %s\n", cfg.Addr())
		return api.NewServer(svc).ListenAndServe(ctx, cfg.Addr())
	},
}

func init() {
	serveCmd.Flags().Bool("watch", true, "run the alert watcher alongside the server")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  stockscore: System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		a := cfg.Analysis
		fmt.Println("  Analysis:")
		fmt.Printf("    Benchmark:     %s\n", a.Benchmark)
		fmt.Printf("    Period:        %s\n", a.Period)
		fmt.Printf("    Risk-free:     %.2f%%\n", a.RiskFreeRate*100)
		fmt.Printf("    Weights:       tech %.2f · risk %.2f · fund %.2f · sent %.2f\n",
			a.Weights.Technical, a.Weights.Risk, a.Weights.Fundamental, a.Weights.Sentiment)
		fmt.Printf("    Thresholds:    strong buy %.2f · buy %.2f · hold %.2f · sell %.2f\n",
			a.Thresholds.StrongBuy, a.Thresholds.Buy, a.Thresholds.Hold, a.Thresholds.Sell)
		fmt.Println()

		fmt.Println("  Storage:")
		fmt.Printf("    Cache:         %s (ttl %s, max %d)\n", cfg.Datasource.Cache.Backend, cfg.Datasource.Cache.TTL, cfg.Datasource.Cache.MaxItems)
		history := cfg.Storage.HistoryDB
		if history == "" {
			history = "disabled"
		}
		fmt.Printf("    History:       %s\n", history)
		fmt.Printf("    Alerts:        %s\n", cfg.Storage.AlertsFile)
		if active, err := alerts.NewFileStore(cfg.Storage.AlertsFile).Active(""); err == nil {
			fmt.Printf("    Active alerts: %d (schedule %s)\n", len(active), cfg.Alerts.Schedule)
		}
		fmt.Printf("    API Server:    %s\n", cfg.Addr())
		fmt.Println()

		fmt.Println("  Secrets:")
		for _, k := range config.CheckSecrets(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
