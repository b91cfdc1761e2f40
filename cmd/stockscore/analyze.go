package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/seenimoa/stockscore/internal/backtest"
	"github.com/seenimoa/stockscore/internal/pipeline"
	"github.com/seenimoa/stockscore/internal/report"
	"github.com/seenimoa/stockscore/internal/service"
	"github.com/seenimoa/stockscore/pkg/utils"
)

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL",
	Short: "Analyze one stock and print its score and recommendation",
	Example: `  stockscore analyze AAPL
  stockscore analyze MSFT --period 2y --format json
  stockscore analyze AAPL --export out.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		benchmark, _ := cmd.Flags().GetString("benchmark")
		period, _ := cmd.Flags().GetString("period")
		format, _ := cmd.Flags().GetString("format")
		export, _ := cmd.Flags().GetString("export")
		noNews, _ := cmd.Flags().GetBool("no-news")
		noHistory, _ := cmd.Flags().GetBool("no-history")

		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx, stop := signalContext()
		defer stop()

		a, err := svc.Analyze(ctx, service.AnalyzeRequest{
			Symbol:    args[0],
			Benchmark: benchmark,
			Period:    period,
			NoNews:    noNews,
			NoHistory: noHistory,
		})
		if err != nil {
			return err
		}
		for _, w := range a.Warnings {
			fmt.Fprintf(os.Stderr, "⚠️  %s\n", w)
		}

		switch format {
		case "json":
			if err := report.WriteJSON(os.Stdout, a.Result); err != nil {
				return err
			}
		case "table", "text":
			fmt.Print(report.FormatResult(a.Result))
		default:
			return fmt.Errorf("unknown format %q (table, json)", format)
		}

		if export != "" {
			path, err := exportPath(export, a)
			if err != nil {
				return err
			}
			if err := report.ExportFile(path, a.Result, a.Snapshot.Series, cfg.Analysis.Periods); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "📄 Exported to %s\n", path)
		}
		return nil
	},
}

// exportPath resolves --export: a bare format name writes the default file
// name into the configured export directory, anything else is a path.
func exportPath(export string, a *service.Analysis) (string, error) {
	if filepath.Ext(export) != "" {
		return export, nil
	}
	f, err := report.ParseFormat(export)
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg.Export.Dir, report.DefaultFileName(a.Result, f)), nil
}

func init() {
	analyzeCmd.Flags().String("benchmark", "", "benchmark symbol (default from config)")
	analyzeCmd.Flags().String("period", "", "history period, e.g. 6mo, 1y, 2y (default from config)")
	analyzeCmd.Flags().StringP("format", "f", "table", "output format (table, json)")
	analyzeCmd.Flags().StringP("export", "o", "", "export to a file (.json, .csv, .xlsx, .txt) or a format name")
	analyzeCmd.Flags().Bool("no-news", false, "skip headline sentiment")
	analyzeCmd.Flags().Bool("no-history", false, "do not record the result in the history database")
}

// --- Compare Command ---

var compareCmd = &cobra.Command{
	Use:   "compare SYMBOL SYMBOL...",
	Short: "Analyze several stocks side by side",
	Example: `  stockscore compare AAPL MSFT GOOGL
  stockscore compare AAPL MSFT --format csv > cmp.csv`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		benchmark, _ := cmd.Flags().GetString("benchmark")
		period, _ := cmd.Flags().GetString("period")
		format, _ := cmd.Flags().GetString("format")
		noHistory, _ := cmd.Flags().GetBool("no-history")

		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx, stop := signalContext()
		defer stop()

		bar := progressbar.NewOptions(len(args),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Analyzing"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]█[reset]",
				SaucerHead:    "[green]█[reset]",
				SaucerPadding: "░",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)

		cmp, err := svc.Compare(ctx, service.CompareRequest{
			Symbols:   args,
			Benchmark: benchmark,
			Period:    period,
			NoHistory: noHistory,
			Progress:  func(string) { _ = bar.Add(1) },
		})
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}

		switch format {
		case "json":
			return report.WriteJSON(os.Stdout, cmp)
		case "csv":
			return report.WriteComparisonCSV(os.Stdout, cmp)
		case "table":
			printComparison(cmp)
			return nil
		}
		return fmt.Errorf("unknown format %q (table, json, csv)", format)
	},
}

func printComparison(cmp pipeline.Comparison) {
	table := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader(report.ComparisonHeader))
	for _, row := range cmp.Rows {
		rec := report.ComparisonRecord(row)
		rec[1] = utils.FormatMoney(row.LastPrice)
		if pct, ok := row.ChangePct.Get(); ok {
			rec[2] = utils.FormatPct(pct)
		}
		rec[3] = utils.FormatVolume(row.Volume)
		_ = table.Append(rec)
	}
	_ = table.Render()

	if len(cmp.Correlation.Symbols) < 2 {
		return
	}
	fmt.Println()
	fmt.Println("Correlation of daily returns:")
	header := append([]string{""}, cmp.Correlation.Symbols...)
	corr := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader(header))
	for i, sym := range cmp.Correlation.Symbols {
		row := []string{sym}
		for _, v := range cmp.Correlation.Values[i] {
			if f, ok := v.Get(); ok {
				row = append(row, fmt.Sprintf("%.2f", f))
			} else {
				row = append(row, "n/a")
			}
		}
		_ = corr.Append(row)
	}
	_ = corr.Render()
}

func init() {
	compareCmd.Flags().String("benchmark", "", "benchmark symbol (default from config)")
	compareCmd.Flags().String("period", "", "history period (default from config)")
	compareCmd.Flags().StringP("format", "f", "table", "output format (table, json, csv)")
	compareCmd.Flags().Bool("no-history", false, "do not record the results in the history database")
}

// --- Backtest Command ---

var backtestCmd = &cobra.Command{
	Use:   "backtest SYMBOL",
	Short: "Replay the analysis over a symbol's history",
	Long: `Walks forward through the price history, re-running the full analysis
at every step on the bars seen so far, and trades the recommendation.`,
	Example: `  stockscore backtest AAPL --period 2y --step 5 --warmup 60
  stockscore backtest MSFT --strategy signal --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		benchmark, _ := cmd.Flags().GetString("benchmark")
		period, _ := cmd.Flags().GetString("period")
		strategy, _ := cmd.Flags().GetString("strategy")
		warmup, _ := cmd.Flags().GetInt("warmup")
		step, _ := cmd.Flags().GetInt("step")
		capital, _ := cmd.Flags().GetFloat64("capital")
		format, _ := cmd.Flags().GetString("format")

		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx, stop := signalContext()
		defer stop()

		fmt.Fprintf(os.Stderr, "🔄 Backtesting %s (%s strategy)...\n", strings.ToUpper(args[0]), strategy)
		res, err := svc.Backtest(ctx, service.BacktestRequest{
			Symbol:         args[0],
			Benchmark:      benchmark,
			Period:         period,
			Strategy:       strategy,
			Warmup:         warmup,
			Step:           step,
			InitialCapital: capital,
		})
		if err != nil {
			return err
		}

		if format == "json" {
			return report.WriteJSON(os.Stdout, res)
		}
		fmt.Print(backtest.FormatReport(res))
		return nil
	},
}

func init() {
	backtestCmd.Flags().String("benchmark", "", "benchmark symbol (default from config)")
	backtestCmd.Flags().String("period", "", "history period (default from config)")
	backtestCmd.Flags().String("strategy", "score", "strategy (score, signal)")
	backtestCmd.Flags().Int("warmup", 0, "bars before the first evaluation (default from config)")
	backtestCmd.Flags().Int("step", 0, "bars between evaluations (default from config)")
	backtestCmd.Flags().Float64("capital", 0, "initial capital (default from config)")
	backtestCmd.Flags().StringP("format", "f", "text", "output format (text, json)")
}

// --- History Command ---

var historyCmd = &cobra.Command{
	Use:   "history SYMBOL",
	Short: "Show recorded analyses of a symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		if cfg.Storage.HistoryDB == "" {
			return fmt.Errorf("history is disabled (storage.history_db is empty)")
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		entries, err := svc.History(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Printf("No recorded analyses for %s.\n", strings.ToUpper(args[0]))
			return nil
		}

		table := tablewriter.NewTable(os.Stdout,
			tablewriter.WithHeader([]string{"As Of", "Score", "Recommendation", "Close", "Recorded"}))
		for _, e := range entries {
			_ = table.Append([]string{
				e.AsOf.Format("2006-01-02"),
				e.Score.String(),
				string(e.Recommendation),
				fmt.Sprintf("%.2f", e.Result.LastClose),
				e.CreatedAt.Local().Format("2006-01-02 15:04"),
			})
		}
		return table.Render()
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "maximum number of entries")
}
