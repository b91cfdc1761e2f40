package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/seenimoa/stockscore/internal/alerts"
	"github.com/seenimoa/stockscore/internal/service"
	"github.com/seenimoa/stockscore/pkg/models"
)

// --- Alerts Command ---

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Manage price, volume, RSI and MACD alerts",
}

var alertsAddCmd = &cobra.Command{
	Use:   "add SYMBOL TYPE CONDITION TARGET",
	Short: "Add an alert (types: price, volume, rsi, macd; conditions: above, below, crossover, crossunder)",
	Example: `  stockscore alerts add AAPL price above 200
  stockscore alerts add MSFT rsi below 30
  stockscore alerts add AAPL macd crossover 0`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("invalid target %q: %w", args[3], err)
		}
		a, err := alerts.New(args[0],
			models.AlertType(strings.ToLower(args[1])),
			models.AlertCondition(strings.ToLower(args[2])),
			target, time.Now())
		if err != nil {
			return err
		}
		if err := alerts.NewFileStore(cfg.Storage.AlertsFile).Add(a); err != nil {
			return err
		}
		fmt.Printf("✅ Alert %s added: %s %s %s %g\n", a.ID, a.Symbol, a.Type, a.Condition, a.Target)
		return nil
	},
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol, _ := cmd.Flags().GetString("symbol")
		active, err := alerts.NewFileStore(cfg.Storage.AlertsFile).Active(symbol)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			fmt.Println("No active alerts.")
			return nil
		}
		return printAlerts(active, false)
	},
}

var alertsRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove an active alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := alerts.NewFileStore(cfg.Storage.AlertsFile).Remove(args[0]); err != nil {
			return err
		}
		fmt.Printf("🗑️  Alert %s removed\n", args[0])
		return nil
	},
}

var alertsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List triggered alerts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		fired, err := alerts.NewFileStore(cfg.Storage.AlertsFile).History()
		if err != nil {
			return err
		}
		if len(fired) == 0 {
			fmt.Println("No triggered alerts.")
			return nil
		}
		return printAlerts(fired, true)
	},
}

var alertsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate every active alert once",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx, stop := signalContext()
		defer stop()

		events, err := svc.CheckAlerts(ctx)
		for _, ev := range events {
			printAlertEvent(ev)
		}
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println("No alerts fired.")
		}
		return nil
	},
}

func printAlerts(list []models.Alert, triggered bool) error {
	header := []string{"ID", "Symbol", "Type", "Condition", "Target", "Created"}
	if triggered {
		header = append(header, "Triggered", "Observed")
	}
	table := tablewriter.NewTable(os.Stdout, tablewriter.WithHeader(header))
	for _, a := range list {
		row := []string{
			a.ID, a.Symbol, string(a.Type), string(a.Condition),
			strconv.FormatFloat(a.Target, 'f', -1, 64),
			a.CreatedAt.Local().Format("2006-01-02 15:04"),
		}
		if triggered {
			at := ""
			if a.TriggeredAt != nil {
				at = a.TriggeredAt.Local().Format("2006-01-02 15:04")
			}
			row = append(row, at, strconv.FormatFloat(a.Observed, 'f', 4, 64))
		}
		_ = table.Append(row)
	}
	return table.Render()
}

func printAlertEvent(ev models.AlertEvent) {
	a := ev.Alert
	fmt.Printf("🔔 %s  %s %s %s %g (observed %.4f)\n",
		ev.Timestamp.Local().Format("15:04:05"), a.Symbol, a.Type, a.Condition, a.Target, ev.Observed)
}

func init() {
	alertsListCmd.Flags().String("symbol", "", "only alerts for this symbol")

	alertsCmd.AddCommand(alertsAddCmd)
	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsRemoveCmd)
	alertsCmd.AddCommand(alertsHistoryCmd)
	alertsCmd.AddCommand(alertsCheckCmd)
}

// --- Watch Command ---

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Check alerts on a schedule until interrupted",
	Example: `  stockscore watch
  stockscore watch --schedule "@every 1m"
  stockscore watch --schedule "*/5 9-16 * * 1-5"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		schedule, _ := cmd.Flags().GetString("schedule")
		if schedule == "" {
			schedule = cfg.Alerts.Schedule
		}

		svc, err := newService()
		if err != nil {
			return err
		}
		defer svc.Close()

		svc.Subscribe(func(ev service.Event) {
			if ev.Type != service.EventAlert {
				return
			}
			if alert, ok := ev.Data.(models.AlertEvent); ok {
				printAlertEvent(alert)
			}
		})

		ctx, stop := signalContext()
		defer stop()

		if err := svc.Watcher().Start(ctx, schedule); err != nil {
			return err
		}
		fmt.Printf("👀 Watching alerts (%s). Press Ctrl+C to stop.\n", schedule)
		<-ctx.Done()
		svc.Watcher().Stop()
		fmt.Println("\nStopped.")
		return nil
	},
}

func init() {
	watchCmd.Flags().String("schedule", "", `cron spec or descriptor, e.g. "@every 5m" (default from config)`)
}
