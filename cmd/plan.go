package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"mina-swap/config"
	"mina-swap/pkg/plan"
)

var (
	// Plan creation flags
	planFromAsset      string
	planToAsset        string
	planTotalAmount    string
	planAmountPerTrade string
	planAmountPerDay   string
	planTriggerPrice   string
	planWallet         string
	planDescription    string

	// Plan list flags
	planStatusFilter string

	// Plan run flags
	planRunOnce bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage automated trading plans",
	Long: `Create and manage trading plans that automatically execute swaps when price conditions are met.

Trading plans allow you to set up automated strategies like:
- Sell 100 MINA for cUSD once 1 MINA is worth at least 0.95 cUSD, 5 MINA per trade
- Buy ADA with cUSD whenever the price of cUSD in ADA rises above 2.3
- Average into MINA over several days with a daily cap

Plans are persisted across restarts and track execution history.`,
}

var planCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new trading plan",
	Long: `Create a new automated trading plan with specific conditions.

Prices are expressed as units of the destination asset per unit of the source asset.

Examples:
  # Sell 100 MINA when 1 MINA fetches at least 0.95 cUSD, 5 per trade, max 20 per day
  mina-swap plan create sell-mina-high \
    --from MINA --to cUSD \
    --total 100 --per-trade 5 --per-day 20 \
    --when-price "above 0.95" \
    --wallet B62q...

  # Buy MINA with cUSD while 1 cUSD fetches at most 1.1 MINA
  mina-swap plan create buy-mina \
    --from cUSD --to MINA \
    --total 500 --per-trade 50 --per-day 100 \
    --when-price "below 1.1"`,
	Args: cobra.ExactArgs(1),
	Run:  runPlanCreate,
}

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all trading plans",
	Long: `Display all trading plans with their current status.

Examples:
  # List all plans
  mina-swap plan list

  # List only active plans
  mina-swap plan list --status active

  # List in JSON format
  mina-swap plan list --json`,
	Run: runPlanList,
}

var planViewCmd = &cobra.Command{
	Use:   "view <name>",
	Short: "View details of a specific plan",
	Long: `Display detailed information about a trading plan including recent executions.

Examples:
  mina-swap plan view sell-mina-high
  mina-swap plan view sell-mina-high --json`,
	Args: cobra.ExactArgs(1),
	Run:  runPlanView,
}

var planStartCmd = &cobra.Command{
	Use:   "start <name>",
	Short: "Start executing a trading plan",
	Long: `Activate a trading plan so that 'plan run' monitors its price and executes trades.

Examples:
  mina-swap plan start sell-mina-high`,
	Args: cobra.ExactArgs(1),
	Run:  runPlanStart,
}

var planStopCmd = &cobra.Command{
	Use:   "stop <name>",
	Short: "Stop executing a trading plan",
	Long: `Pause a trading plan to stop monitoring and executing trades.

The plan can be restarted later with 'plan start'.

Examples:
  mina-swap plan stop sell-mina-high`,
	Args: cobra.ExactArgs(1),
	Run:  runPlanStop,
}

var planCancelCmd = &cobra.Command{
	Use:   "cancel <name>",
	Short: "Cancel a trading plan for good",
	Long: `Cancel a trading plan. A cancelled plan keeps its history but cannot be restarted.

Examples:
  mina-swap plan cancel sell-mina-high`,
	Args: cobra.ExactArgs(1),
	Run:  runPlanCancel,
}

var planDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a trading plan",
	Long: `Permanently remove a trading plan.

Note: Active plans must be stopped before deletion.

Examples:
  mina-swap plan delete sell-mina-high`,
	Args: cobra.ExactArgs(1),
	Run:  runPlanDelete,
}

var planHistoryCmd = &cobra.Command{
	Use:   "history <name>",
	Short: "View execution history for a plan",
	Long: `Display the execution history of a trading plan showing all past trades.

Examples:
  mina-swap plan history sell-mina-high
  mina-swap plan history sell-mina-high --json`,
	Args: cobra.ExactArgs(1),
	Run:  runPlanHistory,
}

var planRunCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"daemon"},
	Short:   "Monitor and execute all active plans",
	Long: `Evaluate every active plan each check interval and execute trades when conditions are met.

The runner will:
- Re-read the plan file on every pass, so plans started or stopped in
  another terminal are picked up without a restart
- Quote a small probe amount to find the current price
- Swap the next slice when the trigger is met, respecting daily limits
- Record every attempt, including failed ones, in the plan history
- Shut down gracefully on Ctrl+C

Examples:
  # Run in the foreground
  mina-swap plan run

  # Evaluate once and exit (for cron)
  mina-swap plan run --once`,
	Run: runPlanRun,
}

func init() {
	rootCmd.AddCommand(planCmd)

	// Add subcommands
	planCmd.AddCommand(planCreateCmd)
	planCmd.AddCommand(planListCmd)
	planCmd.AddCommand(planViewCmd)
	planCmd.AddCommand(planStartCmd)
	planCmd.AddCommand(planStopCmd)
	planCmd.AddCommand(planCancelCmd)
	planCmd.AddCommand(planDeleteCmd)
	planCmd.AddCommand(planHistoryCmd)
	planCmd.AddCommand(planRunCmd)

	// Create command flags
	planCreateCmd.Flags().StringVar(&planFromAsset, "from", "", "Source asset symbol (e.g., MINA)")
	planCreateCmd.Flags().StringVar(&planToAsset, "to", "", "Destination asset symbol (e.g., cUSD)")
	planCreateCmd.Flags().StringVar(&planTotalAmount, "total", "", "Total amount to trade")
	planCreateCmd.Flags().StringVar(&planAmountPerTrade, "per-trade", "", "Amount per trade execution")
	planCreateCmd.Flags().StringVar(&planAmountPerDay, "per-day", "", "Maximum amount to trade per day")
	planCreateCmd.Flags().StringVar(&planTriggerPrice, "when-price", "", "Price trigger condition (e.g., 'above 0.95', 'below 1.1')")
	planCreateCmd.Flags().StringVar(&planWallet, "wallet", "", "Wallet address (defaults to wallet_address from config)")
	planCreateCmd.Flags().StringVar(&planDescription, "description", "", "Plan description (optional)")

	planCreateCmd.MarkFlagRequired("from")
	planCreateCmd.MarkFlagRequired("to")
	planCreateCmd.MarkFlagRequired("total")
	planCreateCmd.MarkFlagRequired("per-trade")
	planCreateCmd.MarkFlagRequired("per-day")
	planCreateCmd.MarkFlagRequired("when-price")

	// List command flags
	planListCmd.Flags().StringVar(&planStatusFilter, "status", "", "Filter by status (active, paused, completed, cancelled)")

	// Run command flags
	planRunCmd.Flags().BoolVar(&planRunOnce, "once", false, "Evaluate all active plans once and exit")
}

// loadPlanManager loads config and opens the plan store it points at
func loadPlanManager(cmd *cobra.Command) (*config.Config, *plan.Manager) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	manager, err := plan.NewManager(cfg.PlanStoragePath)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	return cfg, manager
}

func parseAmountFlag(name, value string) decimal.Decimal {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		printError(fmt.Errorf("invalid --%s %q: %w", name, value, err))
		os.Exit(1)
	}
	return amount
}

func runPlanCreate(cmd *cobra.Command, args []string) {
	planName := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")

	condition, price, err := plan.ParsePriceCondition(planTriggerPrice)
	if err != nil {
		printError(fmt.Errorf("invalid price condition: %w", err))
		os.Exit(1)
	}

	cfg, manager := loadPlanManager(cmd)

	wallet := planWallet
	if wallet == "" {
		wallet = cfg.WalletAddress
	}

	newPlan, err := manager.CreatePlan(plan.CreateParams{
		Name:           planName,
		Description:    planDescription,
		FromAsset:      planFromAsset,
		ToAsset:        planToAsset,
		WalletAddress:  wallet,
		TotalAmount:    parseAmountFlag("total", planTotalAmount),
		AmountPerTrade: parseAmountFlag("per-trade", planAmountPerTrade),
		AmountPerDay:   parseAmountFlag("per-day", planAmountPerDay),
		TriggerPrice:   price,
		PriceCondition: condition,
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(newPlan)
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("           TRADING PLAN CREATED SUCCESSFULLY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("\n  Name:             %s\n", color.CyanString(newPlan.Name))
	fmt.Printf("  Strategy:         Swap %s %s -> %s\n", newPlan.TotalAmount, newPlan.FromAsset, newPlan.ToAsset)
	fmt.Printf("  Per Trade:        %s %s\n", newPlan.AmountPerTrade, newPlan.FromAsset)
	fmt.Printf("  Per Day:          %s %s\n", newPlan.AmountPerDay, newPlan.FromAsset)
	fmt.Printf("  Trigger:          When price is %s %s %s/%s\n",
		condition, price, newPlan.ToAsset, newPlan.FromAsset)
	fmt.Printf("  Wallet:           %s\n", newPlan.WalletAddress)
	fmt.Printf("  Status:           %s\n", getStatusColor(newPlan.Status))
	if newPlan.Description != "" {
		fmt.Printf("  Description:      %s\n", newPlan.Description)
	}
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("\nTo start the plan, run:")
	color.Cyan("  mina-swap plan start %s\n", planName)
}

func runPlanList(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	_, manager := loadPlanManager(cmd)

	var plans []*plan.TradingPlan
	if planStatusFilter != "" {
		plans = manager.ListPlansByStatus(plan.PlanStatus(planStatusFilter))
	} else {
		plans = manager.ListPlans()
	}

	if jsonOutput {
		summaries := make([]*plan.PlanSummary, len(plans))
		for i, p := range plans {
			summaries[i] = p.ToSummary()
		}
		printJSON(summaries)
		return
	}

	if len(plans) == 0 {
		color.Yellow("No trading plans found.\n")
		fmt.Println("\nCreate a new plan with:")
		color.Cyan("  mina-swap plan create <name> --from <asset> --to <asset> ...\n")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 100))
	color.Green("                                      TRADING PLANS")
	fmt.Println(strings.Repeat("=", 100))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nNAME\tSTRATEGY\tPROGRESS\tTRIGGER\tSTATUS\tEXECUTIONS")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, p := range plans {
		strategy := fmt.Sprintf("%s -> %s", p.FromAsset, p.ToAsset)
		progress := fmt.Sprintf("%s / %s", p.TotalExecuted, p.TotalAmount)
		trigger := fmt.Sprintf("%s %s", p.PriceCondition, p.TriggerPrice)

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			p.Name, strategy, progress, trigger, getStatusColor(p.Status), p.ExecutionCount)
	}

	w.Flush()
	fmt.Println("\n" + strings.Repeat("=", 100) + "\n")
}

func runPlanView(cmd *cobra.Command, args []string) {
	planName := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")
	_, manager := loadPlanManager(cmd)

	p, err := manager.GetPlan(planName)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(p)
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        TRADING PLAN DETAILS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Name:              %s\n", color.CyanString(p.Name))
	if p.Description != "" {
		fmt.Printf("  Description:       %s\n", p.Description)
	}
	fmt.Printf("  Status:            %s\n", getStatusColor(p.Status))
	fmt.Printf("  Created:           %s\n", p.Created.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Last Updated:      %s\n", p.LastUpdated.Format("2006-01-02 15:04:05"))

	fmt.Printf("\n  Trading Strategy:\n")
	fmt.Printf("    From:            %s %s\n", p.TotalAmount, p.FromAsset)
	fmt.Printf("    To:              %s\n", p.ToAsset)
	fmt.Printf("    Per Trade:       %s %s\n", p.AmountPerTrade, p.FromAsset)
	fmt.Printf("    Per Day:         %s %s\n", p.AmountPerDay, p.FromAsset)
	fmt.Printf("    Trigger:         When price %s %s %s/%s\n",
		p.PriceCondition, p.TriggerPrice, p.ToAsset, p.FromAsset)
	fmt.Printf("    Wallet:          %s\n", p.WalletAddress)

	fmt.Printf("\n  Execution Progress:\n")
	fmt.Printf("    Executed:        %s %s\n", p.TotalExecuted, p.FromAsset)
	fmt.Printf("    Remaining:       %s %s\n", p.RemainingAmount, p.FromAsset)
	fmt.Printf("    Today Executed:  %s %s (limit: %s %s)\n", p.TodayExecuted, p.FromAsset, p.AmountPerDay, p.FromAsset)
	fmt.Printf("    Executions:      %d\n", p.ExecutionCount)

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")

	if len(p.ExecutionHistory) == 0 {
		return
	}

	fmt.Println(strings.Repeat("=", 70))
	color.Green("                      RECENT EXECUTIONS")
	fmt.Println(strings.Repeat("=", 70))

	// Show last 5 executions
	start := 0
	if len(p.ExecutionHistory) > 5 {
		start = len(p.ExecutionHistory) - 5
	}

	for i := len(p.ExecutionHistory) - 1; i >= start; i-- {
		exec := p.ExecutionHistory[i]
		fmt.Printf("\n  [%s] %s\n", exec.Timestamp.Format("2006-01-02 15:04:05"), getExecutionStatusColor(exec.Status))
		fmt.Printf("    Amount In:       %s %s\n", exec.Amount, p.FromAsset)
		fmt.Printf("    Price:           %s %s/%s\n", exec.QuotedPrice.StringFixed(6), p.ToAsset, p.FromAsset)
		if exec.EstimatedOutput.IsPositive() {
			fmt.Printf("    Expected Output: %s %s\n", exec.EstimatedOutput.StringFixed(6), p.ToAsset)
		}
		if exec.TransactionID != "" {
			fmt.Printf("    Transaction:     %s\n", color.CyanString(exec.TransactionID))
		}
		if exec.SwapStatus != "" {
			fmt.Printf("    Swap Status:     %s\n", exec.SwapStatus)
		}
		if exec.ErrorMessage != "" {
			fmt.Printf("    Error:           %s\n", color.RedString(exec.ErrorMessage))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func runPlanStart(cmd *cobra.Command, args []string) {
	planName := args[0]
	_, manager := loadPlanManager(cmd)

	if err := manager.StartPlan(planName); err != nil {
		printError(err)
		os.Exit(1)
	}

	color.Green("\n✓ Trading plan '%s' has been activated!\n", planName)
	fmt.Println("\nIt will trade while 'mina-swap plan run' is running.")
	fmt.Println("To stop the plan, run:")
	color.Cyan("  mina-swap plan stop %s\n", planName)
}

func runPlanStop(cmd *cobra.Command, args []string) {
	planName := args[0]
	_, manager := loadPlanManager(cmd)

	if err := manager.StopPlan(planName); err != nil {
		printError(err)
		os.Exit(1)
	}

	color.Green("\n✓ Trading plan '%s' has been stopped.\n", planName)
	fmt.Println("\nTo restart the plan, run:")
	color.Cyan("  mina-swap plan start %s\n", planName)
}

func runPlanCancel(cmd *cobra.Command, args []string) {
	planName := args[0]
	_, manager := loadPlanManager(cmd)

	if err := manager.CancelPlan(planName); err != nil {
		printError(err)
		os.Exit(1)
	}

	printSuccess(color.YellowString("Trading plan '%s' has been cancelled.", planName))
}

func runPlanDelete(cmd *cobra.Command, args []string) {
	planName := args[0]
	_, manager := loadPlanManager(cmd)

	if err := manager.DeletePlan(planName); err != nil {
		printError(err)
		os.Exit(1)
	}

	color.Green("\n✓ Trading plan '%s' has been deleted.\n", planName)
}

func runPlanHistory(cmd *cobra.Command, args []string) {
	planName := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")
	_, manager := loadPlanManager(cmd)

	p, err := manager.GetPlan(planName)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	history := p.ExecutionHistory
	stats := plan.ComputeStats(history)

	if jsonOutput {
		printJSON(map[string]interface{}{
			"stats":      stats,
			"executions": history,
		})
		return
	}

	if len(history) == 0 {
		color.Yellow("\nNo execution history found for plan '%s'.\n", planName)
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 110))
	color.Green("                                EXECUTION HISTORY: %s", planName)
	fmt.Println(strings.Repeat("=", 110))

	fmt.Printf("\n  Executions:        %d (%d submitted, %d failed)\n",
		stats.TotalExecutions, stats.SubmittedExecutions, stats.FailedExecutions)
	fmt.Printf("  Total Sold:        %s %s\n", stats.TotalSold, p.FromAsset)
	fmt.Printf("  Expected Received: %s %s\n", stats.TotalEstimated.StringFixed(6), p.ToAsset)
	fmt.Printf("  Fees Paid:         %s %s\n", stats.TotalFees.StringFixed(6), p.FromAsset)
	if stats.AveragePrice.IsPositive() {
		fmt.Printf("  Average Price:     %s %s/%s\n", stats.AveragePrice.StringFixed(6), p.ToAsset, p.FromAsset)
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tAMOUNT IN\tEXPECTED OUT\tPRICE\tSTATUS\tTRANSACTION")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, exec := range history {
		amountOut := ""
		if exec.EstimatedOutput.IsPositive() {
			amountOut = fmt.Sprintf("~%s %s", exec.EstimatedOutput.StringFixed(6), p.ToAsset)
		}

		fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\t%s\t%s\n",
			exec.Timestamp.Format("2006-01-02 15:04"),
			exec.Amount, p.FromAsset,
			amountOut,
			exec.QuotedPrice.StringFixed(6),
			getExecutionStatusColor(exec.Status),
			truncateString(exec.TransactionID, 13))
	}

	w.Flush()
	fmt.Println("\n" + strings.Repeat("=", 110) + "\n")
}

func runPlanRun(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	cfg, manager := loadPlanManager(cmd)

	log := newLogger(cmd, cfg)
	amm := newAMMClient(cfg, log)
	defer amm.CloseIdleConnections()

	executor := plan.NewExecutor(manager, amm, log, cfg.CheckInterval)
	ctx := cmd.Context()

	if planRunOnce {
		result, err := executor.RunOnce(ctx)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(result)
			return
		}
		printSuccess(fmt.Sprintf("Checked %d active plan(s): %d triggered, %d submitted, %d failed.",
			result.Checked, result.Triggered, result.Submitted, result.Failed))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                 TRADING PLAN RUNNER")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("\n  AMM:            %s\n", amm.BaseURL())
	fmt.Printf("  Plans:          %s\n", manager.StoragePath())
	fmt.Printf("  Active plans:   %d\n", len(manager.GetActivePlans()))
	fmt.Printf("  Check every:    %s\n", executor.CheckInterval())
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Yellow("\nPress Ctrl+C to stop.\n")

	if err := executor.Run(ctx); err != nil {
		printError(err)
		os.Exit(1)
	}

	color.Green("\n✓ Runner stopped.\n")
}

func getStatusColor(status plan.PlanStatus) string {
	switch status {
	case plan.StatusActive:
		return color.GreenString(string(status))
	case plan.StatusPaused:
		return color.YellowString(string(status))
	case plan.StatusCompleted:
		return color.BlueString(string(status))
	case plan.StatusCancelled:
		return color.RedString(string(status))
	default:
		return string(status)
	}
}

func getExecutionStatusColor(status plan.ExecutionStatus) string {
	switch status {
	case plan.ExecutionSubmitted:
		return color.GreenString(string(status))
	case plan.ExecutionFailed:
		return color.RedString(string(status))
	default:
		return string(status)
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
