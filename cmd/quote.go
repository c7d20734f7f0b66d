package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mina-swap/pkg/parser"
	"mina-swap/pkg/types"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <from-asset> to <to-asset>",
	Short: "Get a swap quote from the AMM",
	Long: `Ask the AMM how much of one asset you would receive for another.
A quote commits nothing.

Examples:
  mina-swap quote 10 MINA to cUSD
  mina-swap quote 2.5 ADA to MINA --json
  mina-swap quote 1 MINA to cUSD --base-url http://localhost:8545`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) {
	req, err := parser.ParseQuoteCommand(strings.Join(args, " "))
	if err == nil {
		err = parser.ValidateQuoteRequest(req)
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	log := newLogger(cmd, cfg)
	amm := newAMMClient(cfg, log)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	quote, err := amm.FetchQuote(cmd.Context(), req)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(quote)
		return
	}

	displayQuote(quote)
}

func displayQuote(quote *types.QuoteResponse) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                       QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:      %s %s\n", formatAmount(quote.AmountIn), color.YellowString(quote.FromAsset))
	fmt.Printf("  To:        ~%s %s\n", formatAmount(quote.AmountOut), color.YellowString(quote.ToAsset))
	fmt.Printf("  Fee:       %s %s\n", formatAmount(quote.Fee), quote.FromAsset)
	fmt.Printf("  Price:     1 %s = %s %s\n", quote.FromAsset, formatAmount(quote.Price()), quote.ToAsset)

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func formatAmount(v float64) string {
	s := fmt.Sprintf("%.8f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func printJSON(v interface{}) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	fmt.Println(string(jsonData))
}
