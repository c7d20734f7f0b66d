package cmd

import (
	"bufio"
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

var (
	walletAddr string
	noConfirm  bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <from-asset> to <to-asset>",
	Short: "Swap assets through the AMM",
	Long: `Quote a swap, confirm it, and submit it for execution from your wallet.

The wallet comes from --wallet or the wallet_address config key.

Examples:
  mina-swap swap 10 MINA to cUSD --wallet B62q...
  mina-swap swap 2.5 ADA to MINA --wallet B62q... --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&walletAddr, "wallet", "", "Wallet address that pays for the swap")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) {
	quoteReq, err := parser.ParseQuoteCommand(strings.Join(args, " "))
	if err == nil {
		err = parser.ValidateQuoteRequest(quoteReq)
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

	wallet := walletAddr
	if wallet == "" {
		wallet = cfg.WalletAddress
	}
	if wallet == "" {
		printError(fmt.Errorf("a wallet address is required: pass --wallet or set wallet_address"))
		os.Exit(1)
	}

	log := newLogger(cmd, cfg)
	amm := newAMMClient(cfg, log)
	ctx := cmd.Context()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	quote, err := amm.FetchQuote(ctx, quoteReq)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !jsonOutput {
		displayQuote(quote)
	}

	// JSON output is for scripts, so it never prompts
	if !noConfirm && !jsonOutput {
		if !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			os.Exit(0)
		}
	}

	if !jsonOutput {
		s.Suffix = " Submitting swap..."
		s.Start()
	}

	swap, err := amm.SubmitSwap(ctx, &types.SwapRequest{
		QuoteRequest:  *quoteReq,
		WalletAddress: wallet,
	})
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"quote": quote,
			"swap":  swap,
		})
		return
	}

	displaySwap(swap)
}

func displaySwap(swap *types.SwapResponse) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                    SWAP SUBMITTED")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Status:          %s\n", color.GreenString(swap.Status))
	fmt.Printf("  Transaction ID:  %s\n", color.CyanString(swap.TransactionID))
	if swap.SubmittedAt != "" {
		fmt.Printf("  Submitted At:    %s\n", swap.SubmittedAt)
	}
	if swap.Message != "" {
		fmt.Printf("  Message:         %s\n", swap.Message)
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
