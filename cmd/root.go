package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mina-swap/config"
	"mina-swap/pkg/client"
	"mina-swap/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "mina-swap",
	Short: "A CLI for quoting and swapping assets on an AMM",
	Long: `mina-swap is a command-line tool for an Automated Market Maker.
Ask for a quote, submit a swap from your wallet, or let a trading plan
swap in slices whenever the price meets your trigger.

Examples:
  mina-swap quote 10 MINA to cUSD
  mina-swap swap 10 MINA to cUSD --wallet B62q...
  mina-swap plan create dca --from MINA --to cUSD --total 100 --per-trade 5 --per-day 20 --when-price "above 0.95"
  mina-swap devnet`,
	Version: "0.1.0",
}

// Execute runs the root command; SIGINT and SIGTERM cancel its context
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().String("base-url", "", "AMM API base URL (overrides config)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default is $HOME/.mina-swap.yaml)")
}

// loadConfig reads configuration, from --config when given, and applies
// the --base-url override
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if baseURL, _ := cmd.Flags().GetString("base-url"); baseURL != "" {
		if err := config.ValidateBaseURL(baseURL); err != nil {
			return nil, err
		}
		cfg.BaseURL = baseURL
	}

	return cfg, nil
}

// newLogger builds the logger for a command; --verbose forces debug
func newLogger(cmd *cobra.Command, cfg *config.Config) *logger.Logger {
	level := cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	return logger.New(level, cfg.LogFormat)
}

func newAMMClient(cfg *config.Config, log *logger.Logger) *client.AMMClient {
	return client.NewAMMClient(cfg.BaseURL, client.WithLogger(log))
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
