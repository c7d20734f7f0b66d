package cmd

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mina-swap/pkg/devnet"
)

var devnetAddr string

var devnetCmd = &cobra.Command{
	Use:   "devnet",
	Short: "Run a local AMM for development",
	Long: `Start an in-memory constant-product AMM that answers /quote and /swap
the same way the real API does. Point the CLI at it with --base-url.

Examples:
  mina-swap devnet
  mina-swap devnet --addr 127.0.0.1:9000
  mina-swap quote 10 MINA to cUSD --base-url http://localhost:8545`,
	Run: runDevnet,
}

func init() {
	rootCmd.AddCommand(devnetCmd)

	devnetCmd.Flags().StringVar(&devnetAddr, "addr", "", "Listen address (defaults to devnet_addr from config)")
}

func runDevnet(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	addr := devnetAddr
	if addr == "" {
		addr = cfg.DevnetAddr
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	pools := devnet.DefaultPools()
	server := devnet.NewServer(pools, newLogger(cmd, cfg))

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                    DEVNET AMM")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("\n  Listening on:   %s\n", color.CyanString(ln.Addr().String()))
	for _, p := range server.Pools() {
		fmt.Printf("  Pool:           %s\n", p.String())
	}
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Yellow("\nPress Ctrl+C to stop.\n")

	if err := server.Serve(cmd.Context(), ln); err != nil {
		printError(err)
		os.Exit(1)
	}
}
